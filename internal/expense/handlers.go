package expense

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zombor/expense-tracker/internal/insight"
	"github.com/zombor/expense-tracker/internal/scanning"
)

// maxUploadSize caps receipt uploads at 50MB to handle high-resolution
// phone photos.
const maxUploadSize = int64(50 << 20)

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// corsError writes a plain error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// jsonError writes a JSON error body
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// readUploadedFile extracts the receipt file from a multipart form and
// determines its content type, sniffing from the extension when the
// client did not send one.
func readUploadedFile(w http.ResponseWriter, r *http.Request) (filename string, data []byte, contentType string, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		msg := "Error parsing form"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			msg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		jsonError(w, msg, http.StatusBadRequest)
		return "", nil, "", false
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		jsonError(w, "No file was selected. Please choose a file to upload.", http.StatusBadRequest)
		return "", nil, "", false
	}
	defer f.Close()

	if header.Size > maxUploadSize {
		jsonError(w, "File is too large. Maximum size is 50MB. Please compress or resize your image.", http.StatusBadRequest)
		return "", nil, "", false
	}

	data, err = io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return "", nil, "", false
	}

	contentType = header.Header.Get("Content-Type")
	if contentType == "" {
		switch strings.ToLower(filepath.Ext(header.Filename)) {
		case ".jpg", ".jpeg":
			contentType = "image/jpeg"
		case ".png":
			contentType = "image/png"
		case ".pdf":
			contentType = "application/pdf"
		case ".heic":
			contentType = "image/heic"
		case ".heif":
			contentType = "image/heif"
		default:
			contentType = "application/octet-stream"
		}
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	return header.Filename, data, contentType, true
}

// handleScanReceipt runs OCR over an uploaded receipt and returns the
// reconciled result for the user to confirm.
func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	filename, data, contentType, ok := readUploadedFile(w, r)
	if !ok {
		return
	}

	rec, err := s.service.ScanReceipt(filename, data, contentType)
	if err != nil {
		switch {
		case errors.Is(err, scanning.ErrExtraction):
			jsonError(w, "Failed to extract data from receipt. Please try again with a clearer image.", http.StatusUnprocessableEntity)
		case errors.Is(err, scanning.ErrUnavailable):
			jsonError(w, "Receipt scanning is not available.", http.StatusServiceUnavailable)
		default:
			jsonError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// handleCreateExpense confirms a scanned receipt as an expense. The
// multipart form carries the original file plus the (possibly
// user-edited) reconciled receipt under "data".
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	_, data, contentType, ok := readUploadedFile(w, r)
	if !ok {
		return
	}

	var rec scanning.Receipt
	if err := json.Unmarshal([]byte(r.FormValue("data")), &rec); err != nil {
		jsonError(w, "Invalid receipt data", http.StatusBadRequest)
		return
	}

	exp, err := s.service.AddExpense(&rec, data, contentType)
	if err != nil {
		slog.Error("Error creating expense", "error", err)
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, exp)
}

// handleListExpenses returns all expenses
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.service.ListExpenses()
	if err != nil {
		slog.Error("Error listing expenses", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// n query param limits to the n most recent by date.
	if nStr := r.URL.Query().Get("recent"); nStr != "" {
		n, err := strconv.Atoi(nStr)
		if err != nil || n < 1 {
			corsError(w, "Invalid recent parameter", http.StatusBadRequest)
			return
		}
		expenses, err = s.service.RecentExpenses(n)
		if err != nil {
			corsError(w, "Internal server error", http.StatusInternalServerError)
			return
		}
	}

	writeJSON(w, http.StatusOK, expenses)
}

// handleGetExpense returns a single expense
func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	exp, err := s.service.GetExpense(r.PathValue("id"))
	if err != nil {
		corsError(w, "Expense not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

// handleUpdateExpense applies a partial update
func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var upd Update
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if upd.Status != nil && !upd.Status.Valid() {
		corsError(w, "Invalid status", http.StatusBadRequest)
		return
	}

	exp, err := s.service.UpdateExpense(r.PathValue("id"), upd)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			corsError(w, "Expense not found", http.StatusNotFound)
			return
		}
		slog.Error("Error updating expense", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, exp)
}

// handleDeleteExpense deletes an expense
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	removed, err := s.service.DeleteExpense(r.PathValue("id"))
	if err != nil {
		slog.Error("Error deleting expense", "error", err)
		corsError(w, "Error deleting expense", http.StatusInternalServerError)
		return
	}
	if !removed {
		corsError(w, "Expense not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleGetReceiptImage returns the stored display copy
func (s *Server) handleGetReceiptImage(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetReceiptImage(r.PathValue("id"))
	if err != nil {
		corsError(w, "Receipt image not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleSummary returns spend totals for the reports and tax views
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.service.Summary()
	if err != nil {
		slog.Error("Error building summary", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// analysisRequest is the body shared by the insight and anomaly
// endpoints.
type analysisRequest struct {
	Expenses  []insight.ExpenseDatum `json:"expenses"`
	Timeframe insight.Timeframe      `json:"timeframe"`
}

// handleInsights runs the spending-insight analyzer. The analyzer
// never fails; degraded service shows up in the response status.
func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !req.Timeframe.ValidForInsights() {
		corsError(w, "Invalid timeframe: want week, month, quarter or year", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, s.analyzer.AnalyzeExpenses(req.Expenses, req.Timeframe))
}

// handleAnomalies runs suspicious-activity detection.
func (s *Server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !req.Timeframe.ValidForAnomalies() {
		corsError(w, "Invalid timeframe: want week or month", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, s.analyzer.DetectAnomalies(req.Expenses, req.Timeframe))
}
