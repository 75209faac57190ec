package expense

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/expense-tracker/internal/insight"
	"github.com/zombor/expense-tracker/internal/scanning"
)

// multipartUpload builds a multipart body with a file part and optional
// extra form fields.
func multipartUpload(filename string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	Expect(err).NotTo(HaveOccurred())
	_, err = part.Write(data)
	Expect(err).NotTo(HaveOccurred())

	for k, v := range fields {
		Expect(writer.WriteField(k, v)).To(Succeed())
	}
	Expect(writer.Close()).To(Succeed())

	return body, writer.FormDataContentType()
}

var _ = Describe("Server", func() {
	var (
		store   *MemoryStore
		scanner *mockScanner
		files   *mockStorage
		server  *Server
	)

	const (
		authUser = "admin"
		authPass = "secret"
	)

	doRequest := func(method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
		if body == nil {
			body = &bytes.Buffer{}
		}
		req := httptest.NewRequest(method, path, body)
		req.SetBasicAuth(authUser, authPass)
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)
		return rec
	}

	createExpense := func() *Expense {
		data, err := json.Marshal(scanner.receipt)
		Expect(err).NotTo(HaveOccurred())
		body, contentType := multipartUpload("receipt.png", tinyPNG(), map[string]string{"data": string(data)})

		resp := doRequest("POST", "/api/expenses", body, contentType)
		Expect(resp.Code).To(Equal(http.StatusCreated))

		var exp Expense
		Expect(json.Unmarshal(resp.Body.Bytes(), &exp)).To(Succeed())
		return &exp
	}

	BeforeEach(func() {
		store = NewMemoryStore()
		files = newMockStorage()
		scanner = &mockScanner{
			receipt: &scanning.Receipt{
				Vendor:   "Cafe Luna",
				Date:     "2024-03-20",
				Total:    42.50,
				Currency: "USD",
				Items: []scanning.Item{
					{Description: "Latte", Quantity: 1, UnitPrice: 42.50, TotalPrice: 42.50},
				},
				Category: "Food",
			},
		}
		service := NewService(store, scanner, files)
		server = NewServer(service, insight.Noop{}, BasicAuth{Username: authUser, Password: authPass})
	})

	Describe("authentication", func() {
		It("rejects requests without credentials", func() {
			req := httptest.NewRequest("GET", "/api/expenses", nil)
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(rec.Header().Get("WWW-Authenticate")).To(ContainSubstring("Basic"))
		})

		It("rejects wrong credentials", func() {
			req := httptest.NewRequest("GET", "/api/expenses", nil)
			req.SetBasicAuth(authUser, "wrong")
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})

		It("answers preflight requests without auth", func() {
			req := httptest.NewRequest("OPTIONS", "/api/expenses", nil)
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)
			Expect(rec.Code).To(Equal(http.StatusNoContent))
			Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})
	})

	Describe("POST /api/receipts/scan", func() {
		It("returns the reconciled receipt", func() {
			body, contentType := multipartUpload("receipt.png", tinyPNG(), nil)
			resp := doRequest("POST", "/api/receipts/scan", body, contentType)
			Expect(resp.Code).To(Equal(http.StatusOK))

			var rec scanning.Receipt
			Expect(json.Unmarshal(resp.Body.Bytes(), &rec)).To(Succeed())
			Expect(rec.Vendor).To(Equal("Cafe Luna"))
			Expect(rec.Total).To(Equal(42.50))
		})

		When("extraction fails", func() {
			BeforeEach(func() {
				scanner.scanErr = scanning.ErrExtraction
			})

			It("asks the user for a clearer image", func() {
				body, contentType := multipartUpload("receipt.png", tinyPNG(), nil)
				resp := doRequest("POST", "/api/receipts/scan", body, contentType)
				Expect(resp.Code).To(Equal(http.StatusUnprocessableEntity))
				Expect(resp.Body.String()).To(ContainSubstring("clearer image"))
			})
		})

		When("no scanner is configured", func() {
			BeforeEach(func() {
				scanner.scanErr = scanning.ErrUnavailable
			})

			It("reports the feature as unavailable", func() {
				body, contentType := multipartUpload("receipt.png", tinyPNG(), nil)
				resp := doRequest("POST", "/api/receipts/scan", body, contentType)
				Expect(resp.Code).To(Equal(http.StatusServiceUnavailable))
			})
		})

		It("rejects requests without a file", func() {
			resp := doRequest("POST", "/api/receipts/scan", bytes.NewBufferString("{}"), "application/json")
			Expect(resp.Code).To(Equal(http.StatusBadRequest))
		})

		It("rejects uploads over the size limit", func() {
			oversized := make([]byte, maxUploadSize+1)
			body, contentType := multipartUpload("huge.png", oversized, nil)
			resp := doRequest("POST", "/api/receipts/scan", body, contentType)
			Expect(resp.Code).To(Equal(http.StatusBadRequest))
			Expect(resp.Body.String()).To(ContainSubstring("too large"))
		})
	})

	Describe("expense CRUD", func() {
		It("creates an expense from a confirmed receipt", func() {
			exp := createExpense()
			Expect(exp.ID).NotTo(BeEmpty())
			Expect(exp.Title).To(Equal("Cafe Luna Receipt"))
			Expect(exp.Status).To(Equal(StatusPending))
			Expect(exp.IsEdited).To(BeFalse())
		})

		It("rejects creation with malformed receipt data", func() {
			body, contentType := multipartUpload("receipt.png", tinyPNG(), map[string]string{"data": "not json"})
			resp := doRequest("POST", "/api/expenses", body, contentType)
			Expect(resp.Code).To(Equal(http.StatusBadRequest))
		})

		It("lists expenses in creation order", func() {
			first := createExpense()
			second := createExpense()

			resp := doRequest("GET", "/api/expenses", nil, "")
			Expect(resp.Code).To(Equal(http.StatusOK))

			var expenses []*Expense
			Expect(json.Unmarshal(resp.Body.Bytes(), &expenses)).To(Succeed())
			Expect(expenses).To(HaveLen(2))
			Expect(expenses[0].ID).To(Equal(first.ID))
			Expect(expenses[1].ID).To(Equal(second.ID))
		})

		It("fetches a single expense", func() {
			exp := createExpense()
			resp := doRequest("GET", "/api/expenses/"+exp.ID, nil, "")
			Expect(resp.Code).To(Equal(http.StatusOK))

			var got Expense
			Expect(json.Unmarshal(resp.Body.Bytes(), &got)).To(Succeed())
			Expect(got.ID).To(Equal(exp.ID))
		})

		It("returns 404 for an unknown expense", func() {
			resp := doRequest("GET", "/api/expenses/missing", nil, "")
			Expect(resp.Code).To(Equal(http.StatusNotFound))
		})

		It("applies partial updates and marks the record edited", func() {
			exp := createExpense()
			resp := doRequest("PATCH", "/api/expenses/"+exp.ID, bytes.NewBufferString(`{"amount": 50}`), "application/json")
			Expect(resp.Code).To(Equal(http.StatusOK))

			var got Expense
			Expect(json.Unmarshal(resp.Body.Bytes(), &got)).To(Succeed())
			Expect(got.Amount).To(Equal(50.0))
			Expect(got.IsEdited).To(BeTrue())
			Expect(got.ID).To(Equal(exp.ID))
		})

		It("rejects updates with an invalid status", func() {
			exp := createExpense()
			resp := doRequest("PATCH", "/api/expenses/"+exp.ID, bytes.NewBufferString(`{"status": "archived"}`), "application/json")
			Expect(resp.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 404 when updating an unknown expense", func() {
			resp := doRequest("PATCH", "/api/expenses/missing", bytes.NewBufferString(`{"amount": 50}`), "application/json")
			Expect(resp.Code).To(Equal(http.StatusNotFound))
		})

		It("deletes an expense", func() {
			exp := createExpense()
			resp := doRequest("DELETE", "/api/expenses/"+exp.ID, nil, "")
			Expect(resp.Code).To(Equal(http.StatusNoContent))

			resp = doRequest("GET", "/api/expenses/"+exp.ID, nil, "")
			Expect(resp.Code).To(Equal(http.StatusNotFound))
		})

		It("returns 404 when deleting an unknown expense", func() {
			resp := doRequest("DELETE", "/api/expenses/missing", nil, "")
			Expect(resp.Code).To(Equal(http.StatusNotFound))
		})

		It("serves the stored display image", func() {
			exp := createExpense()
			resp := doRequest("GET", "/api/expenses/"+exp.ID+"/receipt", nil, "")
			Expect(resp.Code).To(Equal(http.StatusOK))
			Expect(resp.Header().Get("Content-Type")).To(Equal("image/jpeg"))
			Expect(resp.Body.Len()).To(BeNumerically(">", 0))
		})
	})

	Describe("GET /api/expenses/summary", func() {
		It("aggregates stored expenses", func() {
			createExpense()
			createExpense()

			resp := doRequest("GET", "/api/expenses/summary", nil, "")
			Expect(resp.Code).To(Equal(http.StatusOK))

			var sum Summary
			Expect(json.Unmarshal(resp.Body.Bytes(), &sum)).To(Succeed())
			Expect(sum.Count).To(Equal(2))
			Expect(sum.Total).To(Equal(85.0))
			Expect(sum.ByCategory).To(HaveKeyWithValue("Food", 85.0))
			Expect(sum.FormattedTotal).To(Equal("$85.00"))
		})
	})

	Describe("analysis endpoints", func() {
		analysisBody := func(timeframe string) *bytes.Buffer {
			payload := map[string]any{
				"expenses": []insight.ExpenseDatum{
					{Amount: 42.50, Category: "Food", Merchant: "Cafe Luna", Date: time.Now()},
				},
				"timeframe": timeframe,
			}
			data, err := json.Marshal(payload)
			Expect(err).NotTo(HaveOccurred())
			return bytes.NewBuffer(data)
		}

		It("always resolves insight requests", func() {
			resp := doRequest("POST", "/api/insights", analysisBody("month"), "application/json")
			Expect(resp.Code).To(Equal(http.StatusOK))

			var result insight.InsightResponse
			Expect(json.Unmarshal(resp.Body.Bytes(), &result)).To(Succeed())
			Expect(result.Status).To(Equal(insight.StatusUnavailable))
			Expect(result.Insights).To(BeEmpty())
			Expect(result.Summary).To(Equal("No insights available"))
		})

		It("rejects invalid insight timeframes", func() {
			resp := doRequest("POST", "/api/insights", analysisBody("decade"), "application/json")
			Expect(resp.Code).To(Equal(http.StatusBadRequest))
		})

		It("always resolves anomaly requests", func() {
			resp := doRequest("POST", "/api/anomalies", analysisBody("week"), "application/json")
			Expect(resp.Code).To(Equal(http.StatusOK))

			var result insight.AnomalyResponse
			Expect(json.Unmarshal(resp.Body.Bytes(), &result)).To(Succeed())
			Expect(result.Status).To(Equal(insight.StatusUnavailable))
			Expect(result.Activities).To(BeEmpty())
		})

		It("rejects anomaly timeframes longer than a month", func() {
			resp := doRequest("POST", "/api/anomalies", analysisBody("quarter"), "application/json")
			Expect(resp.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("CORS", func() {
		It("sets CORS headers on API responses", func() {
			resp := doRequest("GET", "/api/expenses", nil, "")
			Expect(resp.Header().Get("Access-Control-Allow-Origin")).To(Equal("*"))
			Expect(resp.Header().Get("Access-Control-Allow-Methods")).To(ContainSubstring("PATCH"))
		})
	})
})

var _ = Describe("recent query parameter", func() {
	It("limits the listing to the newest expenses", func() {
		store := NewMemoryStore()
		now := time.Now()
		Expect(store.Save(&Expense{ID: "old", Date: now.AddDate(0, 0, -7)})).To(Succeed())
		Expect(store.Save(&Expense{ID: "new", Date: now})).To(Succeed())

		service := NewService(store, &mockScanner{}, newMockStorage())
		server := NewServer(service, insight.Noop{}, BasicAuth{Username: "u", Password: "p"})

		req := httptest.NewRequest("GET", "/api/expenses?recent=1", nil)
		req.SetBasicAuth("u", "p")
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)
		Expect(rec.Code).To(Equal(http.StatusOK))

		var expenses []*Expense
		Expect(json.Unmarshal(rec.Body.Bytes(), &expenses)).To(Succeed())
		Expect(expenses).To(HaveLen(1))
		Expect(expenses[0].ID).To(Equal("new"))
	})

	It("rejects a non-numeric value", func() {
		service := NewService(NewMemoryStore(), &mockScanner{}, newMockStorage())
		server := NewServer(service, insight.Noop{}, BasicAuth{Username: "u", Password: "p"})

		req := httptest.NewRequest("GET", "/api/expenses?recent=all", nil)
		req.SetBasicAuth("u", "p")
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})
})
