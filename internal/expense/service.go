package expense

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/expense-tracker/internal/category"
	"github.com/zombor/expense-tracker/internal/money"
	"github.com/zombor/expense-tracker/internal/scanning"
)

// IDGenerator generates unique IDs for expenses
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates IDs from a millisecond timestamp plus a
// random suffix. The timestamp prefix keeps bolt iteration in creation
// order.
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return fmt.Sprintf("exp-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles expense operations
type Service struct {
	store      Store
	scanner    scanning.Scanner
	files      Storage
	idGen      IDGenerator
	timeSource TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(store Store, scanner scanning.Scanner, files Storage) *Service {
	return NewServiceWithDeps(store, scanner, files, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(store Store, scanner scanning.Scanner, files Storage, idGen IDGenerator, timeSource TimeSource) *Service {
	return &Service{
		store:      store,
		scanner:    scanner,
		files:      files,
		idGen:      idGen,
		timeSource: timeSource,
	}
}

// ScanReceipt runs the configured scanner over an uploaded receipt and
// returns the reconciled result for the user to confirm. Extraction
// failures propagate to the caller, which owns the retry prompt.
func (s *Service) ScanReceipt(filename string, data []byte, contentType string) (*scanning.Receipt, error) {
	rec, err := s.scanner.ScanReceipt(data, contentType)
	if err != nil {
		slog.Error("Failed to scan receipt",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		return nil, fmt.Errorf("scanning receipt: %w", err)
	}
	return rec, nil
}

// AddExpense confirms a reconciled receipt as a new expense. A
// compressed display copy of the receipt image is stored alongside it.
func (s *Service) AddExpense(rec *scanning.Receipt, data []byte, contentType string) (*Expense, error) {
	id := s.idGen.Generate()
	now := s.timeSource.Now()

	compressed, compressedType, err := scanning.CompressImage(data, contentType)
	if err != nil {
		return nil, fmt.Errorf("compressing receipt image: %w", err)
	}

	savedPath, err := s.files.Save(id+".jpg", compressed)
	if err != nil {
		return nil, fmt.Errorf("saving receipt image: %w", err)
	}

	date, err := time.Parse("2006-01-02", rec.Date)
	if err != nil {
		date = now
	}

	cat := rec.Category
	if !category.Valid(cat) {
		descriptions := make([]string, len(rec.Items))
		for i, item := range rec.Items {
			descriptions[i] = item.Description
		}
		cat = string(category.Detect(rec.Vendor, descriptions))
	}

	exp := &Expense{
		ID:          id,
		Title:       fmt.Sprintf("%s Receipt", rec.Vendor),
		Amount:      rec.Total,
		Date:        date,
		Category:    cat,
		Vendor:      rec.Vendor,
		Status:      StatusPending,
		ReceiptPath: savedPath,
		ContentType: compressedType,
		Currency:    rec.Currency,
		IsEdited:    false,
		Items:       rec.Items,
		TaxAmount:   rec.TaxAmount,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.Save(exp); err != nil {
		s.files.Delete(savedPath)
		return nil, fmt.Errorf("saving expense: %w", err)
	}

	return exp, nil
}

// GetExpense retrieves an expense by ID
func (s *Service) GetExpense(id string) (*Expense, error) {
	exp, err := s.store.Get(id)
	if err != nil {
		return nil, fmt.Errorf("getting expense: %w", err)
	}
	return exp, nil
}

// ListExpenses returns all expenses in creation order
func (s *Service) ListExpenses() ([]*Expense, error) {
	expenses, err := s.store.List()
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}
	return expenses, nil
}

// UpdateExpense merges a partial update over an existing expense. The
// id is preserved and the record is marked edited.
func (s *Service) UpdateExpense(id string, upd Update) (*Expense, error) {
	exp, err := s.store.Get(id)
	if err != nil {
		return nil, fmt.Errorf("getting expense for update: %w", err)
	}

	if upd.Title != nil {
		exp.Title = *upd.Title
	}
	if upd.Amount != nil {
		exp.Amount = *upd.Amount
	}
	if upd.Date != nil {
		exp.Date = *upd.Date
	}
	if upd.Category != nil {
		exp.Category = *upd.Category
	}
	if upd.Vendor != nil {
		exp.Vendor = *upd.Vendor
	}
	if upd.Status != nil {
		exp.Status = *upd.Status
	}
	if upd.Currency != nil {
		exp.Currency = *upd.Currency
	}
	if upd.TaxAmount != nil {
		exp.TaxAmount = *upd.TaxAmount
	}
	if upd.Items != nil {
		exp.Items = *upd.Items
	}
	exp.IsEdited = true
	exp.UpdatedAt = s.timeSource.Now()

	if err := s.store.Save(exp); err != nil {
		return nil, fmt.Errorf("saving updated expense: %w", err)
	}
	return exp, nil
}

// DeleteExpense removes an expense and its receipt image. Returns
// false when the id is unknown.
func (s *Service) DeleteExpense(id string) (bool, error) {
	exp, err := s.store.Get(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("getting expense for deletion: %w", err)
	}

	if exp.ReceiptPath != "" {
		if err := s.files.Delete(exp.ReceiptPath); err != nil {
			slog.Warn("Failed to delete receipt image", "path", exp.ReceiptPath, "error", err)
		}
	}

	if err := s.store.Delete(id); err != nil {
		return false, fmt.Errorf("deleting expense: %w", err)
	}
	return true, nil
}

// GetReceiptImage retrieves the stored display copy for an expense.
func (s *Service) GetReceiptImage(id string) ([]byte, string, error) {
	exp, err := s.store.Get(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting expense: %w", err)
	}

	data, err := s.files.Get(exp.ReceiptPath)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt image: %w", err)
	}
	return data, exp.ContentType, nil
}

// Summary aggregates total spend, tax and per-category totals.
func (s *Service) Summary() (*Summary, error) {
	expenses, err := s.store.List()
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}

	sum := &Summary{Currency: "USD", ByCategory: make(map[string]float64)}
	for i, exp := range expenses {
		if i == 0 && exp.Currency != "" {
			sum.Currency = exp.Currency
		}
		sum.Total += exp.Amount
		sum.TotalTax += exp.TaxAmount
		sum.Count++
		sum.ByCategory[exp.Category] += exp.Amount
	}
	sum.FormattedTotal = money.Format(sum.Total, sum.Currency)
	sum.FormattedTax = money.Format(sum.TotalTax, sum.Currency)
	return sum, nil
}

// RecentExpenses returns the n newest expenses by date.
func (s *Service) RecentExpenses(n int) ([]*Expense, error) {
	expenses, err := s.store.List()
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}

	sort.SliceStable(expenses, func(i, j int) bool {
		return expenses[i].Date.After(expenses[j].Date)
	})
	if n > 0 && len(expenses) > n {
		expenses = expenses[:n]
	}
	return expenses, nil
}
