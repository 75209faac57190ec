package expense

import (
	"time"

	"github.com/zombor/expense-tracker/internal/scanning"
)

// Status tracks where an expense is in its lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessed  Status = "processed"
	StatusReimbursed Status = "reimbursed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessed, StatusReimbursed:
		return true
	}
	return false
}

// Expense is a confirmed receipt stored as an expense record.
type Expense struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Amount      float64         `json:"amount"`
	Date        time.Time       `json:"date"`
	Category    string          `json:"category"`
	Vendor      string          `json:"vendor"`
	Status      Status          `json:"status"`
	ReceiptPath string          `json:"receipt_path,omitempty"`
	ContentType string          `json:"content_type,omitempty"`
	Currency    string          `json:"currency"`
	IsEdited    bool            `json:"is_edited"`
	Items       []scanning.Item `json:"items"`
	TaxAmount   float64         `json:"tax_amount"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Update carries the fields of a partial expense update. Nil fields are
// left unchanged.
type Update struct {
	Title     *string          `json:"title,omitempty"`
	Amount    *float64         `json:"amount,omitempty"`
	Date      *time.Time       `json:"date,omitempty"`
	Category  *string          `json:"category,omitempty"`
	Vendor    *string          `json:"vendor,omitempty"`
	Status    *Status          `json:"status,omitempty"`
	Currency  *string          `json:"currency,omitempty"`
	TaxAmount *float64         `json:"tax_amount,omitempty"`
	Items     *[]scanning.Item `json:"items,omitempty"`
}

// Summary aggregates the stored expenses for the reports and tax views.
// The formatted fields render the totals in the summary currency, which
// is the currency of the first stored expense.
type Summary struct {
	Total          float64            `json:"total"`
	TotalTax       float64            `json:"total_tax"`
	Count          int                `json:"count"`
	Currency       string             `json:"currency"`
	FormattedTotal string             `json:"formatted_total"`
	FormattedTax   string             `json:"formatted_tax"`
	ByCategory     map[string]float64 `json:"by_category"`
}
