package scanning

import "errors"

// ErrExtraction indicates that the model response could not be turned
// into a usable receipt: no JSON found, JSON that does not parse, or an
// extraction that produced nothing (no total, no line items).
var ErrExtraction = errors.New("failed to extract receipt data")

// ErrUnavailable indicates that no scanning provider is configured.
var ErrUnavailable = errors.New("receipt scanning is not available")

// Item is a single line item on a receipt.
type Item struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	TotalPrice  float64 `json:"totalPrice"`
}

// Receipt contains the reconciled information extracted from a receipt
// image. Items are kept in receipt line order. Discrepancy records any
// items-vs-total gap that reconciliation could not repair; zero when the
// receipt is consistent.
type Receipt struct {
	Vendor      string  `json:"vendor"`
	Date        string  `json:"date"` // ISO 8601 (YYYY-MM-DD)
	Total       float64 `json:"total"`
	Currency    string  `json:"currency"`
	TaxAmount   float64 `json:"taxAmount"`
	Items       []Item  `json:"items"`
	Category    string  `json:"category,omitempty"`
	Discrepancy float64 `json:"discrepancy,omitempty"`
}

// Scanner defines the interface for receipt scanning providers.
type Scanner interface {
	// ScanReceipt analyzes a receipt image/PDF and extracts a reconciled receipt
	ScanReceipt(imageData []byte, contentType string) (*Receipt, error)
	// Close closes the scanner and releases resources
	Close() error
}

// Disabled is the Scanner used when no AI credential is configured.
// Every scan fails with ErrUnavailable so the feature degrades instead
// of the process refusing to start.
type Disabled struct{}

func (Disabled) ScanReceipt([]byte, string) (*Receipt, error) {
	return nil, ErrUnavailable
}

func (Disabled) Close() error { return nil }
