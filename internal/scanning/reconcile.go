package scanning

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/zombor/expense-tracker/internal/category"
)

// totalTolerance is the allowed gap between the summed line items and
// the receipt total before the repair step kicks in.
const totalTolerance = 0.01

// flexFloat unmarshals a numeric field that the model may emit as a
// JSON number, a quoted number ("12.50", "$12.50"), or null. Anything
// unparseable coerces to zero rather than failing the whole receipt.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	s = strings.TrimSpace(strings.TrimLeft(s, "$€£¥"))
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}

type rawItem struct {
	Description string     `json:"description"`
	Quantity    *flexFloat `json:"quantity"`
	UnitPrice   *flexFloat `json:"unitPrice"`
	TotalPrice  *flexFloat `json:"totalPrice"`
}

type rawReceipt struct {
	Vendor    string    `json:"vendor"`
	Date      string    `json:"date"`
	Total     flexFloat `json:"total"`
	Currency  string    `json:"currency"`
	TaxAmount flexFloat `json:"taxAmount"`
	Items     []rawItem `json:"items"`
	Category  string    `json:"category"`
}

// parseReceiptJSON runs the full reconciliation pipeline on a model
// response: locate the JSON object, coerce types, fill defaults, assign
// a category, validate, and repair the line item totals.
func parseReceiptJSON(text string) (*Receipt, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	// The model is asked for bare JSON but often wraps it in prose, so
	// take the first { through the last }.
	startIdx := strings.Index(text, "{")
	endIdx := strings.LastIndex(text, "}")
	if startIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("%w: no JSON object found in response", ErrExtraction)
	}
	text = text[startIdx : endIdx+1]

	var raw rawReceipt
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("%w: unmarshaling json: %v", ErrExtraction, err)
	}

	return reconcile(&raw)
}

// reconcile turns a coerced raw receipt into a fully populated Receipt.
func reconcile(raw *rawReceipt) (*Receipt, error) {
	rec := &Receipt{
		Vendor:    strings.TrimSpace(raw.Vendor),
		Date:      normalizeDate(raw.Date),
		Total:     float64(raw.Total),
		Currency:  strings.TrimSpace(raw.Currency),
		TaxAmount: float64(raw.TaxAmount),
		Items:     make([]Item, 0, len(raw.Items)),
	}
	if rec.Vendor == "" {
		rec.Vendor = "Unknown Vendor"
	}
	if rec.Currency == "" {
		rec.Currency = "USD"
	}

	for _, ri := range raw.Items {
		item := Item{
			Description: strings.TrimSpace(ri.Description),
			Quantity:    1,
		}
		if item.Description == "" {
			item.Description = "Unknown Item"
		}
		if ri.Quantity != nil && *ri.Quantity > 0 {
			item.Quantity = float64(*ri.Quantity)
		}
		if ri.TotalPrice != nil {
			item.TotalPrice = float64(*ri.TotalPrice)
		}
		if ri.UnitPrice != nil && *ri.UnitPrice != 0 {
			item.UnitPrice = float64(*ri.UnitPrice)
		} else {
			item.UnitPrice = item.TotalPrice / item.Quantity
		}
		rec.Items = append(rec.Items, item)
	}

	rec.Category = strings.TrimSpace(raw.Category)
	if !category.Valid(rec.Category) {
		descriptions := make([]string, len(rec.Items))
		for i, item := range rec.Items {
			descriptions[i] = item.Description
		}
		rec.Category = string(category.Detect(rec.Vendor, descriptions))
	}

	// Nothing usable came back: no total and no line items.
	if rec.Total == 0 && len(rec.Items) == 0 {
		return nil, fmt.Errorf("%w: no total or line items extracted", ErrExtraction)
	}

	reconcileTotals(rec)
	return rec, nil
}

// reconcileTotals enforces that the line items sum to the receipt
// total. When they differ beyond tolerance the last item absorbs the
// difference, but only when the adjusted price stays positive; a repair
// that would need a negative price is skipped and the gap is recorded
// in Discrepancy instead. Running this on a consistent receipt is a
// no-op.
func reconcileTotals(rec *Receipt) {
	rec.Discrepancy = 0
	if len(rec.Items) == 0 {
		return
	}

	var itemsTotal float64
	for _, item := range rec.Items {
		itemsTotal += item.TotalPrice
	}
	if math.Abs(itemsTotal-rec.Total) <= totalTolerance {
		return
	}

	last := &rec.Items[len(rec.Items)-1]
	adjusted := rec.Total - (itemsTotal - last.TotalPrice)
	if adjusted > 0 {
		last.TotalPrice = adjusted
		last.UnitPrice = adjusted / last.Quantity
		return
	}
	rec.Discrepancy = itemsTotal - rec.Total
}

// dateFormats are the layouts accepted from the model, tried in order.
var dateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02-01-2006",
}

// normalizeDate converts a model-supplied date to YYYY-MM-DD, falling
// back to today when the value is missing or unparseable.
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range dateFormats {
		if d, err := time.Parse(layout, s); err == nil {
			return d.Format("2006-01-02")
		}
	}
	return time.Now().Format("2006-01-02")
}
