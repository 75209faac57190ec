package insight

import "time"

// Timeframe selects the analysis window for insight and anomaly
// requests.
type Timeframe string

const (
	Week    Timeframe = "week"
	Month   Timeframe = "month"
	Quarter Timeframe = "quarter"
	Year    Timeframe = "year"
)

// ValidForInsights reports whether t is accepted by AnalyzeExpenses.
func (t Timeframe) ValidForInsights() bool {
	switch t {
	case Week, Month, Quarter, Year:
		return true
	}
	return false
}

// ValidForAnomalies reports whether t is accepted by DetectAnomalies.
// Anomaly detection only works over short windows.
func (t Timeframe) ValidForAnomalies() bool {
	return t == Week || t == Month
}

// Response statuses. Unavailable means the provider was missing or
// failed; OK with empty results means the provider genuinely found
// nothing.
const (
	StatusOK          = "ok"
	StatusUnavailable = "unavailable"
)

// ExpenseDatum is the slice of an expense sent to the model.
type ExpenseDatum struct {
	Amount   float64   `json:"amount"`
	Category string    `json:"category"`
	Merchant string    `json:"merchant"`
	Date     time.Time `json:"date"`
}

// Insight is a single spending observation produced by the model.
type Insight struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Type        string  `json:"type"` // spending | savings | trend
	Confidence  float64 `json:"confidence"`
}

// InsightResponse is the result of an insight analysis. Status is
// always set; Insights may be empty.
type InsightResponse struct {
	Status   string    `json:"status"`
	Summary  string    `json:"summary"`
	Insights []Insight `json:"insights"`
}

// Anomaly is a single suspicious activity flagged by the model.
type Anomaly struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Merchant    string    `json:"merchant"`
	Date        time.Time `json:"date"`
	Type        string    `json:"type"` // duplicate | unusual_amount | unusual_merchant | unusual_time
	Confidence  float64   `json:"confidence"`
}

// AnomalyResponse is the result of anomaly detection. Status is always
// set; Activities may be empty.
type AnomalyResponse struct {
	Status     string    `json:"status"`
	Activities []Anomaly `json:"activities"`
}

// Analyzer produces insights and anomalies from expense data. Both
// methods always return a usable response: provider failures are
// absorbed here and surface only through the Status field, never as an
// error.
type Analyzer interface {
	AnalyzeExpenses(expenses []ExpenseDatum, timeframe Timeframe) *InsightResponse
	DetectAnomalies(expenses []ExpenseDatum, timeframe Timeframe) *AnomalyResponse
	Close() error
}

// emptyInsights is the fallback insight response.
func emptyInsights(status string) *InsightResponse {
	return &InsightResponse{
		Status:   status,
		Summary:  "No insights available",
		Insights: []Insight{},
	}
}

// emptyAnomalies is the fallback anomaly response.
func emptyAnomalies(status string) *AnomalyResponse {
	return &AnomalyResponse{
		Status:     status,
		Activities: []Anomaly{},
	}
}

// Noop is the Analyzer used when no AI credential is configured. Every
// call reports unavailable.
type Noop struct{}

func (Noop) AnalyzeExpenses([]ExpenseDatum, Timeframe) *InsightResponse {
	return emptyInsights(StatusUnavailable)
}

func (Noop) DetectAnomalies([]ExpenseDatum, Timeframe) *AnomalyResponse {
	return emptyAnomalies(StatusUnavailable)
}

func (Noop) Close() error { return nil }
