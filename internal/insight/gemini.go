package insight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// errNotImplemented marks the generation paths that are wired to the
// client but not yet sent to the model.
var errNotImplemented = errors.New("model analysis not yet implemented")

// Gemini implements Analyzer against the Gemini API. The request
// shaping is in place; the generation calls themselves are not yet
// implemented, so every call currently takes the fallback path.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini Analyzer instance.
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

// AnalyzeExpenses requests spending insights for the given timeframe.
// Provider failures degrade to an empty unavailable response.
func (g *Gemini) AnalyzeExpenses(expenses []ExpenseDatum, timeframe Timeframe) *InsightResponse {
	resp, err := g.generateInsights(expenses, timeframe)
	if err != nil {
		slog.Error("Error analyzing expenses", "timeframe", timeframe, "error", err)
		return emptyInsights(StatusUnavailable)
	}
	resp.Status = StatusOK
	return resp
}

// DetectAnomalies requests suspicious-activity detection for the given
// timeframe. Provider failures degrade to an empty unavailable
// response.
func (g *Gemini) DetectAnomalies(expenses []ExpenseDatum, timeframe Timeframe) *AnomalyResponse {
	resp, err := g.generateAnomalies(expenses, timeframe)
	if err != nil {
		slog.Error("Error detecting anomalies", "timeframe", timeframe, "error", err)
		return emptyAnomalies(StatusUnavailable)
	}
	resp.Status = StatusOK
	return resp
}

func (g *Gemini) generateInsights(expenses []ExpenseDatum, timeframe Timeframe) (*InsightResponse, error) {
	if _, err := buildPayload(expenses, timeframe); err != nil {
		return nil, err
	}
	// TODO: send the payload through g.model.GenerateContent and parse
	// the structured insight list out of the response.
	return nil, errNotImplemented
}

func (g *Gemini) generateAnomalies(expenses []ExpenseDatum, timeframe Timeframe) (*AnomalyResponse, error) {
	if _, err := buildPayload(expenses, timeframe); err != nil {
		return nil, err
	}
	// TODO: send the payload through g.model.GenerateContent and parse
	// the flagged activities out of the response.
	return nil, errNotImplemented
}

// buildPayload serializes the request the model will receive.
func buildPayload(expenses []ExpenseDatum, timeframe Timeframe) (string, error) {
	body, err := json.Marshal(struct {
		Expenses  []ExpenseDatum `json:"expenses"`
		Timeframe Timeframe      `json:"timeframe"`
	}{expenses, timeframe})
	if err != nil {
		return "", fmt.Errorf("marshaling analysis payload: %w", err)
	}
	return string(body), nil
}

// Close closes the Gemini client.
func (g *Gemini) Close() error {
	return g.client.Close()
}
