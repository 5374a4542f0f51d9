package api

import "math"

// Label is the classifier's categorical verdict.
type Label string

const (
	LabelSafe     Label = "Safe"
	LabelSpam     Label = "Spam"
	LabelPhishing Label = "Phishing"
)

// Valid reports whether l is one of the labels the classifier is allowed to return.
func (l Label) Valid() bool {
	switch l {
	case LabelSafe, LabelSpam, LabelPhishing:
		return true
	}
	return false
}

// PredictionRequest is the body of POST /api/predict.
type PredictionRequest struct {
	EmailText string `json:"email_text"`
}

// PredictionResponse is the classifier's answer for one email.
type PredictionResponse struct {
	Prediction Label   `json:"prediction"`
	Confidence float64 `json:"confidence"`
	Message    string  `json:"message"`
}

// ConfidencePercent is the confidence rounded to a whole percentage.
func (r PredictionResponse) ConfidencePercent() int {
	return int(math.Round(r.Confidence * 100))
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Message     string `json:"message"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}
