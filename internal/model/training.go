package model

import "time"

type TrainingStatus string

const (
	TrainingProcessing TrainingStatus = "processing"
	TrainingCompleted  TrainingStatus = "completed"
	TrainingFailed     TrainingStatus = "failed"
)

// DefaultModelName is used when no trained model has been recorded yet.
const DefaultModelName = "decisionTree"

type ModelMetrics struct {
	F1Score   float64 `json:"f1Score"`
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
}

type TrainingResult struct {
	ID           string                  `json:"id,omitempty"`
	UserID       string                  `json:"userId,omitempty"`
	Filename     string                  `json:"filename,omitempty"`
	Status       TrainingStatus          `json:"status"`
	Models       map[string]ModelMetrics `json:"models"`
	BestModel    string                  `json:"bestModel"`
	ErrorMessage string                  `json:"errorMessage,omitempty"`
}

// ModelRecord is the document written after a training run; the most recent one
// selects the model used for inference.
type ModelRecord struct {
	BestModel string    `json:"bestModel"`
	UserID    string    `json:"userId"`
	Filename  string    `json:"filename"`
	Timestamp time.Time `json:"timestamp"`
}
