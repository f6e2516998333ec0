package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agenthands/cogniscan/internal/dataset"
	"github.com/agenthands/cogniscan/internal/model"
)

// trainResponse accepts both the snake_case trainer output and the camelCase
// result schema.
type trainResponse struct {
	ID             string                        `json:"id"`
	Status         string                        `json:"status"`
	Models         map[string]model.ModelMetrics `json:"models"`
	BestModel      string                        `json:"bestModel"`
	BestModelSnake string                        `json:"best_model"`
	ErrorMessage   string                        `json:"errorMessage"`
}

// Train uploads a labelled dataset and returns per-model metrics.
func (c *Client) Train(ctx context.Context, src dataset.Source) (*model.TrainingResult, error) {
	body, contentType, err := multipartBody(src, nil)
	if err != nil {
		return nil, err
	}
	raw, err := c.do(ctx, request{
		path:        "/train",
		contentType: contentType,
		body:        body,
		fallback:    "Failed to train models.",
	})
	if err != nil {
		return nil, err
	}

	var tr trainResponse
	if err := json.Unmarshal(unwrapData(raw), &tr); err != nil {
		return nil, fmt.Errorf("decode training result: %w", err)
	}
	result := &model.TrainingResult{
		ID:           tr.ID,
		Filename:     src.Name(),
		Status:       model.TrainingCompleted,
		Models:       tr.Models,
		BestModel:    tr.BestModel,
		ErrorMessage: tr.ErrorMessage,
	}
	if result.BestModel == "" {
		result.BestModel = tr.BestModelSnake
	}
	switch model.TrainingStatus(tr.Status) {
	case model.TrainingProcessing, model.TrainingFailed:
		result.Status = model.TrainingStatus(tr.Status)
	}
	return result, nil
}

// PredictBatch classifies every row of src with modelName.
func (c *Client) PredictBatch(ctx context.Context, src dataset.Source, modelName string) ([]model.PredictionRecord, error) {
	body, contentType, err := multipartBody(src, map[string]string{"modelName": modelName})
	if err != nil {
		return nil, err
	}
	raw, err := c.do(ctx, request{
		path:        "/predict/batch",
		contentType: contentType,
		body:        body,
		fallback:    "Failed to make predictions.",
	})
	if err != nil {
		return nil, err
	}

	var records []model.PredictionRecord
	if err := json.Unmarshal(unwrapData(raw), &records); err != nil {
		return nil, fmt.Errorf("decode predictions: %w", err)
	}
	return records, nil
}

type singleRequest struct {
	model.PatientAttributes
	ModelName string `json:"modelName,omitempty"`
}

// PredictSingle classifies one patient. The backend answers either with the
// record wrapped in a data member or with the bare record; both decode to the
// same value.
func (c *Client) PredictSingle(ctx context.Context, patient model.PatientAttributes, modelName string) (model.PredictionRecord, error) {
	body, err := json.Marshal(singleRequest{PatientAttributes: patient, ModelName: modelName})
	if err != nil {
		return model.PredictionRecord{}, fmt.Errorf("encode patient: %w", err)
	}
	raw, err := c.do(ctx, request{
		path:        "/predict/single",
		contentType: "application/json",
		body:        body,
		fallback:    "Failed to make prediction.",
	})
	if err != nil {
		return model.PredictionRecord{}, err
	}

	var record model.PredictionRecord
	if err := json.Unmarshal(unwrapData(raw), &record); err != nil {
		return model.PredictionRecord{}, fmt.Errorf("decode prediction: %w", err)
	}
	return record, nil
}

// GenerateVisualization renders one chart kind for src.
func (c *Client) GenerateVisualization(ctx context.Context, kind string, src dataset.Source, modelName string) (model.VisualPayload, error) {
	body, contentType, err := multipartBody(src, map[string]string{"modelName": modelName})
	if err != nil {
		return model.VisualPayload{}, err
	}
	raw, err := c.do(ctx, request{
		path:        visualizationPath(kind),
		contentType: contentType,
		body:        body,
		fallback:    "Failed to generate visualizations.",
	})
	if err != nil {
		return model.VisualPayload{}, err
	}

	var payload model.VisualPayload
	if err := json.Unmarshal(unwrapData(raw), &payload); err != nil {
		return model.VisualPayload{}, fmt.Errorf("decode visualization: %w", err)
	}
	if payload.ImageData == "" {
		return model.VisualPayload{}, fmt.Errorf("visualization %s: empty image", kind)
	}
	return payload, nil
}
