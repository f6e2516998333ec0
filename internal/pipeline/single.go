package pipeline

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/agenthands/cogniscan/internal/apperr"
	"github.com/agenthands/cogniscan/internal/docstore"
	"github.com/agenthands/cogniscan/internal/model"
)

type SingleBackend interface {
	PredictSingle(ctx context.Context, patient model.PatientAttributes, modelName string) (model.PredictionRecord, error)
}

// SinglePredictor classifies one patient entered by hand.
type SinglePredictor struct {
	backend  SingleBackend
	models   docstore.ModelReader
	validate *validator.Validate
}

func NewSinglePredictor(backend SingleBackend, models docstore.ModelReader) *SinglePredictor {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &SinglePredictor{backend: backend, models: models, validate: v}
}

// Predict validates patient and sends it with the current best model.
func (s *SinglePredictor) Predict(ctx context.Context, patient model.PatientAttributes) (model.PredictionRecord, error) {
	if err := s.Validate(patient); err != nil {
		return model.PredictionRecord{}, err
	}
	return s.backend.PredictSingle(ctx, patient, docstore.BestModel(ctx, s.models))
}

// Validate reports the first out-of-range attribute as a ValidationError.
func (s *SinglePredictor) Validate(patient model.PatientAttributes) error {
	err := s.validate.Struct(patient)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return &apperr.ValidationError{Field: fe.Field(), Message: fieldMessage(fe)}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
