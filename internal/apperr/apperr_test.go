package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agenthands/cogniscan/internal/model"
)

func TestUserMessage_PrefersServerMessage(t *testing.T) {
	err := fmt.Errorf("predict: %w", &RemoteRequestError{Endpoint: "/predict/batch", Status: 400, Message: "Missing column AGE"})
	assert.Equal(t, "Missing column AGE", UserMessage(err))
	assert.Equal(t, model.NoticeError, Severity(err))
}

func TestPartialFailureIsWarning(t *testing.T) {
	err := &PartialFailure{Operation: "visualizations", Errs: []error{errors.New("boom")}}
	assert.Equal(t, model.NoticeWarning, Severity(err))
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, "Some visualizations could not be generated.", UserMessage(err))
}

func TestParseErrorUnwraps(t *testing.T) {
	inner := errors.New("bare quote")
	err := &ParseError{File: "a.csv", Err: inner}
	assert.ErrorIs(t, err, inner)
}

func TestNilIsSuccess(t *testing.T) {
	assert.Equal(t, model.NoticeSuccess, Severity(nil))
	assert.Empty(t, UserMessage(nil))
}
