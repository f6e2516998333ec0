// Package dataset gates uploads before they reach the backend: a synchronous
// selection check and an advisory header check over a preview of the file.
package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/agenthands/cogniscan/internal/apperr"
)

type Mode int

const (
	ModeInference Mode = iota
	ModeTraining
)

func (m Mode) String() string {
	if m == ModeTraining {
		return "training"
	}
	return "inference"
}

const (
	MaxFileSize = 10 * 1024 * 1024

	// DefaultPreviewRows is how many data records are read after the header.
	DefaultPreviewRows = 5

	TargetField = "NACCUDSD"
)

var inferenceFields = []string{
	"BIRTHYR", "SEX", "EDUC", "UDSBENTC", "MOCATRAI",
	"AMNDEM", "NACCPPAG", "AMYLPET", "DYSILL", "DYSILLIF",
}

// RequiredFields returns the header names a file must carry for mode.
func RequiredFields(mode Mode) []string {
	fields := make([]string, len(inferenceFields), len(inferenceFields)+1)
	copy(fields, inferenceFields)
	if mode == ModeTraining {
		fields = append(fields, TargetField)
	}
	return fields
}

// CheckSelection applies the selection-time rules: .csv extension and the size
// ceiling. It does not read the file.
func CheckSelection(src Source) error {
	if src == nil {
		return &apperr.ValidationError{Field: "file", Message: "Please select a file"}
	}
	if !strings.EqualFold(filepath.Ext(src.Name()), ".csv") {
		return &apperr.ValidationError{Field: "file", Message: "Please upload a CSV file"}
	}
	if src.Size() > MaxFileSize {
		return &apperr.ValidationError{Field: "file", Message: "File size must be less than 10MB"}
	}
	return nil
}

// Validator checks headers over a bounded preview.
type Validator struct {
	PreviewRows int
}

func NewValidator(previewRows int) *Validator {
	if previewRows <= 0 {
		previewRows = DefaultPreviewRows
	}
	return &Validator{PreviewRows: previewRows}
}

// Validate reports whether every required field for mode is in the header.
// Malformed input yields a *apperr.ParseError rather than false.
func (v *Validator) Validate(src Source, mode Mode) (bool, error) {
	missing, err := v.Missing(src, mode)
	if err != nil {
		return false, err
	}
	return len(missing) == 0, nil
}

// Missing returns the required fields absent from the header, in canonical order.
func (v *Validator) Missing(src Source, mode Mode) ([]string, error) {
	header, err := v.readHeader(src)
	if err != nil {
		return nil, err
	}
	present := make(map[string]struct{}, len(header))
	for _, name := range header {
		present[name] = struct{}{}
	}
	var missing []string
	for _, field := range RequiredFields(mode) {
		if _, ok := present[field]; !ok {
			missing = append(missing, field)
		}
	}
	return missing, nil
}

func (v *Validator) readHeader(src Source) ([]string, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, &apperr.ParseError{File: src.Name(), Err: err}
	}
	defer rc.Close()

	r := csv.NewReader(bufio.NewReader(rc))
	r.ReuseRecord = false

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, &apperr.ParseError{File: src.Name(), Err: errors.New("file is empty")}
	}
	if err != nil {
		return nil, &apperr.ParseError{File: src.Name(), Err: err}
	}

	// The preview rows only prove the file is well-formed near the top.
	for i := 0; i < v.PreviewRows; i++ {
		if _, err := r.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &apperr.ParseError{File: src.Name(), Err: fmt.Errorf("record %d: %w", i+1, err)}
		}
	}
	return header, nil
}
