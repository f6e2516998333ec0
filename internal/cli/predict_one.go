package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agenthands/cogniscan/internal/apperr"
	"github.com/agenthands/cogniscan/internal/model"
	"github.com/agenthands/cogniscan/internal/pipeline"
)

var predictOneCmd = &cobra.Command{
	Use:   "predict-one KEY=VALUE...",
	Short: "Predict the diagnosis of a single patient",
	Long: `Classify one patient from attributes given on the command line.

Every attribute except NACCID is a whole number.

Example:
  cogniscan predict-one NACCID=P001 BIRTHYR=1950 SEX=2 EDUC=16 UDSBENTC=12 \
    MOCATRAI=5 AMNDEM=0 NACCPPAG=0 AMYLPET=0 DYSILL=0 DYSILLIF=0`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patient, err := parsePatient(args)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		app, err := NewAppContext(ctx)
		if err != nil {
			return err
		}
		defer app.Close(context.WithoutCancel(ctx))
		if err := app.SignIn(ctx); err != nil {
			return err
		}
		return runPredictOne(ctx, cmd.OutOrStdout(), pipeline.NewSinglePredictor(app.Client, app.Docs), patient)
	},
}

func init() {
	rootCmd.AddCommand(predictOneCmd)
}

// parsePatient reads KEY=VALUE pairs into the patient schema. Keys are the
// dataset column names and are matched case-insensitively.
func parsePatient(args []string) (model.PatientAttributes, error) {
	fields := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return model.PatientAttributes{}, apperr.Validation(fmt.Sprintf("expected KEY=VALUE, got %q", arg))
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if key == "NACCID" {
			fields[key] = value
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return model.PatientAttributes{}, apperr.Validation(fmt.Sprintf("%s must be a whole number", key))
		}
		fields[key] = n
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return model.PatientAttributes{}, err
	}
	var patient model.PatientAttributes
	if err := json.Unmarshal(raw, &patient); err != nil {
		return model.PatientAttributes{}, err
	}
	return patient, nil
}

func runPredictOne(ctx context.Context, w io.Writer, predictor *pipeline.SinglePredictor, patient model.PatientAttributes) error {
	rec, err := predictor.Predict(ctx, patient)
	if err != nil {
		printNotice(w, apperr.Notice("Prediction Failed", err))
		return err
	}
	printNotice(w, model.Notice{
		Level: model.NoticeSuccess,
		Title: "Prediction Completed",
		Text:  "Predicted class: " + model.ClassLabel(rec.ClassLabel),
	})
	t := newTable("Patient ID", "Prediction", "Age", "Sex")
	t.Row(rec.PatientID, model.ClassLabel(rec.ClassLabel), optional(rec.Age), sexLabel(rec.Sex))
	fmt.Fprintln(w, t.String())
	return nil
}
