package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agenthands/cogniscan/internal/dataset"
	"github.com/agenthands/cogniscan/internal/model"
)

var validateCmd = &cobra.Command{
	Use:   "validate FILE",
	Short: "Check a dataset's file type, size and required columns",
	Long: `Check a CSV dataset without sending it anywhere.

Examples:
  cogniscan validate patients.csv             # Columns needed for prediction
  cogniscan validate --training cohort.csv    # Also require NACCUDSD`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := dataset.NewFileSource(args[0])
		if err != nil {
			return err
		}
		mode := dataset.ModeInference
		if validateTraining {
			mode = dataset.ModeTraining
		}
		return runValidate(cmd.OutOrStdout(), dataset.NewValidator(dataset.DefaultPreviewRows), src, mode)
	},
}

var validateTraining bool

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().BoolVar(&validateTraining, "training", false, "Validate for training (requires NACCUDSD)")
}

// runValidate reports the outcome on w and returns an error when the dataset
// cannot be submitted.
func runValidate(w io.Writer, v *dataset.Validator, src dataset.Source, mode dataset.Mode) error {
	if err := dataset.CheckSelection(src); err != nil {
		printNotice(w, model.Notice{Level: model.NoticeError, Title: "Validation Error", Text: err.Error()})
		return err
	}
	missing, err := v.Missing(src, mode)
	if err != nil {
		printNotice(w, model.Notice{Level: model.NoticeError, Title: "Validation Error", Text: err.Error()})
		return err
	}
	if len(missing) > 0 {
		printNotice(w, model.Notice{
			Level: model.NoticeError,
			Title: "Invalid file format",
			Text:  "Missing required fields: " + strings.Join(missing, ", "),
		})
		return fmt.Errorf("%s is missing %d required fields", src.Name(), len(missing))
	}
	printNotice(w, model.Notice{Level: model.NoticeSuccess, Title: "Valid", Text: fmt.Sprintf("%s is ready for %s", src.Name(), mode)})
	return nil
}
