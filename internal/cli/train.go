package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/agenthands/cogniscan/internal/dataset"
	"github.com/agenthands/cogniscan/internal/model"
	"github.com/agenthands/cogniscan/internal/pipeline"
)

var trainCmd = &cobra.Command{
	Use:   "train FILE",
	Short: "Train the candidate models on a labelled dataset",
	Long: `Upload a dataset that carries NACCUDSD and train every candidate model.

The best model is recorded and used for later predictions.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := NewAppContext(ctx)
		if err != nil {
			return err
		}
		defer app.Close(context.WithoutCancel(ctx))

		src, err := dataset.NewFileSource(args[0])
		if err != nil {
			return err
		}
		if err := app.SignIn(ctx); err != nil {
			return err
		}
		sess, _ := app.Provider.Store().Current()
		trainer := pipeline.NewTrainer(app.Client, app.Docs, app.Validator, app.Logger, nil)
		return runTrain(ctx, cmd.OutOrStdout(), trainer, sess.UserID, src)
	},
}

func init() {
	rootCmd.AddCommand(trainCmd)
}

func runTrain(ctx context.Context, w io.Writer, trainer *pipeline.Trainer, userID string, src dataset.Source) error {
	res, err := trainer.Submit(ctx, userID, src)
	if n, ok := trainer.TakeNotice(); ok {
		printNotice(w, n)
	}
	if err != nil {
		return err
	}
	if res.Status == model.TrainingFailed {
		return fmt.Errorf("training failed: %s", res.ErrorMessage)
	}
	fmt.Fprintln(w, renderTraining(res))
	return nil
}
