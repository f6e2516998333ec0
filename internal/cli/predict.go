package cli

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agenthands/cogniscan/internal/dataset"
	"github.com/agenthands/cogniscan/internal/model"
	"github.com/agenthands/cogniscan/internal/pipeline"
	"github.com/agenthands/cogniscan/internal/results"
	"github.com/agenthands/cogniscan/internal/visuals"
)

var predictCmd = &cobra.Command{
	Use:   "predict FILE",
	Short: "Predict diagnoses for every patient in a dataset",
	Long: `Validate a dataset, send it for batch prediction and print the results.

Examples:
  cogniscan predict patients.csv                       # First page of results
  cogniscan predict patients.csv --page 3              # Third page
  cogniscan predict patients.csv --visualize --out viz # Also save the charts`,
	Args: cobra.ExactArgs(1),
	RunE: runPredictCmd,
}

var (
	predictPage      int
	predictPageSize  int
	predictVisualize bool
	predictOutDir    string
)

func init() {
	rootCmd.AddCommand(predictCmd)
	predictCmd.Flags().IntVar(&predictPage, "page", 1, "Results page to print")
	predictCmd.Flags().IntVar(&predictPageSize, "page-size", 0, "Rows per page (default from config)")
	predictCmd.Flags().BoolVar(&predictVisualize, "visualize", false, "Generate visualizations")
	predictCmd.Flags().StringVar(&predictOutDir, "out", "visualizations", "Directory for visualization images")
}

func runPredictCmd(cmd *cobra.Command, args []string) error {
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

	registry := visuals.NewRegistry()
	pipe := pipeline.New(app.Client, app.Docs, registry,
		pipeline.WithValidator(app.Validator),
		pipeline.WithLogger(app.Logger),
	)
	defer pipe.Close()

	pageSize := predictPageSize
	if pageSize <= 0 {
		pageSize = app.Config.Results.PageSize
	}
	return runPredict(ctx, cmd.OutOrStdout(), pipe, registry, src, predictOptions{
		Page:      predictPage,
		PageSize:  pageSize,
		Visualize: predictVisualize,
		OutDir:    predictOutDir,
	})
}

type predictOptions struct {
	Page      int
	PageSize  int
	Visualize bool
	OutDir    string
}

func runPredict(ctx context.Context, w io.Writer, pipe *pipeline.Pipeline, registry *visuals.Registry, src dataset.Source, opts predictOptions) error {
	res, err := pipe.Submit(ctx, pipeline.Request{Source: src, Visualize: opts.Visualize})
	if err != nil {
		if n, ok := pipe.TakeNotice(); ok {
			printNotice(w, n)
		}
		return err
	}
	if res.Notice.Title != "" {
		printNotice(w, res.Notice)
	}
	if res.State == pipeline.Failed {
		return res.Err
	}

	snap := pipe.Snapshot()
	if snap.Batch == nil {
		return nil
	}
	fmt.Fprintln(w, styles.Title.Render(fmt.Sprintf("Predictions (model: %s)", snap.ModelName)))
	fmt.Fprintln(w, renderDistribution(snap.Batch))
	fmt.Fprint(w, renderBreakdowns(snap.Batch))

	pager := results.NewPager(snap.Batch, opts.PageSize)
	pager.Goto(opts.Page)
	fmt.Fprintln(w, renderPage(pager))

	if len(snap.Visuals) > 0 {
		paths, err := writeVisuals(registry, snap.Visuals, opts.OutDir)
		for _, p := range paths {
			fmt.Fprintln(w, styles.Muted.Render("wrote "+p))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// writeVisuals saves every successful visualization as <kind><ext> in dir.
func writeVisuals(registry *visuals.Registry, vis []model.VisualizationResult, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	var paths []string
	for _, v := range vis {
		if v.Status != model.VisualizationSuccess {
			continue
		}
		h, ok := registry.Lookup(v.HandleID)
		if !ok {
			continue
		}
		data, err := h.Bytes()
		if err != nil {
			return paths, fmt.Errorf("read %s: %w", v.Name, err)
		}
		path := filepath.Join(dir, v.Name+extensionFor(h.ContentType()))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/svg+xml":
		return ".svg"
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
