package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"gonum.org/v1/gonum/stat"

	segeval "github.com/jamesainslie/go-segeval"
	"github.com/jamesainslie/go-segeval/inference"
	"github.com/jamesainslie/go-segeval/internal/bench"
	"github.com/jamesainslie/go-segeval/internal/config"
	"github.com/jamesainslie/go-segeval/internal/dataset"
	"github.com/jamesainslie/go-segeval/internal/history"
	"github.com/jamesainslie/go-segeval/internal/runner"
	"github.com/jamesainslie/go-segeval/tensor"
)

type options struct {
	cfg       *config.Config
	modelPath string
	sweep     bool
	sweepMin  float32
	sweepMax  float32
	sweepStep float32
	models    []string
	listRuns  int
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	var (
		modelPath = flag.String("model", cfg.ModelPath(), "Path to ONNX model file")
		logDir    = flag.String("log-dir", cfg.LogDir, "Directory for result summaries")
		threshold = flag.Float64("threshold", float64(cfg.Threshold), "Binarization threshold")
		historyDB = flag.String("history", cfg.HistoryDB, "SQLite run history database (empty disables)")
		sweep     = flag.Bool("sweep", false, "Run threshold sweep on the validation set")
		sweepMin  = flag.Float64("sweep-min", 0.1, "Sweep minimum threshold")
		sweepMax  = flag.Float64("sweep-max", 0.95, "Sweep maximum threshold")
		sweepStep = flag.Float64("sweep-step", 0.05, "Sweep step size")
		models    = flag.String("models", "", "Comma-separated model paths for comparison on the test set")
		listRuns  = flag.Int("runs", 0, "List the N most recent runs from the history database and exit")
		verbose   = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg.LogDir = *logDir
	cfg.Threshold = float32(*threshold)
	cfg.HistoryDB = *historyDB
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if cfg.ORTLibrary != "" {
		inference.SetLibraryPath(cfg.ORTLibrary)
	}

	opts := options{
		cfg:       cfg,
		modelPath: *modelPath,
		sweep:     *sweep,
		sweepMin:  float32(*sweepMin),
		sweepMax:  float32(*sweepMax),
		sweepStep: float32(*sweepStep),
		listRuns:  *listRuns,
	}
	if *models != "" {
		opts.models = strings.Split(*models, ",")
	}

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	switch {
	case opts.listRuns > 0:
		return runList(ctx, opts.cfg, opts.listRuns)
	case len(opts.models) > 0:
		return runModelComparison(ctx, opts)
	case opts.sweep:
		return runSweep(ctx, opts)
	default:
		return runEvaluation(ctx, opts)
	}
}

func loadModel(cfg *config.Config, path string) (inference.Backend, error) {
	return runner.LoadModel(path, inference.NewRegistry(),
		inference.WithIONames(inference.IONames{Input: cfg.InputName, Output: cfg.OutputName}),
		inference.WithPoolSize(cfg.PoolSize),
		inference.WithMicroBatch(cfg.MicroBatch),
	)
}

func openSource(cfg *config.Config, imageDir, labelDir string) (*dataset.LabeledDir, error) {
	return dataset.NewLabeledDir(imageDir, labelDir, cfg.ImageExt, cfg.NumClasses, cfg.ImageSize())
}

func runEvaluation(ctx context.Context, opts options) (err error) {
	cfg := opts.cfg

	val, err := openSource(cfg, cfg.ValImageDir, cfg.ValLabelDir)
	if err != nil {
		return fmt.Errorf("validation set: %w", err)
	}
	test, err := openSource(cfg, cfg.TestImageDir, cfg.TestLabelDir)
	if err != nil {
		return fmt.Errorf("test set: %w", err)
	}

	model, err := loadModel(cfg, opts.modelPath)
	if err != nil {
		return err
	}
	defer func() { _ = model.Close() }() // Cleanup error ignored in CLI

	ev := &runner.Evaluator{
		Predictor: model,
		Scorer:    segeval.NewEvaluator(segeval.WithThreshold(cfg.Threshold)),
		LogDir:    cfg.LogDir,
		ModelName: cfg.Name,
		Out:       os.Stdout,
	}
	if cfg.HistoryDB != "" {
		store, err := history.Open(cfg.HistoryDB)
		if err != nil {
			return fmt.Errorf("history: %w", err)
		}
		defer func() { _ = store.Close() }()
		ev.History = store
	}

	_, _, err = ev.RunAll(ctx, val, test)
	return err
}

// predictAll drains src in one batch and returns predictions with matching
// ground truth.
func predictAll(ctx context.Context, p segeval.Predictor, src segeval.Source) (preds, gt *tensor.Tensor, err error) {
	batch, err := src.Next(ctx, src.Size())
	if err != nil {
		return nil, nil, err
	}
	preds, err = p.Predict(ctx, batch.Images)
	if err != nil {
		return nil, nil, fmt.Errorf("predicting: %w", err)
	}
	gt, err = runner.GroundTruth(batch.Labels, preds)
	if err != nil {
		return nil, nil, err
	}
	return preds, gt, nil
}

func runSweep(ctx context.Context, opts options) error {
	cfg := opts.cfg

	val, err := openSource(cfg, cfg.ValImageDir, cfg.ValLabelDir)
	if err != nil {
		return fmt.Errorf("validation set: %w", err)
	}
	model, err := loadModel(cfg, opts.modelPath)
	if err != nil {
		return err
	}
	defer func() { _ = model.Close() }()

	preds, gt, err := predictAll(ctx, model, val)
	if err != nil {
		return err
	}

	thresholds := bench.SweepThresholds(opts.sweepMin, opts.sweepMax, opts.sweepStep)
	results, err := bench.Sweep(preds, gt, nil, thresholds)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}

	fmt.Println("Threshold Sweep Results")
	fmt.Println(strings.Repeat("-", 40))
	fmt.Printf("%-8s %-10s\n", "Thresh", "Mean DC")

	// Print sorted by threshold for readability
	for _, t := range thresholds {
		for _, r := range results {
			if r.Threshold == t {
				fmt.Printf("%-8.3f %-10.4f\n", r.Threshold, r.MeanDice)
				break
			}
		}
	}

	fmt.Println(strings.Repeat("-", 40))
	if len(results) == 0 {
		return nil
	}
	best := results[0]
	fmt.Printf("Optimal: %.3f (Mean DC: %.4f)\n\n", best.Threshold, best.MeanDice)

	metrics, err := bench.EvaluateClasses(preds, gt, nil, best.Threshold)
	if err != nil {
		return err
	}
	fmt.Printf("%-6s %-8s %-8s %-8s %-10s\n", "Class", "Prec", "Rec", "F1", "DC")
	for i, m := range metrics {
		fmt.Printf("%-6d %-8.2f %-8.2f %-8.2f %-10.4f\n", m.Class, m.Precision, m.Recall, m.F1, best.Result.Means[i])
	}
	return nil
}

func runModelComparison(ctx context.Context, opts options) error {
	cfg := opts.cfg
	scorer := segeval.NewEvaluator(segeval.WithThreshold(cfg.Threshold))

	fmt.Printf("Model Comparison (threshold=%.3f)\n", cfg.Threshold)
	fmt.Println(strings.Repeat("-", 50))
	fmt.Printf("%-40s %-10s\n", "Model", "Mean DC")

	for _, path := range opts.models {
		// Sources are consumed once; reopen for every model.
		test, err := openSource(cfg, cfg.TestImageDir, cfg.TestLabelDir)
		if err != nil {
			return fmt.Errorf("test set: %w", err)
		}
		mean, err := compareOne(ctx, cfg, scorer, path, test)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error with %s: %v\n", path, err)
			continue
		}
		fmt.Printf("%-40s %-10.4f\n", path, mean)
	}
	return nil
}

func compareOne(ctx context.Context, cfg *config.Config, scorer *segeval.Evaluator, path string, src segeval.Source) (float64, error) {
	model, err := loadModel(cfg, path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = model.Close() }()

	preds, gt, err := predictAll(ctx, model, src)
	if err != nil {
		return 0, err
	}
	res, err := scorer.Evaluate(preds, gt, nil)
	if err != nil {
		return 0, err
	}

	return stat.Mean(res.Means, nil), nil
}

func runList(ctx context.Context, cfg *config.Config, n int) error {
	if cfg.HistoryDB == "" {
		return fmt.Errorf("no history database configured (SEG_HISTORY_DB or -history)")
	}
	store, err := history.Open(cfg.HistoryDB)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	defer func() { _ = store.Close() }()

	runs, err := store.Runs(ctx, "", n)
	if err != nil {
		return err
	}
	for _, r := range runs {
		fmt.Printf("%s  %-5s %-20s t=%.3f n=%d\n", r.CreatedAt.Format("2006-01-02 15:04:05"), r.Source, r.Model, r.Threshold, r.Samples)
		for _, c := range r.Classes {
			fmt.Printf("    Class %d DC=%.4f\n", c.Class, c.Mean)
		}
	}
	return nil
}
