package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/jamesainslie/go-segeval/inference"
	"github.com/jamesainslie/go-segeval/internal/config"
	"github.com/jamesainslie/go-segeval/internal/dataset"
	"github.com/jamesainslie/go-segeval/internal/overlay"
	"github.com/jamesainslie/go-segeval/internal/runner"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	modelPath := flag.String("model", cfg.ModelPath(), "Path to ONNX model file")
	inDir := flag.String("in", "", "Directory of unlabeled images")
	outDir := flag.String("out", "", "Output directory for overlays")
	renderer := flag.String("renderer", "palette", "Renderer: palette or gocv")
	alpha := flag.Float64("alpha", overlay.DefaultAlpha, "Overlay opacity")
	batch := flag.Int("batch", 0, "Batch size (default: min(16, images))")
	verbose := flag.Bool("v", false, "Verbose logging")

	flag.Parse()

	if *inDir == "" || *outDir == "" {
		fmt.Fprintln(os.Stderr, "Usage: seg-viz -in DIR -out DIR [OPTIONS]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if cfg.ORTLibrary != "" {
		inference.SetLibraryPath(cfg.ORTLibrary)
	}

	if err := run(ctx, cfg, *modelPath, *inDir, *outDir, *renderer, *alpha, *batch); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, modelPath, inDir, outDir, rendererName string, alpha float64, batch int) error {
	src, err := dataset.NewImageDir(inDir, cfg.ImageExt, cfg.ImageSize())
	if err != nil {
		return err
	}

	r, err := overlay.New(rendererName, alpha)
	if err != nil {
		return err
	}

	model, err := runner.LoadModel(modelPath, inference.NewRegistry(),
		inference.WithIONames(inference.IONames{Input: cfg.InputName, Output: cfg.OutputName}),
		inference.WithPoolSize(cfg.PoolSize),
		inference.WithMicroBatch(cfg.MicroBatch),
	)
	if err != nil {
		return err
	}
	defer func() { _ = model.Close() }() // Cleanup error ignored in CLI

	v := &runner.Visualizer{
		Predictor:  model,
		Renderer:   r,
		NumClasses: cfg.NumClasses,
		OutDir:     outDir,
		BatchSize:  batch,
		Out:        os.Stdout,
	}
	return v.Run(ctx, src)
}
