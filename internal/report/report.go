// Package report persists evaluation results as text summaries and JSON documents.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	segeval "github.com/jamesainslie/go-segeval"
	"github.com/jamesainslie/go-segeval/internal/fsutil"
)

// SummaryName returns the summary file name for a data source, e.g. "val_results.txt".
func SummaryName(source string) string {
	return source + "_results.txt"
}

// JSONName returns the JSON report file name for a data source.
func JSONName(source string) string {
	return source + "_results.json"
}

// Meta describes the run that produced a result.
type Meta struct {
	RunID     string
	Source    string
	Model     string
	Threshold float32
}

// WriteSummary writes res.Summary() to dir/<source>_results.txt, replacing any
// previous file. It returns the written path.
func WriteSummary(dir, source string, res *segeval.Result) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %w", segeval.ErrIO, err)
	}
	path := filepath.Join(dir, SummaryName(source))
	if err := fsutil.WriteFile(path, []byte(res.Summary()), 0o644); err != nil {
		return "", fmt.Errorf("%w: %w", segeval.ErrIO, err)
	}
	return path, nil
}

// Document builds a structured report: metadata, per-class means and the
// per-sample score matrix (one row per sample, columns in class order).
func Document(meta Meta, res *segeval.Result) (*structpb.Struct, error) {
	classes := make([]any, len(res.Classes))
	means := make(map[string]any, len(res.Classes))
	for i, c := range res.Classes {
		classes[i] = c
		means[fmt.Sprint(c)] = res.Means[i]
	}

	rows, cols := res.Scores.Dims()
	scores := make([]any, rows)
	for i := range rows {
		row := make([]any, cols)
		for j := range cols {
			row[j] = res.Scores.At(i, j)
		}
		scores[i] = row
	}

	return structpb.NewStruct(map[string]any{
		"run_id":    meta.RunID,
		"source":    meta.Source,
		"model":     meta.Model,
		"threshold": float64(meta.Threshold),
		"samples":   rows,
		"classes":   classes,
		"means":     means,
		"scores":    scores,
		"created":   time.Now().UTC().Format(time.RFC3339),
	})
}

// WriteJSON writes the structured report to dir/<source>_results.json.
func WriteJSON(dir string, meta Meta, res *segeval.Result) (string, error) {
	doc, err := Document(meta, res)
	if err != nil {
		return "", fmt.Errorf("building report: %w", err)
	}
	data, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encoding report: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %w", segeval.ErrIO, err)
	}
	path := filepath.Join(dir, JSONName(meta.Source))
	if err := fsutil.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("%w: %w", segeval.ErrIO, err)
	}
	return path, nil
}
