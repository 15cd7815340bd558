package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/crimson-sun/phrasefit/internal/config"
	"github.com/crimson-sun/phrasefit/internal/dataset"
	"github.com/crimson-sun/phrasefit/internal/engine"
	"github.com/crimson-sun/phrasefit/internal/engine/classifier"
	"github.com/crimson-sun/phrasefit/internal/engine/vectorizer"
	"github.com/crimson-sun/phrasefit/internal/fetch"
	"github.com/crimson-sun/phrasefit/internal/model"
)

// Result describes a completed training run.
type Result struct {
	InputPath      string
	VectorizerPath string // absolute
	ClassifierPath string // absolute
	Rows           int
	Features       int
	Classes        []int
	Solver         classifier.Report
	Duration       time.Duration
}

// Pipeline runs the one-shot training job: load, fit the vectorizer, fit the
// classifier, write both artifacts.
type Pipeline struct {
	cfg config.Config
}

// New creates a Pipeline for the given configuration.
func New(cfg config.Config) *Pipeline {
	return &Pipeline{cfg: cfg}
}

// Options translates the model configuration into engine options.
func Options(m config.ModelConfig) engine.Options {
	return engine.Options{
		Vectorizer: []vectorizer.Option{
			vectorizer.WithNgramRange(m.NgramMin, m.NgramMax),
			vectorizer.WithMaxFeatures(m.MaxFeatures),
		},
		Classifier: []classifier.Option{
			classifier.WithMaxIter(m.MaxIter),
			classifier.WithC(m.C),
			classifier.WithRandomState(m.Seed),
		},
	}
}

// load reads the dataset, downloading it first when input is a URL.
func (p *Pipeline) load(ctx context.Context, input string) ([]model.Record, error) {
	if !fetch.IsRemote(input) {
		slog.Info("loading dataset", "path", input)
		return dataset.Load(input)
	}

	slog.Info("downloading dataset", "url", input)
	client := fetch.New(fetch.WithToken(p.cfg.InputToken), fetch.WithTimeout(p.cfg.FetchTimeout))
	path, cleanup, err := client.DownloadTemp(ctx, input, "phrasefit-*.zip")
	if err != nil {
		return nil, err
	}
	defer cleanup()
	return dataset.Load(path)
}

// Run executes the job. Nothing is written unless loading and both fits
// succeed. The vectorizer artifact is written before the classifier's, and
// ctx is checked between steps, so a cancelled or failed run leaves zero or
// one artifact behind.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	start := time.Now()

	vecPath, err := filepath.Abs(p.cfg.VectorizerPath())
	if err != nil {
		return Result{}, fmt.Errorf("pipeline: resolve vectorizer path: %w", err)
	}
	clfPath, err := filepath.Abs(p.cfg.ClassifierPath())
	if err != nil {
		return Result{}, fmt.Errorf("pipeline: resolve classifier path: %w", err)
	}
	input := p.cfg.Input()

	records, err := p.load(ctx, input)
	if err != nil {
		return Result{}, fmt.Errorf("pipeline load: %w", err)
	}
	slog.Debug("dataset loaded", "rows", len(records), "elapsed", time.Since(start))
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	fitStart := time.Now()
	eng, trained, err := engine.Train(records, Options(p.cfg.Model))
	if err != nil {
		return Result{}, fmt.Errorf("pipeline train: %w", err)
	}
	slog.Info("models fitted",
		"rows", trained.Rows,
		"features", trained.Features,
		"classes", len(trained.Classes),
		"iterations", trained.Classifier.Iterations,
		"converged", trained.Classifier.Converged,
		"loss", trained.Classifier.Loss,
		"elapsed", time.Since(fitStart))
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	if err := eng.Vectorizer().Save(vecPath); err != nil {
		return Result{}, fmt.Errorf("pipeline save: %w", err)
	}
	slog.Debug("vectorizer written", "path", vecPath)
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err := eng.Classifier().Save(clfPath); err != nil {
		return Result{}, fmt.Errorf("pipeline save: %w", err)
	}
	slog.Debug("classifier written", "path", clfPath)

	return Result{
		InputPath:      input,
		VectorizerPath: vecPath,
		ClassifierPath: clfPath,
		Rows:           trained.Rows,
		Features:       trained.Features,
		Classes:        trained.Classes,
		Solver:         trained.Classifier,
		Duration:       time.Since(start),
	}, nil
}
