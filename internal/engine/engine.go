package engine

import (
	"errors"
	"fmt"

	"github.com/crimson-sun/phrasefit/internal/engine/classifier"
	"github.com/crimson-sun/phrasefit/internal/engine/vectorizer"
	"github.com/crimson-sun/phrasefit/internal/model"
)

// Options holds the model settings used by Train.
type Options struct {
	Vectorizer []vectorizer.Option
	Classifier []classifier.Option
}

// Engine pairs a fitted vectorizer with the classifier trained on its output.
type Engine struct {
	vectorizer *vectorizer.Vectorizer
	classifier *classifier.Classifier
}

// New creates an Engine from already-fitted components.
func New(vec *vectorizer.Vectorizer, cls *classifier.Classifier) (*Engine, error) {
	if !vec.Fitted() || !cls.Fitted() {
		return nil, errors.New("engine: vectorizer and classifier must both be fitted")
	}
	if cls.Features() != vec.Len() {
		return nil, fmt.Errorf("engine: classifier expects %d features, vectorizer has %d", cls.Features(), vec.Len())
	}
	return &Engine{vectorizer: vec, classifier: cls}, nil
}

// TrainResult describes a completed fit.
type TrainResult struct {
	Rows       int
	Features   int
	Classes    []int
	Classifier classifier.Report
}

// Train fits a vectorizer on the phrases of records and a classifier on the
// resulting feature matrix.
func Train(records []model.Record, opts Options) (*Engine, TrainResult, error) {
	vec, err := vectorizer.New(opts.Vectorizer...)
	if err != nil {
		return nil, TrainResult{}, err
	}
	x, err := vec.FitTransform(model.Phrases(records))
	if err != nil {
		return nil, TrainResult{}, err
	}

	cls, err := classifier.New(opts.Classifier...)
	if err != nil {
		return nil, TrainResult{}, err
	}
	report, err := cls.Fit(x, model.Targets(records))
	if err != nil {
		return nil, TrainResult{}, err
	}

	return &Engine{vectorizer: vec, classifier: cls}, TrainResult{
		Rows:       x.Rows(),
		Features:   x.Cols(),
		Classes:    cls.Classes(),
		Classifier: report,
	}, nil
}

// Classify predicts the label of a single phrase.
func (e *Engine) Classify(text string) (model.Prediction, error) {
	preds, err := e.ClassifyBatch([]string{text})
	if err != nil {
		return model.Prediction{}, err
	}
	return preds[0], nil
}

// ClassifyBatch predicts labels for several phrases at once.
func (e *Engine) ClassifyBatch(texts []string) ([]model.Prediction, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	x, err := e.vectorizer.Transform(texts)
	if err != nil {
		return nil, err
	}
	proba, err := e.classifier.PredictProba(x)
	if err != nil {
		return nil, err
	}

	classes := e.classifier.Classes()
	preds := make([]model.Prediction, len(texts))
	for i := range preds {
		p := model.Prediction{Text: texts[i], Probabilities: make(map[int]float64, len(classes))}
		best := -1.0
		for k, c := range classes {
			v := proba.At(i, k)
			p.Probabilities[c] = v
			if v > best {
				best, p.Label, p.Probability = v, c, v
			}
		}
		preds[i] = p
	}
	return preds, nil
}

// Vectorizer returns the fitted vectorizer.
func (e *Engine) Vectorizer() *vectorizer.Vectorizer { return e.vectorizer }

// Classifier returns the fitted classifier.
func (e *Engine) Classifier() *classifier.Classifier { return e.classifier }

// Save writes the vectorizer and classifier artifacts, in that order.
func (e *Engine) Save(vectorizerPath, classifierPath string) error {
	if err := e.vectorizer.Save(vectorizerPath); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if err := e.classifier.Save(classifierPath); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	return nil
}

// Load reads both artifacts and pairs them.
func Load(vectorizerPath, classifierPath string) (*Engine, error) {
	vec, err := vectorizer.Load(vectorizerPath)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	cls, err := classifier.Load(classifierPath)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	return New(vec, cls)
}
