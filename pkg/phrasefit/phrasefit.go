package phrasefit

import (
	"fmt"

	"github.com/crimson-sun/phrasefit/internal/engine"
	"github.com/crimson-sun/phrasefit/internal/model"
)

// Model is a loaded vectorizer and classifier pair.
// Safe for concurrent use.
type Model struct {
	engine  *engine.Engine
	classes []int
}

// New loads both artifacts and checks they belong together.
func New(opts ...Option) (*Model, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	vecPath, clfPath := resolvePaths(o)
	eng, err := engine.Load(vecPath, clfPath)
	if err != nil {
		return nil, fmt.Errorf("phrasefit: %w", err)
	}
	return &Model{engine: eng, classes: eng.Classifier().Classes()}, nil
}

// Classify predicts the label of a single phrase.
func (m *Model) Classify(text string) (Prediction, error) {
	p, err := m.engine.Classify(text)
	if err != nil {
		return Prediction{}, err
	}
	return fromModel(p), nil
}

// ClassifyBatch predicts labels for several phrases with one matrix product.
// More efficient than calling Classify in a loop.
func (m *Model) ClassifyBatch(texts []string) ([]Prediction, error) {
	ps, err := m.engine.ClassifyBatch(texts)
	if err != nil {
		return nil, err
	}
	out := make([]Prediction, len(ps))
	for i, p := range ps {
		out[i] = fromModel(p)
	}
	return out, nil
}

// Classes returns the labels the classifier was trained on, ascending.
func (m *Model) Classes() []int {
	return append([]int(nil), m.classes...)
}

// fromModel converts the internal prediction to the public type.
func fromModel(p model.Prediction) Prediction {
	return Prediction{
		Text:          p.Text,
		Label:         p.Label,
		Probability:   p.Probability,
		Probabilities: p.Probabilities,
	}
}
