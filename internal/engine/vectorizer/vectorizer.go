// Package vectorizer implements a TF-IDF bag-of-n-grams feature extractor.
package vectorizer

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/crimson-sun/phrasefit/internal/model"
)

// Defaults match the training job's feature space: unigrams and bigrams,
// capped at 10,000 features.
const (
	DefaultNgramMin    = 1
	DefaultNgramMax    = 2
	DefaultMaxFeatures = 10000
)

// Norm selects the per-row normalization applied after TF-IDF weighting.
type Norm string

const (
	NormL2   Norm = "l2"
	NormNone Norm = "none"
)

var (
	// ErrNotFitted is returned when transforming before Fit.
	ErrNotFitted = errors.New("vectorizer: not fitted")
	// ErrEmptyVocabulary is returned when no document yields a term.
	ErrEmptyVocabulary = errors.New("vectorizer: empty vocabulary; documents contain no terms")
)

// Option configures a Vectorizer.
type Option func(*Vectorizer)

// WithNgramRange sets the inclusive range of n-gram lengths.
func WithNgramRange(lo, hi int) Option {
	return func(v *Vectorizer) { v.ngramMin, v.ngramMax = lo, hi }
}

// WithMaxFeatures keeps only the n most frequent terms. 0 disables the cap.
func WithMaxFeatures(n int) Option {
	return func(v *Vectorizer) { v.maxFeatures = n }
}

// WithLowercase toggles lowercasing before tokenization. Default: true.
func WithLowercase(on bool) Option {
	return func(v *Vectorizer) { v.lowercase = on }
}

// WithNorm sets the row normalization. Default: NormL2.
func WithNorm(n Norm) Option {
	return func(v *Vectorizer) { v.norm = n }
}

// Vectorizer learns a vocabulary and inverse document frequencies from a
// corpus and maps documents to L2-normalized TF-IDF rows. It is immutable
// once fitted and safe for concurrent Transform calls.
type Vectorizer struct {
	ngramMin    int
	ngramMax    int
	maxFeatures int
	lowercase   bool
	norm        Norm

	analyzer   *analyzer
	vocabulary map[string]int
	terms      []string // index -> term
	idf        []float64
}

// New creates an unfitted Vectorizer.
func New(opts ...Option) (*Vectorizer, error) {
	v := &Vectorizer{
		ngramMin:    DefaultNgramMin,
		ngramMax:    DefaultNgramMax,
		maxFeatures: DefaultMaxFeatures,
		lowercase:   true,
		norm:        NormL2,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.ngramMin < 1 || v.ngramMax < v.ngramMin {
		return nil, fmt.Errorf("vectorizer: invalid n-gram range (%d, %d)", v.ngramMin, v.ngramMax)
	}
	if v.maxFeatures < 0 {
		return nil, fmt.Errorf("vectorizer: max features must be >= 0, got %d", v.maxFeatures)
	}
	if v.norm != NormL2 && v.norm != NormNone {
		return nil, fmt.Errorf("vectorizer: unknown norm %q", v.norm)
	}
	v.analyzer = newAnalyzer(v.lowercase, v.ngramMin, v.ngramMax)
	return v, nil
}

// Fit learns the vocabulary and IDF weights from docs.
//
// When more terms qualify than the feature cap allows, the terms with the
// highest total count across the corpus are kept, ties going to the
// lexically smaller term. Feature indices follow lexical order.
func (v *Vectorizer) Fit(docs []string) error {
	if v.vocabulary != nil {
		return errors.New("vectorizer: already fitted")
	}

	termFreq := make(map[string]int)
	docFreq := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, term := range v.analyzer.analyze(doc) {
			termFreq[term]++
			if _, ok := seen[term]; !ok {
				seen[term] = struct{}{}
				docFreq[term]++
			}
		}
	}
	if len(termFreq) == 0 {
		return ErrEmptyVocabulary
	}

	terms := make([]string, 0, len(termFreq))
	for term := range termFreq {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	if v.maxFeatures > 0 && len(terms) > v.maxFeatures {
		sort.SliceStable(terms, func(i, j int) bool {
			return termFreq[terms[i]] > termFreq[terms[j]]
		})
		terms = terms[:v.maxFeatures]
		sort.Strings(terms)
	}

	n := float64(len(docs))
	vocabulary := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	for i, term := range terms {
		vocabulary[term] = i
		idf[i] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}

	v.vocabulary = vocabulary
	v.terms = terms
	v.idf = idf
	return nil
}

// Transform maps docs to a sparse matrix with one row per document. Terms
// outside the vocabulary are ignored; a document with no known terms yields
// an all-zero row.
func (v *Vectorizer) Transform(docs []string) (*model.Matrix, error) {
	if v.vocabulary == nil {
		return nil, ErrNotFitted
	}
	m := model.NewMatrix(len(v.terms))
	for i, doc := range docs {
		idx, val := v.row(doc)
		if err := m.AppendRow(idx, val); err != nil {
			return nil, fmt.Errorf("vectorizer: document %d: %w", i, err)
		}
	}
	return m, nil
}

// FitTransform fits on docs and returns their TF-IDF matrix.
func (v *Vectorizer) FitTransform(docs []string) (*model.Matrix, error) {
	if err := v.Fit(docs); err != nil {
		return nil, err
	}
	return v.Transform(docs)
}

func (v *Vectorizer) row(doc string) ([]int, []float64) {
	counts := make(map[int]int)
	for _, term := range v.analyzer.analyze(doc) {
		if j, ok := v.vocabulary[term]; ok {
			counts[j]++
		}
	}
	idx := make([]int, 0, len(counts))
	for j := range counts {
		idx = append(idx, j)
	}
	sort.Ints(idx)

	val := make([]float64, len(idx))
	var sumSq float64
	for k, j := range idx {
		val[k] = float64(counts[j]) * v.idf[j]
		sumSq += val[k] * val[k]
	}
	if v.norm == NormL2 && sumSq > 0 {
		scale := 1 / math.Sqrt(sumSq)
		for k := range val {
			val[k] *= scale
		}
	}
	return idx, val
}

// Fitted reports whether Fit has completed.
func (v *Vectorizer) Fitted() bool { return v.vocabulary != nil }

// Len returns the number of features.
func (v *Vectorizer) Len() int { return len(v.terms) }

// Vocabulary returns a copy of the term -> feature index mapping.
func (v *Vectorizer) Vocabulary() map[string]int {
	out := make(map[string]int, len(v.vocabulary))
	for k, i := range v.vocabulary {
		out[k] = i
	}
	return out
}

// Terms returns the feature terms in index order.
func (v *Vectorizer) Terms() []string {
	return append([]string(nil), v.terms...)
}

// IDF returns the per-feature inverse document frequencies.
func (v *Vectorizer) IDF() []float64 {
	return append([]float64(nil), v.idf...)
}
