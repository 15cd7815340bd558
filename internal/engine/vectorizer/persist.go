package vectorizer

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/crimson-sun/phrasefit/internal/artifact"
)

const (
	artifactKind    = "phrasefit.vectorizer"
	artifactVersion = "1"
)

// Artifact encodes the fitted vectorizer: an "idf" F64 tensor plus the
// vocabulary (terms in index order) and configuration as metadata.
func (v *Vectorizer) Artifact() (*artifact.File, error) {
	if !v.Fitted() {
		return nil, ErrNotFitted
	}
	vocab, err := json.Marshal(v.terms)
	if err != nil {
		return nil, fmt.Errorf("vectorizer: encode vocabulary: %w", err)
	}
	f := artifact.New(artifactKind, artifactVersion)
	f.Metadata["vocabulary"] = string(vocab)
	f.Metadata["ngram_min"] = strconv.Itoa(v.ngramMin)
	f.Metadata["ngram_max"] = strconv.Itoa(v.ngramMax)
	f.Metadata["max_features"] = strconv.Itoa(v.maxFeatures)
	f.Metadata["lowercase"] = strconv.FormatBool(v.lowercase)
	f.Metadata["norm"] = string(v.norm)
	f.Tensors["idf"] = artifact.NewF64([]int{len(v.idf)}, v.idf)
	return f, nil
}

// Save writes the fitted vectorizer to path, replacing any existing file.
func (v *Vectorizer) Save(path string) error {
	f, err := v.Artifact()
	if err != nil {
		return err
	}
	if err := artifact.WriteFile(path, f); err != nil {
		return fmt.Errorf("vectorizer: %w", err)
	}
	return nil
}

// FromArtifact reconstructs a fitted vectorizer from its artifact form.
func FromArtifact(f *artifact.File) (*Vectorizer, error) {
	if err := f.Expect(artifactKind, artifactVersion); err != nil {
		return nil, fmt.Errorf("vectorizer: %w", err)
	}

	ngramMin, err1 := strconv.Atoi(f.Metadata["ngram_min"])
	ngramMax, err2 := strconv.Atoi(f.Metadata["ngram_max"])
	maxFeatures, err3 := strconv.Atoi(f.Metadata["max_features"])
	lowercase, err4 := strconv.ParseBool(f.Metadata["lowercase"])
	for _, err := range []error{err1, err2, err3, err4} {
		if err != nil {
			return nil, fmt.Errorf("vectorizer: %w: bad metadata: %v", artifact.ErrFormat, err)
		}
	}

	v, err := New(
		WithNgramRange(ngramMin, ngramMax),
		WithMaxFeatures(maxFeatures),
		WithLowercase(lowercase),
		WithNorm(Norm(f.Metadata["norm"])),
	)
	if err != nil {
		return nil, err
	}

	var terms []string
	if err := json.Unmarshal([]byte(f.Metadata["vocabulary"]), &terms); err != nil {
		return nil, fmt.Errorf("vectorizer: %w: bad vocabulary: %v", artifact.ErrFormat, err)
	}
	t, err := f.Tensor("idf", artifact.F64, 1)
	if err != nil {
		return nil, fmt.Errorf("vectorizer: %w", err)
	}
	idf, err := t.Float64s()
	if err != nil {
		return nil, fmt.Errorf("vectorizer: %w", err)
	}
	if len(idf) != len(terms) || len(terms) == 0 {
		return nil, fmt.Errorf("vectorizer: %w: %d terms but %d idf weights", artifact.ErrFormat, len(terms), len(idf))
	}

	vocabulary := make(map[string]int, len(terms))
	for i, term := range terms {
		if _, dup := vocabulary[term]; dup {
			return nil, fmt.Errorf("vectorizer: %w: duplicate term %q", artifact.ErrFormat, term)
		}
		vocabulary[term] = i
	}
	v.vocabulary = vocabulary
	v.terms = terms
	v.idf = idf
	return v, nil
}

// Load reads a fitted vectorizer from path.
func Load(path string) (*Vectorizer, error) {
	f, err := artifact.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vectorizer: %w", err)
	}
	return FromArtifact(f)
}
