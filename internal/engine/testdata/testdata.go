// Package testdata embeds a small labeled phrase corpus for engine tests.
// Labels: 0 negative, 1 positive, 2 neutral.
package testdata

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/crimson-sun/phrasefit/internal/dataset"
	"github.com/crimson-sun/phrasefit/internal/model"
)

//go:embed phrases.csv
var phrasesCSV []byte

// Phrases returns the raw CSV bytes of the corpus.
func Phrases() []byte {
	return append([]byte(nil), phrasesCSV...)
}

// LoadPhrases parses the embedded corpus.
func LoadPhrases() ([]model.Record, error) {
	records, err := dataset.Decode(bytes.NewReader(phrasesCSV))
	if err != nil {
		return nil, fmt.Errorf("parse phrases.csv: %w", err)
	}
	return records, nil
}
