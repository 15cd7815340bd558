// Package dataset loads the labeled phrase corpus from a zip-compressed CSV.
package dataset

import (
	"archive/zip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/crimson-sun/phrasefit/internal/model"
)

// Column names the loader requires in the CSV header.
const (
	PhraseColumn = "phrase"
	TargetColumn = "target"
)

// missingPhrase is what a missing phrase field turns into when cast to text.
const missingPhrase = "nan"

// naValues are the field values read as missing. The match is exact and
// case-sensitive; surrounding spaces make a value a real phrase.
var naValues = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

var (
	// ErrMissingColumn is returned when a required column is absent from the header.
	ErrMissingColumn = errors.New("missing required column")
	// ErrEmpty is returned when the CSV has a header but no rows.
	ErrEmpty = errors.New("no rows")
	// ErrArchive is returned when the zip archive does not hold exactly one file.
	ErrArchive = errors.New("archive must contain exactly one file")
)

// Load reads the zip archive at path and decodes its single CSV member.
func Load(path string) ([]model.Record, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer zr.Close()

	var members []*zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasPrefix(f.Name, "__MACOSX/") {
			continue
		}
		members = append(members, f)
	}
	if len(members) != 1 {
		return nil, fmt.Errorf("dataset: %s has %d files: %w", path, len(members), ErrArchive)
	}

	rc, err := members[0].Open()
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s in %s: %w", members[0].Name, path, err)
	}
	defer rc.Close()

	records, err := Decode(rc)
	if err != nil {
		return nil, fmt.Errorf("%w (file %s)", err, path)
	}
	return records, nil
}

// Decode parses CSV with a header row and extracts the phrase and target
// columns by name. Other columns are ignored.
func Decode(r io.Reader) ([]model.Record, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("dataset: empty input: %w", ErrEmpty)
	}
	if err != nil {
		return nil, fmt.Errorf("dataset: read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	phraseIdx, targetIdx := -1, -1
	for i, name := range header {
		switch name {
		case PhraseColumn:
			phraseIdx = i
		case TargetColumn:
			targetIdx = i
		}
	}
	var missing []string
	if phraseIdx < 0 {
		missing = append(missing, PhraseColumn)
	}
	if targetIdx < 0 {
		missing = append(missing, TargetColumn)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("dataset: %s: %w", strings.Join(missing, ", "), ErrMissingColumn)
	}

	var records []model.Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: %w", err)
		}
		line, _ := cr.FieldPos(0)

		phrase := row[phraseIdx]
		if _, ok := naValues[phrase]; ok {
			phrase = missingPhrase
		}
		target, err := parseTarget(row[targetIdx])
		if err != nil {
			return nil, fmt.Errorf("dataset: line %d: %w", line, err)
		}
		records = append(records, model.Record{Phrase: phrase, Target: target})
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset: %w", ErrEmpty)
	}
	return records, nil
}

// parseTarget accepts integer labels, including float spellings of integers
// such as "1.0".
func parseTarget(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty %s", TargetColumn)
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("invalid %s %q: not an integer label", TargetColumn, s)
	}
	return int(f), nil
}
