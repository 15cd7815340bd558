package output

import (
	"fmt"
	"strconv"

	"github.com/crimson-sun/phrasefit/internal/model"
)

// Format selects how a prediction is rendered.
type Format int

const (
	Text Format = iota // phrase<TAB>label<TAB>probability
	JSON               // one JSON object per line
)

// ParseFormat maps "text" or "json" to a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "text", "":
		return Text, nil
	case "json":
		return JSON, nil
	default:
		return Text, fmt.Errorf("output: unknown format %q (want text or json)", s)
	}
}

func (f Format) String() string {
	if f == JSON {
		return "json"
	}
	return "text"
}

// FormatText renders p as a tab-separated line without the trailing newline.
// Probability is rounded to four decimals.
func FormatText(p model.Prediction) string {
	return p.Text + "\t" + strconv.Itoa(p.Label) + "\t" + strconv.FormatFloat(p.Probability, 'f', 4, 64)
}
