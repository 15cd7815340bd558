package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/crimson-sun/phrasefit/internal/model"
	"github.com/crimson-sun/phrasefit/internal/output"
)

// Output writes predictions to a terminal stream, one per line.
type Output struct {
	w      io.Writer
	enc    *json.Encoder
	format output.Format
}

// New creates an Output writing to w in the given format.
// A nil w means os.Stdout.
func New(w io.Writer, format output.Format) *Output {
	if w == nil {
		w = os.Stdout
	}
	return &Output{w: w, enc: json.NewEncoder(w), format: format}
}

func (o *Output) Write(_ context.Context, p model.Prediction) error {
	var err error
	if o.format == output.JSON {
		err = o.enc.Encode(p)
	} else {
		_, err = fmt.Fprintln(o.w, output.FormatText(p))
	}
	if err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}
