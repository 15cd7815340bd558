package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/crimson-sun/phrasefit/internal/model"
)

func testPrediction(text string, label int) model.Prediction {
	return model.Prediction{
		Text:          text,
		Label:         label,
		Probability:   0.9,
		Probabilities: map[int]float64{0: 0.1, 1: 0.9},
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestWriteProducesValidNDJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	out, err := New(path)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	for i := 0; i < 5; i++ {
		if err := out.Write(context.Background(), testPrediction("great service", 1)); err != nil {
			t.Fatalf("Write error: %v", err)
		}
	}
	out.Close()

	lines := readLines(t, path)
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5", len(lines))
	}
	for i, line := range lines {
		var p model.Prediction
		if err := json.Unmarshal([]byte(line), &p); err != nil {
			t.Errorf("line %d: invalid JSON: %v", i, err)
		}
		if p.Label != 1 || p.Probabilities[1] != 0.9 {
			t.Errorf("line %d: got %+v", i, p)
		}
	}
}

func TestAppendsByDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	for i := 0; i < 2; i++ {
		out, err := New(path)
		if err != nil {
			t.Fatalf("New error: %v", err)
		}
		out.Write(context.Background(), testPrediction("bad", 0))
		out.Close()
	}
	if lines := readLines(t, path); len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
}

func TestTruncate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	if err := os.WriteFile(path, []byte("stale\nstale\n"), 0644); err != nil {
		t.Fatal(err)
	}
	out, err := New(path, WithTruncate())
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	out.Write(context.Background(), testPrediction("bad", 0))
	out.Close()

	lines := readLines(t, path)
	if len(lines) != 1 || strings.Contains(lines[0], "stale") {
		t.Fatalf("expected a single fresh line, got %q", lines)
	}
}

func TestCloseFlushesData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	out, err := New(path, WithBufSize(1<<20))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	out.Write(context.Background(), testPrediction("okay", 2))
	if info, _ := os.Stat(path); info.Size() != 0 {
		t.Fatal("expected data to stay buffered before Close")
	}
	out.Close()

	data, _ := os.ReadFile(path)
	if len(data) == 0 {
		t.Error("file is empty, Close did not flush buffered data")
	}
}

func TestNewMissingDir(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "missing", "out.jsonl")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestConcurrentWritesSafe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	out, err := New(path)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out.Write(context.Background(), testPrediction("love it", 1))
		}()
	}
	wg.Wait()
	out.Close()

	if lines := readLines(t, path); len(lines) != 50 {
		t.Errorf("got %d lines, want 50", len(lines))
	}
}
