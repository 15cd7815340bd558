package phrasefit

import (
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/phrasefit/internal/engine"
	"github.com/crimson-sun/phrasefit/internal/engine/testdata"
)

// trainedDir fits a model on the embedded corpus and writes both artifacts
// under their default names into a fresh directory.
func trainedDir(t *testing.T) string {
	t.Helper()
	records, err := testdata.LoadPhrases()
	require.NoError(t, err)
	eng, _, err := engine.Train(records, engine.Options{})
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, eng.Save(filepath.Join(dir, "vectorizer.pkl"), filepath.Join(dir, "clf.pkl")))
	return dir
}

func TestResolvePaths(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantVec string
		wantClf string
	}{
		{"default", nil, filepath.Join("homework", "vectorizer.pkl"), filepath.Join("homework", "clf.pkl")},
		{"dir", []Option{WithModelDir("out")}, filepath.Join("out", "vectorizer.pkl"), filepath.Join("out", "clf.pkl")},
		{"paths win", []Option{WithModelDir("out"), WithModelPaths("a.bin", "b.bin")}, "a.bin", "b.bin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var o options
			for _, opt := range tt.opts {
				opt(&o)
			}
			vec, clf := resolvePaths(o)
			assert.Equal(t, tt.wantVec, vec)
			assert.Equal(t, tt.wantClf, clf)
		})
	}
}

func TestNewWithModelDir(t *testing.T) {
	m, err := New(WithModelDir(trainedDir(t)))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, m.Classes())
}

func TestNewWithModelPaths(t *testing.T) {
	dir := trainedDir(t)
	vec := filepath.Join(dir, "v.bin")
	clf := filepath.Join(dir, "c.bin")
	require.NoError(t, os.Rename(filepath.Join(dir, "vectorizer.pkl"), vec))
	require.NoError(t, os.Rename(filepath.Join(dir, "clf.pkl"), clf))

	_, err := New(WithModelPaths(vec, clf))
	assert.NoError(t, err)
}

func TestNewBadPathReturnsError(t *testing.T) {
	_, err := New(WithModelDir("/nonexistent/path"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewSwappedPaths(t *testing.T) {
	dir := trainedDir(t)
	_, err := New(WithModelPaths(filepath.Join(dir, "clf.pkl"), filepath.Join(dir, "vectorizer.pkl")))
	assert.Error(t, err)
}

func TestClassifyKnownPhrases(t *testing.T) {
	m, err := New(WithModelDir(trainedDir(t)))
	require.NoError(t, err)

	tests := []struct {
		text string
		want int
	}{
		{"I love this, great value", 1},
		{"awful, I hate it", 0},
		{"it is okay, pretty average", 2},
	}
	for _, tt := range tests {
		p, err := m.Classify(tt.text)
		require.NoError(t, err)
		assert.Equal(t, tt.want, p.Label, tt.text)
		assert.Equal(t, tt.text, p.Text)
		assert.Equal(t, p.Probabilities[p.Label], p.Probability)

		sum := 0.0
		for _, v := range p.Probabilities {
			sum += v
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestClassifyBatchMatchesIndividual(t *testing.T) {
	m, err := New(WithModelDir(trainedDir(t)))
	require.NoError(t, err)

	texts := []string{"love it", "hate it", "it is okay", "", "completely unseen words"}
	batch, err := m.ClassifyBatch(texts)
	require.NoError(t, err)
	require.Len(t, batch, len(texts))

	for i, text := range texts {
		single, err := m.Classify(text)
		require.NoError(t, err)
		assert.Equal(t, single.Label, batch[i].Label, text)
		assert.True(t, math.Abs(single.Probability-batch[i].Probability) < 1e-12, text)
	}
}

func TestClassifyBatchEmpty(t *testing.T) {
	m, err := New(WithModelDir(trainedDir(t)))
	require.NoError(t, err)

	got, err := m.ClassifyBatch(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestConcurrentClassify(t *testing.T) {
	m, err := New(WithModelDir(trainedDir(t)))
	require.NoError(t, err)

	want, err := m.Classify("great price, love the screen")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	labels := make(chan int, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := m.Classify("great price, love the screen")
			if err != nil {
				errs <- err
				return
			}
			labels <- p.Label
		}()
	}
	wg.Wait()
	close(errs)
	close(labels)

	for err := range errs {
		t.Fatalf("Classify() error: %v", err)
	}
	for label := range labels {
		assert.Equal(t, want.Label, label)
	}
}
