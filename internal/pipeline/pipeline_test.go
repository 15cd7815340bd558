package pipeline

import (
	"archive/zip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/phrasefit/internal/config"
	"github.com/crimson-sun/phrasefit/internal/engine"
	"github.com/crimson-sun/phrasefit/internal/engine/testdata"
)

// layout creates <root>/homework and <root>/files/input/sentences.csv.zip
// holding csv, and returns a config pointing at it.
func layout(t *testing.T, csv []byte) config.Config {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "homework")
	input := filepath.Join(root, "files", "input")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.MkdirAll(input, 0755))

	f, err := os.Create(filepath.Join(input, "sentences.csv.zip"))
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("sentences.csv")
	require.NoError(t, err)
	_, err = w.Write(csv)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	return config.Config{
		Dir:            dir,
		FetchTimeout:   time.Minute,
		VectorizerFile: "vectorizer.pkl",
		ClassifierFile: "clf.pkl",
		Model: config.ModelConfig{
			NgramMin: 1, NgramMax: 2, MaxFeatures: 10000, MaxIter: 1000, C: 1.0,
		},
		Log: config.LogConfig{Level: "info", Format: "text"},
	}
}

func TestRun(t *testing.T) {
	cfg := layout(t, testdata.Phrases())

	res, err := New(cfg).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(res.VectorizerPath))
	assert.True(t, filepath.IsAbs(res.ClassifierPath))
	assert.Equal(t, filepath.Join(cfg.Dir, "vectorizer.pkl"), res.VectorizerPath)
	assert.Equal(t, filepath.Join(cfg.Dir, "clf.pkl"), res.ClassifierPath)
	assert.Equal(t, 30, res.Rows)
	assert.Equal(t, []int{0, 1, 2}, res.Classes)
	assert.LessOrEqual(t, res.Features, 10000)

	eng, err := engine.Load(res.VectorizerPath, res.ClassifierPath)
	require.NoError(t, err)
	p, err := eng.Classify("I love the screen")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Label)
}

func TestRun_OverwritesExisting(t *testing.T) {
	cfg := layout(t, testdata.Phrases())
	require.NoError(t, os.WriteFile(cfg.ClassifierPath(), []byte("old"), 0644))

	res, err := New(cfg).Run(context.Background())
	require.NoError(t, err)

	_, err = engine.Load(res.VectorizerPath, res.ClassifierPath)
	assert.NoError(t, err)
}

func TestRun_Deterministic(t *testing.T) {
	cfg := layout(t, testdata.Phrases())

	read := func() ([]byte, []byte) {
		res, err := New(cfg).Run(context.Background())
		require.NoError(t, err)
		vec, err := os.ReadFile(res.VectorizerPath)
		require.NoError(t, err)
		clf, err := os.ReadFile(res.ClassifierPath)
		require.NoError(t, err)
		return vec, clf
	}
	vec1, clf1 := read()
	vec2, clf2 := read()
	assert.Equal(t, vec1, vec2)
	assert.Equal(t, clf1, clf2)
}

func TestRun_MissingTargetWritesNothing(t *testing.T) {
	cfg := layout(t, []byte("phrase,label\ngood product,1\nbad product,0\n"))

	_, err := New(cfg).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target")

	entries, err := os.ReadDir(cfg.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_MissingInput(t *testing.T) {
	cfg := layout(t, testdata.Phrases())
	cfg.InputPath = filepath.Join(t.TempDir(), "absent.csv.zip")

	_, err := New(cfg).Run(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRun_RemoteInput(t *testing.T) {
	cfg := layout(t, testdata.Phrases())
	zipped, err := os.ReadFile(cfg.Input())
	require.NoError(t, err)

	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write(zipped)
	}))
	defer srv.Close()

	cfg.InputPath = srv.URL + "/sentences.csv.zip"
	cfg.InputToken = "tok"
	res, err := New(cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, 30, res.Rows)
	assert.FileExists(t, res.ClassifierPath)
}

func TestRun_RemoteNotFound(t *testing.T) {
	cfg := layout(t, testdata.Phrases())
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	cfg.InputPath = srv.URL + "/missing.zip"
	_, err := New(cfg).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	entries, err := os.ReadDir(cfg.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_Cancelled(t *testing.T) {
	cfg := layout(t, testdata.Phrases())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(cfg).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	entries, err := os.ReadDir(cfg.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_SingleClass(t *testing.T) {
	cfg := layout(t, []byte("phrase,target\ngood,1\nfine,1\n"))
	_, err := New(cfg).Run(context.Background())
	assert.Error(t, err)
}
