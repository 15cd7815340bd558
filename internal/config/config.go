package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Version is the phrasefit release version.
const Version = "0.1.0"

// Config holds all phrasefit configuration.
type Config struct {
	// Dir receives the artifacts. The default input path is resolved
	// relative to it.
	Dir            string
	InputPath      string // empty = <Dir>/../files/input/sentences.csv.zip; may be an http(s) URL
	InputToken     string // Bearer token for a remote InputPath
	FetchTimeout   time.Duration
	VectorizerFile string
	ClassifierFile string

	Model ModelConfig
	Log   LogConfig

	loadErr error // unparsable environment values, reported by Validate
}

// ModelConfig holds vectorizer and classifier settings.
type ModelConfig struct {
	NgramMin    int
	NgramMax    int
	MaxFeatures int
	MaxIter     int
	C           float64
	Seed        int64
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "text", "json"
}

// Load reads .env (if present) then environment variables. Unset variables
// take the defaults of the stock training job.
func Load() Config {
	// Best-effort: a missing .env is not an error.
	_ = godotenv.Load()

	var errs []error
	cfg := Config{
		Dir:            getenv("PHRASEFIT_DIR", "homework"),
		InputPath:      os.Getenv("PHRASEFIT_INPUT"),
		InputToken:     os.Getenv("PHRASEFIT_INPUT_TOKEN"),
		FetchTimeout:   time.Duration(getenvInt("PHRASEFIT_FETCH_TIMEOUT_SEC", 300, &errs)) * time.Second,
		VectorizerFile: getenv("PHRASEFIT_VECTORIZER_FILE", "vectorizer.pkl"),
		ClassifierFile: getenv("PHRASEFIT_CLASSIFIER_FILE", "clf.pkl"),
		Model: ModelConfig{
			NgramMin:    getenvInt("PHRASEFIT_NGRAM_MIN", 1, &errs),
			NgramMax:    getenvInt("PHRASEFIT_NGRAM_MAX", 2, &errs),
			MaxFeatures: getenvInt("PHRASEFIT_MAX_FEATURES", 10000, &errs),
			MaxIter:     getenvInt("PHRASEFIT_MAX_ITER", 1000, &errs),
			C:           getenvFloat("PHRASEFIT_C", 1.0, &errs),
			Seed:        int64(getenvInt("PHRASEFIT_SEED", 0, &errs)),
		},
		Log: LogConfig{
			Level:  getenv("PHRASEFIT_LOG_LEVEL", "info"),
			Format: getenv("PHRASEFIT_LOG_FORMAT", "text"),
		},
	}
	cfg.loadErr = errors.Join(errs...)
	return cfg
}

// Input returns the dataset path, defaulting to files/input/sentences.csv.zip
// one level above Dir.
func (c Config) Input() string {
	if c.InputPath != "" {
		return c.InputPath
	}
	return filepath.Join(c.Dir, "..", "files", "input", "sentences.csv.zip")
}

// VectorizerPath returns where the vectorizer artifact is written.
func (c Config) VectorizerPath() string { return filepath.Join(c.Dir, c.VectorizerFile) }

// ClassifierPath returns where the classifier artifact is written.
func (c Config) ClassifierPath() string { return filepath.Join(c.Dir, c.ClassifierFile) }

// Validate checks all settings and returns every problem found, joined.
func (c Config) Validate() error {
	var errs []error
	if c.loadErr != nil {
		errs = append(errs, c.loadErr)
	}

	if c.Dir == "" {
		errs = append(errs, errors.New("output dir (PHRASEFIT_DIR) must not be empty"))
	} else if info, err := os.Stat(c.Dir); err != nil {
		errs = append(errs, fmt.Errorf("output dir: %w", err))
	} else if !info.IsDir() {
		errs = append(errs, fmt.Errorf("output dir: %s is not a directory", c.Dir))
	}

	for _, f := range []struct{ env, name string }{
		{"PHRASEFIT_VECTORIZER_FILE", c.VectorizerFile},
		{"PHRASEFIT_CLASSIFIER_FILE", c.ClassifierFile},
	} {
		if f.name == "" || strings.ContainsRune(f.name, filepath.Separator) {
			errs = append(errs, fmt.Errorf("artifact file name (%s) must be a plain file name, got %q", f.env, f.name))
		}
	}
	if c.VectorizerFile != "" && c.VectorizerFile == c.ClassifierFile {
		errs = append(errs, fmt.Errorf("artifact file names must differ, both are %q", c.VectorizerFile))
	}

	if c.FetchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("fetch timeout (PHRASEFIT_FETCH_TIMEOUT_SEC) must be > 0, got %v", c.FetchTimeout))
	}

	m := c.Model
	if m.NgramMin < 1 || m.NgramMax < m.NgramMin {
		errs = append(errs, fmt.Errorf("ngram range must satisfy 1 <= min <= max, got (%d, %d)", m.NgramMin, m.NgramMax))
	}
	if m.MaxFeatures < 0 {
		errs = append(errs, fmt.Errorf("max features must be >= 0, got %d", m.MaxFeatures))
	}
	if m.MaxIter < 1 {
		errs = append(errs, fmt.Errorf("max iter must be >= 1, got %d", m.MaxIter))
	}
	if !(m.C > 0) || math.IsInf(m.C, 1) {
		errs = append(errs, fmt.Errorf("regularization C must be positive and finite, got %v", m.C))
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log format must be text or json, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getenvInt returns the integer value of key, or fallback when unset. A value
// that does not parse is recorded in errs and fallback is returned.
func getenvInt(key string, fallback int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return fallback
	}
	return n
}

// getenvFloat is getenvInt for float64 values.
func getenvFloat(key string, fallback float64, errs *[]error) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not a number", key, v))
		return fallback
	}
	return f
}
