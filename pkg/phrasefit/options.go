package phrasefit

import "path/filepath"

type options struct {
	modelDir       string
	vectorizerPath string
	classifierPath string
}

// Option configures a Model.
type Option func(*options)

// WithModelDir sets the directory holding the trained artifacts.
// Expects: vectorizer.pkl, clf.pkl.
func WithModelDir(dir string) Option {
	return func(o *options) {
		o.modelDir = dir
	}
}

// WithModelPaths sets explicit paths for both artifacts.
// Use this when the files were written under non-default names.
func WithModelPaths(vectorizer, classifier string) Option {
	return func(o *options) {
		o.vectorizerPath = vectorizer
		o.classifierPath = classifier
	}
}

// resolvePaths determines the artifact paths from the configured options.
// Explicit paths take precedence over modelDir.
func resolvePaths(o options) (vectorizer, classifier string) {
	if o.vectorizerPath != "" || o.classifierPath != "" {
		return o.vectorizerPath, o.classifierPath
	}
	dir := o.modelDir
	if dir == "" {
		dir = "homework"
	}
	return filepath.Join(dir, "vectorizer.pkl"), filepath.Join(dir, "clf.pkl")
}
