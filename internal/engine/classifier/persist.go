package classifier

import (
	"fmt"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/crimson-sun/phrasefit/internal/artifact"
)

const (
	artifactKind    = "phrasefit.classifier"
	artifactVersion = "1"
)

// Artifact encodes the fitted model as "coef" [rows, features], "intercept"
// [rows] and "classes" [classes] tensors, with the solver settings and
// outcome as metadata.
func (cl *Classifier) Artifact() (*artifact.File, error) {
	if !cl.Fitted() {
		return nil, ErrNotFitted
	}
	rows, features := cl.coef.Dims()
	weights := make([]float64, 0, rows*features)
	for k := 0; k < rows; k++ {
		weights = append(weights, cl.coef.RawRowView(k)...)
	}
	classes := make([]int64, len(cl.classes))
	for i, c := range cl.classes {
		classes[i] = int64(c)
	}

	f := artifact.New(artifactKind, artifactVersion)
	f.Metadata["C"] = strconv.FormatFloat(cl.c, 'g', -1, 64)
	f.Metadata["max_iter"] = strconv.Itoa(cl.maxIter)
	f.Metadata["tol"] = strconv.FormatFloat(cl.tol, 'g', -1, 64)
	f.Metadata["random_state"] = strconv.FormatInt(cl.randomState, 10)
	f.Metadata["n_iter"] = strconv.Itoa(cl.nIter)
	f.Metadata["converged"] = strconv.FormatBool(cl.converged)
	f.Tensors["coef"] = artifact.NewF64([]int{rows, features}, weights)
	f.Tensors["intercept"] = artifact.NewF64([]int{rows}, cl.intercept)
	f.Tensors["classes"] = artifact.NewI64([]int{len(classes)}, classes)
	return f, nil
}

// Save writes the fitted classifier to path, replacing any existing file.
func (cl *Classifier) Save(path string) error {
	f, err := cl.Artifact()
	if err != nil {
		return err
	}
	if err := artifact.WriteFile(path, f); err != nil {
		return fmt.Errorf("classifier: %w", err)
	}
	return nil
}

// FromArtifact reconstructs a fitted classifier from its artifact form.
func FromArtifact(f *artifact.File) (*Classifier, error) {
	if err := f.Expect(artifactKind, artifactVersion); err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}

	c, err1 := strconv.ParseFloat(f.Metadata["C"], 64)
	maxIter, err2 := strconv.Atoi(f.Metadata["max_iter"])
	tol, err3 := strconv.ParseFloat(f.Metadata["tol"], 64)
	seed, err4 := strconv.ParseInt(f.Metadata["random_state"], 10, 64)
	nIter, err5 := strconv.Atoi(f.Metadata["n_iter"])
	converged, err6 := strconv.ParseBool(f.Metadata["converged"])
	for _, err := range []error{err1, err2, err3, err4, err5, err6} {
		if err != nil {
			return nil, fmt.Errorf("classifier: %w: bad metadata: %v", artifact.ErrFormat, err)
		}
	}
	cl, err := New(WithC(c), WithMaxIter(maxIter), WithTol(tol), WithRandomState(seed))
	if err != nil {
		return nil, err
	}

	coefT, err := f.Tensor("coef", artifact.F64, 2)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	interceptT, err := f.Tensor("intercept", artifact.F64, 1)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	classesT, err := f.Tensor("classes", artifact.I64, 1)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}

	rows, features := coefT.Shape[0], coefT.Shape[1]
	nClasses := classesT.Shape[0]
	wantRows := nClasses
	if nClasses == 2 {
		wantRows = 1
	}
	if nClasses < 2 || rows != wantRows || features < 1 || interceptT.Shape[0] != rows {
		return nil, fmt.Errorf("classifier: %w: coef %v, intercept %v, classes %v do not agree",
			artifact.ErrFormat, coefT.Shape, interceptT.Shape, classesT.Shape)
	}

	weights, err := coefT.Float64s()
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	intercept, err := interceptT.Float64s()
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	classes64, err := classesT.Int64s()
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	classes := make([]int, len(classes64))
	for i, v := range classes64 {
		classes[i] = int(v)
		if i > 0 && classes[i] <= classes[i-1] {
			return nil, fmt.Errorf("classifier: %w: classes not strictly increasing", artifact.ErrFormat)
		}
	}

	cl.classes = classes
	cl.coef = mat.NewDense(rows, features, weights)
	cl.intercept = intercept
	cl.nIter = nIter
	cl.converged = converged
	return cl, nil
}

// Load reads a fitted classifier from path.
func Load(path string) (*Classifier, error) {
	f, err := artifact.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	return FromArtifact(f)
}
