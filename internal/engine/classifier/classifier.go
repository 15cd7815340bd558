package classifier

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/crimson-sun/phrasefit/internal/model"
)

// Defaults for the training job: L2 strength 1/C with C = 1, at most 1000
// solver iterations, seed 0.
const (
	DefaultC           = 1.0
	DefaultMaxIter     = 1000
	DefaultTol         = 1e-4
	DefaultRandomState = 0
)

var (
	// ErrNotFitted is returned when predicting before Fit.
	ErrNotFitted = errors.New("classifier: not fitted")
	// ErrSingleClass is returned when the labels hold fewer than two classes.
	ErrSingleClass = errors.New("classifier: need samples of at least 2 classes")
)

// Option configures a Classifier.
type Option func(*Classifier)

// WithC sets the inverse regularization strength. Default: 1.0.
func WithC(c float64) Option {
	return func(cl *Classifier) { cl.c = c }
}

// WithMaxIter caps the number of solver iterations. Default: 1000.
func WithMaxIter(n int) Option {
	return func(cl *Classifier) { cl.maxIter = n }
}

// WithTol sets the gradient threshold at which the solver stops. Default: 1e-4.
func WithTol(tol float64) Option {
	return func(cl *Classifier) { cl.tol = tol }
}

// WithRandomState records the seed. The L-BFGS solver starts from zero
// weights and is deterministic, so the seed does not change the result.
func WithRandomState(seed int64) Option {
	return func(cl *Classifier) { cl.randomState = seed }
}

// Report summarizes a solver run.
type Report struct {
	Iterations      int
	FuncEvaluations int
	Loss            float64
	Status          string
	Converged       bool
}

// Classifier is an L2-regularized logistic-regression model. With two
// classes it holds one coefficient row whose positive class is Classes()[1];
// with more it is a multinomial (softmax) model with one row per class.
type Classifier struct {
	c           float64
	maxIter     int
	tol         float64
	randomState int64

	classes   []int
	coef      *mat.Dense // [rows, features]
	intercept []float64
	nIter     int
	converged bool
}

// New creates an unfitted Classifier.
func New(opts ...Option) (*Classifier, error) {
	cl := &Classifier{
		c:           DefaultC,
		maxIter:     DefaultMaxIter,
		tol:         DefaultTol,
		randomState: DefaultRandomState,
	}
	for _, opt := range opts {
		opt(cl)
	}
	if cl.c <= 0 || math.IsNaN(cl.c) || math.IsInf(cl.c, 0) {
		return nil, fmt.Errorf("classifier: C must be positive and finite, got %v", cl.c)
	}
	if cl.maxIter < 1 {
		return nil, fmt.Errorf("classifier: max iterations must be >= 1, got %d", cl.maxIter)
	}
	if cl.tol <= 0 {
		return nil, fmt.Errorf("classifier: tolerance must be positive, got %v", cl.tol)
	}
	return cl, nil
}

// Fit trains the model on the rows of x with labels y.
//
// Hitting the iteration cap is not an error: a warning is logged, the best
// parameters found are kept and Report.Converged is false.
func (cl *Classifier) Fit(x *model.Matrix, y []int) (Report, error) {
	if cl.coef != nil {
		return Report{}, errors.New("classifier: already fitted")
	}
	if x.Rows() != len(y) {
		return Report{}, fmt.Errorf("classifier: x has %d rows but y has %d labels", x.Rows(), len(y))
	}
	if len(y) == 0 {
		return Report{}, errors.New("classifier: no samples")
	}
	if x.Cols() == 0 {
		return Report{}, errors.New("classifier: no features")
	}

	classes := distinct(y)
	if len(classes) < 2 {
		return Report{}, ErrSingleClass
	}

	obj := newObjective(x, y, classes, cl.c)
	problem := optimize.Problem{
		Func: func(p []float64) float64 { return obj.eval(p, nil) },
		Grad: func(grad, p []float64) { obj.eval(p, grad) },
	}
	settings := &optimize.Settings{
		MajorIterations:   cl.maxIter,
		GradientThreshold: cl.tol,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-14,
			Iterations: 20,
		},
	}

	res, err := optimize.Minimize(problem, make([]float64, obj.dim()), settings, &optimize.LBFGS{})
	if res == nil || res.X == nil {
		if err == nil {
			err = errors.New("no result")
		}
		return Report{}, fmt.Errorf("classifier: optimize: %w", err)
	}

	report := Report{
		Iterations:      res.Stats.MajorIterations,
		FuncEvaluations: res.Stats.FuncEvaluations,
		Loss:            res.F,
		Status:          res.Status.String(),
		Converged:       err == nil && res.Status != optimize.IterationLimit,
	}
	if !report.Converged {
		attrs := []any{"iterations", report.Iterations, "status", report.Status}
		if err != nil {
			attrs = append(attrs, "error", err)
		}
		slog.Warn("logistic regression did not converge; keeping best parameters", attrs...)
	}

	rows, features := obj.rows, x.Cols()
	coef := mat.NewDense(rows, features, nil)
	for k := 0; k < rows; k++ {
		coef.SetRow(k, res.X[k*features:(k+1)*features])
	}

	cl.classes = classes
	cl.coef = coef
	cl.intercept = append([]float64(nil), res.X[rows*features:]...)
	cl.nIter = report.Iterations
	cl.converged = report.Converged
	return report, nil
}

// DecisionFunction returns the linear scores, one row per sample and one
// column per coefficient row.
func (cl *Classifier) DecisionFunction(x *model.Matrix) (*mat.Dense, error) {
	if cl.coef == nil {
		return nil, ErrNotFitted
	}
	rows, features := cl.coef.Dims()
	if x.Cols() != features {
		return nil, fmt.Errorf("classifier: x has %d features, model expects %d", x.Cols(), features)
	}
	if x.Rows() == 0 {
		return nil, nil
	}
	scores := mat.NewDense(x.Rows(), rows, nil)
	for i := 0; i < x.Rows(); i++ {
		for k := 0; k < rows; k++ {
			scores.Set(i, k, cl.intercept[k]+x.DotRow(i, cl.coef.RawRowView(k)))
		}
	}
	return scores, nil
}

// PredictProba returns class probabilities, one column per class in
// Classes() order.
func (cl *Classifier) PredictProba(x *model.Matrix) (*mat.Dense, error) {
	scores, err := cl.DecisionFunction(x)
	if err != nil || scores == nil {
		return nil, err
	}
	n, _ := scores.Dims()
	proba := mat.NewDense(n, len(cl.classes), nil)
	for i := 0; i < n; i++ {
		row := scores.RawRowView(i)
		if len(row) == 1 {
			p := sigmoid(row[0])
			proba.Set(i, 0, 1-p)
			proba.Set(i, 1, p)
			continue
		}
		lse := floats.LogSumExp(row)
		for k, z := range row {
			proba.Set(i, k, math.Exp(z-lse))
		}
	}
	return proba, nil
}

// Predict returns the most probable class label for each row of x.
func (cl *Classifier) Predict(x *model.Matrix) ([]int, error) {
	scores, err := cl.DecisionFunction(x)
	if err != nil || scores == nil {
		return nil, err
	}
	n, _ := scores.Dims()
	labels := make([]int, n)
	for i := range labels {
		row := scores.RawRowView(i)
		if len(row) == 1 {
			if row[0] > 0 {
				labels[i] = cl.classes[1]
			} else {
				labels[i] = cl.classes[0]
			}
			continue
		}
		labels[i] = cl.classes[floats.MaxIdx(row)]
	}
	return labels, nil
}

// Fitted reports whether Fit has completed.
func (cl *Classifier) Fitted() bool { return cl.coef != nil }

// Classes returns the sorted class labels.
func (cl *Classifier) Classes() []int { return append([]int(nil), cl.classes...) }

// Coef returns a copy of the coefficient matrix.
func (cl *Classifier) Coef() *mat.Dense {
	if cl.coef == nil {
		return nil
	}
	return mat.DenseCopyOf(cl.coef)
}

// Features returns the input width the model was fitted on, or 0 before Fit.
func (cl *Classifier) Features() int {
	if cl.coef == nil {
		return 0
	}
	_, c := cl.coef.Dims()
	return c
}

// Intercept returns the per-row intercepts.
func (cl *Classifier) Intercept() []float64 { return append([]float64(nil), cl.intercept...) }

// Converged reports whether the last fit stopped before the iteration cap.
func (cl *Classifier) Converged() bool { return cl.converged }

// Iterations returns the solver iterations used by the last fit.
func (cl *Classifier) Iterations() int { return cl.nIter }

func distinct(y []int) []int {
	seen := make(map[int]struct{})
	var out []int
	for _, v := range y {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// softplus computes log(1 + exp(z)) without overflow.
func softplus(z float64) float64 {
	return math.Max(z, 0) + math.Log1p(math.Exp(-math.Abs(z)))
}
