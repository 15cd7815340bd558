package classifier

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/crimson-sun/phrasefit/internal/model"
)

// objective is the mean log-loss plus ||W||^2 / (2*C*n). Parameters are
// laid out as the row-major weights [rows*features] followed by one
// intercept per row; intercepts are not penalized.
type objective struct {
	x        *model.Matrix
	rows     int       // 1 for binary, else number of classes
	features int
	target   []float64 // binary: 1 for the positive class, else 0
	classIdx []int     // multinomial: index of each sample's class
	alpha    float64   // 1 / (C*n)
}

func newObjective(x *model.Matrix, y []int, classes []int, c float64) *objective {
	o := &objective{
		x:        x,
		features: x.Cols(),
		alpha:    1 / (c * float64(len(y))),
	}
	index := make(map[int]int, len(classes))
	for k, cls := range classes {
		index[cls] = k
	}
	if len(classes) == 2 {
		o.rows = 1
		o.target = make([]float64, len(y))
		for i, v := range y {
			o.target[i] = float64(index[v])
		}
	} else {
		o.rows = len(classes)
		o.classIdx = make([]int, len(y))
		for i, v := range y {
			o.classIdx[i] = index[v]
		}
	}
	return o
}

func (o *objective) dim() int { return o.rows * (o.features + 1) }

// eval returns the objective at p and, when grad is non-nil, stores its
// gradient in grad.
func (o *objective) eval(p, grad []float64) float64 {
	nw := o.rows * o.features
	w, b := p[:nw], p[nw:]
	var gw, gb []float64
	if grad != nil {
		for i := range grad {
			grad[i] = 0
		}
		gw, gb = grad[:nw], grad[nw:]
	}

	n := o.x.Rows()
	z := make([]float64, o.rows)
	residual := make([]float64, o.rows)
	var loss float64
	for i := 0; i < n; i++ {
		for k := range z {
			z[k] = b[k] + o.x.DotRow(i, w[k*o.features:(k+1)*o.features])
		}

		if o.rows == 1 {
			loss += softplus(z[0]) - o.target[i]*z[0]
			residual[0] = sigmoid(z[0]) - o.target[i]
		} else {
			lse := floats.LogSumExp(z)
			loss += lse - z[o.classIdx[i]]
			for k := range residual {
				residual[k] = math.Exp(z[k] - lse)
			}
			residual[o.classIdx[i]]--
		}

		if grad == nil {
			continue
		}
		idx, val := o.x.Row(i)
		for k, r := range residual {
			if r == 0 {
				continue
			}
			gb[k] += r
			row := gw[k*o.features : (k+1)*o.features]
			for t, j := range idx {
				row[j] += r * val[t]
			}
		}
	}

	invN := 1 / float64(n)
	loss = loss*invN + 0.5*o.alpha*floats.Dot(w, w)
	if grad != nil {
		floats.Scale(invN, grad)
		floats.AddScaled(gw, o.alpha, w)
	}
	return loss
}
