package model

import "fmt"

// Matrix is a row-compressed sparse float64 matrix. Row i owns the entries
// indices[indptr[i]:indptr[i+1]], with column indices strictly increasing.
type Matrix struct {
	rows, cols int
	indptr     []int
	indices    []int
	values     []float64
}

// NewMatrix creates an empty matrix with the given number of columns.
// Rows are added with AppendRow.
func NewMatrix(cols int) *Matrix {
	return &Matrix{cols: cols, indptr: []int{0}}
}

// AppendRow adds a row. idx must be strictly increasing and within [0, cols).
func (m *Matrix) AppendRow(idx []int, val []float64) error {
	if len(idx) != len(val) {
		return fmt.Errorf("matrix: row has %d indices but %d values", len(idx), len(val))
	}
	for k, j := range idx {
		if j < 0 || j >= m.cols {
			return fmt.Errorf("matrix: column %d out of range [0, %d)", j, m.cols)
		}
		if k > 0 && idx[k-1] >= j {
			return fmt.Errorf("matrix: column indices not increasing at %d", k)
		}
	}
	m.indices = append(m.indices, idx...)
	m.values = append(m.values, val...)
	m.indptr = append(m.indptr, len(m.indices))
	m.rows++
	return nil
}

// Rows returns the number of rows.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the number of columns.
func (m *Matrix) Cols() int { return m.cols }

// NNZ returns the number of stored entries.
func (m *Matrix) NNZ() int { return len(m.values) }

// Row returns the column indices and values of row i. The slices alias the
// matrix storage and must not be modified.
func (m *Matrix) Row(i int) ([]int, []float64) {
	lo, hi := m.indptr[i], m.indptr[i+1]
	return m.indices[lo:hi], m.values[lo:hi]
}

// At returns the value at (i, j), zero when the entry is not stored.
func (m *Matrix) At(i, j int) float64 {
	idx, val := m.Row(i)
	for k, c := range idx {
		if c == j {
			return val[k]
		}
		if c > j {
			break
		}
	}
	return 0
}

// DotRow returns the dot product of row i with the dense vector w.
func (m *Matrix) DotRow(i int, w []float64) float64 {
	idx, val := m.Row(i)
	var sum float64
	for k, j := range idx {
		sum += val[k] * w[j]
	}
	return sum
}
