package tensor

import (
	"gonum.org/v1/gonum/mat"
)

// matMulData multiplies an m-by-k matrix by a k-by-n matrix, both in
// row-major order, delegating to gonum's BLAS-backed kernels.
func matMulData(a []float64, m, k int, b []float64, n int) []float64 {
	am := mat.NewDense(m, k, a)
	bm := mat.NewDense(k, n, b)
	var out mat.Dense
	out.Mul(am, bm)

	result := make([]float64, m*n)
	copy(result, out.RawMatrix().Data)
	return result
}

// matMulTransA computes aᵀ·b where a is m-by-k (so aᵀ is k-by-m) and b
// is m-by-n, producing a k-by-n result.
func matMulTransA(a []float64, m, k int, b []float64, n int) []float64 {
	am := mat.NewDense(m, k, a)
	bm := mat.NewDense(m, n, b)
	var out mat.Dense
	out.Mul(am.T(), bm)

	result := make([]float64, k*n)
	copy(result, out.RawMatrix().Data)
	return result
}

// matMulTransB computes a·bᵀ where a is m-by-k and b is n-by-k (so bᵀ
// is k-by-n), producing an m-by-n result.
func matMulTransB(a []float64, m, k int, b []float64, n int) []float64 {
	am := mat.NewDense(m, k, a)
	bm := mat.NewDense(n, k, b)
	var out mat.Dense
	out.Mul(am, bm.T())

	result := make([]float64, m*n)
	copy(result, out.RawMatrix().Data)
	return result
}
