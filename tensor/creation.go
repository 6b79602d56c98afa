package tensor

import (
	"math/rand"
)

// Zeros creates a tensor filled with zeros.
func Zeros(shape []int) (*Tensor, error) {
	if err := validateShape(shape); err != nil {
		return nil, err
	}
	return NewTensor(shape, make([]float64, calculateNumElements(shape)))
}

// Ones creates a tensor filled with ones.
func Ones(shape []int) (*Tensor, error) {
	if err := validateShape(shape); err != nil {
		return nil, err
	}
	data := make([]float64, calculateNumElements(shape))
	for i := range data {
		data[i] = 1
	}
	return NewTensor(shape, data)
}

// Full creates a tensor filled with the given value.
func Full(shape []int, value float64) (*Tensor, error) {
	if err := validateShape(shape); err != nil {
		return nil, err
	}
	data := make([]float64, calculateNumElements(shape))
	for i := range data {
		data[i] = value
	}
	return NewTensor(shape, data)
}

// FromScalar creates a single-element tensor holding value.
func FromScalar(value float64) *Tensor {
	t, _ := NewTensor([]int{1}, []float64{value})
	return t
}

// Randn creates a tensor with values drawn from a standard normal
// distribution using the provided source.
func Randn(shape []int, rng *rand.Rand) (*Tensor, error) {
	if err := validateShape(shape); err != nil {
		return nil, err
	}
	data := make([]float64, calculateNumElements(shape))
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	return NewTensor(shape, data)
}

// RandUniform creates a tensor with values drawn uniformly from
// [low, high) using the provided source.
func RandUniform(shape []int, low, high float64, rng *rand.Rand) (*Tensor, error) {
	if err := validateShape(shape); err != nil {
		return nil, err
	}
	data := make([]float64, calculateNumElements(shape))
	for i := range data {
		data[i] = low + rng.Float64()*(high-low)
	}
	return NewTensor(shape, data)
}
