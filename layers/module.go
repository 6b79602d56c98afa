package layers

import (
	"fmt"
	"math"
	"math/rand"

	"recurrent-gan/tensor"
)

// Module is the interface shared by all network layers.
type Module interface {
	Forward(input *tensor.Tensor) (*tensor.Tensor, error)
	Parameters() []*tensor.Tensor
}

// Activation identifies the nonlinearity applied by a Dense layer.
type Activation int

const (
	ActNone Activation = iota
	ActTanh
	ActSigmoid
)

func (a Activation) String() string {
	switch a {
	case ActNone:
		return "linear"
	case ActTanh:
		return "tanh"
	case ActSigmoid:
		return "sigmoid"
	default:
		return "unknown"
	}
}

// glorotUniform draws from U(-sqrt(6/(fanIn+fanOut)), +sqrt(...)).
func glorotUniform(shape []int, fanIn, fanOut int, rng *rand.Rand) (*tensor.Tensor, error) {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))
	return tensor.RandUniform(shape, -bound, bound, rng)
}

// glorotNormal draws from N(0, 2/(fanIn+fanOut)).
func glorotNormal(shape []int, fanIn, fanOut int, rng *rand.Rand) (*tensor.Tensor, error) {
	stddev := math.Sqrt(2.0 / float64(fanIn+fanOut))
	t, err := tensor.Randn(shape, rng)
	if err != nil {
		return nil, err
	}
	for i := range t.Data {
		t.Data[i] *= stddev
	}
	return t, nil
}

// Dense is a fully connected layer with an optional activation:
// y = act(xW + b).
type Dense struct {
	weight     *tensor.Tensor
	bias       *tensor.Tensor
	activation Activation
}

// NewDense creates a Dense layer with Glorot-uniform weights and zero
// bias, drawing from the provided source.
func NewDense(inputSize, outputSize int, activation Activation, rng *rand.Rand) (*Dense, error) {
	if inputSize <= 0 || outputSize <= 0 {
		return nil, fmt.Errorf("dense layer requires positive sizes, got %d and %d", inputSize, outputSize)
	}

	weight, err := glorotUniform([]int{inputSize, outputSize}, inputSize, outputSize, rng)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize dense weights: %v", err)
	}
	weight.SetRequiresGrad(true)

	bias, err := tensor.Zeros([]int{outputSize})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize dense bias: %v", err)
	}
	bias.SetRequiresGrad(true)

	return &Dense{weight: weight, bias: bias, activation: activation}, nil
}

// Forward computes act(input·W + b) for a [batch, inputSize] tensor.
func (d *Dense) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if len(input.Shape) != 2 {
		return nil, fmt.Errorf("dense layer expects 2D input, got shape %v", input.Shape)
	}
	if input.Shape[1] != d.weight.Shape[0] {
		return nil, fmt.Errorf("dense input size mismatch: expected %d, got %d", d.weight.Shape[0], input.Shape[1])
	}

	out, err := tensor.MatMul(input, d.weight)
	if err != nil {
		return nil, fmt.Errorf("dense projection failed: %v", err)
	}
	out, err = tensor.Add(out, d.bias)
	if err != nil {
		return nil, fmt.Errorf("dense bias addition failed: %v", err)
	}

	switch d.activation {
	case ActTanh:
		out = tensor.Tanh(out)
	case ActSigmoid:
		out = tensor.Sigmoid(out)
	}
	return out, nil
}

// OutputSize returns the layer's output width.
func (d *Dense) OutputSize() int {
	return d.weight.Shape[1]
}

// Parameters returns the trainable parameters.
func (d *Dense) Parameters() []*tensor.Tensor {
	return []*tensor.Tensor{d.weight, d.bias}
}

// TimeDistributed applies an inner Dense layer independently at every
// timestep of a [batch, steps, features] sequence.
type TimeDistributed struct {
	inner *Dense
}

// NewTimeDistributed wraps a Dense layer for per-timestep application.
func NewTimeDistributed(inner *Dense) *TimeDistributed {
	return &TimeDistributed{inner: inner}
}

// Forward maps [batch, steps, in] to [batch, steps, out].
func (td *TimeDistributed) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if len(input.Shape) != 3 {
		return nil, fmt.Errorf("time distributed layer expects 3D input, got shape %v", input.Shape)
	}

	batch, steps, features := input.Shape[0], input.Shape[1], input.Shape[2]
	flat, err := tensor.Reshape(input, []int{batch * steps, features})
	if err != nil {
		return nil, fmt.Errorf("time distributed flatten failed: %v", err)
	}

	out, err := td.inner.Forward(flat)
	if err != nil {
		return nil, fmt.Errorf("time distributed inner forward failed: %v", err)
	}

	return tensor.Reshape(out, []int{batch, steps, td.inner.OutputSize()})
}

// Parameters returns the inner layer's parameters.
func (td *TimeDistributed) Parameters() []*tensor.Tensor {
	return td.inner.Parameters()
}

// Embedding maps integer class ids to dense vectors.
type Embedding struct {
	table *tensor.Tensor
}

// NewEmbedding creates a [vocabSize, dim] lookup table with
// Glorot-normal initialization.
func NewEmbedding(vocabSize, dim int, rng *rand.Rand) (*Embedding, error) {
	if vocabSize <= 0 || dim <= 0 {
		return nil, fmt.Errorf("embedding requires positive sizes, got %d and %d", vocabSize, dim)
	}

	table, err := glorotNormal([]int{vocabSize, dim}, vocabSize, dim, rng)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding table: %v", err)
	}
	table.SetRequiresGrad(true)

	return &Embedding{table: table}, nil
}

// Forward looks up the rows for a [batch] or [batch, 1] id tensor,
// returning [batch, dim].
func (e *Embedding) Forward(ids *tensor.Tensor) (*tensor.Tensor, error) {
	out, err := tensor.Gather(e.table, ids)
	if err != nil {
		return nil, fmt.Errorf("embedding lookup failed: %v", err)
	}
	return out, nil
}

// Dim returns the embedding width.
func (e *Embedding) Dim() int {
	return e.table.Shape[1]
}

// Parameters returns the embedding table.
func (e *Embedding) Parameters() []*tensor.Tensor {
	return []*tensor.Tensor{e.table}
}
