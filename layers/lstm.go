package layers

import (
	"fmt"
	"math/rand"

	"recurrent-gan/tensor"
)

// RecurrentCore processes a [batch, steps, features] sequence. The aux
// tensor carries the conditioning signal demanded by the wrapping
// attention mode; a bare LSTM rejects one.
type RecurrentCore interface {
	Forward(seq *tensor.Tensor, aux *tensor.Tensor) (*tensor.Tensor, error)
	Parameters() []*tensor.Tensor
	InputSize() int
	HiddenSize() int
	ReturnSequences() bool
}

// LSTM is a single-layer long short-term memory core using fused gate
// weights: z = x·Wx + h·Wh + b, split into input, forget, cell and
// output gates.
type LSTM struct {
	inputSize       int
	hiddenSize      int
	returnSequences bool

	wx   *tensor.Tensor // [inputSize, 4*hiddenSize]
	wh   *tensor.Tensor // [hiddenSize, 4*hiddenSize]
	bias *tensor.Tensor // [4*hiddenSize]
}

// NewLSTM creates an LSTM core. When returnSequences is true Forward
// yields the full hidden sequence, otherwise only the final state.
func NewLSTM(inputSize, hiddenSize int, returnSequences bool, rng *rand.Rand) (*LSTM, error) {
	if inputSize <= 0 || hiddenSize <= 0 {
		return nil, fmt.Errorf("lstm requires positive sizes, got %d and %d", inputSize, hiddenSize)
	}

	wx, err := glorotUniform([]int{inputSize, 4 * hiddenSize}, inputSize, hiddenSize, rng)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize lstm input weights: %v", err)
	}
	wx.SetRequiresGrad(true)

	wh, err := glorotUniform([]int{hiddenSize, 4 * hiddenSize}, hiddenSize, hiddenSize, rng)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize lstm recurrent weights: %v", err)
	}
	wh.SetRequiresGrad(true)

	bias, err := tensor.Zeros([]int{4 * hiddenSize})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize lstm bias: %v", err)
	}
	// Unit forget-gate bias keeps gradients alive early in training.
	for i := hiddenSize; i < 2*hiddenSize; i++ {
		bias.Data[i] = 1
	}
	bias.SetRequiresGrad(true)

	return &LSTM{
		inputSize:       inputSize,
		hiddenSize:      hiddenSize,
		returnSequences: returnSequences,
		wx:              wx,
		wh:              wh,
		bias:            bias,
	}, nil
}

// Step advances the recurrence by one timestep, returning the new
// hidden and cell states.
func (l *LSTM) Step(x, h, c *tensor.Tensor) (*tensor.Tensor, *tensor.Tensor, error) {
	if x.Shape[1] != l.inputSize {
		return nil, nil, fmt.Errorf("lstm step input size mismatch: expected %d, got %d", l.inputSize, x.Shape[1])
	}

	zx, err := tensor.MatMul(x, l.wx)
	if err != nil {
		return nil, nil, fmt.Errorf("lstm input projection failed: %v", err)
	}
	zh, err := tensor.MatMul(h, l.wh)
	if err != nil {
		return nil, nil, fmt.Errorf("lstm recurrent projection failed: %v", err)
	}
	z, err := tensor.Add(zx, zh)
	if err != nil {
		return nil, nil, fmt.Errorf("lstm gate sum failed: %v", err)
	}
	z, err = tensor.Add(z, l.bias)
	if err != nil {
		return nil, nil, fmt.Errorf("lstm bias addition failed: %v", err)
	}

	hs := l.hiddenSize
	iGate, err := tensor.SliceCols(z, 0, hs)
	if err != nil {
		return nil, nil, err
	}
	fGate, err := tensor.SliceCols(z, hs, 2*hs)
	if err != nil {
		return nil, nil, err
	}
	gGate, err := tensor.SliceCols(z, 2*hs, 3*hs)
	if err != nil {
		return nil, nil, err
	}
	oGate, err := tensor.SliceCols(z, 3*hs, 4*hs)
	if err != nil {
		return nil, nil, err
	}

	i := tensor.Sigmoid(iGate)
	f := tensor.Sigmoid(fGate)
	g := tensor.Tanh(gGate)
	o := tensor.Sigmoid(oGate)

	fc, err := tensor.Mul(f, c)
	if err != nil {
		return nil, nil, err
	}
	ig, err := tensor.Mul(i, g)
	if err != nil {
		return nil, nil, err
	}
	cNew, err := tensor.Add(fc, ig)
	if err != nil {
		return nil, nil, err
	}

	hNew, err := tensor.Mul(o, tensor.Tanh(cNew))
	if err != nil {
		return nil, nil, err
	}

	return hNew, cNew, nil
}

// Forward runs the recurrence over a [batch, steps, inputSize] sequence.
// A bare LSTM takes no auxiliary input.
func (l *LSTM) Forward(seq *tensor.Tensor, aux *tensor.Tensor) (*tensor.Tensor, error) {
	if aux != nil {
		return nil, fmt.Errorf("lstm core takes no auxiliary input")
	}
	if len(seq.Shape) != 3 {
		return nil, fmt.Errorf("lstm expects 3D input, got shape %v", seq.Shape)
	}

	batch, steps := seq.Shape[0], seq.Shape[1]
	h, err := tensor.Zeros([]int{batch, l.hiddenSize})
	if err != nil {
		return nil, err
	}
	c, err := tensor.Zeros([]int{batch, l.hiddenSize})
	if err != nil {
		return nil, err
	}

	var hidden []*tensor.Tensor
	for t := 0; t < steps; t++ {
		x, err := tensor.SelectStep(seq, t)
		if err != nil {
			return nil, err
		}
		h, c, err = l.Step(x, h, c)
		if err != nil {
			return nil, fmt.Errorf("lstm step %d failed: %v", t, err)
		}
		if l.returnSequences {
			hidden = append(hidden, h)
		}
	}

	if l.returnSequences {
		return tensor.StackSteps(hidden)
	}
	return h, nil
}

// InputSize returns the per-step input width.
func (l *LSTM) InputSize() int { return l.inputSize }

// HiddenSize returns the hidden state width.
func (l *LSTM) HiddenSize() int { return l.hiddenSize }

// ReturnSequences reports whether Forward yields the full sequence.
func (l *LSTM) ReturnSequences() bool { return l.returnSequences }

// Parameters returns the trainable parameters.
func (l *LSTM) Parameters() []*tensor.Tensor {
	return []*tensor.Tensor{l.wx, l.wh, l.bias}
}
