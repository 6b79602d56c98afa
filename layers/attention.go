package layers

import (
	"fmt"
	"math/rand"

	"recurrent-gan/tensor"
)

// RecurrentAttention1D conditions every timestep of the wrapped core on
// a fixed auxiliary vector by appending it to each step's input. The
// core's input size must account for the appended width.
type RecurrentAttention1D struct {
	core *LSTM
}

// NewRecurrentAttention1D wraps an LSTM core for fixed-vector
// conditioning.
func NewRecurrentAttention1D(core *LSTM) *RecurrentAttention1D {
	return &RecurrentAttention1D{core: core}
}

// Forward runs the core over seq with aux appended to every timestep.
func (ra *RecurrentAttention1D) Forward(seq *tensor.Tensor, aux *tensor.Tensor) (*tensor.Tensor, error) {
	if aux == nil {
		return nil, fmt.Errorf("1d attention requires an auxiliary vector")
	}
	if len(seq.Shape) != 3 {
		return nil, fmt.Errorf("1d attention expects 3D input, got shape %v", seq.Shape)
	}
	if len(aux.Shape) != 2 || aux.Shape[0] != seq.Shape[0] {
		return nil, fmt.Errorf("1d attention auxiliary shape %v does not match batch %d", aux.Shape, seq.Shape[0])
	}
	if seq.Shape[2]+aux.Shape[1] != ra.core.InputSize() {
		return nil, fmt.Errorf("1d attention width mismatch: core expects %d, got %d+%d",
			ra.core.InputSize(), seq.Shape[2], aux.Shape[1])
	}

	steps := seq.Shape[1]
	conditioned := make([]*tensor.Tensor, 0, steps)
	for t := 0; t < steps; t++ {
		x, err := tensor.SelectStep(seq, t)
		if err != nil {
			return nil, err
		}
		xc, err := tensor.Concat(x, aux)
		if err != nil {
			return nil, fmt.Errorf("1d attention conditioning failed at step %d: %v", t, err)
		}
		conditioned = append(conditioned, xc)
	}

	stacked, err := tensor.StackSteps(conditioned)
	if err != nil {
		return nil, err
	}
	return ra.core.Forward(stacked, nil)
}

// InputSize returns the conditioned per-step width the core consumes.
func (ra *RecurrentAttention1D) InputSize() int {
	return ra.core.InputSize()
}

// HiddenSize returns the wrapped core's hidden width.
func (ra *RecurrentAttention1D) HiddenSize() int { return ra.core.HiddenSize() }

// ReturnSequences reports whether the wrapped core yields the full
// sequence.
func (ra *RecurrentAttention1D) ReturnSequences() bool { return ra.core.ReturnSequences() }

// Parameters returns the wrapped core's parameters.
func (ra *RecurrentAttention1D) Parameters() []*tensor.Tensor {
	return ra.core.Parameters()
}

// RecurrentAttention2D conditions every timestep on a reference
// sequence (image rows). At each step the previous hidden state scores
// the projected reference rows, a softmax turns the scores into
// weights, and the resulting context vector is appended to the step
// input.
type RecurrentAttention2D struct {
	core *LSTM
	proj *tensor.Tensor // [refDim, hiddenSize]
	ones *tensor.Tensor // [hiddenSize, 1] constant used for row dots
}

// NewRecurrentAttention2D wraps an LSTM core with dot-product attention
// over reference rows of the given width.
func NewRecurrentAttention2D(core *LSTM, refDim int, rng *rand.Rand) (*RecurrentAttention2D, error) {
	if refDim <= 0 {
		return nil, fmt.Errorf("2d attention requires positive reference width, got %d", refDim)
	}

	proj, err := glorotUniform([]int{refDim, core.HiddenSize()}, refDim, core.HiddenSize(), rng)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize attention projection: %v", err)
	}
	proj.SetRequiresGrad(true)

	ones, err := tensor.Ones([]int{core.HiddenSize(), 1})
	if err != nil {
		return nil, err
	}

	return &RecurrentAttention2D{core: core, proj: proj, ones: ones}, nil
}

// Forward runs the core over seq, attending to the [batch, rows, refDim]
// reference sequence at every step.
func (ra *RecurrentAttention2D) Forward(seq *tensor.Tensor, ref *tensor.Tensor) (*tensor.Tensor, error) {
	if ref == nil {
		return nil, fmt.Errorf("2d attention requires a reference sequence")
	}
	if len(seq.Shape) != 3 || len(ref.Shape) != 3 {
		return nil, fmt.Errorf("2d attention expects 3D inputs, got %v and %v", seq.Shape, ref.Shape)
	}
	if ref.Shape[0] != seq.Shape[0] {
		return nil, fmt.Errorf("2d attention batch mismatch: %d vs %d", seq.Shape[0], ref.Shape[0])
	}
	if ref.Shape[2] != ra.proj.Shape[0] {
		return nil, fmt.Errorf("2d attention reference width mismatch: expected %d, got %d", ra.proj.Shape[0], ref.Shape[2])
	}
	if seq.Shape[2]+ra.core.HiddenSize() != ra.core.InputSize() {
		return nil, fmt.Errorf("2d attention width mismatch: core expects %d, got %d+%d",
			ra.core.InputSize(), seq.Shape[2], ra.core.HiddenSize())
	}

	batch, steps := seq.Shape[0], seq.Shape[1]
	refRows := ref.Shape[1]

	// Project each reference row into the hidden space once.
	projected := make([]*tensor.Tensor, refRows)
	for j := 0; j < refRows; j++ {
		row, err := tensor.SelectStep(ref, j)
		if err != nil {
			return nil, err
		}
		p, err := tensor.MatMul(row, ra.proj)
		if err != nil {
			return nil, fmt.Errorf("attention projection failed for row %d: %v", j, err)
		}
		projected[j] = tensor.Tanh(p)
	}

	h, err := tensor.Zeros([]int{batch, ra.core.HiddenSize()})
	if err != nil {
		return nil, err
	}
	c, err := tensor.Zeros([]int{batch, ra.core.HiddenSize()})
	if err != nil {
		return nil, err
	}

	var hidden []*tensor.Tensor
	for t := 0; t < steps; t++ {
		context, err := ra.context(h, projected, batch, refRows)
		if err != nil {
			return nil, fmt.Errorf("attention context failed at step %d: %v", t, err)
		}

		x, err := tensor.SelectStep(seq, t)
		if err != nil {
			return nil, err
		}
		xc, err := tensor.Concat(x, context)
		if err != nil {
			return nil, err
		}

		h, c, err = ra.core.Step(xc, h, c)
		if err != nil {
			return nil, fmt.Errorf("lstm step %d failed: %v", t, err)
		}
		if ra.core.ReturnSequences() {
			hidden = append(hidden, h)
		}
	}

	if ra.core.ReturnSequences() {
		return tensor.StackSteps(hidden)
	}
	return h, nil
}

// context computes the attention-weighted sum of the projected rows for
// the current hidden state.
func (ra *RecurrentAttention2D) context(h *tensor.Tensor, projected []*tensor.Tensor, batch, refRows int) (*tensor.Tensor, error) {
	scores := make([]*tensor.Tensor, refRows)
	for j, p := range projected {
		hp, err := tensor.Mul(h, p)
		if err != nil {
			return nil, err
		}
		s, err := tensor.MatMul(hp, ra.ones)
		if err != nil {
			return nil, err
		}
		scores[j] = s
	}

	stacked, err := tensor.StackSteps(scores)
	if err != nil {
		return nil, err
	}
	flat, err := tensor.Reshape(stacked, []int{batch, refRows})
	if err != nil {
		return nil, err
	}
	weights, err := tensor.Softmax(flat)
	if err != nil {
		return nil, err
	}
	weights3, err := tensor.Reshape(weights, []int{batch, refRows, 1})
	if err != nil {
		return nil, err
	}

	var context *tensor.Tensor
	for j, p := range projected {
		w, err := tensor.SelectStep(weights3, j)
		if err != nil {
			return nil, err
		}
		weighted, err := tensor.Mul(p, w)
		if err != nil {
			return nil, err
		}
		if context == nil {
			context = weighted
			continue
		}
		context, err = tensor.Add(context, weighted)
		if err != nil {
			return nil, err
		}
	}
	return context, nil
}

// InputSize returns the core's conditioned per-step input width.
func (ra *RecurrentAttention2D) InputSize() int { return ra.core.InputSize() }

// HiddenSize returns the wrapped core's hidden width.
func (ra *RecurrentAttention2D) HiddenSize() int { return ra.core.HiddenSize() }

// ReturnSequences reports whether the wrapped core yields the full
// sequence.
func (ra *RecurrentAttention2D) ReturnSequences() bool { return ra.core.ReturnSequences() }

// Parameters returns the core parameters plus the projection matrix.
func (ra *RecurrentAttention2D) Parameters() []*tensor.Tensor {
	return append(ra.core.Parameters(), ra.proj)
}
