package model

import (
	"fmt"
	"math/rand"

	"recurrent-gan/layers"
	"recurrent-gan/tensor"
)

// Discriminator classifies a digit image as real or generated. The
// image is consumed row by row; only the final hidden state feeds the
// sigmoid classification head.
type Discriminator struct {
	spec NetworkSpec
	mode layers.AttentionMode

	embed *layers.Embedding
	core  layers.RecurrentCore
	head  *layers.Dense
}

// BuildDiscriminator constructs a discriminator for the given attention
// mode. All weights are drawn from rng.
func BuildDiscriminator(mode layers.AttentionMode, rng *rand.Rand) (*Discriminator, error) {
	stepWidth := ImageCols + mode.AuxWidth(EmbeddingDim, HiddenSize)
	lstm, err := layers.NewLSTM(stepWidth, HiddenSize, false, rng)
	if err != nil {
		return nil, fmt.Errorf("failed to build discriminator core: %v", err)
	}
	core, err := mode.WrapCore(lstm, ImageCols, rng)
	if err != nil {
		return nil, err
	}

	var embed *layers.Embedding
	if mode == layers.Mode1D {
		embed, err = layers.NewEmbedding(NumClasses, EmbeddingDim, rng)
		if err != nil {
			return nil, fmt.Errorf("failed to build discriminator embedding: %v", err)
		}
	}

	head, err := layers.NewDense(HiddenSize, 1, layers.ActSigmoid, rng)
	if err != nil {
		return nil, fmt.Errorf("failed to build discriminator head: %v", err)
	}

	return &Discriminator{
		spec: buildSpec("discriminator",
			layers.InputSpec{Name: "real_data", Shape: []int{ImageRows, ImageCols, 1}},
			mode, layers.RoleDiscriminator,
			[]int{1}),
		mode:  mode,
		embed: embed,
		core:  core,
		head:  head,
	}, nil
}

// Spec returns the discriminator's declared inputs and output shape.
func (d *Discriminator) Spec() NetworkSpec { return d.spec }

// Mode returns the discriminator's attention mode.
func (d *Discriminator) Mode() layers.AttentionMode { return d.mode }

// Forward scores a [batch, 28, 28, 1] image batch, returning a
// [batch, 1] probability of being real. The aux tensor must be present
// exactly when the mode requires one.
func (d *Discriminator) Forward(image, aux *tensor.Tensor) (*tensor.Tensor, error) {
	if len(image.Shape) != 4 || image.Shape[1] != ImageRows || image.Shape[2] != ImageCols || image.Shape[3] != 1 {
		return nil, fmt.Errorf("discriminator image shape %v, expected [batch, %d, %d, 1]", image.Shape, ImageRows, ImageCols)
	}
	if d.mode.RequiresAux() && aux == nil {
		return nil, fmt.Errorf("discriminator mode %s requires an auxiliary input", d.mode)
	}
	if !d.mode.RequiresAux() && aux != nil {
		return nil, fmt.Errorf("discriminator mode %s takes no auxiliary input", d.mode)
	}

	batch := image.Shape[0]
	rows, err := tensor.Reshape(image, []int{batch, ImageRows, ImageCols})
	if err != nil {
		return nil, fmt.Errorf("image row split failed: %v", err)
	}

	condition, err := d.condition(aux, batch)
	if err != nil {
		return nil, err
	}

	final, err := d.core.Forward(rows, condition)
	if err != nil {
		return nil, fmt.Errorf("discriminator core failed: %v", err)
	}

	pred, err := d.head.Forward(final)
	if err != nil {
		return nil, fmt.Errorf("discriminator head failed: %v", err)
	}
	return pred, nil
}

func (d *Discriminator) condition(aux *tensor.Tensor, batch int) (*tensor.Tensor, error) {
	switch d.mode {
	case layers.Mode1D:
		return d.embed.Forward(aux)
	case layers.Mode2D:
		if len(aux.Shape) != 4 {
			return nil, fmt.Errorf("discriminator reference image shape %v, expected [batch, %d, %d, 1]", aux.Shape, ImageRows, ImageCols)
		}
		return tensor.Reshape(aux, []int{batch, ImageRows, ImageCols})
	default:
		return nil, nil
	}
}

// Parameters returns all trainable parameters.
func (d *Discriminator) Parameters() []*tensor.Tensor {
	params := append([]*tensor.Tensor{}, d.core.Parameters()...)
	params = append(params, d.head.Parameters()...)
	if d.embed != nil {
		params = append(params, d.embed.Parameters()...)
	}
	return params
}
