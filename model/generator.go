package model

import (
	"fmt"
	"math/rand"

	"recurrent-gan/layers"
	"recurrent-gan/tensor"
)

// Generator maps a latent vector to a digit image. The latent vector is
// repeated into a 28-step sequence, run through an (optionally
// conditioned) LSTM, and projected row by row into pixel space with a
// saturating tanh.
type Generator struct {
	spec       NetworkSpec
	mode       layers.AttentionMode
	latentSize int

	embed  *layers.Embedding
	core   layers.RecurrentCore
	output *layers.TimeDistributed
}

// BuildGenerator constructs a generator for the given latent size and
// attention mode. All weights are drawn from rng.
func BuildGenerator(latentSize int, mode layers.AttentionMode, rng *rand.Rand) (*Generator, error) {
	if latentSize <= 0 {
		return nil, fmt.Errorf("generator requires positive latent size, got %d", latentSize)
	}

	stepWidth := latentSize + mode.AuxWidth(EmbeddingDim, HiddenSize)
	lstm, err := layers.NewLSTM(stepWidth, HiddenSize, true, rng)
	if err != nil {
		return nil, fmt.Errorf("failed to build generator core: %v", err)
	}
	core, err := mode.WrapCore(lstm, ImageCols, rng)
	if err != nil {
		return nil, err
	}

	var embed *layers.Embedding
	if mode == layers.Mode1D {
		embed, err = layers.NewEmbedding(NumClasses, EmbeddingDim, rng)
		if err != nil {
			return nil, fmt.Errorf("failed to build generator embedding: %v", err)
		}
	}

	rowDense, err := layers.NewDense(HiddenSize, ImageCols, layers.ActTanh, rng)
	if err != nil {
		return nil, fmt.Errorf("failed to build generator output projection: %v", err)
	}

	return &Generator{
		spec: buildSpec("generator",
			layers.InputSpec{Name: "latent", Shape: []int{latentSize}},
			mode, layers.RoleGenerator,
			[]int{ImageRows, ImageCols, 1}),
		mode:       mode,
		latentSize: latentSize,
		embed:      embed,
		core:       core,
		output:     layers.NewTimeDistributed(rowDense),
	}, nil
}

// Spec returns the generator's declared inputs and output shape.
func (g *Generator) Spec() NetworkSpec { return g.spec }

// Mode returns the generator's attention mode.
func (g *Generator) Mode() layers.AttentionMode { return g.mode }

// LatentSize returns the expected latent vector width.
func (g *Generator) LatentSize() int { return g.latentSize }

// Forward generates images from a [batch, latentSize] latent tensor.
// The aux tensor must be present exactly when the mode requires one:
// class ids [batch, 1] for 1d, reference images [batch, 28, 28, 1] for
// 2d.
func (g *Generator) Forward(latent, aux *tensor.Tensor) (*tensor.Tensor, error) {
	if len(latent.Shape) != 2 || latent.Shape[1] != g.latentSize {
		return nil, fmt.Errorf("generator latent shape %v does not match latent size %d", latent.Shape, g.latentSize)
	}
	if g.mode.RequiresAux() && aux == nil {
		return nil, fmt.Errorf("generator mode %s requires an auxiliary input", g.mode)
	}
	if !g.mode.RequiresAux() && aux != nil {
		return nil, fmt.Errorf("generator mode %s takes no auxiliary input", g.mode)
	}

	batch := latent.Shape[0]
	seq, err := tensor.RepeatVector(latent, ImageRows)
	if err != nil {
		return nil, fmt.Errorf("latent repetition failed: %v", err)
	}

	condition, err := g.condition(aux, batch)
	if err != nil {
		return nil, err
	}

	hidden, err := g.core.Forward(seq, condition)
	if err != nil {
		return nil, fmt.Errorf("generator core failed: %v", err)
	}

	rows, err := g.output.Forward(hidden)
	if err != nil {
		return nil, fmt.Errorf("generator output projection failed: %v", err)
	}

	return tensor.Reshape(rows, []int{batch, ImageRows, ImageCols, 1})
}

// condition prepares the core's auxiliary tensor for the mode.
func (g *Generator) condition(aux *tensor.Tensor, batch int) (*tensor.Tensor, error) {
	switch g.mode {
	case layers.Mode1D:
		embedded, err := g.embed.Forward(aux)
		if err != nil {
			return nil, err
		}
		return embedded, nil
	case layers.Mode2D:
		if len(aux.Shape) != 4 {
			return nil, fmt.Errorf("generator reference image shape %v, expected [batch, %d, %d, 1]", aux.Shape, ImageRows, ImageCols)
		}
		return tensor.Reshape(aux, []int{batch, ImageRows, ImageCols})
	default:
		return nil, nil
	}
}

// Parameters returns all trainable parameters.
func (g *Generator) Parameters() []*tensor.Tensor {
	params := append([]*tensor.Tensor{}, g.core.Parameters()...)
	params = append(params, g.output.Parameters()...)
	if g.embed != nil {
		params = append(params, g.embed.Parameters()...)
	}
	return params
}
