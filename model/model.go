// Package model assembles the generator and discriminator networks of
// the recurrent conditional GAN. Both are row-sequence LSTMs over 28x28
// digit images, optionally conditioned per timestep on a class label or
// a reference image depending on the configured attention mode.
package model

import (
	"recurrent-gan/layers"
)

// Fixed dimensions of the digit-image domain.
const (
	ImageRows  = 28
	ImageCols  = 28
	NumClasses = 10

	// EmbeddingDim is the width class labels are embedded to before
	// conditioning a recurrent core.
	EmbeddingDim = 64

	// HiddenSize is the recurrent state width of both networks.
	HiddenSize = 128
)

// NetworkSpec describes a constructed network: its declared named
// inputs and its output shape. It is fixed once the network is built.
type NetworkSpec struct {
	Name        string
	Inputs      []layers.InputSpec
	OutputShape []int
}

// InputNames returns the declared input names in declaration order.
func (s NetworkSpec) InputNames() []string {
	names := make([]string, len(s.Inputs))
	for i, in := range s.Inputs {
		names[i] = in.Name
	}
	return names
}

func buildSpec(name string, primary layers.InputSpec, mode layers.AttentionMode, role layers.NetworkRole, outputShape []int) NetworkSpec {
	spec := NetworkSpec{
		Name:        name,
		Inputs:      []layers.InputSpec{primary},
		OutputShape: outputShape,
	}
	if aux := mode.AuxInput(role, ImageRows, ImageCols); aux != nil {
		spec.Inputs = append(spec.Inputs, *aux)
	}
	return spec
}
