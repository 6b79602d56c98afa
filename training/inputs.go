package training

import (
	"fmt"
	"math/rand"
	"strings"

	"recurrent-gan/layers"
	"recurrent-gan/tensor"
)

// LatentType selects the distribution latent vectors are drawn from
type LatentType int

const (
	// LatentUniform samples from U(-1, 1)
	LatentUniform LatentType = iota
	// LatentNormal samples from N(0, 1)
	LatentNormal
)

var latentNames = map[LatentType]string{
	LatentUniform: "uniform",
	LatentNormal:  "normal",
}

// String returns the name of the latent type
func (lt LatentType) String() string {
	if name, ok := latentNames[lt]; ok {
		return name
	}
	return fmt.Sprintf("LatentType(%d)", int(lt))
}

// ParseLatentType converts a user-supplied string to a LatentType. Matching
// is case-insensitive; anything else is a configuration error naming the
// offending value.
func ParseLatentType(field, value string) (LatentType, error) {
	switch strings.ToLower(value) {
	case "uniform":
		return LatentUniform, nil
	case "normal":
		return LatentNormal, nil
	default:
		return LatentUniform, &layers.ConfigurationError{
			Field:   field,
			Value:   value,
			Allowed: []string{"uniform", "normal"},
		}
	}
}

// SampleLatent draws a batch of latent vectors from the configured
// distribution.
func SampleLatent(lt LatentType, batch, dim int, rng *rand.Rand) (*tensor.Tensor, error) {
	switch lt {
	case LatentNormal:
		return tensor.Randn([]int{batch, dim}, rng)
	case LatentUniform:
		return tensor.RandUniform([]int{batch, dim}, -1.0, 1.0, rng)
	default:
		return nil, fmt.Errorf("unknown latent type %d", int(lt))
	}
}

// Targets holds the discriminator targets used during adversarial training.
// Real samples and generator updates aim for GenReal; fake samples presented
// to the discriminator aim for Fake.
type Targets struct {
	GenReal float64
	Fake    float64
}

// DefaultTargets returns the standard non-saturating GAN targets
func DefaultTargets() Targets {
	return Targets{GenReal: 1.0, Fake: 0.0}
}

// TrainingInputs carries the full training arrays, with conditioning slots
// populated strictly by the attention mode of each network. A slot is
// non-nil if and only if the corresponding mode needs it. The latent slot
// is always present and holds the sampling strategy rather than data;
// vectors are drawn fresh each batch.
type TrainingInputs struct {
	Latent  LatentType
	GenMode layers.AttentionMode
	DisMode layers.AttentionMode

	// RealData holds the normalized images, shape [n, rows, cols, 1].
	RealData *tensor.Tensor

	// ImageClassGen and ImageClassDis hold class ids, shape [n, 1].
	ImageClassGen *tensor.Tensor
	ImageClassDis *tensor.Tensor

	// RefImageGen and RefImageDis hold attention reference images, same
	// shape as RealData.
	RefImageGen *tensor.Tensor
	RefImageDis *tensor.Tensor

	labels *tensor.Tensor
}

// NewTrainingInputs assembles the named input slots for the given pair of
// attention modes from the full image and label arrays. The latent slot
// records which distribution to draw from.
func NewTrainingInputs(genMode, disMode layers.AttentionMode, latent LatentType, images, labels *tensor.Tensor) (*TrainingInputs, error) {
	if images == nil {
		return nil, fmt.Errorf("images are required")
	}
	if len(images.Shape) != 4 {
		return nil, fmt.Errorf("images must have shape [n, rows, cols, 1], got %v", images.Shape)
	}
	needLabels := genMode == layers.Mode1D || disMode == layers.Mode1D
	if needLabels && labels == nil {
		return nil, fmt.Errorf("class labels are required when a network uses 1d attention")
	}
	if labels != nil && labels.Shape[0] != images.Shape[0] {
		return nil, fmt.Errorf("label count %d does not match image count %d", labels.Shape[0], images.Shape[0])
	}

	inputs := &TrainingInputs{
		Latent:   latent,
		GenMode:  genMode,
		DisMode:  disMode,
		RealData: images,
		labels:   labels,
	}
	switch genMode {
	case layers.Mode1D:
		inputs.ImageClassGen = labels
	case layers.Mode2D:
		inputs.RefImageGen = images
	}
	switch disMode {
	case layers.Mode1D:
		inputs.ImageClassDis = labels
	case layers.Mode2D:
		inputs.RefImageDis = images
	}
	return inputs, nil
}

// Len returns the number of training samples
func (in *TrainingInputs) Len() int {
	return in.RealData.Shape[0]
}

// SlotNames returns the populated input names in a stable order: latent
// first, then real data, then the conditioning slots. The set is a pure
// function of the two attention modes.
func (in *TrainingInputs) SlotNames() []string {
	names := []string{"latent", "real_data"}
	if in.ImageClassGen != nil {
		names = append(names, "image_class_gen")
	}
	if in.RefImageGen != nil {
		names = append(names, "ref_image_gen")
	}
	if in.ImageClassDis != nil {
		names = append(names, "image_class_dis")
	}
	if in.RefImageDis != nil {
		names = append(names, "ref_image_dis")
	}
	return names
}

// Validate checks that each conditioning slot is present exactly when its
// mode requires it.
func (in *TrainingInputs) Validate() error {
	if in.Latent != LatentUniform && in.Latent != LatentNormal {
		return fmt.Errorf("unknown latent type %d", int(in.Latent))
	}
	if in.RealData == nil {
		return fmt.Errorf("real_data is required")
	}
	if err := checkSlot("image_class_gen", in.ImageClassGen, in.GenMode == layers.Mode1D); err != nil {
		return err
	}
	if err := checkSlot("ref_image_gen", in.RefImageGen, in.GenMode == layers.Mode2D); err != nil {
		return err
	}
	if err := checkSlot("image_class_dis", in.ImageClassDis, in.DisMode == layers.Mode1D); err != nil {
		return err
	}
	if err := checkSlot("ref_image_dis", in.RefImageDis, in.DisMode == layers.Mode2D); err != nil {
		return err
	}
	return nil
}

func checkSlot(name string, t *tensor.Tensor, wanted bool) error {
	if wanted && t == nil {
		return fmt.Errorf("input %q is required but missing", name)
	}
	if !wanted && t != nil {
		return fmt.Errorf("input %q is not accepted by the configured modes", name)
	}
	return nil
}

// dataset adapts TrainingInputs to the Dataset interface so the DataLoader
// can batch it. Labels default to zeros when neither network is
// class-conditioned.
func (in *TrainingInputs) dataset() (Dataset, error) {
	n := in.Len()
	sampleShape := in.RealData.Shape[1:]
	sampleSize := 1
	for _, d := range sampleShape {
		sampleSize *= d
	}

	data := make([]*tensor.Tensor, n)
	labs := make([]*tensor.Tensor, n)
	for i := 0; i < n; i++ {
		img, err := tensor.NewTensor(sampleShape, in.RealData.Data[i*sampleSize:(i+1)*sampleSize])
		if err != nil {
			return nil, fmt.Errorf("failed to slice sample %d: %v", i, err)
		}
		data[i] = img

		var label *tensor.Tensor
		if in.labels != nil {
			label, err = tensor.NewTensor([]int{1}, in.labels.Data[i:i+1])
		} else {
			label, err = tensor.Zeros([]int{1})
		}
		if err != nil {
			return nil, fmt.Errorf("failed to slice label %d: %v", i, err)
		}
		labs[i] = label
	}
	return NewSimpleDataset(data, labs)
}
