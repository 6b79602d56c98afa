package dataset

import (
	"fmt"

	gt "gorgonia.org/tensor"

	"recurrent-gan/tensor"
)

// binarizeThreshold is the raw pixel value at or above which a
// binarized pixel becomes 1 instead of -1.
const binarizeThreshold = 10

// Split holds a normalized MNIST split. Images are [n, rows, cols, 1]
// with values in [-1, 1]; labels are [n, 1] class ids.
type Split struct {
	Images *gt.Dense
	Labels *gt.Dense

	rows int
	cols int
}

// Normalize converts a raw split into training form. With binarize set,
// every pixel becomes exactly -1 or 1; otherwise pixels are mapped
// affinely from [0, 255] to [-1, 1]. The image tensor gains an explicit
// trailing channel dimension and labels an explicit trailing dimension.
func Normalize(raw *RawSplit, binarize bool) (*Split, error) {
	n := raw.Len()
	if n == 0 {
		return nil, fmt.Errorf("cannot normalize an empty split")
	}

	pixelCount := raw.Rows * raw.Cols
	images := make([]float64, n*pixelCount)
	for i, img := range raw.Images {
		if len(img) != pixelCount {
			return nil, fmt.Errorf("image %d has %d pixels, expected %d", i, len(img), pixelCount)
		}
		base := i * pixelCount
		for j, v := range img {
			if binarize {
				if v >= binarizeThreshold {
					images[base+j] = 1
				} else {
					images[base+j] = -1
				}
			} else {
				images[base+j] = (float64(v) - 127.5) / 127.5
			}
		}
	}

	labels := make([]float64, n)
	for i, l := range raw.Labels {
		labels[i] = float64(l)
	}

	return &Split{
		Images: gt.New(gt.WithShape(n, raw.Rows, raw.Cols, 1), gt.WithBacking(images)),
		Labels: gt.New(gt.WithShape(n, 1), gt.WithBacking(labels)),
		rows:   raw.Rows,
		cols:   raw.Cols,
	}, nil
}

// Len returns the number of samples in the split.
func (s *Split) Len() int {
	return s.Images.Shape()[0]
}

// Get returns sample i as autograd tensors: the image as [rows, cols, 1]
// and the label as [1].
func (s *Split) Get(i int) (*tensor.Tensor, *tensor.Tensor, error) {
	n := s.Len()
	if i < 0 || i >= n {
		return nil, nil, fmt.Errorf("sample index %d out of range [0,%d)", i, n)
	}

	pixelCount := s.rows * s.cols
	backing := s.Images.Data().([]float64)
	imgData := make([]float64, pixelCount)
	copy(imgData, backing[i*pixelCount:(i+1)*pixelCount])

	img, err := tensor.NewTensor([]int{s.rows, s.cols, 1}, imgData)
	if err != nil {
		return nil, nil, err
	}

	labelBacking := s.Labels.Data().([]float64)
	label, err := tensor.NewTensor([]int{1}, []float64{labelBacking[i]})
	if err != nil {
		return nil, nil, err
	}

	return img, label, nil
}

// ImageTensor returns all images as a single [n, rows, cols, 1]
// autograd tensor backed by a copy of the split data.
func (s *Split) ImageTensor() (*tensor.Tensor, error) {
	backing := s.Images.Data().([]float64)
	data := make([]float64, len(backing))
	copy(data, backing)
	return tensor.NewTensor([]int{s.Len(), s.rows, s.cols, 1}, data)
}

// LabelTensor returns all labels as a single [n, 1] autograd tensor
// backed by a copy of the split data.
func (s *Split) LabelTensor() (*tensor.Tensor, error) {
	backing := s.Labels.Data().([]float64)
	data := make([]float64, len(backing))
	copy(data, backing)
	return tensor.NewTensor([]int{s.Len(), 1}, data)
}
