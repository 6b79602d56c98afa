// Package dataset loads the MNIST handwritten-digit corpus and
// normalizes it into the tensor form the adversarial trainer consumes.
package dataset

import (
	"fmt"

	mnist "github.com/petar/GoMNIST"
)

// RawSplit holds one MNIST split as loaded from disk: raw byte images
// and integer labels.
type RawSplit struct {
	Images [][]byte
	Labels []uint8
	Rows   int
	Cols   int
}

// Len returns the number of samples in the split.
func (r *RawSplit) Len() int {
	return len(r.Images)
}

// Load reads the MNIST IDX files from dir, returning the training and
// test splits.
func Load(dir string) (*RawSplit, *RawSplit, error) {
	train, test, err := mnist.Load(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load MNIST data from %s: %v", dir, err)
	}

	trainSplit, err := fromSet(train)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid training split: %v", err)
	}
	testSplit, err := fromSet(test)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid test split: %v", err)
	}

	return trainSplit, testSplit, nil
}

func fromSet(set *mnist.Set) (*RawSplit, error) {
	if len(set.Images) != len(set.Labels) {
		return nil, fmt.Errorf("image count %d does not match label count %d", len(set.Images), len(set.Labels))
	}

	split := &RawSplit{
		Images: make([][]byte, len(set.Images)),
		Labels: make([]uint8, len(set.Labels)),
		Rows:   set.NRow,
		Cols:   set.NCol,
	}
	for i, img := range set.Images {
		split.Images[i] = []byte(img)
		split.Labels[i] = uint8(set.Labels[i])
	}
	return split, nil
}
