package training

import (
	"fmt"

	"recurrent-gan/tensor"
)

// Loss interface defines methods that all loss functions must implement
type Loss interface {
	Forward(predicted, target *tensor.Tensor) (*tensor.Tensor, error)
}

// BinaryCrossEntropy computes -mean(t*log(p) + (1-t)*log(1-p)) over all
// elements. Predictions are expected in (0, 1); a small epsilon keeps the
// logarithms finite at the boundaries.
type BinaryCrossEntropy struct {
	eps float64
}

// NewBinaryCrossEntropy creates a binary cross-entropy loss
func NewBinaryCrossEntropy() *BinaryCrossEntropy {
	return &BinaryCrossEntropy{eps: 1e-7}
}

// Forward computes the loss as a scalar tensor connected to the autograd
// graph, so calling Backward on the result propagates into the predictions.
func (bce *BinaryCrossEntropy) Forward(predicted, target *tensor.Tensor) (*tensor.Tensor, error) {
	if len(predicted.Data) != len(target.Data) {
		return nil, fmt.Errorf("prediction shape %v does not match target shape %v", predicted.Shape, target.Shape)
	}

	// t * log(p + eps)
	pos, err := tensor.Mul(target, tensor.Log(tensor.AddScalar(predicted, bce.eps)))
	if err != nil {
		return nil, fmt.Errorf("positive term failed: %v", err)
	}

	// (1 - t) * log(1 - p + eps)
	oneMinusTarget := tensor.AddScalar(tensor.Scale(target, -1.0), 1.0)
	oneMinusPred := tensor.AddScalar(tensor.Scale(predicted, -1.0), 1.0+bce.eps)
	neg, err := tensor.Mul(oneMinusTarget, tensor.Log(oneMinusPred))
	if err != nil {
		return nil, fmt.Errorf("negative term failed: %v", err)
	}

	total, err := tensor.Add(pos, neg)
	if err != nil {
		return nil, fmt.Errorf("term addition failed: %v", err)
	}

	return tensor.Scale(tensor.Mean(total), -1.0), nil
}
