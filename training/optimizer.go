package training

import (
	"fmt"
	"math"
	"sync"

	"recurrent-gan/tensor"
)

// Optimizer interface defines methods that all optimizers must implement
type Optimizer interface {
	Step() error
	ZeroGrad()
	GetLR() float64
	SetLR(lr float64)
}

// SGD implements stochastic gradient descent with optional momentum
type SGD struct {
	parameters []*tensor.Tensor
	lr         float64
	momentum   float64
	velocity   map[*tensor.Tensor]*tensor.Tensor
	mutex      sync.Mutex
}

// NewSGD creates a new SGD optimizer
func NewSGD(parameters []*tensor.Tensor, lr, momentum float64) *SGD {
	return &SGD{
		parameters: parameters,
		lr:         lr,
		momentum:   momentum,
		velocity:   make(map[*tensor.Tensor]*tensor.Tensor),
	}
}

// Step performs a single optimization step
func (sgd *SGD) Step() error {
	sgd.mutex.Lock()
	defer sgd.mutex.Unlock()

	for _, param := range sgd.parameters {
		grad := param.Grad()
		if !param.RequiresGrad() || grad == nil {
			continue
		}

		if sgd.momentum > 0 {
			vel := sgd.velocity[param]
			if vel == nil {
				var err error
				vel, err = tensor.Zeros(param.Shape)
				if err != nil {
					return fmt.Errorf("velocity initialization failed: %v", err)
				}
				sgd.velocity[param] = vel
			}
			for i := range param.Data {
				vel.Data[i] = sgd.momentum*vel.Data[i] + grad.Data[i]
				param.Data[i] -= sgd.lr * vel.Data[i]
			}
		} else {
			for i := range param.Data {
				param.Data[i] -= sgd.lr * grad.Data[i]
			}
		}
	}

	return nil
}

// ZeroGrad clears all parameter gradients
func (sgd *SGD) ZeroGrad() {
	tensor.ZeroGrad(sgd.parameters)
}

// GetLR returns the current learning rate
func (sgd *SGD) GetLR() float64 {
	sgd.mutex.Lock()
	defer sgd.mutex.Unlock()
	return sgd.lr
}

// SetLR sets the learning rate
func (sgd *SGD) SetLR(lr float64) {
	sgd.mutex.Lock()
	defer sgd.mutex.Unlock()
	sgd.lr = lr
}

// Adam implements the Adam optimization algorithm
type Adam struct {
	parameters []*tensor.Tensor
	lr         float64
	beta1      float64
	beta2      float64
	eps        float64
	step       int64
	m          map[*tensor.Tensor]*tensor.Tensor // First moment estimates
	v          map[*tensor.Tensor]*tensor.Tensor // Second moment estimates
	mutex      sync.Mutex
}

// NewAdam creates a new Adam optimizer
func NewAdam(parameters []*tensor.Tensor, lr, beta1, beta2, eps float64) (*Adam, error) {
	adam := &Adam{
		parameters: parameters,
		lr:         lr,
		beta1:      beta1,
		beta2:      beta2,
		eps:        eps,
		m:          make(map[*tensor.Tensor]*tensor.Tensor),
		v:          make(map[*tensor.Tensor]*tensor.Tensor),
	}

	for _, param := range parameters {
		if !param.RequiresGrad() {
			continue
		}
		m, err := tensor.Zeros(param.Shape)
		if err != nil {
			return nil, fmt.Errorf("first moment initialization failed: %v", err)
		}
		v, err := tensor.Zeros(param.Shape)
		if err != nil {
			return nil, fmt.Errorf("second moment initialization failed: %v", err)
		}
		adam.m[param] = m
		adam.v[param] = v
	}

	return adam, nil
}

// Step performs a single optimization step
func (adam *Adam) Step() error {
	adam.mutex.Lock()
	defer adam.mutex.Unlock()

	adam.step++

	// Bias correction factors
	bias1 := 1.0 - math.Pow(adam.beta1, float64(adam.step))
	bias2 := 1.0 - math.Pow(adam.beta2, float64(adam.step))

	for _, param := range adam.parameters {
		grad := param.Grad()
		if !param.RequiresGrad() || grad == nil {
			continue
		}

		m := adam.m[param]
		v := adam.v[param]
		if m == nil || v == nil {
			return fmt.Errorf("parameter %v has no moment estimates", param.Shape)
		}

		for i := range param.Data {
			g := grad.Data[i]
			m.Data[i] = adam.beta1*m.Data[i] + (1.0-adam.beta1)*g
			v.Data[i] = adam.beta2*v.Data[i] + (1.0-adam.beta2)*g*g

			mHat := m.Data[i] / bias1
			vHat := v.Data[i] / bias2

			param.Data[i] -= adam.lr * mHat / (math.Sqrt(vHat) + adam.eps)
		}
	}

	return nil
}

// ZeroGrad clears all parameter gradients
func (adam *Adam) ZeroGrad() {
	tensor.ZeroGrad(adam.parameters)
}

// GetLR returns the current learning rate
func (adam *Adam) GetLR() float64 {
	adam.mutex.Lock()
	defer adam.mutex.Unlock()
	return adam.lr
}

// SetLR sets the learning rate
func (adam *Adam) SetLR(lr float64) {
	adam.mutex.Lock()
	defer adam.mutex.Unlock()
	adam.lr = lr
}

// StepCount returns the number of optimization steps taken so far.
func (adam *Adam) StepCount() int64 {
	adam.mutex.Lock()
	defer adam.mutex.Unlock()
	return adam.step
}

// Moments returns the first and second moment estimates for a parameter,
// or nil if the parameter is unknown to the optimizer.
func (adam *Adam) Moments(param *tensor.Tensor) (*tensor.Tensor, *tensor.Tensor) {
	adam.mutex.Lock()
	defer adam.mutex.Unlock()
	return adam.m[param], adam.v[param]
}

// RestoreState overwrites the step counter and moment estimates, used when
// resuming from a checkpoint.
func (adam *Adam) RestoreState(step int64, m, v map[*tensor.Tensor]*tensor.Tensor) {
	adam.mutex.Lock()
	defer adam.mutex.Unlock()
	adam.step = step
	for param, moment := range m {
		adam.m[param] = moment
	}
	for param, moment := range v {
		adam.v[param] = moment
	}
}
