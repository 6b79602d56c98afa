package tensor

import (
	"fmt"
)

// Operation is implemented by every differentiable op. An op records its
// input tensors at forward time; Backward receives the gradient flowing
// into the op's output and returns one gradient per input (nil when an
// input does not need a gradient, e.g. integer index tensors).
type Operation interface {
	Inputs() []*Tensor
	Backward(gradOut *Tensor) []*Tensor
}

// Tensor is a dense float64 tensor with optional autograd tracking.
// When an op produces a tensor, the op is recorded as its creator so
// that Backward can walk the graph.
type Tensor struct {
	Shape        []int
	Strides      []int
	Data         []float64
	NumElems     int
	requiresGrad bool
	grad         *Tensor
	creator      Operation
}

// NewTensor creates a tensor with the given shape and backing data.
// The data slice is used directly, not copied.
func NewTensor(shape []int, data []float64) (*Tensor, error) {
	if err := validateShape(shape); err != nil {
		return nil, err
	}

	numElems := calculateNumElements(shape)
	if len(data) != numElems {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)", len(data), shape, numElems)
	}

	return &Tensor{
		Shape:    append([]int{}, shape...),
		Strides:  calculateStrides(shape),
		Data:     data,
		NumElems: numElems,
	}, nil
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(shape=%v, elements=%d)", t.Shape, t.NumElems)
}

// RequiresGrad reports whether this tensor is a trainable parameter.
func (t *Tensor) RequiresGrad() bool {
	return t.requiresGrad
}

// SetRequiresGrad marks the tensor as a trainable parameter.
func (t *Tensor) SetRequiresGrad(requires bool) {
	t.requiresGrad = requires
}

// Grad returns the accumulated gradient, or nil if none has been set.
func (t *Tensor) Grad() *Tensor {
	return t.grad
}

// Item returns the single value of a scalar tensor.
func (t *Tensor) Item() (float64, error) {
	if t.NumElems != 1 {
		return 0, fmt.Errorf("Item requires a single-element tensor, got shape %v", t.Shape)
	}
	return t.Data[0], nil
}

// Clone returns a deep copy of the tensor without its autograd state.
func (t *Tensor) Clone() *Tensor {
	data := make([]float64, len(t.Data))
	copy(data, t.Data)
	clone, _ := NewTensor(t.Shape, data)
	return clone
}

// SetData overwrites the tensor's values in place.
func (t *Tensor) SetData(data []float64) error {
	if len(data) != t.NumElems {
		return fmt.Errorf("data length %d does not match tensor with %d elements", len(data), t.NumElems)
	}
	copy(t.Data, data)
	return nil
}

// Detach returns a view of the same data with the autograd graph cut.
func (t *Tensor) Detach() *Tensor {
	detached, _ := NewTensor(t.Shape, t.Data)
	return detached
}

// ZeroGrad clears the gradients of all given tensors.
func ZeroGrad(tensors []*Tensor) {
	for _, t := range tensors {
		if t.grad != nil {
			for i := range t.grad.Data {
				t.grad.Data[i] = 0
			}
		}
	}
}

// Backward runs reverse-mode differentiation from a scalar tensor,
// accumulating gradients into every reachable tensor that requires them.
func (t *Tensor) Backward() error {
	if t.NumElems != 1 {
		return fmt.Errorf("Backward requires a scalar tensor, got shape %v", t.Shape)
	}

	seed, _ := NewTensor(t.Shape, []float64{1})
	t.accumulateGrad(seed)

	order := topoSort(t)
	for i := len(order) - 1; i >= 0; i-- {
		node := order[i]
		if node.creator == nil || node.grad == nil {
			continue
		}
		grads := node.creator.Backward(node.grad)
		inputs := node.creator.Inputs()
		if len(grads) != len(inputs) {
			return fmt.Errorf("op returned %d gradients for %d inputs", len(grads), len(inputs))
		}
		for j, input := range inputs {
			if grads[j] == nil {
				continue
			}
			if !input.requiresGrad && input.creator == nil {
				continue
			}
			input.accumulateGrad(grads[j])
		}
	}

	return nil
}

func (t *Tensor) accumulateGrad(grad *Tensor) {
	if t.grad == nil {
		t.grad = grad.Clone()
		return
	}
	for i := range t.grad.Data {
		t.grad.Data[i] += grad.Data[i]
	}
}

// topoSort returns the autograd graph in topological order, root last.
func topoSort(root *Tensor) []*Tensor {
	visited := make(map[*Tensor]bool)
	var order []*Tensor

	var visit func(node *Tensor)
	visit = func(node *Tensor) {
		if visited[node] {
			return
		}
		visited[node] = true
		if node.creator != nil {
			for _, input := range node.creator.Inputs() {
				visit(input)
			}
		}
		order = append(order, node)
	}

	visit(root)
	return order
}

func calculateStrides(shape []int) []int {
	if len(shape) == 0 {
		return []int{}
	}

	strides := make([]int, len(shape))
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= shape[i]
	}
	return strides
}

func calculateNumElements(shape []int) int {
	if len(shape) == 0 {
		return 0
	}

	elements := 1
	for _, dim := range shape {
		elements *= dim
	}
	return elements
}

func validateShape(shape []int) error {
	if len(shape) == 0 {
		return fmt.Errorf("invalid shape: must have at least one dimension")
	}
	for i, dim := range shape {
		if dim <= 0 {
			return fmt.Errorf("invalid shape: dimension %d has size %d, must be positive", i, dim)
		}
	}
	return nil
}

func shapesEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
