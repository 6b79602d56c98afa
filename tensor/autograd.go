package tensor

import (
	"fmt"
	"math"
)

// tracked reports whether a result produced from these inputs must stay
// connected to the autograd graph.
func tracked(inputs ...*Tensor) bool {
	for _, in := range inputs {
		if in.requiresGrad || in.creator != nil {
			return true
		}
	}
	return false
}

func attach(result *Tensor, op Operation, inputs ...*Tensor) {
	if tracked(inputs...) {
		result.creator = op
	}
}

// AddOp implements elementwise addition with limited broadcasting:
// equal shapes, a trailing bias vector, or a column vector over a matrix.
type AddOp struct {
	a, b *Tensor
}

func (op *AddOp) Inputs() []*Tensor { return []*Tensor{op.a, op.b} }

func (op *AddOp) Backward(gradOut *Tensor) []*Tensor {
	gradA := gradOut.Clone()
	gradB := reduceToShape(gradOut, op.b.Shape)
	return []*Tensor{gradA, gradB}
}

// Add returns a + b. The second operand may be a trailing-dimension bias
// vector or a [rows,1] column against a [rows,cols] matrix.
func Add(a, b *Tensor) (*Tensor, error) {
	data, err := broadcastBinary(a, b, func(x, y float64) float64 { return x + y })
	if err != nil {
		return nil, fmt.Errorf("add failed: %v", err)
	}
	result, _ := NewTensor(a.Shape, data)
	attach(result, &AddOp{a: a, b: b}, a, b)
	return result, nil
}

// SubOp implements elementwise subtraction of equally shaped tensors.
type SubOp struct {
	a, b *Tensor
}

func (op *SubOp) Inputs() []*Tensor { return []*Tensor{op.a, op.b} }

func (op *SubOp) Backward(gradOut *Tensor) []*Tensor {
	gradA := gradOut.Clone()
	gradB := gradOut.Clone()
	for i := range gradB.Data {
		gradB.Data[i] = -gradB.Data[i]
	}
	return []*Tensor{gradA, gradB}
}

// Sub returns a - b for equally shaped tensors.
func Sub(a, b *Tensor) (*Tensor, error) {
	if !shapesEqual(a.Shape, b.Shape) {
		return nil, fmt.Errorf("sub failed: shape mismatch %v vs %v", a.Shape, b.Shape)
	}
	data := make([]float64, a.NumElems)
	for i := range data {
		data[i] = a.Data[i] - b.Data[i]
	}
	result, _ := NewTensor(a.Shape, data)
	attach(result, &SubOp{a: a, b: b}, a, b)
	return result, nil
}

// MulOp implements elementwise multiplication with the same broadcasting
// rules as AddOp.
type MulOp struct {
	a, b *Tensor
}

func (op *MulOp) Inputs() []*Tensor { return []*Tensor{op.a, op.b} }

func (op *MulOp) Backward(gradOut *Tensor) []*Tensor {
	gradAData, _ := broadcastBinary(gradOut, op.b, func(g, y float64) float64 { return g * y })
	gradA, _ := NewTensor(gradOut.Shape, gradAData)

	full := make([]float64, gradOut.NumElems)
	for i := range full {
		full[i] = gradOut.Data[i] * op.a.Data[i]
	}
	fullT, _ := NewTensor(gradOut.Shape, full)
	gradB := reduceToShape(fullT, op.b.Shape)

	return []*Tensor{gradA, gradB}
}

// Mul returns a * b elementwise. The second operand may broadcast the
// same way as in Add.
func Mul(a, b *Tensor) (*Tensor, error) {
	data, err := broadcastBinary(a, b, func(x, y float64) float64 { return x * y })
	if err != nil {
		return nil, fmt.Errorf("mul failed: %v", err)
	}
	result, _ := NewTensor(a.Shape, data)
	attach(result, &MulOp{a: a, b: b}, a, b)
	return result, nil
}

// ScaleOp multiplies a tensor by a constant.
type ScaleOp struct {
	a     *Tensor
	scale float64
}

func (op *ScaleOp) Inputs() []*Tensor { return []*Tensor{op.a} }

func (op *ScaleOp) Backward(gradOut *Tensor) []*Tensor {
	grad := gradOut.Clone()
	for i := range grad.Data {
		grad.Data[i] *= op.scale
	}
	return []*Tensor{grad}
}

// Scale returns a * s for a constant s.
func Scale(a *Tensor, s float64) *Tensor {
	data := make([]float64, a.NumElems)
	for i := range data {
		data[i] = a.Data[i] * s
	}
	result, _ := NewTensor(a.Shape, data)
	attach(result, &ScaleOp{a: a, scale: s}, a)
	return result
}

// AddScalarOp adds a constant to every element.
type AddScalarOp struct {
	a *Tensor
}

func (op *AddScalarOp) Inputs() []*Tensor { return []*Tensor{op.a} }

func (op *AddScalarOp) Backward(gradOut *Tensor) []*Tensor {
	return []*Tensor{gradOut.Clone()}
}

// AddScalar returns a + s for a constant s.
func AddScalar(a *Tensor, s float64) *Tensor {
	data := make([]float64, a.NumElems)
	for i := range data {
		data[i] = a.Data[i] + s
	}
	result, _ := NewTensor(a.Shape, data)
	attach(result, &AddScalarOp{a: a}, a)
	return result
}

// MatMulOp implements 2D matrix multiplication.
type MatMulOp struct {
	a, b *Tensor
}

func (op *MatMulOp) Inputs() []*Tensor { return []*Tensor{op.a, op.b} }

func (op *MatMulOp) Backward(gradOut *Tensor) []*Tensor {
	m, k := op.a.Shape[0], op.a.Shape[1]
	n := op.b.Shape[1]

	// dA = dC · Bᵀ, dB = Aᵀ · dC
	gradAData := matMulTransB(gradOut.Data, m, n, op.b.Data, k)
	gradBData := matMulTransA(op.a.Data, m, k, gradOut.Data, n)

	gradA, _ := NewTensor([]int{m, k}, gradAData)
	gradB, _ := NewTensor([]int{k, n}, gradBData)
	return []*Tensor{gradA, gradB}
}

// MatMul returns the matrix product of a [m,k] and b [k,n].
func MatMul(a, b *Tensor) (*Tensor, error) {
	if len(a.Shape) != 2 || len(b.Shape) != 2 {
		return nil, fmt.Errorf("matmul requires 2D tensors, got %v and %v", a.Shape, b.Shape)
	}
	if a.Shape[1] != b.Shape[0] {
		return nil, fmt.Errorf("matmul dimension mismatch: %v x %v", a.Shape, b.Shape)
	}

	m, k, n := a.Shape[0], a.Shape[1], b.Shape[1]
	data := matMulData(a.Data, m, k, b.Data, n)
	result, _ := NewTensor([]int{m, n}, data)
	attach(result, &MatMulOp{a: a, b: b}, a, b)
	return result, nil
}

// TanhOp implements the hyperbolic tangent activation.
type TanhOp struct {
	a      *Tensor
	output *Tensor
}

func (op *TanhOp) Inputs() []*Tensor { return []*Tensor{op.a} }

func (op *TanhOp) Backward(gradOut *Tensor) []*Tensor {
	grad := gradOut.Clone()
	for i := range grad.Data {
		y := op.output.Data[i]
		grad.Data[i] *= 1 - y*y
	}
	return []*Tensor{grad}
}

// Tanh applies tanh elementwise.
func Tanh(a *Tensor) *Tensor {
	data := make([]float64, a.NumElems)
	for i := range data {
		data[i] = math.Tanh(a.Data[i])
	}
	result, _ := NewTensor(a.Shape, data)
	attach(result, &TanhOp{a: a, output: result}, a)
	return result
}

// SigmoidOp implements the logistic activation.
type SigmoidOp struct {
	a      *Tensor
	output *Tensor
}

func (op *SigmoidOp) Inputs() []*Tensor { return []*Tensor{op.a} }

func (op *SigmoidOp) Backward(gradOut *Tensor) []*Tensor {
	grad := gradOut.Clone()
	for i := range grad.Data {
		y := op.output.Data[i]
		grad.Data[i] *= y * (1 - y)
	}
	return []*Tensor{grad}
}

// Sigmoid applies the logistic function elementwise.
func Sigmoid(a *Tensor) *Tensor {
	data := make([]float64, a.NumElems)
	for i := range data {
		data[i] = 1.0 / (1.0 + math.Exp(-a.Data[i]))
	}
	result, _ := NewTensor(a.Shape, data)
	attach(result, &SigmoidOp{a: a, output: result}, a)
	return result
}

// LogOp implements the natural logarithm.
type LogOp struct {
	a *Tensor
}

func (op *LogOp) Inputs() []*Tensor { return []*Tensor{op.a} }

func (op *LogOp) Backward(gradOut *Tensor) []*Tensor {
	grad := gradOut.Clone()
	for i := range grad.Data {
		grad.Data[i] /= op.a.Data[i]
	}
	return []*Tensor{grad}
}

// Log applies the natural logarithm elementwise.
func Log(a *Tensor) *Tensor {
	data := make([]float64, a.NumElems)
	for i := range data {
		data[i] = math.Log(a.Data[i])
	}
	result, _ := NewTensor(a.Shape, data)
	attach(result, &LogOp{a: a}, a)
	return result
}

// SoftmaxOp implements softmax over the last dimension of a 2D tensor.
type SoftmaxOp struct {
	a      *Tensor
	output *Tensor
}

func (op *SoftmaxOp) Inputs() []*Tensor { return []*Tensor{op.a} }

func (op *SoftmaxOp) Backward(gradOut *Tensor) []*Tensor {
	rows, cols := op.a.Shape[0], op.a.Shape[1]
	grad := make([]float64, op.a.NumElems)

	for r := 0; r < rows; r++ {
		base := r * cols
		var dot float64
		for c := 0; c < cols; c++ {
			dot += gradOut.Data[base+c] * op.output.Data[base+c]
		}
		for c := 0; c < cols; c++ {
			y := op.output.Data[base+c]
			grad[base+c] = y * (gradOut.Data[base+c] - dot)
		}
	}

	gradT, _ := NewTensor(op.a.Shape, grad)
	return []*Tensor{gradT}
}

// Softmax applies a numerically stable softmax over the last dimension
// of a 2D tensor.
func Softmax(a *Tensor) (*Tensor, error) {
	if len(a.Shape) != 2 {
		return nil, fmt.Errorf("softmax requires a 2D tensor, got shape %v", a.Shape)
	}

	rows, cols := a.Shape[0], a.Shape[1]
	data := make([]float64, a.NumElems)

	for r := 0; r < rows; r++ {
		base := r * cols
		maxVal := a.Data[base]
		for c := 1; c < cols; c++ {
			if a.Data[base+c] > maxVal {
				maxVal = a.Data[base+c]
			}
		}
		var sum float64
		for c := 0; c < cols; c++ {
			e := math.Exp(a.Data[base+c] - maxVal)
			data[base+c] = e
			sum += e
		}
		for c := 0; c < cols; c++ {
			data[base+c] /= sum
		}
	}

	result, _ := NewTensor(a.Shape, data)
	attach(result, &SoftmaxOp{a: a, output: result}, a)
	return result, nil
}

// ReshapeOp changes the logical shape without touching the data layout.
type ReshapeOp struct {
	a *Tensor
}

func (op *ReshapeOp) Inputs() []*Tensor { return []*Tensor{op.a} }

func (op *ReshapeOp) Backward(gradOut *Tensor) []*Tensor {
	grad, _ := NewTensor(op.a.Shape, append([]float64{}, gradOut.Data...))
	return []*Tensor{grad}
}

// Reshape returns a tensor with the same data and a new shape.
func Reshape(a *Tensor, shape []int) (*Tensor, error) {
	if err := validateShape(shape); err != nil {
		return nil, err
	}
	if calculateNumElements(shape) != a.NumElems {
		return nil, fmt.Errorf("cannot reshape %v into %v", a.Shape, shape)
	}

	data := make([]float64, a.NumElems)
	copy(data, a.Data)
	result, _ := NewTensor(shape, data)
	attach(result, &ReshapeOp{a: a}, a)
	return result, nil
}

// ConcatOp joins two 2D tensors along their second dimension.
type ConcatOp struct {
	a, b *Tensor
}

func (op *ConcatOp) Inputs() []*Tensor { return []*Tensor{op.a, op.b} }

func (op *ConcatOp) Backward(gradOut *Tensor) []*Tensor {
	rows := op.a.Shape[0]
	aCols, bCols := op.a.Shape[1], op.b.Shape[1]
	outCols := aCols + bCols

	gradA, _ := Zeros(op.a.Shape)
	gradB, _ := Zeros(op.b.Shape)
	for r := 0; r < rows; r++ {
		copy(gradA.Data[r*aCols:(r+1)*aCols], gradOut.Data[r*outCols:r*outCols+aCols])
		copy(gradB.Data[r*bCols:(r+1)*bCols], gradOut.Data[r*outCols+aCols:(r+1)*outCols])
	}
	return []*Tensor{gradA, gradB}
}

// Concat joins two 2D tensors of equal row count along dimension 1.
func Concat(a, b *Tensor) (*Tensor, error) {
	if len(a.Shape) != 2 || len(b.Shape) != 2 {
		return nil, fmt.Errorf("concat requires 2D tensors, got %v and %v", a.Shape, b.Shape)
	}
	if a.Shape[0] != b.Shape[0] {
		return nil, fmt.Errorf("concat row mismatch: %d vs %d", a.Shape[0], b.Shape[0])
	}

	rows := a.Shape[0]
	aCols, bCols := a.Shape[1], b.Shape[1]
	outCols := aCols + bCols
	data := make([]float64, rows*outCols)
	for r := 0; r < rows; r++ {
		copy(data[r*outCols:r*outCols+aCols], a.Data[r*aCols:(r+1)*aCols])
		copy(data[r*outCols+aCols:(r+1)*outCols], b.Data[r*bCols:(r+1)*bCols])
	}

	result, _ := NewTensor([]int{rows, outCols}, data)
	attach(result, &ConcatOp{a: a, b: b}, a, b)
	return result, nil
}

// RepeatVectorOp tiles a [batch, dim] tensor into [batch, steps, dim].
type RepeatVectorOp struct {
	a     *Tensor
	steps int
}

func (op *RepeatVectorOp) Inputs() []*Tensor { return []*Tensor{op.a} }

func (op *RepeatVectorOp) Backward(gradOut *Tensor) []*Tensor {
	batch, dim := op.a.Shape[0], op.a.Shape[1]
	grad, _ := Zeros(op.a.Shape)
	for b := 0; b < batch; b++ {
		for t := 0; t < op.steps; t++ {
			base := (b*op.steps + t) * dim
			for d := 0; d < dim; d++ {
				grad.Data[b*dim+d] += gradOut.Data[base+d]
			}
		}
	}
	return []*Tensor{grad}
}

// RepeatVector repeats each row of a [batch, dim] tensor steps times,
// producing [batch, steps, dim].
func RepeatVector(a *Tensor, steps int) (*Tensor, error) {
	if len(a.Shape) != 2 {
		return nil, fmt.Errorf("repeat vector requires a 2D tensor, got shape %v", a.Shape)
	}
	if steps <= 0 {
		return nil, fmt.Errorf("repeat vector requires positive step count, got %d", steps)
	}

	batch, dim := a.Shape[0], a.Shape[1]
	data := make([]float64, batch*steps*dim)
	for b := 0; b < batch; b++ {
		row := a.Data[b*dim : (b+1)*dim]
		for t := 0; t < steps; t++ {
			copy(data[(b*steps+t)*dim:(b*steps+t+1)*dim], row)
		}
	}

	result, _ := NewTensor([]int{batch, steps, dim}, data)
	attach(result, &RepeatVectorOp{a: a, steps: steps}, a)
	return result, nil
}

// SelectStepOp extracts timestep t from a [batch, steps, dim] tensor.
type SelectStepOp struct {
	a    *Tensor
	step int
}

func (op *SelectStepOp) Inputs() []*Tensor { return []*Tensor{op.a} }

func (op *SelectStepOp) Backward(gradOut *Tensor) []*Tensor {
	batch, steps, dim := op.a.Shape[0], op.a.Shape[1], op.a.Shape[2]
	grad, _ := Zeros(op.a.Shape)
	for b := 0; b < batch; b++ {
		src := gradOut.Data[b*dim : (b+1)*dim]
		copy(grad.Data[(b*steps+op.step)*dim:(b*steps+op.step+1)*dim], src)
	}
	return []*Tensor{grad}
}

// SelectStep returns timestep t of a [batch, steps, dim] tensor as
// [batch, dim].
func SelectStep(a *Tensor, t int) (*Tensor, error) {
	if len(a.Shape) != 3 {
		return nil, fmt.Errorf("select step requires a 3D tensor, got shape %v", a.Shape)
	}
	batch, steps, dim := a.Shape[0], a.Shape[1], a.Shape[2]
	if t < 0 || t >= steps {
		return nil, fmt.Errorf("step %d out of range [0,%d)", t, steps)
	}

	data := make([]float64, batch*dim)
	for b := 0; b < batch; b++ {
		copy(data[b*dim:(b+1)*dim], a.Data[(b*steps+t)*dim:(b*steps+t+1)*dim])
	}

	result, _ := NewTensor([]int{batch, dim}, data)
	attach(result, &SelectStepOp{a: a, step: t}, a)
	return result, nil
}

// StackStepsOp joins per-timestep [batch, dim] tensors into a
// [batch, steps, dim] sequence.
type StackStepsOp struct {
	steps []*Tensor
}

func (op *StackStepsOp) Inputs() []*Tensor { return op.steps }

func (op *StackStepsOp) Backward(gradOut *Tensor) []*Tensor {
	batch, dim := op.steps[0].Shape[0], op.steps[0].Shape[1]
	nSteps := len(op.steps)

	grads := make([]*Tensor, nSteps)
	for t := range op.steps {
		grad, _ := Zeros([]int{batch, dim})
		for b := 0; b < batch; b++ {
			copy(grad.Data[b*dim:(b+1)*dim], gradOut.Data[(b*nSteps+t)*dim:(b*nSteps+t+1)*dim])
		}
		grads[t] = grad
	}
	return grads
}

// StackSteps stacks equally shaped [batch, dim] tensors along a new
// middle dimension, producing [batch, steps, dim].
func StackSteps(steps []*Tensor) (*Tensor, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("stack steps requires at least one tensor")
	}
	batch, dim := steps[0].Shape[0], steps[0].Shape[1]
	for i, s := range steps {
		if len(s.Shape) != 2 || s.Shape[0] != batch || s.Shape[1] != dim {
			return nil, fmt.Errorf("stack steps shape mismatch at %d: %v", i, s.Shape)
		}
	}

	nSteps := len(steps)
	data := make([]float64, batch*nSteps*dim)
	for t, s := range steps {
		for b := 0; b < batch; b++ {
			copy(data[(b*nSteps+t)*dim:(b*nSteps+t+1)*dim], s.Data[b*dim:(b+1)*dim])
		}
	}

	result, _ := NewTensor([]int{batch, nSteps, dim}, data)
	attach(result, &StackStepsOp{steps: steps}, steps...)
	return result, nil
}

// SliceColsOp extracts a contiguous column range from a 2D tensor.
type SliceColsOp struct {
	a          *Tensor
	start, end int
}

func (op *SliceColsOp) Inputs() []*Tensor { return []*Tensor{op.a} }

func (op *SliceColsOp) Backward(gradOut *Tensor) []*Tensor {
	rows, cols := op.a.Shape[0], op.a.Shape[1]
	width := op.end - op.start
	grad, _ := Zeros(op.a.Shape)
	for r := 0; r < rows; r++ {
		copy(grad.Data[r*cols+op.start:r*cols+op.end], gradOut.Data[r*width:(r+1)*width])
	}
	return []*Tensor{grad}
}

// SliceCols returns columns [start, end) of a 2D tensor.
func SliceCols(a *Tensor, start, end int) (*Tensor, error) {
	if len(a.Shape) != 2 {
		return nil, fmt.Errorf("slice cols requires a 2D tensor, got shape %v", a.Shape)
	}
	if start < 0 || end > a.Shape[1] || start >= end {
		return nil, fmt.Errorf("invalid column range [%d,%d) for %d columns", start, end, a.Shape[1])
	}

	rows, cols := a.Shape[0], a.Shape[1]
	width := end - start
	data := make([]float64, rows*width)
	for r := 0; r < rows; r++ {
		copy(data[r*width:(r+1)*width], a.Data[r*cols+start:r*cols+end])
	}

	result, _ := NewTensor([]int{rows, width}, data)
	attach(result, &SliceColsOp{a: a, start: start, end: end}, a)
	return result, nil
}

// GatherOp looks up rows of an embedding table by index.
type GatherOp struct {
	table   *Tensor
	indices *Tensor
	ids     []int
}

func (op *GatherOp) Inputs() []*Tensor { return []*Tensor{op.table, op.indices} }

func (op *GatherOp) Backward(gradOut *Tensor) []*Tensor {
	dim := op.table.Shape[1]
	grad, _ := Zeros(op.table.Shape)
	for b, id := range op.ids {
		for d := 0; d < dim; d++ {
			grad.Data[id*dim+d] += gradOut.Data[b*dim+d]
		}
	}
	// No gradient flows to the integer indices.
	return []*Tensor{grad, nil}
}

// Gather selects rows of a [vocab, dim] table using the (integer valued)
// entries of indices, producing [batch, dim].
func Gather(table, indices *Tensor) (*Tensor, error) {
	if len(table.Shape) != 2 {
		return nil, fmt.Errorf("gather requires a 2D table, got shape %v", table.Shape)
	}

	vocab, dim := table.Shape[0], table.Shape[1]
	ids := make([]int, indices.NumElems)
	for i, v := range indices.Data {
		id := int(v)
		if id < 0 || id >= vocab {
			return nil, fmt.Errorf("gather index %d out of range [0,%d)", id, vocab)
		}
		ids[i] = id
	}

	batch := len(ids)
	data := make([]float64, batch*dim)
	for b, id := range ids {
		copy(data[b*dim:(b+1)*dim], table.Data[id*dim:(id+1)*dim])
	}

	result, _ := NewTensor([]int{batch, dim}, data)
	attach(result, &GatherOp{table: table, indices: indices, ids: ids}, table, indices)
	return result, nil
}

// SumOp reduces a tensor to a scalar by summation.
type SumOp struct {
	a *Tensor
}

func (op *SumOp) Inputs() []*Tensor { return []*Tensor{op.a} }

func (op *SumOp) Backward(gradOut *Tensor) []*Tensor {
	grad, _ := Full(op.a.Shape, gradOut.Data[0])
	return []*Tensor{grad}
}

// Sum reduces all elements to a single-element tensor.
func Sum(a *Tensor) *Tensor {
	var total float64
	for _, v := range a.Data {
		total += v
	}
	result := FromScalar(total)
	attach(result, &SumOp{a: a}, a)
	return result
}

// MeanOp reduces a tensor to its scalar mean.
type MeanOp struct {
	a *Tensor
}

func (op *MeanOp) Inputs() []*Tensor { return []*Tensor{op.a} }

func (op *MeanOp) Backward(gradOut *Tensor) []*Tensor {
	grad, _ := Full(op.a.Shape, gradOut.Data[0]/float64(op.a.NumElems))
	return []*Tensor{grad}
}

// Mean reduces all elements to their mean as a single-element tensor.
func Mean(a *Tensor) *Tensor {
	var total float64
	for _, v := range a.Data {
		total += v
	}
	result := FromScalar(total / float64(a.NumElems))
	attach(result, &MeanOp{a: a}, a)
	return result
}

// broadcastBinary applies f elementwise, broadcasting b when it is a
// trailing-dimension vector or a column vector against a 2D a.
func broadcastBinary(a, b *Tensor, f func(x, y float64) float64) ([]float64, error) {
	data := make([]float64, a.NumElems)

	switch {
	case shapesEqual(a.Shape, b.Shape):
		for i := range data {
			data[i] = f(a.Data[i], b.Data[i])
		}
	case len(b.Shape) == 1 && b.Shape[0] == a.Shape[len(a.Shape)-1]:
		dim := b.Shape[0]
		for i := range data {
			data[i] = f(a.Data[i], b.Data[i%dim])
		}
	case len(a.Shape) == 2 && len(b.Shape) == 2 && b.Shape[0] == a.Shape[0] && b.Shape[1] == 1:
		cols := a.Shape[1]
		for i := range data {
			data[i] = f(a.Data[i], b.Data[i/cols])
		}
	default:
		return nil, fmt.Errorf("cannot broadcast %v with %v", a.Shape, b.Shape)
	}

	return data, nil
}

// reduceToShape sums grad over broadcast dimensions so it matches shape.
func reduceToShape(grad *Tensor, shape []int) *Tensor {
	if shapesEqual(grad.Shape, shape) {
		return grad.Clone()
	}

	reduced, _ := Zeros(shape)

	if len(shape) == 1 {
		// Trailing vector broadcast: sum over leading dimensions.
		dim := shape[0]
		for i, v := range grad.Data {
			reduced.Data[i%dim] += v
		}
		return reduced
	}

	// Column broadcast [rows, 1] against [rows, cols].
	cols := grad.Shape[1]
	for i, v := range grad.Data {
		reduced.Data[i/cols] += v
	}
	return reduced
}
