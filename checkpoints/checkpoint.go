package checkpoints

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"recurrent-gan/layers"
	"recurrent-gan/model"
	"recurrent-gan/tensor"
	"recurrent-gan/training"
)

// CheckpointFormat defines the serialization format
type CheckpointFormat int

const (
	FormatJSON CheckpointFormat = iota
	FormatBinary
)

func (cf CheckpointFormat) String() string {
	switch cf {
	case FormatJSON:
		return "json"
	case FormatBinary:
		return "binary"
	default:
		return "Unknown"
	}
}

// ParseFormat converts a user-supplied string to a CheckpointFormat
func ParseFormat(field, value string) (CheckpointFormat, error) {
	switch strings.ToLower(value) {
	case "json":
		return FormatJSON, nil
	case "binary":
		return FormatBinary, nil
	default:
		return FormatJSON, &layers.ConfigurationError{
			Field:   field,
			Value:   value,
			Allowed: []string{"json", "binary"},
		}
	}
}

// Checkpoint represents the complete state of an adversarial training run:
// both networks' weights, both optimizers, and training metadata
type Checkpoint struct {
	Weights       []WeightTensor     `json:"weights"`
	TrainingState TrainingState      `json:"training_state"`
	GenOptimizer  *OptimizerState    `json:"gen_optimizer,omitempty"`
	DisOptimizer  *OptimizerState    `json:"dis_optimizer,omitempty"`
	Metadata      CheckpointMetadata `json:"metadata"`
}

// WeightTensor represents a model parameter tensor with its data
type WeightTensor struct {
	Name    string    `json:"name"`
	Network string    `json:"network"` // "generator" or "discriminator"
	Shape   []int     `json:"shape"`
	Data    []float64 `json:"data"`
}

// TrainingState captures the current training progress
type TrainingState struct {
	Epoch        int     `json:"epoch"`
	DisLoss      float64 `json:"dis_loss"`
	GenLoss      float64 `json:"gen_loss"`
	LearningRate float64 `json:"learning_rate"`
}

// OptimizerState captures optimizer-specific state
type OptimizerState struct {
	Type      string            `json:"type"`
	Step      int64             `json:"step"`
	StateData []OptimizerTensor `json:"state_data"`
}

// OptimizerTensor represents optimizer state tensors
type OptimizerTensor struct {
	Name      string    `json:"name"`
	Shape     []int     `json:"shape"`
	Data      []float64 `json:"data"`
	StateType string    `json:"state_type"` // "m" or "v"
}

// CheckpointMetadata contains checkpoint metadata
type CheckpointMetadata struct {
	Version    string    `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	GenMode    string    `json:"gen_mode"`
	DisMode    string    `json:"dis_mode"`
	LatentSize int       `json:"latent_size"`
}

// Capture snapshots both networks and, when the optimizers are Adam, their
// moment estimates. Parameter naming follows each network's parameter
// order, which is fixed by construction.
func Capture(gen *model.Generator, dis *model.Discriminator, genOpt, disOpt training.Optimizer, state TrainingState) *Checkpoint {
	cp := &Checkpoint{
		TrainingState: state,
		Metadata: CheckpointMetadata{
			Version:    "1.0",
			CreatedAt:  time.Now().UTC(),
			GenMode:    gen.Mode().String(),
			DisMode:    dis.Mode().String(),
			LatentSize: gen.LatentSize(),
		},
	}

	cp.Weights = append(cp.Weights, captureWeights("generator", gen.Parameters())...)
	cp.Weights = append(cp.Weights, captureWeights("discriminator", dis.Parameters())...)

	if adam, ok := genOpt.(*training.Adam); ok {
		cp.GenOptimizer = captureAdam("generator", gen.Parameters(), adam)
	}
	if adam, ok := disOpt.(*training.Adam); ok {
		cp.DisOptimizer = captureAdam("discriminator", dis.Parameters(), adam)
	}

	return cp
}

func captureWeights(network string, params []*tensor.Tensor) []WeightTensor {
	weights := make([]WeightTensor, 0, len(params))
	for i, p := range params {
		data := make([]float64, len(p.Data))
		copy(data, p.Data)
		weights = append(weights, WeightTensor{
			Name:    fmt.Sprintf("%s/param_%02d", network, i),
			Network: network,
			Shape:   append([]int{}, p.Shape...),
			Data:    data,
		})
	}
	return weights
}

func captureAdam(network string, params []*tensor.Tensor, adam *training.Adam) *OptimizerState {
	state := &OptimizerState{
		Type: "Adam",
		Step: adam.StepCount(),
	}
	for i, p := range params {
		m, v := adam.Moments(p)
		if m == nil || v == nil {
			continue
		}
		name := fmt.Sprintf("%s/param_%02d", network, i)
		state.StateData = append(state.StateData,
			OptimizerTensor{Name: name, Shape: append([]int{}, p.Shape...), Data: append([]float64{}, m.Data...), StateType: "m"},
			OptimizerTensor{Name: name, Shape: append([]int{}, p.Shape...), Data: append([]float64{}, v.Data...), StateType: "v"},
		)
	}
	return state
}

// Restore loads checkpoint weights back into freshly built networks. The
// networks must have been built with the same modes and latent size the
// checkpoint records.
func Restore(cp *Checkpoint, gen *model.Generator, dis *model.Discriminator) error {
	if got := gen.Mode().String(); got != cp.Metadata.GenMode {
		return fmt.Errorf("checkpoint was saved with generator mode %s, network uses %s", cp.Metadata.GenMode, got)
	}
	if got := dis.Mode().String(); got != cp.Metadata.DisMode {
		return fmt.Errorf("checkpoint was saved with discriminator mode %s, network uses %s", cp.Metadata.DisMode, got)
	}
	if gen.LatentSize() != cp.Metadata.LatentSize {
		return fmt.Errorf("checkpoint was saved with latent size %d, network uses %d", cp.Metadata.LatentSize, gen.LatentSize())
	}

	byName := make(map[string]WeightTensor, len(cp.Weights))
	for _, w := range cp.Weights {
		byName[w.Name] = w
	}

	if err := restoreWeights("generator", gen.Parameters(), byName); err != nil {
		return err
	}
	return restoreWeights("discriminator", dis.Parameters(), byName)
}

// RestoreOptimizers maps saved optimizer state back onto freshly compiled
// optimizers, in the same parameter order Capture used. Checkpoints
// without optimizer state leave the optimizers untouched.
func RestoreOptimizers(cp *Checkpoint, gen *model.Generator, dis *model.Discriminator, genOpt, disOpt training.Optimizer) error {
	if err := restoreAdam("generator", cp.GenOptimizer, gen.Parameters(), genOpt); err != nil {
		return err
	}
	return restoreAdam("discriminator", cp.DisOptimizer, dis.Parameters(), disOpt)
}

func restoreAdam(network string, state *OptimizerState, params []*tensor.Tensor, opt training.Optimizer) error {
	if state == nil {
		return nil
	}
	adam, ok := opt.(*training.Adam)
	if !ok {
		return fmt.Errorf("checkpoint holds %s state for the %s but the optimizer is not Adam", state.Type, network)
	}

	byKey := make(map[string]OptimizerTensor, len(state.StateData))
	for _, st := range state.StateData {
		byKey[st.Name+"/"+st.StateType] = st
	}

	m := make(map[*tensor.Tensor]*tensor.Tensor, len(params))
	v := make(map[*tensor.Tensor]*tensor.Tensor, len(params))
	for i, p := range params {
		name := fmt.Sprintf("%s/param_%02d", network, i)
		mState, ok := byKey[name+"/m"]
		if !ok {
			return fmt.Errorf("checkpoint is missing first moment for %s", name)
		}
		vState, ok := byKey[name+"/v"]
		if !ok {
			return fmt.Errorf("checkpoint is missing second moment for %s", name)
		}
		if len(mState.Data) != p.NumElems || len(vState.Data) != p.NumElems {
			return fmt.Errorf("optimizer state for %s has the wrong element count", name)
		}

		mTensor, err := tensor.NewTensor(p.Shape, append([]float64{}, mState.Data...))
		if err != nil {
			return fmt.Errorf("failed to rebuild first moment for %s: %v", name, err)
		}
		vTensor, err := tensor.NewTensor(p.Shape, append([]float64{}, vState.Data...))
		if err != nil {
			return fmt.Errorf("failed to rebuild second moment for %s: %v", name, err)
		}
		m[p] = mTensor
		v[p] = vTensor
	}

	adam.RestoreState(state.Step, m, v)
	return nil
}

func restoreWeights(network string, params []*tensor.Tensor, byName map[string]WeightTensor) error {
	for i, p := range params {
		name := fmt.Sprintf("%s/param_%02d", network, i)
		w, ok := byName[name]
		if !ok {
			return fmt.Errorf("checkpoint is missing weight %s", name)
		}
		if len(w.Data) != p.NumElems {
			return fmt.Errorf("weight %s has %d elements, parameter expects %d", name, len(w.Data), p.NumElems)
		}
		if err := p.SetData(w.Data); err != nil {
			return fmt.Errorf("failed to restore weight %s: %v", name, err)
		}
	}
	return nil
}

// CheckpointSaver handles saving and loading checkpoints in multiple formats
type CheckpointSaver struct {
	format CheckpointFormat
}

// NewCheckpointSaver creates a new checkpoint saver
func NewCheckpointSaver(format CheckpointFormat) *CheckpointSaver {
	return &CheckpointSaver{format: format}
}

// SaveCheckpoint saves a checkpoint in the specified format
func (cs *CheckpointSaver) SaveCheckpoint(checkpoint *Checkpoint, path string) error {
	switch cs.format {
	case FormatJSON:
		return cs.saveJSON(checkpoint, path)
	case FormatBinary:
		return cs.saveBinary(checkpoint, path)
	default:
		return fmt.Errorf("unsupported checkpoint format: %s", cs.format)
	}
}

// LoadCheckpoint loads a checkpoint from the specified format
func (cs *CheckpointSaver) LoadCheckpoint(path string) (*Checkpoint, error) {
	switch cs.format {
	case FormatJSON:
		return cs.loadJSON(path)
	case FormatBinary:
		return cs.loadBinary(path)
	default:
		return nil, fmt.Errorf("unsupported checkpoint format: %s", cs.format)
	}
}

func (cs *CheckpointSaver) saveJSON(checkpoint *Checkpoint, path string) error {
	data, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write checkpoint file: %v", err)
	}
	return nil
}

func (cs *CheckpointSaver) loadJSON(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint file: %v", err)
	}
	var checkpoint Checkpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %v", err)
	}
	return &checkpoint, nil
}
