package training

import (
	"fmt"
	"math/rand"
	"time"

	"recurrent-gan/layers"
	"recurrent-gan/model"
	"recurrent-gan/tensor"
)

// OptimizerConfig contains the optimizer hyperparameters shared by both
// networks
type OptimizerConfig struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64
}

// DefaultOptimizerConfig returns the standard Adam settings for this model
func DefaultOptimizerConfig() OptimizerConfig {
	return OptimizerConfig{
		LearningRate: 0.001,
		Beta1:        0.5,
		Beta2:        0.999,
		Epsilon:      1e-8,
	}
}

// FitConfig contains training loop configuration
type FitConfig struct {
	Epochs    int
	BatchSize int
	Shuffle   bool
	Verbose   bool
}

// EpochMetrics contains metrics for a single training epoch
type EpochMetrics struct {
	Epoch      int
	DisLoss    float64
	GenLoss    float64
	BatchCount int
	Duration   time.Duration
}

// AdversarialTrainer alternates discriminator and generator updates. The
// discriminator is pushed toward the real target on data batches and the
// fake target on generated batches; the generator is then updated through
// the discriminator's judgment of fresh samples, aiming for the real
// target.
type AdversarialTrainer struct {
	gen        *model.Generator
	dis        *model.Discriminator
	latentType LatentType
	targets    Targets
	rng        *rand.Rand

	genOpt    Optimizer
	disOpt    Optimizer
	criterion Loss
	metrics   []EpochMetrics
}

// NewAdversarialTrainer creates a trainer for a generator/discriminator
// pair. The random source drives latent sampling and shuffling; callers
// seed it explicitly. The latent distribution comes from the training
// inputs' latent slot; before Fit, Sample draws uniform vectors.
func NewAdversarialTrainer(gen *model.Generator, dis *model.Discriminator, targets Targets, rng *rand.Rand) (*AdversarialTrainer, error) {
	if gen == nil || dis == nil {
		return nil, fmt.Errorf("both networks are required")
	}
	if rng == nil {
		return nil, fmt.Errorf("a random source is required")
	}
	return &AdversarialTrainer{
		gen:        gen,
		dis:        dis,
		latentType: LatentUniform,
		targets:    targets,
		rng:        rng,
	}, nil
}

// Compile creates the per-network optimizers and the loss. Must be called
// before Fit.
func (t *AdversarialTrainer) Compile(cfg OptimizerConfig) error {
	if cfg.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive, got %g", cfg.LearningRate)
	}
	if cfg.Beta1 < 0 || cfg.Beta1 >= 1 {
		return fmt.Errorf("beta1 must be in [0, 1), got %g", cfg.Beta1)
	}
	if cfg.Beta2 == 0 {
		cfg.Beta2 = 0.999
	}
	if cfg.Epsilon == 0 {
		cfg.Epsilon = 1e-8
	}

	genOpt, err := NewAdam(t.gen.Parameters(), cfg.LearningRate, cfg.Beta1, cfg.Beta2, cfg.Epsilon)
	if err != nil {
		return fmt.Errorf("generator optimizer failed: %v", err)
	}
	disOpt, err := NewAdam(t.dis.Parameters(), cfg.LearningRate, cfg.Beta1, cfg.Beta2, cfg.Epsilon)
	if err != nil {
		return fmt.Errorf("discriminator optimizer failed: %v", err)
	}

	t.genOpt = genOpt
	t.disOpt = disOpt
	t.criterion = NewBinaryCrossEntropy()
	return nil
}

// GeneratorOptimizer returns the compiled generator optimizer, or nil
// before Compile.
func (t *AdversarialTrainer) GeneratorOptimizer() Optimizer { return t.genOpt }

// DiscriminatorOptimizer returns the compiled discriminator optimizer, or
// nil before Compile.
func (t *AdversarialTrainer) DiscriminatorOptimizer() Optimizer { return t.disOpt }

// GetMetrics returns metrics for all completed epochs
func (t *AdversarialTrainer) GetMetrics() []EpochMetrics {
	return t.metrics
}

// Fit runs the adversarial training loop over the inputs
func (t *AdversarialTrainer) Fit(inputs *TrainingInputs, cfg FitConfig) error {
	if t.genOpt == nil || t.disOpt == nil {
		return fmt.Errorf("trainer is not compiled")
	}
	if inputs.GenMode != t.gen.Mode() {
		return fmt.Errorf("inputs were built for generator mode %s, network uses %s", inputs.GenMode, t.gen.Mode())
	}
	if inputs.DisMode != t.dis.Mode() {
		return fmt.Errorf("inputs were built for discriminator mode %s, network uses %s", inputs.DisMode, t.dis.Mode())
	}
	if err := inputs.Validate(); err != nil {
		return err
	}
	if cfg.Epochs <= 0 {
		return fmt.Errorf("epoch count must be positive, got %d", cfg.Epochs)
	}
	t.latentType = inputs.Latent

	ds, err := inputs.dataset()
	if err != nil {
		return err
	}
	loader, err := NewDataLoader(ds, cfg.BatchSize, cfg.Shuffle, t.rng)
	if err != nil {
		return err
	}

	if cfg.Verbose {
		fmt.Printf("Starting adversarial training for %d epochs (%d batches/epoch, inputs: %v)\n",
			cfg.Epochs, loader.Len(), inputs.SlotNames())
	}

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		epochStart := time.Now()

		var disTotal, genTotal float64
		var batchCount int

		loader.Reset()
		for loader.HasNext() {
			batch, err := loader.Next()
			if err != nil {
				return fmt.Errorf("epoch %d: %v", epoch, err)
			}
			if batch == nil {
				break
			}

			disLoss, genLoss, err := t.trainBatch(batch)
			if err != nil {
				return fmt.Errorf("epoch %d batch %d: %v", epoch, batchCount, err)
			}

			disTotal += disLoss
			genTotal += genLoss
			batchCount++
		}

		metrics := EpochMetrics{
			Epoch:      epoch,
			DisLoss:    disTotal / float64(batchCount),
			GenLoss:    genTotal / float64(batchCount),
			BatchCount: batchCount,
			Duration:   time.Since(epochStart),
		}
		t.metrics = append(t.metrics, metrics)

		if cfg.Verbose {
			t.printEpochSummary(metrics, cfg.Epochs)
		}
	}

	return nil
}

// trainBatch runs one discriminator update and one generator update,
// returning the two loss values.
func (t *AdversarialTrainer) trainBatch(batch *Batch) (float64, float64, error) {
	size := batch.Size()
	genAux := auxForMode(t.gen.Mode(), batch)
	disAux := auxForMode(t.dis.Mode(), batch)

	// Discriminator update: real batch toward the real target, a detached
	// generated batch toward the fake target.
	t.disOpt.ZeroGrad()
	t.genOpt.ZeroGrad()

	latent, err := SampleLatent(t.latentType, size, t.gen.LatentSize(), t.rng)
	if err != nil {
		return 0, 0, fmt.Errorf("latent sampling failed: %v", err)
	}
	fake, err := t.gen.Forward(latent, genAux)
	if err != nil {
		return 0, 0, fmt.Errorf("generator forward failed: %v", err)
	}

	realOut, err := t.dis.Forward(batch.Data, disAux)
	if err != nil {
		return 0, 0, fmt.Errorf("discriminator forward on real failed: %v", err)
	}
	realLoss, err := t.lossAgainst(realOut, size, t.targets.GenReal)
	if err != nil {
		return 0, 0, err
	}

	fakeOut, err := t.dis.Forward(fake.Detach(), disAux)
	if err != nil {
		return 0, 0, fmt.Errorf("discriminator forward on fake failed: %v", err)
	}
	fakeLoss, err := t.lossAgainst(fakeOut, size, t.targets.Fake)
	if err != nil {
		return 0, 0, err
	}

	combined, err := tensor.Add(realLoss, fakeLoss)
	if err != nil {
		return 0, 0, fmt.Errorf("loss combination failed: %v", err)
	}
	disLoss := tensor.Scale(combined, 0.5)
	if err := disLoss.Backward(); err != nil {
		return 0, 0, fmt.Errorf("discriminator backward failed: %v", err)
	}
	if err := t.disOpt.Step(); err != nil {
		return 0, 0, fmt.Errorf("discriminator step failed: %v", err)
	}

	// Generator update: fresh samples judged by the discriminator, aiming
	// for the real target. The discriminator accumulates gradients here
	// too but only the generator steps.
	t.disOpt.ZeroGrad()
	t.genOpt.ZeroGrad()

	latent, err = SampleLatent(t.latentType, size, t.gen.LatentSize(), t.rng)
	if err != nil {
		return 0, 0, fmt.Errorf("latent sampling failed: %v", err)
	}
	fresh, err := t.gen.Forward(latent, genAux)
	if err != nil {
		return 0, 0, fmt.Errorf("generator forward failed: %v", err)
	}
	judged, err := t.dis.Forward(fresh, disAux)
	if err != nil {
		return 0, 0, fmt.Errorf("discriminator forward on generated failed: %v", err)
	}
	genLoss, err := t.lossAgainst(judged, size, t.targets.GenReal)
	if err != nil {
		return 0, 0, err
	}
	if err := genLoss.Backward(); err != nil {
		return 0, 0, fmt.Errorf("generator backward failed: %v", err)
	}
	if err := t.genOpt.Step(); err != nil {
		return 0, 0, fmt.Errorf("generator step failed: %v", err)
	}

	disVal, err := disLoss.Item()
	if err != nil {
		return 0, 0, err
	}
	genVal, err := genLoss.Item()
	if err != nil {
		return 0, 0, err
	}
	return disVal, genVal, nil
}

// lossAgainst evaluates the criterion against a constant target value
func (t *AdversarialTrainer) lossAgainst(predicted *tensor.Tensor, size int, target float64) (*tensor.Tensor, error) {
	targets, err := tensor.Full([]int{size, 1}, target)
	if err != nil {
		return nil, fmt.Errorf("target creation failed: %v", err)
	}
	loss, err := t.criterion.Forward(predicted, targets)
	if err != nil {
		return nil, fmt.Errorf("loss computation failed: %v", err)
	}
	return loss, nil
}

// auxForMode picks the conditioning tensor a network sees for this batch
func auxForMode(mode layers.AttentionMode, batch *Batch) *tensor.Tensor {
	switch mode {
	case layers.Mode1D:
		return batch.Labels
	case layers.Mode2D:
		return batch.Data
	default:
		return nil
	}
}

func (t *AdversarialTrainer) printEpochSummary(metrics EpochMetrics, epochs int) {
	fmt.Printf("Epoch %d/%d: ", metrics.Epoch+1, epochs)
	fmt.Printf("Dis Loss=%.4f, Gen Loss=%.4f", metrics.DisLoss, metrics.GenLoss)
	fmt.Printf(", Time=%v, Batches=%d\n", metrics.Duration, metrics.BatchCount)
}

// SampleRequest describes a batch of images to generate after training
type SampleRequest struct {
	Count  int
	Labels *tensor.Tensor // class ids [count, 1], required for 1d generators
	Refs   *tensor.Tensor // reference images [count, rows, cols, 1], required for 2d generators
}

// Sample generates images from freshly drawn latent vectors. The returned
// tensor has shape [count, rows, cols, 1] and is detached from the autograd
// graph.
func (t *AdversarialTrainer) Sample(req SampleRequest) (*tensor.Tensor, error) {
	if req.Count <= 0 {
		return nil, fmt.Errorf("sample count must be positive, got %d", req.Count)
	}

	var aux *tensor.Tensor
	switch t.gen.Mode() {
	case layers.Mode1D:
		if req.Labels == nil {
			return nil, fmt.Errorf("sampling a 1d generator requires class labels")
		}
		if req.Labels.Shape[0] != req.Count {
			return nil, fmt.Errorf("label count %d does not match sample count %d", req.Labels.Shape[0], req.Count)
		}
		aux = req.Labels
	case layers.Mode2D:
		if req.Refs == nil {
			return nil, fmt.Errorf("sampling a 2d generator requires reference images")
		}
		if req.Refs.Shape[0] != req.Count {
			return nil, fmt.Errorf("reference count %d does not match sample count %d", req.Refs.Shape[0], req.Count)
		}
		aux = req.Refs
	}

	latent, err := SampleLatent(t.latentType, req.Count, t.gen.LatentSize(), t.rng)
	if err != nil {
		return nil, fmt.Errorf("latent sampling failed: %v", err)
	}
	images, err := t.gen.Forward(latent, aux)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %v", err)
	}
	return images.Detach(), nil
}
