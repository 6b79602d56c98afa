package training

import (
	"math"
	"math/rand"
	"testing"

	"recurrent-gan/layers"
	"recurrent-gan/model"
	"recurrent-gan/tensor"
)

func syntheticInputs(t *testing.T, genMode, disMode layers.AttentionMode, n int) *TrainingInputs {
	t.Helper()
	rng := rand.New(rand.NewSource(17))
	images, err := tensor.RandUniform([]int{n, model.ImageRows, model.ImageCols, 1}, -1, 1, rng)
	if err != nil {
		t.Fatalf("failed to build images: %v", err)
	}
	labelData := make([]float64, n)
	for i := range labelData {
		labelData[i] = float64(i % model.NumClasses)
	}
	labels, err := tensor.NewTensor([]int{n, 1}, labelData)
	if err != nil {
		t.Fatalf("failed to build labels: %v", err)
	}
	inputs, err := NewTrainingInputs(genMode, disMode, LatentUniform, images, labels)
	if err != nil {
		t.Fatalf("failed to build inputs: %v", err)
	}
	return inputs
}

func compiledTrainer(t *testing.T, genMode, disMode layers.AttentionMode) (*AdversarialTrainer, *model.Generator, *model.Discriminator) {
	t.Helper()
	rng := rand.New(rand.NewSource(23))
	gen, err := model.BuildGenerator(8, genMode, rng)
	if err != nil {
		t.Fatalf("failed to build generator: %v", err)
	}
	dis, err := model.BuildDiscriminator(disMode, rng)
	if err != nil {
		t.Fatalf("failed to build discriminator: %v", err)
	}
	trainer, err := NewAdversarialTrainer(gen, dis, DefaultTargets(), rng)
	if err != nil {
		t.Fatalf("failed to build trainer: %v", err)
	}
	cfg := DefaultOptimizerConfig()
	cfg.Beta1 = 0.5
	if err := trainer.Compile(cfg); err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	return trainer, gen, dis
}

func TestFitUnconditioned(t *testing.T) {
	trainer, gen, _ := compiledTrainer(t, layers.ModeNone, layers.ModeNone)
	inputs := syntheticInputs(t, layers.ModeNone, layers.ModeNone, 4)

	before := make([]float64, len(gen.Parameters()[0].Data))
	copy(before, gen.Parameters()[0].Data)

	err := trainer.Fit(inputs, FitConfig{Epochs: 1, BatchSize: 2, Shuffle: true})
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}

	metrics := trainer.GetMetrics()
	if len(metrics) != 1 {
		t.Fatalf("expected 1 epoch of metrics, got %d", len(metrics))
	}
	if metrics[0].BatchCount != 2 {
		t.Errorf("batch count = %d, want 2", metrics[0].BatchCount)
	}
	if math.IsNaN(metrics[0].DisLoss) || math.IsNaN(metrics[0].GenLoss) {
		t.Fatalf("losses went non-finite: dis=%v gen=%v", metrics[0].DisLoss, metrics[0].GenLoss)
	}

	var moved bool
	for i, v := range gen.Parameters()[0].Data {
		if v != before[i] {
			moved = true
			break
		}
	}
	if !moved {
		t.Error("generator parameters did not change during training")
	}
}

func TestFitClassConditioned(t *testing.T) {
	trainer, _, _ := compiledTrainer(t, layers.Mode1D, layers.Mode1D)
	inputs := syntheticInputs(t, layers.Mode1D, layers.Mode1D, 4)

	err := trainer.Fit(inputs, FitConfig{Epochs: 1, BatchSize: 4})
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	if len(trainer.GetMetrics()) != 1 {
		t.Fatalf("expected 1 epoch of metrics, got %d", len(trainer.GetMetrics()))
	}
}

func TestFitAttentionConditioned(t *testing.T) {
	trainer, _, _ := compiledTrainer(t, layers.Mode2D, layers.ModeNone)
	inputs := syntheticInputs(t, layers.Mode2D, layers.ModeNone, 2)

	err := trainer.Fit(inputs, FitConfig{Epochs: 1, BatchSize: 2})
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}
}

func TestFitRequiresCompile(t *testing.T) {
	rng := rand.New(rand.NewSource(31))
	gen, _ := model.BuildGenerator(8, layers.ModeNone, rng)
	dis, _ := model.BuildDiscriminator(layers.ModeNone, rng)
	trainer, err := NewAdversarialTrainer(gen, dis, DefaultTargets(), rng)
	if err != nil {
		t.Fatalf("failed to build trainer: %v", err)
	}

	inputs := syntheticInputs(t, layers.ModeNone, layers.ModeNone, 2)
	if err := trainer.Fit(inputs, FitConfig{Epochs: 1, BatchSize: 2}); err == nil {
		t.Error("fit before compile should fail")
	}
}

func TestFitRejectsModeMismatch(t *testing.T) {
	trainer, _, _ := compiledTrainer(t, layers.ModeNone, layers.ModeNone)
	inputs := syntheticInputs(t, layers.Mode1D, layers.ModeNone, 2)

	if err := trainer.Fit(inputs, FitConfig{Epochs: 1, BatchSize: 2}); err == nil {
		t.Error("inputs built for a different generator mode should be rejected")
	}
}

func TestCompileValidatesHyperparameters(t *testing.T) {
	rng := rand.New(rand.NewSource(37))
	gen, _ := model.BuildGenerator(8, layers.ModeNone, rng)
	dis, _ := model.BuildDiscriminator(layers.ModeNone, rng)
	trainer, _ := NewAdversarialTrainer(gen, dis, DefaultTargets(), rng)

	if err := trainer.Compile(OptimizerConfig{LearningRate: 0, Beta1: 0.5}); err == nil {
		t.Error("zero learning rate should fail")
	}
	if err := trainer.Compile(OptimizerConfig{LearningRate: 0.001, Beta1: 1.5}); err == nil {
		t.Error("beta1 outside [0, 1) should fail")
	}
}

func TestSampleShapesAndAux(t *testing.T) {
	trainer, _, _ := compiledTrainer(t, layers.ModeNone, layers.ModeNone)

	samples, err := trainer.Sample(SampleRequest{Count: 3})
	if err != nil {
		t.Fatalf("sample failed: %v", err)
	}
	want := []int{3, model.ImageRows, model.ImageCols, 1}
	for i, d := range want {
		if samples.Shape[i] != d {
			t.Fatalf("sample shape %v, want %v", samples.Shape, want)
		}
	}
	if samples.RequiresGrad() {
		t.Error("sampled images should be detached")
	}
}

func TestSampleClassConditionedRequiresLabels(t *testing.T) {
	trainer, _, _ := compiledTrainer(t, layers.Mode1D, layers.ModeNone)

	if _, err := trainer.Sample(SampleRequest{Count: 2}); err == nil {
		t.Error("sampling a class-conditioned generator without labels should fail")
	}

	labels, _ := tensor.NewTensor([]int{2, 1}, []float64{1, 8})
	samples, err := trainer.Sample(SampleRequest{Count: 2, Labels: labels})
	if err != nil {
		t.Fatalf("sample failed: %v", err)
	}
	if samples.Shape[0] != 2 {
		t.Errorf("sample batch %d, want 2", samples.Shape[0])
	}
}
