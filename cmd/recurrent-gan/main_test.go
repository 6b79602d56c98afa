package main

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"recurrent-gan/dataset"
	"recurrent-gan/layers"
	"recurrent-gan/model"
	gantensor "recurrent-gan/tensor"
	"recurrent-gan/training"
)

func TestRenderPlotsHonorsCount(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	gen, err := model.BuildGenerator(8, layers.ModeNone, rng)
	if err != nil {
		t.Fatalf("failed to build generator: %v", err)
	}
	dis, err := model.BuildDiscriminator(layers.ModeNone, rng)
	if err != nil {
		t.Fatalf("failed to build discriminator: %v", err)
	}
	trainer, err := training.NewAdversarialTrainer(gen, dis, training.DefaultTargets(), rng)
	if err != nil {
		t.Fatalf("failed to build trainer: %v", err)
	}
	if err := trainer.Compile(training.DefaultOptimizerConfig()); err != nil {
		t.Fatalf("compile failed: %v", err)
	}

	images, _ := gantensor.RandUniform([]int{2, model.ImageRows, model.ImageCols, 1}, -1, 1, rng)
	inputs, err := training.NewTrainingInputs(layers.ModeNone, layers.ModeNone, training.LatentUniform, images, nil)
	if err != nil {
		t.Fatalf("failed to build inputs: %v", err)
	}
	if err := trainer.Fit(inputs, training.FitConfig{Epochs: 1, BatchSize: 2}); err != nil {
		t.Fatalf("fit failed: %v", err)
	}

	plotter, err := training.NewPlotter(t.TempDir())
	if err != nil {
		t.Fatalf("failed to build plotter: %v", err)
	}

	// The split is only consulted for reference-conditioned generators.
	raw := &dataset.RawSplit{
		Images: [][]byte{{0, 64, 128, 255}},
		Labels: []uint8{0},
		Rows:   2,
		Cols:   2,
	}
	split, err := dataset.Normalize(raw, false)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	const count = 3
	if err := renderPlots(trainer, plotter, gen, split, count); err != nil {
		t.Fatalf("render failed: %v", err)
	}

	for i := 0; i < count; i++ {
		name := filepath.Join(plotter.Dir(), fmt.Sprintf("digit_%02d.png", i))
		if _, err := os.Stat(name); err != nil {
			t.Fatalf("expected %s to exist: %v", name, err)
		}
	}
	extra := filepath.Join(plotter.Dir(), fmt.Sprintf("digit_%02d.png", count))
	if _, err := os.Stat(extra); err == nil {
		t.Errorf("rendered more digits than requested: %s exists", extra)
	}
	if _, err := os.Stat(filepath.Join(plotter.Dir(), "loss.png")); err != nil {
		t.Errorf("loss curve was not written: %v", err)
	}
}
