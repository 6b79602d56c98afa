package checkpoints

import (
	"math/rand"
	"path/filepath"
	"testing"

	"recurrent-gan/layers"
	"recurrent-gan/model"
	"recurrent-gan/tensor"
	"recurrent-gan/training"
)

func buildPair(t *testing.T, seed int64) (*model.Generator, *model.Discriminator) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	gen, err := model.BuildGenerator(8, layers.Mode1D, rng)
	if err != nil {
		t.Fatalf("failed to build generator: %v", err)
	}
	dis, err := model.BuildDiscriminator(layers.ModeNone, rng)
	if err != nil {
		t.Fatalf("failed to build discriminator: %v", err)
	}
	return gen, dis
}

func TestParseFormat(t *testing.T) {
	cases := []struct {
		value   string
		want    CheckpointFormat
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"binary", FormatBinary, false},
		{"JSON", FormatJSON, false},
		{"Binary", FormatBinary, false},
		{"onnx", FormatJSON, true},
		{"", FormatJSON, true},
	}

	for _, tc := range cases {
		got, err := ParseFormat("save_format", tc.value)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseFormat(%q) should have failed", tc.value)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseFormat(%q) failed: %v", tc.value, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseFormat(%q) = %s, want %s", tc.value, got, tc.want)
		}
	}
}

func TestCaptureRecordsBothNetworks(t *testing.T) {
	gen, dis := buildPair(t, 1)
	genOpt, err := training.NewAdam(gen.Parameters(), 0.001, 0.5, 0.999, 1e-8)
	if err != nil {
		t.Fatalf("failed to build optimizer: %v", err)
	}
	disOpt, err := training.NewAdam(dis.Parameters(), 0.001, 0.5, 0.999, 1e-8)
	if err != nil {
		t.Fatalf("failed to build optimizer: %v", err)
	}

	cp := Capture(gen, dis, genOpt, disOpt, TrainingState{Epoch: 3, DisLoss: 0.7, GenLoss: 0.8, LearningRate: 0.001})

	wantWeights := len(gen.Parameters()) + len(dis.Parameters())
	if len(cp.Weights) != wantWeights {
		t.Errorf("captured %d weights, want %d", len(cp.Weights), wantWeights)
	}
	if cp.Metadata.GenMode != "1d" || cp.Metadata.DisMode != "none" {
		t.Errorf("metadata modes %s/%s, want 1d/none", cp.Metadata.GenMode, cp.Metadata.DisMode)
	}
	if cp.Metadata.LatentSize != 8 {
		t.Errorf("metadata latent size %d, want 8", cp.Metadata.LatentSize)
	}
	if cp.GenOptimizer == nil || cp.GenOptimizer.Type != "Adam" {
		t.Error("generator optimizer state missing")
	}
	if len(cp.GenOptimizer.StateData) != 2*len(gen.Parameters()) {
		t.Errorf("generator optimizer has %d state tensors, want %d",
			len(cp.GenOptimizer.StateData), 2*len(gen.Parameters()))
	}
	if cp.TrainingState.Epoch != 3 {
		t.Errorf("training state epoch %d, want 3", cp.TrainingState.Epoch)
	}
}

func testRoundTrip(t *testing.T, format CheckpointFormat, filename string) {
	gen, dis := buildPair(t, 2)
	cp := Capture(gen, dis, nil, nil, TrainingState{Epoch: 1, LearningRate: 0.001})

	path := filepath.Join(t.TempDir(), filename)
	saver := NewCheckpointSaver(format)
	if err := saver.SaveCheckpoint(cp, path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := saver.LoadCheckpoint(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded.Weights) != len(cp.Weights) {
		t.Fatalf("loaded %d weights, want %d", len(loaded.Weights), len(cp.Weights))
	}
	for i, w := range loaded.Weights {
		orig := cp.Weights[i]
		if w.Name != orig.Name {
			t.Fatalf("weight %d named %q, want %q", i, w.Name, orig.Name)
		}
		if len(w.Data) != len(orig.Data) {
			t.Fatalf("weight %s has %d elements, want %d", w.Name, len(w.Data), len(orig.Data))
		}
		for j := range w.Data {
			if w.Data[j] != orig.Data[j] {
				t.Fatalf("weight %s element %d = %v, want %v", w.Name, j, w.Data[j], orig.Data[j])
			}
		}
	}

	// Restoring into freshly built networks of the same shape must
	// reproduce the saved weights exactly.
	gen2, dis2 := buildPair(t, 3)
	if err := Restore(loaded, gen2, dis2); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	for i, p := range gen2.Parameters() {
		orig := gen.Parameters()[i]
		for j := range p.Data {
			if p.Data[j] != orig.Data[j] {
				t.Fatalf("restored generator parameter %d differs at %d", i, j)
			}
		}
	}
}

func TestJSONRoundTrip(t *testing.T) {
	testRoundTrip(t, FormatJSON, "model.json")
}

func TestBinaryRoundTrip(t *testing.T) {
	testRoundTrip(t, FormatBinary, "model.bin")
}

func TestRestoreRejectsMismatchedNetworks(t *testing.T) {
	gen, dis := buildPair(t, 4)
	cp := Capture(gen, dis, nil, nil, TrainingState{})

	rng := rand.New(rand.NewSource(5))
	otherGen, err := model.BuildGenerator(8, layers.ModeNone, rng)
	if err != nil {
		t.Fatalf("failed to build generator: %v", err)
	}
	otherDis, err := model.BuildDiscriminator(layers.ModeNone, rng)
	if err != nil {
		t.Fatalf("failed to build discriminator: %v", err)
	}
	if err := Restore(cp, otherGen, otherDis); err == nil {
		t.Error("restoring into a generator with a different mode should fail")
	}

	wideGen, err := model.BuildGenerator(16, layers.Mode1D, rng)
	if err != nil {
		t.Fatalf("failed to build generator: %v", err)
	}
	if err := Restore(cp, wideGen, otherDis); err == nil {
		t.Error("restoring into a generator with a different latent size should fail")
	}
}

func TestRestoreOptimizersResumesAdamState(t *testing.T) {
	gen, dis := buildPair(t, 6)
	genOpt, err := training.NewAdam(gen.Parameters(), 0.001, 0.5, 0.999, 1e-8)
	if err != nil {
		t.Fatalf("failed to build optimizer: %v", err)
	}
	disOpt, err := training.NewAdam(dis.Parameters(), 0.001, 0.5, 0.999, 1e-8)
	if err != nil {
		t.Fatalf("failed to build optimizer: %v", err)
	}

	// Take three steps with real gradients so the step counter and the
	// moment estimates hold values a fresh optimizer could not have.
	for step := 0; step < 3; step++ {
		if err := tensor.Sum(gen.Parameters()[0]).Backward(); err != nil {
			t.Fatalf("backward failed: %v", err)
		}
		if err := tensor.Sum(dis.Parameters()[0]).Backward(); err != nil {
			t.Fatalf("backward failed: %v", err)
		}
		if err := genOpt.Step(); err != nil {
			t.Fatalf("generator step failed: %v", err)
		}
		if err := disOpt.Step(); err != nil {
			t.Fatalf("discriminator step failed: %v", err)
		}
		genOpt.ZeroGrad()
		disOpt.ZeroGrad()
	}

	cp := Capture(gen, dis, genOpt, disOpt, TrainingState{Epoch: 1, LearningRate: 0.001})

	path := filepath.Join(t.TempDir(), "resume.json")
	saver := NewCheckpointSaver(FormatJSON)
	if err := saver.SaveCheckpoint(cp, path); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := saver.LoadCheckpoint(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	gen2, dis2 := buildPair(t, 7)
	genOpt2, err := training.NewAdam(gen2.Parameters(), 0.001, 0.5, 0.999, 1e-8)
	if err != nil {
		t.Fatalf("failed to build optimizer: %v", err)
	}
	disOpt2, err := training.NewAdam(dis2.Parameters(), 0.001, 0.5, 0.999, 1e-8)
	if err != nil {
		t.Fatalf("failed to build optimizer: %v", err)
	}
	if err := Restore(loaded, gen2, dis2); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if err := RestoreOptimizers(loaded, gen2, dis2, genOpt2, disOpt2); err != nil {
		t.Fatalf("optimizer restore failed: %v", err)
	}

	if got := genOpt2.StepCount(); got != 3 {
		t.Errorf("resumed generator optimizer step count = %d, want 3", got)
	}
	if got := disOpt2.StepCount(); got != 3 {
		t.Errorf("resumed discriminator optimizer step count = %d, want 3", got)
	}

	for i, p := range gen2.Parameters() {
		origM, origV := genOpt.Moments(gen.Parameters()[i])
		m, v := genOpt2.Moments(p)
		if m == nil || v == nil {
			t.Fatalf("resumed optimizer has no moments for generator parameter %d", i)
		}
		for j := range m.Data {
			if m.Data[j] != origM.Data[j] {
				t.Fatalf("generator parameter %d first moment differs at %d", i, j)
			}
			if v.Data[j] != origV.Data[j] {
				t.Fatalf("generator parameter %d second moment differs at %d", i, j)
			}
		}
	}
}

func TestRestoreOptimizersRejectsTruncatedState(t *testing.T) {
	gen, dis := buildPair(t, 8)
	genOpt, err := training.NewAdam(gen.Parameters(), 0.001, 0.5, 0.999, 1e-8)
	if err != nil {
		t.Fatalf("failed to build optimizer: %v", err)
	}
	disOpt, err := training.NewAdam(dis.Parameters(), 0.001, 0.5, 0.999, 1e-8)
	if err != nil {
		t.Fatalf("failed to build optimizer: %v", err)
	}
	cp := Capture(gen, dis, genOpt, disOpt, TrainingState{})

	cp.GenOptimizer.StateData = cp.GenOptimizer.StateData[:1]
	if err := RestoreOptimizers(cp, gen, dis, genOpt, disOpt); err == nil {
		t.Error("restoring truncated optimizer state should fail")
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	saver := NewCheckpointSaver(FormatJSON)
	if _, err := saver.LoadCheckpoint(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("loading a missing file should fail")
	}
}
