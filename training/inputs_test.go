package training

import (
	"math/rand"
	"testing"

	"recurrent-gan/layers"
	"recurrent-gan/tensor"
)

func testArrays(t *testing.T, n int) (*tensor.Tensor, *tensor.Tensor) {
	t.Helper()
	rng := rand.New(rand.NewSource(99))
	images, err := tensor.RandUniform([]int{n, 4, 4, 1}, -1, 1, rng)
	if err != nil {
		t.Fatalf("failed to build images: %v", err)
	}
	labelData := make([]float64, n)
	for i := range labelData {
		labelData[i] = float64(i % 10)
	}
	labels, err := tensor.NewTensor([]int{n, 1}, labelData)
	if err != nil {
		t.Fatalf("failed to build labels: %v", err)
	}
	return images, labels
}

func TestSlotNamesFollowModes(t *testing.T) {
	images, labels := testArrays(t, 6)

	cases := []struct {
		genMode layers.AttentionMode
		disMode layers.AttentionMode
		want    []string
	}{
		{layers.ModeNone, layers.ModeNone, []string{"latent", "real_data"}},
		{layers.Mode1D, layers.ModeNone, []string{"latent", "real_data", "image_class_gen"}},
		{layers.ModeNone, layers.Mode1D, []string{"latent", "real_data", "image_class_dis"}},
		{layers.Mode2D, layers.ModeNone, []string{"latent", "real_data", "ref_image_gen"}},
		{layers.ModeNone, layers.Mode2D, []string{"latent", "real_data", "ref_image_dis"}},
		{layers.Mode1D, layers.Mode2D, []string{"latent", "real_data", "image_class_gen", "ref_image_dis"}},
		{layers.Mode2D, layers.Mode1D, []string{"latent", "real_data", "ref_image_gen", "image_class_dis"}},
		{layers.Mode1D, layers.Mode1D, []string{"latent", "real_data", "image_class_gen", "image_class_dis"}},
		{layers.Mode2D, layers.Mode2D, []string{"latent", "real_data", "ref_image_gen", "ref_image_dis"}},
	}

	for _, tc := range cases {
		inputs, err := NewTrainingInputs(tc.genMode, tc.disMode, LatentUniform, images, labels)
		if err != nil {
			t.Fatalf("gen=%s dis=%s: %v", tc.genMode, tc.disMode, err)
		}
		got := inputs.SlotNames()
		if len(got) != len(tc.want) {
			t.Fatalf("gen=%s dis=%s: slots %v, want %v", tc.genMode, tc.disMode, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("gen=%s dis=%s: slots %v, want %v", tc.genMode, tc.disMode, got, tc.want)
			}
		}
		if err := inputs.Validate(); err != nil {
			t.Errorf("gen=%s dis=%s: validate failed: %v", tc.genMode, tc.disMode, err)
		}
	}
}

func TestLatentSlotAlwaysPresent(t *testing.T) {
	images, labels := testArrays(t, 4)

	for _, lt := range []LatentType{LatentUniform, LatentNormal} {
		inputs, err := NewTrainingInputs(layers.ModeNone, layers.ModeNone, lt, images, labels)
		if err != nil {
			t.Fatalf("latent %s: %v", lt, err)
		}
		names := inputs.SlotNames()
		if len(names) == 0 || names[0] != "latent" {
			t.Fatalf("latent %s: slots %v must start with the latent slot", lt, names)
		}
		if inputs.Latent != lt {
			t.Errorf("latent slot holds %s, want %s", inputs.Latent, lt)
		}
	}
}

func TestTrainingInputsRequireLabelsFor1D(t *testing.T) {
	images, _ := testArrays(t, 4)
	if _, err := NewTrainingInputs(layers.Mode1D, layers.ModeNone, LatentUniform, images, nil); err == nil {
		t.Error("1d conditioning without labels should fail")
	}
	if _, err := NewTrainingInputs(layers.ModeNone, layers.Mode2D, LatentUniform, images, nil); err != nil {
		t.Errorf("2d conditioning does not need labels: %v", err)
	}
}

func TestValidateRejectsStraySlots(t *testing.T) {
	images, labels := testArrays(t, 4)
	inputs, err := NewTrainingInputs(layers.ModeNone, layers.ModeNone, LatentUniform, images, labels)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	// Hand-poking a slot the modes do not accept must fail validation.
	inputs.ImageClassGen = labels
	if err := inputs.Validate(); err == nil {
		t.Error("a populated slot without a matching mode should fail validation")
	}
}

func TestParseLatentType(t *testing.T) {
	cases := []struct {
		value   string
		want    LatentType
		wantErr bool
	}{
		{"uniform", LatentUniform, false},
		{"normal", LatentNormal, false},
		{"UNIFORM", LatentUniform, false},
		{"Normal", LatentNormal, false},
		{"ormal", LatentUniform, true},
		{"", LatentUniform, true},
		{"gaussian", LatentUniform, true},
	}

	for _, tc := range cases {
		got, err := ParseLatentType("latent_type", tc.value)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseLatentType(%q) should have failed", tc.value)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLatentType(%q) failed: %v", tc.value, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseLatentType(%q) = %s, want %s", tc.value, got, tc.want)
		}
	}
}

func TestSampleLatentDistributions(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	uniform, err := SampleLatent(LatentUniform, 8, 16, rng)
	if err != nil {
		t.Fatalf("uniform sampling failed: %v", err)
	}
	if uniform.Shape[0] != 8 || uniform.Shape[1] != 16 {
		t.Fatalf("uniform latent shape %v, want [8 16]", uniform.Shape)
	}
	for i, v := range uniform.Data {
		if v < -1 || v >= 1 {
			t.Fatalf("uniform sample %d = %v outside [-1, 1)", i, v)
		}
	}

	normal, err := SampleLatent(LatentNormal, 8, 16, rng)
	if err != nil {
		t.Fatalf("normal sampling failed: %v", err)
	}
	if normal.NumElems != 128 {
		t.Fatalf("normal latent has %d elements, want 128", normal.NumElems)
	}
}

func TestDefaultTargets(t *testing.T) {
	targets := DefaultTargets()
	if targets.GenReal != 1 {
		t.Errorf("real target = %v, want 1", targets.GenReal)
	}
	if targets.Fake != 0 {
		t.Errorf("fake target = %v, want 0", targets.Fake)
	}
}
