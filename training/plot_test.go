package training

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"recurrent-gan/tensor"
)

func TestNewPlotterCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "plots")
	p, err := NewPlotter(dir)
	if err != nil {
		t.Fatalf("plotter creation failed: %v", err)
	}
	if p.Dir() != dir {
		t.Errorf("plotter dir %q, want %q", p.Dir(), dir)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("plot directory was not created: %v", err)
	}
}

func TestNewPlotterRejectsEmptyDir(t *testing.T) {
	if _, err := NewPlotter(""); err == nil {
		t.Error("empty plot directory should fail")
	}
}

func TestSaveSamplesWritesOnePNGPerImage(t *testing.T) {
	p, err := NewPlotter(t.TempDir())
	if err != nil {
		t.Fatalf("plotter creation failed: %v", err)
	}

	rng := rand.New(rand.NewSource(1))
	images, _ := tensor.RandUniform([]int{3, 8, 8, 1}, -1, 1, rng)
	if err := p.SaveSamples(images, "digit"); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		name := filepath.Join(p.Dir(), "digit_0"+string(rune('0'+i))+".png")
		info, err := os.Stat(name)
		if err != nil {
			t.Fatalf("expected %s to exist: %v", name, err)
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", name)
		}
	}
}

func TestSaveSamplesRejectsBadShape(t *testing.T) {
	p, err := NewPlotter(t.TempDir())
	if err != nil {
		t.Fatalf("plotter creation failed: %v", err)
	}
	flat, _ := tensor.Zeros([]int{3, 64})
	if err := p.SaveSamples(flat, "digit"); err == nil {
		t.Error("2D image tensor should be rejected")
	}
}

func TestSaveLossCurves(t *testing.T) {
	p, err := NewPlotter(t.TempDir())
	if err != nil {
		t.Fatalf("plotter creation failed: %v", err)
	}

	metrics := []EpochMetrics{
		{Epoch: 0, DisLoss: 0.9, GenLoss: 1.1, BatchCount: 10, Duration: time.Second},
		{Epoch: 1, DisLoss: 0.7, GenLoss: 0.9, BatchCount: 10, Duration: time.Second},
	}
	if err := p.SaveLossCurves(metrics, "loss.png"); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(p.Dir(), "loss.png")); err != nil {
		t.Errorf("loss curve was not written: %v", err)
	}

	if err := p.SaveLossCurves(nil, "empty.png"); err == nil {
		t.Error("empty metrics should fail")
	}
}
