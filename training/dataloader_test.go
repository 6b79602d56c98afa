package training

import (
	"math/rand"
	"testing"

	"recurrent-gan/tensor"
)

func buildDataset(t *testing.T, n int) *SimpleDataset {
	t.Helper()
	data := make([]*tensor.Tensor, n)
	labels := make([]*tensor.Tensor, n)
	for i := 0; i < n; i++ {
		d, err := tensor.Full([]int{2, 2}, float64(i))
		if err != nil {
			t.Fatalf("failed to build sample: %v", err)
		}
		l, err := tensor.NewTensor([]int{1}, []float64{float64(i)})
		if err != nil {
			t.Fatalf("failed to build label: %v", err)
		}
		data[i] = d
		labels[i] = l
	}
	ds, err := NewSimpleDataset(data, labels)
	if err != nil {
		t.Fatalf("failed to build dataset: %v", err)
	}
	return ds
}

func TestDataLoaderBatchShapes(t *testing.T) {
	ds := buildDataset(t, 10)
	loader, err := NewDataLoader(ds, 4, false, nil)
	if err != nil {
		t.Fatalf("failed to build loader: %v", err)
	}

	if loader.Len() != 3 {
		t.Errorf("loader length %d, want 3 batches", loader.Len())
	}

	sizes := []int{}
	loader.Reset()
	for loader.HasNext() {
		batch, err := loader.Next()
		if err != nil {
			t.Fatalf("next failed: %v", err)
		}
		if batch == nil {
			break
		}
		if len(batch.Data.Shape) != 3 || batch.Data.Shape[1] != 2 || batch.Data.Shape[2] != 2 {
			t.Fatalf("batch data shape %v, want [n 2 2]", batch.Data.Shape)
		}
		if batch.Labels.Shape[0] != batch.Data.Shape[0] {
			t.Fatalf("label batch %d does not match data batch %d", batch.Labels.Shape[0], batch.Data.Shape[0])
		}
		sizes = append(sizes, batch.Size())
	}

	want := []int{4, 4, 2}
	if len(sizes) != len(want) {
		t.Fatalf("batch sizes %v, want %v", sizes, want)
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Fatalf("batch sizes %v, want %v", sizes, want)
		}
	}
}

func TestDataLoaderVisitsEverySample(t *testing.T) {
	ds := buildDataset(t, 7)
	loader, err := NewDataLoader(ds, 3, true, rand.New(rand.NewSource(5)))
	if err != nil {
		t.Fatalf("failed to build loader: %v", err)
	}

	seen := map[float64]bool{}
	loader.Reset()
	for loader.HasNext() {
		batch, err := loader.Next()
		if err != nil {
			t.Fatalf("next failed: %v", err)
		}
		if batch == nil {
			break
		}
		for _, v := range batch.Labels.Data {
			if seen[v] {
				t.Fatalf("sample %v visited twice in one epoch", v)
			}
			seen[v] = true
		}
	}
	if len(seen) != 7 {
		t.Errorf("visited %d samples, want 7", len(seen))
	}
}

func TestDataLoaderDeterministicWithSeed(t *testing.T) {
	order := func(seed int64) []float64 {
		ds := buildDataset(t, 8)
		loader, err := NewDataLoader(ds, 8, true, rand.New(rand.NewSource(seed)))
		if err != nil {
			t.Fatalf("failed to build loader: %v", err)
		}
		loader.Reset()
		batch, err := loader.Next()
		if err != nil {
			t.Fatalf("next failed: %v", err)
		}
		return append([]float64{}, batch.Labels.Data...)
	}

	a := order(11)
	b := order(11)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed produced different orders: %v vs %v", a, b)
		}
	}
}

func TestDataLoaderValidation(t *testing.T) {
	ds := buildDataset(t, 4)
	if _, err := NewDataLoader(ds, 0, false, nil); err == nil {
		t.Error("zero batch size should fail")
	}
	if _, err := NewDataLoader(ds, 2, true, nil); err == nil {
		t.Error("shuffling without a random source should fail")
	}
}

func TestSimpleDatasetBounds(t *testing.T) {
	ds := buildDataset(t, 3)
	if _, _, err := ds.Get(-1); err == nil {
		t.Error("negative index should fail")
	}
	if _, _, err := ds.Get(3); err == nil {
		t.Error("out of range index should fail")
	}
}
