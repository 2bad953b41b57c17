package dataset_go

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gorgonia.org/tensor"
)

// indexedDataset Dataset with single key whose i-th value is offset+i
func indexedDataset(t *testing.T, key string, n int, offset float64) *TensorDataset {
	t.Helper()
	data := make([]float64, n)
	for i := range data {
		data[i] = offset + float64(i)
	}
	ds, err := NewTensorDataset(map[string]*tensor.Dense{
		key: tensor.New(tensor.WithShape(n), tensor.WithBacking(data)),
	})
	require.NoError(t, err)
	return ds
}

func valueOf(t *testing.T, s Sample, key string) float64 {
	t.Helper()
	v, ok := s[key]
	require.True(t, ok, "sample has no key %s", key)
	x, err := v.At(0)
	require.NoError(t, err)
	return x.(float64)
}

func TestNewBatchDatasetValidation(t *testing.T) {
	a := indexedDataset(t, "x", 10, 0)
	b := indexedDataset(t, "x", 6, 100)
	c := indexedDataset(t, "y", 10, 200)
	d := indexedDataset(t, "y", 4, 300)
	mixed, err := NewTensorDataset(map[string]*tensor.Dense{
		"x": tensor.New(tensor.WithShape(3), tensor.WithBacking([]float64{1, 2, 3})),
		"z": tensor.New(tensor.WithShape(3), tensor.WithBacking([]float64{1, 2, 3})),
	})
	require.NoError(t, err)

	tests := []struct {
		name     string
		datasets []Dataset
		cfg      BatchConfig
		want     error
	}{
		{"no datasets", nil, BatchConfig{NumSamples: []int{1}}, ErrNoDatasets},
		{"empty dataset", []Dataset{a, SliceDataset{}}, BatchConfig{NumSamples: []int{1, 1}}, ErrEmptyDataset},
		{"sample without keys", []Dataset{NewSliceDataset(Sample{})}, BatchConfig{NumSamples: []int{1}}, ErrNoKeys},
		{"counts per dataset", []Dataset{a, b}, BatchConfig{NumSamples: []int{2}}, ErrNumSamples},
		{"non-positive count", []Dataset{a, b}, BatchConfig{NumSamples: []int{2, 0}}, ErrNumSamples},
		{"counts don't sum to batch size", []Dataset{a, b}, BatchConfig{NumSamples: []int{2, 2}, BatchSize: 5}, ErrNumSamples},
		{"keys neither same nor disjoint", []Dataset{a, mixed}, BatchConfig{NumSamples: []int{1, 1}}, ErrKeyMismatch},
		{"unpaired with shared keys", []Dataset{a, b}, BatchConfig{NumSamples: []int{1, 1}, Unpaired: true}, ErrKeyMismatch},
		{"merged with different counts", []Dataset{a, c}, BatchConfig{NumSamples: []int{2, 3}}, ErrNumSamples},
		{"paired with different lengths", []Dataset{a, d}, BatchConfig{NumSamples: []int{2, 2}}, ErrLengthMismatch},
		{"probability sum", []Dataset{a, b}, BatchConfig{BatchSize: 4, Probability: []float64{0.5, 0.6}}, ErrProbability},
		{"probability count", []Dataset{a, b}, BatchConfig{BatchSize: 4, Probability: []float64{1}}, ErrProbability},
		{"probability single dataset", []Dataset{a}, BatchConfig{BatchSize: 4, Probability: []float64{1}}, ErrProbability},
		{"probability negative", []Dataset{a, b}, BatchConfig{BatchSize: 4, Probability: []float64{1.5, -0.5}}, ErrProbability},
		{"probability with disjoint keys", []Dataset{a, c}, BatchConfig{BatchSize: 4, Probability: []float64{0.5, 0.5}}, ErrProbability},
		{"probability without batch size", []Dataset{a, b}, BatchConfig{Probability: []float64{0.5, 0.5}}, ErrNumSamples},
		{"probability with vector of counts", []Dataset{a, b}, BatchConfig{NumSamples: []int{2, 2}, Probability: []float64{0.5, 0.5}}, ErrNumSamples},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBatchDataset(tt.datasets, tt.cfg)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBatchDatasetDeterministic(t *testing.T) {
	a := indexedDataset(t, "x", 10, 0)
	b := indexedDataset(t, "x", 5, 100)
	bd, err := NewBatchDataset([]Dataset{a, b}, BatchConfig{NumSamples: []int{3, 2}, Seed: 42})
	require.NoError(t, err)

	assert.Equal(t, Stacked, bd.Composition())
	assert.False(t, bd.Probabilistic())
	assert.Equal(t, 5, bd.BatchSize())
	assert.Equal(t, 4, bd.Len())

	for i := 0; i < bd.Len(); i++ {
		batch, err := bd.At(i)
		require.NoError(t, err)
		assert.Equal(t, i, batch.Index)
		require.Len(t, batch.Samples, 5)
		assert.Equal(t, []int{0, 0, 0, 1, 1}, batch.Sources)

		seen := map[float64]bool{}
		for j, s := range batch.Samples {
			v := valueOf(t, s, "x")
			if batch.Sources[j] == 0 {
				assert.True(t, v >= 0 && v < 10, "value %v is not from dataset #0", v)
			} else {
				assert.True(t, v >= 100 && v < 105, "value %v is not from dataset #1", v)
			}
			assert.False(t, seen[v], "value %v drawn twice in one batch", v)
			seen[v] = true
		}
	}

	_, err = bd.At(bd.Len())
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = bd.At(-1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func epochValues(t *testing.T, bd *BatchDataset, key string) []float64 {
	t.Helper()
	var values []float64
	for i := 0; i < bd.Len(); i++ {
		batch, err := bd.At(i)
		require.NoError(t, err)
		for _, s := range batch.Samples {
			values = append(values, valueOf(t, s, key))
		}
	}
	return values
}

func TestBatchDatasetReproducible(t *testing.T) {
	newBD := func(seed int64) *BatchDataset {
		bd, err := NewBatchDataset([]Dataset{indexedDataset(t, "x", 50, 0), indexedDataset(t, "x", 30, 100)}, BatchConfig{NumSamples: []int{4, 4}, Seed: seed})
		require.NoError(t, err)
		return bd
	}
	first, second := newBD(7), newBD(7)
	assert.Equal(t, epochValues(t, first, "x"), epochValues(t, second, "x"))

	// repeated reads of the same epoch give the same batches
	assert.Equal(t, epochValues(t, first, "x"), epochValues(t, first, "x"))

	epochZero := epochValues(t, first, "x")
	first.SetEpoch(1)
	assert.NotEqual(t, epochZero, epochValues(t, first, "x"))

	assert.NotEqual(t, epochZero, epochValues(t, newBD(8), "x"))
}

func TestBatchDatasetConcurrentAt(t *testing.T) {
	bd, err := NewBatchDataset([]Dataset{indexedDataset(t, "x", 64, 0), indexedDataset(t, "x", 32, 100)}, BatchConfig{
		BatchSize:   8,
		Probability: []float64{0.5, 0.5},
		Seed:        3,
	})
	require.NoError(t, err)
	expected := make([][]float64, bd.Len())
	for i := range expected {
		batch, err := bd.At(i)
		require.NoError(t, err)
		for _, s := range batch.Samples {
			expected[i] = append(expected[i], valueOf(t, s, "x"))
		}
	}

	got := make([][]float64, bd.Len())
	var wg sync.WaitGroup
	for i := bd.Len() - 1; i >= 0; i-- {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			batch, err := bd.At(i)
			if err != nil {
				return
			}
			for _, s := range batch.Samples {
				v, _ := s["x"].At(0)
				got[i] = append(got[i], v.(float64))
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, expected, got)
}

func TestBatchDatasetProbabilistic(t *testing.T) {
	a := indexedDataset(t, "x", 50, 0)
	b := indexedDataset(t, "x", 20, 100)
	bd, err := NewBatchDataset([]Dataset{a, b}, BatchConfig{
		NumSamples:  []int{10},
		Probability: []float64{0.8, 0.2},
		Seed:        1,
	})
	require.NoError(t, err)
	assert.True(t, bd.Probabilistic())
	assert.Equal(t, 10, bd.BatchSize())
	assert.Equal(t, 5, bd.Len())

	recorder := NewMixRecorder()
	for epoch := 0; epoch < 200; epoch++ {
		bd.SetEpoch(epoch)
		for i := 0; i < bd.Len(); i++ {
			batch, err := bd.At(i)
			require.NoError(t, err)
			require.Len(t, batch.Samples, 10)
			require.Len(t, batch.Sources, 10)
			for j, s := range batch.Samples {
				v := valueOf(t, s, "x")
				if batch.Sources[j] == 0 {
					assert.True(t, v >= 0 && v < 50)
				} else {
					assert.True(t, v >= 100 && v < 120)
				}
			}
			recorder.Record(batch)
		}
	}
	stats := recorder.Stats()
	assert.EqualValues(t, 1000, stats.Batches)
	assert.EqualValues(t, 10000, stats.Samples)
	ratios := stats.Ratios()
	require.Len(t, ratios, 2)
	assert.InDelta(t, 0.8, ratios[0], 0.03)
	assert.InDelta(t, 0.2, ratios[1], 0.03)
}

func TestBatchDatasetZeroProbability(t *testing.T) {
	a := indexedDataset(t, "x", 20, 0)
	b := indexedDataset(t, "x", 20, 100)
	bd, err := NewBatchDataset([]Dataset{a, b}, BatchConfig{
		BatchSize:   4,
		Probability: []float64{1, 0},
		Seed:        3,
	})
	require.NoError(t, err)
	for epoch := 0; epoch < 10; epoch++ {
		bd.SetEpoch(epoch)
		for i := 0; i < bd.Len(); i++ {
			batch, err := bd.At(i)
			require.NoError(t, err)
			assert.Equal(t, []int{0, 0, 0, 0}, batch.Sources)
		}
	}

	_, err = NewBatchDataset([]Dataset{a, b}, BatchConfig{
		BatchSize:   4,
		Probability: []float64{0.3333333, 0.6666667},
	})
	assert.NoError(t, err)
}

func TestBatchDatasetPaired(t *testing.T) {
	a := indexedDataset(t, "x", 20, 0)
	b := indexedDataset(t, "y", 20, 100)
	bd, err := NewBatchDataset([]Dataset{a, b}, BatchConfig{NumSamples: []int{4, 4}, Seed: 5})
	require.NoError(t, err)
	assert.Equal(t, Merged, bd.Composition())
	assert.False(t, bd.Unpaired())
	assert.Equal(t, 4, bd.BatchSize())
	assert.Equal(t, 5, bd.Len())

	for i := 0; i < bd.Len(); i++ {
		batch, err := bd.At(i)
		require.NoError(t, err)
		assert.Nil(t, batch.Sources)
		require.Len(t, batch.Samples, 4)
		for _, s := range batch.Samples {
			assert.Equal(t, []string{"x", "y"}, s.Keys())
			assert.Equal(t, valueOf(t, s, "x")+100, valueOf(t, s, "y"))
		}
	}
}

func TestBatchDatasetUnpaired(t *testing.T) {
	a := indexedDataset(t, "x", 20, 0)
	b := indexedDataset(t, "y", 7, 100)
	bd, err := NewBatchDataset([]Dataset{a, b}, BatchConfig{NumSamples: []int{4, 4}, Unpaired: true, Seed: 11})
	require.NoError(t, err)
	assert.Equal(t, Merged, bd.Composition())
	assert.True(t, bd.Unpaired())
	assert.Equal(t, 5, bd.Len())

	mismatched := 0
	for epoch := 0; epoch < 5; epoch++ {
		bd.SetEpoch(epoch)
		for i := 0; i < bd.Len(); i++ {
			batch, err := bd.At(i)
			require.NoError(t, err)
			require.Len(t, batch.Samples, 4)
			for _, s := range batch.Samples {
				x, y := valueOf(t, s, "x"), valueOf(t, s, "y")
				assert.True(t, x >= 0 && x < 20)
				assert.True(t, y >= 100 && y < 107)
				if y-100 != x {
					mismatched++
				}
			}
		}
	}
	assert.NotZero(t, mismatched, "unpaired datasets must not share index")
}

func TestBatchDatasetSingleDataset(t *testing.T) {
	bd, err := NewBatchDataset([]Dataset{indexedDataset(t, "x", 7, 0)}, BatchConfig{NumSamples: []int{3}})
	require.NoError(t, err)
	assert.Equal(t, Stacked, bd.Composition())
	assert.Equal(t, 3, bd.Len())
}

func TestBatchDatasetOversampling(t *testing.T) {
	// dataset smaller than its share of the batch is drawn with replacement
	bd, err := NewBatchDataset([]Dataset{indexedDataset(t, "x", 2, 0), indexedDataset(t, "x", 10, 100)}, BatchConfig{NumSamples: []int{5, 1}})
	require.NoError(t, err)
	batch, err := bd.At(0)
	require.NoError(t, err)
	for j, s := range batch.Samples {
		if batch.Sources[j] == 0 {
			v := valueOf(t, s, "x")
			assert.True(t, v == 0 || v == 1)
		}
	}
}

func TestDrawIndices(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, k := range []int{0, 1, 5, 10} {
		indices := drawIndices(rng, 10, k)
		require.Len(t, indices, k)
		seen := map[int]bool{}
		for _, idx := range indices {
			assert.True(t, idx >= 0 && idx < 10)
			assert.False(t, seen[idx])
			seen[idx] = true
		}
	}
	for _, idx := range drawIndices(rng, 3, 20) {
		assert.True(t, idx >= 0 && idx < 3)
	}
}
