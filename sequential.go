package dataset_go

import (
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
)

// SequentialBatches Splits single dataset into consecutive batches.
// With shuffle enabled the order of samples is permuted anew for every epoch.
type SequentialBatches struct {
	ds        Dataset
	batchSize int
	shuffle   bool
	dropLast  bool
	seed      int64

	mu    sync.RWMutex
	order []int
}

// NewSequentialBatches Returns batching over the dataset
//
// batchSize - number of samples in every batch (the last one may be smaller unless dropLast is set)
// shuffle - whether to permute samples every epoch
// dropLast - whether to drop the last incomplete batch
// seed - seed of the permutation
//
func NewSequentialBatches(ds Dataset, batchSize int, shuffle, dropLast bool, seed int64) (*SequentialBatches, error) {
	if ds == nil || ds.Len() <= 0 {
		return nil, ErrEmptyDataset
	}
	if batchSize <= 0 {
		return nil, errors.Wrapf(ErrNumSamples, "Batch size must be positive, but got %d", batchSize)
	}
	sb := SequentialBatches{
		ds:        ds,
		batchSize: batchSize,
		shuffle:   shuffle,
		dropLast:  dropLast,
		seed:      seed,
	}
	sb.SetEpoch(0)
	return &sb, nil
}

// SetEpoch Recomputes order of samples for the epoch
func (sb *SequentialBatches) SetEpoch(epoch int) {
	order := make([]int, sb.ds.Len())
	if sb.shuffle {
		order = rand.New(streamSource(sb.seed, epoch, -1)).Perm(len(order))
	} else {
		for i := range order {
			order[i] = i
		}
	}
	sb.mu.Lock()
	sb.order = order
	sb.mu.Unlock()
}

// Len Returns number of batches in one epoch
func (sb *SequentialBatches) Len() int {
	if sb.dropLast {
		return sb.ds.Len() / sb.batchSize
	}
	return ceilDiv(sb.ds.Len(), sb.batchSize)
}

// At Returns index-th batch
func (sb *SequentialBatches) At(index int) (*Batch, error) {
	if index < 0 || index >= sb.Len() {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "Can't select batch %d of %d", index, sb.Len())
	}
	sb.mu.RLock()
	order := sb.order
	sb.mu.RUnlock()

	start := index * sb.batchSize
	end := start + sb.batchSize
	if end > len(order) {
		end = len(order)
	}
	batch := Batch{
		Index:   index,
		Samples: make([]Sample, 0, end-start),
		Sources: make([]int, 0, end-start),
	}
	window := SlicerOneStep{StartIdx: start, EndIdx: end}
	for _, idx := range order[window.Start():window.End()] {
		sample, err := sb.ds.At(idx)
		if err != nil {
			return nil, errors.Wrapf(err, "Can't read sample %d", idx)
		}
		batch.Samples = append(batch.Samples, sample)
		batch.Sources = append(batch.Sources, 0)
	}
	return &batch, nil
}
