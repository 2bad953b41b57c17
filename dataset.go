package dataset_go

import (
	"sort"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Sample Single training example: feature name -> value
type Sample map[string]*tensor.Dense

// Keys Returns sorted feature names of the sample
func (s Sample) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Dataset Random access source of samples
type Dataset interface {
	Len() int
	At(index int) (Sample, error)
}

// Epocher Is implemented by sources whose content depends on current epoch (e.g. shuffled ones)
type Epocher interface {
	SetEpoch(epoch int)
}

// SliceDataset Dataset over explicitly provided samples
type SliceDataset []Sample

// NewSliceDataset Returns dataset over provided samples
func NewSliceDataset(samples ...Sample) SliceDataset {
	return SliceDataset(samples)
}

// Len Returns number of samples
func (ds SliceDataset) Len() int {
	return len(ds)
}

// At Returns sample at given index
func (ds SliceDataset) At(index int) (Sample, error) {
	if index < 0 || index >= len(ds) {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "Can't select sample %d from dataset of length %d", index, len(ds))
	}
	return ds[index], nil
}

// datasetKeys Extracts key set of a dataset from its first sample
func datasetKeys(ds Dataset) (map[string]struct{}, error) {
	if ds == nil {
		return nil, errors.Wrap(ErrEmptyDataset, "Dataset is nil")
	}
	if ds.Len() <= 0 {
		return nil, ErrEmptyDataset
	}
	first, err := ds.At(0)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read first sample")
	}
	if len(first) == 0 {
		return nil, ErrNoKeys
	}
	keys := make(map[string]struct{}, len(first))
	for k := range first {
		keys[k] = struct{}{}
	}
	return keys, nil
}

// mergeSamples Merges samples with disjoint keys into one
func mergeSamples(samples []Sample) (Sample, error) {
	size := 0
	for _, s := range samples {
		size += len(s)
	}
	merged := make(Sample, size)
	for i, s := range samples {
		for k, v := range s {
			if _, ok := merged[k]; ok {
				return nil, errors.Wrapf(ErrKeyMismatch, "Key '%s' of dataset #%d is already provided by another dataset", k, i)
			}
			merged[k] = v
		}
	}
	return merged, nil
}
