package dataset_go

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// TensorBatch Batch with samples stacked along new leading axis
//
// Index - index of the batch within the epoch
// Data - feature name -> stacked tensor of shape (batch, feature shape...)
// Sources - copied from Batch
//
type TensorBatch struct {
	Index   int
	Data    map[string]*tensor.Dense
	Sources []int
}

// Size Returns number of elements in the batch
func (tb *TensorBatch) Size() int {
	for _, t := range tb.Data {
		return t.Shape()[0]
	}
	return 0
}

// Collate Stacks samples of the batch key by key.
// Tensors of different shapes are padded when pad is provided, otherwise ErrShapeMismatch is returned.
func Collate(batch *Batch, pad *Padding) (*TensorBatch, error) {
	if batch == nil || len(batch.Samples) == 0 {
		return nil, errors.Wrap(ErrEmptyDataset, "Can't collate empty batch")
	}
	keys := batch.Samples[0].Keys()
	collated := TensorBatch{
		Index:   batch.Index,
		Data:    make(map[string]*tensor.Dense, len(keys)),
		Sources: batch.Sources,
	}
	column := make([]*tensor.Dense, len(batch.Samples))
	for _, key := range keys {
		for j, sample := range batch.Samples {
			value, ok := sample[key]
			if !ok || value == nil {
				return nil, errors.Wrapf(ErrKeyMismatch, "Sample %d of batch %d has no key '%s'", j, batch.Index, key)
			}
			column[j] = value
		}
		stacked, err := stack(column, pad)
		if err != nil {
			return nil, errors.Wrapf(err, "Can't stack key '%s' of batch %d", key, batch.Index)
		}
		collated.Data[key] = stacked
	}
	for j, sample := range batch.Samples {
		if len(sample) != len(keys) {
			return nil, errors.Wrapf(ErrKeyMismatch, "Sample %d of batch %d has %d keys instead of %d", j, batch.Index, len(sample), len(keys))
		}
	}
	return &collated, nil
}

// stack Stacks tensors of the same dtype along new first axis
func stack(items []*tensor.Dense, pad *Padding) (*tensor.Dense, error) {
	dtype := items[0].Dtype()
	maxShape := items[0].Shape().Clone()
	ragged := false
	for i, item := range items[1:] {
		if item.Dtype() != dtype {
			return nil, errors.Wrapf(ErrDtypeMismatch, "Element %d has dtype %s, but first element has %s", i+1, item.Dtype(), dtype)
		}
		shape := item.Shape()
		if len(shape) != len(maxShape) {
			return nil, errors.Wrapf(ErrShapeMismatch, "Element %d has shape %v, but first element has %v", i+1, shape, items[0].Shape())
		}
		for d := range shape {
			if shape[d] != maxShape[d] {
				ragged = true
			}
			if shape[d] > maxShape[d] {
				maxShape[d] = shape[d]
			}
		}
	}
	if ragged && pad == nil {
		return nil, errors.Wrapf(ErrShapeMismatch, "Elements have different shapes and no padding is set")
	}

	stackable := make([]*tensor.Dense, len(items))
	for i, item := range items {
		if ragged && !item.Shape().Eq(maxShape) {
			padded, err := padTo(item, maxShape, *pad)
			if err != nil {
				return nil, errors.Wrapf(err, "Can't pad element %d", i)
			}
			item = padded
		}
		stackable[i] = item
	}
	if len(stackable) == 1 {
		single := detached(stackable[0])
		if err := single.Reshape(append(tensor.Shape{1}, maxShape...)...); err != nil {
			return nil, errors.Wrap(err, "Can't add batch axis")
		}
		return single, nil
	}
	stacked, err := stackable[0].Stack(0, stackable[1:]...)
	if err != nil {
		return nil, errors.Wrap(ErrShapeMismatch, err.Error())
	}
	return stacked, nil
}
