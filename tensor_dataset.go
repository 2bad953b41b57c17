package dataset_go

import (
	"sort"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// TensorDataset In-memory dataset made of tensor columns.
//
// columns - feature name -> tensor whose first axis enumerates samples
// length - number of samples (size of first axis of every column)
//
type TensorDataset struct {
	columns map[string]*tensor.Dense
	length  int
}

// NewTensorDataset Returns dataset over provided columns. Every column must have at least one dimension
// and the same size of the first axis.
func NewTensorDataset(columns map[string]*tensor.Dense) (*TensorDataset, error) {
	if len(columns) == 0 {
		return nil, ErrNoKeys
	}
	ds := TensorDataset{
		columns: make(map[string]*tensor.Dense, len(columns)),
		length:  -1,
	}
	for key, column := range columns {
		if column == nil {
			return nil, errors.Wrapf(ErrShapeMismatch, "Column '%s' is nil", key)
		}
		if column.Dims() == 0 {
			return nil, errors.Wrapf(ErrShapeMismatch, "Column '%s' must have one dimension atleast", key)
		}
		n := column.Shape()[0]
		if ds.length == -1 {
			ds.length = n
		}
		if n != ds.length {
			return nil, errors.Wrapf(ErrLengthMismatch, "Column '%s' has %d samples, but previous columns have %d", key, n, ds.length)
		}
		if column.IsMaterializable() {
			column = column.Materialize().(*tensor.Dense)
		}
		ds.columns[key] = column
	}
	return &ds, nil
}

// Len Returns number of samples
func (ds *TensorDataset) Len() int {
	return ds.length
}

// Keys Returns sorted column names
func (ds *TensorDataset) Keys() []string {
	keys := make([]string, 0, len(ds.columns))
	for k := range ds.columns {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// At Returns copy of index-th row of every column
func (ds *TensorDataset) At(index int) (Sample, error) {
	if index < 0 || index >= ds.length {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "Can't select sample %d from dataset of length %d", index, ds.length)
	}
	sample := make(Sample, len(ds.columns))
	for key, column := range ds.columns {
		row, err := rowOf(column, index)
		if err != nil {
			return nil, errors.Wrapf(err, "Can't select row %d of column '%s'", index, key)
		}
		sample[key] = row
	}
	return sample, nil
}

type ReferenceFunction func(float64) float64
type ArgumentFunction func() float64

// GenerateFuncDataset Returns synthetic dataset with columns "x" and "y" of shape (numSamples, 1),
// where x{i} = xFunc() and y{i} = yFunc(x{i})
func GenerateFuncDataset(numSamples int, xFunc ArgumentFunction, yFunc ReferenceFunction) (*TensorDataset, error) {
	if numSamples <= 0 {
		return nil, errors.Wrapf(ErrNumSamples, "Number of samples must be positive, but got %d", numSamples)
	}
	dataXAxis := make([]float64, numSamples)
	dataYAxis := make([]float64, numSamples)
	for i := range dataXAxis {
		dataXAxis[i] = xFunc()
		dataYAxis[i] = yFunc(dataXAxis[i])
	}
	return NewTensorDataset(map[string]*tensor.Dense{
		"x": tensor.New(tensor.WithShape(numSamples, 1), tensor.WithBacking(dataXAxis)),
		"y": tensor.New(tensor.WithShape(numSamples, 1), tensor.WithBacking(dataYAxis)),
	})
}
