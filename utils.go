package dataset_go

import (
	"math"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Scalar Returns one-element float64 tensor of shape (1)
func Scalar(v float64) *tensor.Dense {
	return tensor.New(tensor.WithShape(1), tensor.WithBacking([]float64{v}))
}

// Vector Returns float64 tensor of shape (len(values))
func Vector(values ...float64) *tensor.Dense {
	data := make([]float64, len(values))
	copy(data, values)
	return tensor.New(tensor.WithShape(len(data)), tensor.WithBacking(data))
}

// SlicerOneStep Just iterator with step size = 1
type SlicerOneStep struct {
	StartIdx, EndIdx int
}

func (s SlicerOneStep) Start() int { return s.StartIdx }
func (s SlicerOneStep) End() int   { return s.EndIdx }
func (s SlicerOneStep) Step() int  { return 1 }

// detached Returns copy of the dense which doesn't share memory with it (views are materialized)
func detached(t *tensor.Dense) *tensor.Dense {
	if t.IsMaterializable() {
		return t.Materialize().(*tensor.Dense)
	}
	return t.Clone().(*tensor.Dense)
}

// sampleShape Shape of single row of column with given shape. Rows of 1-D columns get shape (1)
func sampleShape(columnShape tensor.Shape) tensor.Shape {
	if len(columnShape) < 2 {
		return tensor.Shape{1}
	}
	return columnShape[1:].Clone()
}

// rowOf Copies index-th row along the first axis of the dense
func rowOf(t *tensor.Dense, index int) (*tensor.Dense, error) {
	shape := t.Shape()
	if len(shape) == 0 {
		return nil, errors.Wrap(ErrShapeMismatch, "Can't select row of scalar tensor")
	}
	if index < 0 || index >= shape[0] {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "Can't select row %d of tensor with shape %v", index, shape)
	}
	view, err := t.Slice(SlicerOneStep{StartIdx: index, EndIdx: index + 1})
	if err != nil {
		return nil, errors.Wrapf(err, "Can't slice row %d", index)
	}
	row := detached(view.(*tensor.Dense))
	// slicing drops the sliced axis, rows of vectors become scalars
	if rowShape := sampleShape(shape); !row.Shape().Eq(rowShape) {
		if err := row.Reshape(rowShape...); err != nil {
			return nil, errors.Wrapf(err, "Can't reshape row %d to %v", index, rowShape)
		}
	}
	return row, nil
}

// flatValues Returns every element of the dense in row-major order
func flatValues(t *tensor.Dense) ([]interface{}, error) {
	flat := detached(t)
	n := flat.DataSize()
	if err := flat.Reshape(n); err != nil {
		return nil, errors.Wrap(err, "Can't flatten tensor")
	}
	values := make([]interface{}, n)
	for i := range values {
		v, err := flat.At(i)
		if err != nil {
			return nil, errors.Wrapf(err, "Can't select element %d", i)
		}
		values[i] = v
	}
	return values, nil
}

// toFloat64s Copies numeric tensor data into float64 slice
func toFloat64s(t *tensor.Dense) ([]float64, error) {
	values, err := flatValues(t)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(values))
	for i, v := range values {
		switch x := v.(type) {
		case float64:
			out[i] = x
		case float32:
			out[i] = float64(x)
		case bool:
			if x {
				out[i] = 1
			}
		default:
			n, ok := asInt(v)
			if !ok {
				return nil, errors.Wrapf(ErrDtypeMismatch, "Can't interpret %s as number", t.Dtype())
			}
			out[i] = float64(n)
		}
	}
	return out, nil
}

// toInts Copies integer tensor data into int slice
func toInts(t *tensor.Dense) ([]int, error) {
	values, err := flatValues(t)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(values))
	for i, v := range values {
		n, ok := asInt(v)
		if !ok {
			return nil, errors.Wrapf(ErrDtypeMismatch, "Expected integer tensor, but got %s", t.Dtype())
		}
		out[i] = n
	}
	return out, nil
}

func asInt(v interface{}) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int8:
		return int(x), true
	case int16:
		return int(x), true
	case int32:
		return int(x), true
	case int64:
		return int(x), true
	case uint:
		return int(x), true
	case uint8:
		return int(x), true
	case uint16:
		return int(x), true
	case uint32:
		return int(x), true
	case uint64:
		return int(x), true
	default:
		return 0, false
	}
}

// castScalar Converts float64 value into value of given dtype. Values for integer dtypes are rounded
func castScalar(v float64, dt tensor.Dtype) (interface{}, error) {
	r := math.Round(v)
	switch dt {
	case tensor.Float64:
		return v, nil
	case tensor.Float32:
		return float32(v), nil
	case tensor.Int:
		return int(r), nil
	case tensor.Int8:
		return int8(r), nil
	case tensor.Int16:
		return int16(r), nil
	case tensor.Int32:
		return int32(r), nil
	case tensor.Int64:
		return int64(r), nil
	case tensor.Uint:
		return uint(r), nil
	case tensor.Uint8:
		return uint8(r), nil
	case tensor.Uint16:
		return uint16(r), nil
	case tensor.Uint32:
		return uint32(r), nil
	case tensor.Uint64:
		return uint64(r), nil
	case tensor.Bool:
		return v != 0, nil
	default:
		return nil, errors.Wrapf(ErrDtypeMismatch, "Can't convert %v to %s", v, dt)
	}
}

// fromFloat64s Builds tensor of given dtype and shape out of row-major values
func fromFloat64s(values []float64, dt tensor.Dtype, shape tensor.Shape) (*tensor.Dense, error) {
	if dt == tensor.Float64 {
		data := make([]float64, len(values))
		copy(data, values)
		return tensor.New(tensor.WithShape(shape.Clone()...), tensor.WithBacking(data)), nil
	}
	out := tensor.New(tensor.Of(dt), tensor.WithShape(len(values)))
	for i, v := range values {
		casted, err := castScalar(v, dt)
		if err != nil {
			return nil, err
		}
		if err := out.SetAt(casted, i); err != nil {
			return nil, errors.Wrapf(err, "Can't set element %d", i)
		}
	}
	if err := out.Reshape(shape...); err != nil {
		return nil, errors.Wrapf(err, "Can't reshape to %v", shape)
	}
	return out, nil
}

// filled Returns tensor of given dtype and shape where every element equals v
func filled(dt tensor.Dtype, shape tensor.Shape, v float64) (*tensor.Dense, error) {
	value, err := castScalar(v, dt)
	if err != nil {
		return nil, err
	}
	out := tensor.New(tensor.Of(dt), tensor.WithShape(shape.Clone()...))
	if err := out.Memset(value); err != nil {
		return nil, errors.Wrap(err, "Can't fill tensor")
	}
	return out, nil
}

type PaddingType int

const (
	PaddingPost = PaddingType(iota)
	PaddingPre
)

// Padding Describes how ragged tensors are padded up to common shape.
// Inspired by: https://www.tensorflow.org/api_docs/python/tf/keras/preprocessing/sequence/pad_sequences
//
// Value - value to fill with. Converted to dtype of padded tensor
// Type - whether elements are placed at start (PaddingPost) or end (PaddingPre) of each axis
//
type Padding struct {
	Value float64
	Type  PaddingType
}

// padTo Returns copy of the dense padded up to target shape. Every axis is extended by concatenation with a filled block
func padTo(t *tensor.Dense, target tensor.Shape, pad Padding) (*tensor.Dense, error) {
	src := t.Shape()
	if len(src) != len(target) {
		return nil, errors.Wrapf(ErrShapeMismatch, "Can't pad shape %v to %v: different number of dimensions", src, target)
	}
	for d := range src {
		if src[d] > target[d] {
			return nil, errors.Wrapf(ErrShapeMismatch, "Can't pad shape %v to smaller shape %v", src, target)
		}
	}
	out := detached(t)
	for d := range target {
		missing := target[d] - out.Shape()[d]
		if missing == 0 {
			continue
		}
		blockShape := out.Shape().Clone()
		blockShape[d] = missing
		block, err := filled(out.Dtype(), blockShape, pad.Value)
		if err != nil {
			return nil, errors.Wrap(err, "Can't prepare padding block")
		}
		var joined tensor.Tensor
		if pad.Type == PaddingPre {
			joined, err = tensor.Concat(d, block, out)
		} else {
			joined, err = tensor.Concat(d, out, block)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "Can't pad axis %d", d)
		}
		out = joined.(*tensor.Dense)
	}
	return out, nil
}
