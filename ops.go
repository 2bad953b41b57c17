package dataset_go

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gorgonia.org/tensor"
)

// Mode Execution mode an op is applied in
type Mode string

const (
	ModeTrain = Mode("train")
	ModeEval  = Mode("eval")
	ModeTest  = Mode("test")
)

// Op Per-sample transformation applied by Loader before collation
type Op interface {
	// Forward Returns transformed sample. Implementations must not modify input tensors in place
	Forward(sample Sample) (Sample, error)
	// AppliesTo Reports whether op has to run in given mode
	AppliesTo(mode Mode) bool
}

// RandomOp Op with random parameters. Loader passes every sample its own stream, which depends on
// loader seed, epoch, batch index and position within the batch only
type RandomOp interface {
	Op
	ForwardRandom(sample Sample, rng *rand.Rand) (Sample, error)
}

// OpBase Common part of ops
//
// Inputs - keys to read
// Outputs - keys to write. Defaults to Inputs when empty
// Modes - modes op runs in. Empty means every mode
//
type OpBase struct {
	Inputs  []string
	Outputs []string
	Modes   []Mode
}

// AppliesTo See Op
func (op OpBase) AppliesTo(mode Mode) bool {
	if len(op.Modes) == 0 {
		return true
	}
	for _, m := range op.Modes {
		if m == mode {
			return true
		}
	}
	return false
}

func (op OpBase) outputs() ([]string, error) {
	if len(op.Inputs) == 0 {
		return nil, errors.Wrap(ErrInvalidOp, "Op has no inputs")
	}
	if len(op.Outputs) == 0 {
		return op.Inputs, nil
	}
	if len(op.Outputs) != len(op.Inputs) {
		return nil, errors.Wrapf(ErrInvalidOp, "Op has %d inputs but %d outputs", len(op.Inputs), len(op.Outputs))
	}
	return op.Outputs, nil
}

// forEach Applies fn to every input key and stores results under output keys of a shallow copy of the sample
func (op OpBase) forEach(sample Sample, fn func(*tensor.Dense) (*tensor.Dense, error)) (Sample, error) {
	outputs, err := op.outputs()
	if err != nil {
		return nil, err
	}
	out := make(Sample, len(sample)+len(outputs))
	for k, v := range sample {
		out[k] = v
	}
	for i, key := range op.Inputs {
		value, ok := sample[key]
		if !ok {
			return nil, errors.Wrapf(ErrKeyMismatch, "Sample has no key '%s'", key)
		}
		result, err := fn(value)
		if err != nil {
			return nil, errors.Wrapf(err, "Can't transform key '%s'", key)
		}
		out[outputs[i]] = result
	}
	return out, nil
}

// Onehot Transforms integer class label into one-hot vector with optional label smoothing.
// Ref: https://towardsdatascience.com/label-smoothing-making-model-robust-to-incorrect-labels-2fae037ffbd0
//
// NumClasses - total number of classes
// LabelSmoothing - after smoothing the target class gets 1 - LabelSmoothing + LabelSmoothing/NumClasses, other classes get LabelSmoothing/NumClasses
//
type Onehot struct {
	OpBase
	NumClasses     int
	LabelSmoothing float64
}

// Forward See Op
func (op Onehot) Forward(sample Sample) (Sample, error) {
	if op.NumClasses <= 0 {
		return nil, errors.Wrapf(ErrInvalidOp, "Number of classes must be positive, but got %d", op.NumClasses)
	}
	if op.LabelSmoothing < 0 || op.LabelSmoothing > 1 {
		return nil, errors.Wrapf(ErrInvalidOp, "Label smoothing must be in [0, 1], but got %v", op.LabelSmoothing)
	}
	return op.forEach(sample, op.encode)
}

func (op Onehot) encode(label *tensor.Dense) (*tensor.Dense, error) {
	classes, err := toInts(label)
	if err != nil {
		return nil, err
	}
	if len(classes) != 1 {
		return nil, errors.Wrapf(ErrInvalidOp, "Label must have only one item, but got %d", len(classes))
	}
	class := classes[0]
	if class < 0 || class >= op.NumClasses {
		return nil, errors.Wrapf(ErrInvalidOp, "Label value %d should be in [0, %d)", class, op.NumClasses)
	}
	off := op.LabelSmoothing / float64(op.NumClasses)
	data := make([]float64, op.NumClasses)
	for i := range data {
		data[i] = off
	}
	data[class] = 1.0 - op.LabelSmoothing + off
	return tensor.New(tensor.WithShape(op.NumClasses), tensor.WithBacking(data)), nil
}

// Minmax Normalizes values to [0, 1]: (x - min) / max(max - min, Epsilon). Output is float64
type Minmax struct {
	OpBase
	Epsilon float64
}

// Forward See Op
func (op Minmax) Forward(sample Sample) (Sample, error) {
	eps := op.Epsilon
	if eps <= 0 {
		eps = 1e-7
	}
	return op.forEach(sample, func(t *tensor.Dense) (*tensor.Dense, error) {
		values, err := toFloat64s(t)
		if err != nil {
			return nil, err
		}
		if len(values) == 0 {
			return nil, errors.Wrap(ErrShapeMismatch, "Can't normalize empty tensor")
		}
		lo, hi := floats.Min(values), floats.Max(values)
		floats.AddConst(-lo, values)
		floats.Scale(1/math.Max(hi-lo, eps), values)
		return tensor.New(tensor.WithShape(t.Shape().Clone()...), tensor.WithBacking(values)), nil
	})
}

// LambdaFunc Transforms single tensor
type LambdaFunc func(*tensor.Dense) (*tensor.Dense, error)

// Lambda Applies user provided function to every input key
type Lambda struct {
	OpBase
	Fn LambdaFunc
}

// Forward See Op
func (op Lambda) Forward(sample Sample) (Sample, error) {
	if op.Fn == nil {
		return nil, errors.Wrap(ErrInvalidOp, "Lambda has nil function")
	}
	return op.forEach(sample, op.Fn)
}

// applyOps Runs ops applicable in mode sequentially. Random ops draw from rng when it is provided
func applyOps(sample Sample, ops []Op, mode Mode, rng *rand.Rand) (Sample, error) {
	var err error
	for i, op := range ops {
		if !op.AppliesTo(mode) {
			continue
		}
		if random, ok := op.(RandomOp); ok && rng != nil {
			sample, err = random.ForwardRandom(sample, rng)
		} else {
			sample, err = op.Forward(sample)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "Op #%d failed", i)
		}
	}
	return sample, nil
}
