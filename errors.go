package dataset_go

import (
	"github.com/pkg/errors"
)

var (
	// ErrNoDatasets is returned when a composition is requested over zero datasets
	ErrNoDatasets = errors.New("no datasets provided")
	// ErrEmptyDataset is returned when one of the datasets has no samples
	ErrEmptyDataset = errors.New("dataset is empty")
	// ErrNoKeys is returned when a sample carries no features
	ErrNoKeys = errors.New("found no key in dataset")
	// ErrKeyMismatch is returned when dataset keys are neither all the same nor pairwise disjoint
	ErrKeyMismatch = errors.New("dataset keys mismatch")
	// ErrNumSamples is returned on invalid per-dataset sample counts
	ErrNumSamples = errors.New("invalid number of samples")
	// ErrProbability is returned on invalid probability distribution
	ErrProbability = errors.New("invalid probability distribution")
	// ErrLengthMismatch is returned when datasets (or columns) must have the same length but do not
	ErrLengthMismatch = errors.New("length mismatch")
	// ErrIndexOutOfRange is returned when an index lies outside of [0, Len())
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrShapeMismatch is returned when tensors can't be stacked because of different shapes
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrDtypeMismatch is returned when tensors have different or unsupported data types
	ErrDtypeMismatch = errors.New("dtype mismatch")
	// ErrInvalidOp is returned when an op is misconfigured or gets unexpected input
	ErrInvalidOp = errors.New("invalid op")
)
