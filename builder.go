package dataset_go

import (
	"github.com/pkg/errors"
)

// LoaderBuilder Creates Loader based on parameters specified by With methods.
// The With methods do not modify the builder they operate on and return a new one instead.
//
// The default builder creates a Loader which runs in ModeTrain with a single worker, a prefetch
// window of one batch, no ops, no padding, no logging and zero seed.
type LoaderBuilder struct {
	workers  int
	prefetch int
	mode     Mode
	ops      []Op
	pad      *Padding
	recorder *MixRecorder
	logger   Logger
	seed     int64
}

// NewLoaderBuilder Returns default LoaderBuilder
func NewLoaderBuilder() *LoaderBuilder {
	return &LoaderBuilder{
		workers:  1,
		prefetch: 1,
		mode:     ModeTrain,
	}
}

// WithWorkers Number of goroutines building batches concurrently
func (b *LoaderBuilder) WithWorkers(workers int) *LoaderBuilder {
	newBuilder := *b
	newBuilder.workers = workers
	return &newBuilder
}

// WithPrefetch Number of batches which may be prepared ahead of consumer
func (b *LoaderBuilder) WithPrefetch(prefetch int) *LoaderBuilder {
	newBuilder := *b
	newBuilder.prefetch = prefetch
	return &newBuilder
}

// WithMode Mode used to filter ops
func (b *LoaderBuilder) WithMode(mode Mode) *LoaderBuilder {
	newBuilder := *b
	newBuilder.mode = mode
	return &newBuilder
}

// WithOps Ops applied to every sample in the given order. Replaces previously set ops
func (b *LoaderBuilder) WithOps(ops ...Op) *LoaderBuilder {
	newBuilder := *b
	newBuilder.ops = append([]Op(nil), ops...)
	return &newBuilder
}

// WithPadding Padding of ragged tensors during collation
func (b *LoaderBuilder) WithPadding(pad Padding) *LoaderBuilder {
	newBuilder := *b
	newBuilder.pad = &pad
	return &newBuilder
}

// WithRecorder Recorder of batch composition
func (b *LoaderBuilder) WithRecorder(recorder *MixRecorder) *LoaderBuilder {
	newBuilder := *b
	newBuilder.recorder = recorder
	return &newBuilder
}

// WithLogger Logger of loading progress
func (b *LoaderBuilder) WithLogger(logger Logger) *LoaderBuilder {
	newBuilder := *b
	newBuilder.logger = logger
	return &newBuilder
}

// WithSeed Seed of random ops. Same seed gives same transformations regardless of number of workers
func (b *LoaderBuilder) WithSeed(seed int64) *LoaderBuilder {
	newBuilder := *b
	newBuilder.seed = seed
	return &newBuilder
}

// Loader Returns Loader over the source
func (b *LoaderBuilder) Loader(src BatchSource) (*Loader, error) {
	if src == nil {
		return nil, ErrNoDatasets
	}
	if b.workers <= 0 {
		return nil, errors.Errorf("Number of workers must be positive, but got %d", b.workers)
	}
	if b.prefetch <= 0 {
		return nil, errors.Errorf("Prefetch must be positive, but got %d", b.prefetch)
	}
	for i, op := range b.ops {
		if op == nil {
			return nil, errors.Wrapf(ErrInvalidOp, "Op #%d is nil", i)
		}
	}
	return &Loader{
		src:      src,
		workers:  b.workers,
		prefetch: b.prefetch,
		mode:     b.mode,
		ops:      b.ops,
		pad:      b.pad,
		recorder: b.recorder,
		logger:   loggerOrNoop(b.logger),
		seed:     b.seed,
	}, nil
}
