package dataset_go

import (
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
)

// Loader Turns a BatchSource into a stream of collated batches.
// Use NewLoaderBuilder to create one.
type Loader struct {
	src      BatchSource
	workers  int
	prefetch int
	mode     Mode
	ops      []Op
	pad      *Padding
	recorder *MixRecorder
	logger   Logger
	seed     int64
}

// Len Returns number of batches in one epoch
func (l *Loader) Len() int {
	return l.src.Len()
}

type loadResult struct {
	batch *TensorBatch
	err   error
}

type loadJob struct {
	epoch int
	index int
	out   chan<- loadResult
}

// load Builds, transforms and collates index-th batch of the epoch
func (l *Loader) load(epoch, index int) (*TensorBatch, error) {
	batch, err := l.src.At(index)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't get batch %d", index)
	}
	if l.recorder != nil {
		l.recorder.Record(batch)
	}
	if len(l.ops) > 0 {
		transformed := Batch{
			Index:   batch.Index,
			Samples: make([]Sample, len(batch.Samples)),
			Sources: batch.Sources,
		}
		for j, sample := range batch.Samples {
			rng := rand.New(elementSource(l.seed, epoch, index, j))
			transformed.Samples[j], err = applyOps(sample, l.ops, l.mode, rng)
			if err != nil {
				return nil, errors.Wrapf(err, "Can't apply ops to element %d of batch %d", j, index)
			}
		}
		batch = &transformed
	}
	collated, err := Collate(batch, l.pad)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't collate batch %d", index)
	}
	return collated, nil
}

// Epoch Starts producing batches of the epoch. Batches are built by a pool of workers and delivered in
// index order. The iterator must be drained or closed to release the workers.
func (l *Loader) Epoch(ctx context.Context, epoch int) *Iterator {
	if e, ok := l.src.(Epocher); ok {
		e.SetEpoch(epoch)
	}
	ctx, cancel := context.WithCancel(ctx)
	it := &Iterator{
		ctx:     ctx,
		cancel:  cancel,
		futures: make(chan chan loadResult, l.prefetch),
		epoch:   epoch,
		logger:  l.logger,
	}
	n := l.src.Len()
	l.logger.Info("Epoch %d: loading %d batches with %d workers", epoch, n, l.workers)

	jobs := make(chan loadJob)
	var wg sync.WaitGroup
	for w := 0; w < l.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				batch, err := l.load(job.epoch, job.index)
				job.out <- loadResult{batch: batch, err: err}
			}
		}()
	}

	go func() {
		defer func() {
			close(jobs)
			close(it.futures)
			wg.Wait()
		}()
		for i := 0; i < n; i++ {
			out := make(chan loadResult, 1)
			select {
			case it.futures <- out:
			case <-ctx.Done():
				return
			}
			select {
			case jobs <- loadJob{epoch: epoch, index: i, out: out}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return it
}

// Run Feeds every batch of the epoch into fn. Stops on first error
func (l *Loader) Run(ctx context.Context, epoch int, fn func(*TensorBatch) error) error {
	it := l.Epoch(ctx, epoch)
	defer it.Close()
	for {
		batch, err := it.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(batch); err != nil {
			return errors.Wrapf(err, "Can't handle batch %d", batch.Index)
		}
	}
}

// Iterator Ordered stream of batches of a single epoch
type Iterator struct {
	ctx     context.Context
	cancel  context.CancelFunc
	futures chan chan loadResult
	epoch   int
	count   int
	err     error
	logger  Logger
}

// Next Returns next batch. At the end of the epoch io.EOF is returned.
// After the first error every following call returns the same error.
func (it *Iterator) Next() (*TensorBatch, error) {
	if it.err != nil {
		return nil, it.err
	}
	if err := it.ctx.Err(); err != nil {
		return nil, it.fail(err)
	}
	select {
	case future, ok := <-it.futures:
		if !ok {
			return nil, it.fail(io.EOF)
		}
		select {
		case res := <-future:
			if res.err != nil {
				it.logger.Error("Epoch %d: %v", it.epoch, res.err)
				return nil, it.fail(res.err)
			}
			it.count++
			it.logger.Debug("Epoch %d: batch %d of size %d is ready", it.epoch, res.batch.Index, res.batch.Size())
			return res.batch, nil
		case <-it.ctx.Done():
			return nil, it.fail(it.ctx.Err())
		}
	case <-it.ctx.Done():
		return nil, it.fail(it.ctx.Err())
	}
}

func (it *Iterator) fail(err error) error {
	if err == io.EOF {
		it.logger.Info("Epoch %d: finished after %d batches", it.epoch, it.count)
	}
	it.err = err
	it.cancel()
	return err
}

// Close Stops workers. Safe to call multiple times
func (it *Iterator) Close() {
	if it.err == nil {
		it.err = context.Canceled
	}
	it.cancel()
}
