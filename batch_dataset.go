package dataset_go

import (
	"fmt"
	"math"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/stat/distuv"
)

const probabilityTolerance = 1e-6

// Composition How samples of different datasets are combined into a batch
type Composition uint16

const (
	// Stacked All datasets share the same keys. Batch is a concatenation of samples from every dataset
	Stacked = Composition(iota)
	// Merged Keys of datasets are pairwise disjoint. Every element of batch merges one sample of each dataset
	Merged
)

func (c Composition) String() string {
	switch c {
	case Stacked:
		return "stacked"
	case Merged:
		return "merged"
	default:
		return fmt.Sprintf("Composition(%d)", uint16(c))
	}
}

// Batch Group of samples produced by a BatchSource
//
// Index - index of the batch within the epoch
// Samples - samples of the batch
// Sources - Sources[j] is the dataset which produced Samples[j]. Nil when every element is built from all datasets
//
type Batch struct {
	Index   int
	Samples []Sample
	Sources []int
}

// BatchSource Random access source of batches
type BatchSource interface {
	Len() int
	At(index int) (*Batch, error)
}

// BatchConfig Parameters of BatchDataset
//
// NumSamples - deterministic mode: number of samples taken from each dataset per batch (one entry per dataset).
// Probabilistic mode: either empty or single entry equal to batch size
// BatchSize - optional in deterministic mode (must be equal to sum of NumSamples then); required in probabilistic mode unless NumSamples holds it
// Probability - probability to pick each dataset for a batch item. Enables probabilistic mode when non-empty
// Unpaired - datasets with disjoint keys are sampled independently instead of sharing an index
// Seed - seed of random draws
// Logger - optional logger
//
type BatchConfig struct {
	NumSamples  []int
	BatchSize   int
	Probability []float64
	Unpaired    bool
	Seed        int64
	Logger      Logger
}

// BatchDataset Combines several datasets into a single source of batches.
//
// Every batch is drawn with its own random stream derived from (seed, epoch, batch index), so At is
// deterministic for fixed epoch and safe for concurrent use.
type BatchDataset struct {
	datasets    []Dataset
	numSamples  []int
	probability []float64
	batchSize   int
	unpaired    bool
	composition Composition
	seed        int64
	length      int

	mu    sync.RWMutex
	epoch int
}

// NewBatchDataset Validates configuration and returns composed dataset
func NewBatchDataset(datasets []Dataset, cfg BatchConfig) (*BatchDataset, error) {
	if len(datasets) == 0 {
		return nil, ErrNoDatasets
	}
	bd := BatchDataset{
		datasets:    make([]Dataset, len(datasets)),
		numSamples:  append([]int(nil), cfg.NumSamples...),
		probability: append([]float64(nil), cfg.Probability...),
		unpaired:    cfg.Unpaired,
		seed:        cfg.Seed,
	}
	copy(bd.datasets, datasets)

	composition, err := detectComposition(bd.datasets)
	if err != nil {
		return nil, err
	}
	bd.composition = composition

	for i, n := range bd.numSamples {
		if n <= 0 {
			return nil, errors.Wrapf(ErrNumSamples, "Number of samples for entry #%d must be positive, but got %d", i, n)
		}
	}
	if bd.unpaired && bd.composition != Merged {
		return nil, errors.Wrap(ErrKeyMismatch, "Unpaired mode requires globally unique keys across datasets")
	}

	if len(bd.probability) > 0 {
		err = bd.checkProbabilistic(cfg.BatchSize)
	} else {
		err = bd.checkDeterministic(cfg.BatchSize)
	}
	if err != nil {
		return nil, err
	}
	bd.length = bd.epochLength()

	logger := loggerOrNoop(cfg.Logger)
	logger.Info("BatchDataset: %d datasets, composition=%s, probabilistic=%t, unpaired=%t, batch size=%d, batches per epoch=%d",
		len(bd.datasets), bd.composition, bd.Probabilistic(), bd.unpaired, bd.batchSize, bd.length)
	return &bd, nil
}

// detectComposition Returns Stacked when every dataset has the same keys and Merged when keys are pairwise disjoint
func detectComposition(datasets []Dataset) (Composition, error) {
	keySets := make([]map[string]struct{}, len(datasets))
	total := 0
	for i, ds := range datasets {
		keys, err := datasetKeys(ds)
		if err != nil {
			return 0, errors.Wrapf(err, "Can't get keys of dataset #%d", i)
		}
		keySets[i] = keys
		total += len(keys)
	}
	if len(datasets) == 1 {
		return Stacked, nil
	}
	same := true
	union := make(map[string]struct{}, total)
	for _, keys := range keySets {
		if len(keys) != len(keySets[0]) {
			same = false
		}
		for k := range keys {
			if _, ok := keySets[0][k]; !ok {
				same = false
			}
			union[k] = struct{}{}
		}
	}
	if same {
		return Stacked, nil
	}
	if len(union) == total {
		return Merged, nil
	}
	return 0, errors.Wrap(ErrKeyMismatch, "Dataset keys must be all the same or all disjoint")
}

func (bd *BatchDataset) checkProbabilistic(batchSize int) error {
	if bd.composition != Stacked {
		return errors.Wrap(ErrProbability, "Keys must be exactly the same among datasets when using probability distribution")
	}
	if len(bd.datasets) < 2 {
		return errors.Wrap(ErrProbability, "Number of datasets must be more than one to use probability distribution")
	}
	if len(bd.probability) != len(bd.datasets) {
		return errors.Wrapf(ErrProbability, "Got %d probabilities for %d datasets", len(bd.probability), len(bd.datasets))
	}
	for i, p := range bd.probability {
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
			return errors.Wrapf(ErrProbability, "Probability #%d must be non-negative, but got %v", i, p)
		}
	}
	if sum := floats.Sum(bd.probability); !scalar.EqualWithinAbs(sum, 1, probabilityTolerance) {
		return errors.Wrapf(ErrProbability, "Sum of probabilities must be 1, but got %v", sum)
	}
	switch len(bd.numSamples) {
	case 0:
	case 1:
		if batchSize != 0 && batchSize != bd.numSamples[0] {
			return errors.Wrapf(ErrNumSamples, "Batch size %d doesn't match number of samples %d", batchSize, bd.numSamples[0])
		}
		batchSize = bd.numSamples[0]
	default:
		return errors.Wrap(ErrNumSamples, "Number of samples must be scalar (batch size) in probabilistic mode")
	}
	if batchSize <= 0 {
		return errors.Wrapf(ErrNumSamples, "Batch size must be positive in probabilistic mode, but got %d", batchSize)
	}
	bd.batchSize = batchSize
	bd.numSamples = []int{batchSize}
	return nil
}

func (bd *BatchDataset) checkDeterministic(batchSize int) error {
	if len(bd.numSamples) != len(bd.datasets) {
		return errors.Wrapf(ErrNumSamples, "Got %d sample counts for %d datasets", len(bd.numSamples), len(bd.datasets))
	}
	if bd.composition == Merged {
		for i, n := range bd.numSamples {
			if n != bd.numSamples[0] {
				return errors.Wrapf(ErrNumSamples, "Number of samples must be the same for disjoint keys, but dataset #%d has %d instead of %d", i, n, bd.numSamples[0])
			}
		}
		if batchSize != 0 && batchSize != bd.numSamples[0] {
			return errors.Wrapf(ErrNumSamples, "Batch size %d doesn't match number of merged samples %d", batchSize, bd.numSamples[0])
		}
		if !bd.unpaired {
			for i, ds := range bd.datasets {
				if ds.Len() != bd.datasets[0].Len() {
					return errors.Wrapf(ErrLengthMismatch, "Paired datasets must have the same length, but dataset #%d has %d samples instead of %d", i, ds.Len(), bd.datasets[0].Len())
				}
			}
		}
		bd.batchSize = bd.numSamples[0]
		return nil
	}
	sum := 0
	for _, n := range bd.numSamples {
		sum += n
	}
	if batchSize != 0 && batchSize != sum {
		return errors.Wrapf(ErrNumSamples, "Sample counts sum to %d, but batch size is %d", sum, batchSize)
	}
	bd.batchSize = sum
	return nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func (bd *BatchDataset) epochLength() int {
	if bd.Probabilistic() {
		longest := 0
		for _, ds := range bd.datasets {
			if ds.Len() > longest {
				longest = ds.Len()
			}
		}
		return ceilDiv(longest, bd.batchSize)
	}
	length := 0
	for i, ds := range bd.datasets {
		if n := ceilDiv(ds.Len(), bd.numSamples[i]); n > length {
			length = n
		}
	}
	return length
}

// Len Returns number of batches in one epoch
func (bd *BatchDataset) Len() int {
	return bd.length
}

// BatchSize Returns number of elements in every batch
func (bd *BatchDataset) BatchSize() int {
	return bd.batchSize
}

// Composition Returns detected composition
func (bd *BatchDataset) Composition() Composition {
	return bd.composition
}

// Probabilistic Reports whether datasets are picked by probability distribution
func (bd *BatchDataset) Probabilistic() bool {
	return len(bd.probability) > 0
}

// Unpaired Reports whether merged datasets are sampled independently
func (bd *BatchDataset) Unpaired() bool {
	return bd.unpaired
}

// SetEpoch Changes random draws for the next epoch
func (bd *BatchDataset) SetEpoch(epoch int) {
	bd.mu.Lock()
	bd.epoch = epoch
	bd.mu.Unlock()
}

func (bd *BatchDataset) currentEpoch() int {
	bd.mu.RLock()
	defer bd.mu.RUnlock()
	return bd.epoch
}

// At Returns index-th batch of current epoch
func (bd *BatchDataset) At(index int) (*Batch, error) {
	if index < 0 || index >= bd.length {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "Can't select batch %d of %d", index, bd.length)
	}
	src := streamSource(bd.seed, bd.currentEpoch(), index)
	rng := rand.New(src)
	switch {
	case bd.composition == Merged && bd.unpaired:
		return bd.unpairedBatch(index, rng)
	case bd.composition == Merged:
		return bd.pairedBatch(index, rng)
	case bd.Probabilistic():
		return bd.stackedBatch(index, rng, bd.drawCounts(src))
	default:
		return bd.stackedBatch(index, rng, bd.numSamples)
	}
}

// drawCounts Multinomial draw: picks dataset for every batch item and returns number of items per dataset
func (bd *BatchDataset) drawCounts(src rand.Source) []int {
	categorical := distuv.NewCategorical(bd.probability, src)
	counts := make([]int, len(bd.datasets))
	for i := 0; i < bd.batchSize; i++ {
		counts[int(categorical.Rand())]++
	}
	return counts
}

func (bd *BatchDataset) stackedBatch(index int, rng *rand.Rand, counts []int) (*Batch, error) {
	batch := Batch{
		Index:   index,
		Samples: make([]Sample, 0, bd.batchSize),
		Sources: make([]int, 0, bd.batchSize),
	}
	for i, ds := range bd.datasets {
		for _, idx := range drawIndices(rng, ds.Len(), counts[i]) {
			sample, err := ds.At(idx)
			if err != nil {
				return nil, errors.Wrapf(err, "Can't read sample %d of dataset #%d", idx, i)
			}
			batch.Samples = append(batch.Samples, sample)
			batch.Sources = append(batch.Sources, i)
		}
	}
	return &batch, nil
}

func (bd *BatchDataset) pairedBatch(index int, rng *rand.Rand) (*Batch, error) {
	indices := drawIndices(rng, bd.datasets[0].Len(), bd.batchSize)
	perDataset := make([][]int, len(bd.datasets))
	for i := range perDataset {
		perDataset[i] = indices
	}
	return bd.mergedBatch(index, perDataset)
}

func (bd *BatchDataset) unpairedBatch(index int, rng *rand.Rand) (*Batch, error) {
	perDataset := make([][]int, len(bd.datasets))
	for i, ds := range bd.datasets {
		perDataset[i] = drawIndices(rng, ds.Len(), bd.batchSize)
	}
	return bd.mergedBatch(index, perDataset)
}

func (bd *BatchDataset) mergedBatch(index int, perDataset [][]int) (*Batch, error) {
	batch := Batch{
		Index:   index,
		Samples: make([]Sample, bd.batchSize),
	}
	parts := make([]Sample, len(bd.datasets))
	for j := 0; j < bd.batchSize; j++ {
		for i, ds := range bd.datasets {
			sample, err := ds.At(perDataset[i][j])
			if err != nil {
				return nil, errors.Wrapf(err, "Can't read sample %d of dataset #%d", perDataset[i][j], i)
			}
			parts[i] = sample
		}
		merged, err := mergeSamples(parts)
		if err != nil {
			return nil, errors.Wrapf(err, "Can't merge element %d of batch %d", j, index)
		}
		batch.Samples[j] = merged
	}
	return &batch, nil
}
