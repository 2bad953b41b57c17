package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	ds "github.com/LdDl/dataset-go"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

var (
	outputFolder  = flag.String("out", "./output", "folder for charts")
	batchSize     = flag.Int("batch", 32, "batch size")
	numEpoches    = flag.Int("epochs", 60, "number of epochs")
	cleanShare    = flag.Float64("clean", 0.7, "probability to pick a sample from the clean dataset")
	workers       = flag.Int("workers", 2, "number of loader workers")
	seed          = flag.Int64("seed", 1337, "seed of synthetic data and batch draws")
	learningRate  = flag.Float64("lr", 0.01, "learning rate")
	evalPrint     = flag.Int("print", 10, "print cost every N epochs")
	numPlotPoints = 200
	noiseLevel    = 0.3
)

func generateX() float64 {
	return -math.Pi + 2*math.Pi*rand.Float64()
}

func noisySin(x float64) float64 {
	return math.Sin(x) + noiseLevel*rand.NormFloat64()
}

// polyFeatures Maps x of shape (1) to (x, x^2, x^3)
func polyFeatures(t *tensor.Dense) (*tensor.Dense, error) {
	v, err := t.At(0)
	if err != nil {
		return nil, err
	}
	x := v.(float64)
	return ds.Vector(x, x*x, x*x*x), nil
}

func main() {
	flag.Parse()
	// Initialize seed with constant value to reproduce results
	rand.Seed(*seed)
	logger := ds.NewSimpleLogger(ds.LogLevelInfo)

	if err := os.MkdirAll(*outputFolder, 0755); err != nil {
		panic(err)
	}

	// Prepare synthetic data: a small clean set and a bigger noisy one
	clean, err := ds.GenerateFuncDataset(256, generateX, math.Sin)
	if err != nil {
		panic(err)
	}
	noisy, err := ds.GenerateFuncDataset(1024, generateX, noisySin)
	if err != nil {
		panic(err)
	}

	mixed, err := ds.NewBatchDataset([]ds.Dataset{clean, noisy}, ds.BatchConfig{
		BatchSize:   *batchSize,
		Probability: []float64{*cleanShare, 1 - *cleanShare},
		Seed:        *seed,
		Logger:      logger,
	})
	if err != nil {
		panic(err)
	}

	recorder := ds.NewMixRecorder()
	loader, err := ds.NewLoaderBuilder().
		WithWorkers(*workers).
		WithPrefetch(2 * *workers).
		WithOps(ds.Lambda{OpBase: ds.OpBase{Inputs: []string{"x"}, Outputs: []string{"features"}}, Fn: polyFeatures}).
		WithRecorder(recorder).
		WithLogger(logger).
		Loader(mixed)
	if err != nil {
		panic(err)
	}

	/* Define Gorgonia's graph: y = features x w */
	g := gorgonia.NewGraph()
	features := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(*batchSize, 3), gorgonia.WithName("features"))
	target := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(*batchSize, 1), gorgonia.WithName("y"))
	w := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(3, 1), gorgonia.WithName("w"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	prediction := gorgonia.Must(gorgonia.Mul(features, w))
	// cost = AVG((prediction{i} - target{i})^2)
	cost := gorgonia.Must(gorgonia.Mean(gorgonia.Must(gorgonia.Square(gorgonia.Must(gorgonia.Sub(prediction, target))))))
	_, err = gorgonia.Grad(cost, w)
	if err != nil {
		panic(err)
	}
	var costVal gorgonia.Value
	gorgonia.Read(cost, &costVal)

	tm := gorgonia.NewTapeMachine(g, gorgonia.BindDualValues(w))
	defer tm.Close()
	solver := gorgonia.NewAdamSolver(gorgonia.WithBatchSize(float64(*batchSize)), gorgonia.WithLearnRate(*learningRate))

	inputs := map[string]*gorgonia.Node{
		"features": features,
		"y":        target,
	}
	ctx := context.Background()
	st := time.Now()
	for epoch := 0; epoch < *numEpoches; epoch++ {
		err = loader.Run(ctx, epoch, func(batch *ds.TensorBatch) error {
			if err := ds.FeedGraph(batch, inputs); err != nil {
				return err
			}
			if err := tm.RunAll(); err != nil {
				return err
			}
			defer tm.Reset()
			return solver.Step(gorgonia.NodesToValueGrads(gorgonia.Nodes{w}))
		})
		if err != nil {
			panic(err)
		}
		if epoch%*evalPrint == 0 {
			fmt.Printf("Epoch %d:\n", epoch)
			fmt.Printf("\tCost: %v\n", costVal)
			fmt.Printf("\tTaken time: %v\n", time.Since(st))
			st = time.Now()
		}
	}

	stats := recorder.Stats()
	fmt.Printf("Samples per dataset: %v (ratios %v)\n", stats.PerSource, stats.Ratios())
	err = ds.PlotSourceMix(stats, []string{"clean", "noisy"}, fmt.Sprintf("%s/source_mix.png", *outputFolder))
	if err != nil {
		panic(err)
	}

	// Plot learned function
	weights := w.Value().Data().([]float64)
	xs := make([]float64, numPlotPoints)
	ys := make([]float64, numPlotPoints)
	for i := range xs {
		x := -math.Pi + 2*math.Pi*float64(i)/float64(numPlotPoints-1)
		xs[i] = x
		ys[i] = weights[0]*x + weights[1]*x*x + weights[2]*x*x*x
	}
	err = ds.PlotXY(tensor.New(tensor.WithShape(numPlotPoints), tensor.WithBacking(xs)), tensor.New(tensor.WithShape(numPlotPoints), tensor.WithBacking(ys)), fmt.Sprintf("%s/learned_func.png", *outputFolder))
	if err != nil {
		panic(err)
	}
}
