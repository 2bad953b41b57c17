package dataset_go

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gorgonia.org/tensor"
)

func TestDownscale(t *testing.T) {
	src := tensor.New(tensor.WithShape(4, 4), tensor.WithBacking(tensor.Range(tensor.Float64, 0, 16)))
	op := Downscale{OpBase: OpBase{Inputs: []string{"x"}}, ScaleMin: 0.5, ScaleMax: 0.5}
	out, err := op.ForwardRandom(Sample{"x": src}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{4, 4}, out["x"].Shape())
	assert.Equal(t, []float64{
		0, 0, 2, 2,
		0, 0, 2, 2,
		8, 8, 10, 10,
		8, 8, 10, 10,
	}, dataOf(out["x"]))
	assert.Equal(t, tensor.Range(tensor.Float64, 0, 16), dataOf(src))

	rgb := tensor.New(tensor.WithShape(8, 8, 3), tensor.WithBacking(make([]uint8, 8*8*3)))
	out, err = Downscale{OpBase: OpBase{Inputs: []string{"x"}, Outputs: []string{"low"}}}.Forward(Sample{"x": rgb})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{8, 8, 3}, out["low"].Shape())
	assert.Equal(t, tensor.Uint8, out["low"].Dtype())
	assert.Same(t, rgb, out["x"])

	tests := []struct {
		name string
		op   Downscale
	}{
		{"min above max", Downscale{OpBase: OpBase{Inputs: []string{"x"}}, ScaleMin: 0.5, ScaleMax: 0.4}},
		{"max reaches one", Downscale{OpBase: OpBase{Inputs: []string{"x"}}, ScaleMin: 0.5, ScaleMax: 1}},
		{"negative min", Downscale{OpBase: OpBase{Inputs: []string{"x"}}, ScaleMin: -0.1, ScaleMax: 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.op.Forward(Sample{"x": src})
			assert.ErrorIs(t, err, ErrInvalidOp)
		})
	}

	_, err = op.Forward(Sample{"x": Vector(1, 2, 3)})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestRandomResizedCrop(t *testing.T) {
	pixels := make([]uint8, 6*8*3)
	for i := range pixels {
		pixels[i] = uint8(i)
	}
	img := tensor.New(tensor.WithShape(6, 8, 3), tensor.WithBacking(pixels))
	mask := tensor.New(tensor.WithShape(6, 8), tensor.WithBacking(tensor.Range(tensor.Int, 0, 6*8)))
	op := RandomResizedCrop{
		OpBase:        OpBase{Inputs: []string{"x", "mask"}},
		Height:        4,
		Width:         5,
		Interpolation: InterpolationNearest,
	}

	first, err := op.ForwardRandom(Sample{"x": img, "mask": mask}, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{4, 5, 3}, first["x"].Shape())
	assert.Equal(t, tensor.Uint8, first["x"].Dtype())
	assert.Equal(t, tensor.Shape{4, 5}, first["mask"].Shape())

	again, err := op.ForwardRandom(Sample{"x": img, "mask": mask}, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	assert.Equal(t, dataOf(first["x"]), dataOf(again["x"]))
	assert.Equal(t, dataOf(first["mask"]), dataOf(again["mask"]))

	// mask holds pixel index, so every channel of the image must come from the pixel the mask points to
	cropped, err := toInts(first["x"])
	require.NoError(t, err)
	indices, err := toInts(first["mask"])
	require.NoError(t, err)
	for i, idx := range indices {
		for ch := 0; ch < 3; ch++ {
			assert.Equal(t, idx*3+ch, cropped[i*3+ch])
		}
	}
}

func TestRandomResizedCropWholeImage(t *testing.T) {
	img := tensor.New(tensor.WithShape(4, 6), tensor.WithBacking(tensor.Range(tensor.Float32, 0, 24)))
	op := RandomResizedCrop{
		OpBase: OpBase{Inputs: []string{"x"}},
		Height: 4,
		Width:  6,
		Scale:  [2]float64{1, 1},
		Ratio:  [2]float64{1.5, 1.5},
	}
	out, err := op.Forward(Sample{"x": img})
	require.NoError(t, err)
	assert.Equal(t, tensor.Range(tensor.Float32, 0, 24), dataOf(out["x"]))
}

func TestRandomResizedCropErrors(t *testing.T) {
	img := tensor.New(tensor.WithShape(4, 4), tensor.WithBacking(make([]float64, 16)))
	other := tensor.New(tensor.WithShape(5, 4), tensor.WithBacking(make([]float64, 20)))
	tests := []struct {
		name   string
		op     RandomResizedCrop
		sample Sample
		want   error
	}{
		{"no size", RandomResizedCrop{OpBase: OpBase{Inputs: []string{"x"}}}, Sample{"x": img}, ErrInvalidOp},
		{"bad scale", RandomResizedCrop{OpBase: OpBase{Inputs: []string{"x"}}, Height: 2, Width: 2, Scale: [2]float64{0.9, 0.1}}, Sample{"x": img}, ErrInvalidOp},
		{"bad ratio", RandomResizedCrop{OpBase: OpBase{Inputs: []string{"x"}}, Height: 2, Width: 2, Ratio: [2]float64{-1, 1}}, Sample{"x": img}, ErrInvalidOp},
		{"missing key", RandomResizedCrop{OpBase: OpBase{Inputs: []string{"y"}}, Height: 2, Width: 2}, Sample{"x": img}, ErrKeyMismatch},
		{"different sizes", RandomResizedCrop{OpBase: OpBase{Inputs: []string{"x", "z"}}, Height: 2, Width: 2}, Sample{"x": img, "z": other}, ErrShapeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.op.Forward(tt.sample)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCropWindow(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 100; i++ {
		top, left, h, w := cropWindow(rng, 20, 30, [2]float64{0.08, 1}, [2]float64{0.75, 4.0 / 3.0})
		require.True(t, h > 0 && w > 0)
		require.True(t, top >= 0 && top+h <= 20)
		require.True(t, left >= 0 && left+w <= 30)
	}

	// no window of such ratio fits, central crop is used
	top, left, h, w := cropWindow(rng, 10, 10, [2]float64{1, 1}, [2]float64{4, 5})
	assert.Equal(t, []int{3, 0, 3, 10}, []int{top, left, h, w})
}

func TestResizeLinear(t *testing.T) {
	im := image{h: 1, w: 2, c: 1, pix: []float64{0, 10}}
	up := im.resize(1, 4, InterpolationLinear)
	assert.Equal(t, []float64{0, 2.5, 7.5, 10}, up.pix)
}
