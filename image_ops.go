package dataset_go

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gorgonia.org/tensor"
)

// Interpolation Resampling method used when image is resized
type Interpolation int

const (
	// InterpolationDefault Lets op pick its own method
	InterpolationDefault = Interpolation(iota)
	InterpolationNearest
	InterpolationLinear
)

// image Row-major H x W x C pixels of an image tensor
type image struct {
	h, w, c int
	pix     []float64
}

// imageOf Reads tensor of shape (H, W) or (H, W, C)
func imageOf(t *tensor.Dense) (image, error) {
	shape := t.Shape()
	if len(shape) != 2 && len(shape) != 3 {
		return image{}, errors.Wrapf(ErrShapeMismatch, "Image must have shape (H, W) or (H, W, C), but got %v", shape)
	}
	im := image{h: shape[0], w: shape[1], c: 1}
	if len(shape) == 3 {
		im.c = shape[2]
	}
	if im.h == 0 || im.w == 0 || im.c == 0 {
		return image{}, errors.Wrapf(ErrShapeMismatch, "Image of shape %v is empty", shape)
	}
	pix, err := toFloat64s(t)
	if err != nil {
		return image{}, err
	}
	im.pix = pix
	return im, nil
}

// dense Converts image back to tensor of given dtype. Rank 2 drops the channel axis
func (im image) dense(dt tensor.Dtype, rank int) (*tensor.Dense, error) {
	shape := tensor.Shape{im.h, im.w}
	if rank == 3 {
		shape = append(shape, im.c)
	}
	return fromFloat64s(im.pix, dt, shape)
}

func (im image) at(y, x, ch int) float64 {
	return im.pix[(y*im.w+x)*im.c+ch]
}

// crop Returns h x w window with top-left corner at (top, left)
func (im image) crop(top, left, h, w int) image {
	out := image{h: h, w: w, c: im.c, pix: make([]float64, h*w*im.c)}
	for y := 0; y < h; y++ {
		row := ((top+y)*im.w + left) * im.c
		copy(out.pix[y*w*im.c:(y+1)*w*im.c], im.pix[row:row+w*im.c])
	}
	return out
}

// resize Resamples image to h x w. Pixel centers are aligned the same way OpenCV does
func (im image) resize(h, w int, method Interpolation) image {
	out := image{h: h, w: w, c: im.c, pix: make([]float64, h*w*im.c)}
	sy := float64(im.h) / float64(h)
	sx := float64(im.w) / float64(w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst := (y*w + x) * im.c
			if method == InterpolationNearest {
				srcY := clampInt(int(math.Floor(float64(y)*sy)), 0, im.h-1)
				srcX := clampInt(int(math.Floor(float64(x)*sx)), 0, im.w-1)
				for ch := 0; ch < im.c; ch++ {
					out.pix[dst+ch] = im.at(srcY, srcX, ch)
				}
				continue
			}
			fy := clampFloat((float64(y)+0.5)*sy-0.5, 0, float64(im.h-1))
			fx := clampFloat((float64(x)+0.5)*sx-0.5, 0, float64(im.w-1))
			y0, x0 := int(fy), int(fx)
			y1, x1 := clampInt(y0+1, 0, im.h-1), clampInt(x0+1, 0, im.w-1)
			dy, dx := fy-float64(y0), fx-float64(x0)
			for ch := 0; ch < im.c; ch++ {
				top := im.at(y0, x0, ch)*(1-dx) + im.at(y0, x1, ch)*dx
				bottom := im.at(y1, x0, ch)*(1-dx) + im.at(y1, x1, ch)*dx
				out.pix[dst+ch] = top*(1-dy) + bottom*dy
			}
		}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// Downscale Decreases image quality by downscaling and upscaling back. Image shape and dtype are preserved.
//
// ScaleMin, ScaleMax - bounds of the scale factor, drawn once per sample. Both default to 0.25
// Interpolation - resampling method, nearest neighbour by default
//
type Downscale struct {
	OpBase
	ScaleMin      float64
	ScaleMax      float64
	Interpolation Interpolation
}

// Forward See Op. Scale is drawn from stream with zero seed
func (op Downscale) Forward(sample Sample) (Sample, error) {
	return op.ForwardRandom(sample, rand.New(rand.NewSource(0)))
}

// ForwardRandom See RandomOp
func (op Downscale) ForwardRandom(sample Sample, rng *rand.Rand) (Sample, error) {
	lo, hi := op.ScaleMin, op.ScaleMax
	if lo == 0 && hi == 0 {
		lo, hi = 0.25, 0.25
	}
	if lo <= 0 || lo > hi || hi >= 1 {
		return nil, errors.Wrapf(ErrInvalidOp, "Scale range must satisfy 0 < min <= max < 1, but got [%v, %v]", lo, hi)
	}
	method := op.Interpolation
	if method == InterpolationDefault {
		method = InterpolationNearest
	}
	scale := uniform(rng, lo, hi)
	return op.forEach(sample, func(t *tensor.Dense) (*tensor.Dense, error) {
		im, err := imageOf(t)
		if err != nil {
			return nil, err
		}
		h := int(math.Max(1, float64(int(float64(im.h)*scale))))
		w := int(math.Max(1, float64(int(float64(im.w)*scale))))
		return im.resize(h, w, method).resize(im.h, im.w, method).dense(t.Dtype(), t.Dims())
	})
}

// RandomResizedCrop Crops random part of image and resizes it to Height x Width.
// Every input of the sample is cropped by the same window, hence inputs must share height and width.
//
// Height, Width - output size
// Scale - range of crop area relative to image area. Defaults to [0.08, 1]
// Ratio - range of crop aspect ratio (width / height). Defaults to [3/4, 4/3]
// Interpolation - resampling method, bilinear by default
//
type RandomResizedCrop struct {
	OpBase
	Height        int
	Width         int
	Scale         [2]float64
	Ratio         [2]float64
	Interpolation Interpolation
}

// Forward See Op. Window is drawn from stream with zero seed
func (op RandomResizedCrop) Forward(sample Sample) (Sample, error) {
	return op.ForwardRandom(sample, rand.New(rand.NewSource(0)))
}

// ForwardRandom See RandomOp
func (op RandomResizedCrop) ForwardRandom(sample Sample, rng *rand.Rand) (Sample, error) {
	if op.Height <= 0 || op.Width <= 0 {
		return nil, errors.Wrapf(ErrInvalidOp, "Output size must be positive, but got %dx%d", op.Height, op.Width)
	}
	scale, ratio := op.Scale, op.Ratio
	if scale == [2]float64{} {
		scale = [2]float64{0.08, 1}
	}
	if ratio == [2]float64{} {
		ratio = [2]float64{3.0 / 4.0, 4.0 / 3.0}
	}
	if scale[0] <= 0 || scale[0] > scale[1] {
		return nil, errors.Wrapf(ErrInvalidOp, "Scale range must satisfy 0 < min <= max, but got %v", scale)
	}
	if ratio[0] <= 0 || ratio[0] > ratio[1] {
		return nil, errors.Wrapf(ErrInvalidOp, "Ratio range must satisfy 0 < min <= max, but got %v", ratio)
	}
	method := op.Interpolation
	if method == InterpolationDefault {
		method = InterpolationLinear
	}
	if len(op.Inputs) == 0 {
		return nil, errors.Wrap(ErrInvalidOp, "Op has no inputs")
	}
	first, ok := sample[op.Inputs[0]]
	if !ok {
		return nil, errors.Wrapf(ErrKeyMismatch, "Sample has no key '%s'", op.Inputs[0])
	}
	if first.Dims() < 2 {
		return nil, errors.Wrapf(ErrShapeMismatch, "Image must have shape (H, W) or (H, W, C), but got %v", first.Shape())
	}
	h, w := first.Shape()[0], first.Shape()[1]
	top, left, ch, cw := cropWindow(rng, h, w, scale, ratio)
	return op.forEach(sample, func(t *tensor.Dense) (*tensor.Dense, error) {
		im, err := imageOf(t)
		if err != nil {
			return nil, err
		}
		if im.h != h || im.w != w {
			return nil, errors.Wrapf(ErrShapeMismatch, "Image is %dx%d, but first input is %dx%d", im.h, im.w, h, w)
		}
		return im.crop(top, left, ch, cw).resize(op.Height, op.Width, method).dense(t.Dtype(), t.Dims())
	})
}

// cropWindow Draws crop window (top, left, height, width) of h x w image. After 10 unsuccessful attempts
// central crop with aspect ratio clipped to the range is returned
func cropWindow(rng *rand.Rand, h, w int, scale, ratio [2]float64) (int, int, int, int) {
	area := float64(h * w)
	logLo, logHi := math.Log(ratio[0]), math.Log(ratio[1])
	for attempt := 0; attempt < 10; attempt++ {
		target := area * uniform(rng, scale[0], scale[1])
		aspect := math.Exp(uniform(rng, logLo, logHi))
		cw := int(math.Round(math.Sqrt(target * aspect)))
		ch := int(math.Round(math.Sqrt(target / aspect)))
		if cw > 0 && cw <= w && ch > 0 && ch <= h {
			top := rng.Intn(h - ch + 1)
			left := rng.Intn(w - cw + 1)
			return top, left, ch, cw
		}
	}
	ch, cw := h, w
	inRatio := float64(w) / float64(h)
	if inRatio < ratio[0] {
		ch = clampInt(int(math.Round(float64(w)/ratio[0])), 1, h)
	} else if inRatio > ratio[1] {
		cw = clampInt(int(math.Round(float64(h)*ratio[1])), 1, w)
	}
	return (h - ch) / 2, (w - cw) / 2, ch, cw
}
