package dataset_go

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// IDX element types, see http://yann.lecun.com/exdb/mnist/
const (
	idxUint8   = 0x08
	idxInt8    = 0x09
	idxInt16   = 0x0B
	idxInt32   = 0x0C
	idxFloat32 = 0x0D
	idxFloat64 = 0x0E
)

// maxIDXBytes Upper bound for size of IDX payload
const maxIDXBytes = 1 << 32

var idxElemSize = map[byte]int64{
	idxUint8:   1,
	idxInt8:    1,
	idxInt16:   2,
	idxInt32:   4,
	idxFloat32: 4,
	idxFloat64: 8,
}

// ReadIDX Reads tensor stored in IDX format (as MNIST files are). Gzip compressed input is detected automatically
func ReadIDX(r io.Reader) (*tensor.Dense, error) {
	br := bufio.NewReader(r)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(err, "Can't open gzip stream")
		}
		defer gz.Close()
		return readIDX(bufio.NewReader(gz))
	}
	return readIDX(br)
}

func readIDX(r io.Reader) (*tensor.Dense, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, errors.Wrap(err, "Can't read IDX magic number")
	}
	if magic[0] != 0 || magic[1] != 0 {
		return nil, errors.Errorf("Bad IDX magic number %x", magic)
	}
	ndims := int(magic[3])
	if ndims == 0 {
		return nil, errors.Wrap(ErrShapeMismatch, "IDX tensor must have one dimension atleast")
	}
	elemSize, ok := idxElemSize[magic[2]]
	if !ok {
		return nil, errors.Wrapf(ErrDtypeMismatch, "IDX element type 0x%02x is not handled", magic[2])
	}
	shape := make([]int, ndims)
	total := int64(1)
	for i := range shape {
		var dim uint32
		if err := binary.Read(r, binary.BigEndian, &dim); err != nil {
			return nil, errors.Wrapf(err, "Can't read size of dimension %d", i)
		}
		shape[i] = int(dim)
		if dim != 0 && total > maxIDXBytes/elemSize/int64(dim) {
			return nil, errors.Wrapf(ErrShapeMismatch, "IDX tensor with dimensions %v exceeds %d bytes", shape[:i+1], int64(maxIDXBytes))
		}
		total *= int64(dim)
	}
	// payload must be fully read before typed slices are allocated
	raw, err := io.ReadAll(io.LimitReader(r, total*elemSize))
	if err != nil {
		return nil, errors.Wrap(err, "Can't read IDX data")
	}
	if int64(len(raw)) != total*elemSize {
		return nil, errors.Wrapf(io.ErrUnexpectedEOF, "IDX data is truncated: expected %d bytes, got %d", total*elemSize, len(raw))
	}
	body := bytes.NewReader(raw)
	var backing interface{}
	switch magic[2] {
	case idxUint8:
		backing = raw
	case idxInt8:
		data := make([]int8, total)
		if err := binary.Read(body, binary.BigEndian, data); err != nil {
			return nil, errors.Wrap(err, "Can't decode IDX data")
		}
		backing = data
	case idxInt16:
		data := make([]int16, total)
		if err := binary.Read(body, binary.BigEndian, data); err != nil {
			return nil, errors.Wrap(err, "Can't decode IDX data")
		}
		backing = data
	case idxInt32:
		data := make([]int32, total)
		if err := binary.Read(body, binary.BigEndian, data); err != nil {
			return nil, errors.Wrap(err, "Can't decode IDX data")
		}
		backing = data
	case idxFloat32:
		data := make([]float32, total)
		for i := range data {
			data[i] = math.Float32frombits(binary.BigEndian.Uint32(raw[4*i:]))
		}
		backing = data
	case idxFloat64:
		data := make([]float64, total)
		if err := binary.Read(body, binary.BigEndian, data); err != nil {
			return nil, errors.Wrap(err, "Can't decode IDX data")
		}
		backing = data
	}
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(backing)), nil
}

// NewIDXDataset Returns dataset with keys "x" (images) and "y" (labels) read from IDX streams
func NewIDXDataset(images, labels io.Reader) (*TensorDataset, error) {
	x, err := ReadIDX(images)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read images")
	}
	y, err := ReadIDX(labels)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read labels")
	}
	return NewTensorDataset(map[string]*tensor.Dense{
		"x": x,
		"y": y,
	})
}

// LoadIDXDataset Opens pair of IDX files (e.g. "train-images-idx3-ubyte.gz" and "train-labels-idx1-ubyte.gz")
func LoadIDXDataset(imagesFile, labelsFile string) (*TensorDataset, error) {
	fi, err := os.Open(imagesFile)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't open '%s'", imagesFile)
	}
	defer fi.Close()
	fl, err := os.Open(labelsFile)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't open '%s'", labelsFile)
	}
	defer fl.Close()
	return NewIDXDataset(fi, fl)
}
