package dataset_go

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// NewCSVDataset Reads comma separated values into TensorDataset.
// First row holds keys, every following row is a sample. Cells must be numbers; each of them becomes
// float64 tensor of shape (1).
func NewCSVDataset(r io.Reader) (*TensorDataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "Can't read CSV")
	}
	if len(records) == 0 {
		return nil, errors.Wrap(ErrNoKeys, "CSV has no header")
	}
	header := records[0]
	rows := records[1:]
	if len(rows) == 0 {
		return nil, errors.Wrap(ErrEmptyDataset, "CSV has no rows")
	}
	seen := make(map[string]struct{}, len(header))
	for _, key := range header {
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, errors.Wrap(ErrNoKeys, "CSV header has empty column name")
		}
		if _, ok := seen[key]; ok {
			return nil, errors.Wrapf(ErrKeyMismatch, "CSV header has duplicate column '%s'", key)
		}
		seen[key] = struct{}{}
	}
	columns := make(map[string]*tensor.Dense, len(header))
	for c, key := range header {
		data := make([]float64, len(rows))
		for i, row := range rows {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[c]), 64)
			if err != nil {
				return nil, errors.Wrapf(err, "Can't parse value of column '%s' at row %d", key, i+1)
			}
			data[i] = v
		}
		columns[strings.TrimSpace(key)] = tensor.New(tensor.WithShape(len(rows)), tensor.WithBacking(data))
	}
	return NewTensorDataset(columns)
}

// LoadCSVDataset Opens file and reads it with NewCSVDataset
func LoadCSVDataset(fname string) (*TensorDataset, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't open '%s'", fname)
	}
	defer f.Close()
	return NewCSVDataset(f)
}
