package dataset_go

import (
	"sort"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
)

// FeedGraph Binds tensors of the batch to input nodes of expression graph.
//
// nodes - feature name -> input node. Every node must have the same shape and dtype as corresponding tensor
//
func FeedGraph(batch *TensorBatch, nodes map[string]*gorgonia.Node) error {
	if batch == nil {
		return errors.Wrap(ErrEmptyDataset, "Can't feed nil batch")
	}
	keys := make([]string, 0, len(nodes))
	for key := range nodes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		node := nodes[key]
		value, ok := batch.Data[key]
		if !ok {
			return errors.Wrapf(ErrKeyMismatch, "Batch has no key '%s' for node '%s'", key, node.Name())
		}
		if node.Dtype() != value.Dtype() {
			return errors.Wrapf(ErrDtypeMismatch, "Node '%s' expects %s, but key '%s' has %s", node.Name(), node.Dtype(), key, value.Dtype())
		}
		if !node.Shape().Eq(value.Shape()) {
			return errors.Wrapf(ErrShapeMismatch, "Node '%s' expects shape %v, but key '%s' has %v", node.Name(), node.Shape(), key, value.Shape())
		}
		if err := gorgonia.Let(node, value); err != nil {
			return errors.Wrapf(err, "Can't bind key '%s' to node '%s'", key, node.Name())
		}
	}
	return nil
}
