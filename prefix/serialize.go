package prefix

import (
	"errors"
	"fmt"
	"io"

	"github.com/egonelbre/exp-entropy-archive/freqtable"
)

// Node markers of the serialized tree.
const (
	markerInternal = 0
	markerLeaf     = 1
)

// maxNodes is the size of a full tree over the byte alphabet.
const maxNodes = 2*freqtable.AlphabetSize - 1

// AppendTree appends the pre-order serialization of tree to dst: a leaf is
// the marker 1 followed by its symbol, an internal node is the marker 0
// followed by its left and right subtrees.
func (tree *Tree) AppendTree(dst []byte) []byte {
	if len(tree.nodes) == 0 {
		return dst
	}
	stack := []int{tree.root}
	for len(stack) > 0 {
		index := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &tree.nodes[index]
		if n.leaf() {
			dst = append(dst, markerLeaf, n.symbol)
			continue
		}
		dst = append(dst, markerInternal)
		stack = append(stack, n.right, n.left)
	}
	return dst
}

// WriteTo writes the serialized tree to w.
func (tree *Tree) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(tree.AppendTree(nil))
	return int64(n), err
}

// ReadTree reads a tree written by WriteTo.
//
// A truncated tree returns io.ErrUnexpectedEOF; an unknown marker or a tree
// larger than the byte alphabet allows returns ErrInvalidCode.
func ReadTree(r io.ByteReader) (*Tree, error) {
	tree := &Tree{}

	// internal nodes still waiting for a child
	var pending []int

	for {
		if len(tree.nodes) >= maxNodes {
			return nil, fmt.Errorf("%w: tree has more than %d nodes", ErrInvalidCode, maxNodes)
		}

		marker, err := r.ReadByte()
		if err != nil {
			return nil, treeReadError(err)
		}

		var child int
		switch marker {
		case markerInternal:
			pending = append(pending, tree.add(node{left: noChild - 1, right: noChild - 1}))
			continue
		case markerLeaf:
			symbol, err := r.ReadByte()
			if err != nil {
				return nil, treeReadError(err)
			}
			child = tree.addLeaf(symbol, 0)
		default:
			return nil, fmt.Errorf("%w: unknown tree marker %d", ErrInvalidCode, marker)
		}

		// Attach the completed subtree, closing every parent it completes.
		for {
			if len(pending) == 0 {
				tree.root = child
				return tree, nil
			}
			parent := &tree.nodes[pending[len(pending)-1]]
			if parent.left < noChild {
				parent.left = child
				break
			}
			parent.right = child
			child = pending[len(pending)-1]
			pending = pending[:len(pending)-1]
		}
	}
}

func treeReadError(err error) error {
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("read tree: %w", err)
}
