package prefix

import (
	"errors"
	"fmt"
	"io"

	"github.com/egonelbre/exp-entropy-archive/bitio"
	"github.com/egonelbre/exp-entropy-archive/freqtable"
)

// noChild marks the children of a leaf.
const noChild = -1

// node is a tree node. Leaves have no children and hold a symbol;
// internal nodes always have both children.
type node struct {
	freq        uint64
	left, right int
	symbol      byte
	minSymbol   byte
}

func (n *node) leaf() bool { return n.left == noChild }

// Tree is a binary code tree stored in an arena of nodes.
// Bit 0 selects the left child and bit 1 the right child.
type Tree struct {
	nodes []node
	root  int
}

func (tree *Tree) add(n node) int {
	tree.nodes = append(tree.nodes, n)
	return len(tree.nodes) - 1
}

func (tree *Tree) addLeaf(symbol byte, freq uint64) int {
	return tree.add(node{
		freq:      freq,
		left:      noChild,
		right:     noChild,
		symbol:    symbol,
		minSymbol: symbol,
	})
}

// presentSymbols returns the symbols with a nonzero count, substituting
// symbol 0 with count 1 for an empty table.
func presentSymbols(t *freqtable.Table) (symbols []byte, freqs []uint64) {
	for sym, f := range t {
		if f > 0 {
			symbols = append(symbols, byte(sym))
			freqs = append(freqs, f)
		}
	}
	if len(symbols) == 0 {
		return []byte{0}, []uint64{1}
	}
	return symbols, freqs
}

// Leaves returns the number of symbols in the tree.
func (tree *Tree) Leaves() int {
	n := 0
	for i := range tree.nodes {
		if tree.nodes[i].leaf() {
			n++
		}
	}
	return n
}

// SingleSymbol returns the symbol of a tree that consists of one leaf.
func (tree *Tree) SingleSymbol() (byte, bool) {
	if len(tree.nodes) == 0 || !tree.nodes[tree.root].leaf() {
		return 0, false
	}
	return tree.nodes[tree.root].symbol, true
}

// Codes returns the code of every leaf. The path of a single-leaf tree is
// empty, so that leaf is given the 1-bit code 0.
func (tree *Tree) Codes() CodeTable {
	var codes CodeTable
	if len(tree.nodes) == 0 {
		return codes
	}

	root := &tree.nodes[tree.root]
	if root.leaf() {
		codes[root.symbol] = Code{0}
		return codes
	}

	type item struct {
		index int
		path  Code
	}
	stack := []item{{index: tree.root}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &tree.nodes[it.index]
		if n.leaf() {
			codes[n.symbol] = it.path
			continue
		}

		// paths must not share backing arrays
		right := make(Code, len(it.path)+1)
		copy(right, it.path)
		right[len(it.path)] = 1
		left := append(it.path[:len(it.path):len(it.path)], 0)

		stack = append(stack, item{n.right, right}, item{n.left, left})
	}
	return codes
}

// maxPrealloc caps the output buffer allocated up front by Decode.
const maxPrealloc = 1 << 20

// Decode reads n symbols from r. When the stream ends early, the symbols
// decoded so far are returned together with ErrShortStream.
//
// A single-leaf tree consumes one 0 bit per symbol.
func (tree *Tree) Decode(r *bitio.Reader, n int) ([]byte, error) {
	out := make([]byte, 0, min(n, maxPrealloc))
	if n <= 0 {
		return out, nil
	}
	if len(tree.nodes) == 0 {
		return out, fmt.Errorf("%w: empty tree", ErrInvalidCode)
	}

	for len(out) < n {
		index := tree.root
		if tree.nodes[index].leaf() {
			bit, err := r.ReadBit()
			if err != nil {
				return out, tree.readError(err, len(out), n)
			}
			if bit != 0 {
				return out, fmt.Errorf("%w: bit 1 in single-symbol stream at symbol %d", ErrInvalidCode, len(out))
			}
		}
		for !tree.nodes[index].leaf() {
			bit, err := r.ReadBit()
			if err != nil {
				return out, tree.readError(err, len(out), n)
			}
			current := &tree.nodes[index]
			if bit == 0 {
				index = current.left
			} else {
				index = current.right
			}
			if index < 0 || index >= len(tree.nodes) {
				return out, fmt.Errorf("%w: at symbol %d", ErrInvalidCode, len(out))
			}
		}
		out = append(out, tree.nodes[index].symbol)
	}
	return out, nil
}

func (tree *Tree) readError(err error, decoded, expected int) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: decoded %d of %d symbols", ErrShortStream, decoded, expected)
	}
	return err
}
