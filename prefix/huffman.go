package prefix

import (
	"container/heap"

	"github.com/egonelbre/exp-entropy-archive/freqtable"
)

// BuildHuffman builds a Huffman tree for t.
//
// The two lowest nodes are merged repeatedly, ordered by frequency and then
// by the smallest symbol they contain. The first node taken becomes the
// left child. An empty table yields a single leaf for symbol 0.
func BuildHuffman(t *freqtable.Table) *Tree {
	symbols, freqs := presentSymbols(t)

	tree := &Tree{nodes: make([]node, 0, 2*len(symbols)-1)}
	queue := &nodeQueue{tree: tree, items: make([]int, 0, len(symbols))}
	for i, sym := range symbols {
		queue.items = append(queue.items, tree.addLeaf(sym, freqs[i]))
	}
	heap.Init(queue)

	for queue.Len() > 1 {
		left := heap.Pop(queue).(int)
		right := heap.Pop(queue).(int)

		l, r := &tree.nodes[left], &tree.nodes[right]
		merged := node{
			freq:      saturatingAdd(l.freq, r.freq),
			left:      left,
			right:     right,
			minSymbol: min(l.minSymbol, r.minSymbol),
		}
		heap.Push(queue, tree.add(merged))
	}

	tree.root = heap.Pop(queue).(int)
	return tree
}

func saturatingAdd(a, b uint64) uint64 {
	if s := a + b; s >= a {
		return s
	}
	return ^uint64(0)
}

// nodeQueue is a min-heap of node indices.
type nodeQueue struct {
	tree  *Tree
	items []int
}

func (q *nodeQueue) Len() int { return len(q.items) }

func (q *nodeQueue) Less(i, k int) bool {
	a, b := &q.tree.nodes[q.items[i]], &q.tree.nodes[q.items[k]]
	if a.freq != b.freq {
		return a.freq < b.freq
	}
	return a.minSymbol < b.minSymbol
}

func (q *nodeQueue) Swap(i, k int) { q.items[i], q.items[k] = q.items[k], q.items[i] }

func (q *nodeQueue) Push(x any) { q.items = append(q.items, x.(int)) }

func (q *nodeQueue) Pop() any {
	last := q.items[len(q.items)-1]
	q.items = q.items[:len(q.items)-1]
	return last
}
