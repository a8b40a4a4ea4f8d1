package prefix

import (
	"sort"

	"github.com/egonelbre/exp-entropy-archive/freqtable"
)

// BuildShannonFano builds a Shannon-Fano tree for t.
//
// Symbols are sorted by descending frequency, lower symbol first on ties,
// and each range is split where the difference between the left and right
// sums stops decreasing. The left part gets bit 0.
//
// The decoder rebuilds the tree from the stored frequency table, so this
// function must stay bit-for-bit stable: the totals handed to the two
// halves are the running sum at the point the scan stopped, exactly as
// earlier encoders computed them.
func BuildShannonFano(t *freqtable.Table) *Tree {
	symbols, freqs := presentSymbols(t)

	order := make([]int, len(symbols))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, k int) bool {
		return freqs[order[i]] > freqs[order[k]]
	})

	sorted := make([]uint64, len(order))
	var total uint64
	for i, at := range order {
		sorted[i] = freqs[at]
		total += freqs[at]
	}

	tree := &Tree{nodes: make([]node, 0, 2*len(symbols)-1)}

	type span struct {
		index      int
		start, end int // inclusive
		total      uint64
	}

	tree.root = tree.add(node{})
	stack := []span{{tree.root, 0, len(sorted) - 1, total}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if s.start == s.end {
			at := order[s.start]
			tree.nodes[s.index] = node{
				freq:      freqs[at],
				left:      noChild,
				right:     noChild,
				symbol:    symbols[at],
				minSymbol: symbols[at],
			}
			continue
		}

		split, leftTotal := splitRange(sorted, s.start, s.end, s.total)

		left := tree.add(node{})
		right := tree.add(node{})
		tree.nodes[s.index] = node{freq: s.total, left: left, right: right}

		stack = append(stack,
			span{right, split + 1, s.end, s.total - leftTotal},
			span{left, s.start, split, leftTotal},
		)
	}

	return tree
}

// splitRange returns the last index of the left half of sorted[start:end+1]
// and the running sum at which the scan stopped.
func splitRange(sorted []uint64, start, end int, total uint64) (split int, leftSum uint64) {
	split = start
	minDiff := ^uint64(0)
	for i := start; i <= end; i++ {
		leftSum += sorted[i]
		rightSum := total - leftSum
		diff := leftSum - rightSum
		if rightSum > leftSum {
			diff = rightSum - leftSum
		}
		if diff > minDiff {
			break
		}
		minDiff = diff
		split = i
	}

	// Both halves must be non-empty.
	if split == end {
		split = end - 1
		leftSum = 0
		for i := start; i <= split; i++ {
			leftSum += sorted[i]
		}
	}
	return split, leftSum
}
