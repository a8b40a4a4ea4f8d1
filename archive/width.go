package archive

import (
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/egonelbre/exp-entropy-archive/freqtable"
	"github.com/egonelbre/exp-entropy-archive/prefix"
)

// Builder returns the tree construction used by algorithm.
func Builder(algorithm Algorithm) (func(*freqtable.Table) *prefix.Tree, error) {
	switch algorithm {
	case Huffman:
		return prefix.BuildHuffman, nil
	case ShannonFano:
		return prefix.BuildShannonFano, nil
	}
	return nil, fmt.Errorf("%w: %v has no prefix code", ErrUnsupported, algorithm)
}

// EstimateBits returns the payload size in bits when counts is coded with
// a tree built from its normalization to width.
func EstimateBits(counts *freqtable.Table, algorithm Algorithm, width int) (uint64, error) {
	build, err := Builder(algorithm)
	if err != nil {
		return 0, err
	}
	normalized, err := freqtable.Normalize(*counts, width)
	if err != nil {
		return 0, err
	}
	codes := build(&normalized).Codes()
	return prefix.EncodedBits(counts, &codes), nil
}

// WidthCost returns the size in bytes of the payload plus a frequency table
// of the given width.
func WidthCost(payloadBits uint64, width int) uint64 {
	payload := payloadBits/8 + min(payloadBits%8, 1)
	table := uint64(freqtable.AlphabetSize * width / 8)
	if payload > ^uint64(0)-table {
		return ^uint64(0)
	}
	return payload + table
}

// ChooseWidth returns the width from widths that minimizes WidthCost.
// On equal cost the earlier candidate wins.
func ChooseWidth(counts *freqtable.Table, algorithm Algorithm, widths []int) (int, error) {
	if len(widths) == 0 {
		return 0, fmt.Errorf("%w: no candidate widths", ErrUnsupportedBitWidth)
	}

	best, bestCost := 0, ^uint64(0)
	for _, width := range widths {
		if !freqtable.SupportedWidth(width) {
			return 0, fmt.Errorf("%w: %d", ErrUnsupportedBitWidth, width)
		}
		payloadBits, err := EstimateBits(counts, algorithm, width)
		if err != nil {
			return 0, err
		}
		cost := WidthCost(payloadBits, width)
		log.Trace("Frequency width candidate", "bits", width, "payload", payloadBits, "cost", cost)
		if best == 0 || cost < bestCost {
			best, bestCost = width, cost
		}
	}

	log.Debug("Selected frequency width", "bits", best, "cost", bestCost)
	return best, nil
}
