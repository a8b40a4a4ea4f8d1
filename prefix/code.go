// Package prefix builds binary prefix codes from byte frequency tables.
//
// Two constructions are provided, Huffman and Shannon-Fano. Both produce the
// same Tree representation, so encoding, decoding and tree serialization are
// shared. Codes are only ever derived from leaf paths, which keeps every
// CodeTable prefix-free.
package prefix

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"

	"github.com/egonelbre/exp-entropy-archive/bitio"
	"github.com/egonelbre/exp-entropy-archive/freqtable"
)

var (
	// ErrSymbolNotInTable is returned when encoding a byte that has no code.
	ErrSymbolNotInTable = errors.New("symbol not in code table")
	// ErrShortStream is returned when the bit stream ends before the
	// requested number of symbols has been decoded.
	ErrShortStream = errors.New("bit stream ended early")
	// ErrInvalidCode is returned when the input does not describe a valid
	// path through the tree, or the tree itself is malformed.
	ErrInvalidCode = errors.New("invalid prefix code")
)

// Code is a sequence of bits, each element either 0 or 1.
type Code []byte

func (c Code) String() string {
	var b strings.Builder
	for _, bit := range c {
		b.WriteByte('0' + bit)
	}
	return b.String()
}

// CodeTable maps every byte to its code. Absent symbols have a nil code.
type CodeTable [freqtable.AlphabetSize]Code

// Encode writes the code of every byte in data to w.
func Encode(w *bitio.Writer, codes *CodeTable, data []byte) error {
	for i, b := range data {
		code := codes[b]
		if len(code) == 0 {
			return fmt.Errorf("%w: byte %#02x at offset %d", ErrSymbolNotInTable, b, i)
		}
		if err := w.WriteCode(code); err != nil {
			return err
		}
	}
	return nil
}

// EncodedBits returns the payload size in bits of coding a message with
// the given frequencies. Symbols without a code are ignored. The result
// saturates instead of overflowing.
func EncodedBits(freqs *freqtable.Table, codes *CodeTable) uint64 {
	var total uint64
	for sym, f := range freqs {
		n := uint64(len(codes[sym]))
		if f == 0 || n == 0 {
			continue
		}
		hi, lo := bits.Mul64(f, n)
		if hi != 0 {
			return ^uint64(0)
		}
		var carry uint64
		total, carry = bits.Add64(total, lo, 0)
		if carry != 0 {
			return ^uint64(0)
		}
	}
	return total
}
