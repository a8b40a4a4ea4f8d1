package arithcode

import (
	"fmt"
	"io"

	"github.com/egonelbre/exp-entropy-archive/bitio"
	"github.com/egonelbre/exp-entropy-archive/freqtable"
)

const (
	// stateBits defines the precision of the arithmetic coding state.
	stateBits = 32
	// stateMax is the maximum value of the state (2^32 - 1).
	stateMax uint64 = (1 << stateBits) - 1
	// half is the midpoint of the state range.
	half uint64 = 1 << (stateBits - 1)
	// quarter is one quarter of the state range.
	quarter uint64 = 1 << (stateBits - 2)
)

// Encoder compresses data using arithmetic coding.
type Encoder struct {
	output      *bitio.Writer
	low         uint64 // Lower bound of the current interval
	high        uint64 // Upper bound of the current interval
	pendingBits int    // Number of pending underflow bits
}

// NewEncoder creates a new arithmetic encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		output: bitio.NewWriter(w),
		low:    0,
		high:   stateMax,
	}
}

// Encode writes a symbol using the given model.
func (e *Encoder) Encode(symbol int, model Model) error {
	symLow, symHigh := model.Freq(symbol)
	if symLow >= symHigh {
		return fmt.Errorf("%w: %d", ErrZeroFrequency, symbol)
	}
	total := model.TotalFreq()

	// Calculate the new interval
	rangeSize := e.high - e.low + 1
	e.high = e.low + (rangeSize*symHigh)/total - 1
	e.low = e.low + (rangeSize*symLow)/total

	for {
		if e.high < half {
			if err := e.emit(0); err != nil {
				return err
			}
		} else if e.low >= half {
			if err := e.emit(1); err != nil {
				return err
			}
			e.low -= half
			e.high -= half
		} else if e.low >= quarter && e.high < 3*quarter {
			// Underflow: interval straddles the middle
			e.pendingBits++
			e.low -= quarter
			e.high -= quarter
		} else {
			break
		}

		e.low = (e.low << 1) & stateMax
		e.high = ((e.high << 1) & stateMax) | 1
	}

	return nil
}

// emit writes bit followed by the pending underflow bits, which take the
// opposite value.
func (e *Encoder) emit(bit byte) error {
	if err := e.output.WriteBit(bit); err != nil {
		return err
	}
	for ; e.pendingBits > 0; e.pendingBits-- {
		if err := e.output.WriteBit(bit ^ 1); err != nil {
			return err
		}
	}
	return nil
}

// Close finalizes the encoding and flushes any remaining bits.
func (e *Encoder) Close() error {
	// Output enough bits to disambiguate the final interval
	e.pendingBits++

	bit := byte(1)
	if e.low < quarter {
		bit = 0
	}
	if err := e.emit(bit); err != nil {
		return err
	}
	return e.output.Flush()
}

// Bits returns the number of bits written so far, excluding padding.
func (e *Encoder) Bits() uint64 { return e.output.Bits() }

// EncodedBits returns the size in bits of coding data with a static model
// built from its own frequency table.
func EncodedBits(data []byte) (uint64, error) {
	counts := freqtable.Count(data)
	if counts.Empty() {
		return 0, nil
	}
	model, err := NewTableModel(&counts)
	if err != nil {
		return 0, err
	}

	enc := NewEncoder(io.Discard)
	for _, b := range data {
		if err := enc.Encode(int(b), model); err != nil {
			return 0, err
		}
	}
	if err := enc.Close(); err != nil {
		return 0, err
	}
	return enc.Bits(), nil
}
