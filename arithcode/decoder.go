package arithcode

import (
	"errors"
	"io"

	"github.com/egonelbre/exp-entropy-archive/bitio"
)

// Decoder decompresses data using arithmetic coding.
type Decoder struct {
	input *bitio.Reader
	low   uint64 // Lower bound of the current interval
	high  uint64 // Upper bound of the current interval
	value uint64 // Current value being decoded
}

// NewDecoder creates a new arithmetic decoder that reads from r.
func NewDecoder(r io.Reader) (*Decoder, error) {
	br := bitio.NewReader(r)

	// Read initial value (stateBits bits)
	var value uint64
	for i := 0; i < stateBits; i++ {
		bit, err := br.ReadBit()
		if err != nil {
			if errors.Is(err, io.EOF) && i > 0 {
				// Partial read is acceptable for short messages
				value <<= (stateBits - i)
				break
			}
			return nil, err
		}
		value = (value << 1) | uint64(bit)
	}

	return &Decoder{
		input: br,
		low:   0,
		high:  stateMax,
		value: value,
	}, nil
}

// Decode reads and returns the next symbol using the given model.
func (d *Decoder) Decode(model Model) (int, error) {
	total := model.TotalFreq()
	rangeSize := d.high - d.low + 1
	cumFreq := ((d.value-d.low+1)*total - 1) / rangeSize

	symbol := model.Find(cumFreq)
	symLow, symHigh := model.Freq(symbol)

	d.high = d.low + (rangeSize*symHigh)/total - 1
	d.low = d.low + (rangeSize*symLow)/total

	for {
		if d.high < half {
			// Do nothing
		} else if d.low >= half {
			d.low -= half
			d.high -= half
			d.value -= half
		} else if d.low >= quarter && d.high < 3*quarter {
			d.low -= quarter
			d.high -= quarter
			d.value -= quarter
		} else {
			break
		}

		d.low = (d.low << 1) & stateMax
		d.high = ((d.high << 1) & stateMax) | 1

		bit, err := d.input.ReadBit()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return 0, err
			}
			bit = 0 // Treat EOF as 0 bits
		}
		d.value = ((d.value << 1) & stateMax) | uint64(bit)
	}

	return symbol, nil
}
