// Package arithcode implements a static arithmetic coder over byte
// frequency tables.
//
// It serves as a reference point for the prefix coders: arithmetic coding
// gets within a few bits of the information content of a message, so the
// gap to its output shows how much a prefix code loses.
package arithcode

import (
	"errors"

	"github.com/egonelbre/exp-entropy-archive/freqtable"
)

var (
	// ErrEmptyModel is returned when building a model from an empty table.
	ErrEmptyModel = errors.New("arithcode: empty frequency table")
	// ErrZeroFrequency is returned when coding a symbol the model gives
	// no probability to.
	ErrZeroFrequency = errors.New("arithcode: symbol has zero frequency")
)

// Model defines the probability distribution used for coding.
type Model interface {
	// Freq returns the cumulative frequency range [low, high) of symbol.
	Freq(symbol int) (low, high uint64)

	// TotalFreq returns the sum of all symbol frequencies.
	TotalFreq() uint64

	// Find returns the symbol whose range contains cumFreq,
	// which must be in [0, TotalFreq()).
	Find(cumFreq uint64) int
}

// maxTotal keeps the products in Encode and Decode within 64 bits.
const maxTotal = 1 << 24

// scaledWidth is the normalization width used for tables above maxTotal.
// 256 entries of 16 bits stay below maxTotal.
const scaledWidth = 16

// TableModel is a Model built from a byte frequency table.
type TableModel struct {
	cumFreqs [freqtable.AlphabetSize + 1]uint64
	scaled   bool
}

// NewTableModel creates a model from t. Tables whose total exceeds the
// coder precision are normalized first, which costs a little efficiency.
func NewTableModel(t *freqtable.Table) (*TableModel, error) {
	if t.Empty() {
		return nil, ErrEmptyModel
	}

	m := &TableModel{}
	counts := *t
	if counts.Total() >= maxTotal {
		var err error
		counts, err = freqtable.Normalize(counts, scaledWidth)
		if err != nil {
			return nil, err
		}
		m.scaled = true
	}

	for i, f := range counts {
		m.cumFreqs[i+1] = m.cumFreqs[i] + f
	}
	return m, nil
}

// Scaled reports whether the table was normalized to fit the coder.
func (m *TableModel) Scaled() bool { return m.scaled }

func (m *TableModel) Freq(symbol int) (low, high uint64) {
	return m.cumFreqs[symbol], m.cumFreqs[symbol+1]
}

func (m *TableModel) TotalFreq() uint64 {
	return m.cumFreqs[freqtable.AlphabetSize]
}

func (m *TableModel) Find(cumFreq uint64) int {
	// Binary search for the last cumFreqs[i] <= cumFreq
	left, right := 0, len(m.cumFreqs)-1
	for left < right-1 {
		mid := (left + right) / 2
		if m.cumFreqs[mid] <= cumFreq {
			left = mid
		} else {
			right = mid
		}
	}
	return left
}
