// Package freqtable implements byte frequency tables, their normalization
// into a bounded bit-width and their on-disk encodings.
package freqtable

// AlphabetSize is the number of distinct symbols in a table.
const AlphabetSize = 256

// Table holds the occurrence count of every byte value.
// A zero entry means the symbol is absent.
type Table [AlphabetSize]uint64

// Count returns the frequency table of data.
func Count(data []byte) Table {
	var t Table
	for _, b := range data {
		t[b]++
	}
	return t
}

// Total returns the sum of all counts.
func (t *Table) Total() uint64 {
	var total uint64
	for _, f := range t {
		total += f
	}
	return total
}

// Distinct returns the number of symbols with a nonzero count.
func (t *Table) Distinct() int {
	n := 0
	for _, f := range t {
		if f > 0 {
			n++
		}
	}
	return n
}

// Max returns the largest count.
func (t *Table) Max() uint64 {
	var max uint64
	for _, f := range t {
		if f > max {
			max = f
		}
	}
	return max
}

// Empty reports whether every count is zero.
func (t *Table) Empty() bool {
	for _, f := range t {
		if f > 0 {
			return false
		}
	}
	return true
}

// Symbols returns the symbols with a nonzero count in ascending order.
func (t *Table) Symbols() []byte {
	symbols := make([]byte, 0, AlphabetSize)
	for sym, f := range t {
		if f > 0 {
			symbols = append(symbols, byte(sym))
		}
	}
	return symbols
}

// Fits reports whether every count is representable in bits bits.
func (t *Table) Fits(bits int) bool {
	if bits >= 64 {
		return true
	}
	if bits <= 0 {
		return t.Empty()
	}
	return t.Max() <= maxValue(bits)
}

func maxValue(bits int) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(bits)) - 1
}
