package freqtable

import (
	"errors"
	"fmt"
	"math/bits"
	"sort"
)

// ErrUnsupportedBitWidth is returned for widths outside the supported range.
var ErrUnsupportedBitWidth = errors.New("unsupported frequency bit-width")

// exactSumWidth is the first width where normalization stops forcing the
// table to sum to its bound.
const exactSumWidth = 8

// Normalize rescales t so that every count fits in width bits.
//
// Symbols present in t stay present: they never normalize below 1. For
// widths below 8 the result sums to 2^width-1 whenever the number of
// distinct symbols allows it. For wider tables a table that already fits
// is returned unchanged; otherwise counts are scaled against the maximum.
// Width 64 is an identity copy.
func Normalize(t Table, width int) (Table, error) {
	if width < 1 || width > 64 {
		return Table{}, fmt.Errorf("%w: %d", ErrUnsupportedBitWidth, width)
	}
	if width == 64 {
		return t, nil
	}

	n := uint64(t.Distinct())
	if n == 0 {
		return Table{}, nil
	}

	bound := maxValue(width)
	total := t.Total()

	var out Table
	var target uint64

	if width < exactSumWidth {
		target = bound
		switch {
		case n > bound:
			scale(&out, &t, bound, total, bound)
		case total > n:
			spare := bound - n
			for sym, f := range t {
				if f > 0 {
					out[sym] = 1 + mulDivRound(f-1, spare, total-n)
				}
			}
		default:
			// every present symbol occurs exactly once
			extra := bound - n
			for sym, f := range t {
				if f == 0 {
					continue
				}
				out[sym] = 1
				if extra > 0 {
					out[sym]++
					extra--
				}
			}
		}
	} else {
		max := t.Max()
		if max <= bound {
			return t, nil
		}
		den := max
		if n > bound {
			den = total
		}
		scale(&out, &t, bound, den, bound)
		target = mulDivRound(total, bound, den)
	}

	distribute(&out, &t, target, bound)
	return out, nil
}

// scale sets out[s] = round(t[s]*num/den) clamped to [1, bound] for every
// present symbol.
func scale(out, t *Table, num, den, bound uint64) {
	for sym, f := range t {
		if f == 0 {
			continue
		}
		v := mulDivRound(f, num, den)
		if v < 1 {
			v = 1
		}
		if v > bound {
			v = bound
		}
		out[sym] = v
	}
}

// distribute moves the sum of out towards target one unit at a time,
// visiting symbols from the highest original count down. Entries stay
// within [1, bound]; it gives up when a full pass changes nothing.
func distribute(out, original *Table, target, bound uint64) {
	sum := out.Total()
	if sum == target {
		return
	}

	order := rankByFrequency(original)
	if len(order) == 0 {
		return
	}

	for sum != target {
		changed := false
		for _, sym := range order {
			if sum == target {
				break
			}
			switch {
			case sum < target && out[sym] < bound:
				out[sym]++
				sum++
				changed = true
			case sum > target && out[sym] > 1:
				out[sym]--
				sum--
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

// rankByFrequency returns the present symbols ordered by descending count,
// lower symbol first on ties.
func rankByFrequency(t *Table) []byte {
	order := t.Symbols()
	sort.SliceStable(order, func(i, k int) bool {
		return t[order[i]] > t[order[k]]
	})
	return order
}

// mulDivRound returns a*b/c rounded to the nearest integer, saturating
// when the quotient does not fit in 64 bits.
func mulDivRound(a, b, c uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	lo, carry := bits.Add64(lo, c/2, 0)
	hi += carry
	if hi >= c {
		return ^uint64(0)
	}
	q, _ := bits.Div64(hi, lo, c)
	return q
}
