// Package analysis computes the information content of a byte stream and
// compares it with what the prefix coders and frequency widths achieve.
package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/ethereum/go-ethereum/log"

	"github.com/egonelbre/exp-entropy-archive/archive"
	"github.com/egonelbre/exp-entropy-archive/arithcode"
	"github.com/egonelbre/exp-entropy-archive/freqtable"
)

// DefaultTop is the number of symbols listed when Options.Top is zero.
const DefaultTop = 20

// Options controls what Analyze reports.
type Options struct {
	// Top limits the symbol listing; negative lists every symbol.
	Top int
	// Widths are the frequency widths evaluated per coder.
	Widths []int
	// Algorithms are the coders evaluated.
	Algorithms []archive.Algorithm
}

// DefaultOptions returns the options used by the analyze command.
func DefaultOptions() Options {
	return Options{
		Top:        DefaultTop,
		Widths:     freqtable.Widths,
		Algorithms: []archive.Algorithm{archive.Huffman, archive.ShannonFano},
	}
}

// Symbol describes a single byte value of the input.
type Symbol struct {
	Symbol      byte
	Count       uint64
	Probability float64
	// Information is -log2(Probability).
	Information float64
}

// WidthRow is the cost of coding the input with one frequency width.
type WidthRow struct {
	Bits        int
	PayloadBits uint64
	// EB is the payload size in bytes.
	EB uint64
	// GB is EB plus the stored frequency table.
	GB uint64
	// Overhead is GB relative to the input size, in percent.
	Overhead float64
}

// Coder summarizes one coder across all widths.
type Coder struct {
	Algorithm     archive.Algorithm
	Rows          []WidthRow
	Best          WidthRow
	BitsPerSymbol float64
}

// Report is the result of Analyze.
type Report struct {
	Size        uint64
	Distinct    int
	Fingerprint uint64

	// Symbols is sorted by descending count, ties by symbol value.
	Symbols []Symbol

	InformationBits  float64
	InformationBytes float64
	// Fraction is the fractional part of InformationBits.
	Fraction float64

	// E is the information rounded up to whole bytes, a lower bound for
	// the payload. G64 and G8 add a table of 64-bit and 8-bit entries.
	E, G64, G8 uint64

	CompressionBeneficial bool
	NormalizationUseful   bool

	Coders []Coder

	// ArithmeticBits is the output size of an arithmetic coder using the
	// same frequency table.
	ArithmeticBits uint64
}

// Empty reports whether the analyzed input had no bytes.
func (r *Report) Empty() bool { return r.Size == 0 }

// ArithmeticBytes returns ArithmeticBits rounded up to whole bytes.
func (r *Report) ArithmeticBytes() uint64 { return (r.ArithmeticBits + 7) / 8 }

// Analyze computes the report for data.
func Analyze(data []byte, opts Options) (*Report, error) {
	if opts.Top == 0 {
		opts.Top = DefaultTop
	}
	if len(opts.Widths) == 0 {
		opts.Widths = freqtable.Widths
	}
	if len(opts.Algorithms) == 0 {
		opts.Algorithms = DefaultOptions().Algorithms
	}

	counts := freqtable.Count(data)
	r := &Report{
		Size:        uint64(len(data)),
		Distinct:    counts.Distinct(),
		Fingerprint: xxhash.Sum64(data),
	}
	if r.Empty() {
		return r, nil
	}

	r.Symbols = symbolStats(&counts, r.Size)
	for _, s := range r.Symbols {
		r.InformationBits += float64(s.Count) * s.Information
	}
	if opts.Top > 0 && len(r.Symbols) > opts.Top {
		r.Symbols = r.Symbols[:opts.Top]
	}

	r.InformationBytes = r.InformationBits / 8
	r.Fraction = r.InformationBits - math.Floor(r.InformationBits)
	r.E = uint64(math.Ceil(r.InformationBytes))
	r.G64 = r.E + freqtable.AlphabetSize*8
	r.G8 = r.E + freqtable.AlphabetSize*1
	r.CompressionBeneficial = r.G8 < r.Size
	r.NormalizationUseful = r.G8 < r.G64

	for _, alg := range opts.Algorithms {
		coder, err := analyzeCoder(&counts, alg, opts.Widths, r.Size)
		if err != nil {
			return nil, err
		}
		r.Coders = append(r.Coders, coder)
	}

	var err error
	r.ArithmeticBits, err = arithcode.EncodedBits(data)
	if err != nil {
		return nil, fmt.Errorf("arithmetic reference: %w", err)
	}

	log.Debug("Analyzed input", "size", r.Size, "distinct", r.Distinct, "information", r.InformationBits)
	return r, nil
}

func symbolStats(counts *freqtable.Table, size uint64) []Symbol {
	var stats []Symbol
	for _, sym := range counts.Symbols() {
		p := float64(counts[sym]) / float64(size)
		stats = append(stats, Symbol{
			Symbol:      sym,
			Count:       counts[sym],
			Probability: p,
			Information: -math.Log2(p),
		})
	}
	sort.SliceStable(stats, func(i, k int) bool {
		return stats[i].Count > stats[k].Count
	})
	return stats
}

func analyzeCoder(counts *freqtable.Table, alg archive.Algorithm, widths []int, size uint64) (Coder, error) {
	coder := Coder{Algorithm: alg}
	for _, width := range widths {
		payloadBits, err := archive.EstimateBits(counts, alg, width)
		if err != nil {
			return Coder{}, fmt.Errorf("%v at %d bits: %w", alg, width, err)
		}
		row := WidthRow{
			Bits:        width,
			PayloadBits: payloadBits,
			EB:          (payloadBits + 7) / 8,
			GB:          archive.WidthCost(payloadBits, width),
		}
		row.Overhead = float64(row.GB)*100/float64(size) - 100
		coder.Rows = append(coder.Rows, row)

		if len(coder.Rows) == 1 || row.GB < coder.Best.GB {
			coder.Best = row
		}
	}
	coder.BitsPerSymbol = float64(coder.Best.PayloadBits) / float64(size)
	return coder, nil
}
