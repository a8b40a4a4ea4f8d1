package archive

import "github.com/egonelbre/exp-entropy-archive/freqtable"

// Config holds the settings used when writing an archive.
type Config struct {
	Algorithm       Algorithm // default Huffman
	Layout          Layout    // default LayoutCurrent
	FrequencyBits   int       // stored table width, 0 = cheapest of CandidateWidths
	CandidateWidths []int     // default freqtable.Widths

	// MaxOriginalSize limits the decoded size a header may declare.
	MaxOriginalSize uint64 // default DefaultMaxOriginalSize
}

// DefaultMaxOriginalSize is the largest archive decoded without
// WithMaxOriginalSize.
const DefaultMaxOriginalSize = 1 << 30

// Option is a functional option for configuring compression and
// decompression.
type Option func(*Config)

// DefaultConfig returns the configuration used when no options are given.
func DefaultConfig() Config {
	return Config{
		Algorithm:       Huffman,
		Layout:          LayoutCurrent,
		CandidateWidths: freqtable.Widths,
		MaxOriginalSize: DefaultMaxOriginalSize,
	}
}

// WithAlgorithm selects the coding algorithm.
func WithAlgorithm(a Algorithm) Option {
	return func(c *Config) {
		c.Algorithm = a
	}
}

// WithLayout selects the header layout. The legacy layouts only support
// None and Huffman.
func WithLayout(l Layout) Option {
	return func(c *Config) {
		c.Layout = l
	}
}

// WithFrequencyBits fixes the frequency table width.
// Supported values: 4, 8, 32 or 64; 0 restores automatic selection.
func WithFrequencyBits(bits int) Option {
	return func(c *Config) {
		c.FrequencyBits = bits
	}
}

// WithCandidateWidths sets the widths considered by automatic selection,
// in order of preference on equal cost.
func WithCandidateWidths(widths ...int) Option {
	return func(c *Config) {
		c.CandidateWidths = append([]int(nil), widths...)
	}
}

// WithMaxOriginalSize sets the largest original size Decompress accepts.
// Archives declaring more are rejected before anything is allocated.
func WithMaxOriginalSize(n uint64) Option {
	return func(c *Config) {
		c.MaxOriginalSize = n
	}
}
