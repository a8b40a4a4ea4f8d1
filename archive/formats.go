package archive

import "bufio"

// Format describes a header layout.
type Format struct {
	Layout      Layout
	Name        string
	Short       string // short description for compact display
	Description string // full description
	Algorithms  []Algorithm

	probe int // bytes needed by match
	match func(probe []byte) bool
	read  func(br *bufio.Reader) (Header, error)
}

// Formats is a table of all header layouts, newest first.
// ReadHeader tries them in this order.
var Formats = []Format{
	{
		Layout:      LayoutCurrent,
		Name:        "HUFF",
		Short:       "frequency table",
		Description: "4-byte magic, 24-byte header, normalized 4/8/32/64-bit frequency table, payload size in bytes",
		Algorithms:  []Algorithm{None, Huffman, ShannonFano},
		probe:       4,
		match:       matchCurrent,
		read:        readCurrent,
	},
	{
		Layout:      LayoutLegacy2,
		Name:        "SEROSA v2",
		Short:       "packed version",
		Description: "6-byte signature, 16-bit major<<8|minor version and algorithm, pre-order tree, payload size in bits",
		Algorithms:  []Algorithm{None, Huffman},
		probe:       8,
		match:       matchLegacy2,
		read:        readLegacy2,
	},
	{
		Layout:      LayoutLegacy1,
		Name:        "SEROSA v1",
		Short:       "split version",
		Description: "6-byte signature, separate 16-bit major and minor, context and error protection bytes, pre-order tree, payload size in bits",
		Algorithms:  []Algorithm{None, Huffman},
		probe:       8,
		match:       matchLegacy1,
		read:        readLegacy1,
	},
}

// FormatOf returns the description of layout.
func FormatOf(layout Layout) (*Format, bool) {
	for i := range Formats {
		if Formats[i].Layout == layout {
			return &Formats[i], true
		}
	}
	return nil, false
}

// Supports reports whether archives with algorithm can be written in f.
func (f *Format) Supports(algorithm Algorithm) bool {
	for _, a := range f.Algorithms {
		if a == algorithm {
			return true
		}
	}
	return false
}
