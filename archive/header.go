// Package archive implements the container format of the entropy coder.
//
// Three header layouts exist. LayoutCurrent starts with the little-endian
// magic "HUFF" and is followed by a normalized frequency table; the two
// older "SEROSA" layouts persist the Huffman tree instead. All of them are
// parsed into a single Header value by ReadHeader, which is the only code
// that looks at raw header offsets.
package archive

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/egonelbre/exp-entropy-archive/freqtable"
)

// Algorithm identifies how the payload is coded.
type Algorithm uint8

const (
	None             Algorithm = 0
	Huffman          Algorithm = 1
	CanonicalHuffman Algorithm = 2 // reserved, never implemented
	ShannonFano      Algorithm = 3
)

func (a Algorithm) String() string {
	switch a {
	case None:
		return "none"
	case Huffman:
		return "huffman"
	case CanonicalHuffman:
		return "canonical-huffman"
	case ShannonFano:
		return "shannon-fano"
	}
	return fmt.Sprintf("algorithm(%d)", uint8(a))
}

// ParseAlgorithm parses the names returned by Algorithm.String.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(s) {
	case "none", "store":
		return None, nil
	case "huffman":
		return Huffman, nil
	case "canonical-huffman", "canonical":
		return CanonicalHuffman, nil
	case "shannon-fano", "sf":
		return ShannonFano, nil
	}
	return None, fmt.Errorf("unknown algorithm %q", s)
}

// Layout identifies an on-disk header shape.
type Layout uint8

const (
	LayoutCurrent Layout = iota
	LayoutLegacy2
	LayoutLegacy1
)

func (l Layout) String() string {
	switch l {
	case LayoutCurrent:
		return "current"
	case LayoutLegacy2:
		return "legacy2"
	case LayoutLegacy1:
		return "legacy1"
	}
	return fmt.Sprintf("layout(%d)", uint8(l))
}

// ParseLayout parses the names returned by Layout.String.
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(s) {
	case "current", "huff":
		return LayoutCurrent, nil
	case "legacy2":
		return LayoutLegacy2, nil
	case "legacy1":
		return LayoutLegacy1, nil
	}
	return LayoutCurrent, fmt.Errorf("unknown layout %q", s)
}

// Unit is the unit of Header.CompressedSize.
type Unit uint8

const (
	UnitBytes Unit = iota
	UnitBits
)

func (u Unit) String() string {
	if u == UnitBits {
		return "bits"
	}
	return "bytes"
}

// Header is the parsed form of every header layout.
type Header struct {
	Layout Layout
	// Major and Minor hold the version. LayoutCurrent only has a single
	// version byte, which is stored in Major.
	Major, Minor  uint16
	Algorithm     Algorithm
	FrequencyBits int // LayoutCurrent only, 0 for None

	OriginalSize   uint64
	CompressedSize uint64
	CompressedUnit Unit

	TreeLeaves       uint16 // legacy Huffman only
	ContextAlgorithm byte   // LayoutLegacy1 only, always 0
	ErrorProtection  byte   // LayoutLegacy1 only, always 0
}

const (
	currentMagic      = 0x46465548 // "HUFF"
	currentHeaderSize = 24

	// version byte of LayoutCurrent
	currentVersionLegacy      = 1
	currentVersionHuffman     = 2
	currentVersionShannonFano = 3

	legacySignature = "SEROSA"

	// major versions of the SEROSA layouts
	legacyVersionRaw     = 1
	legacyVersionHuffman = 2

	legacy2BaseSize = 18
	legacy2RawSize  = 28
	legacy2TreeSize = 36

	legacy1BaseSize = 21
	legacy1RawSize  = 26
	legacy1TreeSize = 34
)

// Version formats the header version.
func (h *Header) Version() string {
	if h.Layout == LayoutCurrent {
		return fmt.Sprint(h.Major)
	}
	return fmt.Sprintf("%d.%d", h.Major, h.Minor)
}

// Size returns the encoded size of the header in bytes.
func (h *Header) Size() int {
	tree := h.Algorithm != None
	switch h.Layout {
	case LayoutLegacy2:
		if tree {
			return legacy2TreeSize
		}
		return legacy2RawSize
	case LayoutLegacy1:
		if tree {
			return legacy1TreeSize
		}
		return legacy1RawSize
	}
	return currentHeaderSize
}

// PayloadBytes returns the number of payload bytes following the header
// and the frequency table or tree.
func (h *Header) PayloadBytes() uint64 {
	if h.Algorithm == None {
		return h.OriginalSize
	}
	if h.CompressedUnit == UnitBits {
		return h.CompressedSize/8 + min(h.CompressedSize%8, 1)
	}
	return h.CompressedSize
}

// Validate reports whether the header describes an archive that can be
// decoded.
func (h *Header) Validate() error {
	switch h.Layout {
	case LayoutCurrent:
		var expected uint16
		switch h.Algorithm {
		case None, Huffman:
			expected = currentVersionHuffman
		case ShannonFano:
			expected = currentVersionShannonFano
		default:
			return fmt.Errorf("%w: %v", ErrUnsupported, h.Algorithm)
		}
		if h.Major == currentVersionLegacy {
			return fmt.Errorf("%w: HUFF version %d", ErrUnsupported, h.Major)
		}
		if h.Major != expected {
			return fmt.Errorf("%w: HUFF version %d with %v", ErrUnsupported, h.Major, h.Algorithm)
		}
		if h.Algorithm != None && !freqtable.SupportedWidth(h.FrequencyBits) {
			return fmt.Errorf("%w: %d", ErrUnsupportedBitWidth, h.FrequencyBits)
		}
	case LayoutLegacy2, LayoutLegacy1:
		if h.Algorithm != None && h.Algorithm != Huffman {
			return fmt.Errorf("%w: %v in %v layout", ErrUnsupported, h.Algorithm, h.Layout)
		}
		if h.Major != legacyVersionRaw && h.Major != legacyVersionHuffman {
			return fmt.Errorf("%w: version %s in %v layout", ErrUnsupported, h.Version(), h.Layout)
		}
		if h.ContextAlgorithm != 0 || h.ErrorProtection != 0 {
			return fmt.Errorf("%w: context algorithm %d, error protection %d",
				ErrUnsupported, h.ContextAlgorithm, h.ErrorProtection)
		}
	default:
		return fmt.Errorf("%w: %v", ErrUnsupported, h.Layout)
	}
	return nil
}

// ReadHeader detects the layout of the archive in br and parses its header.
//
// Layouts are tried newest first. Detection only peeks at br, so nothing
// is consumed unless a layout matches.
func ReadHeader(br *bufio.Reader) (Header, error) {
	for i := range Formats {
		format := &Formats[i]
		probe, _ := br.Peek(format.probe)
		if !format.match(probe) {
			continue
		}
		return format.read(br)
	}
	return Header{}, ErrSignatureMismatch
}

// peekHeader returns the next n bytes without consuming them.
func peekHeader(br *bufio.Reader, n int) ([]byte, error) {
	buf, err := br.Peek(n)
	if len(buf) < n {
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read header: %w", err)
		}
		return nil, truncated("header", uint64(n), uint64(len(buf)), "bytes")
	}
	return buf, nil
}

func matchCurrent(probe []byte) bool {
	return len(probe) >= 4 && binary.LittleEndian.Uint32(probe) == currentMagic
}

func readCurrent(br *bufio.Reader) (Header, error) {
	buf, err := peekHeader(br, currentHeaderSize)
	if err != nil {
		return Header{}, err
	}
	h := Header{
		Layout:         LayoutCurrent,
		Major:          uint16(buf[4]),
		Algorithm:      Algorithm(buf[5]),
		FrequencyBits:  int(buf[6]),
		OriginalSize:   binary.LittleEndian.Uint64(buf[8:]),
		CompressedSize: binary.LittleEndian.Uint64(buf[16:]),
		CompressedUnit: UnitBytes,
	}
	_, err = br.Discard(currentHeaderSize)
	return h, err
}

// The packed version of LayoutLegacy2 keeps the major version in byte 7,
// where LayoutLegacy1 has the high byte of a small major version.
func matchLegacy2(probe []byte) bool {
	return len(probe) >= 8 && string(probe[:6]) == legacySignature && probe[7] != 0
}

func matchLegacy1(probe []byte) bool {
	return len(probe) >= 6 && string(probe[:6]) == legacySignature && (len(probe) < 8 || probe[7] == 0)
}

func readLegacy2(br *bufio.Reader) (Header, error) {
	buf, err := peekHeader(br, legacy2BaseSize)
	if err != nil {
		return Header{}, err
	}
	version := binary.LittleEndian.Uint16(buf[6:])
	algorithm := binary.LittleEndian.Uint16(buf[8:])
	h := Header{
		Layout:       LayoutLegacy2,
		Major:        version >> 8,
		Minor:        version & 0xFF,
		Algorithm:    Algorithm(algorithm),
		OriginalSize: binary.LittleEndian.Uint64(buf[10:]),
	}
	if algorithm > 0xFF {
		return h, fmt.Errorf("%w: legacy algorithm %d", ErrUnsupported, algorithm)
	}
	return readLegacyTail(br, h, legacy2RawSize, legacy2TreeSize, legacy2BaseSize)
}

func readLegacy1(br *bufio.Reader) (Header, error) {
	buf, err := peekHeader(br, legacy1BaseSize)
	if err != nil {
		return Header{}, err
	}
	h := Header{
		Layout:           LayoutLegacy1,
		Major:            binary.LittleEndian.Uint16(buf[6:]),
		Minor:            binary.LittleEndian.Uint16(buf[8:]),
		Algorithm:        Algorithm(buf[10]),
		ContextAlgorithm: buf[11],
		ErrorProtection:  buf[12],
		OriginalSize:     binary.LittleEndian.Uint64(buf[13:]),
	}
	return readLegacyTail(br, h, legacy1RawSize, legacy1TreeSize, legacy1BaseSize)
}

// readLegacyTail parses the algorithm specific part of a legacy header,
// which starts at offset base, and consumes the whole header.
func readLegacyTail(br *bufio.Reader, h Header, rawSize, treeSize, base int) (Header, error) {
	size := rawSize
	switch h.Algorithm {
	case None:
		h.CompressedSize = h.OriginalSize
	case Huffman:
		size = treeSize
	default:
		return h, fmt.Errorf("%w: %v in %v layout", ErrUnsupported, h.Algorithm, h.Layout)
	}

	buf, err := peekHeader(br, size)
	if err != nil {
		return h, err
	}
	if h.Algorithm == Huffman {
		h.CompressedSize = binary.LittleEndian.Uint64(buf[base:])
		h.CompressedUnit = UnitBits
		h.TreeLeaves = binary.LittleEndian.Uint16(buf[base+8:])
	}
	_, err = br.Discard(size)
	return h, err
}

// AppendHeader appends the encoding of h to dst.
func AppendHeader(dst []byte, h *Header) ([]byte, error) {
	le := binary.LittleEndian
	switch h.Layout {
	case LayoutCurrent:
		if h.Major > 0xFF {
			return dst, fmt.Errorf("%w: HUFF version %d", ErrUnsupported, h.Major)
		}
		dst = le.AppendUint32(dst, currentMagic)
		dst = append(dst, byte(h.Major), byte(h.Algorithm), byte(h.FrequencyBits), 0)
		dst = le.AppendUint64(dst, h.OriginalSize)
		dst = le.AppendUint64(dst, h.CompressedSize)

	case LayoutLegacy2:
		if h.Major == 0 || h.Major > 0xFF || h.Minor > 0xFF {
			return dst, fmt.Errorf("%w: version %s in %v layout", ErrUnsupported, h.Version(), h.Layout)
		}
		dst = append(dst, legacySignature...)
		dst = le.AppendUint16(dst, h.Major<<8|h.Minor)
		dst = le.AppendUint16(dst, uint16(h.Algorithm))
		dst = le.AppendUint64(dst, h.OriginalSize)
		if h.Algorithm == None {
			dst = append(dst, make([]byte, legacy2RawSize-legacy2BaseSize)...)
			break
		}
		dst = le.AppendUint64(dst, h.CompressedSize)
		dst = le.AppendUint16(dst, h.TreeLeaves)
		dst = append(dst, make([]byte, 8)...)

	case LayoutLegacy1:
		if h.Major > 0xFF {
			return dst, fmt.Errorf("%w: version %s in %v layout", ErrUnsupported, h.Version(), h.Layout)
		}
		dst = append(dst, legacySignature...)
		dst = le.AppendUint16(dst, h.Major)
		dst = le.AppendUint16(dst, h.Minor)
		dst = append(dst, byte(h.Algorithm), h.ContextAlgorithm, h.ErrorProtection)
		dst = le.AppendUint64(dst, h.OriginalSize)
		if h.Algorithm == None {
			dst = append(dst, make([]byte, legacy1RawSize-legacy1BaseSize)...)
			break
		}
		dst = le.AppendUint64(dst, h.CompressedSize)
		dst = le.AppendUint16(dst, h.TreeLeaves)
		dst = append(dst, make([]byte, 3)...)

	default:
		return dst, fmt.Errorf("%w: %v", ErrUnsupported, h.Layout)
	}
	return dst, nil
}

// WriteHeader writes the encoding of h to w.
func WriteHeader(w io.Writer, h *Header) error {
	buf, err := AppendHeader(nil, h)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}
