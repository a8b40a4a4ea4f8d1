package freqtable

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Widths lists the entry widths supported on disk, in the order they are
// tried when choosing one automatically.
var Widths = []int{64, 32, 8, 4}

// SupportedWidth reports whether width can be written to disk.
func SupportedWidth(width int) bool {
	switch width {
	case 4, 8, 32, 64:
		return true
	}
	return false
}

// EncodedSize returns the number of bytes a table occupies at width.
func EncodedSize(width int) (int, error) {
	if !SupportedWidth(width) {
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedBitWidth, width)
	}
	return AlphabetSize * width / 8, nil
}

// AppendEncoded appends the little-endian encoding of all 256 entries of t
// to dst. 4-bit entries are packed two per byte, the lower symbol in the
// high nibble.
func AppendEncoded(dst []byte, t *Table, width int) ([]byte, error) {
	if !SupportedWidth(width) {
		return dst, fmt.Errorf("%w: %d", ErrUnsupportedBitWidth, width)
	}
	if !t.Fits(width) {
		return dst, fmt.Errorf("frequency %d does not fit in %d bits", t.Max(), width)
	}

	switch width {
	case 64:
		for _, f := range t {
			dst = binary.LittleEndian.AppendUint64(dst, f)
		}
	case 32:
		for _, f := range t {
			dst = binary.LittleEndian.AppendUint32(dst, uint32(f))
		}
	case 8:
		for _, f := range t {
			dst = append(dst, byte(f))
		}
	case 4:
		for i := 0; i < AlphabetSize; i += 2 {
			dst = append(dst, byte(t[i]&0x0F)<<4|byte(t[i+1]&0x0F))
		}
	}
	return dst, nil
}

// Decode parses a table encoded by AppendEncoded.
func Decode(src []byte, width int) (Table, error) {
	var t Table
	size, err := EncodedSize(width)
	if err != nil {
		return t, err
	}
	if len(src) < size {
		return t, fmt.Errorf("frequency table needs %d bytes, got %d: %w", size, len(src), io.ErrUnexpectedEOF)
	}

	switch width {
	case 64:
		for i := range t {
			t[i] = binary.LittleEndian.Uint64(src[i*8:])
		}
	case 32:
		for i := range t {
			t[i] = uint64(binary.LittleEndian.Uint32(src[i*4:]))
		}
	case 8:
		for i := range t {
			t[i] = uint64(src[i])
		}
	case 4:
		for i := 0; i < AlphabetSize; i += 2 {
			b := src[i/2]
			t[i] = uint64(b >> 4)
			t[i+1] = uint64(b & 0x0F)
		}
	}
	return t, nil
}

// Write writes the encoding of t to w.
func Write(w io.Writer, t *Table, width int) error {
	buf, err := AppendEncoded(nil, t, width)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// Read reads a table of the given width from r.
func Read(r io.Reader, width int) (Table, error) {
	size, err := EncodedSize(width)
	if err != nil {
		return Table{}, err
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return Table{}, fmt.Errorf("read frequency table: %w", err)
	}
	return Decode(buf, width)
}
