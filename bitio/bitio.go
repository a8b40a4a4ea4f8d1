// Package bitio implements MSB-first bit streams over byte-oriented
// readers and writers.
//
// The first bit written ends up in the most significant bit of the first
// byte. A partially filled final byte is padded with zero bits on Flush;
// readers that must not interpret the padding as data use NewLimitedReader.
package bitio

import (
	"errors"
	"io"
)

// ErrWidth is returned when more than 64 bits are requested at once.
var ErrWidth = errors.New("bitio: invalid bit count")

// Writer writes individual bits to an io.Writer.
//
// Write errors are sticky: after the first failure every call returns the
// same error.
type Writer struct {
	output      io.Writer
	accumulator byte
	numBits     int    // bits pending in accumulator, 0..7
	written     uint64 // payload bits written, excluding padding
	err         error
}

// NewWriter creates a new bit writer that writes to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{output: w}
}

// WriteBit writes the lowest bit of bit.
func (bw *Writer) WriteBit(bit byte) error {
	if bw.err != nil {
		return bw.err
	}

	bw.accumulator = (bw.accumulator << 1) | (bit & 1)
	bw.numBits++
	bw.written++

	if bw.numBits == 8 {
		bw.emit()
	}
	return bw.err
}

// WriteBits writes the n lowest bits of v, most significant first.
func (bw *Writer) WriteBits(v uint64, n int) error {
	if n < 0 || n > 64 {
		return ErrWidth
	}
	for i := n - 1; i >= 0; i-- {
		if err := bw.WriteBit(byte(v >> uint(i))); err != nil {
			return err
		}
	}
	return nil
}

// WriteCode writes a sequence of bits, where every element of code is
// either 0 or 1.
func (bw *Writer) WriteCode(code []byte) error {
	for _, bit := range code {
		if err := bw.WriteBit(bit); err != nil {
			return err
		}
	}
	return nil
}

// Flush writes the pending partial byte, shifted to the top and padded
// with zero bits. Flushing an empty accumulator writes nothing.
func (bw *Writer) Flush() error {
	if bw.err != nil {
		return bw.err
	}
	if bw.numBits > 0 {
		bw.accumulator <<= uint(8 - bw.numBits)
		bw.emit()
	}
	return bw.err
}

// Bits returns the number of payload bits written so far.
func (bw *Writer) Bits() uint64 { return bw.written }

// Err returns the first write error, if any.
func (bw *Writer) Err() error { return bw.err }

func (bw *Writer) emit() {
	if _, err := bw.output.Write([]byte{bw.accumulator}); err != nil {
		bw.err = err
	}
	bw.accumulator = 0
	bw.numBits = 0
}

// Reader reads individual bits from an io.Reader.
type Reader struct {
	input       io.Reader
	accumulator byte
	numBits     int // unread bits in accumulator
	read        uint64
	limit       uint64 // maximum payload bits, 0 when unlimited
	limited     bool
	buf         [1]byte
}

// NewReader creates a bit reader that consumes bits until the underlying
// reader is exhausted, including any padding bits of the final byte.
func NewReader(r io.Reader) *Reader {
	return &Reader{input: r}
}

// NewLimitedReader creates a bit reader that reports io.EOF after nbits
// bits, so that padding in the last byte is never returned as data.
func NewLimitedReader(r io.Reader, nbits uint64) *Reader {
	return &Reader{input: r, limit: nbits, limited: true}
}

// ReadBit returns the next bit. At the end of the data it returns io.EOF.
func (br *Reader) ReadBit() (byte, error) {
	if br.limited && br.read >= br.limit {
		return 0, io.EOF
	}
	if br.numBits == 0 {
		if _, err := io.ReadFull(br.input, br.buf[:]); err != nil {
			return 0, err
		}
		br.accumulator = br.buf[0]
		br.numBits = 8
	}

	br.numBits--
	br.read++
	return (br.accumulator >> uint(br.numBits)) & 1, nil
}

// ReadBits reads n bits, most significant first.
func (br *Reader) ReadBits(n int) (uint64, error) {
	if n < 0 || n > 64 {
		return 0, ErrWidth
	}
	var v uint64
	for i := 0; i < n; i++ {
		bit, err := br.ReadBit()
		if err != nil {
			return v, err
		}
		v = v<<1 | uint64(bit)
	}
	return v, nil
}

// Bits returns the number of bits consumed so far.
func (br *Reader) Bits() uint64 { return br.read }
