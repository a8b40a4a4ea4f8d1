package archive

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/ethereum/go-ethereum/log"

	"github.com/egonelbre/exp-entropy-archive/bitio"
	"github.com/egonelbre/exp-entropy-archive/freqtable"
	"github.com/egonelbre/exp-entropy-archive/prefix"
)

// Inspect reads the header of the archive in r without decoding it.
func Inspect(r io.Reader) (Header, error) {
	return ReadHeader(bufio.NewReader(r))
}

// Decompress decodes the archive in r. Unsupported archives are rejected
// before any of the payload is read. Only the decoding options of opts,
// such as WithMaxOriginalSize, are used.
func Decompress(r io.Reader, opts ...Option) (Header, []byte, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	br := bufio.NewReader(r)
	h, err := ReadHeader(br)
	if err != nil {
		return h, nil, err
	}
	if err := h.Validate(); err != nil {
		return h, nil, err
	}
	if h.OriginalSize > min(cfg.MaxOriginalSize, math.MaxInt) {
		return h, nil, fmt.Errorf("%w: original size %d exceeds limit %d",
			ErrUnsupported, h.OriginalSize, min(cfg.MaxOriginalSize, math.MaxInt))
	}
	log.Debug("Detected archive", "layout", h.Layout, "version", h.Version(), "algorithm", h.Algorithm,
		"original", h.OriginalSize, "compressed", h.CompressedSize, "unit", h.CompressedUnit)

	var data []byte
	switch {
	case h.Algorithm == None:
		data, err = readSection(br, h.OriginalSize, "data")
	case h.Layout == LayoutCurrent:
		data, err = decodeCurrent(br, &h)
	default:
		data, err = decodeLegacy(br, &h)
	}
	return h, data, err
}

// DecompressBytes decodes an archive held in memory.
func DecompressBytes(archive []byte, opts ...Option) ([]byte, error) {
	_, data, err := Decompress(bytes.NewReader(archive), opts...)
	return data, err
}

func decodeCurrent(br *bufio.Reader, h *Header) ([]byte, error) {
	size, err := freqtable.EncodedSize(h.FrequencyBits)
	if err != nil {
		return nil, err
	}
	raw, err := readSection(br, uint64(size), "frequency table")
	if err != nil {
		return nil, err
	}
	table, err := freqtable.Decode(raw, h.FrequencyBits)
	if err != nil {
		return nil, err
	}

	build, err := Builder(h.Algorithm)
	if err != nil {
		return nil, err
	}
	tree := build(&table)

	payload, err := readSection(br, h.CompressedSize, "payload")
	if err != nil {
		return nil, err
	}
	return decodePayload(tree, bitio.NewReader(bytes.NewReader(payload)), len(payload) == 0, h.OriginalSize)
}

func decodeLegacy(br *bufio.Reader, h *Header) ([]byte, error) {
	counter := &countingReader{r: br}
	tree, err := prefix.ReadTree(counter)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			expected := 3*uint64(h.TreeLeaves) - 1
			if h.TreeLeaves == 0 || expected <= counter.n {
				expected = counter.n + 1
			}
			return nil, truncated("tree", expected, counter.n, "bytes")
		}
		return nil, err
	}
	if leaves := tree.Leaves(); leaves != int(h.TreeLeaves) {
		log.Warn("Tree leaf count differs from header", "header", h.TreeLeaves, "tree", leaves)
	}

	payload, err := readSection(br, h.PayloadBytes(), "payload")
	if err != nil {
		return nil, err
	}
	r := bitio.NewLimitedReader(bytes.NewReader(payload), h.CompressedSize)
	return decodePayload(tree, r, h.CompressedSize == 0, h.OriginalSize)
}

// decodePayload decodes n symbols. Older encoders wrote no payload at all
// for single-symbol input, so an empty payload with a one-leaf tree
// expands to the repeated symbol.
func decodePayload(tree *prefix.Tree, r *bitio.Reader, empty bool, n uint64) ([]byte, error) {
	if symbol, ok := tree.SingleSymbol(); ok && empty && n > 0 {
		log.Debug("Expanding single-symbol archive without payload", "symbol", symbol, "count", n)
		return bytes.Repeat([]byte{symbol}, int(n)), nil
	}

	data, err := tree.Decode(r, int(n))
	if errors.Is(err, prefix.ErrShortStream) {
		return nil, truncated("payload", n, uint64(len(data)), "symbols")
	}
	return data, err
}

// readSection reads exactly n bytes.
func readSection(r io.Reader, n uint64, what string) ([]byte, error) {
	if n > math.MaxInt64 {
		return nil, fmt.Errorf("%w: %s of %d bytes", ErrUnsupported, what, n)
	}
	buf, err := io.ReadAll(io.LimitReader(r, int64(n)))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", what, err)
	}
	if uint64(len(buf)) < n {
		return nil, truncated(what, n, uint64(len(buf)), "bytes")
	}
	return buf, nil
}

type countingReader struct {
	r io.ByteReader
	n uint64
}

func (c *countingReader) ReadByte() (byte, error) {
	b, err := c.r.ReadByte()
	if err == nil {
		c.n++
	}
	return b, err
}
