package archive

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/log"

	"github.com/egonelbre/exp-entropy-archive/bitio"
	"github.com/egonelbre/exp-entropy-archive/freqtable"
	"github.com/egonelbre/exp-entropy-archive/prefix"
)

// Compress returns the archive of data.
func Compress(data []byte, opts ...Option) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := CompressTo(&buf, data, opts...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CompressTo writes the archive of data to w and returns its header.
func CompressTo(w io.Writer, data []byte, opts ...Option) (Header, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	format, ok := FormatOf(cfg.Layout)
	if !ok {
		return Header{}, fmt.Errorf("%w: %v", ErrUnsupported, cfg.Layout)
	}
	if !format.Supports(cfg.Algorithm) {
		return Header{}, fmt.Errorf("%w: %v in %v layout", ErrUnsupported, cfg.Algorithm, cfg.Layout)
	}
	if cfg.FrequencyBits != 0 && !freqtable.SupportedWidth(cfg.FrequencyBits) {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedBitWidth, cfg.FrequencyBits)
	}
	if cfg.FrequencyBits != 0 && cfg.Layout != LayoutCurrent {
		return Header{}, fmt.Errorf("%w: %d-bit frequency table in %v layout", ErrUnsupported, cfg.FrequencyBits, cfg.Layout)
	}

	var (
		h   Header
		err error
	)
	if cfg.Layout == LayoutCurrent {
		h, err = writeCurrent(w, data, &cfg)
	} else {
		h, err = writeLegacy(w, data, &cfg)
	}
	if err != nil {
		return h, err
	}

	log.Debug("Compressed", "layout", h.Layout, "algorithm", h.Algorithm, "bits", h.FrequencyBits,
		"original", h.OriginalSize, "compressed", h.CompressedSize, "unit", h.CompressedUnit)
	return h, nil
}

func writeCurrent(w io.Writer, data []byte, cfg *Config) (Header, error) {
	h := Header{
		Layout:         LayoutCurrent,
		Major:          currentVersionHuffman,
		Algorithm:      cfg.Algorithm,
		OriginalSize:   uint64(len(data)),
		CompressedUnit: UnitBytes,
	}

	if cfg.Algorithm == None {
		h.CompressedSize = uint64(len(data))
		header, err := AppendHeader(nil, &h)
		if err != nil {
			return h, err
		}
		return h, writeSections(w, header, data)
	}
	if cfg.Algorithm == ShannonFano {
		h.Major = currentVersionShannonFano
	}

	build, err := Builder(cfg.Algorithm)
	if err != nil {
		return h, err
	}

	counts := freqtable.Count(data)
	width := cfg.FrequencyBits
	if width == 0 {
		width, err = ChooseWidth(&counts, cfg.Algorithm, cfg.CandidateWidths)
		if err != nil {
			return h, err
		}
	}

	normalized, err := freqtable.Normalize(counts, width)
	if err != nil {
		return h, err
	}
	codes := build(&normalized).Codes()
	payload, _, err := encodePayload(&codes, data)
	if err != nil {
		return h, err
	}

	h.FrequencyBits = width
	h.CompressedSize = uint64(len(payload))

	header, err := AppendHeader(nil, &h)
	if err != nil {
		return h, err
	}
	table, err := freqtable.AppendEncoded(nil, &normalized, width)
	if err != nil {
		return h, err
	}
	return h, writeSections(w, header, table, payload)
}

// legacy versions written for each algorithm
var legacyVersions = map[Algorithm][2]uint16{
	None:    {legacyVersionRaw, 0},
	Huffman: {legacyVersionHuffman, 0},
}

func writeLegacy(w io.Writer, data []byte, cfg *Config) (Header, error) {
	version := legacyVersions[cfg.Algorithm]
	h := Header{
		Layout:         cfg.Layout,
		Major:          version[0],
		Minor:          version[1],
		Algorithm:      cfg.Algorithm,
		OriginalSize:   uint64(len(data)),
		CompressedSize: uint64(len(data)),
		CompressedUnit: UnitBytes,
	}

	if cfg.Algorithm == None {
		header, err := AppendHeader(nil, &h)
		if err != nil {
			return h, err
		}
		return h, writeSections(w, header, data)
	}

	// Legacy archives persist the tree, so the raw counts are used.
	counts := freqtable.Count(data)
	tree := prefix.BuildHuffman(&counts)
	codes := tree.Codes()
	payload, nbits, err := encodePayload(&codes, data)
	if err != nil {
		return h, err
	}

	h.CompressedSize = nbits
	h.CompressedUnit = UnitBits
	h.TreeLeaves = uint16(tree.Leaves())

	header, err := AppendHeader(nil, &h)
	if err != nil {
		return h, err
	}
	return h, writeSections(w, header, tree.AppendTree(nil), payload)
}

func encodePayload(codes *prefix.CodeTable, data []byte) ([]byte, uint64, error) {
	var buf bytes.Buffer
	bw := bitio.NewWriter(&buf)
	if err := prefix.Encode(bw, codes, data); err != nil {
		return nil, 0, err
	}
	if err := bw.Flush(); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), bw.Bits(), nil
}

func writeSections(w io.Writer, sections ...[]byte) error {
	for _, section := range sections {
		if _, err := w.Write(section); err != nil {
			return err
		}
	}
	return nil
}
