package archive

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/egonelbre/exp-entropy-archive/freqtable"
)

type variant struct {
	name      string
	layout    Layout
	algorithm Algorithm
}

var variants = []variant{
	{"current/none", LayoutCurrent, None},
	{"current/huffman", LayoutCurrent, Huffman},
	{"current/shannon-fano", LayoutCurrent, ShannonFano},
	{"legacy2/none", LayoutLegacy2, None},
	{"legacy2/huffman", LayoutLegacy2, Huffman},
	{"legacy1/none", LayoutLegacy1, None},
	{"legacy1/huffman", LayoutLegacy1, Huffman},
}

func testInputs() map[string][]byte {
	rng := rand.New(rand.NewSource(12345))

	skewed := make([]byte, 5000)
	for i := range skewed {
		skewed[i] = byte(rng.Intn(1 + rng.Intn(256)))
	}

	alphabet := make([]byte, 0, 256*3)
	for r := 0; r < 3; r++ {
		for i := 0; i < 256; i++ {
			alphabet = append(alphabet, byte(i))
		}
	}

	return map[string][]byte{
		"empty":    {},
		"one byte": {0x7F},
		"single":   bytes.Repeat([]byte{'z'}, 1000),
		"AAAB":     []byte("AAAB"),
		"text":     []byte("it was the best of times, it was the worst of times"),
		"alphabet": alphabet,
		"skewed":   skewed,
	}
}

func TestRoundtrip(t *testing.T) {
	for _, v := range variants {
		for name, data := range testInputs() {
			t.Run(v.name+"/"+name, func(t *testing.T) {
				archive, err := Compress(data, WithLayout(v.layout), WithAlgorithm(v.algorithm))
				require.NoError(t, err)

				h, decoded, err := Decompress(bytes.NewReader(archive))
				require.NoError(t, err)
				require.Equal(t, v.layout, h.Layout)
				require.Equal(t, v.algorithm, h.Algorithm)
				require.Equal(t, uint64(len(data)), h.OriginalSize)
				require.True(t, bytes.Equal(data, decoded), "roundtrip mismatch")
			})
		}
	}
}

func TestRoundtripAllWidths(t *testing.T) {
	data := testInputs()["skewed"]
	for _, algorithm := range []Algorithm{Huffman, ShannonFano} {
		for _, width := range freqtable.Widths {
			archive, err := Compress(data, WithAlgorithm(algorithm), WithFrequencyBits(width))
			require.NoError(t, err)

			h, decoded, err := Decompress(bytes.NewReader(archive))
			require.NoError(t, err)
			require.Equal(t, width, h.FrequencyBits)
			require.Equal(t, data, decoded, "%v width %d", algorithm, width)
		}
	}
}

func TestAAAB(t *testing.T) {
	data := []byte{0x41, 0x41, 0x41, 0x42}
	archive, err := Compress(data, WithAlgorithm(Huffman), WithFrequencyBits(64))
	require.NoError(t, err)

	require.Equal(t, []byte("HUFF"), archive[:4])
	require.Equal(t, byte(2), archive[4], "version")
	require.Equal(t, byte(Huffman), archive[5], "algorithm")
	require.Equal(t, byte(64), archive[6], "frequency bits")
	require.Equal(t, byte(0), archive[7], "reserved")
	require.Equal(t, uint64(4), binary.LittleEndian.Uint64(archive[8:]))
	require.Equal(t, uint64(1), binary.LittleEndian.Uint64(archive[16:]))

	table := archive[currentHeaderSize : currentHeaderSize+2048]
	require.Equal(t, uint64(3), binary.LittleEndian.Uint64(table['A'*8:]))
	require.Equal(t, uint64(1), binary.LittleEndian.Uint64(table['B'*8:]))

	// A=1, B=0: 1110 padded
	require.Len(t, archive, currentHeaderSize+2048+1)
	require.Equal(t, byte(0b11100000), archive[len(archive)-1])

	decoded, err := DecompressBytes(archive)
	require.NoError(t, err)
	require.Equal(t, data, decoded)
}

func TestAutomaticWidth(t *testing.T) {
	// Tiny inputs are dominated by the table size.
	archive, err := Compress([]byte("AAAB"))
	require.NoError(t, err)
	h, err := Inspect(bytes.NewReader(archive))
	require.NoError(t, err)
	require.Equal(t, 4, h.FrequencyBits)
	require.Len(t, archive, currentHeaderSize+128+1)

	// Restricting the candidates is honored.
	archive, err = Compress([]byte("AAAB"), WithCandidateWidths(32, 8))
	require.NoError(t, err)
	h, err = Inspect(bytes.NewReader(archive))
	require.NoError(t, err)
	require.Equal(t, 8, h.FrequencyBits)
}

func TestChooseWidthTie(t *testing.T) {
	counts := freqtable.Count([]byte("ab"))
	// equal payloads, so only the table size decides
	width, err := ChooseWidth(&counts, Huffman, []int{8, 4, 4})
	require.NoError(t, err)
	require.Equal(t, 4, width)

	width, err = ChooseWidth(&counts, Huffman, []int{8, 8})
	require.NoError(t, err)
	require.Equal(t, 8, width)

	_, err = ChooseWidth(&counts, Huffman, []int{12})
	require.ErrorIs(t, err, ErrUnsupportedBitWidth)
}

func TestDeterministic(t *testing.T) {
	data := testInputs()["skewed"]
	for _, v := range variants {
		first, err := Compress(data, WithLayout(v.layout), WithAlgorithm(v.algorithm))
		require.NoError(t, err)
		second, err := Compress(data, WithLayout(v.layout), WithAlgorithm(v.algorithm))
		require.NoError(t, err)
		require.Equal(t, first, second, v.name)
	}
}

func TestTruncatedPayload(t *testing.T) {
	data := []byte("truncation must never decode silently")
	for _, v := range variants {
		archive, err := Compress(data, WithLayout(v.layout), WithAlgorithm(v.algorithm))
		require.NoError(t, err)

		for cut := 1; cut <= 3; cut++ {
			_, _, err := Decompress(bytes.NewReader(archive[:len(archive)-cut]))
			require.ErrorIs(t, err, ErrTruncatedInput, "%s cut %d", v.name, cut)

			var truncated *TruncatedError
			require.True(t, errors.As(err, &truncated))
			require.Greater(t, truncated.Expected, truncated.Actual)
		}
	}
}

func TestTruncatedHeader(t *testing.T) {
	for _, v := range variants {
		archive, err := Compress([]byte("abc"), WithLayout(v.layout), WithAlgorithm(v.algorithm))
		require.NoError(t, err)

		_, err = Inspect(bytes.NewReader(archive[:10]))
		require.ErrorIs(t, err, ErrTruncatedInput, v.name)
	}
}

func TestTruncatedTree(t *testing.T) {
	archive, err := Compress([]byte("abcdef"), WithLayout(LayoutLegacy2))
	require.NoError(t, err)

	_, _, err = Decompress(bytes.NewReader(archive[:legacy2TreeSize+4]))
	var truncated *TruncatedError
	require.ErrorAs(t, err, &truncated)
	require.Equal(t, "tree", truncated.What)
}

func TestSignatureMismatch(t *testing.T) {
	for _, input := range [][]byte{
		nil,
		[]byte("HUF"),
		[]byte("SEROS"),
		[]byte("PK\x03\x04 not an archive"),
		bytes.Repeat([]byte{0}, 64),
	} {
		_, _, err := Decompress(bytes.NewReader(input))
		require.ErrorIs(t, err, ErrSignatureMismatch, "%q", input)
	}
}

func TestDetectionDoesNotConsume(t *testing.T) {
	archive, err := Compress([]byte("legacy"), WithLayout(LayoutLegacy1))
	require.NoError(t, err)

	br := bufio.NewReader(bytes.NewReader(archive))
	h, err := ReadHeader(br)
	require.NoError(t, err)
	require.Equal(t, LayoutLegacy1, h.Layout)
	require.Equal(t, len(archive)-legacy1TreeSize, br.Buffered())
}

func TestLegacyVersions(t *testing.T) {
	tests := []struct {
		layout    Layout
		algorithm Algorithm
		version   []byte
		size      int
	}{
		{LayoutLegacy2, None, []byte{0x00, 0x01}, legacy2RawSize},
		{LayoutLegacy2, Huffman, []byte{0x00, 0x02}, legacy2TreeSize},
		{LayoutLegacy1, None, []byte{0x01, 0x00, 0x00, 0x00}, legacy1RawSize},
		{LayoutLegacy1, Huffman, []byte{0x02, 0x00, 0x00, 0x00}, legacy1TreeSize},
	}
	for _, test := range tests {
		archive, err := Compress([]byte("xy"), WithLayout(test.layout), WithAlgorithm(test.algorithm))
		require.NoError(t, err)
		require.Equal(t, []byte("SEROSA"), archive[:6])
		require.Equal(t, test.version, archive[6:6+len(test.version)])

		h, err := Inspect(bytes.NewReader(archive))
		require.NoError(t, err)
		require.Equal(t, test.layout, h.Layout)
		require.Equal(t, test.size, h.Size())
	}
}

func TestLegacyHuffmanHeader(t *testing.T) {
	archive, err := Compress([]byte("AAAB"), WithLayout(LayoutLegacy1))
	require.NoError(t, err)

	h, err := Inspect(bytes.NewReader(archive))
	require.NoError(t, err)
	require.Equal(t, uint64(4), h.CompressedSize)
	require.Equal(t, UnitBits, h.CompressedUnit)
	require.Equal(t, uint16(2), h.TreeLeaves)

	// header, tree {0, 1 B, 1 A}, payload
	tree := archive[legacy1TreeSize : legacy1TreeSize+5]
	require.Equal(t, []byte{0, 1, 'B', 1, 'A'}, tree)
	require.Equal(t, byte(0b11100000), archive[len(archive)-1])
}

func TestUnsupported(t *testing.T) {
	_, err := Compress([]byte("abc"), WithAlgorithm(CanonicalHuffman))
	require.ErrorIs(t, err, ErrUnsupported)

	_, err = Compress([]byte("abc"), WithLayout(LayoutLegacy2), WithAlgorithm(ShannonFano))
	require.ErrorIs(t, err, ErrUnsupported)

	_, err = Compress([]byte("abc"), WithFrequencyBits(16))
	require.ErrorIs(t, err, ErrUnsupportedBitWidth)

	archive, err := Compress([]byte("abc"))
	require.NoError(t, err)

	canonical := bytes.Clone(archive)
	canonical[5] = byte(CanonicalHuffman)
	_, _, err = Decompress(bytes.NewReader(canonical))
	require.ErrorIs(t, err, ErrUnsupported)

	v1 := bytes.Clone(archive)
	v1[4] = currentVersionLegacy
	_, _, err = Decompress(bytes.NewReader(v1))
	require.ErrorIs(t, err, ErrUnsupported)

	width := bytes.Clone(archive)
	width[6] = 16
	_, _, err = Decompress(bytes.NewReader(width))
	require.ErrorIs(t, err, ErrUnsupportedBitWidth)

	legacy, err := Compress([]byte("abc"), WithLayout(LayoutLegacy1))
	require.NoError(t, err)
	legacy[12] = 1 // error protection
	_, _, err = Decompress(bytes.NewReader(legacy))
	require.ErrorIs(t, err, ErrUnsupported)

	legacy[12] = 0
	legacy[10] = byte(ShannonFano)
	_, err = Inspect(bytes.NewReader(legacy))
	require.ErrorIs(t, err, ErrUnsupported)

	for _, layout := range []Layout{LayoutLegacy2, LayoutLegacy1} {
		unknown, err := AppendHeader(nil, &Header{Layout: layout, Major: 9, Minor: 7, Algorithm: None})
		require.NoError(t, err)
		_, _, err = Decompress(bytes.NewReader(unknown))
		require.ErrorIs(t, err, ErrUnsupported, "%v version 9.7", layout)
	}

	_, err = Compress([]byte("abc"), WithLayout(LayoutLegacy1), WithFrequencyBits(4))
	require.ErrorIs(t, err, ErrUnsupported)
	_, err = Compress([]byte("abc"), WithLayout(LayoutLegacy2), WithFrequencyBits(64))
	require.ErrorIs(t, err, ErrUnsupported)
}

// singleSymbolArchives returns a current and a legacy archive of a single
// repeated symbol that declare size bytes and carry no payload.
func singleSymbolArchives(t testing.TB, size uint64) [][]byte {
	current, err := AppendHeader(nil, &Header{
		Layout:        LayoutCurrent,
		Major:         currentVersionHuffman,
		Algorithm:     Huffman,
		FrequencyBits: 8,
		OriginalSize:  size,
	})
	require.NoError(t, err)
	var table freqtable.Table
	table['q'] = 1
	current, err = freqtable.AppendEncoded(current, &table, 8)
	require.NoError(t, err)

	legacy, err := AppendHeader(nil, &Header{
		Layout:         LayoutLegacy2,
		Major:          legacyVersionHuffman,
		Algorithm:      Huffman,
		OriginalSize:   size,
		CompressedUnit: UnitBits,
		TreeLeaves:     1,
	})
	require.NoError(t, err)
	legacy = append(legacy, 1, 'r')

	return [][]byte{current, legacy}
}

func TestOriginalSizeLimit(t *testing.T) {
	for _, size := range []uint64{math.MaxInt64, 1 << 40, math.MaxUint64, DefaultMaxOriginalSize + 1} {
		for _, archive := range singleSymbolArchives(t, size) {
			_, err := DecompressBytes(archive)
			require.ErrorIs(t, err, ErrUnsupported, "original size %d", size)
		}
	}

	for _, archive := range singleSymbolArchives(t, 4) {
		_, err := DecompressBytes(archive, WithMaxOriginalSize(3))
		require.ErrorIs(t, err, ErrUnsupported)

		decoded, err := DecompressBytes(archive, WithMaxOriginalSize(4))
		require.NoError(t, err)
		require.Len(t, decoded, 4)
	}

	archive, err := Compress([]byte("hello world"))
	require.NoError(t, err)
	_, err = DecompressBytes(archive, WithMaxOriginalSize(10))
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestInvalidTree(t *testing.T) {
	archive, err := Compress([]byte("abcabc"), WithLayout(LayoutLegacy2))
	require.NoError(t, err)
	archive[legacy2TreeSize] = 7 // unknown marker
	_, _, err = Decompress(bytes.NewReader(archive))
	require.ErrorIs(t, err, ErrInvalidCode)
}

func TestSingleSymbolWithoutPayload(t *testing.T) {
	// Current layout: one-symbol table, zero compressed bytes.
	h := Header{
		Layout:        LayoutCurrent,
		Major:         currentVersionHuffman,
		Algorithm:     Huffman,
		FrequencyBits: 8,
		OriginalSize:  5,
	}
	archive, err := AppendHeader(nil, &h)
	require.NoError(t, err)
	var table freqtable.Table
	table['q'] = 5
	archive, err = freqtable.AppendEncoded(archive, &table, 8)
	require.NoError(t, err)

	decoded, err := DecompressBytes(archive)
	require.NoError(t, err)
	require.Equal(t, []byte("qqqqq"), decoded)

	// Legacy layout: single leaf tree, zero payload bits.
	h = Header{
		Layout:         LayoutLegacy2,
		Major:          2,
		Algorithm:      Huffman,
		OriginalSize:   3,
		CompressedUnit: UnitBits,
		TreeLeaves:     1,
	}
	archive, err = AppendHeader(nil, &h)
	require.NoError(t, err)
	archive = append(archive, 1, 'r')

	decoded, err = DecompressBytes(archive)
	require.NoError(t, err)
	require.Equal(t, []byte("rrr"), decoded)
}

func TestFormats(t *testing.T) {
	require.Len(t, Formats, 3)
	require.Equal(t, LayoutCurrent, Formats[0].Layout, "newest layout is tried first")
	for _, layout := range []Layout{LayoutCurrent, LayoutLegacy2, LayoutLegacy1} {
		f, ok := FormatOf(layout)
		require.True(t, ok)
		require.True(t, f.Supports(Huffman))
		require.False(t, f.Supports(CanonicalHuffman))
	}
}

func TestParseNames(t *testing.T) {
	for _, a := range []Algorithm{None, Huffman, CanonicalHuffman, ShannonFano} {
		got, err := ParseAlgorithm(a.String())
		require.NoError(t, err)
		require.Equal(t, a, got)
	}
	for _, l := range []Layout{LayoutCurrent, LayoutLegacy2, LayoutLegacy1} {
		got, err := ParseLayout(l.String())
		require.NoError(t, err)
		require.Equal(t, l, got)
	}
	_, err := ParseAlgorithm("lzw")
	require.Error(t, err)
}

func FuzzRoundtrip(f *testing.F) {
	f.Add([]byte{}, uint8(1))
	f.Add([]byte("AAAB"), uint8(3))
	f.Add([]byte("hello world"), uint8(0))

	f.Fuzz(func(t *testing.T, data []byte, choice uint8) {
		v := variants[int(choice)%len(variants)]
		archive, err := Compress(data, WithLayout(v.layout), WithAlgorithm(v.algorithm))
		if err != nil {
			t.Fatalf("%s: Compress failed: %v", v.name, err)
		}
		decoded, err := DecompressBytes(archive)
		if err != nil {
			t.Fatalf("%s: Decompress failed: %v", v.name, err)
		}
		if !bytes.Equal(data, decoded) {
			t.Fatalf("%s: roundtrip mismatch", v.name)
		}
	})
}

func FuzzDecompress(f *testing.F) {
	for _, v := range variants {
		archive, _ := Compress([]byte("seed input"), WithLayout(v.layout), WithAlgorithm(v.algorithm))
		f.Add(archive)
	}
	for _, size := range []uint64{math.MaxInt64, 1 << 40} {
		for _, archive := range singleSymbolArchives(f, size) {
			f.Add(archive)
		}
	}

	f.Fuzz(func(t *testing.T, archive []byte) {
		_, _ = DecompressBytes(archive, WithMaxOriginalSize(1<<20))
	})
}

func BenchmarkCompress(b *testing.B) {
	data := testInputs()["skewed"]
	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = Compress(data)
	}
}

func BenchmarkDecompress(b *testing.B) {
	data := testInputs()["skewed"]
	archive, _ := Compress(data)
	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = DecompressBytes(archive)
	}
}
