package freqtable

import (
	"bytes"
	"errors"
	"io"
	"math/rand"
	"testing"
)

func TestEncodedSize(t *testing.T) {
	expected := map[int]int{64: 2048, 32: 1024, 8: 256, 4: 128}
	for width, size := range expected {
		got, err := EncodedSize(width)
		if err != nil {
			t.Fatalf("Width %d: %v", width, err)
		}
		if got != size {
			t.Errorf("Width %d: expected %d bytes, got %d", width, size, got)
		}
	}
	if _, err := EncodedSize(16); !errors.Is(err, ErrUnsupportedBitWidth) {
		t.Errorf("Expected ErrUnsupportedBitWidth, got %v", err)
	}
}

func TestNibblePacking(t *testing.T) {
	var table Table
	table[0] = 0xA
	table[1] = 0x3
	table[255] = 0xF

	buf, err := AppendEncoded(nil, &table, 4)
	if err != nil {
		t.Fatal(err)
	}
	if buf[0] != 0xA3 {
		t.Errorf("Expected first byte a3, got %02x", buf[0])
	}
	if buf[127] != 0x0F {
		t.Errorf("Expected last byte 0f, got %02x", buf[127])
	}
}

func TestWriteRejectsOverflow(t *testing.T) {
	var table Table
	table[9] = 300
	if err := Write(io.Discard, &table, 8); err == nil {
		t.Errorf("Expected overflow error")
	}
}

func TestWireRoundtrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for _, width := range Widths {
		for trial := 0; trial < 20; trial++ {
			var table Table
			for i := range table {
				if rng.Intn(3) == 0 {
					continue
				}
				v := rng.Uint64()
				if width < 64 {
					v &= maxValue(width)
				}
				table[i] = v
			}

			var buf bytes.Buffer
			if err := Write(&buf, &table, width); err != nil {
				t.Fatalf("Width %d: Write failed: %v", width, err)
			}
			got, err := Read(&buf, width)
			if err != nil {
				t.Fatalf("Width %d: Read failed: %v", width, err)
			}
			if got != table {
				t.Fatalf("Width %d trial %d: table mismatch", width, trial)
			}
		}
	}
}

func TestReadTruncated(t *testing.T) {
	_, err := Read(bytes.NewReader(make([]byte, 100)), 8)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("Expected io.ErrUnexpectedEOF, got %v", err)
	}
	_, err = Read(bytes.NewReader(nil), 4)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("Expected io.ErrUnexpectedEOF for empty input, got %v", err)
	}
}
