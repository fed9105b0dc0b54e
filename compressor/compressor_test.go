package compressor

import (
	"bytes"
	"testing"
)

func TestCompressDecompressRoundTrip(t *testing.T) {
	raw := bytes.Repeat([]byte("slippi replay bytes "), 100)

	compressed, err := Compress(raw)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if !Sniff(compressed) {
		t.Fatal("compressed output should Sniff true")
	}

	out, err := Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(out, raw) {
		t.Error("round trip did not reproduce original bytes")
	}
}

func TestSniffRejectsRawSlp(t *testing.T) {
	raw := []byte{'{', 'U', 3, 'r', 'a', 'w', '[', '$', 'U', '#', 'l', 0, 0, 0, 0}
	if Sniff(raw) {
		t.Error("Sniff should not match a raw .slp header")
	}
}

func TestSniffRejectsShortInput(t *testing.T) {
	if Sniff([]byte{'S', 'L'}) {
		t.Error("Sniff should reject input shorter than the magic")
	}
}

func TestDecompressRejectsMissingMagic(t *testing.T) {
	if _, err := Decompress([]byte("not compressed")); err == nil {
		t.Error("Decompress should error without the magic header")
	}
}
