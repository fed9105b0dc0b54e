package codec

import (
	"bytes"
	"testing"
)

func TestGeckoV2IsNoOp(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5}
	out := geckoTransform(2, data)
	if !bytes.Equal(out, data) {
		t.Errorf("v2 gecko transform should be identity, got %v want %v", out, data)
	}
}

func TestGeckoV1DeterministicForSameInput(t *testing.T) {
	data := bytes.Repeat([]byte{0xAB, 0xCD, 0xEF}, 100)
	out1 := geckoTransform(1, data)
	out2 := geckoTransform(1, data)
	if !bytes.Equal(out1, out2) {
		t.Error("v1 gecko transform should be deterministic for identical input")
	}
	if bytes.Equal(out1, data) {
		t.Error("v1 gecko transform should change a non-trivial buffer")
	}
}

func TestGeckoXORTableBuildIsStable(t *testing.T) {
	if len(geckoXORTable) != geckoTableSize {
		t.Fatalf("geckoXORTable has len %d, want %d", len(geckoXORTable), geckoTableSize)
	}
	rebuilt := buildGeckoTable()
	if !bytes.Equal(rebuilt, geckoXORTable) {
		t.Error("buildGeckoTable should be deterministic across calls")
	}
}
