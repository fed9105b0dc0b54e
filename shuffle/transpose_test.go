package shuffle

import (
	"bytes"
	"testing"
)

func TestTransposeColumnsRoundTrip(t *testing.T) {
	widths := []int{4, 2, 1}
	rows := [][]byte{
		{1, 2, 3, 4, 0xAA, 0xBB, 9},
		{5, 6, 7, 8, 0xCC, 0xDD, 10},
		{9, 10, 11, 12, 0xEE, 0xFF, 11},
	}

	buf := transposeColumns(rows, widths)
	got := untransposeColumns(buf, widths, len(rows))

	if len(got) != len(rows) {
		t.Fatalf("got %d rows, want %d", len(got), len(rows))
	}
	for i := range rows {
		if !bytes.Equal(got[i], rows[i]) {
			t.Errorf("row %d = %v, want %v", i, got[i], rows[i])
		}
	}
}

func TestTransposeBitPlaneRoundTrip(t *testing.T) {
	values := []byte{0x00, 0xFF, 0x0F, 0xAA, 0x55, 0x01, 0x80, 0x7E, 0x3C}

	planes := transposeBitPlane(values)
	got := untransposeBitPlane(planes, len(values))

	if !bytes.Equal(got, values) {
		t.Errorf("untransposeBitPlane = %v, want %v", got, values)
	}
}

func TestTransposeBitPlaneNonMultipleOf8(t *testing.T) {
	values := []byte{1, 2, 3, 4, 5}

	planes := transposeBitPlane(values)
	got := untransposeBitPlane(planes, len(values))

	if !bytes.Equal(got, values) {
		t.Errorf("untransposeBitPlane with odd count = %v, want %v", got, values)
	}
}
