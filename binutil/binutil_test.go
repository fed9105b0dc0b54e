package binutil

import "testing"

func TestReadWriteBERoundTrip(t *testing.T) {
	buf := make([]byte, 4)

	WriteBE4U(buf, 0xDEADBEEF)
	if got := ReadBE4U(buf); got != 0xDEADBEEF {
		t.Errorf("ReadBE4U = %#x, want %#x", got, uint32(0xDEADBEEF))
	}

	WriteBE4S(buf, -12345)
	if got := ReadBE4S(buf); got != -12345 {
		t.Errorf("ReadBE4S = %d, want %d", got, -12345)
	}

	buf2 := make([]byte, 2)
	WriteBE2U(buf2, 0xBEEF)
	if got := ReadBE2U(buf2); got != 0xBEEF {
		t.Errorf("ReadBE2U = %#x, want %#x", got, uint16(0xBEEF))
	}

	WriteBE2S(buf2, -100)
	if got := ReadBE2S(buf2); got != -100 {
		t.Errorf("ReadBE2S = %d, want %d", got, -100)
	}

	WriteBE4F(buf, 3.14159)
	if got := ReadBE4F(buf); got != float32(3.14159) {
		t.Errorf("ReadBE4F = %v, want %v", got, float32(3.14159))
	}
}

func TestSame4Same8(t *testing.T) {
	buf := []byte{0x12, 0x34, 0x56, 0x78, 0x9A, 0xBC, 0xDE, 0xF0}
	if !Same4(buf, 0x12345678) {
		t.Error("Same4 should match")
	}
	if Same4(buf, 0x12345679) {
		t.Error("Same4 should not match")
	}
	if !Same8(buf, 0x123456789ABCDEF0) {
		t.Error("Same8 should match")
	}
}

func TestXorSpanIsSelfInverse(t *testing.T) {
	original := []byte{0x01, 0x02, 0x03, 0x04}
	key := []byte{0xFF, 0x0F, 0xAA, 0x55}

	work := append([]byte(nil), original...)
	XorSpan(work, key)
	if string(work) == string(original) {
		t.Fatal("XorSpan with nonzero key should change bytes")
	}
	XorSpan(work, key)
	for i := range original {
		if work[i] != original[i] {
			t.Errorf("XorSpan twice should restore original at %d: got %#x want %#x", i, work[i], original[i])
		}
	}
}

func TestXorSpanShorterSrc(t *testing.T) {
	dst := []byte{0x01, 0x02, 0x03}
	src := []byte{0xFF}
	XorSpan(dst, src)
	if dst[0] != 0xFE || dst[1] != 0x02 || dst[2] != 0x03 {
		t.Errorf("XorSpan with short src left unexpected result: %v", dst)
	}
}

func TestBitSetBit(t *testing.T) {
	var b byte = 0
	SetBit(&b, 3, 1)
	if Bit(b, 3) != 1 {
		t.Error("Bit 3 should be set")
	}
	if Bit(b, 0) != 0 {
		t.Error("Bit 0 should be clear")
	}
	SetBit(&b, 3, 0)
	if Bit(b, 3) != 0 {
		t.Error("Bit 3 should be cleared")
	}
}

func TestHexDump(t *testing.T) {
	got := HexDump([]byte{0x00, 0xFF, 0x0A})
	want := "0x00 0xff 0x0a "
	if got != want {
		t.Errorf("HexDump = %q, want %q", got, want)
	}
}
