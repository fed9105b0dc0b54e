package codec

import (
	"math"
	"testing"
)

func TestIntPredictRoundTrip(t *testing.T) {
	cases := []struct{ actual, prev int32 }{
		{100, 99}, {0, -1}, {5000, 4990}, {-10, -11},
	}
	for _, c := range cases {
		stored := intPredictEncode(c.actual, c.prev)
		got := intPredictDecode(stored, c.prev)
		if got != c.actual {
			t.Errorf("intPredict round trip: actual=%d prev=%d got=%d", c.actual, c.prev, got)
		}
	}
}

func TestFloatPredictEncodeWithinBounds(t *testing.T) {
	predicted := uint32(0x3F800000) // 1.0
	actual := predicted ^ 0x10      // small diff within maxDiffVelocity

	stored, ok := floatPredictEncode(actual, predicted, maxDiffVelocity)
	if !ok {
		t.Fatal("expected floatPredictEncode to compress a small diff")
	}
	if !isMagicFloat(stored) {
		t.Error("compressed output should look like a magic float")
	}
	got := floatPredictDecode(stored, predicted)
	if got != actual {
		t.Errorf("floatPredictDecode = %#x, want %#x", got, actual)
	}
}

func TestFloatPredictEncodeOutOfBounds(t *testing.T) {
	predicted := uint32(0x3F800000)
	actual := predicted ^ 0xFFFFFF // far too large a diff

	stored, ok := floatPredictEncode(actual, predicted, maxDiffVelocity)
	if ok {
		t.Fatal("expected floatPredictEncode to refuse a large diff")
	}
	if stored != actual {
		t.Error("uncompressed path should return actual bits unchanged")
	}
	got := floatPredictDecode(stored, predicted)
	if got != actual {
		t.Errorf("floatPredictDecode of an uncompressed value should be identity: got %#x want %#x", got, actual)
	}
}

func TestIsMagicFloatDoesNotFalsePositive(t *testing.T) {
	// A real float whose top byte happens to be 0xFF should still not be
	// mistaken for the sentinel once the exponent-continuation bit is set.
	if isMagicFloat(0xFFFF0000) {
		t.Error("isMagicFloat should require the next byte's high bit clear")
	}
	if !isMagicFloat(0xFF000000) {
		t.Error("isMagicFloat should recognize the canonical sentinel")
	}
}

func TestQuantizeAnalogRoundTrip(t *testing.T) {
	for k := int32(-128); k <= 127; k++ {
		v := float32(k) / float32(multStick)
		got, ok := quantizeAnalog(v, multStick)
		if !ok {
			t.Fatalf("quantizeAnalog(%v) should succeed for exact multiple k=%d", v, k)
		}
		if got != int8(k) {
			t.Errorf("quantizeAnalog(%v) = %d, want %d", v, got, k)
		}
		back := unquantizeAnalog(got, multStick)
		if back != v {
			t.Errorf("unquantizeAnalog(%d) = %v, want %v", got, back, v)
		}
	}
}

func TestQuantizeAnalogRejectsNonExactValues(t *testing.T) {
	// A value that isn't an exact k/80 can't round-trip through a single
	// signed byte, so quantizeAnalog must refuse it.
	_, ok := quantizeAnalog(0.123456, multStick)
	if ok {
		t.Error("quantizeAnalog should reject a value with no exact k/mult representation")
	}
}

func TestIsQuantizedMarkerBits(t *testing.T) {
	f := quantizedMarker(42)
	if !isQuantized(math.Float32bits(f)) {
		t.Error("a packed marker float should read as quantized")
	}
	if markerValue(f) != 42 {
		t.Errorf("markerValue = %d, want 42", markerValue(f))
	}
}
