package codec

import (
	"math"

	"github.com/slippicodec/go-slippi-codec/binutil"
)

// magicFloat is the 32-bit sentinel written in place of a successfully
// predicted float: an impossible IEEE-754 bit pattern (top byte 0xFF, next
// byte's high bit clear means the would-be exponent is not all-ones, so no
// real float collides with it). See compressor.h.
const magicFloat uint32 = 0xFF000000

// maxDiffVelocity and maxDiffAccel bound how large a predicted-vs-actual
// XOR difference may be before the codec gives up compressing a float
// field and leaves the original bytes untouched.
const (
	maxDiffVelocity uint32 = 0x3FF
	maxDiffAccel    uint32 = 0xFF
)

// xorDeltaEncode returns a copy of in XOR'd against carry (in itself is
// left unchanged); the caller then updates carry from the output. xorDeltaDecode is
// identical since XOR is its own inverse, but the caller updates carry
// from the input instead.
func xorDeltaEncode(in, carry []byte) []byte {
	out := make([]byte, len(in))
	copy(out, in)
	binutil.XorSpan(out, carry)
	return out
}

func xorDeltaDecode(in, carry []byte) []byte {
	return xorDeltaEncode(in, carry)
}

// xorFloat32 XORs the raw bits of two floats and reinterprets the result
// as a float32. Self-inverse, so the same call serves both directions of
// a float field's XOR-delta: encode(actual, prevCarry) == stored, and
// decode(stored, prevCarry) == actual.
func xorFloat32(a, b float32) float32 {
	return math.Float32frombits(math.Float32bits(a) ^ math.Float32bits(b))
}

// intPredictEncode implements the frame-number predictive delta: predict
// prev+1, store actual-predicted.
func intPredictEncode(actual, prev int32) int32 {
	predicted := prev + 1
	return actual - predicted
}

// intPredictDecode reverses intPredictEncode.
func intPredictDecode(stored, prev int32) int32 {
	predicted := prev + 1
	return stored + predicted
}

// isMagicFloat reports whether bits looks like the MAGIC_FLOAT sentinel:
// top byte 0xFF and the next byte's high bit clear (no legitimate IEEE-754
// float has this exact bit pattern with a zero exponent-continuation).
func isMagicFloat(bits uint32) bool {
	return bits>>24 == 0xFF && (bits>>16)&0x80 == 0
}

// floatPredictEncode attempts to replace actual with a MAGIC_FLOAT-coded
// residual against predicted, provided the XOR distance is within
// maxDiff. It returns the bytes to emit and whether compression applied.
func floatPredictEncode(actualBits, predictedBits uint32, maxDiff uint32) (uint32, bool) {
	diff := predictedBits ^ actualBits
	if diff <= maxDiff {
		return magicFloat ^ diff, true
	}
	return actualBits, false
}

// floatPredictDecode reverses floatPredictEncode when storedBits looks
// like a MAGIC_FLOAT residual; otherwise storedBits already holds the
// real value.
func floatPredictDecode(storedBits, predictedBits uint32) uint32 {
	if isMagicFloat(storedBits) {
		diff := storedBits ^ magicFloat
		return predictedBits ^ diff
	}
	return storedBits
}

// analogMult is the quantization step for a given analog field: joystick
// and c-stick use 1/80th units, triggers and physical L/R use 1/140th.
type analogMult float32

const (
	multStick   analogMult = 80
	multTrigger analogMult = 140
)

// quantizeAnalog attempts to replace a float with a single signed byte k
// such that float32(k)/mult reconstructs the original value exactly. The
// returned bool reports whether quantization applied; when it does, the
// caller stores k in the low byte and zeroes the rest (so the IEEE-754
// exponent bits read as zero, the decode-side compressed-form signal).
func quantizeAnalog(actual float32, mult analogMult) (int8, bool) {
	k := int32(actual*float32(mult) + signOf(actual)*0.5)
	if k < -128 || k > 127 {
		return 0, false
	}
	reconstructed := float32(k) / float32(mult)
	if reconstructed != actual {
		return 0, false
	}
	return int8(k), true
}

// unquantizeAnalog reverses quantizeAnalog.
func unquantizeAnalog(k int8, mult analogMult) float32 {
	return float32(k) / float32(mult)
}

// isQuantized reports whether the stored 4-byte float field's exponent
// bits are all zero, the signal that the low byte holds an integer k
// rather than a real float.
func isQuantized(bits uint32) bool {
	return (bits>>23)&0xFF == 0
}

func signOf(f float32) float32 {
	if f < 0 {
		return -1
	}
	return 1
}
