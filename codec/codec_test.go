package codec

import (
	"math"
	"testing"

	"github.com/blang/semver/v4"

	slippi "github.com/slippicodec/go-slippi-codec"
)

func samplePreFrame(fn int32, seed uint32, actionState uint16) *slippi.PreFrameUpdatePayload {
	return &slippi.PreFrameUpdatePayload{
		FrameUpdate: slippi.FrameUpdate{
			FrameNumber:   fn,
			PlayerIndex:   0,
			ActionStateID: actionState,
			XPosition:     10.5,
			YPosition:     -3.25,
		},
		RandomSeed: seed,
		JoystickX:  1.0 / 80,
		JoystickY:  0,
		Trigger:    0,
	}
}

func samplePostFrame(fn int32, actionState uint16) *slippi.PostFrameUpdatePayload {
	return &slippi.PostFrameUpdatePayload{
		FrameUpdate: slippi.FrameUpdate{
			FrameNumber:   fn,
			PlayerIndex:   0,
			ActionStateID: actionState,
			XPosition:     10.5,
			YPosition:     -3.25,
		},
		StocksRemaining: 4,
	}
}

func buildSampleFrames(n int) map[int32]slippi.FrameEntry {
	frames := make(map[int32]slippi.FrameEntry, n)
	seed := uint32(0xABCD1234)
	actionState := uint16(0x0E)
	for i := 0; i < n; i++ {
		fn := int32(i) - 123 // matches Melee's frame-number-starts-negative convention
		seed = legacyRoll(seed)
		frames[fn] = slippi.FrameEntry{
			Players: map[uint8]slippi.FrameUpdates{
				0: {
					Pre:  samplePreFrame(fn, seed, actionState),
					Post: samplePostFrame(fn, actionState),
				},
			},
			Followers: map[uint8]slippi.FrameUpdates{},
			Items:     nil,
		}
	}
	return frames
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	version := semver.MustParse("3.9.0")
	original := buildSampleFrames(20)

	result, err := Encode(version, original, Options{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	if _, err := Decode(version, result.Frames, Options{}); err != nil {
		t.Fatalf("Decode: %v", err)
	}

	// Validate decodes the encoded frames itself and compares the result
	// with the original.
	if err := Validate(version, original, result.Frames, Options{}); err != nil {
		t.Errorf("round trip did not validate: %v", err)
	}
}

func TestEncodeRefusesVersionAtCeiling(t *testing.T) {
	_, err := Encode(versionCeiling, buildSampleFrames(1), Options{})
	if err == nil {
		t.Fatal("Encode should refuse a version at the codec ceiling")
	}
	kind, ok := AsKind(err)
	if !ok || kind != ErrVersionTooNew {
		t.Errorf("expected ErrVersionTooNew, got %v (ok=%v)", kind, ok)
	}
}

func TestEncodeReplayRequiresGameEnd(t *testing.T) {
	version := semver.MustParse("3.9.0")
	_, err := EncodeReplay(version, buildSampleFrames(1), false, Options{})
	if err == nil {
		t.Fatal("EncodeReplay should refuse a replay with no GAME_END")
	}
	kind, ok := AsKind(err)
	if !ok || kind != ErrMissingGameEnd {
		t.Errorf("expected ErrMissingGameEnd, got %v (ok=%v)", kind, ok)
	}
}

func TestEncodeReplaySucceedsWithGameEnd(t *testing.T) {
	version := semver.MustParse("3.9.0")
	frames := buildSampleFrames(5)
	result, err := EncodeReplay(version, frames, true, Options{})
	if err != nil {
		t.Fatalf("EncodeReplay: %v", err)
	}
	if result.EncoderTag != EncoderVersion {
		t.Errorf("EncoderTag = %d, want %d", result.EncoderTag, EncoderVersion)
	}
}

func TestEncodeVelocityPairCompressesRepeatedValue(t *testing.T) {
	c := newCarry()
	x1, y1 := encodeVelocityPair(c, 0, 0, 5.0, 5.0)
	x2, y2 := encodeVelocityPair(c, 0, 0, 5.0, 5.0)
	if !isMagicFloat(math.Float32bits(x2)) || !isMagicFloat(math.Float32bits(y2)) {
		t.Errorf("second encodeVelocityPair = (%#x, %#x), want MAGIC_FLOAT-coded residuals", math.Float32bits(x2), math.Float32bits(y2))
	}

	d := newCarry()
	outX, outY := decodeVelocityPair(d, 0, 0, x1, y1)
	if outX != 5.0 || outY != 5.0 {
		t.Errorf("first decodeVelocityPair = (%v, %v), want (5, 5)", outX, outY)
	}
	outX2, outY2 := decodeVelocityPair(d, 0, 0, x2, y2)
	if outX2 != 5.0 || outY2 != 5.0 {
		t.Errorf("second decodeVelocityPair = (%v, %v), want (5, 5)", outX2, outY2)
	}
}
