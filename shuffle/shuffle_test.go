package shuffle

import (
	"testing"

	slippi "github.com/slippicodec/go-slippi-codec"
)

func buildShuffleSampleFrames() map[int32]slippi.FrameEntry {
	frames := make(map[int32]slippi.FrameEntry)
	for i := int32(0); i < 10; i++ {
		fn := i - 123
		frames[fn] = slippi.FrameEntry{
			Start: &slippi.FrameStartPayload{
				FrameNumber:       fn,
				RandomSeed:        0x2000 + uint32(i),
				SceneFrameCounter: uint32(i),
			},
			Bookend: &slippi.FrameBookendPayload{
				FrameNumber:          fn,
				LatestFinalizedFrame: fn - 1,
			},
			Players: map[uint8]slippi.FrameUpdates{
				0: {
					Pre: &slippi.PreFrameUpdatePayload{
						FrameUpdate: slippi.FrameUpdate{
							FrameNumber:   fn,
							PlayerIndex:   0,
							ActionStateID: 0x0E,
							XPosition:     float32(i),
							YPosition:     -float32(i),
						},
						RandomSeed: 0x1000 + uint32(i),
						JoystickX:  0.5,
					},
					Post: &slippi.PostFrameUpdatePayload{
						FrameUpdate: slippi.FrameUpdate{
							FrameNumber:   fn,
							PlayerIndex:   0,
							ActionStateID: 0x0E,
							XPosition:     float32(i),
							YPosition:     -float32(i),
						},
						StocksRemaining: 4,
					},
				},
				1: {
					Pre: &slippi.PreFrameUpdatePayload{
						FrameUpdate: slippi.FrameUpdate{
							FrameNumber:   fn,
							PlayerIndex:   1,
							ActionStateID: 0x14,
						},
					},
					Post: &slippi.PostFrameUpdatePayload{
						FrameUpdate: slippi.FrameUpdate{
							FrameNumber:   fn,
							PlayerIndex:   1,
							ActionStateID: 0x14,
						},
						StocksRemaining: 4,
					},
				},
			},
			Items: []slippi.ItemUpdatePayload{
				{FrameNumber: fn, SpawnID: uint32(i%3 + 1), TypeID: 99, XPosition: 1, YPosition: 2},
			},
		}
	}
	return frames
}

func TestShuffleUnshuffleRoundTrip(t *testing.T) {
	original := buildShuffleSampleFrames()
	geckoCodes := []byte{0xDE, 0xAD, 0xBE, 0xEF}

	shuffled, err := Shuffle(original, geckoCodes)
	if err != nil {
		t.Fatalf("Shuffle: %v", err)
	}

	restored, restoredGecko, err := Unshuffle(shuffled)
	if err != nil {
		t.Fatalf("Unshuffle: %v", err)
	}
	if string(restoredGecko) != string(geckoCodes) {
		t.Errorf("restored gecko codes = %v, want %v", restoredGecko, geckoCodes)
	}

	if len(restored) != len(original) {
		t.Fatalf("restored %d frames, want %d", len(restored), len(original))
	}

	for fn, frame := range original {
		other, ok := restored[fn]
		if !ok {
			t.Fatalf("frame %d missing after round trip", fn)
		}
		for idx, upd := range frame.Players {
			otherUpd, ok := other.Players[idx]
			if !ok {
				t.Fatalf("frame %d player %d missing after round trip", fn, idx)
			}
			if upd.Pre.ActionStateID != otherUpd.Pre.ActionStateID {
				t.Errorf("frame %d player %d pre action state = %#x, want %#x",
					fn, idx, otherUpd.Pre.ActionStateID, upd.Pre.ActionStateID)
			}
			if upd.Pre.XPosition != otherUpd.Pre.XPosition || upd.Pre.YPosition != otherUpd.Pre.YPosition {
				t.Errorf("frame %d player %d pre position = (%v, %v), want (%v, %v)",
					fn, idx, otherUpd.Pre.XPosition, otherUpd.Pre.YPosition, upd.Pre.XPosition, upd.Pre.YPosition)
			}
			if upd.Post.StocksRemaining != otherUpd.Post.StocksRemaining {
				t.Errorf("frame %d player %d stocks = %d, want %d",
					fn, idx, otherUpd.Post.StocksRemaining, upd.Post.StocksRemaining)
			}
		}
		if len(other.Items) != len(frame.Items) {
			t.Errorf("frame %d has %d items after round trip, want %d", fn, len(other.Items), len(frame.Items))
		}
		if other.Start == nil || other.Start.RandomSeed != frame.Start.RandomSeed || other.Start.SceneFrameCounter != frame.Start.SceneFrameCounter {
			t.Errorf("frame %d frame-start mismatch after round trip: %+v, want %+v", fn, other.Start, frame.Start)
		}
		if other.Bookend == nil || other.Bookend.LatestFinalizedFrame != frame.Bookend.LatestFinalizedFrame {
			t.Errorf("frame %d bookend mismatch after round trip: %+v, want %+v", fn, other.Bookend, frame.Bookend)
		}
	}
}

func TestApplyStripDeferBits(t *testing.T) {
	p := &slippi.PreFrameUpdatePayload{}
	p.ActionStateID = 0x0E

	if err := applyDeferBits(p, 2); err != nil {
		t.Fatalf("applyDeferBits: %v", err)
	}
	if p.ActionStateID&deferBitsMask == 0 {
		t.Error("applyDeferBits should set the top two bits")
	}
	stripDeferBits(p)
	if p.ActionStateID != 0x0E {
		t.Errorf("stripDeferBits left %#x, want 0x0E", p.ActionStateID)
	}
}

func TestApplyDeferBitsRefusesCollision(t *testing.T) {
	p := &slippi.PreFrameUpdatePayload{}
	p.ActionStateID = 0xC000 // top two bits already set

	if err := applyDeferBits(p, 1); err != ErrDeferBitsInUse {
		t.Errorf("applyDeferBits should return ErrDeferBitsInUse, got %v", err)
	}
}
