package analyzer

import (
	"testing"

	slippi "github.com/slippicodec/go-slippi-codec"
)

const idleActionState uint16 = 0x0020

func postAt(fn int32, idx uint8, actionState uint16, stocks uint8, x, y float32, airborne bool) slippi.FrameUpdates {
	return slippi.FrameUpdates{
		Post: &slippi.PostFrameUpdatePayload{
			FrameUpdate: slippi.FrameUpdate{
				FrameNumber:   fn,
				PlayerIndex:   idx,
				ActionStateID: actionState,
				XPosition:     x,
				YPosition:     y,
			},
			StocksRemaining: stocks,
			Airborne:        airborne,
		},
	}
}

func TestAnalyzeStockZeroForcesPositioning(t *testing.T) {
	frames := map[int32]slippi.FrameEntry{
		0: {Players: map[uint8]slippi.FrameUpdates{
			0: postAt(0, 0, idleActionState, 4, 0, 0, false),
			1: postAt(0, 1, idleActionState, 0, 200, 0, false),
		}},
	}
	a := Analyze(frames, 224, 200, 0, 1)
	if a.Dynamics[0] != Positioning {
		t.Errorf("Dynamics[0] = %v, want Positioning when a player has 0 stocks", a.Dynamics[0])
	}
}

func TestAnalyzeLedgeGrabsEdgeTriggered(t *testing.T) {
	frames := make(map[int32]slippi.FrameEntry)
	// Three consecutive frames on the ledge should count as one grab.
	for fn := int32(0); fn < 3; fn++ {
		frames[fn] = slippi.FrameEntry{Players: map[uint8]slippi.FrameUpdates{
			0: postAt(fn, 0, asCliffWait, 4, -200, 0, true),
			1: postAt(fn, 1, idleActionState, 4, 0, 0, false),
		}}
	}
	frames[3] = slippi.FrameEntry{Players: map[uint8]slippi.FrameUpdates{
		0: postAt(3, 0, idleActionState, 4, -190, 0, false),
		1: postAt(3, 1, idleActionState, 4, 0, 0, false),
	}}
	// Regrab once more.
	frames[4] = slippi.FrameEntry{Players: map[uint8]slippi.FrameUpdates{
		0: postAt(4, 0, asCliffWait, 4, -200, 0, true),
		1: postAt(4, 1, idleActionState, 4, 0, 0, false),
	}}

	a := Analyze(frames, 224, 200, 0, 1)
	if a.Players[0].LedgeGrabs != 2 {
		t.Errorf("LedgeGrabs = %d, want 2", a.Players[0].LedgeGrabs)
	}
}

func TestAnalyzeDashdanceSequence(t *testing.T) {
	frames := map[int32]slippi.FrameEntry{
		0: {Players: map[uint8]slippi.FrameUpdates{
			0: postAt(0, 0, asDashBegin, 4, 0, 0, false),
			1: postAt(0, 1, idleActionState, 4, 200, 0, false),
		}},
		1: {Players: map[uint8]slippi.FrameUpdates{
			0: postAt(1, 0, asTurn, 4, 0, 0, false),
			1: postAt(1, 1, idleActionState, 4, 200, 0, false),
		}},
		2: {Players: map[uint8]slippi.FrameUpdates{
			0: postAt(2, 0, asDashBegin, 4, 0, 0, false),
			1: postAt(2, 1, idleActionState, 4, 200, 0, false),
		}},
	}
	a := Analyze(frames, 224, 200, 0, 1)
	if a.Players[0].Dashdances != 1 {
		t.Errorf("Dashdances = %d, want 1", a.Players[0].Dashdances)
	}
}

func TestAnalyzeWavedashVsWaveland(t *testing.T) {
	// Player 0: jumpsquat, then escape-air shortly after (a wavedash),
	// landing within the window.
	wavedashFrames := map[int32]slippi.FrameEntry{
		0: {Players: map[uint8]slippi.FrameUpdates{
			0: postAt(0, 0, asKneeBendBegin, 4, 0, 0, false),
			1: postAt(0, 1, idleActionState, 4, 200, 0, false),
		}},
		1: {Players: map[uint8]slippi.FrameUpdates{
			0: postAt(1, 0, asEscapeAirBegin, 4, 0, 0, true),
			1: postAt(1, 1, idleActionState, 4, 200, 0, false),
		}},
		2: {Players: map[uint8]slippi.FrameUpdates{
			0: postAt(2, 0, asLandingFallSpecial, 4, 0, 0, false),
			1: postAt(2, 1, idleActionState, 4, 200, 0, false),
		}},
	}
	a := Analyze(wavedashFrames, 224, 200, 0, 1)
	if a.Players[0].Wavedashes != 1 {
		t.Errorf("Wavedashes = %d, want 1", a.Players[0].Wavedashes)
	}
	if a.Players[0].Wavelands != 0 {
		t.Errorf("Wavelands = %d, want 0", a.Players[0].Wavelands)
	}

	// Player 0: escape-air with no recent jumpsquat (a waveland).
	wavelandFrames := map[int32]slippi.FrameEntry{
		0: {Players: map[uint8]slippi.FrameUpdates{
			0: postAt(0, 0, asEscapeAirBegin, 4, 0, 0, true),
			1: postAt(0, 1, idleActionState, 4, 200, 0, false),
		}},
		1: {Players: map[uint8]slippi.FrameUpdates{
			0: postAt(1, 0, asLandingFallSpecial, 4, 0, 0, false),
			1: postAt(1, 1, idleActionState, 4, 200, 0, false),
		}},
	}
	b := Analyze(wavelandFrames, 224, 200, 0, 1)
	if b.Players[0].Wavelands != 1 {
		t.Errorf("Wavelands = %d, want 1", b.Players[0].Wavelands)
	}
	if b.Players[0].Wavedashes != 0 {
		t.Errorf("Wavedashes = %d, want 0", b.Players[0].Wavedashes)
	}
}

func TestKillDirectionFromActionID(t *testing.T) {
	cases := map[uint16]KillDirection{
		0x0000: KillDirDown,
		0x0001: KillDirLeft,
		0x0002: KillDirRight,
		0x0003: KillDirUp,
		0x0004: KillDirNeutral,
		0x000A: KillDirNeutral,
		0x000B: KillDirNone,
	}
	for id, want := range cases {
		if got := killDirectionFromActionID(id); got != want {
			t.Errorf("killDirectionFromActionID(%#x) = %v, want %v", id, got, want)
		}
	}
}
