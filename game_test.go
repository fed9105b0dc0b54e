package slippi

import (
	"testing"

	"github.com/blang/semver/v4"
)

// buildTestReplayBytes round-trips a small synthetic game through
// WriteReplay rather than depending on a committed .slp fixture, so the
// parser's read side is exercised against bytes this package itself wrote
// and controls.
func buildTestReplayBytes(t *testing.T) []byte {
	t.Helper()

	gi := &GameInfo{
		Version: semver.MustParse("3.12.0"),
		Teams:   false,
		Stage:   8,
		Players: []PlayerInfo{
			{Index: 0, Port: 1, CharacterID: 2, PlayerType: Human, DisplayName: "p0", ConnectCode: "AAAA#0"},
			{Index: 1, Port: 2, CharacterID: 18, PlayerType: Human, DisplayName: "p1", ConnectCode: "BBBB#0"},
		},
		MajorScene: 1,
		MinorScene: 2,
	}

	frames := map[int32]FrameEntry{
		-123: {
			Start: &FrameStartPayload{FrameNumber: -123, RandomSeed: 42},
			Players: map[uint8]FrameUpdates{
				0: {
					Pre:  &PreFrameUpdatePayload{FrameUpdate: FrameUpdate{FrameNumber: -123, PlayerIndex: 0}},
					Post: &PostFrameUpdatePayload{FrameUpdate: FrameUpdate{FrameNumber: -123, PlayerIndex: 0}, StocksRemaining: 4},
				},
				1: {
					Pre:  &PreFrameUpdatePayload{FrameUpdate: FrameUpdate{FrameNumber: -123, PlayerIndex: 1}},
					Post: &PostFrameUpdatePayload{FrameUpdate: FrameUpdate{FrameNumber: -123, PlayerIndex: 1}, StocksRemaining: 4},
				},
			},
			Bookend: &FrameBookendPayload{FrameNumber: -123, LatestFinalizedFrame: -123},
		},
	}

	gameEnd := &GameEndPayload{GameEndMethod: Resolved, LRASInitiator: -1}

	raw, err := WriteReplay(gi, frames, gameEnd, 0, nil)
	if err != nil {
		t.Fatalf("WriteReplay: %v", err)
	}
	return raw
}

func TestNewSlpGameFromBytes(t *testing.T) {
	raw := buildTestReplayBytes(t)

	game, err := NewSlpGameFromBytes(raw, nil)
	if err != nil {
		t.Fatalf("NewSlpGameFromBytes: %v", err)
	}
	defer game.Close()

	gameInfo, err := game.GetGameInfo()
	if err != nil {
		t.Fatalf("GetGameInfo: %v", err)
	}
	if gameInfo.Stage != 8 {
		t.Errorf("Stage = %d, want 8", gameInfo.Stage)
	}
	if len(gameInfo.Players) != 2 {
		t.Fatalf("len(Players) = %d, want 2", len(gameInfo.Players))
	}
	if gameInfo.Players[0].ConnectCode != "AAAA#0" {
		t.Errorf("Players[0].ConnectCode = %q, want AAAA#0", gameInfo.Players[0].ConnectCode)
	}

	frames, err := game.GetFrames()
	if err != nil {
		t.Fatalf("GetFrames: %v", err)
	}
	frame, ok := frames[-123]
	if !ok {
		t.Fatalf("frame -123 missing from parsed output")
	}
	if frame.Bookend == nil || frame.Bookend.LatestFinalizedFrame != -123 {
		t.Errorf("Bookend not round-tripped: %+v", frame.Bookend)
	}
	post, ok := frame.Players[0]
	if !ok || post.Post == nil || post.Post.StocksRemaining != 4 {
		t.Errorf("player 0 post-frame not round-tripped: %+v", post)
	}

	gameEnd, err := game.GetGameEnd()
	if err != nil {
		t.Fatalf("GetGameEnd: %v", err)
	}
	if gameEnd.GameEndMethod != Resolved {
		t.Errorf("GameEndMethod = %v, want Resolved", gameEnd.GameEndMethod)
	}
}
