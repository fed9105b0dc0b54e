package analyzer

import (
	"math"
	"sort"

	slippi "github.com/slippicodec/go-slippi-codec"
)

// KillDirection classifies the post-frame action id a victim's stock
// decrements on, for punish reporting.
type KillDirection int

const (
	KillDirNone KillDirection = iota
	KillDirDown
	KillDirLeft
	KillDirRight
	KillDirUp
	KillDirNeutral
)

// Action-id ranges for the five dead-by-blastzone states, used to assign
// KillDirection (ported from analyzer.h's kill-direction table).
const (
	asDeadDown = 0x0000
	asDeadLeft = 0x0001
	asDeadRight = 0x0002
	asDeadUp    = 0x0003
	asDeadNeutralLo = 0x0004
	asDeadNeutralHi = 0x000A
)

func killDirectionFromActionID(id uint16) KillDirection {
	switch {
	case id == asDeadDown:
		return KillDirDown
	case id == asDeadLeft:
		return KillDirLeft
	case id == asDeadRight:
		return KillDirRight
	case id == asDeadUp:
		return KillDirUp
	case inRange(id, asDeadNeutralLo, asDeadNeutralHi):
		return KillDirNeutral
	default:
		return KillDirNone
	}
}

// Punish records one continuous offensive sequence against the opponent.
type Punish struct {
	StartFrame int32
	EndFrame   int32
	StartPct   float32
	EndPct     float32
	NumMoves   int
	LastMoveID uint8
	KillDir    KillDirection
}

// PlayerStats holds one player's derived counters for the whole game.
type PlayerStats struct {
	NeutralWins int
	Counters    int
	Pokes       int
	Punishes    []Punish

	Dashdances int
	LCancelsHit    int
	LCancelsMissed int
	Techs          int
	LedgeGrabs     int
	Rolls          int
	SpotDodges     int
	Airdodges      int
	Wavedashes     int
	Wavelands      int
	AirtimeFrames  int
}

// Analysis is the output of Analyze: per-frame dynamics and per-player
// derived stats for a 1v1 replay.
type Analysis struct {
	// Dynamics[frame] holds player 0's dynamic for that frame; player 1's
	// is Mirror(Dynamics[frame]) for non-neutral values, identical for
	// neutral ones.
	Dynamics map[int32]Dynamic
	Players  [2]PlayerStats
}

// Analyze runs the C8 state machine over a parsed 1v1 replay's frames,
// indexed by the two player indices to compare.
func Analyze(frames map[int32]slippi.FrameEntry, stageBlastzoneX, stageBlastzoneY float32, p0, p1 uint8) *Analysis {
	a := &Analysis{Dynamics: make(map[int32]Dynamic)}

	frameNums := sortedFrames(frames)
	current := Positioning
	var punishStart [2]int32
	var punishActive [2]bool
	var punishMoves [2]int
	var punishLastMove [2]uint8
	var lastPercent [2]float32
	var lastHitFrame [2]int32 = [2]int32{-1000, -1000}

	var dashHistory [2][3]uint16
	var lastLCancel [2]slippi.LCancelStatus
	var wasOnLedge [2]bool
	var recentEscapeAir [2]int32
	recentJumpsquat := [2]int32{-1000, -1000}
	var escapeAirHadJumpsquat [2]bool
	lastStocks := [2]uint8{255, 255}

	players := [2]uint8{p0, p1}

	for _, fn := range frameNums {
		frame := frames[fn]
		var posts [2]*slippi.PostFrameUpdatePayload
		for i, idx := range players {
			if upd, ok := frame.Players[idx]; ok {
				posts[i] = upd.Post
			}
		}
		if posts[0] == nil || posts[1] == nil {
			continue
		}

		for i := 0; i < 2; i++ {
			p := posts[i]
			if IsCliffWait(p.ActionStateID) && !wasOnLedge[i] {
				a.Players[i].LedgeGrabs++
			}
			wasOnLedge[i] = IsCliffWait(p.ActionStateID)

			if IsDashState(p.ActionStateID) {
				dashHistory[i][2] = dashHistory[i][1]
				dashHistory[i][1] = dashHistory[i][0]
				dashHistory[i][0] = p.ActionStateID
				if IsDashState(dashHistory[i][0]) && IsTurnState(dashHistory[i][1]) && IsDashState(dashHistory[i][2]) {
					a.Players[i].Dashdances++
				}
			} else if IsTurnState(p.ActionStateID) {
				dashHistory[i][2] = dashHistory[i][1]
				dashHistory[i][1] = dashHistory[i][0]
				dashHistory[i][0] = p.ActionStateID
			}

			if lastLCancel[i] == slippi.None && p.LCancelStatus == slippi.Successful {
				a.Players[i].LCancelsHit++
			} else if lastLCancel[i] == slippi.None && p.LCancelStatus == slippi.Unsuccessful {
				a.Players[i].LCancelsMissed++
			}
			lastLCancel[i] = p.LCancelStatus

			if IsTechState(p.ActionStateID) {
				a.Players[i].Techs++
			}
			if IsRollState(p.ActionStateID) {
				a.Players[i].Rolls++
			}
			if IsSpotDodgeState(p.ActionStateID) {
				a.Players[i].SpotDodges++
			}
			if IsAirdodgeState(p.ActionStateID) {
				a.Players[i].Airdodges++
			}

			if IsJumpsquatState(p.ActionStateID) {
				recentJumpsquat[i] = fn
			}
			if IsEscapeAirState(p.ActionStateID) {
				recentEscapeAir[i] = fn
				// A wavedash is a short-hop airdodge: the jump that put the
				// player airborne passed through KneeBend a few frames ago.
				// A waveland has no such jumpsquat, only a normal airdodge
				// from a pre-existing airborne state.
				escapeAirHadJumpsquat[i] = fn-recentJumpsquat[i] <= jumpsquatWindow
			}
			if IsLandingFallSpecialState(p.ActionStateID) && fn-recentEscapeAir[i] <= 8 {
				if escapeAirHadJumpsquat[i] {
					a.Players[i].Wavedashes++
				} else {
					a.Players[i].Wavelands++
				}
			}

			if p.Airborne {
				a.Players[i].AirtimeFrames++
			}
		}

		dyn := nextDynamic(current, posts, lastHitFrame, fn, stageBlastzoneX, stageBlastzoneY)
		a.Dynamics[fn] = dyn

		// lastHitFrame[i] is the last frame on which player i took damage.
		for i := 0; i < 2; i++ {
			if posts[i].Percent > lastPercent[i] {
				lastHitFrame[i] = fn
			}
			lastPercent[i] = posts[i].Percent
		}

		offender := -1
		if IsOffensive(dyn) {
			offender = 0
		} else if IsOffensive(Mirror(dyn)) {
			offender = 1
		}

		var killDir [2]KillDirection
		for i := 0; i < 2; i++ {
			opp := 1 - i
			if lastStocks[opp] != 255 && posts[opp].StocksRemaining < lastStocks[opp] {
				killDir[i] = killDirectionFromActionID(posts[opp].ActionStateID)
			}
		}
		for i := 0; i < 2; i++ {
			lastStocks[i] = posts[i].StocksRemaining
		}

		for i := 0; i < 2; i++ {
			if offender == i {
				if !punishActive[i] {
					punishActive[i] = true
					punishStart[i] = fn
					punishMoves[i] = 0
				}
			} else if punishActive[i] && dyn != Poking && Mirror(dyn) != Poking {
				a.Players[i].Punishes = append(a.Players[i].Punishes, Punish{
					StartFrame: punishStart[i],
					EndFrame:   fn,
					NumMoves:   punishMoves[i],
					LastMoveID: punishLastMove[i],
					KillDir:    killDir[i],
				})
				punishActive[i] = false
			}
		}

		if IsNeutral(current) {
			if IsOffensive(dyn) {
				a.Players[0].NeutralWins++
			} else if IsOffensive(Mirror(dyn)) {
				a.Players[1].NeutralWins++
			}
		}

		// POKING is a neutral dynamic (spec.md lists it before the
		// defensive sentinel) and so, like the other neutral dynamics,
		// carries no per-player attribution of its own; by convention
		// this counts toward player 0.
		if dyn == Poking {
			a.Players[0].Pokes++
		}

		current = dyn
	}

	return a
}

// nextDynamic applies the priority-ordered transition rules from
// spec.md §4.4, returning player 0's perspective dynamic for this frame.
func nextDynamic(current Dynamic, posts [2]*slippi.PostFrameUpdatePayload, lastHitFrame [2]int32, fn int32, blastzoneX, blastzoneY float32) Dynamic {
	p0, p1 := posts[0], posts[1]

	if p0.StocksRemaining == 0 || p1.StocksRemaining == 0 {
		return Positioning
	}

	p0Offstage := absF32(p0.XPosition) > blastzoneX*0.7 || absF32(p0.YPosition) > blastzoneY*0.7
	p1Offstage := absF32(p1.XPosition) > blastzoneX*0.7 || absF32(p1.YPosition) > blastzoneY*0.7
	p0Hitstun := isHitstun(p0)
	p1Hitstun := isHitstun(p1)

	if p1Offstage && p1Hitstun {
		return Edgeguarding
	}
	if p0Offstage && p0Hitstun {
		return Mirror(Edgeguarding)
	}

	if IsGrabbedState(p1.ActionStateID) {
		if IsOffensive(current) {
			return Techchasing
		}
		return Pressuring
	}
	if IsGrabbedState(p0.ActionStateID) {
		if IsOffensive(Mirror(current)) {
			return Mirror(Techchasing)
		}
		return Mirror(Pressuring)
	}

	if IsShieldstunState(p1.ActionStateID) {
		return Pressuring
	}
	if IsShieldstunState(p0.ActionStateID) {
		return Mirror(Pressuring)
	}

	if IsTechState(p1.ActionStateID) {
		return Techchasing
	}
	if IsTechState(p0.ActionStateID) {
		return Mirror(Techchasing)
	}

	if p0Hitstun && p1Hitstun {
		return Trading
	}

	switch current {
	case Punishing:
		if !p1.Airborne {
			return Positioning
		}
		if fn-lastHitFrame[1] >= sharkThreshold {
			return Sharking
		}
		return Punishing
	case Mirror(Punishing):
		if !p0.Airborne {
			return Positioning
		}
		if fn-lastHitFrame[0] >= sharkThreshold {
			return Mirror(Sharking)
		}
		return Mirror(Punishing)
	case Poking:
		if fn-lastHitFrame[1] <= pokeThreshold && p1Hitstun {
			return Punishing
		}
		if fn-lastHitFrame[0] <= pokeThreshold && p0Hitstun {
			return Mirror(Punishing)
		}
	}

	if p1Hitstun || p0Hitstun {
		return Poking
	}

	dist := distance(p0.XPosition, p0.YPosition, p1.XPosition, p1.YPosition)
	if dist < footsieThreshold {
		return Footsies
	}
	return Positioning
}

func sortedFrames(frames map[int32]slippi.FrameEntry) []int32 {
	nums := make([]int32, 0, len(frames))
	for fn := range frames {
		nums = append(nums, fn)
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	return nums
}

func isHitstun(p *slippi.PostFrameUpdatePayload) bool {
	return IsDamageState(p.ActionStateID)
}

func distance(x0, y0, x1, y1 float32) float32 {
	dx, dy := x0-x1, y0-y1
	return float32(math.Sqrt(float64(dx*dx + dy*dy)))
}

func absF32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
