// Package shuffle implements the event/column shuffler (component C7):
// grouping same-typed, same-player events together (Pass A) and then
// transposing each group's fixed-width columns (Pass B), the way
// compressor.cpp's _shuffleEvents/_unshuffleEvents do. It operates on the
// codec's already-transformed per-frame structs, serializing each record
// to a fixed-width byte row using the widths in package schema so Pass B's
// column transpose is a genuine byte-level operation, not a struct-level
// approximation.
package shuffle

import (
	"math"

	slippi "github.com/slippicodec/go-slippi-codec"
	"github.com/slippicodec/go-slippi-codec/binutil"
)

func putBE(dst []byte, v uint32, width int) {
	switch width {
	case 4:
		binutil.WriteBE4U(dst, v)
	case 2:
		binutil.WriteBE2U(dst, uint16(v))
	case 1:
		dst[0] = byte(v)
	}
}

func getBE(src []byte, width int) uint32 {
	switch width {
	case 4:
		return binutil.ReadBE4U(src)
	case 2:
		return uint32(binutil.ReadBE2U(src))
	case 1:
		return uint32(src[0])
	}
	return 0
}

// serializePreFrame writes p's fields into a row matching schema's
// PreFrameColumns width table (negative widths are stored as single bytes;
// the bit-plane transpose only changes which file the byte lands in, not
// its value on this side of the boundary).
func serializePreFrame(p *slippi.PreFrameUpdatePayload) []byte {
	row := make([]byte, rowWidth(widthsAbs(preFrameWidths)))
	off := 0
	put4u := func(v uint32) { putBE(row[off:], v, 4); off += 4 }
	put2u := func(v uint16) { putBE(row[off:], uint32(v), 2); off += 2 }
	put4f := func(v float32) { putBE(row[off:], math.Float32bits(v), 4); off += 4 }
	put1 := func(v uint8) { row[off] = v; off++ }

	put4u(p.RandomSeed)
	put2u(p.ActionStateID)
	put4f(p.XPosition)
	put4f(p.YPosition)
	put4f(p.FacingDirection)
	put4f(p.JoystickX)
	put4f(p.JoystickY)
	put4f(p.CStickX)
	put4f(p.CStickY)
	put4f(p.Trigger)
	put4u(p.ProcessedButtons)
	put2u(p.PhysicalButtons)
	put4f(p.PhysicalLTrigger)
	put4f(p.PhysicalRTrigger)
	put1(p.XAnalogUCF)
	put4f(p.Percent)
	return row
}

func deserializePreFrame(row []byte, frameNumber int32, playerIndex uint8, follower bool) *slippi.PreFrameUpdatePayload {
	off := 0
	get4u := func() uint32 { v := getBE(row[off:], 4); off += 4; return v }
	get2u := func() uint16 { v := uint16(getBE(row[off:], 2)); off += 2; return v }
	get4f := func() float32 { v := math.Float32frombits(getBE(row[off:], 4)); off += 4; return v }
	get1 := func() uint8 { v := row[off]; off++; return v }

	p := &slippi.PreFrameUpdatePayload{}
	p.FrameNumber = frameNumber
	p.PlayerIndex = playerIndex
	p.IsFollower = follower
	p.RandomSeed = get4u()
	p.ActionStateID = get2u()
	p.XPosition = get4f()
	p.YPosition = get4f()
	p.FacingDirection = get4f()
	p.JoystickX = get4f()
	p.JoystickY = get4f()
	p.CStickX = get4f()
	p.CStickY = get4f()
	p.Trigger = get4f()
	p.ProcessedButtons = get4u()
	p.PhysicalButtons = get2u()
	p.PhysicalLTrigger = get4f()
	p.PhysicalRTrigger = get4f()
	p.XAnalogUCF = get1()
	p.Percent = get4f()
	return p
}

func serializePostFrame(p *slippi.PostFrameUpdatePayload) []byte {
	row := make([]byte, rowWidth(widthsAbs(postFrameWidths)))
	off := 0
	put4u := func(v uint32) { putBE(row[off:], v, 4); off += 4 }
	put2u := func(v uint16) { putBE(row[off:], uint32(v), 2); off += 2 }
	put4f := func(v float32) { putBE(row[off:], math.Float32bits(v), 4); off += 4 }
	put1 := func(v uint8) { row[off] = v; off++ }
	putBool := func(v bool) {
		if v {
			row[off] = 1
		}
		off++
	}

	put1(p.InternalCharacterID)
	put2u(p.ActionStateID)
	put4f(p.XPosition)
	put4f(p.YPosition)
	put4f(p.FacingDirection)
	put4f(p.Percent)
	put4f(p.ShieldSize)
	put1(p.LastHittingAttackID)
	put1(p.CurrentComboCount)
	put1(p.LastHitBy)
	put1(p.StocksRemaining)
	put4f(p.ActionStateFrameCounter)
	put1(p.StateBitFlags1)
	put1(p.StateBitFlags2)
	put1(p.StateBitFlags3)
	put1(p.StateBitFlags4)
	put1(p.StateBitFlags5)
	put4f(p.MiscAS)
	putBool(p.Airborne)
	put2u(p.LastGroundID)
	put1(p.JumpsRemaining)
	put1(uint8(p.LCancelStatus))
	put1(uint8(p.HurtboxCollisionState))
	put4f(p.SelfInducedAirXSpeed)
	put4f(p.SelfInducedYSpeed)
	put4f(p.AttackBasedXSpeed)
	put4f(p.AttackBasedYSpeed)
	put4f(p.SelfInducedGroundXSpeed)
	put4f(p.HitlagFramesRemaining)
	put4u(p.AnimationIndex)
	return row
}

func deserializePostFrame(row []byte, frameNumber int32, playerIndex uint8, follower bool) *slippi.PostFrameUpdatePayload {
	off := 0
	get4u := func() uint32 { v := getBE(row[off:], 4); off += 4; return v }
	get2u := func() uint16 { v := uint16(getBE(row[off:], 2)); off += 2; return v }
	get4f := func() float32 { v := math.Float32frombits(getBE(row[off:], 4)); off += 4; return v }
	get1 := func() uint8 { v := row[off]; off++; return v }
	getBool := func() bool { v := row[off] != 0; off++; return v }

	p := &slippi.PostFrameUpdatePayload{}
	p.FrameNumber = frameNumber
	p.PlayerIndex = playerIndex
	p.IsFollower = follower
	p.InternalCharacterID = get1()
	p.ActionStateID = get2u()
	p.XPosition = get4f()
	p.YPosition = get4f()
	p.FacingDirection = get4f()
	p.Percent = get4f()
	p.ShieldSize = get4f()
	p.LastHittingAttackID = get1()
	p.CurrentComboCount = get1()
	p.LastHitBy = get1()
	p.StocksRemaining = get1()
	p.ActionStateFrameCounter = get4f()
	p.StateBitFlags1 = get1()
	p.StateBitFlags2 = get1()
	p.StateBitFlags3 = get1()
	p.StateBitFlags4 = get1()
	p.StateBitFlags5 = get1()
	p.MiscAS = get4f()
	p.Airborne = getBool()
	p.LastGroundID = get2u()
	p.JumpsRemaining = get1()
	p.LCancelStatus = slippi.LCancelStatus(get1())
	p.HurtboxCollisionState = slippi.HurtboxCollisionState(get1())
	p.SelfInducedAirXSpeed = get4f()
	p.SelfInducedYSpeed = get4f()
	p.AttackBasedXSpeed = get4f()
	p.AttackBasedYSpeed = get4f()
	p.SelfInducedGroundXSpeed = get4f()
	p.HitlagFramesRemaining = get4f()
	p.AnimationIndex = get4u()
	return p
}

func serializeItem(it *slippi.ItemUpdatePayload) []byte {
	row := make([]byte, rowWidth(widthsAbs(itemWidths)))
	off := 0
	put4u := func(v uint32) { putBE(row[off:], v, 4); off += 4 }
	put2u := func(v uint16) { putBE(row[off:], uint32(v), 2); off += 2 }
	put4f := func(v float32) { putBE(row[off:], math.Float32bits(v), 4); off += 4 }
	put1 := func(v uint8) { row[off] = v; off++ }

	put2u(it.TypeID)
	put1(it.State)
	put4f(it.FacingDirection)
	put4f(it.XVelocity)
	put4f(it.YVelocity)
	put4f(it.XPosition)
	put4f(it.YPosition)
	put2u(it.DamageTaken)
	put4f(it.ExpirationTimer)
	put4u(it.SpawnID)
	// misc byte quad: samus missile / peach turnip / launched / charge
	row[off] = it.SamusMissileType
	row[off+1] = it.PeachTurnipFace
	row[off+2] = it.IsLaunched
	row[off+3] = it.ChargedPower
	off += 4
	put1(uint8(it.Owner))
	return row
}

func deserializeItem(row []byte, frameNumber int32) *slippi.ItemUpdatePayload {
	off := 0
	get4u := func() uint32 { v := getBE(row[off:], 4); off += 4; return v }
	get2u := func() uint16 { v := uint16(getBE(row[off:], 2)); off += 2; return v }
	get4f := func() float32 { v := math.Float32frombits(getBE(row[off:], 4)); off += 4; return v }
	get1 := func() uint8 { v := row[off]; off++; return v }

	it := &slippi.ItemUpdatePayload{FrameNumber: frameNumber}
	it.TypeID = get2u()
	it.State = get1()
	it.FacingDirection = get4f()
	it.XVelocity = get4f()
	it.YVelocity = get4f()
	it.XPosition = get4f()
	it.YPosition = get4f()
	it.DamageTaken = get2u()
	it.ExpirationTimer = get4f()
	it.SpawnID = get4u()
	it.SamusMissileType = row[off]
	it.PeachTurnipFace = row[off+1]
	it.IsLaunched = row[off+2]
	it.ChargedPower = row[off+3]
	off += 4
	it.Owner = int8(get1())
	return it
}

// serializeFrameStart writes a frame-start record's non-framing fields
// (FrameNumber is carried out-of-band the same way pre/post/item rows are).
func serializeFrameStart(p *slippi.FrameStartPayload) []byte {
	row := make([]byte, rowWidth(widthsAbs(frameStartWidths)))
	putBE(row[0:], p.RandomSeed, 4)
	putBE(row[4:], p.SceneFrameCounter, 4)
	return row
}

func deserializeFrameStart(row []byte, frameNumber int32) *slippi.FrameStartPayload {
	return &slippi.FrameStartPayload{
		FrameNumber:       frameNumber,
		RandomSeed:        getBE(row[0:], 4),
		SceneFrameCounter: getBE(row[4:], 4),
	}
}

// serializeBookend writes a frame-bookend record's non-framing field.
func serializeBookend(p *slippi.FrameBookendPayload) []byte {
	row := make([]byte, rowWidth(widthsAbs(bookendWidths)))
	putBE(row[0:], uint32(p.LatestFinalizedFrame), 4)
	return row
}

func deserializeBookend(row []byte, frameNumber int32) *slippi.FrameBookendPayload {
	return &slippi.FrameBookendPayload{
		FrameNumber:          frameNumber,
		LatestFinalizedFrame: int32(getBE(row[0:], 4)),
	}
}

// preFrameWidths/postFrameWidths/itemWidths mirror schema's column tables
// but in terms of actual bytes written by the serialize functions above
// (the bit-plane candidates are always stored 1-byte wide here; Pass B
// decides whether to transpose by bit-plane or by byte using the sign of
// the corresponding schema width).
var (
	preFrameWidths   = []int{4, 2, 4, 4, 4, 4, 4, 4, 4, 4, 4, 2, 4, 4, 1, 4}
	postFrameWidths  = []int{1, 2, 4, 4, 4, 4, 4, 1, 1, 1, 1, 4, 1, 1, 1, 1, 1, 4, 1, 2, 1, 1, 1, 4, 4, 4, 4, 4, 4, 4}
	itemWidths       = []int{2, 1, 4, 4, 4, 4, 4, 2, 4, 4, 4, 1}
	frameStartWidths = []int{4, 4}
	bookendWidths    = []int{4}
)

func widthsAbs(ws []int) []int {
	out := make([]int, len(ws))
	for i, w := range ws {
		if w < 0 {
			out[i] = -w
		} else {
			out[i] = w
		}
	}
	return out
}

func rowWidth(ws []int) int {
	total := 0
	for _, w := range ws {
		total += w
	}
	return total
}
