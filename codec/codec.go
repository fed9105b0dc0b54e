// Package codec implements the reversible predictive-delta, RNG, and
// quantization transform (component C6), ported field-for-field from
// original_source/src/compressor.{h,cpp}. It operates on the parser's
// already-decoded per-frame structs rather than raw wire bytes: since
// every struct field corresponds 1:1 to a fixed wire offset (see
// package schema and reader.go), transforming the decoded value is
// bit-identical to transforming the raw bytes at that offset, and lets
// the codec be expressed in terms of Go's own float32/int32 types instead
// of unsafe byte-slice aliasing.
package codec

import (
	"math"
	"reflect"

	"github.com/blang/semver/v4"
	"github.com/pkg/errors"

	slippi "github.com/slippicodec/go-slippi-codec"
	"github.com/slippicodec/go-slippi-codec/schema"
)

// Options configures a codec run.
type Options struct {
	// Strict mirrors parser.SlpParserOpts.Strict. Encode and Decode do not
	// consult it: an RNG-prediction miss always falls back to storing the
	// raw seed, and defer-bit collisions are reported by package shuffle
	// whatever this flag says.
	Strict bool
}

// versionCeiling is the version at or above which the codec refuses to
// operate (spec.md's VersionTooNew, fatal for the codec only).
var versionCeiling = schema.VCodecCeiling

// EncoderVersion tags which gecko-codes behavior an encoded file uses: 1
// reproduces the legacy buggy XOR cycling, 2 is the corrected no-op path.
// New encodes always write 2; decoding must honor whichever tag is found.
const EncoderVersion byte = 2

// Result is the output of Encode: the transformed per-frame and per-item
// data plus bookkeeping the shuffler needs.
type Result struct {
	Frames     map[int32]slippi.FrameEntry
	EncoderTag byte
}

// Encode applies the codec's predictive transforms to every frame of a
// parsed replay, returning a new frame map (the input is left untouched).
func Encode(version semver.Version, frames map[int32]slippi.FrameEntry, opts Options) (*Result, error) {
	if version.GTE(versionCeiling) {
		return nil, newError(ErrVersionTooNew, version.String())
	}

	c := newCarry()
	out := make(map[int32]slippi.FrameEntry, len(frames))

	frameNumbers := sortedFrameNumbers(frames)
	for _, fn := range frameNumbers {
		frame := frames[fn]
		encoded := slippi.FrameEntry{
			Players:            make(map[uint8]slippi.FrameUpdates, len(frame.Players)),
			Followers:          make(map[uint8]slippi.FrameUpdates, len(frame.Followers)),
			Items:              make([]slippi.ItemUpdatePayload, len(frame.Items)),
			IsTransferComplete: frame.IsTransferComplete,
			Start:              frame.Start,
			Bookend:            frame.Bookend,
		}

		for idx, upd := range frame.Players {
			encoded.Players[idx] = encodeFrameUpdates(c, version, idx, false, upd)
		}
		for idx, upd := range frame.Followers {
			encoded.Followers[idx] = encodeFrameUpdates(c, version, idx, true, upd)
		}
		for i, item := range frame.Items {
			encoded.Items[i] = encodeItem(c, item)
		}

		out[fn] = encoded
	}

	return &Result{Frames: out, EncoderTag: EncoderVersion}, nil
}

// Decode reverses Encode.
func Decode(version semver.Version, frames map[int32]slippi.FrameEntry, opts Options) (map[int32]slippi.FrameEntry, error) {
	c := newCarry()
	out := make(map[int32]slippi.FrameEntry, len(frames))

	frameNumbers := sortedFrameNumbers(frames)
	for _, fn := range frameNumbers {
		frame := frames[fn]
		decoded := slippi.FrameEntry{
			Players:            make(map[uint8]slippi.FrameUpdates, len(frame.Players)),
			Followers:          make(map[uint8]slippi.FrameUpdates, len(frame.Followers)),
			Items:              make([]slippi.ItemUpdatePayload, len(frame.Items)),
			IsTransferComplete: frame.IsTransferComplete,
			Start:              frame.Start,
			Bookend:            frame.Bookend,
		}

		for idx, upd := range frame.Players {
			decoded.Players[idx] = decodeFrameUpdates(c, version, idx, false, upd)
		}
		for idx, upd := range frame.Followers {
			decoded.Followers[idx] = decodeFrameUpdates(c, version, idx, true, upd)
		}
		for i, item := range frame.Items {
			decoded.Items[i] = decodeItem(c, item)
		}

		out[fn] = decoded
	}

	return out, nil
}

func sortedFrameNumbers(frames map[int32]slippi.FrameEntry) []int32 {
	nums := make([]int32, 0, len(frames))
	for fn := range frames {
		nums = append(nums, fn)
	}
	for i := 1; i < len(nums); i++ {
		for j := i; j > 0 && nums[j-1] > nums[j]; j-- {
			nums[j-1], nums[j] = nums[j], nums[j-1]
		}
	}
	return nums
}

func encodeFrameUpdates(c *carry, version semver.Version, idx uint8, follower bool, upd slippi.FrameUpdates) slippi.FrameUpdates {
	slot := playerSlot(idx, follower)
	out := upd

	if upd.Pre != nil {
		pre := *upd.Pre
		prevFrame := c.frameNumbers[slot][0]
		actualFrame := pre.FrameNumber
		pre.FrameNumber = intPredictEncode(pre.FrameNumber, prevFrame)

		if rolls, ok := predictRNG(version, actualFrame, c.rngState[slot], c.rngState[slot], pre.RandomSeed); ok {
			pre.RandomSeed = uint32(rolls)
		} else {
			pre.FrameNumber |= rawRNGMask
		}

		pre.ActionStateID = pre.ActionStateID ^ c.lastPreActionState(slot)

		// position/facing/damage: XOR-delta.
		pre.XPosition = xorFloat32(pre.XPosition, c.xorF32Get(fieldKey{player: slot, field: fPreXPos}))
		pre.YPosition = xorFloat32(pre.YPosition, c.xorF32Get(fieldKey{player: slot, field: fPreYPos}))
		pre.FacingDirection = xorFloat32(pre.FacingDirection, c.xorF32Get(fieldKey{player: slot, field: fPreFacing}))
		pre.Percent = xorFloat32(pre.Percent, c.xorF32Get(fieldKey{player: slot, field: fPrePercent}))

		// button bitflags: XOR-delta.
		pre.ProcessedButtons = pre.ProcessedButtons ^ c.xorU32Get(fieldKey{player: slot, field: fPreProcessedButtons})
		pre.PhysicalButtons = pre.PhysicalButtons ^ c.xorU16Get(fieldKey{player: slot, field: fPrePhysicalButtons})
		pre.XAnalogUCF = pre.XAnalogUCF ^ c.xorU8Get(fieldKey{player: slot, field: fPreXAnalogUCF})

		// joystick/c-stick/trigger: quantization.
		if k, ok := quantizeAnalog(pre.JoystickX, multStick); ok {
			pre.JoystickX = quantizedMarker(k)
		}
		if k, ok := quantizeAnalog(pre.JoystickY, multStick); ok {
			pre.JoystickY = quantizedMarker(k)
		}
		if k, ok := quantizeAnalog(pre.CStickX, multStick); ok {
			pre.CStickX = quantizedMarker(k)
		}
		if k, ok := quantizeAnalog(pre.CStickY, multStick); ok {
			pre.CStickY = quantizedMarker(k)
		}
		if k, ok := quantizeAnalog(pre.Trigger, multTrigger); ok {
			pre.Trigger = quantizedMarker(k)
		}
		if k, ok := quantizeAnalog(pre.PhysicalLTrigger, multTrigger); ok {
			pre.PhysicalLTrigger = quantizedMarker(k)
		}
		if k, ok := quantizeAnalog(pre.PhysicalRTrigger, multTrigger); ok {
			pre.PhysicalRTrigger = quantizedMarker(k)
		}

		// carry updates, keyed off the untouched input values.
		c.frameNumbers[slot][0] = actualFrame
		c.rngState[slot] = upd.Pre.RandomSeed
		c.setLastPreActionState(slot, upd.Pre.ActionStateID)
		c.xorF32Set(fieldKey{player: slot, field: fPreXPos}, upd.Pre.XPosition)
		c.xorF32Set(fieldKey{player: slot, field: fPreYPos}, upd.Pre.YPosition)
		c.xorF32Set(fieldKey{player: slot, field: fPreFacing}, upd.Pre.FacingDirection)
		c.xorF32Set(fieldKey{player: slot, field: fPrePercent}, upd.Pre.Percent)
		c.xorU32Set(fieldKey{player: slot, field: fPreProcessedButtons}, upd.Pre.ProcessedButtons)
		c.xorU16Set(fieldKey{player: slot, field: fPrePhysicalButtons}, upd.Pre.PhysicalButtons)
		c.xorU8Set(fieldKey{player: slot, field: fPreXAnalogUCF}, upd.Pre.XAnalogUCF)
		out.Pre = &pre
	}

	if upd.Post != nil {
		post := *upd.Post
		post.ActionStateID = post.ActionStateID ^ uint16(c.lastPostActionState(slot))

		post.XPosition = xorFloat32(post.XPosition, c.xorF32Get(fieldKey{player: slot, field: fPostXPos}))
		post.YPosition = xorFloat32(post.YPosition, c.xorF32Get(fieldKey{player: slot, field: fPostYPos}))
		post.FacingDirection = xorFloat32(post.FacingDirection, c.xorF32Get(fieldKey{player: slot, field: fPostFacing}))
		post.Percent = xorFloat32(post.Percent, c.xorF32Get(fieldKey{player: slot, field: fPostPercent}))

		post.InternalCharacterID = post.InternalCharacterID ^ c.xorU8Get(fieldKey{player: slot, field: fPostInternalCharacterID})
		post.LastHittingAttackID = post.LastHittingAttackID ^ c.xorU8Get(fieldKey{player: slot, field: fPostLastHittingAttackID})
		post.CurrentComboCount = post.CurrentComboCount ^ c.xorU8Get(fieldKey{player: slot, field: fPostCurrentComboCount})
		post.LastHitBy = post.LastHitBy ^ c.xorU8Get(fieldKey{player: slot, field: fPostLastHitBy})
		post.StocksRemaining = post.StocksRemaining ^ c.xorU8Get(fieldKey{player: slot, field: fPostStocksRemaining})
		post.StateBitFlags1 = post.StateBitFlags1 ^ c.xorU8Get(fieldKey{player: slot, field: fPostStateBitFlags1})
		post.StateBitFlags2 = post.StateBitFlags2 ^ c.xorU8Get(fieldKey{player: slot, field: fPostStateBitFlags2})
		post.StateBitFlags3 = post.StateBitFlags3 ^ c.xorU8Get(fieldKey{player: slot, field: fPostStateBitFlags3})
		post.StateBitFlags4 = post.StateBitFlags4 ^ c.xorU8Get(fieldKey{player: slot, field: fPostStateBitFlags4})
		post.StateBitFlags5 = post.StateBitFlags5 ^ c.xorU8Get(fieldKey{player: slot, field: fPostStateBitFlags5})
		post.LastGroundID = post.LastGroundID ^ c.xorU16Get(fieldKey{player: slot, field: fPostLastGroundID})
		post.JumpsRemaining = post.JumpsRemaining ^ c.xorU8Get(fieldKey{player: slot, field: fPostJumpsRemaining})
		post.LCancelStatus = slippi.LCancelStatus(uint8(post.LCancelStatus) ^ c.xorU8Get(fieldKey{player: slot, field: fPostLCancelStatus}))
		post.HurtboxCollisionState = slippi.HurtboxCollisionState(uint8(post.HurtboxCollisionState) ^ c.xorU8Get(fieldKey{player: slot, field: fPostHurtboxCollisionState}))
		post.AnimationIndex = post.AnimationIndex ^ c.xorU32Get(fieldKey{player: slot, field: fPostAnimationIndex})

		post.AttackBasedXSpeed, post.AttackBasedYSpeed = encodeVelocityPair(c, slot, fPostAttackSpeed, post.AttackBasedXSpeed, post.AttackBasedYSpeed)
		post.SelfInducedAirXSpeed, post.SelfInducedYSpeed, post.SelfInducedGroundXSpeed = encodeAccelTriple(c, slot, fPostSelfSpeed, post.SelfInducedAirXSpeed, post.SelfInducedYSpeed, post.SelfInducedGroundXSpeed)
		post.ShieldSize, post.ActionStateFrameCounter, post.MiscAS, post.HitlagFramesRemaining = encodeJoltQuad(c, slot, fPostJoltGroup, post.ShieldSize, post.ActionStateFrameCounter, post.MiscAS, post.HitlagFramesRemaining)

		c.setLastPostActionState(slot, upd.Post.ActionStateID)
		c.xorF32Set(fieldKey{player: slot, field: fPostXPos}, upd.Post.XPosition)
		c.xorF32Set(fieldKey{player: slot, field: fPostYPos}, upd.Post.YPosition)
		c.xorF32Set(fieldKey{player: slot, field: fPostFacing}, upd.Post.FacingDirection)
		c.xorF32Set(fieldKey{player: slot, field: fPostPercent}, upd.Post.Percent)
		c.xorU8Set(fieldKey{player: slot, field: fPostInternalCharacterID}, upd.Post.InternalCharacterID)
		c.xorU8Set(fieldKey{player: slot, field: fPostLastHittingAttackID}, upd.Post.LastHittingAttackID)
		c.xorU8Set(fieldKey{player: slot, field: fPostCurrentComboCount}, upd.Post.CurrentComboCount)
		c.xorU8Set(fieldKey{player: slot, field: fPostLastHitBy}, upd.Post.LastHitBy)
		c.xorU8Set(fieldKey{player: slot, field: fPostStocksRemaining}, upd.Post.StocksRemaining)
		c.xorU8Set(fieldKey{player: slot, field: fPostStateBitFlags1}, upd.Post.StateBitFlags1)
		c.xorU8Set(fieldKey{player: slot, field: fPostStateBitFlags2}, upd.Post.StateBitFlags2)
		c.xorU8Set(fieldKey{player: slot, field: fPostStateBitFlags3}, upd.Post.StateBitFlags3)
		c.xorU8Set(fieldKey{player: slot, field: fPostStateBitFlags4}, upd.Post.StateBitFlags4)
		c.xorU8Set(fieldKey{player: slot, field: fPostStateBitFlags5}, upd.Post.StateBitFlags5)
		c.xorU16Set(fieldKey{player: slot, field: fPostLastGroundID}, upd.Post.LastGroundID)
		c.xorU8Set(fieldKey{player: slot, field: fPostJumpsRemaining}, upd.Post.JumpsRemaining)
		c.xorU8Set(fieldKey{player: slot, field: fPostLCancelStatus}, uint8(upd.Post.LCancelStatus))
		c.xorU8Set(fieldKey{player: slot, field: fPostHurtboxCollisionState}, uint8(upd.Post.HurtboxCollisionState))
		c.xorU32Set(fieldKey{player: slot, field: fPostAnimationIndex}, upd.Post.AnimationIndex)
		out.Post = &post
	}

	return out
}

func decodeFrameUpdates(c *carry, version semver.Version, idx uint8, follower bool, upd slippi.FrameUpdates) slippi.FrameUpdates {
	slot := playerSlot(idx, follower)
	out := upd

	if upd.Pre != nil {
		pre := *upd.Pre
		raw := pre.FrameNumber & ^rawRNGMask
		prevFrame := c.frameNumbers[slot][0]
		actual := intPredictDecode(raw, prevFrame)
		pre.FrameNumber = actual

		if upd.Pre.FrameNumber&rawRNGMask == 0 {
			pre.RandomSeed = applyRNGRolls(c.rngState[slot], int(upd.Pre.RandomSeed))
		}

		pre.ActionStateID = pre.ActionStateID ^ uint16(c.lastPreActionState(slot))

		pre.XPosition = xorFloat32(pre.XPosition, c.xorF32Get(fieldKey{player: slot, field: fPreXPos}))
		pre.YPosition = xorFloat32(pre.YPosition, c.xorF32Get(fieldKey{player: slot, field: fPreYPos}))
		pre.FacingDirection = xorFloat32(pre.FacingDirection, c.xorF32Get(fieldKey{player: slot, field: fPreFacing}))
		pre.Percent = xorFloat32(pre.Percent, c.xorF32Get(fieldKey{player: slot, field: fPrePercent}))

		pre.ProcessedButtons = pre.ProcessedButtons ^ c.xorU32Get(fieldKey{player: slot, field: fPreProcessedButtons})
		pre.PhysicalButtons = pre.PhysicalButtons ^ c.xorU16Get(fieldKey{player: slot, field: fPrePhysicalButtons})
		pre.XAnalogUCF = pre.XAnalogUCF ^ c.xorU8Get(fieldKey{player: slot, field: fPreXAnalogUCF})

		if isQuantized(math.Float32bits(pre.JoystickX)) {
			pre.JoystickX = unquantizeAnalog(markerValue(pre.JoystickX), multStick)
		}
		if isQuantized(math.Float32bits(pre.JoystickY)) {
			pre.JoystickY = unquantizeAnalog(markerValue(pre.JoystickY), multStick)
		}
		if isQuantized(math.Float32bits(pre.CStickX)) {
			pre.CStickX = unquantizeAnalog(markerValue(pre.CStickX), multStick)
		}
		if isQuantized(math.Float32bits(pre.CStickY)) {
			pre.CStickY = unquantizeAnalog(markerValue(pre.CStickY), multStick)
		}
		if isQuantized(math.Float32bits(pre.Trigger)) {
			pre.Trigger = unquantizeAnalog(markerValue(pre.Trigger), multTrigger)
		}
		if isQuantized(math.Float32bits(pre.PhysicalLTrigger)) {
			pre.PhysicalLTrigger = unquantizeAnalog(markerValue(pre.PhysicalLTrigger), multTrigger)
		}
		if isQuantized(math.Float32bits(pre.PhysicalRTrigger)) {
			pre.PhysicalRTrigger = unquantizeAnalog(markerValue(pre.PhysicalRTrigger), multTrigger)
		}

		c.frameNumbers[slot][0] = actual
		c.rngState[slot] = pre.RandomSeed
		c.setLastPreActionState(slot, pre.ActionStateID)
		c.xorF32Set(fieldKey{player: slot, field: fPreXPos}, pre.XPosition)
		c.xorF32Set(fieldKey{player: slot, field: fPreYPos}, pre.YPosition)
		c.xorF32Set(fieldKey{player: slot, field: fPreFacing}, pre.FacingDirection)
		c.xorF32Set(fieldKey{player: slot, field: fPrePercent}, pre.Percent)
		c.xorU32Set(fieldKey{player: slot, field: fPreProcessedButtons}, pre.ProcessedButtons)
		c.xorU16Set(fieldKey{player: slot, field: fPrePhysicalButtons}, pre.PhysicalButtons)
		c.xorU8Set(fieldKey{player: slot, field: fPreXAnalogUCF}, pre.XAnalogUCF)
		out.Pre = &pre
	}

	if upd.Post != nil {
		post := *upd.Post
		post.ActionStateID = post.ActionStateID ^ uint16(c.lastPostActionState(slot))

		post.XPosition = xorFloat32(post.XPosition, c.xorF32Get(fieldKey{player: slot, field: fPostXPos}))
		post.YPosition = xorFloat32(post.YPosition, c.xorF32Get(fieldKey{player: slot, field: fPostYPos}))
		post.FacingDirection = xorFloat32(post.FacingDirection, c.xorF32Get(fieldKey{player: slot, field: fPostFacing}))
		post.Percent = xorFloat32(post.Percent, c.xorF32Get(fieldKey{player: slot, field: fPostPercent}))

		post.InternalCharacterID = post.InternalCharacterID ^ c.xorU8Get(fieldKey{player: slot, field: fPostInternalCharacterID})
		post.LastHittingAttackID = post.LastHittingAttackID ^ c.xorU8Get(fieldKey{player: slot, field: fPostLastHittingAttackID})
		post.CurrentComboCount = post.CurrentComboCount ^ c.xorU8Get(fieldKey{player: slot, field: fPostCurrentComboCount})
		post.LastHitBy = post.LastHitBy ^ c.xorU8Get(fieldKey{player: slot, field: fPostLastHitBy})
		post.StocksRemaining = post.StocksRemaining ^ c.xorU8Get(fieldKey{player: slot, field: fPostStocksRemaining})
		post.StateBitFlags1 = post.StateBitFlags1 ^ c.xorU8Get(fieldKey{player: slot, field: fPostStateBitFlags1})
		post.StateBitFlags2 = post.StateBitFlags2 ^ c.xorU8Get(fieldKey{player: slot, field: fPostStateBitFlags2})
		post.StateBitFlags3 = post.StateBitFlags3 ^ c.xorU8Get(fieldKey{player: slot, field: fPostStateBitFlags3})
		post.StateBitFlags4 = post.StateBitFlags4 ^ c.xorU8Get(fieldKey{player: slot, field: fPostStateBitFlags4})
		post.StateBitFlags5 = post.StateBitFlags5 ^ c.xorU8Get(fieldKey{player: slot, field: fPostStateBitFlags5})
		post.LastGroundID = post.LastGroundID ^ c.xorU16Get(fieldKey{player: slot, field: fPostLastGroundID})
		post.JumpsRemaining = post.JumpsRemaining ^ c.xorU8Get(fieldKey{player: slot, field: fPostJumpsRemaining})
		post.LCancelStatus = slippi.LCancelStatus(uint8(post.LCancelStatus) ^ c.xorU8Get(fieldKey{player: slot, field: fPostLCancelStatus}))
		post.HurtboxCollisionState = slippi.HurtboxCollisionState(uint8(post.HurtboxCollisionState) ^ c.xorU8Get(fieldKey{player: slot, field: fPostHurtboxCollisionState}))
		post.AnimationIndex = post.AnimationIndex ^ c.xorU32Get(fieldKey{player: slot, field: fPostAnimationIndex})

		post.AttackBasedXSpeed, post.AttackBasedYSpeed = decodeVelocityPair(c, slot, fPostAttackSpeed, post.AttackBasedXSpeed, post.AttackBasedYSpeed)
		post.SelfInducedAirXSpeed, post.SelfInducedYSpeed, post.SelfInducedGroundXSpeed = decodeAccelTriple(c, slot, fPostSelfSpeed, post.SelfInducedAirXSpeed, post.SelfInducedYSpeed, post.SelfInducedGroundXSpeed)
		post.ShieldSize, post.ActionStateFrameCounter, post.MiscAS, post.HitlagFramesRemaining = decodeJoltQuad(c, slot, fPostJoltGroup, post.ShieldSize, post.ActionStateFrameCounter, post.MiscAS, post.HitlagFramesRemaining)

		c.setLastPostActionState(slot, post.ActionStateID)
		c.xorF32Set(fieldKey{player: slot, field: fPostXPos}, post.XPosition)
		c.xorF32Set(fieldKey{player: slot, field: fPostYPos}, post.YPosition)
		c.xorF32Set(fieldKey{player: slot, field: fPostFacing}, post.FacingDirection)
		c.xorF32Set(fieldKey{player: slot, field: fPostPercent}, post.Percent)
		c.xorU8Set(fieldKey{player: slot, field: fPostInternalCharacterID}, post.InternalCharacterID)
		c.xorU8Set(fieldKey{player: slot, field: fPostLastHittingAttackID}, post.LastHittingAttackID)
		c.xorU8Set(fieldKey{player: slot, field: fPostCurrentComboCount}, post.CurrentComboCount)
		c.xorU8Set(fieldKey{player: slot, field: fPostLastHitBy}, post.LastHitBy)
		c.xorU8Set(fieldKey{player: slot, field: fPostStocksRemaining}, post.StocksRemaining)
		c.xorU8Set(fieldKey{player: slot, field: fPostStateBitFlags1}, post.StateBitFlags1)
		c.xorU8Set(fieldKey{player: slot, field: fPostStateBitFlags2}, post.StateBitFlags2)
		c.xorU8Set(fieldKey{player: slot, field: fPostStateBitFlags3}, post.StateBitFlags3)
		c.xorU8Set(fieldKey{player: slot, field: fPostStateBitFlags4}, post.StateBitFlags4)
		c.xorU8Set(fieldKey{player: slot, field: fPostStateBitFlags5}, post.StateBitFlags5)
		c.xorU16Set(fieldKey{player: slot, field: fPostLastGroundID}, post.LastGroundID)
		c.xorU8Set(fieldKey{player: slot, field: fPostJumpsRemaining}, post.JumpsRemaining)
		c.xorU8Set(fieldKey{player: slot, field: fPostLCancelStatus}, uint8(post.LCancelStatus))
		c.xorU8Set(fieldKey{player: slot, field: fPostHurtboxCollisionState}, uint8(post.HurtboxCollisionState))
		c.xorU32Set(fieldKey{player: slot, field: fPostAnimationIndex}, post.AnimationIndex)
		out.Post = &post
	}

	return out
}

// encodeVelocityPair applies the MAGIC_FLOAT predictive delta
// (MAXDIFF = 0x3FF) to a position/velocity-shaped (x, y) pair. Each field
// is predicted as its own previous value; only one prior sample is kept,
// and no multi-sample extrapolation is done.
func encodeVelocityPair(c *carry, slot, field int, x, y float32) (float32, float32) {
	key := fieldKey{player: slot, field: field}
	buf := c.velocityBuf[key]
	predX, predY := buf[0], buf[1]

	xBits, xOK := floatPredictEncode(math.Float32bits(x), math.Float32bits(predX), maxDiffVelocity)
	yBits, yOK := floatPredictEncode(math.Float32bits(y), math.Float32bits(predY), maxDiffVelocity)

	c.velocityBuf[key] = [2]float32{x, y}

	outX, outY := x, y
	if xOK {
		outX = math.Float32frombits(xBits)
	}
	if yOK {
		outY = math.Float32frombits(yBits)
	}
	return outX, outY
}

func decodeVelocityPair(c *carry, slot, field int, x, y float32) (float32, float32) {
	key := fieldKey{player: slot, field: field}
	buf := c.velocityBuf[key]
	predX, predY := buf[0], buf[1]

	outXBits := floatPredictDecode(math.Float32bits(x), math.Float32bits(predX))
	outYBits := floatPredictDecode(math.Float32bits(y), math.Float32bits(predY))
	outX, outY := math.Float32frombits(outXBits), math.Float32frombits(outYBits)

	c.velocityBuf[key] = [2]float32{outX, outY}
	return outX, outY
}

// encodeAccelTriple applies the MAGIC_FLOAT predictive delta
// (MAXDIFF = 0xFF) to three related fields sharing one carry slot. Each
// field is predicted as its own previous value; only one prior sample is
// kept, and no multi-sample extrapolation is done.
func encodeAccelTriple(c *carry, slot, field int, a, b, d float32) (float32, float32, float32) {
	key := fieldKey{player: slot, field: field}
	buf := c.accelBuf[key]

	aBits, aOK := floatPredictEncode(math.Float32bits(a), math.Float32bits(buf[0]), maxDiffAccel)
	bBits, bOK := floatPredictEncode(math.Float32bits(b), math.Float32bits(buf[1]), maxDiffAccel)
	dBits, dOK := floatPredictEncode(math.Float32bits(d), math.Float32bits(buf[2]), maxDiffAccel)

	c.accelBuf[key] = [3]float32{a, b, d}

	outA, outB, outD := a, b, d
	if aOK {
		outA = math.Float32frombits(aBits)
	}
	if bOK {
		outB = math.Float32frombits(bBits)
	}
	if dOK {
		outD = math.Float32frombits(dBits)
	}
	return outA, outB, outD
}

func decodeAccelTriple(c *carry, slot, field int, a, b, d float32) (float32, float32, float32) {
	key := fieldKey{player: slot, field: field}
	buf := c.accelBuf[key]

	outABits := floatPredictDecode(math.Float32bits(a), math.Float32bits(buf[0]))
	outBBits := floatPredictDecode(math.Float32bits(b), math.Float32bits(buf[1]))
	outDBits := floatPredictDecode(math.Float32bits(d), math.Float32bits(buf[2]))
	outA, outB, outD := math.Float32frombits(outABits), math.Float32frombits(outBBits), math.Float32frombits(outDBits)

	c.accelBuf[key] = [3]float32{outA, outB, outD}
	return outA, outB, outD
}

// encodeJoltQuad applies the MAGIC_FLOAT predictive delta
// (MAXDIFF = 0xFF) to four related fields sharing one carry slot. Each
// field is predicted as its own previous value; only one prior sample is
// kept, and no multi-sample extrapolation is done.
func encodeJoltQuad(c *carry, slot, field int, a, b, d, e float32) (float32, float32, float32, float32) {
	key := fieldKey{player: slot, field: field}
	buf := c.joltBuf[key]

	aBits, aOK := floatPredictEncode(math.Float32bits(a), math.Float32bits(buf[0]), maxDiffAccel)
	bBits, bOK := floatPredictEncode(math.Float32bits(b), math.Float32bits(buf[1]), maxDiffAccel)
	dBits, dOK := floatPredictEncode(math.Float32bits(d), math.Float32bits(buf[2]), maxDiffAccel)
	eBits, eOK := floatPredictEncode(math.Float32bits(e), math.Float32bits(buf[3]), maxDiffAccel)

	c.joltBuf[key] = [4]float32{a, b, d, e}

	outA, outB, outD, outE := a, b, d, e
	if aOK {
		outA = math.Float32frombits(aBits)
	}
	if bOK {
		outB = math.Float32frombits(bBits)
	}
	if dOK {
		outD = math.Float32frombits(dBits)
	}
	if eOK {
		outE = math.Float32frombits(eBits)
	}
	return outA, outB, outD, outE
}

func decodeJoltQuad(c *carry, slot, field int, a, b, d, e float32) (float32, float32, float32, float32) {
	key := fieldKey{player: slot, field: field}
	buf := c.joltBuf[key]

	outABits := floatPredictDecode(math.Float32bits(a), math.Float32bits(buf[0]))
	outBBits := floatPredictDecode(math.Float32bits(b), math.Float32bits(buf[1]))
	outDBits := floatPredictDecode(math.Float32bits(d), math.Float32bits(buf[2]))
	outEBits := floatPredictDecode(math.Float32bits(e), math.Float32bits(buf[3]))
	outA := math.Float32frombits(outABits)
	outB := math.Float32frombits(outBBits)
	outD := math.Float32frombits(outDBits)
	outE := math.Float32frombits(outEBits)

	c.joltBuf[key] = [4]float32{outA, outB, outD, outE}
	return outA, outB, outD, outE
}

// quantizedMarker packs k into a float32's bit pattern the way the wire
// format does: low byte = k, remaining bytes zero, so the exponent field
// reads as zero and isQuantized recognizes it on decode.
func quantizedMarker(k int8) float32 {
	bits := uint32(uint8(k))
	return math.Float32frombits(bits)
}

func markerValue(f float32) int8 {
	return int8(uint8(math.Float32bits(f)))
}

func encodeItem(c *carry, item slippi.ItemUpdatePayload) slippi.ItemUpdatePayload {
	slot := itemSlotBase + int(item.SpawnID%256)
	out := item

	out.XVelocity, out.YVelocity = encodeVelocityPair(c, slot, fItemVelocity, item.XVelocity, item.YVelocity)
	out.State = out.State ^ c.lastItemState(slot)

	out.TypeID = out.TypeID ^ c.xorU16Get(fieldKey{player: slot, field: fItemTypeID})
	out.FacingDirection = xorFloat32(out.FacingDirection, c.xorF32Get(fieldKey{player: slot, field: fItemFacing}))
	out.XPosition = xorFloat32(out.XPosition, c.xorF32Get(fieldKey{player: slot, field: fItemXPos}))
	out.YPosition = xorFloat32(out.YPosition, c.xorF32Get(fieldKey{player: slot, field: fItemYPos}))
	out.DamageTaken = out.DamageTaken ^ c.xorU16Get(fieldKey{player: slot, field: fItemDamageTaken})
	out.ExpirationTimer = xorFloat32(out.ExpirationTimer, c.xorF32Get(fieldKey{player: slot, field: fItemExpirationTimer}))
	out.SamusMissileType = out.SamusMissileType ^ c.xorU8Get(fieldKey{player: slot, field: fItemSamusMissileType})
	out.PeachTurnipFace = out.PeachTurnipFace ^ c.xorU8Get(fieldKey{player: slot, field: fItemPeachTurnipFace})
	out.IsLaunched = out.IsLaunched ^ c.xorU8Get(fieldKey{player: slot, field: fItemIsLaunched})
	out.ChargedPower = out.ChargedPower ^ c.xorU8Get(fieldKey{player: slot, field: fItemChargedPower})
	out.Owner = int8(uint8(out.Owner) ^ c.xorU8Get(fieldKey{player: slot, field: fItemOwner}))

	c.setLastItemState(slot, item.State)
	c.xorU16Set(fieldKey{player: slot, field: fItemTypeID}, item.TypeID)
	c.xorF32Set(fieldKey{player: slot, field: fItemFacing}, item.FacingDirection)
	c.xorF32Set(fieldKey{player: slot, field: fItemXPos}, item.XPosition)
	c.xorF32Set(fieldKey{player: slot, field: fItemYPos}, item.YPosition)
	c.xorU16Set(fieldKey{player: slot, field: fItemDamageTaken}, item.DamageTaken)
	c.xorF32Set(fieldKey{player: slot, field: fItemExpirationTimer}, item.ExpirationTimer)
	c.xorU8Set(fieldKey{player: slot, field: fItemSamusMissileType}, item.SamusMissileType)
	c.xorU8Set(fieldKey{player: slot, field: fItemPeachTurnipFace}, item.PeachTurnipFace)
	c.xorU8Set(fieldKey{player: slot, field: fItemIsLaunched}, item.IsLaunched)
	c.xorU8Set(fieldKey{player: slot, field: fItemChargedPower}, item.ChargedPower)
	c.xorU8Set(fieldKey{player: slot, field: fItemOwner}, uint8(item.Owner))
	return out
}

func decodeItem(c *carry, item slippi.ItemUpdatePayload) slippi.ItemUpdatePayload {
	slot := itemSlotBase + int(item.SpawnID%256)
	out := item

	out.XVelocity, out.YVelocity = decodeVelocityPair(c, slot, fItemVelocity, item.XVelocity, item.YVelocity)
	out.State = out.State ^ c.lastItemState(slot)

	out.TypeID = out.TypeID ^ c.xorU16Get(fieldKey{player: slot, field: fItemTypeID})
	out.FacingDirection = xorFloat32(out.FacingDirection, c.xorF32Get(fieldKey{player: slot, field: fItemFacing}))
	out.XPosition = xorFloat32(out.XPosition, c.xorF32Get(fieldKey{player: slot, field: fItemXPos}))
	out.YPosition = xorFloat32(out.YPosition, c.xorF32Get(fieldKey{player: slot, field: fItemYPos}))
	out.DamageTaken = out.DamageTaken ^ c.xorU16Get(fieldKey{player: slot, field: fItemDamageTaken})
	out.ExpirationTimer = xorFloat32(out.ExpirationTimer, c.xorF32Get(fieldKey{player: slot, field: fItemExpirationTimer}))
	out.SamusMissileType = out.SamusMissileType ^ c.xorU8Get(fieldKey{player: slot, field: fItemSamusMissileType})
	out.PeachTurnipFace = out.PeachTurnipFace ^ c.xorU8Get(fieldKey{player: slot, field: fItemPeachTurnipFace})
	out.IsLaunched = out.IsLaunched ^ c.xorU8Get(fieldKey{player: slot, field: fItemIsLaunched})
	out.ChargedPower = out.ChargedPower ^ c.xorU8Get(fieldKey{player: slot, field: fItemChargedPower})
	out.Owner = int8(uint8(out.Owner) ^ c.xorU8Get(fieldKey{player: slot, field: fItemOwner}))

	c.setLastItemState(slot, out.State)
	c.xorU16Set(fieldKey{player: slot, field: fItemTypeID}, out.TypeID)
	c.xorF32Set(fieldKey{player: slot, field: fItemFacing}, out.FacingDirection)
	c.xorF32Set(fieldKey{player: slot, field: fItemXPos}, out.XPosition)
	c.xorF32Set(fieldKey{player: slot, field: fItemYPos}, out.YPosition)
	c.xorU16Set(fieldKey{player: slot, field: fItemDamageTaken}, out.DamageTaken)
	c.xorF32Set(fieldKey{player: slot, field: fItemExpirationTimer}, out.ExpirationTimer)
	c.xorU8Set(fieldKey{player: slot, field: fItemSamusMissileType}, out.SamusMissileType)
	c.xorU8Set(fieldKey{player: slot, field: fItemPeachTurnipFace}, out.PeachTurnipFace)
	c.xorU8Set(fieldKey{player: slot, field: fItemIsLaunched}, out.IsLaunched)
	c.xorU8Set(fieldKey{player: slot, field: fItemChargedPower}, out.ChargedPower)
	c.xorU8Set(fieldKey{player: slot, field: fItemOwner}, uint8(out.Owner))
	return out
}

// EncodeGeckoList applies the gecko-codes transform for EncoderVersion to
// the GAME_START gecko-codes blob (assembled from SPLIT_MESSAGE events).
func EncodeGeckoList(codes []byte) []byte {
	return geckoTransform(EncoderVersion, codes)
}

// DecodeGeckoList reverses a gecko-codes blob tagged with encoderVersion
// (the byte read from schema.OSlpEnc on the source file).
func DecodeGeckoList(encoderVersion byte, codes []byte) []byte {
	return geckoTransform(encoderVersion, codes)
}

// EncodeReplay ties Encode together with the replay-level checks
// SPEC_FULL.md requires before a file is considered encodable: a version
// below the codec ceiling and a terminating GAME_END event.
func EncodeReplay(version semver.Version, frames map[int32]slippi.FrameEntry, hasGameEnd bool, opts Options) (*Result, error) {
	if !hasGameEnd {
		return nil, newError(ErrMissingGameEnd, "cannot encode a replay with no GAME_END event")
	}
	result, err := Encode(version, frames, opts)
	if err != nil {
		return nil, err
	}
	if err := Validate(version, frames, result.Frames, opts); err != nil {
		return nil, err
	}
	return result, nil
}

// Validate re-decodes encoded and compares it against original, per
// spec.md's validation step: a second, independent codec instance must
// reproduce the exact input or the encode is refused.
func Validate(version semver.Version, original, encoded map[int32]slippi.FrameEntry, opts Options) error {
	decoded, err := Decode(version, encoded, opts)
	if err != nil {
		return errors.Wrap(err, "codec: validate")
	}
	if len(decoded) != len(original) {
		return newError(ErrValidationMismatch, "frame count differs")
	}
	for fn, frame := range original {
		other, ok := decoded[fn]
		if !ok {
			return newError(ErrValidationMismatch, "missing frame in round-trip")
		}
		if !framesEqual(frame, other) {
			return newError(ErrValidationMismatch, "frame contents differ")
		}
	}
	return nil
}

// framesEqual does a full field-by-field comparison (via reflect.DeepEqual
// on every pre/post/item payload), not just a couple of representative
// fields, since every field the codec touches must round-trip exactly.
func framesEqual(a, b slippi.FrameEntry) bool {
	if len(a.Players) != len(b.Players) || len(a.Followers) != len(b.Followers) || len(a.Items) != len(b.Items) {
		return false
	}
	for idx, upd := range a.Players {
		other, ok := b.Players[idx]
		if !ok || !frameUpdatesEqual(upd, other) {
			return false
		}
	}
	for idx, upd := range a.Followers {
		other, ok := b.Followers[idx]
		if !ok || !frameUpdatesEqual(upd, other) {
			return false
		}
	}
	for i, item := range a.Items {
		if !reflect.DeepEqual(item, b.Items[i]) {
			return false
		}
	}
	return true
}

func frameUpdatesEqual(a, b slippi.FrameUpdates) bool {
	if (a.Pre == nil) != (b.Pre == nil) || (a.Post == nil) != (b.Post == nil) {
		return false
	}
	if a.Pre != nil && !reflect.DeepEqual(*a.Pre, *b.Pre) {
		return false
	}
	if a.Post != nil && !reflect.DeepEqual(*a.Post, *b.Post) {
		return false
	}
	return true
}
