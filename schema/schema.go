// Package schema holds the versioned, fixed byte offsets of every Slippi
// event, ported from the source project's schema.h, plus the per-event
// column-width tables the shuffler (package shuffle) transposes. Offsets
// never change across versions; what changes is whether a version's
// payload is long enough to contain a given field, which is what
// TruncateColumnWidthsToVersion encodes.
package schema

import "github.com/blang/semver/v4"

// EventCode is the one-byte command that begins every event in the raw
// stream.
type EventCode byte

// Event codes, the closed enum from the wire format.
const (
	EvPayloads   EventCode = 0x35
	GameStart    EventCode = 0x36
	PreFrame     EventCode = 0x37
	PostFrame    EventCode = 0x38
	GameEnd      EventCode = 0x39
	FrameStart   EventCode = 0x3A
	ItemUpdate   EventCode = 0x3B
	Bookend      EventCode = 0x3C
	GeckoList    EventCode = 0x3D
	SplitMessage EventCode = 0x10
)

// RequiredEventCodes must each appear in the EV_PAYLOADS size table;
// NewSlpReader refuses a replay whose table lacks any of them.
var RequiredEventCodes = []EventCode{EvPayloads, GameStart, PreFrame, PostFrame, GameEnd}

// Common offsets shared by multiple event kinds.
const (
	OFrame    = 0x01
	OPlayer   = 0x05
	OFollower = 0x06
)

// Game-start event offsets.
const (
	OSlpMaj           = 0x01
	OSlpMin           = 0x02
	OSlpRev           = 0x03
	OSlpEnc           = 0x04 // nonzero iff the file has already been codec-encoded
	OGameBits1        = 0x05
	OGameBits2        = 0x06
	OGameBits3        = 0x07
	OGameBits4        = 0x08
	OSuddenDeath      = 0x0B
	OIsTeams          = 0x0D
	OItemSpawn        = 0x10
	OSdScore          = 0x11
	OStage            = 0x13
	OTimer            = 0x15
	OItemBits1        = 0x28
	OItemBits2        = 0x29
	OItemBits3        = 0x2A
	OItemBits4        = 0x2B
	OItemBits5        = 0x2C
	OPlayerData       = 0x65
	ORngGameStart     = 0x13D
	ODashback         = 0x141 // also contains shield-drop fix at +0x04
	ONametag          = 0x161
	OIsPal            = 0x1A1
	OPsFrozen         = 0x1A2
	OSceneMin         = 0x1A3
	OSceneMaj         = 0x1A4
	ODispName         = 0x1A5
	OConnCode         = 0x221
	OSlippiUID        = 0x249
	OLanguage         = 0x2BD
	OMatchID          = 0x2BE
	OGameNumber       = 0x2F1
	OTiebreakerNumber = 0x2F5
)

// Player-data-block offsets, relative to OPlayerData + playerIndex*playerBlockSize.
const (
	OPlayerID     = 0x00
	OPlayerType   = 0x01
	OStartStocks  = 0x02
	OColor        = 0x03
	OShade        = 0x07
	OHandicap     = 0x08
	OTeamID       = 0x09
	OPlayerBits   = 0x0C
	OCPULevel     = 0x0F
	OOffense      = 0x18
	ODefense      = 0x1C
	OScale        = 0x20
	PlayerBlockSize = 0x24
)

// Frame-start event offsets.
const (
	ORngFS      = 0x05
	OSceneCount = 0x09
)

// Pre-frame event offsets.
const (
	ORngPre    = 0x07
	OActionPre = 0x0B
	OXPosPre   = 0x0D
	OYPosPre   = 0x11
	OFacingPre = 0x15
	OJoyX      = 0x19
	OJoyY      = 0x1D
	OCX        = 0x21
	OCY        = 0x25
	OTrigger   = 0x29
	OProcessed = 0x2D
	OButtons   = 0x31
	OPhysL     = 0x33
	OPhysR     = 0x37
	OUCFAnalog = 0x3B
	ODamagePre = 0x3C
)

// Post-frame event offsets.
const (
	OIntCharID    = 0x07
	OActionPost   = 0x08
	OXPosPost     = 0x0A
	OYPosPost     = 0x0E
	OFacingPost   = 0x12
	ODamagePost   = 0x16
	OShield       = 0x1A
	OLastHitID    = 0x1E
	OCombo        = 0x1F
	OLastHitBy    = 0x20
	OStocks       = 0x21
	OActionFrames = 0x22
	OStateBits1   = 0x26
	OStateBits2   = 0x27
	OStateBits3   = 0x28
	OStateBits4   = 0x29
	OStateBits5   = 0x2A
	OHitstun      = 0x2B
	OAirborne     = 0x2F
	OGroundID     = 0x30
	OJumps        = 0x32
	OLCancel      = 0x33
	OHurtbox      = 0x34
	OSelfAirX     = 0x35
	OSelfAirY     = 0x39
	OAttackX      = 0x3D
	OAttackY      = 0x41
	OSelfGroundX  = 0x45
	OHitlag       = 0x49
	OAnimIndex    = 0x4D
)

// Item event offsets.
const (
	OItemType   = 0x05
	OItemState  = 0x07
	OItemFacing = 0x08
	OItemXVel   = 0x0C
	OItemYVel   = 0x10
	OItemXPos   = 0x14
	OItemYPos   = 0x18
	OItemDamage = 0x1C
	OItemExpire = 0x1E
	OItemID     = 0x22
	OItemMisc   = 0x26
	OItemOwner  = 0x2A
	OItemEnd    = 0x2B
)

// Bookend event offsets.
const (
	OBookendFrame  = 0x01
	ORollbackFrame = 0x05
)

// Game-end event offsets.
const (
	OEndMethod = 0x01
	OLRAS      = 0x02
)

// Version thresholds at which fields become present. A field at an offset
// listed here does not exist, and must not be touched by the codec, below
// its threshold.
var (
	VMenuHeight    = semver.MustParse("1.0.0")
	VFollowers     = semver.MustParse("2.0.0")
	VUCFAnalog     = semver.MustParse("2.2.0")
	VBookend       = semver.MustParse("3.0.0")
	VRollbackRNG   = semver.MustParse("3.6.0")
	VNametags      = semver.MustParse("1.3.0")
	VDisplayNames  = semver.MustParse("3.9.0")
	VItemOwner     = semver.MustParse("3.6.0")
	VHurtboxState  = semver.MustParse("2.4.0")
	VBitfields5    = semver.MustParse("3.8.0")
	VCodecCeiling  = semver.MustParse("3.13.0") // codec refuses to operate at/above this
)

// ColumnWidths describes the fixed field-width layout the shuffler
// transposes for one event bin. A negative width flags a bit-plane
// transpose instead of a byte transpose for that column (see package
// shuffle). A width of 0 after TruncateColumnWidthsToVersion means "this
// version doesn't have the field; skip the column entirely".
type ColumnWidths []int

// PreFrameColumns are the per-field byte widths of a pre-frame-update
// record in wire order, before version truncation. Negative widths (the
// single-byte flag-ish fields) are bit-plane transposed.
func PreFrameColumns() ColumnWidths {
	return ColumnWidths{
		4,  // random seed
		2,  // action state id
		4, 4, // x/y position
		4,  // facing direction
		4, 4, // joystick x/y
		4, 4, // c-stick x/y
		4,  // trigger
		4,  // processed buttons
		2,  // physical buttons
		4, 4, // physical L/R
		-1, // UCF analog x (version-gated, bit-plane candidate)
		4,  // damage
	}
}

// PostFrameColumns are the per-field byte widths of a post-frame-update
// record in wire order, before version truncation.
func PostFrameColumns() ColumnWidths {
	return ColumnWidths{
		-1, // internal character id
		2,  // action state id
		4, 4, // x/y position
		4,  // facing direction
		4,  // damage
		4,  // shield size
		-1, // last hitting attack id
		-1, // combo count
		-1, // last hit by
		-1, // stocks remaining
		4,  // action state frame counter
		-1, -1, -1, -1, -1, // five state bitflag bytes
		4,  // hitstun/misc AS
		-1, // airborne flag
		2,  // last ground id
		-1, // jumps remaining
		-1, // l-cancel status
		-1, // hurtbox collision state
		4, 4, // self-induced air x/y speed
		4, 4, // attack-based x/y speed
		4,  // self-induced ground x speed
		4,  // hitlag frames remaining
		4,  // animation index
	}
}

// ItemColumns are the per-field byte widths of an item-update record.
func ItemColumns() ColumnWidths {
	return ColumnWidths{
		2,  // type id
		-1, // state
		4,  // facing
		4, 4, // x/y velocity
		4, 4, // x/y position
		2,  // damage taken
		4,  // expiration timer
		4,  // spawn/item id (carries sub-shuffle bookkeeping)
		4,  // misc bytes (Samus missile / Peach turnip / launched / charge)
		-1, // owner
	}
}

// FrameStartColumns are the per-field byte widths of a frame-start record.
func FrameStartColumns() ColumnWidths {
	return ColumnWidths{
		4, // random seed
		4, // scene frame counter
	}
}

// FrameBookendColumns are the per-field byte widths of a frame-bookend
// record.
func FrameBookendColumns() ColumnWidths {
	return ColumnWidths{
		4, // latest finalized frame
	}
}

// TruncateColumnWidthsToVersion zeroes out columns for fields that do not
// exist below the given version, matching the source project's
// truncateColumnWidthsToVersion. idx is the zero-based position within the
// column slice known to be version-gated for this bin (schema package
// callers pass the specific index tables below).
func TruncateColumnWidthsToVersion(cols ColumnWidths, version semver.Version, gates map[int]semver.Version) ColumnWidths {
	out := make(ColumnWidths, len(cols))
	copy(out, cols)
	for idx, threshold := range gates {
		if idx < 0 || idx >= len(out) {
			continue
		}
		if version.LT(threshold) {
			out[idx] = 0
		}
	}
	return out
}

// PreFrameVersionGates maps PreFrameColumns index -> version at which the
// field first appears. Indices absent from this map are present in every
// supported version.
var PreFrameVersionGates = map[int]semver.Version{
	14: VUCFAnalog, // UCF analog x
}

// PostFrameVersionGates maps PostFrameColumns index -> first-present version.
var PostFrameVersionGates = map[int]semver.Version{
	7:  VHurtboxState, // last hitting attack id slot reused pre-2.4 ambiguity; gate conservatively
	22: VHurtboxState, // hurtbox collision state
	16: VBitfields5,   // fifth state bitflag byte (index of bitflags5 within slice)
}
