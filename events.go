package slippi

import "github.com/blang/semver/v4"

// Command enumerates the one-byte command codes that begin every event in
// the raw stream. See package schema for the same values with wire-offset
// tables attached.
type Command byte

// Commands, in wire order.
const (
	EventPayloads Command = iota + 0x35
	GameStart
	PreFrameUpdate
	PostFrameUpdate
	GameEnd
	FrameStart
	ItemUpdate
	FrameBookend
	GeckoList
	MessageSplitter Command = 0x10
)

// String renders a Command the way debug tracing wants it: the symbolic
// name, falling back to the raw byte for anything outside the known set.
func (c Command) String() string {
	switch c {
	case EventPayloads:
		return "EventPayloads"
	case GameStart:
		return "GameStart"
	case PreFrameUpdate:
		return "PreFrameUpdate"
	case PostFrameUpdate:
		return "PostFrameUpdate"
	case GameEnd:
		return "GameEnd"
	case FrameStart:
		return "FrameStart"
	case ItemUpdate:
		return "ItemUpdate"
	case FrameBookend:
		return "FrameBookend"
	case GeckoList:
		return "GeckoList"
	case MessageSplitter:
		return "MessageSplitter"
	default:
		return unknownByte("Command", byte(c))
	}
}

// SlpEvent pairs a decoded event's command with its typed payload, one of
// the *Payload structs below.
type SlpEvent struct {
	Command Command
	Payload interface{}
}

// MessageSplitterPayload is one fixed-size MessageSplitter fragment of a
// larger event, whose command is InternalCommand. The reader yields each
// fragment as its own event; it does not join fragments together.
type MessageSplitterPayload struct {
	Data            [512]uint8
	DataLength      uint16
	InternalCommand uint8
	LastMessage     bool
}

// EventPayloadsPayload is the declared-size table every replay opens with:
// one entry per command the rest of the stream will use, read once and
// consulted for every subsequent event's buffer size.
type EventPayloadsPayload struct {
	PayloadSize  uint8
	PayloadSizes map[uint8]uint16
}

// PlayerType enumerates the different player types in Melee.
type PlayerType uint8

// PlayerTypes
const (
	Human PlayerType = iota
	CPU
	Demo
	Empty
)

func (t PlayerType) String() string {
	switch t {
	case Human:
		return "Human"
	case CPU:
		return "CPU"
	case Demo:
		return "Demo"
	case Empty:
		return "Empty"
	default:
		return unknownByte("PlayerType", byte(t))
	}
}

// TeamShade enumerates the coloration changes for multiples of the same
// character on the same team.
type TeamShade uint8

// TeamShades
const (
	Normal TeamShade = iota
	Light
	Dark
)

// TeamID enumerates the possible team colors in Melee.
type TeamID uint8

// TeamIDs
const (
	Red TeamID = iota
	Blue
	Green
)

func (t TeamID) String() string {
	switch t {
	case Red:
		return "Red"
	case Blue:
		return "Blue"
	case Green:
		return "Green"
	default:
		return unknownByte("TeamID", byte(t))
	}
}

// DashbackFix enumerates the controller fixes for dashback, stored at
// schema.ODashback.
type DashbackFix uint32

// DashbackFixes
const (
	DBOff DashbackFix = iota
	DBUCF
	DBDween
)

// ShieldDropFix enumerates the controller fixes for shield drops, stored
// at schema.ODashback+4.
type ShieldDropFix uint32

// ShieldDropFixes
const (
	SDFixOff ShieldDropFix = iota
	SDUCF
	SDDween
)

// PlayerInfo is one player's slot in the GAME_START payload: identity,
// costume/handicap bookkeeping, controller fix settings, and (on replays
// new enough to carry them) the Slippi netplay fields.
type PlayerInfo struct {
	Index           uint8
	Port            uint8
	CharacterID     uint8
	PlayerType      PlayerType
	StockStartCount uint8
	CostumeIndex    uint8
	TeamShade       TeamShade
	Handicap        uint8
	TeamID          TeamID
	PlayerBitfield  uint8
	CPULevel        uint8
	OffenseRatio    float32
	DefenseRatio    float32
	ModelScale      float32
	DashbackFix     DashbackFix
	ShieldDropFix   ShieldDropFix
	Nametag         string
	DisplayName     string
	ConnectCode     string
	SlippiUID       string
}

// IsActive reports whether this slot is actually controlled by a human or
// CPU player, as opposed to an empty or demo slot the analyzer and
// container format should skip.
func (p PlayerInfo) IsActive() bool {
	return p.PlayerType == Human || p.PlayerType == CPU
}

// ItemSpawnBehavior enumerates item spawn frequencies.
type ItemSpawnBehavior int8

// ItemSpawnBehaviors
const (
	ItemsVeryLow = iota
	ItemsLow
	ItemsMedium
	ItemsHigh
	ItemsVeryHigh
	Items5
	Items6
	Items7
	Items8
	ItemsOff ItemSpawnBehavior = -1
)

// GameInfoBlock carries the match-rules fields of GAME_START that aren't
// per-player: bitfields, stage, timer, and the five item-spawn bitfields.
type GameInfoBlock struct {
	GameBitfield1          uint8
	GameBitfield2          uint8
	GameBitfield3          uint8
	GameBitfield4          uint8
	BombRain               uint8
	IsTeams                bool
	ItemSpawnBehavior      ItemSpawnBehavior
	SelfDestructScoreValue int8
	Stage                  uint16
	GameTimer              uint32
	ItemSpawnBitfield1     uint8
	ItemSpawnBitfield2     uint8
	ItemSpawnBitfield3     uint8
	ItemSpawnBitfield4     uint8
	ItemSpawnBitfield5     uint8
	DamageRatio            float32
}

// Language enumerates the language options.
type Language uint8

// Languages
const (
	Japanese Language = iota
	English
)

// GameStartPayload represents the GameStart Slippi event: replay version,
// match rules, all four player slots, and the scene/region flags that
// round out the header.
type GameStartPayload struct {
	Version        semver.Version
	GameInfoBlock  GameInfoBlock
	Players        [4]PlayerInfo
	RandomSeed     uint32
	PAL            bool
	FrozenPS       bool
	MajorScene     uint8
	MinorScene     uint8
	LanguageOption Language
	// encodedFlag mirrors schema.OSlpEnc: nonzero when the codec has
	// already transformed this replay. See IsEncoded.
	encodedFlag uint8
}

// FrameUpdate holds the fields common to both halves (pre- and
// post-frame-update) of a per-player frame record.
type FrameUpdate struct {
	FrameNumber     int32
	PlayerIndex     uint8
	IsFollower      bool
	ActionStateID   uint16
	XPosition       float32
	YPosition       float32
	FacingDirection float32
	Percent         float32
}

// FrameUpdatePayload is implemented by PreFrameUpdatePayload and
// PostFrameUpdatePayload so callers that only need the shared fields don't
// have to switch on which half they hold.
type FrameUpdatePayload interface {
	GetFrameUpdate() FrameUpdate
}

// PreFrameUpdatePayload represents the PreFrameUpdate Slippi event: the
// inputs and RNG state sampled before the game simulates a frame.
type PreFrameUpdatePayload struct {
	FrameUpdate
	RandomSeed       uint32
	JoystickX        float32
	JoystickY        float32
	CStickX          float32
	CStickY          float32
	Trigger          float32
	ProcessedButtons uint32
	PhysicalButtons  uint16
	PhysicalLTrigger float32
	PhysicalRTrigger float32
	XAnalogUCF       uint8
}

// GetFrameUpdate implements FrameUpdatePayload.
func (u PreFrameUpdatePayload) GetFrameUpdate() FrameUpdate {
	return u.FrameUpdate
}

// LCancelStatus enumerates possible L-Cancel statuses.
type LCancelStatus uint8

// LCancelStatuses
const (
	None LCancelStatus = iota
	Successful
	Unsuccessful
)

// HurtboxCollisionState enumerates possible hurtbox collision states.
type HurtboxCollisionState uint8

// HurtboxCollisionStates
const (
	Vulnerable HurtboxCollisionState = iota
	Invulnerable
	Intangible
)

// PostFrameUpdatePayload represents the PostFrameUpdate Slippi event: the
// simulation's result for that frame, everything pre-frame-update couldn't
// know until physics and collision ran.
type PostFrameUpdatePayload struct {
	FrameUpdate
	InternalCharacterID     uint8
	ShieldSize              float32
	LastHittingAttackID     uint8
	CurrentComboCount       uint8
	LastHitBy               uint8
	StocksRemaining         uint8
	ActionStateFrameCounter float32
	StateBitFlags1          uint8
	StateBitFlags2          uint8
	StateBitFlags3          uint8
	StateBitFlags4          uint8
	StateBitFlags5          uint8
	MiscAS                  float32
	Airborne                bool
	LastGroundID            uint16
	JumpsRemaining          uint8
	LCancelStatus           LCancelStatus
	HurtboxCollisionState   HurtboxCollisionState
	SelfInducedAirXSpeed    float32
	SelfInducedYSpeed       float32
	AttackBasedXSpeed       float32
	AttackBasedYSpeed       float32
	SelfInducedGroundXSpeed float32
	HitlagFramesRemaining   float32
	AnimationIndex          uint32
}

// GetFrameUpdate implements FrameUpdatePayload.
func (u PostFrameUpdatePayload) GetFrameUpdate() FrameUpdate {
	return u.FrameUpdate
}

// GameEndMethod enumerates the game end methods in Melee.
type GameEndMethod uint8

// GameEndMethods
const (
	Unresolved GameEndMethod = 0
	Time                     = 1
	Game                     = 2
	Resolved                 = 3
	NoContest                = 7
)

func (m GameEndMethod) String() string {
	switch m {
	case Unresolved:
		return "Unresolved"
	case Time:
		return "Time"
	case Game:
		return "Game"
	case Resolved:
		return "Resolved"
	case NoContest:
		return "NoContest"
	default:
		return unknownByte("GameEndMethod", byte(m))
	}
}

// GameEndPayload represents the GameEnd Slippi event.
type GameEndPayload struct {
	GameEndMethod GameEndMethod
	LRASInitiator int8
}

// FrameStartPayload represents the FrameStart Slippi event: the one-time
// per-frame marker that opens the frame before any player or item events.
type FrameStartPayload struct {
	FrameNumber       int32
	RandomSeed        uint32
	SceneFrameCounter uint32
}

// ItemUpdatePayload represents the ItemUpdate Slippi event.
type ItemUpdatePayload struct {
	FrameNumber      int32
	TypeID           uint16
	State            uint8
	FacingDirection  float32
	XVelocity        float32
	YVelocity        float32
	XPosition        float32
	YPosition        float32
	DamageTaken      uint16
	ExpirationTimer  float32
	SpawnID          uint32
	SamusMissileType uint8
	PeachTurnipFace  uint8
	IsLaunched       uint8
	ChargedPower     uint8
	Owner            int8
}

// FrameBookendPayload represents the FrameBookend Slippi event: the
// one-time per-frame marker that closes the frame and tells a rollback
// reader which frame is actually final.
type FrameBookendPayload struct {
	FrameNumber          int32
	LatestFinalizedFrame int32
}

// GeckoListPayload represents the GeckoList Slippi event: the gecko-codes
// blob carried by a single GeckoList event, as read from the stream.
// MessageSplitter fragments are not joined into it.
type GeckoListPayload struct {
	GeckoCodes []byte
}

// unknownByte formats an enum value outside its known set the way a
// Stringer is expected to: readable, not a silent zero value.
func unknownByte(kind string, b byte) string {
	const hexDigits = "0123456789abcdef"
	return kind + "(0x" + string([]byte{hexDigits[b>>4], hexDigits[b&0xF]}) + ")"
}
