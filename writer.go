package slippi

import (
	"bytes"
	"strconv"

	"github.com/jmank88/ubjson"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/japanese"

	"github.com/slippicodec/go-slippi-codec/binutil"
	"github.com/slippicodec/go-slippi-codec/schema"
)

// Fixed payload sizes this writer declares in the EVENT_PAYLOADS table.
// Each is large enough to hold every offset reader.go's parsePayload reads
// for that command; bytes beyond a struct's known fields are left zero.
const (
	gameStartPayloadSize  = 0x3F0
	preFramePayloadSize   = 0x3F
	postFramePayloadSize  = 0x50
	gameEndPayloadSize    = 0x2
	frameStartPayloadSize = 0xC
	itemUpdatePayloadSize = 0x2A
	bookendPayloadSize    = 0x8
)

// WriteReplay serializes gi, frames, and gameEnd into a raw .slp byte
// stream that NewSlpReader can parse back: the fixed 15-byte preamble, an
// EVENT_PAYLOADS size table, GAME_START, the per-frame event sequence in
// ascending frame order, GAME_END, and a minimal UBJSON metadata trailer.
// encodedFlag is written into GAME_START's schema.OSlpEnc byte so the
// result round-trips through GameStartPayload.IsEncoded. geckoCodes, if
// non-empty, is emitted as a single GeckoList event right after GAME_END.
func WriteReplay(gi *GameInfo, frames map[int32]FrameEntry, gameEnd *GameEndPayload, encodedFlag byte, geckoCodes []byte) ([]byte, error) {
	if gi == nil {
		return nil, errors.New("writer: nil game info")
	}

	var buf bytes.Buffer
	buf.Write(preambleMagic[:])
	rawLenPos := buf.Len()
	buf.Write(make([]byte, 4))

	rawStart := buf.Len()
	if err := writeEventPayloadsTable(&buf, len(geckoCodes)); err != nil {
		return nil, err
	}
	if err := writeGameStart(&buf, gi, encodedFlag); err != nil {
		return nil, err
	}

	for _, fn := range sortedFrameNumbersForWrite(frames) {
		frame := frames[fn]
		writeFrame(&buf, fn, frame)
	}

	if gameEnd == nil {
		gameEnd = &GameEndPayload{GameEndMethod: Unresolved}
	}
	writeGameEnd(&buf, gameEnd)

	if len(geckoCodes) > 0 {
		buf.WriteByte(byte(GeckoList))
		buf.Write(geckoCodes)
	}

	rawLength := uint32(buf.Len() - rawStart)
	out := buf.Bytes()
	binutil.WriteBE4U(out[rawLenPos:rawLenPos+4], rawLength)

	buf.WriteByte('U')
	buf.WriteByte(8)
	buf.WriteString("metadata")
	enc := ubjson.NewEncoder(&buf)
	if err := enc.Encode(buildMetadata(gi, frames)); err != nil {
		return nil, errors.Wrap(err, "writer: encode metadata")
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// writeEventPayloadsTable writes the EVENT_PAYLOADS event (command 0x35)
// declaring the fixed size of every other event command this writer uses.
// geckoLen is the exact byte length of the gecko-codes blob that follows
// GAME_END, if any: NewSlpReader sizes its read buffer for a command
// strictly from this table, so GeckoList's declared size must match the
// blob precisely or the reader desyncs on the next command byte.
func writeEventPayloadsTable(buf *bytes.Buffer, geckoLen int) error {
	type entry struct {
		command byte
		size    uint16
	}
	entries := []entry{
		{byte(GameStart), gameStartPayloadSize},
		{byte(PreFrameUpdate), preFramePayloadSize},
		{byte(PostFrameUpdate), postFramePayloadSize},
		{byte(GameEnd), gameEndPayloadSize},
		{byte(FrameStart), frameStartPayloadSize},
		{byte(ItemUpdate), itemUpdatePayloadSize},
		{byte(FrameBookend), bookendPayloadSize},
	}
	if geckoLen > 0 {
		if geckoLen > 0xFFFF {
			return errors.New("writer: gecko code list too large")
		}
		entries = append(entries, entry{byte(GeckoList), uint16(geckoLen)})
	}

	payloadsLength := 1 + 3*len(entries)
	if payloadsLength > 0xFF {
		return errors.New("writer: event payloads table too large")
	}

	buf.WriteByte(byte(EventPayloads))
	buf.WriteByte(byte(payloadsLength))
	for _, e := range entries {
		buf.WriteByte(e.command)
		var sizeBuf [2]byte
		binutil.WriteBE2U(sizeBuf[:], e.size)
		buf.Write(sizeBuf[:])
	}
	return nil
}

func writeGameStart(buf *bytes.Buffer, gi *GameInfo, encodedFlag byte) error {
	payload := make([]byte, gameStartPayloadSize)

	payload[0] = byte(gi.Version.Major)
	payload[1] = byte(gi.Version.Minor)
	payload[2] = byte(gi.Version.Patch)
	payload[schema.OSlpEnc-1] = encodedFlag
	if gi.Teams {
		payload[0xC] = 1
	}
	binutil.WriteBE2U(payload[0x12:0x14], gi.Stage)
	if gi.PAL {
		payload[0x1A0] = 1
	}
	payload[0x1A3] = gi.MajorScene
	payload[0x1A2] = gi.MinorScene

	// Every slot defaults to Empty: writePlayerBlock only runs for the
	// slots gi.Players actually fills, and a zero-valued PlayerType would
	// otherwise decode as Human (parser.go's handleGameStart keeps every
	// non-Empty slot), fabricating phantom players on replays with fewer
	// than four.
	for i := 0; i < 4; i++ {
		gameInfoOffset := 0x64 + 0x24*i
		payload[gameInfoOffset+1] = byte(Empty)
	}
	for i, player := range gi.Players {
		if i >= 4 {
			break
		}
		if err := writePlayerBlock(payload, i, player); err != nil {
			return err
		}
	}

	buf.WriteByte(byte(GameStart))
	buf.Write(payload)
	return nil
}

func writePlayerBlock(payload []byte, playerIndex int, player PlayerInfo) error {
	gameInfoOffset := 0x64 + 0x24*playerIndex
	payload[gameInfoOffset] = player.CharacterID
	payload[gameInfoOffset+1] = byte(player.PlayerType)
	payload[gameInfoOffset+2] = player.StockStartCount
	payload[gameInfoOffset+3] = player.CostumeIndex
	payload[gameInfoOffset+7] = byte(player.TeamShade)
	payload[gameInfoOffset+8] = player.Handicap
	payload[gameInfoOffset+9] = byte(player.TeamID)
	payload[gameInfoOffset+0xC] = player.PlayerBitfield
	payload[gameInfoOffset+0xF] = player.CPULevel
	binutil.WriteBE4F(payload[gameInfoOffset+0x18:gameInfoOffset+0x1C], player.OffenseRatio)
	binutil.WriteBE4F(payload[gameInfoOffset+0x1C:gameInfoOffset+0x20], player.DefenseRatio)
	binutil.WriteBE4F(payload[gameInfoOffset+0x20:gameInfoOffset+0x24], player.ModelScale)

	fixOffset := 0x140 + 0x8*playerIndex
	binutil.WriteBE4U(payload[fixOffset:fixOffset+4], uint32(player.DashbackFix))
	binutil.WriteBE4U(payload[fixOffset+4:fixOffset+8], uint32(player.ShieldDropFix))

	nametagOffset := 0x160 + 0x10*playerIndex
	if err := writeShiftJIS(payload[nametagOffset:nametagOffset+0x10], player.Nametag); err != nil {
		return err
	}

	displayNameOffset := 0x1A4 + 0x1F*playerIndex
	if err := writeShiftJIS(payload[displayNameOffset:displayNameOffset+0x1F], player.DisplayName); err != nil {
		return err
	}

	connectCodeOffset := 0x220 + 0xA*playerIndex
	if err := writeShiftJIS(payload[connectCodeOffset:connectCodeOffset+0xB], player.ConnectCode); err != nil {
		return err
	}

	slippiUIDOffset := 0x248 + 0x1D*playerIndex
	copy(payload[slippiUIDOffset:slippiUIDOffset+0x1D], player.SlippiUID)

	return nil
}

// writeShiftJIS encodes s into dst, which is zeroed first so any unused
// trailing bytes form the null terminator decodeShiftJIS expects. A
// too-long s is truncated to dst's width rather than erroring.
func writeShiftJIS(dst []byte, s string) error {
	for i := range dst {
		dst[i] = 0
	}
	encoded, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return errors.Wrap(err, "writer: encode shift-jis field")
	}
	copy(dst, encoded)
	return nil
}

func writeFrame(buf *bytes.Buffer, fn int32, frame FrameEntry) {
	if frame.Start != nil {
		writeFrameStart(buf, frame.Start)
	}
	for idx := uint8(0); idx < 4; idx++ {
		if upd, ok := frame.Players[idx]; ok && upd.Pre != nil {
			writePreFrame(buf, upd.Pre)
		}
	}
	for idx := uint8(0); idx < 4; idx++ {
		if upd, ok := frame.Followers[idx]; ok && upd.Pre != nil {
			writePreFrame(buf, upd.Pre)
		}
	}
	for i := range frame.Items {
		writeItem(buf, &frame.Items[i])
	}
	for idx := uint8(0); idx < 4; idx++ {
		if upd, ok := frame.Players[idx]; ok && upd.Post != nil {
			writePostFrame(buf, upd.Post)
		}
	}
	for idx := uint8(0); idx < 4; idx++ {
		if upd, ok := frame.Followers[idx]; ok && upd.Post != nil {
			writePostFrame(buf, upd.Post)
		}
	}
	if frame.Bookend != nil {
		writeBookend(buf, frame.Bookend)
	}
}

func writeFrameStart(buf *bytes.Buffer, p *FrameStartPayload) {
	payload := make([]byte, frameStartPayloadSize)
	binutil.WriteBE4S(payload[0x0:0x4], p.FrameNumber)
	binutil.WriteBE4U(payload[0x4:0x8], p.RandomSeed)
	binutil.WriteBE4U(payload[0x8:0xC], p.SceneFrameCounter)
	buf.WriteByte(byte(FrameStart))
	buf.Write(payload)
}

func writePreFrame(buf *bytes.Buffer, p *PreFrameUpdatePayload) {
	payload := make([]byte, preFramePayloadSize)
	binutil.WriteBE4S(payload[0x0:0x4], p.FrameNumber)
	payload[0x4] = p.PlayerIndex
	if p.IsFollower {
		payload[0x5] = 1
	}
	binutil.WriteBE4U(payload[0x6:0xA], p.RandomSeed)
	binutil.WriteBE2U(payload[0xA:0xC], p.ActionStateID)
	binutil.WriteBE4F(payload[0xC:0x10], p.XPosition)
	binutil.WriteBE4F(payload[0x10:0x14], p.YPosition)
	binutil.WriteBE4F(payload[0x14:0x18], p.FacingDirection)
	binutil.WriteBE4F(payload[0x18:0x1C], p.JoystickX)
	binutil.WriteBE4F(payload[0x1C:0x20], p.JoystickY)
	binutil.WriteBE4F(payload[0x20:0x24], p.CStickX)
	binutil.WriteBE4F(payload[0x24:0x28], p.CStickY)
	binutil.WriteBE4F(payload[0x28:0x2C], p.Trigger)
	binutil.WriteBE4U(payload[0x2C:0x30], p.ProcessedButtons)
	binutil.WriteBE2U(payload[0x30:0x32], p.PhysicalButtons)
	binutil.WriteBE4F(payload[0x32:0x36], p.PhysicalLTrigger)
	binutil.WriteBE4F(payload[0x36:0x3A], p.PhysicalRTrigger)
	payload[0x3A] = p.XAnalogUCF
	binutil.WriteBE4F(payload[0x3B:0x3F], p.Percent)
	buf.WriteByte(byte(PreFrameUpdate))
	buf.Write(payload)
}

func writePostFrame(buf *bytes.Buffer, p *PostFrameUpdatePayload) {
	payload := make([]byte, postFramePayloadSize)
	binutil.WriteBE4S(payload[0x0:0x4], p.FrameNumber)
	payload[0x4] = p.PlayerIndex
	if p.IsFollower {
		payload[0x5] = 1
	}
	payload[0x6] = p.InternalCharacterID
	binutil.WriteBE2U(payload[0x7:0x9], p.ActionStateID)
	binutil.WriteBE4F(payload[0x9:0xD], p.XPosition)
	binutil.WriteBE4F(payload[0xD:0x11], p.YPosition)
	binutil.WriteBE4F(payload[0x11:0x15], p.FacingDirection)
	binutil.WriteBE4F(payload[0x15:0x19], p.Percent)
	binutil.WriteBE4F(payload[0x19:0x1D], p.ShieldSize)
	payload[0x1D] = p.LastHittingAttackID
	payload[0x1E] = p.CurrentComboCount
	payload[0x1F] = p.LastHitBy
	payload[0x20] = p.StocksRemaining
	binutil.WriteBE4F(payload[0x21:0x25], p.ActionStateFrameCounter)
	payload[0x25] = p.StateBitFlags1
	payload[0x26] = p.StateBitFlags2
	payload[0x27] = p.StateBitFlags3
	payload[0x28] = p.StateBitFlags4
	payload[0x29] = p.StateBitFlags5
	binutil.WriteBE4F(payload[0x2A:0x2E], p.MiscAS)
	if p.Airborne {
		payload[0x2E] = 1
	}
	binutil.WriteBE2U(payload[0x2F:0x31], p.LastGroundID)
	payload[0x31] = p.JumpsRemaining
	payload[0x32] = byte(p.LCancelStatus)
	payload[0x33] = byte(p.HurtboxCollisionState)
	binutil.WriteBE4F(payload[0x34:0x38], p.SelfInducedAirXSpeed)
	binutil.WriteBE4F(payload[0x38:0x3C], p.SelfInducedYSpeed)
	binutil.WriteBE4F(payload[0x3C:0x40], p.AttackBasedXSpeed)
	binutil.WriteBE4F(payload[0x40:0x44], p.AttackBasedYSpeed)
	binutil.WriteBE4F(payload[0x44:0x48], p.SelfInducedGroundXSpeed)
	binutil.WriteBE4F(payload[0x48:0x4C], p.HitlagFramesRemaining)
	binutil.WriteBE4U(payload[0x4C:0x50], p.AnimationIndex)
	buf.WriteByte(byte(PostFrameUpdate))
	buf.Write(payload)
}

func writeItem(buf *bytes.Buffer, it *ItemUpdatePayload) {
	payload := make([]byte, itemUpdatePayloadSize)
	binutil.WriteBE4S(payload[0x0:0x4], it.FrameNumber)
	binutil.WriteBE2U(payload[0x4:0x6], it.TypeID)
	payload[0x6] = it.State
	binutil.WriteBE4F(payload[0x7:0xB], it.FacingDirection)
	binutil.WriteBE4F(payload[0xB:0xF], it.XVelocity)
	binutil.WriteBE4F(payload[0xF:0x13], it.YVelocity)
	binutil.WriteBE4F(payload[0x13:0x17], it.XPosition)
	binutil.WriteBE4F(payload[0x17:0x1B], it.YPosition)
	binutil.WriteBE2U(payload[0x1B:0x1D], it.DamageTaken)
	binutil.WriteBE4F(payload[0x1D:0x21], it.ExpirationTimer)
	binutil.WriteBE4U(payload[0x21:0x25], it.SpawnID)
	payload[0x25] = it.SamusMissileType
	payload[0x26] = it.PeachTurnipFace
	payload[0x27] = it.IsLaunched
	payload[0x28] = it.ChargedPower
	payload[0x29] = byte(it.Owner)
	buf.WriteByte(byte(ItemUpdate))
	buf.Write(payload)
}

func writeBookend(buf *bytes.Buffer, p *FrameBookendPayload) {
	payload := make([]byte, bookendPayloadSize)
	binutil.WriteBE4S(payload[0x0:0x4], p.FrameNumber)
	binutil.WriteBE4S(payload[0x4:0x8], p.LatestFinalizedFrame)
	buf.WriteByte(byte(FrameBookend))
	buf.Write(payload)
}

func writeGameEnd(buf *bytes.Buffer, p *GameEndPayload) {
	payload := make([]byte, gameEndPayloadSize)
	payload[0x0] = byte(p.GameEndMethod)
	payload[0x1] = byte(p.LRASInitiator)
	buf.WriteByte(byte(GameEnd))
	buf.Write(payload)
}

// buildMetadata derives a minimal Metadata trailer from what's available
// post-transform; the source replay's original metadata (timestamps,
// console nickname) isn't preserved by the parser's frame map, so this is
// reconstructed rather than copied.
func buildMetadata(gi *GameInfo, frames map[int32]FrameEntry) *Metadata {
	players := make(map[string]PlayerMetadata)
	for _, p := range gi.Players {
		// There is no per-character frame-count tally carried in
		// FrameEntry, so this reports a single placeholder count rather
		// than omitting the character entirely.
		characters := map[string]int32{strconv.Itoa(int(p.CharacterID)): 1}
		players[strconv.Itoa(int(p.Index))] = PlayerMetadata{
			Characters: characters,
			Names: Names{
				Netplay: p.DisplayName,
				Code:    p.ConnectCode,
			},
		}
	}
	return &Metadata{
		LastFrame: latestFrameNumberWritten(frames),
		Players:   players,
	}
}

func latestFrameNumberWritten(frames map[int32]FrameEntry) int32 {
	var max int32 = -1000
	for fn := range frames {
		if fn > max {
			max = fn
		}
	}
	return max
}

func sortedFrameNumbersForWrite(frames map[int32]FrameEntry) []int32 {
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
