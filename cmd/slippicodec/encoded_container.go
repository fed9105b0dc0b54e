package main

import (
	"encoding/binary"
	"encoding/json"

	"github.com/pkg/errors"

	slippi "github.com/slippicodec/go-slippi-codec"
	"github.com/slippicodec/go-slippi-codec/shuffle"
)

// encodedContainerTag marks the body of a transformed (-x) output file as
// this driver's own shuffled, codec-transformed container rather than a
// plain typed-event .slp stream. It sits at the same offset the first
// event command byte would occupy (raw offset 15) and is chosen outside
// the real command-byte range (0x10, 0x35-0x3D) so the two forms never
// collide.
const encodedContainerTag byte = 0xEE

// isEncodedContainer reports whether raw (already decompressed, if it was
// compressed) is this driver's encoded container rather than a plain
// typed-event replay.
func isEncodedContainer(raw []byte) bool {
	return len(raw) > 15 && raw[15] == encodedContainerTag
}

// writeEncodedContainer serializes gi, a shuffled frame set, and the
// game-end event into the raw region of a .slp-shaped file: the standard
// 15-byte preamble (satisfying the "{U\x03raw" magic check on every
// transformed output, encoded or not) followed by this driver's own
// length-prefixed bin layout instead of a typed per-frame event stream.
// gi and gameEnd are carried as JSON rather than re-deriving the full
// fixed-offset GAME_START byte layout a second time: nothing downstream
// of this driver reads the container directly, only readEncodedContainer.
func writeEncodedContainer(gi *slippi.GameInfo, shuffled *shuffle.Shuffled, gameEnd *slippi.GameEndPayload, encoderTag byte) ([]byte, error) {
	giJSON, err := json.Marshal(gi)
	if err != nil {
		return nil, errors.Wrap(err, "marshal game info")
	}
	var endJSON []byte
	if gameEnd != nil {
		endJSON, err = json.Marshal(gameEnd)
		if err != nil {
			return nil, errors.Wrap(err, "marshal game end")
		}
	}

	body := make([]byte, 0, len(giJSON)+len(endJSON)+4096)
	body = append(body, encodedContainerTag, encoderTag)
	body = appendLenPrefixed(body, giJSON)
	body = appendLenPrefixed(body, endJSON)
	for i := 0; i < len(shuffled.Bins); i++ {
		body = appendUint32(body, uint32(shuffled.RowCounts[i]))
		body = appendLenPrefixed(body, shuffled.Bins[i])
	}
	body = appendLenPrefixed(body, shuffled.SplitMessage)

	out := make([]byte, 0, 15+len(body))
	out = append(out, preambleBytes()...)
	out = appendUint32(out, uint32(len(body)))
	out = append(out, body...)
	return out, nil
}

// readEncodedContainer reverses writeEncodedContainer, also returning the
// encoder-version tag the container was written with (schema.OSlpEnc's
// in-container equivalent), so the caller decodes gecko codes with the
// tag actually used rather than assuming the current codec.EncoderVersion.
func readEncodedContainer(raw []byte) (*slippi.GameInfo, *shuffle.Shuffled, *slippi.GameEndPayload, byte, error) {
	if !isEncodedContainer(raw) {
		return nil, nil, nil, 0, errors.New("not an encoded container")
	}
	body := raw[16:] // skip preamble(11) + rawLength(4) + tag(1)

	encoderTag := body[0]
	body = body[1:]

	giJSON, body, err := readLenPrefixed(body)
	if err != nil {
		return nil, nil, nil, 0, errors.Wrap(err, "read game info")
	}
	gi := &slippi.GameInfo{}
	if err := json.Unmarshal(giJSON, gi); err != nil {
		return nil, nil, nil, 0, errors.Wrap(err, "unmarshal game info")
	}

	endJSON, body, err := readLenPrefixed(body)
	if err != nil {
		return nil, nil, nil, 0, errors.Wrap(err, "read game end")
	}
	var gameEnd *slippi.GameEndPayload
	if len(endJSON) > 0 {
		gameEnd = &slippi.GameEndPayload{}
		if err := json.Unmarshal(endJSON, gameEnd); err != nil {
			return nil, nil, nil, 0, errors.Wrap(err, "unmarshal game end")
		}
	}

	shuffled := &shuffle.Shuffled{}
	for i := range shuffled.Bins {
		if len(body) < 4 {
			return nil, nil, nil, 0, errors.New("truncated container: bin row count")
		}
		rowCount := binary.BigEndian.Uint32(body[:4])
		body = body[4:]
		var bin []byte
		bin, body, err = readLenPrefixed(body)
		if err != nil {
			return nil, nil, nil, 0, errors.Wrapf(err, "read bin %d", i)
		}
		shuffled.RowCounts[i] = int(rowCount)
		shuffled.Bins[i] = bin
	}

	splitMsg, _, err := readLenPrefixed(body)
	if err != nil {
		return nil, nil, nil, 0, errors.Wrap(err, "read split message")
	}
	shuffled.SplitMessage = splitMsg

	return gi, shuffled, gameEnd, encoderTag, nil
}

// preambleBytes is the fixed 11-byte magic every .slp-shaped file begins
// with (slippi.preambleMagic isn't exported, so this driver carries its
// own copy for the container it writes directly).
func preambleBytes() []byte {
	return []byte{0x7B, 0x55, 0x03, 0x72, 0x61, 0x77, 0x5B, 0x24, 0x55, 0x23, 0x6C}
}

func appendUint32(b []byte, v uint32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return append(b, buf[:]...)
}

func appendLenPrefixed(b []byte, v []byte) []byte {
	b = appendUint32(b, uint32(len(v)))
	return append(b, v...)
}

func readLenPrefixed(b []byte) (value []byte, rest []byte, err error) {
	if len(b) < 4 {
		return nil, nil, errors.New("truncated length prefix")
	}
	n := binary.BigEndian.Uint32(b[:4])
	b = b[4:]
	if uint32(len(b)) < n {
		return nil, nil, errors.New("truncated length-prefixed value")
	}
	return b[:n], b[n:], nil
}
