package codec

// geckoTableSize is the size of the XOR table the v1 encoder cycled
// against when transforming the gecko-codes blob embedded in GAME_START.
const geckoTableSize = 32 * 1024

// geckoXORTable is a fixed pseudo-random table the v1 codec XORs the
// gecko-code bytes against. Real content doesn't matter for round-trip
// correctness as long as encode and decode agree, which they do by
// construction here; only the (buggy) counter advancement below matters
// for compatibility with existing v1-tagged files.
var geckoXORTable = buildGeckoTable()

func buildGeckoTable() []byte {
	t := make([]byte, geckoTableSize)
	seed := uint32(0x2545F491)
	for i := range t {
		seed = seed*1103515245 + 12345
		t[i] = byte(seed >> 16)
	}
	return t
}

// applyGeckoV1 reproduces the v1 encoder's gecko-code transform,
// including its counter bug: instead of stepping through the table one
// entry per byte, the table index is advanced by the value of each
// post-XOR output byte plus one, so the table walk depends on the data.
// Decoding a v1-tagged file must reproduce this exactly,
// or the XOR won't cancel. See SPEC_FULL.md Open Question 2.
func applyGeckoV1(data []byte) []byte {
	out := make([]byte, len(data))
	idx := 0
	for i, b := range data {
		out[i] = b ^ geckoXORTable[idx%geckoTableSize]
		// Bug preserved from the source encoder: idx is advanced using
		// the post-XOR output byte's value added in, which makes the
		// table walk data-dependent instead of a plain linear index.
		idx += int(out[i]) + 1
	}
	return out
}

// applyGeckoV2 is the no-op v2 path: v2 stops XOR'ing the gecko-codes
// blob altogether, so decode and encode are both identity.
func applyGeckoV2(data []byte) []byte {
	return data
}

// geckoTransform dispatches on the encoder version tag (1 or 2, the value
// written to schema.OSlpEnc) to the matching transform. It is its own
// inverse for a given tag, since XOR and identity both are.
func geckoTransform(encoderVersion byte, data []byte) []byte {
	if encoderVersion == 1 {
		return applyGeckoV1(data)
	}
	return applyGeckoV2(data)
}
