package codec

import "github.com/blang/semver/v4"

// maxRolls bounds how many PRNG iterations the encoder will try before
// giving up and falling back to storing the raw seed, per compressor.cpp.
const maxRolls = 128

// rawRNGMask is the reserved bit in the encoded frame number signaling
// "the seed for this event is stored raw, not as a roll count".
const rawRNGMask int32 = 0x40000000

// rollbackRNGVersion is the version at which the game switched from the
// legacy linear-congruential PRNG to the rollback-safe, frame-seeded one.
var rollbackRNGVersion = semver.MustParse("3.6.0")

// legacyRoll advances the pre-3.6.0 PRNG one step:
// seed' = seed*214013 + 2531011 mod 2^32.
func legacyRoll(seed uint32) uint32 {
	return seed*214013 + 2531011
}

// rollbackSeed computes the expected seed for a frame under the
// rollback-safe regime: (frame+123)*65536 + seed0 mod 2^32.
func rollbackSeed(frame int32, seed0 uint32) uint32 {
	return uint32((int64(frame)+123)*65536) + seed0
}

// predictRNG finds how many PRNG iterations separate current from target,
// trying the regime appropriate for version. It returns (rolls, ok); ok is
// false when no count within maxRolls reproduces target, in which case the
// caller must fall back to storing the raw seed and setting rawRNGMask.
func predictRNG(version semver.Version, frame int32, seed0, current, target uint32) (int, bool) {
	if version.GTE(rollbackRNGVersion) {
		expected := rollbackSeed(frame, seed0)
		if expected == target {
			return 0, true
		}
		seed := current
		for i := 1; i <= maxRolls; i++ {
			seed = legacyRoll(seed)
			if seed == target {
				return i, true
			}
		}
		// Second chance: roll forward from the rollback-predicted seed
		// with a legacy-style offset, as the source project does when
		// the frame-seeded prediction alone doesn't converge.
		seed = expected
		for i := 1; i <= maxRolls; i++ {
			seed = legacyRoll(seed)
			if seed == target {
				return i, true
			}
		}
		return 0, false
	}

	seed := current
	for i := 0; i <= maxRolls; i++ {
		if seed == target {
			return i, true
		}
		seed = legacyRoll(seed)
	}
	return 0, false
}

// applyRNGRolls advances seed by n legacy PRNG iterations, used by the
// decoder to reconstruct the original seed from a stored roll count.
func applyRNGRolls(seed uint32, n int) uint32 {
	for i := 0; i < n; i++ {
		seed = legacyRoll(seed)
	}
	return seed
}
