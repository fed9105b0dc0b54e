package codec

import (
	"testing"

	"github.com/blang/semver/v4"
)

func TestLegacyRollApplyRNGRollsRoundTrip(t *testing.T) {
	seed := uint32(0x12345678)
	target := seed
	for i := 0; i < 5; i++ {
		target = legacyRoll(target)
	}
	if got := applyRNGRolls(seed, 5); got != target {
		t.Errorf("applyRNGRolls(seed, 5) = %#x, want %#x", got, target)
	}
}

func TestPredictRNGLegacyFindsRollCount(t *testing.T) {
	version := semver.MustParse("3.5.0")
	seed := uint32(0xCAFEBABE)
	target := seed
	for i := 0; i < 10; i++ {
		target = legacyRoll(target)
	}

	rolls, ok := predictRNG(version, 0, seed, seed, target)
	if !ok {
		t.Fatal("predictRNG should find a roll count within maxRolls")
	}
	if rolls != 10 {
		t.Errorf("predictRNG rolls = %d, want 10", rolls)
	}
}

func TestPredictRNGLegacyFailsBeyondMaxRolls(t *testing.T) {
	version := semver.MustParse("3.5.0")
	seed := uint32(1)
	target := seed
	for i := 0; i <= maxRolls+1; i++ {
		target = legacyRoll(target)
	}

	if _, ok := predictRNG(version, 0, seed, seed, target); ok {
		t.Error("predictRNG should fail when the target is beyond maxRolls")
	}
}

func TestPredictRNGRollbackSafeDirectMatch(t *testing.T) {
	version := semver.MustParse("3.6.0")
	seed0 := uint32(42)
	frame := int32(100)
	target := rollbackSeed(frame, seed0)

	rolls, ok := predictRNG(version, frame, seed0, seed0, target)
	if !ok {
		t.Fatal("predictRNG should match the direct rollback-safe seed")
	}
	if rolls != 0 {
		t.Errorf("predictRNG rolls = %d, want 0 for a direct rollback-seed match", rolls)
	}
}

func TestRollbackSeedFormula(t *testing.T) {
	got := rollbackSeed(0, 10)
	want := uint32(123*65536) + 10
	if got != want {
		t.Errorf("rollbackSeed(0, 10) = %d, want %d", got, want)
	}
}
