package analyzer

import "testing"

func TestMirrorIsInvolution(t *testing.T) {
	for d := Positioning; d < lastDynamic; d++ {
		if got := Mirror(Mirror(d)); got != d {
			t.Errorf("Mirror(Mirror(%v)) = %v, want %v", d, got, d)
		}
	}
}

func TestMirrorPairings(t *testing.T) {
	pairs := map[Dynamic]Dynamic{
		Recovering: Edgeguarding,
		Escaping:   Techchasing,
		Pressured:  Pressuring,
		Punished:   Punishing,
		Grounding:  Sharking,
	}
	for a, b := range pairs {
		if Mirror(a) != b {
			t.Errorf("Mirror(%v) = %v, want %v", a, Mirror(a), b)
		}
		if Mirror(b) != a {
			t.Errorf("Mirror(%v) = %v, want %v", b, Mirror(b), a)
		}
	}
}

func TestMirrorNeutralIsIdentity(t *testing.T) {
	for _, d := range []Dynamic{Positioning, Footsies, Trading, Poking} {
		if Mirror(d) != d {
			t.Errorf("Mirror(%v) = %v, want %v (neutral dynamics pass through)", d, Mirror(d), d)
		}
	}
}

func TestIsDefensiveOffensiveNeutralPartition(t *testing.T) {
	for d := Positioning; d < lastDynamic; d++ {
		if d == dynamicDefensive || d == dynamicOffensive {
			continue
		}
		count := 0
		if IsNeutral(d) {
			count++
		}
		if IsDefensive(d) {
			count++
		}
		if IsOffensive(d) {
			count++
		}
		if count != 1 {
			t.Errorf("%v should be in exactly one of neutral/defensive/offensive, was in %d", d, count)
		}
	}
}

func TestDefensiveOffensiveAreMirrorsOfEachOther(t *testing.T) {
	for d := Positioning; d < lastDynamic; d++ {
		if d == dynamicDefensive || d == dynamicOffensive {
			continue
		}
		if IsDefensive(d) && !IsOffensive(Mirror(d)) {
			t.Errorf("Mirror(%v) = %v should be offensive", d, Mirror(d))
		}
		if IsOffensive(d) && !IsDefensive(Mirror(d)) {
			t.Errorf("Mirror(%v) = %v should be defensive", d, Mirror(d))
		}
	}
}

func TestDynamicStringCoversEveryValue(t *testing.T) {
	for d := Positioning; d < lastDynamic; d++ {
		if d == dynamicDefensive || d == dynamicOffensive {
			continue
		}
		if got := d.String(); got == "UNKNOWN" {
			t.Errorf("Dynamic(%d).String() = UNKNOWN, every named value should have a label", int(d))
		}
	}
}
