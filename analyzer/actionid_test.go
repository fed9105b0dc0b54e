package analyzer

import "testing"

func TestActionIDPredicatesAgreeWithRanges(t *testing.T) {
	cases := []struct {
		name string
		pred func(uint16) bool
		in   []uint16
		out  []uint16
	}{
		{"IsDeadState", IsDeadState, []uint16{0x0000, 0x0005, 0x000A}, []uint16{0x000B, 0xFFFF}},
		{"IsDamageState", IsDamageState, []uint16{0x004B, 0x0050, 0x0058}, []uint16{0x004A, 0x0059}},
		{"IsTechState", IsTechState, []uint16{0x0046, 0x0048, 0x004A}, []uint16{0x0045, 0x004B}},
		{"IsGrabbedState", IsGrabbedState, []uint16{0x00DF, 0x00E0, 0x00E8}, []uint16{0x00DE, 0x00E9}},
		{"IsShieldstunState", IsShieldstunState, []uint16{0x00B6}, []uint16{0x00B5, 0x00B7}},
		{"IsCliffWait", IsCliffWait, []uint16{0x00FC}, []uint16{0x00FB, 0x00FD}},
		{"IsDashState", IsDashState, []uint16{0x0014}, []uint16{0x0013, 0x0015}},
		{"IsTurnState", IsTurnState, []uint16{0x0012}, []uint16{0x0011, 0x0013}},
		{"IsRollState", IsRollState, []uint16{0x00E9, 0x00EA}, []uint16{0x00E8, 0x00EB}},
		{"IsSpotDodgeState", IsSpotDodgeState, []uint16{0x00EB}, []uint16{0x00EA, 0x00EC}},
		{"IsAirdodgeState", IsAirdodgeState, []uint16{0x00EC}, []uint16{0x00EB, 0x00ED}},
		{"IsEscapeAirState", IsEscapeAirState, []uint16{0x00C6}, []uint16{0x00C5, 0x00C7}},
		{"IsLandingFallSpecialState", IsLandingFallSpecialState, []uint16{0x00CE}, []uint16{0x00CD, 0x00CF}},
		{"IsJumpsquatState", IsJumpsquatState, []uint16{0x0018}, []uint16{0x0017, 0x0019}},
	}

	for _, c := range cases {
		for _, id := range c.in {
			if !c.pred(id) {
				t.Errorf("%s(%#x) = false, want true", c.name, id)
			}
		}
		for _, id := range c.out {
			if c.pred(id) {
				t.Errorf("%s(%#x) = true, want false", c.name, id)
			}
		}
	}
}
