package solver

import "testing"

func TestWorst(t *testing.T) {
	cases := []struct {
		a, b, want Status
	}{
		{StatusOptimal, StatusOptimal, StatusOptimal},
		{StatusOptimal, StatusFeasible, StatusFeasible},
		{StatusFeasible, StatusUnknown, StatusUnknown},
		{StatusUnknown, StatusInfeasible, StatusInfeasible},
		{StatusInfeasible, StatusInvalid, StatusInvalid},
		{StatusOptimal, StatusInvalid, StatusInvalid},
	}
	for _, tc := range cases {
		if got := Worst(tc.a, tc.b); got != tc.want {
			t.Errorf("Worst(%s, %s) = %s, want %s", tc.a, tc.b, got, tc.want)
		}
		if got := Worst(tc.b, tc.a); got != tc.want {
			t.Errorf("Worst(%s, %s) = %s, want %s", tc.b, tc.a, got, tc.want)
		}
	}
}

func TestStatusDecodable(t *testing.T) {
	if !StatusOptimal.Decodable() || !StatusFeasible.Decodable() {
		t.Fatal("optimal and feasible must decode")
	}
	if StatusInfeasible.Decodable() || StatusInvalid.Decodable() || StatusUnknown.Decodable() {
		t.Fatal("non-solutions must not decode")
	}
}
