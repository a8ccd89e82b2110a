package game

import "testing"

func TestResolve(t *testing.T) {
	cases := []struct {
		m1, m2 Move
		want   Outcome
	}{
		{MoveRock, MoveScissors, OutcomePlayer1},
		{MoveScissors, MovePaper, OutcomePlayer1},
		{MovePaper, MoveRock, OutcomePlayer1},
		{MoveScissors, MoveRock, OutcomePlayer2},
		{MovePaper, MoveScissors, OutcomePlayer2},
		{MoveRock, MovePaper, OutcomePlayer2},
		{MoveRock, MoveRock, OutcomeDraw},
		{MovePaper, MovePaper, OutcomeDraw},
		{MoveScissors, MoveScissors, OutcomeDraw},
	}

	for _, tc := range cases {
		if got := Resolve(tc.m1, tc.m2); got != tc.want {
			t.Fatalf("Resolve(%s,%s) = %v; want %v", tc.m1, tc.m2, got, tc.want)
		}
	}
}

// результат должен быть антисимметричным: если m1 бьет m2, то m2 проигрывает m1
func TestResolveAntisymmetric(t *testing.T) {
	for _, a := range allMoves {
		for _, b := range allMoves {
			ab := Resolve(a, b)
			ba := Resolve(b, a)
			switch ab {
			case OutcomeDraw:
				if ba != OutcomeDraw {
					t.Fatalf("Resolve(%s,%s)=draw but Resolve(%s,%s)=%v", a, b, b, a, ba)
				}
			case OutcomePlayer1:
				if ba != OutcomePlayer2 {
					t.Fatalf("Resolve(%s,%s)=p1 but Resolve(%s,%s)=%v", a, b, b, a, ba)
				}
			case OutcomePlayer2:
				if ba != OutcomePlayer1 {
					t.Fatalf("Resolve(%s,%s)=p2 but Resolve(%s,%s)=%v", a, b, b, a, ba)
				}
			}
		}
	}
}

func TestParseMove(t *testing.T) {
	for _, s := range []string{"rock", "paper", "scissors"} {
		if _, err := ParseMove(s); err != nil {
			t.Fatalf("ParseMove(%q) unexpected error: %v", s, err)
		}
	}
	for _, s := range []string{"", "ROCK", "lizard", "spock", "rock "} {
		if _, err := ParseMove(s); err == nil {
			t.Fatalf("ParseMove(%q) expected error", s)
		}
	}
}

func TestRandomDistinctMoves(t *testing.T) {
	for i := 0; i < 200; i++ {
		a, b := RandomDistinctMoves()
		if a == b {
			t.Fatalf("RandomDistinctMoves returned equal moves %s", a)
		}
		if _, err := ParseMove(string(a)); err != nil {
			t.Fatalf("invalid move %q", a)
		}
		if _, err := ParseMove(string(b)); err != nil {
			t.Fatalf("invalid move %q", b)
		}
	}
}
