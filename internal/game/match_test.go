package game

import "testing"

func newActiveMatch(t *testing.T) *Match {
	t.Helper()
	m := NewMatch("m1", KindPublic, "points", 100)
	if err := m.AddPlayer("p1", nil, "acc1", 5); err != nil {
		t.Fatalf("AddPlayer p1: %v", err)
	}
	if m.Status != StatusWaiting {
		t.Fatalf("status after first join = %s; want waiting", m.Status)
	}
	if err := m.AddPlayer("p2", nil, "acc2", 5); err != nil {
		t.Fatalf("AddPlayer p2: %v", err)
	}
	if m.Status != StatusActive {
		t.Fatalf("status after second join = %s; want active", m.Status)
	}
	return m
}

func TestPotFinalizedOnSecondJoin(t *testing.T) {
	m := newActiveMatch(t)
	if m.Pot != 200 {
		t.Fatalf("pot = %d; want 200", m.Pot)
	}
	if m.PlatformFee != 10 {
		t.Fatalf("fee = %d; want 10", m.PlatformFee)
	}
	if m.WinnerPayout != 190 {
		t.Fatalf("payout = %d; want 190", m.WinnerPayout)
	}
}

func TestAddPlayerFull(t *testing.T) {
	m := newActiveMatch(t)
	if err := m.AddPlayer("p3", nil, "acc3", 5); err != ErrMatchFull {
		t.Fatalf("third join err = %v; want ErrMatchFull", err)
	}
}

func TestProcessRoundRequiresBothMoves(t *testing.T) {
	m := newActiveMatch(t)
	if _, err := m.ProcessRound(); err != ErrMovesNotReady {
		t.Fatalf("ProcessRound without moves err = %v; want ErrMovesNotReady", err)
	}
	m.SetMove("p1", MoveRock)
	if _, err := m.ProcessRound(); err != ErrMovesNotReady {
		t.Fatalf("ProcessRound with one move err = %v; want ErrMovesNotReady", err)
	}
}

func TestMoveOverwrite(t *testing.T) {
	m := newActiveMatch(t)
	m.SetMove("p1", MoveRock)
	m.SetMove("p1", MovePaper)
	if got := *m.Slot("p1").CurrentMove; got != MovePaper {
		t.Fatalf("move after overwrite = %s; want paper", got)
	}
	if m.BothMoved() {
		t.Fatal("BothMoved true with one slot moved")
	}
}

// первый слот, набравший три победы, завершает матч
func TestBestOfFiveFlow(t *testing.T) {
	m := newActiveMatch(t)

	for i := 0; i < 3; i++ {
		m.SetMove("p1", MoveRock)
		m.SetMove("p2", MoveScissors)
		rec, err := m.ProcessRound()
		if err != nil {
			t.Fatalf("round %d: %v", i+1, err)
		}
		if rec.Winner != "p1" {
			t.Fatalf("round %d winner = %q; want p1", i+1, rec.Winner)
		}
		if rec.Round != i+1 {
			t.Fatalf("history round = %d; want %d", rec.Round, i+1)
		}
		// ходы остаются видимыми до AdvanceRound
		if !m.BothMoved() {
			t.Fatal("moves cleared by ProcessRound")
		}
		if m.Status == StatusActive {
			if err := m.AdvanceRound(); err != nil {
				t.Fatalf("AdvanceRound: %v", err)
			}
			if m.BothMoved() {
				t.Fatal("moves not cleared by AdvanceRound")
			}
		}
	}

	if m.Status != StatusFinished {
		t.Fatalf("status = %s; want finished", m.Status)
	}
	if m.WinnerID != "p1" {
		t.Fatalf("winner = %q; want p1", m.WinnerID)
	}
	if w := m.Slot("p1").Wins; w != 3 {
		t.Fatalf("p1 wins = %d; want 3", w)
	}
	if len(m.History) != 3 {
		t.Fatalf("history len = %d; want 3", len(m.History))
	}
}

func TestDrawIncrementsNobody(t *testing.T) {
	m := newActiveMatch(t)
	m.SetMove("p1", MoveRock)
	m.SetMove("p2", MoveRock)
	rec, err := m.ProcessRound()
	if err != nil {
		t.Fatal(err)
	}
	if rec.Winner != "" {
		t.Fatalf("draw winner = %q; want empty", rec.Winner)
	}
	if m.Slots[0].Wins != 0 || m.Slots[1].Wins != 0 {
		t.Fatal("draw changed win counts")
	}
	if m.Status != StatusActive {
		t.Fatalf("status = %s; want active", m.Status)
	}
}

func TestAdvanceRoundOnlyWhileActive(t *testing.T) {
	m := NewMatch("m2", KindPublic, "points", 100)
	if err := m.AdvanceRound(); err != ErrMatchNotActive {
		t.Fatalf("AdvanceRound on waiting err = %v; want ErrMatchNotActive", err)
	}
	m.Finish("p1")
	if err := m.AdvanceRound(); err != ErrMatchNotActive {
		t.Fatalf("AdvanceRound on finished err = %v; want ErrMatchNotActive", err)
	}
}

// статус не должен регрессировать после завершения
func TestStatusNeverRegresses(t *testing.T) {
	m := newActiveMatch(t)
	m.Finish("p1")
	if err := m.AddPlayer("p3", nil, "acc3", 5); err != ErrMatchFinished {
		t.Fatalf("join finished err = %v; want ErrMatchFinished", err)
	}
	m.Finish("p2") // повторный Finish - no-op
	if m.WinnerID != "p1" {
		t.Fatalf("winner changed by second Finish: %q", m.WinnerID)
	}
}

func TestRemovePlayerClearsSlot(t *testing.T) {
	m := newActiveMatch(t)
	m.SetMove("p1", MoveRock)
	m.Slots[0].Wins = 2
	m.RemovePlayer("p1")
	if m.HasPlayer("p1") {
		t.Fatal("p1 still present after RemovePlayer")
	}
	if m.Occupied() != 1 {
		t.Fatalf("occupied = %d; want 1", m.Occupied())
	}
}
