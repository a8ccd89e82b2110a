package session

import (
	"context"
	"testing"
	"time"

	"rps_arena/internal/domain"
	"rps_arena/internal/game"
)

func fastConfig() Config {
	return Config{
		RoundTicks:             2,
		TickInterval:           25 * time.Millisecond,
		GraceWindow:            60 * time.Millisecond,
		TONFixedStake:          100,
		PlatformFeePercent:     5,
		AllowCurrencyDowngrade: true,
	}
}

func newFastRegistry() (*Registry, *fakeSettler) {
	settler := &fakeSettler{}
	return NewRegistry(fastConfig(), newFakeProfiles(), settler), settler
}

func startActiveMatch(t *testing.T, r *Registry) (*game.Match, *fakeSession, *fakeSession) {
	t.Helper()
	ctx := context.Background()
	s1, s2 := newFakeSession("p1"), newFakeSession("p2")
	m, err := r.CreateMatch(ctx, CreateParams{
		Kind: game.KindPublic, Stake: 10, Currency: domain.CurrencyPoints,
		CreatorID: "p1", Session: s1, Account: "1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.JoinMatch(ctx, m.ID, "p2", s2, "2"); err != nil {
		t.Fatal(err)
	}
	return m, s1, s2
}

func finished(r *Registry, m *game.Match) func() bool {
	return func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return m.Status == game.StatusFinished
	}
}

func roundsPlayed(r *Registry, m *game.Match) func() int {
	return func() int {
		r.mu.Lock()
		defer r.mu.Unlock()
		return len(m.History)
	}
}

// Ни один игрок не ходит: каждый таймаут-раунд получает два разных
// случайных хода, поэтому раунды не могут быть ничьими и матч
// доигрывается сам до трех побед.
func TestRoundTimerAutoPlaysToCompletion(t *testing.T) {
	r, settler := newFastRegistry()
	m, s1, _ := startActiveMatch(t, r)

	waitFor(t, finished(r, m), "match did not auto-complete on timeouts")

	r.mu.Lock()
	history := append([]game.RoundRecord(nil), m.History...)
	winner := m.WinnerID
	r.mu.Unlock()

	if winner == "" {
		t.Fatal("auto-played match must have a winner")
	}
	// best of five: от 3 до 5 раундов, и ни одного ничейного
	if len(history) < 3 || len(history) > 5 {
		t.Fatalf("rounds = %d, want 3..5", len(history))
	}
	for _, rec := range history {
		if rec.Move1 == rec.Move2 {
			t.Fatalf("round %d: timeout round drew (%s vs %s)", rec.Round, rec.Move1, rec.Move2)
		}
		if rec.Winner == "" {
			t.Fatalf("round %d: timeout round has no winner", rec.Round)
		}
	}

	if !s1.sawEvent(EvRoundTick) {
		t.Fatal("players must receive countdown ticks")
	}
	waitFor(t, func() bool { return settler.callCount() == 1 }, "auto-completed match not settled")
}

// Один игрок успел сходить: по истечении таймера недостающий ход
// дозаполняется случайным, отправленный остается как есть.
func TestRoundTimerFillsOnlyMissingMove(t *testing.T) {
	r, _ := newFastRegistry()
	m, _, _ := startActiveMatch(t, r)

	if _, err := r.SubmitMove("p1", "rock", m.ID); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool { return roundsPlayed(r, m)() >= 1 }, "round not resolved by timer")

	r.mu.Lock()
	rec := m.History[0]
	r.mu.Unlock()
	if rec.Move1 != game.MoveRock {
		t.Fatalf("submitted move overwritten: %s", rec.Move1)
	}
}

func TestGraceWindowForfeitsAbsentPlayer(t *testing.T) {
	r, settler := newFastRegistry()
	m, _, s2 := startActiveMatch(t, r)

	r.HandleDisconnect("p1")

	if !s2.sawEvent(EvPlayerDisconnected) {
		t.Fatal("opponent must be told about the disconnect")
	}

	waitFor(t, finished(r, m), "grace expiry did not forfeit")

	r.mu.Lock()
	winner := m.WinnerID
	r.mu.Unlock()
	if winner != "p2" {
		t.Fatalf("winner = %q, want p2", winner)
	}

	waitFor(t, func() bool { return settler.callCount() == 1 }, "forfeit not settled")
	if call := settler.lastCall(); call.WinnerAcct != "2" || call.LoserAcct != "1" {
		t.Fatalf("settlement accounts wrong: %+v", call)
	}
}

func TestReconnectWithinGraceCancelsForfeit(t *testing.T) {
	r, _ := newFastRegistry()
	m, _, _ := startActiveMatch(t, r)

	r.HandleDisconnect("p1")

	back := newFakeSession("p1")
	if got := r.HandleReconnect("p1", back); got == nil || got.ID != m.ID {
		t.Fatal("reconnect must return the live match for resync")
	}

	// пережидаем грейс-окно с запасом: форфейта быть не должно
	time.Sleep(3 * fastConfig().GraceWindow)

	r.mu.Lock()
	status := m.Status
	sess := m.Slot("p1").Session
	r.mu.Unlock()
	if status == game.StatusFinished {
		t.Fatal("reconnected player was forfeited")
	}
	if sess != game.Session(back) {
		t.Fatal("session not rebound on reconnect")
	}
}

func TestDisconnectFromWaitingMatchLeavesImmediately(t *testing.T) {
	r := NewRegistry(fastConfig(), newFakeProfiles(), &fakeSettler{})
	ctx := context.Background()

	m, err := r.CreateMatch(ctx, CreateParams{
		Kind: game.KindPublic, Stake: 10, Currency: domain.CurrencyPoints,
		CreatorID: "p1", Session: newFakeSession("p1"), Account: "1",
	})
	if err != nil {
		t.Fatal(err)
	}

	r.HandleDisconnect("p1")

	r.mu.Lock()
	status := m.Status
	r.mu.Unlock()
	if status != game.StatusFinished {
		t.Fatalf("waiting match after disconnect = %s, want finished", status)
	}
	if _, err := r.GetPlayerMatch("p1"); err == nil {
		t.Fatal("player mapping must be dropped")
	}
}
