package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"rps_arena/internal/domain"
	"rps_arena/internal/game"
)

// --- фейки коллабораторов и транспорта ---

type fakeSession struct {
	mu     sync.Mutex
	id     string
	alive  bool
	events []string
}

func newFakeSession(id string) *fakeSession {
	return &fakeSession{id: id, alive: true}
}

func (s *fakeSession) ID() string  { return s.id }
func (s *fakeSession) Alive() bool { s.mu.Lock(); defer s.mu.Unlock(); return s.alive }

func (s *fakeSession) SendEvent(typ string, _ map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, typ)
}

func (s *fakeSession) sawEvent(typ string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e == typ {
			return true
		}
	}
	return false
}

type stakeOp struct {
	Account  string
	Currency string
	Amount   int64
	MatchID  string
}

type fakeProfiles struct {
	mu         sync.Mutex
	sufficient bool
	reserveOK  bool
	reserveErr error
	onReserve  func(op stakeOp) // вызывается после резерва, вне мьютекса
	reserves   []stakeOp
	refunds    []stakeOp
	histories  []MatchSummary
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{sufficient: true, reserveOK: true}
}

func (f *fakeProfiles) HasSufficientBalance(_ context.Context, _, _ string, _ int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sufficient, nil
}

func (f *fakeProfiles) ReserveStake(_ context.Context, account, currency string, amount int64, matchID string) (bool, error) {
	op := stakeOp{account, currency, amount, matchID}
	f.mu.Lock()
	hook := f.onReserve
	if f.reserveErr != nil {
		f.mu.Unlock()
		return false, f.reserveErr
	}
	if !f.reserveOK {
		f.mu.Unlock()
		return false, nil
	}
	f.reserves = append(f.reserves, op)
	f.mu.Unlock()
	if hook != nil {
		hook(op)
	}
	return true, nil
}

func (f *fakeProfiles) Refund(_ context.Context, account, currency string, amount int64, matchID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refunds = append(f.refunds, stakeOp{account, currency, amount, matchID})
	return nil
}

func (f *fakeProfiles) RecordHistory(_ context.Context, s MatchSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histories = append(f.histories, s)
	return nil
}

func (f *fakeProfiles) reserveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reserves)
}

func (f *fakeProfiles) refundCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.refunds)
}

type settledCall struct {
	MatchID    string
	WinnerAcct string
	LoserAcct  string
	Stake      int64
	Currency   string
}

type fakeSettler struct {
	mu    sync.Mutex
	calls []settledCall
}

func (f *fakeSettler) NotifyMatchSettled(_ context.Context, matchID, winnerAcct, loserAcct string, stake int64, currency string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, settledCall{matchID, winnerAcct, loserAcct, stake, currency})
	return true
}

func (f *fakeSettler) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeSettler) lastCall() settledCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

// таймеры не должны вмешиваться в тесты без таймеров
func slowConfig() Config {
	return Config{
		RoundTicks:             3,
		TickInterval:           time.Hour,
		GraceWindow:            time.Hour,
		TONFixedStake:          100,
		PlatformFeePercent:     5,
		AllowCurrencyDowngrade: true,
	}
}

func newTestRegistry() (*Registry, *fakeProfiles, *fakeSettler) {
	profiles := newFakeProfiles()
	settler := &fakeSettler{}
	return NewRegistry(slowConfig(), profiles, settler), profiles, settler
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

// --- тесты ---

func TestCreateMatchStakeValidation(t *testing.T) {
	r, _, _ := newTestRegistry()
	ctx := context.Background()

	tests := []struct {
		name     string
		currency string
		stake    int64
		wantErr  error
	}{
		{"ton exact stake ok", domain.CurrencyTON, 100, nil},
		{"ton wrong stake", domain.CurrencyTON, 50, ErrInvalidStake},
		{"ton oversized stake", domain.CurrencyTON, 200, ErrInvalidStake},
		{"points any positive", domain.CurrencyPoints, 7, nil},
		{"points zero", domain.CurrencyPoints, 0, ErrInvalidStake},
		{"points negative", domain.CurrencyPoints, -5, ErrInvalidStake},
		{"unknown currency", "usd", 100, ErrInvalidStake},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.CreateMatch(ctx, CreateParams{
				Kind:      game.KindPrivate,
				Stake:     tt.stake,
				Currency:  tt.currency,
				CreatorID: "p" + string(rune('a'+i)),
				Session:   newFakeSession("s"),
				Account:   "1",
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateMatchIDPolicy(t *testing.T) {
	r, _, _ := newTestRegistry()
	ctx := context.Background()

	m, err := r.CreateMatch(ctx, CreateParams{
		Kind: game.KindPrivate, Stake: 10, Currency: domain.CurrencyPoints,
		CreatorID: "p1", Session: newFakeSession("p1"), Account: "1",
		RequestedID: "friendly-42",
	})
	if err != nil {
		t.Fatal(err)
	}
	if m.ID != "friendly-42" {
		t.Fatalf("requested id not honored: %s", m.ID)
	}

	// слишком длинный id заменяется сгенерированным
	long := "this-requested-id-is-way-too-long-for-a-ledger-memo"
	m2, err := r.CreateMatch(ctx, CreateParams{
		Kind: game.KindPrivate, Stake: 10, Currency: domain.CurrencyPoints,
		CreatorID: "p2", Session: newFakeSession("p2"), Account: "2",
		RequestedID: long,
	})
	if err != nil {
		t.Fatal(err)
	}
	if m2.ID == long || len(m2.ID) > 32 {
		t.Fatalf("id exceeds memo limit: %q (len %d)", m2.ID, len(m2.ID))
	}

	// занятый id тоже заменяется
	m3, err := r.CreateMatch(ctx, CreateParams{
		Kind: game.KindPrivate, Stake: 10, Currency: domain.CurrencyPoints,
		CreatorID: "p3", Session: newFakeSession("p3"), Account: "3",
		RequestedID: "friendly-42",
	})
	if err != nil {
		t.Fatal(err)
	}
	if m3.ID == "friendly-42" {
		t.Fatal("duplicate requested id must not be reused")
	}
}

// два создателя одновременно просят один requested id: пока первый
// резервирует ставку, второй успевает занять id. Проигравший гонку
// должен получить возврат и новый id, а матч победителя - уцелеть.
func TestCreateMatchRequestedIDRace(t *testing.T) {
	r, profiles, _ := newTestRegistry()
	ctx := context.Background()

	sA, sB := newFakeSession("pA"), newFakeSession("pB")
	var mB *game.Match
	fired := false
	profiles.mu.Lock()
	profiles.onReserve = func(stakeOp) {
		if fired {
			return
		}
		fired = true
		var err error
		mB, err = r.CreateMatch(ctx, CreateParams{
			Kind: game.KindPrivate, Stake: 10, Currency: domain.CurrencyPoints,
			CreatorID: "pB", Session: sB, Account: "2",
			RequestedID: "friendly-42",
		})
		if err != nil {
			t.Errorf("concurrent create: %v", err)
		}
	}
	profiles.mu.Unlock()

	mA, err := r.CreateMatch(ctx, CreateParams{
		Kind: game.KindPrivate, Stake: 10, Currency: domain.CurrencyPoints,
		CreatorID: "pA", Session: sA, Account: "1",
		RequestedID: "friendly-42",
	})
	if err != nil {
		t.Fatal(err)
	}

	if mB == nil || mB.ID != "friendly-42" {
		t.Fatalf("first claimant lost the id: %+v", mB)
	}
	if mA.ID == "friendly-42" {
		t.Fatal("race loser must not overwrite the claimed id")
	}

	got, err := r.GetMatch("friendly-42")
	if err != nil || !got.HasPlayer("pB") {
		t.Fatalf("claimed match corrupted: %v", err)
	}
	if pm, err := r.GetPlayerMatch("pB"); err != nil || pm.ID != "friendly-42" {
		t.Fatalf("pB mapping broken: %v", err)
	}
	if pm, err := r.GetPlayerMatch("pA"); err != nil || pm.ID != mA.ID {
		t.Fatalf("pA mapping broken: %v", err)
	}

	// ставка проигравшего под занятым id возвращается, затем резервируется
	// заново под новым id
	waitFor(t, func() bool { return profiles.refundCount() == 1 }, "race loser stake not refunded")
	profiles.mu.Lock()
	refund := profiles.refunds[0]
	profiles.mu.Unlock()
	if refund.Account != "1" || refund.MatchID != "friendly-42" {
		t.Fatalf("refund wrong: %+v", refund)
	}
	if profiles.reserveCount() != 3 {
		t.Fatalf("reserves = %d, want 3 (two claims + one retry)", profiles.reserveCount())
	}
}

func TestJoinActivatesMatch(t *testing.T) {
	r, profiles, _ := newTestRegistry()
	ctx := context.Background()

	s1, s2 := newFakeSession("p1"), newFakeSession("p2")
	m, err := r.CreateMatch(ctx, CreateParams{
		Kind: game.KindPublic, Stake: 20, Currency: domain.CurrencyPoints,
		CreatorID: "p1", Session: s1, Account: "1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if m.Status != game.StatusWaiting {
		t.Fatalf("status = %s, want waiting", m.Status)
	}

	joined, err := r.JoinMatch(ctx, m.ID, "p2", s2, "2")
	if err != nil {
		t.Fatal(err)
	}
	if joined.Status != game.StatusActive {
		t.Fatalf("status = %s, want active", joined.Status)
	}
	if joined.Pot != 40 || joined.PlatformFee != 2 || joined.WinnerPayout != 38 {
		t.Fatalf("pot accounting wrong: pot=%d fee=%d payout=%d",
			joined.Pot, joined.PlatformFee, joined.WinnerPayout)
	}
	if profiles.reserveCount() != 2 {
		t.Fatalf("reserves = %d, want 2", profiles.reserveCount())
	}
	if !s1.sawEvent(EvMatchStarted) || !s2.sawEvent(EvMatchStarted) {
		t.Fatal("both players must receive match_started")
	}
}

func TestJoinErrors(t *testing.T) {
	r, _, _ := newTestRegistry()
	ctx := context.Background()

	s1 := newFakeSession("p1")
	m, _ := r.CreateMatch(ctx, CreateParams{
		Kind: game.KindPublic, Stake: 20, Currency: domain.CurrencyPoints,
		CreatorID: "p1", Session: s1, Account: "1",
	})
	if _, err := r.JoinMatch(ctx, "missing", "p2", newFakeSession("p2"), "2"); !errors.Is(err, ErrMatchNotFound) {
		t.Fatalf("unknown match: err = %v", err)
	}

	if _, err := r.JoinMatch(ctx, m.ID, "p2", newFakeSession("p2"), "2"); err != nil {
		t.Fatal(err)
	}
	// третьему места нет
	if _, err := r.JoinMatch(ctx, m.ID, "p3", newFakeSession("p3"), "3"); !errors.Is(err, ErrMatchInProgress) {
		t.Fatalf("third player: err = %v", err)
	}
}

func TestJoinInsufficientBalance(t *testing.T) {
	r, profiles, _ := newTestRegistry()
	ctx := context.Background()

	m, _ := r.CreateMatch(ctx, CreateParams{
		Kind: game.KindPublic, Stake: 20, Currency: domain.CurrencyPoints,
		CreatorID: "p1", Session: newFakeSession("p1"), Account: "1",
	})

	profiles.mu.Lock()
	profiles.reserveOK = false
	profiles.mu.Unlock()

	if _, err := r.JoinMatch(ctx, m.ID, "p2", newFakeSession("p2"), "2"); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
}

func TestFullMatchFlowSettlesOnce(t *testing.T) {
	r, profiles, settler := newTestRegistry()
	ctx := context.Background()

	s1, s2 := newFakeSession("p1"), newFakeSession("p2")
	m, _ := r.CreateMatch(ctx, CreateParams{
		Kind: game.KindPublic, Stake: 50, Currency: domain.CurrencyPoints,
		CreatorID: "p1", Session: s1, Account: "11",
	})
	if _, err := r.JoinMatch(ctx, m.ID, "p2", s2, "22"); err != nil {
		t.Fatal(err)
	}

	// p1 выигрывает три раунда подряд: камень против ножниц
	for round := 1; round <= 3; round++ {
		if _, err := r.SubmitMove("p1", "rock", m.ID); err != nil {
			t.Fatalf("round %d p1: %v", round, err)
		}
		res, err := r.SubmitMove("p2", "scissors", m.ID)
		if err != nil {
			t.Fatalf("round %d p2: %v", round, err)
		}
		if !res.RoundComplete {
			t.Fatalf("round %d not resolved", round)
		}
		if res.RoundResult.Winner != "p1" {
			t.Fatalf("round %d winner = %q, want p1", round, res.RoundResult.Winner)
		}
	}

	if m.Status != game.StatusFinished || m.WinnerID != "p1" {
		t.Fatalf("match not finished for p1: status=%s winner=%s", m.Status, m.WinnerID)
	}
	if len(m.History) != 3 {
		t.Fatalf("history = %d rounds, want 3", len(m.History))
	}

	waitFor(t, func() bool { return settler.callCount() == 1 }, "settlement not dispatched")
	call := settler.lastCall()
	if call.WinnerAcct != "11" || call.LoserAcct != "22" || call.Stake != 50 {
		t.Fatalf("settlement call wrong: %+v", call)
	}

	// повторное завершение не ведет ко второму расчету
	r.mu.Lock()
	r.finishMatchLocked(m, "p1", "complete", nil)
	r.mu.Unlock()
	time.Sleep(50 * time.Millisecond)
	if settler.callCount() != 1 {
		t.Fatalf("settlement dispatched %d times, want exactly 1", settler.callCount())
	}

	waitFor(t, func() bool {
		profiles.mu.Lock()
		defer profiles.mu.Unlock()
		return len(profiles.histories) == 1
	}, "match history not recorded")
}

func TestDrawRoundDoesNotScore(t *testing.T) {
	r, _, _ := newTestRegistry()
	ctx := context.Background()

	m, _ := r.CreateMatch(ctx, CreateParams{
		Kind: game.KindPublic, Stake: 10, Currency: domain.CurrencyPoints,
		CreatorID: "p1", Session: newFakeSession("p1"), Account: "1",
	})
	if _, err := r.JoinMatch(ctx, m.ID, "p2", newFakeSession("p2"), "2"); err != nil {
		t.Fatal(err)
	}

	if _, err := r.SubmitMove("p1", "paper", ""); err != nil {
		t.Fatal(err)
	}
	res, err := r.SubmitMove("p2", "paper", "")
	if err != nil {
		t.Fatal(err)
	}
	if !res.RoundComplete || res.RoundResult.Winner != "" {
		t.Fatalf("draw round: complete=%v winner=%q", res.RoundComplete, res.RoundResult.Winner)
	}
	if m.Slots[0].Wins != 0 || m.Slots[1].Wins != 0 {
		t.Fatal("draw must not increment wins")
	}
	if m.Round != 2 {
		t.Fatalf("round = %d, want 2 after draw", m.Round)
	}
}

func TestSubmitMoveErrors(t *testing.T) {
	r, _, _ := newTestRegistry()

	if _, err := r.SubmitMove("ghost", "rock", ""); !errors.Is(err, ErrPlayerNotInAnyMatch) {
		t.Fatalf("no match: err = %v", err)
	}
	if _, err := r.SubmitMove("ghost", "dynamite", ""); !errors.Is(err, ErrInvalidMove) {
		t.Fatalf("bad move: err = %v", err)
	}
}

func TestReconciliationScanRepairsMap(t *testing.T) {
	r, _, _ := newTestRegistry()
	ctx := context.Background()

	m, _ := r.CreateMatch(ctx, CreateParams{
		Kind: game.KindPublic, Stake: 10, Currency: domain.CurrencyPoints,
		CreatorID: "p1", Session: newFakeSession("p1"), Account: "1",
	})
	if _, err := r.JoinMatch(ctx, m.ID, "p2", newFakeSession("p2"), "2"); err != nil {
		t.Fatal(err)
	}

	// имитация исторической рассинхронизации карты игрок→матч
	r.mu.Lock()
	delete(r.playerMatch, "p1")
	r.mu.Unlock()

	if _, err := r.SubmitMove("p1", "rock", m.ID); err != nil {
		t.Fatalf("scan should recover the match: %v", err)
	}

	r.mu.Lock()
	repaired := r.playerMatch["p1"]
	r.mu.Unlock()
	if repaired != m.ID {
		t.Fatalf("map not repaired: %q", repaired)
	}
}

func TestLeaveWaitingRefundsStake(t *testing.T) {
	r, profiles, settler := newTestRegistry()
	ctx := context.Background()

	m, _ := r.CreateMatch(ctx, CreateParams{
		Kind: game.KindPublic, Stake: 30, Currency: domain.CurrencyPoints,
		CreatorID: "p1", Session: newFakeSession("p1"), Account: "1",
	})

	if _, _, err := r.LeaveMatch("p1"); err != nil {
		t.Fatal(err)
	}
	if m.Status != game.StatusFinished {
		t.Fatalf("abandoned match status = %s", m.Status)
	}

	waitFor(t, func() bool { return profiles.refundCount() == 1 }, "stake not refunded")
	profiles.mu.Lock()
	op := profiles.refunds[0]
	profiles.mu.Unlock()
	if op.Account != "1" || op.Amount != 30 {
		t.Fatalf("refund wrong: %+v", op)
	}

	// брошенный без пары матч не рассчитывается
	time.Sleep(50 * time.Millisecond)
	if settler.callCount() != 0 {
		t.Fatal("abandoned match must not settle")
	}
}

func TestLeaveActiveForfeits(t *testing.T) {
	r, _, settler := newTestRegistry()
	ctx := context.Background()

	m, _ := r.CreateMatch(ctx, CreateParams{
		Kind: game.KindPublic, Stake: 30, Currency: domain.CurrencyPoints,
		CreatorID: "p1", Session: newFakeSession("p1"), Account: "1",
	})
	if _, err := r.JoinMatch(ctx, m.ID, "p2", newFakeSession("p2"), "2"); err != nil {
		t.Fatal(err)
	}

	if _, _, err := r.LeaveMatch("p1"); err != nil {
		t.Fatal(err)
	}
	if m.Status != game.StatusFinished || m.WinnerID != "p2" {
		t.Fatalf("forfeit wrong: status=%s winner=%s", m.Status, m.WinnerID)
	}

	waitFor(t, func() bool { return settler.callCount() == 1 }, "forfeit not settled")
	call := settler.lastCall()
	if call.WinnerAcct != "2" || call.LoserAcct != "1" {
		t.Fatalf("forfeit settlement wrong: %+v", call)
	}
}

func TestLeaveWithoutMatch(t *testing.T) {
	r, _, _ := newTestRegistry()
	if _, _, err := r.LeaveMatch("nobody"); !errors.Is(err, ErrPlayerNotInAnyMatch) {
		t.Fatalf("err = %v, want ErrPlayerNotInAnyMatch", err)
	}
}

func TestRandomMatchmakingPairsCompatible(t *testing.T) {
	r, _, _ := newTestRegistry()
	ctx := context.Background()

	s1, s2 := newFakeSession("p1"), newFakeSession("p2")

	m1, paired, err := r.FindOrCreateRandomMatch(ctx, "p1", s1, 25, domain.CurrencyPoints, "1")
	if err != nil {
		t.Fatal(err)
	}
	if paired {
		t.Fatal("first player cannot be paired instantly")
	}
	if m1.Status != game.StatusWaiting {
		t.Fatalf("placeholder status = %s", m1.Status)
	}

	m2, paired, err := r.FindOrCreateRandomMatch(ctx, "p2", s2, 25, domain.CurrencyPoints, "2")
	if err != nil {
		t.Fatal(err)
	}
	if !paired {
		t.Fatal("second compatible player must be paired")
	}
	if m2.Status != game.StatusActive {
		t.Fatalf("paired match status = %s", m2.Status)
	}
	if !m2.HasPlayer("p1") || !m2.HasPlayer("p2") {
		t.Fatal("both players must be seated")
	}

	st := r.Stats()
	if st.Queued != 0 {
		t.Fatalf("queue depth = %d, want 0 after pairing", st.Queued)
	}
}

// строка дебета ставки в леджере должна ссылаться на матч, который она
// профинансировала, на обоих путях: заглушка в очереди и посадка к
// ожидающему сопернику
func TestRandomMatchmakingReservesUnderMatchID(t *testing.T) {
	r, profiles, _ := newTestRegistry()
	ctx := context.Background()

	m1, _, err := r.FindOrCreateRandomMatch(ctx, "p1", newFakeSession("p1"), 25, domain.CurrencyPoints, "1")
	if err != nil {
		t.Fatal(err)
	}
	m2, paired, err := r.FindOrCreateRandomMatch(ctx, "p2", newFakeSession("p2"), 25, domain.CurrencyPoints, "2")
	if err != nil {
		t.Fatal(err)
	}
	if !paired {
		t.Fatal("compatible players must pair")
	}

	profiles.mu.Lock()
	ops := append([]stakeOp(nil), profiles.reserves...)
	profiles.mu.Unlock()
	if len(ops) != 2 {
		t.Fatalf("reserves = %d, want 2", len(ops))
	}
	if ops[0].MatchID == "" || ops[0].MatchID != m1.ID {
		t.Fatalf("queued stake reserved under %q, match is %q", ops[0].MatchID, m1.ID)
	}
	if ops[1].MatchID == "" || ops[1].MatchID != m2.ID {
		t.Fatalf("joining stake reserved under %q, match is %q", ops[1].MatchID, m2.ID)
	}
}

func TestRandomMatchmakingIncompatibleStakesWait(t *testing.T) {
	r, _, _ := newTestRegistry()
	ctx := context.Background()

	if _, _, err := r.FindOrCreateRandomMatch(ctx, "p1", newFakeSession("p1"), 25, domain.CurrencyPoints, "1"); err != nil {
		t.Fatal(err)
	}
	_, paired, err := r.FindOrCreateRandomMatch(ctx, "p2", newFakeSession("p2"), 50, domain.CurrencyPoints, "2")
	if err != nil {
		t.Fatal(err)
	}
	if paired {
		t.Fatal("different stakes must not pair")
	}
	if st := r.Stats(); st.Queued != 2 {
		t.Fatalf("queue depth = %d, want 2", st.Queued)
	}
}

func TestRandomMatchmakingNeverSelfPairs(t *testing.T) {
	r, _, _ := newTestRegistry()
	ctx := context.Background()

	s := newFakeSession("p1")
	if _, _, err := r.FindOrCreateRandomMatch(ctx, "p1", s, 25, domain.CurrencyPoints, "1"); err != nil {
		t.Fatal(err)
	}
	m, paired, err := r.FindOrCreateRandomMatch(ctx, "p1", s, 25, domain.CurrencyPoints, "1")
	if err != nil {
		t.Fatal(err)
	}
	if paired {
		t.Fatal("player paired with himself")
	}
	if m.Occupied() != 1 || !m.HasPlayer("p1") {
		t.Fatal("replacement request must leave one waiting seat")
	}
	if st := r.Stats(); st.Queued != 1 {
		t.Fatalf("queue depth = %d, want 1 (ticket replaced)", st.Queued)
	}
}

func TestRandomMatchmakingDowngradesTONToPoints(t *testing.T) {
	r, profiles, _ := newTestRegistry()
	ctx := context.Background()

	profiles.mu.Lock()
	profiles.sufficient = false
	profiles.mu.Unlock()

	m, _, err := r.FindOrCreateRandomMatch(ctx, "p1", newFakeSession("p1"), 100, domain.CurrencyTON, "1")
	if err != nil {
		t.Fatal(err)
	}
	if m.Currency != domain.CurrencyPoints {
		t.Fatalf("currency = %s, want downgraded to points", m.Currency)
	}
}

func TestRandomMatchmakingDowngradeDisabled(t *testing.T) {
	cfg := slowConfig()
	cfg.AllowCurrencyDowngrade = false
	profiles := newFakeProfiles()
	profiles.sufficient = false
	r := NewRegistry(cfg, profiles, &fakeSettler{})

	_, _, err := r.FindOrCreateRandomMatch(context.Background(), "p1", newFakeSession("p1"), 100, domain.CurrencyTON, "1")
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
}

func TestSweepRemovesOldFinishedMatches(t *testing.T) {
	r, _, _ := newTestRegistry()
	ctx := context.Background()

	m, _ := r.CreateMatch(ctx, CreateParams{
		Kind: game.KindPublic, Stake: 10, Currency: domain.CurrencyPoints,
		CreatorID: "p1", Session: newFakeSession("p1"), Account: "1",
	})

	r.mu.Lock()
	m.Finish("")
	m.FinishedAt = time.Now().Add(-time.Hour)
	r.mu.Unlock()

	if removed := r.Sweep(10 * time.Minute); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := r.GetMatch(m.ID); !errors.Is(err, ErrMatchNotFound) {
		t.Fatal("swept match still readable")
	}
	if _, err := r.GetPlayerMatch("p1"); err == nil {
		t.Fatal("player mapping must be cleaned by sweep")
	}
}

func TestSweepKeepsLiveAndFreshMatches(t *testing.T) {
	r, _, _ := newTestRegistry()
	ctx := context.Background()

	live, _ := r.CreateMatch(ctx, CreateParams{
		Kind: game.KindPublic, Stake: 10, Currency: domain.CurrencyPoints,
		CreatorID: "p1", Session: newFakeSession("p1"), Account: "1",
	})
	fresh, _ := r.CreateMatch(ctx, CreateParams{
		Kind: game.KindPublic, Stake: 10, Currency: domain.CurrencyPoints,
		CreatorID: "p2", Session: newFakeSession("p2"), Account: "2",
	})
	r.mu.Lock()
	fresh.Finish("")
	r.mu.Unlock()

	if removed := r.Sweep(10 * time.Minute); removed != 0 {
		t.Fatalf("removed = %d, want 0", removed)
	}
	if _, err := r.GetMatch(live.ID); err != nil {
		t.Fatal("live match swept")
	}
	if _, err := r.GetMatch(fresh.ID); err != nil {
		t.Fatal("recently finished match swept too early")
	}
}
