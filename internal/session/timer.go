package session

import (
	"time"

	"rps_arena/internal/game"
	"rps_arena/internal/logger"
)

// matchTimer — единственный живой таймер раунда для матча.
// Хранится в арене реестра по id матча; gen защищает от устаревших
// срабатываний после cancel+rearm.
type matchTimer struct {
	gen  uint64
	stop chan struct{}
}

// armRoundTimer взводит таймер раунда для активного матча. Вызывается
// строго под блокировкой реестра; существующий таймер сначала гасится,
// так что на один id матча никогда не бывает двух живых таймеров.
func (r *Registry) armRoundTimer(m *game.Match) {
	r.cancelRoundTimer(m.ID)

	r.timerGen++
	t := &matchTimer{gen: r.timerGen, stop: make(chan struct{})}
	r.timers[m.ID] = t

	go r.runRoundTimer(m.ID, t)
}

// cancelRoundTimer гасит таймер матча, если он есть. Под блокировкой.
func (r *Registry) cancelRoundTimer(matchID string) {
	if t, ok := r.timers[matchID]; ok {
		close(t.stop)
		delete(r.timers, matchID)
	}
}

// runRoundTimer — обратный отсчет одного раунда: тик каждую единицу
// времени, авто-ход по истечении. Работает вне блокировки; каждое
// срабатывание заново входит в реестр и проверяет актуальность.
func (r *Registry) runRoundTimer(matchID string, t *matchTimer) {
	for remaining := r.cfg.RoundTicks; remaining > 0; remaining-- {
		select {
		case <-t.stop:
			return
		case <-time.After(r.cfg.TickInterval):
			r.onRoundTick(matchID, t.gen, remaining-1)
		}
	}
	r.onRoundExpired(matchID, t.gen)
}

// onRoundTick рассылает round_tick, пока таймер актуален
func (r *Registry) onRoundTick(matchID string, gen uint64, countdown int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.timers[matchID]
	if !ok || cur.gen != gen {
		return
	}
	m, ok := r.matches[matchID]
	if !ok || m.Status != game.StatusActive {
		return
	}
	emitMatch(m, EvRoundTick, map[string]any{
		"match_id":  matchID,
		"round":     m.Round,
		"countdown": countdown,
	})
}

// onRoundExpired назначает недостающие ходы по таймауту и разрешает раунд.
// Оба слота без хода получают два ГАРАНТИРОВАННО разных случайных хода
// (таймаут-раунд не может закончиться ничьей); один слот - один случайный
// ход. Если оба хода уже на месте, таймер устарел и это no-op.
func (r *Registry) onRoundExpired(matchID string, gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.timers[matchID]
	if !ok || cur.gen != gen {
		return
	}
	delete(r.timers, matchID)

	m, ok := r.matches[matchID]
	if !ok || m.Status != game.StatusActive {
		return
	}

	s1, s2 := &m.Slots[0], &m.Slots[1]
	switch {
	case s1.CurrentMove == nil && s2.CurrentMove == nil:
		mv1, mv2 := game.RandomDistinctMoves()
		s1.CurrentMove = &mv1
		s2.CurrentMove = &mv2
	case s1.CurrentMove == nil:
		mv := game.RandomMove()
		s1.CurrentMove = &mv
	case s2.CurrentMove == nil:
		mv := game.RandomMove()
		s2.CurrentMove = &mv
	default:
		// раунд уже разрешен другим путем
		return
	}

	logger.Debug("round timer expired, auto-moves assigned", "match_id", matchID, "round", m.Round)
	r.resolveRoundLocked(m, "timeout")
}

// scheduleGraceCheck планирует отложенную проверку форфейта после потери
// транспорта. Повторная потеря перепланирует проверку.
func (r *Registry) scheduleGraceCheck(playerID string) {
	if old, ok := r.graceTimers[playerID]; ok {
		old.Stop()
	}
	r.graceTimers[playerID] = time.AfterFunc(r.cfg.GraceWindow, func() {
		r.onGraceExpired(playerID)
	})
}

// cancelGraceCheck снимает отложенный форфейт (реконнект успел)
func (r *Registry) cancelGraceCheck(playerID string) {
	if t, ok := r.graceTimers[playerID]; ok {
		t.Stop()
		delete(r.graceTimers, playerID)
	}
}

// onGraceExpired — игрок не вернулся за грейс-окно: противник побеждает
// форфейтом. Живая сессия к моменту проверки молча отменяет форфейт.
func (r *Registry) onGraceExpired(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.graceTimers, playerID)

	matchID, ok := r.playerMatch[playerID]
	if !ok {
		return
	}
	m, ok := r.matches[matchID]
	if !ok || m.Status != game.StatusActive {
		return
	}
	slot := m.Slot(playerID)
	if slot == nil {
		return
	}
	if slot.Session != nil && slot.Session.Alive() {
		// игрок переподключился - форфейт отменяется
		return
	}

	opp := m.Opponent(playerID)
	if opp == nil {
		return
	}
	logger.Info("grace window expired, forfeit", "match_id", matchID, "player_id", playerID)
	r.finishMatchLocked(m, opp.PlayerID, "forfeit_disconnect", &leavingInfo{
		PlayerID: playerID,
		Account:  slot.Account,
	})
}
