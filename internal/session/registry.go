package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"rps_arena/internal/domain"
	"rps_arena/internal/game"
	"rps_arena/internal/logger"

	"github.com/google/uuid"
)

const (
	// id матча уходит в memo внешнего леджера, который режет его до 32 знаков
	maxMatchIDLen = 32

	collaboratorTimeout = 5 * time.Second
)

// Registry — единая точка входа игрового движка. Владеет таблицей матчей,
// отображением игрок→матч, очередью матчмейкинга и ареной таймеров.
//
// Модель конкурентности: одна глобальная критическая секция. Каждая
// операция выполняется до конца без прерываний; колбэки таймеров и
// грейс-проверок заново входят через ту же блокировку. Вызовы внешних
// коллабораторов (балансы, расчет) выполняются вне блокировки или в
// отдельных горутинах с таймаутом - матч при этом не мутируется, кроме
// однократной установки флага Settled.
type Registry struct {
	mu sync.Mutex

	cfg         Config
	matches     map[string]*game.Match
	playerMatch map[string]string
	queue       *Queue

	timers      map[string]*matchTimer
	timerGen    uint64
	graceTimers map[string]*time.Timer

	profiles ProfileStore
	settler  SettlementNotifier
}

// NewRegistry собирает реестр с внедренными коллабораторами.
// Глобального синглтона нет - зависимости передаются при старте.
func NewRegistry(cfg Config, profiles ProfileStore, settler SettlementNotifier) *Registry {
	if cfg.RoundTicks <= 0 {
		cfg = DefaultConfig()
	}
	return &Registry{
		cfg:         cfg,
		matches:     make(map[string]*game.Match),
		playerMatch: make(map[string]string),
		queue:       NewQueue(),
		timers:      make(map[string]*matchTimer),
		graceTimers: make(map[string]*time.Timer),
		profiles:    profiles,
		settler:     settler,
	}
}

// CreateParams — параметры явного создания матча
type CreateParams struct {
	Kind        game.MatchKind
	Stake       int64
	Currency    string
	CreatorID   string
	Session     game.Session
	Account     string
	RequestedID string
}

// validateStake проверяет политику ставок: TON требует точную
// фиксированную ставку, points - положительную без верхней границы
func (r *Registry) validateStake(currency string, stake int64) error {
	switch currency {
	case domain.CurrencyTON:
		if stake != r.cfg.TONFixedStake {
			return ErrInvalidStake
		}
	case domain.CurrencyPoints:
		if stake <= 0 {
			return ErrInvalidStake
		}
	default:
		return ErrInvalidStake
	}
	return nil
}

// reserveStake списывает ставку с баланса через коллаборатора.
// Вызывается строго вне критической секции.
func (r *Registry) reserveStake(ctx context.Context, account, currency string, stake int64, matchID string) error {
	if r.profiles == nil {
		return nil
	}
	ok, err := r.profiles.ReserveStake(ctx, account, currency, stake, matchID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInsufficientBalance
	}
	return nil
}

// refundStake возвращает ставку в фоне; неуспех только логируется
func (r *Registry) refundStake(account, currency string, stake int64, matchID string) {
	if r.profiles == nil || stake <= 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), collaboratorTimeout)
		defer cancel()
		if err := r.profiles.Refund(ctx, account, currency, stake, matchID); err != nil {
			logger.Error("stake refund failed", "match_id", matchID,
				"account", account, "error", err)
		}
	}()
}

func (r *Registry) newMatchID(requested string) string {
	if requested != "" && len(requested) <= maxMatchIDLen {
		if _, taken := r.matches[requested]; !taken {
			return requested
		}
	}
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// CreateMatch создает матч явно (public или private). Если создатель уже
// привязан к какому-то матчу, старая привязка молча затирается
// (последняя запись выигрывает).
//
// Ставка резервируется под выбранный id вне блокировки, поэтому два
// создателя могут одновременно пройти проверку одного requested id.
// Вставка перепроверяет id под блокировкой: проигравший гонку получает
// возврат ставки и новую попытку со сгенерированным id, матч победителя
// не затирается.
func (r *Registry) CreateMatch(ctx context.Context, p CreateParams) (*game.Match, error) {
	if err := r.validateStake(p.Currency, p.Stake); err != nil {
		return nil, err
	}

	requested := p.RequestedID
	for {
		r.mu.Lock()
		id := r.newMatchID(requested)
		r.mu.Unlock()

		if err := r.reserveStake(ctx, p.Account, p.Currency, p.Stake, id); err != nil {
			return nil, err
		}

		r.mu.Lock()
		if _, taken := r.matches[id]; taken {
			r.mu.Unlock()
			logger.Warn("match id claimed during stake reserve, retrying",
				"match_id", id, "creator", p.CreatorID)
			r.refundStake(p.Account, p.Currency, p.Stake, id)
			requested = ""
			continue
		}

		delete(r.playerMatch, p.CreatorID)

		m := game.NewMatch(id, p.Kind, p.Currency, p.Stake)
		if err := m.AddPlayer(p.CreatorID, p.Session, p.Account, r.cfg.PlatformFeePercent); err != nil {
			r.mu.Unlock()
			r.refundStake(p.Account, p.Currency, p.Stake, id)
			return nil, err
		}
		r.matches[m.ID] = m
		r.playerMatch[p.CreatorID] = m.ID
		r.updateGaugesLocked()
		r.mu.Unlock()

		logger.Info("match created", "match_id", m.ID, "kind", m.Kind,
			"currency", m.Currency, "stake", m.Stake, "creator", p.CreatorID)

		emit(p.Session, EvMatchCreated, map[string]any{"match": m.View()})
		return m, nil
	}
}

// JoinMatch сажает второго игрока в ожидающий матч. При успехе матч
// становится активным, стартует раунд 1, и реестр переписывает
// отображение игрок→матч для ОБОИХ слотов (защитная ресинхронизация).
func (r *Registry) JoinMatch(ctx context.Context, matchID, playerID string, sess game.Session, account string) (*game.Match, error) {
	// фаза 1: валидация и чтение ставки под блокировкой
	r.mu.Lock()
	m, ok := r.matches[matchID]
	if !ok {
		r.mu.Unlock()
		return nil, ErrMatchNotFound
	}
	if m.HasPlayer(playerID) {
		// реконнект в свой слот: повторная ставка не нужна
		defer r.mu.Unlock()
		if err := m.AddPlayer(playerID, sess, account, r.cfg.PlatformFeePercent); err != nil {
			return nil, err
		}
		emit(sess, EvMatchJoined, map[string]any{"match": m.View()})
		return m, nil
	}
	switch {
	case m.Status == game.StatusFinished:
		r.mu.Unlock()
		return nil, ErrMatchFinished
	case m.Status == game.StatusActive:
		r.mu.Unlock()
		return nil, ErrMatchInProgress
	case m.Occupied() == 2:
		r.mu.Unlock()
		return nil, ErrMatchFull
	}
	stake, currency := m.Stake, m.Currency
	r.mu.Unlock()

	// фаза 2: резерв ставки вне критической секции
	if err := r.reserveStake(ctx, account, currency, stake, matchID); err != nil {
		return nil, err
	}

	// фаза 3: посадка с перепроверкой - матч мог измениться за время резерва
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok = r.matches[matchID]
	if !ok {
		r.refundStake(account, currency, stake, matchID)
		return nil, ErrMatchNotFound
	}
	switch {
	case m.Status == game.StatusFinished:
		r.refundStake(account, currency, stake, matchID)
		return nil, ErrMatchFinished
	case m.Status == game.StatusActive && !m.HasPlayer(playerID):
		r.refundStake(account, currency, stake, matchID)
		return nil, ErrMatchInProgress
	case m.Occupied() == 2 && !m.HasPlayer(playerID):
		r.refundStake(account, currency, stake, matchID)
		return nil, ErrMatchFull
	}

	if err := m.AddPlayer(playerID, sess, account, r.cfg.PlatformFeePercent); err != nil {
		r.refundStake(account, currency, stake, matchID)
		return nil, err
	}

	// защитная ресинхронизация отображения для обоих слотов, не только
	// для присоединившегося
	for i := range m.Slots {
		if m.Slots[i].PlayerID != "" {
			r.playerMatch[m.Slots[i].PlayerID] = m.ID
		}
	}
	r.queue.Remove(playerID)
	r.updateGaugesLocked()

	emit(sess, EvMatchJoined, map[string]any{"match": m.View()})
	if opp := m.Opponent(playerID); opp != nil {
		emit(opp.Session, EvPlayerJoined, map[string]any{
			"match_id":  m.ID,
			"player_id": playerID,
		})
	}

	if m.Status == game.StatusActive {
		logger.Info("match started", "match_id", m.ID, "round", m.Round)
		r.armRoundTimer(m)
		emitMatch(m, EvMatchStarted, map[string]any{"match": m.View()})
	}
	return m, nil
}

// FindOrCreateRandomMatch — случайный матчмейкинг. Никогда не отказывает
// из-за "уже в матче": живая привязка сначала разбирается авто-уходом.
// Порядок поиска: (a) ожидающий публичный матч с той же ставкой и
// валютой, кроме своего; (b) совместимая заявка в очереди - мгновенная
// пара в новый матч; (c) постановка заявки + матч-заглушка в ожидании.
//
// Ставка резервируется под id назначения, чтобы строка дебета в леджере
// ссылалась на матч, который она профинансировала. Если назначение
// закрылось за время резерва, ставка возвращается и поиск повторяется
// уже без пути (a).
func (r *Registry) FindOrCreateRandomMatch(ctx context.Context, playerID string, sess game.Session, stake int64, currency, account string) (*game.Match, bool, error) {
	if err := r.validateStake(currency, stake); err != nil {
		return nil, false, err
	}

	// policy hook: даунгрейд валюты при нехватке TON-баланса
	if r.profiles != nil {
		ok, err := r.profiles.HasSufficientBalance(ctx, account, currency, stake)
		if err != nil {
			logger.Warn("balance probe failed during matchmaking, proceeding",
				"account", account, "error", err)
		} else if !ok {
			if currency != domain.CurrencyTON || !r.cfg.AllowCurrencyDowngrade {
				return nil, false, ErrInsufficientBalance
			}
			logger.Info("downgrading requested currency to points",
				"player_id", playerID, "stake", stake)
			currency = domain.CurrencyPoints
		}
	}

	allowJoin := true
	for {
		// фаза 1: выбор назначения под блокировкой, без мутаций
		r.mu.Lock()
		targetID := ""
		joining := false
		if allowJoin {
			if m := r.findWaitingPublicLocked(playerID, currency, stake); m != nil {
				targetID = m.ID
				joining = true
			}
		}
		if targetID == "" {
			// id будущего парного матча или заглушки
			targetID = r.newMatchID("")
		}
		r.mu.Unlock()

		// фаза 2: резерв ставки вне критической секции под id назначения
		if err := r.reserveStake(ctx, account, currency, stake, targetID); err != nil {
			return nil, false, err
		}

		// фаза 3: посадка с перепроверкой под блокировкой
		r.mu.Lock()

		// авто-уход из предыдущего живого матча перед сопоставлением
		if oldID, ok := r.playerMatch[playerID]; ok {
			if old, live := r.matches[oldID]; live && old.Status != game.StatusFinished {
				r.leaveLocked(playerID, old)
			} else {
				delete(r.playerMatch, playerID)
			}
		}

		if joining {
			// (a) матч-назначение мог закрыться за время резерва
			m, ok := r.matches[targetID]
			if !ok || m.Status != game.StatusWaiting || m.Occupied() != 1 || m.HasPlayer(playerID) {
				r.mu.Unlock()
				r.refundStake(account, currency, stake, targetID)
				allowJoin = false
				continue
			}
			opponentID := ""
			for i := range m.Slots {
				if m.Slots[i].PlayerID != "" {
					opponentID = m.Slots[i].PlayerID
				}
			}
			joined, err := r.joinLocked(m, playerID, sess, account)
			if err != nil {
				r.mu.Unlock()
				r.refundStake(account, currency, stake, targetID)
				allowJoin = false
				continue
			}
			// снимаем заявку создателя - он дождался пары
			r.queue.Remove(opponentID)
			r.updateGaugesLocked()
			r.mu.Unlock()
			return joined, true, nil
		}

		// (b) совместимая заявка в очереди - пара в свежий матч
		if t := r.queue.Match(playerID, currency, stake); t != nil {
			// заглушка партнера по заявке больше не нужна
			if oldID, ok := r.playerMatch[t.PlayerID]; ok {
				if old, live := r.matches[oldID]; live && old.Status == game.StatusWaiting {
					r.cancelRoundTimer(oldID)
					delete(r.matches, oldID)
				}
				delete(r.playerMatch, t.PlayerID)
			}

			m := game.NewMatch(targetID, game.KindPublic, currency, stake)
			if err := m.AddPlayer(t.PlayerID, t.Session, t.Account, r.cfg.PlatformFeePercent); err != nil {
				r.mu.Unlock()
				return nil, false, err
			}
			if err := m.AddPlayer(playerID, sess, account, r.cfg.PlatformFeePercent); err != nil {
				r.mu.Unlock()
				return nil, false, err
			}
			r.matches[m.ID] = m
			r.playerMatch[t.PlayerID] = m.ID
			r.playerMatch[playerID] = m.ID
			r.updateGaugesLocked()

			logger.Info("matchmaking pair", "match_id", m.ID,
				"p1", t.PlayerID, "p2", playerID, "currency", currency, "stake", stake)

			r.armRoundTimer(m)
			emitMatch(m, EvMatchStarted, map[string]any{"match": m.View()})
			r.mu.Unlock()
			return m, true, nil
		}

		// (c) никого подходящего - встаем в очередь с матчем-заглушкой
		r.queue.Enqueue(&Ticket{
			PlayerID: playerID,
			Session:  sess,
			Stake:    stake,
			Currency: currency,
			Account:  account,
		})

		m := game.NewMatch(targetID, game.KindPublic, currency, stake)
		if err := m.AddPlayer(playerID, sess, account, r.cfg.PlatformFeePercent); err != nil {
			r.mu.Unlock()
			return nil, false, err
		}
		r.matches[m.ID] = m
		r.playerMatch[playerID] = m.ID
		r.updateGaugesLocked()
		r.mu.Unlock()

		emit(sess, EvMatchCreated, map[string]any{"match": m.View(), "queued": true})
		return m, false, nil
	}
}

// findWaitingPublicLocked ищет ожидающий публичный матч с идентичной
// ставкой и валютой, исключая матчи самого игрока
func (r *Registry) findWaitingPublicLocked(playerID, currency string, stake int64) *game.Match {
	for _, m := range r.matches {
		if m.Kind != game.KindPublic || m.Status != game.StatusWaiting {
			continue
		}
		if m.Currency != currency || m.Stake != stake {
			continue
		}
		if m.Occupied() != 1 || m.HasPlayer(playerID) {
			continue
		}
		return m
	}
	return nil
}

// joinLocked — внутренняя посадка в матч под уже взятой блокировкой
func (r *Registry) joinLocked(m *game.Match, playerID string, sess game.Session, account string) (*game.Match, error) {
	if err := m.AddPlayer(playerID, sess, account, r.cfg.PlatformFeePercent); err != nil {
		return nil, err
	}
	for i := range m.Slots {
		if m.Slots[i].PlayerID != "" {
			r.playerMatch[m.Slots[i].PlayerID] = m.ID
		}
	}
	emit(sess, EvMatchJoined, map[string]any{"match": m.View()})
	if opp := m.Opponent(playerID); opp != nil {
		emit(opp.Session, EvPlayerJoined, map[string]any{
			"match_id":  m.ID,
			"player_id": playerID,
		})
	}
	if m.Status == game.StatusActive {
		r.armRoundTimer(m)
		emitMatch(m, EvMatchStarted, map[string]any{"match": m.View()})
	}
	return m, nil
}

// SubmitResult — итог приема хода
type SubmitResult struct {
	Match         *game.Match
	RoundComplete bool
	RoundResult   *game.RoundRecord
}

// SubmitMove принимает ход игрока. Основной поиск - по отображению
// игрок→матч; при промахе выполняется ограниченный документированный
// скан восстановления по живым матчам в порядке приоритета:
// (1) матч-подсказка, если он содержит игрока и активен,
// (2) любой активный матч с игроком,
// (3) любой матч в любом статусе с игроком.
// Попадание чинит отображение. Скан маскирует историческую
// рассинхронизацию карты - см. решение в DESIGN.md.
func (r *Registry) SubmitMove(playerID, moveStr, matchHint string) (SubmitResult, error) {
	mv, err := game.ParseMove(moveStr)
	if err != nil {
		return SubmitResult{}, ErrInvalidMove
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.locatePlayerMatchLocked(playerID, matchHint)
	if m == nil {
		return SubmitResult{}, ErrPlayerNotInAnyMatch
	}
	if m.Status == game.StatusFinished {
		return SubmitResult{}, ErrMatchFinished
	}

	if err := m.SetMove(playerID, mv); err != nil {
		return SubmitResult{}, ErrPlayerNotInAnyMatch
	}

	slot := m.Slot(playerID)
	emit(slot.Session, EvMoveSubmitted, map[string]any{
		"player_id": playerID,
		"move":      string(mv),
		"match":     m.View(),
	})
	if opp := m.Opponent(playerID); opp != nil {
		emit(opp.Session, EvOpponentMoved, map[string]any{
			"match_id":       m.ID,
			"both_submitted": m.BothMoved(),
		})
	}

	res := SubmitResult{Match: m}
	if m.Status == game.StatusActive && m.BothMoved() {
		rec := r.resolveRoundLocked(m, "move")
		res.RoundComplete = true
		res.RoundResult = &rec
	}
	return res, nil
}

// locatePlayerMatchLocked — карта, затем скан восстановления; чинит карту
func (r *Registry) locatePlayerMatchLocked(playerID, hint string) *game.Match {
	if id, ok := r.playerMatch[playerID]; ok {
		if m, live := r.matches[id]; live && m.HasPlayer(playerID) {
			return m
		}
		delete(r.playerMatch, playerID)
	}

	repair := func(m *game.Match) *game.Match {
		logger.Warn("player→match map repaired by scan",
			"player_id", playerID, "match_id", m.ID, "status", m.Status)
		r.playerMatch[playerID] = m.ID
		return m
	}

	if hint != "" {
		if m, ok := r.matches[hint]; ok && m.HasPlayer(playerID) && m.Status == game.StatusActive {
			return repair(m)
		}
	}
	for _, m := range r.matches {
		if m.Status == game.StatusActive && m.HasPlayer(playerID) {
			return repair(m)
		}
	}
	for _, m := range r.matches {
		if m.HasPlayer(playerID) {
			return repair(m)
		}
	}
	return nil
}

// resolveRoundLocked — единый путь разрешения раунда для прямых ходов и
// таймаута: один ProcessRound + одна проверка завершения, без
// дублирования бухгалтерии побед.
func (r *Registry) resolveRoundLocked(m *game.Match, trigger string) game.RoundRecord {
	r.cancelRoundTimer(m.ID)

	rec, err := m.ProcessRound()
	if err != nil {
		logger.Error("process round failed", "match_id", m.ID, "error", err)
		return rec
	}
	RoundsResolved.WithLabelValues(trigger).Inc()

	emitMatch(m, EvRoundCompleted, map[string]any{
		"match_id":     m.ID,
		"round_result": rec,
		"match":        m.View(),
	})

	if m.Status == game.StatusFinished {
		r.finishMatchLocked(m, m.WinnerID, "complete", nil)
		return rec
	}

	if err := m.AdvanceRound(); err == nil {
		r.armRoundTimer(m)
		emitMatch(m, EvNextRound, map[string]any{
			"match_id": m.ID,
			"round":    m.Round,
			"match":    m.View(),
		})
	}
	return rec
}

// leavingInfo — данные ушедшего игрока, снятые до очистки слота
type leavingInfo struct {
	PlayerID string
	Account  string
}

// finishMatchLocked — единая точка завершения: статус, таймеры,
// расчет (не более одного раза) и match_finished. loser передается
// явно, когда проигравший слот уже очищен (уход/форфейт).
func (r *Registry) finishMatchLocked(m *game.Match, winnerID, reason string, loser *leavingInfo) {
	m.Finish(winnerID)
	r.cancelRoundTimer(m.ID)
	for i := range m.Slots {
		if m.Slots[i].PlayerID != "" {
			r.cancelGraceCheck(m.Slots[i].PlayerID)
		}
	}
	MatchesFinished.WithLabelValues(reason).Inc()
	r.updateGaugesLocked()

	var winnerAcct, loserID, loserAcct string
	if winnerID != "" {
		if ws := m.Slot(winnerID); ws != nil {
			winnerAcct = ws.Account
		}
		if opp := m.Opponent(winnerID); opp != nil {
			loserID, loserAcct = opp.PlayerID, opp.Account
		}
	}
	if loser != nil {
		loserID, loserAcct = loser.PlayerID, loser.Account
	}

	finalScores := map[string]int{}
	for i := range m.Slots {
		if m.Slots[i].PlayerID != "" {
			finalScores[m.Slots[i].PlayerID] = m.Slots[i].Wins
		}
	}

	emitMatch(m, EvMatchFinished, map[string]any{
		"match_id":     m.ID,
		"match":        m.View(),
		"winner":       winnerID,
		"final_scores": finalScores,
		"payout":       m.WinnerPayout,
		"reason":       reason,
	})

	logger.Info("match finished", "match_id", m.ID, "winner", winnerID,
		"reason", reason, "rounds", len(m.History))

	// расчет строго один раз, какой бы путь ни завершил матч
	if m.Settled || winnerID == "" || m.Pot == 0 {
		return
	}
	m.Settled = true

	summary := MatchSummary{
		MatchID:    m.ID,
		Currency:   m.Currency,
		Stake:      m.Stake,
		Pot:        m.Pot,
		WinnerID:   winnerID,
		WinnerAcct: winnerAcct,
		LoserID:    loserID,
		LoserAcct:  loserAcct,
		Rounds:     len(m.History),
		Forfeit:    reason != "complete",
		FinishedAt: m.FinishedAt,
	}

	// граница с коллабораторами: вне критической секции, с таймаутом;
	// неуспех логируется и НЕ ретраится движком
	go r.dispatchSettlement(summary)
}

func (r *Registry) dispatchSettlement(s MatchSummary) {
	ctx, cancel := context.WithTimeout(context.Background(), collaboratorTimeout)
	defer cancel()

	if r.profiles != nil {
		if err := r.profiles.RecordHistory(ctx, s); err != nil {
			logger.Error("record history failed", "match_id", s.MatchID, "error", err)
		}
	}

	if r.settler == nil {
		return
	}
	if ok := r.settler.NotifyMatchSettled(ctx, s.MatchID, s.WinnerAcct, s.LoserAcct, s.Stake, s.Currency); !ok {
		SettlementNotifies.WithLabelValues("failed").Inc()
		logger.Error("settlement notify failed", "match_id", s.MatchID,
			"winner", s.WinnerAcct, "error", ErrSettlementNotifyFailed)
		return
	}
	SettlementNotifies.WithLabelValues("ok").Inc()
}

// LeaveMatch убирает игрока из очереди и из его матча. Пустой матч
// завершается без победителя; уход из активного - форфейт в пользу
// оставшегося; уход из ожидающего - возврат ставки ушедшему.
func (r *Registry) LeaveMatch(playerID string) (string, *game.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	hadTicket := r.queue.Remove(playerID)

	id, ok := r.playerMatch[playerID]
	if !ok {
		r.updateGaugesLocked()
		if hadTicket {
			return "", nil, nil
		}
		return "", nil, ErrPlayerNotInAnyMatch
	}
	m, live := r.matches[id]
	if !live {
		delete(r.playerMatch, playerID)
		return "", nil, ErrMatchNotFound
	}

	r.leaveLocked(playerID, m)
	return id, m, nil
}

// leaveLocked — общий путь ухода (явный leave и авто-уход матчмейкинга)
func (r *Registry) leaveLocked(playerID string, m *game.Match) {
	slot := m.Slot(playerID)
	if slot == nil {
		delete(r.playerMatch, playerID)
		return
	}
	left := leavingInfo{PlayerID: playerID, Account: slot.Account}
	wasActive := m.Status == game.StatusActive
	wasWaiting := m.Status == game.StatusWaiting
	stake, currency := m.Stake, m.Currency
	matchID := m.ID

	delete(r.playerMatch, playerID)
	r.cancelGraceCheck(playerID)
	m.RemovePlayer(playerID)

	// матч так и не начался - вернуть ставку ушедшему
	if wasWaiting {
		r.refundStake(left.Account, currency, stake, matchID)
	}

	switch {
	case m.Occupied() == 0:
		m.Finish("")
		r.cancelRoundTimer(m.ID)
		MatchesFinished.WithLabelValues("abandoned").Inc()

	case wasActive:
		remaining := ""
		for i := range m.Slots {
			if m.Slots[i].PlayerID != "" {
				remaining = m.Slots[i].PlayerID
			}
		}
		r.finishMatchLocked(m, remaining, "forfeit_leave", &left)
	}

	emitMatch(m, EvPlayerLeft, map[string]any{
		"match_id":  matchID,
		"player_id": playerID,
	})
	r.updateGaugesLocked()
}

// HandleDisconnect — уведомление о потере транспорта. Активный матч
// получает отложенную грейс-проверку форфейта; ожидающий разбирается
// сразу как уход (ставка возвращается).
func (r *Registry) HandleDisconnect(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.playerMatch[playerID]
	if !ok {
		// мог стоять только в очереди
		r.queue.Remove(playerID)
		r.updateGaugesLocked()
		return
	}
	m, live := r.matches[id]
	if !live {
		delete(r.playerMatch, playerID)
		return
	}

	switch m.Status {
	case game.StatusActive:
		if slot := m.Slot(playerID); slot != nil {
			slot.Session = nil
		}
		if opp := m.Opponent(playerID); opp != nil {
			emit(opp.Session, EvPlayerDisconnected, map[string]any{
				"match_id":  m.ID,
				"player_id": playerID,
				"grace_ms":  r.cfg.GraceWindow.Milliseconds(),
			})
		}
		logger.Info("player disconnected, grace scheduled",
			"match_id", m.ID, "player_id", playerID)
		r.scheduleGraceCheck(playerID)

	case game.StatusWaiting:
		r.queue.Remove(playerID)
		r.leaveLocked(playerID, m)
	}
}

// HandleReconnect заново привязывает живую сессию игрока и молча
// отменяет назревающий форфейт. Возвращает матч для ресинка состояния.
func (r *Registry) HandleReconnect(playerID string, sess game.Session) *game.Match {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cancelGraceCheck(playerID)

	id, ok := r.playerMatch[playerID]
	if !ok {
		return nil
	}
	m, live := r.matches[id]
	if !live {
		return nil
	}
	if slot := m.Slot(playerID); slot != nil {
		slot.Session = sess
		logger.Info("player reconnected", "match_id", m.ID, "player_id", playerID)
	}
	return m
}

// GetMatch — чистое чтение матча по id
func (r *Registry) GetMatch(matchID string) (*game.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[matchID]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return m, nil
}

// GetPlayerMatch — чистое чтение текущего матча игрока
func (r *Registry) GetPlayerMatch(playerID string) (*game.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.playerMatch[playerID]
	if !ok {
		return nil, ErrPlayerNotInAnyMatch
	}
	m, live := r.matches[id]
	if !live {
		return nil, ErrMatchNotFound
	}
	return m, nil
}

// Stats — счетчики реестра
type Stats struct {
	Matches  int `json:"matches"`
	Active   int `json:"active"`
	Waiting  int `json:"waiting"`
	Finished int `json:"finished"`
	Queued   int `json:"queued"`
	Players  int `json:"players"`
}

func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Stats{
		Matches: len(r.matches),
		Queued:  r.queue.Len(),
		Players: len(r.playerMatch),
	}
	for _, m := range r.matches {
		switch m.Status {
		case game.StatusActive:
			s.Active++
		case game.StatusWaiting:
			s.Waiting++
		case game.StatusFinished:
			s.Finished++
		}
	}
	return s
}

// Sweep выметает завершенные матчи старше порога вместе с их записями
// в отображении игрок→матч. Возвращает число удаленных матчей.
func (r *Registry) Sweep(maxAge time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, m := range r.matches {
		if m.Status != game.StatusFinished || m.FinishedAt.After(cutoff) {
			continue
		}
		r.cancelRoundTimer(id)
		delete(r.matches, id)
		for pid, mid := range r.playerMatch {
			if mid == id {
				delete(r.playerMatch, pid)
			}
		}
		removed++
	}
	if removed > 0 {
		logger.Info("sweep removed finished matches", "count", removed)
		r.updateGaugesLocked()
	}
	return removed
}

// StartSweeper запускает периодическую уборку завершенных матчей
func (r *Registry) StartSweeper(ctx context.Context, interval, maxAge time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Sweep(maxAge)
			}
		}
	}()
}

func (r *Registry) updateGaugesLocked() {
	active, waiting := 0, 0
	for _, m := range r.matches {
		switch m.Status {
		case game.StatusActive:
			active++
		case game.StatusWaiting:
			waiting++
		}
	}
	MatchesActive.Set(float64(active))
	MatchesWaiting.Set(float64(waiting))
	QueueDepth.Set(float64(r.queue.Len()))
}
