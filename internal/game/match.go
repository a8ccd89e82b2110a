package game

import (
	"errors"
	"time"
)

type MatchKind string

const (
	KindPublic  MatchKind = "public"
	KindPrivate MatchKind = "private"
)

type MatchStatus string

const (
	StatusWaiting  MatchStatus = "waiting_for_opponent"
	StatusActive   MatchStatus = "active"
	StatusFinished MatchStatus = "finished"
)

// WinsToFinish — матч идет до трех побед в раундах (best of five)
const WinsToFinish = 3

var (
	ErrMatchFull        = errors.New("match already has two players")
	ErrMatchFinished    = errors.New("match already finished")
	ErrMatchNotActive   = errors.New("match is not active")
	ErrMovesNotReady    = errors.New("both moves are required to resolve a round")
	ErrPlayerNotInMatch = errors.New("player is not in this match")
)

// Session — транспортная сессия игрока; реализуется ws-клиентом.
// Игровой пакет видит только ее, чтобы не зависеть от транспорта.
type Session interface {
	ID() string
	Alive() bool
	SendEvent(typ string, payload map[string]any)
}

// PlayerSlot — место игрока внутри матча (не самостоятельная сущность)
type PlayerSlot struct {
	PlayerID    string
	Session     Session
	Account     string
	Wins        int
	CurrentMove *Move
	Ready       bool
	StakePaid   bool
}

func (s *PlayerSlot) occupied() bool { return s.PlayerID != "" }

// RoundRecord — запись в истории раундов матча
type RoundRecord struct {
	Round  int       `json:"round"`
	Move1  Move      `json:"move1"`
	Move2  Move      `json:"move2"`
	Winner string    `json:"winner"` // player id или "" при ничьей
	At     time.Time `json:"at"`
}

// Match — один PvP матч камень-ножницы-бумага со ставкой.
// Все поля мутируются только внутри критической секции реестра.
type Match struct {
	ID           string
	Kind         MatchKind
	Currency     string
	Stake        int64
	Pot          int64 // 2x ставка, фиксируется когда заходит второй игрок
	PlatformFee  int64
	WinnerPayout int64
	Slots        [2]PlayerSlot
	Round        int
	Status       MatchStatus
	WinnerID     string
	History      []RoundRecord
	CreatedAt    time.Time
	FinishedAt   time.Time
	Settled      bool // гарантия одного уведомления о расчете
}

func NewMatch(id string, kind MatchKind, currency string, stake int64) *Match {
	return &Match{
		ID:        id,
		Kind:      kind,
		Currency:  currency,
		Stake:     stake,
		Round:     1,
		Status:    StatusWaiting,
		CreatedAt: time.Now(),
	}
}

// Occupied возвращает число занятых слотов (0, 1 или 2)
func (m *Match) Occupied() int {
	n := 0
	for i := range m.Slots {
		if m.Slots[i].occupied() {
			n++
		}
	}
	return n
}

// Slot возвращает слот игрока или nil
func (m *Match) Slot(playerID string) *PlayerSlot {
	for i := range m.Slots {
		if m.Slots[i].PlayerID == playerID {
			return &m.Slots[i]
		}
	}
	return nil
}

// Opponent возвращает слот противника или nil
func (m *Match) Opponent(playerID string) *PlayerSlot {
	for i := range m.Slots {
		if m.Slots[i].occupied() && m.Slots[i].PlayerID != playerID {
			return &m.Slots[i]
		}
	}
	return nil
}

func (m *Match) HasPlayer(playerID string) bool { return m.Slot(playerID) != nil }

// AddPlayer сажает игрока в первый свободный слот.
// Переход waiting → active происходит когда заняты оба слота;
// банк и выплаты фиксируются в этот момент.
func (m *Match) AddPlayer(playerID string, sess Session, account string, feePercent int64) error {
	if m.Status == StatusFinished {
		return ErrMatchFinished
	}
	if m.HasPlayer(playerID) {
		// реконнект в свой же слот - просто обновляем сессию
		slot := m.Slot(playerID)
		slot.Session = sess
		return nil
	}
	for i := range m.Slots {
		if !m.Slots[i].occupied() {
			m.Slots[i] = PlayerSlot{
				PlayerID:  playerID,
				Session:   sess,
				Account:   account,
				StakePaid: true,
			}
			if m.Occupied() == 2 {
				m.Pot = m.Stake * 2
				m.PlatformFee = m.Pot * feePercent / 100
				m.WinnerPayout = m.Pot - m.PlatformFee
				m.Status = StatusActive
			}
			return nil
		}
	}
	return ErrMatchFull
}

// RemovePlayer освобождает слот игрока: сбрасывает личность, сессию,
// счет побед и текущий ход
func (m *Match) RemovePlayer(playerID string) {
	slot := m.Slot(playerID)
	if slot == nil {
		return
	}
	*slot = PlayerSlot{}
}

// SetMove записывает ход игрока; повторная отправка перезаписывает слот
func (m *Match) SetMove(playerID string, mv Move) error {
	slot := m.Slot(playerID)
	if slot == nil {
		return ErrPlayerNotInMatch
	}
	slot.CurrentMove = &mv
	return nil
}

// BothMoved сообщает, готов ли раунд к разрешению
func (m *Match) BothMoved() bool {
	return m.Slots[0].CurrentMove != nil && m.Slots[1].CurrentMove != nil
}

// ProcessRound разрешает текущий раунд: пишет запись истории с номером
// раунда ДО инкремента, увеличивает счет победителя (ничья не увеличивает
// ничей) и завершает матч, когда один из слотов первым набирает три победы.
// Текущие ходы здесь НЕ очищаются - это делает AdvanceRound, чтобы
// последние сыгранные ходы оставались видимыми опоздавшим читателям.
func (m *Match) ProcessRound() (RoundRecord, error) {
	if m.Status != StatusActive {
		return RoundRecord{}, ErrMatchNotActive
	}
	if !m.BothMoved() {
		return RoundRecord{}, ErrMovesNotReady
	}

	mv1, mv2 := *m.Slots[0].CurrentMove, *m.Slots[1].CurrentMove
	rec := RoundRecord{
		Round: m.Round,
		Move1: mv1,
		Move2: mv2,
		At:    time.Now(),
	}

	switch Resolve(mv1, mv2) {
	case OutcomePlayer1:
		m.Slots[0].Wins++
		rec.Winner = m.Slots[0].PlayerID
	case OutcomePlayer2:
		m.Slots[1].Wins++
		rec.Winner = m.Slots[1].PlayerID
	}
	m.History = append(m.History, rec)

	for i := range m.Slots {
		if m.Slots[i].Wins >= WinsToFinish {
			m.Finish(m.Slots[i].PlayerID)
			break
		}
	}
	return rec, nil
}

// AdvanceRound начинает следующий раунд: инкрементирует номер,
// очищает ходы и флаги готовности. Допустим только для активного матча.
func (m *Match) AdvanceRound() error {
	if m.Status != StatusActive {
		return ErrMatchNotActive
	}
	m.Round++
	for i := range m.Slots {
		m.Slots[i].CurrentMove = nil
		m.Slots[i].Ready = false
	}
	return nil
}

// Finish принудительно завершает матч (форфейт, выход игрока)
func (m *Match) Finish(winnerID string) {
	if m.Status == StatusFinished {
		return
	}
	m.Status = StatusFinished
	m.WinnerID = winnerID
	m.FinishedAt = time.Now()
}

// SlotView — представление слота для клиента (без транспортной сессии)
type SlotView struct {
	PlayerID  string `json:"player_id"`
	Wins      int    `json:"wins"`
	Moved     bool   `json:"moved"`
	Connected bool   `json:"connected"`
}

// MatchView — сериализуемый снимок матча для исходящих сообщений
type MatchView struct {
	ID           string        `json:"id"`
	Kind         MatchKind     `json:"kind"`
	Currency     string        `json:"currency"`
	Stake        int64         `json:"stake"`
	Pot          int64         `json:"pot"`
	WinnerPayout int64         `json:"winner_payout"`
	Round        int           `json:"round"`
	Status       MatchStatus   `json:"status"`
	WinnerID     string        `json:"winner_id,omitempty"`
	Slots        []SlotView    `json:"players"`
	History      []RoundRecord `json:"history"`
	CreatedAt    time.Time     `json:"created_at"`
}

// View строит снимок матча для отправки клиентам
func (m *Match) View() *MatchView {
	v := &MatchView{
		ID:           m.ID,
		Kind:         m.Kind,
		Currency:     m.Currency,
		Stake:        m.Stake,
		Pot:          m.Pot,
		WinnerPayout: m.WinnerPayout,
		Round:        m.Round,
		Status:       m.Status,
		WinnerID:     m.WinnerID,
		History:      m.History,
		CreatedAt:    m.CreatedAt,
	}
	for i := range m.Slots {
		s := &m.Slots[i]
		if !s.occupied() {
			continue
		}
		v.Slots = append(v.Slots, SlotView{
			PlayerID:  s.PlayerID,
			Wins:      s.Wins,
			Moved:     s.CurrentMove != nil,
			Connected: s.Session != nil && s.Session.Alive(),
		})
	}
	return v
}
