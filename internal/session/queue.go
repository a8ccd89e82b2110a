package session

import (
	"time"

	"rps_arena/internal/game"
)

// Ticket — заявка в очереди случайного матчмейкинга.
// Живет только в очереди: удаляется при сопоставлении или отмене.
type Ticket struct {
	PlayerID   string
	Session    game.Session
	Stake      int64
	Currency   string
	Account    string
	EnqueuedAt time.Time
}

// Queue — FIFO-очередь заявок. Критерий пары: одинаковые ставка и
// валюта, разные игроки. Приоритетов и старения нет - только порядок
// вставки. Не потокобезопасна сама по себе: все вызовы идут под
// блокировкой реестра.
type Queue struct {
	tickets []*Ticket
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Len() int { return len(q.tickets) }

// Enqueue ставит заявку в хвост; существующая заявка того же игрока
// заменяется (не дублируется) с сохранением нового места в хвосте
func (q *Queue) Enqueue(t *Ticket) {
	q.Remove(t.PlayerID)
	t.EnqueuedAt = time.Now()
	q.tickets = append(q.tickets, t)
}

// Remove снимает заявку игрока; возвращает true если заявка была
func (q *Queue) Remove(playerID string) bool {
	for i, t := range q.tickets {
		if t.PlayerID == playerID {
			q.tickets = append(q.tickets[:i], q.tickets[i+1:]...)
			return true
		}
	}
	return false
}

// Match ищет первую совместимую заявку (по порядку вставки), исключая
// самого игрока, и извлекает ее из очереди
func (q *Queue) Match(playerID, currency string, stake int64) *Ticket {
	for i, t := range q.tickets {
		if t.PlayerID == playerID {
			continue
		}
		if t.Currency == currency && t.Stake == stake {
			q.tickets = append(q.tickets[:i], q.tickets[i+1:]...)
			return t
		}
	}
	return nil
}

// Has сообщает, стоит ли игрок в очереди
func (q *Queue) Has(playerID string) bool {
	for _, t := range q.tickets {
		if t.PlayerID == playerID {
			return true
		}
	}
	return false
}
