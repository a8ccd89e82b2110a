package session

import (
	"testing"

	"rps_arena/internal/domain"
)

func ticket(player string, stake int64, currency string) *Ticket {
	return &Ticket{PlayerID: player, Stake: stake, Currency: currency, Account: player}
}

func TestQueueEnqueueReplacesExistingTicket(t *testing.T) {
	q := NewQueue()

	q.Enqueue(ticket("p1", 10, domain.CurrencyPoints))
	q.Enqueue(ticket("p2", 10, domain.CurrencyPoints))
	q.Enqueue(ticket("p1", 50, domain.CurrencyPoints))

	if q.Len() != 2 {
		t.Fatalf("len = %d, want 2 (ticket replaced, not duplicated)", q.Len())
	}

	// старая заявка p1 на 10 ушла вместе с заменой
	if got := q.Match("p3", domain.CurrencyPoints, 10); got == nil || got.PlayerID != "p2" {
		t.Fatalf("match for 10 = %+v, want p2", got)
	}
	if got := q.Match("p3", domain.CurrencyPoints, 50); got == nil || got.PlayerID != "p1" {
		t.Fatalf("match for 50 = %+v, want replaced p1 ticket", got)
	}
}

func TestQueueMatchCriteria(t *testing.T) {
	tests := []struct {
		name     string
		waiting  *Ticket
		seeker   string
		stake    int64
		currency string
		want     string // "" когда пары нет
	}{
		{"same stake and currency", ticket("p1", 25, domain.CurrencyPoints), "p2", 25, domain.CurrencyPoints, "p1"},
		{"different stake", ticket("p1", 25, domain.CurrencyPoints), "p2", 30, domain.CurrencyPoints, ""},
		{"different currency", ticket("p1", 100, domain.CurrencyTON), "p2", 100, domain.CurrencyPoints, ""},
		{"self is excluded", ticket("p1", 25, domain.CurrencyPoints), "p1", 25, domain.CurrencyPoints, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQueue()
			q.Enqueue(tt.waiting)

			got := q.Match(tt.seeker, tt.currency, tt.stake)
			if tt.want == "" {
				if got != nil {
					t.Fatalf("unexpected pair %+v", got)
				}
				if q.Len() != 1 {
					t.Fatal("failed match must not consume the ticket")
				}
				return
			}
			if got == nil || got.PlayerID != tt.want {
				t.Fatalf("match = %+v, want %s", got, tt.want)
			}
			if q.Len() != 0 {
				t.Fatal("matched ticket must be extracted")
			}
		})
	}
}

func TestQueueMatchIsFIFO(t *testing.T) {
	q := NewQueue()
	q.Enqueue(ticket("p1", 25, domain.CurrencyPoints))
	q.Enqueue(ticket("p2", 25, domain.CurrencyPoints))
	q.Enqueue(ticket("p3", 25, domain.CurrencyPoints))

	first := q.Match("seeker", domain.CurrencyPoints, 25)
	second := q.Match("seeker", domain.CurrencyPoints, 25)
	if first.PlayerID != "p1" || second.PlayerID != "p2" {
		t.Fatalf("order broken: %s, %s", first.PlayerID, second.PlayerID)
	}
}

func TestQueueRemove(t *testing.T) {
	q := NewQueue()
	q.Enqueue(ticket("p1", 25, domain.CurrencyPoints))

	if !q.Remove("p1") {
		t.Fatal("remove existing = false")
	}
	if q.Remove("p1") {
		t.Fatal("second remove = true")
	}
	if q.Has("p1") || q.Len() != 0 {
		t.Fatal("queue not empty after remove")
	}
}
