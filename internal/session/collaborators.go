package session

import (
	"context"
	"time"
)

// MatchSummary — итог матча для истории профилей
type MatchSummary struct {
	MatchID    string
	Currency   string
	Stake      int64
	Pot        int64
	WinnerID   string
	WinnerAcct string
	LoserID    string
	LoserAcct  string
	Rounds     int
	Forfeit    bool
	FinishedAt time.Time
}

// ProfileStore — внешний коллаборатор хранения профилей/балансов.
// Движок видит только эти три операции; кастодиальные детали снаружи.
type ProfileStore interface {
	// проверка достаточности баланса перед созданием/входом в матч
	HasSufficientBalance(ctx context.Context, account, currency string, amount int64) (bool, error)
	// резерв ставки при посадке в матч: списывает с баланса;
	// ok=false - недостаточно средств, err - инфраструктурная ошибка
	ReserveStake(ctx context.Context, account, currency string, amount int64, matchID string) (bool, error)
	// возврат ставки (уход из waiting-матча, отмена)
	Refund(ctx context.Context, account, currency string, amount int64, matchID string) error
	// запись итога матча в историю обоих игроков
	RecordHistory(ctx context.Context, summary MatchSummary) error
}

// SettlementNotifier — внешний коллаборатор расчета ставок.
// Вызывается не более одного раза на матч (страхует флаг Settled);
// неуспех логируется, но НЕ ретраится движком - политика повторов
// принадлежит самому коллаборатору.
type SettlementNotifier interface {
	NotifyMatchSettled(ctx context.Context, matchID, winnerAccount, loserAccount string, stake int64, currency string) bool
}
