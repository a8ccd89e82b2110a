package session

import "errors"

// Ошибки движка. Все восстановимые: возвращаются вызывающей операции и
// уходят исходящим сообщением error в сессию-источник, процесс не падает.
var (
	ErrInvalidMove            = errors.New("invalid move")
	ErrMatchNotFound          = errors.New("match not found")
	ErrPlayerNotInAnyMatch    = errors.New("player is not in any match")
	ErrMatchFull              = errors.New("match is full")
	ErrMatchFinished          = errors.New("match already finished")
	ErrMatchInProgress        = errors.New("match already in progress")
	ErrInvalidStake           = errors.New("invalid stake")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrSettlementNotifyFailed = errors.New("settlement notify failed")
)
