package session

import "rps_arena/internal/game"

// Исходящие сообщения движка (session-addressed). Имена - протокольные.
const (
	EvMatchCreated       = "match_created"
	EvMatchJoined        = "match_joined"
	EvPlayerJoined       = "player_joined"
	EvMatchStarted       = "match_started"
	EvRoundTick          = "round_tick"
	EvMoveSubmitted      = "move_submitted"
	EvOpponentMoved      = "opponent_move_submitted"
	EvRoundCompleted     = "round_completed"
	EvNextRound          = "next_round"
	EvMatchFinished      = "match_finished"
	EvPlayerLeft         = "player_left"
	EvPlayerDisconnected = "player_disconnected"
	EvError              = "error"
)

// emit шлет событие в сессию; nil-сессии и мертвые клиенты игнорируются,
// отправка не должна блокировать критическую секцию реестра
func emit(s game.Session, typ string, payload map[string]any) {
	if s == nil {
		return
	}
	s.SendEvent(typ, payload)
}

// emitMatch шлет событие обоим занятым слотам матча
func emitMatch(m *game.Match, typ string, payload map[string]any) {
	for i := range m.Slots {
		if m.Slots[i].PlayerID != "" {
			emit(m.Slots[i].Session, typ, payload)
		}
	}
}
