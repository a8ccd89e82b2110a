package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"rps_arena/internal/game"
	"rps_arena/internal/logger"
	"rps_arena/internal/session"
)

const opTimeout = 5 * time.Second

// Входящие типы сообщений - закрытое множество; все остальное
// отвечается ошибкой, а не молчанием
const (
	msgCreateMatch     = "create_match"
	msgJoinMatch       = "join_match"
	msgFindRandomMatch = "find_random_match"
	msgSubmitMove      = "submit_move"
	msgLeaveMatch      = "leave_match"
	msgGetMatchState   = "get_match_state"
	msgGetStats        = "get_stats"
)

var errUnknownMessage = errors.New("unknown message type")

// inboundMessage — один конверт на все входящие типы; лишние поля
// для конкретного типа игнорируются
type inboundMessage struct {
	Type     string `json:"type"`
	MatchID  string `json:"match_id,omitempty"`
	Kind     string `json:"kind,omitempty"`
	Stake    int64  `json:"stake,omitempty"`
	Currency string `json:"currency,omitempty"`
	Move     string `json:"move,omitempty"`
}

// handleInbound разбирает и диспатчит одно входящее сообщение.
// Ошибки операций уходят клиенту событием error; движок жив всегда.
func (c *Client) handleInbound(raw []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError(errors.New("malformed message"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var err error
	switch msg.Type {
	case msgCreateMatch:
		err = c.onCreateMatch(ctx, msg)
	case msgJoinMatch:
		err = c.onJoinMatch(ctx, msg)
	case msgFindRandomMatch:
		err = c.onFindRandomMatch(ctx, msg)
	case msgSubmitMove:
		err = c.onSubmitMove(msg)
	case msgLeaveMatch:
		err = c.onLeaveMatch()
	case msgGetMatchState:
		err = c.onGetMatchState(msg)
	case msgGetStats:
		c.onGetStats()
	default:
		logger.Warn("ws unknown message type", "user_id", c.UserID, "type", msg.Type)
		err = errUnknownMessage
	}

	if err != nil {
		c.sendError(err)
	}
}

func (c *Client) onCreateMatch(ctx context.Context, msg inboundMessage) error {
	kind := game.KindPrivate
	if msg.Kind == string(game.KindPublic) {
		kind = game.KindPublic
	}
	_, err := c.registry.CreateMatch(ctx, session.CreateParams{
		Kind:        kind,
		Stake:       msg.Stake,
		Currency:    msg.Currency,
		CreatorID:   c.ID(),
		Session:     c,
		Account:     c.ID(),
		RequestedID: msg.MatchID,
	})
	return err
}

func (c *Client) onJoinMatch(ctx context.Context, msg inboundMessage) error {
	if msg.MatchID == "" {
		return session.ErrMatchNotFound
	}
	_, err := c.registry.JoinMatch(ctx, msg.MatchID, c.ID(), c, c.ID())
	return err
}

func (c *Client) onFindRandomMatch(ctx context.Context, msg inboundMessage) error {
	_, _, err := c.registry.FindOrCreateRandomMatch(ctx, c.ID(), c, msg.Stake, msg.Currency, c.ID())
	return err
}

func (c *Client) onSubmitMove(msg inboundMessage) error {
	_, err := c.registry.SubmitMove(c.ID(), msg.Move, msg.MatchID)
	return err
}

func (c *Client) onLeaveMatch() error {
	_, _, err := c.registry.LeaveMatch(c.ID())
	return err
}

func (c *Client) onGetMatchState(msg inboundMessage) error {
	var m *game.Match
	var err error
	if msg.MatchID != "" {
		m, err = c.registry.GetMatch(msg.MatchID)
	} else {
		m, err = c.registry.GetPlayerMatch(c.ID())
	}
	if err != nil {
		return err
	}
	c.SendEvent("match_state", map[string]any{"match": m.View()})
	return nil
}

func (c *Client) onGetStats() {
	s := c.registry.Stats()
	c.SendEvent("stats", map[string]any{"stats": s})
}

func (c *Client) sendError(err error) {
	c.SendEvent(session.EvError, map[string]any{"message": err.Error()})
}
