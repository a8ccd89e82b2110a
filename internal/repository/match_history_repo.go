package repository

import (
	"context"

	"rps_arena/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type MatchHistoryRepository struct {
	db *pgxpool.Pool
}

func NewMatchHistoryRepository(db *pgxpool.Pool) *MatchHistoryRepository {
	return &MatchHistoryRepository{db: db}
}

// пишет итог матча; повторная запись того же match_id игнорируется
func (r *MatchHistoryRepository) Create(ctx context.Context, m *domain.MatchRecord) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO match_history (match_id, currency, stake, pot, winner_id, loser_id, rounds, forfeit, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (match_id) DO NOTHING
	`, m.MatchID, m.Currency, m.Stake, m.Pot, m.WinnerID, m.LoserID, m.Rounds, m.Forfeit, m.FinishedAt)
	return err
}

// возвращает последние матчи игрока (как победителя или проигравшего)
func (r *MatchHistoryRepository) GetByPlayer(ctx context.Context, playerID string, limit int) ([]domain.MatchRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, match_id, currency, stake, pot, winner_id, loser_id, rounds, forfeit, finished_at, created_at
		FROM match_history
		WHERE winner_id = $1 OR loser_id = $1
		ORDER BY finished_at DESC
		LIMIT $2
	`, playerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.MatchRecord
	for rows.Next() {
		var m domain.MatchRecord
		if err := rows.Scan(
			&m.ID, &m.MatchID, &m.Currency, &m.Stake, &m.Pot,
			&m.WinnerID, &m.LoserID, &m.Rounds, &m.Forfeit, &m.FinishedAt, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, m)
	}
	return records, rows.Err()
}

// лидерборд: топ игроков по числу побед
func (r *MatchHistoryRepository) Leaderboard(ctx context.Context, limit int) ([]domain.PlayerStats, error) {
	rows, err := r.db.Query(ctx, `
		SELECT u.id, u.username, u.matches_played, u.matches_won,
		       COALESCE(SUM(t.amount) FILTER (WHERE t.currency = 'points' AND t.kind = 'match_payout'), 0),
		       COALESCE(SUM(t.amount) FILTER (WHERE t.currency = 'ton' AND t.kind = 'match_payout'), 0)
		FROM users u
		LEFT JOIN transactions t ON t.user_id = u.id
		GROUP BY u.id, u.username, u.matches_played, u.matches_won
		HAVING u.matches_played > 0
		ORDER BY u.matches_won DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []domain.PlayerStats
	for rows.Next() {
		var s domain.PlayerStats
		if err := rows.Scan(
			&s.UserID, &s.Username, &s.MatchesPlayed, &s.MatchesWon, &s.PointsWon, &s.TonWonNano,
		); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
