package repository

import (
	"context"
	"errors"

	"rps_arena/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// получает пользователя по внутреннему id
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, tg_id, username, first_name, created_at, points, ton_nano,
		       matches_played, matches_won, referral_earnings
		FROM users
		WHERE id = $1
	`, id)
	return scanUser(row)
}

// получает пользователя по telegram id
func (r *UserRepository) GetByTgID(ctx context.Context, tgID int64) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, tg_id, username, first_name, created_at, points, ton_nano,
		       matches_played, matches_won, referral_earnings
		FROM users
		WHERE tg_id = $1
	`, tgID)
	return scanUser(row)
}

// создает пользователя при первом входе или обновляет имя при повторном
func (r *UserRepository) Upsert(ctx context.Context, u *domain.User) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO users (tg_id, username, first_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (tg_id) DO UPDATE
		SET username = EXCLUDED.username, first_name = EXCLUDED.first_name
		RETURNING id, created_at, points, ton_nano, matches_played, matches_won, referral_earnings
	`, u.TgID, u.Username, u.FirstName).Scan(
		&u.ID, &u.CreatedAt, &u.Points, &u.TonNano,
		&u.MatchesPlayed, &u.MatchesWon, &u.ReferralEarnings,
	)
}

// инкрементирует счетчики сыгранных матчей; won прибавляется победителю
func (r *UserRepository) BumpMatchStats(ctx context.Context, userID int64, won bool) error {
	if won {
		_, err := r.db.Exec(ctx, `
			UPDATE users SET matches_played = matches_played + 1, matches_won = matches_won + 1
			WHERE id = $1
		`, userID)
		return err
	}
	_, err := r.db.Exec(ctx, `
		UPDATE users SET matches_played = matches_played + 1 WHERE id = $1
	`, userID)
	return err
}

// возвращает id пригласившего, если он есть
func (r *UserRepository) GetReferrerID(ctx context.Context, userID int64) (int64, error) {
	var referrerID int64
	err := r.db.QueryRow(ctx, `
		SELECT referred_by FROM users WHERE id = $1 AND referred_by IS NOT NULL
	`, userID).Scan(&referrerID)
	return referrerID, err
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(
		&u.ID, &u.TgID, &u.Username, &u.FirstName, &u.CreatedAt,
		&u.Points, &u.TonNano, &u.MatchesPlayed, &u.MatchesWon, &u.ReferralEarnings,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
