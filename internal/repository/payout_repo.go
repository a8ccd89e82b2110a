package repository

import (
	"context"
	"errors"
	"time"

	"rps_arena/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PayoutRepository struct {
	db *pgxpool.Pool
}

func NewPayoutRepository(db *pgxpool.Pool) *PayoutRepository {
	return &PayoutRepository{db: db}
}

// создает запись об исходящей он-чейн выплате
func (r *PayoutRepository) Create(ctx context.Context, p *domain.Payout) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO payouts (user_id, match_id, wallet_address, amount_nano, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, p.UserID, p.MatchID, p.WalletAddress, p.AmountNano, p.Status).Scan(&p.ID, &p.CreatedAt)
}

// получает выплату по id матча (не больше одной на матч)
func (r *PayoutRepository) GetByMatchID(ctx context.Context, matchID string) (*domain.Payout, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, match_id, wallet_address, amount_nano, status,
		       tx_hash, tx_lt, attempts, last_error, created_at, completed_at
		FROM payouts
		WHERE match_id = $1
	`, matchID)
	return scanPayout(row)
}

// история выплат пользователя, свежие первыми
func (r *PayoutRepository) GetByUserID(ctx context.Context, userID int64, limit int) ([]domain.Payout, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, match_id, wallet_address, amount_nano, status,
		       tx_hash, tx_lt, attempts, last_error, created_at, completed_at
		FROM payouts
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payouts []domain.Payout
	for rows.Next() {
		p, err := scanPayoutRow(rows)
		if err != nil {
			return nil, err
		}
		payouts = append(payouts, *p)
	}
	return payouts, rows.Err()
}

// возвращает зависшие выплаты для повторной отправки
func (r *PayoutRepository) GetPending(ctx context.Context) ([]domain.Payout, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, match_id, wallet_address, amount_nano, status,
		       tx_hash, tx_lt, attempts, last_error, created_at, completed_at
		FROM payouts
		WHERE status = 'pending'
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payouts []domain.Payout
	for rows.Next() {
		p, err := scanPayoutRow(rows)
		if err != nil {
			return nil, err
		}
		payouts = append(payouts, *p)
	}
	return payouts, rows.Err()
}

// помечает выплату отправленной с хэшем транзакции
func (r *PayoutRepository) MarkSent(ctx context.Context, id int64, txHash string, txLt int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE payouts SET status = 'sent', tx_hash = $2, tx_lt = $3, attempts = attempts + 1
		WHERE id = $1
	`, id, txHash, txLt)
	return err
}

// помечает выплату завершенной
func (r *PayoutRepository) MarkCompleted(ctx context.Context, id int64) error {
	now := time.Now()
	_, err := r.db.Exec(ctx, `
		UPDATE payouts SET status = 'completed', completed_at = $2 WHERE id = $1
	`, id, now)
	return err
}

// помечает выплату неудачной с текстом ошибки
func (r *PayoutRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE payouts SET status = 'failed', last_error = $2, attempts = attempts + 1
		WHERE id = $1
	`, id, reason)
	return err
}

func scanPayout(row pgx.Row) (*domain.Payout, error) {
	var p domain.Payout
	var txHash, lastError *string
	var txLt *int64
	var completedAt *time.Time

	if err := row.Scan(
		&p.ID, &p.UserID, &p.MatchID, &p.WalletAddress, &p.AmountNano, &p.Status,
		&txHash, &txLt, &p.Attempts, &lastError, &p.CreatedAt, &completedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if txHash != nil {
		p.TxHash = *txHash
	}
	if txLt != nil {
		p.TxLt = *txLt
	}
	if lastError != nil {
		p.LastError = *lastError
	}
	p.CompletedAt = completedAt
	return &p, nil
}

func scanPayoutRow(rows pgx.Rows) (*domain.Payout, error) {
	var p domain.Payout
	var txHash, lastError *string
	var txLt *int64
	var completedAt *time.Time

	if err := rows.Scan(
		&p.ID, &p.UserID, &p.MatchID, &p.WalletAddress, &p.AmountNano, &p.Status,
		&txHash, &txLt, &p.Attempts, &lastError, &p.CreatedAt, &completedAt,
	); err != nil {
		return nil, err
	}
	if txHash != nil {
		p.TxHash = *txHash
	}
	if txLt != nil {
		p.TxLt = *txLt
	}
	if lastError != nil {
		p.LastError = *lastError
	}
	p.CompletedAt = completedAt
	return &p, nil
}
