package repository

import (
	"context"

	"rps_arena/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TransactionRepository struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// пишет запись леджера в рамках уже открытой транзакции базы
func (r *TransactionRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	return tx.QueryRow(ctx, `
		INSERT INTO transactions (user_id, currency, amount, kind, match_id, balance_after)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, t.UserID, t.Currency, t.Amount, t.Kind, t.MatchID, t.Balance).Scan(&t.ID, &t.CreatedAt)
}

// пишет одиночную запись леджера
func (r *TransactionRepository) Create(ctx context.Context, t *domain.Transaction) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO transactions (user_id, currency, amount, kind, match_id, balance_after)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, t.UserID, t.Currency, t.Amount, t.Kind, t.MatchID, t.Balance).Scan(&t.ID, &t.CreatedAt)
}

// возвращает последние движения по балансу пользователя
func (r *TransactionRepository) GetByUserID(ctx context.Context, userID int64, limit int) ([]*domain.Transaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, currency, amount, kind, COALESCE(match_id, ''), balance_after, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.Currency, &t.Amount, &t.Kind, &t.MatchID, &t.Balance, &t.CreatedAt,
		); err != nil {
			return nil, err
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}
