package repository

import (
	"context"

	"rps_arena/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type WalletRepository struct {
	db *pgxpool.Pool
}

func NewWalletRepository(db *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{db: db}
}

// получает кошелек по id пользователя
func (r *WalletRepository) GetByUserID(ctx context.Context, userID int64) (*domain.Wallet, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, address, raw_address, linked_at, is_verified, last_proof_timestamp
		FROM wallets
		WHERE user_id = $1
	`, userID)
	return scanWallet(row)
}

// получает кошелек по адресу в сети ton
func (r *WalletRepository) GetByAddress(ctx context.Context, address string) (*domain.Wallet, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, address, raw_address, linked_at, is_verified, last_proof_timestamp
		FROM wallets
		WHERE address = $1 OR raw_address = $1
	`, address)
	return scanWallet(row)
}

// создает новую привязку кошелька
func (r *WalletRepository) Create(ctx context.Context, w *domain.Wallet) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO wallets (user_id, address, raw_address, is_verified, last_proof_timestamp)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, linked_at
	`, w.UserID, w.Address, w.RawAddress, w.IsVerified, w.LastProofTimestamp).Scan(&w.ID, &w.LinkedAt)
}

// обновляет информацию о кошельке
func (r *WalletRepository) Update(ctx context.Context, w *domain.Wallet) error {
	_, err := r.db.Exec(ctx, `
		UPDATE wallets
		SET address = $2, raw_address = $3, is_verified = $4, last_proof_timestamp = $5
		WHERE id = $1
	`, w.ID, w.Address, w.RawAddress, w.IsVerified, w.LastProofTimestamp)
	return err
}

// удаляет привязку кошелька
func (r *WalletRepository) Delete(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM wallets WHERE user_id = $1`, userID)
	return err
}

// проверяет, есть ли у пользователя привязанный кошелек
func (r *WalletRepository) Exists(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM wallets WHERE user_id = $1)
	`, userID).Scan(&exists)
	return exists, err
}

// проверяет, привязан ли адрес к какому-либо пользователю
func (r *WalletRepository) AddressExists(ctx context.Context, address string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM wallets WHERE address = $1 OR raw_address = $1)
	`, address).Scan(&exists)
	return exists, err
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var w domain.Wallet
	var rawAddr *string
	var lastProofTs *int64

	if err := row.Scan(
		&w.ID, &w.UserID, &w.Address, &rawAddr, &w.LinkedAt, &w.IsVerified, &lastProofTs,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if rawAddr != nil {
		w.RawAddress = *rawAddr
	}
	if lastProofTs != nil {
		w.LastProofTimestamp = *lastProofTs
	}
	return &w, nil
}
