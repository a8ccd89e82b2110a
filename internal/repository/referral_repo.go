package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Referral struct {
	ID         int64     `json:"id"`
	ReferrerID int64     `json:"referrer_id"`
	ReferredID int64     `json:"referred_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type ReferralStats struct {
	TotalReferrals int   `json:"total_referrals"`
	TotalEarned    int64 `json:"total_earned"`
}

type ReferralRepository struct {
	db *pgxpool.Pool
}

func NewReferralRepository(db *pgxpool.Pool) *ReferralRepository {
	return &ReferralRepository{db: db}
}

// Генерирует уникальный реферальный код
func GenerateReferralCode() string {
	bytes := make([]byte, 6)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// Получает существующий или создает новый реферальный код для пользователя
func (r *ReferralRepository) GetOrCreateReferralCode(ctx context.Context, userID int64) (string, error) {
	var code string
	err := r.db.QueryRow(ctx,
		`SELECT referral_code FROM users WHERE id = $1`,
		userID,
	).Scan(&code)
	if err == nil && code != "" {
		return code, nil
	}

	// до 5 попыток на случай коллизии кода
	for i := 0; i < 5; i++ {
		code = GenerateReferralCode()
		_, err = r.db.Exec(ctx,
			`UPDATE users SET referral_code = $1 WHERE id = $2`,
			code, userID,
		)
		if err == nil {
			return code, nil
		}
	}
	return "", err
}

// Находит пользователя по его реферальному коду
func (r *ReferralRepository) GetUserByReferralCode(ctx context.Context, code string) (int64, error) {
	var userID int64
	err := r.db.QueryRow(ctx,
		`SELECT id FROM users WHERE referral_code = $1`,
		code,
	).Scan(&userID)
	return userID, err
}

// Создает новую реферальную связь
func (r *ReferralRepository) CreateReferral(ctx context.Context, referrerID, referredID int64) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO referrals (referrer_id, referred_id)
		 VALUES ($1, $2)
		 ON CONFLICT (referred_id) DO NOTHING`,
		referrerID, referredID,
	)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`UPDATE users SET referred_by = $1 WHERE id = $2 AND referred_by IS NULL`,
		referrerID, referredID,
	)
	return err
}

// Возвращает id пригласившего для данного пользователя
func (r *ReferralRepository) GetReferrerID(ctx context.Context, userID int64) (int64, error) {
	var referrerID int64
	err := r.db.QueryRow(ctx,
		`SELECT referred_by FROM users WHERE id = $1 AND referred_by IS NOT NULL`,
		userID,
	).Scan(&referrerID)
	return referrerID, err
}

// Начисляет рефереру его долю комиссии платформы с матча реферала
func (r *ReferralRepository) CreditCommission(ctx context.Context, referrerID int64, currency string, amount int64) error {
	column := "points"
	if currency == "ton" {
		column = "ton_nano"
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE users SET `+column+` = `+column+` + $1, referral_earnings = referral_earnings + $1
		 WHERE id = $2`,
		amount, referrerID,
	)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Возвращает реферальную статистику для пользователя
func (r *ReferralRepository) GetReferralStats(ctx context.Context, userID int64) (*ReferralStats, error) {
	stats := &ReferralStats{}

	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM referrals WHERE referrer_id = $1`,
		userID,
	).Scan(&stats.TotalReferrals)
	if err != nil {
		return nil, err
	}

	err = r.db.QueryRow(ctx,
		`SELECT referral_earnings FROM users WHERE id = $1`,
		userID,
	).Scan(&stats.TotalEarned)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Возвращает все рефералы, сделанные пользователем
func (r *ReferralRepository) GetReferralsByUser(ctx context.Context, userID int64) ([]Referral, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, referrer_id, referred_id, created_at
		 FROM referrals
		 WHERE referrer_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var referrals []Referral
	for rows.Next() {
		var ref Referral
		if err := rows.Scan(&ref.ID, &ref.ReferrerID, &ref.ReferredID, &ref.CreatedAt); err != nil {
			continue
		}
		referrals = append(referrals, ref)
	}
	return referrals, nil
}
