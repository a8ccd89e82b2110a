package domain

import "time"

// Запись в леджере балансов: каждое движение points или TON
type Transaction struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Currency  string    `db:"currency" json:"currency"`
	Amount    int64     `db:"amount" json:"amount"` // положительный - кредит, отрицательный - дебет
	Kind      TxKind    `db:"kind" json:"kind"`
	MatchID   string    `db:"match_id" json:"match_id,omitempty"`
	Balance   int64     `db:"balance_after" json:"balance_after"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Виды движений по леджеру
type TxKind string

const (
	TxKindStakeDebit  TxKind = "stake_debit"
	TxKindStakeRefund TxKind = "stake_refund"
	TxKindMatchPayout TxKind = "match_payout"
	TxKindReferralCut TxKind = "referral_cut"
	TxKindAdjustment  TxKind = "adjustment"
)
