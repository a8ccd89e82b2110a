package domain

import "time"

// Подключенный TON кошелек игрока - адрес выплат
type Wallet struct {
	ID                 int64     `db:"id" json:"id"`
	UserID             int64     `db:"user_id" json:"user_id"`
	Address            string    `db:"address" json:"address"`
	RawAddress         string    `db:"raw_address" json:"raw_address,omitempty"`
	LinkedAt           time.Time `db:"linked_at" json:"linked_at"`
	IsVerified         bool      `db:"is_verified" json:"is_verified"`
	LastProofTimestamp int64     `db:"last_proof_timestamp" json:"last_proof_timestamp,omitempty"`
}

// Исходящая он-чейн выплата выигрыша TON-матча
type Payout struct {
	ID            int64        `db:"id" json:"id"`
	UserID        int64        `db:"user_id" json:"user_id"`
	MatchID       string       `db:"match_id" json:"match_id"` // уходит в memo перевода, не длиннее 32 знаков
	WalletAddress string       `db:"wallet_address" json:"wallet_address"`
	AmountNano    int64        `db:"amount_nano" json:"amount_nano"`
	Status        PayoutStatus `db:"status" json:"status"`
	TxHash        string       `db:"tx_hash" json:"tx_hash,omitempty"`
	TxLt          int64        `db:"tx_lt" json:"tx_lt,omitempty"`
	Attempts      int          `db:"attempts" json:"attempts"`
	LastError     string       `db:"last_error" json:"last_error,omitempty"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	CompletedAt   *time.Time   `db:"completed_at" json:"completed_at,omitempty"`
}

// Статус он-чейн выплаты
type PayoutStatus string

const (
	PayoutStatusPending   PayoutStatus = "pending"
	PayoutStatusSent      PayoutStatus = "sent"
	PayoutStatusCompleted PayoutStatus = "completed"
	PayoutStatusFailed    PayoutStatus = "failed"
)
