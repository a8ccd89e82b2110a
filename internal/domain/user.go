package domain

import (
	"strconv"
	"time"
)

type User struct {
	ID        int64     `db:"id" json:"id"`
	TgID      int64     `db:"tg_id" json:"tg_id"`
	Username  string    `db:"username" json:"username"`
	FirstName string    `db:"first_name" json:"first_name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	// points - f2p валюта, ton_nano - кастодиальный TON в нанотонах
	Points  int64 `db:"points" json:"points"`
	TonNano int64 `db:"ton_nano" json:"ton_nano"`

	MatchesPlayed int64 `db:"matches_played" json:"matches_played"`
	MatchesWon    int64 `db:"matches_won" json:"matches_won"`

	// комка с матчей рефералов победителя
	ReferralEarnings int64 `db:"referral_earnings" json:"referral_earnings"`
}

// AccountID — идентификатор пользователя в игровом движке и истории
// матчей (десятичный внутренний id)
func (u *User) AccountID() string {
	return strconv.FormatInt(u.ID, 10)
}

// Валюты ставок
const (
	CurrencyPoints = "points"
	CurrencyTON    = "ton"
)

const (
	// фиксированная ставка для TON-матчей, в условных единицах леджера
	TONMatchStake = 100

	// процент комиссии платформы с банка матча
	PlatformFeePct = 5

	// доля комиссии, уходящая рефереру победителя
	ReferralSharePct = 50
)
