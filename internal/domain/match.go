package domain

import "time"

// Итог сыгранного матча в истории профилей
type MatchRecord struct {
	ID         int64     `db:"id" json:"id"`
	MatchID    string    `db:"match_id" json:"match_id"`
	Currency   string    `db:"currency" json:"currency"`
	Stake      int64     `db:"stake" json:"stake"`
	Pot        int64     `db:"pot" json:"pot"`
	WinnerID   string    `db:"winner_id" json:"winner_id"`
	LoserID    string    `db:"loser_id" json:"loser_id"`
	Rounds     int       `db:"rounds" json:"rounds"`
	Forfeit    bool      `db:"forfeit" json:"forfeit"`
	FinishedAt time.Time `db:"finished_at" json:"finished_at"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Сводка профиля для /api/profile и лидерборда
type PlayerStats struct {
	UserID        int64  `db:"user_id" json:"user_id"`
	Username      string `db:"username" json:"username"`
	MatchesPlayed int64  `db:"matches_played" json:"matches_played"`
	MatchesWon    int64  `db:"matches_won" json:"matches_won"`
	PointsWon     int64  `db:"points_won" json:"points_won"`
	TonWonNano    int64  `db:"ton_won_nano" json:"ton_won_nano"`
}
