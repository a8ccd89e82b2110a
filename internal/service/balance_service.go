package service

import (
	"context"
	"errors"
	"strconv"

	"rps_arena/internal/domain"
	"rps_arena/internal/repository"
	"rps_arena/internal/session"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrInsufficientFunds = errors.New("недостаточно средств")
	ErrUserNotFound      = errors.New("пользователь не найден")
	ErrInvalidAmount     = errors.New("неверная сумма")
	ErrUnknownCurrency   = errors.New("неизвестная валюта")
)

// колонка таблицы users для валюты ставки
func balanceColumn(currency string) (string, error) {
	switch currency {
	case domain.CurrencyPoints:
		return "points", nil
	case domain.CurrencyTON:
		return "ton_nano", nil
	default:
		return "", ErrUnknownCurrency
	}
}

// обрабатывает все операции с балансами points и кастодиального TON
type BalanceService struct {
	db              *pgxpool.Pool
	transactionRepo *repository.TransactionRepository
	historyRepo     *repository.MatchHistoryRepository
	userRepo        *repository.UserRepository
}

func NewBalanceService(db *pgxpool.Pool) *BalanceService {
	return &BalanceService{
		db:              db,
		transactionRepo: repository.NewTransactionRepository(db),
		historyRepo:     repository.NewMatchHistoryRepository(db),
		userRepo:        repository.NewUserRepository(db),
	}
}

// возвращает текущий баланс пользователя в заданной валюте
func (s *BalanceService) GetBalance(ctx context.Context, userID int64, currency string) (int64, error) {
	column, err := balanceColumn(currency)
	if err != nil {
		return 0, err
	}
	var balance int64
	err = s.db.QueryRow(ctx, `SELECT `+column+` FROM users WHERE id = $1`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return balance, nil
}

// списывает сумму с баланса (ставка в матч); баланс блокируется строкой
func (s *BalanceService) Debit(ctx context.Context, userID int64, currency string, amount int64, kind domain.TxKind, matchID string) (newBalance int64, err error) {
	column, err := balanceColumn(currency)
	if err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// блокируем и проверяем баланс
	var balance int64
	err = tx.QueryRow(ctx, `SELECT `+column+` FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	if balance < amount {
		return 0, ErrInsufficientFunds
	}

	err = tx.QueryRow(ctx,
		`UPDATE users SET `+column+` = `+column+` - $1 WHERE id = $2 RETURNING `+column,
		amount, userID,
	).Scan(&newBalance)
	if err != nil {
		return 0, err
	}

	record := &domain.Transaction{
		UserID:   userID,
		Currency: currency,
		Amount:   -amount,
		Kind:     kind,
		MatchID:  matchID,
		Balance:  newBalance,
	}
	if err = s.transactionRepo.CreateWithTx(ctx, tx, record); err != nil {
		return 0, err
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// добавляет сумму к балансу (выплата, возврат ставки, реферальная комка)
func (s *BalanceService) Credit(ctx context.Context, userID int64, currency string, amount int64, kind domain.TxKind, matchID string) (newBalance int64, err error) {
	column, err := balanceColumn(currency)
	if err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx,
		`UPDATE users SET `+column+` = `+column+` + $1 WHERE id = $2 RETURNING `+column,
		amount, userID,
	).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}

	record := &domain.Transaction{
		UserID:   userID,
		Currency: currency,
		Amount:   amount,
		Kind:     kind,
		MatchID:  matchID,
		Balance:  newBalance,
	}
	if err = s.transactionRepo.CreateWithTx(ctx, tx, record); err != nil {
		return 0, err
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// возвращает историю движений по балансу пользователя
func (s *BalanceService) GetTransactionHistory(ctx context.Context, userID int64, limit int) ([]*domain.Transaction, error) {
	return s.transactionRepo.GetByUserID(ctx, userID, limit)
}

// ---- граница с игровым движком (session.ProfileStore) ----
// аккаунт в движке - десятичный внутренний id пользователя

func parseAccount(account string) (int64, error) {
	id, err := strconv.ParseInt(account, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrUserNotFound
	}
	return id, nil
}

// проверка достаточности баланса перед созданием или входом в матч
func (s *BalanceService) HasSufficientBalance(ctx context.Context, account, currency string, amount int64) (bool, error) {
	userID, err := parseAccount(account)
	if err != nil {
		return false, err
	}
	balance, err := s.GetBalance(ctx, userID, currency)
	if err != nil {
		return false, err
	}
	return balance >= amount, nil
}

// резерв ставки при посадке в матч: списывает с баланса и пишет леджер
func (s *BalanceService) ReserveStake(ctx context.Context, account, currency string, amount int64, matchID string) (bool, error) {
	userID, err := parseAccount(account)
	if err != nil {
		return false, err
	}
	_, err = s.Debit(ctx, userID, currency, amount, domain.TxKindStakeDebit, matchID)
	if errors.Is(err, ErrInsufficientFunds) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// возврат ставки игроку, чей матч так и не начался
func (s *BalanceService) Refund(ctx context.Context, account, currency string, amount int64, matchID string) error {
	userID, err := parseAccount(account)
	if err != nil {
		return err
	}
	_, err = s.Credit(ctx, userID, currency, amount, domain.TxKindStakeRefund, matchID)
	return err
}

// запись итога матча в историю и счетчики обоих игроков
func (s *BalanceService) RecordHistory(ctx context.Context, summary session.MatchSummary) error {
	record := &domain.MatchRecord{
		MatchID:    summary.MatchID,
		Currency:   summary.Currency,
		Stake:      summary.Stake,
		Pot:        summary.Pot,
		WinnerID:   summary.WinnerID,
		LoserID:    summary.LoserID,
		Rounds:     summary.Rounds,
		Forfeit:    summary.Forfeit,
		FinishedAt: summary.FinishedAt,
	}
	if err := s.historyRepo.Create(ctx, record); err != nil {
		return err
	}

	if winnerID, err := parseAccount(summary.WinnerAcct); err == nil {
		if err := s.userRepo.BumpMatchStats(ctx, winnerID, true); err != nil {
			return err
		}
	}
	if loserID, err := parseAccount(summary.LoserAcct); err == nil {
		if err := s.userRepo.BumpMatchStats(ctx, loserID, false); err != nil {
			return err
		}
	}
	return nil
}
