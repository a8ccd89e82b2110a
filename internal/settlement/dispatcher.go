package settlement

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"rps_arena/internal/domain"
	"rps_arena/internal/logger"
	"rps_arena/internal/repository"
	"rps_arena/internal/service"
	"rps_arena/internal/ton"
)

// OpsNotifier — канал оповещений дежурных о проблемах расчета
type OpsNotifier interface {
	NotifySettlementFailure(matchID, detail string)
}

// Dispatcher проводит расчет завершенного матча: кредитует выигрыш,
// отчисляет реферальную комку и для TON-матчей отправляет он-чейн
// выплату с memo матча. Вызывается движком не более раза на матч.
type Dispatcher struct {
	balances   *service.BalanceService
	users      *repository.UserRepository
	referrals  *repository.ReferralRepository
	wallets    *repository.WalletRepository
	payouts    *repository.PayoutRepository
	tonWallet  *ton.Wallet
	tonClient  *ton.Client
	ops        OpsNotifier
	retryDelay time.Duration
}

func NewDispatcher(
	balances *service.BalanceService,
	users *repository.UserRepository,
	referrals *repository.ReferralRepository,
	wallets *repository.WalletRepository,
	payouts *repository.PayoutRepository,
	tonWallet *ton.Wallet,
	tonClient *ton.Client,
	ops OpsNotifier,
) *Dispatcher {
	return &Dispatcher{
		balances:   balances,
		users:      users,
		referrals:  referrals,
		wallets:    wallets,
		payouts:    payouts,
		tonWallet:  tonWallet,
		tonClient:  tonClient,
		ops:        ops,
		retryDelay: 30 * time.Second,
	}
}

// SetOpsNotifier подключает канал алертов после старта бота: бот
// зависит от движка, поэтому на момент создания диспетчера его еще нет
func (d *Dispatcher) SetOpsNotifier(ops OpsNotifier) {
	d.ops = ops
}

// NotifyMatchSettled — точка входа из движка. Возвращает false, если
// расчет не удался; движок это только логирует, повтор - наша забота.
func (d *Dispatcher) NotifyMatchSettled(ctx context.Context, matchID, winnerAccount, loserAccount string, stake int64, currency string) bool {
	winnerID, err := strconv.ParseInt(winnerAccount, 10, 64)
	if err != nil || winnerID <= 0 {
		logger.Error("settlement: bad winner account", "match_id", matchID, "account", winnerAccount)
		return false
	}

	pot := stake * 2
	fee := pot * domain.PlatformFeePct / 100
	payout := pot - fee

	if _, err := d.balances.Credit(ctx, winnerID, currency, payout, domain.TxKindMatchPayout, matchID); err != nil {
		d.reportFailure(matchID, fmt.Sprintf("credit payout: %v", err))
		return false
	}

	d.creditReferralCut(ctx, winnerID, currency, fee, matchID)

	if currency == domain.CurrencyTON && d.tonWallet != nil {
		d.sendOnChainPayout(ctx, matchID, winnerID, payout)
	}

	logger.Info("match settled", "match_id", matchID, "winner", winnerID,
		"currency", currency, "payout", payout, "fee", fee)
	return true
}

// creditReferralCut отдает рефереру победителя его долю комиссии.
// Неуспех не валит расчет - комка догоняется вручную по леджеру.
func (d *Dispatcher) creditReferralCut(ctx context.Context, winnerID int64, currency string, fee int64, matchID string) {
	cut := fee * domain.ReferralSharePct / 100
	if cut <= 0 {
		return
	}
	referrerID, err := d.users.GetReferrerID(ctx, winnerID)
	if err != nil || referrerID == 0 {
		return
	}
	if err := d.referrals.CreditCommission(ctx, referrerID, currency, cut); err != nil {
		logger.Error("referral commission failed", "match_id", matchID,
			"referrer", referrerID, "error", err)
	}
}

// sendOnChainPayout отправляет выигрыш TON-матча на привязанный кошелек
// победителя. Без кошелька выигрыш остается на кастодиальном балансе.
// Первый неуспех получает один отложенный повтор; дальше - pending
// запись и оповещение дежурных.
func (d *Dispatcher) sendOnChainPayout(ctx context.Context, matchID string, winnerID, payoutUnits int64) {
	wallet, err := d.wallets.GetByUserID(ctx, winnerID)
	if err != nil || wallet == nil {
		logger.Info("winner has no linked wallet, payout stays custodial",
			"match_id", matchID, "winner", winnerID)
		return
	}

	record := &domain.Payout{
		UserID:        winnerID,
		MatchID:       matchID,
		WalletAddress: wallet.Address,
		AmountNano:    ton.UnitsToNano(payoutUnits),
		Status:        domain.PayoutStatusPending,
	}
	if err := d.payouts.Create(ctx, record); err != nil {
		d.reportFailure(matchID, fmt.Sprintf("create payout record: %v", err))
		return
	}

	if d.trySend(ctx, record) {
		return
	}

	// один отложенный повтор вне контекста вызова
	go func() {
		time.Sleep(d.retryDelay)
		retryCtx, cancel := context.WithTimeout(context.Background(), ton.TxConfirmTimeout)
		defer cancel()
		if !d.trySend(retryCtx, record) {
			d.reportFailure(matchID, "on-chain payout failed after retry, left pending")
		}
	}()
}

func (d *Dispatcher) trySend(ctx context.Context, p *domain.Payout) bool {
	res, err := d.tonWallet.SendTON(ctx, p.WalletAddress, uint64(p.AmountNano), p.MatchID)
	if err != nil {
		logger.Error("ton payout send failed", "match_id", p.MatchID, "error", err)
		_ = d.payouts.MarkFailed(ctx, p.ID, err.Error())
		return false
	}
	if err := d.payouts.MarkSent(ctx, p.ID, res.TxHash, res.TxLt); err != nil {
		logger.Error("mark payout sent failed", "match_id", p.MatchID, "error", err)
	}
	go d.confirmPayout(p.ID, p.MatchID, res.TxHash)
	return true
}

// confirmPayout дожидается появления транзакции в сети и закрывает
// запись о выплате. Неудача подтверждения не откатывает отправку:
// запись остается sent и разбирается дежурными.
func (d *Dispatcher) confirmPayout(payoutID int64, matchID, txHash string) {
	if d.tonClient == nil || txHash == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), ton.TxConfirmTimeout)
	defer cancel()

	tx, err := d.tonClient.WaitForTransaction(ctx, txHash, ton.TxConfirmTimeout)
	if err != nil || tx == nil {
		logger.Warn("payout confirmation timed out", "match_id", matchID, "tx_hash", txHash)
		return
	}
	if err := d.payouts.MarkCompleted(ctx, payoutID); err != nil {
		logger.Error("mark payout completed failed", "match_id", matchID, "error", err)
		return
	}
	logger.Info("payout confirmed on-chain", "match_id", matchID, "tx_hash", txHash)
}

func (d *Dispatcher) reportFailure(matchID, detail string) {
	logger.Error("settlement failure", "match_id", matchID, "detail", detail)
	if d.ops != nil {
		d.ops.NotifySettlementFailure(matchID, detail)
	}
}

// RetryPendingPayouts добирает зависшие он-чейн выплаты; запускается
// периодически из main
func (d *Dispatcher) RetryPendingPayouts(ctx context.Context) {
	if d.tonWallet == nil {
		return
	}
	pending, err := d.payouts.GetPending(ctx)
	if err != nil {
		logger.Error("list pending payouts failed", "error", err)
		return
	}
	for i := range pending {
		p := pending[i]
		d.trySend(ctx, &p)
	}
}

// StartPayoutRetrier периодически перепосылает зависшие выплаты
func (d *Dispatcher) StartPayoutRetrier(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.RetryPendingPayouts(ctx)
			}
		}
	}()
}
