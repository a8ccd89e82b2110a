package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"rps_arena/internal/logger"
	"rps_arena/internal/repository"
	"rps_arena/internal/session"
	"rps_arena/internal/ton"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// OpsBot — сервисный бот для дежурных: статистика движка, поиск матчей
// и алерты о проблемных расчетах
type OpsBot struct {
	bot       *tgbotapi.BotAPI
	registry  *session.Registry
	users     *repository.UserRepository
	history   *repository.MatchHistoryRepository
	payouts   *repository.PayoutRepository
	tonWallet *ton.Wallet // nil когда он-чейн выплаты выключены
	opsIDs    []int64     // Telegram ID дежурных
	stopCh    chan struct{}
	wg        sync.WaitGroup
	log       *slog.Logger
}

func NewOpsBot(
	token string,
	registry *session.Registry,
	users *repository.UserRepository,
	history *repository.MatchHistoryRepository,
	payouts *repository.PayoutRepository,
	tonWallet *ton.Wallet,
	opsIDs []int64,
) (*OpsBot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log := logger.With("component", "ops_bot")
	log.Info("ops bot authorized", "username", api.Self.UserName)

	return &OpsBot{
		bot:       api,
		registry:  registry,
		users:     users,
		history:   history,
		payouts:   payouts,
		tonWallet: tonWallet,
		opsIDs:    opsIDs,
		stopCh:    make(chan struct{}),
		log:       log,
	}, nil
}

// Start запускает прослушивание команд
func (b *OpsBot) Start() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.bot.GetUpdatesChan(u)
	b.log.Info("starting bot update loop")

	for {
		select {
		case <-b.stopCh:
			b.log.Info("stopping bot update loop")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}

			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}

			if !b.isOps(update.Message.From.ID) {
				continue
			}

			b.wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer b.wg.Done()
				b.handleCommand(msg)
			}(update.Message)
		}
	}
}

// Stop плавно останавливает бота
func (b *OpsBot) Stop() {
	b.log.Info("stopping ops bot...")
	close(b.stopCh)
	b.bot.StopReceivingUpdates()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.log.Info("ops bot stopped gracefully")
	case <-time.After(10 * time.Second):
		b.log.Warn("ops bot shutdown timeout, some handlers may not have completed")
	}
}

func (b *OpsBot) isOps(userID int64) bool {
	for _, id := range b.opsIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (b *OpsBot) handleCommand(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var response string

	switch msg.Command() {
	case "start", "help":
		response = "Команды:\n" +
			"/stats — счетчики движка\n" +
			"/match <id> — состояние матча\n" +
			"/user <tg_id> — профиль игрока\n" +
			"/payouts — зависшие он-чейн выплаты\n" +
			"/treasury — баланс кошелька платформы"

	case "stats":
		response = b.formatStats()

	case "match":
		response = b.formatMatch(strings.TrimSpace(msg.CommandArguments()))

	case "user":
		response = b.formatUser(ctx, strings.TrimSpace(msg.CommandArguments()))

	case "payouts":
		response = b.formatPendingPayouts(ctx)

	case "treasury":
		response = b.formatTreasury(ctx)

	default:
		response = "Неизвестная команда, /help"
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, response)
	if _, err := b.bot.Send(reply); err != nil {
		b.log.Error("failed to send reply", "error", err)
	}
}

func (b *OpsBot) formatStats() string {
	s := b.registry.Stats()
	return fmt.Sprintf(
		"Движок:\nактивных матчей: %d\nожидающих: %d\nзавершенных (не выметены): %d\nочередь подбора: %d\nигроков в матчах: %d",
		s.Active, s.Waiting, s.Finished, s.Queued, s.Players,
	)
}

func (b *OpsBot) formatMatch(id string) string {
	if id == "" {
		return "Укажи id: /match <id>"
	}

	m, err := b.registry.GetMatch(id)
	if err != nil {
		return "Матч не найден: " + id
	}

	v := m.View()
	var sb strings.Builder
	fmt.Fprintf(&sb, "Матч %s\nстатус: %s\nставка: %d %s\nраунд: %d\n", v.ID, v.Status, v.Stake, v.Currency, v.Round)
	for _, p := range v.Slots {
		fmt.Fprintf(&sb, "игрок %s: побед %d, подключен=%v\n", p.PlayerID, p.Wins, p.Connected)
	}
	if v.WinnerID != "" {
		fmt.Fprintf(&sb, "победитель: %s\n", v.WinnerID)
	}
	return sb.String()
}

func (b *OpsBot) formatUser(ctx context.Context, arg string) string {
	tgID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return "Укажи tg_id: /user <tg_id>"
	}

	user, err := b.users.GetByTgID(ctx, tgID)
	if err != nil || user == nil {
		return "Пользователь не найден"
	}

	return fmt.Sprintf(
		"@%s (id=%d)\npoints: %d\nton_nano: %d\nматчей: %d, побед: %d\nреферальные: %d",
		user.Username, user.ID, user.Points, user.TonNano,
		user.MatchesPlayed, user.MatchesWon, user.ReferralEarnings,
	)
}

func (b *OpsBot) formatPendingPayouts(ctx context.Context) string {
	pending, err := b.payouts.GetPending(ctx)
	if err != nil {
		return "Ошибка чтения выплат: " + err.Error()
	}
	if len(pending) == 0 {
		return "Зависших выплат нет"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Зависших выплат: %d\n", len(pending))
	for i, p := range pending {
		if i >= 20 {
			sb.WriteString("...\n")
			break
		}
		fmt.Fprintf(&sb, "#%d матч %s, %d nano, попыток %d: %s\n",
			p.ID, p.MatchID, p.AmountNano, p.Attempts, p.LastError)
	}
	return sb.String()
}

func (b *OpsBot) formatTreasury(ctx context.Context) string {
	if b.tonWallet == nil {
		return "Он-чейн выплаты выключены (кошелек не настроен)"
	}
	balance, err := b.tonWallet.GetBalance(ctx)
	if err != nil {
		return "Ошибка чтения баланса: " + err.Error()
	}
	return fmt.Sprintf("Кошелек платформы %s\nбаланс: %.4f TON",
		b.tonWallet.GetAddress(), ton.NanoToTON(int64(balance)))
}

// NotifySettlementFailure шлет алерт всем дежурным. Вызывается из
// расчетного пайплайна, когда выплата по матчу не прошла
func (b *OpsBot) NotifySettlementFailure(matchID, detail string) {
	text := fmt.Sprintf("⚠️ Проблема с расчетом матча %s:\n%s", matchID, detail)
	for _, id := range b.opsIDs {
		msg := tgbotapi.NewMessage(id, text)
		if _, err := b.bot.Send(msg); err != nil {
			b.log.Error("failed to send settlement alert", "ops_id", id, "error", err)
		}
	}
}
