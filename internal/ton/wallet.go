package ton

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"rps_arena/internal/logger"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/liteclient"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton"
	"github.com/xssnick/tonutils-go/ton/wallet"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// Wallet — платформенный TON кошелек, с которого уходят выплаты выигрышей
type Wallet struct {
	client  *ton.APIClient
	wallet  *wallet.Wallet
	network Network
}

// SendResult результат отправки транзакции
type SendResult struct {
	TxHash  string
	TxLt    int64
	Success bool
}

// NewWallet создает кошелек из мнемоники
func NewWallet(mnemonic string, network Network) (*Wallet, error) {
	configURL := "https://ton.org/global.config.json"
	if network == NetworkTestnet {
		configURL = "https://ton.org/testnet-global.config.json"
	}

	client := liteclient.NewConnectionPool()
	err := client.AddConnectionsFromConfigUrl(context.Background(), configURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to lite servers: %w", err)
	}

	api := ton.NewAPIClient(client)

	words := strings.Fields(strings.TrimSpace(mnemonic))
	if len(words) != 24 {
		return nil, fmt.Errorf("invalid mnemonic: expected 24 words, got %d", len(words))
	}

	// V5R1 Final (версия W5 из Tonkeeper)
	// NetworkGlobalID: -239 для mainnet, -3 для testnet
	networkID := int32(-239)
	if network == NetworkTestnet {
		networkID = -3
	}
	w, err := wallet.FromSeed(api, words, wallet.ConfigV5R1Final{
		NetworkGlobalID: networkID,
		Workchain:       0,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet from seed: %w", err)
	}

	return &Wallet{
		client:  api,
		wallet:  w,
		network: network,
	}, nil
}

// GetAddress возвращает адрес кошелька
func (w *Wallet) GetAddress() string {
	return w.wallet.WalletAddress().String()
}

// GetBalance возвращает баланс кошелька в нанотонах
func (w *Wallet) GetBalance(ctx context.Context) (uint64, error) {
	block, err := w.client.CurrentMasterchainInfo(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get masterchain info: %w", err)
	}

	acc, err := w.client.GetAccount(ctx, block, w.wallet.WalletAddress())
	if err != nil {
		return 0, fmt.Errorf("failed to get account: %w", err)
	}

	if acc.State == nil {
		// кошелек не развернут или пуст
		return 0, nil
	}
	return acc.State.Balance.Nano().Uint64(), nil
}

// SendTON отправляет TON на указанный адрес.
// amount в нанотонах; memo обязателен для выплат - по нему выигрыш
// привязывается к матчу (memo не длиннее 32 знаков).
func (w *Wallet) SendTON(ctx context.Context, toAddress string, amountNano uint64, memo string) (*SendResult, error) {
	var addr *address.Address
	var err error

	if strings.HasPrefix(toAddress, "0:") || strings.HasPrefix(toAddress, "-1:") {
		addr, err = parseRawAddress(toAddress)
		if err != nil {
			return nil, fmt.Errorf("invalid raw address: %w (original: %s)", err, toAddress)
		}
	} else {
		addr, err = address.ParseAddr(toAddress)
		if err != nil {
			return nil, fmt.Errorf("invalid recipient address: %w (original: %s)", err, toAddress)
		}
	}

	balance, err := w.GetBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check balance: %w", err)
	}
	if balance < amountNano+NetworkFeeNano {
		return nil, fmt.Errorf("insufficient wallet balance: have %d, need %d + fee", balance, amountNano)
	}

	amount := tlb.MustFromTON(fmt.Sprintf("%.9f", float64(amountNano)/1e9))

	var msg *wallet.Message
	if memo != "" {
		msg = &wallet.Message{
			Mode: wallet.PayGasSeparately + wallet.IgnoreErrors,
			InternalMessage: &tlb.InternalMessage{
				IHRDisabled: true,
				Bounce:      false,
				DstAddr:     addr,
				Amount:      amount,
				Body:        buildCommentCell(memo),
			},
		}
	} else {
		msg = wallet.SimpleMessage(addr, amount, nil)
	}

	tx, _, err := w.wallet.SendWaitTransaction(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	logger.Info("ton payout sent", "to", addr.String(), "amount_nano", amountNano, "memo", memo)

	return &SendResult{
		TxHash:  fmt.Sprintf("%x", tx.Hash),
		TxLt:    int64(tx.LT),
		Success: true,
	}, nil
}

// buildCommentCell создает cell с текстовым комментарием
// (32 бита нулей + UTF-8 текст)
func buildCommentCell(comment string) *cell.Cell {
	return cell.BeginCell().
		MustStoreUInt(0, 32).
		MustStoreStringSnake(comment).
		EndCell()
}

// parseRawAddress парсит raw адрес формата "0:hex" или "-1:hex"
func parseRawAddress(rawAddr string) (*address.Address, error) {
	var workchain int32
	var hashHex string

	switch {
	case strings.HasPrefix(rawAddr, "0:"):
		workchain = 0
		hashHex = rawAddr[2:]
	case strings.HasPrefix(rawAddr, "-1:"):
		workchain = -1
		hashHex = rawAddr[3:]
	default:
		return nil, fmt.Errorf("unknown raw address format: %s", rawAddr)
	}

	hashBytes, err := hex.DecodeString(hashHex)
	if err != nil {
		return nil, fmt.Errorf("invalid hex in address: %w", err)
	}
	if len(hashBytes) != 32 {
		return nil, fmt.Errorf("invalid hash length: expected 32 bytes, got %d", len(hashBytes))
	}
	return address.NewAddress(0, byte(workchain), hashBytes), nil
}
