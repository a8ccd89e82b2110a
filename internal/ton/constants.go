package ton

import "time"

const (
	// курс леджера: 100 единиц TON-баланса = 1 TON,
	// фиксированная ставка TON-матча как раз 100 единиц
	UnitsPerTON = 100

	// наименьшая единица TON (1 TON = 10^9 наноTON)
	NanoTON = 1_000_000_000

	// комиссия сети, закладываемая при отправке выплаты
	NetworkFeeNano = 10_000_000 // 0.01 TON

	// интервал повторной обработки зависших выплат
	PayoutRetryInterval = 1 * time.Minute

	// таймаут ожидания подтверждения транзакции
	TxConfirmTimeout = 2 * time.Minute
)

// представляет тип сети TON
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
)

// конечные точки TON API
const (
	TonAPIMainnet = "https://tonapi.io/v2"
	TonAPITestnet = "https://testnet.tonapi.io/v2"
)

// конвертирует единицы леджера в наноTON
func UnitsToNano(units int64) int64 {
	return units * (NanoTON / UnitsPerTON)
}

// конвертирует наноTON в TON
func NanoToTON(nano int64) float64 {
	return float64(nano) / NanoTON
}
