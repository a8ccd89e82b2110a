package session

import "time"

// Config — параметры движка; заполняются из env-конфига приложения
type Config struct {
	// длительность раунда в тиках и период одного тика
	RoundTicks   int
	TickInterval time.Duration

	// окно ожидания реконнекта после потери транспорта
	GraceWindow time.Duration

	// политика ставок: TON требует точную фиксированную ставку,
	// points - любую положительную (верхний лимит проверяет не движок)
	TONFixedStake int64

	// процент комиссии платформы от банка
	PlatformFeePercent int64

	// разрешить даунгрейд TON → points при неудачной проверке баланса
	// во время случайного матчмейкинга
	AllowCurrencyDowngrade bool
}

// DefaultConfig — продовые значения по умолчанию:
// 15 тиков по секунде на раунд, 5 секунд на реконнект
func DefaultConfig() Config {
	return Config{
		RoundTicks:             15,
		TickInterval:           time.Second,
		GraceWindow:            5 * time.Second,
		TONFixedStake:          100,
		PlatformFeePercent:     5,
		AllowCurrencyDowngrade: true,
	}
}
