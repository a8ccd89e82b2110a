package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	// init_data старше этого окна отклоняется (защита от replay)
	initDataTTL = time.Hour

	// допустимый забег auth_date вперед при рассинхроне часов
	initDataClockSkew = 5 * time.Minute
)

// ValidateTelegramInitData проверяет подпись Telegram WebApp init_data
// и свежесть auth_date. При успехе возвращает разобранные поля.
func ValidateTelegramInitData(initData, botToken string) (url.Values, bool) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, false
	}

	provided, err := hex.DecodeString(values.Get("hash"))
	if err != nil || len(provided) == 0 {
		return nil, false
	}
	values.Del("hash")

	if !hmac.Equal(initDataHash(values, botToken), provided) {
		return nil, false
	}
	if !authDateFresh(values.Get("auth_date")) {
		return nil, false
	}
	return values, true
}

// initDataHash — схема подписи Telegram WebApp: ключ
// HMAC("WebAppData", botToken), сообщение - отсортированные пары
// key=value, склеенные через \n
func initDataHash(values url.Values, botToken string) []byte {
	pairs := make([]string, 0, len(values))
	for k, v := range values {
		pairs = append(pairs, k+"="+strings.Join(v, ""))
	}
	sort.Strings(pairs)

	kdf := hmac.New(sha256.New, []byte("WebAppData"))
	kdf.Write([]byte(botToken))

	mac := hmac.New(sha256.New, kdf.Sum(nil))
	mac.Write([]byte(strings.Join(pairs, "\n")))
	return mac.Sum(nil)
}

func authDateFresh(raw string) bool {
	authDate, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || authDate <= 0 {
		return false
	}
	now := time.Now().Unix()
	if now-authDate > int64(initDataTTL/time.Second) {
		return false
	}
	return authDate-now <= int64(initDataClockSkew/time.Second)
}
