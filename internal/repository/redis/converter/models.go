package converter

import "time"

type ExchangeRateRedisModel struct {
	Currency  string    `json:"currency"`
	Rate      string    `json:"rate"`
	UpdatedAt time.Time `json:"updated_at"`
}
