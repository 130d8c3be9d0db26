// Package jitter рассчитывает задержки повторной доставки сообщений с экспоненциальным ростом и случайным разбросом,
// чтобы повторы одной и той же очереди не приходили пачкой.
package jitter

import (
	"math/rand"
	"sync"
	"time"
)

// DefaultJitter — стандартный коэффициент джиттера (50%)
const DefaultJitter = 0.5

var (
	globalRand = rand.New(rand.NewSource(time.Now().UnixNano()))
	randMutex  sync.Mutex
)

// Backoff описывает политику роста задержки между попытками.
type Backoff struct {
	Base   time.Duration
	Max    time.Duration
	Jitter float64
	rng    *rand.Rand
}

// NewBackoff создаёт политику с глобальным генератором случайных чисел.
func NewBackoff(base, max time.Duration, jitterFactor float64) Backoff {
	return Backoff{Base: base, Max: max, Jitter: jitterFactor}
}

// WithRand возвращает копию политики с собственным генератором (детерминированные тесты).
func (b Backoff) WithRand(rng *rand.Rand) Backoff {
	b.rng = rng
	return b
}

// Delay возвращает задержку перед попыткой attempt (нумерация с нуля).
// Результат лежит в диапазоне [d, d*(1+Jitter)], где d = min(Base*2^attempt, Max).
func (b Backoff) Delay(attempt int) time.Duration {
	if b.Base <= 0 {
		return 0
	}

	d := b.Base
	for i := 0; i < attempt; i++ {
		d *= 2
		if b.Max > 0 && d >= b.Max {
			d = b.Max
			break
		}
	}

	return d + time.Duration(b.float64()*b.Jitter*float64(d))
}

func (b Backoff) float64() float64 {
	if b.rng != nil {
		return b.rng.Float64()
	}

	randMutex.Lock()
	defer randMutex.Unlock()
	return globalRand.Float64()
}
