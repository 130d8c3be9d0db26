package telemetry

import (
	"context"
	"errors"
	"sync"

	"github.com/DRSN-tech/market-crawler/internal/domain"
	"github.com/DRSN-tech/market-crawler/pkg/logger"
	"github.com/DRSN-tech/market-crawler/pkg/metrics"
)

const defaultBuffer = 1024

// Reporter принимает аномалии без блокировки: события копятся в буфере и
// пишутся в лог отдельной горутиной. При переполненном буфере событие отбрасывается.
type Reporter struct {
	events chan domain.Anomaly
	logger logger.Logger
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewReporter(logger logger.Logger, buffer int) *Reporter {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	r := &Reporter{
		events: make(chan domain.Anomaly, buffer),
		logger: logger,
	}

	r.wg.Add(1)
	go r.run()
	return r
}

func (r *Reporter) Report(a domain.Anomaly) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}

	select {
	case r.events <- a:
	default:
		metrics.RecordTelemetryDropped()
	}
}

func (r *Reporter) run() {
	defer r.wg.Done()
	for a := range r.events {
		r.write(a)
	}
}

func (r *Reporter) write(a domain.Anomaly) {
	metrics.RecordTelemetry(string(a.Level), a.Kind)

	log := r.logger.With("anomaly", a.Kind)
	for k, v := range a.Fields {
		log = log.With(k, v)
	}

	switch a.Level {
	case domain.LevelError:
		log.Errorf(errors.New(a.Message), "%s", a.Message)
	case domain.LevelWarning:
		log.Warnf("%s", a.Message)
	default:
		log.Infof("%s", a.Message)
	}
}

// Close перестаёт принимать события и дожидается записи буфера.
func (r *Reporter) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.events)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
