package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/DRSN-tech/market-crawler/internal/cfg"
	"github.com/DRSN-tech/market-crawler/pkg/e"
	"github.com/DRSN-tech/market-crawler/pkg/logger"
	"github.com/DRSN-tech/market-crawler/pkg/metrics"
	"github.com/segmentio/kafka-go"
)

const commitTimeout = 5 * time.Second

// Handler обрабатывает тело сообщения. nil подтверждает сообщение, ошибка
// отправляет его на повтор, e.ErrMalformedMessage останавливает консьюмер.
type Handler func(ctx context.Context, payload []byte) error

type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer читает топик стадии в составе группы. Одновременно обрабатывается
// не больше prefetch сообщений, смещения коммитятся только непрерывным префиксом.
type Consumer struct {
	topic     string
	reader    reader
	publisher publisher
	policy    RetryPolicy
	logger    logger.Logger
	slots     chan struct{}
	tracker   *offsetTracker

	commitMu  sync.Mutex
	committed map[int]int64
}

func NewConsumer(logger logger.Logger, cfg *cfg.KafkaCfg, topic string, prefetch int, policy RetryPolicy, pub publisher) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupPrefix + "." + topic,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        time.Second,
		CommitInterval: 0,
		StartOffset:    kafka.FirstOffset,
	})
	return newConsumer(topic, r, pub, policy, prefetch, logger)
}

func newConsumer(topic string, r reader, pub publisher, policy RetryPolicy, prefetch int, logger logger.Logger) *Consumer {
	return &Consumer{
		topic:     topic,
		reader:    r,
		publisher: pub,
		policy:    policy,
		logger:    logger.With("topic", topic),
		slots:     make(chan struct{}, max(prefetch, 1)),
		tracker:   newOffsetTracker(),
		committed: make(map[int]int64),
	}
}

// Run читает сообщения до отмены ctx или фатальной ошибки обработчика.
// Перед возвратом дожидается сообщений, которые уже в обработке.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var wg sync.WaitGroup
	defer wg.Wait()

	c.logger.Infof("consumer started, prefetch %d", cap(c.slots))
	for {
		select {
		case c.slots <- struct{}{}:
		case <-ctx.Done():
			return c.stopErr(ctx)
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			<-c.slots
			if ctx.Err() != nil {
				return c.stopErr(ctx)
			}
			err = e.Wrap("Consumer.Run", err)
			cancel(err)
			return err
		}
		c.tracker.track(msg.Partition, msg.Offset)

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-c.slots }()

			if err := c.process(ctx, msg, handle); err != nil {
				cancel(err)
			}
		}()
	}
}

func (c *Consumer) stopErr(ctx context.Context) error {
	cause := context.Cause(ctx)
	if cause == nil || errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		return nil
	}
	return cause
}

// process обрабатывает одно сообщение. Ненулевая ошибка фатальна для консьюмера.
func (c *Consumer) process(ctx context.Context, msg kafka.Message, handle Handler) error {
	if notBefore, ok := NotBefore(msg); ok {
		if wait := time.Until(notBefore); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}
		}
	}

	start := time.Now()
	err := handle(ctx, msg.Value)
	metrics.RecordHandle(c.topic, time.Since(start))

	switch {
	case err == nil:
		metrics.RecordMessage(c.topic, metrics.OutcomeAck)

	case ctx.Err() != nil:
		// остановка: сообщение не коммитится и будет доставлено заново
		return nil

	case errors.Is(err, e.ErrMalformedMessage):
		metrics.RecordMessage(c.topic, metrics.OutcomeFatal)
		c.logger.Errorf(err, "malformed message at partition %d offset %d", msg.Partition, msg.Offset)
		if perr := c.publisher.Publish(ctx, DeadLetter(msg, err)); perr != nil {
			return errors.Join(err, perr)
		}
		if cerr := c.commit(ctx, msg); cerr != nil {
			return errors.Join(err, cerr)
		}
		return err

	default:
		next, retry := c.policy.Next(msg, err)
		outcome := metrics.OutcomeRetry
		if !retry {
			outcome = metrics.OutcomeDLQ
			c.logger.Errorf(err, "message %s moved to %s after %d attempts", headerValue(msg.Headers, HeaderMessageID), next.Topic, Attempt(next))
		} else {
			c.logger.Warnf("handler failed, attempt %d: %v", Attempt(next), err)
		}

		if perr := c.publisher.Publish(ctx, next); perr != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("requeue message: %w", perr)
		}
		metrics.RecordMessage(c.topic, outcome)
	}

	return c.commit(ctx, msg)
}

// commit двигает смещение партиции, если обработан непрерывный префикс.
func (c *Consumer) commit(ctx context.Context, msg kafka.Message) error {
	offset, ok := c.tracker.done(msg.Partition, msg.Offset)
	if !ok {
		return nil
	}

	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	if prev, seen := c.committed[msg.Partition]; seen && offset <= prev {
		return nil
	}

	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
	defer cancel()

	err := c.reader.CommitMessages(commitCtx, kafka.Message{Topic: msg.Topic, Partition: msg.Partition, Offset: offset})
	if err != nil {
		return e.Wrap("Consumer.commit", err)
	}
	c.committed[msg.Partition] = offset
	return nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
