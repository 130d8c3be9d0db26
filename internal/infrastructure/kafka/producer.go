package kafka

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/DRSN-tech/market-crawler/internal/cfg"
	"github.com/DRSN-tech/market-crawler/pkg/e"
	"github.com/DRSN-tech/market-crawler/pkg/jitter"
	"github.com/DRSN-tech/market-crawler/pkg/logger"
	"github.com/google/uuid"
	"github.com/jimlawless/whereami"
	"github.com/segmentio/kafka-go"
)

const publishAttempts = 3

// Producer публикует сообщения в топики стадий. Топик задаётся в самом сообщении.
type Producer struct {
	writer  *kafka.Writer
	logger  logger.Logger
	cfg     *cfg.KafkaCfg
	backoff jitter.Backoff
}

func NewProducer(logger logger.Logger, cfg *cfg.KafkaCfg) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchSize:              10,
		BatchTimeout:           50 * time.Millisecond,
		WriteTimeout:           10 * time.Second,
		AllowAutoTopicCreation: false,
	}

	return &Producer{
		writer:  writer,
		logger:  logger,
		cfg:     cfg,
		backoff: jitter.NewBackoff(200*time.Millisecond, 2*time.Second, jitter.DefaultJitter),
	}
}

// Publish синхронно записывает сообщение. Временные ошибки брокера повторяются
// несколько раз, прежде чем вернуться вызывающему.
func (p *Producer) Publish(ctx context.Context, msg kafka.Message) error {
	if headerValue(msg.Headers, HeaderMessageID) == "" {
		msg.Headers = setHeader(msg.Headers, HeaderMessageID, uuid.NewString())
	}

	var err error
	for attempt := range publishAttempts {
		err = p.writer.WriteMessages(ctx, msg)
		if err == nil || !isRetryableError(err) {
			break
		}

		p.logger.Warnf("kafka publish to %s failed (attempt %d): %v", msg.Topic, attempt+1, err)
		select {
		case <-ctx.Done():
			return e.Wrap(whereami.WhereAmI(), ctx.Err())
		case <-time.After(p.backoff.Delay(attempt)):
		}
	}
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("publish to %s: %w", msg.Topic, err))
	}
	return nil
}

// EnsureTopics создаёт топики стадий и их DLQ, если их ещё нет.
func (p *Producer) EnsureTopics(timeout time.Duration) error {
	conn, err := kafka.Dial(p.cfg.NetworkMode, p.cfg.Brokers[0])
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	ctrlConn, err := kafka.Dial(p.cfg.NetworkMode, fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	defer ctrlConn.Close()

	var configs []kafka.TopicConfig
	for _, topic := range p.cfg.Topics.All() {
		for _, name := range []string{topic, DLQTopic(topic)} {
			partitions, err := conn.ReadPartitions(name)
			if err == nil && len(partitions) > 0 {
				continue
			}
			configs = append(configs, kafka.TopicConfig{
				Topic:             name,
				NumPartitions:     p.cfg.Partitions,
				ReplicationFactor: p.cfg.ReplicationFactor,
			})
		}
	}
	if len(configs) == 0 {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- ctrlConn.CreateTopics(configs...)
	}()

	select {
	case err := <-done:
		if err != nil {
			return e.Wrap(whereami.WhereAmI(), fmt.Errorf("failed to create topics: %w", err))
		}
		p.logger.Infof("kafka topics created: %d", len(configs))
		return nil
	case <-time.After(timeout):
		_ = ctrlConn.Close()
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("timeout: %v while creating topics", timeout))
	}
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	retryablePhrases := []string{
		"connection refused",
		"i/o timeout",
		"network is unreachable",
		"broker not available",
		"leader not available",
		"not leader for partition",
		"connection reset",
		"broken pipe",
		"no such host",
	}
	for _, phrase := range retryablePhrases {
		if strings.Contains(errStr, phrase) {
			return true
		}
	}
	return false
}
