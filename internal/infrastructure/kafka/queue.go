package kafka

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/DRSN-tech/market-crawler/internal/cfg"
	"github.com/DRSN-tech/market-crawler/internal/domain"
	"github.com/DRSN-tech/market-crawler/pkg/e"
	"github.com/segmentio/kafka-go"
)

type publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// Queue ставит задания стадий конвейера в их топики. Сообщения одного
// объекта получают одинаковый ключ и попадают в одну партицию.
type Queue struct {
	producer publisher
	topics   cfg.TopicsCfg
}

func NewQueue(producer publisher, topics cfg.TopicsCfg) *Queue {
	return &Queue{producer: producer, topics: topics}
}

func (q *Queue) EnqueueCategory(ctx context.Context, job domain.CategoryJob) error {
	return q.enqueue(ctx, q.topics.Category, job.Source.String()+"/"+job.Category, job)
}

func (q *Queue) EnqueuePage(ctx context.Context, job domain.PageJob) error {
	return q.enqueue(ctx, q.topics.Page, job.URL, job)
}

func (q *Queue) EnqueueDetails(ctx context.Context, job domain.DetailsJob) error {
	return q.enqueue(ctx, q.topics.Details, strconv.FormatInt(job.ProductID, 10), job)
}

func (q *Queue) EnqueueImage(ctx context.Context, job domain.ImageJob) error {
	return q.enqueue(ctx, q.topics.Image, job.FilePath, job)
}

func (q *Queue) EnqueueExchangeRate(ctx context.Context) error {
	return q.enqueue(ctx, q.topics.ExchangeRate, "exchange_rate", domain.ExchangeRateJob{})
}

func (q *Queue) enqueue(ctx context.Context, topic, key string, job any) error {
	const op = "Queue.enqueue"

	value, err := json.Marshal(job)
	if err != nil {
		return e.Wrap(op, err)
	}

	if err := q.producer.Publish(ctx, kafka.Message{Topic: topic, Key: []byte(key), Value: value}); err != nil {
		return e.Wrap(op, err)
	}
	return nil
}
