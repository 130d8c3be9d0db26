package kafka

import (
	"errors"
	"testing"
	"time"

	"github.com/DRSN-tech/market-crawler/pkg/jitter"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedPolicy(maxAttempts int, now time.Time) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		Backoff:     jitter.NewBackoff(time.Second, time.Minute, 0),
		now:         func() time.Time { return now },
	}
}

func TestRetryPolicyNext(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	policy := fixedPolicy(3, now)
	msg := kafka.Message{
		Topic:   "crawler.details",
		Key:     []byte("42"),
		Value:   []byte(`{"external_id":"42"}`),
		Headers: []kafka.Header{{Key: HeaderMessageID, Value: []byte("id-1")}},
	}

	first, retry := policy.Next(msg, errors.New("timeout"))
	require.True(t, retry)
	assert.Equal(t, "crawler.details", first.Topic)
	assert.Equal(t, 1, Attempt(first))
	assert.Equal(t, "id-1", headerValue(first.Headers, HeaderMessageID))
	assert.Equal(t, "timeout", headerValue(first.Headers, HeaderError))
	notBefore, ok := NotBefore(first)
	require.True(t, ok)
	assert.Equal(t, now.Add(time.Second), notBefore)
	assert.Empty(t, headerValue(msg.Headers, HeaderAttempt), "original headers are not modified")

	second, retry := policy.Next(first, errors.New("timeout"))
	require.True(t, retry)
	notBefore, _ = NotBefore(second)
	assert.Equal(t, now.Add(2*time.Second), notBefore)

	dead, retry := policy.Next(second, errors.New("timeout"))
	require.False(t, retry)
	assert.Equal(t, "crawler.details.dlq", dead.Topic)
	assert.Equal(t, "crawler.details", headerValue(dead.Headers, HeaderOrigin))
	_, ok = NotBefore(dead)
	assert.False(t, ok)
}

func TestRetryPolicyUnlimited(t *testing.T) {
	policy := fixedPolicy(0, time.Now())
	msg := kafka.Message{Topic: "crawler.page", Headers: []kafka.Header{{Key: HeaderAttempt, Value: []byte("500")}}}

	next, retry := policy.Next(msg, errors.New("boom"))
	assert.True(t, retry)
	assert.Equal(t, 501, Attempt(next))
}

func TestAttemptIgnoresGarbage(t *testing.T) {
	assert.Equal(t, 0, Attempt(kafka.Message{Headers: []kafka.Header{{Key: HeaderAttempt, Value: []byte("x")}}}))
	assert.Equal(t, 0, Attempt(kafka.Message{}))
}
