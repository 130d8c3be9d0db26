package kafka

import (
	"strconv"
	"time"

	"github.com/DRSN-tech/market-crawler/pkg/jitter"
	"github.com/segmentio/kafka-go"
)

// Заголовки служебных полей сообщения.
const (
	HeaderMessageID = "x-message-id"
	HeaderAttempt   = "x-attempt"
	HeaderNotBefore = "x-not-before"
	HeaderError     = "x-error"
	HeaderOrigin    = "x-origin-topic"
)

// DLQTopic возвращает топик для сообщений, исчерпавших попытки.
func DLQTopic(topic string) string {
	return topic + ".dlq"
}

// RetryPolicy решает, куда и когда переотправить сообщение после ошибки обработчика.
// MaxAttempts == 0 отключает DLQ.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     jitter.Backoff
	now         func() time.Time
}

func NewRetryPolicy(maxAttempts int, base, max time.Duration) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		Backoff:     jitter.NewBackoff(base, max, jitter.DefaultJitter),
		now:         time.Now,
	}
}

// Next возвращает сообщение для повторной доставки. Второе значение false
// означает, что попытки исчерпаны и возвращено сообщение для DLQ.
func (p RetryPolicy) Next(msg kafka.Message, cause error) (kafka.Message, bool) {
	attempt := Attempt(msg) + 1

	out := kafka.Message{
		Topic:   msg.Topic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: clone(msg.Headers),
	}
	out.Headers = setHeader(out.Headers, HeaderAttempt, strconv.Itoa(attempt))
	out.Headers = setHeader(out.Headers, HeaderError, cause.Error())

	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		return deadLetter(out), false
	}

	now := time.Now
	if p.now != nil {
		now = p.now
	}
	notBefore := now().Add(p.Backoff.Delay(attempt - 1))
	out.Headers = setHeader(out.Headers, HeaderNotBefore, notBefore.UTC().Format(time.RFC3339Nano))
	return out, true
}

// DeadLetter возвращает копию сообщения для DLQ.
func DeadLetter(msg kafka.Message, cause error) kafka.Message {
	out := kafka.Message{
		Topic:   msg.Topic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: setHeader(clone(msg.Headers), HeaderError, cause.Error()),
	}
	return deadLetter(out)
}

func deadLetter(msg kafka.Message) kafka.Message {
	msg.Headers = setHeader(msg.Headers, HeaderOrigin, msg.Topic)
	msg.Headers = removeHeader(msg.Headers, HeaderNotBefore)
	msg.Topic = DLQTopic(msg.Topic)
	return msg
}

// Attempt возвращает номер повторной доставки сообщения, 0 для первой.
func Attempt(msg kafka.Message) int {
	n, err := strconv.Atoi(headerValue(msg.Headers, HeaderAttempt))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// NotBefore возвращает время, раньше которого сообщение не обрабатывается.
func NotBefore(msg kafka.Message) (time.Time, bool) {
	raw := headerValue(msg.Headers, HeaderNotBefore)
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func headerValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func setHeader(headers []kafka.Header, key, value string) []kafka.Header {
	for i := range headers {
		if headers[i].Key == key {
			headers[i].Value = []byte(value)
			return headers
		}
	}
	return append(headers, kafka.Header{Key: key, Value: []byte(value)})
}

func removeHeader(headers []kafka.Header, key string) []kafka.Header {
	out := headers[:0]
	for _, h := range headers {
		if h.Key != key {
			out = append(out, h)
		}
	}
	return out
}

func clone(headers []kafka.Header) []kafka.Header {
	out := make([]kafka.Header, len(headers))
	copy(out, headers)
	return out
}
