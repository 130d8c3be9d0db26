package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DRSN-tech/market-crawler/pkg/e"
	"github.com/DRSN-tech/market-crawler/pkg/logger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	mu      sync.Mutex
	msgs    []kafka.Message
	commits []kafka.Message
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		msg := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()

	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commits = append(r.commits, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) committed() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int64, 0, len(r.commits))
	for _, m := range r.commits {
		out = append(out, m.Offset)
	}
	return out
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (p *fakePublisher) Publish(_ context.Context, msg kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *fakePublisher) published() []kafka.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]kafka.Message(nil), p.msgs...)
}

func messages(n int) []kafka.Message {
	out := make([]kafka.Message, n)
	for i := range out {
		out[i] = kafka.Message{Topic: "crawler.page", Partition: 0, Offset: int64(i), Value: []byte(fmt.Sprint(i))}
	}
	return out
}

func runConsumer(t *testing.T, c *Consumer, handle Handler) (cancel func(), done <-chan error) {
	t.Helper()
	ctx, cancelFn := context.WithCancel(context.Background())
	ch := make(chan error, 1)
	go func() { ch <- c.Run(ctx, handle) }()
	return cancelFn, ch
}

func TestConsumerCommitsInOrder(t *testing.T) {
	r := &fakeReader{msgs: messages(5)}
	c := newConsumer("crawler.page", r, &fakePublisher{}, fixedPolicy(3, time.Now()), 3, logger.NewNop())

	// первое сообщение завершается последним
	release := make(chan struct{})
	cancel, done := runConsumer(t, c, func(ctx context.Context, payload []byte) error {
		if string(payload) == "0" {
			<-release
		}
		return nil
	})

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, r.committed(), "nothing is committed while offset 0 is in flight")
	close(release)

	require.Eventually(t, func() bool {
		got := r.committed()
		return len(got) > 0 && got[len(got)-1] == 4
	}, time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	got := r.committed()
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i], got[i-1])
	}
}

func TestConsumerPrefetchBoundsInFlight(t *testing.T) {
	r := &fakeReader{msgs: messages(10)}
	c := newConsumer("crawler.page", r, &fakePublisher{}, fixedPolicy(3, time.Now()), 2, logger.NewNop())

	var (
		mu      sync.Mutex
		current int
		peak    int
	)
	cancel, done := runConsumer(t, c, func(ctx context.Context, payload []byte) error {
		mu.Lock()
		current++
		peak = max(peak, current)
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		current--
		mu.Unlock()
		return nil
	})

	require.Eventually(t, func() bool {
		got := r.committed()
		return len(got) > 0 && got[len(got)-1] == 9
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.LessOrEqual(t, peak, 2)
}

func TestConsumerRequeuesFailedMessage(t *testing.T) {
	r := &fakeReader{msgs: messages(1)}
	pub := &fakePublisher{}
	c := newConsumer("crawler.page", r, pub, fixedPolicy(3, time.Now()), 1, logger.NewNop())

	cancel, done := runConsumer(t, c, func(context.Context, []byte) error {
		return errors.New("site timeout")
	})

	require.Eventually(t, func() bool { return len(r.committed()) == 1 }, time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	msgs := pub.published()
	require.Len(t, msgs, 1)
	assert.Equal(t, "crawler.page", msgs[0].Topic)
	assert.Equal(t, 1, Attempt(msgs[0]))
}

func TestConsumerDeadLettersExhaustedMessage(t *testing.T) {
	msg := messages(1)[0]
	msg.Headers = []kafka.Header{{Key: HeaderAttempt, Value: []byte("2")}}
	r := &fakeReader{msgs: []kafka.Message{msg}}
	pub := &fakePublisher{}
	c := newConsumer("crawler.page", r, pub, fixedPolicy(3, time.Now()), 1, logger.NewNop())

	cancel, done := runConsumer(t, c, func(context.Context, []byte) error {
		return errors.New("still broken")
	})

	require.Eventually(t, func() bool { return len(r.committed()) == 1 }, time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	msgs := pub.published()
	require.Len(t, msgs, 1)
	assert.Equal(t, "crawler.page.dlq", msgs[0].Topic)
}

func TestConsumerStopsOnMalformedMessage(t *testing.T) {
	r := &fakeReader{msgs: messages(1)}
	pub := &fakePublisher{}
	c := newConsumer("crawler.page", r, pub, fixedPolicy(3, time.Now()), 1, logger.NewNop())

	_, done := runConsumer(t, c, func(context.Context, []byte) error {
		return e.Wrap("decode", e.ErrMalformedMessage)
	})

	select {
	case err := <-done:
		require.ErrorIs(t, err, e.ErrMalformedMessage)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
	assert.Equal(t, []int64{0}, r.committed())
	require.Len(t, pub.published(), 1)
	assert.Equal(t, "crawler.page.dlq", pub.published()[0].Topic)
}

func TestConsumerWaitsForNotBefore(t *testing.T) {
	msg := messages(1)[0]
	msg.Headers = []kafka.Header{{Key: HeaderNotBefore, Value: []byte(time.Now().Add(time.Hour).UTC().Format(time.RFC3339Nano))}}
	r := &fakeReader{msgs: []kafka.Message{msg}}
	c := newConsumer("crawler.page", r, &fakePublisher{}, fixedPolicy(3, time.Now()), 1, logger.NewNop())

	called := make(chan struct{}, 1)
	cancel, done := runConsumer(t, c, func(context.Context, []byte) error {
		called <- struct{}{}
		return nil
	})

	time.Sleep(50 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Empty(t, called)
	assert.Empty(t, r.committed(), "postponed message stays uncommitted on shutdown")
}
