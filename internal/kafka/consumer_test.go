package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-restaurant-orders/internal/logging"
)

type fakeReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed []kafka.Message
	closed    bool
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.pending) > 0 {
		m := f.pending[0]
		f.pending = f.pending[1:]
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeReader) commits() []kafka.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]kafka.Message(nil), f.committed...)
}

func msg(partition int, offset int64) kafka.Message {
	return kafka.Message{Topic: "order.status.changed", Partition: partition, Offset: offset}
}

func offsetsByPartition(ms []kafka.Message) map[int][]int64 {
	out := map[int][]int64{}
	for _, m := range ms {
		out[m.Partition] = append(out[m.Partition], m.Offset)
	}
	return out
}

func TestConsumer_KeepsPartitionOrderAndRetriesFailures(t *testing.T) {
	r := &fakeReader{pending: []kafka.Message{
		msg(0, 0), msg(1, 0), msg(0, 1), msg(1, 1), msg(0, 2), msg(2, 0),
	}}
	c := newConsumer(r, 3, logging.New("test"))
	c.minBackoff, c.maxBackoff = time.Millisecond, 5*time.Millisecond

	var (
		mu      sync.Mutex
		handled []kafka.Message
		failed  int
	)
	h := func(_ context.Context, m kafka.Message) error {
		mu.Lock()
		defer mu.Unlock()
		handled = append(handled, m)
		if m.Partition == 0 && m.Offset == 1 && failed < 2 {
			failed++
			return errors.New("redis down")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx, h) }()

	require.Eventually(t, func() bool { return len(r.commits()) == 6 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	commits := offsetsByPartition(r.commits())
	assert.Equal(t, []int64{0, 1, 2}, commits[0])
	assert.Equal(t, []int64{0, 1}, commits[1])
	assert.Equal(t, []int64{0}, commits[2])

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int64{0, 1, 1, 1, 2}, offsetsByPartition(handled)[0])
	assert.True(t, r.closed)
}

func TestConsumer_StopsRetryingOnCancel(t *testing.T) {
	r := &fakeReader{pending: []kafka.Message{msg(0, 0), msg(0, 1)}}
	c := newConsumer(r, 1, logging.New("test"))
	c.minBackoff, c.maxBackoff = time.Millisecond, time.Millisecond

	calls := make(chan struct{}, 1)
	h := func(context.Context, kafka.Message) error {
		select {
		case calls <- struct{}{}:
		default:
		}
		return errors.New("always failing")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx, h) }()

	<-calls
	<-calls
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
	assert.Empty(t, r.commits())
}

func TestConsumer_LaneIsStablePerPartition(t *testing.T) {
	c := newConsumer(&fakeReader{}, 4, logging.New("test"))
	for p := 0; p < 8; p++ {
		first := c.lane(msg(p, 0))
		assert.Equal(t, first, c.lane(msg(p, 99)))
		assert.Less(t, first, 4)
	}
}
