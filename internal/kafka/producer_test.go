package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducer_PublishAfterCloseDrops(t *testing.T) {
	p := NewProducer([]string{"127.0.0.1:1"}, "order.created", 2)

	p.Publish([]byte("o-1"), []byte(`{}`))
	p.Close()
	assert.NotPanics(t, func() { p.Publish([]byte("o-2"), []byte(`{}`)) })
	assert.NotPanics(t, p.Close)

	var keys []string
	for m := range p.inbox {
		keys = append(keys, string(m.Key))
	}
	require.Equal(t, []string{"o-1"}, keys)
}

func TestProducer_FullInboxDrops(t *testing.T) {
	p := NewProducer([]string{"127.0.0.1:1"}, "order.created", 1)
	p.Publish([]byte("o-1"), nil)
	p.Publish([]byte("o-2"), nil)
	assert.Len(t, p.inbox, 1)
}
