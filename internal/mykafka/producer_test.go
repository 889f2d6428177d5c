package mykafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage_EncodesEvent(t *testing.T) {
	t.Parallel()

	ev := UserEvent{Type: EventUserLoggedIn, AccountID: "acc-1", Email: "a@example.com", At: time.Unix(0, 0).UTC()}
	msg, err := newMessage(TopicUserEvents, "acc-1", ev)
	require.NoError(t, err)

	assert.Equal(t, TopicUserEvents, msg.Topic)
	assert.Equal(t, []byte("acc-1"), msg.Key)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, EventUserLoggedIn, decoded["type"])
	assert.Equal(t, "acc-1", decoded["accountID"])
	assert.Equal(t, "a@example.com", decoded["email"])
}

func TestNewMessage_UnencodableEvent(t *testing.T) {
	t.Parallel()

	_, err := newMessage(TopicCatalogEvents, "k", map[string]any{"bad": make(chan int)})
	require.Error(t, err)
}

func TestNop(t *testing.T) {
	t.Parallel()

	var n Nop
	require.NoError(t, n.PublishEvent(context.Background(), TopicUserEvents, "k", UserEvent{}))
	require.NoError(t, n.Close())
}

func TestProducer_UnreachableBrokerFails(t *testing.T) {
	t.Parallel()

	p := NewProducer([]string{"127.0.0.1:1"})
	t.Cleanup(func() { _ = p.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := p.PublishEvent(ctx, TopicCatalogEvents, "k", CatalogEvent{Type: EventWalkCreated, ID: "w"})
	require.Error(t, err)
}
