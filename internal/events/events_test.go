package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeEvent(t *testing.T) {
	raw := MakeEvent("req-1", TypeScrapeFinished, Version, map[string]int{"internships": 3})

	var e Event
	require.NoError(t, json.Unmarshal([]byte(raw), &e))
	assert.Equal(t, TypeScrapeFinished, e.Type)
	assert.Equal(t, 1, e.Version)
	assert.Equal(t, "req-1", e.RequestID)
	assert.JSONEq(t, `{"internships":3}`, string(e.Data))
	assert.WithinDuration(t, time.Now(), e.At, time.Minute)
}

func TestHub_PublishReachesSubscribers(t *testing.T) {
	h := NewHub()
	a := h.Subscribe()
	b := h.Subscribe()
	assert.Equal(t, 2, h.Subscribers())

	ctx := WithRequestID(context.Background(), "req-9")
	require.NoError(t, h.Publish(ctx, TypeScrapeStarted, map[string]string{"runId": "r1"}))

	for _, ch := range []chan string{a, b} {
		select {
		case msg := <-ch:
			var e Event
			require.NoError(t, json.Unmarshal([]byte(msg), &e))
			assert.Equal(t, TypeScrapeStarted, e.Type)
			assert.Equal(t, "req-9", e.RequestID)
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}

	h.Unsubscribe(a)
	h.Unsubscribe(a)
	assert.Equal(t, 1, h.Subscribers())
	_, open := <-a
	assert.False(t, open)
}

func TestHub_DropsForSlowSubscriber(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	for i := 0; i < 50; i++ {
		h.Broadcast("x")
	}
	assert.Len(t, ch, cap(ch))
}

type recordingPublisher struct {
	types []string
	err   error
}

func (r *recordingPublisher) Publish(_ context.Context, typ string, _ any) error {
	r.types = append(r.types, typ)
	return r.err
}

func TestFanout(t *testing.T) {
	failing := &recordingPublisher{err: errors.New("down")}
	ok := &recordingPublisher{}

	err := Fanout{failing, nil, ok}.Publish(context.Background(), TypeScrapeFailed, nil)
	assert.EqualError(t, err, "down")
	assert.Equal(t, []string{TypeScrapeFailed}, failing.types)
	assert.Equal(t, []string{TypeScrapeFailed}, ok.types)
}

func TestNewNATSPublisher_Unreachable(t *testing.T) {
	_, err := NewNATSPublisher("nats://127.0.0.1:1", "", 200*time.Millisecond, nil)
	assert.Error(t, err)
}
