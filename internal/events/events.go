package events

import (
	"context"
	"encoding/json"
	"time"
)

const (
	TypeScrapeStarted  = "scrape_started"
	TypeScrapeState    = "scrape_state"
	TypeScrapeFinished = "scrape_finished"
	TypeScrapeFailed   = "scrape_failed"
	TypePing           = "ping"
)

const Version = 1

type Event struct {
	Type      string          `json:"type"`
	Version   int             `json:"v"`
	At        time.Time       `json:"at"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func MakeEvent(reqID, typ string, v int, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	e := Event{
		Type:      typ,
		Version:   v,
		At:        time.Now().UTC(),
		RequestID: reqID,
		Data:      raw,
	}
	b, _ := json.Marshal(e)
	return string(b)
}

// Publisher delivers run lifecycle events to one sink.
type Publisher interface {
	Publish(ctx context.Context, typ string, data any) error
}

// Fanout publishes to every sink and returns the first error. A failing
// sink does not stop the others.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, typ string, data any) error {
	var first error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, typ, data); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type requestIDKey struct{}

// WithRequestID tags events published under ctx with id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}
