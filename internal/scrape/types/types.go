package types

import (
	"context"
	"time"

	"internhub-engine/internal/domain"
)

// Document is the raw body of one upstream source.
type Document struct {
	Source    string
	Body      string
	FetchedAt time.Time
}

// Parser turns one document into postings. Implementations never panic and
// return an empty slice when the document does not have the expected shape.
type Parser interface {
	Parse(body string) []domain.Posting
}

// Fetcher retrieves a source's document.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) (Document, error)
}

// Source is a named, prioritized upstream: fetched in parallel, parsed
// afterwards.
type Source interface {
	Fetcher
	Parser
	Priority() int
}
