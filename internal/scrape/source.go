package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"internhub-engine/internal/config"
	"internhub-engine/internal/domain"
	ierrors "internhub-engine/internal/errors"
	"internhub-engine/internal/logging"
	"internhub-engine/internal/scrape/htmltable"
	"internhub-engine/internal/scrape/markdown"
	"internhub-engine/internal/scrape/types"
	"internhub-engine/internal/scrape/util"
)

const maxDocumentBytes = 32 << 20

// DocumentSource fetches one upstream document over HTTP and hands it to its
// format's parser.
type DocumentSource struct {
	name      string
	url       string
	priority  int
	userAgent string
	hc        *http.Client
	limiter   *util.HostLimiter
	parser    types.Parser
}

func NewDocumentSource(name, url string, priority int, parser types.Parser, hc *http.Client, limiter *util.HostLimiter, userAgent string) *DocumentSource {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &DocumentSource{
		name:      name,
		url:       url,
		priority:  priority,
		userAgent: userAgent,
		hc:        hc,
		limiter:   limiter,
		parser:    parser,
	}
}

func (s *DocumentSource) Name() string  { return s.name }
func (s *DocumentSource) Priority() int { return s.priority }

func (s *DocumentSource) Parse(body string) []domain.Posting {
	return s.parser.Parse(body)
}

func (s *DocumentSource) Fetch(ctx context.Context) (types.Document, error) {
	if err := s.limiter.WaitURL(ctx, s.url); err != nil {
		return types.Document{}, ierrors.SourceFetch(s.name+": rate limit wait", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return types.Document{}, ierrors.SourceFetch(s.name+": build request", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	req.Header.Set("Accept", "text/plain, text/markdown, text/html;q=0.9, */*;q=0.5")

	resp, err := s.hc.Do(req)
	if err != nil {
		return types.Document{}, ierrors.SourceFetch(s.name+": request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return types.Document{}, ierrors.SourceFetch(
			fmt.Sprintf("%s: upstream status %s", s.name, resp.Status),
			fmt.Errorf("body=%q", string(snippet)),
		)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return types.Document{}, ierrors.SourceFetch(s.name+": read body", err)
	}
	return types.Document{Source: s.name, Body: string(b), FetchedAt: time.Now().UTC()}, nil
}

// BuildSources turns the configured source list into Sources. Disabled
// entries are skipped; an unknown format is a config error.
func BuildSources(cfg config.Config, hc *http.Client, logger *zap.Logger) ([]types.Source, error) {
	logger = logging.OrNop(logger)
	limiter := util.NewHostLimiter(cfg.Fetch.PerHostRPS, cfg.Fetch.PerHostBurst)

	var out []types.Source
	for _, sc := range cfg.Sources {
		if sc.Disabled {
			continue
		}
		var parser types.Parser
		switch sc.Format {
		case config.FormatMarkdown:
			parser = markdown.New(markdown.Config{Source: sc.Name, Priority: sc.Priority, Header: sc.Header}, logger)
		case config.FormatHTML:
			parser = htmltable.New(htmltable.Config{Source: sc.Name, Priority: sc.Priority, AggregatorDomain: sc.AggregatorDomain}, logger)
		default:
			return nil, ierrors.InvalidConfig(fmt.Sprintf("source %q: unknown format %q", sc.Name, sc.Format), nil)
		}
		out = append(out, NewDocumentSource(sc.Name, sc.URL, sc.Priority, parser, hc, limiter, cfg.Fetch.UserAgent))
	}
	return out, nil
}
