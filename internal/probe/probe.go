// Package probe checks whether application links still point at open
// postings.
package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"internhub-engine/internal/cache"
	"internhub-engine/internal/domain"
	"internhub-engine/internal/logging"
	"internhub-engine/internal/metrics"
	"internhub-engine/internal/scrape/util"
	"internhub-engine/internal/telemetry"
)

type Verdict string

const (
	VerdictOpen    Verdict = "open"
	VerdictClosed  Verdict = "closed"
	VerdictUnknown Verdict = "unknown"
)

const DefaultUserAgent = "GT-CS-Internship-Portal/1.0 (Educational Purpose)"

// DefaultClosedPhrases are matched case-insensitively against the page body.
var DefaultClosedPhrases = []string{
	"sorry, the job you're looking for isn't available",
	"this job is no longer available",
	"position has been filled",
	"job posting has expired",
	"application deadline has passed",
	"no longer accepting applications",
	"position is no longer open",
	"job has been removed",
	"posting has been closed",
	"opportunity is no longer available",
	"role has been filled",
	"applications are now closed",
	"job opening has closed",
	"position has closed",
	"we're no longer hiring for this role",
	"this position is closed",
	"job is closed",
	"expired job posting",
	"job not found",
	"position not available",
}

type Config struct {
	BatchSize     int
	Stagger       time.Duration
	Timeout       time.Duration
	UserAgent     string
	MaxBodyBytes  int64
	ClosedPhrases []string
	CacheTTL      time.Duration
}

func DefaultConfig() Config {
	return Config{
		BatchSize:     20,
		Stagger:       100 * time.Millisecond,
		Timeout:       8 * time.Second,
		UserAgent:     DefaultUserAgent,
		MaxBodyBytes:  2 << 20,
		ClosedPhrases: DefaultClosedPhrases,
		CacheTTL:      6 * time.Hour,
	}
}

type Stats struct {
	Checked int `json:"checked"`
	Closed  int `json:"closed"`
	Unknown int `json:"unknown"`
	Cached  int `json:"cached"`
}

type Prober struct {
	cfg     Config
	phrases [][]byte
	hc      *http.Client
	limiter *util.HostLimiter
	cache   cache.Cache
	log     *zap.Logger
	tracer  trace.Tracer
}

type Option func(*Prober)

func WithLimiter(l *util.HostLimiter) Option { return func(p *Prober) { p.limiter = l } }
func WithCache(c cache.Cache) Option         { return func(p *Prober) { p.cache = c } }
func WithLogger(l *zap.Logger) Option        { return func(p *Prober) { p.log = logging.OrNop(l) } }

// New fills zero fields of cfg from DefaultConfig.
func New(cfg Config, hc *http.Client, opts ...Option) *Prober {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Stagger < 0 {
		cfg.Stagger = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = def.MaxBodyBytes
	}
	if len(cfg.ClosedPhrases) == 0 {
		cfg.ClosedPhrases = def.ClosedPhrases
	}
	if hc == nil {
		hc = &http.Client{}
	}

	p := &Prober{
		cfg:    cfg,
		hc:     hc,
		log:    zap.NewNop(),
		tracer: telemetry.GetTracer("probe"),
	}
	for _, ph := range cfg.ClosedPhrases {
		if ph = strings.ToLower(strings.TrimSpace(ph)); ph != "" {
			p.phrases = append(p.phrases, []byte(ph))
		}
	}
	for _, o := range opts {
		o(p)
	}
	p.log = p.log.Named("probe")
	return p
}

// Check issues HEAD then GET against link. Any status >= 400 is closed; a
// readable GET body containing a closure phrase is closed; everything else
// that completes is open. Transport failures return VerdictUnknown and the
// error.
func (p *Prober) Check(ctx context.Context, link string) (Verdict, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	if err := p.limiter.WaitURL(ctx, link); err != nil {
		return VerdictUnknown, err
	}

	status, err := p.do(ctx, http.MethodHead, link, nil)
	if err != nil {
		return VerdictUnknown, err
	}
	if status >= 400 {
		return VerdictClosed, nil
	}

	var body []byte
	status, err = p.do(ctx, http.MethodGet, link, &body)
	if err != nil {
		return VerdictUnknown, err
	}
	if status >= 400 {
		return VerdictClosed, nil
	}
	if p.containsPhrase(body) {
		return VerdictClosed, nil
	}
	return VerdictOpen, nil
}

func (p *Prober) do(ctx context.Context, method, link string, body *[]byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, link, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)
	resp, err := p.hc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if body != nil && resp.StatusCode < 400 {
		b, err := io.ReadAll(io.LimitReader(resp.Body, p.cfg.MaxBodyBytes))
		if err != nil {
			return 0, fmt.Errorf("read body: %w", err)
		}
		*body = b
	} else {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	}
	return resp.StatusCode, nil
}

func (p *Prober) containsPhrase(body []byte) bool {
	if len(body) == 0 {
		return false
	}
	lower := bytes.ToLower(body)
	for _, ph := range p.phrases {
		if bytes.Contains(lower, ph) {
			return true
		}
	}
	return false
}

// Probe returns a copy of postings with IsClosed set from each link's verdict:
// closed marks the posting closed and open reopens it. Postings without a
// link are not probed, and a failed probe leaves its posting unchanged. Each distinct link is
// probed once, in sequential batches with a per-slot stagger.
func (p *Prober) Probe(ctx context.Context, postings []domain.Posting) ([]domain.Posting, Stats) {
	ctx, span := p.tracer.Start(ctx, "probe.Probe")
	defer span.End()

	out := make([]domain.Posting, len(postings))
	copy(out, postings)

	byKey := map[string][]int{}
	var keys []string
	links := map[string]string{}
	for i, posting := range out {
		if strings.TrimSpace(posting.ApplicationLink) == "" {
			continue
		}
		key := util.CanonicalURL(posting.ApplicationLink)
		if key == "" {
			continue
		}
		if _, seen := byKey[key]; !seen {
			keys = append(keys, key)
			links[key] = posting.ApplicationLink
		}
		byKey[key] = append(byKey[key], i)
	}

	verdicts := make([]Verdict, len(keys))
	cached := make([]bool, len(keys))
	var stats Stats

	for start := 0; start < len(keys); start += p.cfg.BatchSize {
		if ctx.Err() != nil {
			break
		}
		end := min(start+p.cfg.BatchSize, len(keys))

		g, gctx := errgroup.WithContext(ctx)
		for slot := start; slot < end; slot++ {
			delay := time.Duration(slot-start) * p.cfg.Stagger
			g.Go(func() error {
				if delay > 0 {
					t := time.NewTimer(delay)
					select {
					case <-gctx.Done():
						t.Stop()
						return nil
					case <-t.C:
					}
				}
				verdicts[slot], cached[slot] = p.verdict(gctx, keys[slot], links[keys[slot]])
				return nil
			})
		}
		_ = g.Wait()
	}

	for i, key := range keys {
		if cached[i] {
			stats.Cached++
		}
		switch verdicts[i] {
		case VerdictClosed:
			stats.Closed++
			for _, idx := range byKey[key] {
				out[idx].IsClosed = true
			}
		case VerdictOpen:
			for _, idx := range byKey[key] {
				out[idx].IsClosed = false
			}
		default:
			stats.Unknown++
		}
	}
	stats.Checked = len(keys)

	span.SetAttributes(
		telemetry.Int("probe.checked", stats.Checked),
		telemetry.Int("probe.closed", stats.Closed),
		telemetry.Int("probe.unknown", stats.Unknown),
	)
	p.log.Info("probe finished",
		zap.Int("postings", len(postings)),
		zap.Int("checked", stats.Checked),
		zap.Int("closed", stats.Closed),
		zap.Int("unknown", stats.Unknown),
		zap.Int("cached", stats.Cached),
	)
	return out, stats
}

// verdict consults the cache before probing. Unknown verdicts are never cached.
func (p *Prober) verdict(ctx context.Context, key, link string) (Verdict, bool) {
	if p.cache != nil {
		v, err := p.cache.Get(ctx, key)
		if err == nil && (Verdict(v) == VerdictOpen || Verdict(v) == VerdictClosed) {
			metrics.ProbeVerdicts.WithLabelValues(v, "true").Inc()
			return Verdict(v), true
		}
		if err != nil && !errors.Is(err, cache.ErrNotFound) {
			p.log.Debug("probe cache get failed", zap.Error(err))
		}
	}

	v, err := p.Check(ctx, link)
	metrics.ProbeVerdicts.WithLabelValues(string(v), "false").Inc()
	if err != nil {
		p.log.Debug("probe failed", zap.String("link", link), zap.Error(err))
		return VerdictUnknown, false
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, key, string(v), p.cfg.CacheTTL); err != nil {
			p.log.Debug("probe cache set failed", zap.Error(err))
		}
	}
	return v, false
}
