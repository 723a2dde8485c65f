// Package pipeline runs one ingestion pass: fetch every source, parse, probe
// links, dedupe and replace the stored snapshot, recording the run in the
// run log.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"internhub-engine/internal/dedupe"
	"internhub-engine/internal/domain"
	ierrors "internhub-engine/internal/errors"
	"internhub-engine/internal/events"
	"internhub-engine/internal/logging"
	"internhub-engine/internal/metrics"
	"internhub-engine/internal/probe"
	"internhub-engine/internal/scrape/types"
	"internhub-engine/internal/scrape/util"
	"internhub-engine/internal/telemetry"
)

type State string

const (
	StatePending    State = "pending"
	StateFetching   State = "fetching"
	StateParsing    State = "parsing"
	StateProbing    State = "probing"
	StateDeduping   State = "deduping"
	StatePersisting State = "persisting"
	StateSuccess    State = "success"
	StateError      State = "error"
)

// ErrRunInProgress is returned when a run is triggered while another one
// holds the run lock. It is a Conflict DomainError.
var ErrRunInProgress = ierrors.Conflict("scrape already running", nil)

const (
	defaultFetchTimeout = 2 * time.Minute
	finishTimeout       = 10 * time.Second
)

// Store is the part of the store the pipeline writes to.
type Store interface {
	ReplaceSnapshot(ctx context.Context, postings []domain.PersistedPosting) error
	InsertRun(ctx context.Context, run domain.ScrapeRun) error
	FinishRun(ctx context.Context, run domain.ScrapeRun) error
}

type Prober interface {
	Probe(ctx context.Context, postings []domain.Posting) ([]domain.Posting, probe.Stats)
}

type Options struct {
	Sources []types.Source
	Store   Store
	// Prober is optional; nil skips the probing stage.
	Prober    Prober
	Publisher events.Publisher
	Logger    *zap.Logger
	// LockPath adds a cross-process file lock next to the in-process one.
	LockPath     string
	FetchTimeout time.Duration
	Now          func() time.Time
}

type Result struct {
	RunID       string                `json:"runId"`
	Internships int                   `json:"internships"`
	Updated     int                   `json:"updated"`
	Added       int                   `json:"added"`
	Duplicates  int                   `json:"duplicates"`
	Duration    time.Duration         `json:"-"`
	Sources     []domain.SourceResult `json:"sources"`
	Probe       probe.Stats           `json:"probe"`
	Timestamp   time.Time             `json:"timestamp"`
}

// DurationString renders Duration the way the trigger endpoint reports it.
func (r Result) DurationString() string {
	return fmt.Sprintf("%.2fs", r.Duration.Seconds())
}

type Runner struct {
	opts   Options
	log    *zap.Logger
	tracer trace.Tracer
	flock  *flock.Flock

	mu      sync.Mutex // held for the whole run
	state   atomic.Value
	running atomic.Bool

	srcMu   sync.RWMutex
	sources []types.Source
}

func New(opts Options) *Runner {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Fanout{}
	}
	r := &Runner{
		opts:    opts,
		log:     logging.OrNop(opts.Logger).Named("pipeline"),
		tracer:  telemetry.GetTracer("pipeline"),
		sources: opts.Sources,
	}
	if opts.LockPath != "" {
		r.flock = flock.New(opts.LockPath)
	}
	r.state.Store(StatePending)
	return r
}

func (r *Runner) State() State  { return r.state.Load().(State) }
func (r *Runner) Running() bool { return r.running.Load() }
func (r *Runner) Sources() []types.Source {
	r.srcMu.RLock()
	defer r.srcMu.RUnlock()
	return append([]types.Source(nil), r.sources...)
}

// SetSources swaps the source list used by subsequent runs.
func (r *Runner) SetSources(sources []types.Source) {
	r.srcMu.Lock()
	r.sources = sources
	r.srcMu.Unlock()
}

func (r *Runner) setState(ctx context.Context, runID string, s State) {
	r.state.Store(s)
	r.publish(ctx, events.TypeScrapeState, map[string]string{"runId": runID, "state": string(s)})
}

func (r *Runner) publish(ctx context.Context, typ string, data any) {
	if err := r.opts.Publisher.Publish(ctx, typ, data); err != nil {
		r.log.Warn("publish event failed", zap.String("type", typ), zap.Error(err))
	}
}

// Run executes one full pass. Concurrent calls get ErrRunInProgress without
// touching the snapshot or the run log.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if !r.mu.TryLock() {
		metrics.RunsRejected.Inc()
		return Result{}, ErrRunInProgress
	}
	defer r.mu.Unlock()

	if r.flock != nil {
		locked, err := r.flock.TryLock()
		if err != nil {
			return Result{}, ierrors.Internal("acquire run lock", err)
		}
		if !locked {
			metrics.RunsRejected.Inc()
			return Result{}, ErrRunInProgress
		}
		defer func() { _ = r.flock.Unlock() }()
	}

	r.running.Store(true)
	defer r.running.Store(false)

	ctx, span := r.tracer.Start(ctx, "pipeline.Run")
	defer span.End()

	start := r.opts.Now()
	run := domain.ScrapeRun{
		ID:        uuid.NewString(),
		Status:    domain.RunStatusRunning,
		StartedAt: start.UTC(),
	}
	log := r.log.With(zap.String("run_id", run.ID))
	span.SetAttributes(telemetry.String("run.id", run.ID))

	r.setState(ctx, run.ID, StatePending)
	if err := r.opts.Store.InsertRun(ctx, run); err != nil {
		r.state.Store(StateError)
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert run")
		metrics.RunsTotal.WithLabelValues(string(domain.RunStatusError)).Inc()
		log.Error("insert run log failed", zap.Error(err))
		return Result{}, err
	}
	r.publish(ctx, events.TypeScrapeStarted, map[string]any{"runId": run.ID, "startedAt": run.StartedAt})
	log.Info("run started")

	res, err := r.execute(ctx, log, run.ID)

	end := r.opts.Now()
	completed := end.UTC()
	run.CompletedAt = &completed
	run.DurationMS = end.Sub(start).Milliseconds()
	run.Sources = res.Sources
	res.RunID = run.ID
	res.Duration = end.Sub(start)
	res.Timestamp = completed

	if err != nil {
		run.Status = domain.RunStatusError
		run.ErrorMessage = err.Error()
	} else {
		run.Status = domain.RunStatusSuccess
		run.InternshipsFound = res.Internships
	}

	// record the outcome even if the caller went away
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()
	if ferr := r.opts.Store.FinishRun(fctx, run); ferr != nil {
		// the snapshot is already committed; only the log row is stale
		log.Error("finish run log failed", zap.Error(ferr))
	}

	metrics.RunsTotal.WithLabelValues(string(run.Status)).Inc()
	metrics.RunDuration.Observe(res.Duration.Seconds())

	if err != nil {
		r.setState(fctx, run.ID, StateError)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.publish(fctx, events.TypeScrapeFailed, map[string]any{"runId": run.ID, "error": err.Error(), "sources": res.Sources})
		fields := []zap.Field{zap.Error(err), zap.Duration("duration", res.Duration)}
		if stack := ierrors.StackOf(err); len(stack) > 0 {
			fields = append(fields, zap.ByteString("stack", stack))
		}
		log.Error("run failed", fields...)
		return res, err
	}

	metrics.ActivePostings.Set(float64(res.Internships))
	r.setState(fctx, run.ID, StateSuccess)
	r.publish(fctx, events.TypeScrapeFinished, res)
	log.Info("run finished",
		zap.Int("internships", res.Internships),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("closed_by_probe", res.Probe.Closed),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

func (r *Runner) execute(ctx context.Context, log *zap.Logger, runID string) (Result, error) {
	var res Result
	sources := r.Sources()

	// ---- fetch ----
	r.setState(ctx, runID, StateFetching)
	docs, results := r.fetchAll(ctx, sources)
	res.Sources = results

	// ---- parse ----
	r.setState(ctx, runID, StateParsing)
	_, parseSpan := r.tracer.Start(ctx, "pipeline.parse")
	var pool []domain.Posting
	for i, src := range sources {
		if !results[i].Success {
			continue
		}
		postings := src.Parse(docs[i].Body)
		res.Sources[i].InternshipsFound = len(postings)
		metrics.PostingsParsed.WithLabelValues(src.Name()).Add(float64(len(postings)))
		log.Info("source parsed", zap.String("source", src.Name()), zap.Int("postings", len(postings)))
		pool = append(pool, postings...)
	}
	parseSpan.SetAttributes(telemetry.Int("postings", len(pool)))
	parseSpan.End()

	if len(pool) == 0 {
		return res, ierrors.NoPostings("no postings from any source")
	}

	// ---- probe ----
	if r.opts.Prober != nil {
		r.setState(ctx, runID, StateProbing)
		pool, res.Probe = r.opts.Prober.Probe(ctx, pool)
		if err := ctx.Err(); err != nil {
			return res, ierrors.Internal("run cancelled while probing", err)
		}
	}

	// ---- dedupe ----
	r.setState(ctx, runID, StateDeduping)
	_, dedupeSpan := r.tracer.Start(ctx, "pipeline.dedupe")
	unique := dedupe.Dedupe(pool)
	res.Duplicates = len(pool) - len(unique)
	metrics.DuplicatesDropped.Add(float64(res.Duplicates))
	dedupeSpan.SetAttributes(telemetry.Int("unique", len(unique)), telemetry.Int("duplicates", res.Duplicates))
	dedupeSpan.End()

	// ---- persist ----
	r.setState(ctx, runID, StatePersisting)
	pctx, persistSpan := r.tracer.Start(ctx, "pipeline.persist")
	snapshot := Snapshot(unique, r.opts.Now())
	if err := r.opts.Store.ReplaceSnapshot(pctx, snapshot); err != nil {
		persistSpan.RecordError(err)
		persistSpan.End()
		return res, err
	}
	persistSpan.End()

	res.Internships = len(snapshot)
	res.Added = len(snapshot)
	return res, nil
}

// fetchAll fetches every source concurrently. A failing source is recorded
// and never cancels its siblings.
func (r *Runner) fetchAll(ctx context.Context, sources []types.Source) ([]types.Document, []domain.SourceResult) {
	ctx, span := r.tracer.Start(ctx, "pipeline.fetch")
	defer span.End()

	docs := make([]types.Document, len(sources))
	results := make([]domain.SourceResult, len(sources))

	var g errgroup.Group
	for i, src := range sources {
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(ctx, r.opts.FetchTimeout)
			defer cancel()

			results[i].Name = src.Name()
			doc, err := src.Fetch(fctx)
			if err != nil {
				results[i].Error = err.Error()
				metrics.SourceFetches.WithLabelValues(src.Name(), "error").Inc()
				r.log.Warn("source fetch failed", zap.String("source", src.Name()), zap.Error(err))
				return nil // best-effort: don't cancel siblings
			}
			docs[i] = doc
			results[i].Success = true
			metrics.SourceFetches.WithLabelValues(src.Name(), "success").Inc()
			r.log.Debug("source fetched", zap.String("source", src.Name()), zap.Int("bytes", len(doc.Body)))
			return nil
		})
	}
	_ = g.Wait()
	return docs, results
}

// Snapshot assigns ids and timestamps to the final posting list. The id is
// <company slug>_<role slug>_<position>.
func Snapshot(postings []domain.Posting, at time.Time) []domain.PersistedPosting {
	at = at.UTC()
	out := make([]domain.PersistedPosting, len(postings))
	for i, p := range postings {
		out[i] = domain.PersistedPosting{
			Posting:   p,
			ID:        fmt.Sprintf("%s_%s_%d", util.Slug(p.Company), util.Slug(p.Role), i),
			IsActive:  true,
			CreatedAt: at,
			LastSeen:  at,
		}
		if len(out[i].Locations) == 0 {
			out[i].Locations = []string{"Remote"}
		}
	}
	return out
}
