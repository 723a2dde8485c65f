package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"internhub-engine/internal/domain"
	ierrors "internhub-engine/internal/errors"
	"internhub-engine/internal/events"
	"internhub-engine/internal/probe"
	"internhub-engine/internal/scrape"
	"internhub-engine/internal/scrape/htmltable"
	"internhub-engine/internal/scrape/markdown"
	"internhub-engine/internal/scrape/types"
	"internhub-engine/internal/store"
)

const (
	flagUS   = "\U0001F1FA\U0001F1F8"
	passport = "\U0001F6C2"
	subArrow = "↳"
)

var primaryReadme = strings.Join([]string{
	"# Summer 2026 Tech Internships",
	"",
	"| Company | Role | Location | Application/Link | Date Posted |",
	"| ------- | ---- | -------- | ---------------- | ----------- |",
	"| **[Acme](https://acme.com)** | Software Engineer Intern " + flagUS + " | Atlanta, GA | [Apply](https://acme.com/jobs/1) | Jan 05 |",
	"| " + subArrow + " | Data Science Intern | Remote | [Apply](https://acme.com/jobs/2) | Jan 05 |",
	"| Beta Corp | Hardware Engineering Intern " + passport + " | Austin, TX | [Apply](https://beta.com/careers/9) | Jan 04 |",
	"",
	"## Footer",
}, "\n")

const simplifyReadme = `
<table>
<thead><tr><th>Company</th><th>Role</th><th>Location</th><th>Application</th><th>Age</th></tr></thead>
<tbody>
<tr>
<td><strong><a href="https://simplify.jobs/c/Acme">Acme</a></strong></td>
<td>Software Engineer Intern</td>
<td>Atlanta, GA</td>
<td><div align="center"><a href="https://acme.com/jobs/1?utm_source=Simplify"><img src="apply.png" alt="Apply"></a> <a href="https://simplify.jobs/p/123"><img src="simplify.png" alt="Simplify"></a></div></td>
<td>3d</td>
</tr>
<tr>
<td>Gamma</td>
<td>Firmware Intern</td>
<td><details><summary><strong>2 locations</strong></summary>Boston, MA<br>Seattle, WA</details></td>
<td><a href="https://gamma.io/apply"><img src="apply.png" alt="Apply"></a></td>
<td>1mo</td>
</tr>
</tbody>
</table>
`

// ---- fakes ----

type stubSource struct {
	name     string
	priority int
	body     string
	err      error
	started  chan struct{}
	release  chan struct{}
	parser   types.Parser
}

func (s *stubSource) Name() string  { return s.name }
func (s *stubSource) Priority() int { return s.priority }

func (s *stubSource) Fetch(ctx context.Context) (types.Document, error) {
	if s.started != nil {
		close(s.started)
	}
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return types.Document{}, ctx.Err()
		}
	}
	if s.err != nil {
		return types.Document{}, s.err
	}
	return types.Document{Source: s.name, Body: s.body}, nil
}

func (s *stubSource) Parse(body string) []domain.Posting {
	if s.parser != nil {
		return s.parser.Parse(body)
	}
	return nil
}

type closeDomainProber struct{ domain string }

func (p closeDomainProber) Probe(_ context.Context, in []domain.Posting) ([]domain.Posting, probe.Stats) {
	out := append([]domain.Posting(nil), in...)
	var stats probe.Stats
	for i := range out {
		stats.Checked++
		if strings.Contains(out[i].ApplicationLink, p.domain) {
			out[i].IsClosed = true
			stats.Closed++
		}
	}
	return out, stats
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) ReplaceSnapshot(ctx context.Context, postings []domain.PersistedPosting) error {
	args := m.Called(ctx, postings)
	return args.Error(0)
}

func (m *MockStore) InsertRun(ctx context.Context, run domain.ScrapeRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockStore) FinishRun(ctx context.Context, run domain.ScrapeRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

type recorder struct {
	mu    sync.Mutex
	types []string
}

func (r *recorder) Publish(_ context.Context, typ string, _ any) error {
	r.mu.Lock()
	r.types = append(r.types, typ)
	r.mu.Unlock()
	return nil
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.types...)
}

// ---- helpers ----

func openStore(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open("sqlite", filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func upstream(t *testing.T, routes map[string]string, failing ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, f := range failing {
			if r.URL.Path == f {
				http.Error(w, "upstream broke", http.StatusInternalServerError)
				return
			}
		}
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func realSources(srv *httptest.Server) []types.Source {
	md := markdown.New(markdown.Config{Source: "github-primary", Priority: 1}, nil)
	html := htmltable.New(htmltable.Config{Source: "simplify-jobs", Priority: 2}, nil)
	return []types.Source{
		scrape.NewDocumentSource("github-primary", srv.URL+"/primary/README.md", 1, md, srv.Client(), nil, "test-agent"),
		scrape.NewDocumentSource("simplify-jobs", srv.URL+"/simplify/README.md", 2, html, srv.Client(), nil, "test-agent"),
	}
}

// ---- tests ----

func TestRun_EndToEndMergesSources(t *testing.T) {
	srv := upstream(t, map[string]string{
		"/primary/README.md":  primaryReadme,
		"/simplify/README.md": simplifyReadme,
	})
	db := openStore(t)
	rec := &recorder{}

	r := New(Options{
		Sources:   realSources(srv),
		Store:     db,
		Prober:    closeDomainProber{domain: "beta.com"},
		Publisher: rec,
		LockPath:  filepath.Join(t.TempDir(), "scrape.lock"),
	})

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, r.State())
	assert.False(t, r.Running())

	assert.Equal(t, 4, res.Internships)
	assert.Equal(t, 4, res.Added)
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, 1, res.Duplicates)
	assert.NotEmpty(t, res.RunID)
	require.Len(t, res.Sources, 2)
	assert.Equal(t, domain.SourceResult{Name: "github-primary", Success: true, InternshipsFound: 3}, res.Sources[0])
	assert.Equal(t, domain.SourceResult{Name: "simplify-jobs", Success: true, InternshipsFound: 2}, res.Sources[1])

	stored, err := db.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 4)

	byID := map[string]domain.PersistedPosting{}
	for _, p := range stored {
		byID[p.ID] = p
	}

	swe, ok := byID["acme_software_engineer_intern_0"]
	require.True(t, ok, "ids: %v", byID)
	assert.Equal(t, "github-primary", swe.Source, "higher priority source wins")
	assert.True(t, swe.RequiresCitizenship)
	assert.Equal(t, "https://acme.com/jobs/1", swe.ApplicationLink)

	ds := byID["acme_data_science_intern_1"]
	assert.Equal(t, "Acme", ds.Company)
	assert.True(t, ds.IsSubsidiary)

	hw := byID["beta_corp_hardware_engineering_intern_2"]
	assert.True(t, hw.NoSponsorship)
	assert.True(t, hw.IsClosed, "closed by probe")

	fw := byID["gamma_firmware_intern_3"]
	assert.Equal(t, []string{"Boston, MA", "Seattle, WA"}, fw.Locations)
	assert.Equal(t, "1 months ago", fw.DatePosted)

	latest, err := db.LatestRun(context.Background(), domain.RunStatusSuccess)
	require.NoError(t, err)
	assert.Equal(t, res.RunID, latest.ID)
	assert.Equal(t, 4, latest.InternshipsFound)
	assert.Len(t, latest.Sources, 2)

	seen := rec.seen()
	assert.Contains(t, seen, events.TypeScrapeStarted)
	assert.Contains(t, seen, events.TypeScrapeFinished)
	assert.NotContains(t, seen, events.TypeScrapeFailed)
}

func TestRun_OneSourceFailingIsRecorded(t *testing.T) {
	srv := upstream(t, map[string]string{"/primary/README.md": primaryReadme}, "/simplify/README.md")
	db := openStore(t)

	r := New(Options{Sources: realSources(srv), Store: db})
	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, res.Internships)
	require.Len(t, res.Sources, 2)
	assert.True(t, res.Sources[0].Success)
	assert.False(t, res.Sources[1].Success)
	assert.Contains(t, res.Sources[1].Error, "500")
}

func TestRun_AllSourcesFailKeepsSnapshot(t *testing.T) {
	ms := &MockStore{}
	ms.On("InsertRun", mock.Anything, mock.MatchedBy(func(run domain.ScrapeRun) bool {
		return run.Status == domain.RunStatusRunning && run.CompletedAt == nil
	})).Return(nil)
	ms.On("FinishRun", mock.Anything, mock.MatchedBy(func(run domain.ScrapeRun) bool {
		return run.Status == domain.RunStatusError &&
			run.ErrorMessage == "no postings from any source" &&
			run.CompletedAt != nil &&
			len(run.Sources) == 2 && !run.Sources[0].Success && !run.Sources[1].Success
	})).Return(nil)

	rec := &recorder{}
	r := New(Options{
		Sources: []types.Source{
			&stubSource{name: "a", priority: 1, err: errors.New("dial tcp: refused")},
			&stubSource{name: "b", priority: 2, err: errors.New("timeout")},
		},
		Store:     ms,
		Publisher: rec,
	})

	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.True(t, ierrors.Is(err, ierrors.ErrTypeNoPostings))
	assert.Equal(t, StateError, r.State())
	assert.Contains(t, rec.seen(), events.TypeScrapeFailed)

	ms.AssertExpectations(t)
	ms.AssertNotCalled(t, "ReplaceSnapshot", mock.Anything, mock.Anything)
}

func TestRun_EmptyDocumentsCountAsNoPostings(t *testing.T) {
	ms := &MockStore{}
	ms.On("InsertRun", mock.Anything, mock.Anything).Return(nil)
	ms.On("FinishRun", mock.Anything, mock.Anything).Return(nil)

	r := New(Options{
		Sources: []types.Source{&stubSource{name: "a", priority: 1, body: "nothing here",
			parser: markdown.New(markdown.Config{Source: "a", Priority: 1}, nil)}},
		Store: ms,
	})

	res, err := r.Run(context.Background())
	require.Error(t, err)
	require.Len(t, res.Sources, 1)
	assert.True(t, res.Sources[0].Success)
	assert.Equal(t, 0, res.Sources[0].InternshipsFound)
	ms.AssertNotCalled(t, "ReplaceSnapshot", mock.Anything, mock.Anything)
}

func TestRun_PersistFailureIsRunError(t *testing.T) {
	ms := &MockStore{}
	ms.On("InsertRun", mock.Anything, mock.Anything).Return(nil)
	ms.On("ReplaceSnapshot", mock.Anything, mock.Anything).Return(ierrors.Persistence("commit snapshot", errors.New("disk full")))
	ms.On("FinishRun", mock.Anything, mock.MatchedBy(func(run domain.ScrapeRun) bool {
		return run.Status == domain.RunStatusError && strings.Contains(run.ErrorMessage, "disk full")
	})).Return(nil)

	r := New(Options{
		Sources: []types.Source{&stubSource{name: "a", priority: 1, body: primaryReadme,
			parser: markdown.New(markdown.Config{Source: "a", Priority: 1}, nil)}},
		Store: ms,
	})

	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.True(t, ierrors.Is(err, ierrors.ErrTypePersistence))
	ms.AssertExpectations(t)
}

func TestRun_InsertRunFailureAborts(t *testing.T) {
	ms := &MockStore{}
	ms.On("InsertRun", mock.Anything, mock.Anything).Return(errors.New("db locked"))

	src := &stubSource{name: "a", priority: 1, started: make(chan struct{})}
	r := New(Options{Sources: []types.Source{src}, Store: ms})

	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateError, r.State())
	select {
	case <-src.started:
		t.Fatal("sources must not be fetched when the run log insert fails")
	default:
	}
	ms.AssertNotCalled(t, "FinishRun", mock.Anything, mock.Anything)
}

func TestRun_ConcurrentTriggerRejected(t *testing.T) {
	ms := &MockStore{}
	ms.On("InsertRun", mock.Anything, mock.Anything).Return(nil).Once()
	ms.On("ReplaceSnapshot", mock.Anything, mock.Anything).Return(nil).Once()
	ms.On("FinishRun", mock.Anything, mock.Anything).Return(nil).Once()

	src := &stubSource{
		name: "a", priority: 1, body: primaryReadme,
		started: make(chan struct{}),
		release: make(chan struct{}),
		parser:  markdown.New(markdown.Config{Source: "a", Priority: 1}, nil),
	}
	r := New(Options{Sources: []types.Source{src}, Store: ms})

	done := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background())
		done <- err
	}()

	<-src.started
	assert.True(t, r.Running())
	assert.Equal(t, StateFetching, r.State())

	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)
	assert.True(t, ierrors.Is(err, ierrors.ErrTypeConflict))

	close(src.release)
	require.NoError(t, <-done)
	ms.AssertExpectations(t)
}

func TestRun_FileLockHeldElsewhere(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "scrape.lock")
	other := flock.New(lockPath)
	locked, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer func() { _ = other.Unlock() }()

	ms := &MockStore{}
	r := New(Options{Store: ms, LockPath: lockPath})

	_, err = r.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)
	ms.AssertNotCalled(t, "InsertRun", mock.Anything, mock.Anything)
}

func TestRun_FetchTimeoutPerSource(t *testing.T) {
	ms := &MockStore{}
	ms.On("InsertRun", mock.Anything, mock.Anything).Return(nil)
	ms.On("ReplaceSnapshot", mock.Anything, mock.Anything).Return(nil)
	ms.On("FinishRun", mock.Anything, mock.Anything).Return(nil)

	parser := markdown.New(markdown.Config{Source: "fast", Priority: 1}, nil)
	r := New(Options{
		Sources: []types.Source{
			&stubSource{name: "fast", priority: 1, body: primaryReadme, parser: parser},
			&stubSource{name: "stuck", priority: 2, release: make(chan struct{})},
		},
		Store:        ms,
		FetchTimeout: 100 * time.Millisecond,
	})

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Internships)
	assert.False(t, res.Sources[1].Success)
	assert.Contains(t, res.Sources[1].Error, "deadline")
}

func TestSetSources(t *testing.T) {
	r := New(Options{Sources: []types.Source{&stubSource{name: "a"}}})
	assert.Len(t, r.Sources(), 1)
	r.SetSources([]types.Source{&stubSource{name: "b"}, &stubSource{name: "c"}})
	assert.Len(t, r.Sources(), 2)
}

func TestSnapshot(t *testing.T) {
	at := time.Date(2026, 5, 1, 9, 30, 0, 0, time.FixedZone("EDT", -4*3600))
	out := Snapshot([]domain.Posting{
		{Company: "AT&T", Role: "Network Engineer Intern", Locations: []string{"Dallas, TX"}},
		{Company: "Acme", Role: "SWE Intern"},
	}, at)

	require.Len(t, out, 2)
	assert.Equal(t, "at_t_network_engineer_intern_0", out[0].ID)
	assert.Equal(t, "acme_swe_intern_1", out[1].ID)
	assert.Equal(t, []string{"Remote"}, out[1].Locations)
	for _, p := range out {
		assert.True(t, p.IsActive)
		assert.Equal(t, time.UTC, p.CreatedAt.Location())
		assert.Equal(t, p.CreatedAt, p.LastSeen)
	}
}

func TestResult_DurationString(t *testing.T) {
	assert.Equal(t, "1.50s", Result{Duration: 1500 * time.Millisecond}.DurationString())
}
