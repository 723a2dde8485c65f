package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"internhub-engine/internal/cache"
	"internhub-engine/internal/domain"
)

type fakeBoard struct {
	hits atomic.Int64
}

func (f *fakeBoard) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/open", func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		_, _ = w.Write([]byte("<html><body>Apply now for Software Engineer Intern</body></html>"))
	})
	mux.HandleFunc("/phrase", func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		_, _ = w.Write([]byte("<html><body><h1>Sorry, this Job Is Closed.</h1></body></html>"))
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/get-only", func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusGone)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	return mux
}

func newTestProber(t *testing.T, opts ...Option) (*Prober, *fakeBoard, *httptest.Server) {
	t.Helper()
	board := &fakeBoard{}
	srv := httptest.NewServer(board.handler())
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.Stagger = time.Millisecond
	cfg.Timeout = 300 * time.Millisecond
	return New(cfg, srv.Client(), opts...), board, srv
}

func TestCheck(t *testing.T) {
	p, _, srv := newTestProber(t)
	ctx := context.Background()

	tests := []struct {
		path    string
		want    Verdict
		wantErr bool
	}{
		{"/open", VerdictOpen, false},
		{"/phrase", VerdictClosed, false},
		{"/gone", VerdictClosed, false},
		{"/get-only", VerdictClosed, false},
		{"/slow", VerdictUnknown, true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := p.Check(ctx, srv.URL+tt.path)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheck_BodyBeyondLimitIgnored(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("0123456789"))
		_, _ = w.Write([]byte("job not found"))
	}))
	defer srv.Close()

	p := New(Config{MaxBodyBytes: 10}, srv.Client())
	got, err := p.Check(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, VerdictOpen, got)
}

func TestProbe(t *testing.T) {
	p, _, srv := newTestProber(t)

	in := []domain.Posting{
		{Company: "A", Role: "SWE Intern", ApplicationLink: srv.URL + "/open"},
		{Company: "B", Role: "SWE Intern", ApplicationLink: srv.URL + "/phrase"},
		{Company: "C", Role: "SWE Intern", ApplicationLink: srv.URL + "/gone"},
		{Company: "D", Role: "SWE Intern", ApplicationLink: srv.URL + "/slow"},
		{Company: "E", Role: "SWE Intern"},
	}

	out, stats := p.Probe(context.Background(), in)
	require.Len(t, out, len(in))

	assert.False(t, out[0].IsClosed)
	assert.True(t, out[1].IsClosed)
	assert.True(t, out[2].IsClosed)
	assert.False(t, out[3].IsClosed, "a failed probe leaves the posting unchanged")
	assert.False(t, out[4].IsClosed)

	assert.Equal(t, 4, stats.Checked)
	assert.Equal(t, 2, stats.Closed)
	assert.Equal(t, 1, stats.Unknown)

	// input untouched
	assert.False(t, in[1].IsClosed)
}

func TestProbe_ProbesSharedLinksOnce(t *testing.T) {
	p, board, srv := newTestProber(t)

	in := []domain.Posting{
		{Company: "B", ApplicationLink: srv.URL + "/phrase"},
		{Company: "C", ApplicationLink: srv.URL + "/phrase#apply"},
		{Company: "D", ApplicationLink: srv.URL + "/phrase?utm_source=github"},
	}

	out, stats := p.Probe(context.Background(), in)

	assert.Equal(t, 1, stats.Checked)
	// HEAD + GET for the single distinct link
	assert.EqualValues(t, 2, board.hits.Load())
	for _, posting := range out {
		assert.True(t, posting.IsClosed, posting.Company)
	}
}

func TestProbe_VerdictOverridesPriorFlag(t *testing.T) {
	p, _, srv := newTestProber(t)

	in := []domain.Posting{
		{Company: "A", ApplicationLink: srv.URL + "/open", IsClosed: true},
		{Company: "B", ApplicationLink: srv.URL + "/slow", IsClosed: true},
		{Company: "C", ApplicationLink: srv.URL + "/gone", IsClosed: true},
		{Company: "D", IsClosed: true},
	}

	out, stats := p.Probe(context.Background(), in)
	require.Len(t, out, len(in))

	assert.False(t, out[0].IsClosed, "a live page reopens the posting")
	assert.True(t, out[1].IsClosed, "a timed-out probe keeps the prior value")
	assert.True(t, out[2].IsClosed)
	assert.True(t, out[3].IsClosed, "postings without a link are not probed")

	assert.Equal(t, 3, stats.Checked)
	assert.Equal(t, 1, stats.Unknown)
	assert.True(t, in[0].IsClosed)
}

func TestProbe_BatchesAll(t *testing.T) {
	board := &fakeBoard{}
	srv := httptest.NewServer(board.handler())
	defer srv.Close()

	p := New(Config{BatchSize: 2, Stagger: time.Millisecond, Timeout: time.Second}, srv.Client())

	var in []domain.Posting
	for i := 0; i < 5; i++ {
		in = append(in, domain.Posting{
			Company:         "Co",
			ApplicationLink: srv.URL + "/open?slot=" + string(rune('a'+i)),
		})
	}

	_, stats := p.Probe(context.Background(), in)
	assert.Equal(t, 5, stats.Checked)
	assert.Equal(t, 0, stats.Unknown)
	assert.EqualValues(t, 10, board.hits.Load())
}

func TestProbe_UsesCache(t *testing.T) {
	mem := cache.NewMemory(cache.DefaultOptions())
	p, board, srv := newTestProber(t, WithCache(mem))

	in := []domain.Posting{
		{Company: "A", ApplicationLink: srv.URL + "/phrase"},
		{Company: "B", ApplicationLink: srv.URL + "/slow"},
	}

	_, first := p.Probe(context.Background(), in)
	assert.Equal(t, 0, first.Cached)
	hits := board.hits.Load()

	out, second := p.Probe(context.Background(), in)
	assert.True(t, out[0].IsClosed)
	assert.Equal(t, 1, second.Cached, "unknown verdicts are not cached")
	// only the slow link is probed again
	assert.EqualValues(t, hits+1, board.hits.Load())
}

func TestProbe_Empty(t *testing.T) {
	p := New(Config{}, nil)
	out, stats := p.Probe(context.Background(), nil)
	assert.Empty(t, out)
	assert.Equal(t, Stats{}, stats)
}
