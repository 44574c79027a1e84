package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomatolover555/windrose-ai/internal/config"
)

func testConfig() config.ProbeConfig {
	cfg := config.Default().Probe
	cfg.Scheme = "http"
	cfg.AllowPrivate = true
	cfg.MinIntervalMs = 0
	cfg.TimeoutMs = 2000
	return cfg
}

func newTestProber(t *testing.T, cfg config.ProbeConfig) *Prober {
	t.Helper()
	p, err := NewProber(cfg, NewThrottle(0, nil), nil)
	require.NoError(t, err)
	return p
}

// siteServer serves a manifest and a homepage with the given bodies and status codes.
func siteServer(t *testing.T, manifestStatus int, manifest string, homeStatus int, home string) (*httptest.Server, string) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/mcp.json", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.WriteHeader(manifestStatus)
		_, _ = w.Write([]byte(manifest))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/html", r.Header.Get("Accept"))
		w.WriteHeader(homeStatus)
		_, _ = w.Write([]byte(home))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, strings.TrimPrefix(srv.URL, "http://")
}

func TestCheckWellKnown(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantOK     bool
		wantReason Reason
		responded  bool
	}{
		{"json object", 200, `{"name":"demo","tools":[]}`, true, ReasonOK, true},
		{"json array", 200, `[1,2,3]`, false, ReasonParse, true},
		{"json null", 200, `null`, false, ReasonParse, true},
		{"html body", 200, `<html></html>`, false, ReasonParse, true},
		{"not found", 404, `{"error":"nope"}`, false, ReasonStatus, false},
		{"server error", 500, ``, false, ReasonStatus, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, host := siteServer(t, tt.status, tt.body, 200, "")
			p := newTestProber(t, testConfig())

			out := p.CheckWellKnown(context.Background(), host)
			assert.Equal(t, tt.wantOK, out.OK())
			assert.Equal(t, tt.wantReason, out.Reason)
			assert.Equal(t, tt.responded, out.Responded())
			assert.Equal(t, KindWellKnown, out.Kind)
		})
	}
}

func TestCheckWellKnownBodyCap(t *testing.T) {
	big := `{"pad":"` + strings.Repeat("x", 4096) + `"}`
	_, host := siteServer(t, 200, big, 200, "")

	cfg := testConfig()
	cfg.MaxBodyBytes = 1024
	p := newTestProber(t, cfg)

	out := p.CheckWellKnown(context.Background(), host)
	assert.False(t, out.OK())
	assert.Equal(t, ReasonParse, out.Reason)
}

func TestCheckHomepage(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantOK     bool
		wantStrong bool
		wantHints  []string
	}{
		{"strong hint", 200, `<script>if (Navigator.ModelContext) {}</script>`, true, true, []string{StrongHint}},
		{"weak hint", 200, `<script>agent.registerTool({name:"x"})</script>`, true, false, []string{"registertool"}},
		{"strong and weak", 200, `navigator.modelContext.provideContext({})`, true, true, []string{StrongHint, "providecontext"}},
		{"no hint", 200, `<html><body>hello</body></html>`, false, false, nil},
		{"hint behind error", 503, `navigator.modelContext`, false, false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, host := siteServer(t, 404, "", tt.status, tt.body)
			p := newTestProber(t, testConfig())

			out := p.CheckHomepage(context.Background(), host)
			assert.Equal(t, tt.wantOK, out.OK())
			assert.Equal(t, tt.wantStrong, out.Strong)
			assert.Equal(t, tt.wantHints, out.Hints)
		})
	}
}

func TestProbeDomainSignals(t *testing.T) {
	_, host := siteServer(t, 200, `{"v":1}`, 200, `webmcp loader`)
	p := newTestProber(t, testConfig())

	obs := p.ProbeDomain(context.Background(), host)
	assert.True(t, obs.WellKnownOK())
	assert.False(t, obs.ModelContextHit())
	assert.True(t, obs.OtherHit())
	assert.True(t, obs.StrongSuccess())
	assert.False(t, obs.BothFailedTransport())
}

func TestProbeDomainUnreachable(t *testing.T) {
	srv, host := siteServer(t, 200, `{}`, 200, ``)
	srv.Close()

	p := newTestProber(t, testConfig())
	obs := p.ProbeDomain(context.Background(), host)

	assert.False(t, obs.WellKnown.Responded())
	assert.False(t, obs.Homepage.Responded())
	assert.Equal(t, ReasonTransport, obs.WellKnown.Reason)
	assert.True(t, obs.BothFailedTransport())
	assert.False(t, obs.AnySuccess())
}

func TestProbeDomainReachableWithoutEvidence(t *testing.T) {
	_, host := siteServer(t, 404, ``, 200, `<html>plain</html>`)
	p := newTestProber(t, testConfig())

	obs := p.ProbeDomain(context.Background(), host)
	assert.False(t, obs.AnySuccess())
	assert.False(t, obs.BothFailedTransport(), "a 2xx homepage is not a transport failure")
}

func TestProbeDomainDisabledProbes(t *testing.T) {
	_, host := siteServer(t, 500, ``, 500, ``)

	cfg := testConfig()
	cfg.SkipWellKnown = true
	cfg.SkipHomepage = true
	p := newTestProber(t, cfg)

	obs := p.ProbeDomain(context.Background(), host)
	assert.Equal(t, ReasonDisabled, obs.WellKnown.Reason)
	assert.Equal(t, ReasonDisabled, obs.Homepage.Reason)
	assert.False(t, obs.BothFailedTransport())

	cfg.SkipHomepage = false
	p = newTestProber(t, cfg)
	obs = p.ProbeDomain(context.Background(), host)
	assert.True(t, obs.BothFailedTransport(), "the only enabled probe failed")
}

func TestProbeTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig()
	cfg.TimeoutMs = 100
	p := newTestProber(t, cfg)

	out := p.CheckHomepage(context.Background(), strings.TrimPrefix(srv.URL, "http://"))
	assert.False(t, out.OK())
	assert.Equal(t, ReasonTimeout, out.Reason)
	assert.Less(t, out.Duration, 2*time.Second)
}

func TestProbeBlocksPrivateAddresses(t *testing.T) {
	_, host := siteServer(t, 200, `{}`, 200, `navigator.modelContext`)

	cfg := testConfig()
	cfg.AllowPrivate = false
	p := newTestProber(t, cfg)

	obs := p.ProbeDomain(context.Background(), host)
	assert.Equal(t, ReasonBlocked, obs.WellKnown.Reason)
	assert.Equal(t, ReasonBlocked, obs.Homepage.Reason)
	assert.True(t, obs.BothFailedTransport())
}

func TestScanHints(t *testing.T) {
	hints, strong := ScanHints([]byte(`import "@mcp-b/global"; // ModelContextProtocol`))
	assert.False(t, strong)
	assert.Equal(t, []string{"@mcp-b/", "modelcontextprotocol"}, hints)
}

func TestRedirectLoopIsNotUsable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.Path, http.StatusFound)
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig()
	cfg.MaxRedirects = 2
	p := newTestProber(t, cfg)

	obs := p.ProbeDomain(context.Background(), strings.TrimPrefix(srv.URL, "http://"))
	for _, out := range []Outcome{obs.WellKnown, obs.Homepage} {
		assert.Equal(t, ReasonStatus, out.Reason)
		assert.Equal(t, http.StatusFound, out.StatusCode)
		assert.False(t, out.Responded(), "only a 2xx response is usable")
	}
	assert.True(t, obs.BothFailedTransport())
}

func TestCancelledContextIsNotTransportFailure(t *testing.T) {
	_, host := siteServer(t, 200, `{}`, 200, `navigator.modelContext`)
	p := newTestProber(t, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	obs := p.ProbeDomain(ctx, host)
	assert.Equal(t, ReasonCancelled, obs.WellKnown.Reason)
	assert.Equal(t, ReasonCancelled, obs.Homepage.Reason)
	assert.True(t, obs.Cancelled())
	assert.False(t, obs.BothFailedTransport())
	assert.False(t, obs.StrongSuccess())
}
