package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tomatolover555/windrose-ai/internal/config"
	"github.com/tomatolover555/windrose-ai/internal/metrics"
	"golang.org/x/net/proxy"
)

// StrongHint is the in-page marker that on its own evidences a WebMCP surface.
const StrongHint = "navigator.modelcontext"

// WeakHints are tool-registration and framework markers. Matching is done on
// the lower-cased body.
var WeakHints = []string{
	"registertool",
	"providecontext",
	"webmcp",
	"@mcp-b/",
	"modelcontextprotocol",
}

type Prober struct {
	config   config.ProbeConfig
	metrics  *metrics.Collector
	throttle *Throttle
	client   *http.Client
}

func NewProber(cfg config.ProbeConfig, throttle *Throttle, metricsCollector *metrics.Collector) (*Prober, error) {
	if throttle == nil {
		throttle = NewThrottle(cfg.MinInterval(), nil)
	}

	dialer := &net.Dialer{
		Timeout:   cfg.Timeout(),
		KeepAlive: 30 * time.Second,
	}
	if !cfg.AllowPrivate {
		guard, err := NewGuard(DefaultBlockedRanges())
		if err != nil {
			return nil, err
		}
		dialer.Control = guard.Control
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   cfg.Timeout(),
		ExpectContinueTimeout: 1 * time.Second,
	}

	if cfg.SOCKS5Proxy != "" {
		socks, err := proxy.SOCKS5("tcp", cfg.SOCKS5Proxy, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("SOCKS5 dialer: %w", err)
		}
		contextDialer, ok := socks.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("SOCKS5 dialer does not support contexts")
		}
		transport.DialContext = contextDialer.DialContext
	}

	maxRedirects := cfg.MaxRedirects
	client := &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	return &Prober{
		config:   cfg,
		metrics:  metricsCollector,
		throttle: throttle,
		client:   client,
	}, nil
}

// SetTransport replaces the HTTP transport, for instance to pin every
// connection to a local test server.
func (p *Prober) SetTransport(rt http.RoundTripper) { p.client.Transport = rt }

// ProbeDomain runs the enabled probes for one domain, one after the other.
func (p *Prober) ProbeDomain(ctx context.Context, domain string) Observation {
	obs := Observation{Domain: domain}

	if p.config.SkipWellKnown {
		obs.WellKnown = failure(KindWellKnown, "", ReasonDisabled, 0, "")
	} else {
		obs.WellKnown = p.CheckWellKnown(ctx, domain)
	}

	if p.config.SkipHomepage {
		obs.Homepage = failure(KindHomepage, "", ReasonDisabled, 0, "")
	} else {
		obs.Homepage = p.CheckHomepage(ctx, domain)
	}

	log.WithFields(log.Fields{
		"domain":     domain,
		"well_known": obs.WellKnown.Reason,
		"homepage":   obs.Homepage.Reason,
		"hints":      obs.Homepage.Hints,
	}).Debug("Probed domain")

	return obs
}

// CheckWellKnown succeeds iff the manifest endpoint returns 2xx with a JSON object body.
func (p *Prober) CheckWellKnown(ctx context.Context, domain string) Outcome {
	target := p.url(domain, p.config.WellKnownPath)
	out := p.fetch(ctx, KindWellKnown, target, "application/json", func(status int, body []byte) Outcome {
		var obj map[string]any
		if err := json.Unmarshal(body, &obj); err != nil || obj == nil {
			msg := "not a JSON object"
			if err != nil {
				msg = err.Error()
			}
			return failure(KindWellKnown, target, ReasonParse, status, msg)
		}
		return success(KindWellKnown, target, status)
	})
	return out
}

// CheckHomepage scans the root page for capability hints.
func (p *Prober) CheckHomepage(ctx context.Context, domain string) Outcome {
	target := p.url(domain, "/")
	return p.fetch(ctx, KindHomepage, target, "text/html", func(status int, body []byte) Outcome {
		hints, strong := ScanHints(body)
		if len(hints) == 0 {
			return failure(KindHomepage, target, ReasonNoHint, status, "")
		}
		out := success(KindHomepage, target, status)
		out.Hints = hints
		out.Strong = strong
		return out
	})
}

// ScanHints returns the hints present in body, strong hint first.
func ScanHints(body []byte) (hints []string, strong bool) {
	text := strings.ToLower(string(body))
	if strings.Contains(text, StrongHint) {
		hints = append(hints, StrongHint)
		strong = true
	}
	for _, hint := range WeakHints {
		if strings.Contains(text, hint) {
			hints = append(hints, hint)
		}
	}
	return hints, strong
}

// fetch performs one throttled GET and hands a 2xx body to inspect.
// Every failure is folded into the returned Outcome.
func (p *Prober) fetch(ctx context.Context, kind Kind, target, accept string, inspect func(int, []byte) Outcome) Outcome {
	startTime := time.Now()
	out := p.doFetch(ctx, kind, target, accept, inspect)
	out.Duration = time.Since(startTime)
	if !out.OK() && ctx.Err() != nil {
		out.Result = ResultNonSuccess
		out.Reason = ReasonCancelled
	}

	p.metrics.RecordProbe(string(kind), string(out.Reason), out.Duration.Seconds())
	if out.Error != "" {
		log.WithFields(log.Fields{
			"url":    target,
			"reason": out.Reason,
		}).Debugf("Probe non-success: %s", out.Error)
	}
	return out
}

func (p *Prober) doFetch(ctx context.Context, kind Kind, target, accept string, inspect func(int, []byte) Outcome) Outcome {
	if err := p.throttle.Wait(ctx); err != nil {
		return failure(kind, target, classify(err), 0, fmt.Sprintf("throttle: %v", err))
	}
	defer p.throttle.Done()

	reqCtx, cancel := context.WithTimeout(ctx, p.config.Timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return failure(kind, target, ReasonTransport, 0, fmt.Sprintf("create request: %v", err))
	}
	req.Header.Set("Accept", accept)
	if p.config.UserAgent != "" {
		req.Header.Set("User-Agent", p.config.UserAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return failure(kind, target, classify(err), 0, fmt.Sprintf("request: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return failure(kind, target, ReasonStatus, resp.StatusCode, fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.config.MaxBodyBytes))
	if err != nil {
		return failure(kind, target, classify(err), 0, fmt.Sprintf("read body: %v", err))
	}

	return inspect(resp.StatusCode, body)
}

func (p *Prober) url(domain, path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("%s://%s%s", p.config.Scheme, domain, path)
}

func classify(err error) Reason {
	if errors.Is(err, ErrBlockedAddress) {
		return ReasonBlocked
	}
	if errors.Is(err, context.Canceled) {
		return ReasonCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}
	return ReasonTransport
}
