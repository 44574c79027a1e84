package discovery

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/tomatolover555/windrose-ai/internal/config"
	"github.com/tomatolover555/windrose-ai/internal/types"
)

const maxSourceBytes = 10 * 1024 * 1024

// Matches URLs and bare hostnames inside free text.
var hostRegex = regexp.MustCompile(`(?i)\b(?:https?://)?((?:[a-z0-9](?:[a-z0-9-]*[a-z0-9])?\.)+[a-z]{2,63})\b`)

// HTTPFeed fetches a third-party source: a plain text document scanned for
// hostnames, or a GitHub repository search response.
type HTTPFeed struct {
	source    config.Source
	userAgent string
	client    *http.Client
}

func NewHTTPFeed(source config.Source, cfg config.DiscoveryConfig) *HTTPFeed {
	return &HTTPFeed{
		source:    source,
		userAgent: cfg.UserAgent,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func (f *HTTPFeed) Name() string { return f.source.URL }

func (f *HTTPFeed) Candidates(ctx context.Context) ([]Candidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.source.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	if f.source.Type == "github" {
		req.Header.Set("Accept", "application/vnd.github+json")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body := io.LimitReader(resp.Body, maxSourceBytes)
	if f.source.Type == "github" {
		return parseGitHub(body, f.source.URL)
	}
	return parseText(body, f.source.URL)
}

func parseText(r io.Reader, source string) ([]Candidate, error) {
	out := make([]Candidate, 0)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		for _, m := range hostRegex.FindAllStringSubmatch(line, -1) {
			out = append(out, Candidate{Domain: m[1], Source: source})
		}
	}

	if err := scanner.Err(); err != nil {
		return out, fmt.Errorf("scan: %w", err)
	}
	return out, nil
}

type githubSearch struct {
	Items []struct {
		FullName string `json:"full_name"`
		HTMLURL  string `json:"html_url"`
		Homepage string `json:"homepage"`
	} `json:"items"`
}

// parseGitHub turns repositories with a homepage into candidates carrying a
// github_hit.
func parseGitHub(r io.Reader, source string) ([]Candidate, error) {
	var res githubSearch
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode search results: %w", err)
	}

	out := make([]Candidate, 0, len(res.Items))
	for _, item := range res.Items {
		if strings.TrimSpace(item.Homepage) == "" {
			continue
		}
		out = append(out, Candidate{
			Domain: item.Homepage,
			Source: source,
			Evidence: []types.Evidence{{
				Kind:   types.EvidenceGitHubHit,
				Detail: "github repository " + item.FullName,
				URL:    item.HTMLURL,
			}},
		})
	}
	return out, nil
}
