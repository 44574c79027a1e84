// Package domain canonicalizes user- and feed-supplied strings into directory keys.
package domain

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"
)

// MaxLength is the longest hostname accepted as a directory key.
const MaxLength = 255

var ErrInvalidDomain = errors.New("invalid_domain")

// Normalize turns a URL or bare host into a lowercase hostname with no scheme,
// port, path, or leading "www.".
func Normalize(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", invalid(raw, "empty")
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", invalid(raw, "unparseable")
	}

	host := strings.TrimSuffix(u.Hostname(), ".")
	host = strings.TrimPrefix(host, "www.")

	switch {
	case host == "":
		return "", invalid(raw, "no host")
	case !strings.Contains(host, "."):
		return "", invalid(raw, "no dot")
	case len(host) > MaxLength:
		return "", invalid(raw, "too long")
	case !validChars(host):
		return "", invalid(raw, "illegal characters")
	case isIPv4(host):
		return "", invalid(raw, "ip literal")
	case strings.HasSuffix(host, ".local"):
		return "", invalid(raw, "local suffix")
	}

	return host, nil
}

// NormalizeAll normalizes every input, returning the sorted unique valid hosts
// and the inputs that were rejected.
func NormalizeAll(raws []string) (valid []string, rejected []string) {
	seen := make(map[string]struct{}, len(raws))
	valid = make([]string, 0, len(raws))

	for _, raw := range raws {
		host, err := Normalize(raw)
		if err != nil {
			rejected = append(rejected, raw)
			continue
		}
		if _, exists := seen[host]; exists {
			continue
		}
		seen[host] = struct{}{}
		valid = append(valid, host)
	}

	sort.Strings(valid)
	return valid, rejected
}

func invalid(raw, reason string) error {
	return fmt.Errorf("%w: %q (%s)", ErrInvalidDomain, raw, reason)
}

func validChars(host string) bool {
	for _, r := range host {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' || r == '-' {
			continue
		}
		return false
	}
	return true
}

func isIPv4(host string) bool {
	ip := net.ParseIP(host)
	return ip != nil && ip.To4() != nil
}
