// Package platform normalizes user supplied product URLs and maps them to a marketplace.
package platform

import (
	"net/url"
	"strings"

	"github.com/BearBump/PriceBox/internal/models"
)

type rule struct {
	platform models.Platform
	token    string
	prefixes []string
	suffixes []string
}

var rules = []rule{
	{platform: models.PlatformAmazon, token: "amazon", prefixes: []string{"amzn."}},
	{platform: models.PlatformFlipkart, token: "flipkart", suffixes: []string{"fkrt.it"}},
}

// Normalize trims the input and forces an https scheme. It reports false only for empty input.
func Normalize(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "https://"):
	case strings.HasPrefix(lower, "http://"):
		s = "https://" + s[len("http://"):]
	case strings.Contains(s, "://"):
	default:
		s = "https://" + s
	}
	return s, true
}

// Host returns the lower-cased host of a normalized URL, without port.
func Host(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func Identify(rawURL string) models.Platform {
	s, ok := Normalize(rawURL)
	if !ok {
		return models.PlatformNone
	}
	return identifyHost(Host(s))
}

func identifyHost(host string) models.Platform {
	if host == "" {
		return models.PlatformNone
	}
	for _, r := range rules {
		if strings.Contains(host, r.token) {
			return r.platform
		}
		for _, p := range r.prefixes {
			if strings.HasPrefix(host, p) {
				return r.platform
			}
		}
		for _, sfx := range r.suffixes {
			if strings.HasSuffix(host, sfx) {
				return r.platform
			}
		}
	}
	return models.PlatformNone
}
