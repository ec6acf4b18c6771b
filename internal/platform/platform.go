package platform

import (
	"fmt"
	"strings"
)

type Platform string

const (
	Amazon       Platform = "amazon"
	Shopee       Platform = "shopee"
	MercadoLivre Platform = "mercadolivre"
	Magalu       Platform = "magalu"
	Unknown      Platform = "unknown"
)

func (p Platform) String() string { return string(p) }

// Parse maps a user-supplied name (route param, CLI flag) to a known platform.
func Parse(raw string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "amazon":
		return Amazon, nil
	case "shopee":
		return Shopee, nil
	case "mercadolivre", "mercadolibre", "meli":
		return MercadoLivre, nil
	case "magalu", "magazineluiza":
		return Magalu, nil
	default:
		return Unknown, fmt.Errorf("unsupported platform %q", raw)
	}
}

// Classify returns the first platform whose domain fragments occur in rawURL.
// Matching is case-insensitive and follows registry priority order.
func Classify(rawURL string) Platform {
	lower := strings.ToLower(strings.TrimSpace(rawURL))
	if lower == "" {
		return Unknown
	}
	for _, s := range registry {
		if containsAny(lower, s.DomainMarkers) {
			return s.Platform
		}
	}
	return Unknown
}

// containsAny matches markers as substrings. A marker starting with "//" is
// anchored to the host and also matches scheme-less input.
func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
		if host, ok := strings.CutPrefix(m, "//"); ok && strings.HasPrefix(s, host) {
			return true
		}
	}
	return false
}
