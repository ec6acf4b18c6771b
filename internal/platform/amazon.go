package platform

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	asinPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)/dp/([a-z0-9]{10})(?:[^a-z0-9]|$)`),
		regexp.MustCompile(`(?i)/gp/product/([a-z0-9]{10})(?:[^a-z0-9]|$)`),
		regexp.MustCompile(`(?i)/gp/aw/d/([a-z0-9]{10})(?:[^a-z0-9]|$)`),
		regexp.MustCompile(`(?i)/exec/obidos/asin/([a-z0-9]{10})(?:[^a-z0-9]|$)`),
		regexp.MustCompile(`(?i)/o/asin/([a-z0-9]{10})(?:[^a-z0-9]|$)`),
		regexp.MustCompile(`(?i)/product/([a-z0-9]{10})(?:[^a-z0-9]|$)`),
		regexp.MustCompile(`(?i)[?&]asin=([a-z0-9]{10})(?:[^a-z0-9]|$)`),
	}
	validASIN = regexp.MustCompile(`^[A-Z0-9]{10}$`)
)

// ExtractAmazon finds the ASIN of an Amazon product URL.
func ExtractAmazon(rawURL string) (Identifier, bool) {
	for _, re := range asinPatterns {
		if m := re.FindStringSubmatch(rawURL); len(m) > 1 {
			if asin, ok := normalizeASIN(m[1]); ok {
				return Identifier{Kind: KindASIN, ASIN: asin}, true
			}
		}
	}
	if asin, ok := trailingASIN(rawURL); ok {
		return Identifier{Kind: KindASIN, ASIN: asin}, true
	}
	return Identifier{}, false
}

// trailingASIN accepts amazon.*/…/{ASIN} where the ASIN is the last path segment.
// Shortener codes have the same shape, so the host must be an Amazon storefront.
func trailingASIN(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || !strings.Contains(strings.ToLower(u.Hostname()), "amazon.") {
		return "", false
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	return normalizeASIN(segments[len(segments)-1])
}

func normalizeASIN(raw string) (string, bool) {
	asin := strings.ToUpper(strings.TrimSpace(raw))
	if !validASIN.MatchString(asin) {
		return "", false
	}
	return asin, true
}
