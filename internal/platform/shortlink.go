package platform

import "strings"

// Wrapper and tracking markers are platform-agnostic: the real platform is
// usually unknown until the link has been followed.
var (
	wrapperPathMarkers = []string{
		"/social/",
		"/gz/webdevice/",
		"/deals/",
		"/universal-link",
		"/sec/",
	}
	trackingFlags = []string{
		"forceinapp=true",
	}
)

// IsShortLink reports whether rawURL points at a known link shortener.
func IsShortLink(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, s := range registry {
		if containsAny(lower, s.ShortDomains) {
			return true
		}
	}
	return false
}

// NeedsResolution reports, from the URL text alone, whether rawURL must be
// followed before it can be trusted as a product URL.
func NeedsResolution(rawURL string) bool {
	lower := strings.ToLower(strings.TrimSpace(rawURL))
	if lower == "" {
		return false
	}
	if containsAny(lower, wrapperPathMarkers) || containsAny(lower, trackingFlags) {
		return true
	}
	if IsShortLink(lower) {
		return true
	}
	// Intermediate-page markers are only meaningful on the platform's own URLs.
	if s, ok := Lookup(Classify(lower)); ok {
		return containsAny(lower, s.FurtherMarkers)
	}
	return false
}

// HasWrapperPath reports whether rawURL uses a known tracking wrapper path.
func HasWrapperPath(rawURL string) bool {
	return containsAny(strings.ToLower(rawURL), wrapperPathMarkers)
}
