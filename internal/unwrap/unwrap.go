// Package unwrap pulls destination URLs out of tracking-wrapper query parameters.
package unwrap

import (
	"net/url"
	"regexp"
	"strings"
)

// Checked in order; "go" is the convention used by the affiliate redirectors we see most.
var wrapperKeys = []string{"go", "url", "u", "redirect", "target"}

var (
	rawGoParam = regexp.MustCompile(`(?i)[?&]go=([^&#\s]+)`)
	percentEsc = regexp.MustCompile(`%[0-9A-Fa-f]{2}`)
)

// ExtractGoParam returns the absolute http(s) URL embedded in a wrapper
// parameter of rawURL. Double-encoded values are decoded twice.
func ExtractGoParam(rawURL string) (string, bool) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", false
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		// Malformed wrapper URLs still carry a usable go= value often enough.
		m := rawGoParam.FindStringSubmatch(rawURL)
		if len(m) < 2 {
			return "", false
		}
		return decodeTarget(m[1])
	}

	// Query() already decoded once.
	q := u.Query()
	for _, key := range wrapperKeys {
		v := q.Get(key)
		if v == "" {
			continue
		}
		if target, ok := finishDecode(v); ok {
			return target, true
		}
	}
	return "", false
}

// HasWrapperParam reports whether rawURL embeds a destination URL.
func HasWrapperParam(rawURL string) bool {
	_, ok := ExtractGoParam(rawURL)
	return ok
}

func decodeTarget(encoded string) (string, bool) {
	once, err := url.QueryUnescape(encoded)
	if err != nil {
		return "", false
	}
	return finishDecode(once)
}

func finishDecode(once string) (string, bool) {
	target := once
	if percentEsc.MatchString(target) {
		twice, err := url.QueryUnescape(target)
		if err != nil {
			return "", false
		}
		target = twice
	}
	target = strings.TrimSpace(target)
	if !isAbsoluteHTTP(target) {
		return "", false
	}
	return target, true
}

func isAbsoluteHTTP(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
