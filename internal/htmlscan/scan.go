// Package htmlscan recovers redirect targets from HTML documents by reading
// markup and script text. Nothing is executed.
package htmlscan

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"affiliate-link-resolver/internal/platform"
)

var (
	refreshContentURL = regexp.MustCompile(`(?i)url\s*=\s*['"]?([^'"\s>]+)`)

	// Fallbacks for markup the DOM pass could not see (broken head sections, inline templates).
	metaRefreshTag  = regexp.MustCompile(`(?i)<meta[^>]+http-equiv\s*=\s*["']?refresh["']?[^>]*content\s*=\s*["']?\d*\s*;\s*url\s*=\s*['"]?([^"'>\s]+)`)
	metaRefreshRev  = regexp.MustCompile(`(?i)<meta[^>]+content\s*=\s*["']?\d*\s*;\s*url\s*=\s*['"]?([^"'>\s]+)[^>]*http-equiv\s*=\s*["']?refresh`)
	canonicalTag    = regexp.MustCompile(`(?i)<link[^>]+rel\s*=\s*["']canonical["'][^>]*href\s*=\s*["']([^"']+)["']`)
	canonicalTagRev = regexp.MustCompile(`(?i)<link[^>]+href\s*=\s*["']([^"']+)["'][^>]*rel\s*=\s*["']canonical["']`)
	ogURLTag        = regexp.MustCompile(`(?i)<meta[^>]+property\s*=\s*["']og:url["'][^>]*content\s*=\s*["']([^"']+)["']`)
	ogURLTagRev     = regexp.MustCompile(`(?i)<meta[^>]+content\s*=\s*["']([^"']+)["'][^>]*property\s*=\s*["']og:url["']`)

	// Script navigation, in priority order. Targets must carry an explicit scheme.
	scriptRedirects = []*regexp.Regexp{
		regexp.MustCompile(`(?i)window\.location\s*=\s*["'](https?://[^"']+)["']`),
		regexp.MustCompile(`(?i)window\.location\.href\s*=\s*["'](https?://[^"']+)["']`),
		regexp.MustCompile(`(?i)(?:^|[^\w.])location\.href\s*=\s*["'](https?://[^"']+)["']`),
		regexp.MustCompile(`(?i)location\.replace\s*\(\s*["'](https?://[^"']+)["']\s*\)`),
	}

	absoluteURL = regexp.MustCompile(`https?://[^\s"'<>\\]+`)
)

// Scan returns the first redirect candidate found in body, trying meta refresh,
// script navigation, canonical link, og:url and finally any raw product URL.
// Canonical, og:url and raw candidates must look like a product page of hint.
func Scan(body string, hint platform.Platform) (string, bool) {
	if strings.TrimSpace(body) == "" {
		return "", false
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		doc = nil
	}

	if u := metaRefresh(doc, body); u != "" {
		return u, true
	}
	if u := scriptRedirect(body); u != "" {
		return u, true
	}
	if u := attrCandidate(doc, body, `link[rel="canonical"]`, "href", canonicalTag, canonicalTagRev); u != "" && platform.HasProductMarker(hint, u) {
		return u, true
	}
	if u := attrCandidate(doc, body, `meta[property="og:url"]`, "content", ogURLTag, ogURLTagRev); u != "" && platform.HasProductMarker(hint, u) {
		return u, true
	}
	if u := rawProductURL(body, hint); u != "" {
		return u, true
	}
	return "", false
}

func metaRefresh(doc *goquery.Document, body string) string {
	if doc != nil {
		var found string
		doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			equiv, _ := s.Attr("http-equiv")
			if !strings.EqualFold(strings.TrimSpace(equiv), "refresh") {
				return true
			}
			content, _ := s.Attr("content")
			if m := refreshContentURL.FindStringSubmatch(content); len(m) > 1 {
				found = clean(m[1])
				return found == ""
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return firstSubmatch(body, metaRefreshTag, metaRefreshRev)
}

func scriptRedirect(body string) string {
	// JSON-escaped slashes are common inside inline scripts.
	text := strings.ReplaceAll(body, `\/`, "/")
	for _, re := range scriptRedirects {
		if m := re.FindStringSubmatch(text); len(m) > 1 {
			if u := clean(m[1]); u != "" {
				return u
			}
		}
	}
	return ""
}

func attrCandidate(doc *goquery.Document, body, selector, attr string, fallbacks ...*regexp.Regexp) string {
	if doc != nil {
		if v, ok := doc.Find(selector).First().Attr(attr); ok {
			if u := clean(v); u != "" {
				return u
			}
		}
	}
	return firstSubmatch(body, fallbacks...)
}

func rawProductURL(body string, hint platform.Platform) string {
	for _, candidate := range absoluteURL.FindAllString(body, -1) {
		candidate = clean(candidate)
		found := platform.Classify(candidate)
		if found == platform.Unknown || (hint != platform.Unknown && found != hint) {
			continue
		}
		if platform.HasProductMarker(found, candidate) {
			return candidate
		}
	}
	return ""
}

func firstSubmatch(body string, patterns ...*regexp.Regexp) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(body); len(m) > 1 {
			if u := clean(m[1]); u != "" {
				return u
			}
		}
	}
	return ""
}

func clean(raw string) string {
	u := html.UnescapeString(strings.TrimSpace(raw))
	u = strings.Trim(u, `"'`)
	return strings.TrimRight(u, ");,")
}
