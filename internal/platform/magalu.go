package platform

import (
	"regexp"
	"strings"
)

var skuPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)/p/([a-z0-9]{6,20})(?:[/?#&]|$)`),
	regexp.MustCompile(`(?i)/produto/([a-z0-9]{6,20})(?:[/?#&]|$)`),
	regexp.MustCompile(`(?i)/[^/]+/p/([a-z0-9]{6,20})(?:[/?#&]|$)`),
	regexp.MustCompile(`(?i)[?&]sku=([a-z0-9]{6,20})(?:[&#]|$)`),
}

// ExtractMagalu finds the SKU of a Magalu product URL.
func ExtractMagalu(rawURL string) (Identifier, bool) {
	for _, re := range skuPatterns {
		if m := re.FindStringSubmatch(rawURL); len(m) > 1 {
			return Identifier{Kind: KindSKU, SKU: strings.ToLower(m[1])}, true
		}
	}
	return Identifier{}, false
}
