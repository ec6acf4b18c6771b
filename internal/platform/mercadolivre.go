package platform

import (
	"regexp"
	"strings"
)

var mlbPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)/p/MLB-?(\d{10,14})(?:\D|$)`),
	regexp.MustCompile(`(?i)/MLB-?(\d{10,14})(?:\D|$)`),
	regexp.MustCompile(`(?i)/produto/[^?#]*?MLB-?(\d{10,14})(?:\D|$)`),
	regexp.MustCompile(`(?i)/item/[^?#]*?MLB-?(\d{10,14})(?:\D|$)`),
	regexp.MustCompile(`(?i)[?&]id=MLB-?(\d{10,14})(?:\D|$)`),
	regexp.MustCompile(`(?i)MLB-?(\d{10,14})(?:\D|$)`),
}

// ExtractMercadoLivre finds the MLB id of a Mercado Livre URL.
func ExtractMercadoLivre(rawURL string) (Identifier, bool) {
	for _, re := range mlbPatterns {
		if m := re.FindStringSubmatch(rawURL); len(m) > 1 {
			return Identifier{Kind: KindMLBID, MLBID: "MLB" + strings.ReplaceAll(m[1], "-", "")}, true
		}
	}
	return Identifier{}, false
}
