package platform

import "strings"

// Marketplace labels are wider than Platform: the shortener accepts links to
// stores the resolver cannot extract ids from.
var marketplaceMarkers = []struct {
	name    string
	markers []string
}{
	{"shopee", []string{"shopee"}},
	{"amazon", []string{"amazon", "amzn"}},
	{"mercadolivre", []string{"mercadolivre", "mercadolibre", "meli"}},
	{"magalu", []string{"magalu", "magazineluiza", "mglu"}},
	{"aliexpress", []string{"aliexpress"}},
	{"shein", []string{"shein"}},
	{"casasbahia", []string{"casasbahia"}},
	{"americanas", []string{"americanas"}},
	{"kabum", []string{"kabum"}},
}

const OtherMarketplace = "outros"

func DetectMarketplace(rawURL string) string {
	lower := strings.ToLower(rawURL)
	for _, m := range marketplaceMarkers {
		if containsAny(lower, m.markers) {
			return m.name
		}
	}
	return OtherMarketplace
}
