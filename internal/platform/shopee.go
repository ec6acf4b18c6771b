package platform

import (
	"regexp"
	"strings"
)

var (
	shopeeProductPath = regexp.MustCompile(`(?i)/product/(\d+)/(\d+)`)
	shopeeSlugPath    = regexp.MustCompile(`/[^/]+/(\d+)/(\d+)`)
	shopeeLegacyPath  = regexp.MustCompile(`(?i)(?:\.i|-i)\.(\d+)\.(\d+)`)
	shopeeLongDigits  = regexp.MustCompile(`(\d{6,})\.(\d{6,})`)
)

// ExtractShopee finds the shop and item ids of a Shopee product URL.
func ExtractShopee(rawURL string) (Identifier, bool) {
	clean := rawURL
	if i := strings.IndexAny(clean, "?#"); i >= 0 {
		clean = clean[:i]
	}

	for _, re := range []*regexp.Regexp{shopeeProductPath, shopeeSlugPath, shopeeLegacyPath} {
		if m := re.FindStringSubmatch(clean); len(m) > 2 {
			return Identifier{Kind: KindShopeeIDs, ShopID: m[1], ItemID: m[2]}, true
		}
	}

	// Best effort: id lengths changed across URL eras, so the longer run is
	// taken as the item id. Equal lengths keep the first run as the item id.
	if m := shopeeLongDigits.FindStringSubmatch(clean); len(m) > 2 {
		a, b := m[1], m[2]
		if len(a) >= len(b) {
			return Identifier{Kind: KindShopeeIDs, ShopID: b, ItemID: a}, true
		}
		return Identifier{Kind: KindShopeeIDs, ShopID: a, ItemID: b}, true
	}

	return Identifier{}, false
}
