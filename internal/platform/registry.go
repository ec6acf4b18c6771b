package platform

import "strings"

// Spec is one row of the platform strategy table.
type Spec struct {
	Platform Platform

	// DomainMarkers classify a URL as belonging to the platform.
	DomainMarkers []string
	// ShortDomains are link shorteners owned by the platform.
	ShortDomains []string
	// FurtherMarkers flag platform URLs that are still intermediate pages.
	FurtherMarkers []string
	// ProductMarkers identify product pages inside scraped HTML.
	ProductMarkers []string

	Extract func(rawURL string) (Identifier, bool)
}

// Priority order matters: Classify returns the first match.
var registry = []Spec{
	{
		Platform:       Amazon,
		DomainMarkers:  []string{"amazon.", "amzn.to", "amzn.com", "//a.co/"},
		ShortDomains:   []string{"amzn.to", "//a.co/"},
		ProductMarkers: []string{"/dp/", "/gp/product/", "/gp/aw/d/"},
		Extract:        ExtractAmazon,
	},
	{
		Platform:       Shopee,
		DomainMarkers:  []string{"shopee.", "shp.ee", "shope.ee"},
		ShortDomains:   []string{"shp.ee", "shope.ee", "s.shopee."},
		FurtherMarkers: []string{"/universal-link", "share.shopee", "s.shopee."},
		ProductMarkers: []string{"-i.", "/product/"},
		Extract:        ExtractShopee,
	},
	{
		Platform:       MercadoLivre,
		DomainMarkers:  []string{"mercadolivre.", "mercadolibre", "meli.co"},
		ShortDomains:   []string{"meli.co"},
		FurtherMarkers: []string{"/go/", "/go?", "click1.mercadolivre", "/sec/"},
		ProductMarkers: []string{"/p/mlb", "/mlb"},
		Extract:        ExtractMercadoLivre,
	},
	{
		Platform:       Magalu,
		DomainMarkers:  []string{"magazineluiza.", "magalu.", "mglu.me"},
		ShortDomains:   []string{"mglu.me"},
		FurtherMarkers: []string{"redirect", "/r/"},
		ProductMarkers: []string{"/p/"},
		Extract:        ExtractMagalu,
	},
}

// Lookup returns the strategy row for p.
func Lookup(p Platform) (Spec, bool) {
	for _, s := range registry {
		if s.Platform == p {
			return s, true
		}
	}
	return Spec{}, false
}

// All returns the registry in priority order.
func All() []Spec {
	out := make([]Spec, len(registry))
	copy(out, registry)
	return out
}

// Extract runs the extractor registered for p.
func Extract(p Platform, rawURL string) (Identifier, bool) {
	s, ok := Lookup(p)
	if !ok || s.Extract == nil {
		return Identifier{}, false
	}
	return s.Extract(rawURL)
}

// HasProductMarker reports whether candidate looks like a product page of p.
// For Unknown every registered marker is accepted.
func HasProductMarker(p Platform, candidate string) bool {
	lower := strings.ToLower(candidate)
	if s, ok := Lookup(p); ok {
		return containsAny(lower, s.ProductMarkers)
	}
	for _, s := range registry {
		if containsAny(lower, s.ProductMarkers) {
			return true
		}
	}
	return false
}
