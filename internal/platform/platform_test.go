package platform

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		url  string
		want Platform
	}{
		{"https://www.amazon.com.br/Produto/dp/B08N5WRWNW", Amazon},
		{"https://AMZN.TO/abc123", Amazon},
		{"https://a.co/d/xyz", Amazon},
		{"a.co/d/xyz", Amazon},
		{"https://loja.co/produto/abc", Unknown},
		{"https://shopee.com.br/product/1/2", Shopee},
		{"https://shp.ee/abc", Shopee},
		{"https://s.shopee.com.br/7AbCd", Shopee},
		{"https://www.mercadolivre.com.br/p/MLB1234567890", MercadoLivre},
		{"https://meli.co/2Ab", MercadoLivre},
		{"https://www.magazineluiza.com.br/x/p/abc123456/", Magalu},
		{"https://mglu.me/abc", Magalu},
		{"https://example.com/product/1", Unknown},
		{"", Unknown},
		{"   ", Unknown},
	}

	for _, tc := range cases {
		t.Run(tc.url, func(t *testing.T) {
			require.Equal(t, tc.want, Classify(tc.url))
		})
	}
}

func TestClassify_PriorityOrder(t *testing.T) {
	t.Parallel()

	// Both fragments present: amazon is checked first.
	require.Equal(t, Amazon, Classify("https://shopee.com.br/redirect?to=amazon.com.br"))
}

func TestParse(t *testing.T) {
	t.Parallel()

	for raw, want := range map[string]Platform{
		"amazon":       Amazon,
		" Shopee ":     Shopee,
		"mercadolivre": MercadoLivre,
		"mercadolibre": MercadoLivre,
		"magalu":       Magalu,
	} {
		got, err := Parse(raw)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	got, err := Parse("ebay")
	require.Error(t, err)
	require.Equal(t, Unknown, got)
}

func TestNeedsResolution(t *testing.T) {
	t.Parallel()

	yes := []string{
		"https://amzn.to/abc123",
		"https://shp.ee/xyz",
		"https://s.shopee.com.br/7AbCd",
		"https://x.example/gz/webdevice/?go=abc",
		"https://www.mercadolivre.com.br/social/promo?ref=1",
		"https://shopee.com.br/universal-link/product/1/2",
		"https://shopee.com.br/product/1/2?forceInApp=true",
		"https://www.mercadolivre.com/sec/1AbCd",
		"https://click1.mercadolivre.com.br/x",
		"https://www.magazineluiza.com.br/redirect?u=1",
		"https://mglu.me/abc",
	}
	no := []string{
		"https://www.amazon.com.br/dp/B08N5WRWNW",
		"https://shopee.com.br/product/123456/987654321",
		"https://www.mercadolivre.com.br/p/MLB1234567890",
		"https://www.magazineluiza.com.br/x/p/abc123456/",
		// magalu markers only apply to magalu URLs
		"https://www.amazon.com.br/dp/B08N5WRWNW?ref_=redirect",
		"https://loja.co/produto/abc",
		"",
	}

	for _, u := range yes {
		require.True(t, NeedsResolution(u), u)
	}
	for _, u := range no {
		require.False(t, NeedsResolution(u), u)
	}
}

func TestIsShortLink(t *testing.T) {
	t.Parallel()

	require.True(t, IsShortLink("https://amzn.to/abc"))
	require.True(t, IsShortLink("https://meli.co/abc"))
	require.True(t, IsShortLink("https://a.co/d/xyz"))
	require.False(t, IsShortLink("https://loja.co/produto/abc"))
	require.False(t, IsShortLink("https://x.example/gz/webdevice/?go=abc"))
	require.False(t, IsShortLink("https://www.amazon.com.br/dp/B08N5WRWNW"))
}

func TestExtractAmazon(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"https://www.amazon.com.br/Produto/dp/B08N5WRWNW/ref=sr_1_1":    "B08N5WRWNW",
		"https://www.amazon.com.br/dp/b08n5wrwnw?th=1":                  "B08N5WRWNW",
		"https://www.amazon.com/gp/product/0306406152":                  "0306406152",
		"https://www.amazon.com/gp/aw/d/B0C1234567":                     "B0C1234567",
		"https://www.amazon.com/exec/obidos/ASIN/B0C1234567/ref":        "B0C1234567",
		"https://www.amazon.com/o/ASIN/B0C1234567":                      "B0C1234567",
		"https://www.amazon.com/some/product/B0C1234567":                "B0C1234567",
		"https://www.amazon.com.br/s?k=fone&asin=B0C1234567":            "B0C1234567",
		"https://www.amazon.com.br/B0C1234567":                          "B0C1234567",
		"https://www.amazon.com.br/Fone-Bluetooth/B0C1234567/":          "B0C1234567",
		"https://www.amazon.com.br/dp/B08N5WRWNW/ref=x?asin=B0C1234567": "B08N5WRWNW",
	}
	for in, want := range cases {
		id, ok := ExtractAmazon(in)
		require.True(t, ok, in)
		require.Equal(t, KindASIN, id.Kind)
		require.Equal(t, want, id.ASIN, in)
	}

	misses := []string{
		"https://www.amazon.com.br/",
		"https://www.amazon.com.br/dp/SHORT",
		"https://www.amazon.com.br/dp/B08N5WRWNWXX",
		"https://amzn.to/abcdefghij",
		"not a url",
	}
	for _, in := range misses {
		_, ok := ExtractAmazon(in)
		require.False(t, ok, in)
	}
}

func TestExtractAmazon_RoundTrip(t *testing.T) {
	t.Parallel()

	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		b := make([]byte, 10)
		for j := range b {
			b[j] = alphabet[rng.Intn(len(alphabet))]
		}
		token := string(b)
		u := fmt.Sprintf("https://www.amazon.com.br/Some-Title/dp/%s/ref=sr_1_%d", token, i)

		require.Equal(t, Amazon, Classify(u))
		id, ok := Extract(Classify(u), u)
		require.True(t, ok, u)
		require.Regexp(t, `^[A-Z0-9]{10}$`, id.ASIN)
		require.Equal(t, toUpperASCII(token), id.ASIN)
	}
}

func toUpperASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

func TestExtractShopee(t *testing.T) {
	t.Parallel()

	cases := []struct {
		url        string
		shop, item string
	}{
		{"https://shopee.com.br/product/123456/987654321", "123456", "987654321"},
		{"https://shopee.com.br/product/123456/987654321?smtt=0.0.9#reviews", "123456", "987654321"},
		{"https://shopee.com.br/loja-legal/111/222", "111", "222"},
		{"https://shopee.com.br/Fone-Bluetooth-i.123456.987654321", "123456", "987654321"},
		{"https://shopee.com.br/Fone.i.42.4242?sp_atk=1", "42", "4242"},
		// ambiguous fallback: longer run is the item id
		{"https://shopee.com.br/x/1234567.98765432101", "1234567", "98765432101"},
		{"https://shopee.com.br/x/98765432101.1234567", "1234567", "98765432101"},
		// tie keeps the first run as item id
		{"https://shopee.com.br/x/123456.654321", "654321", "123456"},
	}

	for _, tc := range cases {
		id, ok := ExtractShopee(tc.url)
		require.True(t, ok, tc.url)
		require.Equal(t, KindShopeeIDs, id.Kind)
		require.Equal(t, tc.shop, id.ShopID, tc.url)
		require.Equal(t, tc.item, id.ItemID, tc.url)
		require.Equal(t, tc.item, id.Value())
	}

	for _, in := range []string{
		"https://shopee.com.br/",
		"https://s.shopee.com.br/7AbCdEf",
		"https://shopee.com.br/search?keyword=123456.654321",
	} {
		_, ok := ExtractShopee(in)
		require.False(t, ok, in)
	}
}

func TestExtractMercadoLivre(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"https://www.mercadolivre.com.br/celular/p/MLB1234567890":          "MLB1234567890",
		"https://produto.mercadolivre.com.br/MLB-1234567890-celular-_JM":   "MLB1234567890",
		"https://www.mercadolivre.com.br/produto/celular-MLB-12345678901":  "MLB12345678901",
		"https://www.mercadolivre.com.br/item/MLB12345678901234":           "MLB12345678901234",
		"https://www.mercadolivre.com.br/anuncio?id=mlb1234567890":         "MLB1234567890",
		"https://lista.mercadolivre.com.br/x#wid=MLB1234567890&sid=search": "MLB1234567890",
	}
	for in, want := range cases {
		id, ok := ExtractMercadoLivre(in)
		require.True(t, ok, in)
		require.Equal(t, KindMLBID, id.Kind)
		require.Equal(t, want, id.MLBID, in)
		require.Regexp(t, `^MLB\d{10,14}$`, id.MLBID)
	}

	for _, in := range []string{
		"https://www.mercadolivre.com.br/p/MLB123",
		"https://www.mercadolivre.com.br/p/MLB123456789012345678",
		"https://www.mercadolivre.com.br/",
	} {
		_, ok := ExtractMercadoLivre(in)
		require.False(t, ok, in)
	}
}

func TestExtractMagalu(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"https://www.magazineluiza.com.br/p/237184100/":                         "237184100",
		"https://www.magazineluiza.com.br/smartphone-samsung/p/AB12CD34EF/te/g": "ab12cd34ef",
		"https://www.magalu.com.br/produto/ffe12ab3c4":                          "ffe12ab3c4",
		"https://www.magazineluiza.com.br/busca?sku=abc123def":                  "abc123def",
	}
	for in, want := range cases {
		id, ok := ExtractMagalu(in)
		require.True(t, ok, in)
		require.Equal(t, KindSKU, id.Kind)
		require.Equal(t, want, id.SKU, in)
	}

	for _, in := range []string{
		"https://www.magazineluiza.com.br/p/abc/",
		"https://www.magazineluiza.com.br/",
	} {
		_, ok := ExtractMagalu(in)
		require.False(t, ok, in)
	}
}

func TestExtract_UnknownPlatform(t *testing.T) {
	t.Parallel()

	_, ok := Extract(Unknown, "https://www.amazon.com.br/dp/B08N5WRWNW")
	require.False(t, ok)
}

func TestHasProductMarker(t *testing.T) {
	t.Parallel()

	require.True(t, HasProductMarker(MercadoLivre, "https://www.mercadolivre.com.br/x/p/MLB1234567890"))
	require.False(t, HasProductMarker(MercadoLivre, "https://www.mercadolivre.com.br/ofertas"))
	require.True(t, HasProductMarker(Unknown, "https://www.amazon.com.br/dp/B08N5WRWNW"))
}

func TestIdentifierPlatform(t *testing.T) {
	t.Parallel()

	require.Equal(t, Amazon, Identifier{Kind: KindASIN}.Platform())
	require.Equal(t, Shopee, Identifier{Kind: KindShopeeIDs}.Platform())
	require.Equal(t, MercadoLivre, Identifier{Kind: KindMLBID}.Platform())
	require.Equal(t, Magalu, Identifier{Kind: KindSKU}.Platform())
	require.Equal(t, Unknown, Identifier{}.Platform())
}

func TestDetectMarketplace(t *testing.T) {
	t.Parallel()

	require.Equal(t, "amazon", DetectMarketplace("https://amzn.to/x"))
	require.Equal(t, "aliexpress", DetectMarketplace("https://pt.aliexpress.com/item/1.html"))
	require.Equal(t, "kabum", DetectMarketplace("https://www.kabum.com.br/produto/1"))
	require.Equal(t, OtherMarketplace, DetectMarketplace("https://example.com"))
}
