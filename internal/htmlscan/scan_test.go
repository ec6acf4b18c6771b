package htmlscan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"affiliate-link-resolver/internal/platform"
)

func TestScan_Order(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
		hint platform.Platform
		want string
		ok   bool
	}{
		{
			name: "meta refresh wins over script and canonical",
			body: `<html><head>
<meta http-equiv="Refresh" content="0; URL='https://www.amazon.com.br/dp/B08N5WRWNW'">
<link rel="canonical" href="https://www.amazon.com.br/dp/B000000000">
<script>window.location = "https://example.com/other";</script>
</head></html>`,
			hint: platform.Amazon,
			want: "https://www.amazon.com.br/dp/B08N5WRWNW",
			ok:   true,
		},
		{
			name: "meta refresh unquoted relative",
			body: `<meta http-equiv=refresh content=5;url=/p/abc123def>`,
			hint: platform.Magalu,
			want: "/p/abc123def",
			ok:   true,
		},
		{
			name: "window.location assignment",
			body: `<script>window.location = 'https://shopee.com.br/product/123456/7891011';</script>`,
			hint: platform.Shopee,
			want: "https://shopee.com.br/product/123456/7891011",
			ok:   true,
		},
		{
			name: "location.replace with escaped slashes",
			body: `<script>location.replace("https:\/\/produto.mercadolivre.com.br\/MLB-1234567890");</script>`,
			hint: platform.MercadoLivre,
			want: "https://produto.mercadolivre.com.br/MLB-1234567890",
			ok:   true,
		},
		{
			name: "script target without scheme is ignored",
			body: `<script>location.href = "/relative/path";</script>`,
			hint: platform.Amazon,
			ok:   false,
		},
		{
			name: "canonical accepted with product marker",
			body: `<html><head><link rel="canonical" href="https://www.amazon.com.br/Echo-Dot/dp/B09B8V1LZ3?ref=x&amp;tag=y"></head></html>`,
			hint: platform.Amazon,
			want: "https://www.amazon.com.br/Echo-Dot/dp/B09B8V1LZ3?ref=x&tag=y",
			ok:   true,
		},
		{
			name: "canonical rejected without product marker falls through to og:url",
			body: `<html><head>
<link rel="canonical" href="https://www.amazon.com.br/">
<meta property="og:url" content="https://www.amazon.com.br/gp/product/B09B8V1LZ3">
</head></html>`,
			hint: platform.Amazon,
			want: "https://www.amazon.com.br/gp/product/B09B8V1LZ3",
			ok:   true,
		},
		{
			name: "raw product url in body",
			body: `<div data-x="{&quot;u&quot;:1}">see https://www.magazineluiza.com.br/geladeira/p/237184100/ed/ref/ now</div>`,
			hint: platform.Magalu,
			want: "https://www.magazineluiza.com.br/geladeira/p/237184100/ed/ref/",
			ok:   true,
		},
		{
			name: "raw url of another platform is ignored",
			body: `<p>https://www.amazon.com.br/dp/B08N5WRWNW</p>`,
			hint: platform.Shopee,
			ok:   false,
		},
		{
			name: "nothing to find",
			body: `<html><body><p>hello</p></body></html>`,
			hint: platform.Amazon,
			ok:   false,
		},
		{
			name: "empty body",
			body: "   ",
			hint: platform.Unknown,
			ok:   false,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, ok := Scan(tc.body, tc.hint)
			require.Equal(t, tc.ok, ok)
			if tc.ok {
				require.Equal(t, tc.want, got)
			}
		})
	}
}

func TestScan_MalformedHTMLNeverPanics(t *testing.T) {
	t.Parallel()

	bodies := []string{
		"<<<<>>>>",
		`<meta http-equiv="refresh" content=`,
		`<link rel="canonical" href=`,
		"\x00\xff\xfe<script>location.replace(",
		`<html><head><meta property="og:url" content="`,
	}
	for _, b := range bodies {
		require.NotPanics(t, func() {
			_, _ = Scan(b, platform.Amazon)
		})
	}
}
