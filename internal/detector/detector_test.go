package detector

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarkerMatchesExactSnippet(t *testing.T) {
	t.Parallel()

	m := NewMarker("")
	require.Equal(t, DefaultSnippet, m.Snippet)

	cases := map[string]struct {
		body string
		want bool
	}{
		"exact":          {body: `<p>112509.xyz is available</p>`, want: true},
		"altered char":   {body: `<p>112509.xyz is availabl3</p>`, want: false},
		"case differs":   {body: `<p>112509.xyz Is Available</p>`, want: false},
		"split by tag":   {body: `<p>is <b>available</b></p>`, want: false},
		"empty body":     {body: ``, want: false},
		"deep in markup": {body: `<div><span data-x="1">Great news, it is available now</span></div>`, want: true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, m.Match([]byte(tc.body)))
		})
	}
}

func TestMarkerWithEmptySnippetNeverMatches(t *testing.T) {
	t.Parallel()

	require.False(t, Marker{}.Match([]byte("anything")))
}

func TestExtractPrice(t *testing.T) {
	t.Parallel()

	body := []byte(`<html><body>
		<div class="result"><span class="price-wrapper">  </span></div>
		<div class="domain-price"> $0.98
			/yr </div>
		<div class="price">$12.00</div>
	</body></html>`)
	require.Equal(t, "$0.98 /yr", ExtractPrice(body))
	require.Empty(t, ExtractPrice([]byte(`<p>no pricing here</p>`)))
}
