package parser

import (
	"strings"
	"testing"
)

func TestConverterProducesReadableText(t *testing.T) {
	t.Parallel()

	html := `<html><head><style>p{}</style><script>track()</script></head><body>
	<nav>Home | News</nav>
	<h1>Arsenal ship</h1>
	<p>The ZHONG DA 79 was fitted with a <a href="/ciws">Type 1130</a> CIWS.</p>



	<p>Seen at Longhai_Shipyard.</p>
	<footer>copyright</footer>
	</body></html>`

	text, err := NewConverter().Convert(html)
	if err != nil {
		t.Fatalf("Convert error: %v", err)
	}

	for _, unwanted := range []string{"track()", "Home | News", "copyright", "\n\n\n"} {
		if strings.Contains(text, unwanted) {
			t.Fatalf("unexpected %q in %q", unwanted, text)
		}
	}
	for _, wanted := range []string{"# Arsenal ship", "Type 1130", "Longhai_Shipyard"} {
		if !strings.Contains(text, wanted) {
			t.Fatalf("missing %q in %q", wanted, text)
		}
	}
}

func TestConverterEmptyInput(t *testing.T) {
	t.Parallel()

	text, err := NewConverter().Convert("   ")
	if err != nil || text != "" {
		t.Fatalf("expected empty result, got %q, %v", text, err)
	}
}

func TestArticleIDIsStable(t *testing.T) {
	t.Parallel()

	a := articleID("rss", "https://navalnews.example/arsenal")
	b := articleID("rss", "https://navalnews.example/arsenal")
	if a != b || len(a) != len("rss-")+12 {
		t.Fatalf("unexpected ids %s %s", a, b)
	}
	if a == articleID("rss", "https://navalnews.example/other") {
		t.Fatal("distinct urls share an id")
	}
}
