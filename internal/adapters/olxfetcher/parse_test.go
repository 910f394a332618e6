package olxfetcher

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseDoc(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc.Selection
}

const profilePage = `<!DOCTYPE html>
<html><body>
<div data-testid="total-count">Znaleziono 720 ogłoszeń</div>
<div type="list">
	<a href="/d/oferta/kawalerka-przy-parku-CID3-IDabc12.html?reason=featured">zobacz</a>
	<p>Kawalerka przy parku</p>
	<span>1 500 zł</span>
	<span>25 m²</span>
</div>
<div type="list">
	<a href="https://www.olx.pl/d/oferta/pokoj-dwuosobowy-centrum-CID3-IDdef34.html">zobacz</a>
	<p>Pokój dwuosobowy w centrum</p>
	<span>800 zł</span>
</div>
<div type="list">
	<a href="/d/oferta/kawalerka-przy-parku-CID3-IDabc12.html">zobacz</a>
	<p>Kawalerka przy parku</p>
</div>
<div type="list">
	<a href="/d/oferta/promo-CID3-IDghi56.html">x</a>
	<p>Top</p>
</div>
<div type="list">
	<p>Baner reklamowy bez linku</p>
</div>
</body></html>`

func TestParseProfilePage(t *testing.T) {
	cards, declared := parseProfilePage(parseDoc(t, profilePage))

	require.Len(t, cards, 2, "the duplicate, the short-title card and the anchorless card are dropped")
	assert.Equal(t, 720, declared)

	first := cards[0]
	assert.Equal(t, "kawalerka-przy-parku-CID3-IDabc12", first.StableKey)
	assert.Equal(t, "Kawalerka przy parku", first.Title)
	assert.Equal(t, "https://www.olx.pl/d/oferta/kawalerka-przy-parku-CID3-IDabc12.html", first.URL)
	assert.Equal(t, "zobacz Kawalerka przy parku 1 500 zł 25 m²", first.Text)
	assert.Equal(t, 0, first.Position)

	second := cards[1]
	assert.Equal(t, "pokoj-dwuosobowy-centrum-CID3-IDdef34", second.StableKey)
	assert.Equal(t, "Pokój dwuosobowy w centrum", second.Title)
	assert.Equal(t, "https://www.olx.pl/d/oferta/pokoj-dwuosobowy-centrum-CID3-IDdef34.html", second.URL)
	assert.Equal(t, 1, second.Position)
}

func TestParseProfilePageFallsBackToAnchors(t *testing.T) {
	page := `<html><body>
	<div class="wrap">
		<div class="inner">
			<a href="/d/oferta/mieszkanie-dwupokojowe-CID3-IDzzz99.html">link do oferty</a>
			<p>Mieszkanie dwupokojowe</p>
			<span>2 300 zł</span>
		</div>
	</div>
	</body></html>`

	cards, declared := parseProfilePage(parseDoc(t, page))

	require.Len(t, cards, 1)
	assert.Equal(t, -1, declared)
	assert.Equal(t, "mieszkanie-dwupokojowe-CID3-IDzzz99", cards[0].StableKey)
	assert.Equal(t, "Mieszkanie dwupokojowe", cards[0].Title)
	assert.Contains(t, cards[0].Text, "2 300 zł")
}

func TestParseProfilePageDeclaredCount(t *testing.T) {
	tests := []struct {
		name string
		page string
		want int
	}{
		{
			name: "counter element",
			page: `<html><body><span data-testid="total-count">Znaleziono 42 ogłoszenia</span></body></html>`,
			want: 42,
		},
		{
			name: "count phrase in page text",
			page: `<html><body><div class="header"><span>Znaleźliśmy 715 ogłoszeń</span></div></body></html>`,
			want: 715,
		},
		{
			name: "counter element without a number falls through to the phrase",
			page: `<html><body><span data-testid="total-count">ogłoszenia</span><p>Znaleźliśmy 9 ogłoszeń</p></body></html>`,
			want: 9,
		},
		{
			name: "no counter anywhere",
			page: `<html><body><p>Brak wyników</p></body></html>`,
			want: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, declared := parseProfilePage(parseDoc(t, tt.page))
			assert.Equal(t, tt.want, declared)
		})
	}
}

func TestJoinedTextSeparatesFragments(t *testing.T) {
	sel := parseDoc(t, `<html><body><div id="card">Kawalerka<span>25 m²</span><span>1 500 zł</span></div></body></html>`)

	got := joinedText(sel.Find("#card"))

	assert.Equal(t, "Kawalerka 25 m² 1 500 zł", got)
}

func TestExtractCreatedTime(t *testing.T) {
	tests := []struct {
		name   string
		html   string
		want   time.Time
		wantOK bool
	}{
		{
			name:   "plain json blob",
			html:   `{"ad":{"createdTime":"2025-03-01T10:30:00+01:00","id":123}}`,
			want:   time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "escaped json inside a script string",
			html:   `window.__PRERENDERED_STATE__= "{\"createdTime\":\"2024-11-15T08:05:30+01:00\"}"`,
			want:   time.Date(2024, 11, 15, 7, 5, 30, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "no marker",
			html:   `{"ad":{"created":"2025-03-01T10:30:00+01:00"}}`,
			wantOK: false,
		},
		{
			name:   "timestamp too far past the marker",
			html:   `"createdTime"` + strings.Repeat("x", 90) + `"2025-03-01T10:30:00+01:00"`,
			wantOK: false,
		},
		{
			name:   "marker without an iso timestamp",
			html:   `"createdTime":"dzisiaj o 14:30"`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractCreatedTime(tt.html)

			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.True(t, got.Equal(tt.want), "got %s, want %s", got, tt.want)
			}
		})
	}
}
