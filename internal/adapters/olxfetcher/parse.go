package olxfetcher

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/Bonaventura-EW/olx-monitor/internal/core/domain"
)

// countMarker is the phrase OLX prints next to the official listing count.
const countMarker = "Znaleźliśmy"

var (
	numberRe      = regexp.MustCompile(`\d+`)
	createdTimeRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}[+-]\d{2}:\d{2}`)
)

// parseProfilePage extracts listing cards and the declared listing count from
// a profile page document. The declared count is -1 when the page carries no
// counter.
//
// OLX wraps every card in <div type="list">, a stable attribute independent
// of the obfuscated CSS classes. When that wrapper is missing the parse falls
// back to the ad anchors themselves and climbs to their enclosing block.
func parseProfilePage(doc *goquery.Selection) ([]domain.RawCard, int) {
	var cards []domain.RawCard
	seen := make(map[string]bool)

	doc.Find(`div[type="list"]`).Each(func(_ int, card *goquery.Selection) {
		anchor := card.Find(`a[href*="/d/oferta/"]`).First()
		if raw, ok := cardFromSelection(card, anchor, seen); ok {
			raw.Position = len(cards)
			cards = append(cards, raw)
		}
	})

	if len(cards) == 0 {
		doc.Find(`a[href*="/d/oferta/"]`).Each(func(_ int, anchor *goquery.Selection) {
			ancestor := anchor.Parent()
			if p := ancestor.Parent(); p.Length() > 0 {
				ancestor = p
			}
			if raw, ok := cardFromSelection(ancestor, anchor, seen); ok {
				raw.Position = len(cards)
				cards = append(cards, raw)
			}
		})
	}

	declared := -1
	if n, ok := declaredCount(doc); ok {
		declared = n
	}
	return cards, declared
}

// cardFromSelection turns one card block into a RawCard. Cards without an ad
// anchor, with an already-seen URL or with a junk title are dropped.
func cardFromSelection(card, anchor *goquery.Selection, seen map[string]bool) (domain.RawCard, bool) {
	href, _ := anchor.Attr("href")
	if href == "" {
		return domain.RawCard{}, false
	}
	if i := strings.Index(href, "?"); i >= 0 {
		href = href[:i]
	}
	if seen[href] {
		return domain.RawCard{}, false
	}
	seen[href] = true

	title := strings.TrimSpace(card.Find("p").First().Text())
	if title == "" {
		title = strings.TrimSpace(anchor.Text())
	}
	if utf8.RuneCountInString(title) < 5 {
		return domain.RawCard{}, false
	}

	fullURL := href
	if strings.HasPrefix(href, "/") {
		fullURL = "https://www.olx.pl" + href
	}

	return domain.RawCard{
		StableKey: domain.ResolveListingKey(href),
		Title:     title,
		URL:       fullURL,
		Text:      joinedText(card),
	}, true
}

// declaredCount reads the official listing count. The data-testid attribute
// is the stable selector; the count phrase in the page text is the fallback.
func declaredCount(doc *goquery.Selection) (int, bool) {
	counter := doc.Find(`[data-testid="total-count"]`).First()
	if counter.Length() > 0 {
		if n, ok := firstNumber(counter.Text()); ok {
			return n, true
		}
	}
	return countAfterMarker(doc)
}

// countAfterMarker walks the text nodes looking for the count phrase and
// returns the first number inside the matching node.
func countAfterMarker(s *goquery.Selection) (int, bool) {
	found := 0
	ok := false
	s.Contents().EachWithBreak(func(_ int, c *goquery.Selection) bool {
		if goquery.NodeName(c) == "#text" {
			if strings.Contains(c.Text(), countMarker) {
				if n, numOK := firstNumber(c.Text()); numOK {
					found, ok = n, true
					return false
				}
			}
			return true
		}
		if n, childOK := countAfterMarker(c); childOK {
			found, ok = n, true
			return false
		}
		return true
	})
	return found, ok
}

// joinedText renders a node's text the way a browser would show it, with a
// single space between fragments from different elements. Prices and their
// currency markers must not glue to text from neighboring nodes.
func joinedText(s *goquery.Selection) string {
	var parts []string
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			if t := strings.TrimSpace(c.Text()); t != "" {
				parts = append(parts, t)
			}
			return
		}
		if t := joinedText(c); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, " ")
}

func firstNumber(text string) (int, bool) {
	m := numberRe.FindString(text)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

// extractCreatedTime pulls the publication timestamp out of the JSON blob OLX
// embeds into every ad page. The marker is followed by an escaped ISO
// timestamp within a few dozen characters.
func extractCreatedTime(html string) (time.Time, bool) {
	idx := strings.Index(html, "createdTime")
	if idx < 0 {
		return time.Time{}, false
	}
	end := idx + 80
	if end > len(html) {
		end = len(html)
	}
	m := createdTimeRe.FindString(html[idx:end])
	if m == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02T15:04:05-07:00", m)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
