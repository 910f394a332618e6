package domain

import (
	"regexp"
	"strings"
)

// Money tokens are digit runs with optional space/NBSP/dot/comma group
// separators, accepted only when adjacent to a currency marker (zł or PLN,
// before or after the number). Bare numerics (floor, rooms, m²) never match.
var moneyTokenRe = regexp.MustCompile(`(?i)(?:zł|pln)\s*([0-9][0-9\x{00a0}\s.,]{0,10})|([0-9][0-9\x{00a0}\s.,]{0,10})\s*(?:zł|pln)`)

var listingKeyRe = regexp.MustCompile(`/d/oferta/([^/?.]+)`)

// ScanPriceCandidates tokenizes a card's text block and returns every money
// token found, in text order, canonicalized to whole złoty. It performs no
// magnitude filtering; that is SelectPrice's job. An empty result is a value,
// not an error.
func ScanPriceCandidates(text string) []int {
	var candidates []int
	for _, m := range moneyTokenRe.FindAllStringSubmatch(text, -1) {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		if value, ok := parseAmount(raw); ok {
			candidates = append(candidates, value)
		}
	}
	return candidates
}

// parseAmount canonicalizes one matched token to an integer złoty value.
// A two-digit decimal tail (grosze) is truncated; remaining separators are
// group separators and are stripped.
func parseAmount(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "\u00a0", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.TrimRight(s, ".,")
	if len(s) > 3 {
		if sep := s[len(s)-3]; sep == ',' || sep == '.' {
			s = s[:len(s)-3]
		}
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, ".", "")
	if s == "" {
		return 0, false
	}
	value := 0
	for _, r := range s {
		value = value*10 + int(r-'0')
	}
	return value, true
}

// SelectPrice applies the selection policy to the scanned candidates:
// filter to [minPrice, maxPrice] inclusive, then take the minimum of the
// in-range set. Listing text routinely carries rent plus a combined total
// (rent+utilities) or a deposit; the base rent is the smallest in-range
// figure, while sums exceed it and can spuriously exceed maxPrice.
// Duplicate values count once. Returns price 0 with StatusZeroAnomalous when
// candidates exist but none are in range, and StatusUnparsed when there were
// no candidates at all.
func SelectPrice(candidates []int, minPrice, maxPrice int) (int, string) {
	if len(candidates) == 0 {
		return 0, StatusUnparsed
	}
	selected, found := 0, false
	for _, c := range candidates {
		if c < minPrice || c > maxPrice {
			continue
		}
		if !found || c < selected {
			selected, found = c, true
		}
	}
	if !found {
		return 0, StatusZeroAnomalous
	}
	return selected, StatusPriced
}

// ResolveListingKey derives the stable listing id from an ad URL: the
// /d/oferta/<slug> path segment, terminated by '/', '?' or '.'. When the
// pattern is absent the sanitized URL path itself is used, so that two
// sightings of the same ad always resolve to the same id.
func ResolveListingKey(href string) string {
	if m := listingKeyRe.FindStringSubmatch(href); m != nil {
		return m[1]
	}
	key := href
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	key = strings.TrimPrefix(key, "https://")
	key = strings.TrimPrefix(key, "http://")
	key = strings.Trim(key, "/")
	return strings.ReplaceAll(key, "/", "_")
}
