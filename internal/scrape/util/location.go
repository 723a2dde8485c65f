package util

import (
	"regexp"
	"strings"
)

var (
	detailsRe   = regexp.MustCompile(`(?is)</summary>(.*?)</details>`)
	breakRe     = regexp.MustCompile(`(?i)<\s*/?\s*br\s*/?\s*>`)
	entityRe    = regexp.MustCompile(`&[a-zA-Z0-9#]+;`)
	camelPairRe = regexp.MustCompile(`([a-z])([A-Z]{2})([A-Z][a-z])`)
	statePairRe = regexp.MustCompile(`([A-Z]{2})([A-Z][a-z])`)
	locSplitRe  = regexp.MustCompile(`[,;/\n]`)
)

// region codes that belong to the city before them ("Austin, TX").
var regionSuffixes = func() map[string]bool {
	m := map[string]bool{
		"USA": true, "US": true, "UK": true, "Canada": true,
	}
	for _, s := range strings.Fields(`AL AK AZ AR CA CO CT DE DC FL GA HI ID IL IN IA KS KY LA ME MD MA MI MN MS MO
		MT NE NV NH NJ NM NY NC ND OH OK OR PA RI SC SD TN TX UT VT VA WA WV WI WY PR
		AB BC MB NB NL NS ON PE QC SK`) {
		m[s] = true
	}
	return m
}()

// ParseLocations turns a markdown location cell into a location list.
// A <details> block is split on its line breaks; anything else is treated as a
// separated list with concatenated "CityST" pairs repaired first. Bare <br>
// breaks outside a details block also separate entries.
// The result is never empty.
func ParseLocations(raw string) []string {
	if m := detailsRe.FindStringSubmatch(raw); m != nil {
		if locs := SplitBreaks(m[1]); len(locs) > 0 {
			return locs
		}
		return []string{"Remote"}
	}

	if breakRe.MatchString(raw) {
		if locs := SplitBreaks(raw); len(locs) > 0 {
			return locs
		}
	}

	text := ExtractText(raw)
	if text == "" {
		return []string{"Remote"}
	}
	if strings.Contains(strings.ToLower(text), "location") {
		return []string{"Multiple Locations"}
	}

	text = camelPairRe.ReplaceAllString(text, "$1, $2, $3")
	text = statePairRe.ReplaceAllString(text, "$1, $2")

	var out []string
	for _, part := range locSplitRe.Split(text, -1) {
		part = CleanText(part)
		if part == "" {
			continue
		}
		if regionSuffixes[part] && len(out) > 0 {
			out[len(out)-1] += ", " + part
			continue
		}
		out = append(out, part)
	}
	if len(out) == 0 {
		return []string{"Remote"}
	}
	return out
}

// SplitBreaks splits an HTML fragment on <br> variants and returns the
// non-empty plain-text pieces.
func SplitBreaks(fragment string) []string {
	var out []string
	for _, piece := range breakRe.Split(fragment, -1) {
		piece = tagRe.ReplaceAllString(piece, "")
		piece = entityReplacer.Replace(piece)
		piece = entityRe.ReplaceAllString(piece, "")
		piece = CleanText(piece)
		if piece != "" {
			out = append(out, piece)
		}
	}
	return out
}
