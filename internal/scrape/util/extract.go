package util

import (
	"regexp"
	"strings"
)

var (
	mdLinkRe   = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	tagRe      = regexp.MustCompile(`<[^>]*>`)
	bareURLRe  = regexp.MustCompile(`https?://[^\s"<>]+`)
	htmlTailRe = regexp.MustCompile(`">.*$`)
	emphasisRe = regexp.MustCompile(`\*\*|__`)

	entityReplacer = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	)
)

// Extracted is the plain text and application link pulled from one table cell.
type Extracted struct {
	Text string
	Link string
}

// Extract returns the cell's plain text (markup and emoji removed) and its link.
// Malformed input yields best-effort text.
func Extract(raw string) Extracted {
	return Extracted{
		Text: StripEmoji(StripMarkup(raw)),
		Link: ExtractLink(raw),
	}
}

// ExtractText is Extract(raw).Text.
func ExtractText(raw string) string {
	return StripEmoji(StripMarkup(raw))
}

// StripMarkup unwraps markdown links and bold markers, removes HTML tags and
// decodes the common entities. Emoji are left in place.
func StripMarkup(raw string) string {
	s := mdLinkRe.ReplaceAllString(raw, "$1")
	s = emphasisRe.ReplaceAllString(s, "")
	s = tagRe.ReplaceAllString(s, "")
	s = entityReplacer.Replace(s)
	return CleanText(s)
}

// StripEmoji drops pictographs, dingbats, regional indicators and their joiners.
func StripEmoji(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isEmoji(r) {
			continue
		}
		b.WriteRune(r)
	}
	return CleanText(b.String())
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1F5FF,
		r >= 0x1F600 && r <= 0x1F64F,
		r >= 0x1F680 && r <= 0x1F6FF,
		r >= 0x1F700 && r <= 0x1F8FF,
		r >= 0x1F900 && r <= 0x1F9FF,
		r >= 0x1F1E6 && r <= 0x1F1FF,
		r >= 0x2600 && r <= 0x26FF,
		r >= 0x2700 && r <= 0x27BF:
		return true
	case r == 0xFE0F, r == 0x200D:
		return true
	}
	return false
}

// ExtractLink prefers a markdown [text](url) target, then the first bare
// http(s) URL. Trailing `">...` fragments and backslashes are cut off.
func ExtractLink(raw string) string {
	var link string
	if m := mdLinkRe.FindStringSubmatch(raw); m != nil {
		link = m[2]
	} else if m := bareURLRe.FindString(raw); m != "" {
		link = m
	}
	if link == "" {
		return ""
	}
	link = htmlTailRe.ReplaceAllString(link, "")
	link = strings.TrimRight(link, `\`)
	return strings.TrimSpace(link)
}
