// Package classify detects requirement and status markers (citizenship,
// sponsorship, closed, freshman-friendly) in posting text and returns the
// text with those markers cut out.
//
// Upstream documents carry the markers as emoji, and those emoji reach us in
// several broken encodings. Every encoding is a row in one ordered table;
// rows are applied strictly in order and each match is removed before the
// next row runs, so a short variant that is a prefix of a longer one (the
// C1-stripped passport "ð" inside the C1-stripped flag "ðºð¸") never double
// counts.
package classify

import (
	"regexp"
	"strings"
)

type Signal int

const (
	Citizenship Signal = iota
	NoSponsorship
	Closed
	FreshmanFriendly
)

func (s Signal) String() string {
	switch s {
	case Citizenship:
		return "citizenship"
	case NoSponsorship:
		return "no_sponsorship"
	case Closed:
		return "closed"
	case FreshmanFriendly:
		return "freshman_friendly"
	}
	return "unknown"
}

// Result is the classification of one piece of text.
type Result struct {
	CleanRole           string
	RequiresCitizenship bool
	NoSponsorship       bool
	IsClosed            bool
	IsFreshmanFriendly  bool
}

func (r *Result) set(s Signal) {
	switch s {
	case Citizenship:
		r.RequiresCitizenship = true
	case NoSponsorship:
		r.NoSponsorship = true
	case Closed:
		r.IsClosed = true
	case FreshmanFriendly:
		r.IsFreshmanFriendly = true
	}
}

// Merge ORs the flags of o into r. CleanRole is left alone.
func (r Result) Merge(o Result) Result {
	r.RequiresCitizenship = r.RequiresCitizenship || o.RequiresCitizenship
	r.NoSponsorship = r.NoSponsorship || o.NoSponsorship
	r.IsClosed = r.IsClosed || o.IsClosed
	r.IsFreshmanFriendly = r.IsFreshmanFriendly || o.IsFreshmanFriendly
	return r
}

type pattern struct {
	signal Signal
	// exactly one of literal / re is set
	literal string
	re      *regexp.Regexp
	repl    string
}

func (p pattern) cut(s string) (string, bool) {
	if p.re != nil {
		if !p.re.MatchString(s) {
			return s, false
		}
		return p.re.ReplaceAllString(s, p.repl), true
	}
	if !strings.Contains(s, p.literal) {
		return s, false
	}
	return strings.ReplaceAll(s, p.literal, " "), true
}

func phrase(sig Signal, text string) pattern {
	return pattern{signal: sig, re: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(text)), repl: " "}
}

func token(sig Signal, text string) pattern {
	return pattern{signal: sig, literal: text}
}

// Emoji byte variants. Each marker appears as proper UTF-8, as UTF-8 read as
// Latin-1, as UTF-8 read as Windows-1252, as CESU-8 surrogate pairs and as
// literal \uXXXX escape text.
const (
	flagUTF8     = "\U0001F1FA\U0001F1F8"
	flagLatin1   = "\u00f0\u009f\u0087\u00ba\u00f0\u009f\u0087\u00b8"
	flagCP1252   = "\u00f0\u0178\u2021\u00ba\u00f0\u0178\u2021\u00b8"
	flagCESU8    = "\xed\xa0\xbc\xed\xb7\xba\xed\xa0\xbc\xed\xb7\xb8"
	flagEscape   = `\ud83c\uddfa\ud83c\uddf8`
	flagStripped = "\u00f0\u00ba\u00f0\u00b8" // C1 controls dropped from the Latin-1 form

	passportUTF8   = "\U0001F6C2"
	passportLatin1 = "\u00f0\u009f\u009b\u0082"
	passportCP1252 = "\u00f0\u0178\u203a\u201a"
	passportCESU8  = "\xed\xa0\xbd\xed\xbb\x82"
	passportEscape = `\ud83d\udec2`

	lockUTF8   = "\U0001F512"
	lockLatin1 = "\u00f0\u009f\u0094\u0092"
	lockCP1252 = "\u00f0\u0178\u201d\u2019"
	lockCESU8  = "\xed\xa0\xbd\xed\xb4\x92"
	lockEscape = `\ud83d\udd12`

	graduateUTF8 = "\U0001F468\u200d\U0001F393"
	capUTF8      = "\U0001F393"
	capLatin1    = "\u00f0\u009f\u008e\u0093"
	capCP1252    = "\u00f0\u0178\u017d\u201c"
	capCESU8     = "\xed\xa0\xbc\xed\xbe\x93"
	capEscape    = `\ud83c\udf93`
)

// table is evaluated top to bottom. Longer forms first.
var table = []pattern{
	phrase(Citizenship, "- "+flagUTF8+" - Requires U.S. Citizenship"),
	phrase(NoSponsorship, "- "+passportUTF8+" - Does NOT offer Sponsorship"),
	phrase(Closed, "- "+lockUTF8+" - Internship application is closed"),

	phrase(Citizenship, "Requires U.S. Citizenship"),
	phrase(Citizenship, "U.S. Citizenship"),
	phrase(NoSponsorship, "Does NOT offer Sponsorship"),
	phrase(NoSponsorship, "No Sponsorship"),
	phrase(Closed, "Internship application is closed"),
	phrase(Closed, "application is closed"),

	token(Citizenship, flagUTF8),
	token(Citizenship, flagLatin1),
	token(Citizenship, flagCP1252),
	token(Citizenship, flagCESU8),
	phrase(Citizenship, flagEscape),

	token(NoSponsorship, passportUTF8),
	token(NoSponsorship, passportLatin1),
	token(NoSponsorship, passportCP1252),
	token(NoSponsorship, passportCESU8),
	phrase(NoSponsorship, passportEscape),

	token(Closed, lockUTF8),
	token(Closed, lockLatin1),
	token(Closed, lockCP1252),
	token(Closed, lockCESU8),
	phrase(Closed, lockEscape),

	token(FreshmanFriendly, graduateUTF8),
	token(FreshmanFriendly, capUTF8),
	token(FreshmanFriendly, capLatin1),
	token(FreshmanFriendly, capCP1252),
	token(FreshmanFriendly, capCESU8),
	phrase(FreshmanFriendly, capEscape),

	token(Citizenship, flagStripped),
	// C1-stripped passport: a lone U+00F0 not followed by a letter or digit.
	{signal: NoSponsorship, re: regexp.MustCompile(`\x{00F0}([^\p{L}\p{N}_]|$)`), repl: " ${1}"},
}

var capVariants = []string{capUTF8, capLatin1, capCP1252, capCESU8}

// AdvancedDegree reports whether text carries the graduation cap in any of
// its encodings. Listings in the HTML table format use the cap for "advanced
// degree required" rather than freshman-friendly.
func AdvancedDegree(text string) bool {
	for _, v := range capVariants {
		if strings.Contains(text, v) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(text), capEscape)
}

// Classify detects every marker in text and returns the flags together with
// the text stripped of the markers. The word "freshman" also marks a posting
// freshman-friendly but stays in CleanRole since it is part of the title.
func Classify(text string) Result {
	var res Result
	work := text
	for _, p := range table {
		var hit bool
		if work, hit = p.cut(work); hit {
			res.set(p.signal)
		}
	}
	if strings.Contains(strings.ToLower(text), "freshman") {
		res.IsFreshmanFriendly = true
	}
	res.CleanRole = strings.Join(strings.Fields(work), " ")
	return res
}
