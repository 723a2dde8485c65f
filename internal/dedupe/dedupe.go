// Package dedupe collapses postings that describe the same opening across
// (or within) sources. The most trusted source wins.
package dedupe

import (
	"regexp"
	"sort"
	"strings"

	"internhub-engine/internal/domain"
	"internhub-engine/internal/scrape/util"
)

var (
	companySuffixRe = regexp.MustCompile(`(?i)[\s,]+(inc\.?|incorporated|corp\.?|corporation|llc|ltd\.?|limited|co\.?|company)\s*$`)
	rolePrefixRe    = regexp.MustCompile(`(?i)^(campus\s*-?\s*|entry\s*-?\s*level\s+|junior\s+|graduate\s+|new\s*grad\s+)`)
	roleSuffixRe    = regexp.MustCompile(`(?i)[\s,-]+(intern|internship|co-op|coop|rotation|program)\s*$`)
	separatorRe     = regexp.MustCompile(`[-_\s]+`)
)

// NormalizeCompany lowercases and drops a trailing legal suffix.
func NormalizeCompany(company string) string {
	s := strings.ToLower(strings.TrimSpace(company))
	s = companySuffixRe.ReplaceAllString(s, "")
	return strings.TrimSpace(separatorRe.ReplaceAllString(s, " "))
}

// NormalizeRole lowercases and drops seniority prefixes and program suffixes.
func NormalizeRole(role string) string {
	s := strings.ToLower(strings.TrimSpace(role))
	s = rolePrefixRe.ReplaceAllString(s, "")
	s = roleSuffixRe.ReplaceAllString(s, "")
	return strings.TrimSpace(separatorRe.ReplaceAllString(s, " "))
}

func primaryLocation(p domain.Posting) string {
	return strings.ToLower(strings.TrimSpace(p.PrimaryLocation()))
}

type keys struct {
	company  string
	role     string
	location string
	domain   string
}

func keysFor(p domain.Posting) keys {
	return keys{
		company:  NormalizeCompany(p.Company),
		role:     NormalizeRole(p.Role),
		location: primaryLocation(p),
		domain:   util.Domain(p.ApplicationLink),
	}
}

type pair struct{ a, b string }

type triple struct{ a, b, c string }

type index struct {
	exact    map[triple]bool
	byRole   map[pair][]keys
	byDomain map[pair][]keys
}

func newIndex(n int) *index {
	return &index{
		exact:    make(map[triple]bool, n),
		byRole:   make(map[pair][]keys, n),
		byDomain: make(map[pair][]keys, n),
	}
}

func (ix *index) add(k keys) {
	ix.exact[triple{k.company, k.role, k.location}] = true
	rk := pair{k.company, k.role}
	ix.byRole[rk] = append(ix.byRole[rk], k)
	if k.domain != "" {
		dk := pair{k.domain, k.role}
		ix.byDomain[dk] = append(ix.byDomain[dk], k)
	}
}

// duplicate reports whether k matches any kept record under any rule.
func (ix *index) duplicate(k keys) bool {
	if ix.exact[triple{k.company, k.role, k.location}] {
		return true
	}
	for _, kept := range ix.byRole[pair{k.company, k.role}] {
		if similarLocation(k.location, kept.location) {
			return true
		}
	}
	if k.domain != "" && k.company != "" {
		for _, kept := range ix.byDomain[pair{k.domain, k.role}] {
			if relatedCompany(k.company, kept.company) {
				return true
			}
		}
	}
	return false
}

func similarLocation(a, b string) bool {
	if a == b {
		return true
	}
	if strings.Contains(a, "remote") && strings.Contains(b, "remote") {
		return true
	}
	d := len(a) - len(b)
	if d < 0 {
		d = -d
	}
	return d <= 3
}

// relatedCompany is true for equal names or when one contains the other.
// Unrelated companies sharing an ATS host are not duplicates.
func relatedCompany(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return a == b || strings.Contains(a, b) || strings.Contains(b, a)
}

// Dedupe keeps the first record of every duplicate group after a stable sort
// by SourcePriority. The input slice is not modified. Output is in processing
// order, so Dedupe(Dedupe(x)) == Dedupe(x).
func Dedupe(postings []domain.Posting) []domain.Posting {
	sorted := make([]domain.Posting, len(postings))
	copy(sorted, postings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SourcePriority < sorted[j].SourcePriority
	})

	ix := newIndex(len(sorted))
	out := make([]domain.Posting, 0, len(sorted))
	for _, p := range sorted {
		k := keysFor(p)
		if ix.duplicate(k) {
			continue
		}
		ix.add(k)
		out = append(out, p)
	}
	return out
}
