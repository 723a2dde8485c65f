package htmltable

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"internhub-engine/internal/category"
	"internhub-engine/internal/classify"
	"internhub-engine/internal/domain"
	"internhub-engine/internal/logging"
	"internhub-engine/internal/scrape/util"
)

const (
	DefaultAggregatorDomain = "simplify.jobs"
	SubsidiaryMarker        = "↳"
)

var (
	tbodyOpenRe  = regexp.MustCompile(`(?i)<tbody[^>]*>`)
	tbodyCloseRe = regexp.MustCompile(`(?i)</tbody\s*>`)
	daysAgoRe    = regexp.MustCompile(`^(\d+)\s*d$`)
	monthsAgoRe  = regexp.MustCompile(`^(\d+)\s*mo$`)
)

type Config struct {
	Source   string
	Priority int
	// AggregatorDomain is the listing site's own redirect host; links under
	// it are never used as application links.
	AggregatorDomain string
}

type Parser struct {
	cfg Config
	log *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Parser {
	if strings.TrimSpace(cfg.AggregatorDomain) == "" {
		cfg.AggregatorDomain = DefaultAggregatorDomain
	}
	return &Parser{
		cfg: cfg,
		log: logging.OrNop(logger).Named("parse.html").With(zap.String("source", cfg.Source)),
	}
}

type rowState struct {
	lastCompany string
	index       int
}

func (p *Parser) Parse(body string) (out []domain.Posting) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("parse panic", zap.Any("panic", r))
			out = nil
		}
	}()

	open := tbodyOpenRe.FindStringIndex(body)
	if open == nil {
		p.log.Warn("tbody not found")
		return nil
	}
	closing := tbodyCloseRe.FindStringIndex(body[open[1]:])
	if closing == nil {
		p.log.Warn("tbody not closed")
		return nil
	}
	fragment := body[open[0] : open[1]+closing[1]]

	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<table>" + fragment + "</table>"))
	if err != nil {
		p.log.Warn("html parse failed", zap.Error(err))
		return nil
	}

	var st rowState
	doc.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		if posting, ok := p.parseRow(tr, &st); ok {
			out = append(out, posting)
		}
	})

	p.log.Info("parsed", zap.Int("postings", len(out)))
	return out
}

func (p *Parser) parseRow(tr *goquery.Selection, st *rowState) (domain.Posting, bool) {
	if tr.ChildrenFiltered("th").Length() > 0 {
		return domain.Posting{}, false
	}
	cells := tr.ChildrenFiltered("td")
	if cells.Length() < 4 {
		return domain.Posting{}, false
	}

	companyText := util.CleanText(cells.Eq(0).Text())
	if strings.EqualFold(util.StripEmoji(companyText), "company") {
		return domain.Posting{}, false
	}
	company := util.StripEmoji(companyText)
	subsidiary := strings.Contains(companyText, SubsidiaryMarker)
	if subsidiary {
		company = st.lastCompany
	} else if company != "" {
		st.lastCompany = company
	}

	appCell := cells.Eq(3)
	cls := classify.Classify(util.CleanText(cells.Eq(1).Text()))
	flags := cls.
		Merge(classify.Classify(companyText)).
		Merge(classify.Classify(util.CleanText(appCell.Text())))
	role := util.StripEmoji(cls.CleanRole)

	if company == "" || role == "" {
		return domain.Posting{}, false
	}

	datePosted := "Unknown"
	if cells.Length() > 4 {
		if age := formatAge(util.CleanText(cells.Eq(4).Text())); age != "" {
			datePosted = age
		}
	}

	posting := domain.Posting{
		Company:             company,
		Role:                role,
		Category:            string(category.Categorize(role)),
		Locations:           locations(cells.Eq(2)),
		ApplicationLink:     p.applicationLink(appCell),
		DatePosted:          datePosted,
		RequiresCitizenship: flags.RequiresCitizenship,
		NoSponsorship:       flags.NoSponsorship,
		IsSubsidiary:        subsidiary,
		IsFreshmanFriendly:  !classify.AdvancedDegree(tr.Text()),
		IsClosed:            flags.IsClosed,
		Source:              p.cfg.Source,
		SourcePriority:      p.cfg.Priority,
		SourceIndex:         st.index,
	}
	st.index++
	return posting, true
}

// applicationLink prefers the anchor wrapping the "Apply" button image and
// falls back to the first other anchor. Aggregator links are skipped.
func (p *Parser) applicationLink(cell *goquery.Selection) string {
	var preferred, fallback string
	cell.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" || util.HostUnder(href, p.cfg.AggregatorDomain) {
			return true
		}
		isApply := false
		a.Find("img").Each(func(_ int, img *goquery.Selection) {
			if strings.EqualFold(strings.TrimSpace(img.AttrOr("alt", "")), "apply") {
				isApply = true
			}
		})
		if isApply {
			preferred = href
			return false
		}
		if fallback == "" {
			fallback = href
		}
		return true
	})
	if preferred != "" {
		return preferred
	}
	return fallback
}

func locations(cell *goquery.Selection) []string {
	target := cell
	if details := cell.Find("details").First(); details.Length() > 0 {
		target = details.Clone()
		target.Find("summary").Remove()
	}
	inner, err := target.Html()
	if err != nil {
		return []string{"Remote"}
	}
	if locs := util.SplitBreaks(inner); len(locs) > 0 {
		return locs
	}
	return []string{"Remote"}
}

func formatAge(s string) string {
	if m := daysAgoRe.FindStringSubmatch(s); m != nil {
		return m[1] + " days ago"
	}
	if m := monthsAgoRe.FindStringSubmatch(s); m != nil {
		return m[1] + " months ago"
	}
	return s
}
