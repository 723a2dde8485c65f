package markdown

import (
	"strings"

	"go.uber.org/zap"

	"internhub-engine/internal/category"
	"internhub-engine/internal/classify"
	"internhub-engine/internal/domain"
	"internhub-engine/internal/logging"
	"internhub-engine/internal/scrape/util"
)

const (
	DefaultHeader    = "| Company | Role | Location | Application/Link | Date Posted |"
	SubsidiaryMarker = "↳"
)

type Config struct {
	Source   string
	Priority int
	// Header is the column signature that opens the table.
	Header string
}

type Parser struct {
	cfg    Config
	header []string
	log    *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Parser {
	if strings.TrimSpace(cfg.Header) == "" {
		cfg.Header = DefaultHeader
	}
	return &Parser{
		cfg:    cfg,
		header: splitRow(cfg.Header),
		log:    logging.OrNop(logger).Named("parse.markdown").With(zap.String("source", cfg.Source)),
	}
}

// rowState is threaded through the row loop.
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

	lines := strings.Split(body, "\n")
	headerAt := -1
	for i, line := range lines {
		if p.isHeader(line) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		p.log.Warn("table header not found")
		return nil
	}

	var st rowState
	for i := headerAt + 2; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "|") {
			break
		}
		if isSeparator(line) {
			continue
		}
		if posting, ok := p.parseRow(line, &st); ok {
			out = append(out, posting)
		}
	}

	p.log.Info("parsed", zap.Int("postings", len(out)), zap.Int("header_line", headerAt))
	return out
}

func (p *Parser) isHeader(line string) bool {
	cells := splitRow(line)
	if len(cells) != len(p.header) {
		return false
	}
	for i := range cells {
		if !strings.EqualFold(cells[i], p.header[i]) {
			return false
		}
	}
	return true
}

func (p *Parser) parseRow(line string, st *rowState) (domain.Posting, bool) {
	cells := splitRow(line)
	if len(cells) < 4 {
		return domain.Posting{}, false
	}
	companyRaw, roleRaw, locationRaw, appRaw := cells[0], cells[1], cells[2], cells[3]

	company := util.ExtractText(companyRaw)
	subsidiary := strings.Contains(companyRaw, SubsidiaryMarker)
	if subsidiary {
		company = st.lastCompany
	} else if company != "" {
		st.lastCompany = company
	}

	cls := classify.Classify(util.StripMarkup(roleRaw))
	flags := cls.
		Merge(classify.Classify(util.StripMarkup(companyRaw))).
		Merge(classify.Classify(util.StripMarkup(appRaw)))
	role := util.StripEmoji(cls.CleanRole)

	if company == "" || role == "" {
		return domain.Posting{}, false
	}

	datePosted := "Unknown"
	if len(cells) > 4 {
		if d := util.ExtractText(cells[4]); d != "" {
			datePosted = d
		}
	}

	posting := domain.Posting{
		Company:             company,
		Role:                role,
		Category:            string(category.Categorize(role)),
		Locations:           util.ParseLocations(locationRaw),
		ApplicationLink:     util.ExtractLink(appRaw),
		DatePosted:          datePosted,
		RequiresCitizenship: flags.RequiresCitizenship,
		NoSponsorship:       flags.NoSponsorship,
		IsSubsidiary:        subsidiary,
		IsFreshmanFriendly:  flags.IsFreshmanFriendly,
		IsClosed:            flags.IsClosed,
		Source:              p.cfg.Source,
		SourcePriority:      p.cfg.Priority,
		SourceIndex:         st.index,
	}
	st.index++
	return posting, true
}

func isSeparator(line string) bool {
	return strings.Trim(line, "|-: \t") == ""
}

// splitRow drops the outer pipes only; empty inner cells keep their column.
func splitRow(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	if strings.TrimSpace(line) == "" {
		return nil
	}
	parts := strings.Split(line, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
