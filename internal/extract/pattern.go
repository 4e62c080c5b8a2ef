package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/cre-extract/internal/config"
	"github.com/sells-group/cre-extract/internal/model"
	"github.com/sells-group/cre-extract/internal/schema"
)

// fieldMatcher binds one schema field to its ordered pattern alternatives.
// Earlier alternatives represent more specific phrasings and win outright
// when they match anywhere in the document.
type fieldMatcher struct {
	category string
	field    string
	patterns []*regexp.Regexp
}

func pats(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// matcherCatalog is the fixed catalog of CRE domain patterns. Fields absent
// from the catalog simply resolve to null under the pattern strategy.
var matcherCatalog = []fieldMatcher{
	// property_details
	{"property_details", "property_address", pats(
		`(?i)\bProperty Address:\s*([^\n]+)`,
		`(?i)\bAddress:\s*([^\n]+)`,
		`(?i)\bLocation:\s*([^\n]+)`,
		`(?i)\bProperty:\s*([^\n]+)`,
	)},
	{"property_details", "property_type", pats(
		`(?i)\bProperty Type:\s*([^\n]+)`,
		`(?i)\bAsset Class:\s*([^\n]+)`,
	)},
	{"property_details", "square_footage", pats(
		`(?i)\bSquare Feet:\s*([\d,]+)`,
		`(?i)\bTotal Area:\s*([\d,]+)`,
		`(?i)\bSF:\s*([\d,]+)`,
	)},
	{"property_details", "acres", pats(
		`(?i)\bAcres:\s*([\d,.]+)`,
		`(?i)\bSite Area:\s*([\d,.]+)\s*acres`,
		`(?i)([\d,.]+)\s*acres\b`,
	)},
	{"property_details", "land_square_feet", pats(
		`(?i)\bLand Square Feet:\s*([\d,]+)`,
		`(?i)\bLand Area:\s*([\d,]+)\s*(?:SF|sq)`,
		`(?i)\bLand SF:\s*([\d,]+)`,
	)},
	{"property_details", "gross_building_area", pats(
		`(?i)\bGross Building Area:\s*([\d,]+)`,
		`(?i)\bGBA:\s*([\d,]+)`,
	)},
	{"property_details", "net_rentable_area", pats(
		`(?i)\bNet Rentable Area:\s*([\d,]+)`,
		`(?i)\bNRA:\s*([\d,]+)`,
		`(?i)\bRentable Area:\s*([\d,]+)`,
	)},
	{"property_details", "year_built", pats(
		`(?i)\bYear Built:\s*(\d{4})`,
		`(?i)\bYear Constructed:\s*(\d{4})`,
		`(?i)\bbuilt in\s*(\d{4})`,
	)},
	{"property_details", "units", pats(
		`(?i)\bNumber of Units:\s*([\d,]+)`,
		`(?i)\bTotal Units:\s*([\d,]+)`,
		`(?i)\bUnits:\s*([\d,]+)`,
	)},
	{"property_details", "occupancy_rate", pats(
		`(?i)\bOccupancy Rate:\s*([\d.]+)\s*%?`,
		`(?i)\bOccupancy:\s*([\d.]+)\s*%?`,
		`(?i)([\d.]+)%\s*occupied`,
	)},

	// financial_metrics
	{"financial_metrics", "noi_annual", pats(
		`(?i)\bNet Operating Income:\s*\$?([\d,]+(?:\.\d+)?)`,
		`(?i)\bNOI:\s*\$?([\d,]+(?:\.\d+)?)`,
	)},
	{"financial_metrics", "stabilized_noi", pats(
		`(?i)\bStabilized NOI:\s*\$?([\d,]+(?:\.\d+)?)`,
		`(?i)\bStabilized Net Operating Income:\s*\$?([\d,]+(?:\.\d+)?)`,
	)},
	{"financial_metrics", "cap_rate", pats(
		`(?i)\bCap Rate:\s*([\d.]+)\s*%?`,
		`(?i)\bCapitalization Rate:\s*([\d.]+)\s*%?`,
	)},
	{"financial_metrics", "purchase_price", pats(
		`(?i)\bPurchase Price:\s*\$?([\d,]+(?:\.\d+)?)`,
		`(?i)\bAcquisition Price:\s*\$?([\d,]+(?:\.\d+)?)`,
	)},
	{"financial_metrics", "appraised_value", pats(
		`(?i)\bAppraised Value:\s*\$?([\d,]+(?:\.\d+)?)`,
		`(?i)\bValuation:\s*\$?([\d,]+(?:\.\d+)?)`,
	)},
	{"financial_metrics", "annual_gross_income", pats(
		`(?i)\bGross Income:\s*\$?([\d,]+(?:\.\d+)?)`,
		`(?i)\bAnnual Revenue:\s*\$?([\d,]+(?:\.\d+)?)`,
	)},
	{"financial_metrics", "operating_expenses", pats(
		`(?i)\bOperating Expenses:\s*\$?([\d,]+(?:\.\d+)?)`,
		`(?i)\bOpEx:\s*\$?([\d,]+(?:\.\d+)?)`,
	)},
	{"financial_metrics", "debt_service", pats(
		`(?i)\bAnnual Debt Service:\s*\$?([\d,]+(?:\.\d+)?)`,
		`(?i)\bDebt Service:\s*\$?([\d,]+(?:\.\d+)?)`,
	)},
	{"financial_metrics", "dscr", pats(
		`(?i)\bDSCR:\s*([\d.]+)`,
		`(?i)\bDebt Service Coverage Ratio:\s*([\d.]+)`,
	)},
	{"financial_metrics", "irr", pats(
		`(?i)\bIRR:\s*([\d.]+)\s*%?`,
		`(?i)\bInternal Rate of Return:\s*([\d.]+)\s*%?`,
	)},
	{"financial_metrics", "project_cost", pats(
		`(?i)\bTotal Project Cost:\s*\$?([\d,]+(?:\.\d+)?)`,
		`(?i)\bProject Cost:\s*\$?([\d,]+(?:\.\d+)?)`,
	)},
	{"financial_metrics", "expected_exit_valuation", pats(
		`(?i)\bExpected Exit Valuation:\s*\$?([\d,]+(?:\.\d+)?)`,
		`(?i)\bExit Valuation:\s*\$?([\d,]+(?:\.\d+)?)`,
		`(?i)\bExit Value:\s*\$?([\d,]+(?:\.\d+)?)`,
	)},
	{"financial_metrics", "expected_rents", pats(
		`(?i)\bExpected Rent:\s*\$?([\d,]+(?:\.\d+)?)`,
		`(?i)\b(?:Asking|Market) Rent:\s*\$?([\d,]+(?:\.\d+)?)`,
	)},

	// loan_details
	{"loan_details", "loan_amount", pats(
		`(?i)\bLoan Amount:\s*\$?([\d,]+(?:\.\d+)?)`,
		`(?i)\bCredit Facility:\s*\$?([\d,]+(?:\.\d+)?)`,
	)},
	{"loan_details", "interest_rate", pats(
		`(?i)\bInterest Rate:\s*([\d.]+)\s*%?`,
		`(?i)\bRate:\s*([\d.]+)\s*%`,
	)},
	{"loan_details", "loan_term_years", pats(
		`(?i)\bLoan Term:\s*(\d+)\s*years?`,
		`(?i)\bAmortization Period:\s*(\d+)\s*years?`,
	)},
	{"loan_details", "loan_type", pats(
		`(?i)\bLoan Type:\s*([^\n]+)`,
		`(?i)\bFacility Type:\s*([^\n]+)`,
	)},
	{"loan_details", "lender", pats(
		`(?i)\bLender:\s*([^\n]+)`,
		`(?i)\bFinancial Institution:\s*([^\n]+)`,
	)},
	{"loan_details", "maturity_date", pats(
		`(?i)\bMaturity Date:\s*([^\n]+)`,
		`(?i)\bLoan Maturity:\s*([^\n]+)`,
	)},
	{"loan_details", "ltv", pats(
		`(?i)\bLTV:\s*([\d.]+)\s*%?`,
		`(?i)\bLoan[- ]to[- ]Value:\s*([\d.]+)\s*%?`,
	)},

	// tenant_information
	{"tenant_information", "major_tenants", pats(
		`(?i)\b(?:Major|Anchor) Tenant:\s*([^\n]+)`,
		`(?i)\bTenant:\s*([^\n]+)`,
	)},
	{"tenant_information", "lease_terms", pats(
		`(?i)\bLease Term:\s*([^\n]+)`,
		`(?i)\bRemaining Term:\s*([^\n]+)`,
	)},
	{"tenant_information", "tenant_quality", pats(
		`(?i)\bTenant Quality:\s*([^\n]+)`,
		`(?i)\bCredit Quality:\s*([^\n]+)`,
	)},

	// market_analysis
	{"market_analysis", "market", pats(
		`(?i)\bMarket:\s*([^\n]+)`,
		`(?i)\bMSA:\s*([^\n]+)`,
	)},
	{"market_analysis", "submarket", pats(
		`(?i)\bSub-?market:\s*([^\n]+)`,
	)},
	{"market_analysis", "comparable_properties", pats(
		`(?i)\bComparable:\s*([^\n]+)`,
		`(?i)\bComp:\s*([^\n]+)`,
	)},
	{"market_analysis", "market_trends", pats(
		`(?i)\bMarket Trend:\s*([^\n]+)`,
		`(?i)\bTrend:\s*([^\n]+)`,
	)},

	// risk_assessment
	{"risk_assessment", "identified_risks", pats(
		`(?i)\bRisk Factor:\s*([^\n]+)`,
		`(?i)\bRisk:\s*([^\n]+)`,
		`(?i)\bConcern:\s*([^\n]+)`,
	)},
	{"risk_assessment", "mitigation_strategies", pats(
		`(?i)\bMitigation Strategy:\s*([^\n]+)`,
		`(?i)\bMitigation:\s*([^\n]+)`,
	)},
}

// PatternStrategy deterministically mines plain text with the fixed matcher
// catalog. It cannot fail: absent matches and coercion errors resolve fields
// to null instead of raising.
type PatternStrategy struct {
	schema   *schema.Schema
	window   int
	maxItems int
}

// NewPatternStrategy builds the pattern strategy with the configured citation
// window and list cap.
func NewPatternStrategy(s *schema.Schema, cfg config.ExtractConfig) *PatternStrategy {
	window := cfg.CitationWindowChars
	if window <= 0 {
		window = 50
	}
	maxItems := cfg.MaxListItems
	if maxItems <= 0 {
		maxItems = 10
	}
	return &PatternStrategy{schema: s, window: window, maxItems: maxItems}
}

// Name implements Strategy.
func (p *PatternStrategy) Name() string { return "pattern" }

// Extract implements Strategy. Matching is first-match, not longest-match,
// so re-running on identical text yields an identical record.
func (p *PatternStrategy) Extract(_ context.Context, doc model.Document) (*model.Record, error) {
	rec := model.NewRecord(p.schema)
	for _, m := range matcherCatalog {
		f := p.schema.FieldAt(m.category, m.field)
		if f == nil {
			continue
		}
		if f.Card == schema.CardList {
			rec.SetItems(m.category, m.field, p.matchList(doc.Text, m, f))
		} else {
			rec.SetScalar(m.category, m.field, p.matchScalar(doc.Text, m, f))
		}
	}
	return rec, nil
}

// matchScalar tries each alternative in priority order and takes the first
// (earliest) match of the first alternative that matches at all.
func (p *PatternStrategy) matchScalar(text string, m fieldMatcher, f *schema.Field) model.Result {
	for _, re := range m.patterns {
		loc := re.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		raw := text[loc[2]:loc[3]]
		val, ok := coerce(raw, f)
		if !ok {
			// Matched but unconvertible: the field resolves to null rather
			// than aborting the extraction.
			return model.Result{}
		}
		cit := citationWindow(text, loc[0], loc[1], p.window)
		return model.Result{Value: val, Citation: &cit}
	}
	return model.Result{}
}

// matchList applies the winning alternative globally, collecting matches in
// document order up to the cap, deduplicated case-insensitively. Duplicates
// collapse to their first occurrence's citation.
func (p *PatternStrategy) matchList(text string, m fieldMatcher, f *schema.Field) []model.Item {
	for _, re := range m.patterns {
		locs := re.FindAllStringSubmatchIndex(text, -1)
		if len(locs) == 0 {
			continue
		}
		seen := make(map[string]bool, len(locs))
		items := []model.Item{}
		for _, loc := range locs {
			if len(items) >= p.maxItems {
				break
			}
			raw := text[loc[2]:loc[3]]
			val, ok := coerce(raw, f)
			if !ok {
				continue
			}
			key := strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", val)))
			if seen[key] {
				continue
			}
			seen[key] = true
			cit := citationWindow(text, loc[0], loc[1], p.window)
			items = append(items, model.Item{Key: f.ItemKey, Value: val, Citation: &cit})
		}
		return items
	}
	return []model.Item{}
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// citationWindow returns up to `window` characters of context on each side of
// the match, clamped at document boundaries, with internal whitespace
// normalized to single spaces so the citation reads as one line. Window edges
// snap outward to rune boundaries so multibyte text never yields a snippet
// with a torn character.
func citationWindow(text string, start, end, window int) string {
	lo := start - window
	if lo < 0 {
		lo = 0
	}
	for lo > 0 && !utf8.RuneStart(text[lo]) {
		lo--
	}
	hi := end + window
	if hi > len(text) {
		hi = len(text)
	}
	for hi < len(text) && !utf8.RuneStart(text[hi]) {
		hi++
	}
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text[lo:hi], " "))
}
