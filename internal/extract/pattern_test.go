package extract

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cre-extract/internal/config"
	"github.com/sells-group/cre-extract/internal/model"
	"github.com/sells-group/cre-extract/internal/schema"
	"github.com/sells-group/cre-extract/internal/scorer"
)

const offeringMemo = `OFFERING MEMORANDUM

Property Address: 4500 Congress Avenue, Austin, TX 78701
Property Type: Class A Office Building
Square Feet: 125,000
Year Built: 2015
Occupancy Rate: 92.5%

Net Operating Income: $2,500,000 as reported for fiscal year 2025.
Purchase Price: $40,000,000
Interest Rate: 6.25%
Loan Amount: $28,000,000
Lender: First National Bank

Major Tenant: TechCorp Inc
Major Tenant: Westlake Legal Group
Major Tenant: TECHCORP INC

Risk Factor: Lease rollover concentration in 2027
Market: Austin-Round Rock
Submarket: CBD`

func newPatternStrategy() *PatternStrategy {
	return NewPatternStrategy(schema.Default(), config.ExtractConfig{
		CitationWindowChars: 50,
		MaxListItems:        10,
	})
}

func TestPatternExtract(t *testing.T) {
	t.Parallel()

	p := newPatternStrategy()
	doc := model.Document{Name: "memo.txt", Type: "text", Text: offeringMemo}

	rec, err := p.Extract(context.Background(), doc)
	require.NoError(t, err)

	t.Run("currency value coerced to number with citation", func(t *testing.T) {
		t.Parallel()
		res := rec.Scalar("financial_metrics", "noi_annual")
		assert.Equal(t, 2500000.0, res.Value)
		require.NotNil(t, res.Citation)
		assert.Contains(t, *res.Citation, "Net Operating Income: $2,500,000")
	})

	t.Run("integer and percent coercion", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 2015, rec.Scalar("property_details", "year_built").Value)
		assert.Equal(t, 92.5, rec.Scalar("property_details", "occupancy_rate").Value)
		assert.Equal(t, 6.25, rec.Scalar("loan_details", "interest_rate").Value)
	})

	t.Run("enum normalized by containment", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "office", rec.Scalar("property_details", "property_type").Value)
	})

	t.Run("text fields keep full line", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "4500 Congress Avenue, Austin, TX 78701",
			rec.Scalar("property_details", "property_address").Value)
		assert.Equal(t, "First National Bank", rec.Scalar("loan_details", "lender").Value)
		assert.Equal(t, "CBD", rec.Scalar("market_analysis", "submarket").Value)
	})

	t.Run("absent field resolves to null", func(t *testing.T) {
		t.Parallel()
		res := rec.Scalar("financial_metrics", "cap_rate")
		assert.Nil(t, res.Value)
		assert.Nil(t, res.Citation)
	})

	t.Run("list dedups case-insensitively in document order", func(t *testing.T) {
		t.Parallel()
		tenants := rec.Items("tenant_information", "major_tenants")
		require.Len(t, tenants, 2)
		assert.Equal(t, "TechCorp Inc", tenants[0].Value)
		assert.Equal(t, "Westlake Legal Group", tenants[1].Value)
		require.NotNil(t, tenants[0].Citation)
		require.NotNil(t, tenants[1].Citation)
	})

	t.Run("risks collected with citations", func(t *testing.T) {
		t.Parallel()
		risks := rec.Items("risk_assessment", "identified_risks")
		require.Len(t, risks, 1)
		assert.Equal(t, "Lease rollover concentration in 2027", risks[0].Value)
	})
}

func TestPatternExtract_MissingFields(t *testing.T) {
	t.Parallel()

	p := newPatternStrategy()
	s := schema.Default()
	doc := model.Document{Name: "memo.txt", Text: offeringMemo}

	rec, err := p.Extract(context.Background(), doc)
	require.NoError(t, err)
	md := scorer.Score(rec, s)

	assert.Contains(t, md.MissingFields, "financial_metrics.cap_rate")
	assert.NotContains(t, md.MissingFields, "financial_metrics.noi_annual")
	assert.Contains(t, md.MissingFields, "market_analysis.comparable_properties")
}

func TestPatternExtract_UnconvertibleMatchResolvesNull(t *testing.T) {
	t.Parallel()

	p := newPatternStrategy()
	doc := model.Document{Text: "Property Type: Luxury Boutique Resort"}

	rec, err := p.Extract(context.Background(), doc)
	require.NoError(t, err)

	res := rec.Scalar("property_details", "property_type")
	assert.Nil(t, res.Value)
	assert.Nil(t, res.Citation)
}

func TestPatternExtract_Idempotent(t *testing.T) {
	t.Parallel()

	p := newPatternStrategy()
	doc := model.Document{Name: "memo.txt", Text: offeringMemo}

	first, err := p.Extract(context.Background(), doc)
	require.NoError(t, err)
	second, err := p.Extract(context.Background(), doc)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPatternExtract_EmptyDocument(t *testing.T) {
	t.Parallel()

	p := newPatternStrategy()
	rec, err := p.Extract(context.Background(), model.Document{Text: ""})
	require.NoError(t, err)

	for _, leaf := range schema.Default().Leaves() {
		if leaf.Field.Card == schema.CardList {
			assert.Empty(t, rec.Items(leaf.Category, leaf.Field.Name))
			continue
		}
		assert.Nil(t, rec.Scalar(leaf.Category, leaf.Field.Name).Value, leaf.Path())
	}
}

func TestCitationWindow(t *testing.T) {
	t.Parallel()

	text := "aaaa Net Operating Income: $2,500,000 bbbb"

	t.Run("clamps at document boundaries", func(t *testing.T) {
		t.Parallel()
		got := citationWindow(text, 5, 37, 50)
		assert.Equal(t, "aaaa Net Operating Income: $2,500,000 bbbb", got)
	})

	t.Run("narrow window trims context", func(t *testing.T) {
		t.Parallel()
		got := citationWindow(text, 5, 37, 2)
		assert.Equal(t, "a Net Operating Income: $2,500,000 b", got)
	})

	t.Run("normalizes internal whitespace", func(t *testing.T) {
		t.Parallel()
		got := citationWindow("NOI:\n\t$500", 0, 10, 0)
		assert.Equal(t, "NOI: $500", got)
	})

	t.Run("window start snaps to rune boundary", func(t *testing.T) {
		t.Parallel()
		// 60-byte multibyte prefix; a 49-byte window would land mid-rune.
		multibyte := strings.Repeat("é", 30) + "NOI: $2,500,000"
		got := citationWindow(multibyte, 60, len(multibyte), 49)
		assert.True(t, utf8.ValidString(got))
		assert.Contains(t, got, "NOI: $2,500,000")
	})

	t.Run("window end snaps to rune boundary", func(t *testing.T) {
		t.Parallel()
		multibyte := "NOI: $500" + strings.Repeat("é", 30)
		got := citationWindow(multibyte, 0, 9, 3)
		assert.True(t, utf8.ValidString(got))
		assert.Contains(t, got, "NOI: $500")
	})
}
