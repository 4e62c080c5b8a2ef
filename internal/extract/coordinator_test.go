package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cre-extract/internal/config"
	"github.com/sells-group/cre-extract/internal/model"
	"github.com/sells-group/cre-extract/internal/schema"
)

// stubStrategy returns a fixed record or error and counts invocations.
type stubStrategy struct {
	name  string
	rec   *model.Record
	err   error
	calls int
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Extract(_ context.Context, _ model.Document) (*model.Record, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.rec, nil
}

func engineConfig(useGenerative, enableFallback bool) *config.Config {
	return &config.Config{
		Extract: config.ExtractConfig{
			UseGenerative:  useGenerative,
			EnableFallback: enableFallback,
		},
	}
}

func TestEngineExtract_GenerativeSuccess(t *testing.T) {
	t.Parallel()

	s := schema.Default()
	gen := &stubStrategy{name: "generative", rec: model.NewRecord(s)}
	pat := &stubStrategy{name: "pattern", rec: model.NewRecord(s)}

	e := NewEngine(s, pat, gen, engineConfig(true, true))
	rec, err := e.Extract(context.Background(), model.Document{Name: "memo.txt", Text: "doc"})
	require.NoError(t, err)

	assert.Equal(t, model.MethodGenerative, rec.Metadata.ExtractionMethod)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, 0, pat.calls)
}

func TestEngineExtract_FallbackOnGenerativeFailure(t *testing.T) {
	t.Parallel()

	s := schema.Default()
	gen := &stubStrategy{name: "generative", err: strategyFailure("generative", "service unreachable", nil)}
	pat := &stubStrategy{name: "pattern", rec: model.NewRecord(s)}

	e := NewEngine(s, pat, gen, engineConfig(true, true))
	rec, err := e.Extract(context.Background(), model.Document{Name: "memo.txt", Text: "doc"})
	require.NoError(t, err)

	assert.Equal(t, model.MethodPatternFallback, rec.Metadata.ExtractionMethod)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, 1, pat.calls)
}

func TestEngineExtract_FallbackDisabled(t *testing.T) {
	t.Parallel()

	s := schema.Default()
	gen := &stubStrategy{name: "generative", err: strategyFailure("generative", "service unreachable", nil)}
	pat := &stubStrategy{name: "pattern", rec: model.NewRecord(s)}

	e := NewEngine(s, pat, gen, engineConfig(true, false))
	_, err := e.Extract(context.Background(), model.Document{Name: "memo.txt", Text: "doc"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "memo.txt")
	assert.Equal(t, 0, pat.calls)
}

func TestEngineExtract_CancelledRunDoesNotFallBack(t *testing.T) {
	t.Parallel()

	s := schema.Default()
	gen := &stubStrategy{name: "generative", err: strategyFailure("generative", "create message", context.Canceled)}
	pat := &stubStrategy{name: "pattern", rec: model.NewRecord(s)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewEngine(s, pat, gen, engineConfig(true, true))
	_, err := e.Extract(ctx, model.Document{Name: "memo.txt", Text: "doc"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled")
	assert.Equal(t, 0, pat.calls)
}

func TestEngineExtract_PatternPrimary(t *testing.T) {
	t.Parallel()

	s := schema.Default()
	gen := &stubStrategy{name: "generative", rec: model.NewRecord(s)}
	pat := &stubStrategy{name: "pattern", rec: model.NewRecord(s)}

	e := NewEngine(s, pat, gen, engineConfig(false, true))
	rec, err := e.Extract(context.Background(), model.Document{Text: "doc"})
	require.NoError(t, err)

	assert.Equal(t, model.MethodPattern, rec.Metadata.ExtractionMethod)
	assert.Equal(t, 0, gen.calls)
	assert.Equal(t, 1, pat.calls)
}

func TestEngineExtract_NilGenerativeRunsPattern(t *testing.T) {
	t.Parallel()

	s := schema.Default()
	pat := &stubStrategy{name: "pattern", rec: model.NewRecord(s)}

	e := NewEngine(s, pat, nil, engineConfig(true, true))
	rec, err := e.Extract(context.Background(), model.Document{Text: "doc"})
	require.NoError(t, err)
	assert.Equal(t, model.MethodPattern, rec.Metadata.ExtractionMethod)
}

func TestEngineExtract_ScoresRecord(t *testing.T) {
	t.Parallel()

	s := schema.Default()
	rec := model.NewRecord(s)
	cit := "Cap Rate: 5.5%"
	rec.SetScalar("financial_metrics", "cap_rate", model.Result{Value: 5.5, Citation: &cit})
	pat := &stubStrategy{name: "pattern", rec: rec}

	e := NewEngine(s, pat, nil, engineConfig(false, true))
	got, err := e.Extract(context.Background(), model.Document{Text: "doc"})
	require.NoError(t, err)

	assert.Greater(t, got.Metadata.ConfidenceScore, 0.0)
	assert.Equal(t, 1, got.Metadata.FieldsWithCitations)
	assert.NotContains(t, got.Metadata.MissingFields, "financial_metrics.cap_rate")
}

// End-to-end: a failing generative strategy falls back to real pattern
// extraction and yields a non-empty record.
func TestEngineExtract_FallbackFindsPatternMatches(t *testing.T) {
	t.Parallel()

	s := schema.Default()
	gen := &stubStrategy{name: "generative", err: strategyFailure("generative", "simulated network error", nil)}
	pat := NewPatternStrategy(s, config.ExtractConfig{CitationWindowChars: 50, MaxListItems: 10})

	e := NewEngine(s, pat, gen, engineConfig(true, true))
	rec, err := e.Extract(context.Background(), model.Document{
		Name: "memo.txt",
		Text: "Net Operating Income: $2,500,000 as reported for the trailing twelve months.",
	})
	require.NoError(t, err)

	assert.Equal(t, model.MethodPatternFallback, rec.Metadata.ExtractionMethod)
	assert.Equal(t, 2500000.0, rec.Scalar("financial_metrics", "noi_annual").Value)
}
