package extract

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cre-extract/internal/config"
	"github.com/sells-group/cre-extract/internal/model"
	"github.com/sells-group/cre-extract/internal/schema"
	"github.com/sells-group/cre-extract/internal/scorer"
)

// Engine coordinates the extraction strategies for a document: generative
// first when enabled, pattern as primary otherwise or as fallback when the
// generative attempt fails. Exactly one strategy populates each record; a
// failed strategy is never retried within a run.
type Engine struct {
	schema     *schema.Schema
	pattern    Strategy
	generative Strategy

	useGenerative  bool
	enableFallback bool
}

// NewEngine wires the strategies under cfg's toggles. generative may be nil
// when no client is configured; the engine then runs pattern-only regardless
// of the use_generative setting.
func NewEngine(s *schema.Schema, pattern, generative Strategy, cfg *config.Config) *Engine {
	return &Engine{
		schema:         s,
		pattern:        pattern,
		generative:     generative,
		useGenerative:  cfg.Extract.UseGenerative,
		enableFallback: cfg.Extract.EnableFallback,
	}
}

// Extract runs the configured strategy chain on doc and returns a fully
// scored record. The error return is non-nil only when every permitted
// strategy failed.
func (e *Engine) Extract(ctx context.Context, doc model.Document) (*model.Record, error) {
	if e.useGenerative && e.generative != nil {
		rec, err := e.generative.Extract(ctx, doc)
		if err == nil {
			return e.finish(rec, model.MethodGenerative), nil
		}

		zap.L().Warn("generative extraction failed",
			zap.String("document", doc.Name),
			zap.Error(err),
		)
		if ctx.Err() != nil {
			return nil, eris.Wrapf(err, "extract: run cancelled during generative strategy for %q", doc.Name)
		}
		if !e.enableFallback {
			return nil, eris.Wrapf(err, "extract: generative strategy failed for %q and fallback is disabled", doc.Name)
		}

		rec, err = e.pattern.Extract(ctx, doc)
		if err != nil {
			return nil, eris.Wrapf(err, "extract: all strategies failed for %q", doc.Name)
		}
		return e.finish(rec, model.MethodPatternFallback), nil
	}

	rec, err := e.pattern.Extract(ctx, doc)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: pattern strategy failed for %q", doc.Name)
	}
	return e.finish(rec, model.MethodPattern), nil
}

// finish scores the record and stamps the producing method.
func (e *Engine) finish(rec *model.Record, method model.Method) *model.Record {
	md := scorer.Score(rec, e.schema)
	md.ExtractionMethod = method
	rec.Metadata = md
	return rec
}
