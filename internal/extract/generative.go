package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/cre-extract/internal/config"
	"github.com/sells-group/cre-extract/internal/model"
	"github.com/sells-group/cre-extract/internal/resilience"
	"github.com/sells-group/cre-extract/internal/schema"
	"github.com/sells-group/cre-extract/pkg/anthropic"
)

// chunkConcurrency limits concurrent per-chunk CreateMessage calls.
const chunkConcurrency = 4

const generativeSystemText = `You are an expert commercial real estate analyst extracting underwriting data from documents.

CRITICAL REQUIREMENTS:
1. For EVERY non-null value, include a verbatim citation snippet (25-150 characters) from the document.
2. If a field is not supported by document text, set value to null and citation to null.
3. Never fabricate numeric values.
4. Convert currency values to numbers (remove $ and commas). Convert percentages to numbers (5.5% -> 5.5) and set unit to "%".
5. Include a unit when the document provides one (USD, SF, acres, %); otherwise set unit to null.
6. Use exactly the declared category and field keys. Return only a JSON object matching the schema.`

const generativePrompt = `Extract structured CRE data from the following document text. For each field return value, unit, and citation.

Response JSON schema:
%s

Document text:
%s

Remember: EVERY non-null value must have a corresponding citation snippet from the document.`

// GenerativeStrategy delegates extraction to the Anthropic API, constrained
// to the schema's response shape. Any whole-attempt failure surfaces as a
// StrategyError so the coordinator can fall back.
type GenerativeStrategy struct {
	client       anthropic.Client
	schema       *schema.Schema
	compiled     *jsonschema.Schema
	schemaJSON   string
	model        string
	maxTokens    int64
	timeout      time.Duration
	contextChars int
	maxItems     int
	limiter      *rate.Limiter
}

// NewGenerativeStrategy builds the generative strategy. The client may be nil
// when the service is unconfigured; Extract then fails immediately and the
// coordinator falls back.
func NewGenerativeStrategy(client anthropic.Client, s *schema.Schema, cfg *config.Config) (*GenerativeStrategy, error) {
	maxItems := cfg.Extract.MaxListItems
	if maxItems <= 0 {
		maxItems = 10
	}
	contextChars := cfg.Extract.MaxContextChars
	if contextChars <= 0 {
		contextChars = 16000
	}
	timeout := time.Duration(cfg.Anthropic.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	rps := cfg.Anthropic.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	maxTokens := int64(cfg.Anthropic.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	raw, err := json.Marshal(s.ResponseSchema(maxItems))
	if err != nil {
		return nil, eris.Wrap(err, "generative: marshal response schema")
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("response.json", bytes.NewReader(raw)); err != nil {
		return nil, eris.Wrap(err, "generative: add response schema")
	}
	compiled, err := compiler.Compile("response.json")
	if err != nil {
		return nil, eris.Wrap(err, "generative: compile response schema")
	}

	return &GenerativeStrategy{
		client:       client,
		schema:       s,
		compiled:     compiled,
		schemaJSON:   string(raw),
		model:        cfg.Anthropic.Model,
		maxTokens:    maxTokens,
		timeout:      timeout,
		contextChars: contextChars,
		maxItems:     maxItems,
		limiter:      rate.NewLimiter(rate.Limit(rps), 1),
	}, nil
}

// Name implements Strategy.
func (g *GenerativeStrategy) Name() string { return "generative" }

// Extract implements Strategy. Oversized documents are split on paragraph
// boundaries and extracted per chunk concurrently; any single chunk failure
// fails the whole attempt. Chunk results merge deterministically in chunk
// order: first non-null wins per scalar, lists concatenate with dedup.
func (g *GenerativeStrategy) Extract(ctx context.Context, doc model.Document) (*model.Record, error) {
	if g.client == nil {
		return nil, strategyFailure(g.Name(), "service not configured", nil)
	}

	text := strings.TrimSpace(doc.Text)
	if text == "" {
		return model.NewRecord(g.schema), nil
	}

	chunks := chunkText(text, g.contextChars)
	if len(chunks) == 1 {
		return g.extractChunk(ctx, chunks[0])
	}

	zap.L().Info("generative: chunked extraction",
		zap.String("document", doc.Name),
		zap.Int("chunks", len(chunks)),
	)

	records := make([]*model.Record, len(chunks))
	grp, gCtx := errgroup.WithContext(ctx)
	grp.SetLimit(chunkConcurrency)
	for i, chunk := range chunks {
		grp.Go(func() error {
			rec, err := g.extractChunk(gCtx, chunk)
			if err != nil {
				return err
			}
			records[i] = rec
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		if _, ok := err.(*StrategyError); ok {
			return nil, err
		}
		return nil, strategyFailure(g.Name(), "chunk extraction", err)
	}

	return g.merge(records), nil
}

// extractChunk issues one rate-limited, schema-validated request.
func (g *GenerativeStrategy) extractChunk(ctx context.Context, chunk string) (*model.Record, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, strategyFailure(g.Name(), "rate limiter", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req := anthropic.MessageRequest{
		Model:     g.model,
		MaxTokens: g.maxTokens,
		System:    generativeSystemText,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(generativePrompt, g.schemaJSON, chunk)},
		},
	}

	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.OnRetry = func(attempt int, err error) {
		zap.L().Warn("generative: transient error, retrying",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	resp, err := resilience.DoVal(reqCtx, retryCfg, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return g.client.CreateMessage(ctx, req)
	})
	if err != nil {
		return nil, strategyFailure(g.Name(), "create message", err)
	}
	resp.Usage.LogCost(g.model, "extract")

	cleaned := cleanJSON(extractText(resp))
	var raw any
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, strategyFailure(g.Name(), "parse response JSON", err)
	}
	if err := g.compiled.Validate(raw); err != nil {
		return nil, strategyFailure(g.Name(), "response schema validation", err)
	}

	rawMap, ok := raw.(map[string]any)
	if !ok {
		return nil, strategyFailure(g.Name(), "response is not a JSON object", nil)
	}
	return g.decode(rawMap), nil
}

// decode walks the validated response into a record. Per-field contract
// violations (a value with no citation) self-heal to null rather than
// failing the record.
func (g *GenerativeStrategy) decode(raw map[string]any) *model.Record {
	rec := model.NewRecord(g.schema)
	for _, leaf := range g.schema.Leaves() {
		catMap, _ := raw[leaf.Category].(map[string]any)
		if catMap == nil {
			continue
		}
		if leaf.Field.Card == schema.CardList {
			rec.SetItems(leaf.Category, leaf.Field.Name, g.decodeList(catMap[leaf.Field.Name], leaf))
			continue
		}
		rec.SetScalar(leaf.Category, leaf.Field.Name, g.decodeScalar(catMap[leaf.Field.Name], leaf))
	}
	return rec
}

func (g *GenerativeStrategy) decodeScalar(v any, leaf schema.Leaf) model.Result {
	fm, _ := v.(map[string]any)
	if fm == nil {
		return model.Result{}
	}
	value, ok := coerceJSON(fm["value"], leaf.Field)
	if !ok {
		return model.Result{}
	}
	citation := stringOrNil(fm["citation"])
	if citation == nil {
		// Contract violation: value without evidence. Downgrade the field,
		// keep the rest of the record.
		zap.L().Warn("generative: value without citation, nulling field",
			zap.String("field", leaf.Path()),
		)
		return model.Result{}
	}
	return model.Result{Value: value, Unit: stringOrNil(fm["unit"]), Citation: citation}
}

func (g *GenerativeStrategy) decodeList(v any, leaf schema.Leaf) []model.Item {
	arr, _ := v.([]any)
	items := []model.Item{}
	seen := make(map[string]bool, len(arr))
	for _, el := range arr {
		if len(items) >= g.maxItems {
			break
		}
		im, _ := el.(map[string]any)
		if im == nil {
			continue
		}
		value, ok := coerceJSON(im[leaf.Field.ItemKey], leaf.Field)
		if !ok {
			continue
		}
		citation := stringOrNil(im["citation"])
		if citation == nil {
			// Downgraded item: kept so the scorer counts the violation.
			zap.L().Warn("generative: list item without citation, nulling item",
				zap.String("field", leaf.Path()),
			)
			items = append(items, model.Item{Key: leaf.Field.ItemKey})
			continue
		}
		key := strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", value)))
		if seen[key] {
			continue
		}
		seen[key] = true
		items = append(items, model.Item{
			Key:      leaf.Field.ItemKey,
			Value:    value,
			Unit:     stringOrNil(im["unit"]),
			Citation: citation,
		})
	}
	return items
}

// merge folds per-chunk records into one, in chunk order.
func (g *GenerativeStrategy) merge(records []*model.Record) *model.Record {
	merged := model.NewRecord(g.schema)
	for _, leaf := range g.schema.Leaves() {
		if leaf.Field.Card == schema.CardList {
			seen := make(map[string]bool)
			items := []model.Item{}
			for _, rec := range records {
				for _, it := range rec.Items(leaf.Category, leaf.Field.Name) {
					if len(items) >= g.maxItems {
						break
					}
					key := strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", it.Value)))
					if it.Value != nil && seen[key] {
						continue
					}
					seen[key] = true
					items = append(items, it)
				}
			}
			merged.SetItems(leaf.Category, leaf.Field.Name, items)
			continue
		}
		for _, rec := range records {
			if res := rec.Scalar(leaf.Category, leaf.Field.Name); res.Value != nil {
				merged.SetScalar(leaf.Category, leaf.Field.Name, res)
				break
			}
		}
	}
	return merged
}

// coerceJSON converts a decoded JSON value to the field's declared type.
// Returns (nil, false) for null or mistyped values.
func coerceJSON(v any, f *schema.Field) (any, bool) {
	if v == nil {
		return nil, false
	}
	switch f.Type {
	case schema.TypeInteger:
		n, ok := v.(float64)
		if !ok || n != float64(int(n)) {
			return nil, false
		}
		return int(n), true
	case schema.TypeDecimal, schema.TypePercent:
		n, ok := v.(float64)
		if !ok {
			return nil, false
		}
		return n, true
	case schema.TypeEnum:
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		return matchEnum(s, f.Enum)
	default:
		s, ok := v.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return nil, false
		}
		return s, true
	}
}

// stringOrNil returns a pointer to v when it is a non-empty string.
func stringOrNil(v any) *string {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// chunkText splits text into chunks no larger than budget, preferring
// paragraph boundaries. A single paragraph larger than the budget is split
// hard at the budget.
func chunkText(text string, budget int) []string {
	if len(text) <= budget {
		return []string{text}
	}

	paragraphs := strings.Split(text, "\n\n")
	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}

	for _, p := range paragraphs {
		// Oversized paragraph: hard-split at the budget, snapping the cut
		// back to a rune boundary.
		for len(p) > budget {
			flush()
			cut := budget
			for cut > 0 && !utf8.RuneStart(p[cut]) {
				cut--
			}
			if cut == 0 {
				cut = budget
			}
			chunks = append(chunks, p[:cut])
			p = p[cut:]
		}
		if current.Len()+len(p)+2 > budget {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
	}
	flush()

	return chunks
}

// extractText concatenates all text content blocks.
func extractText(resp *anthropic.MessageResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "" || b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

// cleanJSON strips markdown fences, extracts the JSON object, and repairs
// truncation.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return repairTruncatedJSON(strings.TrimSpace(text))
}

// repairTruncatedJSON closes any unclosed brackets or braces in truncated JSON.
func repairTruncatedJSON(text string) string {
	if len(text) == 0 {
		return text
	}

	// Track open delimiters in order.
	var stack []byte
	inString := false
	escape := false

	for i := 0; i < len(text); i++ {
		c := text[i]

		if escape {
			escape = false
			continue
		}
		if c == '\\' && inString {
			escape = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch c {
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}

	// Close unclosed delimiters in reverse order.
	for i := len(stack) - 1; i >= 0; i-- {
		text = strings.TrimRight(text, " \t\n\r,")
		text += string(stack[i])
	}

	return text
}
