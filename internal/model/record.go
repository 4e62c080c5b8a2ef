package model

import (
	"encoding/json"

	"github.com/sells-group/cre-extract/internal/schema"
)

// Method identifies which strategy ultimately produced a record.
type Method string

const (
	MethodGenerative      Method = "generative"
	MethodPattern         Method = "pattern"
	MethodPatternFallback Method = "pattern_fallback"
)

// Document is the engine's input: plain text already produced by an external
// document-to-text collaborator, plus the originating file's declared type.
type Document struct {
	Name string
	Type string // pdf, word, excel, text
	Text string
}

// Result is a single extracted scalar datum. Citation is nil whenever Value
// is nil: a strategy never invents evidence for a value it did not extract.
type Result struct {
	Value    any     `json:"value"`
	Unit     *string `json:"unit"`
	Citation *string `json:"citation"`
}

// Item is one element of a list field. Key is the schema-declared item key
// ("name" for tenants, "risk" for risks) and is not serialized itself.
type Item struct {
	Key      string
	Value    any
	Unit     *string
	Citation *string
}

// MarshalJSON serializes the item as {"<key>": value, "unit": u, "citation": c}.
func (it Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		it.Key:     it.Value,
		"unit":     it.Unit,
		"citation": it.Citation,
	})
}

// CategoryResult holds one category's extracted fields.
type CategoryResult struct {
	Scalars map[string]Result
	Lists   map[string][]Item
}

// Metadata is the record's quality block, computed once by the scorer after
// the record is fully populated.
type Metadata struct {
	ConfidenceScore         float64  `json:"confidence_score"`
	CitationCoveragePercent float64  `json:"citation_coverage_percent"`
	FieldsWithCitations     int      `json:"fields_with_citations"`
	FieldsWithoutCitations  int      `json:"fields_without_citations"`
	MissingFields           []string `json:"missing_fields"`
	ExtractionMethod        Method   `json:"extraction_method"`
}

// Record is the full extraction output: one CategoryResult per schema
// category plus metadata. Created fresh per document and populated in one
// pass by exactly one strategy.
type Record struct {
	Categories map[string]*CategoryResult
	Metadata   Metadata
}

// NewRecord builds a record with every schema field pre-populated: scalars
// as null results, lists as empty (non-nil) slices. An empty list means "no
// items found", distinct from "field not attempted".
func NewRecord(s *schema.Schema) *Record {
	r := &Record{Categories: make(map[string]*CategoryResult, len(s.Categories))}
	for ci := range s.Categories {
		c := &s.Categories[ci]
		cr := &CategoryResult{
			Scalars: make(map[string]Result),
			Lists:   make(map[string][]Item),
		}
		for fi := range c.Fields {
			f := &c.Fields[fi]
			if f.Card == schema.CardList {
				cr.Lists[f.Name] = []Item{}
			} else {
				cr.Scalars[f.Name] = Result{}
			}
		}
		r.Categories[c.Name] = cr
	}
	return r
}

// Scalar returns the result stored at (category, field); zero Result if absent.
func (r *Record) Scalar(category, field string) Result {
	if cr, ok := r.Categories[category]; ok {
		return cr.Scalars[field]
	}
	return Result{}
}

// SetScalar stores a scalar result.
func (r *Record) SetScalar(category, field string, res Result) {
	if cr, ok := r.Categories[category]; ok {
		cr.Scalars[field] = res
	}
}

// Items returns the list stored at (category, field); nil if absent.
func (r *Record) Items(category, field string) []Item {
	if cr, ok := r.Categories[category]; ok {
		return cr.Lists[field]
	}
	return nil
}

// SetItems stores a list field's items. A nil slice is stored as empty.
func (r *Record) SetItems(category, field string, items []Item) {
	if cr, ok := r.Categories[category]; ok {
		if items == nil {
			items = []Item{}
		}
		cr.Lists[field] = items
	}
}

// MarshalJSON serializes the record to the engine's output shape: one
// top-level key per category plus extraction_metadata.
func (r *Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Categories)+1)
	for name, cr := range r.Categories {
		fields := make(map[string]any, len(cr.Scalars)+len(cr.Lists))
		for f, res := range cr.Scalars {
			fields[f] = res
		}
		for f, items := range cr.Lists {
			if items == nil {
				items = []Item{}
			}
			fields[f] = items
		}
		out[name] = fields
	}
	out["extraction_metadata"] = r.Metadata
	return json.Marshal(out)
}
