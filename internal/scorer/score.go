// Package scorer computes the quality metadata for an extraction record:
// confidence, citation coverage, and the list of fields the document did not
// yield.
package scorer

import (
	"math"

	"github.com/sells-group/cre-extract/internal/model"
	"github.com/sells-group/cre-extract/internal/schema"
)

// Score derives the metadata block for a populated record. ExtractionMethod
// is left zero for the caller to stamp.
//
// Confidence is the fraction of schema fields that produced a value, where a
// list field counts as one field and is non-null when it holds at least one
// item. Citation coverage counts every scalar plus every produced list item:
// a datum is covered when its citation is non-nil.
func Score(rec *model.Record, s *schema.Schema) model.Metadata {
	md := model.Metadata{MissingFields: []string{}}

	var filled, total int
	for _, leaf := range s.Leaves() {
		total++
		if leaf.Field.Card == schema.CardList {
			items := rec.Items(leaf.Category, leaf.Field.Name)
			if len(items) > 0 {
				filled++
			} else {
				md.MissingFields = append(md.MissingFields, leaf.Path())
			}
			for _, it := range items {
				if it.Citation != nil {
					md.FieldsWithCitations++
				} else {
					md.FieldsWithoutCitations++
				}
			}
			continue
		}

		res := rec.Scalar(leaf.Category, leaf.Field.Name)
		if res.Value != nil {
			filled++
		} else {
			md.MissingFields = append(md.MissingFields, leaf.Path())
		}
		if res.Citation != nil {
			md.FieldsWithCitations++
		} else {
			md.FieldsWithoutCitations++
		}
	}

	if total > 0 {
		md.ConfidenceScore = round1(float64(filled) / float64(total) * 100)
	}
	if n := md.FieldsWithCitations + md.FieldsWithoutCitations; n > 0 {
		md.CitationCoveragePercent = round1(float64(md.FieldsWithCitations) / float64(n) * 100)
	}

	return md
}

// round1 rounds to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
