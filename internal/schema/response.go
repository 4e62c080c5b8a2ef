package schema

// jsonTypes maps a ValueType to the JSON types accepted for its value.
func jsonTypes(t ValueType) []string {
	switch t {
	case TypeInteger:
		return []string{"integer", "null"}
	case TypeDecimal, TypePercent:
		return []string{"number", "null"}
	default:
		return []string{"string", "null"}
	}
}

// scalarSchema builds the {value, unit, citation} object schema for a field.
func scalarSchema(f *Field) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"value":    map[string]any{"type": jsonTypes(f.Type)},
			"unit":     map[string]any{"type": []string{"string", "null"}},
			"citation": map[string]any{"type": []string{"string", "null"}},
		},
		"required":             []string{"value", "unit", "citation"},
		"additionalProperties": false,
	}
}

// listSchema builds the array-of-items schema for a list field.
func listSchema(f *Field, maxItems int) map[string]any {
	valueTypes := jsonTypes(f.Type)
	return map[string]any{
		"type": "array",
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				f.ItemKey:  map[string]any{"type": valueTypes},
				"unit":     map[string]any{"type": []string{"string", "null"}},
				"citation": map[string]any{"type": []string{"string", "null"}},
			},
			"required":             []string{f.ItemKey, "citation"},
			"additionalProperties": false,
		},
		"maxItems": maxItems,
	}
}

// ResponseSchema builds the strict JSON schema the generative service must
// conform to: one object per category, value/unit/citation triples per
// scalar, capped item arrays per list field, no extra keys anywhere.
func (s *Schema) ResponseSchema(maxItems int) map[string]any {
	categories := make(map[string]any, len(s.Categories))
	var required []string

	for ci := range s.Categories {
		c := &s.Categories[ci]
		fields := make(map[string]any, len(c.Fields))
		var fieldNames []string
		for fi := range c.Fields {
			f := &c.Fields[fi]
			if f.Card == CardList {
				fields[f.Name] = listSchema(f, maxItems)
			} else {
				fields[f.Name] = scalarSchema(f)
			}
			fieldNames = append(fieldNames, f.Name)
		}
		categories[c.Name] = map[string]any{
			"type":                 "object",
			"properties":           fields,
			"required":             fieldNames,
			"additionalProperties": false,
		}
		required = append(required, c.Name)
	}

	return map[string]any{
		"type":                 "object",
		"properties":           categories,
		"required":             required,
		"additionalProperties": false,
	}
}
