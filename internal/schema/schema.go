package schema

import "fmt"

// ValueType identifies how a field's raw extracted text is coerced.
type ValueType string

const (
	TypeText    ValueType = "text"
	TypeInteger ValueType = "integer"
	TypeDecimal ValueType = "decimal"
	TypePercent ValueType = "percent"
	TypeDate    ValueType = "date"
	TypeEnum    ValueType = "enum"
)

// Cardinality distinguishes single-valued fields from repeated items.
type Cardinality string

const (
	CardScalar Cardinality = "scalar"
	CardList   Cardinality = "list"
)

// Field declares one extractable field. Pure data, no behavior.
type Field struct {
	Name string
	Type ValueType
	Card Cardinality
	// ItemKey names the value key of each list item, e.g. a tenant item
	// serializes as {"name": ..., "citation": ...}. Empty for scalars.
	ItemKey string
	// Enum lists the allowed values for TypeEnum fields.
	Enum []string
}

// Category groups an ordered set of fields under one top-level key.
type Category struct {
	Name   string
	Fields []Field
}

// Leaf pairs a field with its owning category for flattened iteration.
type Leaf struct {
	Category string
	Field    *Field
}

// Path returns the "category.field" identifier used in missing_fields.
func (l Leaf) Path() string {
	return l.Category + "." + l.Field.Name
}

// Schema is the full field catalog. Field identity is unique across the
// schema and category membership is fixed at construction; the value is
// read-only afterward and safe to share across concurrent extractions.
type Schema struct {
	Categories []Category

	byPath map[string]*Field
}

// New indexes the given categories into a Schema.
func New(categories []Category) *Schema {
	s := &Schema{
		Categories: categories,
		byPath:     make(map[string]*Field),
	}
	for ci := range s.Categories {
		c := &s.Categories[ci]
		for fi := range c.Fields {
			s.byPath[c.Name+"."+c.Fields[fi].Name] = &c.Fields[fi]
		}
	}
	return s
}

// Category returns the ordered field definitions for a category, or nil.
func (s *Schema) Category(name string) []Field {
	for i := range s.Categories {
		if s.Categories[i].Name == name {
			return s.Categories[i].Fields
		}
	}
	return nil
}

// FieldAt returns the field declared at (category, name), or nil.
func (s *Schema) FieldAt(category, name string) *Field {
	return s.byPath[category+"."+name]
}

// Leaves returns every field in schema declaration order.
func (s *Schema) Leaves() []Leaf {
	var leaves []Leaf
	for ci := range s.Categories {
		c := &s.Categories[ci]
		for fi := range c.Fields {
			leaves = append(leaves, Leaf{Category: c.Name, Field: &c.Fields[fi]})
		}
	}
	return leaves
}

// FlattenPaths returns every leaf field path, expanding list-of-object
// sub-fields with a synthetic per-item segment, e.g.
// "tenant_information.major_tenants[].name".
func (s *Schema) FlattenPaths() []string {
	var paths []string
	for _, l := range s.Leaves() {
		if l.Field.Card == CardList {
			paths = append(paths,
				fmt.Sprintf("%s.%s[].%s", l.Category, l.Field.Name, l.Field.ItemKey),
				fmt.Sprintf("%s.%s[].citation", l.Category, l.Field.Name),
			)
			continue
		}
		paths = append(paths, l.Category+"."+l.Field.Name)
	}
	return paths
}
