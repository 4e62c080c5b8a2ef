package schema

// propertyTypes are the asset classes the property_type field normalizes to,
// ordered most-specific-first ("medical office" must precede "office" for
// containment matching).
var propertyTypes = []string{
	"medical office",
	"office",
	"retail",
	"industrial",
	"multifamily",
	"mixed-use",
	"hospitality",
	"self-storage",
	"land",
}

// Default returns the CRE underwriting field catalog.
func Default() *Schema {
	return New([]Category{
		{
			Name: "property_details",
			Fields: []Field{
				{Name: "property_address", Type: TypeText, Card: CardScalar},
				{Name: "property_type", Type: TypeEnum, Card: CardScalar, Enum: propertyTypes},
				{Name: "square_footage", Type: TypeDecimal, Card: CardScalar},
				{Name: "acres", Type: TypeDecimal, Card: CardScalar},
				{Name: "land_square_feet", Type: TypeDecimal, Card: CardScalar},
				{Name: "gross_building_area", Type: TypeDecimal, Card: CardScalar},
				{Name: "net_rentable_area", Type: TypeDecimal, Card: CardScalar},
				{Name: "year_built", Type: TypeInteger, Card: CardScalar},
				{Name: "units", Type: TypeInteger, Card: CardScalar},
				{Name: "occupancy_rate", Type: TypePercent, Card: CardScalar},
			},
		},
		{
			Name: "financial_metrics",
			Fields: []Field{
				{Name: "noi_annual", Type: TypeDecimal, Card: CardScalar},
				{Name: "stabilized_noi", Type: TypeDecimal, Card: CardScalar},
				{Name: "cap_rate", Type: TypePercent, Card: CardScalar},
				{Name: "purchase_price", Type: TypeDecimal, Card: CardScalar},
				{Name: "appraised_value", Type: TypeDecimal, Card: CardScalar},
				{Name: "annual_gross_income", Type: TypeDecimal, Card: CardScalar},
				{Name: "operating_expenses", Type: TypeDecimal, Card: CardScalar},
				{Name: "debt_service", Type: TypeDecimal, Card: CardScalar},
				{Name: "dscr", Type: TypeDecimal, Card: CardScalar},
				{Name: "irr", Type: TypePercent, Card: CardScalar},
				{Name: "project_cost", Type: TypeDecimal, Card: CardScalar},
				{Name: "expected_exit_valuation", Type: TypeDecimal, Card: CardScalar},
				{Name: "expected_rents", Type: TypeDecimal, Card: CardList, ItemKey: "value"},
			},
		},
		{
			Name: "loan_details",
			Fields: []Field{
				{Name: "loan_amount", Type: TypeDecimal, Card: CardScalar},
				{Name: "interest_rate", Type: TypePercent, Card: CardScalar},
				{Name: "loan_term_years", Type: TypeInteger, Card: CardScalar},
				{Name: "loan_type", Type: TypeText, Card: CardScalar},
				{Name: "lender", Type: TypeText, Card: CardScalar},
				{Name: "maturity_date", Type: TypeDate, Card: CardScalar},
				{Name: "ltv", Type: TypePercent, Card: CardScalar},
			},
		},
		{
			Name: "tenant_information",
			Fields: []Field{
				{Name: "major_tenants", Type: TypeText, Card: CardList, ItemKey: "name"},
				{Name: "lease_terms", Type: TypeText, Card: CardScalar},
				{Name: "tenant_quality", Type: TypeText, Card: CardScalar},
			},
		},
		{
			Name: "market_analysis",
			Fields: []Field{
				{Name: "market", Type: TypeText, Card: CardScalar},
				{Name: "submarket", Type: TypeText, Card: CardScalar},
				{Name: "comparable_properties", Type: TypeText, Card: CardList, ItemKey: "property"},
				{Name: "market_trends", Type: TypeText, Card: CardList, ItemKey: "trend"},
			},
		},
		{
			Name: "risk_assessment",
			Fields: []Field{
				{Name: "identified_risks", Type: TypeText, Card: CardList, ItemKey: "risk"},
				{Name: "mitigation_strategies", Type: TypeText, Card: CardList, ItemKey: "strategy"},
			},
		},
	})
}
