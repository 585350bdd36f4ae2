// Package filter defines the list-filtering contract shared by the
// catalog and document list endpoints.
package filter

// ComparisonType identifies a filter operator.
type ComparisonType string

const (
	Equal          ComparisonType = "eq"
	NotEqual       ComparisonType = "neq"
	Less           ComparisonType = "lt"
	Greater        ComparisonType = "gt"
	LessOrEqual    ComparisonType = "lte"
	GreaterOrEqual ComparisonType = "gte"
	InList         ComparisonType = "in"
	NotInList      ComparisonType = "nin"
	Contains       ComparisonType = "contains"  // ILIKE %val%
	NotContains    ComparisonType = "ncontains" // NOT ILIKE %val%

	// Hierarchy filters match an item's group or any of its subgroups.
	InHierarchy    ComparisonType = "in_hierarchy"
	NotInHierarchy ComparisonType = "nin_hierarchy"

	IsNull    ComparisonType = "null"
	IsNotNull ComparisonType = "not_null"
)

// Item is one filter condition.
type Item struct {
	// Field is the snake_case column name; repositories whitelist it
	// against their known columns.
	Field    string         `json:"field"`
	Operator ComparisonType `json:"operator"`
	// Value is the comparison operand (string, number or id list,
	// depending on the operator).
	Value any `json:"value"`
}
