// Package schema validates loosely typed documents (decoded YAML or JSON)
// against a declarative rule tree. Every violation is collected; data
// problems never produce a Go error or a panic.
package schema

// Type is the expected primitive kind of a value.
type Type string

const (
	String  Type = "string"
	Number  Type = "number"
	Boolean Type = "boolean"
	Object  Type = "object"
	Array   Type = "array"
	Null    Type = "null"
)

// RootPath is the path token of the validated value itself.
const RootPath = "@"

// Property pairs an object key with the rule applied to it. Rules keep their
// properties in a slice so errors come out in declaration order.
type Property struct {
	Name string
	Rule Rule
}

// Rule is one node of a constraint tree.
type Rule struct {
	Type     Type
	Optional bool

	// Properties applies only when Type is Object.
	Properties []Property
	// Items applies only when Type is Array.
	Items *Rule

	Eq        []any    // value must be one of these
	Gte       *float64 // numeric lower bound
	Integer   bool     // numbers must have no fractional part
	MinLength *int     // arrays: element count, strings: character count
	SomeKeys  []string // object must contain at least one of these keys

	// Error replaces the generated message for every failure on this rule.
	Error string
}

// Props is shorthand for building an ordered property list.
func Props(pairs ...Property) []Property { return pairs }

// P builds a single Property.
func P(name string, rule Rule) Property { return Property{Name: name, Rule: rule} }

// Float returns a pointer to f, for Rule.Gte.
func Float(f float64) *float64 { return &f }

// Int returns a pointer to n, for Rule.MinLength.
func Int(n int) *int { return &n }

// ValidationError is a single violation found in a document.
type ValidationError struct {
	Property string `json:"property"`
	Message  string `json:"message"`
}

// String renders the error the way operators see it in logs.
func (e ValidationError) String() string {
	return e.Property + " " + e.Message
}

// Result is the outcome of Validate.
type Result struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors"`
}
