package schema

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func siteRule() Rule {
	return Rule{
		Type: Object,
		Properties: Props(
			P("name", Rule{Type: String}),
			P("url", Rule{Type: String}),
			P("languages", Rule{Type: Array, Optional: true}),
		),
	}
}

func TestValidate_Valid(t *testing.T) {
	rule := Rule{
		Type: Object,
		Properties: Props(
			P("name", Rule{Type: String}),
			P("count", Rule{Type: Number, Gte: Float(0)}),
			P("enabled", Rule{Type: Boolean, Optional: true}),
		),
	}
	doc := map[string]any{"name": "site", "count": 3, "extra": "ignored"}

	res := Validate(rule, doc)
	if !res.Valid {
		t.Fatalf("expected valid, got errors: %v", res.Errors)
	}
	if len(res.Errors) != 0 {
		t.Errorf("expected no errors, got %d", len(res.Errors))
	}
}

func TestValidate_Messages(t *testing.T) {
	tests := []struct {
		name     string
		rule     Rule
		value    any
		wantPath string
		wantMsg  string
	}{
		{
			name:     "missing property",
			rule:     Rule{Type: Object, Properties: Props(P("database", Rule{Type: Object}))},
			value:    map[string]any{},
			wantPath: "@.database",
			wantMsg:  "is missing and not optional",
		},
		{
			name:     "wrong type",
			rule:     Rule{Type: Object, Properties: Props(P("port", Rule{Type: String, Optional: true}))},
			value:    map[string]any{"port": 3306},
			wantPath: "@.port",
			wantMsg:  "must be string, but is number",
		},
		{
			name:     "array where string expected",
			rule:     Rule{Type: Object, Properties: Props(P("extension", Rule{Type: String}))},
			value:    map[string]any{"extension": []any{"js"}},
			wantPath: "@.extension",
			wantMsg:  "must be string, but is array",
		},
		{
			name:     "string where boolean expected",
			rule:     Rule{Type: Object, Properties: Props(P("flag", Rule{Type: Boolean}))},
			value:    map[string]any{"flag": "false"},
			wantPath: "@.flag",
			wantMsg:  "must be boolean, but is string",
		},
		{
			name:     "null value",
			rule:     Rule{Type: Object, Properties: Props(P("host", Rule{Type: String}))},
			value:    map[string]any{"host": nil},
			wantPath: "@.host",
			wantMsg:  "must be string, but is null",
		},
		{
			name:     "enumeration",
			rule:     Rule{Type: String, Eq: []any{"mysql", "mysql2"}},
			value:    "pg",
			wantPath: "@",
			wantMsg:  `must be equal to "mysql" or "mysql2", but is "pg"`,
		},
		{
			name:     "lower bound",
			rule:     Rule{Type: Number, Gte: Float(0)},
			value:    -2,
			wantPath: "@",
			wantMsg:  "must be greater than or equal to 0, but is -2",
		},
		{
			name:     "fractional integer",
			rule:     Rule{Type: Number, Integer: true},
			value:    2.5,
			wantPath: "@",
			wantMsg:  "must be an integer, but is 2.5",
		},
		{
			name:     "array length",
			rule:     Rule{Type: Array, MinLength: Int(1)},
			value:    []any{},
			wantPath: "@",
			wantMsg:  "must be longer than 1 elements, but it has 0",
		},
		{
			name:     "string length",
			rule:     Rule{Type: String, MinLength: Int(1)},
			value:    "",
			wantPath: "@",
			wantMsg:  "must be longer than 1 characters, but it has 0",
		},
		{
			name:     "some keys",
			rule:     Rule{Type: Object, SomeKeys: []string{"production", "test"}},
			value:    map[string]any{"staging": map[string]any{}},
			wantPath: "@",
			wantMsg:  `must have at least key "production" or "test"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(tt.rule, tt.value)
			if res.Valid {
				t.Fatal("expected invalid result")
			}
			if len(res.Errors) != 1 {
				t.Fatalf("expected 1 error, got %d: %v", len(res.Errors), res.Errors)
			}
			if res.Errors[0].Property != tt.wantPath {
				t.Errorf("Property = %q, want %q", res.Errors[0].Property, tt.wantPath)
			}
			if res.Errors[0].Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", res.Errors[0].Message, tt.wantMsg)
			}
		})
	}
}

func TestValidate_CustomErrorAppliesToEveryFailure(t *testing.T) {
	const msg = "Must provide a valid client"
	rule := Rule{
		Type: Object,
		Properties: Props(
			P("client", Rule{Type: String, Eq: []any{"mysql"}, Error: msg}),
		),
	}

	for name, doc := range map[string]map[string]any{
		"missing":     {},
		"wrong type":  {"client": 7},
		"not in enum": {"client": "pg"},
	} {
		t.Run(name, func(t *testing.T) {
			res := Validate(rule, doc)
			if len(res.Errors) != 1 {
				t.Fatalf("expected 1 error, got %v", res.Errors)
			}
			if res.Errors[0].Message != msg {
				t.Errorf("Message = %q, want %q", res.Errors[0].Message, msg)
			}
			if res.Errors[0].Property != "@.client" {
				t.Errorf("Property = %q, want @.client", res.Errors[0].Property)
			}
		})
	}
}

func TestValidate_ArrayItemPaths(t *testing.T) {
	rule := Rule{
		Type: Object,
		Properties: Props(
			P("websites", Rule{Type: Array, Items: &Rule{Type: Object, Properties: siteRule().Properties}}),
		),
	}
	doc := map[string]any{
		"websites": []any{
			map[string]any{"name": "a", "url": "https://a"},
			map[string]any{"name": "b", "url": "https://b"},
			map[string]any{"url": "https://c"},
			map[string]any{"name": 4},
		},
	}

	res := Validate(rule, doc)
	want := []ValidationError{
		{Property: "@.websites[2].name", Message: "is missing and not optional"},
		{Property: "@.websites[3].name", Message: "must be string, but is number"},
		{Property: "@.websites[3].url", Message: "is missing and not optional"},
	}

	if !reflect.DeepEqual(res.Errors, want) {
		t.Errorf("errors = %v\nwant %v", res.Errors, want)
	}
}

func TestValidate_DoesNotDescendIntoMismatchedObject(t *testing.T) {
	rule := Rule{
		Type: Object,
		Properties: Props(
			P("seeds", Rule{Type: Object, Optional: true, Properties: Props(P("directory", Rule{Type: String}))}),
		),
	}
	res := Validate(rule, map[string]any{"seeds": "seeds"})
	if len(res.Errors) != 1 || res.Errors[0].Property != "@.seeds" {
		t.Fatalf("expected a single @.seeds error, got %v", res.Errors)
	}
}

func TestValidate_NumberKinds(t *testing.T) {
	for _, v := range []any{1, int8(1), int64(1), uint(1), uint32(1), float32(1.5), 2.5} {
		if got := TypeOf(v); got != Number {
			t.Errorf("TypeOf(%T) = %s, want number", v, got)
		}
	}
	res := Validate(Rule{Type: Number, Eq: []any{1, 2}}, 2.0)
	if !res.Valid {
		t.Errorf("2.0 should match enumeration member 2: %v", res.Errors)
	}
}

func TestValidate_IntegerAcceptsWholeFloats(t *testing.T) {
	for _, v := range []any{3, int64(3), 3.0} {
		if res := Validate(Rule{Type: Number, Integer: true}, v); !res.Valid {
			t.Errorf("%T %v: %v", v, v, res.Errors)
		}
	}
}

type namedMap map[string]any

func TestAsMap(t *testing.T) {
	m, ok := AsMap(namedMap{"a": namedMap{"b": 1}})
	if !ok || len(m) != 1 {
		t.Fatalf("AsMap(namedMap) = %v, %v", m, ok)
	}
	if _, ok := AsMap(m["a"]); !ok {
		t.Error("nested named map should convert")
	}
	if _, ok := AsMap("nope"); ok {
		t.Error("string should not convert")
	}
}

func TestValidate_MapAnyKeys(t *testing.T) {
	rule := Rule{Type: Object, Properties: Props(P("name", Rule{Type: String}))}
	res := Validate(rule, map[any]any{"name": "x"})
	if !res.Valid {
		t.Errorf("expected map[any]any to be treated as an object: %v", res.Errors)
	}
}

// For any object whose first k required properties are present, validation
// reports one error per absent property, in declaration order.
func TestValidate_Completeness_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("missing required fields produce one error each", prop.ForAll(
		func(required, present int) bool {
			if present > required {
				present = required
			}
			rule := Rule{Type: Object}
			doc := map[string]any{}
			for i := 0; i < required; i++ {
				key := fmt.Sprintf("field%d", i)
				rule.Properties = append(rule.Properties, P(key, Rule{Type: String}))
				if i < present {
					doc[key] = "value"
				}
			}

			res := Validate(rule, doc)
			missing := required - present
			if len(res.Errors) != missing || res.Valid != (missing == 0) {
				return false
			}
			for i, e := range res.Errors {
				if e.Property != fmt.Sprintf("@.field%d", present+i) {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 12),
		gen.IntRange(0, 12),
	))

	properties.Property("every failing array element is reported", prop.ForAll(
		func(total, bad int) bool {
			if bad > total {
				bad = total
			}
			items := make([]any, total)
			for i := range items {
				if i < bad {
					items[i] = map[string]any{"url": "x"}
				} else {
					items[i] = map[string]any{"name": "n", "url": "x"}
				}
			}
			rule := Rule{Type: Array, Items: &Rule{Type: Object, Properties: siteRule().Properties}}
			return len(Validate(rule, items).Errors) == bad
		},
		gen.IntRange(0, 20),
		gen.IntRange(0, 20),
	))

	properties.TestingRun(t)
}

func TestValidate_Determinism_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("same input yields identical errors", prop.ForAll(
		func(n int) bool {
			rule := Rule{Type: Object, SomeKeys: []string{"a"}}
			doc := map[string]any{}
			for i := 0; i < n; i++ {
				key := fmt.Sprintf("k%d", i)
				rule.Properties = append(rule.Properties, P(key, Rule{Type: Number, Gte: Float(0)}))
				switch i % 3 {
				case 0:
					doc[key] = -1
				case 1:
					doc[key] = "nope"
				}
			}
			first := Validate(rule, doc)
			second := Validate(rule, doc)
			return reflect.DeepEqual(first, second)
		},
		gen.IntRange(0, 30),
	))

	properties.TestingRun(t)
}
