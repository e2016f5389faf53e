package schema

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Validate checks value against rule depth-first. Object properties are
// visited in declaration order and array items in index order, so the same
// input always yields the same error list.
func Validate(rule Rule, value any) Result {
	v := &validator{}
	v.check(rule, RootPath, value)
	return Result{Valid: len(v.errs) == 0, Errors: v.errs}
}

type validator struct {
	errs []ValidationError
}

func (v *validator) fail(rule Rule, path, msg string) {
	if rule.Error != "" {
		msg = rule.Error
	}
	v.errs = append(v.errs, ValidationError{Property: path, Message: msg})
}

func (v *validator) check(rule Rule, path string, value any) {
	actual := TypeOf(value)
	if rule.Type != "" && rule.Type != actual {
		v.fail(rule, path, fmt.Sprintf("must be %s, but is %s", rule.Type, actual))
		return
	}

	if len(rule.Eq) > 0 && !member(value, rule.Eq) {
		v.fail(rule, path, fmt.Sprintf("must be equal to %s, but is %s", joinLiterals(rule.Eq), literal(value)))
	}

	if rule.Integer {
		if n, ok := toFloat(value); ok && n != math.Trunc(n) {
			v.fail(rule, path, "must be an integer, but is "+formatNumber(n))
		}
	}

	if rule.Gte != nil {
		if n, ok := toFloat(value); ok && n < *rule.Gte {
			v.fail(rule, path, fmt.Sprintf("must be greater than or equal to %s, but is %s",
				formatNumber(*rule.Gte), formatNumber(n)))
		}
	}

	if rule.MinLength != nil {
		v.minLength(rule, path, value)
	}

	switch actual {
	case Object:
		obj, _ := toMap(value)
		v.object(rule, path, obj)
	case Array:
		if rule.Items == nil {
			return
		}
		items, _ := toSlice(value)
		for i, item := range items {
			v.check(*rule.Items, path+"["+strconv.Itoa(i)+"]", item)
		}
	}
}

func (v *validator) object(rule Rule, path string, obj map[string]any) {
	if len(rule.SomeKeys) > 0 && !hasAnyKey(obj, rule.SomeKeys) {
		keys := make([]any, len(rule.SomeKeys))
		for i, k := range rule.SomeKeys {
			keys[i] = k
		}
		v.fail(rule, path, "must have at least key "+joinLiterals(keys))
	}

	for _, p := range rule.Properties {
		child := path + "." + p.Name
		val, ok := obj[p.Name]
		if !ok {
			if !p.Rule.Optional {
				v.fail(p.Rule, child, "is missing and not optional")
			}
			continue
		}
		v.check(p.Rule, child, val)
	}
}

func (v *validator) minLength(rule Rule, path string, value any) {
	want := *rule.MinLength
	if s, ok := value.(string); ok {
		if n := utf8.RuneCountInString(s); n < want {
			v.fail(rule, path, fmt.Sprintf("must be longer than %d characters, but it has %d", want, n))
		}
		return
	}
	if items, ok := toSlice(value); ok && len(items) < want {
		v.fail(rule, path, fmt.Sprintf("must be longer than %d elements, but it has %d", want, len(items)))
	}
}

// TypeOf reports the schema type of a decoded value. Every Go integer and
// float kind is a Number.
func TypeOf(value any) Type {
	if value == nil {
		return Null
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Bool:
		return Boolean
	case reflect.String:
		return String
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return Number
	case reflect.Slice, reflect.Array:
		return Array
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null
		}
		return TypeOf(rv.Elem().Interface())
	default:
		return Object
	}
}

// AsMap returns value as a map[string]any when it is any map with string
// keys, including named map types and map[any]any.
func AsMap(value any) (map[string]any, bool) {
	return toMap(value)
}

func toMap(value any) (map[string]any, bool) {
	switch m := value.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[fmt.Sprint(k)] = v
		}
		return out, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

func toSlice(value any) ([]any, bool) {
	if s, ok := value.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func toFloat(value any) (float64, bool) {
	if TypeOf(value) != Number {
		return 0, false
	}
	rv := reflect.ValueOf(value)
	switch {
	case rv.CanInt():
		return float64(rv.Int()), true
	case rv.CanUint():
		return float64(rv.Uint()), true
	case rv.CanFloat():
		return rv.Float(), true
	}
	return 0, false
}

func member(value any, set []any) bool {
	for _, candidate := range set {
		if primitiveEqual(value, candidate) {
			return true
		}
	}
	return false
}

func primitiveEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return false
}

func hasAnyKey(obj map[string]any, keys []string) bool {
	for _, k := range keys {
		if _, ok := obj[k]; ok {
			return true
		}
	}
	return false
}

func literal(value any) string {
	switch v := value.(type) {
	case string:
		return strconv.Quote(v)
	case nil:
		return "null"
	}
	if n, ok := toFloat(value); ok {
		return formatNumber(n)
	}
	return fmt.Sprint(value)
}

func joinLiterals(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = literal(v)
	}
	return strings.Join(parts, " or ")
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
