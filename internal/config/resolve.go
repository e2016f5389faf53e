package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IIP-Design/orchestra/internal/schema"
)

var (
	// ErrConfigMissing means no configuration document could be found or
	// loaded, as opposed to a document with invalid contents.
	ErrConfigMissing = errors.New("config: missing configuration; put a config.yaml in the working directory or pass --config")

	// ErrValidation is matched by every *ValidationFailure.
	ErrValidation = errors.New("config: validation failed")

	// ErrEnvironmentNotFound means the requested environment is not a key of
	// an otherwise valid document.
	ErrEnvironmentNotFound = errors.New("config: environment not found")
)

// ValidationFailure carries every violation found in a document.
type ValidationFailure struct {
	Errors []schema.ValidationError
}

func (f *ValidationFailure) Error() string {
	msgs := make([]string, len(f.Errors))
	for i, e := range f.Errors {
		msgs[i] = e.String()
	}
	return fmt.Sprintf("config: %d validation error(s): %s", len(f.Errors), strings.Join(msgs, "; "))
}

func (f *ValidationFailure) Unwrap() error { return ErrValidation }

// Validate checks the whole document, including cross-field constraints the
// rule vocabulary cannot express. Extra names are validated as environments.
func Validate(doc Document, extra ...string) schema.Result {
	res := schema.Validate(Rules(extra...), map[string]any(doc))
	for _, env := range environmentNames(extra) {
		if e, ok := poolBounds(doc, env); ok {
			res.Errors = append(res.Errors, e)
		}
	}
	res.Valid = len(res.Errors) == 0
	return res
}

// poolBounds reports min > max for an environment's pool, when both are
// numbers.
func poolBounds(doc Document, env string) (schema.ValidationError, bool) {
	section, _ := schema.AsMap(doc[env])
	db, _ := schema.AsMap(section["database"])
	pool, _ := schema.AsMap(db["pool"])
	if pool == nil {
		return schema.ValidationError{}, false
	}
	lo, okLo := number(pool["min"])
	hi, okHi := number(pool["max"])
	if !okLo || !okHi || lo <= hi {
		return schema.ValidationError{}, false
	}
	return schema.ValidationError{
		Property: fmt.Sprintf("%s.%s.database.pool", schema.RootPath, env),
		Message:  fmt.Sprintf("min (%v) must not be greater than max (%v)", pool["min"], pool["max"]),
	}, true
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// Resolve validates the whole document and returns the section for env.
// The returned map is the document's own section, unchanged.
func Resolve(doc Document, env string, logger *slog.Logger) (map[string]any, error) {
	if len(doc) == 0 {
		return nil, ErrConfigMissing
	}

	res := Validate(doc, env)
	if !res.Valid {
		for _, e := range res.Errors {
			logger.Error("invalid configuration", "property", e.Property, "message", e.Message)
		}
		return nil, &ValidationFailure{Errors: res.Errors}
	}

	raw, ok := doc[env]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %s)", ErrEnvironmentNotFound, env, strings.Join(present(doc), ", "))
	}
	section, ok := raw.(map[string]any)
	if !ok {
		section, _ = schema.AsMap(raw)
	}
	return section, nil
}

// ResolveEnvironment runs Resolve followed by Decode.
func ResolveEnvironment(doc Document, env string, logger *slog.Logger) (Environment, error) {
	section, err := Resolve(doc, env, logger)
	if err != nil {
		return Environment{}, err
	}
	return Decode(section)
}

func present(doc Document) []string {
	var names []string
	for _, env := range Environments {
		if _, ok := doc[env]; ok {
			names = append(names, env)
		}
	}
	return names
}
