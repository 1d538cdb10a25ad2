package dispatch

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"

	"github.com/duplex-dev/duplexio/pkg/wire"
)

// schemaValidator checks `validate` struct tags on decoded arguments and
// packaged results.
var schemaValidator = validator.New(validator.WithRequiredStructEnabled())

// validateSchema runs struct tag validation when v is (a pointer to) a
// struct; scalars and maps have no tags to check.
func validateSchema(v any) error {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	return schemaValidator.Struct(rv.Interface())
}

// reshape passes a value through a schema prototype: marshal, unmarshal
// into a fresh prototype instance (dropping unknown fields), validate,
// and re-marshal into a generic wire value.
func reshape(proto func() any, v any) (wire.Data, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}

	target := proto()
	if err := json.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("value does not match schema: %w", err)
	}
	if err := validateSchema(target); err != nil {
		return nil, fmt.Errorf("value does not match schema: %w", err)
	}

	clean, err := json.Marshal(target)
	if err != nil {
		return nil, fmt.Errorf("marshal schema value: %w", err)
	}
	var out wire.Data
	if err := json.Unmarshal(clean, &out); err != nil {
		return nil, fmt.Errorf("decode schema value: %w", err)
	}
	return out, nil
}

// indirect returns the value a single-level pointer points at, so that
// injected fields arrive in consumer Values as plain values.
func indirect(v any) any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		return rv.Elem().Interface()
	}
	return v
}
