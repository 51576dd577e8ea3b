// Package params extracts and coerces request parameters against
// per-location schemas. Value locations (path, query, form, header)
// decode with gorilla/schema; the body location decodes JSON. Both run
// go-playground/validator rules before flattening to a parameter map.
//
// Schema structs tag fields with `json` and `schema` tags (header
// schemas use canonical header names) plus optional `validate` rules.
package params

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"reflect"
	"strings"

	v10 "github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
)

// Location names a request location parameters are extracted from.
type Location string

const (
	Path   Location = "path"
	Query  Location = "query"
	Body   Location = "body"
	Form   Location = "form"
	Header Location = "header"
)

// Source carries one location's raw values. Values is set for the
// path/query/form/header locations, Body for the body location.
type Source struct {
	Values url.Values
	Body   io.Reader
}

// Schema coerces one location's raw values into a parameter map.
// Input problems are reported as ValidationErrors; any other error is a
// schema configuration defect.
type Schema interface {
	Coerce(src Source) (map[string]any, error)
}

// A ValidationError is a concrete value not matching its field's rule.
type ValidationError struct {
	Location Location `json:"location,omitempty"`
	Field    string   `json:"field"`
	Got      any      `json:"got"`
	Rule     string   `json:"rule,omitempty"`
}

// ValidationErrors is a set of ValidationError.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, err := range v {
		msgs = append(msgs, fmt.Sprintf("location=%q field=%q rule=%q got=%q",
			err.Location, err.Field, err.Rule, fmt.Sprint(err.Got)))
	}
	return strings.Join(msgs, "\n")
}

// WithLocation stamps every error with the location it came from.
func (v ValidationErrors) WithLocation(loc Location) ValidationErrors {
	for i := range v {
		v[i].Location = loc
	}
	return v
}

var (
	valueDecoder    = newValueDecoder()
	structValidator = newStructValidator()
)

func newValueDecoder() *schema.Decoder {
	dec := schema.NewDecoder()
	dec.IgnoreUnknownKeys(true)
	return dec
}

func newStructValidator() *v10.Validate {
	v := v10.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			name = strings.SplitN(field.Tag.Get("schema"), ",", 2)[0]
		}
		if name == "-" {
			name = ""
		}
		return name
	})
	return v
}

// Struct returns a schema that decodes a location's raw values into a
// fresh T, validates it, and flattens it into a parameter map keyed by
// json tag.
func Struct[T any]() Schema {
	return structSchema[T]{}
}

type structSchema[T any] struct{}

func (structSchema[T]) Coerce(src Source) (map[string]any, error) {
	dst := new(T)

	if src.Body != nil {
		if err := json.NewDecoder(src.Body).Decode(dst); err != nil {
			return nil, ValidationErrors{{Field: "body", Got: "malformed json", Rule: err.Error()}}
		}
	} else {
		if err := valueDecoder.Decode(dst, src.Values); err != nil {
			return nil, translateDecoderError(err)
		}
	}

	if err := runValidation(dst); err != nil {
		return nil, err
	}

	return flatten(dst)
}

// translateDecoderError converts gorilla/schema failures into
// ValidationErrors. Failures outside the known input-shaped ones are
// schema configuration defects and pass through untranslated.
func translateDecoderError(err error) error {
	var multi schema.MultiError
	if !errors.As(err, &multi) {
		return err
	}

	var errs ValidationErrors
	for _, fieldErr := range multi {
		switch e := fieldErr.(type) {
		case schema.ConversionError:
			// For non-slice values, e.Index is -1.
			errs = append(errs, ValidationError{
				Field: e.Key,
				Got:   fmt.Sprintf("bad value at index %d", max(0, e.Index)),
				Rule:  "must be " + e.Type.String(),
			})
		case schema.UnknownKeyError:
			// The decoder ignores unknown keys; kept in case that
			// configuration changes.
			errs = append(errs, ValidationError{
				Field: e.Key,
				Got:   "value is set",
				Rule:  "unexpected key should not be set",
			})
		default:
			return err
		}
	}

	return errs
}

// runValidation checks structPtr against its "validate" tags,
// translating each issue to a ValidationError.
func runValidation(structPtr any) error {
	err := structValidator.Struct(structPtr)
	if err == nil {
		return nil
	}

	var errs v10.ValidationErrors
	if !errors.As(err, &errs) {
		return err
	}

	var out ValidationErrors
	for _, ve := range errs {
		field := ve.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}

		rule := ve.Tag()
		if ve.Param() != "" {
			rule += "=" + ve.Param()
		}

		out = append(out, ValidationError{Field: field, Got: ve.Value(), Rule: rule})
	}

	return out
}

// flatten converts the decoded struct to a map keyed by json tag.
func flatten(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("flatten parameters: %w", err)
	}

	out := make(map[string]any)
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("flatten parameters: %w", err)
	}
	return out, nil
}
