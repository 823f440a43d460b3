package property

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/semboot/errors"
)

// BindError describes a failed binding: the offending key prefix, the
// expected target type, and the underlying decode error. Binding never
// partially succeeds; the target is left untouched on error.
type BindError struct {
	Key  string
	Type string
	Err  error
}

// Error implements the error interface.
func (e *BindError) Error() string {
	return fmt.Sprintf("cannot bind %q to %s: %v", e.Key, e.Type, e.Err)
}

// Unwrap marks bind errors as ErrBindFailed for classification.
func (e *BindError) Unwrap() error {
	return errors.ErrBindFailed
}

var durationType = reflect.TypeOf(time.Duration(0))

// Bind decodes the subtree under prefix into out, which must be a non-nil
// struct pointer the caller has pre-populated with its defaults. Keys
// absent from the source keep their defaults; present keys override them
// exactly. time.Duration fields accept Go duration strings plus the day
// suffix ("14d"), and string values from environment overrides are parsed
// into the target's numeric, bool, and string-slice fields.
//
// Binding is all-or-nothing: on a type mismatch out is left unchanged and
// a *BindError names the offending prefix and expected type.
func (s *Source) Bind(prefix string, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return errors.WrapInvalid(
			fmt.Errorf("bind target must be a non-nil struct pointer, got %T", out),
			"Source", "Bind", "target validation")
	}

	node, ok := s.Get(prefix)
	if !ok {
		// Nothing declared under the prefix; defaults stand.
		return nil
	}

	subtree, ok := node.(map[string]any)
	if !ok {
		return &BindError{Key: prefix, Type: fmt.Sprintf("%T", out), Err: fmt.Errorf("value is not a mapping")}
	}

	subtree = copyTree(subtree)
	coerceScalars(subtree, rv.Elem().Type())

	data, err := yaml.Marshal(subtree)
	if err != nil {
		return &BindError{Key: prefix, Type: fmt.Sprintf("%T", out), Err: err}
	}

	// Decode into a scratch copy first so a failure leaves out untouched.
	scratch := reflect.New(rv.Elem().Type())
	scratch.Elem().Set(rv.Elem())
	if err := yaml.Unmarshal(data, scratch.Interface()); err != nil {
		return &BindError{Key: prefix, Type: fmt.Sprintf("%T", out), Err: err}
	}

	rv.Elem().Set(scratch.Elem())
	return nil
}

// coerceScalars rewrites string leaves into shapes YAML can decode for
// the target fields: duration strings ("250ms", "14d") become canonical
// Go duration strings, numeric and bool strings get parsed values, and
// comma-separated strings feed string slices. Environment overrides
// always arrive as strings, so without this pass they would fail the
// strict !!str decode. Matching is by yaml tag, falling back to the
// lowercased field name; values YAML already typed pass through.
func coerceScalars(tree map[string]any, t reflect.Type) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		key := field.Tag.Get("yaml")
		if idx := strings.Index(key, ","); idx >= 0 {
			key = key[:idx]
		}
		if key == "" {
			key = strings.ToLower(field.Name)
		}
		raw, ok := tree[key]
		if !ok {
			continue
		}

		switch {
		case field.Type == durationType:
			if str, ok := raw.(string); ok {
				if d, err := ParseDuration(str); err == nil {
					// yaml.v3 decodes duration strings into time.Duration
					// but rejects integers, so emit the canonical string.
					tree[key] = d.String()
				}
			}
		case field.Type.Kind() == reflect.Struct:
			if nested, ok := raw.(map[string]any); ok {
				coerceScalars(nested, field.Type)
			}
		case field.Type.Kind() == reflect.Ptr && field.Type.Elem().Kind() == reflect.Struct:
			if nested, ok := raw.(map[string]any); ok {
				coerceScalars(nested, field.Type.Elem())
			}
		default:
			if str, ok := raw.(string); ok {
				if v, ok := parseScalar(str, field.Type); ok {
					tree[key] = v
				}
			}
		}
	}
}

// parseScalar converts a string to the target field's kind. Unparseable
// values are left alone so the decode error names the real mismatch.
func parseScalar(str string, t reflect.Type) (any, bool) {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n, err := strconv.ParseInt(str, 10, 64); err == nil {
			return n, true
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if n, err := strconv.ParseUint(str, 10, 64); err == nil {
			return n, true
		}
	case reflect.Float32, reflect.Float64:
		if f, err := strconv.ParseFloat(str, 64); err == nil {
			return f, true
		}
	case reflect.Bool:
		if b, err := strconv.ParseBool(str); err == nil {
			return b, true
		}
	case reflect.Slice:
		if t.Elem().Kind() == reflect.String {
			parts := strings.Split(str, ",")
			out := make([]string, 0, len(parts))
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != "" {
					out = append(out, p)
				}
			}
			return out, true
		}
	}
	return nil, false
}

// copyTree deep-copies map nodes so coercion never mutates the source.
func copyTree(tree map[string]any) map[string]any {
	out := make(map[string]any, len(tree))
	for k, v := range tree {
		if nested, ok := v.(map[string]any); ok {
			out[k] = copyTree(nested)
			continue
		}
		out[k] = v
	}
	return out
}
