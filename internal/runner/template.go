package runner

import (
	"errors"
	"fmt"
	"os"
	"reflect"
)

// ExpandTemplates rewrites, in place, every string field of *in tagged with
// `template` (or `template:""`) by expanding ${VAR} references. Nested
// structs, struct pointers and slices of either are walked whether tagged or
// not; `template:"-"` opts a string out. Unexported fields and nil pointers are
// left alone.
func ExpandTemplates[T any](in *T, variables map[string]string) error {
	if in == nil {
		return nil
	}
	v := reflect.ValueOf(in).Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("ExpandTemplates expects *struct; got *%s", v.Type())
	}
	return expandValue(v, variables)
}

func expandValue(v reflect.Value, variables map[string]string) error {
	switch v.Kind() {
	case reflect.Struct:
		return expandStruct(v, variables)
	case reflect.Ptr:
		if v.IsNil() || v.Elem().Kind() != reflect.Struct {
			return nil
		}
		return expandStruct(v.Elem(), variables)
	case reflect.Slice:
		var errs error
		for i := 0; i < v.Len(); i++ {
			errs = errors.Join(errs, expandValue(v.Index(i), variables))
		}
		return errs
	default:
		return nil
	}
}

func expandStruct(v reflect.Value, variables map[string]string) error {
	typ := v.Type()
	var errs error
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}
		field := v.Field(i)
		tag, tagged := sf.Tag.Lookup("template")
		expandable := tagged && tag != "-"

		switch {
		case field.Kind() == reflect.String:
			if !expandable {
				continue
			}
			expanded, err := Expand(field.String(), variables)
			if err != nil {
				errs = errors.Join(errs, fmt.Errorf("%s: %w", sf.Name, err))
				continue
			}
			field.SetString(expanded)

		case field.Kind() == reflect.Ptr && !field.IsNil() && field.Elem().Kind() == reflect.String:
			if !expandable {
				continue
			}
			expanded, err := Expand(field.Elem().String(), variables)
			if err != nil {
				errs = errors.Join(errs, fmt.Errorf("%s: %w", sf.Name, err))
				continue
			}
			// Replace the pointer so values shared with the caller stay untouched.
			ptr := reflect.New(field.Elem().Type())
			ptr.Elem().SetString(expanded)
			field.Set(ptr)

		default:
			errs = errors.Join(errs, expandValue(field, variables))
		}
	}
	return errs
}

// Expand replaces ${VAR} references in value using variables. Referencing a
// variable that is not in the map is an error.
func Expand(value string, variables map[string]string) (string, error) {
	var errs error

	result := os.Expand(value, func(key string) string {
		if val, ok := variables[key]; ok {
			return val
		}
		errs = errors.Join(errs, fmt.Errorf("environment variable %q is not in the allowed list", key))
		return ""
	})

	if errs != nil {
		return "", errs
	}

	return result, nil
}
