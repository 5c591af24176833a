package cfgloader

import (
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//nolint:gochecknoglobals // reflect types compared while redacting
var (
	durationType = reflect.TypeOf(time.Duration(0))
	timeType     = reflect.TypeOf(time.Time{})
)

func printConfig(config any) {
	out, err := yaml.Marshal(redact(reflect.ValueOf(config)))
	if err != nil {
		slog.Error("[cfgloader]: failed to marshal config", "error", err.Error())
		return
	}
	slog.Info(fmt.Sprintf("Loaded config:\n%s", string(out)))
}

// redact converts v into plain yaml values keyed by yaml tag names,
// replacing fields tagged mask:"true" with asterisks.
func redact(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}

	switch v.Kind() { //nolint:exhaustive // remaining kinds are printed as is
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return redact(v.Elem())

	case reflect.Struct:
		if v.Type() == timeType {
			return v.Interface()
		}
		out := make(map[string]any)
		redactStruct(v, out)
		return out

	case reflect.Slice, reflect.Array:
		items := make([]any, v.Len())
		for i := range items {
			items[i] = redact(v.Index(i))
		}
		return items

	default:
		if v.Type() == durationType {
			return time.Duration(v.Int()).String()
		}
		if !v.CanInterface() {
			return nil
		}
		return v.Interface()
	}
}

func redactStruct(v reflect.Value, out map[string]any) {
	t := v.Type()
	for i := range t.NumField() {
		field := t.Field(i)
		if !field.IsExported() && !field.Anonymous {
			continue
		}

		name, inline := yamlKey(field)
		if name == "-" {
			continue
		}

		fv := v.Field(i)
		if inline && fv.Kind() == reflect.Struct {
			redactStruct(fv, out)
			continue
		}

		if field.Tag.Get("mask") == "true" {
			out[name] = maskValue(fv)
		} else {
			out[name] = redact(fv)
		}
	}
}

func yamlKey(field reflect.StructField) (string, bool) {
	tag := field.Tag.Get("yaml")
	name, flags, _ := strings.Cut(tag, ",")
	if name == "" {
		name = strings.ToLower(field.Name)
	}
	return name, strings.Contains(flags, "inline")
}

func maskValue(v reflect.Value) any {
	if v.Kind() == reflect.String {
		return strings.Repeat("*", v.Len())
	}
	if v.IsZero() {
		return nil
	}
	return "******"
}
