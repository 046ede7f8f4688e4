package out

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/ggonzalez94/rise-pilot/internal/config"
	"github.com/ggonzalez94/rise-pilot/internal/model"
)

// Render writes env as indented JSON or as key=value lines. Nested values
// are flattened with dotted keys in plain mode.
func Render(w io.Writer, env model.Envelope, settings config.Settings) error {
	data := env.Data
	if len(settings.SelectFields) > 0 {
		data = project(data, settings.SelectFields)
	}

	if settings.ResultsOnly {
		if settings.OutputMode == "json" {
			return encodeJSON(w, data)
		}
		return renderPlain(w, data)
	}

	if settings.OutputMode == "json" {
		env.Data = data
		return encodeJSON(w, env)
	}

	plain := map[string]any{
		"success": env.Success,
		"command": env.Meta.Command,
	}
	if env.Error != nil {
		plain["error"] = env.Error
	}
	if err := renderPlain(w, plain); err != nil {
		return err
	}
	if data == nil {
		return nil
	}
	return renderPlain(w, data)
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderPlain(w io.Writer, data any) error {
	v := reflect.ValueOf(data)
	if !v.IsValid() {
		_, err := fmt.Fprintln(w, "null")
		return err
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			_, err := fmt.Fprintln(w, "[]")
			return err
		}
		for i := 0; i < v.Len(); i++ {
			if _, err := fmt.Fprintln(w, toLine(normalizeValue(v.Index(i).Interface()))); err != nil {
				return err
			}
		}
		return nil
	default:
		_, err := fmt.Fprintln(w, toLine(normalizeValue(data)))
		return err
	}
}

func project(data any, fields []string) any {
	n := normalizeValue(data)
	switch t := n.(type) {
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, item := range t {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			out = append(out, projectMap(m, fields))
		}
		return out
	case map[string]any:
		return projectMap(t, fields)
	default:
		return n
	}
}

func projectMap(m map[string]any, fields []string) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if v, ok := m[f]; ok {
			out[f] = v
		}
	}
	return out
}

func normalizeValue(v any) any {
	buf, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(buf, &out); err != nil {
		return v
	}
	return out
}

func toLine(v any) string {
	flat := map[string]string{}
	flatten("", v, flat)
	if len(flat) == 1 {
		if only, ok := flat[""]; ok {
			return only
		}
	}
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, flat[k]))
	}
	return strings.Join(parts, " ")
}

func flatten(prefix string, v any, dst map[string]string) {
	join := func(key string) string {
		if prefix == "" {
			return key
		}
		return prefix + "." + key
	}
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			flatten(join(k), item, dst)
		}
	case []any:
		for i, item := range t {
			flatten(join(fmt.Sprintf("%d", i)), item, dst)
		}
	case nil:
		dst[prefix] = "null"
	case string:
		dst[prefix] = t
	default:
		buf, err := json.Marshal(t)
		if err != nil {
			dst[prefix] = fmt.Sprintf("%v", t)
			return
		}
		dst[prefix] = string(buf)
	}
}
