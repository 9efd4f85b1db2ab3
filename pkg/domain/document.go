package domain

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/ohler55/ojg/jp"
)

// Document is an untyped settings tree decoded from a JSON file. Nested
// objects are map[string]any, sequences are []any, numbers are float64.
type Document map[string]any

// Lookup resolves a dotted key path (e.g. "filters.domains.images") and
// reports whether every segment was present.
func (d Document) Lookup(path string) (any, bool) {
	if d == nil || path == "" {
		return nil, false
	}
	x := pathExpr(path)
	data := map[string]any(d)
	if !x.Has(data) {
		return nil, false
	}
	return x.First(data), true
}

func pathExpr(path string) jp.Expr {
	x := jp.R()
	for _, segment := range strings.Split(path, ".") {
		x = x.C(segment)
	}
	return x
}

// StringAt returns the string at path, or def when absent or not a string.
func (d Document) StringAt(path, def string) string {
	v, ok := d.Lookup(path)
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}

// BoolAt returns the boolean at path, or def when absent or not a boolean.
func (d Document) BoolAt(path string, def bool) bool {
	v, ok := d.Lookup(path)
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

// FloatAt returns the number at path, or def when absent or not numeric.
func (d Document) FloatAt(path string, def float64) float64 {
	v, ok := d.Lookup(path)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return def
		}
		return f
	default:
		return def
	}
}

// StringsAt returns the string entries of the sequence at path. Non-string
// entries are skipped. An absent path yields nil.
func (d Document) StringsAt(path string) []string {
	v, ok := d.Lookup(path)
	if !ok {
		return nil
	}
	return AsStrings(v)
}

// AsStrings converts a decoded JSON sequence into its string entries.
// Non-string entries are skipped; non-sequences yield nil.
func AsStrings(v any) []string {
	switch seq := v.(type) {
	case []string:
		out := make([]string, len(seq))
		copy(out, seq)
		return out
	case []any:
		out := make([]string, 0, len(seq))
		for _, item := range seq {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// DocumentAt returns the object at path as a Document, or nil when absent
// or not an object.
func (d Document) DocumentAt(path string) Document {
	v, ok := d.Lookup(path)
	if !ok {
		return nil
	}
	return AsDocument(v)
}

// Child returns the object stored directly under key. Unlike DocumentAt the
// key is not split on dots.
func (d Document) Child(key string) Document {
	if d == nil {
		return nil
	}
	return AsDocument(d[key])
}

// AsDocument converts a decoded JSON object into a Document.
func AsDocument(v any) Document {
	switch m := v.(type) {
	case Document:
		return m
	case map[string]any:
		return Document(m)
	default:
		return nil
	}
}

// Keys returns the top-level keys in lexical order.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy; nested values are shared.
func (d Document) Clone() Document {
	if d == nil {
		return Document{}
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Merge overlays overrides onto defaults one level deep: an override key
// replaces the default value wholesale. Every protected key is then reset
// to the default value, or removed when defaults does not define it.
// Neither input is modified.
func Merge(defaults, overrides Document, protected []string) Document {
	merged := defaults.Clone()
	for k, v := range overrides {
		merged[k] = v
	}
	for _, key := range protected {
		if v, ok := defaults[key]; ok {
			merged[key] = v
		} else {
			delete(merged, key)
		}
	}
	return merged
}
