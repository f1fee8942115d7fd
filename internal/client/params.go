package client

import (
	"fmt"
	"net/url"
	"reflect"
	"slices"
	"strings"
)

// Params are query parameters. Nested maps and slices are flattened with
// bracket notation, so {"filters": {"name": "x"}, "page": 2} becomes
// filters%5Bname%5D=x&page=2. Keys are emitted in sorted order and nil values
// are skipped.
type Params map[string]any

func (p Params) Encode() string {
	var parts []string
	for _, k := range sortedKeys(p) {
		parts = appendParam(parts, k, p[k])
	}
	return strings.Join(parts, "&")
}

func appendParam(parts []string, key string, v any) []string {
	if v == nil {
		return parts
	}

	switch t := v.(type) {
	case Params:
		return appendMap(parts, key, map[string]any(t))
	case map[string]any:
		return appendMap(parts, key, t)
	case map[string]string:
		for _, k := range sortedKeys(t) {
			parts = appendParam(parts, key+"["+k+"]", t[k])
		}
		return parts
	case string:
		return append(parts, escape(key)+"="+escape(t))
	case fmt.Stringer:
		return append(parts, escape(key)+"="+escape(t.String()))
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := range rv.Len() {
			parts = appendParam(parts, fmt.Sprintf("%s[%d]", key, i), rv.Index(i).Interface())
		}
		return parts
	case reflect.Pointer:
		if rv.IsNil() {
			return parts
		}
		return appendParam(parts, key, rv.Elem().Interface())
	default:
		return append(parts, escape(key)+"="+escape(fmt.Sprint(v)))
	}
}

func appendMap(parts []string, key string, m map[string]any) []string {
	for _, k := range sortedKeys(m) {
		parts = appendParam(parts, key+"["+k+"]", m[k])
	}
	return parts
}

// escape percent-encodes like encodeURIComponent: spaces become %20.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
