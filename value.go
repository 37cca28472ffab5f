package jsonldex

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ParseDocument decodes JSON text into a dynamic document tree. Numbers are
// decoded with UseNumber and normalized to int64 when the source token has no
// fraction or exponent, float64 otherwise, so the integer-vs-float distinction
// survives a parse/diff/serialize round trip. Values in a parsed tree are one
// of: nil, bool, int64, float64, string, []any, map[string]any.
func ParseDocument(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("parsing document: trailing data after JSON value")
	}
	return normalizeNumbers(v), nil
}

// MarshalDocument is the inverse of ParseDocument, producing compact JSON.
func MarshalDocument(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("serializing document: %w", err)
	}
	return data, nil
}

func normalizeNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		s := x.String()
		if !strings.ContainsAny(s, ".eE") {
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				return i
			}
		}
		f, err := x.Float64()
		if err != nil {
			return s
		}
		return f
	case []any:
		for i := range x {
			x[i] = normalizeNumbers(x[i])
		}
		return x
	case map[string]any:
		for k := range x {
			x[k] = normalizeNumbers(x[k])
		}
		return x
	}
	return v
}

// DeepEqual reports whether two document values are structurally equal.
// Array order matters, object key order does not, and int64 and float64 are
// distinct even when numerically equal.
func DeepEqual(a, b any) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case int64:
		bv, ok := b.(int64)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !DeepEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bvv, present := bv[k]
			if !present || !DeepEqual(v, bvv) {
				return false
			}
		}
		return true
	}
	return false
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = cloneValue(x[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, c := range x {
			out[k] = cloneValue(c)
		}
		return out
	}
	return v
}

// appendCanonical writes a deterministic byte encoding of v. Object keys are
// sorted, scalars are type-tagged and length-delimited, so two values encode
// identically exactly when DeepEqual holds. Used for hashing and cache keys.
func appendCanonical(b []byte, v any) []byte {
	switch x := v.(type) {
	case nil:
		return append(b, 'z')
	case bool:
		if x {
			return append(b, 't')
		}
		return append(b, 'f')
	case int64:
		b = append(b, 'i')
		b = strconv.AppendInt(b, x, 10)
		return append(b, ';')
	case float64:
		b = append(b, 'd')
		b = strconv.AppendFloat(b, x, 'g', -1, 64)
		return append(b, ';')
	case string:
		b = append(b, 's')
		b = strconv.AppendInt(b, int64(len(x)), 10)
		b = append(b, ':')
		return append(b, x...)
	case []any:
		b = append(b, '[')
		for _, c := range x {
			b = appendCanonical(b, c)
		}
		return append(b, ']')
	case map[string]any:
		keys := sortedKeys(x)
		b = append(b, '{')
		for _, k := range keys {
			b = appendCanonical(b, k)
			b = appendCanonical(b, x[k])
		}
		return append(b, '}')
	}
	return append(b, '?')
}

func canonicalKey(v any) string {
	return string(appendCanonical(nil, v))
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
