package jsonldex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	p := New()

	expand := func(t *testing.T, doc string) []any {
		t.Helper()
		out, ok := p.Expand(mustParse(t, doc)).([]any)
		require.True(t, ok, "expansion of %s should be an array", doc)
		return out
	}

	t.Run("top level wraps in an array", func(t *testing.T) {
		out := expand(t, `{"name":"x"}`)
		require.Len(t, out, 1)
	})

	t.Run("scalars become typed value objects", func(t *testing.T) {
		out := expand(t, `{"age":30,"score":1.5,"active":true}`)
		node := out[0].(map[string]any)
		assert.True(t, DeepEqual(
			[]any{map[string]any{"@value": int64(30), "@type": xsdInteger}},
			node["http://example.org/age"]))
		assert.True(t, DeepEqual(
			[]any{map[string]any{"@value": 1.5, "@type": xsdDouble}},
			node["http://example.org/score"]))
		assert.True(t, DeepEqual(
			[]any{map[string]any{"@value": true, "@type": xsdBoolean}},
			node["http://example.org/active"]))
	})

	t.Run("terms expand through the inline context", func(t *testing.T) {
		out := expand(t, `{
			"@context": {"name": "http://schema.org/name"},
			"@id": "http://example.org/x",
			"name": "Ana"
		}`)
		node := out[0].(map[string]any)
		assert.Equal(t, "http://example.org/x", node["@id"])
		assert.True(t, DeepEqual(
			[]any{map[string]any{"@value": "Ana"}},
			node["http://schema.org/name"]))
		_, hasCtx := node["@context"]
		assert.False(t, hasCtx, "@context is consumed, not carried")
	})

	t.Run("vocab override", func(t *testing.T) {
		out := expand(t, `{"@context":{"@vocab":"http://other.org/"},"name":"x"}`)
		node := out[0].(map[string]any)
		_, ok := node["http://other.org/name"]
		assert.True(t, ok, "expected vocab-expanded key, got %#v", node)
	})

	t.Run("default language attaches to strings", func(t *testing.T) {
		out := expand(t, `{"@context":{"@language":"EN"},"label":"hi"}`)
		node := out[0].(map[string]any)
		assert.True(t, DeepEqual(
			[]any{map[string]any{"@value": "hi", "@language": "en"}},
			node["http://example.org/label"]))
	})

	t.Run("set unwraps and lists keep order", func(t *testing.T) {
		out := expand(t, `{"tags":{"@set":["a","b"]},"steps":{"@list":["x"]}}`)
		node := out[0].(map[string]any)
		tags := node["http://example.org/tags"].([]any)
		assert.Len(t, tags, 2)
		steps := node["http://example.org/steps"].([]any)
		require.Len(t, steps, 1)
		list := steps[0].(map[string]any)["@list"].([]any)
		assert.Len(t, list, 1)
	})

	t.Run("value object normalization", func(t *testing.T) {
		out := expand(t, `{"label":{"@value":"hi","@language":"EN","@direction":"sideways"}}`)
		node := out[0].(map[string]any)
		vals := node["http://example.org/label"].([]any)
		require.Len(t, vals, 1)
		vo := vals[0].(map[string]any)
		assert.Equal(t, "en", vo["@language"])
		_, hasDir := vo["@direction"]
		assert.False(t, hasDir, "invalid @direction is dropped")
	})

	t.Run("nulls drop out of property values", func(t *testing.T) {
		out := expand(t, `{"a":[1,null,2]}`)
		node := out[0].(map[string]any)
		vals := node["http://example.org/a"].([]any)
		assert.Len(t, vals, 2)
	})

	t.Run("expansion is deterministic through the cache", func(t *testing.T) {
		doc := mustParse(t, `{"@type":"schema:Person","name":"x"}`)
		first := p.Expand(doc)
		second := p.Expand(doc)
		assert.True(t, DeepEqual(first, second))
	})
}

func TestExpandJSON(t *testing.T) {
	p := New()
	out, err := p.ExpandJSON([]byte(`{"name":"x"}`))
	require.NoError(t, err)
	val := mustParse(t, string(out))
	arr, ok := val.([]any)
	require.True(t, ok)
	require.Len(t, arr, 1)

	_, err = p.ExpandJSON([]byte(`{not json`))
	assert.Error(t, err)
}
