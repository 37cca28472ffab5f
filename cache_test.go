package jsonldex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheTransparency(t *testing.T) {
	// identical inputs must produce identical results with caches enabled,
	// disabled, tiny, or shared between processors
	old := []byte(`{"a":[1,2,3],"text":"hello","nested":{"x":1.5}}`)
	new := []byte(`{"a":[3,2,1],"text":"world","nested":{"x":2.5}}`)

	cached := New()
	uncached := New(WithCaches(nil))
	tiny := New(WithCaches(NewCachesSize(1, 1)))

	want, err := cached.DiffStructuralJSON(old, new, nil)
	require.NoError(t, err)

	for name, p := range map[string]*Processor{"uncached": uncached, "tiny": tiny} {
		got, err := p.DiffStructuralJSON(old, new, nil)
		require.NoError(t, err)
		assert.Equal(t, string(want), string(got), "%s processor diverged", name)
	}

	// repeat runs hit the cache without changing the output
	again, err := cached.DiffStructuralJSON(old, new, nil)
	require.NoError(t, err)
	assert.Equal(t, string(want), string(again))
	assert.Greater(t, cached.Stats().CacheHits, uint64(0))
}

func TestCacheHitCounting(t *testing.T) {
	c := NewCaches()
	v := mustParse(t, `{"a":[1,2,3]}`)

	h1 := c.valueHash(v)
	h2 := c.valueHash(v)
	assert.Equal(t, h1, h2)
	assert.Equal(t, uint64(1), c.hits.Load())
	assert.Equal(t, uint64(1), c.misses.Load())

	c.Purge()
	h3 := c.valueHash(v)
	assert.Equal(t, h1, h3)
	assert.Equal(t, uint64(2), c.misses.Load(), "purge should force a recompute")
}

func TestExpansionCacheReturnsClones(t *testing.T) {
	p := New()
	doc := mustParse(t, `{"name":"x"}`)

	first := p.Expand(doc).([]any)
	// mutate the returned expansion, the cache must not see it
	first[0].(map[string]any)["corrupted"] = true

	second := p.Expand(doc).([]any)
	_, present := second[0].(map[string]any)["corrupted"]
	assert.False(t, present, "cached expansion was mutated through a caller")
}

func TestSharedCaches(t *testing.T) {
	shared := NewCaches()
	a := New(WithCaches(shared))
	b := New(WithCaches(shared))
	doc := mustParse(t, `{"k":[1,2,3,4]}`)

	_ = a.DiffStructural(doc, mustParse(t, `{"k":[4,3,2,1]}`), DefaultStructuralOptions())
	misses := shared.misses.Load()
	_ = b.DiffStructural(doc, mustParse(t, `{"k":[4,3,2,1]}`), DefaultStructuralOptions())
	assert.Equal(t, misses, shared.misses.Load(), "second processor should only hit")
}
