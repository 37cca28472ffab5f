package jsonldex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func opDiffOptions() OperationalOptions {
	return OperationalOptions{
		ActorID:            "actor_test",
		BaseTimestamp:      1000,
		ConflictResolution: LastWriteWins,
	}
}

func TestOperationalDiffBasics(t *testing.T) {
	p := New()

	t.Run("key change emits set", func(t *testing.T) {
		log := p.DiffOperational(
			mustParse(t, `{"a":1}`),
			mustParse(t, `{"a":2}`),
			opDiffOptions(),
		)
		require.Len(t, log.Operations, 1)
		op := log.Operations[0]
		assert.Equal(t, OpSet, op.Type)
		assert.Equal(t, []any{"a"}, op.Path)
		assert.Equal(t, int64(2), op.Value)
		assert.Equal(t, uint64(1000), op.Timestamp)
		assert.Equal(t, "actor_test", op.ActorID)
	})

	t.Run("key removal emits delete", func(t *testing.T) {
		log := p.DiffOperational(
			mustParse(t, `{"a":1,"b":2}`),
			mustParse(t, `{"b":2}`),
			opDiffOptions(),
		)
		require.Len(t, log.Operations, 1)
		assert.Equal(t, OpDelete, log.Operations[0].Type)
		assert.Equal(t, []any{"a"}, log.Operations[0].Path)
	})

	t.Run("timestamps increase strictly in emission order", func(t *testing.T) {
		log := p.DiffOperational(
			mustParse(t, `{"a":1,"b":1,"c":1}`),
			mustParse(t, `{"a":2,"b":2,"c":2}`),
			opDiffOptions(),
		)
		require.Len(t, log.Operations, 3)
		for i, op := range log.Operations {
			assert.Equal(t, uint64(1000+i), op.Timestamp)
		}
		assert.Equal(t, []uint64{1000, 1002}, log.Metadata.TimestampRange)
	})

	t.Run("array rewrite deletes descending then inserts ascending", func(t *testing.T) {
		log := p.DiffOperational(
			mustParse(t, `{"a":[1,2]}`),
			mustParse(t, `{"a":[3]}`),
			opDiffOptions(),
		)
		require.Len(t, log.Operations, 3)
		assert.Equal(t, OpDelete, log.Operations[0].Type)
		assert.Equal(t, []any{"a", int64(1)}, log.Operations[0].Path)
		assert.Equal(t, OpDelete, log.Operations[1].Type)
		assert.Equal(t, []any{"a", int64(0)}, log.Operations[1].Path)
		assert.Equal(t, OpInsert, log.Operations[2].Type)
		assert.Equal(t, []any{"a", int64(0)}, log.Operations[2].Path)
		assert.Equal(t, int64(3), log.Operations[2].Value)
	})

	t.Run("metadata names the actor", func(t *testing.T) {
		log := p.DiffOperational(mustParse(t, `{}`), mustParse(t, `{"x":1}`), opDiffOptions())
		assert.Equal(t, []string{"actor_test"}, log.Metadata.Actors)
		assert.Equal(t, LastWriteWins, log.Metadata.ConflictResolution)
	})
}

func TestOperationalReplay(t *testing.T) {
	p := New()

	roundTrip := func(t *testing.T, srcJSON, dstJSON string) {
		t.Helper()
		src := mustParse(t, srcJSON)
		dst := mustParse(t, dstJSON)
		log := p.DiffOperational(src, dst, opDiffOptions())
		replayed := p.ApplyOperational(src, log)
		assert.True(t, DeepEqual(dst, replayed),
			"replay of %s -> %s produced %#v", srcJSON, dstJSON, replayed)
	}

	t.Run("replay reproduces the target", func(t *testing.T) {
		roundTrip(t, `{"a":1}`, `{"a":2,"b":{"c":[1,2,3]}}`)
		roundTrip(t, `{"a":{"b":{"c":1}}}`, `{"a":{"b":{}}}`)
		roundTrip(t, `{"list":[1,2,3]}`, `{"list":[3,2,1,0]}`)
		roundTrip(t, `{"x":null}`, `{"x":[null,{"y":false}]}`)
	})

	t.Run("replay is deterministic regardless of log order", func(t *testing.T) {
		src := mustParse(t, `{"a":1,"b":2,"c":3}`)
		dst := mustParse(t, `{"a":9,"b":8,"c":7}`)
		log := p.DiffOperational(src, dst, opDiffOptions())
		shuffled := OperationLog{Metadata: log.Metadata}
		for i := len(log.Operations) - 1; i >= 0; i-- {
			shuffled.Operations = append(shuffled.Operations, log.Operations[i])
		}
		a := p.ApplyOperational(src, log)
		b := p.ApplyOperational(src, shuffled)
		assert.True(t, DeepEqual(a, b))
	})

	t.Run("input document is not mutated", func(t *testing.T) {
		src := mustParse(t, `{"a":[1,2,3]}`)
		log := p.DiffOperational(src, mustParse(t, `{"a":[9]}`), opDiffOptions())
		_ = p.ApplyOperational(src, log)
		assert.True(t, DeepEqual(mustParse(t, `{"a":[1,2,3]}`), src))
	})
}

func TestOperationalNoOps(t *testing.T) {
	p := New()
	doc := mustParse(t, `{"a":{"b":1},"list":[1,2]}`)

	cases := []struct {
		name string
		op   Operation
	}{
		{"missing key path", Operation{Type: OpSet, Path: []any{"nope", "deeper"}, Value: int64(1), Timestamp: 1}},
		{"index out of range set", Operation{Type: OpSet, Path: []any{"list", int64(9)}, Value: int64(1), Timestamp: 1}},
		{"index out of range delete", Operation{Type: OpDelete, Path: []any{"list", int64(9)}, Timestamp: 1}},
		{"string key against array", Operation{Type: OpSet, Path: []any{"list", "0"}, Value: int64(5), Timestamp: 1}},
		{"index against object", Operation{Type: OpSet, Path: []any{"a", int64(0)}, Value: int64(5), Timestamp: 1}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			out := p.ApplyOperational(doc, OperationLog{Operations: []Operation{c.op}})
			assert.True(t, DeepEqual(doc, out), "expected a silent no-op, got %#v", out)
		})
	}

	t.Run("insert clamps to array length", func(t *testing.T) {
		out := p.ApplyOperational(doc, OperationLog{Operations: []Operation{
			{Type: OpInsert, Path: []any{"list", int64(99)}, Value: int64(3), Timestamp: 1},
		}})
		assert.True(t, DeepEqual(mustParse(t, `{"a":{"b":1},"list":[1,2,3]}`), out))
	})
}

func TestMergeOperational(t *testing.T) {
	p := New()
	src := mustParse(t, `{"a":1,"b":1}`)

	logA := OperationLog{
		Operations: []Operation{
			{Type: OpSet, Path: []any{"a"}, Value: int64(2), Timestamp: 10, ActorID: "actor_one"},
		},
		Metadata: LogMetadata{Actors: []string{"actor_one"}},
	}
	logB := OperationLog{
		Operations: []Operation{
			{Type: OpSet, Path: []any{"a"}, Value: int64(3), Timestamp: 20, ActorID: "actor_two"},
			{Type: OpSet, Path: []any{"b"}, Value: int64(5), Timestamp: 5, ActorID: "actor_two"},
		},
		Metadata: LogMetadata{Actors: []string{"actor_two", "actor_one"}},
	}

	t.Run("merge sorts and dedupes", func(t *testing.T) {
		merged := p.MergeOperational([]OperationLog{logA, logB})
		require.Len(t, merged.Operations, 3)
		assert.Equal(t, uint64(5), merged.Operations[0].Timestamp)
		assert.Equal(t, uint64(10), merged.Operations[1].Timestamp)
		assert.Equal(t, uint64(20), merged.Operations[2].Timestamp)
		assert.Equal(t, []string{"actor_one", "actor_two"}, merged.Metadata.Actors)
		assert.Equal(t, []uint64{5, 20}, merged.Metadata.TimestampRange)
	})

	t.Run("merge order does not change the replay", func(t *testing.T) {
		ab := p.ApplyOperational(src, p.MergeOperational([]OperationLog{logA, logB}))
		ba := p.ApplyOperational(src, p.MergeOperational([]OperationLog{logB, logA}))
		assert.True(t, DeepEqual(ab, ba), "ab=%#v ba=%#v", ab, ba)
		// the highest timestamp wins the conflict on "a"
		assert.True(t, DeepEqual(mustParse(t, `{"a":3,"b":5}`), ab))
	})
}

func TestOperationalJSONBoundary(t *testing.T) {
	p := New()
	old := []byte(`{"count":1,"tags":["x"]}`)
	new := []byte(`{"count":2,"tags":["x","y"]}`)

	logData, err := p.DiffOperationalJSON(old, new, map[string]string{
		"actor_id":       "actor_test",
		"base_timestamp": "50",
	})
	require.NoError(t, err)

	patched, err := p.PatchOperationalJSON(old, logData)
	require.NoError(t, err)
	want := mustParse(t, string(new))
	got := mustParse(t, string(patched))
	assert.True(t, DeepEqual(want, got), "patched=%s", patched)

	t.Run("integer values survive the boundary", func(t *testing.T) {
		doc, err := ParseDocument(patched)
		require.NoError(t, err)
		assert.Equal(t, int64(2), doc.(map[string]any)["count"])
	})

	t.Run("merge boundary", func(t *testing.T) {
		merged, err := p.MergeOperationalJSON([]byte(`[` + string(logData) + `,` + string(logData) + `]`))
		require.NoError(t, err)
		log, err := parseOperationLog(merged)
		require.NoError(t, err)
		assert.Equal(t, []string{"actor_test"}, log.Metadata.Actors)
	})

	t.Run("malformed log is rejected", func(t *testing.T) {
		_, err := p.PatchOperationalJSON(old, []byte(`{"operations":[{"type":"explode"}]}`))
		assert.Error(t, err)
	})
}
