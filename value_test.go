package jsonldex

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseDocumentNumbers(t *testing.T) {
	cases := []struct {
		json string
		want any
	}{
		{`1`, int64(1)},
		{`-42`, int64(-42)},
		{`1.0`, float64(1)},
		{`2.5`, float64(2.5)},
		{`1e3`, float64(1000)},
		{`9223372036854775807`, int64(9223372036854775807)},
	}
	for _, c := range cases {
		got, err := ParseDocument([]byte(c.json))
		if err != nil {
			t.Fatalf("parsing %s: %s", c.json, err)
		}
		if diff := cmp.Diff(c.want, got); diff != "" {
			t.Errorf("parse %s mismatch (-want +got):\n%s", c.json, diff)
		}
	}

	t.Run("trailing data is an error", func(t *testing.T) {
		if _, err := ParseDocument([]byte(`{} []`)); err == nil {
			t.Error("expected an error for trailing data")
		}
	})
}

func TestDeepEqual(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		want bool
	}{
		{"identical objects", `{"a":1,"b":[true,null]}`, `{"a":1,"b":[true,null]}`, true},
		{"key order ignored", `{"a":1,"b":2}`, `{"b":2,"a":1}`, true},
		{"array order matters", `[1,2]`, `[2,1]`, false},
		{"int vs float", `{"a":1}`, `{"a":1.0}`, false},
		{"missing key", `{"a":1}`, `{"a":1,"b":2}`, false},
		{"null vs absent", `{"a":null}`, `{}`, false},
		{"nested difference", `{"a":{"b":[1]}}`, `{"a":{"b":[2]}}`, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			a := mustParse(t, c.a)
			b := mustParse(t, c.b)
			if got := DeepEqual(a, b); got != c.want {
				t.Errorf("DeepEqual(%s, %s) = %t, want %t", c.a, c.b, got, c.want)
			}
			if got := DeepEqual(b, a); got != c.want {
				t.Errorf("DeepEqual(%s, %s) = %t, want %t", c.b, c.a, got, c.want)
			}
		})
	}
}

func TestValueHash(t *testing.T) {
	t.Run("equal values hash equal regardless of key order", func(t *testing.T) {
		a := mustParse(t, `{"a":1,"b":{"c":[1,2,3]},"d":"x"}`)
		b := mustParse(t, `{"d":"x","b":{"c":[1,2,3]},"a":1}`)
		if ValueHash(a) != ValueHash(b) {
			t.Error("hashes of equal objects differ")
		}
	})

	t.Run("type distinctions survive hashing", func(t *testing.T) {
		pairs := [][2]string{
			{`1`, `1.0`},
			{`1`, `"1"`},
			{`true`, `"true"`},
			{`null`, `"null"`},
			{`[1,2]`, `[2,1]`},
			{`{"a":1}`, `{"a":2}`},
			{`{}`, `[]`},
		}
		for _, pair := range pairs {
			a := mustParse(t, pair[0])
			b := mustParse(t, pair[1])
			if ValueHash(a) == ValueHash(b) {
				t.Errorf("hash collision between %s and %s", pair[0], pair[1])
			}
		}
	})

	t.Run("hash is stable across clones", func(t *testing.T) {
		v := mustParse(t, `{"nested":[{"deep":[null,false,0.25]}]}`)
		if ValueHash(v) != ValueHash(cloneValue(v)) {
			t.Error("clone hashes differently")
		}
	})
}

func TestMarshalDocumentRoundTrip(t *testing.T) {
	docs := []string{
		`{"a":1,"b":[true,null,"s"],"c":{"d":2.5}}`,
		`[]`,
		`{}`,
		`null`,
	}
	for _, doc := range docs {
		v := mustParse(t, doc)
		data, err := MarshalDocument(v)
		if err != nil {
			t.Fatalf("marshal %s: %s", doc, err)
		}
		back, err := ParseDocument(data)
		if err != nil {
			t.Fatalf("reparse %s: %s", data, err)
		}
		if !DeepEqual(v, back) {
			t.Errorf("round trip of %s produced %s", doc, data)
		}
	}
}
