package jsonldex

import (
	"strings"
)

// ldContext is the active context expansion runs under: the built-in prefix
// table and default vocab, plus any inline string mappings, @vocab, and
// @language from the document's own @context. Remote contexts are not
// dereferenced.
type ldContext struct {
	prefixes map[string]string
	terms    map[string]string
	vocab    string
	language string
}

func defaultLDContext() *ldContext {
	prefixes := make(map[string]string, len(prefixTable))
	for k, v := range prefixTable {
		prefixes[k] = v
	}
	return &ldContext{
		prefixes: prefixes,
		terms:    map[string]string{},
		vocab:    defaultVocab,
	}
}

func (c *ldContext) absorb(raw any) {
	ctx, ok := raw.(map[string]any)
	if !ok {
		return
	}
	for k, v := range ctx {
		s, ok := v.(string)
		if !ok {
			continue
		}
		switch k {
		case "@vocab":
			c.vocab = s
		case "@language":
			c.language = strings.ToLower(s)
		case "@base":
			// base IRI resolution is out of scope
		default:
			if strings.HasSuffix(s, "/") || strings.HasSuffix(s, "#") {
				c.prefixes[k] = s
			} else {
				c.terms[k] = s
			}
		}
	}
}

func (c *ldContext) expandIRI(s string) string {
	if isAbsoluteIRI(s) || strings.HasPrefix(s, "_:") || strings.HasPrefix(s, "@") {
		return s
	}
	if mapped, ok := c.terms[s]; ok {
		return mapped
	}
	if idx := strings.Index(s, ":"); idx > 0 {
		if ns, ok := c.prefixes[s[:idx]]; ok {
			return ns + s[idx+1:]
		}
		return s
	}
	return c.vocab + s
}

// Expand rewrites a document into expanded JSON-LD form: scalars in property
// position become value objects with xsd datatypes, terms and compact IRIs
// expand, @set unwraps, @list and @graph and @reverse expand their contents,
// and the top-level object is wrapped in a one-element array. Results are
// memoized in the pattern cache.
func (p *Processor) Expand(doc any) any {
	p.expansions.Add(1)
	return p.caches.expansion(doc, func(v any) any {
		ctx := defaultLDContext()
		if obj, ok := v.(map[string]any); ok {
			ctx.absorb(obj["@context"])
		}
		out := expandValue(ctx, v, "")
		if _, isArr := out.([]any); !isArr && out != nil {
			out = []any{out}
		}
		if out == nil {
			out = []any{}
		}
		return out
	})
}

func expandValue(ctx *ldContext, v any, activeProp string) any {
	switch x := v.(type) {
	case nil:
		return nil
	case bool:
		if activeProp == "" {
			return x
		}
		return map[string]any{"@value": x, "@type": xsdBoolean}
	case int64:
		if activeProp == "" {
			return x
		}
		return map[string]any{"@value": x, "@type": xsdInteger}
	case float64:
		if activeProp == "" {
			return x
		}
		return map[string]any{"@value": x, "@type": xsdDouble}
	case string:
		switch activeProp {
		case "":
			return x
		case "@id", "@type":
			return ctx.expandIRI(x)
		}
		out := map[string]any{"@value": x}
		if ctx.language != "" {
			out["@language"] = ctx.language
		}
		return out
	case []any:
		out := make([]any, 0, len(x))
		for _, item := range x {
			expanded := expandValue(ctx, item, activeProp)
			if expanded == nil {
				continue
			}
			// nested arrays flatten in expanded form
			if inner, ok := expanded.([]any); ok {
				out = append(out, inner...)
				continue
			}
			out = append(out, expanded)
		}
		return out
	case map[string]any:
		if _, ok := x["@value"]; ok {
			return expandValueObject(ctx, x)
		}
		if wrapped, ok := x["@set"]; ok && len(x) == 1 {
			return expandValue(ctx, wrapped, activeProp)
		}
		out := map[string]any{}
		for _, key := range sortedKeys(x) {
			val := x[key]
			switch key {
			case "@context":
				continue
			case "@id":
				if s, ok := val.(string); ok {
					out["@id"] = ctx.expandIRI(s)
				}
			case "@type":
				types := []any{}
				for _, t := range asSlice(val) {
					if s, ok := t.(string); ok {
						types = append(types, ctx.expandIRI(s))
					}
				}
				out["@type"] = types
			case "@graph":
				out["@graph"] = asSlice(expandValue(ctx, val, "@graph"))
			case "@list":
				out["@list"] = asSlice(expandValue(ctx, val, activeProp))
			case "@reverse":
				if rev, ok := val.(map[string]any); ok {
					revOut := map[string]any{}
					for _, rk := range sortedKeys(rev) {
						revOut[ctx.expandIRI(rk)] = asSlice(expandValue(ctx, rev[rk], rk))
					}
					out["@reverse"] = revOut
				}
			case "@index":
				out["@index"] = val
			default:
				if strings.HasPrefix(key, "@") {
					out[key] = val
					continue
				}
				expanded := expandValue(ctx, val, key)
				if expanded == nil {
					continue
				}
				out[ctx.expandIRI(key)] = asSlice(expanded)
			}
		}
		return out
	}
	return v
}

// expandValueObject normalizes an explicit @value object: @type expands,
// @language lowercases, a @direction other than ltr or rtl is dropped.
func expandValueObject(ctx *ldContext, obj map[string]any) any {
	out := map[string]any{"@value": obj["@value"]}
	if dt, ok := obj["@type"].(string); ok {
		out["@type"] = ctx.expandIRI(dt)
	}
	if lang, ok := obj["@language"].(string); ok && lang != "" {
		out["@language"] = strings.ToLower(lang)
	}
	if dir, ok := obj["@direction"].(string); ok {
		if dir == "ltr" || dir == "rtl" {
			out["@direction"] = dir
		}
	}
	if idx, ok := obj["@index"]; ok {
		out["@index"] = idx
	}
	return out
}

// ExpandJSON is the JSON boundary form of Expand.
func (p *Processor) ExpandJSON(doc []byte) ([]byte, error) {
	p.countBytes(doc)
	docVal, err := ParseDocument(doc)
	if err != nil {
		return nil, err
	}
	return MarshalDocument(p.Expand(docVal))
}
