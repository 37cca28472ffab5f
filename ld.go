package jsonldex

import (
	"fmt"
	"strings"
)

// Compact is the inverse-direction convenience of Expand: it takes an
// expanded document, shortens IRI keys to their local names, collapses
// single-element arrays and plain value objects, and attaches the supplied
// context. It does not consult term definitions, so it is a display form,
// not a full JSON-LD compaction.
func (p *Processor) Compact(expanded any, context any) any {
	node := firstNode(expanded)
	if node == nil {
		return map[string]any{"@context": context}
	}
	out := compactNode(node)
	out["@context"] = context
	return out
}

func firstNode(v any) map[string]any {
	switch x := v.(type) {
	case map[string]any:
		return x
	case []any:
		for _, item := range x {
			if obj, ok := item.(map[string]any); ok {
				return obj
			}
		}
	}
	return nil
}

func compactNode(node map[string]any) map[string]any {
	out := map[string]any{}
	for _, key := range sortedKeys(node) {
		val := node[key]
		outKey := key
		if !strings.HasPrefix(key, "@") {
			outKey = iriLocalName(key)
		}
		out[outKey] = compactValue(val)
	}
	return out
}

func compactValue(v any) any {
	switch x := v.(type) {
	case []any:
		if len(x) == 1 {
			return compactValue(x[0])
		}
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = compactValue(item)
		}
		return out
	case map[string]any:
		if val, ok := x["@value"]; ok {
			return val
		}
		return compactNode(x)
	case string:
		if isAbsoluteIRI(x) {
			return x
		}
	}
	return v
}

// Flatten gathers every identified node object into a single @graph array.
// Anonymous subtrees stay embedded where they are.
func (p *Processor) Flatten(doc any, context any) any {
	var nodes []any
	collectNodes(doc, &nodes)
	out := map[string]any{"@graph": nodes}
	if context != nil {
		out["@context"] = context
	}
	return out
}

func collectNodes(v any, nodes *[]any) {
	switch x := v.(type) {
	case map[string]any:
		if _, ok := x["@id"].(string); ok {
			*nodes = append(*nodes, x)
		}
		for _, key := range sortedKeys(x) {
			if key == "@context" {
				continue
			}
			collectNodes(x[key], nodes)
		}
	case []any:
		for _, item := range x {
			collectNodes(item, nodes)
		}
	}
}

// Frame projects the frame's keys out of the first document node whose
// @type matches the frame's (when the frame names one). A very small subset
// of JSON-LD framing.
func (p *Processor) Frame(doc any, frame map[string]any) any {
	var match map[string]any
	frameType, hasType := frame["@type"]
	visitNodes(doc, func(node map[string]any) bool {
		if hasType && !typeMatches(node["@type"], frameType) {
			return true
		}
		match = node
		return false
	})
	if match == nil {
		return map[string]any{}
	}
	out := map[string]any{}
	for _, key := range sortedKeys(frame) {
		if key == "@context" {
			continue
		}
		if val, ok := match[key]; ok {
			out[key] = cloneValue(val)
		}
	}
	if ctx, ok := frame["@context"]; ok {
		out["@context"] = ctx
	}
	return out
}

func typeMatches(nodeType, frameType any) bool {
	for _, ft := range asSlice(frameType) {
		for _, nt := range asSlice(nodeType) {
			if DeepEqual(nt, ft) {
				return true
			}
		}
	}
	return false
}

// QueryNodes returns every object node in the document whose properties
// include all of the pattern's key/value pairs.
func (p *Processor) QueryNodes(doc any, pattern map[string]any) []any {
	matches := []any{}
	visitNodes(doc, func(node map[string]any) bool {
		for k, want := range pattern {
			got, ok := node[k]
			if !ok || !DeepEqual(got, want) {
				return true
			}
		}
		matches = append(matches, node)
		return true
	})
	return matches
}

// visitNodes walks every object in the document depth-first. The visitor
// returns false to stop the walk.
func visitNodes(v any, visit func(map[string]any) bool) bool {
	switch x := v.(type) {
	case map[string]any:
		if !visit(x) {
			return false
		}
		for _, key := range sortedKeys(x) {
			if !visitNodes(x[key], visit) {
				return false
			}
		}
	case []any:
		for _, item := range x {
			if !visitNodes(item, visit) {
				return false
			}
		}
	}
	return true
}

// MergeDocuments deep-merges documents left to right: objects merge
// recursively, any other collision takes the later value.
func (p *Processor) MergeDocuments(docs []any) any {
	var merged any
	for _, doc := range docs {
		merged = mergeValues(merged, cloneValue(doc))
	}
	return merged
}

func mergeValues(base, overlay any) any {
	baseObj, bok := base.(map[string]any)
	overObj, ook := overlay.(map[string]any)
	if !bok || !ook {
		return overlay
	}
	for k, v := range overObj {
		if existing, ok := baseObj[k]; ok {
			baseObj[k] = mergeValues(existing, v)
			continue
		}
		baseObj[k] = v
	}
	return baseObj
}

// ValidateDocument runs a minimal shape check: the root must be an object or
// array, @id values must be non-empty strings, @type values strings or
// arrays of strings, @context an object, string, or array. It is not shape
// or schema validation.
func (p *Processor) ValidateDocument(doc any) (bool, []string) {
	errs := []string{}
	switch doc.(type) {
	case map[string]any, []any:
	default:
		errs = append(errs, "document root must be an object or array")
		return false, errs
	}
	visitNodes(doc, func(node map[string]any) bool {
		if raw, ok := node["@id"]; ok {
			if s, isStr := raw.(string); !isStr || s == "" {
				errs = append(errs, "@id must be a non-empty string")
			}
		}
		if raw, ok := node["@type"]; ok {
			for _, t := range asSlice(raw) {
				if _, isStr := t.(string); !isStr {
					errs = append(errs, fmt.Sprintf("@type entries must be strings, got %T", t))
				}
			}
		}
		if raw, ok := node["@context"]; ok {
			switch raw.(type) {
			case map[string]any, string, []any:
			default:
				errs = append(errs, fmt.Sprintf("@context must be an object, string, or array, got %T", raw))
			}
		}
		return true
	})
	return len(errs) == 0, errs
}

// OptimizeForStorage strips null-valued object entries recursively, the
// cheap pre-storage cleanup pass. Array elements are preserved, nulls
// included, since positions carry meaning.
func (p *Processor) OptimizeForStorage(doc any) any {
	return stripNulls(cloneValue(doc))
}

func stripNulls(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, c := range x {
			if c == nil {
				delete(x, k)
				continue
			}
			x[k] = stripNulls(c)
		}
		return x
	case []any:
		for i := range x {
			x[i] = stripNulls(x[i])
		}
		return x
	}
	return v
}
