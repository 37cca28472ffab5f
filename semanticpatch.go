package jsonldex

import (
	"encoding/json"
	"strconv"
	"strings"
)

// PatchSemantic applies a semantic delta to a document. Reconstruction is
// scoped to the root subject: triples about the root node are merged into or
// retracted from its properties under their local names, and context mapping
// changes are folded into @context. Triples about other subjects are ignored.
func (p *Processor) PatchSemantic(doc any, delta SemanticDelta) any {
	obj, ok := cloneValue(doc).(map[string]any)
	if !ok {
		return doc
	}
	rootID := rootSubject(obj, delta)
	for _, t := range delta.RemovedTriples {
		if t.Subject == rootID {
			removeTriple(obj, t)
		}
	}
	for _, t := range delta.AddedTriples {
		if t.Subject == rootID {
			addTriple(obj, t)
		}
	}
	applyContextChanges(obj, delta.ContextChanges)
	return obj
}

// rootSubject resolves which delta subject addresses the document: its @id
// when present, otherwise the single blank subject if the delta touches
// exactly one.
func rootSubject(obj map[string]any, delta SemanticDelta) string {
	if id, ok := obj["@id"].(string); ok && id != "" {
		return id
	}
	subjects := map[string]struct{}{}
	for _, t := range delta.AddedTriples {
		subjects[t.Subject] = struct{}{}
	}
	for _, t := range delta.RemovedTriples {
		subjects[t.Subject] = struct{}{}
	}
	if len(subjects) == 1 {
		for s := range subjects {
			if strings.HasPrefix(s, "_:") {
				return s
			}
		}
	}
	return ""
}

func addTriple(obj map[string]any, t Triple) {
	if t.Predicate == rdfTypeIRI && t.Object.IsRef() {
		mergeType(obj, iriLocalName(t.Object.IRI))
		return
	}
	key := iriLocalName(t.Predicate)
	val := termToValue(t.Object)
	existing, present := obj[key]
	switch {
	case !present:
		obj[key] = val
	default:
		if arr, ok := existing.([]any); ok {
			for _, v := range arr {
				if DeepEqual(v, val) {
					return
				}
			}
			obj[key] = append(arr, val)
			return
		}
		if !DeepEqual(existing, val) {
			obj[key] = []any{existing, val}
		}
	}
}

func mergeType(obj map[string]any, typeName string) {
	switch existing := obj["@type"].(type) {
	case nil:
		obj["@type"] = typeName
	case string:
		if existing != typeName {
			obj["@type"] = []any{existing, typeName}
		}
	case []any:
		for _, v := range existing {
			if s, ok := v.(string); ok && s == typeName {
				return
			}
		}
		obj["@type"] = append(existing, typeName)
	}
}

func removeTriple(obj map[string]any, t Triple) {
	if t.Predicate == rdfTypeIRI && t.Object.IsRef() {
		removeType(obj, iriLocalName(t.Object.IRI))
		return
	}
	key := iriLocalName(t.Predicate)
	val := termToValue(t.Object)
	switch existing := obj[key].(type) {
	case []any:
		kept := existing[:0]
		for _, v := range existing {
			if !DeepEqual(v, val) {
				kept = append(kept, v)
			}
		}
		switch len(kept) {
		case 0:
			delete(obj, key)
		case 1:
			obj[key] = kept[0]
		default:
			obj[key] = kept
		}
	default:
		if DeepEqual(existing, val) {
			delete(obj, key)
		}
	}
}

func removeType(obj map[string]any, typeName string) {
	switch existing := obj["@type"].(type) {
	case string:
		if existing == typeName {
			delete(obj, "@type")
		}
	case []any:
		kept := existing[:0]
		for _, v := range existing {
			if s, ok := v.(string); ok && s == typeName {
				continue
			}
			kept = append(kept, v)
		}
		switch len(kept) {
		case 0:
			delete(obj, "@type")
		case 1:
			obj["@type"] = kept[0]
		default:
			obj["@type"] = kept
		}
	}
}

// termToValue decodes a term back to a document value: references to their
// IRI string, xsd integer/double/boolean literals to JSON scalars, anything
// else to its lexical string. Language tags do not survive the round trip.
func termToValue(t Term) any {
	if t.IsRef() {
		return t.IRI
	}
	switch t.Type {
	case xsdInteger:
		if n, err := strconv.ParseInt(t.Value, 10, 64); err == nil {
			return n
		}
	case xsdDouble:
		if f, err := strconv.ParseFloat(t.Value, 64); err == nil {
			return f
		}
	case xsdBoolean:
		if b, err := strconv.ParseBool(t.Value); err == nil {
			return b
		}
	}
	return t.Value
}

// iriLocalName takes the fragment after the last '#' or '/', the form
// document keys use.
func iriLocalName(iri string) string {
	if idx := strings.LastIndex(iri, "#"); idx >= 0 {
		return iri[idx+1:]
	}
	if idx := strings.LastIndex(iri, "/"); idx >= 0 {
		return iri[idx+1:]
	}
	return iri
}

func applyContextChanges(obj map[string]any, changes ContextChanges) {
	if len(changes.AddedMappings) == 0 && len(changes.RemovedMappings) == 0 &&
		len(changes.ChangedMappings) == 0 && len(changes.BaseChanges) == 0 {
		return
	}
	ctx, ok := obj["@context"].(map[string]any)
	if !ok {
		ctx = map[string]any{}
	}
	for k, v := range changes.AddedMappings {
		ctx[k] = v
	}
	for k, pair := range changes.ChangedMappings {
		ctx[k] = pair[1]
	}
	for k := range changes.RemovedMappings {
		delete(ctx, k)
	}
	if len(changes.BaseChanges) == 2 {
		if nb, ok := changes.BaseChanges[1].(string); ok && nb != "" {
			ctx["@base"] = nb
		} else {
			delete(ctx, "@base")
		}
	}
	if len(ctx) == 0 {
		delete(obj, "@context")
		return
	}
	obj["@context"] = ctx
}

// PatchSemanticJSON is the JSON boundary form of PatchSemantic.
func (p *Processor) PatchSemanticJSON(doc, deltaData []byte) ([]byte, error) {
	p.countBytes(doc, deltaData)
	docVal, err := ParseDocument(doc)
	if err != nil {
		return nil, err
	}
	var delta SemanticDelta
	if err := json.Unmarshal(deltaData, &delta); err != nil {
		return nil, err
	}
	return MarshalDocument(p.PatchSemantic(docVal, delta))
}
