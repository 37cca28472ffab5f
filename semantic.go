package jsonldex

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Well-known vocabulary. Property names outside the prefix table expand
// against the default vocab.
const (
	rdfNamespace    = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	rdfsNamespace   = "http://www.w3.org/2000/01/rdf-schema#"
	xsdNamespace    = "http://www.w3.org/2001/XMLSchema#"
	schemaNamespace = "http://schema.org/"
	defaultVocab    = "http://example.org/"

	rdfTypeIRI = rdfNamespace + "type"
	xsdString  = xsdNamespace + "string"
	xsdInteger = xsdNamespace + "integer"
	xsdDouble  = xsdNamespace + "double"
	xsdBoolean = xsdNamespace + "boolean"
)

var prefixTable = map[string]string{
	"rdf":    rdfNamespace,
	"rdfs":   rdfsNamespace,
	"xsd":    xsdNamespace,
	"schema": schemaNamespace,
}

// Term is a triple object: either a reference (IRI or blank node id) or a
// literal with a lexical value, an optional datatype, and an optional
// language tag. Exactly one of IRI or Value carries meaning; a reference
// serializes as a bare JSON string, a literal as an object.
type Term struct {
	IRI      string
	Value    string
	Type     string
	Language string
}

// Ref makes a reference term.
func Ref(iri string) Term { return Term{IRI: iri} }

// Literal makes a typed literal term.
func Literal(value, datatype string) Term { return Term{Value: value, Type: datatype} }

// IsRef reports whether the term is an IRI or blank node reference.
func (t Term) IsRef() bool { return t.IRI != "" }

func (t Term) MarshalJSON() ([]byte, error) {
	if t.IsRef() {
		return json.Marshal(t.IRI)
	}
	obj := map[string]any{"value": t.Value}
	if t.Language != "" {
		obj["language"] = t.Language
	} else if t.Type != "" {
		obj["type"] = t.Type
	}
	return json.Marshal(obj)
}

func (t *Term) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = Term{IRI: s}
		return nil
	}
	var obj struct {
		Value    json.RawMessage `json:"value"`
		Type     string          `json:"type"`
		Language string          `json:"language"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("parsing term: %w", err)
	}
	var sval string
	if err := json.Unmarshal(obj.Value, &sval); err != nil {
		// foreign producers may emit raw scalars, keep the lexical form
		sval = strings.TrimSpace(string(obj.Value))
	}
	*t = Term{Value: sval, Type: obj.Type, Language: obj.Language}
	return nil
}

// Triple is a subject-predicate-object fact extracted from a document.
// Subjects are IRIs or blank node ids of the form "_:...".
type Triple struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    Term   `json:"object"`
}

func (t Triple) less(u Triple) bool {
	if t.Subject != u.Subject {
		return t.Subject < u.Subject
	}
	if t.Predicate != u.Predicate {
		return t.Predicate < u.Predicate
	}
	return termSortKey(t.Object) < termSortKey(u.Object)
}

func termSortKey(t Term) string {
	if t.IsRef() {
		return "r\x00" + t.IRI
	}
	return "l\x00" + t.Value + "\x00" + t.Type + "\x00" + t.Language
}

// ExtractTriples flattens a document into its triple set. Nodes without an
// @id get a blank node id derived from the structural hash of their
// key-sorted subtree, so identical anonymous subtrees share an id across
// documents. With normalization on, discovered blank ids are renumbered
// canonically by lexicographic order.
func (p *Processor) ExtractTriples(doc any, opts SemanticOptions) []Triple {
	ex := &tripleExtractor{}
	ex.walkNode(doc)
	triples := ex.triples
	if opts.Normalize {
		triples = canonicalizeBlankNodes(triples)
	}
	sort.Slice(triples, func(i, j int) bool { return triples[i].less(triples[j]) })
	return triples
}

type tripleExtractor struct {
	triples []Triple
}

func (ex *tripleExtractor) walkNode(node any) string {
	switch n := node.(type) {
	case map[string]any:
		subject := blankNodeID(n)
		if id, ok := n["@id"].(string); ok && id != "" {
			subject = id
		}
		for _, key := range sortedKeys(n) {
			val := n[key]
			switch key {
			case "@id", "@context":
				continue
			case "@type":
				for _, t := range asSlice(val) {
					if ts, ok := t.(string); ok {
						ex.emit(subject, rdfTypeIRI, Ref(expandPropertyIRI(ts)))
					}
				}
				continue
			}
			if strings.HasPrefix(key, "@") {
				continue
			}
			pred := expandPropertyIRI(key)
			for _, item := range asSlice(val) {
				ex.emitValue(subject, pred, item)
			}
		}
		return subject
	case []any:
		last := ""
		for _, item := range n {
			last = ex.walkNode(item)
		}
		return last
	}
	return ""
}

func (ex *tripleExtractor) emitValue(subject, pred string, v any) {
	switch x := v.(type) {
	case map[string]any:
		if id, ok := x["@id"].(string); ok && len(x) == 1 {
			ex.emit(subject, pred, Ref(id))
			return
		}
		if raw, ok := x["@value"]; ok {
			term := Term{Value: lexicalForm(raw)}
			if lang, ok := x["@language"].(string); ok && lang != "" {
				term.Language = strings.ToLower(lang)
			} else if dt, ok := x["@type"].(string); ok && dt != "" {
				term.Type = expandPropertyIRI(dt)
			} else {
				term.Type = literalType(raw)
			}
			ex.emit(subject, pred, term)
			return
		}
		// container wrappers are transparent: {"@set": [...]} and a bare
		// array extract identically
		if wrapped, ok := x["@set"]; ok {
			for _, item := range asSlice(wrapped) {
				ex.emitValue(subject, pred, item)
			}
			return
		}
		if wrapped, ok := x["@list"]; ok {
			for _, item := range asSlice(wrapped) {
				ex.emitValue(subject, pred, item)
			}
			return
		}
		child := ex.walkNode(x)
		if child != "" {
			ex.emit(subject, pred, Ref(child))
		}
	case []any:
		for _, item := range x {
			ex.emitValue(subject, pred, item)
		}
	case string:
		if isAbsoluteIRI(x) {
			ex.emit(subject, pred, Ref(x))
			return
		}
		ex.emit(subject, pred, Literal(x, xsdString))
	case bool:
		ex.emit(subject, pred, Literal(strconv.FormatBool(x), xsdBoolean))
	case int64:
		ex.emit(subject, pred, Literal(strconv.FormatInt(x, 10), xsdInteger))
	case float64:
		ex.emit(subject, pred, Literal(formatFloat(x), xsdDouble))
	}
}

func (ex *tripleExtractor) emit(subject, pred string, obj Term) {
	ex.triples = append(ex.triples, Triple{Subject: subject, Predicate: pred, Object: obj})
}

// blankNodeID derives a stable id from the canonical (key-sorted) encoding
// of the subtree, so the same anonymous content gets the same id.
func blankNodeID(node map[string]any) string {
	return fmt.Sprintf("_:b%016x", xxhash.Sum64(appendCanonical(nil, node)))
}

// canonicalizeBlankNodes renumbers blank ids to _:h%08d by lexicographic
// order of the discovered ids. Label-independent for content-derived ids,
// not a graph isomorphism algorithm.
func canonicalizeBlankNodes(triples []Triple) []Triple {
	seen := map[string]struct{}{}
	for _, t := range triples {
		if strings.HasPrefix(t.Subject, "_:") {
			seen[t.Subject] = struct{}{}
		}
		if t.Object.IsRef() && strings.HasPrefix(t.Object.IRI, "_:") {
			seen[t.Object.IRI] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	rename := make(map[string]string, len(ids))
	for i, id := range ids {
		rename[id] = fmt.Sprintf("_:h%08d", i)
	}
	out := make([]Triple, len(triples))
	for i, t := range triples {
		if r, ok := rename[t.Subject]; ok {
			t.Subject = r
		}
		if t.Object.IsRef() {
			if r, ok := rename[t.Object.IRI]; ok {
				t.Object.IRI = r
			}
		}
		out[i] = t
	}
	return out
}

func expandPropertyIRI(prop string) string {
	if isAbsoluteIRI(prop) {
		return prop
	}
	if idx := strings.Index(prop, ":"); idx > 0 {
		if ns, ok := prefixTable[prop[:idx]]; ok {
			return ns + prop[idx+1:]
		}
		return prop
	}
	return defaultVocab + prop
}

func isAbsoluteIRI(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func lexicalForm(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return formatFloat(x)
	case nil:
		return "null"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func literalType(v any) string {
	switch v.(type) {
	case bool:
		return xsdBoolean
	case int64:
		return xsdInteger
	case float64:
		return xsdDouble
	}
	return xsdString
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func asSlice(v any) []any {
	if arr, ok := v.([]any); ok {
		return arr
	}
	return []any{v}
}

// PropertyChange is one property-level difference on a node.
type PropertyChange struct {
	Property   string `json:"property"`
	OldValue   *Term  `json:"old_value,omitempty"`
	NewValue   *Term  `json:"new_value,omitempty"`
	ChangeType string `json:"change_type"`
}

// NodeChange groups the triple-level changes touching one subject.
type NodeChange struct {
	NodeID             string           `json:"node_id"`
	AddedProperties    []PropertyChange `json:"added_properties"`
	RemovedProperties  []PropertyChange `json:"removed_properties"`
	ModifiedProperties []PropertyChange `json:"modified_properties"`
}

// ContextChanges is the flattened @context diff.
type ContextChanges struct {
	AddedMappings   map[string]string    `json:"added_mappings"`
	RemovedMappings map[string]string    `json:"removed_mappings"`
	ChangedMappings map[string][2]string `json:"changed_mappings"`
	BaseChanges     []any                `json:"base_changes,omitempty"`
}

// SemanticMetadata echoes how the comparison was performed.
type SemanticMetadata struct {
	NormalizationAlgorithm string `json:"normalization_algorithm"`
	BlankNodeHandling      string `json:"blank_node_handling"`
	SemanticEquivalence    bool   `json:"semantic_equivalence"`
}

// SemanticDelta is the full semantic comparison result.
type SemanticDelta struct {
	AddedTriples   []Triple         `json:"added_triples"`
	RemovedTriples []Triple         `json:"removed_triples"`
	ModifiedNodes  []NodeChange     `json:"modified_nodes"`
	ContextChanges ContextChanges   `json:"context_changes"`
	Metadata       SemanticMetadata `json:"metadata"`
}

// Equivalent reports whether the compared documents share a triple set.
func (d SemanticDelta) Equivalent() bool {
	return len(d.AddedTriples) == 0 && len(d.RemovedTriples) == 0
}

// DiffSemantic compares two documents as triple sets. Serialization detail
// with no triple-level effect (key order, @set wrapping, blank node labels
// under normalization) produces an empty diff.
func (p *Processor) DiffSemantic(old, new any, opts SemanticOptions) SemanticDelta {
	p.semanticDiffs.Add(1)
	oldTriples := p.ExtractTriples(old, opts)
	newTriples := p.ExtractTriples(new, opts)

	oldSet := make(map[Triple]struct{}, len(oldTriples))
	for _, t := range oldTriples {
		oldSet[t] = struct{}{}
	}
	newSet := make(map[Triple]struct{}, len(newTriples))
	for _, t := range newTriples {
		newSet[t] = struct{}{}
	}

	added := []Triple{}
	for _, t := range newTriples {
		if _, ok := oldSet[t]; !ok {
			added = append(added, t)
		}
	}
	removed := []Triple{}
	for _, t := range oldTriples {
		if _, ok := newSet[t]; !ok {
			removed = append(removed, t)
		}
	}

	delta := SemanticDelta{
		AddedTriples:   added,
		RemovedTriples: removed,
		ModifiedNodes:  groupChangesByNode(added, removed),
		ContextChanges: emptyContextChanges(),
		Metadata: SemanticMetadata{
			NormalizationAlgorithm: "urdna2015",
			BlankNodeHandling:      string(opts.BlankNodes),
			SemanticEquivalence:    len(added) == 0 && len(removed) == 0,
		},
	}
	if opts.ContextAware {
		delta.ContextChanges = diffContexts(contextOf(old), contextOf(new))
	}
	return delta
}

// groupChangesByNode buckets added and removed triples by subject, pairing
// the first addition and removal on the same predicate into a modification.
func groupChangesByNode(added, removed []Triple) []NodeChange {
	type bucket struct {
		added   map[string][]Term
		removed map[string][]Term
	}
	nodes := map[string]*bucket{}
	get := func(subject string) *bucket {
		b, ok := nodes[subject]
		if !ok {
			b = &bucket{added: map[string][]Term{}, removed: map[string][]Term{}}
			nodes[subject] = b
		}
		return b
	}
	for _, t := range added {
		b := get(t.Subject)
		b.added[t.Predicate] = append(b.added[t.Predicate], t.Object)
	}
	for _, t := range removed {
		b := get(t.Subject)
		b.removed[t.Predicate] = append(b.removed[t.Predicate], t.Object)
	}

	subjects := make([]string, 0, len(nodes))
	for s := range nodes {
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)

	changes := []NodeChange{}
	for _, subject := range subjects {
		b := nodes[subject]
		nc := NodeChange{
			NodeID:             subject,
			AddedProperties:    []PropertyChange{},
			RemovedProperties:  []PropertyChange{},
			ModifiedProperties: []PropertyChange{},
		}
		preds := map[string]struct{}{}
		for pred := range b.added {
			preds[pred] = struct{}{}
		}
		for pred := range b.removed {
			preds[pred] = struct{}{}
		}
		sortedPreds := make([]string, 0, len(preds))
		for pred := range preds {
			sortedPreds = append(sortedPreds, pred)
		}
		sort.Strings(sortedPreds)

		for _, pred := range sortedPreds {
			adds := b.added[pred]
			rems := b.removed[pred]
			if len(adds) > 0 && len(rems) > 0 {
				oldVal, newVal := rems[0], adds[0]
				nc.ModifiedProperties = append(nc.ModifiedProperties, PropertyChange{
					Property:   pred,
					OldValue:   &oldVal,
					NewValue:   &newVal,
					ChangeType: "value",
				})
				adds = adds[1:]
				rems = rems[1:]
			}
			for _, term := range adds {
				t := term
				nc.AddedProperties = append(nc.AddedProperties, PropertyChange{
					Property:   pred,
					NewValue:   &t,
					ChangeType: "added",
				})
			}
			for _, term := range rems {
				t := term
				nc.RemovedProperties = append(nc.RemovedProperties, PropertyChange{
					Property:   pred,
					OldValue:   &t,
					ChangeType: "removed",
				})
			}
		}
		changes = append(changes, nc)
	}
	return changes
}

func contextOf(doc any) map[string]any {
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil
	}
	ctx, ok := obj["@context"].(map[string]any)
	if !ok {
		return nil
	}
	return ctx
}

// flattenContext reduces a context object to string mappings; non-string
// term definitions keep their compact JSON form.
func flattenContext(ctx map[string]any) map[string]string {
	flat := make(map[string]string, len(ctx))
	for k, v := range ctx {
		if s, ok := v.(string); ok {
			flat[k] = s
			continue
		}
		data, err := json.Marshal(v)
		if err != nil {
			continue
		}
		flat[k] = string(data)
	}
	return flat
}

func emptyContextChanges() ContextChanges {
	return ContextChanges{
		AddedMappings:   map[string]string{},
		RemovedMappings: map[string]string{},
		ChangedMappings: map[string][2]string{},
	}
}

func diffContexts(oldCtx, newCtx map[string]any) ContextChanges {
	changes := emptyContextChanges()
	oldFlat := flattenContext(oldCtx)
	newFlat := flattenContext(newCtx)
	for k, nv := range newFlat {
		ov, present := oldFlat[k]
		switch {
		case !present:
			changes.AddedMappings[k] = nv
		case ov != nv:
			changes.ChangedMappings[k] = [2]string{ov, nv}
		}
	}
	for k, ov := range oldFlat {
		if _, present := newFlat[k]; !present {
			changes.RemovedMappings[k] = ov
		}
	}
	if ob, nb := oldFlat["@base"], newFlat["@base"]; ob != nb {
		changes.BaseChanges = []any{stringOrNil(ob), stringOrNil(nb)}
		delete(changes.AddedMappings, "@base")
		delete(changes.RemovedMappings, "@base")
		delete(changes.ChangedMappings, "@base")
	}
	return changes
}

func stringOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// DiffSemanticJSON is the JSON boundary form of DiffSemantic.
func (p *Processor) DiffSemanticJSON(old, new []byte, opts map[string]string) ([]byte, error) {
	p.countBytes(old, new)
	oldDoc, err := ParseDocument(old)
	if err != nil {
		return nil, err
	}
	newDoc, err := ParseDocument(new)
	if err != nil {
		return nil, err
	}
	delta := p.DiffSemantic(oldDoc, newDoc, ParseSemanticOptions(opts))
	return json.Marshal(delta)
}
