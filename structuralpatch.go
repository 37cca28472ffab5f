package jsonldex

import (
	"sort"
	"strconv"
	"strings"
)

// PatchStructural applies a structural delta to a document and returns the
// patched result. The input document is not modified. Operations addressing
// positions the document does not have are silently skipped, so applying a
// delta to a document it was not computed from degrades rather than failing.
func (p *Processor) PatchStructural(doc, delta any) any {
	return applyStructural(cloneValue(doc), delta)
}

// PatchStructuralJSON is the JSON boundary form of PatchStructural.
func (p *Processor) PatchStructuralJSON(doc, delta []byte) ([]byte, error) {
	p.countBytes(doc, delta)
	docVal, err := ParseDocument(doc)
	if err != nil {
		return nil, err
	}
	deltaVal, err := ParseDocument(delta)
	if err != nil {
		return nil, err
	}
	return MarshalDocument(applyStructural(docVal, deltaVal))
}

func applyStructural(doc, delta any) any {
	switch d := delta.(type) {
	case map[string]any:
		return applyObjectDelta(doc, d)
	case []any:
		return applyLeafDelta(doc, d)
	}
	return delta
}

func applyObjectDelta(doc any, delta map[string]any) any {
	if arr, ok := doc.([]any); ok {
		return applyArrayDelta(arr, delta)
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return doc
	}
	result := make(map[string]any, len(obj))
	for k, v := range obj {
		result[k] = v
	}
	for _, key := range sortedKeys(delta) {
		sub := delta[key]
		existing, present := result[key]
		// a nested array delta under an object key patches that array
		if subObj, ok := sub.(map[string]any); ok {
			if arr, isArr := existing.([]any); isArr {
				result[key] = applyArrayDelta(arr, subObj)
				continue
			}
			if present {
				result[key] = applyStructural(existing, subObj)
			} else {
				result[key] = sub
			}
			continue
		}
		if strings.HasPrefix(key, "_") {
			// array operation keys are meaningless on an object
			continue
		}
		leaf, ok := sub.([]any)
		if !ok {
			result[key] = sub
			continue
		}
		switch {
		case len(leaf) == 3 && isNum(leaf[1], markerDeleted) && isNum(leaf[2], markerDeleted):
			delete(result, key)
		case len(leaf) == 1:
			result[key] = leaf[0]
		case len(leaf) == 2:
			result[key] = leaf[1]
		default:
			if present {
				result[key] = applyStructural(existing, leaf)
			} else {
				result[key] = sub
			}
		}
	}
	return result
}

// applyArrayDelta classifies the keyed operations and applies them in index
// space order. Changes address the old index space, so they run first,
// before anything shifts. Removals (deletions plus move sources) run next,
// descending, stashing each moved value by its destination. Finally move
// destinations and insertions both address the new index space, so they run
// as a single ascending pass: every element with a smaller final index is
// already in place when a value lands, which makes each insertion position
// exact.
func applyArrayDelta(existing []any, delta map[string]any) []any {
	type move struct{ to, from int }
	type entry struct {
		idx int
		val any
	}
	var deletes []int
	var moves []move
	var inserts []entry
	var changes []entry

	for _, key := range sortedKeys(delta) {
		sub := delta[key]
		if !strings.HasPrefix(key, "_") {
			idx, err := strconv.Atoi(key)
			if err != nil {
				continue
			}
			if leaf, ok := sub.([]any); ok && len(leaf) == 1 {
				inserts = append(inserts, entry{idx, leaf[0]})
			}
			continue
		}
		idx, err := strconv.Atoi(key[1:])
		if err != nil {
			continue
		}
		leaf, ok := sub.([]any)
		if !ok {
			// nested delta against the element at idx
			if idx >= 0 && idx < len(existing) {
				changes = append(changes, entry{idx, applyStructural(existing[idx], sub)})
			}
			continue
		}
		switch {
		case len(leaf) == 3 && isNum(leaf[1], markerDeleted) && isNum(leaf[2], markerDeleted):
			deletes = append(deletes, idx)
		case len(leaf) == 3 && isNum(leaf[2], markerMoved):
			if from, ok := asInt(leaf[1]); ok {
				moves = append(moves, move{to: idx, from: from})
			}
		case len(leaf) == 1:
			// legacy underscore-keyed insertion
			inserts = append(inserts, entry{idx, leaf[0]})
		case len(leaf) == 2:
			changes = append(changes, entry{idx, leaf[1]})
		default:
			if idx >= 0 && idx < len(existing) {
				changes = append(changes, entry{idx, applyStructural(existing[idx], leaf)})
			}
		}
	}

	result := make([]any, len(existing))
	copy(result, existing)

	// phase 1: changes, in the old index space, before anything shifts
	sort.Slice(changes, func(i, j int) bool { return changes[i].idx < changes[j].idx })
	for _, c := range changes {
		if c.idx >= 0 && c.idx < len(result) {
			result[c.idx] = c.val
		}
	}

	// phase 2: all removals descending, stashing moved values by destination
	type removal struct {
		idx     int
		moveIdx int
	}
	removals := make([]removal, 0, len(deletes)+len(moves))
	for _, d := range deletes {
		removals = append(removals, removal{d, -1})
	}
	for i := range moves {
		removals = append(removals, removal{moves[i].from, i})
	}
	sort.Slice(removals, func(i, j int) bool { return removals[i].idx > removals[j].idx })
	moved := map[int]any{}
	for _, r := range removals {
		if r.idx < 0 || r.idx >= len(result) {
			continue
		}
		v := result[r.idx]
		result = append(result[:r.idx], result[r.idx+1:]...)
		if r.moveIdx >= 0 {
			moved[moves[r.moveIdx].to] = v
		}
	}

	// phase 3: move destinations and insertions, one ascending pass over the
	// new index space (an insertion below a move destination must land first
	// or it would shift the moved element off its index)
	dests := make([]int, 0, len(moved))
	for to := range moved {
		dests = append(dests, to)
	}
	sort.Ints(dests)
	landings := make([]entry, 0, len(moved)+len(inserts))
	for _, to := range dests {
		landings = append(landings, entry{to, moved[to]})
	}
	landings = append(landings, inserts...)
	sort.SliceStable(landings, func(i, j int) bool { return landings[i].idx < landings[j].idx })
	for _, l := range landings {
		at := l.idx
		if at < 0 {
			at = 0
		}
		if at > len(result) {
			at = len(result)
		}
		result = append(result, nil)
		copy(result[at+1:], result[at:])
		result[at] = l.val
	}
	return result
}

func applyLeafDelta(doc any, leaf []any) any {
	if len(leaf) == 3 && isNum(leaf[1], markerDeleted) && isNum(leaf[2], markerTextDiff) {
		if s, ok := doc.(string); ok {
			if m, ok := leaf[0].(map[string]any); ok {
				if ops, ok := m["text_diff"].([]any); ok {
					return applyTextDiff(s, ops)
				}
			}
		}
		return doc
	}
	switch len(leaf) {
	case 1:
		return leaf[0]
	case 2:
		return leaf[1]
	case 3:
		if isNum(leaf[1], markerDeleted) && isNum(leaf[2], markerDeleted) {
			// deletion applied at a value position degrades to null
			return nil
		}
	}
	return doc
}

func isNum(v any, n int64) bool {
	switch x := v.(type) {
	case int64:
		return x == n
	case float64:
		return x == float64(n)
	}
	return false
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int64:
		return int(x), true
	case float64:
		if x == float64(int(x)) {
			return int(x), true
		}
	}
	return 0, false
}
