package jsonldex

import (
	"sort"
	"strconv"
	"unicode/utf8"
)

// structural delta markers, trailing magic numbers in the 3-element forms:
// [old, 0, 0] deletion, [{"text_diff": ops}, 0, 2] text diff, ["", from, 3]
// move. The 1-element form [new] is an addition, [old, new] a change.
const (
	markerDeleted  = 0
	markerTextDiff = 2
	markerMoved    = 3
)

// DiffStructural computes a nested structural delta describing how to turn
// old into new. The delta is itself a document value: object deltas map keys
// to sub-deltas, array deltas key operations on the old index space with
// "_<idx>" and additions on the new index space with "<idx>". Equal inputs
// produce an empty object delta.
func (p *Processor) DiffStructural(old, new any, opts StructuralOptions) any {
	p.structuralDiffs.Add(1)
	return p.structuralDiff(old, new, &opts)
}

func (p *Processor) structuralDiff(old, new any, opts *StructuralOptions) any {
	if DeepEqual(old, new) {
		return map[string]any{}
	}
	switch o := old.(type) {
	case map[string]any:
		if n, ok := new.(map[string]any); ok {
			return p.diffObjects(o, n, opts)
		}
	case []any:
		if n, ok := new.([]any); ok {
			return p.diffArrays(o, n, opts)
		}
	case string:
		if n, ok := new.(string); ok && opts.TextDiff &&
			utf8.RuneCountInString(o) > opts.TextDiffThreshold &&
			utf8.RuneCountInString(n) > opts.TextDiffThreshold {
			return textDiffDelta(o, n)
		}
	}
	return []any{old, new}
}

func (p *Processor) diffObjects(old, new map[string]any, opts *StructuralOptions) any {
	delta := map[string]any{}
	for _, key := range unionKeys(old, new) {
		oldVal, inOld := old[key]
		newVal, inNew := new[key]
		switch {
		case inOld && inNew:
			sub := p.structuralDiff(oldVal, newVal, opts)
			if !emptyDelta(sub) {
				delta[key] = sub
			}
		case inOld:
			delta[key] = []any{oldVal, int64(markerDeleted), int64(markerDeleted)}
		default:
			delta[key] = []any{newVal}
		}
	}
	return delta
}

func (p *Processor) diffArrays(old, new []any, opts *StructuralOptions) any {
	if opts.IncludeMoves && opts.ArrayDiff != ArrayDiffSimple {
		return p.diffArraysMoves(old, new, opts)
	}
	return p.diffArraysPositional(old, new, opts)
}

// diffArraysMoves matches unconsumed old elements against each new element
// by content hash, emitting a move marker when the matched indices differ.
// Unmatched positions fall back to positional change/delete/add.
func (p *Processor) diffArraysMoves(old, new []any, opts *StructuralOptions) any {
	oldHashes := make([]uint64, len(old))
	for i, v := range old {
		oldHashes[i] = p.caches.valueHash(v)
	}
	usedOld := make([]bool, len(old))
	usedNew := make([]bool, len(new))

	type move struct{ to, from int }
	var moves []move
	for ni, nv := range new {
		nh := p.caches.valueHash(nv)
		for oi := range old {
			if usedOld[oi] || oldHashes[oi] != nh {
				continue
			}
			// hashes are candidates only, confirm before consuming
			if !DeepEqual(old[oi], nv) {
				continue
			}
			if oi != ni {
				moves = append(moves, move{to: ni, from: oi})
			}
			usedOld[oi] = true
			usedNew[ni] = true
			break
		}
	}

	// a move keys the delta by destination index, a deletion by source
	// index. when both land on "_<i>" the move is cancelled back into a
	// delete plus change or insert, which can free further collisions, so
	// iterate to a fixpoint.
	for changed := true; changed; {
		changed = false
		kept := moves[:0]
		for _, m := range moves {
			if m.to < len(old) && !usedOld[m.to] {
				usedOld[m.from] = false
				usedNew[m.to] = false
				changed = true
				continue
			}
			kept = append(kept, m)
		}
		moves = kept
	}

	delta := map[string]any{}
	for _, m := range moves {
		delta["_"+strconv.Itoa(m.to)] = []any{"", int64(m.from), int64(markerMoved)}
	}

	n := len(old)
	if len(new) > n {
		n = len(new)
	}
	for i := 0; i < n; i++ {
		switch {
		case i < len(old) && i < len(new) && !usedOld[i] && !usedNew[i]:
			if !DeepEqual(old[i], new[i]) {
				delta["_"+strconv.Itoa(i)] = p.structuralDiff(old[i], new[i], opts)
			}
		case i < len(old) && !usedOld[i]:
			delta["_"+strconv.Itoa(i)] = []any{old[i], int64(markerDeleted), int64(markerDeleted)}
		case i < len(new) && !usedNew[i]:
			delta[strconv.Itoa(i)] = []any{new[i]}
		}
	}
	return delta
}

func (p *Processor) diffArraysPositional(old, new []any, opts *StructuralOptions) any {
	n := len(old)
	if len(new) > n {
		n = len(new)
	}
	delta := map[string]any{}
	for i := 0; i < n; i++ {
		switch {
		case i < len(old) && i < len(new):
			if !DeepEqual(old[i], new[i]) {
				delta["_"+strconv.Itoa(i)] = p.structuralDiff(old[i], new[i], opts)
			}
		case i < len(old):
			delta["_"+strconv.Itoa(i)] = []any{old[i], int64(markerDeleted), int64(markerDeleted)}
		default:
			delta[strconv.Itoa(i)] = []any{new[i]}
		}
	}
	return delta
}

// DiffStructuralJSON is the JSON boundary form of DiffStructural.
func (p *Processor) DiffStructuralJSON(old, new []byte, opts map[string]string) ([]byte, error) {
	p.countBytes(old, new)
	oldDoc, err := ParseDocument(old)
	if err != nil {
		return nil, err
	}
	newDoc, err := ParseDocument(new)
	if err != nil {
		return nil, err
	}
	delta := p.DiffStructural(oldDoc, newDoc, ParseStructuralOptions(opts))
	return MarshalDocument(delta)
}

func emptyDelta(v any) bool {
	m, ok := v.(map[string]any)
	return ok && len(m) == 0
}

func unionKeys(a, b map[string]any) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
