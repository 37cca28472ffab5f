// Package jsonldex computes and applies diffs of JSON and JSON-LD documents
// at three levels of meaning.
//
// The structural engine produces a compact jsondiffpatch-style nested delta:
// additions, deletions, changes, hash-detected array moves, and embedded
// character diffs for long strings. The operational engine produces a
// path-addressed operation log with actor ids and timestamps, suited to
// replay and multi-writer merging. The semantic engine compares documents as
// RDF-style triple sets, so serialization detail like key order, @set
// wrapping, or blank node labels does not register as change.
//
// All engines hang off a Processor, which owns bounded shared caches and
// activity counters and is safe for concurrent use:
//
//	p := jsonldex.New()
//	delta := p.DiffStructural(oldDoc, newDoc, jsonldex.DefaultStructuralOptions())
//	patched := p.PatchStructural(oldDoc, delta)
//
// Documents are dynamic `any` trees as produced by ParseDocument, which
// preserves the integer-vs-float distinction of the source JSON.
package jsonldex
