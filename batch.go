package jsonldex

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DiffKind selects which engine a batch diff runs.
type DiffKind string

const (
	DiffKindStructural  = DiffKind("structural")
	DiffKindOperational = DiffKind("operational")
	DiffKindSemantic    = DiffKind("semantic")
)

// BatchResult is the outcome of one batch item: a serialized payload on
// success, an error string otherwise. Exactly one of the two is set.
type BatchResult struct {
	Result []byte `json:"result,omitempty"`
	Err    string `json:"error,omitempty"`
}

// BatchDiffItem is one old/new document pair.
type BatchDiffItem struct {
	Old []byte
	New []byte
}

// BatchDiff diffs every item concurrently, bounded by GOMAXPROCS. Items are
// independent: one failure never affects another, and results come back in
// input order. Cancelling ctx marks unstarted items as cancelled.
func (p *Processor) BatchDiff(ctx context.Context, kind DiffKind, items []BatchDiffItem, opts map[string]string) []BatchResult {
	results := make([]BatchResult, len(items))
	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = BatchResult{Err: err.Error()}
				return nil
			}
			out, err := p.diffJSON(kind, item.Old, item.New, opts)
			if err != nil {
				results[i] = BatchResult{Err: err.Error()}
				return nil
			}
			results[i] = BatchResult{Result: out}
			return nil
		})
	}
	g.Wait()
	failed := 0
	for _, r := range results {
		if r.Err != "" {
			failed++
		}
	}
	p.log.Debug("batch diff complete",
		"kind", string(kind), "items", len(items), "failed", failed)
	return results
}

func (p *Processor) diffJSON(kind DiffKind, old, new []byte, opts map[string]string) ([]byte, error) {
	switch kind {
	case DiffKindStructural:
		return p.DiffStructuralJSON(old, new, opts)
	case DiffKindOperational:
		return p.DiffOperationalJSON(old, new, opts)
	case DiffKindSemantic:
		return p.DiffSemanticJSON(old, new, opts)
	}
	return nil, fmt.Errorf("unknown diff kind %q", kind)
}

// BatchExpand expands every document concurrently, results in input order.
func (p *Processor) BatchExpand(ctx context.Context, docs [][]byte) []BatchResult {
	results := make([]BatchResult, len(docs))
	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, doc := range docs {
		i, doc := i, doc
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = BatchResult{Err: err.Error()}
				return nil
			}
			out, err := p.ExpandJSON(doc)
			if err != nil {
				results[i] = BatchResult{Err: err.Error()}
				return nil
			}
			results[i] = BatchResult{Result: out}
			return nil
		})
	}
	g.Wait()
	p.log.Debug("batch expand complete", "items", len(docs))
	return results
}
