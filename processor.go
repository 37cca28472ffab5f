package jsonldex

import (
	"io"
	"log/slog"
	"sync/atomic"
)

// Processor is the entry point for all diff, patch, and expansion work. A
// single Processor is safe for concurrent use; every operation takes its
// inputs as arguments and touches only the shared caches, which guard their
// own state.
type Processor struct {
	caches *Caches
	log    *slog.Logger

	structuralDiffs  atomic.Uint64
	operationalDiffs atomic.Uint64
	semanticDiffs    atomic.Uint64
	expansions       atomic.Uint64
	bytesProcessed   atomic.Uint64
}

// Option configures a Processor.
type Option func(*Processor)

// WithCaches supplies shared caches, letting several Processors memoize into
// the same bounded store. Pass nil to disable caching.
func WithCaches(c *Caches) Option {
	return func(p *Processor) { p.caches = c }
}

// WithLogger routes batch progress logging to l. The library core never logs.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) { p.log = l }
}

// New creates a Processor with its own default-sized caches.
func New(opts ...Option) *Processor {
	p := &Processor{
		caches: NewCaches(),
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stats is a point-in-time snapshot of processor activity.
type Stats struct {
	StructuralDiffs  uint64 `json:"structural_diffs"`
	OperationalDiffs uint64 `json:"operational_diffs"`
	SemanticDiffs    uint64 `json:"semantic_diffs"`
	Expansions       uint64 `json:"expansions"`
	CacheHits        uint64 `json:"cache_hits"`
	CacheMisses      uint64 `json:"cache_misses"`
	BytesProcessed   uint64 `json:"bytes_processed"`
}

// Stats reads the counters. Under concurrent load the fields are each
// individually accurate but not a single consistent cut.
func (p *Processor) Stats() Stats {
	s := Stats{
		StructuralDiffs:  p.structuralDiffs.Load(),
		OperationalDiffs: p.operationalDiffs.Load(),
		SemanticDiffs:    p.semanticDiffs.Load(),
		Expansions:       p.expansions.Load(),
		BytesProcessed:   p.bytesProcessed.Load(),
	}
	if p.caches != nil {
		s.CacheHits = p.caches.hits.Load()
		s.CacheMisses = p.caches.misses.Load()
	}
	return s
}

func (p *Processor) countBytes(chunks ...[]byte) {
	var n uint64
	for _, c := range chunks {
		n += uint64(len(c))
	}
	p.bytesProcessed.Add(n)
}
