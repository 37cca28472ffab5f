package jsonldex

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ArrayStrategy selects how array leaves are diffed.
type ArrayStrategy string

const (
	// ArrayDiffLCS matches elements by content hash and emits move markers.
	ArrayDiffLCS = ArrayStrategy("lcs")
	// ArrayDiffSimple compares elements positionally, never emitting moves.
	ArrayDiffSimple = ArrayStrategy("simple")
	// ArrayDiffMyers is accepted as an alias for the hash-matching strategy.
	ArrayDiffMyers = ArrayStrategy("myers")
)

// StructuralOptions controls the structural diff engine.
type StructuralOptions struct {
	IncludeMoves      bool
	ArrayDiff         ArrayStrategy
	TextDiff          bool
	TextDiffThreshold int
}

// DefaultStructuralOptions returns the documented defaults.
func DefaultStructuralOptions() StructuralOptions {
	return StructuralOptions{
		IncludeMoves:      true,
		ArrayDiff:         ArrayDiffLCS,
		TextDiff:          true,
		TextDiffThreshold: 60,
	}
}

// ParseStructuralOptions reads the string-map option form used at the JSON
// boundary. Unknown keys are ignored, malformed values keep their defaults.
func ParseStructuralOptions(m map[string]string) StructuralOptions {
	opts := DefaultStructuralOptions()
	if v, ok := m["include_moves"]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			opts.IncludeMoves = b
		}
	}
	if v, ok := m["array_diff"]; ok {
		switch ArrayStrategy(v) {
		case ArrayDiffLCS, ArrayDiffSimple, ArrayDiffMyers:
			opts.ArrayDiff = ArrayStrategy(v)
		}
	}
	if v, ok := m["text_diff"]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			opts.TextDiff = b
		}
	}
	if v, ok := m["text_diff_threshold"]; ok {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			opts.TextDiffThreshold = n
		}
	}
	return opts
}

// ConflictResolution names the strategy recorded in operation log metadata.
type ConflictResolution string

const (
	LastWriteWins = ConflictResolution("last_write_wins")
	MergeStrategy = ConflictResolution("merge")
)

// OperationalOptions controls the operational diff engine.
type OperationalOptions struct {
	// ActorID attributes every emitted operation. Defaults to a fresh
	// uuid-derived id per diff.
	ActorID string
	// BaseTimestamp seeds the strictly increasing per-operation timestamps.
	// Defaults to wall-clock nanoseconds at diff time.
	BaseTimestamp uint64
	// ConflictResolution is recorded in log metadata for downstream mergers.
	ConflictResolution ConflictResolution
}

// DefaultOperationalOptions generates a fresh actor id and a wall-clock base.
func DefaultOperationalOptions() OperationalOptions {
	return OperationalOptions{
		ActorID:            generateActorID(),
		BaseTimestamp:      uint64(time.Now().UnixNano()),
		ConflictResolution: LastWriteWins,
	}
}

func generateActorID() string {
	return "actor_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ParseOperationalOptions reads the boundary string-map form.
func ParseOperationalOptions(m map[string]string) OperationalOptions {
	opts := DefaultOperationalOptions()
	if v, ok := m["actor_id"]; ok && v != "" {
		opts.ActorID = v
	}
	if v, ok := m["base_timestamp"]; ok {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			opts.BaseTimestamp = n
		}
	} else if v, ok := m["timestamp"]; ok {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			opts.BaseTimestamp = n
		}
	}
	if v, ok := m["conflict_resolution"]; ok {
		switch ConflictResolution(v) {
		case LastWriteWins, MergeStrategy:
			opts.ConflictResolution = ConflictResolution(v)
		}
	}
	return opts
}

// BlankNodeStrategy names how anonymous node ids are derived. Only the
// hash-derived form affects extraction; the value is echoed in metadata.
type BlankNodeStrategy string

const (
	BlankNodeHash     = BlankNodeStrategy("hash")
	BlankNodeUUID     = BlankNodeStrategy("uuid")
	BlankNodePreserve = BlankNodeStrategy("preserve")
)

// SemanticOptions controls the semantic diff engine.
type SemanticOptions struct {
	// Normalize renumbers blank node ids canonically before comparison.
	Normalize bool
	// ContextAware includes the flattened @context diff in the result.
	ContextAware bool
	// BlankNodes is recorded in result metadata.
	BlankNodes BlankNodeStrategy
}

// DefaultSemanticOptions returns the documented defaults.
func DefaultSemanticOptions() SemanticOptions {
	return SemanticOptions{
		Normalize:    true,
		ContextAware: true,
		BlankNodes:   BlankNodeHash,
	}
}

// ParseSemanticOptions reads the boundary string-map form.
func ParseSemanticOptions(m map[string]string) SemanticOptions {
	opts := DefaultSemanticOptions()
	if v, ok := m["normalize"]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			opts.Normalize = b
		}
	}
	if v, ok := m["context_aware"]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			opts.ContextAware = b
		}
	}
	if v, ok := m["blank_node_strategy"]; ok {
		switch BlankNodeStrategy(v) {
		case BlankNodeHash, BlankNodeUUID, BlankNodePreserve:
			opts.BlankNodes = BlankNodeStrategy(v)
		}
	}
	return opts
}
