package jsonldex

import (
	"fmt"
	"sort"
)

// Operation kinds.
const (
	OpSet    = "set"
	OpDelete = "delete"
	OpInsert = "insert"
)

// Operation is a single path-addressed edit. Path elements are string keys
// for objects and integer indices for arrays.
type Operation struct {
	Type      string `json:"type"`
	Path      []any  `json:"path"`
	Value     any    `json:"value,omitempty"`
	Timestamp uint64 `json:"timestamp"`
	ActorID   string `json:"actor_id"`
}

// LogMetadata describes an operation log as a whole.
type LogMetadata struct {
	Actors             []string           `json:"actors"`
	TimestampRange     []uint64           `json:"timestamp_range,omitempty"`
	ConflictResolution ConflictResolution `json:"conflict_resolution"`
}

// OperationLog is an ordered set of operations plus metadata. Replay sorts
// by timestamp with a stable sort, so equal timestamps keep log order.
type OperationLog struct {
	Operations []Operation `json:"operations"`
	Metadata   LogMetadata `json:"metadata"`
}

// DiffOperational derives an operation log that rewrites old into new.
// Timestamps increase strictly from opts.BaseTimestamp in emission order.
func (p *Processor) DiffOperational(old, new any, opts OperationalOptions) OperationLog {
	p.operationalDiffs.Add(1)
	d := &opDiffer{actor: opts.ActorID, next: opts.BaseTimestamp}
	d.diff(old, new, nil)
	log := OperationLog{
		Operations: d.ops,
		Metadata: LogMetadata{
			Actors:             []string{opts.ActorID},
			ConflictResolution: opts.ConflictResolution,
		},
	}
	if len(d.ops) > 0 {
		log.Metadata.TimestampRange = []uint64{
			d.ops[0].Timestamp,
			d.ops[len(d.ops)-1].Timestamp,
		}
	}
	return log
}

type opDiffer struct {
	ops   []Operation
	actor string
	next  uint64
}

func (d *opDiffer) emit(kind string, path []any, value any) {
	d.ops = append(d.ops, Operation{
		Type:      kind,
		Path:      append([]any(nil), path...),
		Value:     value,
		Timestamp: d.next,
		ActorID:   d.actor,
	})
	d.next++
}

func (d *opDiffer) diff(old, new any, path []any) {
	if DeepEqual(old, new) {
		return
	}
	switch o := old.(type) {
	case map[string]any:
		if n, ok := new.(map[string]any); ok {
			d.diffObjects(o, n, path)
			return
		}
	case []any:
		if n, ok := new.([]any); ok {
			d.diffArrays(o, n, path)
			return
		}
	}
	d.emit(OpSet, path, new)
}

func (d *opDiffer) diffObjects(old, new map[string]any, path []any) {
	for _, key := range unionKeys(old, new) {
		oldVal, inOld := old[key]
		newVal, inNew := new[key]
		childPath := append(path, key)
		switch {
		case inOld && inNew:
			d.diff(oldVal, newVal, childPath)
		case inOld:
			d.emit(OpDelete, childPath, nil)
		default:
			d.emit(OpSet, childPath, newVal)
		}
	}
}

// diffArrays rewrites the whole array: old elements deleted highest index
// first, new elements inserted in order. Coarse, but replay-deterministic.
func (d *opDiffer) diffArrays(old, new []any, path []any) {
	for i := len(old) - 1; i >= 0; i-- {
		d.emit(OpDelete, append(path, int64(i)), nil)
	}
	for i, v := range new {
		d.emit(OpInsert, append(path, int64(i)), v)
	}
}

// ApplyOperational replays a log against a document: operations are stable
// sorted by timestamp, then folded left to right. Operations addressing
// missing paths or the wrong container kind are silent no-ops.
func (p *Processor) ApplyOperational(doc any, log OperationLog) any {
	result := cloneValue(doc)
	ops := make([]Operation, len(log.Operations))
	copy(ops, log.Operations)
	sort.SliceStable(ops, func(i, j int) bool { return ops[i].Timestamp < ops[j].Timestamp })
	for _, op := range ops {
		result = applyOperation(result, op.Path, op.Type, op.Value)
	}
	return result
}

func applyOperation(cur any, path []any, kind string, value any) any {
	if len(path) == 0 {
		switch kind {
		case OpSet, OpInsert:
			return cloneValue(value)
		case OpDelete:
			return nil
		}
		return cur
	}
	switch node := cur.(type) {
	case map[string]any:
		key, ok := path[0].(string)
		if !ok {
			return cur
		}
		if len(path) == 1 {
			switch kind {
			case OpSet, OpInsert:
				node[key] = cloneValue(value)
			case OpDelete:
				delete(node, key)
			}
			return node
		}
		child, present := node[key]
		if !present {
			return node
		}
		node[key] = applyOperation(child, path[1:], kind, value)
		return node
	case []any:
		idx, ok := asInt(path[0])
		if !ok || idx < 0 {
			return cur
		}
		if len(path) == 1 {
			switch kind {
			case OpSet:
				if idx < len(node) {
					node[idx] = cloneValue(value)
				}
			case OpDelete:
				if idx < len(node) {
					node = append(node[:idx], node[idx+1:]...)
				}
			case OpInsert:
				at := idx
				if at > len(node) {
					at = len(node)
				}
				node = append(node, nil)
				copy(node[at+1:], node[at:])
				node[at] = cloneValue(value)
			}
			return node
		}
		if idx >= len(node) {
			return node
		}
		node[idx] = applyOperation(node[idx], path[1:], kind, value)
		return node
	}
	return cur
}

// MergeOperational combines logs into one: operations concatenated and
// re-sorted by timestamp, actor ids deduplicated in first-seen order.
func (p *Processor) MergeOperational(logs []OperationLog) OperationLog {
	var merged OperationLog
	seen := map[string]struct{}{}
	for _, log := range logs {
		merged.Operations = append(merged.Operations, log.Operations...)
		for _, a := range log.Metadata.Actors {
			if _, dup := seen[a]; dup {
				continue
			}
			seen[a] = struct{}{}
			merged.Metadata.Actors = append(merged.Metadata.Actors, a)
		}
	}
	sort.SliceStable(merged.Operations, func(i, j int) bool {
		return merged.Operations[i].Timestamp < merged.Operations[j].Timestamp
	})
	if merged.Metadata.Actors == nil {
		merged.Metadata.Actors = []string{}
	}
	if merged.Operations == nil {
		merged.Operations = []Operation{}
	}
	merged.Metadata.ConflictResolution = LastWriteWins
	if n := len(merged.Operations); n > 0 {
		merged.Metadata.TimestampRange = []uint64{
			merged.Operations[0].Timestamp,
			merged.Operations[n-1].Timestamp,
		}
	}
	return merged
}

// DiffOperationalJSON is the JSON boundary form of DiffOperational.
func (p *Processor) DiffOperationalJSON(old, new []byte, opts map[string]string) ([]byte, error) {
	p.countBytes(old, new)
	oldDoc, err := ParseDocument(old)
	if err != nil {
		return nil, err
	}
	newDoc, err := ParseDocument(new)
	if err != nil {
		return nil, err
	}
	log := p.DiffOperational(oldDoc, newDoc, ParseOperationalOptions(opts))
	return MarshalDocument(log)
}

// PatchOperationalJSON replays a serialized log against a serialized doc.
func (p *Processor) PatchOperationalJSON(doc, logData []byte) ([]byte, error) {
	p.countBytes(doc, logData)
	docVal, err := ParseDocument(doc)
	if err != nil {
		return nil, err
	}
	log, err := parseOperationLog(logData)
	if err != nil {
		return nil, err
	}
	return MarshalDocument(p.ApplyOperational(docVal, log))
}

// MergeOperationalJSON merges a JSON array of serialized logs.
func (p *Processor) MergeOperationalJSON(logsData []byte) ([]byte, error) {
	p.countBytes(logsData)
	val, err := ParseDocument(logsData)
	if err != nil {
		return nil, err
	}
	arr, ok := val.([]any)
	if !ok {
		return nil, fmt.Errorf("merging operation logs: expected a JSON array of logs")
	}
	logs := make([]OperationLog, 0, len(arr))
	for i, raw := range arr {
		log, err := operationLogFromValue(raw)
		if err != nil {
			return nil, fmt.Errorf("merging operation logs: log %d: %w", i, err)
		}
		logs = append(logs, log)
	}
	return MarshalDocument(p.MergeOperational(logs))
}

// parseOperationLog decodes a log through the document parser so operation
// values keep the int-vs-float distinction.
func parseOperationLog(data []byte) (OperationLog, error) {
	val, err := ParseDocument(data)
	if err != nil {
		return OperationLog{}, err
	}
	return operationLogFromValue(val)
}

func operationLogFromValue(v any) (OperationLog, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return OperationLog{}, fmt.Errorf("parsing operation log: expected an object")
	}
	var log OperationLog
	rawOps, _ := obj["operations"].([]any)
	for i, rawOp := range rawOps {
		opObj, ok := rawOp.(map[string]any)
		if !ok {
			return OperationLog{}, fmt.Errorf("parsing operation log: operation %d is not an object", i)
		}
		var op Operation
		op.Type, _ = opObj["type"].(string)
		switch op.Type {
		case OpSet, OpDelete, OpInsert:
		default:
			return OperationLog{}, fmt.Errorf("parsing operation log: operation %d has unknown type %q", i, op.Type)
		}
		if rawPath, ok := opObj["path"].([]any); ok {
			op.Path = rawPath
		}
		op.Value = opObj["value"]
		if ts, ok := asUint64(opObj["timestamp"]); ok {
			op.Timestamp = ts
		}
		op.ActorID, _ = opObj["actor_id"].(string)
		log.Operations = append(log.Operations, op)
	}
	if meta, ok := obj["metadata"].(map[string]any); ok {
		if actors, ok := meta["actors"].([]any); ok {
			for _, a := range actors {
				if s, ok := a.(string); ok {
					log.Metadata.Actors = append(log.Metadata.Actors, s)
				}
			}
		}
		if tr, ok := meta["timestamp_range"].([]any); ok {
			for _, t := range tr {
				if ts, ok := asUint64(t); ok {
					log.Metadata.TimestampRange = append(log.Metadata.TimestampRange, ts)
				}
			}
		}
		if cr, ok := meta["conflict_resolution"].(string); ok {
			log.Metadata.ConflictResolution = ConflictResolution(cr)
		}
	}
	return log, nil
}

func asUint64(v any) (uint64, bool) {
	switch x := v.(type) {
	case int64:
		if x >= 0 {
			return uint64(x), true
		}
	case float64:
		if x >= 0 && x == float64(uint64(x)) {
			return uint64(x), true
		}
	}
	return 0, false
}
