package jsonldex

import (
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// textDiffDelta wraps a character-level diff of two long strings in the
// 3-element text diff form. Ranges are half-open and counted in Unicode
// scalar values, deletes and replaces against the old string, inserts
// against the new one. An adjacent delete+insert pair collapses into a
// single replace op.
func textDiffDelta(old, new string) any {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(old, new, false)

	var ops []any
	oldPos, newPos := 0, 0
	for i := 0; i < len(diffs); {
		d := diffs[i]
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			n := utf8.RuneCountInString(d.Text)
			oldPos += n
			newPos += n
			i++
		case diffmatchpatch.DiffDelete:
			dn := utf8.RuneCountInString(d.Text)
			if i+1 < len(diffs) && diffs[i+1].Type == diffmatchpatch.DiffInsert {
				ins := diffs[i+1]
				in := utf8.RuneCountInString(ins.Text)
				ops = append(ops, map[string]any{
					"op":        "replace",
					"old_range": []any{int64(oldPos), int64(oldPos + dn)},
					"new_range": []any{int64(newPos), int64(newPos + in)},
					"old_text":  d.Text,
					"new_text":  ins.Text,
				})
				oldPos += dn
				newPos += in
				i += 2
				continue
			}
			ops = append(ops, map[string]any{
				"op":    "delete",
				"range": []any{int64(oldPos), int64(oldPos + dn)},
				"text":  d.Text,
			})
			oldPos += dn
			i++
		case diffmatchpatch.DiffInsert:
			in := utf8.RuneCountInString(d.Text)
			ops = append(ops, map[string]any{
				"op":    "insert",
				"range": []any{int64(newPos), int64(newPos + in)},
				"text":  d.Text,
			})
			newPos += in
			i++
		default:
			i++
		}
	}
	return []any{
		map[string]any{"text_diff": ops},
		int64(markerDeleted),
		int64(markerTextDiff),
	}
}

// applyTextDiff replays text diff ops against the old string. Malformed ops
// are skipped; out-of-range offsets are clamped.
func applyTextDiff(old string, rawOps []any) string {
	runes := []rune(old)
	var b strings.Builder
	pos := 0

	writeThrough := func(end int) {
		if end > len(runes) {
			end = len(runes)
		}
		if end > pos {
			b.WriteString(string(runes[pos:end]))
			pos = end
		}
	}

	for _, raw := range rawOps {
		op, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		kind, _ := op["op"].(string)
		switch kind {
		case "delete":
			start, end, ok := rangeBounds(op["range"])
			if !ok {
				continue
			}
			writeThrough(start)
			if end > pos {
				pos = end
			}
			if pos > len(runes) {
				pos = len(runes)
			}
		case "replace":
			start, end, ok := rangeBounds(op["old_range"])
			if !ok {
				continue
			}
			writeThrough(start)
			if text, ok := op["new_text"].(string); ok {
				b.WriteString(text)
			}
			if end > pos {
				pos = end
			}
			if pos > len(runes) {
				pos = len(runes)
			}
		case "insert":
			if text, ok := op["text"].(string); ok {
				b.WriteString(text)
			}
		}
	}
	writeThrough(len(runes))
	return b.String()
}

func rangeBounds(v any) (start, end int, ok bool) {
	arr, isArr := v.([]any)
	if !isArr || len(arr) != 2 {
		return 0, 0, false
	}
	start, sok := asInt(arr[0])
	end, eok := asInt(arr[1])
	if !sok || !eok || start < 0 || end < start {
		return 0, 0, false
	}
	return start, end, true
}
