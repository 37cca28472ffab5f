package jsonldex

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// change markers used in the pretty report
type changeKind string

const (
	ckInsert = changeKind("+")
	ckDelete = changeKind("-")
	ckUpdate = changeKind("~")
	ckMove   = changeKind(">")
)

// FormatPrettyString is a convenience wrapper that outputs to a string
// instead of an io.Writer
func FormatPrettyString(delta any, colorTTY bool) (string, error) {
	buf := &bytes.Buffer{}
	if err := FormatPretty(buf, delta, colorTTY); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// FormatPretty writes a text report of a structural delta to w. if colorTTY
// is true it will add
// red "-" for deletions
// green "+" for insertions
// blue "~" for changes and ">" for moves
func FormatPretty(w io.Writer, delta any, colorTTY bool) error {
	var colorMap map[changeKind]string
	if colorTTY {
		colorMap = map[changeKind]string{
			changeKind("close"): "\x1b[0m", // end color tag

			ckInsert: "\x1b[32m", // green
			ckDelete: "\x1b[31m", // red
			ckUpdate: "\x1b[34m", // blue
			ckMove:   "\x1b[34m", // blue
		}
	}
	obj, ok := delta.(map[string]any)
	if !ok {
		return fmt.Errorf("formatting delta: expected an object delta, got %T", delta)
	}
	return formatPretty(w, obj, 0, colorMap)
}

func formatPretty(w io.Writer, delta map[string]any, indent int, colorMap map[changeKind]string) error {
	keys := sortedKeys(delta)
	sort.SliceStable(keys, func(i, j int) bool {
		// array operation keys sort numerically when they can
		a, aerr := strconv.Atoi(strings.TrimPrefix(keys[i], "_"))
		b, berr := strconv.Atoi(strings.TrimPrefix(keys[j], "_"))
		if aerr == nil && berr == nil {
			return a < b
		}
		return keys[i] < keys[j]
	})
	for _, key := range keys {
		sub := delta[key]
		label := strings.TrimPrefix(key, "_")
		if nested, ok := sub.(map[string]any); ok {
			fmt.Fprintf(w, "%s%s:\n", strings.Repeat("  ", indent), label)
			if err := formatPretty(w, nested, indent+1, colorMap); err != nil {
				return err
			}
			continue
		}
		kind, dataStr, err := describeLeaf(sub)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s%s%s %s: %s%s\n",
			strings.Repeat("  ", indent), colorMap[kind], kind, label, dataStr,
			colorMap[changeKind("close")])
	}
	return nil
}

func describeLeaf(sub any) (changeKind, string, error) {
	leaf, ok := sub.([]any)
	if !ok {
		data, err := json.Marshal(sub)
		return ckUpdate, string(data), err
	}
	switch {
	case len(leaf) == 1:
		data, err := json.Marshal(leaf[0])
		return ckInsert, string(data), err
	case len(leaf) == 3 && isNum(leaf[1], markerDeleted) && isNum(leaf[2], markerDeleted):
		data, err := json.Marshal(leaf[0])
		return ckDelete, string(data), err
	case len(leaf) == 3 && isNum(leaf[2], markerMoved):
		from, _ := asInt(leaf[1])
		return ckMove, fmt.Sprintf("from index %d", from), nil
	case len(leaf) == 3 && isNum(leaf[2], markerTextDiff):
		return ckUpdate, "text diff", nil
	case len(leaf) == 2:
		oldData, err := json.Marshal(leaf[0])
		if err != nil {
			return ckUpdate, "", err
		}
		newData, err := json.Marshal(leaf[1])
		if err != nil {
			return ckUpdate, "", err
		}
		return ckUpdate, fmt.Sprintf("%s -> %s", oldData, newData), nil
	}
	data, err := json.Marshal(leaf)
	return ckUpdate, string(data), err
}
