// Package dedup implements the three duplicate checks used by dataset
// pipelines — exact BLAKE3 hashing, 64-bit simhash near-duplicate detection,
// and embedding cosine similarity — plus the Engine that runs them as atomic
// compare-and-append operations against the persistent state store.
package dedup

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// CanonicalJSON encodes a value with object keys sorted at every level, so
// that logically equal values always produce the same bytes. Strings are
// returned as their raw text, matching the exact-hash rule that a string
// field hashes as its content, not its JSON quoting.
func CanonicalJSON(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	var sb strings.Builder
	if err := writeCanonical(&sb, v); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func writeCanonical(sb *strings.Builder, v any) error {
	switch t := v.(type) {
	case nil:
		sb.WriteString("null")
	case bool:
		sb.WriteString(strconv.FormatBool(t))
	case string:
		b, err := json.Marshal(t)
		if err != nil {
			return err
		}
		sb.Write(b)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			sb.WriteString(strconv.FormatInt(int64(t), 10))
		} else {
			sb.WriteString(strconv.FormatFloat(t, 'g', -1, 64))
		}
	case int:
		sb.WriteString(strconv.Itoa(t))
	case int64:
		sb.WriteString(strconv.FormatInt(t, 10))
	case json.Number:
		sb.WriteString(t.String())
	case []any:
		sb.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				sb.WriteByte(',')
			}
			if err := writeCanonical(sb, item); err != nil {
				return err
			}
		}
		sb.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			sb.Write(kb)
			sb.WriteByte(':')
			if err := writeCanonical(sb, t[k]); err != nil {
				return err
			}
		}
		sb.WriteByte('}')
	default:
		// Fall back through encoding/json for structs and typed values.
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("canonicalize %T: %w", t, err)
		}
		var decoded any
		if err := json.Unmarshal(b, &decoded); err != nil {
			return err
		}
		return writeCanonical(sb, decoded)
	}
	return nil
}
