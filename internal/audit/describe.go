package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Action kinds recognised by the reconstructor. They match the values the
// recorder writes into audit_entries.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

const (
	labelCreated   = "Registro creado"
	labelUpdated   = "Registro actualizado"
	labelDeleted   = "Registro eliminado"
	changesPrefix  = "Cambios: "
	fieldSeparator = ", "
)

// excludedFields are timestamp bookkeeping columns that change on every write
// and never make a meaningful diff.
var excludedFields = map[string]struct{}{
	"created_at": {},
	"updated_at": {},
}

// Snapshot is an ordered field-name to value mapping parsed from a stored
// before/after blob. Key order is the insertion order of the source JSON.
type Snapshot struct {
	keys   []string
	values map[string]any
}

// ParseSnapshot decodes a JSON object preserving top-level key order.
// A nil or empty blob yields an empty snapshot.
func ParseSnapshot(raw []byte) (Snapshot, error) {
	snap := Snapshot{values: map[string]any{}}
	if len(bytes.TrimSpace(raw)) == 0 {
		return snap, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return snap, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return snap, fmt.Errorf("audit: snapshot is not an object")
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return snap, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return snap, fmt.Errorf("audit: snapshot key is not a string")
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return snap, err
		}
		if _, seen := snap.values[key]; !seen {
			snap.keys = append(snap.keys, key)
		}
		snap.values[key] = value
	}
	return snap, nil
}

// Fields returns the field names in insertion order.
func (s Snapshot) Fields() []string {
	return s.keys
}

// Value returns the value stored for a field.
func (s Snapshot) Value(field string) (any, bool) {
	v, ok := s.values[field]
	return v, ok
}

// Empty reports whether the snapshot holds no fields.
func (s Snapshot) Empty() bool {
	return len(s.keys) == 0
}

// DescribeChange produces a human-readable one-line description for an audit
// entry. It is pure and never panics: malformed or missing snapshots degrade
// to the generic label for the action.
func DescribeChange(action string, before, after Snapshot) string {
	switch action {
	case ActionCreated:
		return labelCreated
	case ActionDeleted:
		// The original flows never rendered deletions; a fixed label keeps
		// the timeline from showing blank rows.
		return labelDeleted
	case ActionUpdated:
		changed := diffFields(before, after)
		if len(changed) == 0 {
			return labelUpdated
		}
		return changesPrefix + strings.Join(changed, fieldSeparator)
	default:
		return labelUpdated
	}
}

// DescribeRaw is DescribeChange over stored blobs; parse failures degrade to
// the generic label.
func DescribeRaw(action string, before, after []byte) string {
	beforeSnap, errB := ParseSnapshot(before)
	afterSnap, errA := ParseSnapshot(after)
	if errB != nil || errA != nil {
		return DescribeChange(action, Snapshot{}, Snapshot{})
	}
	return DescribeChange(action, beforeSnap, afterSnap)
}

// diffFields walks the after-snapshot in insertion order and keeps fields
// whose values differ structurally from the before-snapshot. Structural means
// equal trees compare equal regardless of nested key order.
func diffFields(before, after Snapshot) []string {
	var changed []string
	for _, field := range after.Fields() {
		if _, excluded := excludedFields[field]; excluded {
			continue
		}
		afterVal, _ := after.Value(field)
		beforeVal, hadBefore := before.Value(field)
		if hadBefore && structurallyEqual(beforeVal, afterVal) {
			continue
		}
		changed = append(changed, field+": "+renderValue(afterVal))
	}
	return changed
}

// structurallyEqual compares two decoded JSON values by normalising both
// through a marshal/unmarshal round trip. This makes map key order irrelevant
// and unifies numeric representations.
func structurallyEqual(a, b any) bool {
	na, errA := normalize(a)
	nb, errB := normalize(b)
	if errA != nil || errB != nil {
		return false
	}
	return reflect.DeepEqual(na, nb)
}

func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func renderValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(raw)
	}
}
