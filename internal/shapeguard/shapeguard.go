// Package shapeguard detects when the server's QueryResponse JSON shape
// drifts from what a connection has seen before.
//
// The `error` field on a QueryResponse remains the sole authoritative
// failure signal (per the pagination protocol's design). This package is a
// diagnostic on top of that, not a replacement for it: a renamed field, a
// number that became a string, or a new top-level key won't fail a query,
// but it's worth logging before it silently breaks a caller parsing the
// response by hand.
//
//  1. On the first response a Guard sees, Guard.Learn (or the first
//     Guard.Check) records the field names and their JSON types as the
//     baseline shape.
//
//  2. On every subsequent response, Guard.Check compares it against
//     the baseline and returns a list of Drift records describing any
//     structural differences.
//
//  3. Callers log each Drift; nothing here aborts the query.
//
// The guard works on flat and nested JSON objects. Nested keys are
// represented as dot-separated paths (e.g. "stats.running_time_ms"). Arrays
// are recorded as a single "array" entry; their elements are not walked.
//
// # Thread safety
//
// Guard is safe for concurrent use: a sync.RWMutex protects the baseline
// snapshot. Multiple goroutines may call Check simultaneously; Learn
// acquires an exclusive write-lock only when updating the baseline.
package shapeguard

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// DriftKind classifies the type of shape difference detected.
type DriftKind string

const (
	// DriftMissing indicates a field present in the baseline is absent in
	// the current response.
	DriftMissing DriftKind = "MISSING_FIELD"

	// DriftAdded indicates a field not present in the baseline was added to
	// the current response.
	DriftAdded DriftKind = "ADDED_FIELD"

	// DriftTypeChange indicates a field exists in both but its JSON type
	// changed (e.g. "number" → "string").
	DriftTypeChange DriftKind = "TYPE_CHANGE"
)

// Drift describes a single structural difference between the baseline
// shape and a current QueryResponse page.
type Drift struct {
	// Kind classifies the drift.
	Kind DriftKind

	// Field is the dot-separated path to the affected field.
	Field string

	// BaselineType is the JSON type recorded in the baseline ("string",
	// "number", "bool", "array", "object", "null"). Empty for DriftAdded.
	BaselineType string

	// CurrentType is the JSON type in the current response. Empty for
	// DriftMissing.
	CurrentType string
}

// String returns a human-readable description suitable for log output.
func (d Drift) String() string {
	switch d.Kind {
	case DriftMissing:
		return fmt.Sprintf("shape drift [%s] field %q missing (was %s)", d.Kind, d.Field, d.BaselineType)
	case DriftAdded:
		return fmt.Sprintf("shape drift [%s] field %q added (type %s)", d.Kind, d.Field, d.CurrentType)
	case DriftTypeChange:
		return fmt.Sprintf("shape drift [%s] field %q type changed %s → %s", d.Kind, d.Field, d.BaselineType, d.CurrentType)
	default:
		return fmt.Sprintf("shape drift [%s] field %q", d.Kind, d.Field)
	}
}

// shape maps dot-separated field paths to their JSON type names.
type shape map[string]string

// Guard learns the structure of a QueryResponse and detects subsequent
// drift within the same connection.
type Guard struct {
	baseline shape
	mu       sync.RWMutex
}

// NewGuard creates a Guard with no baseline. The first call to Learn or
// Check establishes the reference shape.
func NewGuard() *Guard {
	return &Guard{}
}

// Learn parses data as a JSON object, extracts its field shape, and stores
// it as the new baseline. Any previous baseline is replaced.
func (g *Guard) Learn(data []byte) error {
	s, err := extractShape(data)
	if err != nil {
		return fmt.Errorf("shapeguard: learn shape: %w", err)
	}
	g.mu.Lock()
	g.baseline = s
	g.mu.Unlock()
	return nil
}

// HasBaseline reports whether a baseline shape has been established.
func (g *Guard) HasBaseline() bool {
	g.mu.RLock()
	ok := g.baseline != nil
	g.mu.RUnlock()
	return ok
}

// Check compares data against the baseline shape and returns any drift. An
// empty slice means the response matches the baseline exactly.
//
// If no baseline has been set, Check learns it from data and returns an
// empty drift list — the first page of a query always establishes the
// baseline rather than being compared against one.
func (g *Guard) Check(data []byte) ([]Drift, error) {
	current, err := extractShape(data)
	if err != nil {
		return nil, fmt.Errorf("shapeguard: check: %w", err)
	}

	g.mu.Lock()
	if g.baseline == nil {
		g.baseline = current
		g.mu.Unlock()
		return nil, nil
	}
	baseline := copyShape(g.baseline)
	g.mu.Unlock()

	return diffShapes(baseline, current), nil
}

// BaselineFields returns a sorted list of dot-separated field paths recorded
// in the baseline.
func (g *Guard) BaselineFields() []string {
	g.mu.RLock()
	b := copyShape(g.baseline)
	g.mu.RUnlock()

	fields := make([]string, 0, len(b))
	for k := range b {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}

// Reset clears the baseline, so the next Learn or Check establishes a fresh
// one.
func (g *Guard) Reset() {
	g.mu.Lock()
	g.baseline = nil
	g.mu.Unlock()
}

// extractShape recursively walks a JSON value and returns a map of
// dot-separated paths to their JSON type names.
func extractShape(data []byte) (shape, error) {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal JSON: %w", err)
	}
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("expected JSON object, got %T", raw)
	}
	s := make(shape)
	flattenShape(obj, "", s)
	return s, nil
}

// flattenShape recursively adds entries to s for every leaf and object node.
func flattenShape(obj map[string]interface{}, prefix string, s shape) {
	for k, v := range obj {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]interface{}:
			s[path] = "object"
			flattenShape(val, path, s)
		case []interface{}:
			s[path] = "array"
		case string:
			s[path] = "string"
		case float64:
			s[path] = "number"
		case bool:
			s[path] = "bool"
		case nil:
			s[path] = "null"
		default:
			s[path] = "unknown"
		}
	}
}

// diffShapes compares baseline against current and returns all detected
// drift.
func diffShapes(baseline, current shape) []Drift {
	var drift []Drift

	for field, bType := range baseline {
		cType, ok := current[field]
		if !ok {
			drift = append(drift, Drift{
				Kind:         DriftMissing,
				Field:        field,
				BaselineType: bType,
			})
			continue
		}
		if cType != bType {
			drift = append(drift, Drift{
				Kind:         DriftTypeChange,
				Field:        field,
				BaselineType: bType,
				CurrentType:  cType,
			})
		}
	}

	for field, cType := range current {
		if _, ok := baseline[field]; !ok {
			drift = append(drift, Drift{
				Kind:        DriftAdded,
				Field:       field,
				CurrentType: cType,
			})
		}
	}

	sort.Slice(drift, func(i, j int) bool {
		if drift[i].Field != drift[j].Field {
			return drift[i].Field < drift[j].Field
		}
		return string(drift[i].Kind) < string(drift[j].Kind)
	})
	return drift
}

// copyShape returns a shallow copy of s.
func copyShape(s shape) shape {
	if s == nil {
		return nil
	}
	out := make(shape, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// FormatDrift produces a multi-line, log-ready string from a list of drift
// records. Returns an empty string if drift is empty.
func FormatDrift(drift []Drift) string {
	if len(drift) == 0 {
		return ""
	}
	lines := make([]string, len(drift))
	for i, d := range drift {
		lines[i] = d.String()
	}
	return strings.Join(lines, "\n")
}
