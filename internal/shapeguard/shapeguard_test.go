package shapeguard_test

import (
	"strings"
	"testing"

	"github.com/bendsql/bendsql-go/internal/shapeguard"
)

var baselinePage = []byte(`{
	"schema": [{"name": "id", "type": "Int32"}],
	"data": [[1]],
	"next_uri": "/v1/query/abc/page/1",
	"stats": {
		"running_time_ms": 12,
		"scanned_rows": 1
	},
	"error": null
}`)

func TestLearn_ThenHasBaseline(t *testing.T) {
	g := shapeguard.NewGuard()
	if g.HasBaseline() {
		t.Error("expected no baseline before Learn")
	}
	if err := g.Learn(baselinePage); err != nil {
		t.Fatalf("Learn error: %v", err)
	}
	if !g.HasBaseline() {
		t.Error("expected baseline after Learn")
	}
}

func TestLearn_InvalidJSON(t *testing.T) {
	g := shapeguard.NewGuard()
	if err := g.Learn([]byte("not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestLearn_NonObject(t *testing.T) {
	g := shapeguard.NewGuard()
	if err := g.Learn([]byte(`[1,2,3]`)); err == nil {
		t.Error("expected error for JSON array (non-object)")
	}
}

func TestCheck_NoDrift(t *testing.T) {
	g := shapeguard.NewGuard()
	if err := g.Learn(baselinePage); err != nil {
		t.Fatal(err)
	}
	drift, err := g.Check(baselinePage)
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if len(drift) != 0 {
		t.Errorf("expected 0 drift records, got %d: %v", len(drift), drift)
	}
}

func TestCheck_MissingField(t *testing.T) {
	g := shapeguard.NewGuard()
	if err := g.Learn(baselinePage); err != nil {
		t.Fatal(err)
	}

	current := []byte(`{
		"data": [[1]],
		"next_uri": "/v1/query/abc/page/1",
		"stats": {"running_time_ms": 12, "scanned_rows": 1},
		"error": null
	}`)
	drift, err := g.Check(current)
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}

	found := false
	for _, d := range drift {
		if d.Field == "schema" && d.Kind == shapeguard.DriftMissing {
			found = true
		}
	}
	if !found {
		t.Errorf("expected MISSING_FIELD for 'schema', got: %v", drift)
	}
}

func TestCheck_AddedField(t *testing.T) {
	g := shapeguard.NewGuard()
	if err := g.Learn(baselinePage); err != nil {
		t.Fatal(err)
	}

	current := []byte(`{
		"schema": [{"name": "id", "type": "Int32"}],
		"data": [[1]],
		"next_uri": "/v1/query/abc/page/1",
		"stats": {"running_time_ms": 12, "scanned_rows": 1},
		"error": null,
		"warnings": ["new in this server build"]
	}`)
	drift, err := g.Check(current)
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}

	found := false
	for _, d := range drift {
		if d.Field == "warnings" && d.Kind == shapeguard.DriftAdded {
			found = true
		}
	}
	if !found {
		t.Errorf("expected ADDED_FIELD for 'warnings', got: %v", drift)
	}
}

func TestCheck_TypeChange(t *testing.T) {
	g := shapeguard.NewGuard()
	if err := g.Learn(baselinePage); err != nil {
		t.Fatal(err)
	}

	// stats.scanned_rows was a number; now it's a string.
	current := []byte(`{
		"schema": [{"name": "id", "type": "Int32"}],
		"data": [[1]],
		"next_uri": "/v1/query/abc/page/1",
		"stats": {"running_time_ms": 12, "scanned_rows": "1"},
		"error": null
	}`)
	drift, err := g.Check(current)
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}

	found := false
	for _, d := range drift {
		if d.Field == "stats.scanned_rows" && d.Kind == shapeguard.DriftTypeChange {
			if d.BaselineType != "number" || d.CurrentType != "string" {
				t.Errorf("TypeChange baseline=%q current=%q, want number→string", d.BaselineType, d.CurrentType)
			}
			found = true
		}
	}
	if !found {
		t.Errorf("expected TYPE_CHANGE for 'stats.scanned_rows', got: %v", drift)
	}
}

func TestCheck_AutoLearnOnFirstCall(t *testing.T) {
	g := shapeguard.NewGuard()
	drift, err := g.Check(baselinePage)
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if len(drift) != 0 {
		t.Errorf("auto-learn should produce 0 drift on first call, got %d", len(drift))
	}
	if !g.HasBaseline() {
		t.Error("expected baseline to be set after auto-learn")
	}
}

func TestReset(t *testing.T) {
	g := shapeguard.NewGuard()
	if err := g.Learn(baselinePage); err != nil {
		t.Fatal(err)
	}
	g.Reset()
	if g.HasBaseline() {
		t.Error("expected no baseline after Reset")
	}
}

func TestBaselineFields(t *testing.T) {
	g := shapeguard.NewGuard()
	if err := g.Learn(baselinePage); err != nil {
		t.Fatal(err)
	}
	fields := g.BaselineFields()
	if len(fields) == 0 {
		t.Error("expected non-empty baseline fields")
	}
	for i := 1; i < len(fields); i++ {
		if fields[i] < fields[i-1] {
			t.Errorf("fields not sorted: %v", fields)
			break
		}
	}
}

func TestFormatDrift_Empty(t *testing.T) {
	if s := shapeguard.FormatDrift(nil); s != "" {
		t.Errorf("expected empty string for nil drift, got %q", s)
	}
}

func TestFormatDrift_NonEmpty(t *testing.T) {
	drift := []shapeguard.Drift{
		{Kind: shapeguard.DriftMissing, Field: "schema", BaselineType: "array"},
		{Kind: shapeguard.DriftAdded, Field: "warnings", CurrentType: "array"},
	}
	out := shapeguard.FormatDrift(drift)
	if !strings.Contains(out, "shape drift") {
		t.Errorf("expected 'shape drift' in output, got: %q", out)
	}
	if !strings.Contains(out, "schema") {
		t.Errorf("expected 'schema' in output, got: %q", out)
	}
	if !strings.Contains(out, "warnings") {
		t.Errorf("expected 'warnings' in output, got: %q", out)
	}
}
