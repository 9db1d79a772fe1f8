package stage_test

import (
	"testing"

	"github.com/bendsql/bendsql-go/stage"
)

func TestParseLocation_Named(t *testing.T) {
	loc, err := stage.ParseLocation("@mystage/a/b.csv")
	if err != nil {
		t.Fatalf("ParseLocation error: %v", err)
	}
	if loc.Name != "mystage" || loc.Path != "a/b.csv" {
		t.Errorf("got Name=%q Path=%q", loc.Name, loc.Path)
	}
}

func TestParseLocation_Personal(t *testing.T) {
	loc, err := stage.ParseLocation("@~/client/load/123")
	if err != nil {
		t.Fatalf("ParseLocation error: %v", err)
	}
	if !loc.IsPersonal() {
		t.Error("expected IsPersonal() to be true for @~")
	}
	if loc.Path != "client/load/123" {
		t.Errorf("Path = %q, want client/load/123", loc.Path)
	}
}

func TestParseLocation_NoPath(t *testing.T) {
	loc, err := stage.ParseLocation("@mystage")
	if err != nil {
		t.Fatalf("ParseLocation error: %v", err)
	}
	if loc.Name != "mystage" || loc.Path != "" {
		t.Errorf("got Name=%q Path=%q", loc.Name, loc.Path)
	}
	if loc.String() != "@mystage" {
		t.Errorf("String() = %q, want @mystage", loc.String())
	}
}

func TestParseLocation_MissingAt(t *testing.T) {
	_, err := stage.ParseLocation("mystage/a")
	if err == nil {
		t.Error("expected error for location missing '@'")
	}
}

func TestParseLocation_EmptyName(t *testing.T) {
	_, err := stage.ParseLocation("@")
	if err == nil {
		t.Error("expected error for empty stage name")
	}
}

func TestLocation_String_RoundTrip(t *testing.T) {
	loc := stage.Location{Name: "mystage", Path: "a/b.csv"}
	if loc.String() != "@mystage/a/b.csv" {
		t.Errorf("String() = %q, want @mystage/a/b.csv", loc.String())
	}
}
