package settings_test

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/bendsql/bendsql-go/internal/settings"
)

func TestDefault(t *testing.T) {
	s := settings.Default()
	if s == nil {
		t.Fatal("Default returned nil")
	}
	if s.OutputFormat != "table" {
		t.Errorf("OutputFormat = %q, want %q", s.OutputFormat, "table")
	}
	if s.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", s.LogLevel, "info")
	}
	if s.MaxUploadConcurrency <= 0 {
		t.Errorf("MaxUploadConcurrency should be > 0, got %d", s.MaxUploadConcurrency)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	raw := map[string]interface{}{
		"history_file":           "/tmp/hist",
		"output_format":          "csv",
		"log_level":              "debug",
		"prompt":                 "db> ",
		"query_timeout":          int64(0),
		"max_upload_concurrency": 8,
	}
	f, err := os.CreateTemp(t.TempDir(), "settings*.json")
	if err != nil {
		t.Fatal(err)
	}
	if err := json.NewEncoder(f).Encode(raw); err != nil {
		t.Fatal(err)
	}
	f.Close()

	s, err := settings.Load(f.Name())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.OutputFormat != "csv" {
		t.Errorf("got OutputFormat=%q, want csv", s.OutputFormat)
	}
	if s.MaxUploadConcurrency != 8 {
		t.Errorf("got MaxUploadConcurrency=%d, want 8", s.MaxUploadConcurrency)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := settings.Load("/nonexistent/path/settings.json")
	if err == nil {
		t.Error("expected error for missing file, got nil")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "bad*.json")
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("{not valid json}")
	f.Close()

	_, err = settings.Load(f.Name())
	if err == nil {
		t.Error("expected error for invalid JSON, got nil")
	}
}
