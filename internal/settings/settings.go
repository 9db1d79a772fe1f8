// Package settings loads the CLI's on-disk settings file: history path,
// default output format, log level, and prompt template. This is distinct
// from the connection configuration parsed out of a DSN — settings never
// carry credentials or a host.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Settings holds the CLI's tunable parameters, loaded once at startup and
// shared read-only across goroutines thereafter.
type Settings struct {
	// HistoryFile is the path used for the REPL's command history. Defaults
	// to $HOME/.bendsql_history when empty.
	HistoryFile string `json:"history_file"`

	// OutputFormat names a result renderer: "table" or "csv". The CLI does
	// not read it; results are always rendered as a table.
	OutputFormat string `json:"output_format"`

	// LogLevel is one of "debug", "info", "error".
	LogLevel string `json:"log_level"`

	// Prompt is the REPL prompt template, e.g. "{database}> ".
	Prompt string `json:"prompt"`

	// QueryTimeout is a per-statement time limit. The CLI does not read it;
	// statements run until they finish or the process is interrupted.
	QueryTimeout time.Duration `json:"query_timeout"`

	// MaxUploadConcurrency is a cap on concurrent uploads for a multi-file
	// PUT. The CLI does not read it; PUT always runs 4 uploads at once.
	MaxUploadConcurrency int `json:"max_upload_concurrency"`
}

// Load reads a JSON file at filename and deserialises it into a Settings
// value. It returns an error if the file cannot be opened or the JSON is
// malformed.
func Load(filename string) (*Settings, error) {
	f, err := os.Open(filename) // #nosec G304 – filename is caller-provided config path
	if err != nil {
		return nil, fmt.Errorf("settings: open %q: %w", filename, err)
	}
	defer f.Close()

	var s Settings
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields() // catch typos in settings files early
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("settings: decode %q: %w", filename, err)
	}
	return &s, nil
}

// Default returns a *Settings pre-filled with sensible defaults. Each call
// returns a fresh independent copy; callers are free to mutate it.
func Default() *Settings {
	return &Settings{
		HistoryFile:          "",
		OutputFormat:         "table",
		LogLevel:             "info",
		Prompt:               "{database}> ",
		QueryTimeout:         0,
		MaxUploadConcurrency: 4,
	}
}
