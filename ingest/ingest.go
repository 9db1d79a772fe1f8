// Package ingest implements bulk loading by uploading data to a stage and
// issuing a single INSERT/COPY carrying a stage_attachment, so the server
// reads the rows straight from the stage rather than inline in the SQL
// text.
package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bendsql/bendsql-go/apiclient"
	"github.com/bendsql/bendsql-go/internal/dberrors"
	"github.com/bendsql/bendsql-go/protocol"
	"github.com/bendsql/bendsql-go/stage"
)

// defaultFileFormatOptions matches the server's CSV defaults used when a
// caller doesn't specify its own.
func defaultFileFormatOptions() map[string]string {
	return map[string]string{
		"type":        "CSV",
		"field_delimiter": ",",
		"record_delimiter": "\n",
		"skip_header": "0",
	}
}

// defaultCopyOptions purges the scratch file from the stage once the
// COPY INTO has consumed it, since scratch uploads are never reused.
func defaultCopyOptions() map[string]string {
	return map[string]string{"purge": "true"}
}

// scratchLocation builds a per-upload scratch path under the caller's
// personal stage, keyed by a nanosecond timestamp so concurrent loads never
// collide.
func scratchLocation(now func() time.Time) stage.Location {
	return stage.Location{Name: "~", Path: fmt.Sprintf("client/load/%d", now().UnixNano())}
}

// Load uploads data (size bytes) to a scratch stage location and runs sql
// with a stage_attachment pointing at it. fileFormatOptions/copyOptions
// override the CSV defaults when non-nil.
func Load(ctx context.Context, client *apiclient.Client, sql string, data io.ReaderAt, size int64, fileFormatOptions, copyOptions map[string]string, now func() time.Time) (*protocol.QueryResponse, error) {
	if now == nil {
		now = time.Now
	}
	loc := scratchLocation(now)

	if err := stage.Upload(ctx, client, loc, data, size, filepath.Base(loc.Path)); err != nil {
		return nil, dberrors.Wrap(dberrors.IO, err, "ingest: upload to scratch stage")
	}

	if fileFormatOptions == nil {
		fileFormatOptions = defaultFileFormatOptions()
	}
	if copyOptions == nil {
		copyOptions = defaultCopyOptions()
	}

	req := &protocol.QueryRequest{SQL: sql}
	req.WithStageAttachment(&protocol.StageAttachment{
		Location:          loc.String(),
		FileFormatOptions: fileFormatOptions,
		CopyOptions:       copyOptions,
	})

	resp, err := client.Query(ctx, req)
	if err != nil {
		return nil, dberrors.Wrap(dberrors.Request, err, "ingest: insert with stage attachment")
	}
	client.Metrics.IncrementFilesUploaded()
	return resp, nil
}

// LoadFile uploads the local file at path and loads it into sql's target
// table. A nil fileFormatOptions uses the CSV defaults, whatever path's
// extension; the file format is derived from path's extension only when a
// non-nil fileFormatOptions doesn't set "type".
func LoadFile(ctx context.Context, client *apiclient.Client, sql, path string, fileFormatOptions, copyOptions map[string]string) (*protocol.QueryResponse, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, dberrors.Wrap(dberrors.IO, err, "ingest: open %s", path)
	}
	defer f.file.Close()

	if fileFormatOptions == nil {
		fileFormatOptions = defaultFileFormatOptions()
	}
	if _, hasType := fileFormatOptions["type"]; !hasType {
		if !utf8.ValidString(path) {
			return nil, dberrors.New(dberrors.BadArgument, "ingest: path %q is not valid UTF-8", path)
		}
		ext := filepath.Ext(path)
		if ext == "" {
			return nil, dberrors.New(dberrors.BadArgument, "ingest: %q has no extension to derive a file format from", path)
		}
		t := formatFromExtension(path)
		if t == "" {
			return nil, dberrors.New(dberrors.BadArgument, "ingest: %q has an unrecognized extension %q", path, ext)
		}
		fileFormatOptions = cloneOptions(fileFormatOptions)
		fileFormatOptions["type"] = t
	}

	return Load(ctx, client, sql, f.file, f.size, fileFormatOptions, copyOptions, nil)
}

// StreamLoad CSV-encodes rows in memory and loads them into sql's target
// table, for callers building rows programmatically rather than reading a
// file from disk.
func StreamLoad(ctx context.Context, client *apiclient.Client, sql string, rows [][]string) (*protocol.QueryResponse, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return nil, dberrors.Wrap(dberrors.IO, err, "ingest: encode CSV row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, dberrors.Wrap(dberrors.IO, err, "ingest: flush CSV encoder")
	}

	data := bytes.NewReader(buf.Bytes())
	return Load(ctx, client, sql, data, int64(data.Len()), defaultFileFormatOptions(), defaultCopyOptions(), nil)
}

func formatFromExtension(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return "CSV"
	case ".tsv":
		return "TSV"
	case ".ndjson", ".jsonl":
		return "NDJSON"
	case ".parquet":
		return "PARQUET"
	default:
		return ""
	}
}

func cloneOptions(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
