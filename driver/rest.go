package driver

import (
	"context"
	"io"

	"github.com/bendsql/bendsql-go/apiclient"
	"github.com/bendsql/bendsql-go/ingest"
	"github.com/bendsql/bendsql-go/internal/dberrors"
	"github.com/bendsql/bendsql-go/protocol"
	"github.com/bendsql/bendsql-go/rows"
	"github.com/bendsql/bendsql-go/stage"
)

// Rest is the REST/HTTP transport connection variant: it wraps an
// apiclient.Client and implements Connection in full.
type Rest struct {
	base
	client *apiclient.Client
}

// NewRest parses dsn and builds a ready-to-use Rest connection.
func NewRest(dsn string) (*Rest, error) {
	cfg, err := apiclient.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	client, err := apiclient.New(cfg, nil, nil)
	if err != nil {
		return nil, err
	}
	r := &Rest{client: client}
	r.base = base{impl: r}
	return r, nil
}

// Info reports the connection's identity.
func (r *Rest) Info() Info {
	snap := r.client.Session.Snapshot()
	db := ""
	if snap.Database != nil {
		db = *snap.Database
	}
	return Info{
		Host:      "", // intentionally omitted: the driver's own BaseURL() carries host:port
		Database:  db,
		Warehouse: r.client.Session.CurrentWarehouse(),
	}
}

// Exec runs sql to completion, discards its rows, and returns the
// server-reported write_progress.rows count from the final page as the
// number of rows affected.
func (r *Rest) Exec(ctx context.Context, sql string) (int64, error) {
	resp, err := r.client.Query(ctx, &protocol.QueryRequest{SQL: sql})
	if err != nil {
		return 0, err
	}
	if resp.Stats.WriteProgress == nil {
		return 0, nil
	}
	return resp.Stats.WriteProgress.Rows, nil
}

// waitForData advances pages until the first non-empty page or the result
// ends, preserving the schema across any skipped empty pages — grounded on
// the original driver's wait_for_data, since a result's first page can
// legitimately carry zero rows while the server is still computing more.
func (r *Rest) waitForData(ctx context.Context, first *protocol.QueryResponse) (*protocol.QueryResponse, error) {
	cur := first
	schema := first.Schema
	for len(cur.Data) == 0 && cur.NextURI != "" {
		next, err := r.client.QueryPage(ctx, cur.NextURI)
		if err != nil {
			return nil, err
		}
		if len(next.Schema) > 0 {
			schema = next.Schema
		}
		cur = next
	}
	cur.Schema = schema
	return cur, nil
}

// QueryRow runs sql and returns only its first row, killing the query
// server-side immediately afterward rather than waiting for it to finish
// producing rows it will never be asked for.
func (r *Rest) QueryRow(ctx context.Context, sql string) (rows.Item, error) {
	first, err := r.client.StartQuery(ctx, &protocol.QueryRequest{SQL: sql})
	if err != nil {
		return rows.Item{}, err
	}
	page, err := r.waitForData(ctx, first)
	if err != nil {
		return rows.Item{}, err
	}
	if page.KillURI != "" {
		r.client.KillQuery(ctx, page.KillURI)
	}
	if len(page.Data) == 0 {
		return rows.Item{}, dberrors.New(dberrors.InvalidResponse, "query_row: %q returned no rows", sql)
	}
	return rows.Item{Schema: page.Schema, Values: page.Data[0]}, nil
}

// QueryIter runs sql and returns a row-only stream the caller can pull
// from — Stats updates are filtered out. Use QueryIterExt for the full
// Row|Stats sum type.
func (r *Rest) QueryIter(ctx context.Context, sql string) (*rows.RowStream, error) {
	stream, err := r.QueryIterExt(ctx, sql)
	if err != nil {
		return nil, err
	}
	return stream.FilterRows(), nil
}

// QueryIterExt runs sql and returns the raw stream, interleaving decoded
// rows with Stats updates at page boundaries.
func (r *Rest) QueryIterExt(ctx context.Context, sql string) (*rows.Stream, error) {
	first, err := r.client.StartQuery(ctx, &protocol.QueryRequest{SQL: sql})
	if err != nil {
		return nil, err
	}
	return rows.New(ctx, r.client, first), nil
}

// StreamLoad CSV-encodes rows in memory, uploads them to a scratch stage,
// and runs sql with a stage attachment pointing at it.
func (r *Rest) StreamLoad(ctx context.Context, sql string, data [][]string) error {
	_, err := ingest.StreamLoad(ctx, r.client, sql, data)
	return err
}

// LoadData uploads data to a scratch stage and runs sql with a stage
// attachment pointing at it.
func (r *Rest) LoadData(ctx context.Context, sql string, data io.ReaderAt, size int64, fileFormatOptions, copyOptions map[string]string) (*protocol.QueryResponse, error) {
	return ingest.Load(ctx, r.client, sql, data, size, fileFormatOptions, copyOptions, nil)
}

// LoadFile uploads the local file at path and loads it into sql's target
// table.
func (r *Rest) LoadFile(ctx context.Context, sql, path string, fileFormatOptions, copyOptions map[string]string) (*protocol.QueryResponse, error) {
	return ingest.LoadFile(ctx, r.client, sql, path, fileFormatOptions, copyOptions)
}

// GetPresignedURL runs PRESIGN UPLOAD against loc and returns the parsed
// method/headers/url the caller can issue the upload against directly.
func (r *Rest) GetPresignedURL(ctx context.Context, loc stage.Location) (*stage.PresignedResponse, error) {
	return stage.GetPresignedUploadURL(ctx, r.client, loc)
}

// UploadToStage writes data to loc, preferring a presigned PUT and falling
// back to a proxied multipart upload when presigned uploads aren't
// available.
func (r *Rest) UploadToStage(ctx context.Context, loc stage.Location, data io.ReaderAt, size int64, filename string) error {
	return stage.Upload(ctx, r.client, loc, data, size, filename)
}

// Close releases the connection's pooled HTTP transport resources.
func (r *Rest) Close() error {
	r.client.HTTPClient().CloseIdleConnections()
	return nil
}
