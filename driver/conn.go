// Package driver exposes the polymorphic Connection facade: a DSN resolves
// to either a REST connection (the fully implemented transport) or a
// columnar-RPC connection (a stub that proves out dial/close lifecycle
// only — the wire protocol for that transport is not specified).
package driver

import (
	"context"
	"io"

	"github.com/bendsql/bendsql-go/internal/dberrors"
	"github.com/bendsql/bendsql-go/protocol"
	"github.com/bendsql/bendsql-go/rows"
	"github.com/bendsql/bendsql-go/stage"
)

// Info describes a connection's identity for diagnostics and the REPL
// banner.
type Info struct {
	Host      string
	Port      int
	Database  string
	Warehouse string
}

// Connection is the facade every transport variant implements. Callers
// (the REPL, ingest helpers) program against this interface and never
// import driver/rest.go or driver/flight.go directly.
type Connection interface {
	Info() Info
	Version(ctx context.Context) (string, error)
	Exec(ctx context.Context, sql string) (int64, error)
	QueryRow(ctx context.Context, sql string) (rows.Item, error)
	QueryIter(ctx context.Context, sql string) (*rows.RowStream, error)
	QueryIterExt(ctx context.Context, sql string) (*rows.Stream, error)
	StreamLoad(ctx context.Context, sql string, data [][]string) error
	LoadData(ctx context.Context, sql string, data io.ReaderAt, size int64, fileFormatOptions, copyOptions map[string]string) (*protocol.QueryResponse, error)
	LoadFile(ctx context.Context, sql, path string, fileFormatOptions, copyOptions map[string]string) (*protocol.QueryResponse, error)
	GetPresignedURL(ctx context.Context, loc stage.Location) (*stage.PresignedResponse, error)
	UploadToStage(ctx context.Context, loc stage.Location, data io.ReaderAt, size int64, filename string) error
	Close() error
}

// base implements Version's default (SELECT version() via QueryRow) so
// each transport variant only has to supply QueryRow itself. Embed it in a
// concrete connection type.
type base struct {
	impl Connection
}

func (b base) Version(ctx context.Context) (string, error) {
	item, err := b.impl.QueryRow(ctx, "SELECT version()")
	if err != nil {
		return "", err
	}
	return item.String(0)
}

// New resolves dsn's scheme to a connection variant and dials it.
//
//   - databend, databend+http, databend+https -> Rest
//   - databend+flight, databend+grpc          -> Flight (stub)
func New(ctx context.Context, dsn string) (Connection, error) {
	scheme, err := schemeOf(dsn)
	if err != nil {
		return nil, err
	}
	switch scheme {
	case "databend", "databend+http", "databend+https":
		return NewRest(dsn)
	case "databend+flight", "databend+grpc":
		return NewFlight(ctx, dsn)
	default:
		return nil, dberrors.New(dberrors.Parsing, "unknown dsn scheme %q", scheme)
	}
}

func schemeOf(dsn string) (string, error) {
	for i := 0; i < len(dsn); i++ {
		if dsn[i] == ':' {
			return dsn[:i], nil
		}
	}
	return "", dberrors.New(dberrors.Parsing, "dsn %q has no scheme", dsn)
}
