package driver

import (
	"context"
	"io"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/bendsql/bendsql-go/internal/dberrors"
	"github.com/bendsql/bendsql-go/protocol"
	"github.com/bendsql/bendsql-go/rows"
	"github.com/bendsql/bendsql-go/stage"
)

// Flight is the columnar-RPC transport connection variant. Its wire
// protocol is unspecified; this stub only proves out the gRPC connection
// lifecycle (dial on New, close on Close). Every query operation returns
// dberrors.ErrNotImplemented.
type Flight struct {
	base
	conn *grpc.ClientConn
}

// NewFlight dials dsn's host as a plain gRPC target. It does not
// authenticate or negotiate a session — there is no generated service
// stub in scope to call.
func NewFlight(ctx context.Context, dsn string) (*Flight, error) {
	target, err := flightTarget(dsn)
	if err != nil {
		return nil, err
	}
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, dberrors.Wrap(dberrors.Request, err, "dial columnar-rpc target %s", target)
	}
	f := &Flight{conn: conn}
	f.base = base{impl: f}
	return f, nil
}

func (f *Flight) Info() Info { return Info{} }

func (f *Flight) Exec(ctx context.Context, sql string) (int64, error) {
	return 0, dberrors.ErrNotImplemented
}

func (f *Flight) QueryRow(ctx context.Context, sql string) (rows.Item, error) {
	return rows.Item{}, dberrors.ErrNotImplemented
}

func (f *Flight) QueryIter(ctx context.Context, sql string) (*rows.RowStream, error) {
	return nil, dberrors.ErrNotImplemented
}

func (f *Flight) QueryIterExt(ctx context.Context, sql string) (*rows.Stream, error) {
	return nil, dberrors.ErrNotImplemented
}

func (f *Flight) StreamLoad(ctx context.Context, sql string, data [][]string) error {
	return dberrors.ErrNotImplemented
}

func (f *Flight) LoadData(ctx context.Context, sql string, data io.ReaderAt, size int64, fileFormatOptions, copyOptions map[string]string) (*protocol.QueryResponse, error) {
	return nil, dberrors.ErrNotImplemented
}

func (f *Flight) LoadFile(ctx context.Context, sql, path string, fileFormatOptions, copyOptions map[string]string) (*protocol.QueryResponse, error) {
	return nil, dberrors.ErrNotImplemented
}

func (f *Flight) GetPresignedURL(ctx context.Context, loc stage.Location) (*stage.PresignedResponse, error) {
	return nil, dberrors.ErrNotImplemented
}

func (f *Flight) UploadToStage(ctx context.Context, loc stage.Location, data io.ReaderAt, size int64, filename string) error {
	return dberrors.ErrNotImplemented
}

// Close tears down the underlying gRPC connection.
func (f *Flight) Close() error {
	return f.conn.Close()
}

// flightTarget strips the databend+flight:// / databend+grpc:// scheme and
// returns the bare host:port gRPC dial target.
func flightTarget(dsn string) (string, error) {
	for i := 0; i < len(dsn); i++ {
		if dsn[i] == ':' {
			rest := dsn[i+1:]
			for len(rest) > 0 && rest[0] == '/' {
				rest = rest[1:]
			}
			if rest == "" {
				return "", dberrors.New(dberrors.Parsing, "dsn %q has no host", dsn)
			}
			host := rest
			for j := 0; j < len(rest); j++ {
				if rest[j] == '/' || rest[j] == '?' {
					host = rest[:j]
					break
				}
			}
			if at := strings.LastIndexByte(host, '@'); at >= 0 {
				host = host[at+1:]
			}
			return host, nil
		}
	}
	return "", dberrors.New(dberrors.Parsing, "dsn %q has no scheme", dsn)
}
