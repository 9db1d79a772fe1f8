package repl

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/bendsql/bendsql-go/driver"
	"github.com/bendsql/bendsql-go/internal/lock"
	"github.com/bendsql/bendsql-go/internal/logger"
	"github.com/bendsql/bendsql-go/rows"
)

// Dispatcher classifies and runs statements against one connection,
// rebuilding the connection and retrying once if a statement fails with an
// auth-expiry signal. Safe for concurrent use: reconnects are serialized by
// a KeyedLock keyed on the connection's DSN so two in-flight statements
// never race each other's reconnect.
type Dispatcher struct {
	dsn string
	log *logger.Logger

	mu   sync.RWMutex
	conn driver.Connection

	reconnectLock lock.KeyedLock
}

// NewDispatcher wraps an already-connected conn. dsn is retained so a
// reconnect can rebuild an equivalent connection from scratch.
func NewDispatcher(dsn string, conn driver.Connection, log *logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.New(logger.LevelError)
	}
	return &Dispatcher{
		dsn:           dsn,
		log:           log,
		conn:          conn,
		reconnectLock: lock.NewInMemoryLock(),
	}
}

// Result is the outcome of dispatching one statement, ready to render.
type Result struct {
	Kind     Kind
	Elapsed  time.Duration
	RowCount int // rows affected for KindUpdate, rows rendered otherwise
}

// Handle classifies sql and runs it, writing any row output to out. It
// reconnects and retries exactly once on an auth-expiry error.
func (d *Dispatcher) Handle(ctx context.Context, sql string, out io.Writer) (Result, error) {
	kind := Classify(sql)

	d.mu.RLock()
	stale := d.conn
	d.mu.RUnlock()

	res, err := d.run(ctx, kind, sql, out)
	if err != nil && isAuthExpired(err) {
		d.log.Infof("repl: session expired, reconnecting")
		if rerr := d.reconnect(ctx, stale); rerr != nil {
			return Result{}, rerr
		}
		res, err = d.run(ctx, kind, sql, out)
	}
	return res, err
}

func (d *Dispatcher) run(ctx context.Context, kind Kind, sql string, out io.Writer) (Result, error) {
	d.mu.RLock()
	conn := d.conn
	d.mu.RUnlock()

	start := time.Now()
	switch kind {
	case KindUpdate:
		affected, err := conn.Exec(ctx, sql)
		if err != nil {
			return Result{}, err
		}
		return Result{Kind: kind, Elapsed: time.Since(start), RowCount: int(affected)}, nil
	default:
		stream, err := conn.QueryIter(ctx, sql)
		if err != nil {
			return Result{}, err
		}
		defer stream.Close()
		n, err := renderRows(ctx, stream, out)
		if err != nil {
			return Result{}, err
		}
		return Result{Kind: kind, Elapsed: time.Since(start), RowCount: n}, nil
	}
}

// reconnect rebuilds the connection from d.dsn, serialized so that if
// several statements fail with an auth error at once, only the first
// rebuilds it — the rest simply wait and reuse the result.
func (d *Dispatcher) reconnect(ctx context.Context, stale driver.Connection) error {
	if err := d.reconnectLock.Lock(ctx, d.dsn); err != nil {
		return err
	}
	defer d.reconnectLock.Unlock(d.dsn)

	d.mu.RLock()
	current := d.conn
	d.mu.RUnlock()
	if current != stale {
		return nil
	}

	newConn, err := driver.New(ctx, d.dsn)
	if err != nil {
		return err
	}

	d.mu.Lock()
	old := d.conn
	d.conn = newConn
	d.mu.Unlock()

	old.Close()
	return nil
}

// isAuthExpired reports whether err signals that the server-side session's
// credentials are no longer accepted, mirroring the original CLI's
// substring check against the server's error text.
func isAuthExpired(err error) bool {
	return strings.Contains(err.Error(), "Unauthenticated")
}

// renderRows drains stream into a minimal tab-aligned table. Output
// formatting beyond this is out of scope for the driver itself.
func renderRows(ctx context.Context, stream *rows.RowStream, out io.Writer) (int, error) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	headerWritten := false
	n := 0
	for {
		item, ok, err := stream.Next(ctx)
		if err != nil {
			w.Flush()
			return n, err
		}
		if !ok {
			break
		}
		if !headerWritten {
			names := make([]string, len(item.Schema))
			for i, f := range item.Schema {
				names[i] = f.Name
			}
			fmt.Fprintln(w, strings.Join(names, "\t"))
			headerWritten = true
		}
		cells := make([]string, len(item.Values))
		for i := range item.Values {
			s, err := item.String(i)
			if err != nil {
				s = fmt.Sprintf("%v", item.Values[i])
			}
			cells[i] = s
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
		n++
	}
	w.Flush()
	return n, nil
}
