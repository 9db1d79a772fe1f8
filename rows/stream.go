// Package rows implements the client-facing row stream: a pull iterator
// that bridges the server's push-style pagination (each page carries the
// URI of the next) to a simple Next/Item loop, fetching pages in the
// background so a caller processing one page overlaps with the network
// wait for the next.
package rows

import (
	"context"

	"github.com/bendsql/bendsql-go/apiclient"
	"github.com/bendsql/bendsql-go/internal/dberrors"
	"github.com/bendsql/bendsql-go/protocol"
)

// ItemKind distinguishes the two variants of the stream's sum type.
type ItemKind int

const (
	// KindRow is a decoded data row. It is the zero value, so a zero Item
	// behaves as an (empty) row unless explicitly constructed as Stats.
	KindRow ItemKind = iota
	// KindStats is a server progress/timing update interleaved at a page
	// boundary rather than a data row.
	KindStats
)

// Item is one element of a Stream: either a decoded row plus the schema it
// was decoded against, or a Stats update. Mirrors the original driver's
// RowWithStats sum type.
type Item struct {
	Kind   ItemKind
	Schema []protocol.Field
	Values []interface{}
	Stats  *protocol.Stats
}

// IsStats reports whether it carries a Stats update rather than row data.
func (it Item) IsStats() bool {
	return it.Kind == KindStats
}

// Stream is a pull-based iterator over a query's results, yielding decoded
// rows interleaved with Stats updates once per page boundary. It is not
// safe for concurrent use by multiple goroutines — exactly like a SQL
// cursor, one goroutine drives it at a time. Use FilterRows to adapt it
// into a rows-only iterator.
type Stream struct {
	client *apiclient.Client
	ctx    context.Context
	cancel context.CancelFunc

	schema  []protocol.Field
	queue   []Item
	nextURI string

	fetchCh chan fetchResult
	pending bool

	closed bool
}

type fetchResult struct {
	resp *protocol.QueryResponse
	err  error
}

// New creates a Stream seeded with a query's first page. It takes ownership
// of ctx's lifetime via an internal cancel, released by Close.
func New(ctx context.Context, client *apiclient.Client, first *protocol.QueryResponse) *Stream {
	cctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		client:  client,
		ctx:     cctx,
		cancel:  cancel,
		schema:  first.Schema,
		nextURI: first.NextURI,
	}
	s.queue = buildQueue(s.schema, first)
	if s.nextURI != "" {
		s.startFetch()
	}
	return s
}

// buildQueue turns one page's response into the items it yields: its rows
// in order, followed by a single Stats item for that page — stats are
// interleaved once per page boundary rather than once per row.
func buildQueue(schema []protocol.Field, resp *protocol.QueryResponse) []Item {
	items := make([]Item, 0, len(resp.Data)+1)
	for _, row := range resp.Data {
		items = append(items, Item{Kind: KindRow, Schema: schema, Values: row})
	}
	stats := resp.Stats
	items = append(items, Item{Kind: KindStats, Schema: schema, Stats: &stats})
	return items
}

// startFetch launches a background fetch of the next page into a
// single-slot channel, mirroring the ticker-goroutine shape used elsewhere
// in this driver for overlapping I/O with processing.
func (s *Stream) startFetch() {
	s.fetchCh = make(chan fetchResult, 1)
	s.pending = true
	uri := s.nextURI
	go func() {
		resp, err := s.client.QueryPage(s.ctx, uri)
		s.fetchCh <- fetchResult{resp: resp, err: err}
	}()
}

// Next returns the next item: a decoded row, or a Stats update at a page
// boundary. It returns (Item{}, false, nil) once the stream is exhausted,
// and propagates any page-fetch error.
func (s *Stream) Next(ctx context.Context) (Item, bool, error) {
	if s.closed {
		return Item{}, false, dberrors.New(dberrors.IO, "rows: Next called on closed stream")
	}

	for len(s.queue) == 0 {
		if !s.pending {
			return Item{}, false, nil
		}
		select {
		case res := <-s.fetchCh:
			s.pending = false
			if res.err != nil {
				return Item{}, false, res.err
			}
			if len(res.resp.Schema) > 0 {
				s.schema = res.resp.Schema
			}
			s.nextURI = res.resp.NextURI
			s.queue = buildQueue(s.schema, res.resp)
			if s.nextURI != "" {
				s.startFetch()
			}
		case <-ctx.Done():
			return Item{}, false, dberrors.Wrap(dberrors.Request, ctx.Err(), "rows: Next cancelled")
		}
	}

	item := s.queue[0]
	s.queue = s.queue[1:]
	return item, true, nil
}

// Schema returns the most recently known schema for this stream.
func (s *Stream) Schema() []protocol.Field {
	return s.schema
}

// Close cancels any in-flight page fetch. Dropping a stream with pages
// still pending issues no further HTTP requests and does not kill the
// query server-side — that is query_row's job (see Rest.QueryRow), not
// this one's. Safe to call more than once.
func (s *Stream) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
}

// FilterRows adapts s into an iterator that yields only Row items,
// discarding Stats updates while still forwarding errors and end-of-stream
// — mirrors the original driver's RowStatsIterator::filter_rows().
func (s *Stream) FilterRows() *RowStream {
	return &RowStream{s: s}
}

// RowStream is a Stream adapted to skip Stats items, for callers that only
// want row data.
type RowStream struct {
	s *Stream
}

// Next returns the next row, skipping over any Stats items.
func (rs *RowStream) Next(ctx context.Context) (Item, bool, error) {
	for {
		item, ok, err := rs.s.Next(ctx)
		if err != nil || !ok {
			return item, ok, err
		}
		if item.Kind == KindRow {
			return item, true, nil
		}
	}
}

// Schema returns the most recently known schema for the underlying stream.
func (rs *RowStream) Schema() []protocol.Field {
	return rs.s.Schema()
}

// Close closes the underlying stream.
func (rs *RowStream) Close() {
	rs.s.Close()
}
