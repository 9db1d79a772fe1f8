package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/uuid"

	"github.com/bendsql/bendsql-go/internal/dberrors"
	"github.com/bendsql/bendsql-go/internal/logger"
	"github.com/bendsql/bendsql-go/internal/metrics"
	"github.com/bendsql/bendsql-go/internal/shapeguard"
	"github.com/bendsql/bendsql-go/internal/transport"
	"github.com/bendsql/bendsql-go/protocol"
)

const startQueryRetries = 3
const pageRetries = 3
const pageRetryBase = 10 * time.Millisecond

// Client drives the start_query/query_page/kill_query pagination protocol
// against one Databend warehouse endpoint. A Client is built once per
// connection and is safe for concurrent use: the HTTP client it wraps
// pools its own connections, and Session is itself concurrency-safe.
type Client struct {
	cfg     *Config
	http    *http.Client
	Session *SessionManager

	Log     *logger.Logger
	Metrics *metrics.Metrics
	Shape   *shapeguard.Guard
}

// New builds a Client from a parsed Config. log and m may be nil, in which
// case a logger that writes only ERROR messages to stderr and a fresh
// Metrics instance are created.
func New(cfg *Config, log *logger.Logger, m *metrics.Metrics) (*Client, error) {
	httpClient, err := transport.New(transport.Options{
		Timeout:   time.Duration(cfg.WaitTimeSecs+30) * time.Second,
		TLSCAFile: cfg.TLSCAFile,
	})
	if err != nil {
		return nil, dberrors.Wrap(dberrors.IO, err, "build http client")
	}
	if log == nil {
		log = logger.New(logger.LevelError)
	}
	if m == nil {
		m = metrics.New()
	}
	return &Client{
		cfg:     cfg,
		http:    httpClient,
		Session: NewSessionManager(cfg.Database),
		Log:     log,
		Metrics: m,
		Shape:   shapeguard.NewGuard(),
	}, nil
}

// BaseURL returns the scheme://host:port prefix this client sends every
// request against.
func (c *Client) BaseURL() string { return c.cfg.BaseURL() }

// HTTPClient returns the pooled *http.Client backing this connection, for
// callers (such as the stage package) that need to issue requests outside
// the start_query/query_page protocol.
func (c *Client) HTTPClient() *http.Client { return c.http }

// DSNUser returns the username parsed from the connection's DSN.
func (c *Client) DSNUser() string { return c.cfg.User }

// DSNPassword returns the password parsed from the connection's DSN.
func (c *Client) DSNPassword() string { return c.cfg.Password }

// PresignedURLDisabled reports whether the DSN opted out of presigned
// stage uploads (presigned_url_disabled=true).
func (c *Client) PresignedURLDisabled() bool { return c.cfg.PresignedURLDisabled }

// genQueryID produces a fresh query ID for the X-DATABEND-QUERY-ID header.
func genQueryID() string {
	return uuid.New().String()
}

func (c *Client) makeHeaders(queryID string) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("X-DATABEND-QUERY-ID", queryID)
	if c.cfg.Tenant != "" {
		h.Set("X-DATABEND-TENANT", c.cfg.Tenant)
	}
	if wh := c.Session.CurrentWarehouse(); wh != "" {
		h.Set("X-DATABEND-WAREHOUSE", wh)
	} else if c.cfg.Warehouse != "" {
		h.Set("X-DATABEND-WAREHOUSE", c.cfg.Warehouse)
	}
	return h
}

func (c *Client) makePagination() protocol.PaginationConfig {
	return protocol.PaginationConfig{
		WaitTimeSecs:    c.cfg.WaitTimeSecs,
		MaxRowsInBuffer: c.cfg.MaxRowsInBuffer,
		MaxRowsPerPage:  c.cfg.MaxRowsPerPage,
	}
}

// StartQuery submits req to /v1/query and returns the first page. It makes
// up to startQueryRetries attempts in all, retrying only on a 503 (warehouse
// suspended/cold-starting) or a transport failure, with no backoff between
// attempts — the server is expected to either reject fast or come up
// within a couple of seconds. Retrying is driven by retry.Do rather than a
// hand-rolled loop, matching the reference Go client's DoRetry.
func (c *Client) StartQuery(ctx context.Context, req *protocol.QueryRequest) (*protocol.QueryResponse, error) {
	req.WithPagination(c.makePagination())
	body, err := json.Marshal(req)
	if err != nil {
		return nil, dberrors.Wrap(dberrors.Parsing, err, "marshal query request")
	}

	queryID := genQueryID()
	url := c.cfg.BaseURL() + "/v1/query"

	var resp *rawResponse
	err = retry.Do(
		func() error {
			r, err := c.doRequest(ctx, http.MethodPost, url, queryID, bytes.NewReader(body))
			if err != nil {
				return err
			}
			if r.status == http.StatusServiceUnavailable {
				return dberrors.New(dberrors.Request, "start_query: warehouse unavailable (503)")
			}
			resp = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(startQueryRetries),
		retry.DelayType(retry.FixedDelay),
		retry.Delay(0),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		c.Metrics.IncrementQueryErrors()
		return nil, err
	}
	c.Metrics.IncrementQueriesStarted()
	return c.decodeResponse(resp)
}

// QueryPage fetches the next page from nextURI. It retries up to
// pageRetries times with exponential backoff and jitter on transport
// errors; a 404 means the server-side session was reclaimed and is
// reported as dberrors.SessionTimeout without further retry. Retrying is
// driven by retry.Do, with RetryIf distinguishing a retryable transport
// failure from the terminal 404 case.
func (c *Client) QueryPage(ctx context.Context, nextURI string) (*protocol.QueryResponse, error) {
	queryID := genQueryID()
	url := c.cfg.BaseURL() + nextURI

	var resp *rawResponse
	err := retry.Do(
		func() error {
			start := time.Now()
			r, err := c.doRequest(ctx, http.MethodGet, url, queryID, nil)
			if err != nil {
				return retryable(err)
			}
			if r.status == http.StatusNotFound {
				return dberrors.New(dberrors.SessionTimeout, "query_page: session expired for %s", nextURI)
			}
			c.Metrics.RecordLatency(time.Since(start))
			c.Metrics.IncrementPagesFetched()
			resp = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(pageRetries+1),
		retry.RetryIf(retryIfRetryable),
		retry.DelayType(pageDelayType(pageRetryBase)),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		c.Metrics.IncrementQueryErrors()
		return nil, unwrapRetryable(err)
	}
	return c.decodeResponse(resp)
}

// KillQuery best-effort cancels an in-flight query. Errors are logged, not
// returned: by the time a caller wants to kill a query, they've usually
// already decided to give up on it regardless of whether the kill succeeds.
func (c *Client) KillQuery(ctx context.Context, killURI string) {
	if killURI == "" {
		return
	}
	url := c.cfg.BaseURL() + killURI
	if _, err := c.doRequest(ctx, http.MethodPost, url, genQueryID(), nil); err != nil {
		c.Log.Debugf("apiclient: kill_query %s: %v", killURI, err)
	}
}

// WaitForQuery follows a response's next_uri chain until the server
// reports a terminal state, accumulating all rows and preserving the
// original schema (later pages in Databend's protocol omit it).
func (c *Client) WaitForQuery(ctx context.Context, first *protocol.QueryResponse) (*protocol.QueryResponse, error) {
	final := *first
	schema := first.Schema
	data := append([][]interface{}{}, first.Data...)

	cur := first
	for cur.NextURI != "" {
		next, err := c.QueryPage(ctx, cur.NextURI)
		if err != nil {
			return nil, err
		}
		if len(next.Schema) > 0 {
			schema = next.Schema
		}
		data = append(data, next.Data...)
		cur = next
	}

	final.Schema = schema
	final.Data = data
	final.NextURI = ""
	final.Error = cur.Error
	final.Stats = cur.Stats
	return &final, nil
}

// Query starts req and waits for the full result, merging session state
// from every page it touches along the way.
func (c *Client) Query(ctx context.Context, req *protocol.QueryRequest) (*protocol.QueryResponse, error) {
	first, err := c.StartQuery(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.WaitForQuery(ctx, first)
}

type rawResponse struct {
	status int
	body   []byte
}

func (c *Client) doRequest(ctx context.Context, method, url, queryID string, body io.Reader) (*rawResponse, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, dberrors.Wrap(dberrors.Request, err, "build request")
	}
	for k, vals := range c.makeHeaders(queryID) {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	req.SetBasicAuth(c.cfg.User, c.cfg.Password)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, dberrors.Wrap(dberrors.Request, err, "%s %s", method, url)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, dberrors.Wrap(dberrors.IO, err, "read response body")
	}
	return &rawResponse{status: resp.StatusCode, body: data}, nil
}

func (c *Client) decodeResponse(resp *rawResponse) (*protocol.QueryResponse, error) {
	if resp.status != http.StatusOK {
		c.Metrics.IncrementQueryErrors()
		return nil, dberrors.New(dberrors.Request, "unexpected status %d: %s", resp.status, string(resp.body))
	}

	if drift, err := c.Shape.Check(resp.body); err == nil && len(drift) > 0 {
		c.Log.Debugf("apiclient: response shape drift: %s", shapeguard.FormatDrift(drift))
	}

	var qr protocol.QueryResponse
	if err := json.Unmarshal(resp.body, &qr); err != nil {
		c.Metrics.IncrementQueryErrors()
		return nil, dberrors.Wrap(dberrors.InvalidResponse, err, "decode query response")
	}
	if qr.Error != nil {
		c.Metrics.IncrementQueryErrors()
		return &qr, dberrors.New(dberrors.InvalidResponse, "server error %d: %s", qr.Error.Code, qr.Error.Message)
	}

	if qr.Session != nil {
		c.Session.Merge(&SessionState{Database: qr.Session.Database, Settings: qr.Session.Settings})
	}

	return &qr, nil
}
