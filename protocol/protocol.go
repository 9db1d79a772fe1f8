// Package protocol defines the wire types exchanged with a Databend HTTP
// query endpoint: the query request body, the paginated response envelope,
// and the session/stage-attachment sub-objects embedded in it.
package protocol

// Field describes one column of a QueryResponse's schema.
type Field struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable,omitempty"`
}

// Stats carries the server's progress and timing counters for a query.
type Stats struct {
	RunningTimeMS float64        `json:"running_time_ms"`
	ScanProgress  *ProgressStats `json:"scan_progress,omitempty"`
	WriteProgress *WriteProgress `json:"write_progress,omitempty"`
}

// ProgressStats reports rows/bytes scanned so far.
type ProgressStats struct {
	ReadRows  uint64 `json:"read_rows"`
	ReadBytes uint64 `json:"read_bytes"`
}

// WriteProgress reports rows/bytes written so far — the source of truth
// for exec()'s "affected rows" count.
type WriteProgress struct {
	Rows  int64 `json:"rows"`
	Bytes int64 `json:"bytes"`
}

// ResponseError is the embedded failure object a 200 response may still
// carry. Its presence is the sole authoritative failure signal — an HTTP
// 200 with a non-nil Error here is still a failed query.
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// SessionUpdate is the session sub-object returned with a response. A nil
// Database means the server did not report a database change; Settings may
// be nil or partial.
type SessionUpdate struct {
	Database *string           `json:"database,omitempty"`
	Settings map[string]string `json:"settings,omitempty"`
}

// QueryResponse is one page of a (possibly multi-page) query result.
type QueryResponse struct {
	ID       string          `json:"id"`
	Schema   []Field         `json:"schema"`
	Data     [][]interface{} `json:"data"`
	Stats    Stats           `json:"stats"`
	Error    *ResponseError  `json:"error"`
	NextURI  string          `json:"next_uri,omitempty"`
	KillURI  string          `json:"kill_uri,omitempty"`
	State    string          `json:"state,omitempty"`
	Session  *SessionUpdate  `json:"session,omitempty"`
}

// StageAttachment tells the server to read a COPY INTO's source rows from
// an already-uploaded stage location instead of inline values.
type StageAttachment struct {
	Location           string            `json:"location"`
	FileFormatOptions  map[string]string `json:"file_format_options,omitempty"`
	CopyOptions        map[string]string `json:"copy_options,omitempty"`
}

// PaginationConfig bounds how a single page is produced server-side.
type PaginationConfig struct {
	WaitTimeSecs    int `json:"wait_time_secs"`
	MaxRowsInBuffer int `json:"max_rows_in_buffer"`
	MaxRowsPerPage  int `json:"max_rows_per_page"`
}

// SessionConfig carries the client's view of session state into a request.
type SessionConfig struct {
	Database string            `json:"database,omitempty"`
	Settings map[string]string `json:"settings,omitempty"`
}

// QueryRequest is the body POSTed to /v1/query to start a new query, and is
// never sent again for follow-up pages (those are plain GETs on next_uri).
type QueryRequest struct {
	SQL             string           `json:"sql"`
	Session         *SessionConfig   `json:"session,omitempty"`
	Pagination      PaginationConfig `json:"pagination"`
	StageAttachment *StageAttachment `json:"stage_attachment,omitempty"`
}

// WithSession attaches session context to the request and returns it for
// chaining.
func (r *QueryRequest) WithSession(s *SessionConfig) *QueryRequest {
	r.Session = s
	return r
}

// WithPagination attaches pagination tunables and returns the request for
// chaining.
func (r *QueryRequest) WithPagination(p PaginationConfig) *QueryRequest {
	r.Pagination = p
	return r
}

// WithStageAttachment attaches a stage attachment and returns the request
// for chaining.
func (r *QueryRequest) WithStageAttachment(a *StageAttachment) *QueryRequest {
	r.StageAttachment = a
	return r
}
