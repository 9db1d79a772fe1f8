// Package apiclient implements the pagination protocol client: DSN parsing,
// session-state tracking, and the start_query/query_page/kill_query request
// cycle against a Databend HTTP query endpoint.
package apiclient

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/bendsql/bendsql-go/internal/dberrors"
)

// Config is the parsed, immutable connection configuration built from a
// DSN. Every field is set once by ParseDSN; nothing in this package mutates
// a Config after construction.
type Config struct {
	Scheme   string // "http" or "https", chosen from the DSN scheme and sslmode
	Host     string
	Port     int
	User     string
	Password string
	Database string

	Tenant    string
	Warehouse string

	WaitTimeSecs    int
	MaxRowsInBuffer int
	MaxRowsPerPage  int

	TLSCAFile            string
	PresignedURLDisabled bool
}

const (
	defaultWaitTimeSecs    = 10
	defaultMaxRowsInBuffer = 5_000_000
	defaultMaxRowsPerPage  = 10_000
)

// ParseDSN parses a Databend connection string of the form:
//
//	databend[+http|+https]://user[:password]@host[:port]/[database][?opt=val&...]
//
// Recognised query options: tenant, warehouse, wait_time_secs,
// max_rows_in_buffer, max_rows_per_page, tls_ca_file, sslmode
// (disable|enable|require), presigned_url_disabled.
func ParseDSN(dsn string) (*Config, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, dberrors.Wrap(dberrors.Parsing, err, "parse dsn")
	}

	scheme, err := resolveScheme(u.Scheme)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Scheme:          "http",
		Host:            u.Hostname(),
		User:            "root",
		WaitTimeSecs:    defaultWaitTimeSecs,
		MaxRowsInBuffer: defaultMaxRowsInBuffer,
		MaxRowsPerPage:  defaultMaxRowsPerPage,
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}

	if u.User != nil {
		if name := u.User.Username(); name != "" {
			cfg.User = name
		}
		if pw, ok := u.User.Password(); ok {
			cfg.Password = pw
		}
	}

	if db := trimLeadingSlash(u.Path); db != "" {
		cfg.Database = db
	}

	q := u.Query()
	if v := q.Get("tenant"); v != "" {
		cfg.Tenant = v
	}
	if v := q.Get("warehouse"); v != "" {
		cfg.Warehouse = v
	}
	if v := q.Get("tls_ca_file"); v != "" {
		cfg.TLSCAFile = v
	}
	if v := q.Get("wait_time_secs"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, dberrors.Wrap(dberrors.Parsing, err, "parse wait_time_secs")
		}
		cfg.WaitTimeSecs = n
	}
	if v := q.Get("max_rows_in_buffer"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, dberrors.Wrap(dberrors.Parsing, err, "parse max_rows_in_buffer")
		}
		cfg.MaxRowsInBuffer = n
	}
	if v := q.Get("max_rows_per_page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, dberrors.Wrap(dberrors.Parsing, err, "parse max_rows_per_page")
		}
		cfg.MaxRowsPerPage = n
	}
	if v := q.Get("presigned_url_disabled"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, dberrors.Wrap(dberrors.BadArgument, err, "parse presigned_url_disabled")
		}
		cfg.PresignedURLDisabled = b
	}

	sslmode := q.Get("sslmode")
	switch sslmode {
	case "":
		cfg.Scheme = scheme
	case "require", "enable":
		cfg.Scheme = "https"
	case "disable":
		cfg.Scheme = "http"
	default:
		return nil, dberrors.New(dberrors.BadArgument, "unknown sslmode %q", sslmode)
	}

	cfg.Port = resolvePort(u.Port(), cfg.Scheme)

	return cfg, nil
}

// resolveScheme maps a DSN scheme to the transport it implies. Only the
// REST-ish schemes are handled here; databend+flight/databend+grpc are
// recognised by the driver package's connection factory, not here.
func resolveScheme(scheme string) (string, error) {
	switch scheme {
	case "databend", "databend+http":
		return "http", nil
	case "databend+https":
		return "https", nil
	default:
		return "", dberrors.New(dberrors.Parsing, "unsupported dsn scheme %q", scheme)
	}
}

func resolvePort(raw, scheme string) int {
	if raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	}
	if scheme == "https" {
		return 443
	}
	return 80
}

func trimLeadingSlash(path string) string {
	if len(path) > 0 && path[0] == '/' {
		return path[1:]
	}
	return path
}

// BaseURL returns the scheme://host:port prefix used to build every request
// URL for this connection.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("%s://%s:%d", c.Scheme, c.Host, c.Port)
}
