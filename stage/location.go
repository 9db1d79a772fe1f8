// Package stage implements uploading local files to a Databend stage,
// either via a presigned PUT URL or, when presigning is unavailable or
// disabled, a proxied multipart upload through the warehouse endpoint
// itself.
package stage

import (
	"strings"

	"github.com/bendsql/bendsql-go/internal/dberrors"
)

// Location is a parsed stage reference: "@name/path/to/file" or the
// personal stage shorthand "@~/path/to/file".
type Location struct {
	// Name is the stage name, or "~" for the personal stage.
	Name string
	// Path is everything after the stage name, without a leading slash.
	Path string
}

// ParseLocation parses a stage reference of the form "@name/path" or
// "@~/path". The leading "@" is required, matching the grammar the server
// accepts in COPY INTO and PRESIGN statements.
func ParseLocation(raw string) (Location, error) {
	if !strings.HasPrefix(raw, "@") {
		return Location{}, dberrors.New(dberrors.BadArgument, "stage location %q must start with '@'", raw)
	}
	rest := raw[1:]
	if rest == "" {
		return Location{}, dberrors.New(dberrors.BadArgument, "stage location %q missing stage name", raw)
	}

	idx := strings.IndexByte(rest, '/')
	if idx == -1 {
		return Location{Name: rest, Path: ""}, nil
	}
	return Location{Name: rest[:idx], Path: strings.TrimPrefix(rest[idx+1:], "/")}, nil
}

// String renders the location back to its "@name/path" form.
func (l Location) String() string {
	if l.Path == "" {
		return "@" + l.Name
	}
	return "@" + l.Name + "/" + l.Path
}

// IsPersonal reports whether this is the caller's personal stage ("@~").
func (l Location) IsPersonal() bool {
	return l.Name == "~"
}
