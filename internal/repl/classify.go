// Package repl implements the statement classifier and dispatch loop
// shared by the interactive and non-interactive CLI front ends.
package repl

import "strings"

// Kind classifies a SQL statement for dispatch purposes: whether it should
// be run via Exec (no rows expected back) or QueryIter (rows expected),
// and whether its result should be annotated as an EXPLAIN plan.
type Kind int

const (
	// KindQuery runs via QueryIter; its result is rendered as a row set.
	KindQuery Kind = iota
	// KindUpdate runs via Exec; its result is reported as an affected-row
	// count and elapsed time rather than a row set.
	KindUpdate
	// KindExplain runs via QueryIter like KindQuery but is never mistaken
	// for an update even though it may wrap one (EXPLAIN INSERT ...).
	KindExplain
)

// updateKeywords are first tokens whose statements don't return rows in the
// normal case. COPY is included because bulk loads report rows-affected,
// not a result set.
var updateKeywords = map[string]bool{
	"ALTER":    true,
	"UPDATE":   true,
	"INSERT":   true,
	"CREATE":   true,
	"DROP":     true,
	"OPTIMIZE": true,
	"COPY":     true,
	"DELETE":   true,
	"TRUNCATE": true,
	"GRANT":    true,
	"REVOKE":   true,
}

// Classify inspects sql's first token and returns its Kind.
func Classify(sql string) Kind {
	first := firstToken(sql)
	switch first {
	case "EXPLAIN":
		return KindExplain
	default:
		if updateKeywords[first] {
			return KindUpdate
		}
		return KindQuery
	}
}

// firstToken returns the uppercased first whitespace-delimited token of
// sql, ignoring leading whitespace.
func firstToken(sql string) string {
	sql = strings.TrimSpace(sql)
	end := strings.IndexAny(sql, " \t\n\r")
	if end == -1 {
		end = len(sql)
	}
	return strings.ToUpper(sql[:end])
}
