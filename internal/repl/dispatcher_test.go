package repl_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/bendsql/bendsql-go/driver"
	"github.com/bendsql/bendsql-go/internal/repl"
	"github.com/bendsql/bendsql-go/protocol"
)

func TestDispatcher_Handle_Query(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(protocol.QueryResponse{
			ID:     "q1",
			Schema: []protocol.Field{{Name: "n"}},
			Data:   [][]interface{}{{"1"}, {"2"}},
		})
	}))
	defer srv.Close()

	dsn := fmt.Sprintf("databend://user:pass@%s/db", strings.TrimPrefix(srv.URL, "http://"))
	conn, err := driver.New(context.Background(), dsn)
	if err != nil {
		t.Fatal(err)
	}
	d := repl.NewDispatcher(dsn, conn, nil)

	var out bytes.Buffer
	res, err := d.Handle(context.Background(), "select n", &out)
	if err != nil {
		t.Fatalf("Handle error: %v", err)
	}
	if res.Kind != repl.KindQuery {
		t.Errorf("Kind = %v, want KindQuery", res.Kind)
	}
	if res.RowCount != 2 {
		t.Errorf("RowCount = %d, want 2", res.RowCount)
	}
	if !strings.Contains(out.String(), "n") {
		t.Errorf("expected header in output, got: %q", out.String())
	}
}

func TestDispatcher_Handle_Update(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(protocol.QueryResponse{ID: "q1"})
	}))
	defer srv.Close()

	dsn := fmt.Sprintf("databend://user:pass@%s/db", strings.TrimPrefix(srv.URL, "http://"))
	conn, err := driver.New(context.Background(), dsn)
	if err != nil {
		t.Fatal(err)
	}
	d := repl.NewDispatcher(dsn, conn, nil)

	var out bytes.Buffer
	res, err := d.Handle(context.Background(), "CREATE TABLE t (a INT)", &out)
	if err != nil {
		t.Fatalf("Handle error: %v", err)
	}
	if res.Kind != repl.KindUpdate {
		t.Errorf("Kind = %v, want KindUpdate", res.Kind)
	}
}

func TestDispatcher_ReconnectsOnUnauthenticated(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			json.NewEncoder(w).Encode(protocol.QueryResponse{
				ID:    "q1",
				Error: &protocol.ResponseError{Code: 401, Message: "Unauthenticated: token expired"},
			})
			return
		}
		json.NewEncoder(w).Encode(protocol.QueryResponse{ID: "q2"})
	}))
	defer srv.Close()

	dsn := fmt.Sprintf("databend://user:pass@%s/db", strings.TrimPrefix(srv.URL, "http://"))
	conn, err := driver.New(context.Background(), dsn)
	if err != nil {
		t.Fatal(err)
	}
	d := repl.NewDispatcher(dsn, conn, nil)

	var out bytes.Buffer
	_, err = d.Handle(context.Background(), "select 1", &out)
	if err != nil {
		t.Fatalf("expected the dispatcher to recover via reconnect, got: %v", err)
	}
	if atomic.LoadInt32(&calls) < 2 {
		t.Errorf("expected at least 2 requests (initial + retry), got %d", calls)
	}
}
