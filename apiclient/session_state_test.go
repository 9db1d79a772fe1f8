package apiclient_test

import (
	"testing"

	"github.com/bendsql/bendsql-go/apiclient"
)

func strPtr(s string) *string { return &s }

func TestSessionManager_InitialDatabase(t *testing.T) {
	sm := apiclient.NewSessionManager("default")
	if sm.CurrentDatabase() != "default" {
		t.Errorf("CurrentDatabase = %q, want default", sm.CurrentDatabase())
	}
}

func TestSessionManager_MergeReplacesWholeState(t *testing.T) {
	sm := apiclient.NewSessionManager("default")
	sm.Merge(&apiclient.SessionState{
		Database: strPtr("analytics"),
		Settings: map[string]string{"warehouse": "wh1"},
	})
	if sm.CurrentDatabase() != "analytics" {
		t.Errorf("CurrentDatabase = %q, want analytics", sm.CurrentDatabase())
	}
	if sm.CurrentWarehouse() != "wh1" {
		t.Errorf("CurrentWarehouse = %q, want wh1", sm.CurrentWarehouse())
	}
}

func TestSessionManager_MergePreservesDatabaseWhenAbsent(t *testing.T) {
	sm := apiclient.NewSessionManager("default")
	sm.Merge(&apiclient.SessionState{Database: strPtr("analytics")})
	// A later update with no Database field must not clobber it.
	sm.Merge(&apiclient.SessionState{Settings: map[string]string{"warehouse": "wh2"}})
	if sm.CurrentDatabase() != "analytics" {
		t.Errorf("CurrentDatabase = %q, want analytics to survive a database-less merge", sm.CurrentDatabase())
	}
	if sm.CurrentWarehouse() != "wh2" {
		t.Errorf("CurrentWarehouse = %q, want wh2", sm.CurrentWarehouse())
	}
}

func TestSessionManager_MergePreservesWarehouseWhenSettingsOmitIt(t *testing.T) {
	sm := apiclient.NewSessionManager("default")
	sm.Merge(&apiclient.SessionState{
		Database: strPtr("analytics"),
		Settings: map[string]string{"warehouse": "wh1"},
	})
	// A later update whose Settings map is present but doesn't mention
	// warehouse at all must not wipe the cached value back to "".
	sm.Merge(&apiclient.SessionState{
		Database: strPtr("analytics"),
		Settings: map[string]string{"timezone": "UTC"},
	})
	if sm.CurrentWarehouse() != "wh1" {
		t.Errorf("CurrentWarehouse = %q, want wh1 to survive a merge whose settings omit it", sm.CurrentWarehouse())
	}
}

func TestSessionManager_MergeNilIsNoop(t *testing.T) {
	sm := apiclient.NewSessionManager("default")
	sm.Merge(nil)
	if sm.CurrentDatabase() != "default" {
		t.Errorf("CurrentDatabase = %q, want default unchanged", sm.CurrentDatabase())
	}
}

func TestSessionManager_SnapshotIsIndependentCopy(t *testing.T) {
	sm := apiclient.NewSessionManager("default")
	snap := sm.Snapshot()
	sm.Merge(&apiclient.SessionState{Database: strPtr("other")})
	if snap.Database == nil || *snap.Database != "default" {
		t.Error("snapshot taken before Merge should be unaffected by it")
	}
}
