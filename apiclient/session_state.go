package apiclient

import "sync"

// SessionState is the server-reported session context: the current
// database and any session-level settings (e.g. warehouse) the server has
// echoed back. It is merged into after every query response per the
// protocol's merge policy (see SessionManager.Merge).
type SessionState struct {
	Database *string
	Settings map[string]string
}

// clone returns a deep copy so callers can read a snapshot without holding
// the owning SessionManager's lock.
func (s SessionState) clone() SessionState {
	out := SessionState{}
	if s.Database != nil {
		db := *s.Database
		out.Database = &db
	}
	if s.Settings != nil {
		out.Settings = make(map[string]string, len(s.Settings))
		for k, v := range s.Settings {
			out.Settings[k] = v
		}
	}
	return out
}

// SessionManager owns the mutable session state for one connection. All
// access goes through Merge/Snapshot so no caller ever sees a torn read
// while a response is being applied. warehouse is cached in its own field,
// separate from state.Settings, exactly like the original driver's
// handle_session: the whole SessionState is replaced wholesale on every
// merge, but database and warehouse each survive a merge that doesn't
// mention them.
type SessionManager struct {
	mu        sync.Mutex
	state     SessionState
	warehouse *string
}

// NewSessionManager creates a manager whose initial database is the one
// parsed from the DSN, if any.
func NewSessionManager(database string) *SessionManager {
	sm := &SessionManager{}
	if database != "" {
		sm.state.Database = &database
	}
	return sm
}

// Merge applies a session update from a QueryResponse. The merge policy,
// grounded on the original driver's handle_session: replace the whole
// state wholesale first, then re-apply the previously known database if the
// new state didn't carry one, then re-apply the previously cached warehouse
// if the new state's Settings doesn't carry one — a response with no
// session block at all leaves the prior state untouched.
func (sm *SessionManager) Merge(update *SessionState) {
	if update == nil {
		return
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()

	prevDatabase := sm.state.Database
	next := update.clone()

	if next.Database == nil {
		next.Database = prevDatabase
	}
	sm.state = next

	if v, ok := next.Settings["warehouse"]; ok {
		sm.warehouse = &v
	}
}

// Snapshot returns a deep copy of the current session state.
func (sm *SessionManager) Snapshot() SessionState {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.state.clone()
}

// CurrentDatabase returns the session's current database, or "" if unset.
func (sm *SessionManager) CurrentDatabase() string {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.state.Database == nil {
		return ""
	}
	return *sm.state.Database
}

// CurrentWarehouse returns the session's current warehouse setting, or ""
// if unset.
func (sm *SessionManager) CurrentWarehouse() string {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.warehouse == nil {
		return ""
	}
	return *sm.warehouse
}
