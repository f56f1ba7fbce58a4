// Package session provides per-visitor server-side storage: an opaque
// session id carried in a signed cookie, and a pluggable store holding a
// flat key/value map of JSON values for each session.
//
// Persistence is whole-slot: Save replaces everything stored under the id,
// so concurrent requests for one session are last-writer-wins. Callers
// mutate through the Session handle, which tracks whether a write-back is
// needed.
package session

import (
	"context"
	"encoding/json"
)

// Values is the raw per-session payload. Keeping values as JSON blobs
// confines the "only serializable data goes in a session" rule to the
// Session.Set boundary.
type Values map[string]json.RawMessage

type Store interface {
	// Load returns the values for id, with ok=false when the session has
	// never been saved.
	Load(ctx context.Context, id string) (Values, bool, error)

	// Save replaces the whole slot for id.
	Save(ctx context.Context, id string, values Values) error

	// Delete drops the session entirely. Deleting an unknown id is a no-op.
	Delete(ctx context.Context, id string) error

	Ping(ctx context.Context) error
}

func cloneValues(v Values) Values {
	out := make(Values, len(v))
	for k, raw := range v {
		cp := make(json.RawMessage, len(raw))
		copy(cp, raw)
		out[k] = cp
	}
	return out
}
