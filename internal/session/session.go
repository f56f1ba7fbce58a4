package session

import "encoding/json"

// Session is the per-request handle over one visitor's values. Set and
// Delete go through the handle so the modified flag can never be forgotten;
// the middleware writes the whole slot back when Modified reports true.
type Session struct {
	id       string
	values   Values
	modified bool
}

func New(id string, values Values) *Session {
	if values == nil {
		values = Values{}
	}
	return &Session{id: id, values: values}
}

func (s *Session) ID() string { return s.id }

// Get returns the raw JSON stored under key.
func (s *Session) Get(key string) (json.RawMessage, bool) {
	raw, ok := s.values[key]
	return raw, ok
}

// Set marshals v under key and marks the session for write-back. Values
// must be JSON-serializable; that is the store's one hard constraint.
func (s *Session) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.values[key] = raw
	s.modified = true
	return nil
}

// Delete removes key and marks the session for write-back.
func (s *Session) Delete(key string) {
	delete(s.values, key)
	s.modified = true
}

func (s *Session) Modified() bool { return s.modified }

// Snapshot returns a copy of the current values for persisting.
func (s *Session) Snapshot() Values {
	return cloneValues(s.values)
}
