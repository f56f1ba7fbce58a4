package cart

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Entry is one product's line in the persisted cart: how many units are
// wanted, and the unit price captured when the entry was first created.
// Price stays a string on the wire so the session payload holds only
// primitives.
type Entry struct {
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
}

// entries is the cart mapping, product-id string to Entry, with
// first-insertion order kept across JSON round-trips. The wire shape is a
// plain object: {"5": {"quantity": 2, "price": "25.50"}}.
type entries struct {
	keys []string
	m    map[string]Entry
}

func newEntries() *entries {
	return &entries{m: map[string]Entry{}}
}

func (e *entries) len() int { return len(e.keys) }

func (e *entries) get(id string) (Entry, bool) {
	ent, ok := e.m[id]
	return ent, ok
}

// set inserts or replaces. Replacing keeps the id's original position;
// only a first insert appends.
func (e *entries) set(id string, ent Entry) {
	if _, ok := e.m[id]; !ok {
		e.keys = append(e.keys, id)
	}
	e.m[id] = ent
}

func (e *entries) remove(id string) bool {
	if _, ok := e.m[id]; !ok {
		return false
	}
	delete(e.m, id)
	for i, k := range e.keys {
		if k == id {
			e.keys = append(e.keys[:i], e.keys[i+1:]...)
			break
		}
	}
	return true
}

// ids returns the product ids in insertion order.
func (e *entries) ids() []string {
	out := make([]string, len(e.keys))
	copy(out, e.keys)
	return out
}

// values returns the entries in insertion order.
func (e *entries) values() []Entry {
	out := make([]Entry, 0, len(e.keys))
	for _, k := range e.keys {
		out = append(out, e.m[k])
	}
	return out
}

func (e *entries) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, k := range e.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		ent, err := json.Marshal(e.m[k])
		if err != nil {
			return nil, err
		}
		buf.Write(ent)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the object through the token stream so key order
// survives the round-trip, and validates each entry on the way in: a
// quantity that is not an integer or a price that does not parse as a
// decimal fails the whole payload, which Open treats as corrupt.
func (e *entries) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("cart payload: expected object, got %v", tok)
	}

	e.keys = nil
	e.m = map[string]Entry{}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		id, ok := tok.(string)
		if !ok {
			return fmt.Errorf("cart payload: non-string key %v", tok)
		}

		var ent Entry
		if err := dec.Decode(&ent); err != nil {
			return err
		}
		if _, err := decimal.NewFromString(ent.Price); err != nil {
			return fmt.Errorf("cart payload: bad price %q for product %s", ent.Price, id)
		}

		e.set(id, ent)
	}

	// closing brace
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
