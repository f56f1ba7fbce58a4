// Package cart implements the session-backed shopping cart: which products
// a visitor wants, in what quantity, at the unit price seen when each
// product was first added. The cart lives under one key in the visitor's
// session and is rebuilt from it on every request.
package cart

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"

	"MiniShop/internal/catalog"
	"MiniShop/internal/session"
)

// DefaultSessionKey is the session slot the cart lives under when the
// deployment does not configure its own.
const DefaultSessionKey = "cart"

type Cart struct {
	sess  *session.Session
	key   string
	items *entries
}

// Open attaches a Cart to the given session. A missing, empty, or
// malformed slot is replaced by an empty cart and written back
// immediately, so every visitor's session materializes a cart slot on
// first contact. A malformed payload is treated as corrupt, not fatal:
// the cart is a convenience cache, not a system of record.
func Open(sess *session.Session, key string) *Cart {
	if key == "" {
		key = DefaultSessionKey
	}

	c := &Cart{sess: sess, key: key, items: newEntries()}

	if raw, ok := sess.Get(key); ok {
		if err := json.Unmarshal(raw, c.items); err == nil && c.items.len() > 0 {
			return c
		}
		c.items = newEntries()
	}

	c.save()
	return c
}

// productKey normalizes a catalog primary key to the string form the
// session payload requires. This is the only place the conversion lives.
func productKey(p catalog.Product) string {
	return strconv.FormatInt(p.ID, 10)
}

// Add puts quantity units of p in the cart, or accumulates onto an
// existing line; with override the stored quantity is replaced outright.
// The line's unit price is captured from p on first add and never touched
// again while the entry exists. Quantity is not range-checked: a negative
// delta is the "remove N units" workflow and may drive the stored quantity
// below zero.
func (c *Cart) Add(p catalog.Product, quantity int, override bool) {
	id := productKey(p)

	e, ok := c.items.get(id)
	if !ok {
		e = Entry{Quantity: 0, Price: p.Price.String()}
	}

	if override {
		e.Quantity = quantity
	} else {
		e.Quantity += quantity
	}

	c.items.set(id, e)
	c.save()
}

// Remove drops p's line from the cart. Removing a product that has no
// line is a silent no-op and does not touch the session.
func (c *Cart) Remove(p catalog.Product) {
	if c.items.remove(productKey(p)) {
		c.save()
	}
}

// Clear deletes the whole cart slot from the session. The next Open on
// the same session starts from scratch.
func (c *Cart) Clear() {
	c.items = newEntries()
	c.sess.Delete(c.key)
}

// Count is the number of units across all lines. No catalog involved.
func (c *Cart) Count() int {
	n := 0
	for _, ent := range c.items.values() {
		n += ent.Quantity
	}
	return n
}

// TotalPrice is Σ unit-price × quantity over all lines, in exact decimal
// arithmetic. No catalog involved: only captured prices count.
func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, ent := range c.items.values() {
		price, err := decimal.NewFromString(ent.Price)
		if err != nil {
			// every entry passed decimal validation in Open or was written
			// by Add; a bad price here cannot happen
			continue
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(ent.Quantity))))
	}
	return total
}

// Item is one cart line joined with its live catalog record, for display.
type Item struct {
	ProductID  string          `json:"product_id"`
	Product    catalog.Product `json:"product"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// Items resolves the cart against the catalog in one batched lookup and
// returns the enriched lines in first-insertion order, whatever order the
// catalog answered in. Lines whose product the catalog no longer knows are
// left out of the view; they stay in the persisted cart untouched.
func (c *Cart) Items(ctx context.Context, store catalog.Store) ([]Item, error) {
	keys := c.items.ids()
	if len(keys) == 0 {
		return []Item{}, nil
	}

	ids := make([]int64, 0, len(keys))
	for _, k := range keys {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}

	products, err := store.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]catalog.Product, len(products))
	for _, p := range products {
		byKey[productKey(p)] = p
	}

	items := make([]Item, 0, len(keys))
	for _, k := range keys {
		p, ok := byKey[k]
		if !ok {
			continue
		}

		ent, _ := c.items.get(k)
		price, err := decimal.NewFromString(ent.Price)
		if err != nil {
			continue
		}

		items = append(items, Item{
			ProductID:  k,
			Product:    p,
			Quantity:   ent.Quantity,
			Price:      price,
			TotalPrice: price.Mul(decimal.NewFromInt(int64(ent.Quantity))),
		})
	}

	return items, nil
}

// save hands the whole mapping to the session's write path. Session.Set
// marks the session modified itself, so a mutation can never forget the
// signal.
func (c *Cart) save() {
	// entries marshaling cannot fail; Set only errors on marshal
	_ = c.sess.Set(c.key, c.items)
}
