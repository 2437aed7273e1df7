// Package cart holds the per-wallet selection of trait offers for one
// shopping session.  Carts are in-memory only and never persisted;
// they are created empty on first touch and cleared after a successful
// checkout.  A cart is never shared across wallets.
package cart

import (
	"sync"

	"github.com/iliyamo/nft-trait-shop/internal/model"
)

// Subscriber receives the cart's current item list after any mutation.
type Subscriber func(items []model.TraitOffer)

// Cart is an ordered set of trait offers, unique by offer id.
type Cart struct {
	mu    sync.Mutex
	items []model.TraitOffer
	subs  []Subscriber
}

// New returns an empty cart.
func New() *Cart { return &Cart{} }

// Add appends an offer unless it is already present and reports
// whether the cart changed.  Adding an existing offer is a no-op.
func (c *Cart) Add(offer model.TraitOffer) bool {
	c.mu.Lock()
	for i := range c.items {
		if c.items[i].ID == offer.ID {
			c.mu.Unlock()
			return false
		}
	}
	c.items = append(c.items, offer)
	snapshot := c.snapshotLocked()
	subs := c.subsLocked()
	c.mu.Unlock()
	notify(subs, snapshot)
	return true
}

// Remove deletes the offer with the given id and reports whether the
// cart changed.
func (c *Cart) Remove(offerID uint64) bool {
	c.mu.Lock()
	for i := range c.items {
		if c.items[i].ID == offerID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			snapshot := c.snapshotLocked()
			subs := c.subsLocked()
			c.mu.Unlock()
			notify(subs, snapshot)
			return true
		}
	}
	c.mu.Unlock()
	return false
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.mu.Lock()
	changed := len(c.items) > 0
	c.items = nil
	snapshot := c.snapshotLocked()
	subs := c.subsLocked()
	c.mu.Unlock()
	if changed {
		notify(subs, snapshot)
	}
}

// Items returns a defensive copy of the cart contents in insertion
// order.
func (c *Cart) Items() []model.TraitOffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// TotalBurnCost sums the burn cost of every item.
func (c *Cart) TotalBurnCost() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total uint32
	for i := range c.items {
		total += c.items[i].BurnCost
	}
	return total
}

// TotalSolPrice sums the lamport price of every item.
func (c *Cart) TotalSolPrice() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total uint64
	for i := range c.items {
		total += c.items[i].SolPriceLamports
	}
	return total
}

// Subscribe registers a subscriber to be notified after every
// mutation.  Subscribers are notified in subscription order with a
// snapshot of the items.
func (c *Cart) Subscribe(fn Subscriber) {
	c.mu.Lock()
	c.subs = append(c.subs, fn)
	c.mu.Unlock()
}

func (c *Cart) snapshotLocked() []model.TraitOffer {
	out := make([]model.TraitOffer, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) subsLocked() []Subscriber {
	out := make([]Subscriber, len(c.subs))
	copy(out, c.subs)
	return out
}

func notify(subs []Subscriber, items []model.TraitOffer) {
	for _, fn := range subs {
		fn(items)
	}
}

// Store hands out the cart belonging to each wallet, creating it on
// first use.
type Store struct {
	mu    sync.Mutex
	carts map[string]*Cart
}

// NewStore returns an empty cart store.
func NewStore() *Store {
	return &Store{carts: make(map[string]*Cart)}
}

// For returns the wallet's cart, creating an empty one if needed.
func (s *Store) For(wallet string) *Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[wallet]
	if !ok {
		c = New()
		s.carts[wallet] = c
	}
	return c
}

// Drop discards the wallet's cart entirely, e.g. on session end.
func (s *Store) Drop(wallet string) {
	s.mu.Lock()
	delete(s.carts, wallet)
	s.mu.Unlock()
}
