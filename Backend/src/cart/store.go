// Package cart holds the shopping cart of one browser session.
//
// A Store is the single owner of its line items. Every read and write goes
// through its methods, which serialize on a mutex, so concurrent handlers
// for the same session never lose an update. Observers are told about each
// committed mutation in commit order.
package cart

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Observer receives the cart state after a mutation. Observers run outside
// the store lock but must not mutate the store they observe.
type Observer func(Snapshot)

type Store struct {
	mu    sync.Mutex
	items []LineItem

	// notifyMu is taken before mu is released so observers see snapshots in
	// the order mutations committed.
	notifyMu  sync.Mutex
	observers map[int]Observer
	nextObs   int
}

type Option func(*Store)

// WithItems seeds the store, e.g. from a persisted snapshot. Rows with a
// non-positive quantity are dropped and duplicate ids are merged.
func WithItems(items []LineItem) Option {
	return func(s *Store) {
		for _, it := range items {
			if it.ID == "" || it.Quantity < 1 {
				continue
			}
			if i := s.indexLocked(it.ID); i >= 0 {
				s.items[i].Quantity += it.Quantity
				continue
			}
			s.items = append(s.items, it)
		}
	}
}

// WithObserver registers an observer at construction time.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.addObserver(o) }
}

func NewStore(opts ...Option) *Store {
	s := &Store{observers: make(map[int]Observer)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add puts quantity units of p into the cart. A product already in the cart
// keeps its row and position; its quantity grows. Quantities below 1 count
// as 1.
func (s *Store) Add(p Product, quantity int) {
	if quantity < 1 {
		quantity = 1
	}
	s.mu.Lock()
	if i := s.indexLocked(p.ID); i >= 0 {
		s.items[i].Quantity += quantity
	} else {
		s.items = append(s.items, newLineItem(p, quantity))
	}
	s.commitLocked()
}

// UpdateQuantity sets the quantity of line id. A quantity <= 0 removes the
// line. It reports whether the line existed.
func (s *Store) UpdateQuantity(id string, quantity int) bool {
	if quantity <= 0 {
		return s.Remove(id)
	}
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.items[i].Quantity = quantity
	s.commitLocked()
	return true
}

// Remove deletes line id if present and reports whether it was.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.commitLocked()
	return true
}

// Clear empties the cart. Clearing an empty cart is fine.
func (s *Store) Clear() {
	s.mu.Lock()
	s.items = nil
	s.commitLocked()
}

// Subtract takes the quantities in lines out of the cart, as after those
// lines were ordered. Rows added or grown since are kept; rows already gone
// are skipped. Subtracting always commits, even when nothing matched.
func (s *Store) Subtract(lines []LineItem) {
	s.mu.Lock()
	for _, li := range lines {
		i := s.indexLocked(li.ID)
		if i < 0 {
			continue
		}
		if s.items[i].Quantity <= li.Quantity {
			s.items = append(s.items[:i], s.items[i+1:]...)
			continue
		}
		s.items[i].Quantity -= li.Quantity
	}
	s.commitLocked()
}

// Items returns a copy of the line items in insertion order.
func (s *Store) Items() []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

// ItemCount is the sum of quantities, not the number of rows.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return countOf(s.items)
}

// Total is the sum of unit price × quantity, unrounded.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalOf(s.items)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers o and returns a func that removes it.
func (s *Store) Subscribe(o Observer) (unsubscribe func()) {
	s.mu.Lock()
	id := s.addObserver(o)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

func (s *Store) addObserver(o Observer) int {
	id := s.nextObs
	s.nextObs++
	s.observers[id] = o
	return id
}

// commitLocked releases mu and notifies observers. Callers hold mu.
func (s *Store) commitLocked() {
	snap := s.snapshotLocked()
	obs := make([]Observer, 0, len(s.observers))
	for i := 0; i < s.nextObs; i++ {
		if o, ok := s.observers[i]; ok {
			obs = append(obs, o)
		}
	}
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()
	for _, o := range obs {
		o(snap)
	}
}

func (s *Store) indexLocked(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) copyLocked() []LineItem {
	out := make([]LineItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Items: s.copyLocked(),
		Count: countOf(s.items),
		Total: totalOf(s.items),
	}
}

func countOf(items []LineItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

func totalOf(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}
