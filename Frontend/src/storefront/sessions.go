package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/vanillapodconfections/storefront/Backend/src/cart"
	"github.com/vanillapodconfections/storefront/Backend/src/checkout"
)

const saveTimeout = 3 * time.Second

// Session is one browser's cart and checkout.
type Session struct {
	ID       string
	Cart     *cart.Store
	Checkout *checkout.Submitter
}

// SubmitterFactory builds the checkout for a freshly opened session.
type SubmitterFactory func(sessionID string, c *cart.Store) *checkout.Submitter

// Sessions keeps the most recently used sessions in memory. With a
// repository, every cart change is saved and evicted or restarted sessions
// are restored on their next request. A session evicted while its checkout
// is processing stays in memory until that submission finishes, so a second
// submission cannot start alongside it.
type Sessions struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *Session]
	busy  map[string]*Session
	repo  cart.Repository
	newCk SubmitterFactory
	log   zerolog.Logger
}

// NewSessions returns a registry holding up to capacity sessions. repo may
// be nil for memory-only carts.
func NewSessions(capacity int, repo cart.Repository, newCk SubmitterFactory, log zerolog.Logger) (*Sessions, error) {
	if capacity <= 0 {
		capacity = 1024
	}
	s := &Sessions{busy: make(map[string]*Session), repo: repo, newCk: newCk, log: log}
	// Evictions only happen in cache.Add, which runs with mu held.
	cache, err := lru.NewWithEvict(capacity, func(id string, sess *Session) {
		if sess.Checkout.Status().Kind() == checkout.KindProcessing {
			s.busy[id] = sess
			s.log.Debug().Str("session", id).Msg("sessions: evicted while processing, kept")
			return
		}
		s.log.Debug().Str("session", id).Msg("sessions: evicted")
	})
	if err != nil {
		return nil, err
	}
	s.cache = cache
	return s, nil
}

// Open returns the session for id, restoring it from the repository when it
// is not in memory. An empty or malformed id starts a new session.
func (s *Sessions) Open(ctx context.Context, id string) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.cache.Get(id); ok {
		return sess, nil
	}
	if sess, ok := s.busy[id]; ok {
		delete(s.busy, id)
		s.pruneBusyLocked()
		s.cache.Add(id, sess)
		return sess, nil
	}
	s.pruneBusyLocked()

	var items []cart.LineItem
	if s.repo != nil {
		var err error
		items, err = s.repo.Load(ctx, id)
		if err != nil && !errors.Is(err, cart.ErrNotFound) {
			return nil, err
		}
	}

	store := cart.NewStore(cart.WithItems(items))
	if s.repo != nil {
		store.Subscribe(s.persist(id))
	}
	sess := &Session{ID: id, Cart: store, Checkout: s.newCk(id, store)}
	s.cache.Add(id, sess)
	s.log.Debug().Str("session", id).Int("lines", len(items)).Msg("sessions: opened")
	return sess, nil
}

// Len is the number of sessions held in memory.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len() + len(s.busy)
}

// pruneBusyLocked drops kept sessions whose submission has finished.
func (s *Sessions) pruneBusyLocked() {
	for id, sess := range s.busy {
		if sess.Checkout.Status().Kind() != checkout.KindProcessing {
			delete(s.busy, id)
		}
	}
}

func (s *Sessions) persist(id string) cart.Observer {
	return func(snap cart.Snapshot) {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := s.repo.Save(ctx, id, snap.Items); err != nil {
			s.log.Error().Err(err).Str("session", id).Msg("sessions: save cart")
		}
	}
}
