// Package session keeps the per-visitor page state: the contact workflow
// shared by every open tab, and one section view per connected tab.
package session

import (
	"errors"
	"sync"

	"github.com/OxMxDev/portfolio/internal/contact"
	"github.com/OxMxDev/portfolio/internal/section"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

var ErrClosed = errors.New("session: closed")

// Session is one visitor's page state. Nothing in it outlives the process.
type Session struct {
	ID      string
	Contact *contact.Workflow

	band section.Band

	mu     sync.Mutex
	views  map[*View]struct{}
	closed bool
}

// View is the section state of one open page: a feed driven by that page
// and the tracker reading it. Views of the same session never share a
// scroller.
type View struct {
	Feed    *section.Feed
	Tracker *section.Tracker

	owner *Session
	once  sync.Once
}

// OpenView starts section tracking for a newly connected page.
func (s *Session) OpenView() (*View, error) {
	feed := section.NewFeed()
	v := &View{
		Feed:    feed,
		Tracker: section.NewTracker(feed, feed, s.band),
		owner:   s,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	s.views[v] = struct{}{}
	return v, nil
}

// Close disposes the view's subscriptions and detaches its scroller.
func (v *View) Close() {
	v.once.Do(func() {
		v.Feed.OnScroll(nil)
		v.Tracker.Close()

		v.owner.mu.Lock()
		delete(v.owner.views, v)
		v.owner.mu.Unlock()
	})
}

// Views returns the number of open views.
func (s *Session) Views() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.views)
}

// Close closes every view and cancels pending contact resets.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	views := make([]*View, 0, len(s.views))
	for v := range s.views {
		views = append(views, v)
	}
	s.mu.Unlock()

	for _, v := range views {
		v.Close()
	}
	s.Contact.Close()
}

// Factory builds the state of a new session.
type Factory struct {
	Sender  contact.Sender
	Options contact.Options
	Band    section.Band
}

func (f Factory) build(id string) *Session {
	return &Session{
		ID:      id,
		Contact: contact.New(f.Sender, f.Options),
		band:    f.Band,
		views:   make(map[*View]struct{}),
	}
}

// Store is a bounded set of live sessions. The least recently used session
// is closed when the store is full.
type Store struct {
	factory Factory

	mu    sync.Mutex
	cache *lru.Cache[string, *Session]
}

func NewStore(size int, factory Factory) (*Store, error) {
	cache, err := lru.NewWithEvict[string, *Session](size, func(_ string, s *Session) {
		s.Close()
	})
	if err != nil {
		return nil, err
	}
	return &Store{factory: factory, cache: cache}, nil
}

// Get returns the live session with id.
func (s *Store) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	return s.cache.Get(id)
}

// Acquire returns the session for id, creating a fresh one under a new id
// when id is unknown. created reports whether a new session was made.
func (s *Store) Acquire(id string) (sess *Session, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.Get(id); ok {
		return sess, false
	}
	sess = s.factory.build(uuid.NewString())
	s.cache.Add(sess.ID, sess)
	return sess, true
}

func (s *Store) Len() int {
	return s.cache.Len()
}

// Close closes every session.
func (s *Store) Close() {
	s.cache.Purge()
}
