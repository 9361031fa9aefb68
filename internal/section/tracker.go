package section

import (
	"sync"
)

// State is the read-only view of the tracker handed to consumers.
type State struct {
	Active   ID   `json:"active"`
	MenuOpen bool `json:"menu_open"`
}

// Tracker owns the active section id. Visibility batches from the Watcher
// and explicit ScrollToSection calls are the only writers.
type Tracker struct {
	watcher Watcher
	page    Page
	band    Band

	mu        sync.Mutex
	state     State
	seen      map[ID]Entry
	order     map[ID]int
	listeners map[int]func(State)
	nextID    int
	subs      map[*Subscription]struct{}
	closed    bool
}

// NewTracker builds a tracker fed by w and scrolling through p. Either may
// be nil: without a watcher Observe fails, without a page every scroll
// request is a no-op.
func NewTracker(w Watcher, p Page, band Band) *Tracker {
	return &Tracker{
		watcher:   w,
		page:      p,
		band:      band,
		seen:      make(map[ID]Entry),
		order:     make(map[ID]int),
		listeners: make(map[int]func(State)),
		subs:      make(map[*Subscription]struct{}),
	}
}

// Active returns the currently active section.
func (t *Tracker) Active() ID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Active
}

// State returns a snapshot of the tracker.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Subscribe registers fn to be called after every state change. The returned
// function unregisters it and is safe to call more than once.
func (t *Tracker) Subscribe(fn func(State)) (cancel func()) {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.listeners[id] = fn
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.listeners, id)
			t.mu.Unlock()
		})
	}
}

// Observe starts watching ids and returns a fresh subscription. The first
// id becomes active if nothing is active yet.
func (t *Tracker) Observe(ids []ID) (*Subscription, error) {
	if len(ids) == 0 {
		return nil, ErrNoSections
	}
	if t.watcher == nil {
		return nil, ErrNoWatcher
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrDisposed
	}
	for _, id := range ids {
		if _, ok := t.order[id]; !ok {
			t.order[id] = len(t.order)
		}
	}
	if t.state.Active == "" {
		t.state.Active = ids[0]
	}
	sub := &Subscription{
		tracker: t,
		ch:      make(chan ID, 1),
	}
	t.subs[sub] = struct{}{}
	t.mu.Unlock()

	stop, err := t.watcher.Watch(ids, t.band, func(batch []Entry) {
		if sub.isDisposed() {
			return
		}
		t.apply(batch)
	})
	if err != nil {
		sub.Dispose()
		return nil, err
	}
	sub.setStop(stop)
	return sub, nil
}

// ScrollToSection scrolls the page to id and makes it active right away,
// closing the mobile menu. It returns false, changing nothing, when the page
// has no region for id.
func (t *Tracker) ScrollToSection(id ID) bool {
	if t.page == nil || !t.page.Has(id) {
		return false
	}
	if err := t.page.ScrollIntoView(id); err != nil {
		return false
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return false
	}
	prev := t.state
	t.state.Active = id
	t.state.MenuOpen = false
	next := t.state
	t.mu.Unlock()

	if next != prev {
		t.notify(prev, next)
	}
	return true
}

// SetMenuOpen opens or closes the mobile navigation menu.
func (t *Tracker) SetMenuOpen(open bool) {
	t.mu.Lock()
	if t.closed || t.state.MenuOpen == open {
		t.mu.Unlock()
		return
	}
	prev := t.state
	t.state.MenuOpen = open
	next := t.state
	t.mu.Unlock()
	t.notify(prev, next)
}

// ToggleMenu flips the mobile navigation menu.
func (t *Tracker) ToggleMenu() {
	t.SetMenuOpen(!t.State().MenuOpen)
}

// Close disposes every subscription and drops all listeners.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	subs := make([]*Subscription, 0, len(t.subs))
	for s := range t.subs {
		subs = append(subs, s)
	}
	t.listeners = make(map[int]func(State))
	t.mu.Unlock()

	for _, s := range subs {
		s.Dispose()
	}
}

func (t *Tracker) apply(batch []Entry) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	for _, e := range batch {
		if _, ok := t.order[e.ID]; !ok {
			continue
		}
		t.seen[e.ID] = e
	}
	prev := t.state
	if best, ok := t.pickLocked(); ok {
		t.state.Active = best
	}
	next := t.state
	t.mu.Unlock()

	if next != prev {
		t.notify(prev, next)
	}
}

// pickLocked chooses the intersecting section with the greatest ratio at or
// above the band threshold. Ties go to the section registered first.
func (t *Tracker) pickLocked() (ID, bool) {
	var (
		best      ID
		bestRatio float64
		bestOrder int
		found     bool
	)
	for id, e := range t.seen {
		if !e.Intersecting || e.Ratio < t.band.Threshold {
			continue
		}
		order := t.order[id]
		if !found || e.Ratio > bestRatio || (e.Ratio == bestRatio && order < bestOrder) {
			best, bestRatio, bestOrder, found = id, e.Ratio, order, true
		}
	}
	return best, found
}

func (t *Tracker) notify(prev, next State) {
	t.mu.Lock()
	fns := make([]func(State), 0, len(t.listeners))
	for _, fn := range t.listeners {
		fns = append(fns, fn)
	}
	subs := make([]*Subscription, 0, len(t.subs))
	if prev.Active != next.Active {
		for s := range t.subs {
			subs = append(subs, s)
		}
	}
	t.mu.Unlock()

	for _, s := range subs {
		s.deliver(next.Active)
	}
	for _, fn := range fns {
		fn(next)
	}
}

func (t *Tracker) removeSub(s *Subscription) {
	t.mu.Lock()
	delete(t.subs, s)
	t.mu.Unlock()
}

// Subscription is a live observation started by Observe.
type Subscription struct {
	tracker *Tracker

	mu       sync.Mutex
	ch       chan ID
	stop     func()
	disposed bool
}

// C yields active-section changes. Only the latest pending change is kept,
// so a slow reader never sees a stale id after a newer one. The channel is
// closed by Dispose.
func (s *Subscription) C() <-chan ID {
	return s.ch
}

// Dispose stops observation and releases the callbacks. Safe to call more
// than once.
func (s *Subscription) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	stop := s.stop
	s.stop = nil
	close(s.ch)
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	s.tracker.removeSub(s)
}

func (s *Subscription) isDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

func (s *Subscription) setStop(stop func()) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		if stop != nil {
			stop()
		}
		return
	}
	s.stop = stop
	s.mu.Unlock()
}

func (s *Subscription) deliver(id ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	select {
	case <-s.ch:
	default:
	}
	s.ch <- id
}
