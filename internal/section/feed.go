package section

import (
	"fmt"
	"sync"
)

// Feed is a Watcher and Page driven from outside, typically by a browser
// reporting IntersectionObserver entries over a socket. The band is applied
// by the reporter; Feed only routes entries and scroll requests.
type Feed struct {
	mu      sync.Mutex
	regions map[ID]bool
	watches map[int]feedWatch
	nextID  int
	scroll  func(ID) error
}

type feedWatch struct {
	ids map[ID]bool
	fn  func([]Entry)
}

func NewFeed() *Feed {
	return &Feed{
		regions: make(map[ID]bool),
		watches: make(map[int]feedWatch),
	}
}

func (f *Feed) Watch(ids []ID, band Band, fn func([]Entry)) (func(), error) {
	if len(ids) == 0 {
		return nil, ErrNoSections
	}
	want := make(map[ID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.watches[id] = feedWatch{ids: want, fn: fn}
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.watches, id)
			f.mu.Unlock()
		})
	}, nil
}

// Register records regions that exist on the page.
func (f *Feed) Register(ids ...ID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		f.regions[id] = true
	}
}

// Reset forgets every region, as when the page reloads.
func (f *Feed) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regions = make(map[ID]bool)
}

// OnScroll installs the function that performs scrolling. Passing nil
// detaches it; scroll requests then fail.
func (f *Feed) OnScroll(fn func(ID) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scroll = fn
}

// Report routes a batch to every watcher interested in its entries.
func (f *Feed) Report(entries []Entry) {
	f.mu.Lock()
	type pending struct {
		fn    func([]Entry)
		batch []Entry
	}
	out := make([]pending, 0, len(f.watches))
	for _, w := range f.watches {
		var batch []Entry
		for _, e := range entries {
			if w.ids[e.ID] {
				batch = append(batch, e)
			}
		}
		if len(batch) > 0 {
			out = append(out, pending{fn: w.fn, batch: batch})
		}
	}
	f.mu.Unlock()

	for _, p := range out {
		p.fn(p.batch)
	}
}

func (f *Feed) Has(id ID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.regions[id]
}

func (f *Feed) ScrollIntoView(id ID) error {
	f.mu.Lock()
	ok := f.regions[id]
	scroll := f.scroll
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoRegion, id)
	}
	if scroll == nil {
		return fmt.Errorf("section: no scroller attached")
	}
	return scroll(id)
}
