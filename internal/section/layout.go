package section

import (
	"fmt"
	"sync"
)

// Region is the bounding box of a section along the scroll axis.
type Region struct {
	ID     ID      `json:"id"`
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// Layout simulates a viewport over a column of regions. It implements both
// Watcher and Page by computing intersections from bounding boxes instead of
// relying on a browser.
type Layout struct {
	mu       sync.Mutex
	regions  map[ID]Region
	scrollY  float64
	viewport float64
	watches  map[int]*layoutWatch
	nextID   int
}

type layoutWatch struct {
	ids  []ID
	band Band
	fn   func([]Entry)
	last map[ID]Entry
}

// NewLayout returns a layout with the given viewport height, scrolled to
// the top.
func NewLayout(viewport float64, regions ...Region) *Layout {
	l := &Layout{
		regions:  make(map[ID]Region, len(regions)),
		viewport: viewport,
		watches:  make(map[int]*layoutWatch),
	}
	for _, r := range regions {
		l.regions[r.ID] = r
	}
	return l
}

// StackRegions lays regions out one after another starting at y=0.
func StackRegions(heights map[ID]float64, order []ID) []Region {
	var (
		out []Region
		y   float64
	)
	for _, id := range order {
		h, ok := heights[id]
		if !ok {
			continue
		}
		out = append(out, Region{ID: id, Top: y, Height: h})
		y += h
	}
	return out
}

func (l *Layout) Watch(ids []ID, band Band, fn func([]Entry)) (func(), error) {
	if len(ids) == 0 {
		return nil, ErrNoSections
	}
	if err := band.Validate(); err != nil {
		return nil, fmt.Errorf("section: %w", err)
	}

	l.mu.Lock()
	id := l.nextID
	l.nextID++
	w := &layoutWatch{
		ids:  append([]ID(nil), ids...),
		band: band,
		fn:   fn,
		last: make(map[ID]Entry, len(ids)),
	}
	l.watches[id] = w
	initial := l.diffLocked(w, true)
	l.mu.Unlock()

	if len(initial) > 0 {
		fn(initial)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.watches, id)
			l.mu.Unlock()
		})
	}, nil
}

// Has reports whether a region exists for id.
func (l *Layout) Has(id ID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.regions[id]
	return ok
}

// ScrollIntoView aligns the top of the region with the top of the viewport.
func (l *Layout) ScrollIntoView(id ID) error {
	l.mu.Lock()
	r, ok := l.regions[id]
	l.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoRegion, id)
	}
	l.ScrollTo(r.Top)
	return nil
}

// ScrollTo moves the viewport and dispatches any visibility changes.
func (l *Layout) ScrollTo(y float64) {
	l.mu.Lock()
	l.scrollY = y
	l.mu.Unlock()
	l.dispatch()
}

// ScrollY returns the current scroll offset.
func (l *Layout) ScrollY() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.scrollY
}

func (l *Layout) dispatch() {
	type pending struct {
		fn    func([]Entry)
		batch []Entry
	}
	l.mu.Lock()
	var out []pending
	for _, w := range l.watches {
		if batch := l.diffLocked(w, false); len(batch) > 0 {
			out = append(out, pending{fn: w.fn, batch: batch})
		}
	}
	l.mu.Unlock()

	for _, p := range out {
		p.fn(p.batch)
	}
}

// diffLocked returns the entries that changed since the last batch sent to w.
func (l *Layout) diffLocked(w *layoutWatch, initial bool) []Entry {
	var batch []Entry
	for _, id := range w.ids {
		e := l.entryLocked(id, w.band)
		prev, ok := w.last[id]
		if !initial && ok && prev == e {
			continue
		}
		if initial {
			if _, exists := l.regions[id]; !exists {
				continue
			}
		}
		w.last[id] = e
		batch = append(batch, e)
	}
	return batch
}

func (l *Layout) entryLocked(id ID, band Band) Entry {
	r, ok := l.regions[id]
	if !ok || r.Height <= 0 {
		return Entry{ID: id}
	}
	top := l.scrollY + l.viewport*band.TopMargin
	bottom := l.scrollY + l.viewport*(1-band.BottomMargin)

	overlap := min(r.Top+r.Height, bottom) - max(r.Top, top)
	if overlap <= 0 {
		return Entry{ID: id}
	}
	return Entry{ID: id, Intersecting: true, Ratio: overlap / r.Height}
}
