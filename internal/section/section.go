// Package section tracks which page section is currently in view and
// handles in-page navigation requests.
package section

import (
	"errors"
	"fmt"
)

// ID names a scroll-addressable region of the page.
type ID string

const (
	Home     ID = "home"
	About    ID = "about"
	Projects ID = "projects"
	Skills   ID = "skills"
	Contact  ID = "contact"
)

// DefaultIDs lists the page sections in document order.
var DefaultIDs = []ID{Home, About, Projects, Skills, Contact}

// Valid reports whether id is one of the known page sections.
func (id ID) Valid() bool {
	for _, known := range DefaultIDs {
		if id == known {
			return true
		}
	}
	return false
}

// Entry is a single visibility observation for one section.
type Entry struct {
	ID           ID      `json:"id"`
	Intersecting bool    `json:"intersecting"`
	Ratio        float64 `json:"ratio"`
}

// Band is the horizontal slice of the viewport a section has to enter to
// become active. Margins are fractions of the viewport height trimmed from
// the top and the bottom.
type Band struct {
	TopMargin    float64 `koanf:"top" json:"top"`
	BottomMargin float64 `koanf:"bottom" json:"bottom"`
	Threshold    float64 `koanf:"threshold" json:"threshold"`
}

// DefaultBand places the band somewhat above page centre so a section turns
// active slightly before its top reaches the top of the viewport.
func DefaultBand() Band {
	return Band{TopMargin: 0.20, BottomMargin: 0.35, Threshold: 0}
}

// Validate checks that the band leaves a non-empty slice of the viewport.
func (b Band) Validate() error {
	if b.TopMargin < 0 || b.BottomMargin < 0 {
		return fmt.Errorf("band margins must be non-negative")
	}
	if b.TopMargin+b.BottomMargin >= 1 {
		return fmt.Errorf("band margins %.2f+%.2f leave no visible slice", b.TopMargin, b.BottomMargin)
	}
	if b.Threshold < 0 || b.Threshold > 1 {
		return fmt.Errorf("band threshold %.2f out of range [0,1]", b.Threshold)
	}
	return nil
}

// Watcher reports visibility changes for a set of regions.
// fn receives batches of entries; stop ends the observation.
type Watcher interface {
	Watch(ids []ID, band Band, fn func([]Entry)) (stop func(), err error)
}

// Page scrolls the viewport to a region.
type Page interface {
	Has(id ID) bool
	ScrollIntoView(id ID) error
}

var (
	ErrNoSections = errors.New("section: no sections to observe")
	ErrNoWatcher  = errors.New("section: no visibility watcher configured")
	ErrDisposed   = errors.New("section: tracker disposed")
	ErrNoRegion   = errors.New("section: no region for id")
)
