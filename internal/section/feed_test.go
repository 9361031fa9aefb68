package section_test

import (
	"errors"
	"testing"

	"github.com/OxMxDev/portfolio/internal/section"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedRoutesReportsToTracker(t *testing.T) {
	feed := section.NewFeed()
	tr := section.NewTracker(feed, feed, section.DefaultBand())
	sub, err := tr.Observe([]section.ID{section.Home, section.About})
	require.NoError(t, err)
	defer sub.Dispose()

	feed.Report([]section.Entry{
		{ID: section.Home, Intersecting: false},
		{ID: section.About, Intersecting: true, Ratio: 0.4},
	})
	assert.Equal(t, section.About, tr.Active())
}

func TestFeedFiltersByWatchedIDs(t *testing.T) {
	feed := section.NewFeed()
	var got []section.Entry
	stop, err := feed.Watch([]section.ID{section.Skills}, section.DefaultBand(), func(b []section.Entry) {
		got = append(got, b...)
	})
	require.NoError(t, err)
	defer stop()

	feed.Report([]section.Entry{
		{ID: section.Home, Intersecting: true, Ratio: 1},
		{ID: section.Skills, Intersecting: true, Ratio: 0.2},
	})
	assert.Equal(t, []section.Entry{{ID: section.Skills, Intersecting: true, Ratio: 0.2}}, got)
}

func TestFeedScroll(t *testing.T) {
	feed := section.NewFeed()
	tr := section.NewTracker(feed, feed, section.DefaultBand())

	// unregistered region: no-op
	assert.False(t, tr.ScrollToSection(section.Projects))

	feed.Register(section.DefaultIDs...)
	// registered, but nothing attached to perform the scroll
	assert.False(t, tr.ScrollToSection(section.Projects))

	var scrolled []section.ID
	feed.OnScroll(func(id section.ID) error {
		scrolled = append(scrolled, id)
		return nil
	})
	assert.True(t, tr.ScrollToSection(section.Projects))
	assert.Equal(t, []section.ID{section.Projects}, scrolled)
	assert.Equal(t, section.Projects, tr.Active())

	feed.OnScroll(func(section.ID) error { return errors.New("socket closed") })
	assert.False(t, tr.ScrollToSection(section.Skills))
	assert.Equal(t, section.Projects, tr.Active())

	feed.Reset()
	assert.False(t, feed.Has(section.Home))
}
