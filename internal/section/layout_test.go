package section_test

import (
	"testing"

	"github.com/OxMxDev/portfolio/internal/section"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pageLayout() *section.Layout {
	return section.NewLayout(1000, section.StackRegions(map[section.ID]float64{
		section.Home:     1000,
		section.About:    800,
		section.Projects: 1200,
		section.Skills:   600,
		section.Contact:  900,
	}, section.DefaultIDs)...)
}

func TestStackRegions(t *testing.T) {
	regions := section.StackRegions(map[section.ID]float64{
		section.Home:   100,
		section.Skills: 50,
	}, section.DefaultIDs)

	assert.Equal(t, []section.Region{
		{ID: section.Home, Top: 0, Height: 100},
		{ID: section.Skills, Top: 100, Height: 50},
	}, regions)
}

func TestLayoutInitialBatch(t *testing.T) {
	l := pageLayout()
	var batches [][]section.Entry
	stop, err := l.Watch(section.DefaultIDs, section.DefaultBand(), func(b []section.Entry) {
		batches = append(batches, b)
	})
	require.NoError(t, err)
	defer stop()

	require.Len(t, batches, 1)
	require.Len(t, batches[0], len(section.DefaultIDs))
	home := batches[0][0]
	assert.True(t, home.Intersecting)
	// band is 200..650 of a 1000px home section
	assert.InDelta(t, 0.45, home.Ratio, 1e-9)
	assert.False(t, batches[0][1].Intersecting)
}

func TestLayoutOnlySendsChanges(t *testing.T) {
	l := pageLayout()
	var batches [][]section.Entry
	stop, err := l.Watch(section.DefaultIDs, section.DefaultBand(), func(b []section.Entry) {
		batches = append(batches, b)
	})
	require.NoError(t, err)
	defer stop()

	l.ScrollTo(0)
	assert.Len(t, batches, 1)

	l.ScrollTo(500)
	require.Len(t, batches, 2)
	ids := make([]section.ID, 0, len(batches[1]))
	for _, e := range batches[1] {
		ids = append(ids, e.ID)
	}
	assert.ElementsMatch(t, []section.ID{section.Home, section.About}, ids)
}

func TestLayoutStopEndsDelivery(t *testing.T) {
	l := pageLayout()
	calls := 0
	stop, err := l.Watch(section.DefaultIDs, section.DefaultBand(), func([]section.Entry) { calls++ })
	require.NoError(t, err)

	stop()
	stop()
	l.ScrollTo(2000)
	assert.Equal(t, 1, calls)
}

func TestLayoutRejectsBadBand(t *testing.T) {
	l := pageLayout()
	_, err := l.Watch(section.DefaultIDs, section.Band{TopMargin: 0.6, BottomMargin: 0.5}, func([]section.Entry) {})
	assert.Error(t, err)
}

func TestTrackerFollowsScrolling(t *testing.T) {
	l := pageLayout()
	tr := section.NewTracker(l, l, section.DefaultBand())
	sub, err := tr.Observe(section.DefaultIDs)
	require.NoError(t, err)
	defer sub.Dispose()

	assert.Equal(t, section.Home, tr.Active())

	l.ScrollTo(1000)
	assert.Equal(t, section.About, tr.Active())

	l.ScrollTo(3000)
	assert.Equal(t, section.Skills, tr.Active())

	// top of the viewport still inside projects, but skills fills the band
	l.ScrollTo(2850)
	assert.Equal(t, section.Skills, tr.Active())
}
