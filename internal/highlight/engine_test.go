package highlight

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trackedEngine() *Engine {
	e := NewEngine()
	e.TrackPassage(1, 10, 500)
	e.TrackPassage(1, 11, 300)
	return e
}

func TestAddHighlightLifecycle(t *testing.T) {
	e := trackedEngine()

	ok := e.CommitSelection(Selection{TestID: 1, SectionID: 10, Start: 10, End: 25}, Rect{Left: 40, Top: 100, Width: 80, Height: 16})
	require.True(t, ok)
	assert.Equal(t, ToolbarAddPending, e.State())
	assert.Equal(t, Point{X: 80, Y: 92}, e.ToolbarPosition())

	sp, ok := e.AddHighlight("yellow")
	require.True(t, ok)
	assert.Equal(t, ToolbarHidden, e.State())
	assert.NotEmpty(t, sp.ID)
	assert.Equal(t, 10, sp.Start)
	assert.Equal(t, 25, sp.End)

	require.True(t, e.RemoveHighlight(sp.ID))
	assert.Empty(t, e.Spans(1, 10))

	// clear-all on an already-empty section is a no-op
	e.ClearAll(1, 10)
	assert.Empty(t, e.Spans(1, 10))
}

func TestCollapsedSelectionIgnored(t *testing.T) {
	e := trackedEngine()

	assert.False(t, e.CommitSelection(Selection{TestID: 1, SectionID: 10, Start: 12, End: 12}, Rect{}))
	assert.False(t, e.CommitSelection(Selection{TestID: 1, SectionID: 10, Start: 20, End: 12}, Rect{}))
	assert.Equal(t, ToolbarHidden, e.State())
}

func TestSelectionOutsideTrackedPassageIgnored(t *testing.T) {
	e := trackedEngine()

	// unknown section
	assert.False(t, e.CommitSelection(Selection{TestID: 1, SectionID: 99, Start: 0, End: 5}, Rect{}))
	// beyond passage text
	assert.False(t, e.CommitSelection(Selection{TestID: 1, SectionID: 10, Start: 490, End: 600}, Rect{}))
	assert.Equal(t, ToolbarHidden, e.State())
}

func TestAddRequiresPendingSelectionAndPaletteColor(t *testing.T) {
	e := trackedEngine()

	_, ok := e.AddHighlight("yellow")
	assert.False(t, ok, "add with no pending selection must fail")

	require.True(t, e.CommitSelection(Selection{TestID: 1, SectionID: 10, Start: 0, End: 4}, Rect{}))
	_, ok = e.AddHighlight("crimson")
	assert.False(t, ok, "off-palette color must be rejected")
	assert.Equal(t, ToolbarAddPending, e.State(), "failed add keeps the pending selection")
}

func TestOverlappingSpansCoexist(t *testing.T) {
	e := trackedEngine()

	require.True(t, e.CommitSelection(Selection{TestID: 1, SectionID: 10, Start: 10, End: 30}, Rect{}))
	first, ok := e.AddHighlight("yellow")
	require.True(t, ok)

	require.True(t, e.CommitSelection(Selection{TestID: 1, SectionID: 10, Start: 20, End: 40}, Rect{}))
	second, ok := e.AddHighlight("green")
	require.True(t, ok)

	spans := e.Spans(1, 10)
	require.Len(t, spans, 2)
	// creation order is render order: last-added on top
	assert.Equal(t, first.ID, spans[0].ID)
	assert.Equal(t, second.ID, spans[1].ID)
}

func TestRemovePendingFlow(t *testing.T) {
	e := trackedEngine()

	require.True(t, e.CommitSelection(Selection{TestID: 1, SectionID: 10, Start: 1, End: 5}, Rect{}))
	sp, _ := e.AddHighlight("blue")

	require.True(t, e.ActivateSpan(sp.ID, Rect{Left: 10, Top: 4, Width: 20, Height: 16}))
	assert.Equal(t, ToolbarRemovePending, e.State())
	assert.Equal(t, sp.ID, e.PendingSpanID())
	// rect touches the viewport top, toolbar flips below the span
	assert.Equal(t, Point{X: 20, Y: 28}, e.ToolbarPosition())

	assert.False(t, e.ActivateSpan("no-such-id", Rect{}))

	require.True(t, e.RemoveHighlight(sp.ID))
	assert.Equal(t, ToolbarHidden, e.State())
}

func TestRemoveCancelsPendingAdd(t *testing.T) {
	e := trackedEngine()

	require.True(t, e.CommitSelection(Selection{TestID: 1, SectionID: 10, Start: 1, End: 5}, Rect{}))
	sp, _ := e.AddHighlight("pink")

	// user starts a new selection, then removes an existing highlight mid-selection
	require.True(t, e.CommitSelection(Selection{TestID: 1, SectionID: 10, Start: 50, End: 60}, Rect{}))
	require.True(t, e.RemoveHighlight(sp.ID))

	assert.Equal(t, ToolbarHidden, e.State())
	_, ok := e.AddHighlight("pink")
	assert.False(t, ok, "pending add must have been cancelled")
}

func TestClearAllScopedToSection(t *testing.T) {
	e := trackedEngine()

	require.True(t, e.CommitSelection(Selection{TestID: 1, SectionID: 10, Start: 10, End: 25}, Rect{}))
	_, ok := e.AddHighlight("yellow")
	require.True(t, ok)

	require.True(t, e.CommitSelection(Selection{TestID: 1, SectionID: 11, Start: 2, End: 9}, Rect{}))
	_, ok = e.AddHighlight("green")
	require.True(t, ok)

	e.ClearAll(1, 10)

	assert.Empty(t, e.Spans(1, 10))
	assert.Len(t, e.Spans(1, 11), 1, "a different section's spans must be unaffected")
}

func TestDismissHidesToolbar(t *testing.T) {
	e := trackedEngine()
	require.True(t, e.CommitSelection(Selection{TestID: 1, SectionID: 10, Start: 1, End: 2}, Rect{}))
	e.Dismiss()
	assert.Equal(t, ToolbarHidden, e.State())
}
