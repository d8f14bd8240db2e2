package highlight

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Palette is the fixed set of colors a highlight may use.
var Palette = []string{"yellow", "green", "blue", "pink"}

// ValidColor reports whether color belongs to the palette.
func ValidColor(color string) bool {
	for _, c := range Palette {
		if c == color {
			return true
		}
	}
	return false
}

// Span is one persisted highlight over a passage's text content. Offsets are
// rune positions within the section's passage text. Spans are scoped to
// (testID, sectionID) and never shared across sections.
type Span struct {
	ID        string    `json:"id"`
	TestID    uint      `json:"test_id"`
	SectionID uint      `json:"section_id"`
	Start     int       `json:"start"`
	End       int       `json:"end"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

// Selection is a committed pointer selection inside a tracked passage.
type Selection struct {
	TestID    uint
	SectionID uint
	Start     int
	End       int
}

// Rect is the bounding rectangle of a selection or span, in viewport
// coordinates reported by the client.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Point anchors the floating toolbar.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type ToolbarState int

const (
	ToolbarHidden ToolbarState = iota
	ToolbarAddPending
	ToolbarRemovePending
)

const toolbarGap = 8

type scope struct {
	testID    uint
	sectionID uint
}

// Engine maintains highlight spans over read-only passage text and mediates
// the floating toolbar. Spans live in memory for the lifetime of the view;
// they are deliberately not persisted across a session teardown, so a
// remounted session starts with none.
type Engine struct {
	mu       sync.Mutex
	passages map[scope]int // tracked passage text length, in runes
	spans    map[scope][]Span

	state           ToolbarState
	pendingSel      Selection
	pendingSpanID   string
	toolbarPosition Point
}

func NewEngine() *Engine {
	return &Engine{
		passages: make(map[scope]int),
		spans:    make(map[scope][]Span),
	}
}

// TrackPassage registers a passage container the engine accepts selections
// for. Selections outside any tracked passage are ignored.
func (e *Engine) TrackPassage(testID, sectionID uint, textLength int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.passages[scope{testID, sectionID}] = textLength
}

// CommitSelection enters AddPending for a non-empty selection inside a
// tracked passage. Collapsed selections and selections outside the tracked
// container leave the toolbar state untouched.
func (e *Engine) CommitSelection(sel Selection, rect Rect) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	length, tracked := e.passages[scope{sel.TestID, sel.SectionID}]
	if !tracked {
		return false
	}
	if sel.Start >= sel.End || sel.Start < 0 || sel.End > length {
		return false
	}

	e.state = ToolbarAddPending
	e.pendingSel = sel
	e.pendingSpanID = ""
	e.toolbarPosition = toolbarAnchor(rect)
	return true
}

// ActivateSpan enters RemovePending for an existing highlight, anchoring the
// single remove affordance at that span.
func (e *Engine) ActivateSpan(id string, rect Rect) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	sp, ok := e.findLocked(id)
	if !ok {
		return false
	}
	e.state = ToolbarRemovePending
	e.pendingSpanID = sp.ID
	e.toolbarPosition = toolbarAnchor(rect)
	return true
}

// AddHighlight persists a new span anchored to the pending selection. Spans
// that overlap existing ones coexist; the last-added renders on top, which
// avoids span-splitting entirely.
func (e *Engine) AddHighlight(color string) (Span, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != ToolbarAddPending || !ValidColor(color) {
		return Span{}, false
	}

	sel := e.pendingSel
	sp := Span{
		ID:        uuid.NewString(),
		TestID:    sel.TestID,
		SectionID: sel.SectionID,
		Start:     sel.Start,
		End:       sel.End,
		Color:     color,
		CreatedAt: time.Now(),
	}
	key := scope{sel.TestID, sel.SectionID}
	e.spans[key] = append(e.spans[key], sp)
	e.resetLocked()
	return sp, true
}

// RemoveHighlight deletes the span by id. Any pending add is cancelled.
func (e *Engine) RemoveHighlight(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for key, spans := range e.spans {
		for i, sp := range spans {
			if sp.ID == id {
				e.spans[key] = append(spans[:i], spans[i+1:]...)
				e.resetLocked()
				return true
			}
		}
	}
	e.resetLocked()
	return false
}

// ClearAll deletes every span scoped to (testID, sectionID). Other sections'
// spans are untouched.
func (e *Engine) ClearAll(testID, sectionID uint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.spans, scope{testID, sectionID})
	e.resetLocked()
}

// Dismiss returns the toolbar to Hidden without touching any span.
func (e *Engine) Dismiss() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
}

// Spans returns the section's spans in creation order.
func (e *Engine) Spans(testID, sectionID uint) []Span {
	e.mu.Lock()
	defer e.mu.Unlock()
	spans := e.spans[scope{testID, sectionID}]
	out := make([]Span, len(spans))
	copy(out, spans)
	return out
}

func (e *Engine) State() ToolbarState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// PendingSpanID returns the highlight awaiting removal, if any.
func (e *Engine) PendingSpanID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pendingSpanID
}

func (e *Engine) ToolbarPosition() Point {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.toolbarPosition
}

func (e *Engine) findLocked(id string) (Span, bool) {
	for _, spans := range e.spans {
		for _, sp := range spans {
			if sp.ID == id {
				return sp, true
			}
		}
	}
	return Span{}, false
}

func (e *Engine) resetLocked() {
	e.state = ToolbarHidden
	e.pendingSel = Selection{}
	e.pendingSpanID = ""
	e.toolbarPosition = Point{}
}

// toolbarAnchor centers the toolbar above the selection rectangle, falling
// back to below it when the rectangle touches the top of the viewport.
func toolbarAnchor(rect Rect) Point {
	x := rect.Left + rect.Width/2
	y := rect.Top - toolbarGap
	if y < 0 {
		y = rect.Top + rect.Height + toolbarGap
	}
	return Point{X: x, Y: y}
}
