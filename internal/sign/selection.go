package sign

import "math"

// MinSelectionDim is the minimum committed selection edge in screen
// pixels. Drags ending below it are discarded.
const MinSelectionDim = 4.0

// TrackerState enumerates the selection tracker states.
type TrackerState int

const (
	StateIdle TrackerState = iota
	StateDragging
	StateCommitted
)

func (s TrackerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDragging:
		return "dragging"
	case StateCommitted:
		return "committed"
	default:
		return "unknown"
	}
}

// Selection is a committed screen-space selection bound to one page.
type Selection struct {
	PageIndex int        `json:"pageIndex"`
	Rect      ScreenRect `json:"rect"`
}

// Tracker is the drag-selection state machine:
//
//	Idle -> Dragging -> Committed -> Idle
//
// A new drag or an Invalidate resets to Idle. At most one selection
// exists at a time. Not safe for concurrent use; the Service serializes
// all access.
type Tracker struct {
	state     TrackerState
	pageIndex int
	start     ScreenPoint
	rect      ScreenRect
}

// NewTracker returns a tracker in the Idle state.
func NewTracker() *Tracker {
	return &Tracker{state: StateIdle}
}

// State returns the current tracker state.
func (t *Tracker) State() TrackerState {
	return t.state
}

// BeginDrag starts a new drag on the given page, discarding any prior
// selection. Valid from any state.
func (t *Tracker) BeginDrag(p ScreenPoint, pageIndex int) {
	t.state = StateDragging
	t.pageIndex = pageIndex
	t.start = p
	t.rect = ScreenRect{X: p.X, Y: p.Y}
}

// UpdateDrag recomputes the in-progress rectangle as the axis-aligned
// bounding box of the drag start and the current point. A no-op outside
// the Dragging state.
func (t *Tracker) UpdateDrag(p ScreenPoint) ScreenRect {
	if t.state != StateDragging {
		return t.rect
	}
	t.rect = ScreenRect{
		X:      math.Min(t.start.X, p.X),
		Y:      math.Min(t.start.Y, p.Y),
		Width:  math.Abs(p.X - t.start.X),
		Height: math.Abs(p.Y - t.start.Y),
	}
	return t.rect
}

// EndDrag commits the in-progress rectangle if both edges reach
// MinSelectionDim; otherwise the selection is discarded and the second
// return value is false (the cancellation signal to the caller).
func (t *Tracker) EndDrag() (ScreenRect, bool) {
	if t.state != StateDragging {
		return ScreenRect{}, false
	}
	if t.rect.Width < MinSelectionDim || t.rect.Height < MinSelectionDim {
		t.state = StateIdle
		t.rect = ScreenRect{}
		return ScreenRect{}, false
	}
	t.state = StateCommitted
	return t.rect, true
}

// Committed returns the committed selection, if any.
func (t *Tracker) Committed() (Selection, bool) {
	if t.state != StateCommitted {
		return Selection{}, false
	}
	return Selection{PageIndex: t.pageIndex, Rect: t.rect}, true
}

// Invalidate resets the tracker to Idle. Called on page navigation and
// on every new document load.
func (t *Tracker) Invalidate() {
	t.state = StateIdle
	t.rect = ScreenRect{}
}
