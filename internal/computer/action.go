// Copyright 2025 Tomas Cupr
//
// Action grammar for desktop automation requests

package computer

import "fmt"

// Action identifies one of the fixed desktop operations the dispatcher
// knows how to translate into cliclick/screencapture invocations.
type Action string

const (
	ActionKey            Action = "key"
	ActionType           Action = "type"
	ActionMouseMove      Action = "mouse_move"
	ActionLeftClick      Action = "left_click"
	ActionLeftClickDrag  Action = "left_click_drag"
	ActionRightClick     Action = "right_click"
	ActionMiddleClick    Action = "middle_click"
	ActionDoubleClick    Action = "double_click"
	ActionTripleClick    Action = "triple_click"
	ActionScreenshot     Action = "screenshot"
	ActionCursorPosition Action = "cursor_position"
	ActionScroll         Action = "scroll"
	ActionLeftMouseDown  Action = "left_mouse_down"
	ActionLeftMouseUp    Action = "left_mouse_up"
	ActionHoldKey        Action = "hold_key"
	ActionWait           Action = "wait"
)

// clickArgs maps the click-family actions to the cliclick argument that
// performs them at the current cursor position.
var clickArgs = map[Action]string{
	ActionLeftClick:     "c:.",
	ActionRightClick:    "rc:.",
	ActionMiddleClick:   "mc:.",
	ActionDoubleClick:   "dc:.",
	ActionTripleClick:   "tc:.",
	ActionLeftMouseDown: "md:.",
	ActionLeftMouseUp:   "mu:.",
}

// Request is a single automation request, constructed per call and
// discarded after Execute returns. Optional parameters use pointers (or a
// nil slice for Coordinate) so that "absent" and "zero" are distinguishable
// when enforcing the action grammar.
type Request struct {
	Action     Action
	Text       *string
	Coordinate []int

	// Scroll parameters; meaningful only for ActionScroll.
	ScrollDirection string
	ScrollAmount    *int

	// Duration in seconds; meaningful only for ActionWait.
	Duration *float64
}

// validate enforces the per-action parameter grammar. It never invokes an
// external process; a violation is an InvalidArgument status.
func (r *Request) validate() error {
	switch r.Action {
	case ActionMouseMove, ActionLeftClickDrag, ActionScroll:
		if r.Coordinate == nil {
			return invalidArgf("coordinate", "coordinate is required for %s", r.Action)
		}
		if r.Text != nil {
			return invalidArgf("text", "text is not accepted for %s", r.Action)
		}
		return validateCoordinate(r.Coordinate)

	case ActionKey, ActionType, ActionHoldKey:
		if r.Text == nil {
			return invalidArgf("text", "text is required for %s", r.Action)
		}
		if r.Coordinate != nil {
			return invalidArgf("coordinate", "coordinate is not accepted for %s", r.Action)
		}
		return nil

	case ActionLeftClick, ActionRightClick, ActionMiddleClick,
		ActionDoubleClick, ActionTripleClick,
		ActionLeftMouseDown, ActionLeftMouseUp,
		ActionScreenshot, ActionCursorPosition, ActionWait:
		if r.Text != nil {
			return invalidArgf("text", "text is not accepted for %s", r.Action)
		}
		if r.Coordinate != nil {
			return invalidArgf("coordinate", "coordinate is not accepted for %s", r.Action)
		}
		if r.Action == ActionWait && r.Duration != nil && *r.Duration < 0 {
			return invalidArgf("duration", "duration must be a non-negative number")
		}
		return nil

	default:
		return invalidArgf("action", "invalid action: %s", r.Action)
	}
}

// validateCoordinate checks the coordinate shape: exactly two non-negative
// integers. Range checking against the virtual resolution happens later in
// the scaler.
func validateCoordinate(coord []int) error {
	if len(coord) != 2 {
		return invalidArgf("coordinate", "%v must be a pair of length 2", coord)
	}
	for _, v := range coord {
		if v < 0 {
			return invalidArgf("coordinate", "%v must be a pair of non-negative ints", coord)
		}
	}
	return nil
}

func (r *Request) String() string {
	return fmt.Sprintf("%s text=%v coordinate=%v", r.Action, r.Text != nil, r.Coordinate)
}
