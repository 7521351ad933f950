package tracker

import "github.com/scottastone/MouseTracker/pkg/console"

// Action is what a console key asks the loop to do.
type Action int

const (
	ActionNone Action = iota
	ActionExit
	ActionPause
	ActionChangeRate
	ActionToggleStream
	ActionToggleDisplay
)

func (a Action) String() string {
	switch a {
	case ActionExit:
		return "exit"
	case ActionPause:
		return "pause"
	case ActionChangeRate:
		return "change_rate"
	case ActionToggleStream:
		return "toggle_stream"
	case ActionToggleDisplay:
		return "toggle_display"
	default:
		return "none"
	}
}

// ActionFor maps a console event to an action. Anything that is not a
// recognised key maps to ActionNone.
func ActionFor(ev console.Event) Action {
	if ev.Kind != console.KindKey {
		return ActionNone
	}
	switch ev.Code {
	case console.CodeEsc, console.CodeCtrlC:
		return ActionExit
	case console.CodeRune:
	default:
		return ActionNone
	}

	switch ev.Rune {
	case 'q':
		return ActionExit
	case 'p':
		return ActionPause
	case 's':
		return ActionChangeRate
	case 'l':
		return ActionToggleStream
	case 'd':
		return ActionToggleDisplay
	default:
		return ActionNone
	}
}
