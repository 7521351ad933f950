package console

import "unicode/utf8"

// EventKind separates key presses from input the tracker does not understand.
type EventKind int

const (
	// KindKey is a decoded key press.
	KindKey EventKind = iota
	// KindOther covers escape sequences (arrows, function keys, mouse reports)
	// and stray control bytes. Consumers ignore it.
	KindOther
)

// Code identifies the key of a KindKey event.
type Code int

const (
	CodeRune Code = iota
	CodeEsc
	CodeEnter
	CodeCtrlC
)

// Event is a single console input event.
type Event struct {
	Kind EventKind
	Code Code
	Rune rune
}

// KeyRune builds the event for a printable key.
func KeyRune(r rune) Event { return Event{Kind: KindKey, Code: CodeRune, Rune: r} }

// KeyCode builds the event for a non-printable key.
func KeyCode(c Code) Event { return Event{Kind: KindKey, Code: c} }

// Decode splits one read from the terminal into events.
// A lone ESC byte is the Escape key; ESC followed by more bytes in the same
// read is an escape sequence and decodes to a single KindOther event.
func Decode(buf []byte) []Event {
	var events []Event
	for i := 0; i < len(buf); {
		b := buf[i]
		switch {
		case b == 0x1b:
			if i == len(buf)-1 {
				events = append(events, KeyCode(CodeEsc))
				i++
				continue
			}
			i += escapeLen(buf[i:])
			events = append(events, Event{Kind: KindOther})
		case b == 0x03:
			events = append(events, KeyCode(CodeCtrlC))
			i++
		case b == '\r' || b == '\n':
			events = append(events, KeyCode(CodeEnter))
			i++
		case b < 0x20 || b == 0x7f:
			events = append(events, Event{Kind: KindOther})
			i++
		default:
			r, size := utf8.DecodeRune(buf[i:])
			if r == utf8.RuneError {
				events = append(events, Event{Kind: KindOther})
			} else {
				events = append(events, KeyRune(r))
			}
			i += size
		}
	}
	return events
}

// escapeLen returns the length of the escape sequence at the start of seq,
// which begins with ESC and has at least one more byte.
func escapeLen(seq []byte) int {
	if seq[1] != '[' && seq[1] != 'O' {
		// Alt+key
		return 2
	}
	for j := 2; j < len(seq); j++ {
		if seq[j] >= 0x40 && seq[j] <= 0x7e {
			return j + 1
		}
	}
	return len(seq)
}
