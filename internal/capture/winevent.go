package capture

import "github.com/roach88/a11yoracle/internal/notify"

// Console WinEvent identifiers.
const (
	EventConsoleCaret            uint32 = 0x4001
	EventConsoleUpdateRegion     uint32 = 0x4002
	EventConsoleUpdateSimple     uint32 = 0x4003
	EventConsoleUpdateScroll     uint32 = 0x4004
	EventConsoleLayout           uint32 = 0x4005
	EventConsoleStartApplication uint32 = 0x4006
	EventConsoleEndApplication   uint32 = 0x4007

	EventConsoleMin = EventConsoleCaret
	EventConsoleMax = EventConsoleEndApplication
)

// Caret flags carried in idObject of EVENT_CONSOLE_CARET.
const (
	CaretSelection int32 = 0x0001
	CaretVisible   int32 = 0x0002
)

// loword and hiword split a MAKELONG-packed value into signed shorts.
func loword(v int32) int { return int(int16(uint32(v) & 0xffff)) }
func hiword(v int32) int { return int(int16(uint32(v) >> 16)) }

// uloword and uhiword split a MAKELONG-packed value into unsigned words.
func uloword(v int32) int { return int(uint16(uint32(v) & 0xffff)) }
func uhiword(v int32) int { return int(uint16(uint32(v) >> 16)) }

// Decode translates one raw console WinEvent into a callback.
//
// Coordinates are packed as MAKELONG(x, y). UpdateSimple packs
// MAKELONG(char, attr) in idChild, both unsigned. A caret event with
// neither flag set, or an event outside the console range, is not reported
// and Decode returns false.
func Decode(event uint32, idObject, idChild int32, cb notify.Callbacks) bool {
	switch event {
	case EventConsoleCaret:
		x, y := loword(idChild), hiword(idChild)
		switch {
		case idObject&CaretSelection != 0:
			cb.CaretSelection(x, y)
		case idObject&CaretVisible != 0:
			cb.CaretVisible(x, y)
		default:
			return false
		}
	case EventConsoleUpdateRegion:
		cb.UpdateRegion(loword(idObject), hiword(idObject), loword(idChild), hiword(idChild))
	case EventConsoleUpdateSimple:
		cb.UpdateSimple(loword(idObject), hiword(idObject), uloword(idChild), uhiword(idChild))
	case EventConsoleUpdateScroll:
		cb.UpdateScroll(int(idObject), int(idChild))
	case EventConsoleLayout:
		cb.Layout()
	case EventConsoleStartApplication:
		cb.StartApplication(int(idObject), int(idChild))
	case EventConsoleEndApplication:
		cb.EndApplication(int(idObject), int(idChild))
	default:
		return false
	}
	return true
}

// makelong packs two words the way the host does. Used by simulators and
// tests that need raw event arguments.
func makelong(lo, hi int) int32 {
	return int32(uint32(uint16(lo)) | uint32(uint16(hi))<<16)
}

// Encode is the inverse of Decode for a record. It returns the raw event
// and arguments the host would deliver for r. Unknown kinds return ok=false.
func Encode(r notify.Record) (event uint32, idObject, idChild int32, ok bool) {
	p := r.Params()
	switch r.Kind() {
	case notify.KindCaretSelection:
		return EventConsoleCaret, CaretSelection, makelong(p[0], p[1]), true
	case notify.KindCaretVisible:
		return EventConsoleCaret, CaretVisible, makelong(p[0], p[1]), true
	case notify.KindUpdateRegion:
		return EventConsoleUpdateRegion, makelong(p[0], p[1]), makelong(p[2], p[3]), true
	case notify.KindUpdateSimple:
		return EventConsoleUpdateSimple, makelong(p[0], p[1]), makelong(p[2], p[3]), true
	case notify.KindUpdateScroll:
		return EventConsoleUpdateScroll, int32(p[0]), int32(p[1]), true
	case notify.KindLayout:
		return EventConsoleLayout, 0, 0, true
	case notify.KindStartApplication:
		return EventConsoleStartApplication, int32(r.ProcessID()), int32(r.ChildID()), true
	case notify.KindEndApplication:
		return EventConsoleEndApplication, int32(r.ProcessID()), int32(r.ChildID()), true
	default:
		return 0, 0, 0, false
	}
}
