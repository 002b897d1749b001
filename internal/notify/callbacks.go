package notify

// Callbacks receives console accessibility notifications, one method per
// event kind. Parameter lists match the host's notification feed exactly.
//
// Implementations are invoked on the delivery context of whoever feeds them
// (an OS hook thread, a simulator goroutine) and must not block.
type Callbacks interface {
	CaretSelection(x, y int)
	CaretVisible(x, y int)
	EndApplication(processID, childID int)
	Layout()
	StartApplication(processID, childID int)
	UpdateRegion(left, top, right, bottom int)
	UpdateScroll(dx, dy int)
	UpdateSimple(x, y, char, attr int)
}

// Dispatch invokes the Callbacks method matching r's kind.
// Returns false if the kind is not one of the eight known kinds.
func Dispatch(cb Callbacks, r Record) bool {
	p := r.params
	switch r.kind {
	case KindCaretSelection:
		cb.CaretSelection(p[0], p[1])
	case KindCaretVisible:
		cb.CaretVisible(p[0], p[1])
	case KindEndApplication:
		cb.EndApplication(r.processID, r.childID)
	case KindLayout:
		cb.Layout()
	case KindStartApplication:
		cb.StartApplication(r.processID, r.childID)
	case KindUpdateRegion:
		cb.UpdateRegion(p[0], p[1], p[2], p[3])
	case KindUpdateScroll:
		cb.UpdateScroll(p[0], p[1])
	case KindUpdateSimple:
		cb.UpdateSimple(p[0], p[1], p[2], p[3])
	default:
		return false
	}
	return true
}

// SinkFunc adapts a record consumer to the Callbacks interface. Each
// callback invocation becomes exactly one call to f.
type SinkFunc func(Record)

// CaretSelection implements Callbacks.
func (f SinkFunc) CaretSelection(x, y int) { f(CaretSelection(x, y)) }

// CaretVisible implements Callbacks.
func (f SinkFunc) CaretVisible(x, y int) { f(CaretVisible(x, y)) }

// EndApplication implements Callbacks.
func (f SinkFunc) EndApplication(processID, childID int) {
	f(EndApplication(processID, childID))
}

// Layout implements Callbacks.
func (f SinkFunc) Layout() { f(Layout()) }

// StartApplication implements Callbacks.
func (f SinkFunc) StartApplication(processID, childID int) {
	f(StartApplication(processID, childID))
}

// UpdateRegion implements Callbacks.
func (f SinkFunc) UpdateRegion(left, top, right, bottom int) {
	f(UpdateRegion(left, top, right, bottom))
}

// UpdateScroll implements Callbacks.
func (f SinkFunc) UpdateScroll(dx, dy int) { f(UpdateScroll(dx, dy)) }

// UpdateSimple implements Callbacks.
func (f SinkFunc) UpdateSimple(x, y, char, attr int) {
	f(UpdateSimple(x, y, char, attr))
}
