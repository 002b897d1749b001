package notify

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind identifies one of the eight console accessibility events.
type Kind int

const (
	// KindCaretSelection reports the caret position while a selection is active.
	KindCaretSelection Kind = iota + 1
	// KindCaretVisible reports the caret position after it moved.
	KindCaretVisible
	// KindEndApplication reports that a console application detached.
	KindEndApplication
	// KindLayout reports a layout change of the console window.
	KindLayout
	// KindStartApplication reports that a console application attached.
	KindStartApplication
	// KindUpdateRegion reports a repainted rectangle.
	KindUpdateRegion
	// KindUpdateScroll reports a scroll of the buffer.
	KindUpdateScroll
	// KindUpdateSimple reports a single character written at a cell.
	KindUpdateSimple
)

var kindNames = map[Kind]string{
	KindCaretSelection:   "CaretSelection",
	KindCaretVisible:     "CaretVisible",
	KindEndApplication:   "EndApplication",
	KindLayout:           "Layout",
	KindStartApplication: "StartApplication",
	KindUpdateRegion:     "UpdateRegion",
	KindUpdateScroll:     "UpdateScroll",
	KindUpdateSimple:     "UpdateSimple",
}

// Kinds lists every kind in declaration order.
var Kinds = []Kind{
	KindCaretSelection,
	KindCaretVisible,
	KindEndApplication,
	KindLayout,
	KindStartApplication,
	KindUpdateRegion,
	KindUpdateScroll,
	KindUpdateSimple,
}

// String returns the stable name of the kind, e.g. "UpdateSimple".
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Valid reports whether k is one of the eight known kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind resolves a kind by name. Matching is case-insensitive.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if strings.EqualFold(n, name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown notification kind %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid notification kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Record is one accessibility notification.
// The zero Record is not valid; use the constructors.
type Record struct {
	kind   Kind
	params [4]int

	// Volatile identifiers for Start/EndApplication. Not part of Equal.
	processID int
	childID   int
}

// New builds a record of the given kind. Missing params are zero and extra
// params are ignored.
func New(kind Kind, params ...int) Record {
	r := Record{kind: kind}
	for i := 0; i < len(params) && i < len(r.params); i++ {
		r.params[i] = params[i]
	}
	return r
}

// CaretSelection builds a caret-selection record.
func CaretSelection(x, y int) Record {
	return New(KindCaretSelection, x, y)
}

// CaretVisible builds a caret-visible record.
func CaretVisible(x, y int) Record {
	return New(KindCaretVisible, x, y)
}

// EndApplication builds an end-application record. The identifiers are
// carried for diagnostics only.
func EndApplication(processID, childID int) Record {
	return Record{kind: KindEndApplication, processID: processID, childID: childID}
}

// Layout builds a layout record.
func Layout() Record {
	return New(KindLayout)
}

// StartApplication builds a start-application record. The identifiers are
// carried for diagnostics only.
func StartApplication(processID, childID int) Record {
	return Record{kind: KindStartApplication, processID: processID, childID: childID}
}

// UpdateRegion builds a region-repaint record. Bounds are inclusive.
func UpdateRegion(left, top, right, bottom int) Record {
	return New(KindUpdateRegion, left, top, right, bottom)
}

// UpdateScroll builds a scroll record.
func UpdateScroll(dx, dy int) Record {
	return New(KindUpdateScroll, dx, dy)
}

// UpdateSimple builds a single-cell write record.
func UpdateSimple(x, y, char, attr int) Record {
	return New(KindUpdateSimple, x, y, char, attr)
}

// Kind returns the record kind.
func (r Record) Kind() Kind { return r.kind }

// Params returns a copy of the four parameters.
func (r Record) Params() [4]int { return r.params }

// Param returns parameter i (0-3). Panics if i is out of range.
func (r Record) Param(i int) int { return r.params[i] }

// ProcessID returns the delivered process id for Start/EndApplication.
func (r Record) ProcessID() int { return r.processID }

// ChildID returns the delivered child id for Start/EndApplication.
func (r Record) ChildID() int { return r.childID }

// Equal reports structural equality: same kind and same four params.
// Process and child identifiers are ignored.
func (r Record) Equal(other Record) bool {
	return r.kind == other.kind && r.params == other.params
}

// String formats the record for diagnostics, e.g. "UpdateSimple(3, 4, 99, 7)".
func (r Record) String() string {
	s := fmt.Sprintf("%s(%d, %d, %d, %d)", r.kind, r.params[0], r.params[1], r.params[2], r.params[3])
	if r.processID != 0 || r.childID != 0 {
		s += fmt.Sprintf(" [pid=%d child=%d]", r.processID, r.childID)
	}
	return s
}

// recordJSON is the wire form of a Record.
type recordJSON struct {
	Kind      Kind   `json:"kind" yaml:"kind"`
	Params    [4]int `json:"params" yaml:"params"`
	ProcessID int    `json:"process_id,omitempty" yaml:"process_id,omitempty"`
	ChildID   int    `json:"child_id,omitempty" yaml:"child_id,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		Kind:      r.kind,
		Params:    r.params,
		ProcessID: r.processID,
		ChildID:   r.childID,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	// An absent "kind" never reaches UnmarshalText.
	if !raw.Kind.Valid() {
		return fmt.Errorf("record has no kind: %s", data)
	}
	*r = Record{
		kind:      raw.Kind,
		params:    raw.Params,
		processID: raw.ProcessID,
		childID:   raw.ChildID,
	}
	return nil
}

// WithIdentifiers returns a copy of r carrying the given process and child
// identifiers. Used when restoring stored records.
func (r Record) WithIdentifiers(processID, childID int) Record {
	r.processID = processID
	r.childID = childID
	return r
}
