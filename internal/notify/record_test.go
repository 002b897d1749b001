package notify

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindCaretSelection, "CaretSelection"},
		{KindCaretVisible, "CaretVisible"},
		{KindEndApplication, "EndApplication"},
		{KindLayout, "Layout"},
		{KindStartApplication, "StartApplication"},
		{KindUpdateRegion, "UpdateRegion"},
		{KindUpdateScroll, "UpdateScroll"},
		{KindUpdateSimple, "UpdateSimple"},
		{Kind(0), "Kind(0)"},
		{Kind(99), "Kind(99)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.String())
		})
	}
}

func TestKinds_AllValid(t *testing.T) {
	require.Len(t, Kinds, 8)
	for _, k := range Kinds {
		assert.True(t, k.Valid(), "%v should be valid", k)
	}
	assert.False(t, Kind(0).Valid())
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("updatesimple")
	require.NoError(t, err)
	assert.Equal(t, KindUpdateSimple, k)

	k, err = ParseKind("StartApplication")
	require.NoError(t, err)
	assert.Equal(t, KindStartApplication, k)

	_, err = ParseKind("Bogus")
	assert.Error(t, err)
}

func TestRecord_EqualIgnoresIdentifiers(t *testing.T) {
	a := StartApplication(100, 1)
	b := StartApplication(200, 0)

	assert.True(t, a.Equal(b), "pid/child must not affect equality")
	assert.True(t, EndApplication(5, 0).Equal(EndApplication(0, 0)))
	assert.False(t, a.Equal(EndApplication(100, 1)), "kinds differ")
}

func TestRecord_EqualComparesEveryParam(t *testing.T) {
	base := UpdateRegion(1, 2, 3, 4)

	for i := 0; i < 4; i++ {
		p := base.Params()
		p[i]++
		other := New(KindUpdateRegion, p[:]...)
		assert.False(t, base.Equal(other), "param %d change must break equality", i)
	}
	assert.True(t, base.Equal(UpdateRegion(1, 2, 3, 4)))
}

func TestRecord_Constructors(t *testing.T) {
	tests := []struct {
		name   string
		record Record
		kind   Kind
		params [4]int
	}{
		{"caret selection", CaretSelection(3, 4), KindCaretSelection, [4]int{3, 4, 0, 0}},
		{"caret visible", CaretVisible(5, 6), KindCaretVisible, [4]int{5, 6, 0, 0}},
		{"layout", Layout(), KindLayout, [4]int{}},
		{"region", UpdateRegion(0, 1, 79, 1), KindUpdateRegion, [4]int{0, 1, 79, 1}},
		{"scroll", UpdateScroll(0, -240), KindUpdateScroll, [4]int{0, -240, 0, 0}},
		{"simple", UpdateSimple(2, 3, 'c', 7), KindUpdateSimple, [4]int{2, 3, 'c', 7}},
		{"start", StartApplication(42, 1), KindStartApplication, [4]int{}},
		{"end", EndApplication(42, 0), KindEndApplication, [4]int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.record.Kind())
			assert.Equal(t, tt.params, tt.record.Params())
		})
	}
}

func TestRecord_NewIgnoresExtraParams(t *testing.T) {
	r := New(KindUpdateSimple, 1, 2, 3, 4, 5, 6)
	assert.Equal(t, [4]int{1, 2, 3, 4}, r.Params())
}

func TestRecord_String(t *testing.T) {
	assert.Equal(t, "UpdateSimple(3, 4, 99, 7)", UpdateSimple(3, 4, 99, 7).String())
	assert.Equal(t, "StartApplication(0, 0, 0, 0) [pid=12 child=1]", StartApplication(12, 1).String())
}

func TestRecord_JSON(t *testing.T) {
	in := StartApplication(77, 1)

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"StartApplication","params":[0,0,0,0],"process_id":77,"child_id":1}`, string(data))

	var out Record
	require.NoError(t, json.Unmarshal(data, &out))
	assert.True(t, in.Equal(out))
	assert.Equal(t, 77, out.ProcessID())
	assert.Equal(t, 1, out.ChildID())
}

func TestRecord_JSONRejectsUnknownKind(t *testing.T) {
	var r Record
	err := json.Unmarshal([]byte(`{"kind":"Nope","params":[0,0,0,0]}`), &r)
	assert.Error(t, err)
}

func TestRecord_JSONRejectsMissingKind(t *testing.T) {
	var r Record
	err := json.Unmarshal([]byte(`{"params":[1,2,3,4]}`), &r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no kind")
	assert.False(t, r.Kind().Valid(), "receiver left untouched")

	var recs []Record
	assert.Error(t, json.Unmarshal([]byte(`[{"kind":"Layout","params":[0,0,0,0]},{}]`), &recs))
}

func TestRecord_WithIdentifiers(t *testing.T) {
	r := EndApplication(0, 0).WithIdentifiers(9, 1)
	assert.Equal(t, 9, r.ProcessID())
	assert.Equal(t, 1, r.ChildID())
}
