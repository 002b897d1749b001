package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/a11yoracle/internal/console"
	"github.com/roach88/a11yoracle/internal/notify"
)

var sampleTrace = []notify.Record{
	notify.UpdateSimple(16, 3, 'c', 7),
	notify.CaretVisible(17, 3),
	notify.StartApplication(1001, 0),
	notify.UpdateRegion(0, 0, 119, 9000),
	notify.CaretVisible(16, 7),
	notify.EndApplication(1001, 0),
}

func TestAssertTraceContains(t *testing.T) {
	assert.NoError(t, assertTraceContains(sampleTrace, Assertion{Kind: "StartApplication"}))
	assert.NoError(t, assertTraceContains(sampleTrace, Assertion{Kind: "UpdateRegion", Params: []int{0, 0, 119}}))
	assert.NoError(t, assertTraceContains(sampleTrace, Assertion{Kind: "caretvisible", Params: []int{16, 7}}))

	err := assertTraceContains(sampleTrace, Assertion{Kind: "CaretVisible", Params: []int{99}})
	require.Error(t, err)

	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AssertTraceContains, ae.Type)
	assert.Contains(t, ae.Expected, "CaretVisible with params [99]")
	assert.Contains(t, err.Error(), "Captured trace:")
}

func TestAssertTraceOrder(t *testing.T) {
	assert.NoError(t, assertTraceOrder(sampleTrace, Assertion{Kinds: []string{"UpdateSimple", "StartApplication", "EndApplication"}}))
	assert.NoError(t, assertTraceOrder(sampleTrace, Assertion{Kinds: []string{"CaretVisible", "CaretVisible"}}))

	err := assertTraceOrder(sampleTrace, Assertion{Kinds: []string{"EndApplication", "StartApplication"}})
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "no StartApplication after EndApplication", ae.Actual)

	err = assertTraceOrder(sampleTrace, Assertion{Kinds: []string{"Layout"}})
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "missing Layout", ae.Actual)
}

func TestAssertTraceCount(t *testing.T) {
	assert.NoError(t, assertTraceCount(sampleTrace, Assertion{Kind: "CaretVisible", Count: 2}))
	assert.NoError(t, assertTraceCount(sampleTrace, Assertion{Kind: "Layout", Count: 0}))

	err := assertTraceCount(sampleTrace, Assertion{Kind: "CaretVisible", Count: 3})
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "2 occurrences", ae.Actual)
}

func TestAssertFinalState(t *testing.T) {
	final := console.Snapshot{Cursor: console.Coord{X: 16, Y: 9}, Attributes: 7}
	attr := 7
	other := 0x1F

	assert.NoError(t, assertFinalState(final, Assertion{Cursor: []int{16, 9}, Attributes: &attr}))

	err := assertFinalState(final, Assertion{Cursor: []int{0, 0}})
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AssertFinalState, ae.Type)

	err = assertFinalState(final, Assertion{Attributes: &other})
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "attributes 0x1f", ae.Expected)
	assert.NotContains(t, err.Error(), "Captured trace:")
}

func TestCheckAssertion_UnknownType(t *testing.T) {
	err := checkAssertion(Assertion{Type: "vibes"}, nil, console.Snapshot{})
	assert.ErrorContains(t, err, "unknown assertion type")
}
