package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKey(t *testing.T) {
	k, err := ParseKey("Enter")
	require.NoError(t, err)
	assert.Equal(t, KeyEnter, k)
	assert.Equal(t, "enter", k.String())

	_, err = ParseKey("hyper")
	assert.Error(t, err)
	assert.Equal(t, "Key(0)", Key(0).String())
}
