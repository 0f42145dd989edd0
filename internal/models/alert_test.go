package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringListRoundTrip(t *testing.T) {
	list := StringList{"a1", "a2"}

	value, err := list.Value()
	require.NoError(t, err)
	assert.Equal(t, `["a1","a2"]`, value)

	var scanned StringList
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, list, scanned)
}

func TestStringListEmpty(t *testing.T) {
	var list StringList

	value, err := list.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", value)

	var scanned StringList
	require.NoError(t, scanned.Scan("[]"))
	assert.Empty(t, scanned)

	require.NoError(t, scanned.Scan(nil))
	assert.Nil(t, scanned)
}

func TestCooldownSeconds(t *testing.T) {
	assert.Equal(t, 0, FrequencyImmediate.CooldownSeconds())
	assert.Equal(t, 3600, FrequencyHourly.CooldownSeconds())
	assert.Equal(t, 86400, FrequencyDaily.CooldownSeconds())
	assert.Equal(t, 604800, FrequencyWeekly.CooldownSeconds())
	assert.Equal(t, 0, NotifyFrequency("bogus").CooldownSeconds())
}
