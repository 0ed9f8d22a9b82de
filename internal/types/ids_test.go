package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	id := NewID()

	require.NoError(t, id.Validate())
	assert.False(t, id.IsZero())
	assert.NotEqual(t, id, NewID())
}

func TestParseID(t *testing.T) {
	valid := NewID().String()

	id, err := ParseID(valid)
	require.NoError(t, err)
	assert.Equal(t, valid, id.String())

	_, err = ParseID("")
	assert.Error(t, err)

	_, err = ParseID("not-a-uuid")
	assert.Error(t, err)
}

func TestID_JSONRoundTrip(t *testing.T) {
	id := NewID()

	data, err := json.Marshal(id)
	require.NoError(t, err)

	var decoded ID
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, id, decoded)
}

func TestID_UnmarshalJSON_Invalid(t *testing.T) {
	var id ID
	assert.Error(t, json.Unmarshal([]byte(`"bogus"`), &id))

	require.NoError(t, json.Unmarshal([]byte(`""`), &id))
	assert.True(t, id.IsZero())
}
