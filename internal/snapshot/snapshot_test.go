package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	fields := map[string]any{
		"id":    "cust_01",
		"name":  "Jane Doe",
		"email": "jane@example.com",
	}

	raw, err := Encode(fields)
	require.NoError(t, err)

	decoded, version, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, version)
	assert.Equal(t, "cust_01", decoded["id"])
	assert.Equal(t, "Jane Doe", decoded["name"])
}

func TestDecodeKeepsHistoricalVersion(t *testing.T) {
	raw := []byte(`{"v":0,"data":{"id":"x"}}`)

	decoded, version, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, 0, version)
	assert.Equal(t, "x", decoded["id"])
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, _, err := Decode([]byte(`not json`))
	assert.Error(t, err)
}
