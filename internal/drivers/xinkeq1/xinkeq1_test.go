package xinkeq1

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXinkeQ1RequiresAddrAndPort(t *testing.T) {
	_, err := New(1, json.RawMessage(`{}`))
	assert.Error(t, err)

	_, err = New(1, json.RawMessage(`{"addr":"192.168.1.10"}`))
	assert.Error(t, err)
}

func TestXinkeQ1ConstructsWithValidConfig(t *testing.T) {
	d, err := New(1, json.RawMessage(`{"addr":"192.168.1.10","port":5000}`))
	require.NoError(t, err)
	assert.Equal(t, "xinkeQ1", d.Name())

	raw, err := d.GetStatus()
	require.NoError(t, err)
	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &status))
	assert.Equal(t, "192.168.1.10", status["addr"])
}
