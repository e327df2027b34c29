package custom

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomDriverNoOps(t *testing.T) {
	d, err := New(1, json.RawMessage(`{"anything":"goes"}`))
	require.NoError(t, err)

	v, err := d.Read(1)
	require.NoError(t, err)
	assert.Equal(t, int32(0), v)

	assert.NoError(t, d.Write(1, 42))

	raw, err := d.Execute("whatever", json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, string(raw))

	raw, err = d.GetStatus()
	require.NoError(t, err)
	assert.JSONEq(t, `{"connected":true}`, string(raw))
}
