package screennjlgplc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCommandDevice1Open(t *testing.T) {
	cmd, err := buildCommand(1, opOpen)
	require.NoError(t, err)
	assert.Equal(t, []byte(":00100B0000100013E\r\n"), cmd)
}

func TestBuildCommandDevice1Close(t *testing.T) {
	cmd, err := buildCommand(1, opClose)
	require.NoError(t, err)
	assert.Equal(t, []byte(":00100B0000100023D\r\n"), cmd)
}

func TestBuildCommandDevice2Open(t *testing.T) {
	cmd, err := buildCommand(2, opOpen)
	require.NoError(t, err)
	assert.Equal(t, []byte(":00100B1000100013D\r\n"), cmd)
}

func TestLRCCalculation(t *testing.T) {
	lrc, err := calculateLRCFromASCII("00100B00001001")
	require.NoError(t, err)
	assert.Equal(t, byte(0x3E), lrc)
}

func TestBuildCommandInvalidDeviceID(t *testing.T) {
	_, err := buildCommand(0, opOpen)
	assert.Error(t, err)
	_, err = buildCommand(11, opOpen)
	assert.Error(t, err)
}

func TestBuildCommandInvalidOperation(t *testing.T) {
	_, err := buildCommand(1, "99")
	assert.Error(t, err)
}

func TestNewRequiresAddrAndPort(t *testing.T) {
	_, err := New(1, []byte(`{}`))
	assert.Error(t, err)

	_, err = New(1, []byte(`{"addr":"10.0.0.1"}`))
	assert.Error(t, err)
}

func TestReadUnsupported(t *testing.T) {
	d := &Driver{addr: "10.0.0.1", port: 502, timeout: defaultTimeout}
	_, err := d.Read(1)
	assert.Error(t, err)
}
