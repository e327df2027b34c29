package hspowersequencer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFramePrependsHeader(t *testing.T) {
	frame := buildFrame([]byte{0x01, 0x02})
	assert.Equal(t, []byte{0x5B, 0xB5, 0x01, 0x02}, frame)
}

func TestToBCD(t *testing.T) {
	assert.Equal(t, byte(0x26), toBCD(26))
	assert.Equal(t, byte(0x00), toBCD(0))
	assert.Equal(t, byte(0x59), toBCD(59))
}

func TestValidateChannel(t *testing.T) {
	assert.NoError(t, validateChannel(1))
	assert.NoError(t, validateChannel(12))
	assert.Error(t, validateChannel(0))
	assert.Error(t, validateChannel(13))
}

func TestEvaluateControlResponseSuccess(t *testing.T) {
	ok, err := evaluateControlResponse([]byte{0x01, respSuccess}, 0x01)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateControlResponseFail(t *testing.T) {
	ok, err := evaluateControlResponse([]byte{0x01, respFail}, 0x01)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateControlResponseInvalid(t *testing.T) {
	_, err := evaluateControlResponse([]byte{0x02, 0x00}, 0x01)
	assert.Error(t, err)
}

func TestOnOffDelayAddressTables(t *testing.T) {
	assert.Equal(t, uint16(0x4010), onDelayAddr[1])
	assert.Equal(t, uint16(0x4056), onDelayAddr[12])
	assert.Equal(t, uint16(0x4020), offDelayAddr[1])
	assert.Equal(t, uint16(0x4066), offDelayAddr[12])
}

func TestNewRequiresPortName(t *testing.T) {
	_, err := New(1, []byte(`{}`))
	assert.Error(t, err)
}

func TestNewDefaultsBaudRateAndAddress(t *testing.T) {
	d, err := New(1, []byte(`{"port_name":"/dev/ttyUSB0"}`))
	require.NoError(t, err)
	nd := d.(*Driver)
	assert.Equal(t, defaultBaudRate, nd.baudRate)
	assert.Equal(t, byte(1), nd.deviceAddress)
}
