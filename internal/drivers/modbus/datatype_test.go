package modbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDataType(t *testing.T) {
	cases := map[string]dataType{
		"uint16":    typeUInt16,
		"int16":     typeInt16,
		"uint32":    typeUInt32,
		"int32":     typeInt32,
		"uint32le":  typeUInt32LE,
		"int32le":   typeInt32LE,
		"float32":   typeFloat32,
		"float32le": typeFloat32LE,
		"float64":   typeFloat64,
		"bool":      typeBool,
		"Float32":   typeFloat32,
	}
	for in, want := range cases {
		got, err := parseDataType(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := parseDataType("nonsense")
	assert.Error(t, err)
}

func TestRegisterCount(t *testing.T) {
	assert.Equal(t, uint16(1), registerCount(typeUInt16))
	assert.Equal(t, uint16(1), registerCount(typeInt16))
	assert.Equal(t, uint16(2), registerCount(typeUInt32))
	assert.Equal(t, uint16(2), registerCount(typeFloat32))
	assert.Equal(t, uint16(4), registerCount(typeFloat64))
	assert.Equal(t, uint16(1), registerCount(typeBool))
}

func TestUInt32RoundTrip(t *testing.T) {
	regs, err := valueToRegisters(0x1234ABCD, typeUInt32)
	require.NoError(t, err)
	require.Len(t, regs, 2)
	assert.Equal(t, uint16(0x1234), regs[0])
	assert.Equal(t, uint16(0xABCD), regs[1])

	value, err := registersToValue(regs, typeUInt32)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x1234ABCD), value)
}

func TestUInt32LERoundTrip(t *testing.T) {
	regs, err := valueToRegisters(0x1234ABCD, typeUInt32LE)
	require.NoError(t, err)
	assert.Equal(t, uint16(0xABCD), regs[0])
	assert.Equal(t, uint16(0x1234), regs[1])

	value, err := registersToValue(regs, typeUInt32LE)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x1234ABCD), value)
}

func TestFloat32RoundTrip(t *testing.T) {
	regs, err := valueToRegisters(3.5, typeFloat32)
	require.NoError(t, err)
	value, err := registersToValue(regs, typeFloat32)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, float64(value.(float32)), 0.0001)
}

func TestFloat64RoundTrip(t *testing.T) {
	regs, err := valueToRegisters(3.14159265, typeFloat64)
	require.NoError(t, err)
	require.Len(t, regs, 4)
	value, err := registersToValue(regs, typeFloat64)
	require.NoError(t, err)
	assert.InDelta(t, 3.14159265, value.(float64), 1e-9)
}

func TestInt16NegativeRoundTrip(t *testing.T) {
	regs, err := valueToRegisters(-5, typeInt16)
	require.NoError(t, err)
	value, err := registersToValue(regs, typeInt16)
	require.NoError(t, err)
	assert.Equal(t, int16(-5), value)
}

func TestValueOutOfRange(t *testing.T) {
	_, err := valueToRegisters(70000, typeUInt16)
	assert.Error(t, err)
}

func TestEncodeDecodeRegisters(t *testing.T) {
	words := []uint16{1, 2, 3}
	raw := encodeRegisters(words)
	assert.Equal(t, words, decodeRegisters(raw))
}

func TestEncodeDecodeBits(t *testing.T) {
	bits := []bool{true, false, true, true, false, false, false, false, true}
	raw := encodeBits(bits)
	assert.Equal(t, bits, decodeBits(raw, uint16(len(bits))))
}
