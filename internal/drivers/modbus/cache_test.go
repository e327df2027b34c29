package modbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestDriver() *Driver {
	return &Driver{cache: make(map[cacheKey]cacheEntry)}
}

func TestStoreAndReadWordsFromCache(t *testing.T) {
	d := newTestDriver()
	d.storeWords(sourceHolding, 10, []uint16{0x1234, 0xABCD})

	words, ok := d.readWordsFromCache(sourceHolding, 10, 2)
	assert.True(t, ok)
	assert.Equal(t, []uint16{0x1234, 0xABCD}, words)
}

func TestReadWordsFromCacheMissFallsThrough(t *testing.T) {
	d := newTestDriver()
	d.storeWords(sourceHolding, 10, []uint16{0x1234})

	_, ok := d.readWordsFromCache(sourceHolding, 10, 2)
	assert.False(t, ok, "partial coverage must report a cache miss")
}

func TestHoldingAndInputCachesAreIndependent(t *testing.T) {
	d := newTestDriver()
	d.storeWords(sourceHolding, 0, []uint16{1})
	d.storeWords(sourceInput, 0, []uint16{2})

	holding, ok := d.readWordsFromCache(sourceHolding, 0, 1)
	assert.True(t, ok)
	assert.Equal(t, []uint16{1}, holding)

	input, ok := d.readWordsFromCache(sourceInput, 0, 1)
	assert.True(t, ok)
	assert.Equal(t, []uint16{2}, input)
}

func TestStoreAndReadBitFromCache(t *testing.T) {
	d := newTestDriver()
	d.storeBits(sourceCoil, 3, []bool{true})

	bit, ok := d.readBitFromCache(sourceCoil, 3)
	assert.True(t, ok)
	assert.True(t, bit)

	_, ok = d.readBitFromCache(sourceCoil, 4)
	assert.False(t, ok)
}

func TestReadTypedFromCacheStitchesMultiRegisterValue(t *testing.T) {
	d := newTestDriver()
	regs, _ := valueToRegisters(12345, typeUInt32)
	d.storeWords(sourceHolding, 100, regs)

	value, ok := d.readTypedFromCache(typeUInt32, 100)
	assert.True(t, ok)
	assert.Equal(t, uint32(12345), value)
}

func TestReadTypedFromCacheBool(t *testing.T) {
	d := newTestDriver()
	d.storeBits(sourceCoil, 5, []bool{true})

	value, ok := d.readTypedFromCache(typeBool, 5)
	assert.True(t, ok)
	assert.Equal(t, true, value)
}
