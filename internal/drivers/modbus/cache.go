// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

package modbus

import "time"

func (d *Driver) storeWords(src source, startAddr uint16, words []uint16) {
	now := time.Now()
	d.cacheMu.Lock()
	defer d.cacheMu.Unlock()
	for i, w := range words {
		d.cache[cacheKey{src: src, addr: startAddr + uint16(i)}] = cacheEntry{word: w, observedAt: now}
	}
}

func (d *Driver) storeBits(src source, startAddr uint16, bits []bool) {
	now := time.Now()
	d.cacheMu.Lock()
	defer d.cacheMu.Unlock()
	for i, b := range bits {
		d.cache[cacheKey{src: src, addr: startAddr + uint16(i)}] = cacheEntry{bit: b, observedAt: now}
	}
}

// readWordsFromCache stitches n consecutive register words out of src
// starting at addr. It returns ok=false the moment any constituent
// register is missing, signaling the caller to fall back to a live
// read rather than serve a partial value.
func (d *Driver) readWordsFromCache(src source, addr uint16, n uint16) ([]uint16, bool) {
	d.cacheMu.RLock()
	defer d.cacheMu.RUnlock()

	words := make([]uint16, n)
	for i := uint16(0); i < n; i++ {
		e, ok := d.cache[cacheKey{src: src, addr: addr + i}]
		if !ok {
			return nil, false
		}
		words[i] = e.word
	}
	return words, true
}

func (d *Driver) readBitFromCache(src source, addr uint16) (bool, bool) {
	d.cacheMu.RLock()
	defer d.cacheMu.RUnlock()
	e, ok := d.cache[cacheKey{src: src, addr: addr}]
	return e.bit, ok
}

// readTypedFromCache stitches a typed value out of the holding
// register cache, falling back to coil cache for dataType bool.
func (d *Driver) readTypedFromCache(dt dataType, addr uint16) (interface{}, bool) {
	if isCoil(dt) {
		bit, ok := d.readBitFromCache(sourceCoil, addr)
		if !ok {
			return nil, false
		}
		return bit, true
	}

	words, ok := d.readWordsFromCache(sourceHolding, addr, registerCount(dt))
	if !ok {
		return nil, false
	}
	value, err := registersToValue(words, dt)
	if err != nil {
		return nil, false
	}
	return value, true
}
