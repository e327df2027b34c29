// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

package modbus

import (
	"encoding/json"

	"github.com/circutor/fieldctl/internal/common"
)

type readTypedParams struct {
	Addr     uint16 `json:"addr"`
	Type     string `json:"type"`
	UseCache *bool  `json:"use_cache"`
}

type readTypedResult struct {
	Value     float64 `json:"value"`
	FromCache bool    `json:"from_cache"`
}

type writeTypedParams struct {
	Addr  uint16  `json:"addr"`
	Type  string  `json:"type"`
	Value float64 `json:"value"`
}

type blockParams struct {
	Addr  uint16 `json:"addr"`
	Count uint16 `json:"count"`
}

type blockResult struct {
	Values interface{} `json:"values"`
}

type singleWriteParams struct {
	Addr  uint16 `json:"addr"`
	Value uint16 `json:"value"`
}

type singleCoilParams struct {
	Addr  uint16 `json:"addr"`
	Value bool   `json:"value"`
}

type multiWriteParams struct {
	Addr   uint16   `json:"addr"`
	Values []uint16 `json:"values"`
}

type multiCoilParams struct {
	Addr   uint16 `json:"addr"`
	Values []bool `json:"values"`
}

// Execute dispatches the full Modbus command surface: typed
// read/write for data points, and the raw register/coil block
// commands used for diagnostics and scripted channel commands.
func (d *Driver) Execute(command string, params json.RawMessage) (json.RawMessage, error) {
	switch command {
	case "read", "read_typed":
		return d.execReadTyped(params)
	case "write", "write_typed":
		return d.execWriteTyped(params)
	case "read_holding_registers", "read_holding":
		return d.execReadRegisters(params, sourceHolding)
	case "read_input_registers", "read_input":
		return d.execReadRegisters(params, sourceInput)
	case "read_coils":
		return d.execReadBits(params, sourceCoil)
	case "read_discrete_inputs", "read_discrete":
		return d.execReadBits(params, sourceDiscrete)
	case "write_single_register", "write_single":
		return d.execWriteSingleRegister(params)
	case "write_multiple_registers", "write_multiple":
		return d.execWriteMultipleRegisters(params)
	case "write_single_coil":
		return d.execWriteSingleCoil(params)
	case "write_multiple_coils":
		return d.execWriteMultipleCoils(params)
	default:
		return nil, common.NewProtocolError("modbus: unknown command %q", command)
	}
}

func (d *Driver) execReadTyped(raw json.RawMessage) (json.RawMessage, error) {
	var p readTypedParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, common.NewSerializationError(err)
	}
	dt, err := parseDataType(p.Type)
	if err != nil {
		return nil, err
	}

	useCache := p.UseCache == nil || *p.UseCache
	if useCache {
		if value, ok := d.readTypedFromCache(dt, p.Addr); ok {
			return json.Marshal(readTypedResult{Value: toFloat(value), FromCache: true})
		}
	}

	value, err := d.readTypedLive(dt, p.Addr)
	if err != nil {
		return nil, err
	}
	return json.Marshal(readTypedResult{Value: toFloat(value), FromCache: false})
}

func (d *Driver) readTypedLive(dt dataType, addr uint16) (interface{}, error) {
	if isCoil(dt) {
		client, handler, err := d.connect()
		if err != nil {
			return nil, err
		}
		defer handler.Close()
		raw, err := client.ReadCoils(addr, 1)
		if err != nil {
			return nil, common.NewProtocolError("modbus: read coil %d: %v", addr, err)
		}
		return decodeBits(raw, 1)[0], nil
	}

	client, handler, err := d.connect()
	if err != nil {
		return nil, err
	}
	defer handler.Close()

	n := registerCount(dt)
	raw, err := client.ReadHoldingRegisters(addr, n)
	if err != nil {
		return nil, common.NewProtocolError("modbus: read holding registers %d..%d: %v", addr, addr+n-1, err)
	}
	words := decodeRegisters(raw)
	d.storeWords(sourceHolding, addr, words)
	return registersToValue(words, dt)
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case bool:
		if n {
			return 1
		}
		return 0
	case uint16:
		return float64(n)
	case int16:
		return float64(n)
	case uint32:
		return float64(n)
	case int32:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	default:
		return 0
	}
}

func (d *Driver) execWriteTyped(raw json.RawMessage) (json.RawMessage, error) {
	var p writeTypedParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, common.NewSerializationError(err)
	}
	dt, err := parseDataType(p.Type)
	if err != nil {
		return nil, err
	}

	client, handler, err := d.connect()
	if err != nil {
		return nil, err
	}
	defer handler.Close()

	if isCoil(dt) {
		value := p.Value != 0
		if err := writeSingleCoil(client, p.Addr, value); err != nil {
			return nil, err
		}
		d.storeBits(sourceCoil, p.Addr, []bool{value})
		return json.RawMessage(`{"status":"ok"}`), nil
	}

	words, err := valueToRegisters(p.Value, dt)
	if err != nil {
		return nil, err
	}
	if err := writeRegisters(client, p.Addr, words); err != nil {
		return nil, err
	}
	d.storeWords(sourceHolding, p.Addr, words)
	return json.RawMessage(`{"status":"ok"}`), nil
}

func writeSingleCoil(client interface {
	WriteSingleCoil(address, value uint16) ([]byte, error)
}, addr uint16, value bool) error {
	v := uint16(0x0000)
	if value {
		v = 0xFF00
	}
	if _, err := client.WriteSingleCoil(addr, v); err != nil {
		return common.NewProtocolError("modbus: write coil %d: %v", addr, err)
	}
	return nil
}

func writeRegisters(client interface {
	WriteSingleRegister(address, value uint16) ([]byte, error)
	WriteMultipleRegisters(address, quantity uint16, value []byte) ([]byte, error)
}, addr uint16, words []uint16) error {
	if len(words) == 1 {
		if _, err := client.WriteSingleRegister(addr, words[0]); err != nil {
			return common.NewProtocolError("modbus: write register %d: %v", addr, err)
		}
		return nil
	}
	if _, err := client.WriteMultipleRegisters(addr, uint16(len(words)), encodeRegisters(words)); err != nil {
		return common.NewProtocolError("modbus: write registers %d..%d: %v", addr, addr+uint16(len(words))-1, err)
	}
	return nil
}

func (d *Driver) execReadRegisters(raw json.RawMessage, src source) (json.RawMessage, error) {
	var p blockParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, common.NewSerializationError(err)
	}
	client, handler, err := d.connect()
	if err != nil {
		return nil, err
	}
	defer handler.Close()

	var (
		resp []byte
		rerr error
	)
	if src == sourceHolding {
		resp, rerr = client.ReadHoldingRegisters(p.Addr, p.Count)
	} else {
		resp, rerr = client.ReadInputRegisters(p.Addr, p.Count)
	}
	if rerr != nil {
		return nil, common.NewProtocolError("modbus: read registers %d..%d: %v", p.Addr, p.Addr+p.Count-1, rerr)
	}

	words := decodeRegisters(resp)
	d.storeWords(src, p.Addr, words)
	return json.Marshal(blockResult{Values: words})
}

func (d *Driver) execReadBits(raw json.RawMessage, src source) (json.RawMessage, error) {
	var p blockParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, common.NewSerializationError(err)
	}
	client, handler, err := d.connect()
	if err != nil {
		return nil, err
	}
	defer handler.Close()

	var (
		resp []byte
		rerr error
	)
	if src == sourceCoil {
		resp, rerr = client.ReadCoils(p.Addr, p.Count)
	} else {
		resp, rerr = client.ReadDiscreteInputs(p.Addr, p.Count)
	}
	if rerr != nil {
		return nil, common.NewProtocolError("modbus: read bits %d..%d: %v", p.Addr, p.Addr+p.Count-1, rerr)
	}

	bits := decodeBits(resp, p.Count)
	d.storeBits(src, p.Addr, bits)
	return json.Marshal(blockResult{Values: bits})
}

func (d *Driver) execWriteSingleRegister(raw json.RawMessage) (json.RawMessage, error) {
	var p singleWriteParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, common.NewSerializationError(err)
	}
	client, handler, err := d.connect()
	if err != nil {
		return nil, err
	}
	defer handler.Close()

	if _, err := client.WriteSingleRegister(p.Addr, p.Value); err != nil {
		return nil, common.NewProtocolError("modbus: write register %d: %v", p.Addr, err)
	}
	d.storeWords(sourceHolding, p.Addr, []uint16{p.Value})
	return json.RawMessage(`{"status":"ok"}`), nil
}

func (d *Driver) execWriteMultipleRegisters(raw json.RawMessage) (json.RawMessage, error) {
	var p multiWriteParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, common.NewSerializationError(err)
	}
	client, handler, err := d.connect()
	if err != nil {
		return nil, err
	}
	defer handler.Close()

	if _, err := client.WriteMultipleRegisters(p.Addr, uint16(len(p.Values)), encodeRegisters(p.Values)); err != nil {
		return nil, common.NewProtocolError("modbus: write registers %d..%d: %v", p.Addr, p.Addr+uint16(len(p.Values))-1, err)
	}
	d.storeWords(sourceHolding, p.Addr, p.Values)
	return json.RawMessage(`{"status":"ok"}`), nil
}

func (d *Driver) execWriteSingleCoil(raw json.RawMessage) (json.RawMessage, error) {
	var p singleCoilParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, common.NewSerializationError(err)
	}
	client, handler, err := d.connect()
	if err != nil {
		return nil, err
	}
	defer handler.Close()

	if err := writeSingleCoil(client, p.Addr, p.Value); err != nil {
		return nil, err
	}
	d.storeBits(sourceCoil, p.Addr, []bool{p.Value})
	return json.RawMessage(`{"status":"ok"}`), nil
}

func (d *Driver) execWriteMultipleCoils(raw json.RawMessage) (json.RawMessage, error) {
	var p multiCoilParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, common.NewSerializationError(err)
	}
	client, handler, err := d.connect()
	if err != nil {
		return nil, err
	}
	defer handler.Close()

	if _, err := client.WriteMultipleCoils(p.Addr, uint16(len(p.Values)), encodeBits(p.Values)); err != nil {
		return nil, common.NewProtocolError("modbus: write coils %d..%d: %v", p.Addr, p.Addr+uint16(len(p.Values))-1, err)
	}
	d.storeBits(sourceCoil, p.Addr, p.Values)
	return json.RawMessage(`{"status":"ok"}`), nil
}
