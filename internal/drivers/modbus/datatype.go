// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

package modbus

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/circutor/fieldctl/internal/common"
)

// dataType is the typed Modbus register layout a data point or
// read_typed/write_typed command addresses.
type dataType int

const (
	typeUInt16 dataType = iota
	typeInt16
	typeUInt32
	typeInt32
	typeUInt32LE
	typeInt32LE
	typeFloat32
	typeFloat32LE
	typeFloat64
	typeBool
)

func parseDataType(s string) (dataType, error) {
	switch strings.ToLower(s) {
	case "uint16", "u16":
		return typeUInt16, nil
	case "int16", "i16":
		return typeInt16, nil
	case "uint32", "u32":
		return typeUInt32, nil
	case "int32", "i32":
		return typeInt32, nil
	case "uint32le", "u32le":
		return typeUInt32LE, nil
	case "int32le", "i32le":
		return typeInt32LE, nil
	case "float32", "float", "f32":
		return typeFloat32, nil
	case "float32le", "floatle", "f32le":
		return typeFloat32LE, nil
	case "float64", "double", "f64":
		return typeFloat64, nil
	case "bool", "boolean", "bit":
		return typeBool, nil
	default:
		return 0, common.NewConfigError("unsupported modbus data type: %s", s)
	}
}

// registerCount reports how many 16-bit registers dt occupies. Coils
// are reported as 1 for uniformity even though they live in a
// different address space.
func registerCount(dt dataType) uint16 {
	switch dt {
	case typeUInt16, typeInt16, typeBool:
		return 1
	case typeFloat64:
		return 4
	default:
		return 2
	}
}

func isCoil(dt dataType) bool { return dt == typeBool }

// registersToValue decodes regs (big-endian 16-bit words, in wire
// order) into the Go value dt describes.
func registersToValue(regs []uint16, dt dataType) (interface{}, error) {
	switch dt {
	case typeUInt16:
		if len(regs) < 1 {
			return nil, common.NewProtocolError("insufficient register data")
		}
		return uint16(regs[0]), nil
	case typeInt16:
		if len(regs) < 1 {
			return nil, common.NewProtocolError("insufficient register data")
		}
		return int16(regs[0]), nil
	case typeUInt32:
		if len(regs) < 2 {
			return nil, common.NewProtocolError("insufficient register data")
		}
		return uint32(regs[0])<<16 | uint32(regs[1]), nil
	case typeInt32:
		if len(regs) < 2 {
			return nil, common.NewProtocolError("insufficient register data")
		}
		return int32(uint32(regs[0])<<16 | uint32(regs[1])), nil
	case typeUInt32LE:
		if len(regs) < 2 {
			return nil, common.NewProtocolError("insufficient register data")
		}
		return uint32(regs[1])<<16 | uint32(regs[0]), nil
	case typeInt32LE:
		if len(regs) < 2 {
			return nil, common.NewProtocolError("insufficient register data")
		}
		return int32(uint32(regs[1])<<16 | uint32(regs[0])), nil
	case typeFloat32:
		if len(regs) < 2 {
			return nil, common.NewProtocolError("insufficient register data")
		}
		bits := uint32(regs[0])<<16 | uint32(regs[1])
		return math.Float32frombits(bits), nil
	case typeFloat32LE:
		if len(regs) < 2 {
			return nil, common.NewProtocolError("insufficient register data")
		}
		bits := uint32(regs[1])<<16 | uint32(regs[0])
		return math.Float32frombits(bits), nil
	case typeFloat64:
		if len(regs) < 4 {
			return nil, common.NewProtocolError("insufficient register data")
		}
		bits := uint64(regs[0])<<48 | uint64(regs[1])<<32 | uint64(regs[2])<<16 | uint64(regs[3])
		return math.Float64frombits(bits), nil
	case typeBool:
		return nil, common.NewProtocolError("bool type must use coil operations")
	default:
		return nil, common.NewProtocolError("unknown data type")
	}
}

// valueToRegisters encodes a numeric value into dt's wire-order
// 16-bit words.
func valueToRegisters(value float64, dt dataType) ([]uint16, error) {
	switch dt {
	case typeUInt16:
		if value < 0 || value > math.MaxUint16 {
			return nil, common.NewConfigError("value out of range for uint16")
		}
		return []uint16{uint16(value)}, nil
	case typeInt16:
		if value < math.MinInt16 || value > math.MaxInt16 {
			return nil, common.NewConfigError("value out of range for int16")
		}
		return []uint16{uint16(int16(value))}, nil
	case typeUInt32:
		if value < 0 || value > math.MaxUint32 {
			return nil, common.NewConfigError("value out of range for uint32")
		}
		v := uint32(value)
		return []uint16{uint16(v >> 16), uint16(v)}, nil
	case typeInt32:
		if value < math.MinInt32 || value > math.MaxInt32 {
			return nil, common.NewConfigError("value out of range for int32")
		}
		v := uint32(int32(value))
		return []uint16{uint16(v >> 16), uint16(v)}, nil
	case typeUInt32LE:
		if value < 0 || value > math.MaxUint32 {
			return nil, common.NewConfigError("value out of range for uint32")
		}
		v := uint32(value)
		return []uint16{uint16(v), uint16(v >> 16)}, nil
	case typeInt32LE:
		if value < math.MinInt32 || value > math.MaxInt32 {
			return nil, common.NewConfigError("value out of range for int32")
		}
		v := uint32(int32(value))
		return []uint16{uint16(v), uint16(v >> 16)}, nil
	case typeFloat32, typeFloat32LE:
		bits := math.Float32bits(float32(value))
		if dt == typeFloat32LE {
			return []uint16{uint16(bits), uint16(bits >> 16)}, nil
		}
		return []uint16{uint16(bits >> 16), uint16(bits)}, nil
	case typeFloat64:
		bits := math.Float64bits(value)
		return []uint16{
			uint16(bits >> 48), uint16(bits >> 32), uint16(bits >> 16), uint16(bits),
		}, nil
	case typeBool:
		return nil, common.NewConfigError("bool type must use coil operations")
	default:
		return nil, common.NewConfigError("unknown data type")
	}
}

// decodeRegisters converts the big-endian byte payload goburrow/modbus
// returns (2 bytes per register) into a []uint16 slice.
func decodeRegisters(raw []byte) []uint16 {
	out := make([]uint16, len(raw)/2)
	for i := range out {
		out[i] = binary.BigEndian.Uint16(raw[i*2 : i*2+2])
	}
	return out
}

// encodeRegisters packs a []uint16 slice into the big-endian byte
// payload goburrow/modbus expects.
func encodeRegisters(values []uint16) []byte {
	out := make([]byte, len(values)*2)
	for i, v := range values {
		binary.BigEndian.PutUint16(out[i*2:i*2+2], v)
	}
	return out
}

// decodeBits unpacks a Modbus packed-bit payload (as returned by
// ReadCoils/ReadDiscreteInputs) into one bool per requested point.
func decodeBits(raw []byte, count uint16) []bool {
	out := make([]bool, count)
	for i := uint16(0); i < count; i++ {
		byteIdx := i / 8
		bitIdx := i % 8
		if int(byteIdx) >= len(raw) {
			break
		}
		out[i] = raw[byteIdx]&(1<<bitIdx) != 0
	}
	return out
}

// encodeBits packs one bool per point into the wire format
// WriteMultipleCoils expects.
func encodeBits(values []bool) []byte {
	out := make([]byte, (len(values)+7)/8)
	for i, v := range values {
		if v {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}
