// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package common

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is the typed failure taxonomy shared by every layer of the
// control plane. Every error the core returns to a caller maps to
// exactly one Kind.
type Kind int

const (
	KindOther Kind = iota
	KindDeviceNotFound
	KindChannelNotFound
	KindProtocolError
	KindConnectionError
	KindTimeout
	KindConfigError
	KindDependencyNotMet
	KindIO
	KindSerialization
)

// DeviceError is the concrete error type carried through the control
// plane. Use errors.Cause (github.com/pkg/errors) to recover it from a
// wrapped error.
type DeviceError struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *DeviceError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *DeviceError) Unwrap() error { return e.cause }
func (e *DeviceError) Cause() error  { return e.cause }

func newErr(kind Kind, format string, args ...interface{}) *DeviceError {
	return &DeviceError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NewDeviceNotFound(format string, args ...interface{}) *DeviceError {
	return newErr(KindDeviceNotFound, format, args...)
}

func NewChannelNotFound(channelID uint32) *DeviceError {
	return newErr(KindChannelNotFound, "channel %d not found", channelID)
}

func NewProtocolError(format string, args ...interface{}) *DeviceError {
	return newErr(KindProtocolError, format, args...)
}

func NewConnectionError(format string, args ...interface{}) *DeviceError {
	return newErr(KindConnectionError, format, args...)
}

func NewTimeout(format string, args ...interface{}) *DeviceError {
	return newErr(KindTimeout, format, args...)
}

func NewConfigError(format string, args ...interface{}) *DeviceError {
	return newErr(KindConfigError, format, args...)
}

func NewDependencyNotMet(format string, args ...interface{}) *DeviceError {
	return newErr(KindDependencyNotMet, format, args...)
}

func NewIOError(cause error) *DeviceError {
	return &DeviceError{Kind: KindIO, Message: "io error", cause: cause}
}

func NewSerializationError(cause error) *DeviceError {
	return &DeviceError{Kind: KindSerialization, Message: "serialization error", cause: cause}
}

func NewOther(format string, args ...interface{}) *DeviceError {
	return newErr(KindOther, format, args...)
}

// WrapOther wraps an arbitrary error as a catch-all DeviceError,
// preserving the original via errors.Wrap for logging.
func WrapOther(err error, context string) *DeviceError {
	return &DeviceError{Kind: KindOther, Message: context, cause: errors.Wrap(err, context)}
}

// KindOf extracts the Kind from err, defaulting to KindOther when err
// is not (or does not wrap) a *DeviceError.
func KindOf(err error) Kind {
	var de *DeviceError
	for err != nil {
		if d, ok := err.(*DeviceError); ok {
			de = d
			break
		}
		err = errors.Unwrap(err)
	}
	if de == nil {
		return KindOther
	}
	return de.Kind
}

// HTTP status-code-like envelope codes, per spec section 7.
const (
	CodeSuccess          = 0
	CodeDeviceNotFound   = 30001
	CodeChannelNotFound  = 30002
	CodeTimeout          = 30003
	CodeDependencyNotMet = 30004
	CodeConfigError      = 400
	CodeGeneral          = 30006
)

// EnvelopeCode maps an error's Kind to the HTTP envelope state code.
func EnvelopeCode(err error) int {
	if err == nil {
		return CodeSuccess
	}
	switch KindOf(err) {
	case KindDeviceNotFound:
		return CodeDeviceNotFound
	case KindChannelNotFound:
		return CodeChannelNotFound
	case KindTimeout:
		return CodeTimeout
	case KindDependencyNotMet:
		return CodeDependencyNotMet
	case KindConfigError:
		return CodeConfigError
	default:
		return CodeGeneral
	}
}
