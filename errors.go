// Copyright 2025 Edgeo SCADA
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pneusim

import (
	"errors"
	"fmt"
)

// ExceptionCode is a Modbus exception code.
type ExceptionCode uint8

// Modbus exception codes used by this slave.
const (
	ExceptionIllegalFunction     ExceptionCode = 0x01
	ExceptionIllegalDataAddress  ExceptionCode = 0x02
	ExceptionIllegalDataValue    ExceptionCode = 0x03
	ExceptionServerDeviceFailure ExceptionCode = 0x04
)

// String returns the string representation of the exception code.
func (e ExceptionCode) String() string {
	switch e {
	case ExceptionIllegalFunction:
		return "illegal function"
	case ExceptionIllegalDataAddress:
		return "illegal data address"
	case ExceptionIllegalDataValue:
		return "illegal data value"
	case ExceptionServerDeviceFailure:
		return "server device failure"
	default:
		return fmt.Sprintf("unknown exception (0x%02X)", uint8(e))
	}
}

// ModbusError represents a Modbus protocol error (exception response).
type ModbusError struct {
	FunctionCode  FunctionCode
	ExceptionCode ExceptionCode
}

// Error implements the error interface.
func (e *ModbusError) Error() string {
	return fmt.Sprintf("modbus: exception %s (FC=%02X)", e.ExceptionCode, e.FunctionCode)
}

// Is matches on the exception code so callers can compare with
// errors.Is regardless of which function code produced the exception.
func (e *ModbusError) Is(target error) bool {
	t, ok := target.(*ModbusError)
	if !ok {
		return false
	}
	return e.ExceptionCode == t.ExceptionCode
}

// NewModbusError creates a new Modbus exception error.
func NewModbusError(fc FunctionCode, ec ExceptionCode) *ModbusError {
	return &ModbusError{
		FunctionCode:  fc,
		ExceptionCode: ec,
	}
}

// Common errors.
var (
	// ErrInvalidFrame indicates a malformed MBAP frame. The offending
	// connection is closed without a response.
	ErrInvalidFrame = errors.New("pneusim: invalid frame")

	// ErrInvalidResponse indicates a malformed or mismatched response
	// (client side).
	ErrInvalidResponse = errors.New("pneusim: invalid response")

	// ErrInvalidQuantity indicates an invalid read/write quantity.
	ErrInvalidQuantity = errors.New("pneusim: invalid quantity")

	// ErrInvalidAddress indicates an address outside the bank bounds.
	ErrInvalidAddress = errors.New("pneusim: invalid address")

	// ErrNotConnected indicates the client is not connected.
	ErrNotConnected = errors.New("pneusim: not connected")

	// ErrClientClosed indicates the client has been closed.
	ErrClientClosed = errors.New("pneusim: client closed")
)

// IsException reports whether err is a Modbus exception with the given code.
func IsException(err error, code ExceptionCode) bool {
	var modbusErr *ModbusError
	if errors.As(err, &modbusErr) {
		return modbusErr.ExceptionCode == code
	}
	return false
}

// IsIllegalFunction reports whether err is an illegal function exception.
func IsIllegalFunction(err error) bool {
	return IsException(err, ExceptionIllegalFunction)
}

// IsIllegalDataAddress reports whether err is an illegal data address exception.
func IsIllegalDataAddress(err error) bool {
	return IsException(err, ExceptionIllegalDataAddress)
}

// IsIllegalDataValue reports whether err is an illegal data value exception.
func IsIllegalDataValue(err error) bool {
	return IsException(err, ExceptionIllegalDataValue)
}
