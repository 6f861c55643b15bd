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

// Package pneusim implements a Modbus TCP slave that emulates a pneumatic
// double-acting cylinder. Clients write valve coils; a background
// simulation engine derives the position sensors (discrete inputs) from
// how long each valve has been held.
package pneusim

import "time"

// UnitID identifies the logical slave a request targets. A single-device
// slave echoes it without interpreting it.
type UnitID uint8

// FunctionCode is a Modbus function code.
type FunctionCode uint8

// Standard Modbus function codes. The slave serves the coil and discrete
// input codes; everything else is answered with an illegal-function
// exception.
const (
	FuncReadCoils              FunctionCode = 0x01
	FuncReadDiscreteInputs     FunctionCode = 0x02
	FuncReadHoldingRegisters   FunctionCode = 0x03
	FuncReadInputRegisters     FunctionCode = 0x04
	FuncWriteSingleCoil        FunctionCode = 0x05
	FuncWriteSingleRegister    FunctionCode = 0x06
	FuncWriteMultipleCoils     FunctionCode = 0x0F
	FuncWriteMultipleRegisters FunctionCode = 0x10
)

// String returns a human-readable name for the function code.
func (fc FunctionCode) String() string {
	switch fc {
	case FuncReadCoils:
		return "ReadCoils"
	case FuncReadDiscreteInputs:
		return "ReadDiscreteInputs"
	case FuncReadHoldingRegisters:
		return "ReadHoldingRegisters"
	case FuncReadInputRegisters:
		return "ReadInputRegisters"
	case FuncWriteSingleCoil:
		return "WriteSingleCoil"
	case FuncWriteSingleRegister:
		return "WriteSingleRegister"
	case FuncWriteMultipleCoils:
		return "WriteMultipleCoils"
	case FuncWriteMultipleRegisters:
		return "WriteMultipleRegisters"
	default:
		return "Unknown"
	}
}

// Protocol constants.
const (
	// MBAPHeaderSize is the size of the MBAP header in bytes.
	MBAPHeaderSize = 7

	// ProtocolID is the Modbus protocol identifier (always 0 for Modbus TCP).
	ProtocolID = 0

	// MaxPDUSize is the maximum PDU size in bytes.
	MaxPDUSize = 253

	// DefaultPort is the default Modbus TCP port.
	DefaultPort = 502

	// DefaultTimeout is the default timeout for client operations.
	DefaultTimeout = 5 * time.Second
)

// Coil values on the wire for FC05.
const (
	CoilOn  uint16 = 0xFF00
	CoilOff uint16 = 0x0000
)

// Bank layout of the emulated device. Sixteen bits per bank mirrors the
// lab cylinder's I/O card; the address map is shared with the device
// under test.
const (
	BankSize = 16

	CoilValveExtend  = 0
	CoilValveRetract = 1

	InputSensorHome = 0
	InputSensorEnd  = 1
)

// Simulation defaults.
const (
	// DefaultTickPeriod is the simulation cycle time.
	DefaultTickPeriod = 100 * time.Millisecond

	// DefaultSensorThreshold is the number of consecutive cycles a valve
	// must be held before the corresponding end-position sensor trips.
	DefaultSensorThreshold = 3
)
