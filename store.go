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

import "sync"

// RegisterStore holds the four register banks of the emulated device.
// It is shared between the protocol server and the simulation engine for
// the process lifetime; every access is serialized through one mutex and
// covers exactly one logical operation, so a multi-bit write is observed
// atomically. Critical sections contain no I/O.
//
// Addresses are wire addresses. With the default address base of 0 the
// valid range of each bank is [0, size); with base 1 it is [1, size+1)
// (the 1-based convention of the older deployment).
type RegisterStore struct {
	mu   sync.Mutex
	base uint16

	coils          []bool
	discreteInputs []bool
	holdingRegs    []uint16
	inputRegs      []uint16
}

// NewRegisterStore creates a register store with all banks zeroed.
func NewRegisterStore(opts ...StoreOption) *RegisterStore {
	options := defaultStoreOptions()
	for _, opt := range opts {
		opt(options)
	}

	return &RegisterStore{
		base:           options.addressBase,
		coils:          make([]bool, options.bankSize),
		discreteInputs: make([]bool, options.bankSize),
		holdingRegs:    make([]uint16, options.bankSize),
		inputRegs:      make([]uint16, options.bankSize),
	}
}

// AddressBase returns the wire address of the first element of each bank.
func (s *RegisterStore) AddressBase() uint16 {
	return s.base
}

// index validates a wire address range against a bank of length n and
// returns the zero-based index of the first element. Quantity zero is an
// illegal data value; a range outside the bank is an illegal data
// address. No bank memory is touched on failure.
func (s *RegisterStore) index(fc FunctionCode, n int, addr uint16, qty int) (int, error) {
	if qty < 1 {
		return 0, NewModbusError(fc, ExceptionIllegalDataValue)
	}
	if int(addr) < int(s.base) || int(addr)-int(s.base)+qty > n {
		return 0, NewModbusError(fc, ExceptionIllegalDataAddress)
	}
	return int(addr) - int(s.base), nil
}

// ReadCoils returns qty coil values starting at addr.
func (s *RegisterStore) ReadCoils(addr, qty uint16) ([]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.index(FuncReadCoils, len(s.coils), addr, int(qty))
	if err != nil {
		return nil, err
	}
	result := make([]bool, qty)
	copy(result, s.coils[i:i+int(qty)])
	return result, nil
}

// ReadDiscreteInputs returns qty discrete input values starting at addr.
func (s *RegisterStore) ReadDiscreteInputs(addr, qty uint16) ([]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.index(FuncReadDiscreteInputs, len(s.discreteInputs), addr, int(qty))
	if err != nil {
		return nil, err
	}
	result := make([]bool, qty)
	copy(result, s.discreteInputs[i:i+int(qty)])
	return result, nil
}

// ReadHoldingRegisters returns qty holding register values starting at
// addr. The bank is allocated but not routed by the protocol layer.
func (s *RegisterStore) ReadHoldingRegisters(addr, qty uint16) ([]uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.index(FuncReadHoldingRegisters, len(s.holdingRegs), addr, int(qty))
	if err != nil {
		return nil, err
	}
	result := make([]uint16, qty)
	copy(result, s.holdingRegs[i:i+int(qty)])
	return result, nil
}

// ReadInputRegisters returns qty input register values starting at addr.
// The bank is allocated but not routed by the protocol layer.
func (s *RegisterStore) ReadInputRegisters(addr, qty uint16) ([]uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.index(FuncReadInputRegisters, len(s.inputRegs), addr, int(qty))
	if err != nil {
		return nil, err
	}
	result := make([]uint16, qty)
	copy(result, s.inputRegs[i:i+int(qty)])
	return result, nil
}

// WriteCoil sets a single coil.
func (s *RegisterStore) WriteCoil(addr uint16, value bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.index(FuncWriteSingleCoil, len(s.coils), addr, 1)
	if err != nil {
		return err
	}
	s.coils[i] = value
	return nil
}

// WriteCoils sets len(values) coils starting at addr as one atomic
// operation.
func (s *RegisterStore) WriteCoils(addr uint16, values []bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.index(FuncWriteMultipleCoils, len(s.coils), addr, len(values))
	if err != nil {
		return err
	}
	copy(s.coils[i:], values)
	return nil
}

// SetDiscreteInputs sets len(values) discrete inputs starting at addr as
// one atomic operation. Discrete inputs are read-only to Modbus clients;
// this is the simulation engine's write path and is never reached from
// the protocol layer.
func (s *RegisterStore) SetDiscreteInputs(addr uint16, values []bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.index(FuncReadDiscreteInputs, len(s.discreteInputs), addr, len(values))
	if err != nil {
		return err
	}
	copy(s.discreteInputs[i:], values)
	return nil
}

// SetHoldingRegister sets a holding register (seeding and tests).
func (s *RegisterStore) SetHoldingRegister(addr, value uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.index(FuncWriteSingleRegister, len(s.holdingRegs), addr, 1)
	if err != nil {
		return err
	}
	s.holdingRegs[i] = value
	return nil
}

// SetInputRegister sets an input register (seeding and tests).
func (s *RegisterStore) SetInputRegister(addr, value uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.index(FuncReadInputRegisters, len(s.inputRegs), addr, 1)
	if err != nil {
		return err
	}
	s.inputRegs[i] = value
	return nil
}
