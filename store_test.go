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
	"testing"
)

func TestRegisterStore_ReadWriteCoils(t *testing.T) {
	store := NewRegisterStore()

	if err := store.WriteCoil(3, true); err != nil {
		t.Fatalf("WriteCoil failed: %v", err)
	}

	coils, err := store.ReadCoils(3, 1)
	if err != nil {
		t.Fatalf("ReadCoils failed: %v", err)
	}
	if !coils[0] {
		t.Error("Coil should be true")
	}
}

func TestRegisterStore_WriteCoils(t *testing.T) {
	store := NewRegisterStore()

	values := []bool{true, false, true, true, false}
	if err := store.WriteCoils(2, values); err != nil {
		t.Fatalf("WriteCoils failed: %v", err)
	}

	coils, err := store.ReadCoils(2, 5)
	if err != nil {
		t.Fatalf("ReadCoils failed: %v", err)
	}
	for i, v := range values {
		if coils[i] != v {
			t.Errorf("Coil[%d]: expected %v, got %v", i, v, coils[i])
		}
	}
}

func TestRegisterStore_DiscreteInputs(t *testing.T) {
	store := NewRegisterStore()

	if err := store.SetDiscreteInputs(0, []bool{true, false, true}); err != nil {
		t.Fatalf("SetDiscreteInputs failed: %v", err)
	}

	inputs, err := store.ReadDiscreteInputs(0, 3)
	if err != nil {
		t.Fatalf("ReadDiscreteInputs failed: %v", err)
	}
	if !inputs[0] || inputs[1] || !inputs[2] {
		t.Errorf("Inputs: expected [true false true], got %v", inputs)
	}
}

func TestRegisterStore_Registers(t *testing.T) {
	store := NewRegisterStore()

	if err := store.SetHoldingRegister(5, 12345); err != nil {
		t.Fatalf("SetHoldingRegister failed: %v", err)
	}
	regs, err := store.ReadHoldingRegisters(5, 1)
	if err != nil {
		t.Fatalf("ReadHoldingRegisters failed: %v", err)
	}
	if regs[0] != 12345 {
		t.Errorf("HoldingRegister: expected 12345, got %d", regs[0])
	}

	if err := store.SetInputRegister(0, 777); err != nil {
		t.Fatalf("SetInputRegister failed: %v", err)
	}
	iregs, err := store.ReadInputRegisters(0, 1)
	if err != nil {
		t.Fatalf("ReadInputRegisters failed: %v", err)
	}
	if iregs[0] != 777 {
		t.Errorf("InputRegister: expected 777, got %d", iregs[0])
	}
}

func TestRegisterStore_OutOfRange(t *testing.T) {
	store := NewRegisterStore()

	tests := []struct {
		name string
		err  error
	}{
		{"read coils past end", func() error { _, err := store.ReadCoils(10, 7); return err }()},
		{"read coils at end", func() error { _, err := store.ReadCoils(16, 1); return err }()},
		{"read inputs past end", func() error { _, err := store.ReadDiscreteInputs(0, 17); return err }()},
		{"write coil past end", store.WriteCoil(16, true)},
		{"write coils past end", store.WriteCoils(15, []bool{true, true})},
	}

	for _, tt := range tests {
		if tt.err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if !IsIllegalDataAddress(tt.err) {
			t.Errorf("%s: expected illegal data address, got %v", tt.name, tt.err)
		}
	}

	// Bounds violations never clobber bank contents.
	coils, err := store.ReadCoils(0, 16)
	if err != nil {
		t.Fatalf("ReadCoils failed: %v", err)
	}
	for i, v := range coils {
		if v {
			t.Errorf("Coil[%d] should still be false", i)
		}
	}
}

func TestRegisterStore_ZeroQuantity(t *testing.T) {
	store := NewRegisterStore()

	_, err := store.ReadCoils(0, 0)
	if err == nil {
		t.Fatal("Expected error for quantity 0")
	}
	if !IsIllegalDataValue(err) {
		t.Errorf("Expected illegal data value, got %v", err)
	}

	if err := store.WriteCoils(0, nil); !IsIllegalDataValue(err) {
		t.Errorf("Expected illegal data value for empty write, got %v", err)
	}
}

func TestRegisterStore_AddressBaseOne(t *testing.T) {
	store := NewRegisterStore(WithAddressBase(1))

	// Address 0 does not exist under 1-based addressing.
	if _, err := store.ReadCoils(0, 1); !IsIllegalDataAddress(err) {
		t.Errorf("Expected illegal data address for address 0, got %v", err)
	}

	// Addresses 1..16 cover the whole bank.
	if err := store.WriteCoil(1, true); err != nil {
		t.Fatalf("WriteCoil(1) failed: %v", err)
	}
	if err := store.WriteCoil(16, true); err != nil {
		t.Fatalf("WriteCoil(16) failed: %v", err)
	}
	if err := store.WriteCoil(17, true); !IsIllegalDataAddress(err) {
		t.Errorf("Expected illegal data address for address 17, got %v", err)
	}

	coils, err := store.ReadCoils(1, 16)
	if err != nil {
		t.Fatalf("ReadCoils(1,16) failed: %v", err)
	}
	if !coils[0] || !coils[15] {
		t.Errorf("Coils at 1 and 16 should be true, got %v", coils)
	}
}

func TestRegisterStore_BankSize(t *testing.T) {
	store := NewRegisterStore(WithBankSize(4))

	if err := store.WriteCoil(3, true); err != nil {
		t.Fatalf("WriteCoil(3) failed: %v", err)
	}
	if err := store.WriteCoil(4, true); !IsIllegalDataAddress(err) {
		t.Errorf("Expected illegal data address past bank size, got %v", err)
	}
}

func TestRegisterStore_ErrorType(t *testing.T) {
	store := NewRegisterStore()

	_, err := store.ReadCoils(100, 1)
	var modbusErr *ModbusError
	if !errors.As(err, &modbusErr) {
		t.Fatalf("Expected *ModbusError, got %T", err)
	}
	if modbusErr.ExceptionCode != ExceptionIllegalDataAddress {
		t.Errorf("ExceptionCode: expected 0x02, got 0x%02X", uint8(modbusErr.ExceptionCode))
	}
}
