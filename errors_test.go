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
	"testing"
)

func TestExceptionCode_String(t *testing.T) {
	tests := []struct {
		code ExceptionCode
		want string
	}{
		{ExceptionIllegalFunction, "illegal function"},
		{ExceptionIllegalDataAddress, "illegal data address"},
		{ExceptionIllegalDataValue, "illegal data value"},
		{ExceptionServerDeviceFailure, "server device failure"},
		{ExceptionCode(0x42), "unknown exception (0x42)"},
	}

	for _, tt := range tests {
		if got := tt.code.String(); got != tt.want {
			t.Errorf("ExceptionCode(%02X).String() = %q, want %q", uint8(tt.code), got, tt.want)
		}
	}
}

func TestModbusError_Is(t *testing.T) {
	err := NewModbusError(FuncReadCoils, ExceptionIllegalDataAddress)

	// Matches on exception code regardless of function code.
	target := NewModbusError(FuncWriteSingleCoil, ExceptionIllegalDataAddress)
	if !errors.Is(err, target) {
		t.Error("errors.Is should match on exception code")
	}

	other := NewModbusError(FuncReadCoils, ExceptionIllegalDataValue)
	if errors.Is(err, other) {
		t.Error("errors.Is should not match a different exception code")
	}
}

func TestIsExceptionHelpers(t *testing.T) {
	addrErr := NewModbusError(FuncReadCoils, ExceptionIllegalDataAddress)
	if !IsIllegalDataAddress(addrErr) {
		t.Error("IsIllegalDataAddress should be true")
	}
	if IsIllegalDataValue(addrErr) {
		t.Error("IsIllegalDataValue should be false")
	}
	if IsIllegalFunction(addrErr) {
		t.Error("IsIllegalFunction should be false")
	}

	// Wrapped errors are still recognized.
	wrapped := fmt.Errorf("request failed: %w", addrErr)
	if !IsIllegalDataAddress(wrapped) {
		t.Error("IsIllegalDataAddress should see through wrapping")
	}

	if IsIllegalDataAddress(errors.New("plain")) {
		t.Error("plain errors are not exceptions")
	}
}

func TestFunctionCode_String(t *testing.T) {
	if got := FuncWriteMultipleCoils.String(); got != "WriteMultipleCoils" {
		t.Errorf("String() = %q", got)
	}
	if got := FunctionCode(0x7F).String(); got != "Unknown" {
		t.Errorf("String() = %q", got)
	}
}
