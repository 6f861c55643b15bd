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
	"bytes"
	"testing"
)

func TestMBAPHeader_Encode(t *testing.T) {
	header := MBAPHeader{
		TransactionID: 0x0001,
		ProtocolID:    0x0000,
		Length:        0x0006,
		UnitID:        0x01,
	}

	expected := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x01}
	result := header.Encode()

	if !bytes.Equal(result, expected) {
		t.Errorf("Expected %x, got %x", expected, result)
	}
}

func TestMBAPHeader_Decode(t *testing.T) {
	data := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x01}

	var header MBAPHeader
	if err := header.Decode(data); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if header.TransactionID != 0x0001 {
		t.Errorf("TransactionID: expected 0x0001, got 0x%04X", header.TransactionID)
	}
	if header.ProtocolID != 0x0000 {
		t.Errorf("ProtocolID: expected 0x0000, got 0x%04X", header.ProtocolID)
	}
	if header.Length != 0x0006 {
		t.Errorf("Length: expected 0x0006, got 0x%04X", header.Length)
	}
	if header.UnitID != 0x01 {
		t.Errorf("UnitID: expected 0x01, got 0x%02X", header.UnitID)
	}
}

func TestMBAPHeader_Decode_TooShort(t *testing.T) {
	var header MBAPHeader
	if err := header.Decode([]byte{0x00, 0x01, 0x00}); err == nil {
		t.Error("Expected error for short data")
	}
}

func TestFrame_Encode(t *testing.T) {
	frame := Frame{
		Header: MBAPHeader{
			TransactionID: 0x0001,
			ProtocolID:    0x0000,
			UnitID:        0x01,
		},
		PDU: []byte{0x01, 0x00, 0x00, 0x00, 0x02}, // Read coils
	}

	result := frame.Encode()

	// Length must cover unit id + PDU.
	expectedLength := len(frame.PDU) + 1
	actualLength := int(result[4])<<8 | int(result[5])
	if actualLength != expectedLength {
		t.Errorf("Length: expected %d, got %d", expectedLength, actualLength)
	}

	if !bytes.Equal(result[7:], frame.PDU) {
		t.Errorf("PDU mismatch: expected %x, got %x", frame.PDU, result[7:])
	}
}

func TestReadFrame(t *testing.T) {
	data := []byte{
		0x00, 0x01, // Transaction ID
		0x00, 0x00, // Protocol ID
		0x00, 0x06, // Length
		0x01,                         // Unit ID
		0x01, 0x00, 0x00, 0x00, 0x02, // PDU
	}

	frame, err := ReadFrame(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}

	if frame.Header.TransactionID != 0x0001 {
		t.Errorf("TransactionID: expected 0x0001, got 0x%04X", frame.Header.TransactionID)
	}
	if frame.Header.UnitID != 0x01 {
		t.Errorf("UnitID: expected 0x01, got 0x%02X", frame.Header.UnitID)
	}

	expectedPDU := []byte{0x01, 0x00, 0x00, 0x00, 0x02}
	if !bytes.Equal(frame.PDU, expectedPDU) {
		t.Errorf("PDU: expected %x, got %x", expectedPDU, frame.PDU)
	}
}

func TestReadFrame_InvalidProtocolID(t *testing.T) {
	data := []byte{
		0x00, 0x01,
		0x00, 0x07, // non-zero protocol ID
		0x00, 0x06,
		0x01,
		0x01, 0x00, 0x00, 0x00, 0x02,
	}

	if _, err := ReadFrame(bytes.NewReader(data)); err == nil {
		t.Error("Expected error for non-zero protocol ID")
	}
}

func TestReadFrame_ZeroLength(t *testing.T) {
	data := []byte{
		0x00, 0x01,
		0x00, 0x00,
		0x00, 0x00, // length 0: cannot even cover the unit id
		0x01,
	}

	if _, err := ReadFrame(bytes.NewReader(data)); err == nil {
		t.Error("Expected error for zero length field")
	}
}

func TestReadFrame_Truncated(t *testing.T) {
	// Header claims 9 PDU bytes, stream ends after 2.
	data := []byte{
		0x00, 0x01,
		0x00, 0x00,
		0x00, 0x0A,
		0x01,
		0x0F, 0x00,
	}

	if _, err := ReadFrame(bytes.NewReader(data)); err == nil {
		t.Error("Expected error for truncated frame")
	}
}

func TestBuildReadCoilsPDU(t *testing.T) {
	pdu, err := BuildReadCoilsPDU(0x0000, 0x0002)
	if err != nil {
		t.Fatalf("BuildReadCoilsPDU failed: %v", err)
	}

	expected := []byte{0x01, 0x00, 0x00, 0x00, 0x02}
	if !bytes.Equal(pdu, expected) {
		t.Errorf("Expected %x, got %x", expected, pdu)
	}
}

func TestBuildReadCoilsPDU_ZeroQuantity(t *testing.T) {
	if _, err := BuildReadCoilsPDU(0, 0); err == nil {
		t.Error("Expected error for quantity 0")
	}
}

func TestBuildReadDiscreteInputsPDU(t *testing.T) {
	pdu, err := BuildReadDiscreteInputsPDU(0x0001, 0x0001)
	if err != nil {
		t.Fatalf("BuildReadDiscreteInputsPDU failed: %v", err)
	}

	expected := []byte{0x02, 0x00, 0x01, 0x00, 0x01}
	if !bytes.Equal(pdu, expected) {
		t.Errorf("Expected %x, got %x", expected, pdu)
	}
}

func TestBuildWriteSingleCoilPDU(t *testing.T) {
	pduOn := BuildWriteSingleCoilPDU(0x0000, true)
	expectedOn := []byte{0x05, 0x00, 0x00, 0xFF, 0x00}
	if !bytes.Equal(pduOn, expectedOn) {
		t.Errorf("ON: expected %x, got %x", expectedOn, pduOn)
	}

	pduOff := BuildWriteSingleCoilPDU(0x0000, false)
	expectedOff := []byte{0x05, 0x00, 0x00, 0x00, 0x00}
	if !bytes.Equal(pduOff, expectedOff) {
		t.Errorf("OFF: expected %x, got %x", expectedOff, pduOff)
	}
}

func TestBuildWriteMultipleCoilsPDU(t *testing.T) {
	values := []bool{true, false, true, true, false, false, true, true, true, false}
	pdu, err := BuildWriteMultipleCoilsPDU(0x0000, values)
	if err != nil {
		t.Fatalf("BuildWriteMultipleCoilsPDU failed: %v", err)
	}

	expected := []byte{0x0F, 0x00, 0x00, 0x00, 0x0A, 0x02, 0xCD, 0x01}
	if !bytes.Equal(pdu, expected) {
		t.Errorf("Expected %x, got %x", expected, pdu)
	}
}

func TestParseCoilsResponse(t *testing.T) {
	// Response for reading 4 bits: 0x05 = 0101
	pdu := []byte{0x01, 0x01, 0x05}
	values, err := ParseCoilsResponse(pdu, 4)
	if err != nil {
		t.Fatalf("ParseCoilsResponse failed: %v", err)
	}

	expected := []bool{true, false, true, false}
	for i, v := range expected {
		if values[i] != v {
			t.Errorf("values[%d]: expected %v, got %v", i, v, values[i])
		}
	}
}

func TestParseCoilsResponse_BadByteCount(t *testing.T) {
	pdu := []byte{0x01, 0x02, 0x05}
	if _, err := ParseCoilsResponse(pdu, 4); err == nil {
		t.Error("Expected error for byte count mismatch")
	}
}

func TestParseWriteResponse(t *testing.T) {
	pdu := []byte{0x05, 0x00, 0x01, 0xFF, 0x00}
	if err := ParseWriteResponse(pdu, 1, CoilOn); err != nil {
		t.Errorf("ParseWriteResponse failed: %v", err)
	}
	if err := ParseWriteResponse(pdu, 2, CoilOn); err == nil {
		t.Error("Expected error for address mismatch")
	}
	if err := ParseWriteResponse(pdu, 1, CoilOff); err == nil {
		t.Error("Expected error for value mismatch")
	}
}

func TestParseWriteMultipleResponse(t *testing.T) {
	pdu := []byte{0x0F, 0x00, 0x00, 0x00, 0x02}
	if err := ParseWriteMultipleResponse(pdu, 0, 2); err != nil {
		t.Errorf("ParseWriteMultipleResponse failed: %v", err)
	}
	if err := ParseWriteMultipleResponse(pdu, 0, 3); err == nil {
		t.Error("Expected error for quantity mismatch")
	}
}

func TestIsExceptionResponse(t *testing.T) {
	if IsExceptionResponse([]byte{0x01, 0x01, 0x00}) {
		t.Error("Normal response should not be exception")
	}
	if !IsExceptionResponse([]byte{0x81, 0x02}) {
		t.Error("Exception response should be detected")
	}
}

func TestParseExceptionResponse(t *testing.T) {
	err := ParseExceptionResponse([]byte{0x81, 0x02})
	if err == nil {
		t.Fatal("Expected error")
	}
	if err.FunctionCode != FuncReadCoils {
		t.Errorf("FunctionCode: expected %d, got %d", FuncReadCoils, err.FunctionCode)
	}
	if err.ExceptionCode != ExceptionIllegalDataAddress {
		t.Errorf("ExceptionCode: expected %d, got %d", ExceptionIllegalDataAddress, err.ExceptionCode)
	}
}

func TestTransactionIDGenerator(t *testing.T) {
	var gen TransactionIDGenerator

	if id := gen.Next(); id != 1 {
		t.Errorf("First ID should be 1, got %d", id)
	}
	if id := gen.Next(); id != 2 {
		t.Errorf("Second ID should be 2, got %d", id)
	}
}
