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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/edgeo-scada/pneusim/internal/transport"
)

// Client is a synchronous Modbus TCP master covering the function codes
// the slave speaks. It exists for the poll tool and the end-to-end tests;
// it does not reconnect.
type Client struct {
	addr string
	opts *clientOptions

	transport *transport.TCPTransport
	txIDGen   TransactionIDGenerator

	mu     sync.Mutex
	closed bool
	logger *slog.Logger
}

// NewClient creates a new Modbus TCP client.
func NewClient(addr string, opts ...ClientOption) (*Client, error) {
	if addr == "" {
		return nil, errors.New("pneusim: address cannot be empty")
	}

	options := defaultClientOptions()
	for _, opt := range opts {
		opt(options)
	}

	return &Client{
		addr:      addr,
		opts:      options,
		transport: transport.NewTCPTransport(addr, options.timeout),
		logger:    options.logger,
	}, nil
}

// Connect establishes a connection to the slave.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClientClosed
	}
	c.mu.Unlock()

	if err := c.transport.Connect(ctx); err != nil {
		return err
	}
	c.logger.Debug("connected", slog.String("addr", c.addr))
	return nil
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return c.transport.Close()
}

// roundTrip sends one PDU and returns the response PDU. An exception
// response comes back as a *ModbusError.
func (c *Client) roundTrip(ctx context.Context, pdu []byte) ([]byte, error) {
	if !c.transport.IsConnected() {
		return nil, ErrNotConnected
	}

	req := &Frame{
		Header: MBAPHeader{
			TransactionID: c.txIDGen.Next(),
			ProtocolID:    ProtocolID,
			UnitID:        c.opts.unitID,
		},
		PDU: pdu,
	}

	raw, err := c.transport.Send(ctx, req.Encode())
	if err != nil {
		return nil, err
	}

	var resp MBAPHeader
	if err := resp.Decode(raw[:MBAPHeaderSize]); err != nil {
		return nil, err
	}
	if resp.TransactionID != req.Header.TransactionID {
		return nil, fmt.Errorf("%w: transaction ID mismatch", ErrInvalidResponse)
	}

	respPDU := raw[MBAPHeaderSize:]
	if len(respPDU) < 1 {
		return nil, fmt.Errorf("%w: empty PDU", ErrInvalidResponse)
	}

	if IsExceptionResponse(respPDU) {
		if modbusErr := ParseExceptionResponse(respPDU); modbusErr != nil {
			return nil, modbusErr
		}
		return nil, fmt.Errorf("%w: truncated exception", ErrInvalidResponse)
	}

	if respPDU[0] != pdu[0] {
		return nil, fmt.Errorf("%w: function code mismatch", ErrInvalidResponse)
	}

	return respPDU, nil
}

// ReadCoils reads qty coils starting at addr (FC01).
func (c *Client) ReadCoils(ctx context.Context, addr, qty uint16) ([]bool, error) {
	pdu, err := BuildReadCoilsPDU(addr, qty)
	if err != nil {
		return nil, err
	}
	resp, err := c.roundTrip(ctx, pdu)
	if err != nil {
		return nil, err
	}
	return ParseCoilsResponse(resp, qty)
}

// ReadDiscreteInputs reads qty discrete inputs starting at addr (FC02).
func (c *Client) ReadDiscreteInputs(ctx context.Context, addr, qty uint16) ([]bool, error) {
	pdu, err := BuildReadDiscreteInputsPDU(addr, qty)
	if err != nil {
		return nil, err
	}
	resp, err := c.roundTrip(ctx, pdu)
	if err != nil {
		return nil, err
	}
	return ParseCoilsResponse(resp, qty)
}

// WriteSingleCoil writes one coil (FC05).
func (c *Client) WriteSingleCoil(ctx context.Context, addr uint16, value bool) error {
	pdu := BuildWriteSingleCoilPDU(addr, value)
	resp, err := c.roundTrip(ctx, pdu)
	if err != nil {
		return err
	}
	expected := CoilOff
	if value {
		expected = CoilOn
	}
	return ParseWriteResponse(resp, addr, expected)
}

// WriteMultipleCoils writes len(values) coils starting at addr (FC15).
func (c *Client) WriteMultipleCoils(ctx context.Context, addr uint16, values []bool) error {
	pdu, err := BuildWriteMultipleCoilsPDU(addr, values)
	if err != nil {
		return err
	}
	resp, err := c.roundTrip(ctx, pdu)
	if err != nil {
		return err
	}
	return ParseWriteMultipleResponse(resp, addr, uint16(len(values)))
}
