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
	"log/slog"
	"time"
)

// StoreOption is a functional option for configuring the register store.
type StoreOption func(*storeOptions)

type storeOptions struct {
	bankSize    int
	addressBase uint16
}

func defaultStoreOptions() *storeOptions {
	return &storeOptions{
		bankSize:    BankSize,
		addressBase: 0,
	}
}

// WithBankSize sets the length of every register bank.
func WithBankSize(n int) StoreOption {
	return func(o *storeOptions) {
		if n > 0 {
			o.bankSize = n
		}
	}
}

// WithAddressBase sets the wire address of the first element of every
// bank. The two known deployments use 0 and 1.
func WithAddressBase(base uint16) StoreOption {
	return func(o *storeOptions) {
		o.addressBase = base
	}
}

// ServerOption is a functional option for configuring the server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	logger      *slog.Logger
	maxConns    int
	readTimeout time.Duration
}

func defaultServerOptions() *serverOptions {
	return &serverOptions{
		logger:      slog.Default(),
		maxConns:    100,
		readTimeout: 0, // idle masters are normal between test steps
	}
}

// WithServerLogger sets the logger for the server.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(o *serverOptions) {
		o.logger = logger
	}
}

// WithMaxConnections sets the maximum number of concurrent connections.
func WithMaxConnections(n int) ServerOption {
	return func(o *serverOptions) {
		o.maxConns = n
	}
}

// WithReadTimeout sets an idle read timeout for client connections.
// Zero disables it.
func WithReadTimeout(d time.Duration) ServerOption {
	return func(o *serverOptions) {
		o.readTimeout = d
	}
}

// EngineOption is a functional option for configuring the simulation engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	logger        *slog.Logger
	tickPeriod    time.Duration
	threshold     uint
	seedRetracted bool
}

func defaultEngineOptions() *engineOptions {
	return &engineOptions{
		logger:        slog.Default(),
		tickPeriod:    DefaultTickPeriod,
		threshold:     DefaultSensorThreshold,
		seedRetracted: true,
	}
}

// WithEngineLogger sets the logger for the engine.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// WithTickPeriod sets the simulation cycle time.
func WithTickPeriod(d time.Duration) EngineOption {
	return func(o *engineOptions) {
		if d > 0 {
			o.tickPeriod = d
		}
	}
}

// WithThreshold sets how many consecutive cycles a valve must be held
// before the corresponding sensor trips. Values below 1 are clamped to 1
// so the two sensors can never be derived true at once.
func WithThreshold(n uint) EngineOption {
	return func(o *engineOptions) {
		if n < 1 {
			n = 1
		}
		o.threshold = n
	}
}

// WithSeedRetracted controls the startup state. When true the cylinder
// starts retracted (sensor_home high) before the first tick; when false
// both sensors stay low until the first tick runs.
func WithSeedRetracted(seed bool) EngineOption {
	return func(o *engineOptions) {
		o.seedRetracted = seed
	}
}

// ClientOption is a functional option for configuring the client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	unitID  UnitID
	timeout time.Duration
	logger  *slog.Logger
}

func defaultClientOptions() *clientOptions {
	return &clientOptions{
		unitID:  1,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
}

// WithUnitID sets the unit ID sent with requests.
func WithUnitID(id UnitID) ClientOption {
	return func(o *clientOptions) {
		o.unitID = id
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.timeout = d
	}
}

// WithClientLogger sets the logger for the client.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(o *clientOptions) {
		o.logger = logger
	}
}
