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
	"log/slog"
	"time"
)

// Engine is the cylinder simulation. On a fixed cadence it reads the
// valve coils, advances cycle counters, and derives the position sensors
// (discrete inputs). The counters are owned exclusively by the engine;
// the only shared state is the RegisterStore, reached through its locked
// operations.
//
// Physics model, per tick:
//
//	valve_extend held for >= threshold ticks -> sensor_end trips
//	valve_retract held for >= threshold ticks -> sensor_home trips
//	neither valve active -> counters hold their last state
//
// When both valves are energized at once the extend branch wins. That
// mirrors the rig this double replaces and is intentionally not
// "corrected" to real cylinder physics.
type Engine struct {
	store *RegisterStore
	opts  *engineOptions

	extendCount  uint
	retractCount uint

	metrics EngineMetrics
}

// EngineMetrics holds simulation metrics.
type EngineMetrics struct {
	Ticks Counter
}

// NewEngine creates a simulation engine bound to store.
func NewEngine(store *RegisterStore, opts ...EngineOption) *Engine {
	options := defaultEngineOptions()
	for _, opt := range opts {
		opt(options)
	}

	return &Engine{
		store: store,
		opts:  options,
	}
}

// Metrics returns the engine metrics.
func (e *Engine) Metrics() *EngineMetrics {
	return &e.metrics
}

// Run drives the simulation until ctx is done. The ticker is best-effort;
// drift under load is acceptable for this device.
func (e *Engine) Run(ctx context.Context) error {
	if e.opts.seedRetracted {
		e.seedRetracted()
	}

	e.opts.logger.Info("simulation started",
		slog.Duration("tick", e.opts.tickPeriod),
		slog.Uint64("threshold", uint64(e.opts.threshold)))

	ticker := time.NewTicker(e.opts.tickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.opts.logger.Info("simulation stopped")
			return ctx.Err()
		case <-ticker.C:
			e.Tick()
		}
	}
}

// seedRetracted marks the cylinder as starting in the home position
// before the first tick. The alternative deployment leaves both sensors
// low until a threshold is first reached.
func (e *Engine) seedRetracted() {
	base := e.store.AddressBase()
	if err := e.store.SetDiscreteInputs(base+InputSensorHome, []bool{true, false}); err != nil {
		e.opts.logger.Error("seed failed", slog.String("error", err.Error()))
	}
}

// Tick runs one simulation cycle. Exported so tests can drive the model
// deterministically without a timer.
func (e *Engine) Tick() {
	base := e.store.AddressBase()

	coils, err := e.store.ReadCoils(base+CoilValveExtend, 2)
	if err != nil {
		// Only possible if the store was built with banks smaller than
		// the device address map.
		e.opts.logger.Error("coil read failed", slog.String("error", err.Error()))
		return
	}
	valveExtend, valveRetract := coils[0], coils[1]

	// Extend is evaluated first and wins when both valves are energized.
	switch {
	case valveExtend:
		e.extendCount++
		e.retractCount = 0
	case valveRetract:
		e.retractCount++
		e.extendCount = 0
	default:
		// Neither valve active: hold last state.
	}

	sensorHome := e.retractCount >= e.opts.threshold ||
		(e.extendCount == 0 && e.retractCount == 0)
	sensorEnd := e.extendCount >= e.opts.threshold

	// One store call for both sensors so a concurrent client read never
	// observes a half-updated pair.
	if err := e.store.SetDiscreteInputs(base+InputSensorHome, []bool{sensorHome, sensorEnd}); err != nil {
		e.opts.logger.Error("sensor write failed", slog.String("error", err.Error()))
		return
	}

	e.metrics.Ticks.Add(1)

	if e.extendCount == e.opts.threshold || e.retractCount == e.opts.threshold {
		e.opts.logger.Info("sensor transition",
			slog.Bool("home", sensorHome),
			slog.Bool("end", sensorEnd),
			slog.Uint64("extend_count", uint64(e.extendCount)),
			slog.Uint64("retract_count", uint64(e.retractCount)))
	}
}
