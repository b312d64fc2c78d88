// Copyright (C) 2025 Josh Simonot
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package climate

import (
	"fmt"
	"strings"

	"mideair/internal/metrics"
	"mideair/internal/remote"
	"mideair/pkg/logger"
)

// Driver is the remote-control command surface. Setters only stage
// commands; Transmit sends them as one burst.
type Driver interface {
	PowerOn()
	PowerOff()
	SetMode(m remote.Mode)
	SetTemperature(celsius float64)
	SetSpeedFan(f remote.FanSpeed)
	Transmit() error
}

// Publisher receives the state after every apply cycle.
type Publisher interface {
	PublishState(state OperatingState, applied bool)
}

type MapperOptions struct {
	FanOffKeepsPower bool
}

// Mapper turns sparse requests into remote-control commands. It is not
// safe for concurrent use; the adapter serializes calls.
type Mapper struct {
	driver Driver
	pub    Publisher
	opts   MapperOptions
	log    *logger.Logger
}

func NewMapper(driver Driver, pub Publisher, opts MapperOptions, log *logger.Logger) *Mapper {
	if log == nil {
		log = logger.New("Control")
	}
	return &Mapper{driver: driver, pub: pub, opts: opts, log: log}
}

// Apply runs one apply cycle: power on, translate every present field,
// transmit once, publish once. The returned state is current overlaid
// with the present fields; applied reports whether any field other than
// swing was present.
//
// An empty request is not a no-op: it re-asserts power on and sends the
// pending command state again. When the resulting mode is off the burst
// carries power off, so what is sent always matches what is published.
func (m *Mapper) Apply(current OperatingState, req RequestedChange) (OperatingState, bool) {
	m.log.Debug("control called: %s", describe(req))

	next := current
	applied := false
	poweredOff := false

	m.powerOn()

	if req.Mode != nil {
		next.Mode = *req.Mode
		if !m.applyMode(*req.Mode) {
			poweredOff = true
		}
		applied = true
	}

	if req.TargetTemperature != nil {
		m.log.Debug("sending target temp: %.1f", *req.TargetTemperature)
		m.driver.SetTemperature(*req.TargetTemperature)
		metrics.DriverCommand("set_temperature")
		next.TargetTemperature = *req.TargetTemperature
		applied = true
	}

	if req.FanMode != nil {
		m.log.Debug("requested fan mode is %s", *req.FanMode)
		next.FanMode = *req.FanMode
		if !m.applyFan(*req.FanMode) {
			poweredOff = true
		}
		applied = true
	}

	if req.SwingMode != nil {
		m.log.Info("doing nothing: requested swing mode is %s", *req.SwingMode)
		metrics.IgnoredField("swing_mode")
	}

	if !poweredOff && !isRunning(next.Mode) {
		m.powerOff()
		poweredOff = true
	}

	next.Action = deriveAction(next.Mode, poweredOff)
	m.log.Debug("was heat pump updated? %s", yesNo(applied))

	err := m.driver.Transmit()
	metrics.Transmit(err)
	if err != nil {
		m.log.Error("transmit: %v", err)
	}

	m.pub.PublishState(next, applied)
	metrics.ApplyCycle(applied)
	return next, applied
}

func (m *Mapper) powerOn() {
	m.driver.PowerOn()
	metrics.DriverCommand("power_on")
}

func (m *Mapper) powerOff() {
	m.driver.PowerOff()
	metrics.DriverCommand("power_off")
}

func (m *Mapper) setMode(cmd remote.Mode) {
	m.driver.SetMode(cmd)
	metrics.DriverCommand("set_mode")
}

func (m *Mapper) setFan(cmd remote.FanSpeed) {
	m.driver.SetSpeedFan(cmd)
	metrics.DriverCommand("set_fan")
}

// applyMode issues the mode command and reports whether the unit stays
// powered. Off and unrecognised modes power the unit off.
func (m *Mapper) applyMode(mode Mode) bool {
	switch mode {
	case ModeCool:
		m.setMode(remote.ModeCool)
	case ModeHeat:
		m.setMode(remote.ModeHeat)
	case ModeDry:
		m.setMode(remote.ModeNoHumidity)
	case ModeAuto:
		m.setMode(remote.ModeAuto)
	case ModeFanOnly:
		m.setMode(remote.ModeVentilate)
	default:
		if mode != ModeOff {
			m.log.Warn("unknown mode %q, powering off", mode)
		}
		m.powerOff()
		return false
	}
	return true
}

// applyFan issues the fan command and reports whether the unit stays
// powered. Fan off powers the whole unit off unless FanOffKeepsPower.
func (m *Mapper) applyFan(fan FanMode) bool {
	switch fan {
	case FanOff:
		if m.opts.FanOffKeepsPower {
			m.setFan(remote.FanAuto)
			return true
		}
		m.powerOff()
		return false
	case FanLow:
		m.setFan(remote.FanSpeed1)
	case FanMedium, FanMiddle:
		m.setFan(remote.FanSpeed2)
	case FanHigh:
		m.setFan(remote.FanSpeed3)
	default:
		m.setFan(remote.FanAuto)
	}
	return true
}

func isRunning(mode Mode) bool {
	switch mode {
	case ModeCool, ModeHeat, ModeDry, ModeAuto, ModeFanOnly:
		return true
	default:
		return false
	}
}

func deriveAction(mode Mode, poweredOff bool) Action {
	if poweredOff {
		return ActionOff
	}
	switch mode {
	case ModeCool:
		return ActionCooling
	case ModeHeat:
		return ActionHeating
	case ModeDry:
		return ActionDrying
	case ModeFanOnly:
		return ActionFan
	case ModeAuto:
		return ActionIdle
	default:
		return ActionOff
	}
}

func describe(req RequestedChange) string {
	var b strings.Builder
	b.WriteString("{")
	if req.Mode != nil {
		fmt.Fprintf(&b, " mode=%s", *req.Mode)
	}
	if req.TargetTemperature != nil {
		fmt.Fprintf(&b, " target=%.1f", *req.TargetTemperature)
	}
	if req.FanMode != nil {
		fmt.Fprintf(&b, " fan=%s", *req.FanMode)
	}
	if req.SwingMode != nil {
		fmt.Fprintf(&b, " swing=%s", *req.SwingMode)
	}
	b.WriteString(" }")
	return b.String()
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}
