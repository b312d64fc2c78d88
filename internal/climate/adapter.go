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
	"context"
	"fmt"
	"time"

	"mideair/internal/config"
	"mideair/internal/metrics"
	"mideair/internal/remote"
	"mideair/pkg/logger"
)

const Version = "1.2.0"

// Device is a Driver whose output must be opened before the first burst.
type Device interface {
	Driver
	Open(ctx context.Context) error
	Close() error
}

// Adapter owns the operating state and is the host-facing component:
// Setup once, then Run drives the status tick and applies queued
// control requests one at a time on a single goroutine.
type Adapter struct {
	conf     config.ClimateConfig
	device   Device
	pub      Publisher
	mapper   *Mapper
	state    OperatingState
	requests chan RequestedChange
	interval time.Duration
	log      *logger.Logger
}

func NewAdapter(conf *config.Config, device Device, pub Publisher) *Adapter {
	log := logger.New(conf.Climate.Name)
	interval := time.Duration(conf.Climate.UpdateIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = config.DefaultUpdateIntervalMs * time.Millisecond
	}
	return &Adapter{
		conf:     conf.Climate,
		device:   device,
		pub:      pub,
		mapper:   NewMapper(device, pub, MapperOptions{FanOffKeepsPower: conf.Climate.FanOffKeepsPower}, log),
		state:    InitialState(conf.Climate.InitialTargetC),
		requests: make(chan RequestedChange, 8),
		interval: interval,
		log:      log,
	}
}

// Setup opens the transmitter output. An error here must stop the host
// from ever calling Control.
func (a *Adapter) Setup(ctx context.Context) error {
	if err := a.device.Open(ctx); err != nil {
		return fmt.Errorf("setup %s: %w", a.conf.Name, err)
	}
	a.seed()
	a.DumpConfig()
	a.pub.PublishState(a.state, false)
	return nil
}

// seed stages the initial state on the driver so the first burst carries
// the published target and fan. Nothing is transmitted.
func (a *Adapter) seed() {
	a.device.PowerOff()
	a.device.SetTemperature(a.state.TargetTemperature)
	a.device.SetSpeedFan(remote.FanAuto)
}

func (a *Adapter) Traits() CapabilityDescriptor {
	return Traits()
}

// Control queues a request for the next apply cycle. It never blocks and
// reports false when the queue is full and the request was dropped.
func (a *Adapter) Control(req RequestedChange) bool {
	select {
	case a.requests <- req:
		return true
	default:
		a.log.Error("control queue full, dropping request %s", describe(req))
		return false
	}
}

// Update is the periodic status tick. No command is sent to the unit.
func (a *Adapter) Update() {
	metrics.ObserveState(string(a.state.Mode), a.state.TargetTemperature)
	if logger.IsDebug() {
		a.DumpState()
	}
}

func (a *Adapter) Run(ctx context.Context) {
	a.log.Info("running, status every %v", a.interval)
	defer a.log.Info("stopped")
	defer func() {
		if err := a.device.Close(); err != nil {
			a.log.Error("close transmitter: %v", err)
		}
	}()

	tick := time.NewTicker(a.interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			a.Update()
		case req := <-a.requests:
			a.apply(req)
		}
	}
}

func (a *Adapter) apply(req RequestedChange) {
	a.state, _ = a.mapper.Apply(a.state, req)
}

// State returns the last applied state. Call only between apply cycles,
// e.g. from the Run goroutine or before Run starts.
func (a *Adapter) State() OperatingState {
	return a.state
}

func (a *Adapter) banner() {
	a.log.Info("mideair version %s", Version)
}

func (a *Adapter) DumpConfig() {
	a.banner()
	t := a.Traits()
	a.log.Info("  supports HEAT: %s", yesNo(t.SupportsMode(ModeHeat)))
	a.log.Info("  supports COOL: %s", yesNo(t.SupportsMode(ModeCool)))
	a.log.Info("  temperature: %d..%d step %d", MinTemperature, MaxTemperature, TemperatureStep)
	a.log.Info("  fan off powers unit off: %s", yesNo(!a.conf.FanOffKeepsPower))
}

func (a *Adapter) DumpState() {
	a.log.Info("state: mode=%s target=%.1f fan=%s action=%s",
		a.state.Mode, a.state.TargetTemperature, a.state.FanMode, a.state.Action)
}
