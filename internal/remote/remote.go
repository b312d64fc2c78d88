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

// Package remote models the heat pump's infrared remote control: it keeps
// the cumulative command state the physical remote would hold and, on
// Transmit, hands one encoded frame to a Transmitter.
package remote

import (
	"context"
	"fmt"
	"sync"

	"mideair/pkg/logger"
)

// Mode is a remote-control operating mode button.
type Mode int

const (
	ModeCool Mode = iota
	ModeHeat
	ModeNoHumidity
	ModeAuto
	ModeVentilate
)

func (m Mode) String() string {
	switch m {
	case ModeCool:
		return "cool"
	case ModeHeat:
		return "heat"
	case ModeNoHumidity:
		return "no_humidity"
	case ModeAuto:
		return "auto"
	case ModeVentilate:
		return "ventilate"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// FanSpeed is a remote-control fan button.
type FanSpeed int

const (
	FanAuto FanSpeed = iota
	FanSpeed1
	FanSpeed2
	FanSpeed3
)

func (f FanSpeed) String() string {
	switch f {
	case FanAuto:
		return "auto"
	case FanSpeed1:
		return "speed_1"
	case FanSpeed2:
		return "speed_2"
	case FanSpeed3:
		return "speed_3"
	default:
		return fmt.Sprintf("fan(%d)", int(f))
	}
}

// Command is the full state carried by every IR burst.
type Command struct {
	Power        bool
	Mode         Mode
	TemperatureC float64
	Fan          FanSpeed
}

func (c Command) String() string {
	if !c.Power {
		return "power=off"
	}
	return fmt.Sprintf("power=on mode=%s temp=%.1f°C fan=%s", c.Mode, c.TemperatureC, c.Fan)
}

// Transmitter moves an encoded frame to the IR emitter.
type Transmitter interface {
	// Open prepares the output (pin, gateway link) before the first Send.
	Open(ctx context.Context) error
	Send(frame Frame) error
	Close() error
}

// Remote is the injected remote-control driver. Command setters only touch
// local state; nothing reaches the unit until Transmit.
type Remote struct {
	mu  sync.Mutex
	cmd Command
	tx  Transmitter
	log *logger.Logger

	sent uint64
}

func New(tx Transmitter) *Remote {
	return &Remote{
		tx:  tx,
		log: logger.New("Remote"),
		cmd: Command{
			Mode:         ModeAuto,
			TemperatureC: 24,
			Fan:          FanAuto,
		},
	}
}

func (r *Remote) Open(ctx context.Context) error {
	if err := r.tx.Open(ctx); err != nil {
		return fmt.Errorf("open transmitter: %w", err)
	}
	return nil
}

func (r *Remote) Close() error {
	return r.tx.Close()
}

func (r *Remote) PowerOn() {
	r.mu.Lock()
	r.cmd.Power = true
	r.mu.Unlock()
}

func (r *Remote) PowerOff() {
	r.mu.Lock()
	r.cmd.Power = false
	r.mu.Unlock()
}

func (r *Remote) SetMode(m Mode) {
	r.mu.Lock()
	r.cmd.Mode = m
	r.mu.Unlock()
}

func (r *Remote) SetTemperature(c float64) {
	r.mu.Lock()
	r.cmd.TemperatureC = c
	r.mu.Unlock()
}

func (r *Remote) SetSpeedFan(f FanSpeed) {
	r.mu.Lock()
	r.cmd.Fan = f
	r.mu.Unlock()
}

// Command returns a snapshot of the pending command state.
func (r *Remote) Command() Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cmd
}

// Transmit encodes the cumulative command state and sends it as one burst.
// The link is one-way: a nil error means the frame left this process, not
// that the unit obeyed it.
func (r *Remote) Transmit() error {
	r.mu.Lock()
	cmd := r.cmd
	r.sent++
	seq := r.sent
	r.mu.Unlock()

	frame := Encode(cmd)
	r.log.Debug("emit #%d %s -> %s", seq, cmd, frame)
	if err := r.tx.Send(frame); err != nil {
		return fmt.Errorf("send frame %s: %w", frame, err)
	}
	return nil
}
