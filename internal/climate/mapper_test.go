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
	"errors"
	"fmt"
	"io"
	"testing"

	"mideair/internal/remote"
	"mideair/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDriver records every call in order.
type fakeDriver struct {
	calls       []string
	transmitErr error
	opened      bool
	closed      bool
	openErr     error
}

func (d *fakeDriver) PowerOn()              { d.calls = append(d.calls, "power_on") }
func (d *fakeDriver) PowerOff()             { d.calls = append(d.calls, "power_off") }
func (d *fakeDriver) SetMode(m remote.Mode) { d.calls = append(d.calls, "mode:"+m.String()) }

func (d *fakeDriver) SetSpeedFan(f remote.FanSpeed) {
	d.calls = append(d.calls, "fan:"+f.String())
}

func (d *fakeDriver) SetTemperature(c float64) {
	d.calls = append(d.calls, fmt.Sprintf("temp:%.1f", c))
}

func (d *fakeDriver) Transmit() error {
	d.calls = append(d.calls, "transmit")
	return d.transmitErr
}

func (d *fakeDriver) Open(ctx context.Context) error {
	d.opened = true
	return d.openErr
}

func (d *fakeDriver) Close() error {
	d.closed = true
	return nil
}

func (d *fakeDriver) count(call string) int {
	n := 0
	for _, c := range d.calls {
		if c == call {
			n++
		}
	}
	return n
}

type published struct {
	state   OperatingState
	applied bool
}

type fakePublisher struct {
	states []published
	// driver call count at publish time, to check ordering
	callsAtPublish []int
	driver         *fakeDriver
}

func (p *fakePublisher) PublishState(state OperatingState, applied bool) {
	p.states = append(p.states, published{state, applied})
	if p.driver != nil {
		p.callsAtPublish = append(p.callsAtPublish, len(p.driver.calls))
	}
}

func newTestMapper(opts MapperOptions) (*Mapper, *fakeDriver, *fakePublisher) {
	d := &fakeDriver{}
	p := &fakePublisher{driver: d}
	log := logger.New("test").WithWriter(io.Discard)
	return NewMapper(d, p, opts, log), d, p
}

func coolingState() OperatingState {
	return OperatingState{Mode: ModeCool, TargetTemperature: 24, FanMode: FanAuto, Action: ActionCooling}
}

func TestApplyEmptyRequestStillTransmits(t *testing.T) {
	m, d, p := newTestMapper(MapperOptions{})
	current := coolingState()

	next, applied := m.Apply(current, RequestedChange{})

	assert.False(t, applied)
	assert.Equal(t, []string{"power_on", "transmit"}, d.calls)
	require.Len(t, p.states, 1)
	assert.Equal(t, current.Mode, next.Mode)
	assert.Equal(t, current.TargetTemperature, next.TargetTemperature)
	assert.Equal(t, current.FanMode, next.FanMode)
	assert.False(t, p.states[0].applied)
	assert.Equal(t, ActionCooling, next.Action)
}

func TestApplyEmptyRequestWhileOffStaysOff(t *testing.T) {
	m, d, _ := newTestMapper(MapperOptions{})

	next, _ := m.Apply(InitialState(24), RequestedChange{})

	assert.Equal(t, []string{"power_on", "power_off", "transmit"}, d.calls)
	assert.Equal(t, 1, d.count("power_on"))
	assert.Equal(t, ModeOff, next.Mode)
	assert.Equal(t, ActionOff, next.Action)
}

func TestApplyFieldsWhileOffKeepUnitOff(t *testing.T) {
	m, d, _ := newTestMapper(MapperOptions{})

	next, applied := m.Apply(InitialState(24), RequestedChange{}.WithTargetTemperature(20).WithFanMode(FanMiddle))

	assert.True(t, applied)
	assert.Equal(t, []string{"power_on", "temp:20.0", "fan:speed_2", "power_off", "transmit"}, d.calls)
	assert.Equal(t, ModeOff, next.Mode)
	assert.Equal(t, ActionOff, next.Action)
}

func TestApplyModeTranslation(t *testing.T) {
	tests := []struct {
		mode   Mode
		want   string
		action Action
	}{
		{ModeCool, "mode:cool", ActionCooling},
		{ModeHeat, "mode:heat", ActionHeating},
		{ModeDry, "mode:no_humidity", ActionDrying},
		{ModeAuto, "mode:auto", ActionIdle},
		{ModeFanOnly, "mode:ventilate", ActionFan},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			m, d, _ := newTestMapper(MapperOptions{})
			next, applied := m.Apply(InitialState(24), RequestedChange{}.WithMode(tt.mode))

			assert.True(t, applied)
			assert.Equal(t, []string{"power_on", tt.want, "transmit"}, d.calls)
			assert.Equal(t, tt.mode, next.Mode)
			assert.Equal(t, tt.action, next.Action)
			assert.Zero(t, d.count("power_off"))
		})
	}
}

func TestApplyModeOffPowersOff(t *testing.T) {
	m, d, _ := newTestMapper(MapperOptions{})
	next, applied := m.Apply(InitialState(24), RequestedChange{}.WithMode(ModeOff))

	assert.True(t, applied)
	assert.Equal(t, []string{"power_on", "power_off", "transmit"}, d.calls)
	assert.Equal(t, ModeOff, next.Mode)
	assert.Equal(t, ActionOff, next.Action)
}

func TestApplyUnknownModePowersOff(t *testing.T) {
	m, d, _ := newTestMapper(MapperOptions{})
	next, _ := m.Apply(InitialState(24), RequestedChange{}.WithMode(ParseMode("Heat-Cool")))

	assert.Equal(t, 1, d.count("power_off"))
	assert.Equal(t, Mode("heat_cool"), next.Mode)
	assert.Equal(t, ActionOff, next.Action)
}

func TestApplyOffWinsOverFanAndTemperature(t *testing.T) {
	m, d, _ := newTestMapper(MapperOptions{})
	req := RequestedChange{}.WithMode(ModeOff).WithTargetTemperature(21).WithFanMode(FanHigh)

	next, _ := m.Apply(InitialState(24), req)

	// the commands are still staged but the final power command is off
	assert.Equal(t, []string{"power_on", "power_off", "temp:21.0", "fan:speed_3", "transmit"}, d.calls)
	assert.Equal(t, 21.0, next.TargetTemperature)
	assert.Equal(t, ActionOff, next.Action)
}

func TestApplyFanTranslation(t *testing.T) {
	tests := []struct {
		fan  FanMode
		want string
	}{
		{FanLow, "fan:speed_1"},
		{FanMedium, "fan:speed_2"},
		{FanMiddle, "fan:speed_2"},
		{FanHigh, "fan:speed_3"},
		{FanAuto, "fan:auto"},
		{FanOn, "fan:auto"},
		{FanFocus, "fan:auto"},
		{FanDiffuse, "fan:auto"},
		{FanMode("turbo"), "fan:auto"},
	}
	for _, tt := range tests {
		t.Run(string(tt.fan), func(t *testing.T) {
			m, d, _ := newTestMapper(MapperOptions{})
			next, applied := m.Apply(coolingState(), RequestedChange{}.WithFanMode(tt.fan))

			assert.True(t, applied)
			assert.Equal(t, []string{"power_on", tt.want, "transmit"}, d.calls)
			assert.Equal(t, tt.fan, next.FanMode)
		})
	}
}

func TestApplyFanOffPowersOff(t *testing.T) {
	m, d, _ := newTestMapper(MapperOptions{})
	current := InitialState(24)
	current.Mode = ModeCool

	next, applied := m.Apply(current, RequestedChange{}.WithFanMode(FanOff))

	assert.True(t, applied)
	assert.Equal(t, []string{"power_on", "power_off", "transmit"}, d.calls)
	assert.Equal(t, FanOff, next.FanMode)
	assert.Equal(t, ModeCool, next.Mode)
	assert.Equal(t, ActionOff, next.Action)
}

func TestApplyFanOffKeepsPower(t *testing.T) {
	m, d, _ := newTestMapper(MapperOptions{FanOffKeepsPower: true})
	current := InitialState(24)
	current.Mode = ModeHeat

	next, _ := m.Apply(current, RequestedChange{}.WithFanMode(FanOff))

	assert.Equal(t, []string{"power_on", "fan:auto", "transmit"}, d.calls)
	assert.Equal(t, FanOff, next.FanMode)
	assert.Equal(t, ActionHeating, next.Action)
}

func TestApplySwingIsIgnored(t *testing.T) {
	m, d, p := newTestMapper(MapperOptions{})
	current := coolingState()

	next, applied := m.Apply(current, RequestedChange{}.WithSwingMode(SwingBoth))

	assert.False(t, applied)
	assert.Equal(t, []string{"power_on", "transmit"}, d.calls)
	assert.Equal(t, current, next)
	require.Len(t, p.states, 1)
	assert.False(t, p.states[0].applied)
}

func TestApplyTemperaturePassesThrough(t *testing.T) {
	m, d, _ := newTestMapper(MapperOptions{})

	// out-of-range values reach the driver untouched; the encoder clamps
	next, _ := m.Apply(coolingState(), RequestedChange{}.WithTargetTemperature(35.5))

	assert.Equal(t, []string{"power_on", "temp:35.5", "transmit"}, d.calls)
	assert.Equal(t, 35.5, next.TargetTemperature)
}

// Every combination of present fields produces exactly one transmit
// followed by exactly one publish, and the result is current overlaid
// with the present fields.
func TestApplyOneTransmitOnePublishPerCall(t *testing.T) {
	current := OperatingState{Mode: ModeHeat, TargetTemperature: 22, FanMode: FanLow, Action: ActionHeating}

	for mask := range 16 {
		var req RequestedChange
		if mask&1 != 0 {
			req = req.WithMode(ModeCool)
		}
		if mask&2 != 0 {
			req = req.WithTargetTemperature(19)
		}
		if mask&4 != 0 {
			req = req.WithFanMode(FanHigh)
		}
		if mask&8 != 0 {
			req = req.WithSwingMode(SwingVertical)
		}

		t.Run(fmt.Sprintf("mask=%04b", mask), func(t *testing.T) {
			m, d, p := newTestMapper(MapperOptions{})
			next, applied := m.Apply(current, req)

			assert.Equal(t, 1, d.count("transmit"))
			assert.Equal(t, "power_on", d.calls[0])
			assert.Equal(t, "transmit", d.calls[len(d.calls)-1])
			require.Len(t, p.states, 1)
			assert.Equal(t, len(d.calls), p.callsAtPublish[0], "publish must follow transmit")
			assert.Equal(t, next, p.states[0].state)
			assert.Equal(t, mask&7 != 0, applied)

			want := current
			if req.Mode != nil {
				want.Mode = *req.Mode
			}
			if req.TargetTemperature != nil {
				want.TargetTemperature = *req.TargetTemperature
			}
			if req.FanMode != nil {
				want.FanMode = *req.FanMode
			}
			assert.Equal(t, want.Mode, next.Mode)
			assert.Equal(t, want.TargetTemperature, next.TargetTemperature)
			assert.Equal(t, want.FanMode, next.FanMode)
		})
	}
}

func TestApplyDoesNotMutateCurrent(t *testing.T) {
	m, _, _ := newTestMapper(MapperOptions{})
	current := InitialState(24)
	before := current

	m.Apply(current, RequestedChange{}.WithMode(ModeCool).WithTargetTemperature(18))

	assert.Equal(t, before, current)
}

func TestApplyTransmitErrorStillPublishes(t *testing.T) {
	m, d, p := newTestMapper(MapperOptions{})
	d.transmitErr = errors.New("gateway down")

	next, applied := m.Apply(InitialState(24), RequestedChange{}.WithMode(ModeHeat))

	assert.True(t, applied)
	require.Len(t, p.states, 1)
	assert.Equal(t, ModeHeat, next.Mode)
}

func TestApplyDrivesRealRemote(t *testing.T) {
	tx := &frameRecorder{}
	r := remote.New(tx)
	p := &fakePublisher{}
	m := NewMapper(r, p, MapperOptions{}, logger.New("test").WithWriter(io.Discard))

	state := InitialState(24)
	state, _ = m.Apply(state, RequestedChange{}.WithMode(ModeCool).WithFanMode(FanAuto))
	state, _ = m.Apply(state, RequestedChange{}.WithMode(ModeOff))
	_, _ = m.Apply(state, RequestedChange{}.WithMode(ModeHeat).WithTargetTemperature(30).WithFanMode(FanHigh))

	require.Len(t, tx.frames, 3)
	assert.Equal(t, uint32(0xB2BF40), tx.frames[0].Code)
	assert.Equal(t, uint32(0xB27BE0), tx.frames[1].Code)
	assert.Equal(t, uint32(0xB23FBC), tx.frames[2].Code)
}

type frameRecorder struct {
	frames []remote.Frame
}

func (f *frameRecorder) Open(ctx context.Context) error { return nil }
func (f *frameRecorder) Close() error                   { return nil }
func (f *frameRecorder) Send(fr remote.Frame) error {
	f.frames = append(f.frames, fr)
	return nil
}

func TestApplySequenceOverlaysPresentFields(t *testing.T) {
	m, d, p := newTestMapper(MapperOptions{})
	reqs := []RequestedChange{
		RequestedChange{}.WithMode(ModeCool),
		RequestedChange{}.WithTargetTemperature(20),
		RequestedChange{}.WithFanMode(FanLow).WithSwingMode(SwingHorizontal),
		RequestedChange{}.WithMode(ModeDry).WithTargetTemperature(26),
		{},
	}

	state := InitialState(24)
	for _, req := range reqs {
		state, _ = m.Apply(state, req)
	}

	assert.Equal(t, ModeDry, state.Mode)
	assert.Equal(t, 26.0, state.TargetTemperature)
	assert.Equal(t, FanLow, state.FanMode)
	assert.Equal(t, ActionDrying, state.Action)
	assert.Equal(t, len(reqs), d.count("transmit"))
	assert.Equal(t, len(reqs), d.count("power_on"))
	assert.Len(t, p.states, len(reqs))
}
