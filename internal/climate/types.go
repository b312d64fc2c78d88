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

import "strings"

// Mode is the host-facing operating mode. Values outside the constants are
// carried as-is and treated as off by the mapper.
type Mode string

const (
	ModeOff     Mode = "off"
	ModeCool    Mode = "cool"
	ModeHeat    Mode = "heat"
	ModeDry     Mode = "dry"
	ModeAuto    Mode = "auto"
	ModeFanOnly Mode = "fan_only"
)

type FanMode string

const (
	FanOn      FanMode = "on"
	FanOff     FanMode = "off"
	FanAuto    FanMode = "auto"
	FanLow     FanMode = "low"
	FanMedium  FanMode = "medium"
	FanMiddle  FanMode = "middle"
	FanHigh    FanMode = "high"
	FanFocus   FanMode = "focus"
	FanDiffuse FanMode = "diffuse"
)

type SwingMode string

const (
	SwingOff        SwingMode = "off"
	SwingBoth       SwingMode = "both"
	SwingVertical   SwingMode = "vertical"
	SwingHorizontal SwingMode = "horizontal"
)

// Action is what the unit is believed to be doing. Without a feedback
// channel it is derived from the last commands sent.
type Action string

const (
	ActionOff     Action = "off"
	ActionCooling Action = "cooling"
	ActionHeating Action = "heating"
	ActionDrying  Action = "drying"
	ActionIdle    Action = "idle"
	ActionFan     Action = "fan"
)

func ParseMode(s string) Mode {
	return Mode(normalize(s))
}

func ParseFanMode(s string) FanMode {
	return FanMode(normalize(s))
}

func ParseSwingMode(s string) SwingMode {
	return SwingMode(normalize(s))
}

func normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
}

// OperatingState is the adapter's last-known configuration of the unit.
type OperatingState struct {
	Mode              Mode    `json:"mode"`
	TargetTemperature float64 `json:"target_temperature"`
	FanMode           FanMode `json:"fan_mode"`
	Action            Action  `json:"action"`
}

// InitialState is the state before any control request.
func InitialState(targetC float64) OperatingState {
	return OperatingState{
		Mode:              ModeOff,
		TargetTemperature: targetC,
		FanMode:           FanAuto,
		Action:            ActionOff,
	}
}

// RequestedChange is a sparse update; nil fields are left untouched.
type RequestedChange struct {
	Mode              *Mode      `json:"mode,omitempty"`
	TargetTemperature *float64   `json:"target_temperature,omitempty"`
	FanMode           *FanMode   `json:"fan_mode,omitempty"`
	SwingMode         *SwingMode `json:"swing_mode,omitempty"`
}

func (r RequestedChange) WithMode(m Mode) RequestedChange {
	r.Mode = &m
	return r
}

func (r RequestedChange) WithTargetTemperature(c float64) RequestedChange {
	r.TargetTemperature = &c
	return r
}

func (r RequestedChange) WithFanMode(f FanMode) RequestedChange {
	r.FanMode = &f
	return r
}

func (r RequestedChange) WithSwingMode(s SwingMode) RequestedChange {
	r.SwingMode = &s
	return r
}

func (r RequestedChange) IsEmpty() bool {
	return r.Mode == nil && r.TargetTemperature == nil && r.FanMode == nil && r.SwingMode == nil
}

// Normalize applies the Parse* spelling rules to every present field.
func (r RequestedChange) Normalize() RequestedChange {
	if r.Mode != nil {
		r = r.WithMode(ParseMode(string(*r.Mode)))
	}
	if r.FanMode != nil {
		r = r.WithFanMode(ParseFanMode(string(*r.FanMode)))
	}
	if r.SwingMode != nil {
		r = r.WithSwingMode(ParseSwingMode(string(*r.SwingMode)))
	}
	return r
}
