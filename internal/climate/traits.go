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
	"slices"

	"mideair/internal/remote"
)

// Hardware limits of the unit, in °C.
const (
	MinTemperature  = remote.MinTemperatureC
	MaxTemperature  = remote.MaxTemperatureC
	TemperatureStep = 1
)

// CapabilityDescriptor tells the host what it may send. It is advisory:
// the mapper copes with any value regardless.
type CapabilityDescriptor struct {
	SupportsCurrentTemperature bool `json:"supports_current_temperature"`
	SupportsAction             bool `json:"supports_action"`
	SupportsTwoPointTarget     bool `json:"supports_two_point_target_temperature"`
	SupportsAway               bool `json:"supports_away"`

	Modes      []Mode      `json:"modes"`
	FanModes   []FanMode   `json:"fan_modes"`
	SwingModes []SwingMode `json:"swing_modes"`

	MinTemperature  float64 `json:"min_temperature"`
	MaxTemperature  float64 `json:"max_temperature"`
	TemperatureStep float64 `json:"temperature_step"`
}

func Traits() CapabilityDescriptor {
	return CapabilityDescriptor{
		SupportsCurrentTemperature: true,
		SupportsAction:             true,
		SupportsTwoPointTarget:     false,
		SupportsAway:               false,

		Modes:      []Mode{ModeOff, ModeAuto, ModeCool, ModeHeat, ModeDry, ModeFanOnly},
		FanModes:   []FanMode{FanAuto, FanLow, FanMedium, FanHigh},
		SwingModes: []SwingMode{},

		MinTemperature:  MinTemperature,
		MaxTemperature:  MaxTemperature,
		TemperatureStep: TemperatureStep,
	}
}

func (d CapabilityDescriptor) SupportsMode(m Mode) bool {
	return slices.Contains(d.Modes, m)
}

func (d CapabilityDescriptor) SupportsFanMode(f FanMode) bool {
	return slices.Contains(d.FanModes, f)
}

func (d CapabilityDescriptor) SupportsSwingMode(s SwingMode) bool {
	return slices.Contains(d.SwingModes, s)
}
