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

package remote

import (
	"fmt"
	"math"
)

// Midea units speak the 24-bit Coolix format: a 0xB2 header, a fan byte
// and a temperature/mode byte. On the wire each byte is followed by its
// complement.
const (
	frameHeader   = 0xB2
	codeOff       = 0xB27BE0
	fanOnlyTemp   = 0b1110
	fanByteFiller = 0x1F
)

// Temperature range the frame can carry, in °C.
const (
	MinTemperatureC = 17
	MaxTemperatureC = 30
)

// temperature nibbles for 17..30 °C
var tempCodes = [...]uint32{
	0b0000, 0b0001, 0b0011, 0b0010, 0b0110, 0b0111, 0b0101,
	0b0100, 0b1100, 0b1101, 0b1001, 0b1000, 0b1010, 0b1011,
}

var modeBits = map[Mode]uint32{
	ModeCool:       0b00,
	ModeNoHumidity: 0b01,
	ModeAuto:       0b10,
	ModeHeat:       0b11,
	ModeVentilate:  0b01,
}

var fanBits = map[FanSpeed]uint32{
	FanAuto:   0b101,
	FanSpeed1: 0b100,
	FanSpeed2: 0b010,
	FanSpeed3: 0b001,
}

const fanBitsFixed = 0b000

// Frame is one encoded IR burst.
type Frame struct {
	Command Command
	Code    uint32
}

func (f Frame) String() string {
	return fmt.Sprintf("0x%06X", f.Code)
}

// Bytes returns the six bytes sent on the wire.
func (f Frame) Bytes() []byte {
	out := make([]byte, 0, 6)
	for shift := 16; shift >= 0; shift -= 8 {
		b := byte(f.Code >> shift)
		out = append(out, b, ^b)
	}
	return out
}

// Encode builds the frame for cmd. Temperatures outside the encoder table
// are clamped; unknown modes or fan speeds fall back to auto.
func Encode(cmd Command) Frame {
	if !cmd.Power {
		return Frame{Command: cmd, Code: codeOff}
	}

	mode, ok := modeBits[cmd.Mode]
	if !ok {
		mode = modeBits[ModeAuto]
	}

	fan, ok := fanBits[cmd.Fan]
	if !ok {
		fan = fanBits[FanAuto]
	}
	// dry and auto run the fan at a unit-chosen speed
	if cmd.Mode == ModeNoHumidity || cmd.Mode == ModeAuto {
		fan = fanBitsFixed
	}

	temp := tempCode(cmd.TemperatureC)
	if cmd.Mode == ModeVentilate {
		temp = fanOnlyTemp
	}

	code := uint32(frameHeader)<<16 |
		(fan<<5|fanByteFiller)<<8 |
		temp<<4 | mode<<2
	return Frame{Command: cmd, Code: code}
}

func tempCode(c float64) uint32 {
	if math.IsNaN(c) {
		c = MinTemperatureC
	}
	t := int(math.Round(c))
	t = max(MinTemperatureC, min(MaxTemperatureC, t))
	return tempCodes[t-MinTemperatureC]
}
