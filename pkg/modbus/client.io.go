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

package modbus

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ReadValue reads a named register. uint16 registers decode to uint16,
// int16 to int16 and bool to bool.
func (c *Client) ReadValue(name string) (any, error) {
	def, ok := c.config.Registers[name]
	if !ok {
		return nil, fmt.Errorf("register %q not configured", name)
	}
	raw, err := c.ReadRegisters(def.Address, 1)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", name, err)
	}
	return decode(def, raw)
}

// WriteValue writes an integer or bool into a named register.
func (c *Client) WriteValue(name string, value any) error {
	def, ok := c.config.Registers[name]
	if !ok {
		return fmt.Errorf("register %q not configured", name)
	}
	if !def.Writable {
		return fmt.Errorf("register %q is read-only", name)
	}
	word, err := encode(def, value)
	if err != nil {
		return fmt.Errorf("register %q: %w", name, err)
	}
	c.log.Debug("write %q (0x%04x) <- 0x%04x", name, def.Address, word)
	if err := c.WriteRegister(def.Address, word); err != nil {
		return fmt.Errorf("write %q: %w", name, err)
	}
	return nil
}

func decode(def RegisterDef, raw []byte) (any, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("short read: %d bytes", len(raw))
	}
	word := binary.BigEndian.Uint16(raw)
	switch def.DataType {
	case "uint16":
		return word, nil
	case "int16":
		return int16(word), nil
	case "bool":
		return word != 0, nil
	default:
		return nil, fmt.Errorf("unsupported data type %q", def.DataType)
	}
}

func encode(def RegisterDef, value any) (uint16, error) {
	if b, ok := value.(bool); ok {
		if def.DataType != "bool" {
			return 0, fmt.Errorf("bool written to %s register", def.DataType)
		}
		if b {
			return 1, nil
		}
		return 0, nil
	}

	n, err := toInt64(value)
	if err != nil {
		return 0, err
	}
	switch def.DataType {
	case "uint16":
		if n < 0 || n > math.MaxUint16 {
			return 0, fmt.Errorf("value %d out of uint16 range", n)
		}
		return uint16(n), nil
	case "int16":
		if n < math.MinInt16 || n > math.MaxInt16 {
			return 0, fmt.Errorf("value %d out of int16 range", n)
		}
		return uint16(int16(n)), nil
	case "bool":
		if n != 0 {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("unsupported data type %q", def.DataType)
	}
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", n)
		}
		return int64(n), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to an integer", v)
	}
}
