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
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Modbus    ConnConfig             `yaml:"modbus"`
	Registers map[string]RegisterDef `yaml:"registers"`
}

type ConnConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	SlaveID byte   `yaml:"slave_id"`
	Timeout int    `yaml:"timeout"` // seconds
}

type RegisterDef struct {
	Address     uint16 `yaml:"address"`
	DataType    string `yaml:"data_type"` // "uint16", "int16", "bool"
	Description string `yaml:"description"`
	Writable    bool   `yaml:"writable"`
}

// LoadConfig reads a YAML register map.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read modbus config: %w", err)
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode modbus config: %w", err)
	}
	if c.Modbus.Port == 0 {
		c.Modbus.Port = 502
	}
	if c.Modbus.Timeout == 0 {
		c.Modbus.Timeout = 2
	}
	if c.Modbus.SlaveID == 0 {
		c.Modbus.SlaveID = 1
	}
	return &c, nil
}

// Require checks that every named register exists and, when writable is
// set, that it is marked writable.
func (c *Config) Require(writable bool, names ...string) error {
	for _, name := range names {
		def, ok := c.Registers[name]
		if !ok {
			return fmt.Errorf("register %q not configured", name)
		}
		if writable && !def.Writable {
			return fmt.Errorf("register %q is not writable", name)
		}
		switch def.DataType {
		case "uint16", "int16", "bool":
		default:
			return fmt.Errorf("register %q: unsupported data type %q", name, def.DataType)
		}
	}
	return nil
}
