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

// Package transmit holds the IR outputs a remote.Remote can send through.
package transmit

import (
	"context"
	"fmt"

	"mideair/internal/config"
	"mideair/internal/remote"
	"mideair/pkg/modbus"
)

// New builds the transmitter selected by conf.Transmitter.Kind.
func New(conf *config.Config) (remote.Transmitter, error) {
	switch conf.Transmitter.Kind {
	case "log":
		return NewLog(), nil
	case "modbus":
		mbcfg, err := modbus.LoadConfig(conf.Resolve(conf.Transmitter.ModbusConfig))
		if err != nil {
			return nil, err
		}
		gw, err := NewGateway(modbus.NewClient(mbcfg))
		if err != nil {
			return nil, err
		}
		return gw, nil
	default:
		return nil, fmt.Errorf("unknown transmitter kind %q", conf.Transmitter.Kind)
	}
}

type logTx struct {
	count int
}

// NewLog returns a dry-run transmitter: frames are logged, never sent.
func NewLog() remote.Transmitter {
	return &logTx{}
}

func (t *logTx) Open(ctx context.Context) error {
	log.Info("dry run, IR frames are only logged")
	return nil
}

func (t *logTx) Send(f remote.Frame) error {
	t.count++
	log.Info("frame #%d %s (%s) bytes % X", t.count, f, f.Command, f.Bytes())
	return nil
}

func (t *logTx) Close() error {
	return nil
}
