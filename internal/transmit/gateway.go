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

package transmit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mideair/internal/remote"
	"mideair/pkg/logger"
	"mideair/pkg/modbus"
)

var log = logger.New("Transmit")

// register names the gateway's map must define, all writable
const (
	regCodeHigh = "ir_code_high"
	regCodeLow  = "ir_code_low"
	regSend     = "ir_send"
)

// registerClient is the part of *modbus.Client the gateway uses.
type registerClient interface {
	Config() *modbus.Config
	Connect(ctx context.Context) error
	ReadValue(name string) (any, error)
	WriteValue(name string, value any) error
	Close()
}

// Gateway sends frames through an IR-to-Modbus bridge: the 24-bit code is
// split over two holding registers, then the send register is raised.
type Gateway struct {
	client registerClient

	mu      sync.Mutex
	history []SentFrame
}

// SentFrame is one Send attempt, kept for the gateway page.
type SentFrame struct {
	Timestamp time.Time `json:"timestamp"`
	Code      string    `json:"code"`
	Command   string    `json:"command"`
	Error     string    `json:"error,omitempty"`
}

const historyLen = 50

func NewGateway(client registerClient) (*Gateway, error) {
	if err := client.Config().Require(true, regCodeHigh, regCodeLow, regSend); err != nil {
		return nil, fmt.Errorf("ir gateway register map: %w", err)
	}
	return &Gateway{client: client}, nil
}

func (g *Gateway) Open(ctx context.Context) error {
	cfg := g.client.Config().Modbus
	if err := g.client.Connect(ctx); err != nil {
		return fmt.Errorf("connect ir gateway %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	log.Info("connected to ir gateway %s:%d", cfg.Host, cfg.Port)
	return nil
}

func (g *Gateway) Send(f remote.Frame) error {
	err := g.send(f)
	g.record(f, err)
	return err
}

func (g *Gateway) send(f remote.Frame) error {
	high := uint16(f.Code >> 16)
	low := uint16(f.Code & 0xFFFF)

	if err := g.client.WriteValue(regCodeHigh, high); err != nil {
		return err
	}
	if err := g.client.WriteValue(regCodeLow, low); err != nil {
		return err
	}
	if err := g.client.WriteValue(regSend, true); err != nil {
		return err
	}
	log.Debug("sent %s", f)
	return nil
}

func (g *Gateway) record(f remote.Frame, err error) {
	entry := SentFrame{Timestamp: time.Now(), Code: f.String(), Command: f.Command.String()}
	if err != nil {
		entry.Error = err.Error()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.history = append(g.history, entry)
	if len(g.history) > historyLen {
		g.history = g.history[len(g.history)-historyLen:]
	}
}

// History returns the most recent sends, oldest first.
func (g *Gateway) History() []SentFrame {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]SentFrame(nil), g.history...)
}

func (g *Gateway) Close() error {
	g.client.Close()
	return nil
}
