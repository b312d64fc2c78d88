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
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"mideair/pkg/logger"

	wrapper "github.com/grid-x/modbus"
)

const defaultTimeout = 2 * time.Second

var errNotConnected = errors.New("modbus: not connected")

type Client struct {
	mu      sync.Mutex
	handler *wrapper.TCPClientHandler
	client  wrapper.Client
	config  *Config
	log     *logger.Logger
	ctx     context.Context
}

// NewClient returns an unconnected client; call Connect before use.
func NewClient(config *Config) *Client {
	return &Client{
		config: config,
		log:    logger.New("ModbusConn"),
		ctx:    context.Background(),
	}
}

func (c *Client) Config() *Config {
	return c.config
}

func (c *Client) timeout() time.Duration {
	if c.config.Modbus.Timeout <= 0 {
		return defaultTimeout
	}
	return time.Second * time.Duration(c.config.Modbus.Timeout)
}

// Connect makes a single connection attempt. ctx is also the parent of
// every later request and reconnect.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()
	return c.connect()
}

// connect makes one attempt, bounded by the configured timeout.
func (c *Client) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handler != nil {
		_ = c.handler.Close()
		c.handler = nil
		c.client = nil
	}

	url := fmt.Sprintf("%s:%d", c.config.Modbus.Host, c.config.Modbus.Port)
	handler := wrapper.NewTCPClientHandler(url)
	handler.SlaveID = c.config.Modbus.SlaveID
	handler.Timeout = c.timeout()
	handler.ProtocolRecoveryTimeout = 250 * time.Millisecond
	handler.LinkRecoveryTimeout = c.timeout()

	ctx, cancel := context.WithTimeout(c.ctx, c.timeout())
	defer cancel()

	c.log.Info("connecting to %s...", url)
	if err := handler.Connect(ctx); err != nil {
		return fmt.Errorf("modbus connect %s: %w", url, err)
	}

	c.handler = handler
	c.client = wrapper.NewClient(handler)
	c.log.Info("connected to %s", url)
	return nil
}

// retry runs op once more after a single reconnect when it fails on a
// broken link. A failed reconnect is returned, never waited out; the next
// call tries again.
func (c *Client) retry(op func(ctx context.Context) error) error {
	err := c.withTimeout(op)
	if err == nil || !isConnError(err) {
		return err
	}
	c.log.Error("connection error: %v, reconnecting", err)
	if rerr := c.connect(); rerr != nil {
		return fmt.Errorf("%w (reconnect: %v)", err, rerr)
	}
	return c.withTimeout(op)
}

func (c *Client) withTimeout(op func(ctx context.Context) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return errNotConnected
	}
	ctx, cancel := context.WithTimeout(c.ctx, c.timeout())
	defer cancel()
	return op(ctx)
}

// WriteRegister writes a single holding register.
func (c *Client) WriteRegister(addr, value uint16) error {
	return c.retry(func(ctx context.Context) error {
		_, err := c.client.WriteSingleRegister(ctx, addr, value)
		return err
	})
}

// ReadRegisters reads holding registers.
func (c *Client) ReadRegisters(addr, quantity uint16) ([]byte, error) {
	var data []byte
	err := c.retry(func(ctx context.Context) error {
		var rerr error
		data, rerr = c.client.ReadHoldingRegisters(ctx, addr, quantity)
		return rerr
	})
	return data, err
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handler != nil {
		_ = c.handler.Close()
		c.handler = nil
		c.client = nil
	}
}

func isConnError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, errNotConnected) {
		return true
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "closed by the remote host") ||
		strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "connection refused")
}
