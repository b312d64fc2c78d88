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

package climateweb

import (
	"sync"

	"mideair/pkg/logger"

	"github.com/gorilla/websocket"
)

// clientSet serializes every write to its connections; gorilla allows
// only one concurrent writer per conn.
type clientSet struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

func newClientSet() *clientSet {
	return &clientSet{clients: make(map[*websocket.Conn]bool)}
}

// add registers ws and sends it pm (the current state) before any
// broadcast can reach it.
func (c *clientSet) add(ws *websocket.Conn, pm *websocket.PreparedMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clients[ws] = true
	if pm == nil {
		return nil
	}
	if err := ws.WritePreparedMessage(pm); err != nil {
		delete(c.clients, ws)
		return err
	}
	return nil
}

func (c *clientSet) remove(ws *websocket.Conn) {
	c.mu.Lock()
	delete(c.clients, ws)
	c.mu.Unlock()
}

func (c *clientSet) broadcast(pm *websocket.PreparedMessage, log *logger.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for ws := range c.clients {
		if err := ws.WritePreparedMessage(pm); err != nil {
			log.Error("failed to write message: %v", err)
			ws.Close()
			delete(c.clients, ws)
		}
	}
}

func (c *clientSet) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients)
}

func (c *clientSet) closeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for ws := range c.clients {
		ws.Close()
		delete(c.clients, ws)
	}
}
