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

package mqttbridge

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"mideair/internal/climate"
	"mideair/internal/config"
	"mideair/internal/events"
	"mideair/pkg/eventbus"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type message struct {
	payload []byte
	retain  bool
}

type fakeClient struct {
	mu        sync.Mutex
	handlers  map[string]Handler
	published map[string]message
	closed    bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{handlers: map[string]Handler{}, published: map[string]message{}}
}

func (c *fakeClient) Subscribe(topic string, cb Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[topic] = cb
	return nil
}

func (c *fakeClient) PublishWith(topic string, payload []byte, retain bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published[topic] = message{payload, retain}
	return nil
}

func (c *fakeClient) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeClient) deliver(topic, payload string) {
	c.mu.Lock()
	cb := c.handlers[topic]
	c.mu.Unlock()
	cb(topic, []byte(payload))
}

func (c *fakeClient) get(topic string) (message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.published[topic]
	return m, ok
}

type fakeController struct {
	reqs []climate.RequestedChange
}

func (c *fakeController) Control(req climate.RequestedChange) bool {
	c.reqs = append(c.reqs, req)
	return true
}

func (c *fakeController) Traits() climate.CapabilityDescriptor { return climate.Traits() }

func testConfig(bus *eventbus.Bus) *config.Config {
	return &config.Config{
		Climate:  config.ClimateConfig{Name: "Living room"},
		MQTT:     config.MQTTConfig{Prefix: "mideair", DiscoveryPrefix: "homeassistant"},
		EventBus: bus,
	}
}

func TestUniqueIDIsStable(t *testing.T) {
	conf := testConfig(nil)
	id := UniqueID(conf)
	assert.Len(t, id, 36)
	assert.Equal(t, id, UniqueID(conf))

	conf.Climate.Name = "Bedroom"
	assert.NotEqual(t, id, UniqueID(conf))

	conf.MQTT.UniqueID = "ac1"
	assert.Equal(t, "ac1", UniqueID(conf))
}

func TestClientID(t *testing.T) {
	conf := testConfig(nil)
	assert.Equal(t, "mideair-"+UniqueID(conf)[:8], clientID(conf))

	for _, id := range []string{"ac1", "", "x", "12345678", "livingroom"} {
		conf.MQTT.UniqueID = id
		got := clientID(conf)
		assert.True(t, strings.HasPrefix(got, "mideair-"), got)
		assert.LessOrEqual(t, len(got), len("mideair-")+8)
	}

	conf.MQTT.UniqueID = "ac1"
	assert.Equal(t, "mideair-ac1", clientID(conf))
	conf.MQTT.UniqueID = "livingroom"
	assert.Equal(t, "mideair-livingro", clientID(conf))
}

func TestStartPublishesDiscovery(t *testing.T) {
	conf := testConfig(nil)
	conf.MQTT.UniqueID = "ac1"
	client := newFakeClient()
	b := New(conf, client, &fakeController{})

	require.NoError(t, b.Start())

	for _, topic := range []string{"mideair/mode/set", "mideair/temperature/set", "mideair/fan_mode/set", "mideair/swing_mode/set"} {
		assert.Contains(t, client.handlers, topic)
	}

	msg, ok := client.get("homeassistant/climate/ac1/config")
	require.True(t, ok)
	assert.True(t, msg.retain)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(msg.payload, &doc))
	assert.Equal(t, "Living room", doc["name"])
	assert.Equal(t, "ac1", doc["unique_id"])
	assert.Equal(t, []any{"off", "auto", "cool", "heat", "dry", "fan_only"}, doc["modes"])
	assert.Equal(t, []any{"auto", "low", "medium", "high"}, doc["fan_modes"])
	assert.NotContains(t, doc, "swing_modes")
	assert.NotContains(t, doc, "swing_mode_command_topic")
	assert.Equal(t, 17.0, doc["min_temp"])
	assert.Equal(t, 30.0, doc["max_temp"])
	assert.Equal(t, "mideair/state", doc["mode_state_topic"])
	assert.Equal(t, "mideair/state", doc["action_topic"])
	assert.Equal(t, "mideair/availability", doc["availability_topic"])
}

func TestCommandsBecomeRequests(t *testing.T) {
	client := newFakeClient()
	ctrl := &fakeController{}
	b := New(testConfig(nil), client, ctrl)
	require.NoError(t, b.Start())

	client.deliver("mideair/mode/set", "fan_only")
	client.deliver("mideair/temperature/set", " 21.5 ")
	client.deliver("mideair/temperature/set", "warm")
	client.deliver("mideair/fan_mode/set", "Middle")
	client.deliver("mideair/swing_mode/set", "vertical")

	require.Len(t, ctrl.reqs, 4)

	assert.Equal(t, climate.ModeFanOnly, *ctrl.reqs[0].Mode)
	assert.Nil(t, ctrl.reqs[0].TargetTemperature)

	assert.Equal(t, 21.5, *ctrl.reqs[1].TargetTemperature)
	assert.Nil(t, ctrl.reqs[1].Mode)

	assert.Equal(t, climate.FanMiddle, *ctrl.reqs[2].FanMode)
	assert.Equal(t, climate.SwingVertical, *ctrl.reqs[3].SwingMode)
}

func TestRunMirrorsState(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()
	client := newFakeClient()
	b := New(testConfig(bus), client, &fakeController{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	bus.Publish(events.TopicClimate, events.ClimateUpdate{Mode: "heat", TargetTemperatureC: 22, Action: "heating"})

	var got events.ClimateUpdate
	require.Eventually(t, func() bool {
		msg, ok := client.get("mideair/state")
		if !ok {
			return false
		}
		if err := json.Unmarshal(msg.payload, &got); err != nil {
			return false
		}
		return msg.retain && got.Mode == "heat"
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 22.0, got.TargetTemperatureC)

	cancel()
	<-done
	assert.True(t, client.closed)
}
