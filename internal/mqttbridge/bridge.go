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

// Package mqttbridge exposes the climate adapter to an MQTT broker in the
// Home Assistant climate layout: one command topic per field, a retained
// JSON state topic and a discovery document.
package mqttbridge

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"mideair/internal/climate"
	"mideair/internal/config"
	"mideair/internal/events"
	"mideair/pkg/eventbus"
	"mideair/pkg/logger"

	"github.com/google/uuid"
)

type Controller interface {
	Control(req climate.RequestedChange) bool
	Traits() climate.CapabilityDescriptor
}

type Bridge struct {
	conf     config.MQTTConfig
	name     string
	uniqueID string
	client   ClientAPI
	ctrl     Controller
	bus      *eventbus.Bus
	log      *logger.Logger
}

// UniqueID returns the configured id, or a name-based uuid that stays the
// same across restarts so discovery does not duplicate the entity.
func UniqueID(conf *config.Config) string {
	if conf.MQTT.UniqueID != "" {
		return conf.MQTT.UniqueID
	}
	seed := "mideair/" + conf.MQTT.Prefix + "/" + conf.Climate.Name
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(seed)).String()
}

// clientID is at most the first 8 characters of the unique id, short
// configured ids are used whole.
func clientID(conf *config.Config) string {
	id := UniqueID(conf)
	return "mideair-" + id[:min(len(id), 8)]
}

// Connect dials the configured broker with the bridge's availability topic
// as last will.
func Connect(conf *config.Config) (*Client, error) {
	return Dial(ClientOptions{
		Broker:            conf.MQTT.Broker,
		ClientID:          clientID(conf),
		AvailabilityTopic: conf.MQTT.Prefix + "/availability",
	}, 10*time.Second)
}

func New(conf *config.Config, client ClientAPI, ctrl Controller) *Bridge {
	return &Bridge{
		conf:     conf.MQTT,
		name:     conf.Climate.Name,
		uniqueID: UniqueID(conf),
		client:   client,
		ctrl:     ctrl,
		bus:      conf.EventBus,
		log:      logger.New("MQTTBridge"),
	}
}

func (b *Bridge) topic(parts ...string) string {
	return b.conf.Prefix + "/" + strings.Join(parts, "/")
}

func (b *Bridge) StateTopic() string        { return b.topic("state") }
func (b *Bridge) AvailabilityTopic() string { return b.topic("availability") }

func (b *Bridge) DiscoveryTopic() string {
	return b.conf.DiscoveryPrefix + "/climate/" + b.uniqueID + "/config"
}

// Start subscribes the command topics and publishes the discovery document.
func (b *Bridge) Start() error {
	for _, field := range []string{"mode", "temperature", "fan_mode", "swing_mode"} {
		if err := b.client.Subscribe(b.topic(field, "set"), b.handleCommand); err != nil {
			return err
		}
	}

	doc, err := json.Marshal(b.discovery())
	if err != nil {
		return err
	}
	return b.client.PublishWith(b.DiscoveryTopic(), doc, true)
}

// Run mirrors every climate update to the retained state topic until ctx
// is done, then disconnects.
func (b *Bridge) Run(ctx context.Context) {
	defer b.client.Close()

	if err := b.Start(); err != nil {
		b.log.Error("start: %v", err)
		return
	}

	updates, unsub := b.bus.Subscribe(ctx, events.TopicClimate, true)
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-updates:
			if !ok {
				return
			}
			if upd, ok := ev.(events.ClimateUpdate); ok {
				b.publishState(upd)
			}
		}
	}
}

func (b *Bridge) publishState(upd events.ClimateUpdate) {
	data, err := json.Marshal(upd)
	if err != nil {
		b.log.Error("marshal state: %v", err)
		return
	}
	if err := b.client.PublishWith(b.StateTopic(), data, true); err != nil {
		b.log.Error("%v", err)
	}
}

// handleCommand turns one command topic payload into a one-field request.
func (b *Bridge) handleCommand(topic string, payload []byte) {
	field := strings.TrimSuffix(strings.TrimPrefix(topic, b.conf.Prefix+"/"), "/set")
	value := strings.TrimSpace(string(payload))
	b.log.Debug("command %s = %q", field, value)

	var req climate.RequestedChange
	switch field {
	case "mode":
		req = req.WithMode(climate.ParseMode(value))
	case "temperature":
		c, err := strconv.ParseFloat(value, 64)
		if err != nil {
			b.log.Warn("bad temperature %q: %v", value, err)
			return
		}
		req = req.WithTargetTemperature(c)
	case "fan_mode":
		req = req.WithFanMode(climate.ParseFanMode(value))
	case "swing_mode":
		req = req.WithSwingMode(climate.ParseSwingMode(value))
	default:
		b.log.Warn("unexpected topic %s", topic)
		return
	}

	if !b.ctrl.Control(req) {
		b.log.Warn("control queue full, dropped %s", field)
	}
}

type discoveryDevice struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	SWVersion    string   `json:"sw_version"`
}

// discoveryDoc is a Home Assistant MQTT climate config.
type discoveryDoc struct {
	Name     string `json:"name"`
	UniqueID string `json:"unique_id"`

	Modes      []string `json:"modes"`
	FanModes   []string `json:"fan_modes"`
	SwingModes []string `json:"swing_modes,omitempty"`
	MinTemp    float64  `json:"min_temp"`
	MaxTemp    float64  `json:"max_temp"`
	TempStep   float64  `json:"temp_step"`
	TempUnit   string   `json:"temperature_unit"`

	ModeCommandTopic        string `json:"mode_command_topic"`
	ModeStateTopic          string `json:"mode_state_topic"`
	ModeStateTemplate       string `json:"mode_state_template"`
	TemperatureCommandTopic string `json:"temperature_command_topic"`
	TemperatureStateTopic   string `json:"temperature_state_topic"`
	TemperatureStateTmpl    string `json:"temperature_state_template"`
	FanModeCommandTopic     string `json:"fan_mode_command_topic"`
	FanModeStateTopic       string `json:"fan_mode_state_topic"`
	FanModeStateTemplate    string `json:"fan_mode_state_template"`
	SwingModeCommandTopic   string `json:"swing_mode_command_topic,omitempty"`
	ActionTopic             string `json:"action_topic,omitempty"`
	ActionTemplate          string `json:"action_template,omitempty"`
	AvailabilityTopic       string `json:"availability_topic"`

	Device discoveryDevice `json:"device"`
}

func (b *Bridge) discovery() discoveryDoc {
	t := b.ctrl.Traits()
	state := b.StateTopic()

	doc := discoveryDoc{
		Name:     b.name,
		UniqueID: b.uniqueID,
		Modes:    stringsOf(t.Modes),
		FanModes: stringsOf(t.FanModes),
		MinTemp:  t.MinTemperature,
		MaxTemp:  t.MaxTemperature,
		TempStep: t.TemperatureStep,
		TempUnit: "C",

		ModeCommandTopic:        b.topic("mode", "set"),
		ModeStateTopic:          state,
		ModeStateTemplate:       "{{ value_json.mode }}",
		TemperatureCommandTopic: b.topic("temperature", "set"),
		TemperatureStateTopic:   state,
		TemperatureStateTmpl:    "{{ value_json.target_temperature }}",
		FanModeCommandTopic:     b.topic("fan_mode", "set"),
		FanModeStateTopic:       state,
		FanModeStateTemplate:    "{{ value_json.fan_mode }}",
		AvailabilityTopic:       b.AvailabilityTopic(),

		Device: discoveryDevice{
			Identifiers:  []string{b.uniqueID},
			Name:         b.name,
			Manufacturer: "Midea",
			Model:        "IR heat pump",
			SWVersion:    climate.Version,
		},
	}
	if len(t.SwingModes) > 0 {
		doc.SwingModes = stringsOf(t.SwingModes)
		doc.SwingModeCommandTopic = b.topic("swing_mode", "set")
	}
	if t.SupportsAction {
		doc.ActionTopic = state
		doc.ActionTemplate = "{{ value_json.action }}"
	}
	return doc
}

func stringsOf[T ~string](vs []T) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = string(v)
	}
	return out
}
