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
	"time"

	"mideair/internal/events"
	"mideair/pkg/eventbus"
)

type busPublisher struct {
	bus *eventbus.Bus
	now func() time.Time
}

// NewBusPublisher publishes states as events.ClimateUpdate on
// events.TopicClimate.
func NewBusPublisher(bus *eventbus.Bus) Publisher {
	return &busPublisher{bus: bus, now: time.Now}
}

func (p *busPublisher) PublishState(state OperatingState, applied bool) {
	p.bus.Publish(events.TopicClimate, ToUpdate(state, applied, p.now()))
}

func ToUpdate(state OperatingState, applied bool, at time.Time) events.ClimateUpdate {
	return events.ClimateUpdate{
		Mode:               string(state.Mode),
		TargetTemperatureC: state.TargetTemperature,
		FanMode:            string(state.FanMode),
		Action:             string(state.Action),
		Applied:            applied,
		Time:               at,
	}
}
