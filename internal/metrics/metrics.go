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

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	applyCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mideair_apply_cycles_total",
			Help: "Control requests applied, by whether any field changed state.",
		},
		[]string{"applied"},
	)
	driverCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mideair_driver_commands_total",
			Help: "Remote-control commands issued, by command.",
		},
		[]string{"command"},
	)
	ignoredFields = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mideair_ignored_fields_total",
			Help: "Request fields accepted but not acted on.",
		},
		[]string{"field"},
	)
	transmits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mideair_transmits_total",
			Help: "IR bursts handed to the transmitter, by result.",
		},
		[]string{"result"},
	)
	targetTemperature = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mideair_target_temperature_celsius",
		Help: "Last applied target temperature.",
	})
	active = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mideair_mode_active",
			Help: "1 for the current operating mode, 0 otherwise.",
		},
		[]string{"mode"},
	)
)

func init() {
	registry.MustRegister(
		applyCycles, driverCommands, ignoredFields, transmits, targetTemperature, active,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func ApplyCycle(applied bool) {
	if applied {
		applyCycles.WithLabelValues("true").Inc()
		return
	}
	applyCycles.WithLabelValues("false").Inc()
}

func DriverCommand(command string) {
	driverCommands.WithLabelValues(command).Inc()
}

func IgnoredField(field string) {
	ignoredFields.WithLabelValues(field).Inc()
}

func Transmit(err error) {
	if err != nil {
		transmits.WithLabelValues("error").Inc()
		return
	}
	transmits.WithLabelValues("ok").Inc()
}

// ObserveState sets the state gauges. Only the current mode keeps a
// series, so an unrecognised mode never lingers after the next change.
func ObserveState(mode string, targetC float64) {
	targetTemperature.Set(targetC)
	active.Reset()
	active.WithLabelValues(mode).Set(1)
}
