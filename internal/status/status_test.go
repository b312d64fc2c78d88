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

package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"mideair/internal/climate"
	"mideair/internal/config"
	"mideair/internal/events"
	"mideair/pkg/eventbus"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testService(t *testing.T) (*Service, *eventbus.Bus) {
	bus := eventbus.New()
	t.Cleanup(bus.Close)
	conf := &config.Config{
		Climate:     config.ClimateConfig{Name: "Office", UpdateIntervalMs: 500},
		Transmitter: config.TransmitterConfig{Kind: "log"},
		EventBus:    bus,
		RootDir:     t.TempDir(),
	}
	return New(conf), bus
}

func TestCollect(t *testing.T) {
	s, bus := testService(t)

	r := s.Collect()
	assert.Equal(t, "Office", r.Adapter.Name)
	assert.Equal(t, climate.Version, r.Adapter.Version)
	assert.Equal(t, "log", r.Adapter.Transmitter)
	assert.False(t, r.Adapter.MQTT)
	assert.Nil(t, r.Climate)
	assert.NotEmpty(t, r.System.GoVersion)

	bus.Publish(events.TopicClimate, events.ClimateUpdate{Mode: "dry", TargetTemperatureC: 23})
	r = s.Collect()
	require.NotNil(t, r.Climate)
	assert.Equal(t, "dry", r.Climate.Mode)
	assert.Equal(t, int64(1), r.Bus.Published)
}

func TestServeJSONAndHTML(t *testing.T) {
	s, bus := testService(t)
	bus.Publish(events.TopicClimate, events.ClimateUpdate{Mode: "heat", TargetTemperatureC: 21, Action: "heating"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var r Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r))
	assert.Equal(t, "Office", r.Adapter.Name)
	require.NotNil(t, r.Climate)
	assert.Equal(t, "heating", r.Climate.Action)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<h1>Office</h1>")
	assert.Contains(t, rec.Body.String(), "21.0 &deg;C")
}

func TestDiskUsage(t *testing.T) {
	total, free, used, err := DiskUsage(t.TempDir())
	require.NoError(t, err)
	assert.Positive(t, total)
	assert.Equal(t, total, free+used)
}
