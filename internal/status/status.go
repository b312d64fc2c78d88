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

// Package status serves a diagnostic page: adapter version and config,
// the last published climate state, event bus counters and host load.
package status

import (
	"encoding/json"
	"html/template"
	"net/http"
	"os"
	"runtime"
	"time"

	"mideair/internal/climate"
	"mideair/internal/config"
	"mideair/internal/events"
	"mideair/pkg/eventbus"
	"mideair/pkg/logger"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

type Service struct {
	conf    *config.Config
	bus     *eventbus.Bus
	started time.Time
	log     *logger.Logger
}

func New(conf *config.Config) *Service {
	return &Service{
		conf:    conf,
		bus:     conf.EventBus,
		started: time.Now(),
		log:     logger.New("Status"),
	}
}

type Adapter struct {
	Name             string  `json:"name"`
	Version          string  `json:"version"`
	Transmitter      string  `json:"transmitter"`
	UpdateIntervalMs int     `json:"update_interval_ms"`
	FanOffKeepsPower bool    `json:"fan_off_keeps_power"`
	MQTT             bool    `json:"mqtt"`
	Uptime           string  `json:"uptime"`
	TargetMin        float64 `json:"target_min"`
	TargetMax        float64 `json:"target_max"`
}

type System struct {
	GoVersion    string  `json:"go_version"`
	CPUPercent   float64 `json:"cpu_percent"`
	ProcessCPU   float64 `json:"process_cpu_percent"`
	MemTotal     uint64  `json:"mem_total"`
	MemUsed      uint64  `json:"mem_used"`
	MemAvailable uint64  `json:"mem_available"`
	ProcessRSS   uint64  `json:"process_rss"`
	DiskTotal    uint64  `json:"disk_total"`
	DiskUsed     uint64  `json:"disk_used"`
	DiskFree     uint64  `json:"disk_free"`
}

type Report struct {
	Adapter Adapter               `json:"adapter"`
	Climate *events.ClimateUpdate `json:"climate,omitempty"`
	Bus     eventbus.Stats        `json:"bus"`
	System  System                `json:"system"`
}

// Collect gathers the report. Host figures that cannot be read are left
// at zero.
func (s *Service) Collect() Report {
	t := climate.Traits()
	r := Report{
		Adapter: Adapter{
			Name:             s.conf.Climate.Name,
			Version:          climate.Version,
			Transmitter:      s.conf.Transmitter.Kind,
			UpdateIntervalMs: s.conf.Climate.UpdateIntervalMs,
			FanOffKeepsPower: s.conf.Climate.FanOffKeepsPower,
			MQTT:             s.conf.MQTT.Broker != "",
			Uptime:           time.Since(s.started).Round(time.Second).String(),
			TargetMin:        t.MinTemperature,
			TargetMax:        t.MaxTemperature,
		},
		Bus:    s.bus.Stats(),
		System: s.system(),
	}
	if ev, ok := s.bus.GetLast(events.TopicClimate); ok {
		if upd, ok := ev.(events.ClimateUpdate); ok {
			r.Climate = &upd
		}
	}
	return r
}

func (s *Service) system() System {
	sys := System{GoVersion: runtime.Version()}

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		sys.CPUPercent = pct[0]
	}
	if vmem, err := mem.VirtualMemory(); err == nil {
		sys.MemTotal = vmem.Total
		sys.MemUsed = vmem.Used
		sys.MemAvailable = vmem.Available
	}

	diskPath := s.conf.RootDir
	if diskPath == "" {
		diskPath = "/"
	}
	if total, free, used, err := DiskUsage(diskPath); err == nil {
		sys.DiskTotal, sys.DiskFree, sys.DiskUsed = total, free, used
	} else {
		s.log.Debug("disk usage %s: %v", diskPath, err)
	}

	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mi, err := p.MemoryInfo(); err == nil {
			sys.ProcessRSS = mi.RSS
		}
		if pct, err := p.CPUPercent(); err == nil {
			sys.ProcessCPU = pct
		}
	}
	return sys
}

func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	report := s.Collect()

	if r.Header.Get("Accept") == "application/json" || r.URL.Query().Get("format") == "json" {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(report)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTpl.Execute(w, report); err != nil {
		s.log.Error("render status page: %v", err)
	}
}

func gb(n uint64) float64 { return float64(n) / (1 << 30) }
func mb(n uint64) float64 { return float64(n) / (1 << 20) }

var pageTpl = template.Must(template.New("status").Funcs(template.FuncMap{"gb": gb, "mb": mb}).Parse(`
<!DOCTYPE html>
<html>
<head>
	<title>mideair status</title>
	<style>
		body { font-family: sans-serif; margin: 2em; background: #f9f9f9; }
		h1 { color: #333; }
		table { border-collapse: collapse; width: 60%; margin-top: 1em; }
		th, td { border: 1px solid #ccc; padding: 0.6em 1em; text-align: left; }
		th { background: #eee; }
	</style>
</head>
<body>
	<h1>{{.Adapter.Name}}</h1>
	<p>mideair {{.Adapter.Version}}, up {{.Adapter.Uptime}}, transmitter <b>{{.Adapter.Transmitter}}</b>{{if .Adapter.MQTT}}, mqtt on{{end}}</p>

	<h2>Climate</h2>
	{{with .Climate}}
	<table>
		<tr><th>Mode</th><th>Target</th><th>Fan</th><th>Action</th><th>Updated</th></tr>
		<tr>
			<td>{{.Mode}}</td>
			<td>{{printf "%.1f" .TargetTemperatureC}} &deg;C</td>
			<td>{{.FanMode}}</td>
			<td>{{.Action}}</td>
			<td>{{.Time.Format "2006-01-02 15:04:05"}}</td>
		</tr>
	</table>
	{{else}}
	<p>No state published yet.</p>
	{{end}}

	<h2>Event bus</h2>
	<table>
		<tr><th>Published</th><th>Delivered</th><th>Replaced</th><th>Dropped</th></tr>
		<tr><td>{{.Bus.Published}}</td><td>{{.Bus.Delivered}}</td><td>{{.Bus.Replaced}}</td><td>{{.Bus.Dropped}}</td></tr>
	</table>

	<h2>System</h2>
	<p>Go {{.System.GoVersion}}</p>
	<table>
		<tr><th>CPU %</th><th>Process CPU %</th><th>Mem used</th><th>Mem available</th><th>Process RSS</th><th>Disk free</th></tr>
		<tr>
			<td>{{printf "%.2f" .System.CPUPercent}}</td>
			<td>{{printf "%.2f" .System.ProcessCPU}}</td>
			<td>{{printf "%.2f" (gb .System.MemUsed)}} GB</td>
			<td>{{printf "%.2f" (gb .System.MemAvailable)}} GB</td>
			<td>{{printf "%.2f" (mb .System.ProcessRSS)}} MB</td>
			<td>{{printf "%.2f" (gb .System.DiskFree)}} GB</td>
		</tr>
	</table>
</body>
</html>
`))
