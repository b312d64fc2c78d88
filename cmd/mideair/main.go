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

package main

import (
	"os"
	"path/filepath"

	"mideair/internal/climate"
	climateweb "mideair/internal/climate/web"
	"mideair/internal/config"
	"mideair/internal/metrics"
	"mideair/internal/mqttbridge"
	"mideair/internal/remote"
	"mideair/internal/status"
	"mideair/internal/transmit"
	"mideair/pkg/eventbus"
	"mideair/pkg/logger"
	"mideair/pkg/rootserv"
	"mideair/pkg/service"
)

func main() {

	rootdir := os.Getenv("PROJECT_ROOT")
	if rootdir == "" {
		rootdir = "."
	}
	log := logger.New("Main")

	appConf, err := config.LoadFile(filepath.Join(rootdir, "var/config/mideair.json"))
	if err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
	appConf.RootDir = rootdir

	err = logger.Init(logger.Options{
		Path:       appConf.Resolve(appConf.Log.Path),
		MaxSizeMB:  appConf.Log.MaxSizeMB,
		MaxBackups: appConf.Log.MaxBackups,
		MaxAgeDays: appConf.Log.MaxAgeDays,
	})
	if err != nil {
		log.Error("log file disabled: %v", err)
	}

	// use conf to pass eventbus to whoever needs it
	appConf.EventBus = eventbus.New()

	tx, err := transmit.New(appConf)
	if err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}

	adapter := climate.NewAdapter(appConf, remote.New(tx), climate.NewBusPublisher(appConf.EventBus))

	ctx, ctxCancel := service.SignalContext()

	// a failed setup means the adapter must never be controlled
	if err := adapter.Setup(ctx); err != nil {
		log.Error("%v", err)
		ctxCancel()
		logger.Close()
		os.Exit(1)
	}

	// init services
	server := rootserv.New(appConf.Web.Addr)
	webService := climateweb.New(appConf, adapter)
	statusService := status.New(appConf)

	// attach web handler enabled services
	server.Attach("/climate", "Climate Control", webService)
	server.Attach("/status", "Adapter Status", statusService)
	server.Attach("/logger", "Logger", logger.WebService("/logger"))
	server.Attach("/metrics", "Prometheus Metrics", metrics.Handler())
	if gw, ok := tx.(*transmit.Gateway); ok {
		server.Attach("/gateway", "IR Gateway Registers", gw)
	}

	services := []service.Runnable{
		adapter,
		webService,
		server,
	}

	if appConf.MQTT.Broker != "" {
		client, err := mqttbridge.Connect(appConf)
		if err != nil {
			log.Error("mqtt bridge disabled: %v", err)
		} else {
			services = append(services, mqttbridge.New(appConf, client, adapter))
		}
	}

	// start runnable services
	exitCh := service.Start(ctx, ctxCancel, services)

	// waits for all services to stop
	code := <-exitCh
	appConf.EventBus.Close()
	logger.Close()
	os.Exit(code)
}
