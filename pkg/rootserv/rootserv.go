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

package rootserv

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"mideair/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

// RootServer serves an index of attached sub-handlers, each mounted under
// its own path prefix with the prefix stripped.
type RootServer struct {
	log      *logger.Logger
	addr     string
	mux      *http.ServeMux
	mounts   map[string]string // path -> description
	mainPage http.Handler
	once     sync.Once
}

func New(addr string) *RootServer {
	return &RootServer{
		addr:   addr,
		mux:    http.NewServeMux(),
		mounts: make(map[string]string),
		log:    logger.New("HTTPServer"),
	}
}

// Attach mounts handler under path. Attaching "/" replaces the fallback
// redirect to the index page.
func (rs *RootServer) Attach(path, desc string, handler http.Handler) {
	rs.log.Info("attach: %s (%s)", path, desc)

	if path == "/" {
		rs.mainPage = handler
		return
	}

	path = "/" + strings.Trim(path, "/")
	rs.mounts[path] = desc
	rs.mux.Handle(path+"/", http.StripPrefix(path, handler))
	rs.mux.Handle(path, http.RedirectHandler(path+"/", http.StatusMovedPermanently))
}

func (rs *RootServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	paths := make([]string, 0, len(rs.mounts))
	for p := range rs.mounts {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	fmt.Fprintln(w, "<!DOCTYPE html><html><head><title>mideair</title></head><body>")
	fmt.Fprintln(w, "<h1>mideair</h1><ul>")
	for _, p := range paths {
		fmt.Fprintf(w, `<li><a href="%s/">%s</a> - %s</li>`, p, p, html.EscapeString(rs.mounts[p]))
	}
	fmt.Fprintln(w, "</ul></body></html>")
}

// Handler finalizes the routes and returns the root handler.
func (rs *RootServer) Handler() http.Handler {
	rs.once.Do(func() {
		rs.mux.HandleFunc("/index", rs.handleIndex)
		rs.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, "ok")
		})
		rs.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if rs.mainPage != nil {
				rs.mainPage.ServeHTTP(w, r)
				return
			}
			http.Redirect(w, r, "/index", http.StatusTemporaryRedirect)
		})
	})
	return rs.mux
}

// Run serves until ctx is canceled.
func (rs *RootServer) Run(ctx context.Context) {
	rs.log.Info("listening on %s", rs.addr)

	srv := &http.Server{
		Addr:              rs.addr,
		Handler:           rs.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			rs.log.Error("shutdown: %v", err)
		}
		rs.log.Info("stopped")
	case err := <-errCh:
		if err != nil {
			rs.log.Error("stopped: %v", err)
		}
	}
}
