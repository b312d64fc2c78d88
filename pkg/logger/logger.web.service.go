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

package logger

import (
	"bufio"
	"html/template"
	"net/http"
	"os"
	"strings"
	"sync"
)

const tailLines = 250

var pageTpl = template.Must(template.New("page").Parse(`
<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>mideair log</title>
  <style>
    body { font-family: Arial, sans-serif; margin: 2em; background: #f9f9f9; color: #333; }
    .btn { padding:0.5em 1em; margin:0.2em; background:#007bff; color:white; border:none; border-radius:4px; cursor:pointer; }
    .btn-danger { background:#dc3545; }
    pre.log { background:#222; color:#eee; padding:1em; border-radius:6px; max-height:500px; overflow:auto; }
  </style>
</head>
<body>
  <h1>Log</h1>
  <p><b>Debug:</b> {{if .Debug}}<span style="color:green;">ON</span>{{else}}<span style="color:red;">OFF</span>{{end}}</p>
  <form method="POST" action="{{.Base}}/toggle" style="display:inline;">
    <button class="btn" type="submit">Toggle Debug</button>
  </form>
  <form method="POST" action="{{.Base}}/clear" style="display:inline;">
    <button class="btn btn-danger" type="submit">Clear Log</button>
  </form>
  <h2>Last {{.Lines}} lines</h2>
  <pre class="log">{{.Log}}</pre>
</body>
</html>
`))

// Service implements http.Handler for debug toggling and log inspection
type Service struct {
	mu   sync.Mutex
	base string
}

// WebService returns the log page handler. base is the mount path, used for
// redirects and form actions.
func WebService(base string) *Service {
	return &Service{base: strings.TrimRight(base, "/")}
}

// ServeHTTP implements http.Handler
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/toggle":
		EnableDebug(!IsDebug())
		http.Redirect(w, r, s.base+"/", http.StatusSeeOther)

	case "/clear":
		if err := s.clearLog(); err != nil {
			http.Error(w, "failed to clear log: "+err.Error(), http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, s.base+"/", http.StatusSeeOther)

	default:
		logs, _ := s.tail(tailLines)
		_ = pageTpl.Execute(w, map[string]any{
			"Base":  s.base,
			"Debug": IsDebug(),
			"Lines": tailLines,
			"Log":   logs,
		})
	}
}

// clearLog truncates the active log file. lumberjack reopens it on the
// next write.
func (s *Service) clearLog() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	baseMu.RLock()
	lj := logFile
	baseMu.RUnlock()
	if lj == nil {
		return nil
	}
	if err := lj.Close(); err != nil {
		return err
	}
	return os.Truncate(lj.Filename, 0)
}

// tail reads the last n lines of the log file
func (s *Service) tail(n int) (string, error) {
	baseMu.RLock()
	lj := logFile
	baseMu.RUnlock()
	if lj == nil {
		return "", nil
	}
	f, err := os.Open(lj.Filename)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
		if len(lines) > n {
			lines = lines[1:]
		}
	}
	return strings.Join(lines, "\n"), sc.Err()
}
