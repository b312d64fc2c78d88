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

package transmit

import (
	"encoding/json"
	"html/template"
	"net/http"
	"sort"
)

// Register is the live value of one gateway register for display.
type Register struct {
	ID          string `json:"id"`
	Address     uint16 `json:"address"`
	Description string `json:"description"`
	Value       any    `json:"value"`
	Error       string `json:"error,omitempty"`
	Writable    bool   `json:"writable"`
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/values":
		g.handleAPIValues(w, r)
	case "/api/history":
		g.handleAPIHistory(w, r)
	case "/", "":
		g.handlePage(w, r)
	default:
		http.NotFound(w, r)
	}
}

// Registers reads every configured register, sorted by address.
func (g *Gateway) Registers() []Register {
	defs := g.client.Config().Registers
	regs := make([]Register, 0, len(defs))
	for name, def := range defs {
		reg := Register{
			ID:          name,
			Address:     def.Address,
			Description: def.Description,
			Writable:    def.Writable,
		}
		if v, err := g.client.ReadValue(name); err != nil {
			reg.Error = err.Error()
		} else {
			reg.Value = v
		}
		regs = append(regs, reg)
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].Address < regs[j].Address })
	return regs
}

func (g *Gateway) handleAPIValues(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(g.Registers()); err != nil {
		log.Error("failed to encode register values: %v", err)
	}
}

func (g *Gateway) handleAPIHistory(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(g.History()); err != nil {
		log.Error("failed to encode send history: %v", err)
	}
}

func (g *Gateway) handlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	hist := g.History()
	// newest first
	for i, j := 0, len(hist)-1; i < j; i, j = i+1, j-1 {
		hist[i], hist[j] = hist[j], hist[i]
	}
	err := gatewayTpl.Execute(w, map[string]any{
		"Conn":      g.client.Config().Modbus,
		"Registers": g.Registers(),
		"History":   hist,
	})
	if err != nil {
		log.Error("render gateway page: %v", err)
	}
}

var gatewayTpl = template.Must(template.New("gateway").Parse(`
<!DOCTYPE html>
<html>
<head>
	<title>IR gateway</title>
	<style>
		body { font-family: sans-serif; margin: 2em; background: #f9f9f9; }
		table { border-collapse: collapse; margin-top: 1em; }
		th, td { border: 1px solid #ccc; padding: 0.4em 0.8em; text-align: left; }
		th { background: #eee; }
		.err { color: #dc3545; }
	</style>
</head>
<body>
	<h1>IR gateway {{.Conn.Host}}:{{.Conn.Port}}</h1>
	<h2>Registers</h2>
	<table>
		<tr><th>Name</th><th>Address</th><th>Value</th><th>Description</th></tr>
		{{range .Registers}}
		<tr>
			<td>{{.ID}}</td>
			<td>{{printf "0x%04X" .Address}}</td>
			<td>{{if .Error}}<span class="err">{{.Error}}</span>{{else}}{{.Value}}{{end}}</td>
			<td>{{.Description}}</td>
		</tr>
		{{end}}
	</table>
	<h2>Sent frames</h2>
	<table>
		<tr><th>Time</th><th>Code</th><th>Command</th><th>Result</th></tr>
		{{range .History}}
		<tr>
			<td>{{.Timestamp.Format "15:04:05"}}</td>
			<td>{{.Code}}</td>
			<td>{{.Command}}</td>
			<td>{{if .Error}}<span class="err">{{.Error}}</span>{{else}}ok{{end}}</td>
		</tr>
		{{end}}
	</table>
</body>
</html>
`))
