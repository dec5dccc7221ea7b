package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/meshnode/internal/protocol"
	"github.com/sweeney/meshnode/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"describe": protocol.Describe,
	"hex": func(b byte) string {
		return fmt.Sprintf("0x%02x", b)
	},
	"swatch": func(c protocol.RGB) template.CSS {
		return template.CSS(fmt.Sprintf("background: rgb(%d,%d,%d)", c.R, c.G, c.B))
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Mesh Node {{.Config.NodeID}}</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.swatch { display: inline-block; width: 12px; height: 12px; border: 1px solid #444; vertical-align: middle; margin-right: 6px; }
</style>
</head>
<body>
<h1>Mesh Node {{.Config.NodeID}} ({{.Node.Role}})</h1>

<h2>State</h2>
<table>
<tr><th>Code</th><td id="code">{{if .Node.HasCode}}{{describe .Node.Code}}{{else}}none{{end}}</td></tr>
<tr><th>Effect</th><td>{{.Node.Effect}} {{.Node.Colour}}</td></tr>
<tr><th>LED</th><td><span class="swatch" style="{{swatch .Node.Actuator.LED}}"></span>{{.Node.Actuator.LED.R}},{{.Node.Actuator.LED.G}},{{.Node.Actuator.LED.B}}</td></tr>
<tr><th>Relay</th><td class="{{if eq .Relay "MUTED"}}on{{else if eq .Relay "UNMUTED"}}off{{else}}unknown{{end}}">{{.Relay}}</td></tr>
<tr><th>Vibration</th><td>{{if .Node.Actuator.VibOn}}on{{else}}off{{end}} ({{.Node.Actuator.VibRemaining}} pulses left)</td></tr>
<tr><th>Phase</th><td>{{.Node.Phase}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>Codes</h2>
<table>
<tr><th>Received</th><td>{{.Node.Counts.Received}}</td></tr>
<tr><th>Accepted</th><td>{{.Node.Counts.Accepted}}</td></tr>
<tr><th>Other roles</th><td>{{.Node.Counts.Ignored}}</td></tr>
<tr><th>Failed ticks</th><td>{{.Node.Counts.Failed}}</td></tr>
</table>

<h2>Buttons</h2>
<table>
<tr><th>Published</th><td>{{.Buttons.Published}}</td></tr>
<tr><th>Not sent</th><td>{{.Buttons.Failed}}</td></tr>
<tr><th>Bounced</th><td>{{.Buttons.Bounced}}</td></tr>
<tr><th>Settled</th><td>{{.Buttons.Settled}}</td></tr>
<tr><th>Dropped</th><td>{{.Buttons.Dropped}}</td></tr>
</table>

{{if .Recent}}<h2>Recent Codes</h2>
<table>
{{range .Recent}}<tr><th>{{.At.UTC.Format "15:04:05"}} {{hex .Code}}</th><td class="{{if .Applied}}on{{else}}off{{end}}">{{describe .Code}}</td></tr>
{{end}}</table>
{{end}}
<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Settle</th><td>{{.Config.SettleMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>LED port</th><td>{{if .Config.LEDPort}}{{.Config.LEDPort}}{{else}}log only{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/recent.json">recent codes</a> · <a href="/decode?code=0x51">decode</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has methods the template can't call with arguments.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Relay  string
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Relay:    status.RelayState(snap),
	}
	indexTmpl.Execute(w, data)
}
