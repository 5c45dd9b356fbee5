package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/hall-direction/internal/status"
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
	"sensor": status.SensorString,
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Hall Direction</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.active { color: green; font-weight: bold; }
.inactive { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
#events li { list-style: none; }
</style>
</head>
<body>
<h1>Hall Direction<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>Sensors</h2>
<table>
<tr><th>Left</th><td class="{{if .Left}}active{{else}}inactive{{end}}">{{sensor .Left}}</td></tr>
<tr><th>Right</th><td class="{{if .Right}}active{{else}}inactive{{end}}">{{sensor .Right}}</td></tr>
<tr><th>Detector</th><td>{{.State}}</td></tr>
<tr><th>Last movement</th><td>{{if .LastEvent}}{{.LastEvent.Direction}} at {{.LastEvent.Timestamp.UTC.Format "2006-01-02T15:04:05Z"}}{{else}}none{{end}}</td></tr>
</table>

<h2>Live</h2>
<ul id="events"></ul>

<h2>Event Counts</h2>
<table>
<tr><th>Moved left</th><td>{{.Counts.Left}}</td></tr>
<tr><th>Moved right</th><td>{{.Counts.Right}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>Subscribers</th><td>{{.Subscribers}}</td></tr>
{{if .Config.Broker}}<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}} ({{.Config.Broker}})</td></tr>{{end}}
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Pins</th><td>left {{.Config.PinLeft}}, right {{.Config.PinRight}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var list = document.getElementById("events");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var sock = new WebSocket(proto + location.host + "/ws");
    sock.onopen = function() { setDot("ok", "live"); };
    sock.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 5000);
    };
    sock.onmessage = function(ev) {
      var li = document.createElement("li");
      li.textContent = new Date().toLocaleTimeString() + " " + ev.data;
      list.insertBefore(li, list.firstChild);
      while (list.children.length > 20) list.removeChild(list.lastChild);
    };
  }
  connect();
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
