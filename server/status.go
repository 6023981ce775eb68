package server

import (
	"bytes"
	"html/template"
	"net/http"
	"time"
)

var statusTpl = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Device}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
td:first-child { font-weight: bold; padding-right: 1em; }
img { max-width: 100%; margin-top: 1em; }
</style>
</head>
<body>
<h1>{{.Device}}</h1>
<table>
<tr><td>Device</td><td id="device">{{.Device}}</td></tr>
<tr><td>IP</td><td>{{.IP}}</td></tr>
<tr><td>MAC</td><td>{{.MAC}}</td></tr>
<tr><td>Free memory</td><td>{{.FreeMemory}} bytes</td></tr>
<tr><td>Uptime</td><td>{{.Uptime}}</td></tr>
<tr><td>Camera</td><td>{{.Format}} {{.Width}}x{{.Height}}</td></tr>
<tr><td>Streams</td><td>{{.Clients}}/{{.MaxStreams}}</td></tr>
<tr><td>Frames served</td><td>{{.Frames}}</td></tr>
<tr><td>Throughput</td><td>{{printf "%.1f" .KBps}} kB/s</td></tr>
</table>
<p><a href="/stream">Stream</a> | <a href="/capture">Capture</a></p>
<a href="/stream"><img src="/capture" alt="snapshot"></a>
</body>
</html>
`))

type statusData struct {
	Device     string
	IP         string
	MAC        string
	FreeMemory uint64
	Uptime     time.Duration
	Format     string
	Width      int
	Height     int
	Clients    int
	MaxStreams int
	Frames     uint64
	KBps       float64
}

func (s *Server) statusData() statusData {
	d := statusData{
		Device:     s.conf.DeviceName,
		FreeMemory: freeMemory(),
		Uptime:     time.Since(s.started).Truncate(time.Second),
		Format:     s.camera.PixelFormat.String(),
		Width:      s.camera.Width,
		Height:     s.camera.Height,
		MaxStreams: s.conf.MaxStreams,
	}
	if s.link.IP != nil {
		d.IP = s.link.IP.String()
	}
	d.MAC = s.link.MAC.String()

	s.sem.Lock()
	d.Clients = s.clients
	d.Frames = s.frames
	d.KBps = s.throughput / 1024
	s.sem.Unlock()

	return d
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	buf := bytes.NewBuffer(nil)
	if err := statusTpl.Execute(buf, s.statusData()); err != nil {
		s.l.Println(err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	buf.WriteTo(w)
}
