package server

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/frizinak/homecam/camera"
	"github.com/frizinak/homecam/mjpeg"
	"github.com/frizinak/homecam/netwait"
	"github.com/gorilla/websocket"
	"golang.org/x/net/netutil"
)

type Config struct {
	Address    string
	DeviceName string

	// Quality is the JPEG quality raw frames are transcoded at.
	Quality int
	MaxFPS  int

	// MaxStreams caps concurrent /stream and /ws sessions.
	MaxStreams int
	// MaxConns caps accepted TCP connections, 0 disables the cap.
	MaxConns int

	WriteTimeout time.Duration
}

type Server struct {
	l *log.Logger

	conf   Config
	camera camera.Config
	link   netwait.Link

	streamer *mjpeg.Streamer
	upgrader websocket.Upgrader
	streams  chan struct{}

	started time.Time
	http    *http.Server
	ln      net.Listener

	sem        sync.Mutex
	clients    int
	frames     uint64
	total      uint64
	bytes      uint64
	since      time.Time
	throughput float64
}

func New(
	l *log.Logger,
	conf Config,
	src camera.Source,
	cam camera.Config,
	link netwait.Link,
) *Server {
	if conf.MaxStreams < 1 {
		conf.MaxStreams = cam.BufferCount
	}
	if conf.MaxStreams < 1 {
		conf.MaxStreams = 1
	}

	s := &Server{
		l:        l,
		conf:     conf,
		camera:   cam,
		link:     link,
		streamer: mjpeg.NewStreamer(camera.Serialized(src), conf.Quality, conf.MaxFPS),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		streams: make(chan struct{}, conf.MaxStreams),
		started: time.Now(),
		since:   time.Now(),
	}
	s.streamer.OnFrame = func(_ *mjpeg.Session, n int) { s.addBytes(uint64(n)) }
	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          l,
	}

	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.status)
	mux.HandleFunc("GET /stream", s.stream)
	mux.HandleFunc("GET /capture", s.capture)
	mux.HandleFunc("GET /ws", s.ws)
	return mux
}

// Start binds the listener and serves in the background. The returned
// channel yields the error that stopped serving, nil after Close.
func (s *Server) Start() (<-chan error, error) {
	ln, err := net.Listen("tcp", s.conf.Address)
	if err != nil {
		return nil, err
	}
	if s.conf.MaxConns > 0 {
		ln = netutil.LimitListener(ln, s.conf.MaxConns)
	}
	s.ln = ln

	errs := make(chan error, 1)
	go func() {
		err := s.http.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errs <- err
		close(errs)
	}()

	return errs, nil
}

func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown stops accepting connections and waits for idle ones, streams are
// cut once ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return s.http.Close()
	}
	return err
}

func (s *Server) Close() error { return s.http.Close() }

func (s *Server) sessionErr(sess *mjpeg.Session, err error) {
	if errors.Is(err, mjpeg.ErrWrite) {
		s.l.Printf("%s: client gone after %d frames", sess, sess.Frames)
		return
	}
	s.l.Printf("%s: closed after %d frames: %v", sess, sess.Frames, err)
}

func (s *Server) acquireStream() bool {
	select {
	case s.streams <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *Server) releaseStream() { <-s.streams }

func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	if !s.acquireStream() {
		http.Error(w, "too many streams", http.StatusServiceUnavailable)
		return
	}
	defer s.releaseStream()

	sess := s.streamer.NewSession(r.RemoteAddr, "multipart")
	s.addConn()
	defer s.removeConn()
	s.l.Println("New client", sess)

	err := s.streamer.Stream(r.Context(), sess, mjpeg.NewMultipart(w, s.conf.WriteTimeout))
	s.sessionErr(sess, err)
}

func (s *Server) ws(w http.ResponseWriter, r *http.Request) {
	if !s.acquireStream() {
		http.Error(w, "too many streams", http.StatusServiceUnavailable)
		return
	}
	defer s.releaseStream()

	c, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.l.Println(err)
		return
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := c.NextReader(); err != nil {
				return
			}
		}
	}()

	sess := s.streamer.NewSession(r.RemoteAddr, "websocket")
	s.addConn()
	defer s.removeConn()
	s.l.Println("New client", sess)

	err = s.streamer.Stream(ctx, sess, mjpeg.NewWebSocket(c, s.conf.WriteTimeout))
	s.sessionErr(sess, err)
}

func (s *Server) capture(w http.ResponseWriter, r *http.Request) {
	enc, err := s.streamer.Capture()
	if err != nil {
		s.l.Println("Capture:", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer enc.Release()

	h := w.Header()
	h.Set("Content-Type", "image/jpeg")
	h.Set("Content-Length", strconv.Itoa(enc.Len()))
	h.Set("Content-Disposition", "inline; filename=capture.jpg")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(enc.Data); err != nil {
		s.l.Println("Capture:", err)
		return
	}
	s.addBytes(uint64(enc.Len()))
}

func (s *Server) addBytes(bytes uint64) {
	s.sem.Lock()
	s.frames++
	s.total += bytes
	s.bytes += bytes
	since := time.Since(s.since).Seconds()
	if since > 1 {
		s.throughput = float64(s.bytes) / since
		s.since = time.Now()
		s.bytes = 0
	}
	s.sem.Unlock()
}

func (s *Server) addConn() {
	s.sem.Lock()
	s.clients++
	s.sem.Unlock()
}

func (s *Server) removeConn() {
	s.sem.Lock()
	s.clients--
	s.sem.Unlock()
}
