// Package server is the web front-end. The session machine lives here;
// browsers only render snapshots streamed over SSE and play the session
// track the asset backend publishes, through a single <audio> element.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/browser"
	"golang.org/x/sync/errgroup"

	"github.com/Mavwarf/stillness/internal/audio"
	"github.com/Mavwarf/stillness/internal/config"
	"github.com/Mavwarf/stillness/internal/history"
	"github.com/Mavwarf/stillness/internal/icon"
	"github.com/Mavwarf/stillness/internal/observability"
	"github.com/Mavwarf/stillness/internal/render"
	"github.com/Mavwarf/stillness/internal/scheduler"
	"github.com/Mavwarf/stillness/internal/session"
	"github.com/Mavwarf/stillness/internal/settings"
)

//go:embed static
var staticFS embed.FS

// Server serves one session machine to any number of browsers.
type Server struct {
	Machine *session.Machine
	Assets  *scheduler.AssetStore
	// Backend is the machine's asset backend, if it uses one. Its
	// publish and revoke events are forwarded to clients.
	Backend    *scheduler.AssetBackend
	History    history.Store
	Bell       []int16
	SampleRate int

	broker *broker
	static fs.FS
	loop   *render.Loop
}

// New wires a Server around m. backend may be nil when the machine plays
// audio some other way; store may be nil to disable /api/history.
func New(m *session.Machine, assets *scheduler.AssetStore, backend *scheduler.AssetBackend, store history.Store, bell []int16, sampleRate int) *Server {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	if store == nil {
		store = history.Discard{}
	}
	s := &Server{
		Machine:    m,
		Assets:     assets,
		Backend:    backend,
		History:    store,
		Bell:       bell,
		SampleRate: sampleRate,
		broker:     newBroker(),
		static:     sub,
	}
	m.Subscribe(s.onEvent)
	if backend != nil {
		// Runs under the machine lock: only touch the broker.
		backend.OnChange(func(ev scheduler.AssetEvent) {
			s.broker.publish("asset", ev)
		})
	}
	return s
}

func (s *Server) onEvent(ev session.Event) {
	switch ev.Kind {
	case session.EventBell, session.EventPreview:
		s.broker.publish("bell", ev)
	}
	s.broker.publish("state", s.state())
}

// Handler returns the routed, header-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("POST /api/start", s.handleStart)
	mux.HandleFunc("POST /api/stop", s.handleStop)
	mux.HandleFunc("POST /api/preview", s.handlePreview)
	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("POST /api/settings", s.handleAdjust)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /audio/bell.wav", s.handleBell)
	mux.HandleFunc("GET /audio/{file}", s.handleAsset)
	mux.HandleFunc("GET /icon.png", handleIcon)
	mux.Handle("GET /", http.FileServerFS(s.static))
	return secure(mux)
}

// Renderer returns the render-loop sink that pushes a snapshot to clients
// whenever the visible countdown changes.
func (s *Server) Renderer() render.Renderer {
	var last session.View
	return render.RendererFunc(func(v session.View) {
		if v.RemainingText == last.RemainingText && v.State == last.State && v.Phase == last.Phase {
			return
		}
		last = v
		s.broker.publish("state", s.state())
	})
}

type stateResponse struct {
	session.View
	Asset   string `json:"asset"`
	Status  string `json:"status"`
	Label   string `json:"label"`
	Total   string `json:"total"`
	Offset  string `json:"ring_offset"`
	Preview string `json:"preview,omitempty"`
	// Position is seconds into the session track, for clients that
	// (re)load it mid-session.
	Position float64 `json:"position,omitempty"`
}

func (s *Server) state() stateResponse {
	now := s.Machine.Now()
	v := s.Machine.Snapshot(now)
	r := stateResponse{
		View:   v,
		Status: render.Status(v),
		Label:  render.PhaseLabel(v),
		Total:  render.TotalLabel(v.Durations),
		Offset: strconv.FormatFloat(render.RingFor(v.Progress, render.WebRingRadius).DashOffset, 'f', 2, 64),
	}
	if tl := s.Machine.Timeline(); tl != nil && v.State == session.Running {
		r.Position = now.Sub(tl.Start).Seconds()
	}
	if s.Backend != nil {
		r.Asset = s.Backend.Current()
		r.Preview = s.Backend.Preview()
	}
	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.state())
}

// handleStart toggles like the big button: a second press stops.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.Machine.Start()
	writeJSON(w, s.state())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.Machine.Stop()
	writeJSON(w, s.state())
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	s.Machine.PreviewBell()
	writeJSON(w, s.state())
}

type settingsResponse struct {
	Durations settings.Durations         `json:"durations"`
	Limits    map[string]settings.Bounds `json:"limits"`
	Total     string                     `json:"total"`
	Editable  bool                       `json:"editable"`
}

func (s *Server) settingsState() settingsResponse {
	d := s.Machine.Durations()
	lim := map[string]settings.Bounds{}
	for _, f := range []settings.Field{settings.Settle, settings.Meditate, settings.Emerge} {
		lim[f.String()] = settings.Limits(f)
	}
	return settingsResponse{
		Durations: d,
		Limits:    lim,
		Total:     render.TotalLabel(d),
		Editable:  s.Machine.State() == session.Idle,
	}
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.settingsState())
}

type adjustRequest struct {
	Field string `json:"field"`
	Dir   int    `json:"dir"`
}

func (s *Server) handleAdjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	f, err := settings.ParseField(req.Field)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Dir != 1 && req.Dir != -1 {
		http.Error(w, "dir must be 1 or -1", http.StatusBadRequest)
		return
	}
	if !s.Machine.AdjustDuration(f, req.Dir) && s.Machine.State() != session.Idle {
		http.Error(w, "settings are locked during a session", http.StatusConflict)
		return
	}
	writeJSON(w, s.settingsState())
}

type historyResponse struct {
	Records []history.Record `json:"records"`
	Summary history.Summary  `json:"summary"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	days := 7
	if d := r.URL.Query().Get("days"); d != "" {
		if v, err := strconv.Atoi(d); err == nil && v >= 0 {
			days = v
		}
	}
	cutoff := history.DayCutoff(days)
	recs, err := s.History.Since(cutoff)
	if err != nil {
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	sum, err := s.History.Summary(cutoff)
	if err != nil {
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []history.Record{}
	}
	writeJSON(w, historyResponse{Records: recs, Summary: sum})
}

func (s *Server) handleBell(w http.ResponseWriter, r *http.Request) {
	bell := audio.NewSession(s.Bell, []time.Duration{0}, 0, s.SampleRate)
	w.Header().Set("Content-Type", "audio/wav")
	http.ServeContent(w, r, "bell.wav", time.Time{}, bell.WAVReader())
}

// handleAsset serves a published session track. Range requests are
// honoured so the <audio> element can seek within it.
func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := strings.CutSuffix(r.PathValue("file"), ".wav")
	if !ok || s.Assets == nil {
		http.NotFound(w, r)
		return
	}
	track, ok := s.Assets.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	http.ServeContent(w, r, id+".wav", time.Time{}, track.WAVReader())
}

func handleIcon(w http.ResponseWriter, r *http.Request) {
	data, err := icon.PNG(192)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(data)
}

// Serve listens on cfg until ctx ends, running the render loop alongside
// so sessions complete, record and notify with no browser attached. If
// open is true a browser window is launched at the URL.
func (s *Server) Serve(ctx context.Context, cfg config.Server, frameRate int, open bool) error {
	log := observability.WithFields("component", "server")
	port := cfg.Port
	if port == 0 {
		port = config.DefaultPort
	}
	bind := cfg.Bind
	if bind == "" {
		bind = "0.0.0.0"
	}
	addr := net.JoinHostPort(bind, strconv.Itoa(port))
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	scheme := "http"
	var certFile, keyFile string
	if cfg.TLS {
		var err error
		certFile, keyFile, err = EnsureCert(CertDir())
		if err != nil {
			return fmt.Errorf("server: certificate: %w", err)
		}
		srv.TLSConfig = tlsConfig()
		scheme = "https"
	}

	loop := render.NewLoop(s.Machine, s.Renderer(), frameRate)
	s.loop = loop

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := loop.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.broker.close()
		shutCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
	g.Go(func() error {
		var err error
		if cfg.TLS {
			err = srv.ListenAndServeTLS(certFile, keyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	local := fmt.Sprintf("%s://localhost:%d", scheme, port)
	fmt.Printf("stillness: %s\n", local)
	if ip := LocalIP(); ip != "" && bind == "0.0.0.0" {
		fmt.Printf("on your phone: %s://%s:%d\n", scheme, ip, port)
	}
	fmt.Println("Press Ctrl+C to stop")
	log.Info("serving", "addr", addr, "tls", cfg.TLS)

	if open {
		go OpenBrowser(local)
	}
	return g.Wait()
}

// OpenBrowser tries to open url in a chromeless browser window (app
// mode), falling back to the default browser.
func OpenBrowser(url string) {
	appBrowsers := []string{"msedge", "chrome", "google-chrome", "chromium", "chromium-browser"}
	for _, b := range appBrowsers {
		if path, err := exec.LookPath(b); err == nil {
			if exec.Command(path, "--app="+url).Start() == nil {
				return
			}
		}
	}
	if err := browser.OpenURL(url); err != nil {
		observability.Logger().Warn("opening browser failed", "err", err)
	}
}
