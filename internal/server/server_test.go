package server

import (
	"bufio"
	"context"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Mavwarf/stillness/internal/audio"
	"github.com/Mavwarf/stillness/internal/history"
	"github.com/Mavwarf/stillness/internal/scheduler"
	"github.com/Mavwarf/stillness/internal/session"
	"github.com/Mavwarf/stillness/internal/settings"
)

const testRate = 8000

type memStore struct{ d settings.Durations }

func (s *memStore) Load() settings.Durations        { return s.d }
func (s *memStore) Save(d settings.Durations) error { s.d = d; return nil }

type fixture struct {
	srv     *Server
	machine *session.Machine
	assets  *scheduler.AssetStore
	handler http.Handler
}

func newFixture(t *testing.T, store history.Store) *fixture {
	t.Helper()
	bell := audio.BellPCM(testRate)
	assets := scheduler.NewAssetStore()
	backend := scheduler.NewAssetBackend(assets, bell, testRate, 1)
	m := session.New(session.Options{
		Scheduler: scheduler.New(backend),
		Settings:  &memStore{d: settings.Durations{Settle: 1, Meditate: 1, Emerge: 1}},
	})
	t.Cleanup(m.Stop)
	s := New(m, assets, backend, store, bell, testRate)
	return &fixture{srv: s, machine: m, assets: assets, handler: s.Handler()}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func decodeState(t *testing.T, w *httptest.ResponseRecorder) stateResponse {
	t.Helper()
	var s stateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &s); err != nil {
		t.Fatalf("decode state: %v\n%s", err, w.Body.String())
	}
	return s
}

func TestIndexAndHeaders(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(t, "GET", "/", "")
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `id="session-audio"`) {
		t.Error("index missing the audio element")
	}
	for k, v := range securityHeaders {
		if got := w.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
}

func TestStaticAssets(t *testing.T) {
	f := newFixture(t, nil)
	for _, p := range []string{"/app.js", "/style.css", "/sw.js", "/manifest.json", "/icon.png"} {
		if w := f.do(t, "GET", p, ""); w.Code != 200 {
			t.Errorf("GET %s = %d", p, w.Code)
		}
	}
}

func TestPreviewPlaysFromClick(t *testing.T) {
	f := newFixture(t, nil)
	index := f.do(t, "GET", "/", "").Body.String()
	if !strings.Contains(index, `<audio id="preview-audio" src="audio/bell.wav"`) {
		t.Error("index missing the preview audio element")
	}
	if w := f.do(t, "GET", "/audio/bell.wav", ""); w.Code != 200 {
		t.Errorf("preview source = %d", w.Code)
	}

	js := f.do(t, "GET", "/app.js", "").Body.String()
	i := strings.Index(js, `$("#preview").addEventListener`)
	if i < 0 {
		t.Fatal("app.js has no preview click handler")
	}
	handler := js[i:]
	play := strings.Index(handler, "playPreview();")
	send := strings.Index(handler, `post("api/preview")`)
	if !strings.Contains(handler, "unlockAudio();") || play < 0 || send < 0 || play > send {
		t.Errorf("preview click must play synchronously before posting:\n%s", handler)
	}
}

func TestBlockedPaths(t *testing.T) {
	f := newFixture(t, nil)
	for _, p := range []string{"/serve.py", "/.git/config", "/.certs/key.pem", "/certs/key.pem"} {
		if w := f.do(t, "GET", p, ""); w.Code != http.StatusForbidden {
			t.Errorf("GET %s = %d, want 403", p, w.Code)
		}
	}
}

func TestStartPublishesTrack(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, "POST", "/api/start", "")
	if w.Code != 200 {
		t.Fatalf("start: %d", w.Code)
	}
	st := decodeState(t, w)
	if st.State != session.Running {
		t.Fatalf("state = %v, want running", st.State)
	}
	if st.Asset == "" {
		t.Fatal("no asset published on start")
	}
	if st.Status != "Settling in…" {
		t.Errorf("status = %q", st.Status)
	}

	track := f.do(t, "GET", "/audio/"+st.Asset+".wav", "")
	if track.Code != 200 {
		t.Fatalf("track: %d", track.Code)
	}
	if ct := track.Header().Get("Content-Type"); ct != "audio/wav" {
		t.Errorf("content type = %q", ct)
	}
	if !strings.HasPrefix(track.Body.String(), "RIFF") {
		t.Error("track is not a WAV")
	}

	w = f.do(t, "POST", "/api/stop", "")
	if st := decodeState(t, w); st.State != session.Idle || st.Asset != "" {
		t.Errorf("after stop: state=%v asset=%q", st.State, st.Asset)
	}
	if track := f.do(t, "GET", "/audio/"+st.Asset+".wav", ""); track.Code != 404 {
		t.Errorf("revoked track = %d, want 404", track.Code)
	}
}

func TestStartTwiceStops(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, "POST", "/api/start", "")
	st := decodeState(t, f.do(t, "POST", "/api/start", ""))
	if st.State != session.Idle {
		t.Errorf("state = %v, want idle", st.State)
	}
	if f.assets.Len() != 0 {
		t.Errorf("assets left = %d", f.assets.Len())
	}
}

func TestTrackRange(t *testing.T) {
	f := newFixture(t, nil)
	st := decodeState(t, f.do(t, "POST", "/api/start", ""))

	req := httptest.NewRequest("GET", "/audio/"+st.Asset+".wav", nil)
	req.Header.Set("Range", "bytes=44-143")
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	if w.Code != http.StatusPartialContent {
		t.Fatalf("expected 206, got %d", w.Code)
	}
	if w.Body.Len() != 100 {
		t.Errorf("body length = %d, want 100", w.Body.Len())
	}
}

func TestUnknownTrack(t *testing.T) {
	f := newFixture(t, nil)
	for _, p := range []string{"/audio/nope.wav", "/audio/nope.mp3"} {
		if w := f.do(t, "GET", p, ""); w.Code != 404 {
			t.Errorf("GET %s = %d, want 404", p, w.Code)
		}
	}
}

func TestBellWAV(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(t, "GET", "/audio/bell.wav", "")
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	clip, err := audio.DecodeWAV(w.Body.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if clip.SampleRate != testRate {
		t.Errorf("sample rate = %d", clip.SampleRate)
	}
}

func TestPreviewPublishesAsset(t *testing.T) {
	f := newFixture(t, nil)
	st := decodeState(t, f.do(t, "POST", "/api/preview", ""))
	if st.Preview == "" {
		t.Fatal("no preview asset")
	}
	if w := f.do(t, "GET", "/audio/"+st.Preview+".wav", ""); w.Code != 200 {
		t.Errorf("preview track = %d", w.Code)
	}
}

func TestSettings(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, "POST", "/api/settings", `{"field":"meditate","dir":1}`)
	if w.Code != 200 {
		t.Fatalf("adjust: %d %s", w.Code, w.Body.String())
	}
	var resp settingsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Durations.Meditate != 2 {
		t.Errorf("meditate = %d, want 2", resp.Durations.Meditate)
	}
	if resp.Total != "Total: 4 minutes" {
		t.Errorf("total = %q", resp.Total)
	}
	if !resp.Editable {
		t.Error("settings should be editable while idle")
	}

	// At the lower bound the request succeeds with no change.
	if w := f.do(t, "POST", "/api/settings", `{"field":"settle","dir":-1}`); w.Code != 200 {
		t.Errorf("clamped adjust = %d", w.Code)
	}

	tests := []struct {
		body string
		code int
	}{
		{`{"field":"sleep","dir":1}`, 400},
		{`{"field":"settle","dir":2}`, 400},
		{`not json`, 400},
	}
	for _, tt := range tests {
		if w := f.do(t, "POST", "/api/settings", tt.body); w.Code != tt.code {
			t.Errorf("%s = %d, want %d", tt.body, w.Code, tt.code)
		}
	}

	f.do(t, "POST", "/api/start", "")
	if w := f.do(t, "POST", "/api/settings", `{"field":"settle","dir":1}`); w.Code != http.StatusConflict {
		t.Errorf("adjust while running = %d, want 409", w.Code)
	}
}

func TestHistory(t *testing.T) {
	store := history.NewFileStore(filepath.Join(t.TempDir(), "history.log"))
	now := time.Now()
	store.Record(history.Record{Start: now.Add(-time.Hour), Durations: settings.Default(), Outcome: history.Completed, Elapsed: 24 * time.Minute})
	store.Record(history.Record{Start: now.Add(-30 * time.Minute), Durations: settings.Default(), Outcome: history.Stopped, Elapsed: 5 * time.Minute})

	f := newFixture(t, store)
	w := f.do(t, "GET", "/api/history?days=1", "")
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp historyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(resp.Records))
	}
	if resp.Summary.Completed != 1 || resp.Summary.Stopped != 1 {
		t.Errorf("summary = %+v", resp.Summary)
	}
}

func TestHistoryDisabled(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(t, "GET", "/api/history", "")
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"records":[]`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var event, data string
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("reading stream: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "" && event != "":
			return event, data
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestEventsStream(t *testing.T) {
	f := newFixture(t, nil)
	ts := httptest.NewServer(f.handler)
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, "GET", ts.URL+"/api/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	r := bufio.NewReader(resp.Body)
	if ev, _ := readEvent(t, r); ev != "state" {
		t.Fatalf("first event = %q, want state", ev)
	}

	deadline := time.Now().Add(2 * time.Second)
	for f.srv.broker.len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	f.machine.PreviewBell()

	seen := map[string]bool{}
	for !(seen["bell"] && seen["asset"]) {
		ev, data := readEvent(t, r)
		seen[ev] = true
		if ev == "asset" && !strings.Contains(data, `"kind":"preview"`) {
			t.Errorf("asset event = %s", data)
		}
	}
}

func TestBrokerNeverBlocks(t *testing.T) {
	b := newBroker()
	ch, unsubscribe := b.subscribe()
	defer unsubscribe()
	for i := 0; i < 100; i++ {
		b.publish("state", i)
	}
	if len(ch) != cap(ch) {
		t.Errorf("buffered = %d, want %d", len(ch), cap(ch))
	}
	b.close()
	if b.len() != 0 {
		t.Error("clients left after close")
	}
	n := 0
	for range ch {
		n++
	}
	if n != cap(ch) {
		t.Errorf("drained %d, want %d", n, cap(ch))
	}
}

func TestEnsureCert(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile, err := EnsureCert(dir)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(certFile)
	if err != nil {
		t.Fatal(err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		t.Fatal("no PEM block")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		t.Fatal(err)
	}
	if err := cert.VerifyHostname("localhost"); err != nil {
		t.Error(err)
	}
	if err := cert.VerifyHostname("127.0.0.1"); err != nil {
		t.Error(err)
	}
	if _, err := os.Stat(keyFile); err != nil {
		t.Fatal(err)
	}

	// A valid pair is reused.
	if _, _, err := EnsureCert(dir); err != nil {
		t.Fatal(err)
	}
	again, _ := os.ReadFile(certFile)
	if string(again) != string(data) {
		t.Error("certificate regenerated although still valid")
	}
}
