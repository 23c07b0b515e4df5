package scheduler

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Mavwarf/stillness/internal/audio"
	"github.com/Mavwarf/stillness/internal/timeline"
)

// AssetStore holds generated session tracks addressable by id. A revoked
// id is gone: lookups fail and the memory is released.
type AssetStore struct {
	mu     sync.RWMutex
	assets map[string]*audio.Session
}

// NewAssetStore returns an empty store.
func NewAssetStore() *AssetStore {
	return &AssetStore{assets: make(map[string]*audio.Session)}
}

// Publish registers s and returns its id.
func (a *AssetStore) Publish(s *audio.Session) string {
	id := uuid.NewString()
	a.mu.Lock()
	a.assets[id] = s
	a.mu.Unlock()
	return id
}

// Get returns the track for id.
func (a *AssetStore) Get(id string) (*audio.Session, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.assets[id]
	return s, ok
}

// Revoke drops id. Unknown ids are ignored.
func (a *AssetStore) Revoke(id string) {
	a.mu.Lock()
	delete(a.assets, id)
	a.mu.Unlock()
}

// Len returns the number of live assets.
func (a *AssetStore) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.assets)
}

// AssetBackend publishes the session track for a remote player (a browser
// <audio> element) instead of playing it locally. Playback starts when
// the client loads the URL; Cancel revokes it.
type AssetBackend struct {
	Store      *AssetStore
	Bell       []int16
	SampleRate int
	Volume     float64

	mu        sync.Mutex
	current   string
	preview   string
	listeners []func(AssetEvent)
}

// AssetEvent announces an asset change to remote players. ID is empty
// when the current track was revoked.
type AssetEvent struct {
	Kind string `json:"kind"` // "session" or "preview"
	ID   string `json:"id"`
}

// NewAssetBackend returns a backend publishing into store.
func NewAssetBackend(store *AssetStore, bell []int16, sampleRate int, volume float64) *AssetBackend {
	return &AssetBackend{Store: store, Bell: bell, SampleRate: sampleRate, Volume: volume}
}

// OnChange registers fn to be called after every publish or revoke.
func (a *AssetBackend) OnChange(fn func(AssetEvent)) {
	a.mu.Lock()
	a.listeners = append(a.listeners, fn)
	a.mu.Unlock()
}

// Current returns the id of the armed session track, or "".
func (a *AssetBackend) Current() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// Preview returns the id of the last preview track, or "".
func (a *AssetBackend) Preview() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.preview
}

func (a *AssetBackend) Arm(tl *timeline.Timeline) error {
	s := audio.NewSession(a.Bell, tl.Offsets(), tl.Total(), a.SampleRate)
	s.SetVolume(a.Volume)

	a.mu.Lock()
	a.revokeLocked()
	a.current = a.Store.Publish(s)
	ev := AssetEvent{Kind: "session", ID: a.current}
	ls := a.listeners
	a.mu.Unlock()

	notify(ls, ev)
	return nil
}

func (a *AssetBackend) Cancel() {
	a.mu.Lock()
	had := a.current != ""
	a.revokeLocked()
	ls := a.listeners
	a.mu.Unlock()

	if had {
		notify(ls, AssetEvent{Kind: "session"})
	}
}

func (a *AssetBackend) revokeLocked() {
	if a.current != "" {
		a.Store.Revoke(a.current)
		a.current = ""
	}
}

func (a *AssetBackend) PreviewOne() error {
	s := audio.NewSession(a.Bell, []time.Duration{0}, 0, a.SampleRate)
	s.SetVolume(a.Volume)

	a.mu.Lock()
	if a.preview != "" {
		a.Store.Revoke(a.preview)
	}
	a.preview = a.Store.Publish(s)
	ev := AssetEvent{Kind: "preview", ID: a.preview}
	ls := a.listeners
	a.mu.Unlock()

	notify(ls, ev)
	return nil
}

func notify(ls []func(AssetEvent), ev AssetEvent) {
	for _, fn := range ls {
		fn(ev)
	}
}
