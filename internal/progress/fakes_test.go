package progress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type memPersistence struct {
	mu      sync.Mutex
	data    map[string][]byte
	saves   int
	loadErr error
	saveErr error
}

func newMemPersistence() *memPersistence {
	return &memPersistence{data: map[string][]byte{}}
}

func (m *memPersistence) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (m *memPersistence) Save(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memPersistence) blob(key string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key]
}

type notification struct {
	title string
	body  string
}

type recordingNotifier struct {
	mu    sync.Mutex
	got   []notification
	err   error
	panic bool
}

func (r *recordingNotifier) NotifyAchievement(_ context.Context, title, body string) error {
	if r.panic {
		panic("notifier exploded")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, notification{title: title, body: body})
	return r.err
}

func (r *recordingNotifier) all() []notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notification(nil), r.got...)
}

func (r *recordingNotifier) count(title string) int {
	n := 0
	for _, g := range r.all() {
		if g.title == title {
			n++
		}
	}
	return n
}

func (r *recordingNotifier) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = nil
}

type recordingSounds struct {
	mu  sync.Mutex
	got []SoundCue
	err error
}

func (r *recordingSounds) Play(_ context.Context, cue SoundCue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, cue)
	return r.err
}

func (r *recordingSounds) all() []SoundCue {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]SoundCue(nil), r.got...)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

var errBoom = errors.New("boom")

type harness struct {
	store    *Store
	persist  *memPersistence
	notifier *recordingNotifier
	sounds   *recordingSounds
	clock    *fakeClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		persist:  newMemPersistence(),
		notifier: &recordingNotifier{},
		sounds:   &recordingSounds{},
		clock:    &fakeClock{t: time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)},
	}
	h.store = h.build()
	return h
}

// build creates a fresh store over the harness collaborators and loads it
func (h *harness) build() *Store {
	s := NewStore(h.persist, Options{
		Notifier: h.notifier,
		Sounds:   h.sounds,
		Clock:    h.clock.Now,
		Location: time.UTC,
	})
	s.Load(context.Background())
	return s
}
