package watch

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/adnsv/extpack/model"
	log "github.com/sirupsen/logrus"
)

const DefaultDebounce = 500 * time.Millisecond

type source struct {
	path  string // canonical
	isDir bool
}

// Monitor decides whether a modified path belongs to a target and, if it
// does, rebuilds the target at most once per debounce window. The window is
// shared by all assets of the target.
type Monitor struct {
	target *model.Target
	build  func()
	window time.Duration
	now    func() time.Time

	sources []source
	baseDir string
	ignore  *model.Matcher

	mu   sync.Mutex
	last time.Time
}

// NewMonitor creates a monitor for t. The debounce window starts at
// creation time, so events arriving right after the baseline build are
// swallowed too.
func NewMonitor(t *model.Target, window time.Duration, build func()) *Monitor {
	if window <= 0 {
		window = DefaultDebounce
	}
	m := &Monitor{
		target: t,
		build:  build,
		window: window,
		now:    time.Now,
	}
	for _, a := range t.Assets {
		m.sources = append(m.sources, source{path: model.Canonical(a.Src), isDir: a.IsDir})
	}
	m.last = m.now()
	return m
}

// SetClock replaces the time source and restarts the debounce window.
func (m *Monitor) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
	m.last = now()
}

// SetIgnore excludes paths matching ignore, relative to baseDir.
func (m *Monitor) SetIgnore(baseDir string, ignore *model.Matcher) {
	m.baseDir = model.Canonical(baseDir)
	m.ignore = ignore
}

// Tracks reports whether fn is one of the target's sources or lies within
// a directory source.
func (m *Monitor) Tracks(fn string) bool {
	fn = model.Canonical(fn)
	if m.ignore != nil && m.baseDir != "" {
		if rel, err := filepath.Rel(m.baseDir, fn); err == nil && m.ignore.Match(rel) {
			return false
		}
	}
	for _, s := range m.sources {
		if fn == s.path {
			return true
		}
		if s.isDir && model.Within(s.path, fn) {
			return true
		}
	}
	return false
}

// OnPathModified is the notification callback. It returns true when the
// event triggered a rebuild.
func (m *Monitor) OnPathModified(fn string) bool {
	if !m.Tracks(fn) {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if now.Sub(m.last) < m.window {
		log.WithField("path", fn).Debug("change within debounce window, ignored")
		return false
	}
	m.last = now

	log.WithField("target", m.target.Name).Infof("detected change: %s", fn)
	m.build()
	return true
}
