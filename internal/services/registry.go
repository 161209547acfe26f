package services

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"coinflip-backend/internal/models"
)

// Registry holds the open play sessions, one App per client.
type Registry struct {
	mu        sync.RWMutex
	apps      map[string]*App
	newApp    func(clientID string) *App
	maxApps   int
	keepAlive func(clientID string) bool
	logger    *zap.Logger
}

func NewRegistry(newApp func(clientID string) *App, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		apps:   make(map[string]*App),
		newApp: newApp,
		logger: logger,
	}
}

// SetMaxApps caps the number of play sessions Create will open. Zero means
// no cap. Sessions reopened by GetOrCreate for a known client are not capped.
func (r *Registry) SetMaxApps(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maxApps = n
}

// SetKeepAlive installs a check that keeps a client's App out of idle
// cleanup, such as an open websocket for it.
func (r *Registry) SetKeepAlive(fn func(clientID string) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keepAlive = fn
}

// Create opens a play session for a new client.
func (r *Registry) Create() (*App, error) {
	clientID := models.GenerateClientID()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.maxApps > 0 && len(r.apps) >= r.maxApps {
		return nil, ErrTooManySessions
	}

	app := r.newApp(clientID)
	r.apps[clientID] = app
	r.logger.Debug("play session opened", zap.String("client_id", clientID))
	return app, nil
}

func (r *Registry) Get(clientID string) (*App, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	app, ok := r.apps[clientID]
	return app, ok
}

// GetOrCreate reopens a play session for a client whose App was reaped while
// its token is still valid.
func (r *Registry) GetOrCreate(clientID string) *App {
	if app, ok := r.Get(clientID); ok {
		return app
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if app, ok := r.apps[clientID]; ok {
		return app
	}

	app := r.newApp(clientID)
	r.apps[clientID] = app
	r.logger.Debug("play session opened", zap.String("client_id", clientID))
	return app
}

func (r *Registry) Remove(clientID string) {
	r.mu.Lock()
	app, ok := r.apps[clientID]
	delete(r.apps, clientID)
	r.mu.Unlock()

	if ok {
		app.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.apps)
}

// CleanupIdle closes play sessions idle for longer than maxIdle. Sessions
// the keep-alive check reports as in use are touched instead.
func (r *Registry) CleanupIdle(maxIdle time.Duration) int {
	r.mu.Lock()
	var stale []*App
	for id, app := range r.apps {
		if time.Since(app.LastActive()) <= maxIdle {
			continue
		}
		if r.keepAlive != nil && r.keepAlive(id) {
			app.Touch()
			continue
		}
		stale = append(stale, app)
		delete(r.apps, id)
	}
	r.mu.Unlock()

	for _, app := range stale {
		app.Close()
	}
	if len(stale) > 0 {
		r.logger.Info("closed idle play sessions", zap.Int("count", len(stale)))
	}
	return len(stale)
}

func (r *Registry) CloseAll() {
	r.mu.Lock()
	apps := r.apps
	r.apps = make(map[string]*App)
	r.mu.Unlock()

	for _, app := range apps {
		app.Close()
	}
}
