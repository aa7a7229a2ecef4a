package handlers

import (
	"context"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/cardinal-lookup/internal/controller"
	"github.com/cardinal-lookup/internal/engine"
	"github.com/cardinal-lookup/internal/store"
	"github.com/cardinal-lookup/internal/web/middleware"
)

// Session is one user's controller and its event hub.
type Session struct {
	Controller *controller.Controller
	Hub        *Hub
}

// Sessions keeps one session per user id. All guests share the session
// keyed by the empty id, which can run lookups but never save.
type Sessions struct {
	Runner *engine.Runner
	Store  store.Store
	Log    logrus.FieldLogger

	// ctx scopes every store subscription; cancelled by Close.
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessions builds an empty registry.
func NewSessions(runner *engine.Runner, s store.Store, log logrus.FieldLogger) *Sessions {
	ctx, cancel := context.WithCancel(context.Background())
	return &Sessions{
		Runner:   runner,
		Store:    s,
		Log:      log,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session of user, creating and subscribing it on first use.
// The subscription is made outside the registry lock; when two first
// requests race, the session stored first wins and the other is closed.
func (s *Sessions) Get(user string) (*Session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[user]
	s.mu.Unlock()
	if ok {
		return sess, nil
	}

	hub := NewHub()
	c := controller.New(controller.Options{
		Runner:   s.Runner,
		Store:    s.Store,
		Renderer: hub,
		Notifier: hub,
		Logger:   s.Log.WithField("user", user),
	})
	if err := c.SetIdentity(s.ctx, controller.Identity{UserID: user}); err != nil {
		c.Close()
		return nil, err
	}

	s.mu.Lock()
	if existing, ok := s.sessions[user]; ok {
		s.mu.Unlock()
		c.Close()
		return existing, nil
	}
	sess = &Session{Controller: c, Hub: hub}
	s.sessions[user] = sess
	s.mu.Unlock()

	s.Log.WithField("user", user).Debug("session created")
	return sess, nil
}

// ForRequest resolves the session of the request's user.
func (s *Sessions) ForRequest(r *http.Request) (*Session, error) {
	return s.Get(middleware.UserFromContext(r.Context()))
}

// Close ends every session.
func (s *Sessions) Close() {
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	for user, sess := range s.sessions {
		sess.Controller.Close()
		delete(s.sessions, user)
	}
}
