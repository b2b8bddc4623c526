// internal/viewer/hub.go
package viewer

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrSessionNotFound is returned for unknown viewer sessions
	ErrSessionNotFound = errors.New("viewer session not found")
	// ErrTooManySessions is returned when creating a session would exceed MaxSessions
	ErrTooManySessions = errors.New("too many viewer sessions")
)

// CameraState is the serializable camera pose
type CameraState struct {
	Target Vec3    `json:"target"`
	Radius float64 `json:"radius"`
}

// Snapshot is the observable state of a viewer session
type Snapshot struct {
	SessionID   string      `json:"session_id"`
	ProductID   string      `json:"product_id,omitempty"`
	ViewMode    ViewMode    `json:"view_mode"`
	Highlighted []string    `json:"highlighted"`
	Meshes      []string    `json:"meshes"`
	Camera      CameraState `json:"camera"`
	MetaURL     string      `json:"meta_url,omitempty"`
}

// Message is pushed to session subscribers after every change
type Message struct {
	Event    *Event   `json:"event,omitempty"`
	Snapshot Snapshot `json:"snapshot"`
}

// HubOptions configure the scenes created by a Hub
type HubOptions struct {
	MetaSuffix       string
	CameraMultiplier float64
	InitialRadius    float64
	Fetcher          MetaFetcher
	FetchTimeout     time.Duration
	// SubscriberBuffer bounds queued messages per subscriber; slow readers miss messages
	SubscriberBuffer int
	// MaxSessions caps live sessions; zero means no cap
	MaxSessions int
	// IdleTimeout is how long a session without subscribers survives EvictIdle; zero disables eviction
	IdleTimeout time.Duration
}

// Hub owns the viewer sessions driven over HTTP and websockets.
// Each session has its own bridge, scene graph, camera and adapter.
type Hub struct {
	opts HubOptions
	log  logrus.FieldLogger

	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*viewerSession
}

type viewerSession struct {
	id      string
	bridge  *Bridge
	graph   *Graph
	camera  *OrbitCamera
	adapter *Adapter

	// guarded by Hub.mu
	lastActive time.Time

	// emitMu keeps each change paired with its snapshot and in order
	emitMu sync.Mutex

	mu      sync.Mutex
	subs    map[uint64]chan Message
	nextSub uint64
	closed  bool
}

// NewHub creates a new viewer hub
func NewHub(opts HubOptions, log logrus.FieldLogger) *Hub {
	if opts.InitialRadius <= 0 {
		opts.InitialRadius = 10
	}
	if opts.SubscriberBuffer <= 0 {
		opts.SubscriberBuffer = 16
	}
	return &Hub{
		opts:     opts,
		log:      log,
		now:      time.Now,
		sessions: make(map[string]*viewerSession),
	}
}

func (h *Hub) session(id string, create bool) (*viewerSession, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	if s, ok := h.sessions[id]; ok {
		s.lastActive = now
		return s, nil
	}
	if !create {
		return nil, ErrSessionNotFound
	}
	if h.opts.MaxSessions > 0 && len(h.sessions) >= h.opts.MaxSessions {
		return nil, ErrTooManySessions
	}

	s := &viewerSession{
		id:         id,
		bridge:     NewBridge(),
		graph:      NewGraph(),
		camera:     NewOrbitCamera(h.opts.InitialRadius),
		lastActive: now,
		subs:       make(map[uint64]chan Message),
	}
	s.adapter = Attach(s.bridge, s.graph, s.camera, Options{
		MetaSuffix:       h.opts.MetaSuffix,
		CameraMultiplier: h.opts.CameraMultiplier,
		Fetcher:          h.opts.Fetcher,
		FetchTimeout:     h.opts.FetchTimeout,
		Log:              h.log.WithField("viewer_session", id),
		OnMeta: func(meta *Meta) bool {
			rebuilt := s.graph.Rebuild(meta)
			h.log.WithFields(logrus.Fields{
				"viewer_session": id,
				"url":            meta.URL,
				"meshes":         len(meta.Meshes),
			}).Debug("Viewer metadata loaded")
			return rebuilt
		},
		AfterMeta: func() {
			s.emitMu.Lock()
			defer s.emitMu.Unlock()
			s.publish(nil)
		},
	})
	h.sessions[id] = s
	return s, nil
}

// Emit applies an event to a session, creating the session on first use
func (h *Hub) Emit(id string, e Event) (Snapshot, error) {
	if err := e.Validate(); err != nil {
		return Snapshot{}, err
	}

	s, err := h.session(id, true)
	if err != nil {
		return Snapshot{}, err
	}

	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.bridge.Emit(e)
	return s.publish(&e), nil
}

// Snapshot returns the current state of a session
func (h *Hub) Snapshot(id string) (Snapshot, error) {
	s, err := h.session(id, false)
	if err != nil {
		return Snapshot{}, err
	}
	return s.snapshot(), nil
}

// Subscribe streams session messages until the returned cancel func is called
// or the session is closed, which closes the channel
func (h *Hub) Subscribe(id string) (<-chan Message, func(), error) {
	s, err := h.session(id, true)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Message, h.opts.SubscriberBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}, nil
	}

	subID := s.nextSub
	s.nextSub++
	s.subs[subID] = ch

	// Current state first so a new viewer can render immediately
	ch <- Message{Snapshot: s.snapshot()}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[subID]; ok {
				delete(s.subs, subID)
				close(c)
			}
		})
	}, nil
}

// Close detaches a session's adapter and ends its subscriptions
func (h *Hub) Close(id string) bool {
	h.mu.Lock()
	s, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()
	if !ok {
		return false
	}

	s.close()
	return true
}

// CloseAll closes every session
func (h *Hub) CloseAll() {
	h.mu.Lock()
	sessions := make([]*viewerSession, 0, len(h.sessions))
	for id, s := range h.sessions {
		sessions = append(sessions, s)
		delete(h.sessions, id)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
}

// EvictIdle closes sessions that have no subscribers and saw no activity
// for longer than IdleTimeout, returning how many were closed
func (h *Hub) EvictIdle() int {
	if h.opts.IdleTimeout <= 0 {
		return 0
	}

	h.mu.Lock()
	cutoff := h.now().Add(-h.opts.IdleTimeout)
	var idle []*viewerSession
	for id, s := range h.sessions {
		if !s.lastActive.Before(cutoff) || s.subscribers() > 0 {
			continue
		}
		idle = append(idle, s)
		delete(h.sessions, id)
	}
	h.mu.Unlock()

	for _, s := range idle {
		s.close()
	}
	return len(idle)
}

// Len returns the number of live sessions
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func (s *viewerSession) subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *viewerSession) snapshot() Snapshot {
	snap := Snapshot{
		SessionID:   s.id,
		ProductID:   s.adapter.ProductID(),
		ViewMode:    s.adapter.ViewMode(),
		Highlighted: s.adapter.Highlighted(),
		Meshes:      s.graph.Names(),
		Camera: CameraState{
			Target: s.camera.Target(),
			Radius: s.camera.Radius(),
		},
	}
	if meta := s.adapter.Metadata(); meta != nil {
		snap.MetaURL = meta.URL
	}
	return snap
}

// publish sends the current snapshot to every subscriber without blocking
func (s *viewerSession) publish(e *Event) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := Message{Event: e, Snapshot: s.snapshot()}
	if s.closed {
		return msg.Snapshot
	}
	for _, ch := range s.subs {
		select {
		case ch <- msg:
		default:
		}
	}
	return msg.Snapshot
}

func (s *viewerSession) close() {
	s.adapter.Detach()

	s.mu.Lock()
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.mu.Unlock()

	s.adapter.Wait()
}
