// internal/common/agent/agenttest/fakes.go

// Package agenttest provides in-memory stand-ins for the agent host
// interfaces so session logic can be tested without a room or a model.
package agenttest

import (
	"context"
	"sort"
	"sync"
	"time"

	"rehmat-agent/internal/common/agent"
)

// ManualScheduler runs callbacks only when Advance moves its clock past
// their deadline.
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Duration
	pending []*manualTimer
}

type manualTimer struct {
	s       *ManualScheduler
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) agent.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{s: s, at: s.now + d, f: f}
	s.pending = append(s.pending, t)
	return t
}

// Advance moves the clock by d and runs due callbacks in deadline order on
// the calling goroutine.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now += d
	var due []*manualTimer
	rest := s.pending[:0]
	for _, t := range s.pending {
		switch {
		case t.stopped:
		case t.at <= s.now:
			t.fired = true
			due = append(due, t)
		default:
			rest = append(rest, t)
		}
	}
	s.pending = rest
	s.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.f()
	}
}

// Pending returns the delays, relative to now, of callbacks not yet run.
func (s *ManualScheduler) Pending() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []time.Duration
	for _, t := range s.pending {
		if !t.stopped {
			out = append(out, t.at-s.now)
		}
	}
	return out
}

// Room is a fake agent.Room.
type Room struct {
	RoomName       string
	ConnectFunc    func(ctx context.Context) error
	DisconnectFunc func(ctx context.Context) error

	mu          sync.Mutex
	connects    int
	disconnects int
	done        chan struct{}
	closeOnce   sync.Once
}

func NewRoom(name string) *Room {
	return &Room{RoomName: name, done: make(chan struct{})}
}

func (r *Room) Name() string { return r.RoomName }

func (r *Room) Connect(ctx context.Context) error {
	r.mu.Lock()
	r.connects++
	r.mu.Unlock()
	if r.ConnectFunc != nil {
		return r.ConnectFunc(ctx)
	}
	return nil
}

func (r *Room) Disconnect(ctx context.Context) error {
	r.mu.Lock()
	r.disconnects++
	r.mu.Unlock()
	r.closeOnce.Do(func() { close(r.done) })
	if r.DisconnectFunc != nil {
		return r.DisconnectFunc(ctx)
	}
	return nil
}

func (r *Room) Done() <-chan struct{} { return r.done }

func (r *Room) Connects() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connects
}

func (r *Room) Disconnects() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disconnects
}

// RoomFactory hands out fake rooms.
type RoomFactory struct {
	NewRoomFunc func(ctx context.Context, job agent.Job) (agent.Room, error)
}

func (f *RoomFactory) NewRoom(ctx context.Context, job agent.Job) (agent.Room, error) {
	if f.NewRoomFunc != nil {
		return f.NewRoomFunc(ctx, job)
	}
	return NewRoom(job.Room), nil
}

// Message is a message injected into a fake session.
type Message struct {
	Role agent.Role
	Text string
}

// Session is a fake agent.Session that records calls.
type Session struct {
	StartFunc func(ctx context.Context, room agent.Room, opts agent.RoomOptions) error

	mu          sync.Mutex
	startOpts   *agent.RoomOptions
	callbacks   []func(agent.Utterance)
	messages    []Message
	responses   int
	audioFrames int
	closed      bool
	done        chan struct{}
	closeOnce   sync.Once
}

func NewSession() *Session {
	return &Session{done: make(chan struct{})}
}

func (s *Session) Start(ctx context.Context, room agent.Room, opts agent.RoomOptions) error {
	s.mu.Lock()
	s.startOpts = &opts
	s.mu.Unlock()
	if s.StartFunc != nil {
		return s.StartFunc(ctx, room, opts)
	}
	return nil
}

func (s *Session) OnUserSpeechCommitted(fn func(agent.Utterance)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, fn)
}

// Say simulates a committed user utterance.
func (s *Session) Say(text string) {
	s.mu.Lock()
	cbs := append(([]func(agent.Utterance))(nil), s.callbacks...)
	s.mu.Unlock()
	for _, cb := range cbs {
		cb(agent.Utterance{Text: text, At: time.Now()})
	}
}

func (s *Session) InjectMessage(_ context.Context, role agent.Role, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, Message{Role: role, Text: text})
	return nil
}

func (s *Session) CreateResponse(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses++
	return nil
}

func (s *Session) PushAudio([]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audioFrames++
	return nil
}

func (s *Session) Done() <-chan struct{} { return s.done }

// End simulates the model closing the conversation.
func (s *Session) End() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *Session) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.End()
	return nil
}

func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

func (s *Session) Responses() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.responses
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) StartOptions() *agent.RoomOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startOpts
}

// Model is a fake agent.RealtimeModel.
type Model struct {
	Session        *Session
	NewSessionFunc func(ctx context.Context, opts agent.ModelOptions) (agent.Session, error)

	mu   sync.Mutex
	opts []agent.ModelOptions
}

func (m *Model) NewSession(ctx context.Context, opts agent.ModelOptions) (agent.Session, error) {
	m.mu.Lock()
	m.opts = append(m.opts, opts)
	m.mu.Unlock()
	if m.NewSessionFunc != nil {
		return m.NewSessionFunc(ctx, opts)
	}
	return m.Session, nil
}

// Options returns the options of every NewSession call.
func (m *Model) Options() []agent.ModelOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]agent.ModelOptions(nil), m.opts...)
}
