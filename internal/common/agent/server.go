// internal/common/agent/server.go
package agent

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"rehmat-agent/internal/common/database"
	apperrors "rehmat-agent/internal/common/errors"
	"rehmat-agent/internal/common/logger"
)

// SetupFunc prepares process-scoped state. It runs once before any job.
type SetupFunc func(proc *Process) error

// EntrypointFunc serves one job. It runs on its own goroutine.
type EntrypointFunc func(ctx context.Context, jc *JobContext) error

// SessionRecorder observes session starts and ends.
type SessionRecorder interface {
	SessionStarted(taskType string)
	SessionEnded(taskType string, d time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) SessionStarted(string)              {}
func (noopRecorder) SessionEnded(string, time.Duration) {}

type ServerOptions struct {
	TaskType              string
	WorkerID              string
	Setup                 SetupFunc
	Entrypoint            EntrypointFunc
	Rooms                 RoomFactory
	Claimer               database.RoomClaimer
	ClaimTTL              time.Duration
	MaxConcurrentSessions int
	Scheduler             Scheduler
	Recorder              SessionRecorder
	ErrorHandler          *apperrors.ErrorHandler
	Logger                logger.Logger
}

// Server runs entrypoints for dispatched jobs, one goroutine per job.
type Server struct {
	opts    ServerOptions
	log     logger.Logger
	sem     *semaphore.Weighted
	proc    *Process
	wg      sync.WaitGroup
	ready   atomic.Bool
	mu      sync.Mutex
	baseCtx context.Context
	cancel  context.CancelFunc
}

func NewServer(opts ServerOptions) (*Server, error) {
	if opts.Entrypoint == nil {
		return nil, fmt.Errorf("entrypoint is required")
	}
	if opts.Rooms == nil {
		return nil, fmt.Errorf("room factory is required")
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	if opts.Claimer == nil {
		opts.Claimer = database.NewMemoryClaimer()
	}
	if opts.ClaimTTL <= 0 {
		opts.ClaimTTL = time.Hour
	}
	if opts.MaxConcurrentSessions <= 0 {
		opts.MaxConcurrentSessions = 1
	}
	if opts.Scheduler == nil {
		opts.Scheduler = WallClock{}
	}
	if opts.Recorder == nil {
		opts.Recorder = noopRecorder{}
	}
	if opts.ErrorHandler == nil {
		opts.ErrorHandler = apperrors.NewErrorHandler(opts.Logger, nil)
	}
	if opts.TaskType == "" {
		opts.TaskType = "session"
	}

	return &Server{
		opts: opts,
		log:  opts.Logger.WithFields(map[string]interface{}{"workerId": opts.WorkerID}),
		sem:  semaphore.NewWeighted(int64(opts.MaxConcurrentSessions)),
		proc: &Process{},
	}, nil
}

// Start runs Setup and makes the server accept jobs. Jobs live until ctx is
// cancelled or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.baseCtx != nil {
		return fmt.Errorf("server already started")
	}

	if s.opts.Setup != nil {
		if err := s.opts.Setup(s.proc); err != nil {
			return fmt.Errorf("setup: %w", err)
		}
	}
	s.baseCtx, s.cancel = context.WithCancel(ctx)
	s.ready.Store(true)

	s.log.Info("Agent server ready", map[string]interface{}{
		"taskType":              s.opts.TaskType,
		"maxConcurrentSessions": s.opts.MaxConcurrentSessions,
	})
	return nil
}

func (s *Server) Ready() bool { return s.ready.Load() }

func (s *Server) Process() *Process { return s.proc }

// Dispatch claims job.Room and starts the entrypoint for it. It returns
// without waiting for the session.
func (s *Server) Dispatch(ctx context.Context, job Job) error {
	if !s.Ready() {
		return fmt.Errorf("server not started")
	}

	owner := s.opts.WorkerID + "/" + job.ID
	claimed, err := s.opts.Claimer.Claim(ctx, job.Room, owner, s.opts.ClaimTTL)
	if err != nil {
		return err
	}
	if !claimed {
		return apperrors.NewRoomAlreadyClaimedError(job.Room)
	}

	if !s.sem.TryAcquire(1) {
		s.releaseClaim(job.Room, owner)
		return apperrors.NewCapacityExceededError(s.opts.MaxConcurrentSessions)
	}

	s.mu.Lock()
	base := s.baseCtx
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(base, job, owner)
	return nil
}

func (s *Server) run(ctx context.Context, job Job, owner string) {
	defer s.wg.Done()
	defer s.sem.Release(1)
	defer s.releaseClaim(job.Room, owner)

	log := logger.ForSession(s.log, job.Room, job.ID)
	started := time.Now()
	s.opts.Recorder.SessionStarted(s.opts.TaskType)
	defer func() { s.opts.Recorder.SessionEnded(s.opts.TaskType, time.Since(started)) }()

	defer func() {
		if r := recover(); r != nil {
			s.opts.ErrorHandler.HandleSessionError(s.opts.TaskType, job.Room, fmt.Errorf("entrypoint panic: %v", r))
		}
	}()

	room, err := s.opts.Rooms.NewRoom(ctx, job)
	if err != nil {
		s.opts.ErrorHandler.HandleSessionError(s.opts.TaskType, job.Room, apperrors.NewRoomConnectFailedError(job.Room, err))
		return
	}

	jc := &JobContext{
		ID:          job.ID,
		Room:        room,
		Participant: job.Participant,
		Process:     s.proc,
		Scheduler:   s.opts.Scheduler,
		Logger:      log,
	}
	defer jc.StopTimers()

	log.Info("Job started", map[string]interface{}{
		"participant":     job.Participant.Identity,
		"participantKind": job.Participant.Kind.String(),
	})
	if err := s.opts.Entrypoint(ctx, jc); err != nil {
		s.opts.ErrorHandler.HandleSessionError(s.opts.TaskType, job.Room, err)
		return
	}
	log.Info("Job finished", map[string]interface{}{
		"duration": time.Since(started).String(),
	})
}

func (s *Server) releaseClaim(room, owner string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.opts.Claimer.Release(ctx, room, owner); err != nil {
		s.log.Warn("Failed to release room claim", map[string]interface{}{
			"room":  room,
			"error": err,
		})
	}
}

// Shutdown cancels running jobs and waits for them until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.ready.Store(false)
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
