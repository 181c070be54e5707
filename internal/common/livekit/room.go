// internal/common/livekit/room.go
package livekit

import (
	"context"
	"fmt"
	"sync"
	"time"

	lkproto "github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"

	"rehmat-agent/internal/common/agent"
	"rehmat-agent/internal/common/config"
	"rehmat-agent/internal/common/logger"
)

// RoomService is the part of the LiveKit room API used on hang up.
type RoomService interface {
	DeleteRoom(ctx context.Context, req *lkproto.DeleteRoomRequest) (*lkproto.DeleteRoomResponse, error)
}

// RoomFactory opens LiveKit rooms as the agent participant.
type RoomFactory struct {
	url            string
	apiKey         string
	apiSecret      string
	identity       string
	deleteOnHangup bool
	service        RoomService
	log            logger.Logger
}

func NewRoomFactory(cfg config.LiveKitConfig, deleteOnHangup bool, log logger.Logger) *RoomFactory {
	return &RoomFactory{
		url:            cfg.URL,
		apiKey:         cfg.APIKey,
		apiSecret:      cfg.APISecret,
		identity:       cfg.AgentIdentity,
		deleteOnHangup: deleteOnHangup,
		service:        lksdk.NewRoomServiceClient(cfg.URL, cfg.APIKey, cfg.APISecret),
		log:            log,
	}
}

// WithRoomService replaces the room service client.
func (f *RoomFactory) WithRoomService(svc RoomService) *RoomFactory {
	f.service = svc
	return f
}

func (f *RoomFactory) NewRoom(_ context.Context, job agent.Job) (agent.Room, error) {
	if job.Room == "" {
		return nil, fmt.Errorf("job %s has no room", job.ID)
	}
	return &Room{
		name:   job.Room,
		caller: job.Participant.Identity,
		f:      f,
		done:   make(chan struct{}),
	}, nil
}

// Room is one agent connection to a LiveKit room. Done closes when the
// connection drops or the caller leaves.
type Room struct {
	name   string
	caller string
	f      *RoomFactory

	mu       sync.Mutex
	lk       *lksdk.Room
	done     chan struct{}
	doneOnce sync.Once
}

func (r *Room) Name() string { return r.name }

func (r *Room) Done() <-chan struct{} { return r.done }

func (r *Room) markDone() {
	r.doneOnce.Do(func() { close(r.done) })
}

func (r *Room) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cb := &lksdk.RoomCallback{
		OnDisconnected: r.markDone,
		OnParticipantDisconnected: func(p *lksdk.RemoteParticipant) {
			if p.Identity() == r.caller {
				r.f.log.Info("Caller left room", map[string]interface{}{"room": r.name, "participant": r.caller})
				r.markDone()
			}
		},
	}
	lk, err := lksdk.ConnectToRoom(r.f.url, lksdk.ConnectInfo{
		APIKey:              r.f.apiKey,
		APISecret:           r.f.apiSecret,
		RoomName:            r.name,
		ParticipantIdentity: r.f.identity,
		ParticipantName:     r.f.identity,
	}, cb)
	if err != nil {
		return fmt.Errorf("connect to room %s: %w", r.name, err)
	}

	r.mu.Lock()
	r.lk = lk
	r.mu.Unlock()
	return nil
}

// Disconnect leaves the room. With delete on hang up enabled the room is
// deleted so a phone caller is dropped too.
func (r *Room) Disconnect(ctx context.Context) error {
	defer r.markDone()

	var err error
	if r.f.deleteOnHangup && r.f.service != nil {
		dctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_, err = r.f.service.DeleteRoom(dctx, &lkproto.DeleteRoomRequest{Room: r.name})
		cancel()
		if err != nil {
			err = fmt.Errorf("delete room %s: %w", r.name, err)
		}
	}

	r.mu.Lock()
	lk := r.lk
	r.lk = nil
	r.mu.Unlock()
	if lk != nil {
		lk.Disconnect()
	}
	return err
}
