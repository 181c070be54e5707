// internal/common/agent/session.go
package agent

import (
	"context"
	"time"

	"rehmat-agent/pkg/registry"
)

// Room is the media room a session runs in.
type Room interface {
	Name() string
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	// Done is closed once the room connection is gone.
	Done() <-chan struct{}
}

// RoomFactory opens a Room handle for a job. The handle is not connected.
type RoomFactory interface {
	NewRoom(ctx context.Context, job Job) (Room, error)
}

// NoiseCancellationSelector picks a profile per participant.
type NoiseCancellationSelector func(p Participant) NoiseCancellation

// AudioInputOptions configures the inbound audio of a session.
type AudioInputOptions struct {
	NoiseCancellation NoiseCancellationSelector
}

// RoomOptions are passed when a session starts in a room.
type RoomOptions struct {
	Participant Participant
	AudioInput  AudioInputOptions
}

// ModelOptions configure a realtime model session.
type ModelOptions struct {
	Model               string
	Voice               string
	Temperature         float64
	Instructions        string
	Tools               *registry.Registry
	VAD                 *VAD
	MinEndpointingDelay time.Duration
	MaxEndpointingDelay time.Duration
	AllowInterruptions  bool
}

// RealtimeModel creates speech-to-speech sessions.
type RealtimeModel interface {
	NewSession(ctx context.Context, opts ModelOptions) (Session, error)
}

// Session is one live conversation with the realtime model.
type Session interface {
	Start(ctx context.Context, room Room, opts RoomOptions) error
	// OnUserSpeechCommitted registers fn for every finished user utterance.
	OnUserSpeechCommitted(fn func(Utterance))
	// InjectMessage adds a message to the conversation without asking for
	// a reply.
	InjectMessage(ctx context.Context, role Role, text string) error
	// CreateResponse makes the model take a turn now.
	CreateResponse(ctx context.Context) error
	// PushAudio feeds caller audio (16 kHz mono PCM16) from the media bridge.
	PushAudio(pcm []byte) error
	Done() <-chan struct{}
	Close() error
}
