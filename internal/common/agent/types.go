// internal/common/agent/types.go

// Package agent hosts voice sessions: it receives jobs for rooms, runs one
// entrypoint per job and owns the process-scoped state shared by sessions.
package agent

import "time"

type ParticipantKind int

const (
	ParticipantStandard ParticipantKind = iota
	ParticipantSIP
	ParticipantAgent
)

func (k ParticipantKind) String() string {
	switch k {
	case ParticipantSIP:
		return "sip"
	case ParticipantAgent:
		return "agent"
	default:
		return "standard"
	}
}

// Participant is the caller a job was dispatched for.
type Participant struct {
	Identity   string
	Name       string
	Kind       ParticipantKind
	Attributes map[string]string
}

// NoiseCancellation names a noise cancellation profile of the media bridge.
type NoiseCancellation string

const (
	NoiseCancellationBVC          NoiseCancellation = "BVC"
	NoiseCancellationBVCTelephony NoiseCancellation = "BVCTelephony"
)

// Role of a message injected into the conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Utterance is a finished user transcription.
type Utterance struct {
	Text string
	At   time.Time
}

// Job asks the worker to serve one room.
type Job struct {
	ID          string
	Room        string
	Participant Participant
}
