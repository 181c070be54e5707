// internal/common/livekit/webhook.go
package livekit

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/livekit/protocol/auth"
	lkproto "github.com/livekit/protocol/livekit"
	"github.com/livekit/protocol/webhook"

	"rehmat-agent/internal/common/agent"
	apperrors "rehmat-agent/internal/common/errors"
	"rehmat-agent/internal/common/logger"
	"rehmat-agent/internal/common/metrics"
)

const eventParticipantJoined = "participant_joined"

// Dispatcher starts a session for a job.
type Dispatcher interface {
	Dispatch(ctx context.Context, job agent.Job) error
}

// WebhookHandler turns signed LiveKit webhooks into agent jobs. Only a
// non-agent participant joining a call room produces a job.
type WebhookHandler struct {
	provider      auth.KeyProvider
	dispatcher    Dispatcher
	roomPrefix    string
	agentIdentity string
	log           logger.Logger
}

func NewWebhookHandler(apiKey, apiSecret, roomPrefix, agentIdentity string, dispatcher Dispatcher, log logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		provider:      auth.NewSimpleKeyProvider(apiKey, apiSecret),
		dispatcher:    dispatcher,
		roomPrefix:    roomPrefix,
		agentIdentity: agentIdentity,
		log:           log,
	}
}

type webhookResponse struct {
	Status string `json:"status"`
	JobID  string `json:"jobId,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	event, err := webhook.ReceiveWebhookEvent(r, h.provider)
	if err != nil {
		metrics.WebhooksReceived.WithLabelValues("unknown", "rejected").Inc()
		rejected := apperrors.NewWebhookRejectedError(err)
		h.log.Warn("Webhook rejected", map[string]interface{}{"error": err.Error()})
		writeJSON(w, http.StatusUnauthorized, webhookResponse{Status: "rejected", Error: rejected.Message})
		return
	}

	job, ok := JobFromEvent(event, h.roomPrefix, h.agentIdentity)
	if !ok {
		metrics.WebhooksReceived.WithLabelValues(event.GetEvent(), "ignored").Inc()
		writeJSON(w, http.StatusOK, webhookResponse{Status: "ignored"})
		return
	}

	err = h.dispatcher.Dispatch(r.Context(), job)
	if err == nil {
		metrics.WebhooksReceived.WithLabelValues(event.GetEvent(), "dispatched").Inc()
		h.log.Info("Job dispatched", map[string]interface{}{
			"room":        job.Room,
			"jobId":       job.ID,
			"participant": job.Participant.Identity,
		})
		writeJSON(w, http.StatusOK, webhookResponse{Status: "dispatched", JobID: job.ID})
		return
	}

	switch apperrors.CodeOf(err) {
	case apperrors.ErrCodeRoomAlreadyClaimed:
		metrics.WebhooksReceived.WithLabelValues(event.GetEvent(), "duplicate").Inc()
		writeJSON(w, http.StatusOK, webhookResponse{Status: "duplicate"})
	case apperrors.ErrCodeCapacityExceeded:
		metrics.WebhooksReceived.WithLabelValues(event.GetEvent(), "busy").Inc()
		h.log.Warn("Worker at capacity", map[string]interface{}{"room": job.Room})
		writeJSON(w, http.StatusServiceUnavailable, webhookResponse{Status: "busy", Error: err.Error()})
	default:
		metrics.WebhooksReceived.WithLabelValues(event.GetEvent(), "failed").Inc()
		h.log.Error("Dispatch failed", map[string]interface{}{"room": job.Room, "error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, webhookResponse{Status: "failed", Error: err.Error()})
	}
}

// JobFromEvent maps a participant_joined event to a job. Agents, the
// worker's own identity and rooms outside roomPrefix are skipped.
func JobFromEvent(event *lkproto.WebhookEvent, roomPrefix, agentIdentity string) (agent.Job, bool) {
	if event == nil || event.GetEvent() != eventParticipantJoined {
		return agent.Job{}, false
	}
	room := event.GetRoom().GetName()
	p := event.GetParticipant()
	if room == "" || p == nil || !strings.HasPrefix(room, roomPrefix) {
		return agent.Job{}, false
	}
	if p.GetKind() == lkproto.ParticipantInfo_AGENT || p.GetIdentity() == agentIdentity {
		return agent.Job{}, false
	}

	id := event.GetId()
	if id == "" {
		id = uuid.NewString()
	}
	return agent.Job{
		ID:   id,
		Room: room,
		Participant: agent.Participant{
			Identity:   p.GetIdentity(),
			Name:       p.GetName(),
			Kind:       participantKind(p.GetKind()),
			Attributes: p.GetAttributes(),
		},
	}, true
}

func participantKind(k lkproto.ParticipantInfo_Kind) agent.ParticipantKind {
	switch k {
	case lkproto.ParticipantInfo_SIP:
		return agent.ParticipantSIP
	case lkproto.ParticipantInfo_AGENT:
		return agent.ParticipantAgent
	default:
		return agent.ParticipantStandard
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
