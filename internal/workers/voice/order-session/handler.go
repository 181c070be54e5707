// internal/workers/voice/order-session/handler.go
package ordersession

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"rehmat-agent/internal/common/agent"
	apperrors "rehmat-agent/internal/common/errors"
	"rehmat-agent/internal/common/logger"
	"rehmat-agent/internal/common/metrics"
	"rehmat-agent/internal/common/observability"
	notifyorder "rehmat-agent/internal/workers/communication/notify-order"
	confirmorder "rehmat-agent/internal/workers/voice/confirm-order"
	"rehmat-agent/pkg/registry"
)

const (
	TaskType = "order-session"
)

// OrderNotifier forwards a confirmed order to the shop.
type OrderNotifier interface {
	Execute(ctx context.Context, input *notifyorder.Input) (*notifyorder.Output, error)
}

type Handler struct {
	config       *Config
	model        agent.RealtimeModel
	instructions string
	toolConfig   *confirmorder.Config
	farewell     *FarewellDetector
	notifier     OrderNotifier
	obs          *observability.Observability
	logger       logger.Logger
}

// NewHandler renders the instructions once; the catalog is fixed for the
// life of the process. notifier and obs may be nil.
func NewHandler(config *Config, model agent.RealtimeModel, knowledge string, toolConfig *confirmorder.Config, notifier OrderNotifier, obs *observability.Observability, log logger.Logger) (*Handler, error) {
	instructions, err := BuildInstructions(knowledge)
	if err != nil {
		return nil, err
	}
	return &Handler{
		config:       config,
		model:        model,
		instructions: instructions,
		toolConfig:   toolConfig,
		farewell:     NewFarewellDetector(config.FarewellPhrases),
		notifier:     notifier,
		obs:          obs,
		logger:       log,
	}, nil
}

// SelectNoiseCancellation uses the telephony profile for SIP callers.
func SelectNoiseCancellation(p agent.Participant) agent.NoiseCancellation {
	if p.Kind == agent.ParticipantSIP {
		return agent.NoiseCancellationBVCTelephony
	}
	return agent.NoiseCancellationBVC
}

// Entrypoint runs one call: it starts the realtime session, greets the
// caller, watches for a farewell and blocks until the call is over.
func (h *Handler) Entrypoint(ctx context.Context, jc *agent.JobContext) error {
	log := jc.Logger
	if log == nil {
		log = h.logger
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	room := jc.Room.Name()
	started := time.Now()

	log.Info("Starting session", map[string]interface{}{"room": room})

	if h.obs != nil {
		var span trace.Span
		ctx, span = h.obs.StartSpan(ctx, "order-session",
			attribute.String("room", room),
			attribute.String("participant.kind", jc.Participant.Kind.String()),
		)
		defer span.End()
	}

	outcome, err := h.run(ctx, jc, log)
	if h.obs != nil {
		h.obs.RecordSessionProcessed(ctx, outcome.Status)
		h.obs.RecordSessionDuration(ctx, time.Since(started), outcome.Status)
	}
	if err != nil {
		return err
	}

	log.Info("Session ended", map[string]interface{}{
		"status":   outcome.Status,
		"farewell": outcome.FarewellDetected,
		"duration": time.Since(started).String(),
	})
	if outcome.Status == OutcomeOrderConfirmed {
		h.notify(ctx, jc, outcome, log)
	}
	return nil
}

func (h *Handler) run(ctx context.Context, jc *agent.JobContext, log logger.Logger) (Outcome, error) {
	outcome := Outcome{Room: jc.Room.Name(), Status: OutcomeFailed}

	state := &confirmorder.OrderToolState{}
	tools := registry.New()
	if err := tools.Register(confirmorder.NewHandler(h.toolConfig, state, log).Tool()); err != nil {
		return outcome, apperrors.NewSessionStartFailedError(err)
	}

	var vad *agent.VAD
	if jc.Process != nil {
		vad = jc.Process.VAD
	}

	session, err := h.model.NewSession(ctx, agent.ModelOptions{
		Model:               h.config.Model,
		Voice:               h.config.Voice,
		Temperature:         h.config.Temperature,
		Instructions:        h.instructions,
		Tools:               tools,
		VAD:                 vad,
		MinEndpointingDelay: h.config.MinEndpointingDelay,
		MaxEndpointingDelay: h.config.MaxEndpointingDelay,
		AllowInterruptions:  h.config.AllowInterruptions,
	})
	if err != nil {
		return outcome, apperrors.NewSessionStartFailedError(err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn("Failed to close session", map[string]interface{}{"error": err.Error()})
		}
	}()

	err = session.Start(ctx, jc.Room, agent.RoomOptions{
		Participant: jc.Participant,
		AudioInput:  agent.AudioInputOptions{NoiseCancellation: SelectNoiseCancellation},
	})
	if err != nil {
		return outcome, apperrors.NewSessionStartFailedError(err)
	}

	if err := jc.Room.Connect(ctx); err != nil {
		return outcome, apperrors.NewRoomConnectFailedError(jc.Room.Name(), err)
	}
	log.Info("Room connected", nil)
	defer func() {
		select {
		case <-jc.Room.Done():
			return
		default:
		}
		if err := jc.Room.Disconnect(context.WithoutCancel(ctx)); err != nil {
			log.Warn("Failed to leave room", map[string]interface{}{"error": err.Error()})
		}
	}()

	var farewellOnce sync.Once
	farewellSeen := make(chan struct{})
	session.OnUserSpeechCommitted(func(u agent.Utterance) {
		if h.obs != nil {
			h.obs.RecordUtterance(ctx)
		}
		if !h.farewell.Matches(u.Text) {
			return
		}
		farewellOnce.Do(func() {
			close(farewellSeen)
			metrics.FarewellsDetected.Inc()
			log.Info("Farewell detected, ending call after response", nil)
			jc.Schedule(h.config.FarewellDelay, func() {
				if err := jc.Room.Disconnect(context.WithoutCancel(ctx)); err != nil {
					log.Warn("Failed to disconnect room", map[string]interface{}{"error": err.Error()})
				}
				log.Info("Call ended", nil)
			})
		})
	})

	jc.Schedule(h.config.GreetingDelay, func() {
		log.Info("Triggering auto-greeting", nil)
		if err := session.InjectMessage(ctx, agent.RoleSystem, GreetingPrompt); err != nil {
			log.Warn("Failed to inject greeting", map[string]interface{}{"error": err.Error()})
			return
		}
		if err := session.CreateResponse(ctx); err != nil {
			log.Warn("Failed to request greeting", map[string]interface{}{"error": err.Error()})
		}
	})

	select {
	case <-session.Done():
	case <-jc.Room.Done():
	case <-ctx.Done():
	}
	jc.StopTimers()

	select {
	case <-farewellSeen:
		outcome.FarewellDetected = true
	default:
	}

	snap := state.Snapshot()
	outcome.OrderDetails = snap.OrderDetails
	outcome.ConfirmedAt = snap.ConfirmedAt
	outcome.Status = OutcomeNoOrder
	if snap.ConfirmationDone {
		outcome.Status = OutcomeOrderConfirmed
	}
	return outcome, nil
}

func (h *Handler) notify(ctx context.Context, jc *agent.JobContext, outcome Outcome, log logger.Logger) {
	if h.notifier == nil {
		return
	}
	timeout := h.config.NotifyTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	out, err := h.notifier.Execute(nctx, &notifyorder.Input{
		Room:           outcome.Room,
		SessionID:      jc.ID,
		CallerIdentity: jc.Participant.Identity,
		OrderDetails:   outcome.OrderDetails,
		ConfirmedAt:    outcome.ConfirmedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		log.Error("Order notification failed", map[string]interface{}{"error": err.Error()})
		return
	}
	log.Info("Order notification sent", map[string]interface{}{
		"notificationId": out.NotificationID,
		"status":         out.Status,
	})
}
