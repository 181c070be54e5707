// internal/workers/voice/order-session/handler_test.go
package ordersession

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"rehmat-agent/internal/common/agent"
	"rehmat-agent/internal/common/agent/agenttest"
	apperrors "rehmat-agent/internal/common/errors"
	"rehmat-agent/internal/common/logger"
	"rehmat-agent/internal/common/observability"
	"rehmat-agent/internal/urdu"
	notifyorder "rehmat-agent/internal/workers/communication/notify-order"
	confirmorder "rehmat-agent/internal/workers/voice/confirm-order"
)

// ==========================
// Mock Implementations
// ==========================

type MockOrderNotifier struct {
	mu          sync.Mutex
	inputs      []*notifyorder.Input
	ExecuteFunc func(ctx context.Context, input *notifyorder.Input) (*notifyorder.Output, error)
}

func (m *MockOrderNotifier) Execute(ctx context.Context, input *notifyorder.Input) (*notifyorder.Output, error) {
	m.mu.Lock()
	m.inputs = append(m.inputs, input)
	m.mu.Unlock()
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, input)
	}
	return &notifyorder.Output{NotificationID: "n-1", Status: notifyorder.StatusSent}, nil
}

func (m *MockOrderNotifier) Inputs() []*notifyorder.Input {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*notifyorder.Input(nil), m.inputs...)
}

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{
		Model:               "gemini-live",
		Voice:               "Aoede",
		Temperature:         0.45,
		GreetingDelay:       time.Second,
		FarewellDelay:       2 * time.Second,
		MinEndpointingDelay: 100 * time.Millisecond,
		MaxEndpointingDelay: 500 * time.Millisecond,
		AllowInterruptions:  true,
		FarewellPhrases:     []string{"اللہ حافظ", "خدا حافظ", "بس شکریہ", "ٹھیک ہے شکریہ", "allah hafiz", "khuda hafiz"},
		NotifyTimeout:       time.Second,
	}
}

type fixture struct {
	handler  *Handler
	model    *agenttest.Model
	session  *agenttest.Session
	room     *agenttest.Room
	sched    *agenttest.ManualScheduler
	notifier *MockOrderNotifier
	jc       *agent.JobContext
}

func newFixture(t *testing.T, kind agent.ParticipantKind) *fixture {
	t.Helper()
	return newObservedFixture(t, kind, nil)
}

func newObservedFixture(t *testing.T, kind agent.ParticipantKind, obs *observability.Observability) *fixture {
	t.Helper()
	log := logger.NewTestLogger(t)
	f := &fixture{
		session:  agenttest.NewSession(),
		room:     agenttest.NewRoom("rehmat-call-abc"),
		sched:    &agenttest.ManualScheduler{},
		notifier: &MockOrderNotifier{},
	}
	f.model = &agenttest.Model{Session: f.session}

	h, err := NewHandler(createTestConfig(), f.model, "NAME: Rehmat-e-Shereen",
		&confirmorder.Config{Rules: urdu.DefaultRules(), Timeout: time.Second}, f.notifier, obs, log)
	require.NoError(t, err)
	f.handler = h

	f.jc = &agent.JobContext{
		ID:          "job-1",
		Room:        f.room,
		Participant: agent.Participant{Identity: "caller-1", Kind: kind},
		Process:     &agent.Process{VAD: &agent.VAD{StartSensitivity: agent.SensitivityHigh}},
		Scheduler:   f.sched,
		Logger:      log,
	}
	return f
}

// start runs the entrypoint in the background and waits until the greeting
// is scheduled.
func (f *fixture) start(t *testing.T, ctx context.Context) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- f.handler.Entrypoint(ctx, f.jc) }()
	require.Eventually(t, func() bool { return len(f.sched.Pending()) == 1 }, 2*time.Second, 5*time.Millisecond)
	return done
}

func wait(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("entrypoint did not return")
		return nil
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestEntrypoint_ConfiguresModelAndRoom(t *testing.T) {
	f := newFixture(t, agent.ParticipantSIP)
	done := f.start(t, context.Background())

	opts := f.model.Options()
	require.Len(t, opts, 1)
	assert.Equal(t, "gemini-live", opts[0].Model)
	assert.Equal(t, "Aoede", opts[0].Voice)
	assert.Equal(t, 0.45, opts[0].Temperature)
	assert.Contains(t, opts[0].Instructions, "NAME: Rehmat-e-Shereen")
	assert.Equal(t, 100*time.Millisecond, opts[0].MinEndpointingDelay)
	assert.Equal(t, 500*time.Millisecond, opts[0].MaxEndpointingDelay)
	assert.True(t, opts[0].AllowInterruptions)
	assert.Same(t, f.jc.Process.VAD, opts[0].VAD)
	_, ok := opts[0].Tools.Lookup(confirmorder.ToolName)
	assert.True(t, ok)

	start := f.session.StartOptions()
	require.NotNil(t, start)
	assert.Equal(t, agent.NoiseCancellationBVCTelephony, start.AudioInput.NoiseCancellation(start.Participant))
	assert.Equal(t, 1, f.room.Connects())

	f.session.End()
	require.NoError(t, wait(t, done))
	assert.True(t, f.session.Closed())
	assert.Equal(t, 1, f.room.Disconnects())
}

func TestEntrypoint_GreetsAfterDelay(t *testing.T) {
	f := newFixture(t, agent.ParticipantStandard)
	done := f.start(t, context.Background())

	f.sched.Advance(999 * time.Millisecond)
	assert.Empty(t, f.session.Messages())

	f.sched.Advance(time.Millisecond)
	assert.Equal(t, []agenttest.Message{{Role: agent.RoleSystem, Text: GreetingPrompt}}, f.session.Messages())
	assert.Equal(t, 1, f.session.Responses())

	f.session.End()
	require.NoError(t, wait(t, done))
}

func TestEntrypoint_FarewellDisconnectsAfterDelay(t *testing.T) {
	f := newFixture(t, agent.ParticipantStandard)
	done := f.start(t, context.Background())
	f.sched.Advance(time.Second)

	f.session.Say("ٹھیک ہے، اللہ حافظ")
	f.session.Say("Allah Hafiz")
	assert.Equal(t, []time.Duration{2 * time.Second}, f.sched.Pending())

	f.sched.Advance(1999 * time.Millisecond)
	assert.Equal(t, 0, f.room.Disconnects())
	f.sched.Advance(time.Millisecond)
	assert.Equal(t, 1, f.room.Disconnects())

	require.NoError(t, wait(t, done))
	assert.True(t, f.session.Closed())
	assert.Equal(t, 1, f.room.Disconnects())
	assert.Empty(t, f.notifier.Inputs())
}

func TestEntrypoint_NoFarewellNoDisconnect(t *testing.T) {
	f := newFixture(t, agent.ParticipantStandard)
	done := f.start(t, context.Background())
	f.sched.Advance(time.Second)

	f.session.Say("دو کلو برفی چاہیے")
	assert.Empty(t, f.sched.Pending())
	assert.Equal(t, 0, f.room.Disconnects())

	f.session.End()
	require.NoError(t, wait(t, done))
}

func TestEntrypoint_ConfirmedOrderIsNotified(t *testing.T) {
	f := newFixture(t, agent.ParticipantSIP)
	done := f.start(t, context.Background())

	tools := f.model.Options()[0].Tools
	out, err := tools.Invoke(context.Background(), confirmorder.ToolName, map[string]interface{}{
		"details": "1 کلو برفی، آپ بتائیں گے",
	})
	require.NoError(t, err)
	assert.Equal(t, confirmorder.ConfirmedMessage, out)

	f.session.End()
	require.NoError(t, wait(t, done))

	inputs := f.notifier.Inputs()
	require.Len(t, inputs, 1)
	assert.Equal(t, "rehmat-call-abc", inputs[0].Room)
	assert.Equal(t, "job-1", inputs[0].SessionID)
	assert.Equal(t, "caller-1", inputs[0].CallerIdentity)
	assert.Equal(t, "1 کلو برفی، آپ بتا دوں", inputs[0].OrderDetails)
	_, err = time.Parse(time.RFC3339, inputs[0].ConfirmedAt)
	assert.NoError(t, err)
}

func TestEntrypoint_NotifierFailureIsSwallowed(t *testing.T) {
	f := newFixture(t, agent.ParticipantSIP)
	f.notifier.ExecuteFunc = func(context.Context, *notifyorder.Input) (*notifyorder.Output, error) {
		return nil, errors.New("ses down")
	}
	done := f.start(t, context.Background())

	_, err := f.model.Options()[0].Tools.Invoke(context.Background(), confirmorder.ToolName, map[string]interface{}{"details": "x"})
	require.NoError(t, err)
	f.session.End()

	assert.NoError(t, wait(t, done))
	assert.Len(t, f.notifier.Inputs(), 1)
}

func TestEntrypoint_CallerHangsUp(t *testing.T) {
	f := newFixture(t, agent.ParticipantStandard)
	done := f.start(t, context.Background())

	require.NoError(t, f.room.Disconnect(context.Background()))
	require.NoError(t, wait(t, done))
	assert.True(t, f.session.Closed())
	// Pending greeting is dropped.
	f.sched.Advance(time.Second)
	assert.Empty(t, f.session.Messages())
}

func TestEntrypoint_CancelledJobStopsTimers(t *testing.T) {
	f := newFixture(t, agent.ParticipantStandard)
	ctx, cancel := context.WithCancel(context.Background())
	done := f.start(t, ctx)

	cancel()
	require.NoError(t, wait(t, done))
	f.sched.Advance(5 * time.Second)
	assert.Empty(t, f.session.Messages())
	assert.Equal(t, 0, f.session.Responses())
	assert.True(t, f.session.Closed())
}

func TestEntrypoint_StartFailures(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(f *fixture)
		wantCode   apperrors.ErrorCode
		wantClosed bool
	}{
		{
			name: "model session creation fails",
			setup: func(f *fixture) {
				f.model.NewSessionFunc = func(context.Context, agent.ModelOptions) (agent.Session, error) {
					return nil, errors.New("invalid api key")
				}
			},
			wantCode: apperrors.ErrCodeSessionStartFailed,
		},
		{
			name: "session start fails",
			setup: func(f *fixture) {
				f.session.StartFunc = func(context.Context, agent.Room, agent.RoomOptions) error {
					return errors.New("quota exceeded")
				}
			},
			wantCode:   apperrors.ErrCodeSessionStartFailed,
			wantClosed: true,
		},
		{
			name: "room connect fails",
			setup: func(f *fixture) {
				f.room.ConnectFunc = func(context.Context) error { return errors.New("401") }
			},
			wantCode:   apperrors.ErrCodeRoomConnectFailed,
			wantClosed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, agent.ParticipantSIP)
			tt.setup(f)

			err := f.handler.Entrypoint(context.Background(), f.jc)
			assert.Equal(t, tt.wantCode, apperrors.CodeOf(err))
			assert.Equal(t, tt.wantClosed, f.session.Closed())
			assert.Empty(t, f.sched.Pending())
			assert.Empty(t, f.session.Messages())
			assert.Empty(t, f.notifier.Inputs())
		})
	}
}

func TestEntrypoint_RecordsSessionSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	obs := observability.New("order-session-test", promclient.NewRegistry(), sdktrace.WithSpanProcessor(recorder))
	defer obs.Shutdown()

	f := newObservedFixture(t, agent.ParticipantSIP, obs)
	done := f.start(t, context.Background())
	assert.Empty(t, recorder.Ended())

	f.session.End()
	require.NoError(t, wait(t, done))

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "order-session", ended[0].Name())
	assert.Contains(t, ended[0].Attributes(), attribute.String("room", "rehmat-call-abc"))
	assert.Contains(t, ended[0].Attributes(), attribute.String("participant.kind", "sip"))
}

func TestSelectNoiseCancellation(t *testing.T) {
	assert.Equal(t, agent.NoiseCancellationBVCTelephony, SelectNoiseCancellation(agent.Participant{Kind: agent.ParticipantSIP}))
	assert.Equal(t, agent.NoiseCancellationBVC, SelectNoiseCancellation(agent.Participant{Kind: agent.ParticipantStandard}))
	assert.Equal(t, agent.NoiseCancellationBVC, SelectNoiseCancellation(agent.Participant{Kind: agent.ParticipantAgent}))
}
