// internal/common/gemini/session.go
package gemini

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"rehmat-agent/internal/common/agent"
	"rehmat-agent/internal/common/config"
	apperrors "rehmat-agent/internal/common/errors"
	apphttp "rehmat-agent/internal/common/http"
	"rehmat-agent/internal/common/logger"
	"rehmat-agent/internal/common/metrics"
)

// LiveConn is the part of a Live API connection a session drives.
// *genai.Session implements it.
type LiveConn interface {
	SendClientContent(input genai.LiveClientContentInput) error
	SendRealtimeInput(input genai.LiveRealtimeInput) error
	SendToolResponse(input genai.LiveToolResponseInput) error
	Receive() (*genai.LiveServerMessage, error)
	Close() error
}

// ConnectFunc opens a Live API connection.
type ConnectFunc func(ctx context.Context, model string, cfg *genai.LiveConnectConfig) (LiveConn, error)

// Model is an agent.RealtimeModel backed by Gemini Live.
type Model struct {
	name    string
	connect ConnectFunc
	log     logger.Logger
}

// NewModel creates a Gemini API client for the Live service.
func NewModel(ctx context.Context, cfg config.GeminiConfig, httpClient *apphttp.Client, log logger.Logger) (*Model, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if httpClient != nil {
		cc.HTTPClient = httpClient.Standard()
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, apperrors.NewModelConnectFailedError(cfg.Model, err)
	}
	return NewModelWithConnector(cfg.Model, func(ctx context.Context, model string, c *genai.LiveConnectConfig) (LiveConn, error) {
		return client.Live.Connect(ctx, model, c)
	}, log), nil
}

// NewModelWithConnector builds a Model on an arbitrary connector.
func NewModelWithConnector(name string, connect ConnectFunc, log logger.Logger) *Model {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Model{name: name, connect: connect, log: log}
}

func (m *Model) NewSession(_ context.Context, opts agent.ModelOptions) (agent.Session, error) {
	if opts.Model == "" {
		opts.Model = m.name
	}
	return &Session{
		model: m,
		opts:  opts,
		log:   m.log.WithFields(map[string]interface{}{"model": opts.Model}),
		done:  make(chan struct{}),
	}, nil
}

// Session is one Live API conversation.
type Session struct {
	model *Model
	opts  agent.ModelOptions
	log   logger.Logger

	sendMu sync.Mutex
	conn   LiveConn

	mu         sync.Mutex
	callbacks  []func(agent.Utterance)
	audioSinks []func([]byte)
	transcript strings.Builder
	closing    bool

	done     chan struct{}
	doneOnce sync.Once
	wg       sync.WaitGroup
}

// Start connects to the model and begins reading its messages.
func (s *Session) Start(ctx context.Context, room agent.Room, ropts agent.RoomOptions) error {
	conn, err := s.model.connect(ctx, s.opts.Model, LiveConfig(s.opts))
	if err != nil {
		return apperrors.NewModelConnectFailedError(s.opts.Model, err)
	}

	s.sendMu.Lock()
	s.conn = conn
	s.sendMu.Unlock()

	fields := map[string]interface{}{
		"room":            room.Name(),
		"participantKind": ropts.Participant.Kind.String(),
	}
	if sel := ropts.AudioInput.NoiseCancellation; sel != nil {
		fields["noiseCancellation"] = string(sel(ropts.Participant))
	}
	s.log.Info("Realtime session started", fields)

	s.wg.Add(1)
	go s.receive(context.WithoutCancel(ctx))
	return nil
}

func (s *Session) receive(ctx context.Context) {
	defer s.wg.Done()
	defer s.markDone()
	for {
		msg, err := s.conn.Receive()
		if err != nil {
			s.mu.Lock()
			closing := s.closing
			s.mu.Unlock()
			if !closing {
				s.log.Warn("Realtime connection closed", map[string]interface{}{"error": err.Error()})
			}
			s.flushTranscript()
			return
		}
		s.handle(ctx, msg)
	}
}

func (s *Session) handle(ctx context.Context, msg *genai.LiveServerMessage) {
	if msg.ToolCall != nil {
		s.handleToolCall(ctx, msg.ToolCall)
	}
	if sc := msg.ServerContent; sc != nil {
		if tr := sc.InputTranscription; tr != nil {
			s.mu.Lock()
			s.transcript.WriteString(tr.Text)
			s.mu.Unlock()
			if tr.Finished {
				s.flushTranscript()
			}
		}
		if sc.ModelTurn != nil {
			// The model only answers once the user turn is over.
			s.flushTranscript()
			s.forwardAudio(sc.ModelTurn)
		}
		if sc.TurnComplete {
			s.flushTranscript()
		}
	}
	if msg.GoAway != nil {
		s.log.Warn("Realtime server is going away", map[string]interface{}{"timeLeft": msg.GoAway.TimeLeft.String()})
	}
}

func (s *Session) handleToolCall(ctx context.Context, call *genai.LiveServerToolCall) {
	var responses []*genai.FunctionResponse
	for _, fc := range call.FunctionCalls {
		resp := &genai.FunctionResponse{ID: fc.ID, Name: fc.Name}
		var out string
		var err error
		if s.opts.Tools == nil {
			err = apperrors.NewToolNotFoundError(fc.Name)
		} else {
			out, err = s.opts.Tools.Invoke(ctx, fc.Name, fc.Args)
		}
		if err != nil {
			metrics.ToolCalls.WithLabelValues(fc.Name, "error").Inc()
			s.log.Error("Tool call failed", map[string]interface{}{"tool": fc.Name, "error": err.Error()})
			resp.Response = map[string]any{"error": err.Error()}
		} else {
			metrics.ToolCalls.WithLabelValues(fc.Name, "success").Inc()
			resp.Response = map[string]any{"output": out}
		}
		responses = append(responses, resp)
	}
	if len(responses) == 0 {
		return
	}
	if err := s.send(func(c LiveConn) error {
		return c.SendToolResponse(genai.LiveToolResponseInput{FunctionResponses: responses})
	}); err != nil {
		s.log.Error("Failed to send tool response", map[string]interface{}{"error": err.Error()})
	}
}

func (s *Session) forwardAudio(turn *genai.Content) {
	s.mu.Lock()
	sinks := append(([]func([]byte))(nil), s.audioSinks...)
	s.mu.Unlock()
	if len(sinks) == 0 {
		return
	}
	for _, p := range turn.Parts {
		if p == nil || p.InlineData == nil || !strings.HasPrefix(p.InlineData.MIMEType, "audio/") {
			continue
		}
		for _, sink := range sinks {
			sink(p.InlineData.Data)
		}
	}
}

func (s *Session) flushTranscript() {
	s.mu.Lock()
	text := strings.TrimSpace(s.transcript.String())
	s.transcript.Reset()
	cbs := append(([]func(agent.Utterance))(nil), s.callbacks...)
	s.mu.Unlock()
	if text == "" {
		return
	}
	u := agent.Utterance{Text: text, At: time.Now()}
	for _, cb := range cbs {
		cb(u)
	}
}

func (s *Session) OnUserSpeechCommitted(fn func(agent.Utterance)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, fn)
}

// OnModelAudio registers fn for every audio chunk the model speaks.
func (s *Session) OnModelAudio(fn func(pcm []byte)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audioSinks = append(s.audioSinks, fn)
}

func (s *Session) send(f func(LiveConn) error) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("realtime session not started")
	}
	return f(s.conn)
}

// InjectMessage appends a turn without asking the model to reply. System
// and user messages are sent as user turns since the Live API has no
// system role mid-conversation.
func (s *Session) InjectMessage(_ context.Context, role agent.Role, text string) error {
	r := genai.Role(genai.RoleUser)
	if role == agent.RoleAssistant {
		r = genai.RoleModel
	}
	return s.send(func(c LiveConn) error {
		return c.SendClientContent(genai.LiveClientContentInput{
			Turns:        []*genai.Content{genai.NewContentFromText(text, r)},
			TurnComplete: genai.Ptr(false),
		})
	})
}

func (s *Session) CreateResponse(context.Context) error {
	return s.send(func(c LiveConn) error {
		return c.SendClientContent(genai.LiveClientContentInput{TurnComplete: genai.Ptr(true)})
	})
}

func (s *Session) PushAudio(pcm []byte) error {
	return s.send(func(c LiveConn) error {
		return c.SendRealtimeInput(genai.LiveRealtimeInput{
			Audio: &genai.Blob{Data: pcm, MIMEType: InputAudioMIMEType},
		})
	})
}

func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) markDone() {
	s.doneOnce.Do(func() { close(s.done) })
}

// Close ends the connection and waits for the reader to stop.
func (s *Session) Close() error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	s.sendMu.Lock()
	conn := s.conn
	s.sendMu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close()
	}
	s.wg.Wait()
	s.markDone()
	return err
}
