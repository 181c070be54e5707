// internal/common/gemini/session_test.go
package gemini

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"rehmat-agent/internal/common/agent"
	"rehmat-agent/internal/common/agent/agenttest"
	"rehmat-agent/internal/common/logger"
	"rehmat-agent/pkg/registry"
)

var errConnClosed = errors.New("use of closed connection")

type fakeConn struct {
	incoming chan *genai.LiveServerMessage
	closed   chan struct{}
	once     sync.Once

	mu            sync.Mutex
	content       []genai.LiveClientContentInput
	realtime      []genai.LiveRealtimeInput
	toolResponses []genai.LiveToolResponseInput
}

func newFakeConn() *fakeConn {
	return &fakeConn{incoming: make(chan *genai.LiveServerMessage, 16), closed: make(chan struct{})}
}

func (c *fakeConn) SendClientContent(in genai.LiveClientContentInput) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.content = append(c.content, in)
	return nil
}

func (c *fakeConn) SendRealtimeInput(in genai.LiveRealtimeInput) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.realtime = append(c.realtime, in)
	return nil
}

func (c *fakeConn) SendToolResponse(in genai.LiveToolResponseInput) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toolResponses = append(c.toolResponses, in)
	return nil
}

func (c *fakeConn) Receive() (*genai.LiveServerMessage, error) {
	select {
	case msg := <-c.incoming:
		return msg, nil
	case <-c.closed:
		return nil, errConnClosed
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) ToolResponses() []genai.LiveToolResponseInput {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]genai.LiveToolResponseInput(nil), c.toolResponses...)
}

func (c *fakeConn) Content() []genai.LiveClientContentInput {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]genai.LiveClientContentInput(nil), c.content...)
}

func startSession(t *testing.T, opts agent.ModelOptions) (*Session, *fakeConn, *genai.LiveConnectConfig) {
	t.Helper()
	conn := newFakeConn()
	var gotCfg *genai.LiveConnectConfig
	model := NewModelWithConnector("gemini-live", func(_ context.Context, name string, cfg *genai.LiveConnectConfig) (LiveConn, error) {
		assert.Equal(t, "gemini-live", name)
		gotCfg = cfg
		return conn, nil
	}, logger.NewTestLogger(t))

	sess, err := model.NewSession(context.Background(), opts)
	require.NoError(t, err)
	require.NoError(t, sess.Start(context.Background(), agenttest.NewRoom("rehmat-call-1"), agent.RoomOptions{
		Participant: agent.Participant{Kind: agent.ParticipantSIP},
		AudioInput: agent.AudioInputOptions{NoiseCancellation: func(agent.Participant) agent.NoiseCancellation {
			return agent.NoiseCancellationBVCTelephony
		}},
	}))
	t.Cleanup(func() { _ = sess.Close() })
	return sess.(*Session), conn, gotCfg
}

func transcriptMsg(text string, finished bool) *genai.LiveServerMessage {
	return &genai.LiveServerMessage{ServerContent: &genai.LiveServerContent{
		InputTranscription: &genai.Transcription{Text: text, Finished: finished},
	}}
}

func TestSession_CommitsFinishedTranscription(t *testing.T) {
	sess, conn, _ := startSession(t, agent.ModelOptions{})
	got := make(chan string, 4)
	sess.OnUserSpeechCommitted(func(u agent.Utterance) { got <- u.Text })

	conn.incoming <- transcriptMsg("ٹھیک ہے ", false)
	conn.incoming <- transcriptMsg("اللہ حافظ", true)

	select {
	case text := <-got:
		assert.Equal(t, "ٹھیک ہے اللہ حافظ", text)
	case <-time.After(2 * time.Second):
		t.Fatal("utterance not committed")
	}
}

func TestSession_ModelTurnEndsUserTurn(t *testing.T) {
	sess, conn, _ := startSession(t, agent.ModelOptions{})
	got := make(chan string, 4)
	sess.OnUserSpeechCommitted(func(u agent.Utterance) { got <- u.Text })

	conn.incoming <- transcriptMsg("دو کلو برفی", false)
	conn.incoming <- &genai.LiveServerMessage{ServerContent: &genai.LiveServerContent{
		ModelTurn: &genai.Content{Parts: []*genai.Part{{InlineData: &genai.Blob{MIMEType: "audio/pcm;rate=24000", Data: []byte{1, 2}}}}},
	}}
	conn.incoming <- &genai.LiveServerMessage{ServerContent: &genai.LiveServerContent{TurnComplete: true}}

	select {
	case text := <-got:
		assert.Equal(t, "دو کلو برفی", text)
	case <-time.After(2 * time.Second):
		t.Fatal("utterance not committed")
	}
	select {
	case text := <-got:
		t.Fatalf("unexpected second utterance %q", text)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSession_ForwardsModelAudio(t *testing.T) {
	sess, conn, _ := startSession(t, agent.ModelOptions{})
	got := make(chan []byte, 1)
	sess.OnModelAudio(func(pcm []byte) { got <- pcm })

	conn.incoming <- &genai.LiveServerMessage{ServerContent: &genai.LiveServerContent{
		ModelTurn: &genai.Content{Parts: []*genai.Part{
			{Text: "ignored"},
			{InlineData: &genai.Blob{MIMEType: "audio/pcm;rate=24000", Data: []byte{7, 8}}},
		}},
	}}

	select {
	case pcm := <-got:
		assert.Equal(t, []byte{7, 8}, pcm)
	case <-time.After(2 * time.Second):
		t.Fatal("audio not forwarded")
	}
}

func TestSession_AnswersToolCalls(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register(registry.Tool{
		Name:       "confirm_order",
		Parameters: map[string]interface{}{"type": "object", "properties": map[string]interface{}{"details": map[string]interface{}{"type": "string"}}},
		Handler: func(_ context.Context, args map[string]interface{}) (string, error) {
			return "ok:" + args["details"].(string), nil
		},
	}))
	_, conn, _ := startSession(t, agent.ModelOptions{Tools: reg})

	conn.incoming <- &genai.LiveServerMessage{ToolCall: &genai.LiveServerToolCall{FunctionCalls: []*genai.FunctionCall{
		{ID: "call-1", Name: "confirm_order", Args: map[string]any{"details": "برفی"}},
		{ID: "call-2", Name: "cancel_order"},
	}}}

	require.Eventually(t, func() bool { return len(conn.ToolResponses()) == 1 }, 2*time.Second, 10*time.Millisecond)
	resps := conn.ToolResponses()[0].FunctionResponses
	require.Len(t, resps, 2)
	assert.Equal(t, "call-1", resps[0].ID)
	assert.Equal(t, map[string]any{"output": "ok:برفی"}, resps[0].Response)
	assert.Equal(t, "cancel_order", resps[1].Name)
	assert.Contains(t, resps[1].Response, "error")
}

func TestSession_InjectAndRespond(t *testing.T) {
	sess, conn, _ := startSession(t, agent.ModelOptions{})

	require.NoError(t, sess.InjectMessage(context.Background(), agent.RoleSystem, "System: Time to start."))
	require.NoError(t, sess.CreateResponse(context.Background()))
	require.NoError(t, sess.PushAudio([]byte{0, 1}))

	content := conn.Content()
	require.Len(t, content, 2)
	require.Len(t, content[0].Turns, 1)
	assert.Equal(t, genai.RoleUser, content[0].Turns[0].Role)
	assert.Equal(t, "System: Time to start.", content[0].Turns[0].Parts[0].Text)
	assert.False(t, *content[0].TurnComplete)
	assert.Empty(t, content[1].Turns)
	assert.True(t, *content[1].TurnComplete)

	conn.mu.Lock()
	defer conn.mu.Unlock()
	require.Len(t, conn.realtime, 1)
	assert.Equal(t, InputAudioMIMEType, conn.realtime[0].Audio.MIMEType)
}

func TestSession_DoneWhenConnectionDrops(t *testing.T) {
	sess, conn, _ := startSession(t, agent.ModelOptions{})
	_ = conn.Close()

	select {
	case <-sess.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session not done after connection drop")
	}
}

func TestSession_SendBeforeStart(t *testing.T) {
	model := NewModelWithConnector("m", nil, nil)
	sess, err := model.NewSession(context.Background(), agent.ModelOptions{})
	require.NoError(t, err)

	assert.Error(t, sess.CreateResponse(context.Background()))
	assert.NoError(t, sess.Close())
	<-sess.Done()
}

func TestSession_StartFailure(t *testing.T) {
	model := NewModelWithConnector("m", func(context.Context, string, *genai.LiveConnectConfig) (LiveConn, error) {
		return nil, errors.New("quota exceeded")
	}, nil)
	sess, err := model.NewSession(context.Background(), agent.ModelOptions{})
	require.NoError(t, err)

	err = sess.Start(context.Background(), agenttest.NewRoom("r"), agent.RoomOptions{})
	assert.ErrorContains(t, err, "quota exceeded")
}
