// internal/common/gemini/live_config.go

// Package gemini runs agent sessions on the Gemini Live speech-to-speech API.
package gemini

import (
	"strings"

	"google.golang.org/genai"

	"rehmat-agent/internal/common/agent"
	"rehmat-agent/pkg/registry"
)

// InputAudioMIMEType is the format PushAudio expects.
const InputAudioMIMEType = "audio/pcm;rate=16000"

// LiveConfig maps session options onto a Live API connect config.
func LiveConfig(opts agent.ModelOptions) *genai.LiveConnectConfig {
	cfg := &genai.LiveConnectConfig{
		ResponseModalities:       []genai.Modality{genai.ModalityAudio},
		Temperature:              genai.Ptr(float32(opts.Temperature)),
		InputAudioTranscription:  &genai.AudioTranscriptionConfig{},
		OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
		RealtimeInputConfig:      realtimeInput(opts),
		Tools:                    tools(opts.Tools),
	}
	if opts.Voice != "" {
		cfg.SpeechConfig = &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: opts.Voice},
			},
		}
	}
	if opts.Instructions != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{genai.NewPartFromText(opts.Instructions)}}
	}
	return cfg
}

func realtimeInput(opts agent.ModelOptions) *genai.RealtimeInputConfig {
	aad := &genai.AutomaticActivityDetection{}
	prefix, silence := opts.MinEndpointingDelay, opts.MaxEndpointingDelay
	if v := opts.VAD; v != nil {
		aad.StartOfSpeechSensitivity = genai.StartSensitivityHigh
		if v.StartSensitivity == agent.SensitivityLow {
			aad.StartOfSpeechSensitivity = genai.StartSensitivityLow
		}
		aad.EndOfSpeechSensitivity = genai.EndSensitivityHigh
		if v.EndSensitivity == agent.SensitivityLow {
			aad.EndOfSpeechSensitivity = genai.EndSensitivityLow
		}
		if v.PrefixPadding > 0 {
			prefix = v.PrefixPadding
		}
		if v.SilenceDuration > 0 {
			silence = v.SilenceDuration
		}
	}
	if prefix > 0 {
		aad.PrefixPaddingMs = genai.Ptr(int32(prefix.Milliseconds()))
	}
	if silence > 0 {
		aad.SilenceDurationMs = genai.Ptr(int32(silence.Milliseconds()))
	}

	handling := genai.ActivityHandlingNoInterruption
	if opts.AllowInterruptions {
		handling = genai.ActivityHandlingStartOfActivityInterrupts
	}
	return &genai.RealtimeInputConfig{
		AutomaticActivityDetection: aad,
		ActivityHandling:           handling,
	}
}

func tools(reg *registry.Registry) []*genai.Tool {
	if reg == nil {
		return nil
	}
	var decls []*genai.FunctionDeclaration
	for _, t := range reg.Tools() {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  SchemaFromJSON(t.Parameters),
		})
	}
	if len(decls) == 0 {
		return nil
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// SchemaFromJSON converts a JSON schema document into the API's schema
// type. Keywords the API has no field for are dropped.
func SchemaFromJSON(m map[string]interface{}) *genai.Schema {
	if len(m) == 0 {
		return nil
	}
	s := &genai.Schema{}
	if t, ok := m["type"].(string); ok {
		s.Type = genai.Type(strings.ToUpper(t))
	}
	if d, ok := m["description"].(string); ok {
		s.Description = d
	}
	if props, ok := m["properties"].(map[string]interface{}); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if pm, ok := raw.(map[string]interface{}); ok {
				s.Properties[name] = SchemaFromJSON(pm)
			}
		}
	}
	if items, ok := m["items"].(map[string]interface{}); ok {
		s.Items = SchemaFromJSON(items)
	}
	s.Required = stringList(m["required"])
	s.Enum = stringList(m["enum"])
	return s
}

func stringList(v interface{}) []string {
	var out []string
	switch list := v.(type) {
	case []string:
		out = append(out, list...)
	case []interface{}:
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}
