// internal/common/agent/vad.go
package agent

import (
	"fmt"
	"time"

	"rehmat-agent/internal/common/config"
)

// Sensitivity of speech start/end detection.
type Sensitivity string

const (
	SensitivityHigh Sensitivity = "high"
	SensitivityLow  Sensitivity = "low"
)

// VAD is the voice activity detection profile. It is loaded once per
// process in Setup and handed to every session through Process.
type VAD struct {
	StartSensitivity Sensitivity
	EndSensitivity   Sensitivity
	PrefixPadding    time.Duration
	SilenceDuration  time.Duration
}

func parseSensitivity(s string) (Sensitivity, error) {
	switch Sensitivity(s) {
	case SensitivityHigh, SensitivityLow:
		return Sensitivity(s), nil
	case "":
		return SensitivityHigh, nil
	}
	return "", fmt.Errorf("unknown vad sensitivity %q", s)
}

// LoadVAD builds the profile from configuration.
func LoadVAD(cfg config.VADConfig) (*VAD, error) {
	start, err := parseSensitivity(cfg.StartSensitivity)
	if err != nil {
		return nil, err
	}
	end, err := parseSensitivity(cfg.EndSensitivity)
	if err != nil {
		return nil, err
	}
	if cfg.PrefixPadding < 0 || cfg.SilenceDuration < 0 {
		return nil, fmt.Errorf("vad durations must not be negative")
	}
	return &VAD{
		StartSensitivity: start,
		EndSensitivity:   end,
		PrefixPadding:    config.GetDuration(cfg.PrefixPadding),
		SilenceDuration:  config.GetDuration(cfg.SilenceDuration),
	}, nil
}

// Process is state created once per worker process and shared read-only by
// all of its jobs.
type Process struct {
	VAD *VAD
}
