// Package tts synthesizes narration audio. Speech engines are external
// CLI tools driven over exec; each one is wrapped as a fallback
// provider so a broken engine degrades to the next instead of killing
// the run.
package tts

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/youssefehap082-gif/kids-ai-channel-sub000/fallback"
)

// Engine is one speech synthesis backend.
type Engine interface {
	Name() string
	Speak(ctx context.Context, text, voice, outPath string) error
}

// EdgeTTS shells out to the edge-tts CLI (free Microsoft neural
// voices). Install with: pip install edge-tts
type EdgeTTS struct {
	Rate string // e.g. "-5%", empty for default
}

func (e *EdgeTTS) Name() string { return "edge-tts" }

func (e *EdgeTTS) Speak(ctx context.Context, text, voice, outPath string) error {
	if _, err := exec.LookPath("edge-tts"); err != nil {
		return fallback.Permanent(fmt.Errorf("edge-tts not installed: %w", err))
	}
	args := []string{"--voice", voice, "--text", text, "--write-media", outPath}
	if e.Rate != "" {
		args = append(args, "--rate", e.Rate)
	}
	cmd := exec.CommandContext(ctx, "edge-tts", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		// edge-tts talks to a network service; treat failures as
		// retryable.
		return fallback.Transient(fmt.Errorf("edge-tts: %w: %s", err, tail(string(out))))
	}
	return nil
}

// Coqui shells out to the Coqui TTS CLI for fully offline synthesis.
// It ignores the requested voice; the model speaks with its own.
type Coqui struct {
	Model string // empty uses the CLI default model
}

func (c *Coqui) Name() string { return "coqui" }

func (c *Coqui) Speak(ctx context.Context, text, _ string, outPath string) error {
	if _, err := exec.LookPath("tts"); err != nil {
		return fallback.Permanent(fmt.Errorf("coqui tts not installed: %w", err))
	}
	args := []string{"--text", text, "--out_path", outPath}
	if c.Model != "" {
		args = append(args, "--model_name", c.Model)
	}
	cmd := exec.CommandContext(ctx, "tts", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		// Offline engine: a failure here is not going away on retry.
		return fallback.Permanent(fmt.Errorf("coqui tts: %w: %s", err, tail(string(out))))
	}
	return nil
}

// Chain wraps engines as a fallback chain for one utterance. The
// result value is the output path.
func Chain(engines []Engine, text, voice, outPath string) []fallback.Provider[string] {
	chain := make([]fallback.Provider[string], 0, len(engines))
	for _, e := range engines {
		e := e
		chain = append(chain, fallback.Provider[string]{
			Name: e.Name(),
			Call: func(ctx context.Context) (string, error) {
				if err := e.Speak(ctx, text, voice, outPath); err != nil {
					return "", err
				}
				return outPath, nil
			},
		})
	}
	return chain
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 200 {
		s = s[len(s)-200:]
	}
	return s
}
