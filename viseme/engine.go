// Package viseme drives talking-character scenes: it samples the
// audio envelope at the video frame rate, maps short-term loudness to
// a discrete mouth shape, and composites a frame sequence that the
// render backend encodes and muxes with the scene audio.
package viseme

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/youssefehap082-gif/kids-ai-channel-sub000/render"
)

// State is a discrete mouth shape.
type State int

const (
	Closed State = iota
	Mid
	Open
)

func (s State) String() string {
	switch s {
	case Mid:
		return "mid"
	case Open:
		return "open"
	default:
		return "closed"
	}
}

// Thresholds map RMS loudness to a mouth state. Tunable configuration,
// not derived per-audio.
type Thresholds struct {
	Low float64
	Mid float64
}

// RMS computes root-mean-square loudness of one sample window.
func RMS(window []float64) float64 {
	if len(window) == 0 {
		return 0
	}
	var sum float64
	for _, v := range window {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(window)))
}

// Classify maps one RMS value to a mouth state: below Low → Closed,
// below Mid → Mid, otherwise Open.
func (t Thresholds) Classify(rms float64) State {
	switch {
	case rms < t.Low:
		return Closed
	case rms < t.Mid:
		return Mid
	default:
		return Open
	}
}

// Sequence partitions samples into consecutive non-overlapping windows
// of one frame interval and classifies each. Deterministic: the same
// samples and thresholds always yield the same sequence.
func Sequence(samples []float64, sampleRate, fps int, t Thresholds) []State {
	if sampleRate <= 0 || fps <= 0 {
		return nil
	}
	window := sampleRate / fps
	if window <= 0 {
		window = 1
	}
	states := make([]State, 0, len(samples)/window+1)
	for start := 0; start < len(samples); start += window {
		end := start + window
		if end > len(samples) {
			end = len(samples)
		}
		states = append(states, t.Classify(RMS(samples[start:end])))
	}
	return states
}

// LineSpan marks which character speaks during [Start, End) seconds of
// the scene audio.
type LineSpan struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// SpeakerAt returns the speaker active at time t, or "" between lines.
func SpeakerAt(spans []LineSpan, t float64) string {
	for _, s := range spans {
		if t >= s.Start && t < s.End {
			return s.Speaker
		}
	}
	return ""
}

// Engine renders talking-character scene segments.
type Engine struct {
	Backend    render.Backend
	Thresholds Thresholds
	FPS        int
	SampleRate int
}

func NewEngine(backend render.Backend, t Thresholds, fps int) *Engine {
	return &Engine{Backend: backend, Thresholds: t, FPS: fps, SampleRate: 16000}
}

// RenderScene produces one muxed video segment for a talking scene:
// audio → viseme sequence → composited frames → encode → mux.
// Frame files live in a scratch dir next to out and are removed on
// success.
func (e *Engine) RenderScene(ctx context.Context, comp *Composer, audioPath string, spans []LineSpan, out string) error {
	samples, err := e.Backend.DecodePCM(ctx, audioPath, e.SampleRate)
	if err != nil {
		return fmt.Errorf("decode scene audio: %w", err)
	}
	states := Sequence(samples, e.SampleRate, e.FPS, e.Thresholds)
	if len(states) == 0 {
		return fmt.Errorf("scene audio produced no frames")
	}

	frameDir := out + ".frames"
	if err := os.MkdirAll(frameDir, 0o755); err != nil {
		return err
	}
	defer os.RemoveAll(frameDir)

	log.Printf("[viseme] rendering %d frames at %d fps", len(states), e.FPS)
	pattern, err := comp.RenderFrames(frameDir, states, spans, e.FPS)
	if err != nil {
		return fmt.Errorf("composite frames: %w", err)
	}

	silent := filepath.Join(frameDir, "silent.mp4")
	if err := e.Backend.FramesToVideo(ctx, pattern, e.FPS, silent); err != nil {
		return fmt.Errorf("encode frames: %w", err)
	}
	if err := e.Backend.MuxAudio(ctx, silent, audioPath, out); err != nil {
		return fmt.Errorf("mux scene audio: %w", err)
	}
	return nil
}
