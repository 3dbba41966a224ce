package tts

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/youssefehap082-gif/kids-ai-channel-sub000/config"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/fallback"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/manifest"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/render"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/types"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/viseme"
)

// Stage synthesizes one audio file per scene. Talking scenes are built
// line by line with a voice per speaker, then joined, and the measured
// line boundaries are persisted as a span file the animator reads
// later.
type Stage struct {
	Cfg           *config.Config
	Engines       []Engine
	Backend       render.Backend
	RunDir        string
	NarratorVoice string
}

func (s *Stage) Name() string { return "audio" }

func (s *Stage) Run(ctx context.Context, spec *types.ContentSpec, m *manifest.Manifest) ([]types.Artifact, error) {
	dir := filepath.Join(s.RunDir, "audio")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	voices := s.speakerVoices(spec)
	var artifacts []types.Artifact
	for _, scene := range spec.Scenes {
		var (
			arts []types.Artifact
			err  error
		)
		if scene.Talking() {
			arts, err = s.talkingScene(ctx, scene, voices, dir, m)
		} else {
			arts, err = s.narratedScene(ctx, scene, dir, m)
		}
		if err != nil {
			return nil, fmt.Errorf("scene %d: %w", scene.Index, err)
		}
		artifacts = append(artifacts, arts...)
	}
	return artifacts, nil
}

func (s *Stage) narratedScene(ctx context.Context, scene types.Scene, dir string, m *manifest.Manifest) ([]types.Artifact, error) {
	out := filepath.Join(dir, fmt.Sprintf("scene_%03d.mp3", scene.Index))
	dur, err := s.synth(ctx, scene.SpokenText(), s.NarratorVoice, out, s.sceneEstimate(scene), m)
	if err != nil {
		return nil, err
	}
	return []types.Artifact{{
		Kind: types.KindAudio, Path: out, Stage: s.Name(), SceneIndex: scene.Index, DurationSec: dur,
	}}, nil
}

func (s *Stage) talkingScene(ctx context.Context, scene types.Scene, voices map[string]string, dir string, m *manifest.Manifest) ([]types.Artifact, error) {
	var (
		lineFiles []string
		spans     []viseme.LineSpan
		elapsed   float64
	)
	for j, line := range scene.Dialogue {
		out := filepath.Join(dir, fmt.Sprintf("scene_%03d_line_%02d.mp3", scene.Index, j))
		dur, err := s.synth(ctx, line.Text, voices[line.Speaker], out, s.lineEstimate(line.Text), m)
		if err != nil {
			return nil, fmt.Errorf("line %d (%s): %w", j, line.Speaker, err)
		}
		lineFiles = append(lineFiles, out)
		spans = append(spans, viseme.LineSpan{Speaker: line.Speaker, Start: elapsed, End: elapsed + dur})
		elapsed += dur
	}

	sceneOut := filepath.Join(dir, fmt.Sprintf("scene_%03d.mp3", scene.Index))
	if err := s.Backend.ConcatAudio(ctx, lineFiles, sceneOut); err != nil {
		return nil, fmt.Errorf("join dialogue lines: %w", err)
	}

	spanData, err := json.MarshalIndent(spans, "", "  ")
	if err != nil {
		return nil, err
	}
	spanPath := filepath.Join(dir, fmt.Sprintf("scene_%03d_spans.json", scene.Index))
	if err := manifest.WriteFileAtomic(spanPath, spanData); err != nil {
		return nil, err
	}

	return []types.Artifact{
		{Kind: types.KindAudio, Path: sceneOut, Stage: s.Name(), SceneIndex: scene.Index, DurationSec: elapsed},
		{Kind: types.KindText, Path: spanPath, Stage: s.Name(), SceneIndex: scene.Index},
	}, nil
}

// synth speaks one utterance through the engine chain, falling back to
// sized silence so a scene never blocks the run. Returns the measured
// duration.
func (s *Stage) synth(ctx context.Context, text, voice, outPath string, estimateSec float64, m *manifest.Manifest) (float64, error) {
	res, err := fallback.Run(ctx,
		fallback.Spec{Capability: "tts", Policy: fallback.PolicyFrom(s.Cfg.Audio.Retry)},
		Chain(s.Engines, text, voice, outPath),
		func(ctx context.Context) (string, error) {
			if err := s.Backend.Silence(ctx, estimateSec, outPath); err != nil {
				return "", err
			}
			return outPath, nil
		},
	)
	if err != nil {
		return 0, err
	}
	if res.Fallback {
		m.Warn("tts: all engines failed for %q, using %.1fs of silence", snippet(text), estimateSec)
		return estimateSec, nil
	}

	dur, err := s.Backend.ProbeDuration(ctx, outPath)
	if err != nil || dur <= 0 {
		log.Printf("[audio] could not measure %s, using %.1fs estimate", filepath.Base(outPath), estimateSec)
		return estimateSec, nil
	}
	return dur, nil
}

// speakerVoices assigns a stable voice to each dialogue speaker in
// first-appearance order, skewed away from the narrator voice when the
// pool allows it.
func (s *Stage) speakerVoices(spec *types.ContentSpec) map[string]string {
	pool := s.Cfg.Audio.Voices
	assigned := make(map[string]string)
	if len(pool) == 0 {
		return assigned
	}
	offset := 0
	if len(pool) > 1 && pool[0] == s.NarratorVoice {
		offset = 1
	}
	for _, scene := range spec.Scenes {
		for _, line := range scene.Dialogue {
			if _, ok := assigned[line.Speaker]; !ok {
				assigned[line.Speaker] = pool[(offset+len(assigned))%len(pool)]
			}
		}
	}
	return assigned
}

func (s *Stage) sceneEstimate(scene types.Scene) float64 {
	est := wordsSec(scene.SpokenText(), s.Cfg.Script.WordsPerSecond)
	if est < s.Cfg.Script.MinSceneSec {
		est = s.Cfg.Script.MinSceneSec
	}
	return est
}

func (s *Stage) lineEstimate(text string) float64 {
	est := wordsSec(text, s.Cfg.Script.WordsPerSecond)
	if est < 1 {
		est = 1
	}
	return est
}

func wordsSec(text string, wps float64) float64 {
	if wps <= 0 {
		wps = 2.2
	}
	return float64(len(strings.Fields(text))) / wps
}

func snippet(s string) string {
	if len(s) > 40 {
		return s[:40] + "..."
	}
	return s
}
