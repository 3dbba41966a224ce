package assemble

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/youssefehap082-gif/kids-ai-channel-sub000/config"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/manifest"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/render"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/types"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/viseme"
)

// Stage wires the assembler into the pipeline: it gathers the audio
// and media stages' artifacts into per-scene inputs and records the
// assembler's warnings on the manifest.
type Stage struct {
	Cfg     *config.Config
	Backend render.Backend
	Viseme  *viseme.Engine
	RunDir  string
}

func (s *Stage) Name() string { return "assemble" }

func (s *Stage) Run(ctx context.Context, spec *types.ContentSpec, m *manifest.Manifest) ([]types.Artifact, error) {
	inputs, err := s.sceneInputs(spec, m)
	if err != nil {
		return nil, err
	}

	a := &Assembler{
		Backend:   s.Backend,
		Viseme:    s.Viseme,
		Composer:  s.composerFor,
		Heuristic: Heuristic{WordsPerSecond: s.Cfg.Script.WordsPerSecond, MinSceneSec: s.Cfg.Script.MinSceneSec},
		Constraints: Constraints{
			MinTotalSec:  s.Cfg.Assembly.MinTotalSec,
			PadColor:     s.Cfg.Assembly.PadColor,
			MusicPath:    s.Cfg.Assembly.BackgroundMusic,
			MusicGain:    s.Cfg.Assembly.MusicGain,
			ShortEnabled: s.Cfg.Assembly.ShortEnabled,
			ShortMaxSec:  s.Cfg.Assembly.ShortMaxSec,
			FPS:          s.Cfg.Assembly.FPS,
		},
	}

	out, err := a.Run(ctx, inputs, filepath.Join(s.RunDir, "assembly"))
	if err != nil {
		return nil, err
	}
	for _, w := range out.Warnings {
		m.Warn("assemble: %s", w)
	}

	artifacts := []types.Artifact{out.Final}
	if out.Short != nil {
		artifacts = append(artifacts, *out.Short)
	}
	return artifacts, nil
}

// sceneInputs joins the audio and media artifacts scene by scene.
// Every scene must have audio; a missing visual is fine and becomes a
// planned placeholder.
func (s *Stage) sceneInputs(spec *types.ContentSpec, m *manifest.Manifest) ([]SceneInput, error) {
	var inputs []SceneInput
	for _, scene := range spec.Scenes {
		in := SceneInput{Scene: scene}

		for _, a := range m.Artifacts("audio") {
			if a.SceneIndex != scene.Index {
				continue
			}
			switch a.Kind {
			case types.KindAudio:
				in.AudioPath = a.Path
				in.AudioSec = a.DurationSec
			case types.KindText:
				spans, err := loadSpans(a.Path)
				if err != nil {
					return nil, fmt.Errorf("scene %d spans: %w", scene.Index, err)
				}
				in.Spans = spans
			}
		}
		if in.AudioPath == "" {
			return nil, fmt.Errorf("scene %d has no audio artifact", scene.Index)
		}

		for _, a := range m.Artifacts("media") {
			if a.SceneIndex == scene.Index && (a.Kind == types.KindVideo || a.Kind == types.KindImage) {
				in.VisualPath = a.Path
				in.VisualKind = a.Kind
				break
			}
		}

		inputs = append(inputs, in)
	}
	return inputs, nil
}

// composerFor loads the sprite sets of every speaker in the scene, in
// first-appearance order so on-screen placement is stable.
func (s *Stage) composerFor(scene types.Scene) (*viseme.Composer, error) {
	comp := &viseme.Composer{
		Width:     s.Cfg.Assembly.Width,
		Height:    s.Cfg.Assembly.Height,
		BobAmp:    s.Cfg.Viseme.BobAmplitude,
		BobPeriod: int(s.Cfg.Viseme.BobPeriodSec * float64(s.Cfg.Assembly.FPS)),
	}

	seen := make(map[string]bool)
	for _, line := range scene.Dialogue {
		if seen[line.Speaker] {
			continue
		}
		seen[line.Speaker] = true
		ch, err := viseme.LoadCharacter(s.Cfg.Paths.Characters, strings.ToLower(line.Speaker))
		if err != nil {
			return nil, err
		}
		ch.Name = line.Speaker
		comp.Characters = append(comp.Characters, ch)
	}
	comp.PlaceCharacters()
	return comp, nil
}

func loadSpans(path string) ([]viseme.LineSpan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var spans []viseme.LineSpan
	if err := json.Unmarshal(data, &spans); err != nil {
		return nil, err
	}
	return spans, nil
}
