// Package assemble builds the final timed video from per-scene
// assets: it matches each scene's visual length to its audio, handles
// talking-character scenes through the viseme engine, concatenates
// everything in scene order and enforces the global duration
// constraints.
package assemble

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/youssefehap082-gif/kids-ai-channel-sub000/render"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/types"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/viseme"
)

// SceneInput bundles the prepared assets of one scene.
type SceneInput struct {
	Scene      types.Scene
	VisualPath string
	VisualKind types.ArtifactKind // KindImage, KindVideo, or "" when none
	AudioPath  string
	AudioSec   float64
	Spans      []viseme.LineSpan // per-line timing for talking scenes
}

// Constraints bound the assembled timeline.
type Constraints struct {
	MinTotalSec  float64
	PadColor     string
	MusicPath    string
	MusicGain    float64
	ShortEnabled bool
	ShortMaxSec  float64
	FPS          int
}

// Output is the assembly result.
type Output struct {
	Final    types.Artifact
	Short    *types.Artifact
	Warnings []string
}

// Assembler is the duration-synchronized assembly engine. It only
// talks to the render backend through its narrow interface.
type Assembler struct {
	Backend     render.Backend
	Viseme      *viseme.Engine
	Composer    func(scene types.Scene) (*viseme.Composer, error)
	Heuristic   Heuristic
	Constraints Constraints
}

// Run assembles all scenes into one timeline in ascending scene-index
// order. A scene whose visual cannot be processed falls back to a
// placeholder; a scene that cannot be rendered at all is skipped with
// a warning. Zero surviving scenes is fatal.
func (a *Assembler) Run(ctx context.Context, scenes []SceneInput, workDir string) (Output, error) {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return Output{}, err
	}

	var out Output
	var segments []string
	var totalSec float64

	for _, in := range scenes {
		plan := a.planFor(ctx, in)
		segPath := filepath.Join(workDir, fmt.Sprintf("segment_%03d.mp4", in.Scene.Index))

		log.Printf("[assemble] scene %d: %s, target %.2fs", in.Scene.Index, plan.Treatment, plan.TargetSec)
		if err := a.buildSegment(ctx, in, plan, segPath); err != nil {
			warn := fmt.Sprintf("scene %d: %v — substituting placeholder", in.Scene.Index, err)
			log.Printf("[assemble] warning: %s", warn)
			out.Warnings = append(out.Warnings, warn)

			if err := a.buildPlaceholder(ctx, in, plan, segPath); err != nil {
				warn := fmt.Sprintf("scene %d: placeholder failed too: %v — dropping scene", in.Scene.Index, err)
				log.Printf("[assemble] warning: %s", warn)
				out.Warnings = append(out.Warnings, warn)
				continue
			}
		}
		segments = append(segments, segPath)
		totalSec += plan.SegmentSec
	}

	if len(segments) == 0 {
		return Output{}, fmt.Errorf("no scene survived assembly")
	}

	// Global minimum: pad with a solid segment instead of discarding
	// the run.
	if a.Constraints.MinTotalSec > 0 && totalSec < a.Constraints.MinTotalSec {
		padSec := a.Constraints.MinTotalSec - totalSec
		padPath := filepath.Join(workDir, "segment_pad.mp4")
		if err := a.Backend.ColorClip(ctx, a.Constraints.PadColor, padSec, padPath); err != nil {
			return Output{}, fmt.Errorf("build padding segment: %w", err)
		}
		segments = append(segments, padPath)
		totalSec += padSec
		log.Printf("[assemble] padded timeline by %.2fs to reach %.2fs minimum", padSec, a.Constraints.MinTotalSec)
	}

	final := filepath.Join(workDir, "final.mp4")
	if err := a.Backend.Concat(ctx, segments, final); err != nil {
		return Output{}, fmt.Errorf("concat %d segments: %w", len(segments), err)
	}

	// Music bed over the whole concatenated timeline, not per scene.
	if a.Constraints.MusicPath != "" {
		if _, err := os.Stat(a.Constraints.MusicPath); err == nil {
			withMusic := filepath.Join(workDir, "final_music.mp4")
			if err := a.Backend.MixMusic(ctx, final, a.Constraints.MusicPath, a.Constraints.MusicGain, withMusic); err != nil {
				warn := fmt.Sprintf("music bed failed: %v — keeping narration-only mix", err)
				log.Printf("[assemble] warning: %s", warn)
				out.Warnings = append(out.Warnings, warn)
			} else {
				final = withMusic
			}
		}
	}

	out.Final = types.Artifact{
		Kind:        types.KindVideo,
		Path:        final,
		Stage:       "assemble",
		DurationSec: totalSec,
	}

	if a.Constraints.ShortEnabled {
		shortSec := a.Constraints.ShortMaxSec
		if totalSec < shortSec {
			shortSec = totalSec
		}
		shortPath := filepath.Join(workDir, "short.mp4")
		if err := a.Backend.Head(ctx, final, shortSec, shortPath); err != nil {
			warn := fmt.Sprintf("short derivative failed: %v", err)
			log.Printf("[assemble] warning: %s", warn)
			out.Warnings = append(out.Warnings, warn)
		} else {
			out.Short = &types.Artifact{
				Kind:        types.KindVideo,
				Path:        shortPath,
				Stage:       "assemble",
				DurationSec: shortSec,
			}
		}
	}

	return out, nil
}

func (a *Assembler) planFor(ctx context.Context, in SceneInput) SyncPlan {
	visualSec := 0.0
	if in.VisualKind == types.KindVideo && in.VisualPath != "" {
		if dur, err := a.Backend.ProbeDuration(ctx, in.VisualPath); err == nil {
			visualSec = dur
			// A clip within one frame interval of the audio length
			// covers it; looping for a sub-frame shortfall buys
			// nothing.
			if fps := a.Constraints.FPS; fps > 0 && in.AudioSec > visualSec && in.AudioSec-visualSec <= 1.0/float64(fps) {
				visualSec = in.AudioSec
			}
		}
	}
	return PlanScene(in.Scene, in.AudioSec, visualSec, in.VisualKind, a.Heuristic)
}

// buildSegment produces one muxed scene segment according to the plan.
func (a *Assembler) buildSegment(ctx context.Context, in SceneInput, plan SyncPlan, out string) error {
	if plan.Treatment == TreatTalking {
		return a.buildTalking(ctx, in, out)
	}

	silent := out + ".visual.mp4"
	var err error
	switch plan.Treatment {
	case TreatTrim:
		err = a.Backend.Trim(ctx, in.VisualPath, plan.TargetSec, silent)
	case TreatLoop:
		err = a.Backend.LoopToDuration(ctx, in.VisualPath, plan.TargetSec, silent)
	case TreatStill:
		err = a.Backend.StillClip(ctx, in.VisualPath, plan.TargetSec, silent)
	default:
		err = a.Backend.ColorClip(ctx, a.Constraints.PadColor, plan.TargetSec, silent)
	}
	if err != nil {
		return err
	}

	if in.Scene.Caption != "" {
		captioned := out + ".captioned.mp4"
		if err := a.Backend.DrawCaption(ctx, silent, in.Scene.Caption, captioned); err != nil {
			log.Printf("[assemble] scene %d: caption overlay failed: %v — continuing without caption", in.Scene.Index, err)
		} else {
			silent = captioned
		}
	}

	if in.AudioPath == "" {
		return os.Rename(silent, out)
	}
	return a.Backend.MuxAudio(ctx, silent, in.AudioPath, out)
}

func (a *Assembler) buildTalking(ctx context.Context, in SceneInput, out string) error {
	if a.Viseme == nil || a.Composer == nil {
		return fmt.Errorf("talking scene without a viseme engine")
	}
	if in.AudioPath == "" {
		return fmt.Errorf("talking scene without audio")
	}
	comp, err := a.Composer(in.Scene)
	if err != nil {
		return fmt.Errorf("load characters: %w", err)
	}
	return a.Viseme.RenderScene(ctx, comp, in.AudioPath, in.Spans, out)
}

// buildPlaceholder is the last resort for a broken scene: a solid
// frame held for the scene's target duration, with the scene audio
// kept intact when it exists.
func (a *Assembler) buildPlaceholder(ctx context.Context, in SceneInput, plan SyncPlan, out string) error {
	silent := out + ".pad.mp4"
	if err := a.Backend.ColorClip(ctx, a.Constraints.PadColor, plan.TargetSec, silent); err != nil {
		return err
	}
	if in.AudioPath == "" {
		return os.Rename(silent, out)
	}
	return a.Backend.MuxAudio(ctx, silent, in.AudioPath, out)
}
