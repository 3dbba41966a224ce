package assemble

import (
	"strings"

	"github.com/youssefehap082-gif/kids-ai-channel-sub000/types"
)

// Treatment is the visual handling chosen for one scene.
type Treatment string

const (
	TreatTrim    Treatment = "trim"    // visual longer than audio: cut
	TreatLoop    Treatment = "loop"    // visual shorter than audio: loop seamlessly
	TreatStill   Treatment = "still"   // still image held with slow zoom
	TreatPad     Treatment = "pad"     // no visual: solid placeholder
	TreatTalking Treatment = "talking" // animated characters, viseme-driven
)

// SyncPlan is the per-scene assembly decision: how long the segment
// must be and how the visual gets there. Recomputed on every run.
type SyncPlan struct {
	SceneIndex int
	TargetSec  float64
	Treatment  Treatment
	SegmentSec float64
}

// Heuristic converts narration text to a duration when no audio
// exists, so a missing narration never collapses a scene to zero
// length.
type Heuristic struct {
	WordsPerSecond float64
	MinSceneSec    float64
}

// EstimateSec returns the spoken length of text under the heuristic,
// never below the floor.
func (h Heuristic) EstimateSec(text string) float64 {
	wps := h.WordsPerSecond
	if wps <= 0 {
		wps = 2.2
	}
	floor := h.MinSceneSec
	if floor <= 0 {
		floor = 6
	}
	sec := float64(len(strings.Fields(text))) / wps
	if sec < floor {
		sec = floor
	}
	return sec
}

// PlanScene decides the visual treatment for one scene.
//
// The target duration comes from the audio track; when there is no
// audio it is synthesized from the narration text. A video shorter
// than the target is looped, never truncated; one that covers the
// target is trimmed to it; a missing visual becomes a placeholder held
// for the full target. A video of unknown length is looped too, since
// looping a clip that already covers the target still yields the
// target duration while trimming a too-short one would cut the audio.
func PlanScene(scene types.Scene, audioSec, visualSec float64, visualKind types.ArtifactKind, h Heuristic) SyncPlan {
	target := audioSec
	if target <= 0 {
		target = h.EstimateSec(scene.SpokenText())
	}
	p := SyncPlan{SceneIndex: scene.Index, TargetSec: target, SegmentSec: target}

	switch {
	case scene.Talking():
		p.Treatment = TreatTalking
	case visualKind == types.KindImage:
		p.Treatment = TreatStill
	case visualKind == types.KindVideo && visualSec >= target:
		p.Treatment = TreatTrim
	case visualKind == types.KindVideo:
		p.Treatment = TreatLoop
	default:
		p.Treatment = TreatPad
	}
	return p
}
