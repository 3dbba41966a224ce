// Package pipeline sequences stages for one content item. Re-runs are
// idempotent against the manifest: a stage whose recorded artifacts
// are still valid is skipped without touching any provider.
package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/youssefehap082-gif/kids-ai-channel-sub000/manifest"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/types"
)

// Stage is one named unit of pipeline work. Run consumes prior stage
// outputs through the manifest and returns the artifacts it produced;
// it must only return nil error once every artifact is written and
// non-empty.
type Stage interface {
	Name() string
	Run(ctx context.Context, spec *types.ContentSpec, m *manifest.Manifest) ([]types.Artifact, error)
}

// Runner executes a fixed ordered list of stages sequentially,
// persisting the manifest after every transition. On stage failure
// the whole run halts and the error is surfaced to the caller.
type Runner struct {
	stages []Stage
}

func NewRunner(stages ...Stage) *Runner {
	return &Runner{stages: stages}
}

// Run drives every stage in order. Cancellation is honored at stage
// boundaries only; an aborted run leaves the manifest consistent and
// safe to resume.
func (r *Runner) Run(ctx context.Context, spec *types.ContentSpec, m *manifest.Manifest) error {
	if err := ValidateSpec(spec); err != nil {
		return err
	}
	for i, stage := range r.stages {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("aborted before stage %s: %w", stage.Name(), err)
		}

		if m.Satisfied(stage.Name()) {
			log.Printf("[pipeline] stage %d/%d %s: already satisfied — skipping", i+1, len(r.stages), stage.Name())
			continue
		}

		log.Printf("[pipeline] stage %d/%d %s: running", i+1, len(r.stages), stage.Name())
		m.MarkPending(stage.Name())
		if err := m.Save(); err != nil {
			return fmt.Errorf("persist manifest before %s: %w", stage.Name(), err)
		}

		artifacts, err := stage.Run(ctx, spec, m)
		if err != nil {
			m.MarkFailed(stage.Name(), err)
			if saveErr := m.Save(); saveErr != nil {
				log.Printf("[pipeline] warning: could not persist failure for %s: %v", stage.Name(), saveErr)
			}
			return fmt.Errorf("stage %s: %w", stage.Name(), err)
		}
		for _, a := range artifacts {
			if !manifest.ArtifactValid(a) {
				err := fmt.Errorf("stage %s produced invalid artifact %s (%s)", stage.Name(), a.Path, a.Kind)
				m.MarkFailed(stage.Name(), err)
				if saveErr := m.Save(); saveErr != nil {
					log.Printf("[pipeline] warning: could not persist failure for %s: %v", stage.Name(), saveErr)
				}
				return err
			}
		}

		m.MarkDone(stage.Name(), artifacts)
		if err := m.Save(); err != nil {
			return fmt.Errorf("persist manifest after %s: %w", stage.Name(), err)
		}
		log.Printf("[pipeline] stage %s: done (%d artifacts)", stage.Name(), len(artifacts))
	}
	return nil
}

// ValidateSpec enforces the content spec invariants: indices unique
// and densely ordered from 1, and no scene empty of both narration
// and dialogue.
func ValidateSpec(spec *types.ContentSpec) error {
	if spec == nil || len(spec.Scenes) == 0 {
		return fmt.Errorf("content spec has no scenes")
	}
	for i, s := range spec.Scenes {
		if s.Index != i+1 {
			return fmt.Errorf("scene at position %d has index %d, want %d", i, s.Index, i+1)
		}
		if s.Narration == "" && len(s.Dialogue) == 0 {
			return fmt.Errorf("scene %d has neither narration nor dialogue", s.Index)
		}
	}
	return nil
}
