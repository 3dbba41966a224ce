package script

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/youssefehap082-gif/kids-ai-channel-sub000/manifest"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/types"
)

// Stage persists the content spec into the run directory so a resumed
// run can prove it is replaying the same script.
type Stage struct {
	RunDir string
}

func (s *Stage) Name() string { return "script" }

func (s *Stage) Run(_ context.Context, spec *types.ContentSpec, _ *manifest.Manifest) ([]types.Artifact, error) {
	data, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		return nil, err
	}
	out := filepath.Join(s.RunDir, "content_spec.json")
	if err := manifest.WriteFileAtomic(out, data); err != nil {
		return nil, err
	}
	return []types.Artifact{{Kind: types.KindText, Path: out, Stage: s.Name()}}, nil
}
