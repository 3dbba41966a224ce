package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/youssefehap082-gif/kids-ai-channel-sub000/config"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/fallback"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/manifest"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/render"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/types"
)

// Stage fetches visuals for every narrated scene, a few scenes at a
// time. Talking scenes are skipped; the animator draws those. A scene
// whose every source fails gets no artifact and is handled with a
// placeholder downstream; the stage itself fails only when not one
// scene got a visual.
type Stage struct {
	Cfg      *config.Config
	Fetchers []Fetcher
	Library  *Library
	Backend  render.Backend
	RunDir   string
}

func (s *Stage) Name() string { return "media" }

func (s *Stage) Run(ctx context.Context, spec *types.ContentSpec, m *manifest.Manifest) ([]types.Artifact, error) {
	dir := filepath.Join(s.RunDir, "media")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	results := make([]*types.Artifact, len(spec.Scenes))
	warnings := make([]string, len(spec.Scenes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Cfg.Media.Parallelism)
	for i, scene := range spec.Scenes {
		if scene.Talking() {
			continue
		}
		i, scene := i, scene
		g.Go(func() error {
			art, err := s.fetchScene(gctx, scene, dir)
			if err != nil {
				warnings[i] = fmt.Sprintf("media: scene %d has no visual: %v", scene.Index, err)
				return nil
			}
			results[i] = art
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var (
		artifacts  []types.Artifact
		nonTalking int
	)
	for i, scene := range spec.Scenes {
		if scene.Talking() {
			continue
		}
		nonTalking++
		if warnings[i] != "" {
			m.Warn("%s", warnings[i])
		}
		if results[i] != nil {
			artifacts = append(artifacts, *results[i])
		}
	}
	if nonTalking > 0 && len(artifacts) == 0 {
		return nil, fmt.Errorf("no visual could be fetched for any of %d scenes", nonTalking)
	}
	return artifacts, nil
}

func (s *Stage) fetchScene(ctx context.Context, scene types.Scene, dir string) (*types.Artifact, error) {
	var local fallback.Local[Fetched]
	if s.Library != nil {
		local = func(context.Context) (Fetched, error) {
			path, err := s.Library.Pick(scene)
			if err != nil {
				return Fetched{}, err
			}
			return Fetched{Path: path, Kind: types.KindVideo}, nil
		}
	}

	res, err := fallback.Run(ctx,
		fallback.Spec{Capability: "media", Policy: fallback.PolicyFrom(s.Cfg.Media.Retry)},
		Chain(s.Fetchers, scene, dir),
		local,
	)
	if err != nil {
		return nil, err
	}

	art := types.Artifact{
		Kind:       res.Value.Kind,
		Path:       res.Value.Path,
		Stage:      s.Name(),
		SceneIndex: scene.Index,
	}
	if art.Kind == types.KindVideo {
		dur, err := s.Backend.ProbeDuration(ctx, art.Path)
		if err != nil {
			return nil, fmt.Errorf("probe %s: %w", filepath.Base(art.Path), err)
		}
		art.DurationSec = dur
	}
	return &art, nil
}
