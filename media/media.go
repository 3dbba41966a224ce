// Package media fetches one visual per scene: stock footage first, AI
// images next, the local clip library last. Providers run behind the
// fallback executor so a dead API degrades instead of failing the run.
package media

import (
	"context"

	"github.com/youssefehap082-gif/kids-ai-channel-sub000/fallback"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/types"
)

// Fetched is one downloaded visual.
type Fetched struct {
	Path string
	Kind types.ArtifactKind
}

// Fetcher is one visual source.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, scene types.Scene, outDir string) (Fetched, error)
}

// Chain wraps fetchers as a fallback chain for one scene.
func Chain(fetchers []Fetcher, scene types.Scene, outDir string) []fallback.Provider[Fetched] {
	chain := make([]fallback.Provider[Fetched], 0, len(fetchers))
	for _, f := range fetchers {
		f := f
		chain = append(chain, fallback.Provider[Fetched]{
			Name: f.Name(),
			Call: func(ctx context.Context) (Fetched, error) {
				return f.Fetch(ctx, scene, outDir)
			},
		})
	}
	return chain
}
