package upload

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/youssefehap082-gif/kids-ai-channel-sub000/config"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/manifest"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/types"
)

func TestOauthClient_MissingCredentials(t *testing.T) {
	t.Setenv("YOUTUBE_CLIENT_ID", "")
	t.Setenv("YOUTUBE_CLIENT_SECRET", "")
	t.Setenv("YOUTUBE_REFRESH_TOKEN", "")

	if _, err := New(config.Default()).oauthClient(context.Background()); err == nil {
		t.Fatal("missing credentials must error before any network call")
	}
}

func TestOauthClient_Configured(t *testing.T) {
	t.Setenv("YOUTUBE_CLIENT_ID", "id")
	t.Setenv("YOUTUBE_CLIENT_SECRET", "secret")
	t.Setenv("YOUTUBE_REFRESH_TOKEN", "refresh")

	client, err := New(config.Default()).oauthClient(context.Background())
	if err != nil {
		t.Fatalf("oauthClient: %v", err)
	}
	if client == nil {
		t.Fatal("expected a configured http client")
	}
}

func TestStage_RequiresArtifacts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := &Stage{Cfg: config.Default(), RunDir: dir}
	m := manifest.New("r1", filepath.Join(dir, "m.json"))

	_, err := s.Run(context.Background(), nil, m)
	if err == nil || !strings.Contains(err.Error(), "no assembled video") {
		t.Fatalf("empty manifest: err = %v", err)
	}

	m.MarkDone("assemble", []types.Artifact{
		{Kind: types.KindVideo, Path: filepath.Join(dir, "final.mp4"), Stage: "assemble"},
	})
	_, err = s.Run(context.Background(), nil, m)
	if err == nil || !strings.Contains(err.Error(), "no metadata") {
		t.Fatalf("video without metadata: err = %v", err)
	}
}
