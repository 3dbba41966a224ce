package assemble

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/youssefehap082-gif/kids-ai-channel-sub000/config"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/manifest"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/types"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/viseme"
)

func TestStage_JoinsAudioAndMediaArtifacts(t *testing.T) {
	t.Parallel()

	runDir := t.TempDir()
	cfg := config.Default()

	clip := filepath.Join(runDir, "clip1.mp4")
	if err := os.WriteFile(clip, []byte("clip"), 0o644); err != nil {
		t.Fatal(err)
	}

	b := newFakeBackend()
	b.durations[clip] = 20

	m := manifest.New("r1", filepath.Join(runDir, "m.json"))
	m.MarkDone("audio", []types.Artifact{
		{Kind: types.KindAudio, Path: "a1.mp3", Stage: "audio", SceneIndex: 1, DurationSec: 8},
	})
	m.MarkDone("media", []types.Artifact{
		{Kind: types.KindVideo, Path: clip, Stage: "media", SceneIndex: 1, DurationSec: 20},
	})

	stage := &Stage{Cfg: cfg, Backend: b, RunDir: runDir}
	spec := &types.ContentSpec{Scenes: []types.Scene{{Index: 1, Narration: "hello"}}}

	arts, err := stage.Run(context.Background(), spec, m)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(arts) != 1 {
		t.Fatalf("artifacts = %+v", arts)
	}
	if arts[0].Kind != types.KindVideo || arts[0].DurationSec != 8 {
		t.Fatalf("final artifact: %+v", arts[0])
	}
	if b.called("trim") != 1 {
		t.Fatalf("20s clip with 8s audio should be trimmed: %v", b.calls)
	}
}

func TestStage_MissingAudioIsFatal(t *testing.T) {
	t.Parallel()

	runDir := t.TempDir()
	m := manifest.New("r1", filepath.Join(runDir, "m.json"))
	stage := &Stage{Cfg: config.Default(), Backend: newFakeBackend(), RunDir: runDir}
	spec := &types.ContentSpec{Scenes: []types.Scene{{Index: 1, Narration: "hello"}}}

	if _, err := stage.Run(context.Background(), spec, m); err == nil {
		t.Fatal("a scene without audio must fail assembly")
	}
}

func TestStage_LoadsSpansForTalkingScenes(t *testing.T) {
	t.Parallel()

	runDir := t.TempDir()
	spans := []viseme.LineSpan{{Speaker: "Cory", Start: 0, End: 2}}
	spanData, _ := json.Marshal(spans)
	spanPath := filepath.Join(runDir, "spans.json")
	if err := os.WriteFile(spanPath, spanData, 0o644); err != nil {
		t.Fatal(err)
	}

	m := manifest.New("r1", filepath.Join(runDir, "m.json"))
	m.MarkDone("audio", []types.Artifact{
		{Kind: types.KindAudio, Path: "a1.mp3", Stage: "audio", SceneIndex: 1, DurationSec: 2},
		{Kind: types.KindText, Path: spanPath, Stage: "audio", SceneIndex: 1},
	})

	stage := &Stage{Cfg: config.Default(), Backend: newFakeBackend(), RunDir: runDir}
	spec := &types.ContentSpec{Scenes: []types.Scene{
		{Index: 1, Dialogue: []types.DialogueLine{{Speaker: "Cory", Text: "hi"}}},
	}}

	inputs, err := stage.sceneInputs(spec, m)
	if err != nil {
		t.Fatalf("scene inputs: %v", err)
	}
	if len(inputs) != 1 || len(inputs[0].Spans) != 1 || inputs[0].Spans[0].Speaker != "Cory" {
		t.Fatalf("spans not loaded: %+v", inputs)
	}
}
