package tts

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/youssefehap082-gif/kids-ai-channel-sub000/config"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/manifest"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/render"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/types"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/viseme"
)

// fakeEngine records voices and writes a marker file per utterance.
type fakeEngine struct {
	fail   bool
	voices []string
}

func (f *fakeEngine) Name() string { return "fake" }
func (f *fakeEngine) Speak(_ context.Context, text, voice, outPath string) error {
	if f.fail {
		return errors.New("engine down")
	}
	f.voices = append(f.voices, voice)
	return os.WriteFile(outPath, []byte(text), 0o644)
}

// fakeBackend implements just the render operations the stage touches;
// anything else panics via the nil embedded interface.
type fakeBackend struct {
	render.Backend
	durationSec float64
	silences    int
}

func (f *fakeBackend) ProbeDuration(context.Context, string) (float64, error) {
	return f.durationSec, nil
}
func (f *fakeBackend) Silence(_ context.Context, _ float64, out string) error {
	f.silences++
	return os.WriteFile(out, []byte("silence"), 0o644)
}
func (f *fakeBackend) ConcatAudio(_ context.Context, files []string, out string) error {
	var joined []byte
	for _, p := range files {
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		joined = append(joined, data...)
	}
	return os.WriteFile(out, joined, 0o644)
}

func quickConfig() *config.Config {
	cfg := config.Default()
	cfg.Audio.Retry.MaxRetries = 1
	cfg.Audio.Retry.BaseWaitSec = 0.001
	return cfg
}

func TestRun_NarratedScene(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{}
	stage := &Stage{
		Cfg:           quickConfig(),
		Engines:       []Engine{engine},
		Backend:       &fakeBackend{durationSec: 4.5},
		RunDir:        t.TempDir(),
		NarratorVoice: "en-US-AnaNeural",
	}
	spec := &types.ContentSpec{Scenes: []types.Scene{
		{Index: 1, Narration: "The sun is a star."},
	}}

	arts, err := stage.Run(context.Background(), spec, manifest.New("r1", filepath.Join(stage.RunDir, "m.json")))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(arts) != 1 {
		t.Fatalf("got %d artifacts, want 1", len(arts))
	}
	a := arts[0]
	if a.Kind != types.KindAudio || a.SceneIndex != 1 || a.DurationSec != 4.5 {
		t.Fatalf("unexpected artifact: %+v", a)
	}
	if len(engine.voices) != 1 || engine.voices[0] != "en-US-AnaNeural" {
		t.Fatalf("narrator voice = %v", engine.voices)
	}
}

func TestRun_TalkingSceneSpans(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{}
	stage := &Stage{
		Cfg:           quickConfig(),
		Engines:       []Engine{engine},
		Backend:       &fakeBackend{durationSec: 2},
		RunDir:        t.TempDir(),
		NarratorVoice: "en-US-AnaNeural",
	}
	spec := &types.ContentSpec{Scenes: []types.Scene{
		{Index: 1, Dialogue: []types.DialogueLine{
			{Speaker: "Cory", Text: "Hello!"},
			{Speaker: "Luna", Text: "Hi there!"},
			{Speaker: "Cory", Text: "Let's count!"},
		}},
	}}

	arts, err := stage.Run(context.Background(), spec, manifest.New("r1", filepath.Join(stage.RunDir, "m.json")))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(arts) != 2 {
		t.Fatalf("want audio + span artifacts, got %d", len(arts))
	}

	audio := arts[0]
	if audio.Kind != types.KindAudio || audio.DurationSec != 6 {
		t.Fatalf("audio artifact: %+v", audio)
	}

	spanArt := arts[1]
	data, err := os.ReadFile(spanArt.Path)
	if err != nil {
		t.Fatal(err)
	}
	var spans []viseme.LineSpan
	if err := json.Unmarshal(data, &spans); err != nil {
		t.Fatal(err)
	}
	want := []viseme.LineSpan{
		{Speaker: "Cory", Start: 0, End: 2},
		{Speaker: "Luna", Start: 2, End: 4},
		{Speaker: "Cory", Start: 4, End: 6},
	}
	if len(spans) != len(want) {
		t.Fatalf("got %d spans", len(spans))
	}
	for i := range want {
		if spans[i] != want[i] {
			t.Fatalf("span %d = %+v, want %+v", i, spans[i], want[i])
		}
	}

	// The two speakers must not share a voice.
	if engine.voices[0] == engine.voices[1] {
		t.Fatalf("speakers share a voice: %v", engine.voices)
	}
}

func TestRun_SilenceFallbackWarns(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{durationSec: 3}
	stage := &Stage{
		Cfg:           quickConfig(),
		Engines:       []Engine{&fakeEngine{fail: true}},
		Backend:       backend,
		RunDir:        t.TempDir(),
		NarratorVoice: "en-US-AnaNeural",
	}
	spec := &types.ContentSpec{Scenes: []types.Scene{
		{Index: 1, Narration: "Twinkle twinkle little star how I wonder what you are."},
	}}

	m := manifest.New("r1", filepath.Join(stage.RunDir, "m.json"))
	arts, err := stage.Run(context.Background(), spec, m)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if backend.silences != 1 {
		t.Fatalf("expected one silence render, got %d", backend.silences)
	}
	if len(m.Warnings) != 1 {
		t.Fatalf("expected a warning, got %v", m.Warnings)
	}
	// Duration comes from the word-count estimate, floored at the
	// scene minimum.
	if arts[0].DurationSec != stage.Cfg.Script.MinSceneSec {
		t.Fatalf("duration = %v, want %v", arts[0].DurationSec, stage.Cfg.Script.MinSceneSec)
	}
}
