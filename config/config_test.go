package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValues(t *testing.T) {
	t.Parallel()

	cfg := Default()
	if cfg.Script.WordsPerSecond != 2.2 {
		t.Fatalf("words per second = %v", cfg.Script.WordsPerSecond)
	}
	if cfg.Script.MinSceneSec != 6 {
		t.Fatalf("min scene sec = %v", cfg.Script.MinSceneSec)
	}
	if cfg.Viseme.ThresholdLow != 0.01 || cfg.Viseme.ThresholdMid != 0.05 {
		t.Fatalf("viseme thresholds = %v/%v", cfg.Viseme.ThresholdLow, cfg.Viseme.ThresholdMid)
	}
	if cfg.Assembly.ShortMaxSec != 120 {
		t.Fatalf("short max sec = %v", cfg.Assembly.ShortMaxSec)
	}
	if cfg.Assembly.MusicGain != 0.12 {
		t.Fatalf("music gain = %v", cfg.Assembly.MusicGain)
	}
	if len(cfg.Audio.Voices) == 0 {
		t.Fatal("no default voices")
	}
	if cfg.Script.Retry.MaxRetries <= 0 || cfg.Script.Retry.Jitter <= 0 {
		t.Fatalf("retry defaults missing: %+v", cfg.Script.Retry)
	}
}

func TestLoadOverridesAndFillsDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
assembly:
  width: 1280
  height: 720
  min_total_sec: 90
audio:
  voices: ["en-GB-SoniaNeural"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Assembly.Width != 1280 || cfg.Assembly.Height != 720 {
		t.Fatalf("overrides lost: %dx%d", cfg.Assembly.Width, cfg.Assembly.Height)
	}
	if cfg.Assembly.MinTotalSec != 90 {
		t.Fatalf("min total = %v", cfg.Assembly.MinTotalSec)
	}
	if len(cfg.Audio.Voices) != 1 || cfg.Audio.Voices[0] != "en-GB-SoniaNeural" {
		t.Fatalf("voices = %v", cfg.Audio.Voices)
	}
	// Untouched sections still get defaults.
	if cfg.Assembly.FPS != 25 || cfg.Script.SceneCount != 8 {
		t.Fatalf("defaults not applied: fps=%d scenes=%d", cfg.Assembly.FPS, cfg.Script.SceneCount)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); !os.IsNotExist(err) {
		t.Fatalf("want not-exist error, got %v", err)
	}
}
