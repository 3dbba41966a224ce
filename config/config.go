package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Research RetryConfig    `yaml:"research"`
	Script   ScriptConfig   `yaml:"script"`
	Audio    AudioConfig    `yaml:"audio"`
	Media    MediaConfig    `yaml:"media"`
	Assembly AssemblyConfig `yaml:"assembly"`
	Viseme   VisemeConfig   `yaml:"viseme"`
	Metadata MetadataConfig `yaml:"metadata"`
	Upload   UploadConfig   `yaml:"upload"`
	Paths    PathsConfig    `yaml:"paths"`
}

// RetryConfig is the per-capability fallback executor policy.
type RetryConfig struct {
	MaxRetries  int     `yaml:"max_retries"`
	BaseWaitSec float64 `yaml:"base_wait_sec"`
	MaxWaitSec  float64 `yaml:"max_wait_sec"`
	Jitter      float64 `yaml:"jitter"` // fraction, e.g. 0.3 = ±30%
}

type ScriptConfig struct {
	Retry          RetryConfig `yaml:"retry"`
	Model          string      `yaml:"model"`
	Temperature    float64     `yaml:"temperature"`
	MaxTokens      int         `yaml:"max_tokens"`
	SceneCount     int         `yaml:"scene_count"`
	WordsPerSecond float64     `yaml:"words_per_second"`
	MinSceneSec    float64     `yaml:"min_scene_sec"`
}

type AudioConfig struct {
	Retry  RetryConfig `yaml:"retry"`
	Voices []string    `yaml:"voices"`
	Rate   string      `yaml:"rate"` // edge-tts rate adjustment, e.g. "-5%"
}

type MediaConfig struct {
	Retry       RetryConfig `yaml:"retry"`
	Orientation string      `yaml:"orientation"`
	ResultCount int         `yaml:"result_count"`
	Parallelism int         `yaml:"parallelism"`
}

type AssemblyConfig struct {
	Width           int     `yaml:"width"`
	Height          int     `yaml:"height"`
	FPS             int     `yaml:"fps"`
	MinTotalSec     float64 `yaml:"min_total_sec"`
	PadColor        string  `yaml:"pad_color"`
	MusicGain       float64 `yaml:"music_gain"`
	KenBurnsZoom    float64 `yaml:"ken_burns_zoom"`
	ShortEnabled    bool    `yaml:"short_enabled"`
	ShortMaxSec     float64 `yaml:"short_max_sec"`
	BackgroundMusic string  `yaml:"background_music"`
}

type VisemeConfig struct {
	ThresholdLow float64 `yaml:"threshold_low"`
	ThresholdMid float64 `yaml:"threshold_mid"`
	BobAmplitude float64 `yaml:"bob_amplitude"`
	BobPeriodSec float64 `yaml:"bob_period_sec"`
}

type MetadataConfig struct {
	Retry         RetryConfig `yaml:"retry"`
	Model         string      `yaml:"model"`
	TitleMaxChars int         `yaml:"title_max_chars"`
	TagsCount     int         `yaml:"tags_count"`
	CategoryID    string      `yaml:"youtube_category_id"`
}

type UploadConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Visibility        string `yaml:"visibility"`
	NotifySubscribers bool   `yaml:"notify_subscribers"`
	MadeForKids       bool   `yaml:"made_for_kids"`
	DefaultLanguage   string `yaml:"default_language"`
}

type PathsConfig struct {
	Output     string `yaml:"output"`
	AssetsClip string `yaml:"assets_clips"`
	ClipTags   string `yaml:"clip_tags"`
	Characters string `yaml:"characters"`
	StateFile  string `yaml:"state_file"`
}

// Load reads config.yaml, applies defaults and returns a Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a Config with every default applied, for runs
// without a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	defRetry := func(r *RetryConfig, retries int, base float64) {
		if r.MaxRetries <= 0 {
			r.MaxRetries = retries
		}
		if r.BaseWaitSec <= 0 {
			r.BaseWaitSec = base
		}
		if r.MaxWaitSec <= 0 {
			r.MaxWaitSec = 30
		}
		if r.Jitter <= 0 {
			r.Jitter = 0.3
		}
	}
	defRetry(&c.Research, 2, 1)
	defRetry(&c.Script.Retry, 3, 2)
	defRetry(&c.Audio.Retry, 3, 2)
	defRetry(&c.Media.Retry, 4, 1)
	defRetry(&c.Metadata.Retry, 2, 2)

	if c.Script.Model == "" {
		c.Script.Model = "llama-3.1-70b-versatile"
	}
	if c.Script.Temperature <= 0 {
		c.Script.Temperature = 0.7
	}
	if c.Script.MaxTokens <= 0 {
		c.Script.MaxTokens = 4096
	}
	if c.Script.SceneCount <= 0 {
		c.Script.SceneCount = 8
	}
	if c.Script.WordsPerSecond <= 0 {
		c.Script.WordsPerSecond = 2.2
	}
	if c.Script.MinSceneSec <= 0 {
		c.Script.MinSceneSec = 6
	}

	if len(c.Audio.Voices) == 0 {
		c.Audio.Voices = []string{"en-US-AnaNeural", "en-US-JennyNeural"}
	}

	if c.Media.Orientation == "" {
		c.Media.Orientation = "landscape"
	}
	if c.Media.ResultCount <= 0 {
		c.Media.ResultCount = 5
	}
	if c.Media.Parallelism <= 0 {
		c.Media.Parallelism = 3
	}

	if c.Assembly.Width <= 0 {
		c.Assembly.Width = 1920
	}
	if c.Assembly.Height <= 0 {
		c.Assembly.Height = 1080
	}
	if c.Assembly.FPS <= 0 {
		c.Assembly.FPS = 25
	}
	if c.Assembly.PadColor == "" {
		c.Assembly.PadColor = "black"
	}
	if c.Assembly.MusicGain <= 0 {
		c.Assembly.MusicGain = 0.12
	}
	if c.Assembly.KenBurnsZoom <= 0 {
		c.Assembly.KenBurnsZoom = 1.08
	}
	if c.Assembly.ShortMaxSec <= 0 {
		c.Assembly.ShortMaxSec = 120
	}

	if c.Viseme.ThresholdLow <= 0 {
		c.Viseme.ThresholdLow = 0.01
	}
	if c.Viseme.ThresholdMid <= 0 {
		c.Viseme.ThresholdMid = 0.05
	}
	if c.Viseme.BobAmplitude <= 0 {
		c.Viseme.BobAmplitude = 6
	}
	if c.Viseme.BobPeriodSec <= 0 {
		c.Viseme.BobPeriodSec = 2
	}

	if c.Metadata.Model == "" {
		c.Metadata.Model = c.Script.Model
	}
	if c.Metadata.TitleMaxChars <= 0 {
		c.Metadata.TitleMaxChars = 70
	}
	if c.Metadata.TagsCount <= 0 {
		c.Metadata.TagsCount = 20
	}
	if c.Metadata.CategoryID == "" {
		c.Metadata.CategoryID = "24"
	}

	if c.Upload.Visibility == "" {
		c.Upload.Visibility = "private"
	}
	if c.Upload.DefaultLanguage == "" {
		c.Upload.DefaultLanguage = "en"
	}

	if c.Paths.Output == "" {
		c.Paths.Output = "output"
	}
	if c.Paths.AssetsClip == "" {
		c.Paths.AssetsClip = "assets/clips"
	}
	if c.Paths.ClipTags == "" {
		c.Paths.ClipTags = "assets/clips/tags.json"
	}
	if c.Paths.Characters == "" {
		c.Paths.Characters = "assets/characters"
	}
	if c.Paths.StateFile == "" {
		c.Paths.StateFile = "channel_state.json"
	}
}
