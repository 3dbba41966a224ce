// Command kidschannel produces one video for the channel end to end:
// idea, script, narration, visuals, assembly, metadata and optionally
// the upload. Re-running with the same run ID resumes an interrupted
// run from its manifest.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/youssefehap082-gif/kids-ai-channel-sub000/assemble"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/config"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/manifest"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/media"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/metadata"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/pipeline"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/render"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/research"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/script"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/state"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/textgen"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/tts"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/types"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/upload"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/viseme"
)

var (
	flagConfig string
	flagSpec   string
	flagRunID  string
	flagUpload bool
)

func main() {
	root := &cobra.Command{
		Use:           "kidschannel",
		Short:         "Automated video production for a kids learning channel",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context())
		},
	}
	root.Flags().StringVarP(&flagConfig, "config", "c", "config.yaml", "path to config file")
	root.Flags().StringVar(&flagSpec, "spec", "", "content spec JSON file (skips research and scripting)")
	root.Flags().StringVar(&flagRunID, "run-id", "", "resume or name a run (default: new random ID)")
	root.Flags().BoolVar(&flagUpload, "upload", false, "upload the finished video to YouTube")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		log.Fatalf("[main] %v", err)
	}
}

func run(ctx context.Context) error {
	// .env is for local dev; CI injects real env vars.
	_ = godotenv.Load()

	cfg, err := loadConfig(flagConfig)
	if err != nil {
		return err
	}

	runID := flagRunID
	if runID == "" {
		runID = strings.SplitN(uuid.NewString(), "-", 2)[0]
	}
	runDir := filepath.Join(cfg.Paths.Output, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return err
	}
	log.Printf("[main] run %s → %s", runID, runDir)

	m, err := manifest.LoadOrNew(runID, filepath.Join(runDir, "manifest.json"))
	if err != nil {
		return err
	}
	st, err := state.Load(cfg.Paths.StateFile)
	if err != nil {
		return err
	}

	backend := render.NewFFmpeg("", "", cfg.Assembly.Width, cfg.Assembly.Height, cfg.Assembly.FPS, cfg.Assembly.KenBurnsZoom)
	textProviders := []textgen.Provider{textgen.NewGroq(), textgen.NewPollinationsText()}

	spec, err := contentSpec(ctx, cfg, st, m, runID, textProviders)
	if err != nil {
		return err
	}

	library, err := media.NewLibrary(cfg.Paths.AssetsClip, cfg.Paths.ClipTags)
	if err != nil {
		return err
	}
	engine := viseme.NewEngine(backend,
		viseme.Thresholds{Low: cfg.Viseme.ThresholdLow, Mid: cfg.Viseme.ThresholdMid},
		cfg.Assembly.FPS)

	stages := []pipeline.Stage{
		&script.Stage{RunDir: runDir},
		&tts.Stage{
			Cfg:           cfg,
			Engines:       []tts.Engine{&tts.EdgeTTS{Rate: cfg.Audio.Rate}, &tts.Coqui{}},
			Backend:       backend,
			RunDir:        runDir,
			NarratorVoice: st.NextVoice(cfg.Audio.Voices),
		},
		&media.Stage{
			Cfg: cfg,
			Fetchers: []media.Fetcher{
				media.NewPexels(cfg.Media.Orientation, cfg.Media.ResultCount, cfg.Assembly.Width/2),
				media.NewPollinationsImage(cfg.Assembly.Width, cfg.Assembly.Height),
			},
			Library: library,
			Backend: backend,
			RunDir:  runDir,
		},
		&assemble.Stage{Cfg: cfg, Backend: backend, Viseme: engine, RunDir: runDir},
		&metadata.Stage{Cfg: cfg, Providers: textProviders, RunDir: runDir},
	}
	if flagUpload || cfg.Upload.Enabled {
		stages = append(stages, &upload.Stage{Cfg: cfg, RunDir: runDir})
	}

	runErr := pipeline.NewRunner(stages...).Run(ctx, spec, m)
	if err := st.Save(); err != nil {
		log.Printf("[main] warning: could not save channel state: %v", err)
	}
	if runErr != nil {
		return runErr
	}

	if final, ok := m.ArtifactByKind("assemble", types.KindVideo); ok {
		log.Printf("[main] final video: %s (%.1fs)", final.Path, final.DurationSec)
	}
	for _, w := range m.Warnings {
		log.Printf("[main] warning: %s", w)
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if os.IsNotExist(err) {
		log.Printf("[main] no config at %s, using defaults", path)
		return config.Default(), nil
	}
	return nil, err
}

// contentSpec decides what this run is about: an explicit spec file, a
// previous run's persisted script when resuming, or a fresh idea
// through research and scripting.
func contentSpec(ctx context.Context, cfg *config.Config, st *state.State, m *manifest.Manifest, runID string, providers []textgen.Provider) (*types.ContentSpec, error) {
	if flagSpec != "" {
		return readSpec(flagSpec, runID)
	}
	if art, ok := m.ArtifactByKind("script", types.KindText); ok && manifest.ArtifactValid(art) {
		log.Printf("[main] resuming with persisted script %s", art.Path)
		return readSpec(art.Path, runID)
	}

	idea, err := research.New(cfg, st).Next(ctx)
	if err != nil {
		return nil, fmt.Errorf("research: %w", err)
	}
	spec, err := script.NewWriter(cfg, providers).Generate(ctx, idea)
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	spec.ID = runID
	return spec, nil
}

func readSpec(path, runID string) (*types.ContentSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var spec types.ContentSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if spec.ID == "" {
		spec.ID = runID
	}
	return &spec, nil
}
