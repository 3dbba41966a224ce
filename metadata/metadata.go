// Package metadata writes the publish metadata for a finished video.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/youssefehap082-gif/kids-ai-channel-sub000/config"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/fallback"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/manifest"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/script"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/textgen"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/types"
)

const systemPrompt = `You are a YouTube strategist for a children's education channel (ages 3-6).
Generate friendly, parent-trustworthy metadata. No clickbait, no fear, no ALL CAPS.

You MUST respond with ONLY valid JSON — no markdown, no explanation.

The JSON must have exactly these fields:
- "title": string (max 70 chars, playful and clear, e.g. "Why Is the Sky Blue? | Learn with Cory & Luna")
- "description": string (~200 words: what kids will learn, a note to parents, subscribe reminder)
- "tags": array of strings (mix of broad kids-content tags and topic-specific ones)`

// Stage generates title, description and tags through the text
// providers, with a templated local fallback.
type Stage struct {
	Cfg       *config.Config
	Providers []textgen.Provider
	RunDir    string
}

func (s *Stage) Name() string { return "metadata" }

type rawMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

func (s *Stage) Run(ctx context.Context, spec *types.ContentSpec, m *manifest.Manifest) ([]types.Artifact, error) {
	req := textgen.Request{
		System:      systemPrompt,
		Prompt:      s.userPrompt(spec),
		Model:       s.Cfg.Metadata.Model,
		MaxTokens:   1024,
		Temperature: 0.8,
	}
	res, err := fallback.Run(ctx,
		fallback.Spec{Capability: "metadata", Policy: fallback.PolicyFrom(s.Cfg.Metadata.Retry)},
		textgen.Chain(s.Providers, req),
		func(context.Context) (string, error) { return s.templateMetadata(spec), nil },
	)
	if err != nil {
		return nil, err
	}

	var raw rawMetadata
	if err := json.Unmarshal([]byte(script.CleanJSON(res.Value)), &raw); err != nil || raw.Title == "" {
		log.Printf("[metadata] provider %s returned unusable metadata, using template", res.Provider)
		if err := json.Unmarshal([]byte(s.templateMetadata(spec)), &raw); err != nil {
			return nil, fmt.Errorf("template metadata invalid: %w", err)
		}
	}

	md := types.VideoMetadata{
		Title:            clampTitle(raw.Title, s.Cfg.Metadata.TitleMaxChars),
		Description:      raw.Description,
		Tags:             clampTags(raw.Tags, s.Cfg.Metadata.TagsCount),
		CategoryID:       s.Cfg.Metadata.CategoryID,
		Visibility:       s.Cfg.Upload.Visibility,
		ScheduledTimeUTC: nextPublishTime(time.Now()),
	}

	data, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return nil, err
	}
	out := filepath.Join(s.RunDir, "metadata.json")
	if err := manifest.WriteFileAtomic(out, data); err != nil {
		return nil, err
	}
	log.Printf("[metadata] title: %q, %d tags", md.Title, len(md.Tags))
	return []types.Artifact{{Kind: types.KindText, Path: out, Stage: s.Name()}}, nil
}

func (s *Stage) userPrompt(spec *types.ContentSpec) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Generate metadata for a kids video titled %q about: %s\n\n", spec.Title, spec.Topic)
	sb.WriteString("Scene summary:\n")
	for i, sc := range spec.Scenes {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&sb, "- %s\n", snippet(sc.SpokenText()))
	}
	sb.WriteString("\nRespond ONLY with valid JSON.")
	return sb.String()
}

// templateMetadata is the deterministic local fallback.
func (s *Stage) templateMetadata(spec *types.ContentSpec) string {
	topic := spec.Topic
	if topic == "" {
		topic = spec.Title
	}
	raw := rawMetadata{
		Title: spec.Title + " | Learn with Cory & Luna",
		Description: fmt.Sprintf(
			"Join Cory the fox and Luna the owl to learn all about %s!\n\n"+
				"Made for curious kids ages 3-6. New videos every week.\n"+
				"Parents: every episode is gentle, educational and ad-safe.\n\n"+
				"Subscribe so you never miss an adventure!", topic),
		Tags: []string{
			"kids", "for kids", "kids learning", "preschool", "toddler learning",
			"educational video", "kids cartoon", topic,
		},
	}
	b, _ := json.Marshal(raw)
	return string(b)
}

// nextPublishTime returns the next Tuesday or Friday at 14:00 in the
// channel's home timezone, as UTC RFC3339. The uploader applies it
// only to scheduled public releases.
func nextPublishTime(now time.Time) string {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	now = now.In(loc)
	for i := 1; i <= 7; i++ {
		candidate := now.AddDate(0, 0, i)
		if wd := candidate.Weekday(); wd == time.Tuesday || wd == time.Friday {
			slot := time.Date(candidate.Year(), candidate.Month(), candidate.Day(), 14, 0, 0, 0, loc)
			return slot.UTC().Format(time.RFC3339)
		}
	}
	return now.UTC().Add(48 * time.Hour).Format(time.RFC3339)
}

func clampTitle(title string, max int) string {
	if max > 3 && len(title) > max {
		return title[:max-3] + "..."
	}
	return title
}

func clampTags(tags []string, max int) []string {
	if len(tags) > max {
		return tags[:max]
	}
	return tags
}

func snippet(s string) string {
	if len(s) > 100 {
		return s[:100] + "..."
	}
	return s
}
