// Package script turns a content idea into a full ContentSpec through
// the text-generation fallback chain, with a deterministic templated
// script as the last resort.
package script

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/youssefehap082-gif/kids-ai-channel-sub000/config"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/fallback"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/textgen"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/types"
)

const systemPrompt = `You are a scriptwriter for an animated YouTube channel for preschool children. You write warm, simple, playful scripts with short sentences and lots of repetition.

You MUST respond with ONLY valid JSON — no preamble, no markdown, no explanation.

The JSON must have:
- "title": string
- "scenes": array, each scene with:
  - "narration": 1-3 short sentences spoken by the narrator, OR null for dialogue scenes
  - "dialogue": array of {"speaker": name, "text": line} for talking-character scenes, OR null
  - "query": 2-4 word stock footage search query (for narrated scenes) OR null
  - "image_prompt": a colorful cartoon illustration prompt OR null
  - "caption": a short on-screen caption OR null

Use the recurring characters Cory the fox and Luna the owl for dialogue scenes. Every scene must have narration or dialogue. Keep vocabulary suitable for ages 3-6.`

// Writer generates content specs.
type Writer struct {
	cfg       *config.Config
	providers []textgen.Provider
}

func NewWriter(cfg *config.Config, providers []textgen.Provider) *Writer {
	return &Writer{cfg: cfg, providers: providers}
}

// raw mirrors the JSON shape the model is asked for.
type rawScript struct {
	Title  string     `json:"title"`
	Scenes []rawScene `json:"scenes"`
}

type rawScene struct {
	Narration   string               `json:"narration"`
	Dialogue    []types.DialogueLine `json:"dialogue"`
	Query       string               `json:"query"`
	ImagePrompt string               `json:"image_prompt"`
	Caption     string               `json:"caption"`
}

// Generate produces a validated ContentSpec for an idea. Providers are
// tried in order; when all of them fail the templated local script
// keeps the pipeline alive.
func (w *Writer) Generate(ctx context.Context, idea types.Idea) (*types.ContentSpec, error) {
	req := textgen.Request{
		System:      systemPrompt,
		Prompt:      w.userPrompt(idea),
		Model:       w.cfg.Script.Model,
		MaxTokens:   w.cfg.Script.MaxTokens,
		Temperature: w.cfg.Script.Temperature,
	}

	res, err := fallback.Run(ctx,
		fallback.Spec{Capability: "script", Policy: fallback.PolicyFrom(w.cfg.Script.Retry)},
		textgen.Chain(w.providers, req),
		func(context.Context) (string, error) { return templateScript(idea, w.cfg.Script.SceneCount), nil },
	)
	if err != nil {
		return nil, err
	}

	spec, err := parseSpec(res.Value, idea)
	if err != nil {
		// A provider that returns unparseable JSON is as good as a
		// failed one; fall back to the template rather than abort.
		log.Printf("[script] provider %s returned unusable script: %v — using template", res.Provider, err)
		spec, err = parseSpec(templateScript(idea, w.cfg.Script.SceneCount), idea)
		if err != nil {
			return nil, fmt.Errorf("template script invalid: %w", err)
		}
	}
	log.Printf("[script] script ready: %q, %d scenes (provider: %s)", spec.Title, len(spec.Scenes), res.Provider)
	return spec, nil
}

func (w *Writer) userPrompt(idea types.Idea) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a script with about %d scenes for a video about: %s\n", w.cfg.Script.SceneCount, idea.Topic)
	if idea.Summary != "" {
		fmt.Fprintf(&sb, "\nBackground: %s\n", idea.Summary)
	}
	sb.WriteString("\nMix narrated scenes with one or two dialogue scenes between Cory and Luna.")
	sb.WriteString("\nRespond ONLY with valid JSON.")
	return sb.String()
}

// parseSpec validates the model output into a ContentSpec with dense
// 1-based scene indices.
func parseSpec(content string, idea types.Idea) (*types.ContentSpec, error) {
	var raw rawScript
	if err := json.Unmarshal([]byte(CleanJSON(content)), &raw); err != nil {
		return nil, fmt.Errorf("parse script JSON: %w", err)
	}
	if len(raw.Scenes) == 0 {
		return nil, fmt.Errorf("script has no scenes")
	}

	spec := &types.ContentSpec{Title: raw.Title, Topic: idea.Topic}
	if spec.Title == "" {
		spec.Title = idea.Topic
	}
	for _, rs := range raw.Scenes {
		if strings.TrimSpace(rs.Narration) == "" && len(rs.Dialogue) == 0 {
			continue // invalid scene; drop rather than fail the script
		}
		spec.Scenes = append(spec.Scenes, types.Scene{
			Index:       len(spec.Scenes) + 1,
			Narration:   strings.TrimSpace(rs.Narration),
			Dialogue:    rs.Dialogue,
			Query:       rs.Query,
			ImagePrompt: rs.ImagePrompt,
			Caption:     rs.Caption,
		})
	}
	if len(spec.Scenes) == 0 {
		return nil, fmt.Errorf("script has no usable scenes")
	}
	return spec, nil
}

// templateScript is the deterministic local fallback: a simple
// counting script on the idea's topic.
func templateScript(idea types.Idea, sceneCount int) string {
	if sceneCount < 3 {
		sceneCount = 3
	}
	raw := rawScript{Title: "Let's Learn About " + idea.Topic}
	raw.Scenes = append(raw.Scenes, rawScene{
		Dialogue: []types.DialogueLine{
			{Speaker: "Cory", Text: "Hello friends! Today we learn about " + idea.Topic + "!"},
			{Speaker: "Luna", Text: "Hooray! Let's go!"},
		},
		Caption: idea.Topic,
	})
	for i := 1; i < sceneCount-1; i++ {
		raw.Scenes = append(raw.Scenes, rawScene{
			Narration: fmt.Sprintf("Here is fun fact number %d about %s. Can you say %s?", i, idea.Topic, idea.Topic),
			Query:     idea.Topic,
			Caption:   fmt.Sprintf("Fun fact %d", i),
		})
	}
	raw.Scenes = append(raw.Scenes, rawScene{
		Dialogue: []types.DialogueLine{
			{Speaker: "Cory", Text: "That was so much fun!"},
			{Speaker: "Luna", Text: "See you next time, friends!"},
		},
		Caption: "Bye bye!",
	})
	b, _ := json.Marshal(raw)
	return string(b)
}

// CleanJSON strips markdown fences when a model wraps its response in
// ```json ... ```.
func CleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
