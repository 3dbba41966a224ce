// Package research sources the next video idea. Reddit parenting
// communities come first; a curated topic list is the deterministic
// fallback so the channel never stalls for lack of an idea.
package research

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/vartanbeno/go-reddit/v2/reddit"

	"github.com/youssefehap082-gif/kids-ai-channel-sub000/config"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/fallback"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/state"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/types"
)

var defaultSubreddits = []string{"Parenting", "preschool", "ScienceParents"}

// topicKeywords mark a post as a usable topic seed.
var topicKeywords = []string{
	"why", "how", "learn", "teach", "explain", "question",
	"animals", "space", "dinosaur", "ocean", "weather", "numbers",
	"colors", "shapes", "letters", "science",
}

// curatedTopics is the offline idea pool.
var curatedTopics = []string{
	"Why the sky is blue",
	"How bees make honey",
	"Counting with dinosaurs",
	"The colors of the rainbow",
	"Why we brush our teeth",
	"How seeds grow into plants",
	"The phases of the moon",
	"What animals do in winter",
	"How rain is made",
	"The shapes all around us",
}

// Researcher picks the next topic, skipping anything covered recently.
type Researcher struct {
	cfg   *config.Config
	st    *state.State
	newRC func() (*reddit.Client, error) // swapped in tests
}

func New(cfg *config.Config, st *state.State) *Researcher {
	return &Researcher{
		cfg: cfg,
		st:  st,
		newRC: func() (*reddit.Client, error) {
			return reddit.NewReadonlyClient()
		},
	}
}

// Next returns a fresh idea and records its topic in channel state.
func (r *Researcher) Next(ctx context.Context) (types.Idea, error) {
	res, err := fallback.Run(ctx,
		fallback.Spec{Capability: "research", Policy: fallback.PolicyFrom(r.cfg.Research)},
		[]fallback.Provider[[]types.Idea]{{Name: "reddit", Call: r.redditIdeas}},
		func(context.Context) ([]types.Idea, error) { return CuratedIdeas(), nil },
	)
	if err != nil {
		return types.Idea{}, err
	}

	for _, idea := range res.Value {
		if r.st.TopicUsed(idea.Topic) {
			continue
		}
		r.st.RememberTopic(idea.Topic)
		log.Printf("[research] selected topic %q (source: %s)", idea.Topic, idea.Source)
		return idea, nil
	}
	return types.Idea{}, fmt.Errorf("every candidate topic was covered recently")
}

// redditIdeas pulls hot posts from kid-content communities through the
// readonly API and keeps the ones that look like teachable topics.
func (r *Researcher) redditIdeas(ctx context.Context) ([]types.Idea, error) {
	client, err := r.newRC()
	if err != nil {
		return nil, fallback.Permanent(fmt.Errorf("reddit client: %w", err))
	}

	var ideas []types.Idea
	for _, sub := range defaultSubreddits {
		posts, _, err := client.Subreddit.HotPosts(ctx, sub, &reddit.ListOptions{Limit: 25})
		if err != nil {
			log.Printf("[research] r/%s: %v", sub, err)
			continue
		}
		for _, post := range posts {
			if !looksTeachable(post.Title) {
				continue
			}
			ideas = append(ideas, types.Idea{
				Topic:     post.Title,
				Summary:   snippet(post.Body),
				Source:    "r/" + sub,
				SourceURL: "https://reddit.com" + post.Permalink,
			})
		}
	}
	if len(ideas) == 0 {
		return nil, fallback.Transient(fmt.Errorf("no usable posts in %d subreddits", len(defaultSubreddits)))
	}
	return ideas, nil
}

// CuratedIdeas returns the built-in topic pool in fixed order.
func CuratedIdeas() []types.Idea {
	ideas := make([]types.Idea, 0, len(curatedTopics))
	for _, t := range curatedTopics {
		ideas = append(ideas, types.Idea{Topic: t, Source: "curated"})
	}
	return ideas
}

func looksTeachable(title string) bool {
	lower := strings.ToLower(title)
	for _, kw := range topicKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func snippet(s string) string {
	if len(s) > 400 {
		return s[:400] + "..."
	}
	return s
}
