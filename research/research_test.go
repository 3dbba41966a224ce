package research

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/vartanbeno/go-reddit/v2/reddit"

	"github.com/youssefehap082-gif/kids-ai-channel-sub000/config"
	"github.com/youssefehap082-gif/kids-ai-channel-sub000/state"
)

func quickResearcher(t *testing.T) *Researcher {
	t.Helper()
	cfg := config.Default()
	cfg.Research.MaxRetries = 1
	cfg.Research.BaseWaitSec = 0.001
	st, err := state.Load(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatal(err)
	}
	r := New(cfg, st)
	r.newRC = func() (*reddit.Client, error) { return nil, errors.New("offline") }
	return r
}

func TestNew_RedditConstructor(t *testing.T) {
	t.Parallel()

	st, err := state.Load(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatal(err)
	}
	r := New(config.Default(), st)
	if r.newRC == nil {
		t.Fatal("New must wire a reddit client constructor")
	}
	// Constructing the read-only client does no network I/O.
	client, err := r.newRC()
	if err != nil {
		t.Fatalf("newRC: %v", err)
	}
	if client == nil {
		t.Fatal("newRC returned nil client")
	}
}

func TestNext_CuratedFallback(t *testing.T) {
	t.Parallel()

	r := quickResearcher(t)
	idea, err := r.Next(context.Background())
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if idea.Source != "curated" {
		t.Fatalf("source = %q, want curated", idea.Source)
	}
	if idea.Topic != CuratedIdeas()[0].Topic {
		t.Fatalf("topic = %q, want first curated topic", idea.Topic)
	}
}

func TestNext_SkipsRecentTopics(t *testing.T) {
	t.Parallel()

	r := quickResearcher(t)
	first, err := r.Next(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Next(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if first.Topic == second.Topic {
		t.Fatalf("topic %q repeated back to back", first.Topic)
	}
}

func TestNext_ExhaustedPool(t *testing.T) {
	t.Parallel()

	r := quickResearcher(t)
	for range CuratedIdeas() {
		if _, err := r.Next(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := r.Next(context.Background()); err == nil {
		t.Fatal("exhausted topic pool must error")
	}
}

func TestLooksTeachable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		title string
		want  bool
	}{
		{"How do I explain rain to my toddler?", true},
		{"Why do cats purr?", true},
		{"Rant about my HOA", false},
		{"Dinosaur facts my kid loves", true},
	}
	for _, c := range cases {
		if got := looksTeachable(c.title); got != c.want {
			t.Errorf("looksTeachable(%q) = %v, want %v", c.title, got, c.want)
		}
	}
}
