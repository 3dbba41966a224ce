package state

import (
	"fmt"
	"path/filepath"
	"testing"
)

func TestLoadMissingGivesZeroState(t *testing.T) {
	t.Parallel()

	s, err := Load(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.LastVoiceIndex != 0 || len(s.RecentTopics) != 0 {
		t.Fatalf("not a zero state: %+v", s)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	s, _ := Load(path)
	s.NextVoice([]string{"a", "b"})
	s.RememberTopic("volcanoes")
	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.LastVoiceIndex != 1 {
		t.Fatalf("voice index = %d", loaded.LastVoiceIndex)
	}
	if !loaded.TopicUsed("volcanoes") {
		t.Fatal("topic not remembered")
	}
}

func TestNextVoiceRotation(t *testing.T) {
	t.Parallel()

	s := &State{}
	voices := []string{"a", "b", "c"}
	got := []string{s.NextVoice(voices), s.NextVoice(voices), s.NextVoice(voices), s.NextVoice(voices)}
	want := []string{"b", "c", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rotation = %v, want %v", got, want)
		}
	}
	if s.NextVoice(nil) != "" {
		t.Fatal("empty voice pool should yield empty string")
	}
}

func TestRememberTopicCap(t *testing.T) {
	t.Parallel()

	s := &State{}
	for i := 0; i < maxRecentTopics+5; i++ {
		s.RememberTopic(fmt.Sprintf("topic-%d", i))
	}
	if len(s.RecentTopics) != maxRecentTopics {
		t.Fatalf("recent topics = %d, want %d", len(s.RecentTopics), maxRecentTopics)
	}
	if s.TopicUsed("topic-0") {
		t.Fatal("oldest topic should have been evicted")
	}
	if !s.TopicUsed(fmt.Sprintf("topic-%d", maxRecentTopics+4)) {
		t.Fatal("newest topic missing")
	}
}
