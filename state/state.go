// Package state holds the small cross-run rotation record: which
// voice spoke last and which topics were covered recently. Loaded at
// process start, mutated only by the stage that owns each field, and
// saved once at the end of the run.
package state

import (
	"encoding/json"
	"os"

	"github.com/youssefehap082-gif/kids-ai-channel-sub000/manifest"
)

const maxRecentTopics = 20

type State struct {
	LastVoiceIndex int      `json:"last_voice_index"`
	RecentTopics   []string `json:"recent_topics,omitempty"`

	path string
}

// Load reads the state file, returning a zero state when it does not
// exist yet.
func Load(path string) (*State, error) {
	s := &State{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}
	s.path = path
	return s, nil
}

// Save persists the state atomically.
func (s *State) Save() error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return manifest.WriteFileAtomic(s.path, data)
}

// NextVoice rotates through voices so consecutive runs alternate
// narrators.
func (s *State) NextVoice(voices []string) string {
	if len(voices) == 0 {
		return ""
	}
	s.LastVoiceIndex = (s.LastVoiceIndex + 1) % len(voices)
	return voices[s.LastVoiceIndex]
}

// TopicUsed reports whether topic was covered recently.
func (s *State) TopicUsed(topic string) bool {
	for _, t := range s.RecentTopics {
		if t == topic {
			return true
		}
	}
	return false
}

// RememberTopic records topic, evicting the oldest entry past the cap.
func (s *State) RememberTopic(topic string) {
	s.RecentTopics = append(s.RecentTopics, topic)
	if len(s.RecentTopics) > maxRecentTopics {
		s.RecentTopics = s.RecentTopics[len(s.RecentTopics)-maxRecentTopics:]
	}
}
