package media

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/youssefehap082-gif/kids-ai-channel-sub000/types"
)

// Library picks clips from the local asset directory by tag match. It
// is the deterministic last resort when every remote source is down:
// no network, no randomness, and no clip repeats within one run.
type Library struct {
	dir  string
	tags map[string][]string // filename → tags

	mu        sync.Mutex
	usedInRun map[string]bool
}

// NewLibrary loads the clip tag index. A missing tags file yields an
// empty library, not an error; Pick then reports no match.
func NewLibrary(dir, tagsPath string) (*Library, error) {
	tags, err := loadTags(tagsPath)
	if err != nil {
		return nil, fmt.Errorf("load clip tags: %w", err)
	}
	return &Library{dir: dir, tags: tags, usedInRun: make(map[string]bool)}, nil
}

func (l *Library) Name() string { return "local-library" }

// Pick returns the unused clip with the highest tag overlap against
// the scene's query words, ties broken by filename so runs are
// reproducible.
func (l *Library) Pick(scene types.Scene) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.tags) == 0 {
		return "", fmt.Errorf("clip library is empty")
	}

	words := strings.Fields(strings.ToLower(scene.Query + " " + scene.Caption))
	type scored struct {
		file  string
		score int
	}
	var candidates []scored
	for file, clipTags := range l.tags {
		if l.usedInRun[file] {
			continue
		}
		candidates = append(candidates, scored{file, matchScore(words, clipTags)})
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("all %d clips already used in this run", len(l.tags))
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].file < candidates[j].file
	})
	pick := candidates[0]
	l.usedInRun[pick.file] = true

	log.Printf("[media] scene %d: library clip %q (score %d)", scene.Index, pick.file, pick.score)
	return filepath.Join(l.dir, pick.file), nil
}

func matchScore(queryWords, clipTags []string) int {
	tagSet := make(map[string]bool, len(clipTags))
	for _, t := range clipTags {
		tagSet[strings.ToLower(t)] = true
	}
	score := 0
	for _, w := range queryWords {
		if tagSet[w] {
			score += 10
		}
	}
	return score
}

// loadTags reads the filename → tags index. Keys starting with "_" are
// documentation entries and skipped.
func loadTags(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("[media] no clip tag index at %s, library disabled", path)
			return make(map[string][]string), nil
		}
		return nil, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	result := make(map[string][]string)
	for k, v := range raw {
		if strings.HasPrefix(k, "_") {
			continue
		}
		var tags []string
		if err := json.Unmarshal(v, &tags); err != nil {
			continue
		}
		result[k] = tags
	}
	return result, nil
}
