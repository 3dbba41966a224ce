package types

// ContentSpec is the immutable input to one pipeline run.
type ContentSpec struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Topic  string  `json:"topic,omitempty"`
	Scenes []Scene `json:"scenes"`
}

// Scene is one unit of narrated content. Index values are unique and
// densely ordered starting at 1.
type Scene struct {
	Index       int            `json:"index"`
	Narration   string         `json:"narration"`
	Dialogue    []DialogueLine `json:"dialogue,omitempty"`
	Query       string         `json:"query,omitempty"`
	ImagePrompt string         `json:"image_prompt,omitempty"`
	Caption     string         `json:"caption,omitempty"`
}

// DialogueLine is one spoken line in a talking-character scene.
type DialogueLine struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Talking reports whether the scene needs animated characters.
func (s Scene) Talking() bool { return len(s.Dialogue) > 0 }

// SpokenText returns everything the scene says: narration, or the
// dialogue lines joined when there is no narration.
func (s Scene) SpokenText() string {
	if s.Narration != "" {
		return s.Narration
	}
	text := ""
	for _, d := range s.Dialogue {
		if text != "" {
			text += " "
		}
		text += d.Text
	}
	return text
}

// ArtifactKind classifies a stage output.
type ArtifactKind string

const (
	KindAudio   ArtifactKind = "audio"
	KindImage   ArtifactKind = "image"
	KindVideo   ArtifactKind = "video"
	KindText    ArtifactKind = "text"
	KindCaption ArtifactKind = "caption-file"
)

// Timed reports whether the kind carries a duration.
func (k ArtifactKind) Timed() bool { return k == KindAudio || k == KindVideo }

// Artifact is a typed, addressable output of a stage. Immutable once
// recorded in the manifest.
type Artifact struct {
	Kind        ArtifactKind `json:"kind"`
	Path        string       `json:"path"`
	Stage       string       `json:"stage"`
	SceneIndex  int          `json:"scene_index,omitempty"` // 0 = whole-run artifact
	DurationSec float64      `json:"duration_sec,omitempty"`
}

// VideoMetadata holds publish metadata for the finished artifact.
type VideoMetadata struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Tags             []string `json:"tags"`
	CategoryID       string   `json:"category_id"`
	Visibility       string   `json:"visibility"`
	ScheduledTimeUTC string   `json:"scheduled_time_utc,omitempty"`
}

// Idea is a researched content idea ready for scripting.
type Idea struct {
	Topic     string `json:"topic"`
	Summary   string `json:"summary,omitempty"`
	Source    string `json:"source"`
	SourceURL string `json:"source_url,omitempty"`
}
