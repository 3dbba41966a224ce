// Package manifest is the durable record of one pipeline run: which
// stages completed, which artifacts they produced, and what went
// wrong. It is persisted after every stage transition so a crashed
// run can resume where it left off.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/youssefehap082-gif/kids-ai-channel-sub000/types"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// StageRecord is the outcome of one stage in one run.
type StageRecord struct {
	Status    Status           `json:"status"`
	Artifacts []types.Artifact `json:"artifacts,omitempty"`
	Provider  string           `json:"provider,omitempty"` // winning provider, when one capability dominated
	Error     string           `json:"error,omitempty"`
	UpdatedAt string           `json:"updated_at"`
}

type Manifest struct {
	RunID     string                 `json:"run_id"`
	CreatedAt string                 `json:"created_at"`
	Stages    map[string]StageRecord `json:"stages"`
	Warnings  []string               `json:"warnings,omitempty"`

	path string
}

// New creates a fresh manifest persisted at path.
func New(runID, path string) *Manifest {
	return &Manifest{
		RunID:     runID,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Stages:    make(map[string]StageRecord),
		path:      path,
	}
}

// Load reads an existing manifest so a re-invoked run can resume.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.Stages == nil {
		m.Stages = make(map[string]StageRecord)
	}
	m.path = path
	return &m, nil
}

// LoadOrNew resumes from path when a manifest exists there, otherwise
// starts a new one.
func LoadOrNew(runID, path string) (*Manifest, error) {
	m, err := Load(path)
	if err == nil {
		return m, nil
	}
	if os.IsNotExist(err) {
		return New(runID, path), nil
	}
	return nil, err
}

// Save persists the manifest via write-then-rename so a concurrent
// reader never observes a half-written file.
func (m *Manifest) Save() error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return WriteFileAtomic(m.path, data)
}

// MarkPending records that a stage is about to run.
func (m *Manifest) MarkPending(stage string) {
	m.Stages[stage] = StageRecord{
		Status:    StatusPending,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// MarkDone records a completed stage. Callers must only do this after
// every artifact is confirmed written and non-empty; Verify enforces
// it again on resume.
func (m *Manifest) MarkDone(stage string, artifacts []types.Artifact) {
	m.Stages[stage] = StageRecord{
		Status:    StatusDone,
		Artifacts: artifacts,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// MarkFailed records a failed stage with its error.
func (m *Manifest) MarkFailed(stage string, err error) {
	m.Stages[stage] = StageRecord{
		Status:    StatusFailed,
		Error:     err.Error(),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// Warn appends a non-fatal warning (e.g. a dropped scene).
func (m *Manifest) Warn(format string, args ...any) {
	m.Warnings = append(m.Warnings, fmt.Sprintf(format, args...))
}

// Satisfied reports whether stage is done and all of its recorded
// artifacts are still valid on disk. This is the idempotency check: a
// satisfied stage is skipped on re-run.
func (m *Manifest) Satisfied(stage string) bool {
	rec, ok := m.Stages[stage]
	if !ok || rec.Status != StatusDone {
		return false
	}
	for _, a := range rec.Artifacts {
		if !ArtifactValid(a) {
			return false
		}
	}
	return true
}

// Artifacts returns the recorded artifacts of a stage.
func (m *Manifest) Artifacts(stage string) []types.Artifact {
	return m.Stages[stage].Artifacts
}

// ArtifactByKind returns the first artifact of the given kind recorded
// by stage, or false.
func (m *Manifest) ArtifactByKind(stage string, kind types.ArtifactKind) (types.Artifact, bool) {
	for _, a := range m.Stages[stage].Artifacts {
		if a.Kind == kind {
			return a, true
		}
	}
	return types.Artifact{}, false
}

// SceneArtifact returns the artifact a stage recorded for one scene.
func (m *Manifest) SceneArtifact(stage string, sceneIndex int) (types.Artifact, bool) {
	for _, a := range m.Stages[stage].Artifacts {
		if a.SceneIndex == sceneIndex {
			return a, true
		}
	}
	return types.Artifact{}, false
}

// ArtifactValid checks an artifact against the manifest invariant:
// the file exists and is non-empty, and time-based kinds carry a
// positive duration.
func ArtifactValid(a types.Artifact) bool {
	info, err := os.Stat(a.Path)
	if err != nil || info.Size() == 0 {
		return false
	}
	if a.Kind.Timed() && a.DurationSec <= 0 {
		return false
	}
	return true
}

// WriteFileAtomic writes data to path through a temp file and rename.
func WriteFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
