// Package state persists cliprelay settings and runtime state as a flat
// key-value document under the user config directory. There is one document,
// a handful of scalar and blob fields, and no indexing or querying; writes
// replace the whole file atomically.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cliprelay/cli/internal/session"
)

// Phase is the badge state shown to the user. It mirrors the extension-style
// idle/busy/ready/error indicator.
type Phase string

const (
	PhaseIdle  Phase = "idle"
	PhaseBusy  Phase = "busy"
	PhaseReady Phase = "ready"
	PhaseError Phase = "error"
)

// Settings are the user-tunable fields.
type Settings struct {
	Model           string       `json:"model"`
	BaseURL         string       `json:"base_url,omitempty"`
	SystemPrompt    string       `json:"system_prompt,omitempty"`
	TimeoutSeconds  int          `json:"timeout_seconds"`
	ContinuityMode  session.Mode `json:"continuity_mode"`
	MaxHistoryTurns int          `json:"max_history_turns"`
}

// Badge is the persisted status indicator plus enough bookkeeping to detect
// a busy record left behind by a crashed process.
type Badge struct {
	Phase     Phase     `json:"phase"`
	Detail    string    `json:"detail,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
	OwnerPID  int       `json:"owner_pid,omitempty"`
}

// Answer is the last model answer, kept so the user can copy it later.
type Answer struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	Model      string    `json:"model"`
	ReceivedAt time.Time `json:"received_at"`
}

// Document is the whole persisted state.
type Document struct {
	Settings Settings         `json:"settings"`
	Badge    Badge            `json:"badge"`
	Answer   *Answer          `json:"answer,omitempty"`
	Session  *session.Session `json:"session,omitempty"`
}

// Defaults used when no state file exists yet.
const (
	DefaultModel           = "gpt-4o"
	DefaultTimeoutSeconds  = 120
	DefaultMaxHistoryTurns = 20
)

// DefaultDocument returns the document written by `cliprelay init` and
// assumed when the state file is missing.
func DefaultDocument() *Document {
	return &Document{
		Settings: Settings{
			Model:           DefaultModel,
			TimeoutSeconds:  DefaultTimeoutSeconds,
			ContinuityMode:  session.ModeOff,
			MaxHistoryTurns: DefaultMaxHistoryTurns,
		},
		Badge: Badge{Phase: PhaseIdle, ChangedAt: time.Now()},
	}
}

// DefaultPath returns the platform state file location, e.g.
// ~/.config/cliprelay/state.json on Linux. CLIPRELAY_STATE overrides it.
func DefaultPath() (string, error) {
	if p := os.Getenv("CLIPRELAY_STATE"); p != "" {
		return p, nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve user config directory: %w", err)
	}
	return filepath.Join(configDir, "cliprelay", "state.json"), nil
}

// Store reads and writes the state document.
type Store struct {
	path string
}

// NewStore returns a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the document. A missing file yields the defaults; a corrupt file
// is an error (rewrite it with `cliprelay init`).
func (s *Store) Load() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("state file %s is corrupt (re-create it with 'cliprelay init'): %w", s.path, err)
	}
	applyDefaults(&doc)
	return &doc, nil
}

// Save writes the document atomically: temp file in the same directory, then
// rename over the target.
func (s *Store) Save(doc *Document) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "state-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp state file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set state file permissions: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// applyDefaults fills zero values left by older or hand-edited state files.
func applyDefaults(doc *Document) {
	if doc.Settings.Model == "" {
		doc.Settings.Model = DefaultModel
	}
	if doc.Settings.TimeoutSeconds <= 0 {
		doc.Settings.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if doc.Settings.MaxHistoryTurns <= 0 {
		doc.Settings.MaxHistoryTurns = DefaultMaxHistoryTurns
	}
	if doc.Settings.ContinuityMode == "" {
		doc.Settings.ContinuityMode = session.ModeOff
	}
	if doc.Badge.Phase == "" {
		doc.Badge.Phase = PhaseIdle
	}
}
