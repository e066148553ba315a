// Package session persists the state of a collect-experiences conversation between turns.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spigell/compass/internal/experience"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned by Load when no session has been saved yet.
var ErrNotFound = errors.New("session not found")

// State is everything the conversation needs to resume on the next turn.
type State struct {
	Turn        int                 `yaml:"turn"`
	Experiences []experience.Record `yaml:"experiences"`
	// LastReferenced is the uuid of the experience the last turn updated.
	LastReferenced string    `yaml:"last_referenced,omitempty"`
	UpdatedAt      time.Time `yaml:"updated_at"`
}

// New returns an empty state for a conversation that has not started yet.
func New() *State {
	return &State{Experiences: []experience.Record{}}
}

// Referenced returns the experience the last turn updated, if it still exists.
func (s *State) Referenced() (experience.Record, bool) {
	if s == nil || s.LastReferenced == "" {
		return experience.Record{}, false
	}
	for _, r := range s.Experiences {
		if r.UUID == s.LastReferenced {
			return r, true
		}
	}
	return experience.Record{}, false
}

// FileStore keeps a single session in a YAML file.
type FileStore struct {
	path string
	now  func() time.Time
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Load(ctx context.Context) (*State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading session file %q: %w", f.path, err)
	}

	if len(data) == 0 {
		return nil, ErrNotFound
	}

	var state State
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing session file %q: %w", f.path, err)
	}

	if state.Experiences == nil {
		state.Experiences = []experience.Record{}
	}

	return &state, nil
}

// Save writes the state to a temporary file next to the session file and renames it into place.
func (f *FileStore) Save(ctx context.Context, state *State) error {
	if state == nil {
		return errors.New("session state is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	state.UpdatedAt = f.now().UTC()

	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing session file: %w", err)
	}

	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replacing session file: %w", err)
	}

	return nil
}
