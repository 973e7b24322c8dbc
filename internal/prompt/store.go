// Package prompt manages analysis prompts as UTF-8 files under a configured
// directory. The active prompt is selected by name through system settings.
package prompt

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gamelens/gamelens/internal/model"
	"github.com/gamelens/gamelens/internal/store"
	"github.com/gamelens/gamelens/pkg/errors"
)

// DefaultPromptName is assumed when no active prompt has been chosen yet.
const DefaultPromptName = "prompt.txt"

// Store reads and writes prompt files and tracks the active prompt name.
type Store struct {
	dir      string
	settings store.SettingsStore
}

// NewStore creates a prompt store rooted at dir.
func NewStore(dir string, settings store.SettingsStore) *Store {
	return &Store{dir: dir, settings: settings}
}

// validateName rejects names that would escape the prompts directory.
func validateName(name string) *errors.AppError {
	if name == "" {
		return errors.New(errors.ErrCodeValidation, "prompt name is required")
	}
	if name != filepath.Base(name) || strings.Contains(name, "..") {
		return errors.New(errors.ErrCodeValidation, "prompt name must be a plain file name")
	}
	return nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// List returns the prompt file names, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to read prompts directory", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Get returns the content of one prompt file.
func (s *Store) Get(name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.New(errors.ErrCodePromptNotFound, "prompt '"+name+"' not found")
		}
		return "", errors.Wrap(errors.ErrCodeInternal, "failed to read prompt", err)
	}
	return string(data), nil
}

// Save writes a prompt file atomically (temp file + rename). The first saved
// prompt becomes active when no active prompt is set yet.
func (s *Store) Save(name, content string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to create prompts directory", err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to create temp prompt file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(errors.ErrCodeInternal, "failed to write prompt", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(errors.ErrCodeInternal, "failed to write prompt", err)
	}
	if err := os.Rename(tmpName, s.path(name)); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(errors.ErrCodeInternal, "failed to replace prompt file", err)
	}

	active, err := s.settings.GetValue(string(model.SettingCategoryAnalysis), model.SettingKeyActivePrompt)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to read active prompt setting", err)
	}
	if active == "" {
		if err := s.settings.SetValue(string(model.SettingCategoryAnalysis), model.SettingKeyActivePrompt, name); err != nil {
			return errors.Wrap(errors.ErrCodeDBQuery, "failed to set active prompt", err)
		}
	}
	return nil
}

// Delete removes a prompt file.
func (s *Store) Delete(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := os.Remove(s.path(name)); err != nil {
		if os.IsNotExist(err) {
			return errors.New(errors.ErrCodePromptNotFound, "prompt '"+name+"' not found")
		}
		return errors.Wrap(errors.ErrCodeInternal, "failed to delete prompt", err)
	}
	return nil
}

// ActiveName returns the configured active prompt name, falling back to the
// default when nothing was chosen yet.
func (s *Store) ActiveName() (string, error) {
	active, err := s.settings.GetValue(string(model.SettingCategoryAnalysis), model.SettingKeyActivePrompt)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeDBQuery, "failed to read active prompt setting", err)
	}
	if active == "" {
		return DefaultPromptName, nil
	}
	return active, nil
}

// SetActive selects the active prompt. The file must exist.
func (s *Store) SetActive(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if _, err := os.Stat(s.path(name)); err != nil {
		return errors.New(errors.ErrCodePromptNotFound, "prompt '"+name+"' not found")
	}
	if err := s.settings.SetValue(string(model.SettingCategoryAnalysis), model.SettingKeyActivePrompt, name); err != nil {
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to set active prompt", err)
	}
	return nil
}

// LoadActive returns the active prompt's name and content.
func (s *Store) LoadActive() (string, string, error) {
	name, err := s.ActiveName()
	if err != nil {
		return "", "", err
	}
	content, err := s.Get(name)
	if err != nil {
		return "", "", err
	}
	return name, content, nil
}
