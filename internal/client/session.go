package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Profile is the cached account summary kept next to the token.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Session is the caller-owned auth state a Client reads and updates.
// It is not safe for concurrent mutation.
type Session struct {
	Token string   `json:"token,omitempty"`
	User  *Profile `json:"user,omitempty"`
}

func (s *Session) LoggedIn() bool {
	return s != nil && s.Token != ""
}

func (s *Session) clear() {
	s.Token = ""
	s.User = nil
}

// SessionFile persists a Session as JSON so it survives process restarts.
type SessionFile struct {
	Path string
}

// DefaultSessionFile places the session under the user config directory.
func DefaultSessionFile() (SessionFile, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return SessionFile{}, fmt.Errorf("resolve config dir: %w", err)
	}
	return SessionFile{Path: filepath.Join(dir, "todohub", "session.json")}, nil
}

// Load returns the stored session, or an empty one when nothing was saved yet.
func (f SessionFile) Load() (*Session, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return &Session{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", f.Path, err)
	}
	return &s, nil
}

// Save writes the session atomically with owner-only permissions.
func (f SessionFile) Save(s *Session) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.Path), ".session-*")
	if err != nil {
		return fmt.Errorf("create temp session: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}

	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("replace session: %w", err)
	}
	return nil
}

func (f SessionFile) Clear() error {
	err := os.Remove(f.Path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
