package credstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	SessionFile = "session"
	CookieFile  = "cookies"
)

// SessionState is the persisted authentication state of one user profile.
// It is only ever written as a whole.
type SessionState struct {
	APIKey            string     `json:"api_key,omitempty"`
	ClientAPIKey      string     `json:"client_api_key,omitempty"`
	OktaClientID      string     `json:"okta_client_id,omitempty"`
	SessionToken      string     `json:"session_token,omitempty"`
	SessionTokenTime  *time.Time `json:"session_token_time,omitempty"`
	AccessToken       string     `json:"access_token,omitempty"`
	AccessTokenExpiry *time.Time `json:"access_token_expiry,omitempty"`
}

// Clone returns a deep copy.
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return &SessionState{}
	}
	cpy := *s
	if s.SessionTokenTime != nil {
		t := *s.SessionTokenTime
		cpy.SessionTokenTime = &t
	}
	if s.AccessTokenExpiry != nil {
		t := *s.AccessTokenExpiry
		cpy.AccessTokenExpiry = &t
	}
	return &cpy
}

// HasValidToken reports whether the access token can be used at now.
func (s *SessionState) HasValidToken(now time.Time) bool {
	return s.AccessToken != "" && s.AccessTokenExpiry != nil && now.Before(*s.AccessTokenExpiry)
}

// Validate checks the access token invariant.
func (s *SessionState) Validate() error {
	if s.AccessToken != "" && s.AccessTokenExpiry == nil {
		return errors.New("access token without expiry")
	}
	return nil
}

// Store keeps the session state and cookie jar under a config directory.
type Store struct {
	dir string
	jar *Jar
}

// Open creates a Store rooted at dir and loads the cookie jar file if one
// exists.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create config dir: %w", err)
	}

	s := &Store{dir: dir, jar: NewJar()}

	data, err := os.ReadFile(s.cookiePath())
	switch {
	case err == nil:
		var cookies []CookieState
		if len(data) > 0 {
			if err := json.Unmarshal(data, &cookies); err != nil {
				return nil, fmt.Errorf("failed to decode cookie file: %w", err)
			}
		}
		s.jar.Import(cookies)
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read cookie file: %w", err)
	}

	return s, nil
}

// Dir returns the directory holding the files.
func (s *Store) Dir() string {
	return s.dir
}

// Jar returns the cookie jar shared by every authenticated HTTP call.
func (s *Store) Jar() *Jar {
	return s.jar
}

func (s *Store) sessionPath() string {
	return filepath.Join(s.dir, SessionFile)
}

func (s *Store) cookiePath() string {
	return filepath.Join(s.dir, CookieFile)
}

// Load reads the session file. A missing file yields an empty state.
func (s *Store) Load() (*SessionState, error) {
	data, err := os.ReadFile(s.sessionPath())
	if err != nil {
		if os.IsNotExist(err) {
			return &SessionState{}, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	state := &SessionState{}
	if len(data) == 0 {
		return state, nil
	}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("failed to decode session file: %w", err)
	}
	return state, nil
}

// Save replaces the session file with state, then writes the cookie jar.
func (s *Store) Save(state *SessionState) error {
	if err := state.Validate(); err != nil {
		return fmt.Errorf("refusing to save session: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := writeFileAtomic(s.sessionPath(), data); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	return s.SaveCookies()
}

// SaveCookies writes the cookie jar file.
func (s *Store) SaveCookies() error {
	data, err := json.MarshalIndent(s.jar.Export(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cookies: %w", err)
	}
	if err := writeFileAtomic(s.cookiePath(), data); err != nil {
		return fmt.Errorf("failed to write cookie file: %w", err)
	}
	return nil
}

// Destroy removes both files. Missing files are ignored.
func (s *Store) Destroy() error {
	s.jar.Clear()
	return Destroy(s.dir)
}

// Destroy removes the session and cookie files under dir without reading
// them, so a corrupt file never blocks a logout.
func Destroy(dir string) error {
	for _, name := range []string{CookieFile, SessionFile} {
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return nil
}

// writeFileAtomic writes to a temp file in the target directory and renames
// it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
