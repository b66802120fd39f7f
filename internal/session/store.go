// Package session keeps the signed-in identity and UI preferences in a small
// local key/value file.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/tidwall/buntdb"

	"babelbridge/internal/api"
)

const (
	KeyToken     = "lt_token"
	KeyUsername  = "lt_username"
	KeyTextMode  = "lt_textmode"
	KeyInputMode = "lt_inputmode"

	storeFile = "session.db"
)

// Store is a plain string key/value store. Writes are last-write-wins; there
// is no locking across processes.
type Store struct {
	db *buntdb.DB
}

// DefaultDir is ~/.babelbridge.
func DefaultDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".babelbridge"), nil
}

// Open opens (creating if needed) the store under dir. ":memory:" keeps
// everything in memory.
func Open(dir string) (*Store, error) {
	path := ":memory:"
	if dir != ":memory:" {
		expanded, err := homedir.Expand(dir)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(expanded, 0o700); err != nil {
			return nil, fmt.Errorf("session: create %s: %w", expanded, err)
		}
		path = filepath.Join(expanded, storeFile)
	}
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("session: open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns "" when the key was never written.
func (s *Store) Get(key string) (string, error) {
	var value string
	err := s.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(key)
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return "", nil
	}
	return value, err
}

func (s *Store) Set(key, value string) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(key, value, nil)
		return err
	})
}

func (s *Store) Delete(keys ...string) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		for _, key := range keys {
			if _, err := tx.Delete(key); err != nil && !errors.Is(err, buntdb.ErrNotFound) {
				return err
			}
		}
		return nil
	})
}

// Token returns the persisted session token and username.
func (s *Store) Token() (token, username string, err error) {
	if token, err = s.Get(KeyToken); err != nil {
		return "", "", err
	}
	if username, err = s.Get(KeyUsername); err != nil {
		return "", "", err
	}
	return token, username, nil
}

func (s *Store) SaveToken(token, username string) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		if _, _, err := tx.Set(KeyToken, token, nil); err != nil {
			return err
		}
		_, _, err := tx.Set(KeyUsername, username, nil)
		return err
	})
}

func (s *Store) ClearToken() error {
	return s.Delete(KeyToken, KeyUsername)
}

// TextMode defaults to roman when unset or unrecognised.
func (s *Store) TextMode() api.TextMode {
	raw, err := s.Get(KeyTextMode)
	if err != nil {
		return api.TextRoman
	}
	switch mode := api.TextMode(strings.TrimSpace(raw)); mode {
	case api.TextRoman, api.TextNative, api.TextEnglish:
		return mode
	default:
		return api.TextRoman
	}
}

func (s *Store) SetTextMode(mode api.TextMode) error {
	return s.Set(KeyTextMode, string(mode))
}

// InputMode defaults to roman when unset or unrecognised.
func (s *Store) InputMode() api.InputMode {
	raw, err := s.Get(KeyInputMode)
	if err != nil {
		return api.InputRoman
	}
	switch mode := api.InputMode(strings.TrimSpace(raw)); mode {
	case api.InputRoman, api.InputNative:
		return mode
	default:
		return api.InputRoman
	}
}

func (s *Store) SetInputMode(mode api.InputMode) error {
	return s.Set(KeyInputMode, string(mode))
}
