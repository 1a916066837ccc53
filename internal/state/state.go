// Package state persists the small amount of client state that must
// survive restarts: the cached session token and the per-conversation
// sync cursor.
package state

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	// stateDirPerm is the permission mode for the state directory
	// (~/.clinic-chat/).
	stateDirPerm = fs.FileMode(0o700)

	// stateFilePerm is the permission mode for the state database file.
	stateFilePerm = fs.FileMode(0o600)

	// stateOpenTimeout is the maximum time to wait for the bolt
	// database lock.
	stateOpenTimeout = 5 * time.Second
)

var (
	appBucket = []byte("app")
	tokenKey  = []byte("token")
)

func conversationBucket(convID string) []byte {
	return []byte("conversation:" + convID)
}

// Cursor is the persisted sync position for one conversation.
// LastCount is the message list length after the most recent successful
// poll. LastAlertID is the highest counterpart message id an alert has
// fired for; re-entering a conversation never replays alerts at or
// below it.
type Cursor struct {
	LastCount   int   `json:"lastCount"`
	LastAlertID int64 `json:"lastAlertId"`
}

// Store wraps a bbolt database for all persistent client state.
type Store struct {
	db *bolt.DB
}

// Load opens the state database at ~/.clinic-chat/state.db, creating it
// if it does not exist.
func Load() (*Store, error) {
	return LoadAt(dbPath())
}

// LoadAt opens a state database at the given path, creating it if it
// does not exist. Useful for tests that need an isolated database.
func LoadAt(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), stateDirPerm); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	db, err := bolt.Open(path, stateFilePerm, &bolt.Options{Timeout: stateOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(appBucket)

		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing state db: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Token returns the cached session token, or empty string.
func (s *Store) Token() string {
	var token string

	_ = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(appBucket).Get(tokenKey)
		if v != nil {
			token = string(v)
		}

		return nil
	})

	return token
}

// SetToken persists the session token.
func (s *Store) SetToken(token string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(appBucket).Put(tokenKey, []byte(token))
	})
}

// ClearToken removes the cached session token. Called when the server
// rejects the token and the user is forced to re-authenticate.
func (s *Store) ClearToken() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(appBucket).Delete(tokenKey)
	})
}

// GetCursor returns the sync cursor for a conversation, defaulting to
// the zero cursor for a conversation never seen before.
func (s *Store) GetCursor(convID string) (Cursor, error) {
	var c Cursor

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(conversationBucket(convID))
		if b == nil {
			return nil
		}

		v := b.Get([]byte("cursor"))
		if v == nil {
			return nil
		}

		return json.Unmarshal(v, &c)
	})

	return c, err
}

// SetCursor updates the sync cursor for a conversation.
func (s *Store) SetCursor(convID string, c Cursor) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(conversationBucket(convID))
		if err != nil {
			return err
		}

		data, err := json.Marshal(c)
		if err != nil {
			return err
		}

		return b.Put([]byte("cursor"), data)
	})
}

// DeleteCursor removes the sync cursor for a conversation.
func (s *Store) DeleteCursor(convID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(conversationBucket(convID))
		if b == nil {
			return nil
		}

		return b.Delete([]byte("cursor"))
	})
}

func dbPath() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		// Fail loudly rather than silently writing to the current
		// directory where the database (containing a session token)
		// might end up with wrong permissions or inside a
		// source-controlled tree.
		fmt.Fprintf(os.Stderr, "fatal: cannot determine home directory: %v\n", err)
		os.Exit(1)
	}

	return filepath.Join(dir, ".clinic-chat", "state.db")
}
