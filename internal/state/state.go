package state

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

const (
	// stateDirPerm is the permission mode for the state directory (~/.talkx/).
	stateDirPerm = fs.FileMode(0o700)

	// stateFilePerm is the permission mode for the state database file.
	stateFilePerm = fs.FileMode(0o600)

	// stateOpenTimeout is the maximum time to wait for the bolt database lock.
	stateOpenTimeout = 5 * time.Second
)

var (
	appBucket    = []byte("app")
	outboxBucket = []byte("outbox")

	deviceIDKey = []byte("device_id")
	tokenKey    = []byte("session_token")
)

// Message kinds stored in OutboxItem.Kind.
const (
	KindDirectText  = "direct-text"
	KindDirectImage = "direct-image"
)

// OutboxItem is one not-yet-confirmed outbound send. ClientMsgID is the
// idempotency key: the server deduplicates repeated transmissions of the
// same item by it, which is what makes at-least-once sending safe.
type OutboxItem struct {
	ClientMsgID   string          `json:"clientMsgId"`
	Kind          string          `json:"kind"`
	TargetUserID  string          `json:"targetUserId"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     int64           `json:"createdAt"`
	ExpiresAt     int64           `json:"expiresAt"`
	Attempts      int             `json:"attempts"`
	LastAttemptAt int64           `json:"lastAttemptAt"`
}

// Expired reports whether the item's TTL has elapsed at the given time.
func (it OutboxItem) Expired(now time.Time) bool {
	return it.ExpiresAt > 0 && now.UnixMilli() >= it.ExpiresAt
}

// State wraps a bbolt database for all persistent client state: the
// device identifier, the session token, and the outbox.
type State struct {
	db *bolt.DB
}

// Load opens the state database at ~/.talkx/state.db, creating it if it
// does not exist.
func Load() (*State, error) {
	return LoadAt(dbPath())
}

// LoadAt opens a state database at the given path, creating it if it
// does not exist. Useful for tests that need an isolated database.
func LoadAt(path string) (*State, error) {
	if err := os.MkdirAll(filepath.Dir(path), stateDirPerm); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	db, err := bolt.Open(path, stateFilePerm, &bolt.Options{Timeout: stateOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(appBucket); err != nil {
			return err
		}

		_, err := tx.CreateBucketIfNotExists(outboxBucket)

		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing state db: %w", err)
	}

	return &State{db: db}, nil
}

// Close closes the database.
func (s *State) Close() error {
	return s.db.Close()
}

// DeviceID returns the persistent device identifier, generating and
// storing a new one on first use. The id is immutable for the lifetime
// of the installation; logout does not clear it.
func (s *State) DeviceID() (string, error) {
	var id string

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(appBucket)

		if v := b.Get(deviceIDKey); v != nil {
			id = string(v)
			return nil
		}

		id = uuid.NewString()

		return b.Put(deviceIDKey, []byte(id))
	})
	if err != nil {
		return "", fmt.Errorf("loading device id: %w", err)
	}

	return id, nil
}

// Token returns the cached session token, or empty string.
func (s *State) Token() string {
	var token string

	_ = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(appBucket)

		v := b.Get(tokenKey)
		if v != nil {
			token = string(v)
		}

		return nil
	})

	return token
}

// SetToken persists the session token.
func (s *State) SetToken(token string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(appBucket).Put(tokenKey, []byte(token))
	})
}

// ClearToken removes the session token. Called on logout and when the
// server reports an authentication error.
func (s *State) ClearToken() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(appBucket).Delete(tokenKey)
	})
}

// PutOutboxItem persists an outbox item, replacing any existing item
// with the same clientMsgId.
func (s *State) PutOutboxItem(it OutboxItem) error {
	if it.ClientMsgID == "" {
		return fmt.Errorf("outbox item missing clientMsgId")
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(it)
		if err != nil {
			return err
		}

		return tx.Bucket(outboxBucket).Put([]byte(it.ClientMsgID), data)
	})
}

// DeleteOutboxItem removes the item with the given clientMsgId.
// Deleting a missing item is not an error.
func (s *State) DeleteOutboxItem(clientMsgID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(outboxBucket).Delete([]byte(clientMsgID))
	})
}

// AllOutboxItems returns every persisted outbox item keyed by clientMsgId.
func (s *State) AllOutboxItems() (map[string]OutboxItem, error) {
	result := make(map[string]OutboxItem)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(outboxBucket)

		return b.ForEach(func(k, v []byte) error {
			var it OutboxItem
			if err := json.Unmarshal(v, &it); err != nil {
				return err
			}

			result[string(k)] = it

			return nil
		})
	})

	return result, err
}

func dbPath() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		// Fail loudly rather than silently writing to the current directory
		// where the database (containing the session token) might end up
		// with wrong permissions or inside a source-controlled tree.
		fmt.Fprintf(os.Stderr, "fatal: cannot determine home directory: %v\n", err)
		os.Exit(1)
	}

	return filepath.Join(dir, ".talkx", "state.db")
}
