package store

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/lojasmm/discordui/internal/components"
)

var (
	messagesBucket = []byte("messages")
	stateBucket    = []byte("state")
)

// MessageRecord is the layout of a message the bot sent with components.
// Ephemeral messages never come back with their components, so interactions
// on them are resolved from here.
type MessageRecord struct {
	ID         string                 `json:"id"`
	ChannelID  string                 `json:"channel_id"`
	GuildID    string                 `json:"guild_id,omitempty"`
	Token      string                 `json:"token,omitempty"` // interaction token, for responses
	Ephemeral  bool                   `json:"ephemeral,omitempty"`
	Components []components.ActionRow `json:"components"`
	CreatedAt  time.Time              `json:"created_at"`
}

type Store interface {
	SaveMessage(m MessageRecord) error
	GetMessage(id string) (*MessageRecord, error)
	DeleteMessage(id string) error
	PruneMessages(olderThan time.Duration) (int, error)
	PutState(key string, v any) error
	GetState(key string, v any) (bool, error)
	DeleteState(key string) error
	Close() error
}

type BoltStore struct {
	db *bolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(messagesBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(stateBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) SaveMessage(m MessageRecord) error {
	if m.ID == "" {
		return fmt.Errorf("saving message: empty id")
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		return tx.Bucket(messagesBucket).Put([]byte(m.ID), data)
	})
}

// GetMessage returns nil without error when id is unknown.
func (s *BoltStore) GetMessage(id string) (*MessageRecord, error) {
	var m MessageRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(messagesBucket).Get([]byte(id))
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &m)
	})
	if err != nil {
		return nil, err
	}
	if m.ID == "" {
		return nil, nil
	}
	return &m, nil
}

func (s *BoltStore) DeleteMessage(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(messagesBucket).Delete([]byte(id))
	})
}

// PruneMessages drops records created more than olderThan ago and returns
// how many were removed.
func (s *BoltStore) PruneMessages(olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(messagesBucket)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var m struct {
				CreatedAt time.Time `json:"created_at"`
			}
			if err := json.Unmarshal(v, &m); err != nil || m.CreatedAt.Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

func (s *BoltStore) PutState(key string, v any) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return tx.Bucket(stateBucket).Put([]byte(key), data)
	})
}

// GetState decodes the value stored under key into v and reports whether it
// was present.
func (s *BoltStore) GetState(key string, v any) (bool, error) {
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(stateBucket).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, v)
	})
	return found, err
}

func (s *BoltStore) DeleteState(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(stateBucket).Delete([]byte(key))
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
