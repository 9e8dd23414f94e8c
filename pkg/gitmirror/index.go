package gitmirror

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const indexFileName = "mirrors.db"

var bucketMirrors = []byte("mirrors")

// Entry describes one cached mirror in the index. Entries are keyed by the
// cache key, so listings stay stable across runs.
type Entry struct {
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	Path      string    `json:"path"`
	ClonedAt  time.Time `json:"cloned_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m *Manager) indexPath() string {
	return filepath.Join(m.root, indexFileName)
}

// openIndex opens the bbolt index with a short lock timeout so two tool
// invocations sharing a cache root cannot deadlock on the database file.
func (m *Manager) openIndex() (*bolt.DB, error) {
	db, err := bolt.Open(m.indexPath(), 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening cache index %q: %w", m.indexPath(), err)
	}
	return db, nil
}

func (m *Manager) recordClone(remoteURL, path string) error {
	now := time.Now().UTC()
	return m.putEntry(Entry{
		URL:       normalizeURL(remoteURL),
		Key:       Key(remoteURL),
		Path:      path,
		ClonedAt:  now,
		UpdatedAt: now,
	})
}

func (m *Manager) recordUpdate(remoteURL, path string) error {
	db, err := m.openIndex()
	if err != nil {
		return err
	}
	defer db.Close()

	key := Key(remoteURL)
	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketMirrors)
		if err != nil {
			return err
		}

		entry := Entry{
			URL:      normalizeURL(remoteURL),
			Key:      key,
			Path:     path,
			ClonedAt: time.Now().UTC(),
		}
		if raw := b.Get([]byte(key)); raw != nil {
			// Keep the original clone time when the entry is known.
			_ = json.Unmarshal(raw, &entry)
		}
		entry.UpdatedAt = time.Now().UTC()

		raw, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), raw)
	})
}

func (m *Manager) putEntry(entry Entry) error {
	db, err := m.openIndex()
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketMirrors)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return b.Put([]byte(entry.Key), raw)
	})
}

// Entries lists every mirror recorded in the cache index.
func (m *Manager) Entries() ([]Entry, error) {
	if _, err := os.Stat(m.indexPath()); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	db, err := m.openIndex()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var entries []Entry
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketMirrors)
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, raw []byte) error {
			var entry Entry
			if err := json.Unmarshal(raw, &entry); err != nil {
				return fmt.Errorf("decoding cache index entry: %w", err)
			}
			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Lookup returns the index entry for a remote URL, if one exists.
func (m *Manager) Lookup(remoteURL string) (Entry, bool, error) {
	entries, err := m.Entries()
	if err != nil {
		return Entry{}, false, err
	}
	key := Key(remoteURL)
	for _, entry := range entries {
		if entry.Key == key {
			return entry, true, nil
		}
	}
	return Entry{}, false, nil
}

// Remove deletes the mirror for a remote URL and drops its index entry.
// Removing a mirror that does not exist is not an error.
func (m *Manager) Remove(remoteURL string) error {
	path := m.MirrorPath(remoteURL)

	unlock, err := m.lock(path)
	if err != nil {
		return err
	}
	defer unlock()

	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("removing mirror %q: %w", path, err)
	}
	return m.deleteEntry(Key(remoteURL))
}

// RemoveAll deletes every indexed mirror and its index entry.
func (m *Manager) RemoveAll() error {
	entries, err := m.Entries()
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := os.RemoveAll(entry.Path); err != nil {
			return fmt.Errorf("removing mirror %q: %w", entry.Path, err)
		}
		if err := m.deleteEntry(entry.Key); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) deleteEntry(key string) error {
	if _, err := os.Stat(m.indexPath()); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	db, err := m.openIndex()
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketMirrors)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}
