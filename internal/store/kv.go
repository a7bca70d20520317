package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// Change describes a single key/value write, delivered to subscribers.
// Old is empty for a first write, New is empty for a delete.
type Change struct {
	Key string
	Old string
	New string
}

// notifier fans out kv changes to in-process subscribers.
type notifier struct {
	mu   sync.Mutex
	subs []chan Change
}

func (n *notifier) subscribe() <-chan Change {
	ch := make(chan Change, 16)
	n.mu.Lock()
	n.subs = append(n.subs, ch)
	n.mu.Unlock()
	return ch
}

func (n *notifier) publish(c Change) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs {
		// Slow subscribers drop changes rather than block writers.
		select {
		case ch <- c:
		default:
		}
	}
}

// Subscribe returns a channel receiving a Change for every kv write,
// including this process's own writes. The channel is never closed.
func (db *DB) Subscribe() <-chan Change {
	return db.notifier.subscribe()
}

// GetKV returns the value for a key, or "" with ok=false if absent.
func (db *DB) GetKV(key string) (string, bool, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get kv %q: %w", key, err)
	}
	return value, true, nil
}

// GetKVMulti returns a partial map of the requested keys; missing keys are absent.
func (db *DB) GetKVMulti(keys []string) (map[string]string, error) {
	result := make(map[string]string, len(keys))
	for _, key := range keys {
		value, ok, err := db.GetKV(key)
		if err != nil {
			return nil, err
		}
		if ok {
			result[key] = value
		}
	}
	return result, nil
}

// SetKV writes a key/value pair and notifies subscribers with the old and new values.
func (db *DB) SetKV(key, value string) error {
	old, _, err := db.GetKV(key)
	if err != nil {
		return err
	}

	now := time.Now().UnixMilli()
	_, err = db.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, now)
	if err != nil {
		return fmt.Errorf("set kv %q: %w", key, err)
	}

	db.notifier.publish(Change{Key: key, Old: old, New: value})
	return nil
}

// DeleteKV removes a key. Deleting an absent key is a no-op.
func (db *DB) DeleteKV(key string) error {
	old, ok, err := db.GetKV(key)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	if _, err := db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete kv %q: %w", key, err)
	}

	db.notifier.publish(Change{Key: key, Old: old})
	return nil
}
