// Package persistence provides implementations of ledger.CredentialPersistence,
// the durable mirror that lets a session survive process restarts.
package persistence

import (
	"context"
	"sync"

	"github.com/fivetwenty-io/ledgerdesk/internal/constants"
	"github.com/fivetwenty-io/ledgerdesk/pkg/ledger"
)

var _ ledger.CredentialPersistence = (*Memory)(nil)

// Memory keeps values in process memory. It is safe for concurrent use.
// The zero value is an empty store ready to use.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

// Get returns the value for key, or "" if it is not set.
func (m *Memory) Get(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", constants.ErrEmptyPersistedKey
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.values[key], nil
}

// Set stores value under key.
func (m *Memory) Set(_ context.Context, key, value string) error {
	if key == "" {
		return constants.ErrEmptyPersistedKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.values == nil {
		m.values = make(map[string]string)
	}

	m.values[key] = value

	return nil
}

// Clear removes key. Clearing a missing key is not an error.
func (m *Memory) Clear(_ context.Context, key string) error {
	if key == "" {
		return constants.ErrEmptyPersistedKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)

	return nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.values)
}
