// Package session holds the credential attached to outgoing API requests.
//
// A Session is passed explicitly to the API client instead of living in
// process-wide state. Memory keeps the token for the lifetime of the process;
// Persistent mirrors it into local storage under TokenKey so that later
// invocations reuse the login.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/good-yellow-bee/peervote/internal/storage"
)

// TokenKey is the fixed storage key of the access token.
const TokenKey = "access_token"

// storeTimeout bounds a single storage operation.
const storeTimeout = 5 * time.Second

// Session is the credential contract used by the API client.
type Session interface {
	// Get returns the token and whether one is present.
	Get() (string, bool)
	// Set replaces the token.
	Set(token string) error
	// Clear removes the token.
	Clear() error
}

// Memory is an in-process Session.
type Memory struct {
	mu    sync.RWMutex
	token string
}

// NewMemory creates a Memory session, optionally holding an initial token.
func NewMemory(token string) *Memory {
	return &Memory{token: token}
}

func (m *Memory) Get() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, m.token != ""
}

func (m *Memory) Set(token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *Memory) Clear() error {
	return m.Set("")
}

// Persistent is a Session backed by local storage. Reads are served from memory;
// writes go to storage first and only then update the cached token.
type Persistent struct {
	kv     storage.KVRepository
	logger *slog.Logger

	mu    sync.RWMutex
	token string
}

// NewPersistent loads the stored token, if any.
func NewPersistent(ctx context.Context, kv storage.KVRepository, logger *slog.Logger) (*Persistent, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Persistent{kv: kv, logger: logger}
	if err := p.Reload(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Persistent) Get() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.token, p.token != ""
}

func (p *Persistent) Set(token string) error {
	if token == "" {
		return p.Clear()
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := p.kv.Set(ctx, TokenKey, token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}

	p.mu.Lock()
	p.token = token
	p.mu.Unlock()
	return nil
}

func (p *Persistent) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := p.kv.Delete(ctx, TokenKey); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}

	p.mu.Lock()
	p.token = ""
	p.mu.Unlock()
	return nil
}

// Reload re-reads the token from storage, picking up changes made by other processes.
func (p *Persistent) Reload(ctx context.Context) error {
	entry, err := p.kv.Get(ctx, TokenKey)
	if err != nil {
		return fmt.Errorf("load token: %w", err)
	}

	token := ""
	if entry != nil {
		token = entry.Value
	}

	p.mu.Lock()
	changed := p.token != token
	p.token = token
	p.mu.Unlock()

	if changed {
		p.logger.Debug("credential reloaded", "present", token != "")
	}
	return nil
}
