// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ThreadStore maps chat session ids to provider thread ids.
type ThreadStore interface {
	// Thread returns the thread of the session, or false if the session is unknown or expired.
	Thread(ctx context.Context, sessionID string) (string, bool, error)
	SetThread(ctx context.Context, sessionID, threadID string) error
}

// DefaultThreadTTL is how long an idle session keeps its thread.
const DefaultThreadTTL = 24 * time.Hour

// RedisClient is the part of *redis.Client used by RedisThreads.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisThreads stores the mapping under lpassistant:thread:<session> with a TTL
// that is refreshed on every message.
type RedisThreads struct {
	client RedisClient
	ttl    time.Duration
}

func NewRedisThreads(client RedisClient, ttl time.Duration) RedisThreads {
	if ttl <= 0 {
		ttl = DefaultThreadTTL
	}

	return RedisThreads{client: client, ttl: ttl}
}

func (r RedisThreads) Thread(ctx context.Context, sessionID string) (string, bool, error) {
	threadID, err := r.client.Get(ctx, threadKey(sessionID)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("get thread of session %s: %w", sessionID, err)
	default:
		return threadID, true, nil
	}
}

func (r RedisThreads) SetThread(ctx context.Context, sessionID, threadID string) error {
	if err := r.client.Set(ctx, threadKey(sessionID), threadID, r.ttl).Err(); err != nil {
		return fmt.Errorf("set thread of session %s: %w", sessionID, err)
	}

	return nil
}

func threadKey(sessionID string) string {
	return "lpassistant:thread:" + sessionID
}

// MemoryThreads keeps the mapping in process, for running without Redis.
// Entries never expire.
type MemoryThreads struct {
	mu      sync.RWMutex
	threads map[string]string
}

func NewMemoryThreads() *MemoryThreads {
	return &MemoryThreads{threads: make(map[string]string)}
}

func (m *MemoryThreads) Thread(_ context.Context, sessionID string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	threadID, ok := m.threads[sessionID]

	return threadID, ok, nil
}

func (m *MemoryThreads) SetThread(_ context.Context, sessionID, threadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.threads[sessionID] = threadID

	return nil
}

// sessionLocks serializes the asks of a session, so a thread never has two active runs.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock is held while its channel carries a token.
type sessionLock struct {
	held chan struct{}
	refs int
}

// lock waits for the session until ctx is done and returns the unlock func.
func (l *sessionLocks) lock(ctx context.Context, sessionID string) (func(), error) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sessionLock)
	}
	lock, ok := l.locks[sessionID]
	if !ok {
		lock = &sessionLock{held: make(chan struct{}, 1)}
		l.locks[sessionID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	select {
	case lock.held <- struct{}{}:
	case <-ctx.Done():
		l.release(sessionID, lock)

		return nil, fmt.Errorf("wait for session %s: %w", sessionID, ctx.Err())
	}

	return func() {
		<-lock.held
		l.release(sessionID, lock)
	}, nil
}

func (l *sessionLocks) release(sessionID string, lock *sessionLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lock.refs--; lock.refs == 0 {
		delete(l.locks, sessionID)
	}
}
