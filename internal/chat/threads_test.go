// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

package chat_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ktong/lpassistant/internal/assert"
	"github.com/ktong/lpassistant/internal/chat"
)

func TestRedisThreads(t *testing.T) {
	client := &fakeRedis{values: map[string]string{}}
	threads := chat.NewRedisThreads(client, time.Hour)
	ctx := context.Background()

	_, ok, err := threads.Thread(ctx, "s1")
	assert.NoError(t, err)
	assert.True(t, !ok)

	assert.NoError(t, threads.SetThread(ctx, "s1", "thread_1"))
	assert.Equal(t, "thread_1", client.values["lpassistant:thread:s1"])
	assert.Equal(t, time.Hour, client.ttl)

	threadID, ok, err := threads.Thread(ctx, "s1")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "thread_1", threadID)

	client.err = errors.New("connection refused")
	_, _, err = threads.Thread(ctx, "s1")
	assert.EqualError(t, err, "get thread of session s1: connection refused")
	err = threads.SetThread(ctx, "s1", "thread_2")
	assert.EqualError(t, err, "set thread of session s1: connection refused")
}

func TestRedisThreads_DefaultTTL(t *testing.T) {
	client := &fakeRedis{values: map[string]string{}}
	assert.NoError(t, chat.NewRedisThreads(client, 0).SetThread(context.Background(), "s1", "thread_1"))
	assert.Equal(t, chat.DefaultThreadTTL, client.ttl)
}

func TestMemoryThreads(t *testing.T) {
	threads := chat.NewMemoryThreads()
	ctx := context.Background()

	_, ok, err := threads.Thread(ctx, "s1")
	assert.NoError(t, err)
	assert.True(t, !ok)

	assert.NoError(t, threads.SetThread(ctx, "s1", "thread_1"))
	threadID, ok, err := threads.Thread(ctx, "s1")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "thread_1", threadID)
}

type fakeRedis struct {
	values map[string]string
	ttl    time.Duration
	err    error
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	value, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}

	return redis.NewStringResult(value, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.values[key] = value.(string)
	f.ttl = expiration

	return redis.NewStatusResult("OK", nil)
}
