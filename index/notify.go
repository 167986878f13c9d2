// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

package index

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// EventIndexRebuilt is the Redis channel and event type published after a rebuild.
const EventIndexRebuilt = "EVENT_INDEX_REBUILT"

type Notifier interface {
	Notify(ctx context.Context, report Report) error
}

// Publisher is implemented by *redis.Client.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisNotifier publishes the report as an EVENT_INDEX_REBUILT message,
// e.g. so chat services can drop threads that cite removed files.
type RedisNotifier struct {
	publisher Publisher
}

func NewRedisNotifier(publisher Publisher) RedisNotifier {
	return RedisNotifier{publisher: publisher}
}

func (n RedisNotifier) Notify(ctx context.Context, report Report) error {
	event, err := json.Marshal(struct {
		Type string `json:"type"`
		Report
	}{Type: EventIndexRebuilt, Report: report})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", EventIndexRebuilt, err)
	}

	if err := n.publisher.Publish(ctx, EventIndexRebuilt, event).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", EventIndexRebuilt, err)
	}

	return nil
}
