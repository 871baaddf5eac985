// Package events publishes subscriber lifecycle events to a Redis stream
// for downstream consumers (tagging, CRM sync).
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/optin-mailer/internal/pkg/logger"
	"github.com/ignite/optin-mailer/internal/service/subscription"
)

// DefaultStream is used when no stream name is configured.
const DefaultStream = "subscriber:events"

// EventType names a stream entry.
type EventType string

const EventSubscriberConfirmed EventType = "subscriber.confirmed"

// RedisPublisher appends events to a Redis stream with XADD. It implements
// subscription.ConfirmationObserver.
type RedisPublisher struct {
	client  redis.Cmdable
	stream  string
	maxLen  int64
	timeout time.Duration
}

// NewRedisPublisher creates a publisher. The stream is trimmed to roughly
// maxLen entries; zero keeps everything.
func NewRedisPublisher(client redis.Cmdable, stream string, maxLen int64) *RedisPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisPublisher{client: client, stream: stream, maxLen: maxLen, timeout: 2 * time.Second}
}

// SubscriberConfirmed appends a subscriber.confirmed entry to the stream.
func (p *RedisPublisher) SubscriberConfirmed(ctx context.Context, ev subscription.ConfirmedEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	values := map[string]interface{}{
		"type":          string(EventSubscriberConfirmed),
		"workspace_id":  strconv.FormatInt(ev.WorkspaceID, 10),
		"subscriber_id": strconv.FormatInt(ev.SubscriberID, 10),
		"payload":       string(payload),
	}
	if ev.TagID != nil {
		values["tag_id"] = strconv.FormatInt(*ev.TagID, 10)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := &redis.XAddArgs{Stream: p.stream, Values: values}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	id, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("publish %s: %w", EventSubscriberConfirmed, err)
	}

	logger.Debug("Published subscriber event",
		"stream", p.stream,
		"id", id,
		"workspace_id", ev.WorkspaceID,
		"subscriber_id", ev.SubscriberID,
	)
	return nil
}
