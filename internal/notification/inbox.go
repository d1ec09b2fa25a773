package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// InboxSize caps how many undelivered messages a user keeps.
const InboxSize = 50

const inboxKeyPrefix = "notifications:"

// Inbox stores messages per user until they are drained.
type Inbox interface {
	Notifier
	Drain(ctx context.Context, userID string) ([]Message, error)
}

// RedisInbox keeps each user's messages in a capped Redis list, newest first.
type RedisInbox struct {
	client *redis.Client
}

func NewRedisInbox(client *redis.Client) *RedisInbox {
	return &RedisInbox{client: client}
}

func (b *RedisInbox) Send(ctx context.Context, message Message) error {
	if message.Destination == "" {
		return nil
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}
	key := inboxKeyPrefix + message.Destination
	_, err = b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, payload)
		pipe.LTrim(ctx, key, 0, InboxSize-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("push notification: %w", err)
	}
	return nil
}

func (b *RedisInbox) Drain(ctx context.Context, userID string) ([]Message, error) {
	key := inboxKeyPrefix + userID
	var items *redis.StringSliceCmd
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		items = pipe.LRange(ctx, key, 0, -1)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("drain notifications: %w", err)
	}
	out := make([]Message, 0, len(items.Val()))
	for _, raw := range items.Val() {
		var m Message
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

type memoryInbox struct {
	mu    sync.Mutex
	boxes map[string][]Message
}

// NewMemoryInbox builds an in-process Inbox.
func NewMemoryInbox() Inbox {
	return &memoryInbox{boxes: make(map[string][]Message)}
}

func (b *memoryInbox) Send(_ context.Context, message Message) error {
	if message.Destination == "" {
		return nil
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	box := append([]Message{message}, b.boxes[message.Destination]...)
	if len(box) > InboxSize {
		box = box[:InboxSize]
	}
	b.boxes[message.Destination] = box
	return nil
}

func (b *memoryInbox) Drain(_ context.Context, userID string) ([]Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.boxes[userID]
	delete(b.boxes, userID)
	if out == nil {
		out = []Message{}
	}
	return out, nil
}
