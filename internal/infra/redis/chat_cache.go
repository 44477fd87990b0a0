package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"telegram-translation-bot/internal/domain/model"
)

// SessionCache is a read-through cache in front of the Postgres session
// repository. Entries carry the session Version, so a stale read loses
// the optimistic-concurrency check instead of corrupting state.
type SessionCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewSessionCache(client RedisClient, ttl time.Duration) *SessionCache {
	return &SessionCache{
		client: client,
		ttl:    ttl,
	}
}

func sessionKey(chatID int64) string {
	return fmt.Sprintf("chat_session:%d", chatID)
}

func (c *SessionCache) StoreSession(ctx context.Context, session *model.ChatSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, sessionKey(session.ChatID), data, c.ttl)
}

func (c *SessionCache) GetSession(ctx context.Context, chatID int64) (*model.ChatSession, error) {
	data, err := c.client.Get(ctx, sessionKey(chatID))
	if err != nil {
		return nil, err
	}

	var session model.ChatSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *SessionCache) DeleteSession(ctx context.Context, chatID int64) error {
	return c.client.Del(ctx, sessionKey(chatID))
}

func (c *SessionCache) ExtendSession(ctx context.Context, chatID int64) error {
	return c.client.Expire(ctx, sessionKey(chatID), c.ttl)
}
