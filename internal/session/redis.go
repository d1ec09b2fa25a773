package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	walletKeyPrefix = "session:v1:wallet:"
	prefsKeyPrefix  = "session:v1:prefs:"
)

// RedisStore keeps session state in Redis; keys never expire.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore builds a Redis-backed session store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, userID string) (State, error) {
	state := State{Preferences: DefaultPreferences()}

	wallet, err := s.client.Get(ctx, walletKeyPrefix+userID).Result()
	switch {
	case err == nil:
		state.ActiveWalletID = wallet
	case !errors.Is(err, redis.Nil):
		return State{}, fmt.Errorf("read wallet reference: %w", err)
	}

	raw, err := s.client.Get(ctx, prefsKeyPrefix+userID).Bytes()
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, &state.Preferences); err != nil {
			return State{}, fmt.Errorf("decode preferences: %w", err)
		}
	case !errors.Is(err, redis.Nil):
		return State{}, fmt.Errorf("read preferences: %w", err)
	}
	return state, nil
}

func (s *RedisStore) SetActiveWallet(ctx context.Context, userID, walletID string) error {
	return s.client.Set(ctx, walletKeyPrefix+userID, walletID, 0).Err()
}

func (s *RedisStore) SetPreferences(ctx context.Context, userID string, prefs Preferences) error {
	payload, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, prefsKeyPrefix+userID, payload, 0).Err()
}

func (s *RedisStore) Clear(ctx context.Context, userID string) error {
	return s.client.Del(ctx, walletKeyPrefix+userID).Err()
}
