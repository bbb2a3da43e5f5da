package configstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"storyboard-server/modules/common/model"
)

const keyPrefix = "apiconfig:"

var errUnavailable = fmt.Errorf("credential store unavailable, Redis is not connected")

// Store persists per-provider API credentials in Redis as JSON values under
// apiconfig:<provider>. Values never expire; removal is explicit.
type Store struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Get - stored credentials for a provider, nil when none exist
func (s *Store) Get(ctx context.Context, provider string) (*model.ProviderCredentials, error) {
	if s.rdb == nil {
		return nil, errUnavailable
	}
	data, err := s.rdb.Get(ctx, keyPrefix+provider).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials for %s: %w", provider, err)
	}

	var creds model.ProviderCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("corrupt credentials for %s: %w", provider, err)
	}
	return &creds, nil
}

// Set - upsert credentials, stamping UpdatedAt
func (s *Store) Set(ctx context.Context, creds model.ProviderCredentials) error {
	if s.rdb == nil {
		return errUnavailable
	}
	creds.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to encode credentials for %s: %w", creds.Provider, err)
	}
	if err := s.rdb.Set(ctx, keyPrefix+creds.Provider, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store credentials for %s: %w", creds.Provider, err)
	}
	return nil
}

// Remove - delete stored credentials; removing an absent key is not an error
func (s *Store) Remove(ctx context.Context, provider string) error {
	if s.rdb == nil {
		return errUnavailable
	}
	if err := s.rdb.Del(ctx, keyPrefix+provider).Err(); err != nil {
		return fmt.Errorf("failed to remove credentials for %s: %w", provider, err)
	}
	return nil
}

// List - all stored credentials, scanning the apiconfig keyspace
func (s *Store) List(ctx context.Context) ([]model.ProviderCredentials, error) {
	if s.rdb == nil {
		return nil, errUnavailable
	}
	var out []model.ProviderCredentials

	iter := s.rdb.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.rdb.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			continue
		}
		var creds model.ProviderCredentials
		if err := json.Unmarshal(data, &creds); err != nil {
			continue
		}
		out = append(out, creds)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan credentials: %w", err)
	}
	return out, nil
}
