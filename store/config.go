package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/House-lovers7/tone-bridge/errors"
	"github.com/House-lovers7/tone-bridge/natsclient"
	"github.com/House-lovers7/tone-bridge/types"
)

// KVConfigStore persists tenant configs keyed by tenant id.
type KVConfigStore struct {
	kv *natsclient.KVStore
}

// NewKVConfigStore creates the config bucket and returns a store over it.
func NewKVConfigStore(ctx context.Context, client *natsclient.Client) (*KVConfigStore, error) {
	if client == nil {
		return nil, errors.Invalid("store", "NewKVConfigStore", "nats client cannot be nil")
	}

	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket:      ConfigBucket,
		Description: "Per-tenant auto-transform configuration",
		History:     5,
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "store", "NewKVConfigStore", "create KV bucket")
	}

	return &KVConfigStore{kv: client.NewKVStore(bucket)}, nil
}

// GetConfig returns the tenant's config or ErrConfigNotFound.
func (s *KVConfigStore) GetConfig(ctx context.Context, tenantID string) (*types.TenantConfig, error) {
	if tenantID == "" {
		return nil, errors.Invalid("store", "GetConfig", "tenant id cannot be empty")
	}

	entry, err := s.kv.Get(ctx, sanitizeKeyPart(tenantID))
	if err != nil {
		if natsclient.IsKVNotFoundError(err) {
			return nil, errors.ErrConfigNotFound
		}
		return nil, errors.WrapTransient(err, "store", "GetConfig", "get from KV")
	}

	var cfg types.TenantConfig
	if err := json.Unmarshal(entry.Value, &cfg); err != nil {
		return nil, errors.WrapFatal(err, "store", "GetConfig", "unmarshal config")
	}

	return &cfg, nil
}

// PutConfig validates and writes the tenant's config, last writer wins.
func (s *KVConfigStore) PutConfig(ctx context.Context, cfg *types.TenantConfig) error {
	if cfg == nil {
		return errors.Invalid("store", "PutConfig", "config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	now := time.Now()
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = now
	}
	cfg.UpdatedAt = now

	if _, err := s.kv.PutJSON(ctx, sanitizeKeyPart(cfg.TenantID), cfg); err != nil {
		return errors.WrapTransient(err, "store", "PutConfig", "put to KV")
	}

	return nil
}

// DeleteConfig removes the tenant's config. Deleting a missing config
// is not an error.
func (s *KVConfigStore) DeleteConfig(ctx context.Context, tenantID string) error {
	if tenantID == "" {
		return errors.Invalid("store", "DeleteConfig", "tenant id cannot be empty")
	}

	err := s.kv.Delete(ctx, sanitizeKeyPart(tenantID))
	if err != nil && !natsclient.IsKVNotFoundError(err) {
		return errors.WrapTransient(err, "store", "DeleteConfig", "delete from KV")
	}

	return nil
}
