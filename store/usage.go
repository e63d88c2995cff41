package store

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/House-lovers7/tone-bridge/errors"
	"github.com/House-lovers7/tone-bridge/natsclient"
	"github.com/House-lovers7/tone-bridge/types"
)

// usageRetention keeps roughly three months of daily buckets.
const usageRetention = 92 * 24 * time.Hour

// KVUsageStore accumulates daily counters in JSON maps, one key per
// tenant per day: status.{tenant}.{date} and rule.{tenant}.{date}.
// Increments go through CAS so concurrent evaluations cannot drop counts.
type KVUsageStore struct {
	kv *natsclient.KVStore
}

// NewKVUsageStore creates the usage bucket and returns a store over it.
func NewKVUsageStore(ctx context.Context, client *natsclient.Client) (*KVUsageStore, error) {
	if client == nil {
		return nil, errors.Invalid("store", "NewKVUsageStore", "nats client cannot be nil")
	}

	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket:      UsageBucket,
		Description: "Daily transformation usage counters",
		TTL:         usageRetention,
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "store", "NewKVUsageStore", "create KV bucket")
	}

	return &KVUsageStore{kv: client.NewKVStore(bucket)}, nil
}

func statusKey(tenantID string, day time.Time) string {
	return fmt.Sprintf("status.%s.%s", sanitizeKeyPart(tenantID), dayKey(day))
}

func ruleKey(tenantID string, day time.Time) string {
	return fmt.Sprintf("rule.%s.%s", sanitizeKeyPart(tenantID), dayKey(day))
}

func (s *KVUsageStore) incr(ctx context.Context, key, field string) error {
	err := s.kv.UpdateJSON(ctx, key, func(current map[string]any) error {
		count := int64(0)
		if v, ok := current[field]; ok {
			if f, ok := v.(float64); ok {
				count = int64(f)
			}
		}
		current[field] = count + 1
		return nil
	})
	if err != nil {
		return errors.WrapTransient(err, "store", "incr", "update counter")
	}
	return nil
}

// IncrStatus bumps the day's counter for a transformation status.
func (s *KVUsageStore) IncrStatus(ctx context.Context, tenantID string, status types.TransformationStatus, day time.Time) error {
	if tenantID == "" {
		return errors.Invalid("store", "IncrStatus", "tenant id cannot be empty")
	}
	return s.incr(ctx, statusKey(tenantID, day), string(status))
}

// IncrRule bumps the day's counter for a rule.
func (s *KVUsageStore) IncrRule(ctx context.Context, tenantID, ruleID string, day time.Time) error {
	if tenantID == "" {
		return errors.Invalid("store", "IncrRule", "tenant id cannot be empty")
	}
	if ruleID == "" {
		return errors.Invalid("store", "IncrRule", "rule id cannot be empty")
	}
	return s.incr(ctx, ruleKey(tenantID, day), sanitizeKeyPart(ruleID))
}

// StatusCounts returns the status counter map for one day. A day with no
// activity yields an empty map.
func (s *KVUsageStore) StatusCounts(ctx context.Context, tenantID string, day time.Time) (map[string]int64, error) {
	if tenantID == "" {
		return nil, errors.Invalid("store", "StatusCounts", "tenant id cannot be empty")
	}

	var raw map[string]float64
	err := s.kv.GetJSON(ctx, statusKey(tenantID, day), &raw)
	if err != nil {
		if natsclient.IsKVNotFoundError(err) {
			return map[string]int64{}, nil
		}
		return nil, errors.WrapTransient(err, "store", "StatusCounts", "get from KV")
	}

	counts := make(map[string]int64, len(raw))
	for k, v := range raw {
		counts[k] = int64(v)
	}

	return counts, nil
}
