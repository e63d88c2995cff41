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

// KVRuleStore persists each tenant's rules as one JSON array keyed by
// tenant id. Rule mutations go through CAS so concurrent admin writes
// to the same tenant cannot lose updates.
type KVRuleStore struct {
	kv *natsclient.KVStore
}

// NewKVRuleStore creates the rule bucket and returns a store over it.
func NewKVRuleStore(ctx context.Context, client *natsclient.Client) (*KVRuleStore, error) {
	if client == nil {
		return nil, errors.Invalid("store", "NewKVRuleStore", "nats client cannot be nil")
	}

	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket:      RuleBucket,
		Description: "Per-tenant auto-transform rules",
		History:     5,
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "store", "NewKVRuleStore", "create KV bucket")
	}

	return &KVRuleStore{kv: client.NewKVStore(bucket)}, nil
}

// ListRules returns all rules for the tenant. A tenant with no rules
// yields an empty slice.
func (s *KVRuleStore) ListRules(ctx context.Context, tenantID string) ([]types.Rule, error) {
	if tenantID == "" {
		return nil, errors.Invalid("store", "ListRules", "tenant id cannot be empty")
	}

	entry, err := s.kv.Get(ctx, sanitizeKeyPart(tenantID))
	if err != nil {
		if natsclient.IsKVNotFoundError(err) {
			return []types.Rule{}, nil
		}
		return nil, errors.WrapTransient(err, "store", "ListRules", "get from KV")
	}

	var rules []types.Rule
	if err := json.Unmarshal(entry.Value, &rules); err != nil {
		return nil, errors.WrapFatal(err, "store", "ListRules", "unmarshal rules")
	}

	return rules, nil
}

// PutRule validates and inserts or replaces one rule in the tenant's list.
func (s *KVRuleStore) PutRule(ctx context.Context, tenantID string, rule *types.Rule) error {
	if tenantID == "" {
		return errors.Invalid("store", "PutRule", "tenant id cannot be empty")
	}
	if rule == nil {
		return errors.Invalid("store", "PutRule", "rule cannot be nil")
	}
	if err := rule.Validate(); err != nil {
		return err
	}

	now := time.Now()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now

	err := s.kv.UpdateWithRetry(ctx, sanitizeKeyPart(tenantID), func(current []byte) ([]byte, error) {
		var rules []types.Rule
		if len(current) > 0 {
			if err := json.Unmarshal(current, &rules); err != nil {
				return nil, err
			}
		}

		replaced := false
		for i := range rules {
			if rules[i].ID == rule.ID {
				rules[i] = *rule
				replaced = true
				break
			}
		}
		if !replaced {
			rules = append(rules, *rule)
		}

		return json.Marshal(rules)
	})
	if err != nil {
		return errors.WrapTransient(err, "store", "PutRule", "update KV")
	}

	return nil
}

// DeleteRule removes one rule from the tenant's list. Deleting a missing
// rule is not an error.
func (s *KVRuleStore) DeleteRule(ctx context.Context, tenantID, ruleID string) error {
	if tenantID == "" {
		return errors.Invalid("store", "DeleteRule", "tenant id cannot be empty")
	}
	if ruleID == "" {
		return errors.Invalid("store", "DeleteRule", "rule id cannot be empty")
	}

	err := s.kv.UpdateWithRetry(ctx, sanitizeKeyPart(tenantID), func(current []byte) ([]byte, error) {
		var rules []types.Rule
		if len(current) > 0 {
			if err := json.Unmarshal(current, &rules); err != nil {
				return nil, err
			}
		}

		kept := rules[:0]
		for _, r := range rules {
			if r.ID != ruleID {
				kept = append(kept, r)
			}
		}

		return json.Marshal(kept)
	})
	if err != nil {
		return errors.WrapTransient(err, "store", "DeleteRule", "update KV")
	}

	return nil
}
