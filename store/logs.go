package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/House-lovers7/tone-bridge/errors"
	"github.com/House-lovers7/tone-bridge/natsclient"
	"github.com/House-lovers7/tone-bridge/types"
)

// logRetention bounds how long completed logs stay queryable.
const logRetention = 30 * 24 * time.Hour

// KVLogStore persists transformation logs keyed by
// {tenant}.{user}.{evaluation_id}, so outcome updates address the
// triggered row directly instead of guessing by time window.
type KVLogStore struct {
	kv *natsclient.KVStore

	// correlationWindow backs the fallback lookup used when the caller
	// has no evaluation id.
	correlationWindow time.Duration
	now               func() time.Time
}

// NewKVLogStore creates the log bucket and returns a store over it.
func NewKVLogStore(ctx context.Context, client *natsclient.Client, correlationWindow time.Duration) (*KVLogStore, error) {
	if client == nil {
		return nil, errors.Invalid("store", "NewKVLogStore", "nats client cannot be nil")
	}
	if correlationWindow <= 0 {
		correlationWindow = 60 * time.Second
	}

	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket:      LogBucket,
		Description: "Transformation attempt logs",
		TTL:         logRetention,
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "store", "NewKVLogStore", "create KV bucket")
	}

	return &KVLogStore{
		kv:                client.NewKVStore(bucket),
		correlationWindow: correlationWindow,
		now:               time.Now,
	}, nil
}

func logKey(tenantID, userID, evaluationID string) string {
	return fmt.Sprintf("%s.%s.%s",
		sanitizeKeyPart(tenantID), sanitizeKeyPart(userID), sanitizeKeyPart(evaluationID))
}

// CreateTriggered writes a new log row in status triggered.
func (s *KVLogStore) CreateTriggered(ctx context.Context, log *types.TransformationLog) error {
	if log == nil {
		return errors.Invalid("store", "CreateTriggered", "log cannot be nil")
	}
	if log.EvaluationID == "" {
		return errors.Invalid("store", "CreateTriggered", "evaluation id cannot be empty")
	}

	log.Status = types.StatusTriggered
	if log.TriggeredAt.IsZero() {
		log.TriggeredAt = s.now()
	}

	data, err := json.Marshal(log)
	if err != nil {
		return errors.WrapFatal(err, "store", "CreateTriggered", "marshal log")
	}

	key := logKey(log.TenantID, log.UserID, log.EvaluationID)
	if _, err := s.kv.Create(ctx, key, data); err != nil {
		if natsclient.IsKVConflictError(err) {
			return errors.WrapInvalid(err, "store", "CreateTriggered", "log already exists")
		}
		return errors.WrapTransient(err, "store", "CreateTriggered", "create in KV")
	}

	return nil
}

// MarkTransformed transitions the correlated log to transformed and
// records the output text.
func (s *KVLogStore) MarkTransformed(ctx context.Context, tenantID, userID, evaluationID, transformed string) error {
	return s.update(ctx, tenantID, userID, evaluationID, func(log *types.TransformationLog) {
		log.Status = types.StatusTransformed
		log.TransformedMessage = transformed
	})
}

// MarkFailed transitions the correlated log to failed with the error text.
func (s *KVLogStore) MarkFailed(ctx context.Context, tenantID, userID, evaluationID, errMsg string) error {
	return s.update(ctx, tenantID, userID, evaluationID, func(log *types.TransformationLog) {
		log.Status = types.StatusFailed
		log.ErrorMessage = errMsg
	})
}

// update resolves the log row, applies mutate, and stamps ProcessedAt.
// With an evaluation id the row is addressed directly; without one the
// most recent triggered row for the tenant/user inside the correlation
// window is used.
func (s *KVLogStore) update(ctx context.Context, tenantID, userID, evaluationID string,
	mutate func(*types.TransformationLog)) error {

	key := ""
	if evaluationID != "" {
		key = logKey(tenantID, userID, evaluationID)
	} else {
		found, err := s.findRecentTriggered(ctx, tenantID, userID)
		if err != nil {
			return err
		}
		if found == nil {
			return errors.ErrKeyNotFound
		}
		key = logKey(tenantID, userID, found.EvaluationID)
	}

	err := s.kv.UpdateWithRetry(ctx, key, func(current []byte) ([]byte, error) {
		if len(current) == 0 {
			return nil, errors.ErrKeyNotFound
		}

		var log types.TransformationLog
		if err := json.Unmarshal(current, &log); err != nil {
			return nil, err
		}

		mutate(&log)
		processed := s.now()
		log.ProcessedAt = &processed

		return json.Marshal(&log)
	})
	if err != nil {
		return errors.WrapTransient(err, "store", "update", "update log in KV")
	}

	return nil
}

// findRecentTriggered returns the newest triggered log for the
// tenant/user inside the correlation window, or nil when none exists.
func (s *KVLogStore) findRecentTriggered(ctx context.Context, tenantID, userID string) (*types.TransformationLog, error) {
	filter := fmt.Sprintf("%s.%s.*", sanitizeKeyPart(tenantID), sanitizeKeyPart(userID))
	keys, err := s.kv.Keys(ctx, filter)
	if err != nil {
		return nil, errors.WrapTransient(err, "store", "findRecentTriggered", "list keys")
	}

	cutoff := s.now().Add(-s.correlationWindow)

	var newest *types.TransformationLog
	for _, key := range keys {
		var log types.TransformationLog
		if err := s.kv.GetJSON(ctx, key, &log); err != nil {
			continue
		}
		if log.Status != types.StatusTriggered || log.TriggeredAt.Before(cutoff) {
			continue
		}
		if newest == nil || log.TriggeredAt.After(newest.TriggeredAt) {
			copied := log
			newest = &copied
		}
	}

	return newest, nil
}

// ListByTenant returns the tenant's logs, most recent first.
func (s *KVLogStore) ListByTenant(ctx context.Context, tenantID string, limit int) ([]types.TransformationLog, error) {
	if tenantID == "" {
		return nil, errors.Invalid("store", "ListByTenant", "tenant id cannot be empty")
	}

	filter := fmt.Sprintf("%s.>", sanitizeKeyPart(tenantID))
	keys, err := s.kv.Keys(ctx, filter)
	if err != nil {
		return nil, errors.WrapTransient(err, "store", "ListByTenant", "list keys")
	}

	logs := make([]types.TransformationLog, 0, len(keys))
	for _, key := range keys {
		var log types.TransformationLog
		if err := s.kv.GetJSON(ctx, key, &log); err != nil {
			continue
		}
		logs = append(logs, log)
	}

	sort.Slice(logs, func(i, j int) bool {
		return logs[i].TriggeredAt.After(logs[j].TriggeredAt)
	})

	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}

	return logs, nil
}
