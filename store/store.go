// Package store persists tenant configuration, rules, transformation
// logs, and usage counters in NATS JetStream key-value buckets.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/House-lovers7/tone-bridge/types"
)

// Bucket names.
const (
	ConfigBucket = "tonebridge_configs"
	RuleBucket   = "tonebridge_rules"
	LogBucket    = "tonebridge_logs"
	UsageBucket  = "tonebridge_usage"
)

// ConfigStore persists per-tenant configuration.
type ConfigStore interface {
	// GetConfig returns the tenant's config, or ErrConfigNotFound when
	// the tenant has none.
	GetConfig(ctx context.Context, tenantID string) (*types.TenantConfig, error)
	PutConfig(ctx context.Context, cfg *types.TenantConfig) error
	DeleteConfig(ctx context.Context, tenantID string) error
}

// RuleStore persists per-tenant rule lists.
type RuleStore interface {
	// ListRules returns all rules for the tenant, enabled or not. A
	// tenant with no rules yields an empty slice.
	ListRules(ctx context.Context, tenantID string) ([]types.Rule, error)
	PutRule(ctx context.Context, tenantID string, rule *types.Rule) error
	DeleteRule(ctx context.Context, tenantID, ruleID string) error
}

// LogStore persists transformation logs through their lifecycle.
type LogStore interface {
	// CreateTriggered writes a new log in status triggered.
	CreateTriggered(ctx context.Context, log *types.TransformationLog) error
	// MarkTransformed transitions the correlated log to transformed.
	MarkTransformed(ctx context.Context, tenantID, userID, evaluationID, transformed string) error
	// MarkFailed transitions the correlated log to failed.
	MarkFailed(ctx context.Context, tenantID, userID, evaluationID, errMsg string) error
	// ListByTenant returns the tenant's logs, most recent first.
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]types.TransformationLog, error)
}

// UsageStore accumulates daily usage counters per tenant.
type UsageStore interface {
	IncrStatus(ctx context.Context, tenantID string, status types.TransformationStatus, day time.Time) error
	IncrRule(ctx context.Context, tenantID, ruleID string, day time.Time) error
	// StatusCounts returns the status counter map for one day.
	StatusCounts(ctx context.Context, tenantID string, day time.Time) (map[string]int64, error)
}

// sanitizeKeyPart maps an external id onto the NATS KV key alphabet.
// Dots are replaced too since they separate key segments.
func sanitizeKeyPart(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}

func dayKey(day time.Time) string {
	return day.UTC().Format("2006-01-02")
}
