package store

import (
	"context"
	"log/slog"

	"github.com/House-lovers7/tone-bridge/pkg/cache"
	"github.com/House-lovers7/tone-bridge/types"
)

// CachedStore layers read-through caches over a ConfigStore and a
// RuleStore. Reads hit the cache first and fall back to the backing
// store on miss; every write invalidates the corresponding cache entry
// after the store write succeeds, so a read never observes a value
// older than the last write plus the invalidation itself.
type CachedStore struct {
	configs ConfigStore
	rules   RuleStore

	configCache cache.Cache[*types.TenantConfig]
	ruleCache   cache.Cache[[]types.Rule]
	logger      *slog.Logger
}

// NewCachedStore wraps the given stores with the given caches. Pass
// cache.NewNoop to disable caching for either side. A nil logger falls
// back to slog.Default.
func NewCachedStore(
	configs ConfigStore,
	rules RuleStore,
	configCache cache.Cache[*types.TenantConfig],
	ruleCache cache.Cache[[]types.Rule],
	logger *slog.Logger,
) *CachedStore {
	if configCache == nil {
		configCache = cache.NewNoop[*types.TenantConfig]()
	}
	if ruleCache == nil {
		ruleCache = cache.NewNoop[[]types.Rule]()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &CachedStore{
		configs:     configs,
		rules:       rules,
		configCache: configCache,
		ruleCache:   ruleCache,
		logger:      logger,
	}
}

func configKey(tenantID string) string {
	return "config:" + tenantID
}

func rulesKey(tenantID string) string {
	return "rules:" + tenantID
}

// Invalidation failures are logged and never fail the write that
// triggered them; the entry expires on its own TTL at worst.
func (s *CachedStore) invalidateConfig(tenantID string) {
	if _, err := s.configCache.Delete(configKey(tenantID)); err != nil {
		s.logger.Warn("config cache invalidation failed", "tenant_id", tenantID, "error", err)
	}
}

func (s *CachedStore) invalidateRules(tenantID string) {
	if _, err := s.ruleCache.Delete(rulesKey(tenantID)); err != nil {
		s.logger.Warn("rule cache invalidation failed", "tenant_id", tenantID, "error", err)
	}
}

// GetConfig reads the tenant config through the cache. Misses, including
// ErrConfigNotFound, are served by the backing store; only found configs
// are cached.
func (s *CachedStore) GetConfig(ctx context.Context, tenantID string) (*types.TenantConfig, error) {
	if cfg, found := s.configCache.Get(configKey(tenantID)); found {
		return cfg, nil
	}

	cfg, err := s.configs.GetConfig(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if _, err := s.configCache.Set(configKey(tenantID), cfg); err != nil {
		s.logger.Warn("config cache set failed", "tenant_id", tenantID, "error", err)
	}

	return cfg, nil
}

// PutConfig writes the config and then invalidates its cache entry.
func (s *CachedStore) PutConfig(ctx context.Context, cfg *types.TenantConfig) error {
	if err := s.configs.PutConfig(ctx, cfg); err != nil {
		return err
	}
	s.invalidateConfig(cfg.TenantID)
	return nil
}

// DeleteConfig removes the config and then invalidates its cache entry.
func (s *CachedStore) DeleteConfig(ctx context.Context, tenantID string) error {
	if err := s.configs.DeleteConfig(ctx, tenantID); err != nil {
		return err
	}
	s.invalidateConfig(tenantID)
	return nil
}

// ListRules reads the tenant's rules through the cache.
func (s *CachedStore) ListRules(ctx context.Context, tenantID string) ([]types.Rule, error) {
	if rules, found := s.ruleCache.Get(rulesKey(tenantID)); found {
		return rules, nil
	}

	rules, err := s.rules.ListRules(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if _, err := s.ruleCache.Set(rulesKey(tenantID), rules); err != nil {
		s.logger.Warn("rule cache set failed", "tenant_id", tenantID, "error", err)
	}

	return rules, nil
}

// PutRule writes the rule and then invalidates the tenant's rule cache.
func (s *CachedStore) PutRule(ctx context.Context, tenantID string, rule *types.Rule) error {
	if err := s.rules.PutRule(ctx, tenantID, rule); err != nil {
		return err
	}
	s.invalidateRules(tenantID)
	return nil
}

// DeleteRule removes the rule and then invalidates the tenant's rule cache.
func (s *CachedStore) DeleteRule(ctx context.Context, tenantID, ruleID string) error {
	if err := s.rules.DeleteRule(ctx, tenantID, ruleID); err != nil {
		return err
	}
	s.invalidateRules(tenantID)
	return nil
}
