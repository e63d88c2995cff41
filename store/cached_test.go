package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/House-lovers7/tone-bridge/errors"
	"github.com/House-lovers7/tone-bridge/pkg/cache"
	"github.com/House-lovers7/tone-bridge/types"
)

// fakeConfigStore counts reads so cache behavior is observable.
type fakeConfigStore struct {
	configs map[string]*types.TenantConfig
	gets    int
}

func newFakeConfigStore() *fakeConfigStore {
	return &fakeConfigStore{configs: make(map[string]*types.TenantConfig)}
}

func (f *fakeConfigStore) GetConfig(_ context.Context, tenantID string) (*types.TenantConfig, error) {
	f.gets++
	cfg, ok := f.configs[tenantID]
	if !ok {
		return nil, errors.ErrConfigNotFound
	}
	copied := *cfg
	return &copied, nil
}

func (f *fakeConfigStore) PutConfig(_ context.Context, cfg *types.TenantConfig) error {
	copied := *cfg
	f.configs[cfg.TenantID] = &copied
	return nil
}

func (f *fakeConfigStore) DeleteConfig(_ context.Context, tenantID string) error {
	delete(f.configs, tenantID)
	return nil
}

type fakeRuleStore struct {
	rules map[string][]types.Rule
	lists int
}

func newFakeRuleStore() *fakeRuleStore {
	return &fakeRuleStore{rules: make(map[string][]types.Rule)}
}

func (f *fakeRuleStore) ListRules(_ context.Context, tenantID string) ([]types.Rule, error) {
	f.lists++
	return append([]types.Rule{}, f.rules[tenantID]...), nil
}

func (f *fakeRuleStore) PutRule(_ context.Context, tenantID string, rule *types.Rule) error {
	for i, r := range f.rules[tenantID] {
		if r.ID == rule.ID {
			f.rules[tenantID][i] = *rule
			return nil
		}
	}
	f.rules[tenantID] = append(f.rules[tenantID], *rule)
	return nil
}

func (f *fakeRuleStore) DeleteRule(_ context.Context, tenantID, ruleID string) error {
	kept := f.rules[tenantID][:0]
	for _, r := range f.rules[tenantID] {
		if r.ID != ruleID {
			kept = append(kept, r)
		}
	}
	f.rules[tenantID] = kept
	return nil
}

func newCachedStore(t *testing.T, configs ConfigStore, rules RuleStore) *CachedStore {
	t.Helper()

	configCache, err := cache.NewTTL[*types.TenantConfig](context.Background(), 300*time.Second, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { configCache.Close() })

	ruleCache, err := cache.NewTTL[[]types.Rule](context.Background(), 300*time.Second, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { ruleCache.Close() })

	return NewCachedStore(configs, rules, configCache, ruleCache, nil)
}

func TestCachedStoreConfigReadThrough(t *testing.T) {
	ctx := context.Background()
	backing := newFakeConfigStore()
	backing.configs["t1"] = &types.TenantConfig{TenantID: "t1", Enabled: true}

	s := newCachedStore(t, backing, newFakeRuleStore())

	cfg, err := s.GetConfig(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 1, backing.gets)

	// Second read is served from cache.
	_, err = s.GetConfig(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, backing.gets)
}

func TestCachedStoreConfigWriteInvalidates(t *testing.T) {
	ctx := context.Background()
	backing := newFakeConfigStore()
	backing.configs["t1"] = &types.TenantConfig{TenantID: "t1", Enabled: true, MinMessageLength: 5}

	s := newCachedStore(t, backing, newFakeRuleStore())

	cfg, err := s.GetConfig(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.MinMessageLength)

	// Update well inside the TTL; the next read must see the new value.
	updated := &types.TenantConfig{TenantID: "t1", Enabled: true, MinMessageLength: 20}
	require.NoError(t, s.PutConfig(ctx, updated))

	cfg, err = s.GetConfig(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.MinMessageLength)
}

func TestCachedStoreMissingConfigNotCached(t *testing.T) {
	ctx := context.Background()
	backing := newFakeConfigStore()
	s := newCachedStore(t, backing, newFakeRuleStore())

	_, err := s.GetConfig(ctx, "absent")
	assert.ErrorIs(t, err, errors.ErrConfigNotFound)

	// A config created after the miss is visible immediately.
	require.NoError(t, backing.PutConfig(ctx, &types.TenantConfig{TenantID: "absent", Enabled: true}))

	cfg, err := s.GetConfig(ctx, "absent")
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
}

func TestCachedStoreRulesReadThroughAndInvalidate(t *testing.T) {
	ctx := context.Background()
	backing := newFakeRuleStore()
	backing.rules["t1"] = []types.Rule{{ID: "r1", ConfigID: "c1", Name: "first",
		TriggerType: types.TriggerKeyword, TransformationType: "soften"}}

	s := newCachedStore(t, newFakeConfigStore(), backing)

	rules, err := s.ListRules(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, 1, backing.lists)

	_, err = s.ListRules(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, backing.lists)

	newRule := &types.Rule{ID: "r2", ConfigID: "c1", Name: "second",
		TriggerType: types.TriggerKeyword, TransformationType: "soften"}
	require.NoError(t, s.PutRule(ctx, "t1", newRule))

	rules, err = s.ListRules(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, rules, 2)

	require.NoError(t, s.DeleteRule(ctx, "t1", "r1"))

	rules, err = s.ListRules(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "r2", rules[0].ID)
}

func TestCachedStoreNilCachesAreNoop(t *testing.T) {
	ctx := context.Background()
	backing := newFakeConfigStore()
	backing.configs["t1"] = &types.TenantConfig{TenantID: "t1"}

	s := NewCachedStore(backing, newFakeRuleStore(), nil, nil, nil)

	_, err := s.GetConfig(ctx, "t1")
	require.NoError(t, err)
	_, err = s.GetConfig(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 2, backing.gets)
}

// failingCache errors on every mutation so degraded-cache behavior is
// observable.
type failingCache[V any] struct {
	err error
}

func (c *failingCache[V]) Get(string) (V, bool) {
	var zero V
	return zero, false
}
func (c *failingCache[V]) Set(string, V) (bool, error) { return false, c.err }
func (c *failingCache[V]) Delete(string) (bool, error) { return false, c.err }
func (c *failingCache[V]) Clear() error                { return c.err }
func (c *failingCache[V]) Size() int                   { return 0 }
func (c *failingCache[V]) Keys() []string              { return nil }
func (c *failingCache[V]) Stats() *cache.Statistics    { return nil }
func (c *failingCache[V]) Close() error                { return nil }

func TestCachedStoreSurvivesCacheFailures(t *testing.T) {
	ctx := context.Background()
	cacheErr := fmt.Errorf("cache unavailable")

	configBacking := newFakeConfigStore()
	ruleBacking := newFakeRuleStore()
	s := NewCachedStore(configBacking, ruleBacking,
		&failingCache[*types.TenantConfig]{err: cacheErr},
		&failingCache[[]types.Rule]{err: cacheErr}, nil)

	require.NoError(t, s.PutConfig(ctx, &types.TenantConfig{TenantID: "t1", Enabled: true}))
	cfg, err := s.GetConfig(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	require.NoError(t, s.DeleteConfig(ctx, "t1"))

	require.NoError(t, s.PutRule(ctx, "t1", &types.Rule{ID: "r1"}))
	rules, err := s.ListRules(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	require.NoError(t, s.DeleteRule(ctx, "t1", "r1"))
}

func TestSanitizeKeyPart(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"tenant-1", "tenant-1"},
		{"acme.corp", "acme_corp"},
		{"user@example.com", "user_example_com"},
		{"U 123", "U_123"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeKeyPart(tt.in))
	}
}
