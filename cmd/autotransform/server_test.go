package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/House-lovers7/tone-bridge/engine"
	apperrors "github.com/House-lovers7/tone-bridge/errors"
	"github.com/House-lovers7/tone-bridge/pkg/cache"
	"github.com/House-lovers7/tone-bridge/pkg/ratelimit"
	"github.com/House-lovers7/tone-bridge/platform"
	"github.com/House-lovers7/tone-bridge/store"
	"github.com/House-lovers7/tone-bridge/transform"
	"github.com/House-lovers7/tone-bridge/types"
)

type memConfigStore struct {
	mu      sync.Mutex
	configs map[string]*types.TenantConfig
}

func newMemConfigStore() *memConfigStore {
	return &memConfigStore{configs: make(map[string]*types.TenantConfig)}
}

func (s *memConfigStore) GetConfig(_ context.Context, tenantID string) (*types.TenantConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[tenantID]
	if !ok {
		return nil, apperrors.ErrConfigNotFound
	}
	copied := *cfg
	return &copied, nil
}

func (s *memConfigStore) PutConfig(_ context.Context, cfg *types.TenantConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *cfg
	s.configs[cfg.TenantID] = &copied
	return nil
}

func (s *memConfigStore) DeleteConfig(_ context.Context, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.configs, tenantID)
	return nil
}

type memRuleStore struct {
	mu    sync.Mutex
	rules map[string][]types.Rule
}

func newMemRuleStore() *memRuleStore {
	return &memRuleStore{rules: make(map[string][]types.Rule)}
}

func (s *memRuleStore) ListRules(_ context.Context, tenantID string) ([]types.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Rule(nil), s.rules[tenantID]...), nil
}

func (s *memRuleStore) PutRule(_ context.Context, tenantID string, rule *types.Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.rules[tenantID] {
		if existing.ID == rule.ID {
			s.rules[tenantID][i] = *rule
			return nil
		}
	}
	s.rules[tenantID] = append(s.rules[tenantID], *rule)
	return nil
}

func (s *memRuleStore) DeleteRule(_ context.Context, tenantID, ruleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.rules[tenantID][:0]
	for _, rule := range s.rules[tenantID] {
		if rule.ID != ruleID {
			kept = append(kept, rule)
		}
	}
	s.rules[tenantID] = kept
	return nil
}

type memLogStore struct {
	mu   sync.Mutex
	logs []types.TransformationLog
}

func (s *memLogStore) CreateTriggered(_ context.Context, log *types.TransformationLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, *log)
	return nil
}

func (s *memLogStore) MarkTransformed(_ context.Context, _, _, evaluationID, transformed string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.logs {
		if s.logs[i].EvaluationID == evaluationID {
			s.logs[i].Status = types.StatusTransformed
			s.logs[i].TransformedMessage = transformed
			return nil
		}
	}
	return fmt.Errorf("no triggered log for %s", evaluationID)
}

func (s *memLogStore) MarkFailed(_ context.Context, _, _, evaluationID, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.logs {
		if s.logs[i].EvaluationID == evaluationID {
			s.logs[i].Status = types.StatusFailed
			s.logs[i].ErrorMessage = errMsg
			return nil
		}
	}
	return fmt.Errorf("no triggered log for %s", evaluationID)
}

func (s *memLogStore) ListByTenant(_ context.Context, tenantID string, limit int) ([]types.TransformationLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.TransformationLog
	for _, log := range s.logs {
		if log.TenantID == tenantID && len(out) < limit {
			out = append(out, log)
		}
	}
	return out, nil
}

type memUsageStore struct {
	mu       sync.Mutex
	statuses map[string]int64
}

func newMemUsageStore() *memUsageStore {
	return &memUsageStore{statuses: make(map[string]int64)}
}

func (s *memUsageStore) IncrStatus(_ context.Context, _ string, status types.TransformationStatus, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[string(status)]++
	return nil
}

func (s *memUsageStore) IncrRule(context.Context, string, string, time.Time) error {
	return nil
}

func (s *memUsageStore) StatusCounts(context.Context, string, time.Time) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.statuses))
	for k, v := range s.statuses {
		out[k] = v
	}
	return out, nil
}

type echoService struct{}

func (echoService) Transform(_ context.Context, req *transform.Request) (string, []string, error) {
	return "[softened] " + req.Text, []string{"consider a greeting"}, nil
}

func newTestServer(t *testing.T) (*server, *memConfigStore, *memRuleStore) {
	t.Helper()

	configs := newMemConfigStore()
	rules := newMemRuleStore()
	logs := &memLogStore{}
	usage := newMemUsageStore()

	configCache, err := cache.NewLRU[*types.TenantConfig](16)
	require.NoError(t, err)
	ruleCache, err := cache.NewLRU[[]types.Rule](16)
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	cached := store.NewCachedStore(configs, rules, configCache, ruleCache, logger)

	eng, err := engine.New(cached, cached, logs, engine.Options{Logger: logger})
	require.NoError(t, err)

	coordinator, err := transform.NewCoordinator(echoService{}, logs, transform.CoordinatorOptions{
		Usage:  usage,
		Logger: logger,
	})
	require.NoError(t, err)
	t.Cleanup(coordinator.Close)

	limiter, err := ratelimit.NewSendLimiter(time.Millisecond)
	require.NoError(t, err)

	app := &application{
		store:       cached,
		logs:        logs,
		usage:       usage,
		engine:      eng,
		coordinator: coordinator,
		platforms:   platform.NewRegistry(),
		limiter:     limiter,
		configCache: configCache,
		ruleCache:   ruleCache,
	}

	return newServer(app, logger), configs, rules
}

func seedTenant(t *testing.T, srv *server, tenantID string) {
	t.Helper()

	err := srv.app.store.PutConfig(context.Background(), &types.TenantConfig{
		TenantID: tenantID,
		Enabled:  true,
	})
	require.NoError(t, err)

	err = srv.app.store.PutRule(context.Background(), tenantID, &types.Rule{
		ID:                 "rule-1",
		ConfigID:           tenantID,
		Name:               "soften urgency",
		Enabled:            true,
		Priority:           10,
		TriggerType:        types.TriggerKeyword,
		TriggerValue:       json.RawMessage(`{"keywords":["urgent"]}`),
		TransformationType: "soften",
	})
	require.NoError(t, err)
}

func doJSON(t *testing.T, srv *server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, appName, body["service"])
}

func TestHandleEvaluate(t *testing.T) {
	srv, _, _ := newTestServer(t)
	seedTenant(t, srv, "acme")

	rec := doJSON(t, srv, http.MethodPost, "/evaluate", &types.MessageContext{
		Message:  "this is urgent, respond today",
		UserID:   "u1",
		TenantID: "acme",
		Platform: "slack",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var result types.EvaluationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.ShouldTransform)
	assert.Equal(t, "rule-1", result.RuleID)
	assert.NotEmpty(t, result.EvaluationID)
}

func TestHandleEvaluateInvalidBody(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/evaluate", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleEvaluateMissingFields(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/evaluate", &types.MessageContext{
		Message: "no tenant or user",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleTransform(t *testing.T) {
	srv, _, _ := newTestServer(t)
	seedTenant(t, srv, "acme")

	rec := doJSON(t, srv, http.MethodPost, "/transform", &types.MessageContext{
		Message:  "this is urgent, respond today",
		UserID:   "u1",
		TenantID: "acme",
		Platform: "slack",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var result types.TransformResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, "[softened] this is urgent, respond today", result.Transformed)
	assert.Equal(t, "soften urgency", result.RuleApplied)
}

func TestHandleTransformNoMatchReturnsOriginal(t *testing.T) {
	srv, _, _ := newTestServer(t)
	seedTenant(t, srv, "acme")

	rec := doJSON(t, srv, http.MethodPost, "/transform", &types.MessageContext{
		Message:  "nothing remarkable here",
		UserID:   "u1",
		TenantID: "acme",
		Platform: "slack",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var result types.TransformResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, "nothing remarkable here", result.Transformed)
	assert.Empty(t, result.RuleApplied)
}

func TestHandleGetConfigMissing(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/config/unknown", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"enabled": false}`, rec.Body.String())
}

func TestHandlePutConfigUsesPathTenant(t *testing.T) {
	srv, configs, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPut, "/config/acme", map[string]any{
		"tenant_id": "ignored",
		"enabled":   true,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	stored, err := configs.GetConfig(context.Background(), "acme")
	require.NoError(t, err)
	assert.True(t, stored.Enabled)
}

func TestHandleRuleLifecycle(t *testing.T) {
	srv, _, _ := newTestServer(t)
	seedTenant(t, srv, "acme")

	rec := doJSON(t, srv, http.MethodGet, "/rules/acme", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rules []types.Rule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rules))
	require.Len(t, rules, 1)

	rec = doJSON(t, srv, http.MethodDelete, "/rules/acme/rule-1", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/rules/acme", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rules))
	assert.Empty(t, rules)
}

func TestHandleListLogsBadLimit(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/logs/acme?limit=-3", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type stubAdapter struct {
	name string
}

func (a *stubAdapter) Name() string                       { return a.name }
func (a *stubAdapter) Authenticate(context.Context) error { return nil }
func (a *stubAdapter) ParseEvent(context.Context, []byte) (*types.MessageContext, error) {
	return nil, nil
}
func (a *stubAdapter) FormatResponse(*types.TransformResult) (*platform.Message, error) {
	return nil, nil
}
func (a *stubAdapter) SendMessage(context.Context, *platform.Message) (string, error) {
	return "msg-1", nil
}
func (a *stubAdapter) UpdateMessage(context.Context, string, *platform.Message) error { return nil }
func (a *stubAdapter) DeleteMessage(context.Context, string, string) error            { return nil }
func (a *stubAdapter) GetUserInfo(context.Context, string) (*platform.UserInfo, error) {
	return nil, nil
}
func (a *stubAdapter) GetChannelInfo(context.Context, string) (*platform.ChannelInfo, error) {
	return nil, nil
}

func TestRegisterAdapter(t *testing.T) {
	srv, _, _ := newTestServer(t)

	sender, err := srv.app.RegisterAdapter(&stubAdapter{name: "slack"})
	require.NoError(t, err)
	require.NotNil(t, sender)

	id, err := sender.SendMessage(context.Background(), &platform.Message{
		ChannelID: "C1", Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)

	rec := doJSON(t, srv, http.MethodGet, "/platforms", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"platforms": ["slack"]}`, rec.Body.String())
}

func TestHandleUsageBadDate(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/usage/acme?date=yesterday", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
