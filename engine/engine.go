// Package engine decides whether an inbound message should be
// auto-transformed and with which parameters.
package engine

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/House-lovers7/tone-bridge/errors"
	"github.com/House-lovers7/tone-bridge/metric"
	"github.com/House-lovers7/tone-bridge/store"
	"github.com/House-lovers7/tone-bridge/types"
)

// Negative decision reasons, checked in this order before any trigger
// evaluation runs.
const (
	ReasonDisabled = "Auto-transform disabled"
	ReasonTooShort = "Message too short"
	ReasonNoRules  = "No active rules"
	ReasonNoMatch  = "No matching rules"
)

// ConfigReader is the read side of the config store the engine needs.
type ConfigReader interface {
	GetConfig(ctx context.Context, tenantID string) (*types.TenantConfig, error)
}

// RuleReader is the read side of the rule store the engine needs.
type RuleReader interface {
	ListRules(ctx context.Context, tenantID string) ([]types.Rule, error)
}

// Engine evaluates inbound messages against tenant rules.
type Engine struct {
	configs  ConfigReader
	rules    RuleReader
	logs     store.LogStore
	resolver *Resolver
	metrics  *metric.Metrics
	logger   *slog.Logger
}

// Options configures optional engine collaborators.
type Options struct {
	// Metrics receives evaluation counters; nil disables them.
	Metrics *metric.Metrics
	// Logger defaults to slog.Default.
	Logger *slog.Logger
	// MaxCachedTriggers bounds the compiled-trigger cache. Defaults to 1000.
	MaxCachedTriggers int
}

// New creates an engine over the given stores.
func New(configs ConfigReader, rules RuleReader, logs store.LogStore, opts Options) (*Engine, error) {
	if configs == nil || rules == nil {
		return nil, errors.Invalid("engine", "New", "config and rule stores cannot be nil")
	}
	if logs == nil {
		return nil, errors.Invalid("engine", "New", "log store cannot be nil")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "engine")

	maxTriggers := opts.MaxCachedTriggers
	if maxTriggers <= 0 {
		maxTriggers = 1000
	}

	resolver, err := NewResolver(maxTriggers, logger)
	if err != nil {
		return nil, errors.Wrap(err, "engine", "New", "create resolver")
	}

	return &Engine{
		configs:  configs,
		rules:    rules,
		logs:     logs,
		resolver: resolver,
		metrics:  opts.Metrics,
		logger:   logger,
	}, nil
}

func negative(reason string) *types.EvaluationResult {
	return &types.EvaluationResult{
		ShouldTransform: false,
		Confidence:      0.0,
		Reason:          reason,
	}
}

func (e *Engine) recordDecision(tenantID, decision string) {
	if e.metrics != nil {
		e.metrics.RecordEvaluation(tenantID, decision)
	}
}

// Evaluate decides whether the message should be transformed. A negative
// decision is a structured result with a reason, not an error; errors
// mean the context was invalid or a store was unreachable. On a positive
// decision a triggered log row is written and its evaluation id is
// returned in the result for correlation by Transform.
func (e *Engine) Evaluate(ctx context.Context, msgCtx *types.MessageContext) (*types.EvaluationResult, error) {
	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.RecordEvaluationDuration("evaluate", time.Since(start))
		}
	}()

	if msgCtx == nil {
		return nil, errors.Invalid("engine", "Evaluate", "message context cannot be nil")
	}
	if err := msgCtx.Validate(); err != nil {
		e.recordDecision(msgCtx.TenantID, metric.DecisionRejected)
		return nil, err
	}

	// Config and rules load concurrently; both reads go through the
	// cache-store.
	var (
		cfg   *types.TenantConfig
		rules []types.Rule
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cfg, err = e.configs.GetConfig(gctx, msgCtx.TenantID)
		if err != nil && !stderrors.Is(err, errors.ErrConfigNotFound) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		var err error
		rules, err = e.rules.ListRules(gctx, msgCtx.TenantID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errors.WrapTransient(err, "engine", "Evaluate", "load tenant state")
	}

	// A tenant without config is disabled, not an error.
	if cfg == nil || !cfg.Enabled {
		e.recordDecision(msgCtx.TenantID, metric.DecisionDisabled)
		return negative(ReasonDisabled), nil
	}

	if utf8.RuneCountInString(msgCtx.Message) < cfg.MinMessageLength {
		e.recordDecision(msgCtx.TenantID, metric.DecisionTooShort)
		return negative(ReasonTooShort), nil
	}

	enabled := rules[:0:0]
	for _, r := range rules {
		if r.Enabled {
			enabled = append(enabled, r)
		}
	}
	if len(enabled) == 0 {
		e.recordDecision(msgCtx.TenantID, metric.DecisionNoRules)
		return negative(ReasonNoRules), nil
	}

	match := e.resolver.Resolve(msgCtx, enabled)
	if match == nil {
		e.recordDecision(msgCtx.TenantID, metric.DecisionNoMatch)
		return negative(ReasonNoMatch), nil
	}

	result := &types.EvaluationResult{
		ShouldTransform:         true,
		EvaluationID:            uuid.NewString(),
		RuleID:                  match.rule.ID,
		RuleName:                match.rule.Name,
		TransformationType:      match.rule.TransformationType,
		TransformationIntensity: match.rule.TransformationIntensity,
		TransformationOptions:   match.rule.TransformationOptions,
		Confidence:              match.result.Confidence,
		Reason:                  match.result.Reason,
	}

	log := &types.TransformationLog{
		EvaluationID:    result.EvaluationID,
		TenantID:        msgCtx.TenantID,
		RuleID:          match.rule.ID,
		UserID:          msgCtx.UserID,
		OriginalMessage: msgCtx.Message,
		Platform:        msgCtx.Platform,
		ChannelID:       msgCtx.ChannelID,
	}
	if err := e.logs.CreateTriggered(ctx, log); err != nil {
		if e.metrics != nil {
			e.metrics.RecordStoreError("logs", "create_triggered")
		}
		return nil, errors.WrapTransient(err, "engine", "Evaluate", "write triggered log")
	}

	e.recordDecision(msgCtx.TenantID, metric.DecisionTransform)
	if e.metrics != nil {
		e.metrics.RecordRuleMatch(msgCtx.TenantID, match.rule.ID)
	}

	e.logger.Debug("rule matched",
		"tenant_id", msgCtx.TenantID,
		"rule_id", match.rule.ID,
		"rule_name", match.rule.Name,
		"confidence", match.result.Confidence,
		"evaluation_id", result.EvaluationID)

	return result, nil
}
