package transform

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/House-lovers7/tone-bridge/errors"
	"github.com/House-lovers7/tone-bridge/metric"
	"github.com/House-lovers7/tone-bridge/store"
	"github.com/House-lovers7/tone-bridge/types"
)

// usageTimeout bounds best-effort usage writes so a slow store cannot
// pile up goroutines.
const usageTimeout = 5 * time.Second

// Service is the part of the client the coordinator needs.
type Service interface {
	Transform(ctx context.Context, req *Request) (string, []string, error)
}

// Coordinator applies a positive evaluation decision: it calls the
// transformation service, transitions the correlated log row, and emits
// usage counters.
type Coordinator struct {
	service Service
	logs    store.LogStore
	usage   store.UsageStore
	metrics *metric.Metrics
	logger  *slog.Logger

	wg  sync.WaitGroup
	now func() time.Time
}

// CoordinatorOptions configures optional collaborators.
type CoordinatorOptions struct {
	// Usage receives daily counters; nil disables them.
	Usage store.UsageStore
	// Metrics receives transform counters; nil disables them.
	Metrics *metric.Metrics
	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// NewCoordinator creates a coordinator over the given service and log store.
func NewCoordinator(service Service, logs store.LogStore, opts CoordinatorOptions) (*Coordinator, error) {
	if service == nil {
		return nil, errors.Invalid("transform", "NewCoordinator", "service cannot be nil")
	}
	if logs == nil {
		return nil, errors.Invalid("transform", "NewCoordinator", "log store cannot be nil")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Coordinator{
		service: service,
		logs:    logs,
		usage:   opts.Usage,
		metrics: opts.Metrics,
		logger:  logger.With("component", "coordinator"),
		now:     time.Now,
	}, nil
}

// Transform applies the evaluation decision to the message. The
// evaluation must have ShouldTransform set. A service failure transitions
// the log to failed and is returned to the caller; it is never converted
// into an empty success.
func (c *Coordinator) Transform(ctx context.Context, msgCtx *types.MessageContext,
	eval *types.EvaluationResult) (*types.TransformResult, error) {

	if msgCtx == nil || eval == nil {
		return nil, errors.Invalid("transform", "Transform", "context and evaluation cannot be nil")
	}
	if !eval.ShouldTransform {
		return nil, errors.Invalid("transform", "Transform",
			"evaluation did not indicate transformation")
	}
	if err := msgCtx.Validate(); err != nil {
		return nil, err
	}

	start := c.now()

	transformed, suggestions, err := c.service.Transform(ctx, &Request{
		Text:               msgCtx.Message,
		TransformationType: eval.TransformationType,
		Intensity:          eval.TransformationIntensity,
		Options:            eval.TransformationOptions,
	})
	if c.metrics != nil {
		c.metrics.RecordTransformDuration(time.Since(start))
	}

	if err != nil {
		if markErr := c.logs.MarkFailed(ctx, msgCtx.TenantID, msgCtx.UserID,
			eval.EvaluationID, err.Error()); markErr != nil {
			c.logger.Error("failed to mark log as failed",
				"tenant_id", msgCtx.TenantID, "evaluation_id", eval.EvaluationID,
				"error", markErr)
		}
		c.trackOutcome(msgCtx.TenantID, eval.RuleID, types.StatusFailed)
		return nil, errors.Wrap(err, "transform", "Transform", "transformation service call")
	}

	if err := c.logs.MarkTransformed(ctx, msgCtx.TenantID, msgCtx.UserID,
		eval.EvaluationID, transformed); err != nil {
		c.trackOutcome(msgCtx.TenantID, eval.RuleID, types.StatusFailed)
		return nil, errors.WrapTransient(err, "transform", "Transform", "update log")
	}

	c.trackOutcome(msgCtx.TenantID, eval.RuleID, types.StatusTransformed)

	return &types.TransformResult{
		Success:     true,
		Original:    msgCtx.Message,
		Transformed: transformed,
		RuleApplied: eval.RuleName,
		Confidence:  eval.Confidence,
		Suggestions: suggestions,
	}, nil
}

// trackOutcome emits counters asynchronously. Usage-write failures are
// logged and never affect the transform outcome.
func (c *Coordinator) trackOutcome(tenantID, ruleID string, status types.TransformationStatus) {
	if c.metrics != nil {
		c.metrics.RecordTransform(tenantID, string(status))
	}

	if c.usage == nil {
		return
	}

	day := c.now()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), usageTimeout)
		defer cancel()

		if err := c.usage.IncrStatus(ctx, tenantID, status, day); err != nil {
			c.logger.Warn("usage status increment failed",
				"tenant_id", tenantID, "status", status, "error", err)
		}
		if ruleID != "" {
			if err := c.usage.IncrRule(ctx, tenantID, ruleID, day); err != nil {
				c.logger.Warn("usage rule increment failed",
					"tenant_id", tenantID, "rule_id", ruleID, "error", err)
			}
		}
	}()
}

// Close waits for in-flight usage writes to finish.
func (c *Coordinator) Close() {
	c.wg.Wait()
}
