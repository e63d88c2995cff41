// Package types defines the tenant configuration, rule, and evaluation
// data model shared across the engine, stores, and transform coordinator.
package types

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/House-lovers7/tone-bridge/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// TriggerType identifies the kind of condition a rule matches on.
type TriggerType string

// Supported trigger types.
const (
	TriggerKeyword   TriggerType = "keyword"
	TriggerSentiment TriggerType = "sentiment"
	TriggerRecipient TriggerType = "recipient"
	TriggerChannel   TriggerType = "channel"
	TriggerTime      TriggerType = "time"
	TriggerPattern   TriggerType = "pattern"
)

// IsValid reports whether t is a known trigger type.
func (t TriggerType) IsValid() bool {
	switch t {
	case TriggerKeyword, TriggerSentiment, TriggerRecipient,
		TriggerChannel, TriggerTime, TriggerPattern:
		return true
	}
	return false
}

// TenantConfig holds a tenant's auto-transform settings. There is exactly
// one live config per tenant.
type TenantConfig struct {
	TenantID                  string    `json:"tenant_id" validate:"required"`
	Enabled                   bool      `json:"enabled"`
	DefaultTransformationType string    `json:"default_transformation_type"`
	DefaultIntensity          int       `json:"default_intensity" validate:"gte=0,lte=3"`
	MinMessageLength          int       `json:"min_message_length" validate:"gte=0"`
	MaxProcessingDelayMS      int       `json:"max_processing_delay_ms" validate:"gte=0"`
	RequireConfirmation       bool      `json:"require_confirmation"`
	ShowPreview               bool      `json:"show_preview"`
	PreserveOriginal          bool      `json:"preserve_original"`
	CreatedAt                 time.Time `json:"created_at"`
	UpdatedAt                 time.Time `json:"updated_at"`
}

// Validate checks structural constraints on the config.
func (c *TenantConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.WrapInvalid(err, "TenantConfig", "Validate", "check fields")
	}
	return nil
}

// Rule describes one auto-transform rule owned by a tenant config.
// TriggerValue holds the trigger-type-specific payload; its shape is
// validated when the trigger is compiled, not here.
type Rule struct {
	ID                      string          `json:"id" validate:"required"`
	ConfigID                string          `json:"config_id" validate:"required"`
	Name                    string          `json:"rule_name" validate:"required"`
	Enabled                 bool            `json:"enabled"`
	Priority                int             `json:"priority"`
	TriggerType             TriggerType     `json:"trigger_type" validate:"required"`
	TriggerValue            json.RawMessage `json:"trigger_value"`
	TransformationType      string          `json:"transformation_type" validate:"required"`
	TransformationIntensity int             `json:"transformation_intensity" validate:"gte=0,lte=3"`
	TransformationOptions   map[string]any  `json:"transformation_options,omitempty"`
	Platforms               []string        `json:"platforms,omitempty"`
	Channels                []string        `json:"channels,omitempty"`
	UserRoles               []string        `json:"user_roles,omitempty"`
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
}

// Validate checks structural constraints on the rule.
func (r *Rule) Validate() error {
	if err := validate.Struct(r); err != nil {
		return errors.WrapInvalid(err, "Rule", "Validate", "check fields")
	}
	if !r.TriggerType.IsValid() {
		return errors.Invalid("Rule", "Validate",
			"unknown trigger type "+string(r.TriggerType))
	}
	return nil
}

// AppliesTo reports whether the rule's platform and channel allow-lists
// admit the given context. Empty lists mean unrestricted.
func (r *Rule) AppliesTo(msgCtx *MessageContext) bool {
	if len(r.Platforms) > 0 && !contains(r.Platforms, msgCtx.Platform) {
		return false
	}
	if len(r.Channels) > 0 && !contains(r.Channels, msgCtx.ChannelID) {
		return false
	}
	return true
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

// MessageContext is the normalized form of an inbound platform event.
type MessageContext struct {
	Message      string         `json:"message" validate:"required"`
	UserID       string         `json:"user_id" validate:"required"`
	TenantID     string         `json:"tenant_id" validate:"required"`
	Platform     string         `json:"platform" validate:"required"`
	ChannelID    string         `json:"channel_id"`
	RecipientIDs []string       `json:"recipient_ids,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Validate rejects contexts missing the fields evaluation depends on.
func (m *MessageContext) Validate() error {
	if err := validate.Struct(m); err != nil {
		return errors.WrapInvalid(err, "MessageContext", "Validate", "check fields")
	}
	return nil
}

// EvaluationResult is the decision returned by rule evaluation. When
// ShouldTransform is false, Reason explains the negative decision.
type EvaluationResult struct {
	ShouldTransform         bool           `json:"should_transform"`
	EvaluationID            string         `json:"evaluation_id,omitempty"`
	RuleID                  string         `json:"rule_id,omitempty"`
	RuleName                string         `json:"rule_name,omitempty"`
	TransformationType      string         `json:"transformation_type,omitempty"`
	TransformationIntensity int            `json:"transformation_intensity,omitempty"`
	TransformationOptions   map[string]any `json:"transformation_options,omitempty"`
	Confidence              float64        `json:"confidence"`
	Reason                  string         `json:"reason"`
}

// TransformResult is the outcome of a coordinated transformation.
type TransformResult struct {
	Success     bool     `json:"success"`
	Original    string   `json:"original"`
	Transformed string   `json:"transformed"`
	RuleApplied string   `json:"rule_applied"`
	Confidence  float64  `json:"confidence"`
	Suggestions []string `json:"suggestions,omitempty"`
}
