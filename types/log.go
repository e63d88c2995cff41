package types

import "time"

// TransformationStatus tracks the lifecycle of a transformation attempt.
type TransformationStatus string

// Log statuses. A log starts as triggered and ends as transformed or failed.
const (
	StatusTriggered   TransformationStatus = "triggered"
	StatusTransformed TransformationStatus = "transformed"
	StatusFailed      TransformationStatus = "failed"
)

// TransformationLog records one transformation attempt from trigger to
// outcome. EvaluationID correlates the triggered row written at evaluation
// time with the update written at transform time.
type TransformationLog struct {
	EvaluationID       string               `json:"evaluation_id"`
	TenantID           string               `json:"tenant_id"`
	RuleID             string               `json:"rule_id"`
	UserID             string               `json:"user_id"`
	OriginalMessage    string               `json:"original_message"`
	TransformedMessage string               `json:"transformed_message,omitempty"`
	Platform           string               `json:"platform"`
	ChannelID          string               `json:"channel_id"`
	Status             TransformationStatus `json:"status"`
	ErrorMessage       string               `json:"error_message,omitempty"`
	TriggeredAt        time.Time            `json:"triggered_at"`
	ProcessedAt        *time.Time           `json:"processed_at,omitempty"`
}
