package trigger

import (
	"fmt"
	"math"

	"github.com/House-lovers7/tone-bridge/errors"
	"github.com/House-lovers7/tone-bridge/types"
)

// Comparison operators for the sentiment trigger.
const (
	OperatorLessThan    = "less_than"
	OperatorGreaterThan = "greater_than"
	OperatorEquals      = "equals"
)

// equalsTolerance is the band around the threshold treated as equal.
const equalsTolerance = 0.1

// SentimentTrigger matches when message polarity compares to a threshold.
type SentimentTrigger struct {
	Threshold float64 `json:"threshold"`
	Operator  string  `json:"operator"`

	analyze func(string) float64
}

func compileSentiment(raw []byte) (*SentimentTrigger, error) {
	t := &SentimentTrigger{}
	if err := decodeValue(raw, t); err != nil {
		return nil, err
	}

	if t.Operator == "" {
		t.Operator = OperatorLessThan
	}

	switch t.Operator {
	case OperatorLessThan, OperatorGreaterThan, OperatorEquals:
	default:
		return nil, errors.Invalid("trigger", "compileSentiment",
			fmt.Sprintf("unknown sentiment operator %q", t.Operator))
	}

	t.analyze = AnalyzeSentiment

	return t, nil
}

// Type returns the trigger type tag.
func (t *SentimentTrigger) Type() types.TriggerType {
	return types.TriggerSentiment
}

// Evaluate scores the message polarity and compares it to the threshold.
// Confidence scales with distance from the threshold.
func (t *SentimentTrigger) Evaluate(msgCtx *types.MessageContext) Result {
	polarity := t.analyze(msgCtx.Message)

	matches := false
	switch t.Operator {
	case OperatorLessThan:
		matches = polarity < t.Threshold
	case OperatorGreaterThan:
		matches = polarity > t.Threshold
	case OperatorEquals:
		matches = math.Abs(polarity-t.Threshold) < equalsTolerance
	}

	if !matches {
		return noMatch("Sentiment check failed")
	}

	confidence := math.Abs(polarity-t.Threshold) / 2
	if confidence > 1.0 {
		confidence = 1.0
	}

	return Result{
		Matches:    true,
		Confidence: confidence,
		Reason: fmt.Sprintf("Sentiment polarity %.2f %s %g",
			polarity, t.Operator, t.Threshold),
	}
}
