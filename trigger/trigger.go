// Package trigger implements the trigger conditions rules match against
// inbound messages. Each trigger type has a strongly typed value compiled
// from its JSON form once per rule, so malformed values are caught at
// load time rather than during evaluation.
package trigger

import (
	"encoding/json"
	"fmt"

	"github.com/House-lovers7/tone-bridge/errors"
	"github.com/House-lovers7/tone-bridge/types"
)

// Result is the outcome of evaluating one trigger against a message.
type Result struct {
	Matches    bool    `json:"matches"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

func noMatch(reason string) Result {
	return Result{Matches: false, Confidence: 0.0, Reason: reason}
}

// Trigger evaluates one condition against a message context. Evaluate
// never returns an error; internal failures degrade to a non-match.
type Trigger interface {
	Type() types.TriggerType
	Evaluate(msgCtx *types.MessageContext) Result
}

// Compile parses a trigger value into its typed form. The returned
// Trigger is safe for concurrent use and should be cached per rule.
func Compile(triggerType types.TriggerType, raw json.RawMessage) (Trigger, error) {
	switch triggerType {
	case types.TriggerKeyword:
		return compileKeyword(raw)
	case types.TriggerSentiment:
		return compileSentiment(raw)
	case types.TriggerRecipient:
		return compileRecipient(raw)
	case types.TriggerChannel:
		return compileChannel(raw)
	case types.TriggerTime:
		return compileTime(raw)
	case types.TriggerPattern:
		return compilePattern(raw)
	default:
		return nil, errors.Invalid("trigger", "Compile",
			fmt.Sprintf("unknown trigger type %q", triggerType))
	}
}

func decodeValue(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.WrapInvalid(err, "trigger", "Compile", "decode trigger value")
	}
	return nil
}
