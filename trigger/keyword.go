package trigger

import (
	"fmt"
	"strings"

	"github.com/House-lovers7/tone-bridge/types"
)

// KeywordTrigger matches when the message contains any configured keyword.
type KeywordTrigger struct {
	Keywords []string `json:"keywords"`

	lowered []string
}

func compileKeyword(raw []byte) (*KeywordTrigger, error) {
	t := &KeywordTrigger{}
	if err := decodeValue(raw, t); err != nil {
		return nil, err
	}

	t.lowered = make([]string, len(t.Keywords))
	for i, kw := range t.Keywords {
		t.lowered[i] = strings.ToLower(kw)
	}

	return t, nil
}

// Type returns the trigger type tag.
func (t *KeywordTrigger) Type() types.TriggerType {
	return types.TriggerKeyword
}

// Evaluate performs a case-insensitive substring search for each keyword.
// Confidence is the fraction of configured keywords found.
func (t *KeywordTrigger) Evaluate(msgCtx *types.MessageContext) Result {
	if len(t.Keywords) == 0 {
		return noMatch("No keywords found")
	}

	messageLower := strings.ToLower(msgCtx.Message)

	var found []string
	for i, kw := range t.lowered {
		if strings.Contains(messageLower, kw) {
			found = append(found, t.Keywords[i])
		}
	}

	if len(found) == 0 {
		return noMatch("No keywords found")
	}

	confidence := float64(len(found)) / float64(len(t.Keywords))
	if confidence > 1.0 {
		confidence = 1.0
	}

	return Result{
		Matches:    true,
		Confidence: confidence,
		Reason:     fmt.Sprintf("Contains keywords: %s", strings.Join(found, ", ")),
	}
}
