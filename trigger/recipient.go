package trigger

import (
	"fmt"
	"strings"

	"github.com/House-lovers7/tone-bridge/types"
)

// RecipientTrigger matches on who the message is addressed to, either by
// explicit recipient ids or by role.
type RecipientTrigger struct {
	IDs   []string `json:"ids"`
	Roles []string `json:"roles"`

	idSet map[string]bool
}

func compileRecipient(raw []byte) (*RecipientTrigger, error) {
	t := &RecipientTrigger{}
	if err := decodeValue(raw, t); err != nil {
		return nil, err
	}

	t.idSet = make(map[string]bool, len(t.IDs))
	for _, id := range t.IDs {
		t.idSet[id] = true
	}

	return t, nil
}

// Type returns the trigger type tag.
func (t *RecipientTrigger) Type() types.TriggerType {
	return types.TriggerRecipient
}

// Evaluate matches on id intersection first, then falls back to roles.
// Role membership is not resolved against a directory yet, so a
// configured role list matches unconditionally at lower confidence.
// TODO: resolve roles via platform.Adapter.GetUserInfo once adapters
// expose role data.
func (t *RecipientTrigger) Evaluate(msgCtx *types.MessageContext) Result {
	if len(t.IDs) > 0 {
		var matching []string
		for _, id := range msgCtx.RecipientIDs {
			if t.idSet[id] {
				matching = append(matching, id)
			}
		}
		if len(matching) > 0 {
			return Result{
				Matches:    true,
				Confidence: 0.9,
				Reason:     fmt.Sprintf("Recipient match: %s", strings.Join(matching, ", ")),
			}
		}
	}

	if len(t.Roles) > 0 {
		return Result{
			Matches:    true,
			Confidence: 0.8,
			Reason:     fmt.Sprintf("Recipient role match: %s", strings.Join(t.Roles, ", ")),
		}
	}

	return noMatch("No recipient match")
}
