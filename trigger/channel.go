package trigger

import (
	"fmt"
	"strings"

	"github.com/House-lovers7/tone-bridge/types"
)

// ChannelTrigger matches on the channel the message was posted in, by
// exact id or by a substring heuristic on the channel type.
type ChannelTrigger struct {
	IDs         []string `json:"ids"`
	ChannelType string   `json:"type"`

	idSet map[string]bool
}

func compileChannel(raw []byte) (*ChannelTrigger, error) {
	t := &ChannelTrigger{}
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
func (t *ChannelTrigger) Type() types.TriggerType {
	return types.TriggerChannel
}

// Evaluate checks the context channel against the configured ids, then
// against the type heuristic. Channel metadata lookups are not wired in,
// so the type check is a substring match on the channel id.
func (t *ChannelTrigger) Evaluate(msgCtx *types.MessageContext) Result {
	if msgCtx.ChannelID == "" {
		return noMatch("No channel specified")
	}

	if t.idSet[msgCtx.ChannelID] {
		return Result{
			Matches:    true,
			Confidence: 1.0,
			Reason:     fmt.Sprintf("Channel match: %s", msgCtx.ChannelID),
		}
	}

	if t.ChannelType != "" && strings.Contains(strings.ToLower(msgCtx.ChannelID), strings.ToLower(t.ChannelType)) {
		return Result{
			Matches:    true,
			Confidence: 0.8,
			Reason:     fmt.Sprintf("Channel type match: %s", t.ChannelType),
		}
	}

	return noMatch("No channel match")
}
