package trigger

import (
	"fmt"
	"time"

	"github.com/House-lovers7/tone-bridge/errors"
	"github.com/House-lovers7/tone-bridge/types"
)

var timeLayouts = []string{"15:04", "15:04:05"}

// TimeTrigger matches when the current time of day falls inside an
// optional [after, before) window. Unset bounds always match.
type TimeTrigger struct {
	After  string `json:"after"`
	Before string `json:"before"`

	afterMin  int // minutes since midnight, -1 when unset
	beforeMin int

	// now is replaceable for tests.
	now func() time.Time
}

func parseTimeOfDay(s string) (int, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Hour()*60 + t.Minute(), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q, want HH:MM", s)
}

func compileTime(raw []byte) (*TimeTrigger, error) {
	t := &TimeTrigger{afterMin: -1, beforeMin: -1, now: time.Now}
	if err := decodeValue(raw, t); err != nil {
		return nil, err
	}

	if t.After != "" {
		m, err := parseTimeOfDay(t.After)
		if err != nil {
			return nil, errors.WrapInvalid(err, "trigger", "compileTime", "parse after bound")
		}
		t.afterMin = m
	}

	if t.Before != "" {
		m, err := parseTimeOfDay(t.Before)
		if err != nil {
			return nil, errors.WrapInvalid(err, "trigger", "compileTime", "parse before bound")
		}
		t.beforeMin = m
	}

	return t, nil
}

// Type returns the trigger type tag.
func (t *TimeTrigger) Type() types.TriggerType {
	return types.TriggerTime
}

// Evaluate checks the wall clock against the configured window.
func (t *TimeTrigger) Evaluate(_ *types.MessageContext) Result {
	now := t.now()
	currentMin := now.Hour()*60 + now.Minute()

	if t.afterMin >= 0 && currentMin < t.afterMin {
		return noMatch("Before time window")
	}

	if t.beforeMin >= 0 && currentMin >= t.beforeMin {
		return noMatch("After time window")
	}

	return Result{
		Matches:    true,
		Confidence: 0.9,
		Reason:     fmt.Sprintf("Within time window: %s", now.Format("15:04")),
	}
}
