package trigger

import (
	"fmt"
	"log/slog"
	"regexp"

	"github.com/House-lovers7/tone-bridge/types"
)

// PatternTrigger matches when any configured regular expression matches
// the message. The first matching pattern wins.
type PatternTrigger struct {
	Patterns []string `json:"patterns"`

	compiled []compiledPattern
}

type compiledPattern struct {
	source string
	re     *regexp.Regexp
}

// compilePattern compiles each pattern up front. A malformed or overly
// complex pattern is skipped with a warning rather than failing the rule,
// so one bad expression cannot disable the rest of the list.
func compilePattern(raw []byte) (*PatternTrigger, error) {
	t := &PatternTrigger{}
	if err := decodeValue(raw, t); err != nil {
		return nil, err
	}

	t.compiled = make([]compiledPattern, 0, len(t.Patterns))
	for _, p := range t.Patterns {
		re, err := compileRegex(p)
		if err != nil {
			slog.Warn("skipping invalid trigger pattern", "pattern", p, "error", err)
			continue
		}
		t.compiled = append(t.compiled, compiledPattern{source: p, re: re})
	}

	return t, nil
}

// Type returns the trigger type tag.
func (t *PatternTrigger) Type() types.TriggerType {
	return types.TriggerPattern
}

// Evaluate returns the first pattern that matches the message.
func (t *PatternTrigger) Evaluate(msgCtx *types.MessageContext) Result {
	for _, cp := range t.compiled {
		if cp.re.MatchString(msgCtx.Message) {
			return Result{
				Matches:    true,
				Confidence: 0.9,
				Reason:     fmt.Sprintf("Pattern match: %s", cp.source),
			}
		}
	}

	return noMatch("No pattern match")
}
