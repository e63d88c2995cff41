package engine

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/House-lovers7/tone-bridge/pkg/cache"
	"github.com/House-lovers7/tone-bridge/trigger"
	"github.com/House-lovers7/tone-bridge/types"
)

// ruleMatch pairs a rule with its trigger evaluation.
type ruleMatch struct {
	rule   types.Rule
	result trigger.Result
}

// Resolver scopes, evaluates, and ranks rules to pick one winner.
// Compiled triggers are cached by rule id and version so regex and
// lexicon setup happens once per rule update, not per message.
type Resolver struct {
	triggers cache.Cache[trigger.Trigger]
	logger   *slog.Logger
}

// NewResolver creates a resolver with a compiled-trigger cache sized for
// maxCachedTriggers rules.
func NewResolver(maxCachedTriggers int, logger *slog.Logger) (*Resolver, error) {
	if logger == nil {
		logger = slog.Default()
	}

	triggers, err := cache.NewLRU[trigger.Trigger](maxCachedTriggers)
	if err != nil {
		return nil, err
	}

	return &Resolver{
		triggers: triggers,
		logger:   logger.With("component", "resolver"),
	}, nil
}

func triggerCacheKey(rule *types.Rule) string {
	return fmt.Sprintf("%s@%d", rule.ID, rule.UpdatedAt.UnixNano())
}

// compiledTrigger returns the rule's trigger, compiling and caching it
// on first use.
func (r *Resolver) compiledTrigger(rule *types.Rule) (trigger.Trigger, error) {
	key := triggerCacheKey(rule)
	if trig, found := r.triggers.Get(key); found {
		return trig, nil
	}

	trig, err := trigger.Compile(rule.TriggerType, rule.TriggerValue)
	if err != nil {
		return nil, err
	}

	r.triggers.Set(key, trig)

	return trig, nil
}

// Resolve evaluates the given rules against the context and returns the
// winning match, or nil when no rule matches. Rules whose allow-lists
// exclude the context are skipped, and a rule whose trigger fails to
// compile degrades to a non-match rather than aborting resolution.
func (r *Resolver) Resolve(msgCtx *types.MessageContext, rules []types.Rule) *ruleMatch {
	var matches []ruleMatch

	for i := range rules {
		rule := &rules[i]

		if !rule.AppliesTo(msgCtx) {
			continue
		}

		trig, err := r.compiledTrigger(rule)
		if err != nil {
			r.logger.Warn("skipping rule with invalid trigger",
				"rule_id", rule.ID, "trigger_type", rule.TriggerType, "error", err)
			continue
		}

		result := trig.Evaluate(msgCtx)
		if !result.Matches {
			continue
		}

		matches = append(matches, ruleMatch{rule: *rule, result: result})
	}

	if len(matches) == 0 {
		return nil
	}

	// Priority is the primary key; confidence breaks ties within equal
	// priority. The sort is stable so rule order decides exact ties.
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].rule.Priority != matches[j].rule.Priority {
			return matches[i].rule.Priority > matches[j].rule.Priority
		}
		return matches[i].result.Confidence > matches[j].result.Confidence
	})

	return &matches[0]
}
