// Package tonebridge provides the decision layer for chat message
// auto-transformation: it evaluates inbound messages against per-tenant
// rules and coordinates transformation of the messages that match.
//
// # Architecture
//
// The module is organized as a pipeline from inbound message to
// transformed output:
//
//	┌─────────────────────────────────────┐
//	│          Engine                     │  Config gate, rule scoping,
//	│   (evaluate, resolve winner)        │  trigger evaluation
//	└─────────────────────────────────────┘
//	           ↓ positive decision
//	┌─────────────────────────────────────┐
//	│        Coordinator                  │  Transform service call,
//	│  (transform, log, usage counters)   │  log lifecycle
//	└─────────────────────────────────────┘
//	           ↓ persisted via
//	┌─────────────────────────────────────┐
//	│        NATS JetStream KV            │  Configs, rules, logs,
//	│    (CAS updates, TTL buckets)       │  usage counters
//	└─────────────────────────────────────┘
//
// # Packages
//
//   - engine: rule evaluation and winner resolution. Loads the tenant
//     config and rules concurrently, compiles triggers, and picks the
//     highest-priority match with confidence as the tiebreak.
//   - trigger: the six trigger kinds (keyword, sentiment, recipient,
//     channel, time, pattern) compiled once per rule revision and
//     evaluated against normalized message contexts.
//   - transform: HTTP client for the transformation service plus the
//     coordinator that transitions transformation logs and tracks
//     usage counters.
//   - store: NATS KV persistence for tenant configs, rule lists,
//     transformation logs, and daily usage counters, with a cached
//     read-through layer in front of configs and rules.
//   - platform: the chat platform adapter contract and a registry,
//     plus a rate-limited sender wrapper.
//   - types: the shared data model (tenant config, rule, message
//     context, evaluation and transform results, transformation log).
//   - natsclient: NATS connection management and a typed KV store
//     with compare-and-swap retry semantics.
//   - config, errors, metric, pkg/cache, pkg/ratelimit, pkg/retry:
//     configuration loading, classified errors, Prometheus metrics,
//     generic TTL/LRU caches, send throttling, and retry helpers.
//
// # Evaluation Semantics
//
// Evaluation is fail-closed: a missing or disabled tenant config, a
// message below the tenant's minimum length, or an empty rule set all
// short-circuit to a negative decision with a stable reason string.
// Among matching rules the winner is the highest priority; equal
// priorities are broken by trigger confidence. A rule whose trigger
// payload fails to compile is skipped and logged rather than failing
// the whole evaluation.
//
// Every positive decision writes a triggered transformation log keyed
// by evaluation id. The coordinator later transitions that log to
// transformed or failed, so a log row never reports success for a
// transformation that did not complete.
package tonebridge
