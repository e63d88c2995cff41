// Package platform defines the adapter contract chat-platform bindings
// implement and a registry that dispatches on the platform tag carried
// by each message context.
package platform

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/House-lovers7/tone-bridge/errors"
	"github.com/House-lovers7/tone-bridge/types"
)

// UserInfo is the platform-agnostic view of a chat user.
type UserInfo struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	Email       string   `json:"email,omitempty"`
	Roles       []string `json:"roles,omitempty"`
}

// ChannelInfo is the platform-agnostic view of a channel.
type ChannelInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type,omitempty"`
	IsPrivate bool   `json:"is_private"`
}

// Message is an outbound message handed to an adapter.
type Message struct {
	ChannelID string         `json:"channel_id"`
	Text      string         `json:"text"`
	ThreadID  string         `json:"thread_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Adapter binds one chat platform. Implementations normalize platform
// events into MessageContext and render results back to the platform.
type Adapter interface {
	// Name returns the platform tag, e.g. "slack".
	Name() string
	// Authenticate establishes or refreshes the platform session.
	Authenticate(ctx context.Context) error
	// ParseEvent normalizes a raw platform event payload.
	ParseEvent(ctx context.Context, payload []byte) (*types.MessageContext, error)
	// FormatResponse renders a transform result for the platform.
	FormatResponse(result *types.TransformResult) (*Message, error)
	SendMessage(ctx context.Context, msg *Message) (string, error)
	UpdateMessage(ctx context.Context, messageID string, msg *Message) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	GetUserInfo(ctx context.Context, userID string) (*UserInfo, error)
	GetChannelInfo(ctx context.Context, channelID string) (*ChannelInfo, error)
}

// Registry maps platform tags to adapters. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter under its name. Registering the same name
// twice is an error.
func (r *Registry) Register(adapter Adapter) error {
	if adapter == nil {
		return errors.Invalid("platform", "Register", "adapter cannot be nil")
	}
	name := adapter.Name()
	if name == "" {
		return errors.Invalid("platform", "Register", "adapter name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.adapters[name]; exists {
		return errors.Invalid("platform", "Register",
			fmt.Sprintf("adapter %q already registered", name))
	}
	r.adapters[name] = adapter

	return nil
}

// Get returns the adapter for a platform tag.
func (r *Registry) Get(name string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, ok := r.adapters[name]
	if !ok {
		return nil, errors.Invalid("platform", "Get",
			fmt.Sprintf("no adapter registered for platform %q", name))
	}
	return adapter, nil
}

// Names returns the registered platform tags, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
