package platform

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/House-lovers7/tone-bridge/pkg/ratelimit"
	"github.com/House-lovers7/tone-bridge/types"
)

// stubAdapter records sends; only the methods the tests exercise do
// anything useful.
type stubAdapter struct {
	name string

	mu    sync.Mutex
	sends []time.Time
}

func (a *stubAdapter) Name() string                       { return a.name }
func (a *stubAdapter) Authenticate(context.Context) error { return nil }

func (a *stubAdapter) ParseEvent(context.Context, []byte) (*types.MessageContext, error) {
	return nil, nil
}

func (a *stubAdapter) FormatResponse(result *types.TransformResult) (*Message, error) {
	return &Message{Text: result.Transformed}, nil
}

func (a *stubAdapter) SendMessage(_ context.Context, _ *Message) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sends = append(a.sends, time.Now())
	return "msg-1", nil
}

func (a *stubAdapter) UpdateMessage(context.Context, string, *Message) error { return nil }
func (a *stubAdapter) DeleteMessage(context.Context, string, string) error   { return nil }

func (a *stubAdapter) GetUserInfo(context.Context, string) (*UserInfo, error) {
	return &UserInfo{}, nil
}

func (a *stubAdapter) GetChannelInfo(context.Context, string) (*ChannelInfo, error) {
	return &ChannelInfo{}, nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()

	slack := &stubAdapter{name: "slack"}
	teams := &stubAdapter{name: "teams"}

	require.NoError(t, r.Register(slack))
	require.NoError(t, r.Register(teams))

	got, err := r.Get("slack")
	require.NoError(t, err)
	assert.Same(t, slack, got)

	assert.Equal(t, []string{"slack", "teams"}, r.Names())
}

func TestRegistryRejectsDuplicatesAndUnknown(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubAdapter{name: "slack"}))

	err := r.Register(&stubAdapter{name: "slack"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	_, err = r.Get("discord")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no adapter registered")

	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(&stubAdapter{name: ""}))
}

func TestThrottledSenderEnforcesInterval(t *testing.T) {
	adapter := &stubAdapter{name: "slack"}
	limiter, err := ratelimit.NewSendLimiter(50 * time.Millisecond)
	require.NoError(t, err)

	sender, err := NewThrottledSender(adapter, limiter)
	require.NoError(t, err)

	ctx := context.Background()
	msg := &Message{ChannelID: "C1", Text: "hello"}

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := sender.SendMessage(ctx, msg)
		require.NoError(t, err)
	}
	elapsed := time.Since(start)

	// Three sends to one destination need two full intervals.
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Len(t, adapter.sends, 3)
}

func TestThrottledSenderDestinationsIndependent(t *testing.T) {
	adapter := &stubAdapter{name: "slack"}
	limiter, err := ratelimit.NewSendLimiter(time.Hour)
	require.NoError(t, err)

	sender, err := NewThrottledSender(adapter, limiter)
	require.NoError(t, err)

	ctx := context.Background()

	start := time.Now()
	_, err = sender.SendMessage(ctx, &Message{ChannelID: "C1"})
	require.NoError(t, err)
	_, err = sender.SendMessage(ctx, &Message{ChannelID: "C2"})
	require.NoError(t, err)

	// First send per destination goes through immediately.
	assert.Less(t, time.Since(start), time.Second)
}

func TestThrottledSenderContextCancellation(t *testing.T) {
	adapter := &stubAdapter{name: "slack"}
	limiter, err := ratelimit.NewSendLimiter(time.Hour)
	require.NoError(t, err)

	sender, err := NewThrottledSender(adapter, limiter)
	require.NoError(t, err)

	msg := &Message{ChannelID: "C1"}
	_, err = sender.SendMessage(context.Background(), msg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = sender.SendMessage(ctx, msg)
	require.Error(t, err)
	assert.Len(t, adapter.sends, 1)
}
