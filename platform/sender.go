package platform

import (
	"context"
	"fmt"

	"github.com/House-lovers7/tone-bridge/errors"
	"github.com/House-lovers7/tone-bridge/pkg/ratelimit"
)

// ThrottledSender wraps an adapter's send path with the per-destination
// rate limiter, so outbound messages to one channel respect the minimum
// send interval while sends to other channels proceed independently.
type ThrottledSender struct {
	adapter Adapter
	limiter *ratelimit.SendLimiter
}

// NewThrottledSender wraps the adapter with the limiter.
func NewThrottledSender(adapter Adapter, limiter *ratelimit.SendLimiter) (*ThrottledSender, error) {
	if adapter == nil {
		return nil, errors.Invalid("platform", "NewThrottledSender", "adapter cannot be nil")
	}
	if limiter == nil {
		return nil, errors.Invalid("platform", "NewThrottledSender", "limiter cannot be nil")
	}

	return &ThrottledSender{adapter: adapter, limiter: limiter}, nil
}

func (s *ThrottledSender) destination(channelID string) string {
	return fmt.Sprintf("%s:%s", s.adapter.Name(), channelID)
}

// SendMessage blocks until the destination's send interval allows the
// message, then delegates to the adapter.
func (s *ThrottledSender) SendMessage(ctx context.Context, msg *Message) (string, error) {
	if msg == nil {
		return "", errors.Invalid("platform", "SendMessage", "message cannot be nil")
	}

	if err := s.limiter.Wait(ctx, s.destination(msg.ChannelID)); err != nil {
		return "", errors.WrapTransient(err, "platform", "SendMessage", "wait for send slot")
	}

	return s.adapter.SendMessage(ctx, msg)
}

// UpdateMessage is throttled the same way as sends.
func (s *ThrottledSender) UpdateMessage(ctx context.Context, messageID string, msg *Message) error {
	if msg == nil {
		return errors.Invalid("platform", "UpdateMessage", "message cannot be nil")
	}

	if err := s.limiter.Wait(ctx, s.destination(msg.ChannelID)); err != nil {
		return errors.WrapTransient(err, "platform", "UpdateMessage", "wait for send slot")
	}

	return s.adapter.UpdateMessage(ctx, messageID, msg)
}
