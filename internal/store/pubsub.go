package store

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

const subscriptionBuffer = 64

// Message is a payload received on a channel.
type Message struct {
	Channel string
	Payload string
}

// Subscription delivers messages for a fixed set of channels. Slow readers
// lose messages rather than stall the publisher.
type Subscription struct {
	channels map[string]bool
	msgCh    chan *Message
	closeCh  chan struct{}

	mu        sync.RWMutex
	closed    bool
	onClose   func()
	closeOnce sync.Once
}

func newSubscription(channels []string) *Subscription {
	set := make(map[string]bool, len(channels))
	for _, ch := range channels {
		set[ch] = true
	}
	return &Subscription{
		channels: set,
		msgCh:    make(chan *Message, subscriptionBuffer),
		closeCh:  make(chan struct{}),
	}
}

// Channel is closed once the subscription ends.
func (s *Subscription) Channel() <-chan *Message {
	return s.msgCh
}

func (s *Subscription) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.closeCh)
		close(s.msgCh)
		s.mu.Unlock()

		if s.onClose != nil {
			s.onClose()
		}
	})
	return nil
}

func (s *Subscription) deliver(msg *Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed || !s.channels[msg.Channel] {
		return
	}
	select {
	case s.msgCh <- msg:
	default:
	}
}

// relayRedis copies messages from a redis subscription until ctx ends or
// the subscription is closed.
func relayRedis(ctx context.Context, ps *redis.PubSub, channels []string) *Subscription {
	sub := newSubscription(channels)
	sub.onClose = func() { _ = ps.Close() }

	go func() {
		in := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				sub.Close()
				return
			case <-sub.closeCh:
				return
			case m, ok := <-in:
				if !ok {
					sub.Close()
					return
				}
				sub.deliver(&Message{Channel: m.Channel, Payload: m.Payload})
			}
		}
	}()
	return sub
}

// PubSubHub is the in-process stand-in for Redis pub/sub.
type PubSubHub struct {
	mu          sync.RWMutex
	subscribers map[string][]*Subscription
}

func NewPubSubHub() *PubSubHub {
	return &PubSubHub{subscribers: make(map[string][]*Subscription)}
}

func (h *PubSubHub) Subscribe(ctx context.Context, channels ...string) *Subscription {
	sub := newSubscription(channels)
	sub.onClose = func() { h.remove(sub, channels) }

	h.mu.Lock()
	for _, ch := range channels {
		h.subscribers[ch] = append(h.subscribers[ch], sub)
	}
	h.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.closeCh:
		}
	}()
	return sub
}

func (h *PubSubHub) remove(sub *Subscription, channels []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range channels {
		subs := h.subscribers[ch]
		for i, s := range subs {
			if s == sub {
				h.subscribers[ch] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
		if len(h.subscribers[ch]) == 0 {
			delete(h.subscribers, ch)
		}
	}
}

// Publish delivers payload to every current subscriber of channel.
func (h *PubSubHub) Publish(channel, payload string) {
	h.mu.RLock()
	subs := append([]*Subscription(nil), h.subscribers[channel]...)
	h.mu.RUnlock()

	msg := &Message{Channel: channel, Payload: payload}
	for _, s := range subs {
		s.deliver(msg)
	}
}

func (h *PubSubHub) subscriberCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[channel])
}
