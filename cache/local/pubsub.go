package local

import (
	"context"
	"sync"
)

// LocalMessage is an in-process pub/sub message.
type LocalMessage struct {
	Channel string
	Payload string
}

type subscriber struct {
	ch   chan *LocalMessage
	once sync.Once
}

// LocalPubSub is an in-process fan-out pub/sub implementation. One
// subscriber can listen on several channels through a single message
// channel, matching the Redis subscribe shape.
type LocalPubSub struct {
	mu       sync.RWMutex
	channels map[string]map[*subscriber]struct{}
	bufSize  int
}

// NewPubSub creates a LocalPubSub with the given per-subscriber buffer size.
func NewPubSub(bufSize int) *LocalPubSub {
	if bufSize <= 0 {
		bufSize = 256
	}
	return &LocalPubSub{
		channels: make(map[string]map[*subscriber]struct{}),
		bufSize:  bufSize,
	}
}

// Publish delivers a message to every subscriber of the channel. A
// subscriber with a full buffer misses the message rather than blocking
// the publisher; social events are advisory and the client can re-fetch.
func (ps *LocalPubSub) Publish(_ context.Context, channel, message string) error {
	msg := &LocalMessage{Channel: channel, Payload: message}
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	for s := range ps.channels[channel] {
		select {
		case s.ch <- msg:
		default:
		}
	}
	return nil
}

// Subscribe registers for the given channels and returns the message
// stream plus an idempotent cancel that closes it.
func (ps *LocalPubSub) Subscribe(_ context.Context, channels ...string) (<-chan *LocalMessage, func(), error) {
	sub := &subscriber{ch: make(chan *LocalMessage, ps.bufSize)}

	ps.mu.Lock()
	for _, name := range channels {
		set, ok := ps.channels[name]
		if !ok {
			set = make(map[*subscriber]struct{})
			ps.channels[name] = set
		}
		set[sub] = struct{}{}
	}
	ps.mu.Unlock()

	cancel := func() {
		sub.once.Do(func() {
			ps.mu.Lock()
			for _, name := range channels {
				set := ps.channels[name]
				delete(set, sub)
				if len(set) == 0 {
					delete(ps.channels, name)
				}
			}
			ps.mu.Unlock()
			close(sub.ch)
		})
	}

	return sub.ch, cancel, nil
}
