// Copyright (C) 2025 Josh Simonot
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
)

type Topic string
type Event = any

// Stats counts bus traffic since creation.
type Stats struct {
	Published int64 `json:"published"`
	Delivered int64 `json:"delivered"`
	Replaced  int64 `json:"replaced"`
	Dropped   int64 `json:"dropped"`
}

type subscriber struct {
	mu     sync.Mutex
	ch     chan Event
	done   chan struct{}
	closed bool
}

// shut closes the channel once; deliver holds the same lock so a send
// never races the close.
func (s *subscriber) shut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Bus is an in-memory pub/sub that keeps only the most recent event per
// topic and per subscriber. Slow subscribers see the latest value, never
// a backlog.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Topic]map[uint64]*subscriber
	last   map[Topic]Event
	nextID atomic.Uint64
	closed atomic.Bool

	published atomic.Int64
	delivered atomic.Int64
	replaced  atomic.Int64
	dropped   atomic.Int64
}

func New() *Bus {
	return &Bus{
		subs: make(map[Topic]map[uint64]*subscriber),
		last: make(map[Topic]Event),
	}
}

func (b *Bus) Stats() Stats {
	return Stats{
		Published: b.published.Load(),
		Delivered: b.delivered.Load(),
		Replaced:  b.replaced.Load(),
		Dropped:   b.dropped.Load(),
	}
}

// Publish stores ev as the last event of topic and hands it to every
// subscriber, replacing whatever the subscriber has not read yet.
func (b *Bus) Publish(topic Topic, ev Event) {
	if b.closed.Load() {
		return
	}
	b.published.Add(1)

	b.mu.Lock()
	b.last[topic] = ev
	targets := make([]*subscriber, 0, len(b.subs[topic]))
	for _, s := range b.subs[topic] {
		targets = append(targets, s)
	}
	b.mu.Unlock()

	for _, s := range targets {
		b.deliver(s, ev)
	}
}

// deliver never blocks: a full channel has its stale value swapped out.
func (b *Bus) deliver(s *subscriber, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	select {
	case s.ch <- ev:
		b.delivered.Add(1)
		return
	default:
	}

	select {
	case <-s.ch:
		b.replaced.Add(1)
	default:
	}

	select {
	case s.ch <- ev:
		b.delivered.Add(1)
	default:
		b.dropped.Add(1)
	}
}

// Subscribe returns a channel of events for topic and an unsubscribe func.
// With withLast, the last stored event (if any) is queued right away.
// The channel is closed once ctx is done, unsubscribe is called or the
// bus is closed.
func (b *Bus) Subscribe(ctx context.Context, topic Topic, withLast bool) (<-chan Event, func()) {
	if b.closed.Load() {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}

	s := &subscriber{ch: make(chan Event, 1), done: make(chan struct{})}
	id := b.nextID.Add(1)

	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uint64]*subscriber)
	}
	b.subs[topic][id] = s
	last, hasLast := b.last[topic]
	b.mu.Unlock()

	if withLast && hasLast {
		b.deliver(s, last)
	}

	var stopOnce sync.Once
	unsub := func() { stopOnce.Do(func() { close(s.done) }) }

	go func() {
		select {
		case <-ctx.Done():
		case <-s.done:
		}
		b.remove(topic, id)
	}()

	return s.ch, unsub
}

func (b *Bus) remove(topic Topic, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.subs[topic]
	if !ok {
		return
	}
	s, ok := m[id]
	if !ok {
		return
	}
	delete(m, id)
	if len(m) == 0 {
		delete(b.subs, topic)
	}
	s.shut()
}

// GetLast returns the last published event for a topic (if any).
func (b *Bus) GetLast(topic Topic) (Event, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.last[topic]
	return v, ok
}

// Close closes every subscriber channel. Afterwards Publish is a no-op and
// Subscribe returns a closed channel.
func (b *Bus) Close() {
	if b.closed.Swap(true) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range b.subs {
		for _, s := range m {
			s.shut()
		}
	}
	b.subs = make(map[Topic]map[uint64]*subscriber)
}
