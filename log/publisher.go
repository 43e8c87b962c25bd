package log

import (
	"bytes"
	"sync"
)

const defaultBufferSize = 64

// Publisher is an [io.Writer] that copies every write to each active
// [Subscription].
//
// Writes never block. When a subscriber falls behind and its buffer is
// full, its oldest entry is discarded. Safe for concurrent use.
//
// Create instances with [NewPublisher].
type Publisher struct {
	subs    map[*Subscription]struct{}
	bufSize int
	mu      sync.Mutex
	closed  bool
}

// PublisherOption configures a [Publisher].
type PublisherOption func(*Publisher)

// WithBufferSize sets the number of entries buffered per subscription.
// Values below 1 are raised to 1.
func WithBufferSize(n int) PublisherOption {
	return func(p *Publisher) {
		p.bufSize = max(n, 1)
	}
}

// NewPublisher creates a [Publisher]. Subscriptions buffer 64 entries
// unless [WithBufferSize] says otherwise.
func NewPublisher(opts ...PublisherOption) *Publisher {
	p := &Publisher{
		subs:    map[*Subscription]struct{}{},
		bufSize: defaultBufferSize,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Write delivers a copy of b to every subscription. It always returns
// len(b), nil, including after [Publisher.Close].
func (p *Publisher) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || len(p.subs) == 0 {
		return len(b), nil
	}

	entry := bytes.Clone(b)
	for sub := range p.subs {
		sub.push(entry)
	}

	return len(b), nil
}

// Subscribe registers a new [Subscription]. Subscribing to a closed
// Publisher returns a subscription whose channel is already closed.
func (p *Publisher) Subscribe() *Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()

	sub := &Subscription{
		pub: p,
		ch:  make(chan []byte, p.bufSize),
	}

	if p.closed {
		sub.shut()

		return sub
	}

	p.subs[sub] = struct{}{}

	return sub
}

// Close closes every subscription and turns later writes into no-ops.
// Idempotent.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true

	for sub := range p.subs {
		sub.shut()
	}

	clear(p.subs)

	return nil
}

// Subscription receives the entries written to a [Publisher].
type Subscription struct {
	pub  *Publisher
	ch   chan []byte
	once sync.Once
}

// C returns the channel entries arrive on. It is closed when the
// subscription or its publisher is closed; entries already buffered can
// still be read. Callers must not modify the received slices.
func (s *Subscription) C() <-chan []byte {
	return s.ch
}

// Close unsubscribes and closes the channel. Idempotent.
func (s *Subscription) Close() {
	s.pub.mu.Lock()
	defer s.pub.mu.Unlock()

	delete(s.pub.subs, s)
	s.shut()
}

// push enqueues entry, evicting the oldest one when full. The caller must
// hold the publisher lock.
func (s *Subscription) push(entry []byte) {
	select {
	case s.ch <- entry:
		return
	default:
	}

	select {
	case <-s.ch:
	default:
	}

	s.ch <- entry
}

func (s *Subscription) shut() {
	s.once.Do(func() {
		close(s.ch)
	})
}
