package screen

import "sync"

// Feed is a synchronous publish/subscribe channel. Subscribers are called in
// subscription order on the publishing goroutine. A replaying feed hands its
// last value to new subscribers.
//
// Subscribers must not publish to the feed they are subscribed to.
type Feed[T any] struct {
	mu      sync.Mutex
	subs    []*subscriber[T]
	nextID  uint64
	replay  bool
	last    T
	hasLast bool
}

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// NewFeed returns a feed without replay.
func NewFeed[T any]() *Feed[T] { return &Feed[T]{} }

// NewReplayFeed returns a feed that delivers its last value on Subscribe.
func NewReplayFeed[T any]() *Feed[T] { return &Feed[T]{replay: true} }

// Subscribe registers fn and returns a function that removes it. The
// returned cancel is idempotent.
func (f *Feed[T]) Subscribe(fn func(T)) (cancel func()) {
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.subs = append(f.subs, &subscriber[T]{id: id, fn: fn})
	last, replay := f.last, f.replay && f.hasLast
	f.mu.Unlock()

	if replay {
		fn(last)
	}

	var once sync.Once
	return func() {
		once.Do(func() { f.remove(id) })
	}
}

func (f *Feed[T]) remove(id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.subs {
		if s.id == id {
			f.subs = append(f.subs[:i:i], f.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers v to every current subscriber.
func (f *Feed[T]) Publish(v T) {
	f.mu.Lock()
	subs := f.subs
	if f.replay {
		f.last, f.hasLast = v, true
	}
	f.mu.Unlock()

	for _, s := range subs {
		s.fn(v)
	}
}

// Last returns the most recently published value of a replaying feed.
func (f *Feed[T]) Last() (T, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last, f.hasLast
}

// Len returns the number of subscribers.
func (f *Feed[T]) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
