package events

import (
	"sync"

	"github.com/ethereum/go-ethereum/event"
)

// QueueSize is how many values a subscriber may fall behind before further
// values are dropped for it.
const QueueSize = 256

type Callback[T any] func(data T)

// Filter selects the values a subscriber sees.
type Filter[T any] func(data T) bool

type subscriber[T any] struct {
	sub   event.Subscription
	ch    chan T
	queue chan T
	done  sync.WaitGroup
}

// FeedOf wraps go-ethereum's event.FeedOf with named callback subscribers.
// The zero value is ready to use.
type FeedOf[T any] struct {
	feed event.FeedOf[T]

	mu   sync.Mutex
	subs map[string]*subscriber[T]
}

// Send delivers data to every subscriber and returns how many received it.
// Callbacks run on the subscribers' goroutines, so a slow callback never
// holds up Send; a subscriber with QueueSize values pending misses data.
func (e *FeedOf[T]) Send(data T) (sent int) {
	return e.feed.Send(data)
}

// Subscribe runs callback on its own goroutine for every value sent. A
// previous subscription with the same id is replaced.
func (e *FeedOf[T]) Subscribe(id string, callback Callback[T]) {
	e.SubscribeWhere(id, nil, callback)
}

// SubscribeWhere is Subscribe for the values accepted by filter. A nil
// filter accepts everything.
func (e *FeedOf[T]) SubscribeWhere(id string, filter Filter[T], callback Callback[T]) {
	e.Unsubscribe(id)

	s := &subscriber[T]{ch: make(chan T), queue: make(chan T, QueueSize)}
	s.sub = e.feed.Subscribe(s.ch)
	s.done.Add(2)
	go func() {
		defer s.done.Done()
		defer close(s.queue)
		for {
			select {
			case v := <-s.ch:
				if filter != nil && !filter(v) {
					continue
				}
				select {
				case s.queue <- v:
				default:
				}
			case <-s.sub.Err():
				return
			}
		}
	}()
	go func() {
		defer s.done.Done()
		for v := range s.queue {
			callback(v)
		}
	}()

	e.mu.Lock()
	if e.subs == nil {
		e.subs = make(map[string]*subscriber[T])
	}
	e.subs[id] = s
	e.mu.Unlock()
}

// Unsubscribe stops the subscription; wait on the returned group for the
// values already queued to be handled.
func (e *FeedOf[T]) Unsubscribe(id string) *sync.WaitGroup {
	e.mu.Lock()
	s, ok := e.subs[id]
	delete(e.subs, id)
	e.mu.Unlock()
	if !ok {
		return &sync.WaitGroup{}
	}
	s.sub.Unsubscribe()
	return &s.done
}
