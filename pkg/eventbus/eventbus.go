package eventbus

import (
	"context"
	"strconv"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"
)

// EventBus is a lock-free pub/sub fabric. Publishing never blocks: slow
// subscribers drop events rather than stalling the producer, which is the
// right trade for health signals where only the latest state matters.
type EventBus[T any] struct {
	subscribers   *xsync.Map[string, *subscriber[T]]
	isShutdown    atomic.Bool
	subscriberSeq atomic.Uint64
	bufferSize    int
}

type subscriber[T any] struct {
	id       string
	ch       chan T
	dropped  atomic.Uint64
	isActive atomic.Bool
}

const DefaultBufferSize = 64

// New creates an event bus with the default subscriber buffer size.
func New[T any]() *EventBus[T] {
	return NewWithBuffer[T](DefaultBufferSize)
}

// NewWithBuffer creates an event bus with a custom subscriber buffer size.
func NewWithBuffer[T any](bufferSize int) *EventBus[T] {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &EventBus[T]{
		subscribers: xsync.NewMap[string, *subscriber[T]](),
		bufferSize:  bufferSize,
	}
}

// Subscribe returns a receive channel and a cleanup function. The channel is
// closed on cleanup, context cancellation or bus shutdown.
func (eb *EventBus[T]) Subscribe(ctx context.Context) (<-chan T, func()) {
	if eb.isShutdown.Load() {
		ch := make(chan T)
		close(ch)
		return ch, func() {}
	}

	seq := eb.subscriberSeq.Add(1)
	sub := &subscriber[T]{
		id: "sub_" + strconv.FormatUint(seq, 10),
		ch: make(chan T, eb.bufferSize),
	}
	sub.isActive.Store(true)

	eb.subscribers.Store(sub.id, sub)

	go func() {
		<-ctx.Done()
		eb.unsubscribe(sub.id)
	}()

	return sub.ch, func() { eb.unsubscribe(sub.id) }
}

// Publish delivers the event to every active subscriber with buffer space
// and returns the delivery count.
func (eb *EventBus[T]) Publish(event T) int {
	if eb.isShutdown.Load() {
		return 0
	}

	delivered := 0
	eb.subscribers.Range(func(id string, sub *subscriber[T]) bool {
		if !sub.isActive.Load() {
			return true
		}
		select {
		case sub.ch <- event:
			delivered++
		default:
			sub.dropped.Add(1)
		}
		return true
	})
	return delivered
}

// Shutdown closes all subscriber channels. Idempotent.
func (eb *EventBus[T]) Shutdown() {
	if !eb.isShutdown.CompareAndSwap(false, true) {
		return
	}
	eb.subscribers.Range(func(id string, sub *subscriber[T]) bool {
		if sub.isActive.CompareAndSwap(true, false) {
			close(sub.ch)
		}
		return true
	})
	eb.subscribers.Clear()
}

// Stats reports aggregate subscriber counters.
type Stats struct {
	Subscribers  int
	TotalDropped uint64
	IsShutdown   bool
}

func (eb *EventBus[T]) Stats() Stats {
	stats := Stats{IsShutdown: eb.isShutdown.Load()}
	if stats.IsShutdown {
		return stats
	}
	eb.subscribers.Range(func(id string, sub *subscriber[T]) bool {
		stats.Subscribers++
		stats.TotalDropped += sub.dropped.Load()
		return true
	})
	return stats
}

func (eb *EventBus[T]) unsubscribe(id string) {
	if sub, exists := eb.subscribers.LoadAndDelete(id); exists {
		if sub.isActive.CompareAndSwap(true, false) {
			close(sub.ch)
		}
	}
}
