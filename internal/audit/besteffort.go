package audit

import (
	"fmt"
	"sync"
	"time"

	kerrors "github.com/medeasy/medkeys/internal/errors"
)

// DefaultQueueLimit bounds the number of events held while the sink fails.
const DefaultQueueLimit = 1024

type deferredEvent struct {
	component string
	actor     string
	action    Action
	message   string
	sensitive bool
	at        time.Time
}

// BestEffort wraps a Sink so that a failing sink never blocks the caller's
// operation. Events that cannot be written are queued; once the sink works
// again they are replayed in order, followed by a SecurityEvent stating how
// many events were deferred.
type BestEffort struct {
	sink  Sink
	limit int
	now   func() time.Time

	mu       sync.Mutex
	queue    []deferredEvent
	deferred int
	dropped  int
}

// NewBestEffort wraps sink with a queue of DefaultQueueLimit events.
func NewBestEffort(sink Sink) *BestEffort {
	return &BestEffort{sink: sink, limit: DefaultQueueLimit, now: time.Now}
}

// Log writes the event, replaying earlier failures first. On failure the
// event is queued and an ErrLogging error is returned for the caller to
// report; the caller should not abort because of it.
func (b *BestEffort) Log(component, actorID string, action Action, message string, sensitive bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	ev := deferredEvent{
		component: component,
		actor:     actorID,
		action:    action,
		message:   message,
		sensitive: sensitive,
		at:        b.now(),
	}

	if err := b.flushLocked(); err != nil {
		b.enqueueLocked(ev)
		return err
	}
	if err := b.sink.Log(component, actorID, action, message, sensitive); err != nil {
		b.enqueueLocked(ev)
		return wrapLogging(err)
	}
	return nil
}

// Pending returns the number of queued events.
func (b *BestEffort) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Flush replays queued events. It returns ErrLogging while the sink still
// fails.
func (b *BestEffort) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushLocked()
}

func (b *BestEffort) enqueueLocked(ev deferredEvent) {
	if len(b.queue) >= b.limit {
		b.queue = b.queue[1:]
		b.dropped++
	}
	b.queue = append(b.queue, ev)
	b.deferred++
}

func (b *BestEffort) flushLocked() error {
	for len(b.queue) > 0 {
		ev := b.queue[0]
		msg := fmt.Sprintf("%s (deferred from %s)", ev.message, ev.at.UTC().Format(TimestampFormat))
		if err := b.sink.Log(ev.component, ev.actor, ev.action, msg, ev.sensitive); err != nil {
			return wrapLogging(err)
		}
		b.queue[0] = deferredEvent{}
		b.queue = b.queue[1:]
	}

	if b.deferred == 0 {
		return nil
	}
	msg := fmt.Sprintf("%d audit events were deferred", b.deferred)
	if b.dropped > 0 {
		msg = fmt.Sprintf("%s, %d were dropped", msg, b.dropped)
	}
	if err := b.sink.Log("audit", "system", SecurityEvent, msg, false); err != nil {
		return wrapLogging(err)
	}
	b.deferred = 0
	b.dropped = 0
	return nil
}

func wrapLogging(err error) error {
	return fmt.Errorf("%w: %w", kerrors.ErrLogging, err)
}
