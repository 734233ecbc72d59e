package tracegen

import "container/heap"

// VTimeInMS is a time in the simulated space, in milliseconds.
type VTimeInMS float64

// An Event is something going to happen in the future.
type Event interface {
	// Time returns the time that the event should happen.
	Time() VTimeInMS

	// Handler returns the handler that should handle the event.
	Handler() Handler
}

// A Handler defines a domain for the events.
//
// Handlers only schedule events for themselves. Other handlers are reached
// through direct calls that happen at the current time.
type Handler interface {
	Handle(e Event) error
}

// EventBase provides the basic fields and getters for other events
type EventBase struct {
	time    VTimeInMS
	handler Handler
}

// NewEventBase creates a new EventBase
func NewEventBase(t VTimeInMS, handler Handler) EventBase {
	return EventBase{time: t, handler: handler}
}

// Time returns the time that the event is going to happen.
func (e EventBase) Time() VTimeInMS {
	return e.time
}

// Handler returns the handler to handle the event.
func (e EventBase) Handler() Handler {
	return e.handler
}

// eventQueue orders events by time. Events at the same time come out in the
// order they were pushed, so a simulation is deterministic.
type eventQueue struct {
	events eventHeap
	seq    uint64
}

func newEventQueue() *eventQueue {
	q := &eventQueue{}
	heap.Init(&q.events)

	return q
}

func (q *eventQueue) Push(evt Event) {
	heap.Push(&q.events, queuedEvent{evt: evt, seq: q.seq})
	q.seq++
}

func (q *eventQueue) Pop() Event {
	return heap.Pop(&q.events).(queuedEvent).evt
}

func (q *eventQueue) Len() int {
	return q.events.Len()
}

type queuedEvent struct {
	evt Event
	seq uint64
}

type eventHeap []queuedEvent

func (h eventHeap) Len() int {
	return len(h)
}

func (h eventHeap) Less(i, j int) bool {
	ti, tj := h[i].evt.Time(), h[j].evt.Time()
	if ti != tj {
		return ti < tj
	}

	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(queuedEvent))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	evt := old[n-1]
	*h = old[0 : n-1]

	return evt
}
