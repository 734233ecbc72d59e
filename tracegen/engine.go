package tracegen

import "fmt"

// HookPos defines the enum of possible hooking positions
type HookPos struct {
	Name string
}

// HookPosBeforeEvent is a hook position that triggers before handling an event
var HookPosBeforeEvent = &HookPos{Name: "BeforeEvent"}

// HookPosAfterEvent is a hook position that triggers after handling an event
var HookPosAfterEvent = &HookPos{Name: "AfterEvent"}

// HookCtx is the context that holds all the information about the site that a
// hook is triggered
type HookCtx struct {
	Now  VTimeInMS
	Pos  *HookPos
	Item any
}

// Hook is a short piece of program that can be invoked by the engine.
type Hook interface {
	// Func determines what to do if hook is invoked.
	Func(ctx HookCtx)
}

// A SerialEngine runs events one after another in time order.
type SerialEngine struct {
	time  VTimeInMS
	queue *eventQueue
	hooks []Hook
}

// NewSerialEngine creates a SerialEngine
func NewSerialEngine() *SerialEngine {
	return &SerialEngine{queue: newEventQueue()}
}

// AcceptHook registers a hook.
func (e *SerialEngine) AcceptHook(hook Hook) {
	e.hooks = append(e.hooks, hook)
}

func (e *SerialEngine) invokeHook(ctx HookCtx) {
	for _, h := range e.hooks {
		h.Func(ctx)
	}
}

// Schedule registers an event to happen in the future.
func (e *SerialEngine) Schedule(evt Event) {
	if evt.Time() < e.time {
		panic("scheduling an event earlier than current time")
	}

	e.queue.Push(evt)
}

// CurrentTime returns the time of the event being handled.
func (e *SerialEngine) CurrentTime() VTimeInMS {
	return e.time
}

// Run processes all the scheduled events. It stops at the first error a
// handler returns.
func (e *SerialEngine) Run() error {
	for e.queue.Len() > 0 {
		evt := e.queue.Pop()
		e.time = evt.Time()

		ctx := HookCtx{Now: e.time, Pos: HookPosBeforeEvent, Item: evt}
		e.invokeHook(ctx)

		err := evt.Handler().Handle(evt)
		if err != nil {
			return fmt.Errorf("at %.3f ms: %w", float64(e.time), err)
		}

		ctx.Pos = HookPosAfterEvent
		e.invokeHook(ctx)
	}

	return nil
}
