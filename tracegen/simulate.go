package tracegen

import (
	"fmt"
	"time"

	"github.com/sarchlab/threadviz/tracing"
)

// Simulate runs the same producer/consumer program as Run on a discrete event
// engine instead of real goroutines. Timestamps are virtual milliseconds from
// 0, so the trace is fully determined by the configuration. Worker i starts
// i*PreWork/Workers after worker 0 so that requests do not all collide.
func Simulate(cfg Config, hooks ...Hook) (*Trace, error) {
	err := cfg.validate()
	if err != nil {
		return nil, err
	}

	engine := NewSerialEngine()
	for _, h := range hooks {
		engine.AcceptHook(h)
	}

	trace := &Trace{}
	accel := &simAccelerator{engine: engine, cfg: cfg, trace: trace}

	stagger := ms(cfg.PreWork) / VTimeInMS(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		w := &simWorker{
			id:     cfg.FirstWorkerID + i,
			engine: engine,
			cfg:    cfg,
			accel:  accel,
			trace:  trace,
		}
		w.startTask(VTimeInMS(i) * stagger)
	}

	err = engine.Run()
	if err != nil {
		return nil, err
	}

	return trace, nil
}

func ms(d time.Duration) VTimeInMS {
	return VTimeInMS(float64(d) / float64(time.Millisecond))
}

type simPhase int

const (
	phasePreWork simPhase = iota
	phasePostWork
	phasePush
	phaseCompute
	phasePull
)

// phaseDoneEvent marks the end of a phase of the handler.
type phaseDoneEvent struct {
	EventBase
	phase simPhase
}

func newPhaseDoneEvent(t VTimeInMS, h Handler, p simPhase) *phaseDoneEvent {
	return &phaseDoneEvent{EventBase: NewEventBase(t, h), phase: p}
}

type simRequest struct {
	worker *simWorker
	time   VTimeInMS
}

// simAccelerator serves requests one at a time in arrival order.
type simAccelerator struct {
	engine *SerialEngine
	cfg    Config
	trace  *Trace

	queue   []simRequest
	current *simRequest
	task    tracing.AcceleratorTask
}

func (a *simAccelerator) submit(w *simWorker, now VTimeInMS) {
	a.queue = append(a.queue, simRequest{worker: w, time: now})

	if a.current == nil {
		a.startNext(now)
	}
}

func (a *simAccelerator) startNext(now VTimeInMS) {
	if len(a.queue) == 0 {
		a.current = nil
		return
	}

	req := a.queue[0]
	a.queue = a.queue[1:]
	a.current = &req

	a.task = tracing.AcceleratorTask{
		RequestTime: float64(req.time),
		HasTransfer: a.cfg.Extended,
	}

	if a.cfg.Extended {
		a.task.PushStart = float64(now)
		a.schedule(now+ms(a.cfg.PushWork), phasePush)

		return
	}

	a.startCompute(now)
}

func (a *simAccelerator) startCompute(now VTimeInMS) {
	a.task.StartTime = float64(now)
	a.schedule(now+ms(a.cfg.AcceleratorWork), phaseCompute)
}

func (a *simAccelerator) schedule(t VTimeInMS, p simPhase) {
	a.engine.Schedule(newPhaseDoneEvent(t, a, p))
}

func (a *simAccelerator) Handle(e Event) error {
	evt, ok := e.(*phaseDoneEvent)
	if !ok {
		return fmt.Errorf("accelerator cannot handle %T", e)
	}

	now := evt.Time()

	switch evt.phase {
	case phasePush:
		a.task.PushEnd = float64(now)
		a.startCompute(now)
	case phaseCompute:
		a.task.EndTime = float64(now)

		if a.cfg.Extended {
			a.task.PullStart = float64(now)
			a.schedule(now+ms(a.cfg.PullWork), phasePull)

			return nil
		}

		a.finish(now)
	case phasePull:
		a.task.PullEnd = float64(now)
		a.finish(now)
	default:
		return fmt.Errorf("accelerator has no phase %d", evt.phase)
	}

	return nil
}

func (a *simAccelerator) finish(now VTimeInMS) {
	a.trace.Accelerator = append(a.trace.Accelerator, a.task)

	worker := a.current.worker
	a.startNext(now)
	worker.receive(now)
}

// simWorker runs TasksPerWorker rounds of pre-work, waiting and post-work.
type simWorker struct {
	id     int
	engine *SerialEngine
	cfg    Config
	accel  *simAccelerator
	trace  *Trace

	done int
	task tracing.WorkerTask
}

func (w *simWorker) startTask(now VTimeInMS) {
	w.task = tracing.WorkerTask{WorkerID: w.id, StartTime: float64(now)}
	w.engine.Schedule(newPhaseDoneEvent(now+ms(w.cfg.PreWork), w, phasePreWork))
}

func (w *simWorker) receive(now VTimeInMS) {
	w.task.ReceiveTime = float64(now)
	w.engine.Schedule(
		newPhaseDoneEvent(now+ms(w.cfg.PostWork), w, phasePostWork))
}

func (w *simWorker) Handle(e Event) error {
	evt, ok := e.(*phaseDoneEvent)
	if !ok {
		return fmt.Errorf("worker %d cannot handle %T", w.id, e)
	}

	now := evt.Time()

	switch evt.phase {
	case phasePreWork:
		w.task.RequestTime = float64(now)
		w.accel.submit(w, now)
	case phasePostWork:
		w.task.EndTime = float64(now)
		w.trace.Workers = append(w.trace.Workers, w.task)

		w.done++
		if w.done < w.cfg.TasksPerWorker {
			w.startTask(now)
		}
	default:
		return fmt.Errorf("worker %d has no phase %d", w.id, evt.phase)
	}

	return nil
}
