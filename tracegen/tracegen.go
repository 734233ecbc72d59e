// Package tracegen produces synthetic accelerator/worker traces by running a
// small producer/consumer program: worker goroutines hand requests to a single
// accelerator goroutine and block until the results come back.
package tracegen

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sarchlab/threadviz/tracing"
)

// Config sets the shape of the generated trace.
type Config struct {
	Workers        int
	TasksPerWorker int
	FirstWorkerID  int

	// Extended adds push and pull transfers around each accelerator task.
	Extended bool

	PreWork         time.Duration
	AcceleratorWork time.Duration
	PostWork        time.Duration
	PushWork        time.Duration
	PullWork        time.Duration
}

// DefaultConfig returns a small trace configuration.
func DefaultConfig() Config {
	return Config{
		Workers:         4,
		TasksPerWorker:  8,
		FirstWorkerID:   1,
		PreWork:         3 * time.Millisecond,
		AcceleratorWork: 2 * time.Millisecond,
		PostWork:        3 * time.Millisecond,
		PushWork:        500 * time.Microsecond,
		PullWork:        500 * time.Microsecond,
	}
}

func (c Config) validate() error {
	if c.Workers <= 0 {
		return errors.New("at least one worker is required")
	}

	if c.TasksPerWorker <= 0 {
		return errors.New("at least one task per worker is required")
	}

	for _, d := range []time.Duration{
		c.PreWork, c.AcceleratorWork, c.PostWork, c.PushWork, c.PullWork,
	} {
		if d < 0 {
			return errors.New("durations must not be negative")
		}
	}

	return nil
}

// A Trace is the output of a generator run.
type Trace struct {
	// Accelerator lists the accelerator tasks in service order.
	Accelerator []tracing.AcceleratorTask

	// Workers lists the worker tasks in completion order.
	Workers []tracing.WorkerTask
}

type request struct {
	requestTime float64
	done        chan struct{}
}

type generator struct {
	cfg   Config
	clock clock

	requests chan request

	mu    sync.Mutex
	trace Trace
}

// Run executes the producer/consumer program and returns its trace.
func Run(ctx context.Context, cfg Config) (*Trace, error) {
	err := cfg.validate()
	if err != nil {
		return nil, err
	}

	g := &generator{
		cfg:      cfg,
		clock:    newClock(),
		requests: make(chan request, cfg.Workers),
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	accelDone := make(chan struct{})
	go func() {
		defer close(accelDone)
		g.serve(ctx)
	}()

	var wg sync.WaitGroup
	errs := make([]error, cfg.Workers)

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			errs[i] = g.work(ctx, cfg.FirstWorkerID+i)
			if errs[i] != nil {
				cancel()
			}
		}(i)
	}

	wg.Wait()
	close(g.requests)
	<-accelDone

	err = errors.Join(errs...)
	if err != nil {
		return nil, err
	}

	return &g.trace, nil
}

// serve is the accelerator thread. It handles requests one at a time in
// arrival order.
func (g *generator) serve(ctx context.Context) {
	for req := range g.requests {
		task := tracing.AcceleratorTask{
			RequestTime: req.requestTime,
			HasTransfer: g.cfg.Extended,
		}

		if g.cfg.Extended {
			task.PushStart = g.clock.now()
			_ = sleep(ctx, g.cfg.PushWork)
			task.PushEnd = g.clock.now()
		}

		task.StartTime = g.clock.now()
		_ = sleep(ctx, g.cfg.AcceleratorWork)
		task.EndTime = g.clock.now()

		if g.cfg.Extended {
			task.PullStart = g.clock.now()
			_ = sleep(ctx, g.cfg.PullWork)
			task.PullEnd = g.clock.now()
		}

		g.mu.Lock()
		g.trace.Accelerator = append(g.trace.Accelerator, task)
		g.mu.Unlock()

		close(req.done)
	}
}

// work is one worker thread.
func (g *generator) work(ctx context.Context, id int) error {
	for i := 0; i < g.cfg.TasksPerWorker; i++ {
		task := tracing.WorkerTask{WorkerID: id}

		task.StartTime = g.clock.now()
		err := sleep(ctx, g.cfg.PreWork)
		if err != nil {
			return err
		}

		task.RequestTime = g.clock.now()
		req := request{requestTime: task.RequestTime, done: make(chan struct{})}

		select {
		case g.requests <- req:
		case <-ctx.Done():
			return ctx.Err()
		}

		select {
		case <-req.done:
		case <-ctx.Done():
			return ctx.Err()
		}

		task.ReceiveTime = g.clock.now()
		err = sleep(ctx, g.cfg.PostWork)
		if err != nil {
			return err
		}

		task.EndTime = g.clock.now()

		g.mu.Lock()
		g.trace.Workers = append(g.trace.Workers, task)
		g.mu.Unlock()
	}

	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// clock reports wall-clock milliseconds that never go backwards during a run.
type clock struct {
	epoch   time.Time
	epochMS float64
}

func newClock() clock {
	epoch := time.Now()

	return clock{
		epoch:   epoch,
		epochMS: float64(epoch.UnixNano()) / 1e6,
	}
}

func (c clock) now() float64 {
	return c.epochMS + float64(time.Since(c.epoch).Nanoseconds())/1e6
}
