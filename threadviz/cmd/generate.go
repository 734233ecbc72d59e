package cmd

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sarchlab/threadviz/tracegen"
	"github.com/sarchlab/threadviz/tracing"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run a synthetic producer/consumer program and log its trace.",
	Long: `Generate runs worker goroutines that offload work to one ` +
		`accelerator goroutine and writes the two task logs as CSV files ` +
		`that the render command can read.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := cmd.Flags()
		cfg := tracegen.DefaultConfig()

		cfg.Workers, _ = f.GetInt("workers")
		cfg.TasksPerWorker, _ = f.GetInt("tasks")
		cfg.FirstWorkerID, _ = f.GetInt("first-worker")
		cfg.Extended, _ = f.GetBool("extended")
		cfg.PreWork, _ = f.GetDuration("pre-work")
		cfg.AcceleratorWork, _ = f.GetDuration("accel-work")
		cfg.PostWork, _ = f.GetDuration("post-work")
		cfg.PushWork, _ = f.GetDuration("push-work")
		cfg.PullWork, _ = f.GetDuration("pull-work")
		prefix, _ := f.GetString("prefix")
		level, _ := f.GetString("log-level")
		virtual, _ := f.GetBool("virtual")

		logger, err := newLogger(level)
		if err != nil {
			return err
		}

		var trace *tracegen.Trace
		if virtual {
			trace, err = tracegen.Simulate(cfg, eventLogHook{logger: logger})
		} else {
			trace, err = tracegen.Run(cmd.Context(), cfg)
		}

		if err != nil {
			return err
		}

		logger.Debug().
			Int("accelerator_tasks", len(trace.Accelerator)).
			Int("worker_tasks", len(trace.Workers)).
			Msg("trace generated")

		w := tracing.NewCSVTraceWriter(prefix).WithExtendedMode(cfg.Extended)

		err = w.Init()
		if err != nil {
			return err
		}

		for _, t := range trace.Accelerator {
			w.WriteAcceleratorTask(t)
		}

		for _, t := range trace.Workers {
			w.WriteWorkerTask(t)
		}

		err = w.Close()
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Accelerator log written to %s\n",
			w.AcceleratorPath())
		fmt.Fprintf(cmd.OutOrStdout(), "Worker log written to %s\n",
			w.WorkerPath())

		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	d := tracegen.DefaultConfig()

	f := generateCmd.Flags()
	f.Int("workers", d.Workers, "number of worker goroutines")
	f.Int("tasks", d.TasksPerWorker, "tasks run by each worker")
	f.Int("first-worker", d.FirstWorkerID, "identity of the first worker")
	f.Bool("extended", false, "add push/pull transfers to accelerator tasks")
	f.Bool("virtual", false, "simulate in virtual time instead of running goroutines")
	f.String("prefix", "", "prefix of the two CSV files")
	f.Duration("pre-work", d.PreWork, "worker time before each request")
	f.Duration("accel-work", d.AcceleratorWork, "accelerator time per request")
	f.Duration("post-work", d.PostWork, "worker time after each result")
	f.Duration("push-work", d.PushWork, "transfer time into the accelerator")
	f.Duration("pull-work", d.PullWork, "transfer time out of the accelerator")
	f.String("log-level", "info", "trace, debug, info, warn or error")
}

// eventLogHook logs every simulated event at trace level.
type eventLogHook struct {
	logger zerolog.Logger
}

func (h eventLogHook) Func(ctx tracegen.HookCtx) {
	if ctx.Pos != tracegen.HookPosBeforeEvent {
		return
	}

	h.logger.Trace().
		Float64("time_ms", float64(ctx.Now)).
		Str("event", fmt.Sprintf("%T", ctx.Item)).
		Msg("event")
}
