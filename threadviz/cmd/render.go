package cmd

import (
	"fmt"
	"os"

	"github.com/pkg/browser"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sarchlab/threadviz/config"
	"github.com/sarchlab/threadviz/datarecording"
	"github.com/sarchlab/threadviz/pipeline"
	"github.com/sarchlab/threadviz/render"
	"github.com/sarchlab/threadviz/tracing"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a trace into a timeline image.",
	Long: `Render reads an accelerator log and a worker log, either two CSV ` +
		`files or the tables of a SQLite database, and writes the timeline ` +
		`image. Settings come from defaults, then --config, then THREADVIZ_* ` +
		`environment variables, then flags.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		logger, err := newLogger(cfg.LogLevel)
		if err != nil {
			return err
		}

		return runRender(cmd, cfg, logger)
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)

	f := renderCmd.Flags()
	f.String("config", "", "YAML or TOML configuration file")
	f.String("env-file", "", "dotenv file with THREADVIZ_* overrides")
	f.String("accel", "", "accelerator task log (CSV)")
	f.String("worker", "", "worker task log (CSV)")
	f.String("sqlite", "", "SQLite database holding both logs")
	f.StringP("output", "o", "", "output image; the extension picks the format")
	f.Int("trim", 0, "records dropped from each end of each log")
	f.Int("lanes", 0, "number of worker lanes")
	f.Int("first-worker", 0, "identity of the worker in the first lane")
	f.Bool("extended", false, "the accelerator log has push/pull transfers")
	f.String("record", "", "export the intervals to this SQLite database")
	f.Bool("open", false, "open the image when done")
	f.String("dump-layout", "", "write the image layout as JSON to this file")
	f.String("log-level", "", "trace, debug, info, warn or error")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	cfg := config.Default()

	path, _ := flags.GetString("config")
	if path != "" {
		var err error

		cfg, err = config.Load(path)
		if err != nil {
			return nil, err
		}
	}

	envFile, _ := flags.GetString("env-file")

	err := config.ApplyEnv(cfg, envFile)
	if err != nil {
		return nil, err
	}

	applyFlags(cmd, cfg)

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	strFlags := map[string]*string{
		"accel":     &cfg.AcceleratorLog,
		"worker":    &cfg.WorkerLog,
		"sqlite":    &cfg.SQLite,
		"output":    &cfg.Output,
		"record":    &cfg.Record,
		"log-level": &cfg.LogLevel,
	}
	for name, dst := range strFlags {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}

	intFlags := map[string]*int{
		"trim":         &cfg.TrimCount,
		"lanes":        &cfg.LaneCount,
		"first-worker": &cfg.FirstWorkerID,
	}
	for name, dst := range intFlags {
		if flags.Changed(name) {
			*dst, _ = flags.GetInt(name)
		}
	}

	if flags.Changed("extended") {
		cfg.ExtendedMode, _ = flags.GetBool("extended")
	}
}

func runRender(
	cmd *cobra.Command,
	cfg *config.Config,
	logger zerolog.Logger,
) error {
	reader, err := newTraceReader(cfg)
	if err != nil {
		return err
	}

	renderer, err := newRenderer(cfg)
	if err != nil {
		return err
	}

	sink := render.NewFileSink("")

	b := pipeline.MakeBuilder().
		WithReader(reader).
		WithSink(sink).
		WithRenderer(renderer).
		WithLogger(logger).
		WithTrimCount(cfg.TrimCount).
		WithLanes(cfg.LaneCount, cfg.FirstWorkerID).
		WithExtendedMode(cfg.ExtendedMode).
		WithOutput(cfg.Output).
		WithTitle(cfg.Title).
		WithLaneLabels(cfg.AcceleratorLabel, cfg.TransferLabel)

	if cfg.Record != "" {
		recorder, err := datarecording.New(cfg.Record)
		if err != nil {
			return err
		}
		defer recorder.Close()

		logger.Info().Str("database", recorder.Filename()).
			Msg("recording intervals")

		b = b.WithRecorder(recorder)
	}

	res, err := b.Build().Run()
	if err != nil {
		return err
	}

	dumpPath, _ := cmd.Flags().GetString("dump-layout")
	if dumpPath != "" {
		err = dumpLayout(dumpPath, res)
		if err != nil {
			return err
		}
	}

	path := sink.Path(res.Output)
	fmt.Fprintf(cmd.OutOrStdout(), "Timeline written to %s\n", path)

	open, _ := cmd.Flags().GetBool("open")
	if open {
		err = browser.OpenFile(path)
		if err != nil {
			logger.Warn().Err(err).Msg("cannot open the image")
		}
	}

	return nil
}

func newTraceReader(cfg *config.Config) (tracing.TraceReader, error) {
	if cfg.SQLite != "" {
		r := tracing.NewSQLiteTraceReader(cfg.SQLite).
			WithExtendedMode(cfg.ExtendedMode)

		err := r.Init()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", cfg.SQLite, err)
		}

		return r, nil
	}

	return tracing.NewCSVTraceReader(cfg.AcceleratorLog, cfg.WorkerLog).
		WithExtendedMode(cfg.ExtendedMode), nil
}

func newRenderer(cfg *config.Config) (*render.Renderer, error) {
	styles, err := cfg.RenderStyles()
	if err != nil {
		return nil, err
	}

	r := render.NewRenderer(cfg.Width, cfg.Height)
	for phase, style := range styles {
		r.WithStyle(phase, style)
	}

	return r, nil
}

func dumpLayout(path string, res *pipeline.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	err = pipeline.DumpLayout(f, res)
	if err != nil {
		return fmt.Errorf("writing layout to %s: %w", path, err)
	}

	return nil
}
