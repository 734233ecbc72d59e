// Package pipeline connects log reading, normalization, interval derivation,
// rendering and image writing into a single run.
package pipeline

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/syifan/goseth"

	"github.com/sarchlab/threadviz/datarecording"
	"github.com/sarchlab/threadviz/render"
	"github.com/sarchlab/threadviz/timeline"
	"github.com/sarchlab/threadviz/tracing"
)

// Axis titles of the figure.
const (
	XLabel = "Time (ms)"
	YLabel = "Thread"
)

// A Pipeline renders a pair of logs into one image.
type Pipeline struct {
	reader   tracing.TraceReader
	sink     render.ImageSink
	renderer *render.Renderer
	recorder datarecording.DataRecorder
	logger   zerolog.Logger

	trimCount     int
	laneCount     int
	firstWorkerID int
	extended      bool

	output           string
	title            string
	acceleratorLabel string
	transferLabel    string
}

// Result describes what a run produced.
type Result struct {
	Normalized *tracing.Normalized
	Lanes      *timeline.LaneTable
	Intervals  []timeline.Interval
	Figure     render.Figure
	Plot       *render.Plot

	// Output is the name the image was written under.
	Output string
}

// Run executes the pipeline. Any data error stops the run before the sink is
// touched.
func (p *Pipeline) Run() (*Result, error) {
	accel, err := p.reader.ReadAcceleratorTasks()
	if err != nil {
		return nil, fmt.Errorf("reading accelerator log: %w", err)
	}

	workers, err := p.reader.ReadWorkerTasks()
	if err != nil {
		return nil, fmt.Errorf("reading worker log: %w", err)
	}

	p.logger.Debug().
		Int("accelerator_tasks", len(accel)).
		Int("worker_tasks", len(workers)).
		Msg("logs read")

	norm, err := tracing.Normalize(accel, workers, p.trimCount)
	if err != nil {
		return nil, err
	}

	p.logger.Debug().
		Int("trim", p.trimCount).
		Float64("origin", norm.Origin).
		Float64("span", norm.Span).
		Msg("timestamps normalized")

	lanes := timeline.NewLaneTable(p.laneCount, p.firstWorkerID, p.extended).
		WithLabels(p.acceleratorLabel, p.transferLabel)

	intervals, err := timeline.BuildIntervals(
		norm.Accelerator, norm.Workers, lanes)
	if err != nil {
		return nil, p.untrimRow(err)
	}

	p.warnOutOfRange(norm.Workers, lanes)

	p.logger.Debug().
		Int("lanes", lanes.NumLanes()).
		Int("intervals", len(intervals)).
		Msg("intervals built")

	if p.recorder != nil {
		err = datarecording.RecordTimeline(p.recorder, lanes, intervals)
		if err != nil {
			return nil, fmt.Errorf("recording intervals: %w", err)
		}
	}

	fig := render.Figure{
		Intervals:  intervals,
		Lanes:      lanes,
		Span:       norm.Span,
		Boundaries: timeline.AcceleratorBoundaries(intervals),
		Title:      p.title,
		XLabel:     XLabel,
		YLabel:     YLabel,
	}

	plot, err := p.renderer.Render(fig)
	if err != nil {
		return nil, err
	}

	err = p.sink.Write(p.output, plot.Image)
	if err != nil {
		return nil, fmt.Errorf("writing %s: %w", p.output, err)
	}

	p.logger.Info().Str("output", p.output).Msg("timeline written")

	return &Result{
		Normalized: norm,
		Lanes:      lanes,
		Intervals:  intervals,
		Figure:     fig,
		Plot:       plot,
		Output:     p.output,
	}, nil
}

// untrimRow turns the row of a data error found in the trimmed logs back into
// the row of the log as it was read.
func (p *Pipeline) untrimRow(err error) error {
	var dataErr *tracing.DataError
	if errors.As(err, &dataErr) && dataErr.Row >= 0 {
		dataErr.Row += p.trimCount
	}

	return err
}

// warnOutOfRange reports each worker that does not fit in the lane table.
// Such workers are laid out below the last lane and clipped.
func (p *Pipeline) warnOutOfRange(
	workers []tracing.WorkerTask,
	lanes *timeline.LaneTable,
) {
	warned := make(map[int]bool)

	for _, w := range workers {
		lane, err := lanes.WorkerLane(w.WorkerID)
		if err != nil || lanes.InRange(lane) || warned[w.WorkerID] {
			continue
		}

		warned[w.WorkerID] = true

		p.logger.Warn().
			Int("worker", w.WorkerID).
			Int("lanes", lanes.NumLanes()).
			Msg("worker has no lane; its intervals are not visible")
	}
}

// DumpLayout writes the composed layout of a run as JSON.
func DumpLayout(w io.Writer, res *Result) error {
	serializer := goseth.NewSerializer()
	serializer.SetRoot(&res.Plot.Layout)
	serializer.SetMaxDepth(6)

	return serializer.Serialize(w)
}
