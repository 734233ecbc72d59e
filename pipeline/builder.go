package pipeline

import (
	"github.com/rs/zerolog"

	"github.com/sarchlab/threadviz/datarecording"
	"github.com/sarchlab/threadviz/render"
	"github.com/sarchlab/threadviz/tracing"
)

// Builder can build a Pipeline.
type Builder struct {
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

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		logger:           zerolog.Nop(),
		laneCount:        1,
		firstWorkerID:    1,
		output:           "thread_timeline.png",
		title:            "Thread Execution Timeline",
		acceleratorLabel: "GPU",
		transferLabel:    "Worker 0",
	}
}

// WithReader sets where the logs are read from.
func (b Builder) WithReader(r tracing.TraceReader) Builder {
	b.reader = r
	return b
}

// WithSink sets where the image is written to.
func (b Builder) WithSink(s render.ImageSink) Builder {
	b.sink = s
	return b
}

// WithRenderer sets the renderer. By default, a 1200x800 renderer with the
// default styles is used.
func (b Builder) WithRenderer(r *render.Renderer) Builder {
	b.renderer = r
	return b
}

// WithRecorder makes the pipeline export the derived lanes and intervals.
func (b Builder) WithRecorder(r datarecording.DataRecorder) Builder {
	b.recorder = r
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(l zerolog.Logger) Builder {
	b.logger = l
	return b
}

// WithTrimCount sets the number of records dropped from each end of each log.
func (b Builder) WithTrimCount(n int) Builder {
	b.trimCount = n
	return b
}

// WithLanes sets the number of worker lanes and the first worker identity.
func (b Builder) WithLanes(count, firstWorkerID int) Builder {
	b.laneCount = count
	b.firstWorkerID = firstWorkerID

	return b
}

// WithExtendedMode enables the accelerator push/pull lane.
func (b Builder) WithExtendedMode(extended bool) Builder {
	b.extended = extended
	return b
}

// WithOutput sets the name handed to the sink.
func (b Builder) WithOutput(name string) Builder {
	b.output = name
	return b
}

// WithTitle sets the title of the figure.
func (b Builder) WithTitle(title string) Builder {
	b.title = title
	return b
}

// WithLaneLabels sets the labels of the accelerator and transfer lanes.
func (b Builder) WithLaneLabels(accelerator, transfer string) Builder {
	b.acceleratorLabel = accelerator
	b.transferLabel = transfer

	return b
}

// Build creates the pipeline.
func (b Builder) Build() *Pipeline {
	b.mustBeValid()

	renderer := b.renderer
	if renderer == nil {
		renderer = render.NewRenderer(1200, 800)
	}

	return &Pipeline{
		reader:           b.reader,
		sink:             b.sink,
		renderer:         renderer,
		recorder:         b.recorder,
		logger:           b.logger,
		trimCount:        b.trimCount,
		laneCount:        b.laneCount,
		firstWorkerID:    b.firstWorkerID,
		extended:         b.extended,
		output:           b.output,
		title:            b.title,
		acceleratorLabel: b.acceleratorLabel,
		transferLabel:    b.transferLabel,
	}
}

func (b Builder) mustBeValid() {
	if b.reader == nil {
		panic("pipeline requires a trace reader")
	}

	if b.sink == nil {
		panic("pipeline requires an image sink")
	}

	if b.laneCount <= 0 {
		panic("pipeline requires at least one worker lane")
	}
}
