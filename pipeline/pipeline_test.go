package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"math"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/threadviz/datarecording"
	"github.com/sarchlab/threadviz/render"
	"github.com/sarchlab/threadviz/timeline"
	"github.com/sarchlab/threadviz/tracing"
)

func threeWorkerTrace() ([]tracing.AcceleratorTask, []tracing.WorkerTask) {
	accel := []tracing.AcceleratorTask{
		{RequestTime: 101, StartTime: 101, EndTime: 103},
		{RequestTime: 102, StartTime: 103, EndTime: 105},
		{RequestTime: 104, StartTime: 105, EndTime: 107},
	}
	workers := []tracing.WorkerTask{
		{WorkerID: 0, StartTime: 100, RequestTime: 101, ReceiveTime: 103, EndTime: 104},
		{WorkerID: 1, StartTime: 101, RequestTime: 102, ReceiveTime: 105, EndTime: 106},
		{WorkerID: 2, StartTime: 102, RequestTime: 104, ReceiveTime: 107, EndTime: 108},
	}

	return accel, workers
}

var _ = Describe("Pipeline", func() {
	var (
		mockCtrl *gomock.Controller
		reader   *MockTraceReader
		sink     *MockImageSink
		builder  Builder
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		reader = NewMockTraceReader(mockCtrl)
		sink = NewMockImageSink(mockCtrl)

		builder = MakeBuilder().
			WithReader(reader).
			WithSink(sink).
			WithRenderer(render.NewRenderer(800, 400)).
			WithLanes(3, 0).
			WithOutput("timeline.png")
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should render a three-worker trace", func() {
		accel, workers := threeWorkerTrace()
		reader.EXPECT().ReadAcceleratorTasks().Return(accel, nil)
		reader.EXPECT().ReadWorkerTasks().Return(workers, nil)

		var written image.Image
		sink.EXPECT().
			Write("timeline.png", gomock.Any()).
			DoAndReturn(func(_ string, img image.Image) error {
				written = img
				return nil
			})

		res, err := builder.Build().Run()

		Expect(err).NotTo(HaveOccurred())
		Expect(res.Normalized.Origin).To(Equal(100.0))
		Expect(res.Normalized.Span).To(Equal(8.0))
		Expect(res.Figure.Span).To(Equal(8.0))
		Expect(res.Plot.XRange).To(Equal(render.Range{Min: 0, Max: 8}))
		Expect(res.Output).To(Equal("timeline.png"))
		Expect(written).To(BeIdenticalTo(res.Plot.Image))
		Expect(written.Bounds()).To(Equal(image.Rect(0, 0, 800, 400)))

		Expect(res.Intervals[3:6]).To(Equal([]timeline.Interval{
			{Lane: 1, Phase: timeline.PhasePreAccelerator, Start: 0, End: 1, Actor: 0},
			{Lane: 1, Phase: timeline.PhaseWaiting, Start: 1, End: 3, Actor: 0},
			{Lane: 1, Phase: timeline.PhasePostAccelerator, Start: 3, End: 4, Actor: 0},
		}))
	})

	It("should show an instantaneous accelerator task once in the legend", func() {
		reader.EXPECT().ReadAcceleratorTasks().Return([]tracing.AcceleratorTask{
			{RequestTime: 2, StartTime: 2, EndTime: 2},
		}, nil)
		reader.EXPECT().ReadWorkerTasks().Return([]tracing.WorkerTask{
			{WorkerID: 0, StartTime: 0, RequestTime: 1, ReceiveTime: 2, EndTime: 4},
		}, nil)
		sink.EXPECT().Write("timeline.png", gomock.Any()).Return(nil)

		res, err := builder.Build().Run()

		Expect(err).NotTo(HaveOccurred())

		computeEntries := 0
		for _, e := range res.Plot.Legend {
			if e.Phase == timeline.PhaseCompute {
				computeEntries++
			}
		}
		Expect(computeEntries).To(Equal(1))
		Expect(res.Plot.Legend[0].Label).To(Equal("compute"))
		Expect(res.Plot.Marks[0].Rect.Dx()).To(Equal(1))
	})

	It("should not write an image when a column is missing", func() {
		dir := GinkgoT().TempDir()
		accelPath := filepath.Join(dir, "gpu.csv")
		workerPath := filepath.Join(dir, "worker.csv")
		Expect(os.WriteFile(accelPath, []byte(
			"request_time,accel_start_time,accel_end_time\n1,1,3\n"),
			0o644)).To(Succeed())
		Expect(os.WriteFile(workerPath, []byte(
			"worker_id,worker_start_time,worker_request_time,worker_end_time\n"+
				"0,0,1,4\n"),
			0o644)).To(Succeed())

		sink.EXPECT().Write(gomock.Any(), gomock.Any()).Times(0)

		res, err := builder.
			WithReader(tracing.NewCSVTraceReader(accelPath, workerPath)).
			Build().
			Run()

		Expect(res).To(BeNil())
		Expect(errors.Is(err, tracing.ErrMissingColumn)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("worker_receive_time"))
	})

	It("should stop on a reader error", func() {
		readErr := errors.New("disk on fire")
		reader.EXPECT().ReadAcceleratorTasks().Return(nil, readErr)

		_, err := builder.Build().Run()

		Expect(errors.Is(err, readErr)).To(BeTrue())
	})

	It("should stop when trimming leaves nothing", func() {
		accel, workers := threeWorkerTrace()
		reader.EXPECT().ReadAcceleratorTasks().Return(accel, nil)
		reader.EXPECT().ReadWorkerTasks().Return(workers, nil)

		_, err := builder.WithTrimCount(2).Build().Run()

		Expect(errors.Is(err, tracing.ErrEmptyAfterTrim)).To(BeTrue())
	})

	It("should trim before normalizing", func() {
		accel, workers := threeWorkerTrace()
		reader.EXPECT().ReadAcceleratorTasks().Return(accel, nil)
		reader.EXPECT().ReadWorkerTasks().Return(workers, nil)
		sink.EXPECT().Write("timeline.png", gomock.Any()).Return(nil)

		res, err := builder.WithTrimCount(1).Build().Run()

		Expect(err).NotTo(HaveOccurred())
		Expect(res.Normalized.Origin).To(Equal(101.0))
		Expect(res.Normalized.Span).To(Equal(5.0))
		Expect(res.Normalized.Accelerator).To(HaveLen(1))
		Expect(res.Normalized.Workers).To(HaveLen(1))
	})

	It("should report invalid intervals at their row in the log", func() {
		accel, workers := threeWorkerTrace()
		workers[1].EndTime = 104
		reader.EXPECT().ReadAcceleratorTasks().Return(accel, nil)
		reader.EXPECT().ReadWorkerTasks().Return(workers, nil)

		_, err := builder.WithTrimCount(1).Build().Run()

		var dataErr *tracing.DataError
		Expect(errors.As(err, &dataErr)).To(BeTrue())
		Expect(dataErr.Kind).To(Equal(tracing.ErrInvalidInterval))
		Expect(dataErr.Log).To(Equal(tracing.WorkerLog))
		Expect(dataErr.Row).To(Equal(1))
	})

	It("should stop on timestamps that are not finite", func() {
		accel, workers := threeWorkerTrace()
		workers[1].ReceiveTime = math.NaN()
		reader.EXPECT().ReadAcceleratorTasks().Return(accel, nil)
		reader.EXPECT().ReadWorkerTasks().Return(workers, nil)

		_, err := builder.Build().Run()

		Expect(errors.Is(err, tracing.ErrMalformedValue)).To(BeTrue())
	})

	It("should report workers below the first worker id", func() {
		accel, workers := threeWorkerTrace()
		reader.EXPECT().ReadAcceleratorTasks().Return(accel, nil)
		reader.EXPECT().ReadWorkerTasks().Return(workers, nil)

		_, err := builder.WithLanes(3, 1).Build().Run()

		Expect(errors.Is(err, tracing.ErrUnknownWorker)).To(BeTrue())
	})

	It("should warn about workers beyond the lane table", func() {
		accel, workers := threeWorkerTrace()
		reader.EXPECT().ReadAcceleratorTasks().Return(accel, nil)
		reader.EXPECT().ReadWorkerTasks().Return(workers, nil)
		sink.EXPECT().Write("timeline.png", gomock.Any()).Return(nil)

		var logs bytes.Buffer
		res, err := builder.
			WithLanes(2, 0).
			WithLogger(zerolog.New(&logs)).
			Build().
			Run()

		Expect(err).NotTo(HaveOccurred())
		Expect(res.Lanes.NumLanes()).To(Equal(3))
		Expect(logs.String()).To(ContainSubstring("worker has no lane"))
		Expect(logs.String()).To(ContainSubstring(`"worker":2`))
		Expect(logs.String()).To(ContainSubstring("timeline written"))
	})

	It("should propagate sink errors", func() {
		accel, workers := threeWorkerTrace()
		reader.EXPECT().ReadAcceleratorTasks().Return(accel, nil)
		reader.EXPECT().ReadWorkerTasks().Return(workers, nil)

		sinkErr := errors.New("disk full")
		sink.EXPECT().Write("timeline.png", gomock.Any()).Return(sinkErr)

		_, err := builder.Build().Run()

		Expect(errors.Is(err, sinkErr)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("timeline.png"))
	})

	It("should use the transfer lane in extended mode", func() {
		accel, workers := threeWorkerTrace()
		accel[0].HasTransfer = true
		accel[0].PushStart, accel[0].PushEnd = 100.5, 101
		accel[0].PullStart, accel[0].PullEnd = 103, 103.5
		reader.EXPECT().ReadAcceleratorTasks().Return(accel, nil)
		reader.EXPECT().ReadWorkerTasks().Return(workers, nil)
		sink.EXPECT().Write("timeline.png", gomock.Any()).Return(nil)

		res, err := builder.WithExtendedMode(true).Build().Run()

		Expect(err).NotTo(HaveOccurred())
		Expect(res.Plot.LaneLabels[:2]).To(Equal([]string{"GPU", "Worker 0"}))
		Expect(res.Intervals[1]).To(Equal(timeline.Interval{
			Lane: timeline.TransferLane, Phase: timeline.PhasePush,
			Start: 0.5, End: 1, Actor: -1,
		}))
	})

	It("should record the intervals", func() {
		accel, workers := threeWorkerTrace()
		reader.EXPECT().ReadAcceleratorTasks().Return(accel, nil)
		reader.EXPECT().ReadWorkerTasks().Return(workers, nil)
		sink.EXPECT().Write("timeline.png", gomock.Any()).Return(nil)

		path := filepath.Join(GinkgoT().TempDir(), "record")
		recorder, err := datarecording.New(path)
		Expect(err).NotTo(HaveOccurred())
		defer recorder.Close()

		res, err := builder.WithRecorder(recorder).Build().Run()
		Expect(err).NotTo(HaveOccurred())

		dr, err := datarecording.NewReader(recorder.Filename())
		Expect(err).NotTo(HaveOccurred())
		defer dr.Close()

		Expect(dr.MapTable(datarecording.IntervalTable,
			datarecording.IntervalEntry{})).To(Succeed())
		_, total, err := dr.Query(context.Background(),
			datarecording.IntervalTable, datarecording.QueryParams{})
		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(Equal(len(res.Intervals)))
	})

	It("should dump the layout", func() {
		accel, workers := threeWorkerTrace()
		reader.EXPECT().ReadAcceleratorTasks().Return(accel, nil)
		reader.EXPECT().ReadWorkerTasks().Return(workers, nil)
		sink.EXPECT().Write("timeline.png", gomock.Any()).Return(nil)

		res, err := builder.Build().Run()
		Expect(err).NotTo(HaveOccurred())

		var buf bytes.Buffer
		Expect(DumpLayout(&buf, res)).To(Succeed())
		Expect(json.Valid(buf.Bytes())).To(BeTrue())
		Expect(buf.String()).To(ContainSubstring(`"XRange"`))
		Expect(buf.String()).To(ContainSubstring(`"PlotArea"`))
	})

	It("should refuse to build without a reader", func() {
		Expect(func() { MakeBuilder().WithSink(sink).Build() }).To(Panic())
	})
})
