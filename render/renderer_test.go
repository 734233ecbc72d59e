package render

import (
	"errors"
	"image"
	"image/color"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/threadviz/timeline"
	"github.com/sarchlab/threadviz/tracing"
)

var _ = Describe("Renderer", func() {
	var (
		r     *Renderer
		lanes *timeline.LaneTable
		fig   Figure
	)

	BeforeEach(func() {
		r = NewRenderer(800, 400)
		lanes = timeline.NewLaneTable(3, 0, false)

		workers := []tracing.WorkerTask{
			{WorkerID: 0, StartTime: 0, RequestTime: 1, ReceiveTime: 3, EndTime: 4},
			{WorkerID: 1, StartTime: 1, RequestTime: 2, ReceiveTime: 5, EndTime: 6},
			{WorkerID: 2, StartTime: 2, RequestTime: 4, ReceiveTime: 7, EndTime: 8},
		}
		accel := []tracing.AcceleratorTask{
			{StartTime: 1, EndTime: 3},
			{StartTime: 3, EndTime: 5},
			{StartTime: 5, EndTime: 7},
		}

		intervals, err := timeline.BuildIntervals(accel, workers, lanes)
		Expect(err).NotTo(HaveOccurred())

		fig = Figure{
			Intervals:  intervals,
			Lanes:      lanes,
			Span:       8,
			Boundaries: timeline.AcceleratorBoundaries(intervals),
			Title:      "Thread Execution Timeline",
			XLabel:     "Time (ms)",
			YLabel:     "Thread",
		}
	})

	It("should span the horizontal axis from 0 to the span", func() {
		p, err := r.Render(fig)

		Expect(err).NotTo(HaveOccurred())
		Expect(p.XRange).To(Equal(Range{Min: 0, Max: 8}))
		Expect(p.XTicks[0].Value).To(Equal(0.0))
		Expect(p.XTicks[len(p.XTicks)-1].Value).To(Equal(8.0))
		Expect(p.Image.Bounds()).To(Equal(image.Rect(0, 0, 800, 400)))
	})

	It("should keep the axis even when intervals reach beyond it", func() {
		fig.Intervals = append(fig.Intervals, timeline.Interval{
			Lane: 0, Phase: timeline.PhaseCompute, Start: 6, End: 20,
		})

		p, err := r.Render(fig)

		Expect(err).NotTo(HaveOccurred())
		Expect(p.XRange).To(Equal(Range{Min: 0, Max: 8}))
		last := p.Marks[len(p.Marks)-1]
		Expect(last.Rect.Max.X).To(Equal(p.PlotArea.Max.X))
	})

	It("should put the accelerator lane on top", func() {
		p, err := r.Render(fig)

		Expect(err).NotTo(HaveOccurred())
		Expect(p.YRange).To(Equal(Range{Min: -1, Max: 4}))
		Expect(p.LaneLabels).To(Equal(
			[]string{"GPU", "Worker 0", "Worker 1", "Worker 2"}))

		var accelY, workerY int
		for _, m := range p.Marks {
			switch m.Lane {
			case 0:
				accelY = m.Rect.Min.Y
			case 3:
				workerY = m.Rect.Min.Y
			}
		}
		Expect(accelY).To(BeNumerically("<", workerY))
	})

	It("should add one legend entry per phase in drawing order", func() {
		p, err := r.Render(fig)

		Expect(err).NotTo(HaveOccurred())
		Expect(p.Legend).To(Equal([]LegendEntry{
			{Phase: timeline.PhaseCompute, Label: "compute"},
			{Phase: timeline.PhasePreAccelerator, Label: "pre-accelerator"},
			{Phase: timeline.PhaseWaiting, Label: "waiting"},
			{Phase: timeline.PhasePostAccelerator, Label: "post-accelerator"},
		}))
	})

	It("should make the compute band taller than worker bands", func() {
		p, err := r.Render(fig)

		Expect(err).NotTo(HaveOccurred())
		Expect(p.Marks[0].Phase).To(Equal(timeline.PhaseCompute))
		Expect(p.Marks[0].Rect.Dy()).To(BeNumerically(">", p.Marks[3].Rect.Dy()))
	})

	It("should draw a guide at every visible accelerator boundary", func() {
		p, err := r.Render(fig)

		Expect(err).NotTo(HaveOccurred())
		Expect(p.Guides).To(HaveLen(6))
	})

	It("should draw a guide at a boundary on the end of the axis", func() {
		fig.Boundaries = []float64{8}

		p, err := r.Render(fig)

		Expect(err).NotTo(HaveOccurred())
		Expect(p.Guides).To(Equal([]int{p.PlotArea.Max.X - 1}))
	})

	It("should draw guides beneath the rectangles", func() {
		red := color.NRGBA{R: 255, A: 255}
		r.WithStyle(timeline.PhaseCompute, Style{
			Edge: red, Fill: red, Alpha: 1, HalfHeight: 0.4,
		})
		fig.Intervals = []timeline.Interval{
			{Lane: 0, Phase: timeline.PhaseCompute, Start: 2, End: 6},
		}
		fig.Boundaries = []float64{4}

		p, err := r.Render(fig)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Guides).To(HaveLen(1))

		x := p.Guides[0]
		m := p.Marks[0].Rect
		for y := m.Min.Y; y < m.Max.Y; y++ {
			Expect(p.Image.RGBAAt(x, y)).To(Equal(color.RGBA{R: 255, A: 255}))
		}
	})

	It("should render an instantaneous accelerator task", func() {
		fig.Intervals = []timeline.Interval{
			{Lane: 0, Phase: timeline.PhaseCompute, Start: 2, End: 2},
		}
		fig.Boundaries = timeline.AcceleratorBoundaries(fig.Intervals)

		p, err := r.Render(fig)

		Expect(err).NotTo(HaveOccurred())
		Expect(p.Legend).To(Equal([]LegendEntry{
			{Phase: timeline.PhaseCompute, Label: "compute"},
		}))
		Expect(p.Marks[0].Rect.Dx()).To(Equal(1))
		Expect(p.Marks[0].Rect.Empty()).To(BeFalse())
	})

	It("should keep a zero-width mark at the right edge visible", func() {
		fig.Intervals = []timeline.Interval{
			{Lane: 1, Phase: timeline.PhaseWaiting, Start: 8, End: 8},
		}

		p, err := r.Render(fig)

		Expect(err).NotTo(HaveOccurred())
		Expect(p.Marks[0].Rect.Empty()).To(BeFalse())
	})

	It("should widen an empty span", func() {
		fig.Span = 0

		p, err := r.Render(fig)

		Expect(err).NotTo(HaveOccurred())
		Expect(p.XRange).To(Equal(Range{Min: 0, Max: 1}))
	})

	It("should refuse an invalid interval before drawing", func() {
		fig.Intervals = append(fig.Intervals, timeline.Interval{
			Lane: 1, Phase: timeline.PhaseWaiting, Start: 3, End: 2,
		})

		p, err := r.Render(fig)

		Expect(p).To(BeNil())
		Expect(errors.Is(err, tracing.ErrInvalidInterval)).To(BeTrue())
	})

	It("should refuse a span that is not finite", func() {
		fig.Span = math.Inf(1)

		p, err := r.Render(fig)

		Expect(p).To(BeNil())
		Expect(err).To(MatchError(ContainSubstring("not finite")))
	})

	It("should refuse intervals that are not finite", func() {
		fig.Intervals[len(fig.Intervals)-1].End = math.NaN()

		p, err := r.Render(fig)

		Expect(p).To(BeNil())
		Expect(errors.Is(err, tracing.ErrMalformedValue)).To(BeTrue())
	})

	It("should refuse a figure without lanes", func() {
		fig.Lanes = nil

		_, err := r.Render(fig)

		Expect(err).To(HaveOccurred())
	})

	It("should refuse an image too small for the plot", func() {
		_, err := NewRenderer(40, 40).Render(fig)

		Expect(err).To(MatchError(ContainSubstring("too small")))
	})

	It("should use overridden styles", func() {
		red := color.NRGBA{R: 255, A: 255}
		r.WithStyle(timeline.PhaseCompute, Style{
			Edge: red, Fill: red, Alpha: 1, HalfHeight: 0.4,
		})
		fig.Intervals = []timeline.Interval{
			{Lane: 0, Phase: timeline.PhaseCompute, Start: 2, End: 6},
		}
		fig.Boundaries = nil

		p, err := r.Render(fig)
		Expect(err).NotTo(HaveOccurred())

		m := p.Marks[0].Rect
		Expect(p.Image.RGBAAt((m.Min.X+m.Max.X)/2, (m.Min.Y+m.Max.Y)/2)).
			To(Equal(color.RGBA{R: 255, A: 255}))
	})
})

var _ = Describe("timeTicks", func() {
	It("should pick round steps", func() {
		ticks := timeTicks(0, 8, 10)

		Expect(ticks).To(HaveLen(9))
		Expect(ticks[1]).To(Equal(Tick{Value: 1, Label: "1"}))
	})

	It("should print decimals for small steps", func() {
		ticks := timeTicks(0, 1, 10)

		Expect(ticks[1].Label).To(Equal("0.1"))
		Expect(ticks[len(ticks)-1].Value).To(Equal(1.0))
	})

	It("should handle a degenerate range", func() {
		Expect(timeTicks(3, 3, 10)).To(HaveLen(1))
	})

	It("should not loop over an unbounded range", func() {
		Expect(timeTicks(0, math.Inf(1), 10)).To(HaveLen(1))
	})
})

var _ = Describe("ParseColor", func() {
	It("should parse long and short hex", func() {
		c, err := ParseColor("#ffa500")
		Expect(err).NotTo(HaveOccurred())
		Expect(c).To(Equal(color.NRGBA{R: 0xff, G: 0xa5, B: 0x00, A: 0xff}))

		c, err = ParseColor("fff")
		Expect(err).NotTo(HaveOccurred())
		Expect(c).To(Equal(color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}))
	})

	It("should reject garbage", func() {
		_, err := ParseColor("orange")
		Expect(err).To(HaveOccurred())
	})
})
