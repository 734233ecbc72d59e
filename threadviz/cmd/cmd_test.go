package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"image/png"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/threadviz/tracing"
)

func execute(args ...string) (string, error) {
	var out bytes.Buffer

	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	return out.String(), err
}

var _ = Describe("threadviz", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("should generate a trace and render it", func() {
		prefix := filepath.Join(dir, "trace")
		out, err := execute("generate",
			"--workers", "2", "--tasks", "3",
			"--pre-work", "1ms", "--accel-work", "1ms", "--post-work", "1ms",
			"--prefix", prefix, "--log-level", "error", "--virtual=false")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring(prefix + "_gpu_task_log.csv"))

		output := filepath.Join(dir, "timeline.png")
		layout := filepath.Join(dir, "layout.json")
		out, err = execute("render",
			"--accel", prefix+"_gpu_task_log.csv",
			"--worker", prefix+"_worker_task_log.csv",
			"--lanes", "2", "--first-worker", "1", "--trim", "0",
			"--output", output,
			"--dump-layout", layout,
			"--log-level", "error")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("Timeline written to " + output + "\n"))

		f, err := os.Open(output)
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()

		img, err := png.Decode(f)
		Expect(err).NotTo(HaveOccurred())
		Expect(img.Bounds().Dx()).To(Equal(1200))
		Expect(img.Bounds().Dy()).To(Equal(800))

		dump, err := os.ReadFile(layout)
		Expect(err).NotTo(HaveOccurred())
		Expect(json.Valid(dump)).To(BeTrue())
	})

	It("should simulate a trace in virtual time", func() {
		prefix := filepath.Join(dir, "virtual")
		_, err := execute("generate",
			"--workers", "2", "--tasks", "1", "--first-worker", "1",
			"--pre-work", "2ms", "--accel-work", "1ms", "--post-work", "2ms",
			"--prefix", prefix, "--log-level", "error", "--virtual")
		Expect(err).NotTo(HaveOccurred())

		r := tracing.NewCSVTraceReader(
			prefix+"_gpu_task_log.csv", prefix+"_worker_task_log.csv")
		workers, err := r.ReadWorkerTasks()
		Expect(err).NotTo(HaveOccurred())
		Expect(workers).To(HaveLen(2))
		Expect(workers[0].StartTime).To(Equal(0.0))
		Expect(workers[1].ReceiveTime).To(Equal(4.0))
	})

	It("should fail on a missing column without writing an image", func() {
		accel := filepath.Join(dir, "gpu.csv")
		worker := filepath.Join(dir, "worker.csv")
		Expect(os.WriteFile(accel, []byte(
			"request_time,accel_start_time,accel_end_time\n0,1,3\n"),
			0o644)).To(Succeed())
		Expect(os.WriteFile(worker, []byte(
			"worker_id,worker_start_time,worker_request_time,worker_end_time\n"+
				"1,0,1,4\n"),
			0o644)).To(Succeed())

		output := filepath.Join(dir, "missing.png")
		_, err := execute("render",
			"--accel", accel, "--worker", worker,
			"--lanes", "1", "--first-worker", "1", "--trim", "0",
			"--output", output, "--log-level", "error")

		Expect(errors.Is(err, tracing.ErrMissingColumn)).To(BeTrue())
		_, statErr := os.Stat(output)
		Expect(os.IsNotExist(statErr)).To(BeTrue())
	})

	It("should reject an invalid configuration", func() {
		_, err := execute("render",
			"--accel", "a.csv", "--worker", "w.csv",
			"--trim=-1", "--output", filepath.Join(dir, "x.png"))

		Expect(err).To(MatchError(ContainSubstring("invalid configuration")))
	})
})
