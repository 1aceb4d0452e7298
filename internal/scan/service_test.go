package scan

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/goleak"

	"github.com/zombor/nutriscan/internal/capture"
)

// stubDevice serves a solid frame for every facing mode it knows
type stubDevice struct {
	missing map[capture.Facing]bool

	mu   sync.Mutex
	open int
}

func (d *stubDevice) Open(ctx context.Context, facing capture.Facing) (capture.Stream, error) {
	if d.missing[facing] {
		return nil, errors.New("no such camera")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open++
	return &stubStream{device: d}, nil
}

func (d *stubDevice) openStreams() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

type stubStream struct {
	device *stubDevice
}

func (*stubStream) Frame(ctx context.Context) (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for x := 0; x < 8; x++ {
		for y := 0; y < 6; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 180, B: 40, A: 255})
		}
	}
	return img, nil
}

func (s *stubStream) Close() error {
	s.device.mu.Lock()
	defer s.device.mu.Unlock()
	s.device.open--
	return nil
}

var _ = Describe("Service", func() {
	var (
		ctx      context.Context
		analyzer *mockAnalyzer
		cache    *mockCache
		storage  *mockStorage
		device   *stubDevice
		service  *Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		analyzer = newMockAnalyzer(packagedJSON)
		cache = newMockCache()
		storage = newMockStorage()
		device = &stubDevice{missing: map[capture.Facing]bool{}}
		timeSrc := &mockTimeSource{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
		service = NewServiceWithDeps(analyzer, cache, storage, Config{Camera: device}, &mockIDGenerator{}, timeSrc)
	})

	AfterEach(func() {
		service.Close()
	})

	Describe("ScanUpload", func() {
		It("returns a report and keeps it retrievable", func() {
			report, err := service.ScanUpload(ctx, "client-a", "cereal box.JPG", []byte("jpeg"), "")
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Image.ContentType).To(Equal("image/jpeg"))

			found, err := service.GetReport(report.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeIdenticalTo(report))
		})

		It("keeps the declared content type", func() {
			report, err := service.ScanUpload(ctx, "client-a", "photo", []byte("png"), " Image/PNG ")
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Image.ContentType).To(Equal("image/png"))
			Expect(report.Image.Name).To(Equal("report-1.png"))
		})

		It("wraps analysis errors", func() {
			analyzer.err = errors.New("offline")
			_, err := service.ScanUpload(ctx, "client-a", "a.jpg", []byte("jpeg"), "image/jpeg")
			var analysisErr *AnalysisError
			Expect(errors.As(err, &analysisErr)).To(BeTrue())
			Expect(err).To(MatchError(ContainSubstring("running scan")))
		})
	})

	Describe("GetReport", func() {
		It("returns ErrReportNotFound for unknown IDs", func() {
			_, err := service.GetReport("nope")
			Expect(err).To(MatchError(ErrReportNotFound))
		})
	})

	Describe("report expiry", func() {
		It("forgets expired reports and deletes their images", func() {
			report, err := service.ScanUpload(ctx, "client-a", "a.png", []byte("png"), "image/png")
			Expect(err).NotTo(HaveOccurred())
			Expect(storage.files).To(HaveKey(report.Image.Name))

			service.reports.Set(report.ID, report, time.Millisecond)
			time.Sleep(10 * time.Millisecond)

			_, err = service.GetReport(report.ID)
			Expect(err).To(MatchError(ErrReportNotFound))
			Expect(storage.files).NotTo(HaveKey(report.Image.Name))
		})
	})

	Describe("GetImage", func() {
		It("returns the stored image with its content type", func() {
			report, err := service.ScanUpload(ctx, "client-a", "a.png", []byte("png"), "image/png")
			Expect(err).NotTo(HaveOccurred())

			data, contentType, err := service.GetImage(report.Image.Name)
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte("png")))
			Expect(contentType).To(Equal("image/png"))
		})

		It("returns ErrImageNotFound for unknown images", func() {
			_, _, err := service.GetImage("missing.jpg")
			Expect(err).To(MatchError(ErrImageNotFound))
		})

		It("returns ErrImageNotFound without storage", func() {
			service = NewService(analyzer, nil, nil, Config{})
			_, _, err := service.GetImage("a.jpg")
			Expect(err).To(MatchError(ErrImageNotFound))
		})
	})

	Describe("camera", func() {
		It("starts, scans and stops", func() {
			status, err := service.StartCamera(ctx, "client-a", capture.FacingEnvironment)
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(CameraStatus{State: "live", Facing: "environment"}))

			report, err := service.ScanCamera(ctx, "client-a")
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Image.ContentType).To(Equal("image/jpeg"))

			Expect(service.StopCamera("client-a").State).To(Equal("stopped"))
		})

		It("keeps sessions separate per client", func() {
			_, err := service.StartCamera(ctx, "client-a", capture.FacingEnvironment)
			Expect(err).NotTo(HaveOccurred())
			Expect(service.CameraStatus("client-b").State).To(Equal("idle"))

			_, err = service.ScanCamera(ctx, "client-b")
			Expect(err).To(MatchError(capture.ErrNoActiveStream))
		})

		It("switches facing mode", func() {
			_, err := service.StartCamera(ctx, "client-a", capture.FacingEnvironment)
			Expect(err).NotTo(HaveOccurred())
			status, err := service.SwitchCamera(ctx, "client-a")
			Expect(err).NotTo(HaveOccurred())
			Expect(status.Facing).To(Equal("user"))
		})

		It("reports a failed switch", func() {
			device.missing[capture.FacingUser] = true
			_, err := service.StartCamera(ctx, "client-a", capture.FacingEnvironment)
			Expect(err).NotTo(HaveOccurred())

			status, err := service.SwitchCamera(ctx, "client-a")
			Expect(err).To(MatchError(capture.ErrDeviceUnavailable))
			Expect(status.State).To(Equal("failed"))
			Expect(status.Error).To(ContainSubstring("no such camera"))
		})

		It("releases the camera of a client that went idle", func() {
			_, err := service.StartCamera(ctx, "client-a", capture.FacingEnvironment)
			Expect(err).NotTo(HaveOccurred())
			idle := service.client("client-a")
			service.clients.Set("client-a", idle, time.Millisecond)
			time.Sleep(10 * time.Millisecond)

			status, err := service.StartCamera(ctx, "client-a", capture.FacingEnvironment)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.State).To(Equal("live"))
			Expect(idle.session.State()).To(Equal(capture.Stopped))
			Expect(device.openStreams()).To(Equal(1))
		})

		It("does not leave cache goroutines behind", func() {
			ignore := goleak.IgnoreCurrent()
			svc := NewService(analyzer, nil, nil, Config{Camera: device})
			_, err := svc.StartCamera(ctx, "client-a", capture.FacingUser)
			Expect(err).NotTo(HaveOccurred())
			svc.Close()
			goleak.VerifyNone(GinkgoT(), ignore)
		})

		It("is unavailable without a camera", func() {
			service = NewService(analyzer, nil, nil, Config{})
			Expect(service.CameraEnabled()).To(BeFalse())
			_, err := service.StartCamera(ctx, "client-a", capture.FacingEnvironment)
			Expect(err).To(MatchError(capture.ErrDeviceUnavailable))
		})
	})

	Describe("Close", func() {
		It("stops every live camera", func() {
			_, err := service.StartCamera(ctx, "client-a", capture.FacingEnvironment)
			Expect(err).NotTo(HaveOccurred())
			c := service.client("client-a")
			service.Close()
			Expect(c.session.State()).To(Equal(capture.Stopped))
		})
	})
})

var _ = Describe("sanitizeFilename", func() {
	DescribeTable("cleaning names",
		func(in, expected string) {
			Expect(sanitizeFilename(in)).To(Equal(expected))
		},
		Entry("plain", "apple.jpg", "apple.jpg"),
		Entry("special characters", "IMG_2024 (1)!.heic", "IMG_2024 1.heic"),
		Entry("nothing left", "***.png", "photo.png"),
	)
})
