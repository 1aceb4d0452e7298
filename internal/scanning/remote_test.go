package scanning

import (
	"context"
	"errors"
	"io"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("Remote", func() {
	var (
		ctx      context.Context
		server   *ghttp.Server
		analyzer *Remote
		image    []byte
	)

	BeforeEach(func() {
		ctx = context.Background()
		server = ghttp.NewServer()
		image = testPNG(10, 10)

		var err error
		analyzer, err = NewRemote(server.URL() + "/")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	It("requires a base url", func() {
		_, err := NewRemote("")
		Expect(err).To(HaveOccurred())
	})

	It("uploads the photo as the file field and returns the body", func() {
		server.AppendHandlers(ghttp.CombineHandlers(
			ghttp.VerifyRequest(http.MethodPost, "/analyze"),
			func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				file, header, err := r.FormFile("file")
				Expect(err).NotTo(HaveOccurred())
				defer file.Close()
				Expect(header.Filename).To(Equal("food.png"))
				Expect(header.Header.Get("Content-Type")).To(Equal("image/png"))
				data, err := io.ReadAll(file)
				Expect(err).NotTo(HaveOccurred())
				Expect(data).To(Equal(image))
			},
			ghttp.RespondWith(http.StatusOK, packagedDoc),
		))

		doc, err := analyzer.AnalyzeFood(ctx, image, "image/png")
		Expect(err).NotTo(HaveOccurred())
		Expect(doc).To(MatchJSON(packagedDoc))
	})

	It("returns a null body unchanged", func() {
		server.AppendHandlers(ghttp.RespondWith(http.StatusOK, "null"))
		doc, err := analyzer.AnalyzeFood(ctx, image, "image/png")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(doc)).To(Equal("null"))
	})

	DescribeTable("mapping error responses",
		func(status int, body string, message string) {
			server.AppendHandlers(ghttp.RespondWith(status, body))
			_, err := analyzer.AnalyzeFood(ctx, image, "image/png")

			var statusErr *StatusError
			Expect(errors.As(err, &statusErr)).To(BeTrue())
			Expect(statusErr.StatusCode).To(Equal(status))
			Expect(statusErr.Message).To(Equal(message))
		},
		Entry("detail field", http.StatusInternalServerError, `{"detail": "model crashed"}`, "model crashed"),
		Entry("error field", http.StatusBadRequest, `{"error": "file must be an image"}`, "file must be an image"),
		Entry("plain body", http.StatusServiceUnavailable, "overloaded", "overloaded"),
		Entry("empty body", http.StatusBadGateway, "", "Bad Gateway"),
	)

	It("wraps transport failures", func() {
		server.Close()
		_, err := analyzer.AnalyzeFood(ctx, image, "image/png")
		Expect(err).To(MatchError(ContainSubstring("calling analysis service")))
	})
})
