package scanning

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("Ollama", func() {
	var (
		ctx      context.Context
		server   *ghttp.Server
		analyzer *Ollama
		image    []byte
		prompts  []string
	)

	chatReply := func(content string) http.HandlerFunc {
		return ghttp.CombineHandlers(
			ghttp.VerifyRequest(http.MethodPost, "/api/chat"),
			ghttp.VerifyContentType("application/json"),
			func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				var req ollamaChatRequest
				Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
				Expect(req.Model).To(Equal("llava"))
				Expect(req.Stream).To(BeFalse())
				Expect(req.Messages).To(HaveLen(2))
				user := req.Messages[1]
				Expect(user.Images).To(ConsistOf(base64.StdEncoding.EncodeToString(image)))
				prompts = append(prompts, user.Content)
			},
			ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
				Message: ollamaMessage{Role: "assistant", Content: content},
				Done:    true,
			}),
		)
	}

	BeforeEach(func() {
		ctx = context.Background()
		server = ghttp.NewServer()
		image = testJPEG(8, 8)
		prompts = nil

		var err error
		analyzer, err = NewOllama(server.URL(), "")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	When("the photo shows a label", func() {
		BeforeEach(func() {
			server.AppendHandlers(
				chatReply("True"),
				chatReply("```json\n"+packagedDoc+"\n```"),
			)
		})

		It("asks for the product label document", func() {
			doc, err := analyzer.AnalyzeFood(ctx, image, "image/jpeg")
			Expect(err).NotTo(HaveOccurred())
			Expect(doc).To(MatchJSON(packagedDoc))
			Expect(prompts).To(Equal([]string{labelDetectionPrompt, productLabelPrompt}))
		})
	})

	When("the photo shows raw food", func() {
		BeforeEach(func() {
			server.AppendHandlers(
				chatReply("false"),
				chatReply(rawDoc),
			)
		})

		It("asks for the raw food document", func() {
			doc, err := analyzer.AnalyzeFood(ctx, image, "image/jpeg")
			Expect(err).NotTo(HaveOccurred())
			Expect(doc).To(MatchJSON(rawDoc))
			Expect(prompts).To(Equal([]string{labelDetectionPrompt, rawFoodPrompt}))
		})
	})

	When("the model answers without JSON", func() {
		BeforeEach(func() {
			server.AppendHandlers(
				chatReply("false"),
				chatReply("I cannot tell what this is."),
			)
		})

		It("returns a bad gateway StatusError", func() {
			_, err := analyzer.AnalyzeFood(ctx, image, "image/jpeg")
			var statusErr *StatusError
			Expect(errors.As(err, &statusErr)).To(BeTrue())
			Expect(statusErr.StatusCode).To(Equal(http.StatusBadGateway))
		})
	})

	When("Ollama returns an error status", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, "model not loaded"))
		})

		It("carries the status and body", func() {
			_, err := analyzer.AnalyzeFood(ctx, image, "image/jpeg")
			var statusErr *StatusError
			Expect(errors.As(err, &statusErr)).To(BeTrue())
			Expect(statusErr.StatusCode).To(Equal(http.StatusInternalServerError))
			Expect(statusErr.Message).To(Equal("model not loaded"))
		})
	})

	It("rejects images before calling the model", func() {
		_, err := analyzer.AnalyzeFood(ctx, []byte("not an image"), "text/plain")
		Expect(err).To(MatchError(ErrUnsupportedImage))
		Expect(server.ReceivedRequests()).To(BeEmpty())
	})

	It("returns the context error when cancelled", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := analyzer.AnalyzeFood(cancelled, image, "image/jpeg")
		Expect(err).To(MatchError(context.Canceled))
	})
})
