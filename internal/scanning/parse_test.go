package scanning

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("extractJSONObject", func() {
	var (
		input string
		data  []byte
		err   error
	)

	JustBeforeEach(func() {
		data, err = extractJSONObject(input)
	})

	When("parsing valid JSON", func() {
		BeforeEach(func() {
			input = packagedDoc
		})

		It("returns the object unchanged", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(MatchJSON(packagedDoc))
		})
	})

	When("parsing JSON with markdown code blocks", func() {
		BeforeEach(func() {
			input = "```json\n" + rawDoc + "\n```"
		})

		It("strips the fences", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(MatchJSON(rawDoc))
		})
	})

	When("the object is surrounded by prose", func() {
		BeforeEach(func() {
			input = "Here is the analysis:\n" + rawDoc + "\nLet me know if you need more."
		})

		It("takes the outermost braces", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(MatchJSON(rawDoc))
		})
	})

	When("the model uses Python booleans", func() {
		BeforeEach(func() {
			input = `{"dietary_info": {"is_vegan": True, "is_gluten_free": False}, "note": "True story"}`
		})

		It("lowers them", func() {
			Expect(err).NotTo(HaveOccurred())
			var doc map[string]any
			Expect(json.Unmarshal(data, &doc)).To(Succeed())
			Expect(doc["dietary_info"]).To(Equal(map[string]any{"is_vegan": true, "is_gluten_free": false}))
		})
	})

	When("there is no object", func() {
		BeforeEach(func() {
			input = `invalid json`
		})

		It("returns an error", func() {
			Expect(err).To(MatchError(ContainSubstring("no JSON object")))
		})
	})

	When("the braces do not hold JSON", func() {
		BeforeEach(func() {
			input = `{not: json}`
		})

		It("returns an error", func() {
			Expect(err).To(MatchError(ContainSubstring("not valid JSON")))
		})
	})
})

var _ = Describe("hasProductLabel", func() {
	DescribeTable("interpreting the answer",
		func(answer string, expected bool) {
			Expect(hasProductLabel(answer)).To(Equal(expected))
		},
		Entry("plain true", "true", true),
		Entry("capitalized with punctuation", "True.", true),
		Entry("false", "false", false),
		Entry("empty", "", false),
	)
})
