package nutrition

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ParsePayload", func() {
	DescribeTable("documents that are not objects",
		func(doc string) {
			p := ParsePayload([]byte(doc))
			Expect(p.Missing()).To(BeTrue())
		},
		Entry("empty body", ""),
		Entry("whitespace", "  \n"),
		Entry("null", "null"),
		Entry("array", `[1, 2]`),
		Entry("string", `"banana"`),
		Entry("number", `42`),
		Entry("invalid json", `{"product_info":`),
	)

	It("accepts an empty object", func() {
		p := ParsePayload([]byte(`{}`))
		Expect(p.Missing()).To(BeFalse())
	})

	It("treats the zero value as missing", func() {
		var p Payload
		Expect(p.Missing()).To(BeTrue())
		Expect(Classify(p)).To(Equal(RawFood))
	})
})

var _ = Describe("Classify", func() {
	DescribeTable("discriminates on product_info",
		func(doc string, expected Variant) {
			Expect(Classify(ParsePayload([]byte(doc)))).To(Equal(expected))
		},
		Entry("null document", "null", RawFood),
		Entry("empty object", `{}`, RawFood),
		Entry("null product_info", `{"product_info": null}`, RawFood),
		Entry("empty product_info", `{"product_info": {}}`, PackagedProduct),
		Entry("scalar product_info", `{"product_info": "x"}`, PackagedProduct),
		Entry("product_info with name", `{"product_info": {"product_name": "Oat Bar"}}`, PackagedProduct),
		Entry("raw shape", `{"nutritional_info": [{"food_name": "Banana"}]}`, RawFood),
		Entry("raw fields alongside product_info", `{"product_info": {}, "nutritional_info": []}`, PackagedProduct),
		Entry("nested product_info only", `{"data": {"product_info": {}}}`, RawFood),
	)

	It("names variants", func() {
		Expect(PackagedProduct.String()).To(Equal("packaged"))
		Expect(RawFood.String()).To(Equal("raw"))
	})
})
