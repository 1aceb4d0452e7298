package nutrition

// productInfoKey is the sole discriminator between the two report shapes.
const productInfoKey = "product_info"

// Classify returns PackagedProduct when the payload has a non-null
// product_info member and RawFood otherwise. No other field is consulted.
func Classify(p Payload) Variant {
	if _, ok := valueAt(p.root(), productInfoKey); ok {
		return PackagedProduct
	}
	return RawFood
}
