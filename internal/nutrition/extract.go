package nutrition

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/antonholmquist/jason"
)

// Nutrition-panel order used when listing nutrients. Keys not listed follow
// alphabetically.
var (
	packagedMacroOrder = []string{
		"total_fat", "saturated_fat", "trans_fat", "cholesterol", "sodium",
		"total_carbohydrates", "dietary_fiber", "total_sugars", "added_sugars", "protein",
	}
	rawMacroOrder = []string{
		"protein", "carbohydrates", "fiber", "sugars", "total_fat",
	}
	microOrder = []string{
		"vitamin_d", "calcium", "iron", "potassium", "vitamin_a", "vitamin_c",
	}
	seasonalKnown = map[string]bool{"season": true, "availability": true}
)

// Extract normalizes a payload into Facts for the given variant. It has no
// failure mode: anything missing or mistyped is left absent.
func Extract(p Payload, v Variant) Facts {
	root := p.root()
	if v == PackagedProduct {
		return extractPackaged(root)
	}
	return extractRaw(root)
}

func extractPackaged(root *jason.Object) Facts {
	facts := Facts{
		Variant: PackagedProduct,
		Identity: Identity{
			Name:        textAt(root, "product_info", "product_name"),
			Brand:       textAt(root, "product_info", "brand"),
			PackageSize: textAt(root, "product_info", "package_size"),
		},
		Ingredients:         stringsAt(root, "ingredients"),
		Allergens:           dedupe(stringsAt(root, "allergens")),
		StorageInstructions: textAt(root, "storage_instructions"),
	}

	if nf, ok := objectAt(root, "nutrition_facts"); ok {
		facts.Serving, facts.ServingText = servingAt(nf, "serving_size")
		facts.Calories = textAt(nf, "calories")
		facts.Macronutrients = nutrientsAt(nf, packagedMacroOrder, "macronutrients")
		facts.Micronutrients = nutrientsAt(nf, microOrder, "vitamins_minerals")
	}

	if diet, ok := objectAt(root, "dietary_info"); ok {
		for _, e := range entriesOf(diet, nil) {
			b, ok := boolOf(e.value)
			if !ok {
				continue
			}
			facts.DietaryFlags = append(facts.DietaryFlags, DietaryFlag{
				Key:   e.key,
				Label: dietaryLabel(e.key),
				Value: b,
			})
		}
	}
	return facts
}

func extractRaw(root *jason.Object) Facts {
	facts := Facts{
		Variant:                RawFood,
		CombinationSuggestions: stringsAt(root, "combination_suggestions"),
		Seasonal:               seasonalAt(root, "seasonal_info"),
	}

	first, hasFirst := firstObject(root, "nutritional_info")

	items := stringsAt(root, "food_identification", "items")
	facts.Identity.Items = items
	facts.Identity.Name = textFrom(strings.Join(items, ", "))
	if !facts.Identity.Name.Present && hasFirst {
		facts.Identity.Name = textAt(first, "food_name")
	}

	if !hasFirst {
		return facts
	}
	facts.Serving, facts.ServingText = servingAt(first, "serving_size")
	facts.Calories = textAt(first, "nutrition_facts", "calories")
	facts.Macronutrients = nutrientsAt(first, rawMacroOrder, "nutrition_facts", "macronutrients")
	facts.HealthBenefits = stringsAt(first, "health_benefits")
	facts.StorageTips = stringsAt(first, "storage_tips")
	return facts
}

// servingAt reads a serving size given either as an object or as free text.
func servingAt(obj *jason.Object, keys ...string) (*ServingSize, Text) {
	if o, ok := objectAt(obj, keys...); ok {
		s := &ServingSize{
			Amount:               textAt(o, "amount"),
			Unit:                 textAt(o, "unit"),
			ServingsPerContainer: textAt(o, "servings_per_container"),
		}
		if s.empty() {
			return nil, Text{}
		}
		return s, Text{}
	}
	return nil, textAt(obj, keys...)
}

// nutrientsAt reads a nutrient mapping. Structured entries keep amount, unit
// and daily value; scalar entries are kept as display text. Entries with
// nothing to show are dropped.
func nutrientsAt(obj *jason.Object, order []string, keys ...string) []Nutrient {
	m, ok := objectAt(obj, keys...)
	if !ok {
		return nil
	}
	var out []Nutrient
	for _, e := range entriesOf(m, order) {
		n := Nutrient{Key: e.key, Label: displayLabel(e.key)}
		if o, err := e.value.Object(); err == nil {
			n.Amount = textAt(o, "amount")
			n.Unit = textAt(o, "unit")
			n.DailyValue = textAt(o, "daily_value")
		} else {
			n.Display = textOf(e.value)
		}
		if n.Value() == "" {
			continue
		}
		out = append(out, n)
	}
	return out
}

func seasonalAt(obj *jason.Object, keys ...string) *Seasonal {
	o, ok := objectAt(obj, keys...)
	if !ok {
		return nil
	}
	s := &Seasonal{
		Season:       textAt(o, "season"),
		Availability: textAt(o, "availability"),
	}
	for _, e := range entriesOf(o, nil) {
		if seasonalKnown[e.key] {
			continue
		}
		if t := textOf(e.value); t.Present {
			s.Notes = append(s.Notes, Field{Label: sentenceLabel(e.key), Value: t.Value})
		}
	}
	if s.empty() {
		return nil
	}
	return s
}

// displayLabel turns "total_fat" into "TOTAL FAT".
func displayLabel(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, "_", " "))
}

// dietaryLabel turns "is_gluten_free" into "gluten free". Only the first
// "is" is removed, wherever it occurs.
func dietaryLabel(key string) string {
	s := strings.ReplaceAll(key, "_", " ")
	return strings.TrimSpace(strings.Replace(s, "is", "", 1))
}

// sentenceLabel turns "peak_months" into "Peak months".
func sentenceLabel(key string) string {
	s := strings.TrimSpace(strings.ReplaceAll(key, "_", " "))
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		k := strings.ToLower(strings.TrimSpace(s))
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	return out
}
