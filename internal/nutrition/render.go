package nutrition

import "strings"

// SectionName identifies one independently omittable block of a report.
type SectionName string

const (
	SectionIdentity            SectionName = "identity"
	SectionNutritionFacts      SectionName = "nutrition_facts"
	SectionMicronutrients      SectionName = "micronutrients"
	SectionIngredients         SectionName = "ingredients"
	SectionAllergens           SectionName = "allergens"
	SectionDietaryInfo         SectionName = "dietary_info"
	SectionStorageInstructions SectionName = "storage_instructions"
	SectionHealthBenefits      SectionName = "health_benefits"
	SectionServingSuggestions  SectionName = "serving_suggestions"
	SectionSeasonalInfo        SectionName = "seasonal_info"
	SectionStorageTips         SectionName = "storage_tips"
)

// Section is a presentation-ready block. It holds plain data only.
type Section struct {
	Name    SectionName `json:"name"`
	Title   string      `json:"title"`
	Fields  []Field     `json:"fields,omitempty"`
	Items   []string    `json:"items,omitempty"`
	Warning bool        `json:"warning,omitempty"`
}

func (s Section) empty() bool {
	return len(s.Fields) == 0 && len(s.Items) == 0
}

// Render lays facts out as an ordered list of sections. The order is fixed
// per variant and sections without content are left out.
func Render(f Facts, v Variant) []Section {
	var candidates []Section
	if v == PackagedProduct {
		candidates = []Section{
			identitySection(f, "Product Information", "Product"),
			nutritionSection(f),
			nutrientSection(SectionMicronutrients, "Vitamins & Minerals", f.Micronutrients),
			listSection(SectionIngredients, "Ingredients", f.Ingredients),
			allergenSection(f),
			dietarySection(f),
			storageSection(f),
		}
	} else {
		candidates = []Section{
			identitySection(f, "Food Information", "Food"),
			nutritionSection(f),
			listSection(SectionHealthBenefits, "Health Benefits", f.HealthBenefits),
			listSection(SectionServingSuggestions, "Serving Suggestions", f.CombinationSuggestions),
			seasonalSection(f),
			listSection(SectionStorageTips, "Storage Tips", f.StorageTips),
		}
	}

	sections := make([]Section, 0, len(candidates))
	for _, s := range candidates {
		if !s.empty() {
			sections = append(sections, s)
		}
	}
	return sections
}

func identitySection(f Facts, title, nameLabel string) Section {
	s := Section{Name: SectionIdentity, Title: title}
	s.Fields = appendText(s.Fields, nameLabel, f.Identity.Name)
	s.Fields = appendText(s.Fields, "Brand", f.Identity.Brand)
	s.Fields = appendText(s.Fields, "Package Size", f.Identity.PackageSize)
	if len(f.Identity.Items) > 1 {
		s.Items = f.Identity.Items
	}
	return s
}

func nutritionSection(f Facts) Section {
	s := Section{Name: SectionNutritionFacts, Title: "Nutrition Facts"}
	s.Fields = append(s.Fields, servingFields(f)...)
	s.Fields = appendText(s.Fields, "CALORIES", f.Calories)
	s.Fields = append(s.Fields, nutrientFields(f.Macronutrients)...)
	return s
}

func servingFields(f Facts) []Field {
	if f.ServingText.Present {
		return []Field{{Label: "Serving Size", Value: f.ServingText.Value}}
	}
	if f.Serving.empty() {
		return nil
	}
	var parts []string
	for _, t := range []Text{f.Serving.Amount, f.Serving.Unit} {
		if t.Present {
			parts = append(parts, t.Value)
		}
	}
	if len(parts) == 0 {
		return []Field{{Label: "Servings Per Container", Value: f.Serving.ServingsPerContainer.Value}}
	}
	field := Field{Label: "Serving Size", Value: strings.Join(parts, " ")}
	if f.Serving.ServingsPerContainer.Present {
		field.Note = f.Serving.ServingsPerContainer.Value + " servings per container"
	}
	return []Field{field}
}

func nutrientFields(nutrients []Nutrient) []Field {
	fields := make([]Field, 0, len(nutrients))
	for _, n := range nutrients {
		field := Field{Label: n.Label, Value: n.Value()}
		if n.DailyValue.Present {
			field.Note = n.DailyValue.Value + " DV"
		}
		fields = append(fields, field)
	}
	return fields
}

func nutrientSection(name SectionName, title string, nutrients []Nutrient) Section {
	return Section{Name: name, Title: title, Fields: nutrientFields(nutrients)}
}

func listSection(name SectionName, title string, items []string) Section {
	return Section{Name: name, Title: title, Items: items}
}

func allergenSection(f Facts) Section {
	s := listSection(SectionAllergens, "Allergens", f.Allergens)
	s.Warning = f.HasAllergens()
	return s
}

func dietarySection(f Facts) Section {
	s := Section{Name: SectionDietaryInfo, Title: "Dietary Information"}
	for _, flag := range f.DietaryFlags {
		value := "No"
		if flag.Value {
			value = "Yes"
		}
		s.Fields = append(s.Fields, Field{Label: flag.Label, Value: value})
	}
	return s
}

func storageSection(f Facts) Section {
	s := Section{Name: SectionStorageInstructions, Title: "Storage Instructions"}
	s.Fields = appendText(s.Fields, "Storage", f.StorageInstructions)
	return s
}

func seasonalSection(f Facts) Section {
	s := Section{Name: SectionSeasonalInfo, Title: "Seasonal Information"}
	if f.Seasonal.empty() {
		return s
	}
	s.Fields = appendText(s.Fields, "Season", f.Seasonal.Season)
	s.Fields = appendText(s.Fields, "Availability", f.Seasonal.Availability)
	s.Fields = append(s.Fields, f.Seasonal.Notes...)
	return s
}

func appendText(fields []Field, label string, t Text) []Field {
	if !t.Present {
		return fields
	}
	return append(fields, Field{Label: label, Value: t.Value})
}
