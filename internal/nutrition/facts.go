package nutrition

import "encoding/json"

// Variant identifies which report shape a payload carries.
type Variant int

const (
	// RawFood is an unpackaged or whole food item.
	RawFood Variant = iota
	// PackagedProduct is a manufactured product with label data.
	PackagedProduct
)

func (v Variant) String() string {
	if v == PackagedProduct {
		return "packaged"
	}
	return "raw"
}

// MarshalJSON encodes the variant by name.
func (v Variant) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// UnmarshalJSON decodes a variant name. Anything other than "packaged" is raw.
func (v *Variant) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "packaged" {
		*v = PackagedProduct
	} else {
		*v = RawFood
	}
	return nil
}

// Text is an opaque displayable value. The source data mixes numbers and
// pre-formatted strings, so values are carried as text and never computed on.
type Text struct {
	Value   string
	Present bool
}

func (t Text) String() string {
	return t.Value
}

// MarshalJSON encodes an absent value as null.
func (t Text) MarshalJSON() ([]byte, error) {
	if !t.Present {
		return []byte("null"), nil
	}
	return json.Marshal(t.Value)
}

// UnmarshalJSON decodes null as absent and a string as present.
func (t *Text) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		*t = Text{}
		return nil
	}
	*t = textFrom(*s)
	return nil
}

// Identity names the scanned item.
type Identity struct {
	Name        Text     `json:"name"`
	Brand       Text     `json:"brand"`
	PackageSize Text     `json:"package_size"`
	Items       []string `json:"items,omitempty"`
}

func (i Identity) empty() bool {
	return !i.Name.Present && !i.Brand.Present && !i.PackageSize.Present && len(i.Items) == 0
}

// ServingSize is the structured serving of a packaged product.
type ServingSize struct {
	Amount               Text `json:"amount"`
	Unit                 Text `json:"unit"`
	ServingsPerContainer Text `json:"servings_per_container"`
}

func (s *ServingSize) empty() bool {
	return s == nil || (!s.Amount.Present && !s.Unit.Present && !s.ServingsPerContainer.Present)
}

// Nutrient is one macro or micro nutrient entry. Packaged entries carry
// Amount, Unit and DailyValue; raw entries carry a pre-formatted Display.
type Nutrient struct {
	Key        string `json:"key"`
	Label      string `json:"label"`
	Amount     Text   `json:"amount"`
	Unit       Text   `json:"unit"`
	DailyValue Text   `json:"daily_value"`
	Display    Text   `json:"display"`
}

// Value returns the text to show for the nutrient.
func (n Nutrient) Value() string {
	if n.Display.Present {
		return n.Display.Value
	}
	if !n.Amount.Present {
		return ""
	}
	return n.Amount.Value + n.Unit.Value
}

// DietaryFlag is a yes/no dietary property such as vegan.
type DietaryFlag struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value bool   `json:"value"`
}

// Field is a labelled display value.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Note  string `json:"note,omitempty"`
}

// Seasonal holds seasonal availability for raw foods.
type Seasonal struct {
	Season       Text    `json:"season"`
	Availability Text    `json:"availability"`
	Notes        []Field `json:"notes,omitempty"`
}

func (s *Seasonal) empty() bool {
	return s == nil || (!s.Season.Present && !s.Availability.Present && len(s.Notes) == 0)
}

// Facts is the variant-agnostic normalized form of a payload. Every field is
// optional.
type Facts struct {
	Variant  Variant  `json:"variant"`
	Identity Identity `json:"identity"`

	Serving     *ServingSize `json:"serving,omitempty"`
	ServingText Text         `json:"serving_text"`

	Calories       Text       `json:"calories"`
	Macronutrients []Nutrient `json:"macronutrients,omitempty"`
	Micronutrients []Nutrient `json:"micronutrients,omitempty"`

	Ingredients         []string      `json:"ingredients,omitempty"`
	Allergens           []string      `json:"allergens,omitempty"`
	DietaryFlags        []DietaryFlag `json:"dietary_flags,omitempty"`
	StorageInstructions Text          `json:"storage_instructions"`

	HealthBenefits         []string  `json:"health_benefits,omitempty"`
	StorageTips            []string  `json:"storage_tips,omitempty"`
	CombinationSuggestions []string  `json:"combination_suggestions,omitempty"`
	Seasonal               *Seasonal `json:"seasonal,omitempty"`
}

// HasAllergens reports whether any allergen was listed.
func (f Facts) HasAllergens() bool {
	return len(f.Allergens) > 0
}
