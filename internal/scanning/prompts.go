package scanning

// labelDetectionPrompt asks whether the photo shows packaging with a label
const labelDetectionPrompt = `Look at this image and decide whether it shows a packaged product with a nutrition label or packaging text.
Answer with the single word 'true' if a product label is visible, or 'false' if it is a raw or unpackaged food item.`

// productLabelPrompt extracts label data from packaged products
const productLabelPrompt = `You are reading the nutrition label of a packaged food product. Copy the exact values printed on the label and include units (g, mg, mcg) for every measurement.

Return ONLY valid JSON in this format:
{
  "product_info": {
    "product_name": "",
    "brand": "",
    "package_size": ""
  },
  "nutrition_facts": {
    "serving_size": {"amount": "", "unit": "", "servings_per_container": ""},
    "calories": "",
    "macronutrients": {
      "total_fat": {"amount": "", "unit": "g", "daily_value": ""},
      "saturated_fat": {"amount": "", "unit": "g", "daily_value": ""},
      "trans_fat": {"amount": "", "unit": "g"},
      "cholesterol": {"amount": "", "unit": "mg", "daily_value": ""},
      "sodium": {"amount": "", "unit": "mg", "daily_value": ""},
      "total_carbohydrates": {"amount": "", "unit": "g", "daily_value": ""},
      "dietary_fiber": {"amount": "", "unit": "g", "daily_value": ""},
      "total_sugars": {"amount": "", "unit": "g"},
      "added_sugars": {"amount": "", "unit": "g", "daily_value": ""},
      "protein": {"amount": "", "unit": "g", "daily_value": ""}
    },
    "vitamins_minerals": {
      "vitamin_d": {"amount": "", "unit": "mcg", "daily_value": ""},
      "calcium": {"amount": "", "unit": "mg", "daily_value": ""},
      "iron": {"amount": "", "unit": "mg", "daily_value": ""},
      "potassium": {"amount": "", "unit": "mg", "daily_value": ""}
    }
  },
  "ingredients": [],
  "allergens": [],
  "dietary_info": {
    "is_vegetarian": false,
    "is_vegan": false,
    "is_gluten_free": false
  },
  "storage_instructions": "",
  "manufacturer_info": ""
}

Important:
- Leave a field empty or null if it is not printed on the label
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// rawFoodPrompt describes unpackaged foods such as fruit and vegetables
const rawFoodPrompt = `You are looking at a photo of raw or unpackaged food. Identify each food item and estimate its nutrition for a typical serving.

Return ONLY valid JSON in this format:
{
  "food_identification": {
    "items": [],
    "total_items": 0
  },
  "nutritional_info": [
    {
      "food_name": "",
      "serving_size": "",
      "nutrition_facts": {
        "calories": "",
        "macronutrients": {
          "protein": "",
          "carbohydrates": "",
          "fiber": "",
          "sugars": "",
          "total_fat": ""
        },
        "vitamins_minerals": {
          "vitamin_c": "",
          "vitamin_a": "",
          "potassium": "",
          "calcium": ""
        }
      },
      "health_benefits": [],
      "storage_tips": []
    }
  ],
  "combination_suggestions": [],
  "seasonal_info": {"season": "", "availability": ""}
}

Important:
- Nutrient values are strings that include their unit, for example "1.3g"
- Do not include any text before or after the JSON
- Do not use markdown code blocks`
