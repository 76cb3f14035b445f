package models

// AnalysisRecord is the canonical shape handed to the results view.
// It is built once per selection and never mutated afterwards.
type AnalysisRecord struct {
	ID                  string         `json:"id"`
	PersonID            *string        `json:"personId"`
	CapturedImageRef    *string        `json:"capturedImageRef"`
	CapturedImageURL    string         `json:"capturedImageUrl,omitempty"`
	AnalyzedAt          string         `json:"analyzedAt"`
	DisplayName         string         `json:"displayName"`
	ConclusionText      *string        `json:"conclusionText"`
	IsRenalCompatible   *bool          `json:"isRenalCompatible"`
	IsProfileCompatible *bool          `json:"isProfileCompatible"`
	DetectedFoods       []FoodItem     `json:"detectedFoods"`
	NutrientTotals      NutrientTotals `json:"nutrientTotals"`
	Recommendations     *string        `json:"recommendations"`
	RawSourceText       map[string]any `json:"rawSourceText"`
	UserFoodSelections  map[string]any `json:"userFoodSelections"`
	FoodUnitOverrides   map[string]any `json:"foodUnitOverrides"`
	UpdatedFoods        any            `json:"updatedFoods,omitempty"`
}

// FoodItem is one detected food. Attributes keeps the original object.
type FoodItem struct {
	Name       string         `json:"name"`
	Quantity   float64        `json:"quantity"`
	Unit       string         `json:"unit,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// NutrientTotals always carries all seven keys.
type NutrientTotals struct {
	Energy       float64 `json:"energy"`
	Protein      float64 `json:"protein"`
	Carbohydrate float64 `json:"carbohydrate"`
	Fat          float64 `json:"fat"`
	Sodium       float64 `json:"sodium"`
	Potassium    float64 `json:"potassium"`
	Phosphorus   float64 `json:"phosphorus"`
}

// HistoryEntry is the summary row shown in the previous-analyses list.
type HistoryEntry struct {
	ID                  string  `json:"id"`
	AnalyzedAt          string  `json:"analyzedAt,omitempty"`
	DisplayName         string  `json:"displayName"`
	ImageURL            string  `json:"imageUrl,omitempty"`
	IsProfileCompatible *bool   `json:"isProfileCompatible,omitempty"`
	IsRenalCompatible   *bool   `json:"isRenalCompatible,omitempty"`
	PersonID            *string `json:"personId,omitempty"`
}
