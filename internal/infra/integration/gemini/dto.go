package gemini

// extractionResult is the JSON shape the model is asked to produce for field
// extraction. Everything is a string; absent or unknown fields stay empty
// and are dropped before the update reaches the draft.
type extractionResult struct {
	Designer      string `json:"designer,omitempty"`
	ItemType      string `json:"item_type,omitempty"`
	Size          string `json:"size,omitempty"`
	Condition     string `json:"condition,omitempty"`
	Price         string `json:"price,omitempty"`
	Details       string `json:"details,omitempty"`
	ColorMaterial string `json:"color_material,omitempty"`
	ReferenceLink string `json:"reference_link,omitempty"`
}

// analysisResult is the JSON shape for photo classification.
type analysisResult struct {
	IsClothing  bool   `json:"is_clothing"`
	HasTag      bool   `json:"has_tag"`
	BrandGuess  string `json:"brand_guess,omitempty"`
	Description string `json:"description,omitempty"`
}
