package catalog

// createListingRequest is the catalog system's intake payload.
type createListingRequest struct {
	SellerRef      string   `json:"seller_ref"`
	SellerEmail    string   `json:"seller_email"`
	CommissionRate float64  `json:"commission_rate"`
	Designer       string   `json:"designer"`
	ItemType       string   `json:"item_type"`
	Size           string   `json:"size"`
	Condition      string   `json:"condition"`
	PriceCents     int      `json:"price_cents"`
	Details        string   `json:"details,omitempty"`
	ColorMaterial  string   `json:"color_material,omitempty"`
	ReferenceLink  string   `json:"reference_link,omitempty"`
	TagPhotoURL    string   `json:"tag_photo_url,omitempty"`
	PhotoURLs      []string `json:"photo_urls"`
	Source         string   `json:"source"`
	IdempotencyKey string   `json:"idempotency_key"`
}

type createListingResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
