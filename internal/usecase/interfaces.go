package usecase

import (
	"context"

	"github.com/relistco/relist-server/internal/entity"
)

// Inbound is one webhook delivery: a text body, zero or more media
// references and the provider-assigned id used for replay detection.
type Inbound struct {
	MessageID string   `json:"message_id"`
	Phone     string   `json:"from"`
	Body      string   `json:"body"`
	MediaURLs []string `json:"media_urls"`
}

// Outcome is what one handled message produces. An empty Reply means the
// message was a duplicate delivery and nothing should be sent.
type Outcome struct {
	Reply string `json:"reply"`
}

// FieldExtractorInterface turns free text plus the already-known fields into
// a partial update. Implementations must never panic and should return an
// *ExtractionError on collaborator trouble; callers treat any error as
// "nothing extracted".
type FieldExtractorInterface interface {
	Extract(ctx context.Context, text string, known map[string]string) (FieldUpdate, error)
}

// PhotoAnalysis is the classifier's verdict for one photo.
type PhotoAnalysis struct {
	IsClothing  bool   `json:"is_clothing"`
	HasTag      bool   `json:"has_tag"`
	BrandGuess  string `json:"brand_guess,omitempty"`
	Description string `json:"description,omitempty"`
}

type PhotoClassifierInterface interface {
	Analyze(ctx context.Context, photoURL string) (PhotoAnalysis, error)
}

// PhotoStoreInterface persists a raw media reference into the object store
// and returns the durable CDN URL, polling until the processed asset is
// available or the retry budget runs out.
type PhotoStoreInterface interface {
	Save(ctx context.Context, draftID, photoURL string) (string, error)
}

// CatalogGatewayInterface hands a completed draft to the catalog system for
// review. Must not be called twice for the same draft unless the first call
// failed; that discipline belongs to the state machine.
type CatalogGatewayInterface interface {
	Submit(ctx context.Context, d *entity.Draft, seller *entity.Seller) (string, error)
}

// ListingSubmittedEvent is published after a successful catalog handoff and
// consumed by the notification worker.
type ListingSubmittedEvent struct {
	DraftID     string `json:"draft_id"`
	CatalogID   string `json:"catalog_id"`
	SellerID    string `json:"seller_id"`
	SellerName  string `json:"seller_name"`
	SellerEmail string `json:"seller_email"`
	SellerPhone string `json:"seller_phone,omitempty"`
	Designer    string `json:"designer"`
	ItemType    string `json:"item_type"`
	Price       string `json:"price"`
}

type QueueProducerInterface interface {
	PublishListingSubmitted(ctx context.Context, event ListingSubmittedEvent) error
}

type EmailServiceInterface interface {
	SendWelcome(to, name string) error
	SendListingSubmitted(to, name, designer, itemType, price string) error
}
