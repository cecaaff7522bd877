package entity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrDraftNotFound = errors.New("draft not found")

const (
	DraftStatusDraft         = "draft"
	DraftStatusPendingReview = "pending_review"
	DraftStatusDeleted       = "deleted"
)

// MinPhotos is the photo quota: tag photo plus item photos must reach this
// count before confirmation is offered.
const MinPhotos = 3

// Field names the five required listing fields, in prompt-priority order.
type Field string

const (
	FieldDesigner  Field = "designer"
	FieldItemType  Field = "item_type"
	FieldSize      Field = "size"
	FieldCondition Field = "condition"
	FieldPrice     Field = "price"
)

// FieldPriority is the fixed order in which missing fields are prompted for.
var FieldPriority = []Field{FieldDesigner, FieldItemType, FieldSize, FieldCondition, FieldPrice}

type Draft struct {
	ID             string `json:"id"`
	SellerID       string `json:"seller_id"`
	ConversationID string `json:"conversation_id"`
	Status         string `json:"status"`

	// Required fields.
	Designer   string `json:"designer"`
	ItemType   string `json:"item_type"` // e.g. "kurta", "3-piece suit"
	Size       string `json:"size"`
	Condition  string `json:"condition"`
	PriceCents int    `json:"price_cents"` // 0 = not set

	// Optional fields.
	Details       string `json:"details"`
	ColorMaterial string `json:"color_material"`
	ReferenceLink string `json:"reference_link"`

	// Photos. TagPhotoURL is the dedicated label/tag slot; PhotoURLs is the
	// ordered list of item photos.
	TagPhotoURL string   `json:"tag_photo_url"`
	PhotoURLs   []string `json:"photo_urls"`

	CatalogID string    `json:"catalog_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type DraftRepositoryInterface interface {
	Create(ctx context.Context, d *Draft) error
	FindByID(ctx context.Context, id string) (*Draft, error)
	// FindOpenForSeller returns the newest non-terminal draft, or
	// ErrDraftNotFound.
	FindOpenForSeller(ctx context.Context, sellerID string) (*Draft, error)
	// UpdateFields writes only the listing field columns (required plus
	// optional fields). Photos and lifecycle status are never touched here,
	// so a field write can't clobber them.
	UpdateFields(ctx context.Context, d *Draft) error
	// AttachTagPhoto fills the tag slot; AppendPhoto appends to the item
	// photo list. Both are durable before returning.
	AttachTagPhoto(ctx context.Context, id, url string) error
	AppendPhoto(ctx context.Context, id, url string) error
	// ClearPhotos empties both the tag slot and the item photo list
	// (used by the edit-photos flow).
	ClearPhotos(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	MarkPendingReview(ctx context.Context, id, catalogID string) error
}

func NewDraft(sellerID, conversationID string) *Draft {
	return &Draft{
		ID:             uuid.New().String(),
		SellerID:       sellerID,
		ConversationID: conversationID,
		Status:         DraftStatusDraft,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
}

// PhotoCount counts accepted photos; the tag photo counts toward the quota.
func (d *Draft) PhotoCount() int {
	n := len(d.PhotoURLs)
	if d.TagPhotoURL != "" {
		n++
	}
	return n
}

// FieldValue returns the current value of a required field ("" when unset).
func (d *Draft) FieldValue(f Field) string {
	switch f {
	case FieldDesigner:
		return d.Designer
	case FieldItemType:
		return d.ItemType
	case FieldSize:
		return d.Size
	case FieldCondition:
		return d.Condition
	case FieldPrice:
		if d.PriceCents <= 0 {
			return ""
		}
		return FormatPrice(d.PriceCents)
	}
	return ""
}

// MissingRequired returns the unset required fields in prompt-priority order.
func (d *Draft) MissingRequired() []Field {
	var missing []Field
	for _, f := range FieldPriority {
		if d.FieldValue(f) == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// ReadyForReview reports whether the draft satisfies both gates: no missing
// required fields and the photo quota.
func (d *Draft) ReadyForReview() bool {
	return len(d.MissingRequired()) == 0 && d.PhotoCount() >= MinPhotos
}

// FormatPrice renders cents as a user-facing dollar string, e.g. "$85" or
// "$85.50".
func FormatPrice(cents int) string {
	if cents%100 == 0 {
		return fmt.Sprintf("$%d", cents/100)
	}
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
