package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMissingRequiredFollowsPriorityOrder(t *testing.T) {
	d := NewDraft("seller-1", "conv-1")

	assert.Equal(t, FieldPriority, d.MissingRequired())

	// Filling out of order never changes the prompt order of what's left.
	d.Size = "M"
	d.PriceCents = 8500
	assert.Equal(t, []Field{FieldDesigner, FieldItemType, FieldCondition}, d.MissingRequired())

	d.Condition = "like new"
	d.Designer = "Sana Safinaz"
	assert.Equal(t, []Field{FieldItemType}, d.MissingRequired())

	d.ItemType = "kurta"
	assert.Empty(t, d.MissingRequired())
}

func TestReadyForReviewNeedsFieldsAndPhotos(t *testing.T) {
	d := NewDraft("seller-1", "conv-1")
	d.Designer = "Khaadi"
	d.ItemType = "2-piece"
	d.Size = "S"
	d.Condition = "new with tags"
	d.PriceCents = 12000

	assert.False(t, d.ReadyForReview(), "no photos yet")

	d.PhotoURLs = []string{"a.jpg", "b.jpg"}
	assert.False(t, d.ReadyForReview(), "two photos is below the quota")

	// The tag photo counts toward the quota.
	d.TagPhotoURL = "tag.jpg"
	assert.True(t, d.ReadyForReview())

	d.PriceCents = 0
	assert.False(t, d.ReadyForReview(), "a cleared field reopens the gate")
}

func TestPhotoCountIncludesTagSlot(t *testing.T) {
	d := NewDraft("seller-1", "conv-1")
	assert.Equal(t, 0, d.PhotoCount())

	d.PhotoURLs = []string{"a.jpg"}
	assert.Equal(t, 1, d.PhotoCount())

	d.TagPhotoURL = "tag.jpg"
	assert.Equal(t, 2, d.PhotoCount())
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "$85", FormatPrice(8500))
	assert.Equal(t, "$85.50", FormatPrice(8550))
	assert.Equal(t, "$0.99", FormatPrice(99))
	assert.Equal(t, "$1200", FormatPrice(120000))
}

func TestFieldValueRendersPrice(t *testing.T) {
	d := NewDraft("seller-1", "conv-1")
	assert.Equal(t, "", d.FieldValue(FieldPrice))

	d.PriceCents = 8550
	assert.Equal(t, "$85.50", d.FieldValue(FieldPrice))
}
