package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relistco/relist-server/internal/entity"
)

func TestApplyUpdateMergesWithoutClobbering(t *testing.T) {
	d := entity.NewDraft("seller-1", "conv-1")
	d.Designer = "Sana Safinaz"
	d.Size = "M"

	ApplyUpdate(d, FieldUpdate{
		ItemType:   strPtr("kurta"),
		PriceCents: intPtr(8500),
	})

	// New fields land, fields the update didn't mention survive.
	assert.Equal(t, "Sana Safinaz", d.Designer)
	assert.Equal(t, "M", d.Size)
	assert.Equal(t, "kurta", d.ItemType)
	assert.Equal(t, 8500, d.PriceCents)
}

func TestApplyUpdateLastExtractionWins(t *testing.T) {
	d := entity.NewDraft("seller-1", "conv-1")
	d.Size = "M"

	ApplyUpdate(d, FieldUpdate{Size: strPtr("L")})
	assert.Equal(t, "L", d.Size)
}

func TestApplyUpdateBlankStringsAreAbsent(t *testing.T) {
	d := entity.NewDraft("seller-1", "conv-1")
	d.Designer = "Khaadi"
	d.Condition = "like new"

	ApplyUpdate(d, FieldUpdate{
		Designer:  strPtr(""),
		Condition: strPtr("   "),
		Size:      strPtr("S"),
	})

	assert.Equal(t, "Khaadi", d.Designer, "blank never erases confirmed data")
	assert.Equal(t, "like new", d.Condition)
	assert.Equal(t, "S", d.Size)
}

func TestApplyUpdateRejectsNonPositivePrice(t *testing.T) {
	d := entity.NewDraft("seller-1", "conv-1")
	d.PriceCents = 8500

	ApplyUpdate(d, FieldUpdate{PriceCents: intPtr(0)})
	assert.Equal(t, 8500, d.PriceCents)

	ApplyUpdate(d, FieldUpdate{PriceCents: intPtr(-100)})
	assert.Equal(t, 8500, d.PriceCents)
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, FieldUpdate{}.IsEmpty())
	assert.False(t, FieldUpdate{Details: strPtr("worn once")}.IsEmpty())
}

func TestKnownFieldsSnapshotsOnlySetValues(t *testing.T) {
	d := entity.NewDraft("seller-1", "conv-1")
	d.Designer = "Élan"
	d.PriceCents = 12050
	d.Details = "hem taken up"

	known := KnownFields(d)

	assert.Equal(t, map[string]string{
		"designer": "Élan",
		"price":    "$120.50",
		"details":  "hem taken up",
	}, known)
}
