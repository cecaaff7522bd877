package usecase

import (
	"strings"

	"github.com/relistco/relist-server/internal/entity"
)

// FieldUpdate is a partial listing update. A nil pointer means "the source
// said nothing about this field"; merging never clears a field the update
// doesn't mention.
type FieldUpdate struct {
	Designer      *string `json:"designer,omitempty"`
	ItemType      *string `json:"item_type,omitempty"`
	Size          *string `json:"size,omitempty"`
	Condition     *string `json:"condition,omitempty"`
	PriceCents    *int    `json:"price_cents,omitempty"`
	Details       *string `json:"details,omitempty"`
	ColorMaterial *string `json:"color_material,omitempty"`
	ReferenceLink *string `json:"reference_link,omitempty"`
}

// IsEmpty reports whether the update carries no fields at all.
func (u FieldUpdate) IsEmpty() bool {
	return u.Designer == nil && u.ItemType == nil && u.Size == nil &&
		u.Condition == nil && u.PriceCents == nil && u.Details == nil &&
		u.ColorMaterial == nil && u.ReferenceLink == nil
}

// ApplyUpdate merges the update into the draft: a present field overwrites
// the old value, an absent field is left untouched. Blank strings from the
// extractor are treated as absent so a sloppy collaborator can't erase
// confirmed data.
func ApplyUpdate(d *entity.Draft, u FieldUpdate) {
	if v := cleaned(u.Designer); v != "" {
		d.Designer = v
	}
	if v := cleaned(u.ItemType); v != "" {
		d.ItemType = v
	}
	if v := cleaned(u.Size); v != "" {
		d.Size = v
	}
	if v := cleaned(u.Condition); v != "" {
		d.Condition = v
	}
	if u.PriceCents != nil && *u.PriceCents > 0 {
		d.PriceCents = *u.PriceCents
	}
	if v := cleaned(u.Details); v != "" {
		d.Details = v
	}
	if v := cleaned(u.ColorMaterial); v != "" {
		d.ColorMaterial = v
	}
	if v := cleaned(u.ReferenceLink); v != "" {
		d.ReferenceLink = v
	}
}

func cleaned(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// KnownFields snapshots the draft's current required-field values for the
// extractor, so it can resolve references like "actually it's a large".
func KnownFields(d *entity.Draft) map[string]string {
	known := map[string]string{}
	for _, f := range entity.FieldPriority {
		if v := d.FieldValue(f); v != "" {
			known[string(f)] = v
		}
	}
	if d.Details != "" {
		known["details"] = d.Details
	}
	if d.ColorMaterial != "" {
		known["color_material"] = d.ColorMaterial
	}
	return known
}
