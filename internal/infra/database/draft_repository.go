package database

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/lib/pq"
	"github.com/relistco/relist-server/internal/entity"
)

type DraftRepository struct {
	DB *sql.DB
}

func NewDraftRepository(db *sql.DB) *DraftRepository {
	return &DraftRepository{DB: db}
}

func (r *DraftRepository) Create(ctx context.Context, d *entity.Draft) error {
	query := `
		INSERT INTO drafts (
			id, seller_id, conversation_id, status,
			designer, item_type, size, condition, price_cents,
			details, color_material, reference_link,
			tag_photo_url, photo_urls, catalog_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := r.DB.ExecContext(ctx, query,
		d.ID, d.SellerID, d.ConversationID, d.Status,
		d.Designer, d.ItemType, d.Size, d.Condition, d.PriceCents,
		d.Details, d.ColorMaterial, d.ReferenceLink,
		d.TagPhotoURL, pq.Array(d.PhotoURLs), d.CatalogID, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		log.Printf("draft insert failed: %v", err)
	}
	return err
}

const draftColumns = `
	id, seller_id, conversation_id, status,
	designer, item_type, size, condition, price_cents,
	details, color_material, reference_link,
	tag_photo_url, photo_urls, catalog_id, created_at, updated_at`

func (r *DraftRepository) FindByID(ctx context.Context, id string) (*entity.Draft, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+draftColumns+` FROM drafts WHERE id = $1 AND status <> 'deleted'`, id)
	return scanDraft(row)
}

// FindOpenForSeller returns the newest non-terminal draft for the seller.
func (r *DraftRepository) FindOpenForSeller(ctx context.Context, sellerID string) (*entity.Draft, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+draftColumns+` FROM drafts
		WHERE seller_id = $1 AND status = 'draft'
		ORDER BY created_at DESC
		LIMIT 1
	`, sellerID)
	return scanDraft(row)
}

// UpdateFields writes only the listing field columns. Photos and status have
// their own statements, so a concurrent photo append can't be clobbered by a
// field write.
func (r *DraftRepository) UpdateFields(ctx context.Context, d *entity.Draft) error {
	query := `
		UPDATE drafts SET
			designer = $1, item_type = $2, size = $3, condition = $4,
			price_cents = $5, details = $6, color_material = $7,
			reference_link = $8, updated_at = $9
		WHERE id = $10 AND status = 'draft'
	`

	_, err := r.DB.ExecContext(ctx, query,
		d.Designer, d.ItemType, d.Size, d.Condition,
		d.PriceCents, d.Details, d.ColorMaterial,
		d.ReferenceLink, time.Now(), d.ID,
	)
	if err != nil {
		log.Printf("draft field update failed (%s): %v", d.ID, err)
	}
	return err
}

func (r *DraftRepository) AttachTagPhoto(ctx context.Context, id, url string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE drafts SET tag_photo_url = $1, updated_at = $2 WHERE id = $3 AND status = 'draft'`,
		url, time.Now(), id)
	return err
}

func (r *DraftRepository) AppendPhoto(ctx context.Context, id, url string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE drafts SET photo_urls = array_append(photo_urls, $1), updated_at = $2 WHERE id = $3 AND status = 'draft'`,
		url, time.Now(), id)
	return err
}

func (r *DraftRepository) ClearPhotos(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE drafts SET tag_photo_url = '', photo_urls = '{}', updated_at = $1 WHERE id = $2 AND status = 'draft'`,
		time.Now(), id)
	return err
}

// Delete is a soft delete; the row stays for audit but no query returns it.
func (r *DraftRepository) Delete(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE drafts SET status = 'deleted', updated_at = $1 WHERE id = $2`,
		time.Now(), id)
	return err
}

func (r *DraftRepository) MarkPendingReview(ctx context.Context, id, catalogID string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE drafts SET status = 'pending_review', catalog_id = $1, updated_at = $2
		WHERE id = $3 AND status = 'draft'
	`, catalogID, time.Now(), id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return entity.ErrDraftNotFound
	}
	return nil
}

func scanDraft(row *sql.Row) (*entity.Draft, error) {
	var d entity.Draft
	err := row.Scan(
		&d.ID, &d.SellerID, &d.ConversationID, &d.Status,
		&d.Designer, &d.ItemType, &d.Size, &d.Condition, &d.PriceCents,
		&d.Details, &d.ColorMaterial, &d.ReferenceLink,
		&d.TagPhotoURL, pq.Array(&d.PhotoURLs), &d.CatalogID, &d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrDraftNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}
