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

type SellerRepository struct {
	DB *sql.DB
}

func NewSellerRepository(db *sql.DB) *SellerRepository {
	return &SellerRepository{DB: db}
}

func (r *SellerRepository) Create(ctx context.Context, s *entity.Seller) error {
	query := `
		INSERT INTO sellers (id, phone, email, alt_email, display_name, commission_rate, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.DB.ExecContext(ctx, query,
		s.ID,
		s.Phone,
		s.Email,
		s.AltEmail,
		s.DisplayName,
		s.CommissionRate,
		s.CreatedAt,
		s.UpdatedAt,
	)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return entity.ErrEmailAlreadyExists
		}
		log.Printf("seller insert failed: %v", err)
		return err
	}

	return nil
}

const sellerColumns = `id, phone, email, alt_email, display_name, commission_rate, created_at, updated_at`

func (r *SellerRepository) FindByID(ctx context.Context, id string) (*entity.Seller, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+sellerColumns+` FROM sellers WHERE id = $1`, id)
	return scanSeller(row)
}

func (r *SellerRepository) FindByPhone(ctx context.Context, phone string) (*entity.Seller, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+sellerColumns+` FROM sellers WHERE phone = $1`, phone)
	return scanSeller(row)
}

// FindByEmail matches the primary or alternate email, case-insensitively.
func (r *SellerRepository) FindByEmail(ctx context.Context, email string) (*entity.Seller, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+sellerColumns+` FROM sellers
		 WHERE LOWER(email) = LOWER($1) OR LOWER(alt_email) = LOWER($1)`, email)
	return scanSeller(row)
}

// LinkPhone moves the phone onto this seller, detaching it from anyone else
// first (a phone belongs to at most one seller).
func (r *SellerRepository) LinkPhone(ctx context.Context, sellerID, phone string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE sellers SET phone = NULL, updated_at = $2 WHERE phone = $1 AND id <> $3`,
		phone, time.Now(), sellerID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE sellers SET phone = $1, updated_at = $2 WHERE id = $3`,
		phone, time.Now(), sellerID); err != nil {
		return err
	}

	return tx.Commit()
}

func scanSeller(row *sql.Row) (*entity.Seller, error) {
	var s entity.Seller
	err := row.Scan(
		&s.ID,
		&s.Phone,
		&s.Email,
		&s.AltEmail,
		&s.DisplayName,
		&s.CommissionRate,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrSellerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
