package entity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSellerNotFound     = errors.New("seller not found")
	ErrEmailAlreadyExists = errors.New("email already registered")
)

// DefaultCommissionRate is the seller's share of the sale price for accounts
// enrolled through the chat flow.
const DefaultCommissionRate = 0.80

type Seller struct {
	ID             string    `json:"id"`
	Phone          *string   `json:"phone,omitempty"` // unique when set
	Email          string    `json:"email"`
	AltEmail       *string   `json:"alt_email,omitempty"`
	DisplayName    string    `json:"display_name"`
	CommissionRate float64   `json:"commission_rate"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type SellerRepositoryInterface interface {
	Create(ctx context.Context, s *Seller) error
	FindByID(ctx context.Context, id string) (*Seller, error)
	FindByPhone(ctx context.Context, phone string) (*Seller, error)
	// FindByEmail matches either the primary or the alternate email,
	// case-insensitively.
	FindByEmail(ctx context.Context, email string) (*Seller, error)
	LinkPhone(ctx context.Context, sellerID, phone string) error
}

func NewSeller(email, displayName string) (*Seller, error) {
	s := &Seller{
		ID:             uuid.New().String(),
		Email:          strings.ToLower(strings.TrimSpace(email)),
		DisplayName:    displayName,
		CommissionRate: DefaultCommissionRate,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Seller) Validate() error {
	if s.Email == "" {
		return errors.New("email is required")
	}
	return nil
}

// MatchesEmail reports whether the given address matches the seller's primary
// or alternate contact email. Comparison is case-insensitive.
func (s *Seller) MatchesEmail(email string) bool {
	e := strings.ToLower(strings.TrimSpace(email))
	if e == "" {
		return false
	}
	if strings.ToLower(s.Email) == e {
		return true
	}
	return s.AltEmail != nil && strings.ToLower(*s.AltEmail) == e
}
