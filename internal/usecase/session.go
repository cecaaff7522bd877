package usecase

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/relistco/relist-server/internal/entity"
	"github.com/relistco/relist-server/internal/infra/http/middleware"
)

// SessionManager resolves inbound phone numbers to seller identities and
// drives the email-verification sub-flow, including the two independent
// guards: the 3-wrong-attempts flow reset and the rolling-hour throttle.
type SessionManager struct {
	Sellers entity.SellerRepositoryInterface
	Convos  entity.ConversationRepositoryInterface
	Email   EmailServiceInterface

	// MaxFlowAttempts wrong emails reset the flow to the account-check
	// menu; WindowLimit attempts inside Window reject everything until the
	// window elapses.
	MaxFlowAttempts int
	WindowLimit     int
	Window          time.Duration
}

func NewSessionManager(
	sellers entity.SellerRepositoryInterface,
	convos entity.ConversationRepositoryInterface,
	email EmailServiceInterface,
) *SessionManager {
	return &SessionManager{
		Sellers:         sellers,
		Convos:          convos,
		Email:           email,
		MaxFlowAttempts: 3,
		WindowLimit:     10,
		Window:          time.Hour,
	}
}

// Resolve maps a raw inbound phone to (seller, conversation), creating the
// conversation row in state `new` on first contact. The seller is nil until
// the phone has been linked by a successful verification.
func (m *SessionManager) Resolve(ctx context.Context, rawPhone string) (*entity.Seller, *entity.Conversation, error) {
	phone, err := NormalizePhone(rawPhone)
	if err != nil {
		return nil, nil, err
	}

	conv, err := m.Convos.FindByPhone(ctx, phone)
	if errors.Is(err, entity.ErrConversationNotFound) {
		conv = entity.NewConversation(phone)
		if err := m.Convos.Create(ctx, conv); err != nil {
			return nil, nil, err
		}
	} else if err != nil {
		return nil, nil, err
	}

	seller, err := m.Sellers.FindByPhone(ctx, phone)
	if errors.Is(err, entity.ErrSellerNotFound) {
		return nil, conv, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return seller, conv, nil
}

// BeginEmailVerification parks the conversation in the re-verification state,
// stashing what the user was trying to do so the flow can resume after.
func (m *SessionManager) BeginEmailVerification(conv *entity.Conversation, pendingIntent string) {
	conv.Transition(entity.StateAwaitingEmail)
	conv.Context.PendingIntent = pendingIntent
	conv.AuthAttempts = 0
}

// SubmitEmailForVerification checks the texted email against the seller
// record found for it and, on a match, authorizes this conversation and
// revokes any other session held by the same seller.
func (m *SessionManager) SubmitEmailForVerification(ctx context.Context, conv *entity.Conversation, emailText string) (*entity.Seller, error) {
	email, err := ParseEmail(emailText)
	if err != nil {
		// Not email-shaped at all (a photo caption, "hi", an empty body).
		// Re-prompt without consuming a verification attempt.
		return nil, &AuthError{Code: "WRONG_EMAIL", Message: replyNotAnEmail}
	}

	if err := m.registerAttempt(conv); err != nil {
		return nil, err
	}

	seller, err := m.Sellers.FindByEmail(ctx, email)
	if errors.Is(err, entity.ErrSellerNotFound) {
		return nil, m.wrongAttempt(conv)
	}
	if err != nil {
		return nil, err
	}
	if !seller.MatchesEmail(email) {
		return nil, m.wrongAttempt(conv)
	}

	if err := m.Authorize(ctx, conv, seller); err != nil {
		return nil, err
	}
	return seller, nil
}

// SubmitEmailForNewAccount enrolls a brand-new seller under the texted email.
// If the email already belongs to an account we treat it as a verification
// of that account instead of failing the enrollment.
func (m *SessionManager) SubmitEmailForNewAccount(ctx context.Context, conv *entity.Conversation, emailText string) (*entity.Seller, error) {
	email, err := ParseEmail(emailText)
	if err != nil {
		return nil, &AuthError{Code: "WRONG_EMAIL", Message: replyNotAnEmail}
	}

	if err := m.registerAttempt(conv); err != nil {
		return nil, err
	}

	existing, err := m.Sellers.FindByEmail(ctx, email)
	if err == nil {
		if err := m.Authorize(ctx, conv, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}
	if !errors.Is(err, entity.ErrSellerNotFound) {
		return nil, err
	}

	seller, err := entity.NewSeller(email, displayNameFromEmail(email))
	if err != nil {
		return nil, m.wrongAttempt(conv)
	}
	if err := m.Sellers.Create(ctx, seller); err != nil {
		if errors.Is(err, entity.ErrEmailAlreadyExists) {
			return nil, m.wrongAttempt(conv)
		}
		return nil, err
	}

	if err := m.Authorize(ctx, conv, seller); err != nil {
		return nil, err
	}

	if m.Email != nil {
		go func(to, name string) {
			if err := m.Email.SendWelcome(to, name); err != nil {
				log.Printf("welcome email to %s failed: %v", to, err)
			}
		}(seller.Email, seller.DisplayName)
	}
	return seller, nil
}

// Authorize flips this conversation to an authorized session, links the
// phone to the seller and revokes every other session the seller holds.
// Single active phone session per seller is a security invariant.
func (m *SessionManager) Authorize(ctx context.Context, conv *entity.Conversation, seller *entity.Seller) error {
	if seller.Phone == nil || *seller.Phone != conv.Phone {
		if err := m.Sellers.LinkPhone(ctx, seller.ID, conv.Phone); err != nil {
			return err
		}
		phone := conv.Phone
		seller.Phone = &phone
	}
	if err := m.Convos.RevokeOtherSessions(ctx, seller.ID, conv.Phone); err != nil {
		return err
	}
	conv.Authorize(seller.ID)
	middleware.RecordAuthAttempt("success")
	return nil
}

// registerAttempt enforces the rolling-hour throttle before any email is
// even looked at.
func (m *SessionManager) registerAttempt(conv *entity.Conversation) error {
	now := time.Now()

	if conv.WindowStartedAt == nil || now.Sub(*conv.WindowStartedAt) >= m.Window {
		conv.WindowStartedAt = &now
		conv.WindowAttempts = 0
	}
	if conv.WindowAttempts >= m.WindowLimit {
		middleware.RecordAuthAttempt("rate_limited")
		return &AuthError{Code: "RATE_LIMITED", Message: replyRateLimited}
	}

	conv.WindowAttempts++
	conv.LastAuthAttemptAt = &now
	return nil
}

// wrongAttempt books a failed verification and decides between "try again"
// and the flow reset after MaxFlowAttempts misses.
func (m *SessionManager) wrongAttempt(conv *entity.Conversation) error {
	middleware.RecordAuthAttempt("wrong_email")
	conv.AuthAttempts++
	if conv.AuthAttempts >= m.MaxFlowAttempts {
		conv.AuthAttempts = 0
		return &AuthError{Code: "TOO_MANY_ATTEMPTS", Message: replyTooManyAttempts}
	}
	return &AuthError{Code: "WRONG_EMAIL", Message: replyWrongEmail}
}

func displayNameFromEmail(email string) string {
	local := email
	if i := strings.Index(email, "@"); i > 0 {
		local = email[:i]
	}
	local = strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(local)
	return titled(local)
}
