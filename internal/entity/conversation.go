package entity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrConversationConflict means the row was updated by another handler
	// between our read and write (optimistic version check failed).
	ErrConversationConflict = errors.New("conversation version conflict")
)

// State is the conversation state machine cursor. Closed set: adding a state
// requires a handler for it in the dispatcher.
type State string

const (
	StateNew                  State = "new"
	StateAwaitingAccountCheck State = "awaiting_account_check"
	StateAwaitingExistingEmail State = "awaiting_existing_email"
	StateAwaitingNewEmail     State = "awaiting_new_email"
	StateAwaitingEmail        State = "awaiting_email" // re-verification
	StateAuthorized           State = "authorized"
	StateSellStarted          State = "sell_started"
	StateSellDraftChoice      State = "sell_draft_choice"
	StateSellCollecting       State = "sell_collecting"
	StateSellDetails          State = "sell_details"
	StateSellPhotos           State = "sell_photos"
	StateSellConfirming       State = "sell_confirming"
	StateSellEditing          State = "sell_editing"
)

// ProcessedIDCap bounds the per-conversation log of inbound message ids kept
// for duplicate-delivery detection.
const ProcessedIDCap = 100

// ConversationContext is the per-state scratch space. Which fields are
// meaningful depends on State; Reset must be called on every transition that
// crosses a flow boundary so nothing leaks between flows.
type ConversationContext struct {
	DraftID        string `json:"draft_id,omitempty"`
	PriorDraftID   string `json:"prior_draft_id,omitempty"`
	PendingIntent  string `json:"pending_intent,omitempty"`
	ConfusionCount int    `json:"confusion_count,omitempty"`
	DetailsDone    bool   `json:"details_done,omitempty"`
}

func (c *ConversationContext) Reset() {
	*c = ConversationContext{}
}

type Conversation struct {
	ID         string              `json:"id"`
	Phone      string              `json:"phone"`
	State      State               `json:"state"`
	Context    ConversationContext `json:"context"`
	Authorized bool                `json:"authorized"`
	SellerID   *string             `json:"seller_id,omitempty"`

	AuthorizedAt      *time.Time `json:"authorized_at,omitempty"`
	AuthAttempts      int        `json:"auth_attempts"`
	LastAuthAttemptAt *time.Time `json:"last_auth_attempt_at,omitempty"`

	// Rolling-hour verification throttle.
	WindowAttempts  int        `json:"window_attempts"`
	WindowStartedAt *time.Time `json:"window_started_at,omitempty"`

	// Recently processed inbound message ids, newest last, capped at
	// ProcessedIDCap.
	ProcessedMessageIDs []string `json:"processed_message_ids"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ConversationRepositoryInterface interface {
	Create(ctx context.Context, c *Conversation) error
	FindByPhone(ctx context.Context, phone string) (*Conversation, error)
	// Update writes the row back guarded by c.Version; on success the
	// in-memory Version is bumped, otherwise ErrConversationConflict.
	Update(ctx context.Context, c *Conversation) error
	// RevokeOtherSessions clears the authorized flag on every other
	// conversation linked to the seller. Single active phone session.
	RevokeOtherSessions(ctx context.Context, sellerID, keepPhone string) error
	// PruneElapsedWindows zeroes throttle counters whose rolling window
	// ended before the cutoff. Returns the number of rows touched.
	PruneElapsedWindows(ctx context.Context, cutoff time.Time) (int, error)
}

func NewConversation(phone string) *Conversation {
	return &Conversation{
		ID:        uuid.New().String(),
		Phone:     phone,
		State:     StateNew,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// SeenMessage reports whether the inbound message id was already processed.
func (c *Conversation) SeenMessage(messageID string) bool {
	if messageID == "" {
		return false
	}
	for _, id := range c.ProcessedMessageIDs {
		if id == messageID {
			return true
		}
	}
	return false
}

// RecordMessage appends the id to the dedup log, evicting the oldest entry
// once the cap is reached.
func (c *Conversation) RecordMessage(messageID string) {
	if messageID == "" {
		return
	}
	c.ProcessedMessageIDs = append(c.ProcessedMessageIDs, messageID)
	if len(c.ProcessedMessageIDs) > ProcessedIDCap {
		c.ProcessedMessageIDs = c.ProcessedMessageIDs[len(c.ProcessedMessageIDs)-ProcessedIDCap:]
	}
}

// Transition moves the conversation to next, resetting the context whenever
// the move crosses a flow boundary (into the auth flow or back to the
// authorized menu).
func (c *Conversation) Transition(next State) {
	if next != c.State && crossesFlowBoundary(next) {
		c.Context.Reset()
	}
	c.State = next
	c.UpdatedAt = time.Now()
}

func crossesFlowBoundary(next State) bool {
	switch next {
	case StateAuthorized, StateNew, StateAwaitingAccountCheck,
		StateAwaitingExistingEmail, StateAwaitingNewEmail, StateAwaitingEmail:
		return true
	}
	return false
}

// Authorize links the seller and flags the session. Context is reset by the
// accompanying Transition to StateAuthorized.
func (c *Conversation) Authorize(sellerID string) {
	now := time.Now()
	c.Authorized = true
	c.SellerID = &sellerID
	c.AuthorizedAt = &now
	c.AuthAttempts = 0
}
