package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/lib/pq"
	"github.com/relistco/relist-server/internal/entity"
)

type ConversationRepository struct {
	DB *sql.DB
}

func NewConversationRepository(db *sql.DB) *ConversationRepository {
	return &ConversationRepository{DB: db}
}

func (r *ConversationRepository) Create(ctx context.Context, c *entity.Conversation) error {
	ctxJSON, err := json.Marshal(c.Context)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO conversations (
			id, phone, state, context, authorized, seller_id,
			authorized_at, auth_attempts, last_auth_attempt_at,
			window_attempts, window_started_at,
			processed_message_ids, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	c.Version = 1
	_, err = r.DB.ExecContext(ctx, query,
		c.ID, c.Phone, string(c.State), ctxJSON, c.Authorized, c.SellerID,
		c.AuthorizedAt, c.AuthAttempts, c.LastAuthAttemptAt,
		c.WindowAttempts, c.WindowStartedAt,
		pq.Array(c.ProcessedMessageIDs), c.Version, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		log.Printf("conversation insert failed: %v", err)
	}
	return err
}

const conversationColumns = `
	id, phone, state, context, authorized, seller_id,
	authorized_at, auth_attempts, last_auth_attempt_at,
	window_attempts, window_started_at,
	processed_message_ids, version, created_at, updated_at`

func (r *ConversationRepository) FindByPhone(ctx context.Context, phone string) (*entity.Conversation, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE phone = $1`, phone)

	var c entity.Conversation
	var state string
	var ctxJSON []byte
	err := row.Scan(
		&c.ID, &c.Phone, &state, &ctxJSON, &c.Authorized, &c.SellerID,
		&c.AuthorizedAt, &c.AuthAttempts, &c.LastAuthAttemptAt,
		&c.WindowAttempts, &c.WindowStartedAt,
		pq.Array(&c.ProcessedMessageIDs), &c.Version, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}

	c.State = entity.State(state)
	if len(ctxJSON) > 0 {
		if err := json.Unmarshal(ctxJSON, &c.Context); err != nil {
			log.Printf("conversation %s has bad context json, resetting: %v", c.ID, err)
			c.Context = entity.ConversationContext{}
		}
	}
	return &c, nil
}

// Update writes the row back guarded by the version it was read at. No row
// matched means another handler got there first: ErrConversationConflict,
// and the caller drops its work instead of double-applying a transition.
func (r *ConversationRepository) Update(ctx context.Context, c *entity.Conversation) error {
	ctxJSON, err := json.Marshal(c.Context)
	if err != nil {
		return err
	}

	query := `
		UPDATE conversations SET
			state = $1, context = $2, authorized = $3, seller_id = $4,
			authorized_at = $5, auth_attempts = $6, last_auth_attempt_at = $7,
			window_attempts = $8, window_started_at = $9,
			processed_message_ids = $10, version = version + 1, updated_at = $11
		WHERE id = $12 AND version = $13
	`

	res, err := r.DB.ExecContext(ctx, query,
		string(c.State), ctxJSON, c.Authorized, c.SellerID,
		c.AuthorizedAt, c.AuthAttempts, c.LastAuthAttemptAt,
		c.WindowAttempts, c.WindowStartedAt,
		pq.Array(c.ProcessedMessageIDs), time.Now(),
		c.ID, c.Version,
	)
	if err != nil {
		log.Printf("conversation update failed (%s): %v", c.ID, err)
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return entity.ErrConversationConflict
	}

	c.Version++
	return nil
}

// RevokeOtherSessions enforces the single-active-phone-session invariant:
// every conversation for this seller except keepPhone loses authorization.
func (r *ConversationRepository) RevokeOtherSessions(ctx context.Context, sellerID, keepPhone string) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE conversations
		SET authorized = FALSE, version = version + 1, updated_at = $3
		WHERE seller_id = $1 AND phone <> $2 AND authorized = TRUE
	`, sellerID, keepPhone, time.Now())
	return err
}

// PruneElapsedWindows zeroes verification-throttle counters whose rolling
// window ended before the cutoff, so stale counters don't linger in rows.
func (r *ConversationRepository) PruneElapsedWindows(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE conversations
		SET window_attempts = 0, window_started_at = NULL,
		    version = version + 1, updated_at = $2
		WHERE window_started_at IS NOT NULL AND window_started_at < $1
	`, cutoff, time.Now())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
