package usecase

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/relistco/relist-server/internal/entity"
)

// handleNew greets a first contact. When the phone is already linked to a
// seller, verification is skipped and the session is authorized directly.
func (m *Machine) handleNew(ctx context.Context, conv *entity.Conversation, seller *entity.Seller) string {
	if seller != nil {
		if err := m.Sessions.Authorize(ctx, conv, seller); err != nil {
			log.Printf("fast-path authorize failed for %s: %v", conv.Phone, err)
			conv.Transition(entity.StateNew)
			return replySomethingWrong
		}
		conv.Transition(entity.StateAuthorized)
		return "Welcome back, " + seller.DisplayName + "! 👋\n\n" + replyMenu
	}

	conv.Transition(entity.StateAwaitingAccountCheck)
	return replyGreeting
}

func (m *Machine) handleAccountCheck(text string, conv *entity.Conversation) string {
	switch {
	case isAffirmative(text):
		conv.Transition(entity.StateAwaitingExistingEmail)
		return replyAskExistingEmail
	case isNegative(text):
		conv.Transition(entity.StateAwaitingNewEmail)
		return replyAskNewEmail
	}

	if bumpConfusion(conv) {
		return "Reply with a number:\n1. Yes, I have an account\n2. No, I'm new here"
	}
	return replyDidntUnderstand + " " + replyAccountCheck
}

func (m *Machine) handleExistingEmail(ctx context.Context, body string, conv *entity.Conversation) string {
	seller, err := m.Sessions.SubmitEmailForVerification(ctx, conv, body)
	if err != nil {
		return m.authFailureReply(err, conv)
	}
	return m.afterAuthorized(ctx, conv, seller, "You're verified, "+seller.DisplayName+"! ✅")
}

func (m *Machine) handleNewEmail(ctx context.Context, body string, conv *entity.Conversation) string {
	seller, err := m.Sessions.SubmitEmailForNewAccount(ctx, conv, body)
	if err != nil {
		return m.authFailureReply(err, conv)
	}
	return m.afterAuthorized(ctx, conv, seller, "Your account is set up, "+seller.DisplayName+"! 🎉")
}

// handleReverifyEmail is the awaiting_email state: same verification, but an
// intent stashed before verification started resumes afterwards.
func (m *Machine) handleReverifyEmail(ctx context.Context, body string, conv *entity.Conversation) string {
	seller, err := m.Sessions.SubmitEmailForVerification(ctx, conv, body)
	if err != nil {
		return m.authFailureReply(err, conv)
	}
	return m.afterAuthorized(ctx, conv, seller, "You're verified! ✅")
}

// afterAuthorized routes a freshly verified session: either straight into
// the flow the user originally asked for, or to the menu.
func (m *Machine) afterAuthorized(ctx context.Context, conv *entity.Conversation, seller *entity.Seller, greeting string) string {
	intent := conv.Context.PendingIntent
	conv.Transition(entity.StateAuthorized) // resets context

	if intent == "sell" {
		return greeting + "\n\n" + m.startSell(ctx, conv, seller)
	}
	return greeting + "\n\n" + replyMenu
}

// authFailureReply maps the session manager's error taxonomy onto replies
// and state moves. Wrong email keeps the state; three misses reset the flow
// to the account-check menu; the throttle rejects without moving anything.
func (m *Machine) authFailureReply(err error, conv *entity.Conversation) string {
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		log.Printf("verification failed for %s: %v", conv.Phone, err)
		return replySomethingWrong
	}

	switch authErr.Code {
	case "TOO_MANY_ATTEMPTS":
		conv.Transition(entity.StateAwaitingAccountCheck)
	case "RATE_LIMITED", "WRONG_EMAIL":
		// Stay put; the reply says what to do.
	}
	return authErr.Message
}

// handleAuthorized is the top-level menu for a verified session.
func (m *Machine) handleAuthorized(ctx context.Context, text string, in Inbound, conv *entity.Conversation, seller *entity.Seller) string {
	if seller == nil {
		// Authorized flag without a resolvable seller means the session was
		// revoked or the seller row went away; re-verify.
		conv.Authorized = false
		m.Sessions.BeginEmailVerification(conv, "")
		return replyAskVerifyEmail
	}

	switch {
	case text == "sell" || text == "1" || hasAnyPrefix(text, "sell ", "i want to sell", "list an item", "new listing"):
		if !conv.Authorized {
			m.Sessions.BeginEmailVerification(conv, "sell")
			return replyAskVerifyEmail
		}
		clearConfusion(conv)
		return m.startSell(ctx, conv, seller)

	case text == "status" || text == "2" || isStatusQuery(text):
		draft, err := m.Drafts.FindOpenForSeller(ctx, seller.ID)
		if errors.Is(err, entity.ErrDraftNotFound) {
			return "You have no listing in progress. Text SELL to start one!"
		}
		if err != nil {
			return replySomethingWrong
		}
		return statusSummary(draft)

	case len(in.MediaURLs) > 0:
		return "Love the photos — text SELL first so I know which listing they're for!"
	}

	if bumpConfusion(conv) {
		return replyMenu
	}
	return replyDidntUnderstand + "\n\n" + replyMenu
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
