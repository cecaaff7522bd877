package usecase

import (
	"context"
	"log"
	"strings"

	"github.com/relistco/relist-server/internal/entity"
)

// confusionThreshold is how many consecutive non-actionable inputs a state
// tolerates before switching from open-ended prompts to a numbered menu.
const confusionThreshold = 3

// Machine is the conversation state machine: the single dispatcher that, for
// every inbound message, decides the next state, mutates the draft through
// collaborators, and produces the outbound reply. It owns the conversation
// row for the duration of one Handle call; persistence of the row (with its
// optimistic version check) also happens here, so every path writes back a
// valid known state.
type Machine struct {
	Sessions  *SessionManager
	Convos    entity.ConversationRepositoryInterface
	Drafts    entity.DraftRepositoryInterface
	Extractor FieldExtractorInterface
	Photos    *PhotoIntake
	Submitter *SubmitListing
	Retry     RetryPolicy
}

func NewMachine(
	sessions *SessionManager,
	convos entity.ConversationRepositoryInterface,
	drafts entity.DraftRepositoryInterface,
	extractor FieldExtractorInterface,
	photos *PhotoIntake,
	submitter *SubmitListing,
) *Machine {
	return &Machine{
		Sessions:  sessions,
		Convos:    convos,
		Drafts:    drafts,
		Extractor: extractor,
		Photos:    photos,
		Submitter: submitter,
		Retry:     DefaultRetry,
	}
}

// Handle processes one inbound message end to end. An empty reply in the
// outcome means the message was a replayed delivery and nothing happened.
func (m *Machine) Handle(ctx context.Context, in Inbound) (Outcome, error) {
	seller, conv, err := m.Sessions.Resolve(ctx, in.Phone)
	if err != nil {
		return Outcome{}, err
	}

	// Gateways redeliver: a message id we have already processed is a
	// no-op, with no second transition and no second reply.
	if conv.SeenMessage(in.MessageID) {
		log.Printf("duplicate delivery %s for %s, ignoring", in.MessageID, conv.Phone)
		return Outcome{}, nil
	}
	conv.RecordMessage(in.MessageID)

	reply := m.dispatch(ctx, in, conv, seller)

	if err := m.Convos.Update(ctx, conv); err != nil {
		// On a version conflict another handler won the row; the gateway
		// will redeliver and the dedup log decides then.
		return Outcome{}, err
	}
	return Outcome{Reply: reply}, nil
}

// dispatch routes by state. Any panic or unexpected error degrades to a
// generic reply with the conversation parked back in a defined state.
func (m *Machine) dispatch(ctx context.Context, in Inbound, conv *entity.Conversation, seller *entity.Seller) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC handling %s in state %s: %v", conv.Phone, conv.State, r)
			if conv.Authorized {
				conv.Transition(entity.StateAuthorized)
			} else {
				conv.Transition(entity.StateNew)
			}
			reply = replySomethingWrong
		}
	}()

	text := normalize(in.Body)

	if r, handled := m.handleGlobalCommand(text, conv); handled {
		return r
	}

	switch conv.State {
	case entity.StateNew:
		return m.handleNew(ctx, conv, seller)
	case entity.StateAwaitingAccountCheck:
		return m.handleAccountCheck(text, conv)
	case entity.StateAwaitingExistingEmail:
		return m.handleExistingEmail(ctx, in.Body, conv)
	case entity.StateAwaitingNewEmail:
		return m.handleNewEmail(ctx, in.Body, conv)
	case entity.StateAwaitingEmail:
		return m.handleReverifyEmail(ctx, in.Body, conv)
	case entity.StateAuthorized:
		return m.handleAuthorized(ctx, text, in, conv, seller)
	case entity.StateSellStarted:
		return m.startSell(ctx, conv, seller)
	case entity.StateSellDraftChoice:
		return m.handleDraftChoice(ctx, text, conv, seller)
	case entity.StateSellCollecting:
		return m.handleCollecting(ctx, in, text, conv)
	case entity.StateSellDetails:
		return m.handleDetails(ctx, in, text, conv)
	case entity.StateSellPhotos:
		return m.handlePhotos(ctx, in, text, conv)
	case entity.StateSellConfirming:
		return m.handleConfirming(ctx, in, text, conv, seller)
	case entity.StateSellEditing:
		return m.handleEditing(ctx, text, conv)
	default:
		// Unknown persisted state (e.g. from a rolled-back deploy): park in
		// a defined one rather than looping on it.
		log.Printf("unknown state %q for %s, resetting", conv.State, conv.Phone)
		conv.Transition(entity.StateNew)
		return replyGreeting
	}
}

// handleGlobalCommand covers the commands every state must answer: help,
// menu, logout, stop. Menu only short-circuits for authorized sessions; for
// everyone else it falls through to the state handler.
func (m *Machine) handleGlobalCommand(text string, conv *entity.Conversation) (string, bool) {
	switch text {
	case "help":
		return replyHelp, true
	case "stop", "unsubscribe":
		conv.Authorized = false
		conv.Transition(entity.StateNew)
		return replyStopped, true
	case "logout", "log out", "sign out":
		conv.Authorized = false
		conv.SellerID = nil
		conv.Transition(entity.StateNew)
		return replyLoggedOut, true
	case "menu":
		if conv.Authorized {
			conv.Transition(entity.StateAuthorized)
			return replyMenu, true
		}
	}
	return "", false
}

// bumpConfusion counts a non-actionable input; once the threshold is hit the
// caller should switch to its numbered fallback prompt.
func bumpConfusion(conv *entity.Conversation) bool {
	conv.Context.ConfusionCount++
	return conv.Context.ConfusionCount >= confusionThreshold
}

func clearConfusion(conv *entity.Conversation) {
	conv.Context.ConfusionCount = 0
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

var statusPhrases = []string{
	"status", "summary", "what did i list", "what have i listed",
	"so far", "where are we", "what's left", "whats left",
}

// isStatusQuery recognizes the read-only "what did I list so far" phrases.
// Checked before extraction and photo handling in every collection-adjacent
// state; must never mutate the draft. Phrases only match at the start of the
// message so a field correction like "worn twice so far" is never hijacked
// into a status reply.
func isStatusQuery(text string) bool {
	text = strings.TrimRight(text, "?!. ")
	for _, p := range statusPhrases {
		if text == p || strings.HasPrefix(text, p+" ") {
			return true
		}
	}
	return false
}

func isCancel(text string) bool {
	switch text {
	case "cancel", "restart", "never mind", "nevermind", "quit", "abort":
		return true
	}
	return false
}

func isAffirmative(text string) bool {
	switch text {
	case "yes", "y", "yeah", "yep", "yup", "sure", "ok", "okay", "1", "continue", "resume":
		return true
	}
	return false
}

func isNegative(text string) bool {
	switch text {
	case "no", "n", "nope", "nah", "2", "fresh", "start fresh", "new", "start over":
		return true
	}
	return false
}
