package usecase

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/relistco/relist-server/internal/entity"
	"github.com/relistco/relist-server/internal/infra/http/middleware"
)

// requireSeller forces re-verification when the session's seller no longer
// resolves, e.g. the phone was re-linked from another device mid-flow. The
// stashed sell intent brings the user back here after verifying.
func (m *Machine) requireSeller(conv *entity.Conversation, seller *entity.Seller) (string, bool) {
	if seller != nil {
		return "", false
	}
	conv.Authorized = false
	m.Sessions.BeginEmailVerification(conv, "sell")
	return replyAskVerifyEmail, true
}

// startSell enters the sell flow. A pre-existing open draft is never resumed
// or discarded silently; the user gets an explicit continue-or-fresh choice.
func (m *Machine) startSell(ctx context.Context, conv *entity.Conversation, seller *entity.Seller) string {
	if reply, revoked := m.requireSeller(conv, seller); revoked {
		return reply
	}

	prior, err := m.Drafts.FindOpenForSeller(ctx, seller.ID)
	if err == nil {
		conv.Transition(entity.StateSellDraftChoice)
		conv.Context.PriorDraftID = prior.ID
		return draftChoicePrompt(prior)
	}
	if !errors.Is(err, entity.ErrDraftNotFound) {
		log.Printf("open-draft lookup failed for seller %s: %v", seller.ID, err)
		conv.Transition(entity.StateAuthorized)
		return replySomethingWrong
	}

	return m.beginNewDraft(ctx, conv, seller.ID)
}

func (m *Machine) beginNewDraft(ctx context.Context, conv *entity.Conversation, sellerID string) string {
	draft := entity.NewDraft(sellerID, conv.ID)
	if err := m.Drafts.Create(ctx, draft); err != nil {
		log.Printf("draft create failed for seller %s: %v", sellerID, err)
		conv.Transition(entity.StateAuthorized)
		return replySomethingWrong
	}

	conv.Transition(entity.StateSellCollecting)
	conv.Context.DraftID = draft.ID
	return "Let's list your item! Tell me about it — designer, size, condition, price — or answer one at a time.\n\n" + promptFor(entity.FieldDesigner, false)
}

// handleDraftChoice acts only on an unambiguous continue/fresh answer.
// Choosing fresh deletes the old draft before a new one is created, so no
// draft is ever orphaned.
func (m *Machine) handleDraftChoice(ctx context.Context, text string, conv *entity.Conversation, seller *entity.Seller) string {
	if reply, revoked := m.requireSeller(conv, seller); revoked {
		return reply
	}

	priorID := conv.Context.PriorDraftID

	switch {
	case isAffirmative(text) || text == "continue" || text == "keep going":
		draft, err := m.Drafts.FindByID(ctx, priorID)
		if err != nil {
			log.Printf("prior draft %s vanished: %v", priorID, err)
			return m.beginNewDraft(ctx, conv, seller.ID)
		}
		conv.Transition(entity.StateSellCollecting)
		conv.Context.DraftID = draft.ID
		conv.Context.DetailsDone = draft.Details != ""
		return "Picking up where we left off.\n\n" + m.routeAfterMutation(ctx, conv, draft, "")

	case isNegative(text):
		if err := m.Drafts.Delete(ctx, priorID); err != nil {
			log.Printf("stale draft delete failed (%s): %v", priorID, err)
			return replySomethingWrong
		}
		return "Fresh start it is!\n\n" + m.beginNewDraft(ctx, conv, seller.ID)
	}

	if isCancel(text) {
		// Cancel here means "leave the old draft alone and go back".
		conv.Transition(entity.StateAuthorized)
		return replyMenu
	}

	if bumpConfusion(conv) {
		return "Reply with a number:\n1. Continue my listing\n2. Start fresh (deletes the old one)"
	}
	return replyDidntUnderstand + " Want to CONTINUE the listing or START FRESH?"
}

// loadDraft fetches the draft the conversation references. A missing draft
// (e.g. deleted after a cancel raced an in-flight reply) drops the user back
// to the menu rather than an undefined state.
func (m *Machine) loadDraft(ctx context.Context, conv *entity.Conversation) (*entity.Draft, string) {
	draft, err := m.Drafts.FindByID(ctx, conv.Context.DraftID)
	if err != nil {
		log.Printf("draft %s not loadable in state %s: %v", conv.Context.DraftID, conv.State, err)
		conv.Transition(entity.StateAuthorized)
		return nil, "That listing is gone.\n\n" + replyMenu
	}
	return draft, ""
}

func (m *Machine) cancelDraft(ctx context.Context, conv *entity.Conversation) string {
	if id := conv.Context.DraftID; id != "" {
		if err := m.Drafts.Delete(ctx, id); err != nil {
			log.Printf("draft delete failed (%s): %v", id, err)
		}
	}
	conv.Transition(entity.StateAuthorized)
	return replyCancelled
}

// handleCollecting is the merge loop: photos first, then text through the
// extractor, last-extraction-wins per field, then a single prompt for the
// highest-priority missing field.
func (m *Machine) handleCollecting(ctx context.Context, in Inbound, text string, conv *entity.Conversation) string {
	if isCancel(text) {
		return m.cancelDraft(ctx, conv)
	}

	draft, failReply := m.loadDraft(ctx, conv)
	if draft == nil {
		return failReply
	}

	// Status queries are a pure read, checked before extraction and photo
	// handling; they must not touch the draft.
	if isStatusQuery(text) {
		return statusSummary(draft)
	}

	var notes []string

	if len(in.MediaURLs) > 0 {
		if note := m.ingestPhotos(ctx, in.MediaURLs, draft); note != "" {
			notes = append(notes, note)
		}
	}

	if strings.TrimSpace(in.Body) != "" {
		acted := m.extractAndMerge(ctx, in.Body, draft, conv)
		if acted {
			clearConfusion(conv)
		} else if len(in.MediaURLs) == 0 {
			if bumpConfusion(conv) {
				if missing := draft.MissingRequired(); len(missing) > 0 {
					return promptFor(missing[0], true)
				}
			}
		}
	} else if len(in.MediaURLs) > 0 {
		clearConfusion(conv)
	}

	prefix := strings.Join(notes, "\n")
	return m.routeAfterMutation(ctx, conv, draft, prefix)
}

// extractAndMerge runs the field extractor and applies its partial update.
// Collaborator failure degrades to "extracted nothing"; the conversation
// never stalls on it.
func (m *Machine) extractAndMerge(ctx context.Context, body string, draft *entity.Draft, conv *entity.Conversation) bool {
	var update FieldUpdate
	err := m.Retry.Do(ctx, func(ctx context.Context) error {
		var err error
		update, err = m.Extractor.Extract(ctx, body, KnownFields(draft))
		return err
	})
	if err != nil {
		log.Printf("extraction failed for draft %s: %v", draft.ID, err)
		middleware.RecordExtractionFailure()
		return false
	}
	if update.IsEmpty() {
		return false
	}

	ApplyUpdate(draft, update)
	if err := m.Drafts.UpdateFields(ctx, draft); err != nil {
		log.Printf("draft field update failed (%s): %v", draft.ID, err)
		return false
	}
	return true
}

// ingestPhotos forwards media to the intake pipeline and renders its result
// or error as a user-facing note.
func (m *Machine) ingestPhotos(ctx context.Context, urls []string, draft *entity.Draft) string {
	res, err := m.Photos.Ingest(ctx, urls, draft)
	if err != nil {
		var photoErr *PhotoError
		if errors.As(err, &photoErr) {
			return photoErr.Message
		}
		log.Printf("photo intake failed for draft %s: %v", draft.ID, err)
		return "I couldn't save those photos just now — please try them again."
	}
	if res.TagRouted {
		return "Got the tag photo. 🏷️"
	}
	return ""
}

// routeAfterMutation recomputes the gates and decides where the flow goes:
// still collecting, the optional-details question, the photo quota, or the
// confirmation summary. Never asks for more than one thing.
func (m *Machine) routeAfterMutation(ctx context.Context, conv *entity.Conversation, draft *entity.Draft, prefix string) string {
	join := func(s string) string {
		if prefix == "" {
			return s
		}
		return prefix + "\n" + s
	}

	if missing := draft.MissingRequired(); len(missing) > 0 {
		conv.Transition(entity.StateSellCollecting)
		confused := conv.Context.ConfusionCount >= confusionThreshold
		return join(promptFor(missing[0], confused))
	}

	if !conv.Context.DetailsDone {
		conv.Transition(entity.StateSellDetails)
		return join(replyAskDetails)
	}

	if draft.PhotoCount() < entity.MinPhotos {
		conv.Transition(entity.StateSellPhotos)
		return join(photoPrompt(draft))
	}

	conv.Transition(entity.StateSellConfirming)
	return join(confirmSummary(draft))
}

// handleDetails captures the optional free-text details (or SKIP) before the
// photo gate.
func (m *Machine) handleDetails(ctx context.Context, in Inbound, text string, conv *entity.Conversation) string {
	if isCancel(text) {
		return m.cancelDraft(ctx, conv)
	}

	draft, failReply := m.loadDraft(ctx, conv)
	if draft == nil {
		return failReply
	}
	if isStatusQuery(text) {
		return statusSummary(draft)
	}

	var notes []string
	if len(in.MediaURLs) > 0 {
		if note := m.ingestPhotos(ctx, in.MediaURLs, draft); note != "" {
			notes = append(notes, note)
		}
	}

	switch {
	case text == "skip" || isNegative(text) || text == "none" || text == "nothing":
		conv.Context.DetailsDone = true

	case strings.TrimSpace(in.Body) != "":
		// Detail text can still carry corrections ("oh and it's a small,
		// worn once"): run it through the extractor, and keep the raw text
		// as the details if the extractor didn't claim it.
		acted := m.extractAndMerge(ctx, in.Body, draft, conv)
		if !acted || draft.Details == "" {
			draft.Details = strings.TrimSpace(in.Body)
			if err := m.Drafts.UpdateFields(ctx, draft); err != nil {
				log.Printf("details update failed (%s): %v", draft.ID, err)
			}
		}
		conv.Context.DetailsDone = true
		notes = append(notes, "Noted! 📝")

	case len(in.MediaURLs) > 0:
		// Photos only; keep asking for details.
		notes = append(notes, replyAskDetails)
		return strings.Join(notes, "\n")

	default:
		if bumpConfusion(conv) {
			conv.Context.DetailsDone = true
		} else {
			return replyAskDetails
		}
	}

	clearConfusion(conv)
	return m.routeAfterMutation(ctx, conv, draft, strings.Join(notes, "\n"))
}

// handlePhotos keeps the photo quota moving. Text here is still applied as a
// field correction; photos and corrections are not mutually exclusive.
func (m *Machine) handlePhotos(ctx context.Context, in Inbound, text string, conv *entity.Conversation) string {
	if isCancel(text) {
		return m.cancelDraft(ctx, conv)
	}

	draft, failReply := m.loadDraft(ctx, conv)
	if draft == nil {
		return failReply
	}
	if isStatusQuery(text) {
		return statusSummary(draft)
	}

	var notes []string
	if len(in.MediaURLs) > 0 {
		if note := m.ingestPhotos(ctx, in.MediaURLs, draft); note != "" {
			notes = append(notes, note)
		}
		clearConfusion(conv)
	}

	if strings.TrimSpace(in.Body) != "" {
		if m.extractAndMerge(ctx, in.Body, draft, conv) {
			notes = append(notes, "Updated. ✏️")
			clearConfusion(conv)
		} else if len(in.MediaURLs) == 0 {
			bumpConfusion(conv)
		}
	}

	return m.routeAfterMutation(ctx, conv, draft, strings.Join(notes, "\n"))
}

// handleConfirming waits for CONFIRM / EDIT / CANCEL over the summary.
func (m *Machine) handleConfirming(ctx context.Context, in Inbound, text string, conv *entity.Conversation, seller *entity.Seller) string {
	if reply, revoked := m.requireSeller(conv, seller); revoked {
		return reply
	}

	if isCancel(text) {
		return m.cancelDraft(ctx, conv)
	}

	draft, failReply := m.loadDraft(ctx, conv)
	if draft == nil {
		return failReply
	}
	if isStatusQuery(text) {
		return statusSummary(draft)
	}

	switch {
	case text == "confirm" || text == "submit" || isAffirmative(text):
		if err := m.Submitter.Execute(ctx, draft, seller); err != nil {
			var subErr *SubmissionError
			if errors.As(err, &subErr) {
				log.Printf("submission failed for draft %s: %v", draft.ID, subErr.Cause)
				// Draft and state stay exactly as they were.
				return replySubmitFailed
			}
			log.Printf("submission error for draft %s: %v", draft.ID, err)
			return replySubmitFailed
		}
		conv.Transition(entity.StateAuthorized)
		return replySubmitted

	case text == "edit" || text == "change" || text == "fix":
		conv.Transition(entity.StateSellEditing)
		conv.Context.DraftID = draft.ID
		return replyEditChoice
	}

	// Late photos or corrections are still welcome here.
	var notes []string
	if len(in.MediaURLs) > 0 {
		if note := m.ingestPhotos(ctx, in.MediaURLs, draft); note != "" {
			notes = append(notes, note)
		}
		clearConfusion(conv)
	}
	if strings.TrimSpace(in.Body) != "" && !isAffirmative(text) {
		if m.extractAndMerge(ctx, in.Body, draft, conv) {
			clearConfusion(conv)
			return strings.Join(append(notes, "Updated!\n\n"+confirmSummary(draft)), "\n")
		}
	}
	if len(in.MediaURLs) > 0 {
		return strings.Join(append(notes, confirmSummary(draft)), "\n")
	}

	if bumpConfusion(conv) {
		return "Reply with a number:\n1. CONFIRM — submit for review\n2. EDIT — change something\n3. CANCEL — discard this listing"
	}
	return replyDidntUnderstand + " Reply CONFIRM, EDIT or CANCEL.\n\n" + confirmSummary(draft)
}

// handleEditing branches to field-level resets: DETAILS clears all required
// fields for full re-collection, PHOTOS clears the photo set, PRICE clears
// only the price.
func (m *Machine) handleEditing(ctx context.Context, text string, conv *entity.Conversation) string {
	if isCancel(text) {
		return m.cancelDraft(ctx, conv)
	}

	draft, failReply := m.loadDraft(ctx, conv)
	if draft == nil {
		return failReply
	}

	switch {
	case text == "details" || text == "1" || text == "info":
		draft.Designer = ""
		draft.ItemType = ""
		draft.Size = ""
		draft.Condition = ""
		draft.PriceCents = 0
		if err := m.Drafts.UpdateFields(ctx, draft); err != nil {
			log.Printf("edit reset failed (%s): %v", draft.ID, err)
			return replySomethingWrong
		}
		conv.Transition(entity.StateSellCollecting)
		conv.Context.DraftID = draft.ID
		conv.Context.DetailsDone = false
		return "Let's redo the item info.\n\n" + promptFor(entity.FieldDesigner, false)

	case text == "photos" || text == "2":
		if err := m.Drafts.ClearPhotos(ctx, draft.ID); err != nil {
			log.Printf("photo clear failed (%s): %v", draft.ID, err)
			return replySomethingWrong
		}
		draft.TagPhotoURL = ""
		draft.PhotoURLs = nil
		conv.Transition(entity.StateSellPhotos)
		conv.Context.DraftID = draft.ID
		conv.Context.DetailsDone = true
		return "Old photos cleared. " + photoPrompt(draft)

	case text == "price" || text == "3":
		draft.PriceCents = 0
		if err := m.Drafts.UpdateFields(ctx, draft); err != nil {
			log.Printf("price reset failed (%s): %v", draft.ID, err)
			return replySomethingWrong
		}
		conv.Transition(entity.StateSellCollecting)
		conv.Context.DraftID = draft.ID
		conv.Context.DetailsDone = true
		return promptFor(entity.FieldPrice, false)

	case text == "back":
		conv.Transition(entity.StateSellConfirming)
		conv.Context.DraftID = draft.ID
		return confirmSummary(draft)
	}

	if bumpConfusion(conv) {
		return replyEditChoice
	}
	return replyDidntUnderstand + "\n\n" + replyEditChoice
}
