package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/relistco/relist-server/internal/entity"
)

const testPhone = "+14155550100"

type machineFixture struct {
	sellers    *MockSellerRepository
	convos     *MockConversationRepository
	drafts     *MockDraftRepository
	extractor  *MockFieldExtractor
	classifier *MockPhotoClassifier
	store      *MockPhotoStore
	catalog    *MockCatalogGateway
	machine    *Machine
}

func newMachineFixture() *machineFixture {
	f := &machineFixture{
		sellers:    new(MockSellerRepository),
		convos:     new(MockConversationRepository),
		drafts:     new(MockDraftRepository),
		extractor:  new(MockFieldExtractor),
		classifier: new(MockPhotoClassifier),
		store:      new(MockPhotoStore),
		catalog:    new(MockCatalogGateway),
	}

	sessions := NewSessionManager(f.sellers, f.convos, nil)
	intake := NewPhotoIntake(f.classifier, f.store, f.drafts)
	intake.Retry = noRetry
	submitter := NewSubmitListing(f.drafts, f.catalog, nil)
	submitter.Retry = noRetry

	f.machine = NewMachine(sessions, f.convos, f.drafts, f.extractor, intake, submitter)
	f.machine.Retry = noRetry
	return f
}

// prime wires the resolve-and-persist plumbing every Handle call goes
// through: the phone maps to conv (and seller, when not nil) and updates
// succeed.
func (f *machineFixture) prime(conv *entity.Conversation, seller *entity.Seller) {
	f.convos.On("FindByPhone", mock.Anything, testPhone).Return(conv, nil)
	if seller != nil {
		f.sellers.On("FindByPhone", mock.Anything, testPhone).Return(seller, nil)
	} else {
		f.sellers.On("FindByPhone", mock.Anything, testPhone).Return(nil, entity.ErrSellerNotFound)
	}
	f.convos.On("Update", mock.Anything, conv).Return(nil)
}

func authorizedConversation(sellerID string) *entity.Conversation {
	conv := entity.NewConversation(testPhone)
	conv.State = entity.StateAuthorized
	conv.Authorize(sellerID)
	return conv
}

func inbound(id, body string, media ...string) Inbound {
	return Inbound{MessageID: id, Phone: testPhone, Body: body, MediaURLs: media}
}

func TestFirstContactGetsGreeting(t *testing.T) {
	f := newMachineFixture()
	conv := entity.NewConversation(testPhone)
	f.prime(conv, nil)

	out, err := f.machine.Handle(context.Background(), inbound("msg-1", "hi there"))

	assert.NoError(t, err)
	assert.Contains(t, out.Reply, "Do you already have a Relist account?")
	assert.Equal(t, entity.StateAwaitingAccountCheck, conv.State)
}

func TestKnownPhoneSkipsVerification(t *testing.T) {
	f := newMachineFixture()
	conv := entity.NewConversation(testPhone)
	seller := sellerFixture()
	f.prime(conv, seller)
	f.convos.On("RevokeOtherSessions", mock.Anything, seller.ID, testPhone).Return(nil)

	out, err := f.machine.Handle(context.Background(), inbound("msg-1", "hello"))

	assert.NoError(t, err)
	assert.Contains(t, out.Reply, "Welcome back, Aisha")
	assert.Equal(t, entity.StateAuthorized, conv.State)
	assert.True(t, conv.Authorized)
}

func TestDuplicateDeliveryIsANoOp(t *testing.T) {
	f := newMachineFixture()
	conv := authorizedConversation("seller-1")
	conv.RecordMessage("msg-1")
	f.prime(conv, sellerFixture())

	out, err := f.machine.Handle(context.Background(), inbound("msg-1", "sell"))

	assert.NoError(t, err)
	assert.Empty(t, out.Reply)
	assert.Equal(t, entity.StateAuthorized, conv.State, "no second transition")
	f.convos.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	f.drafts.AssertNotCalled(t, "FindOpenForSeller", mock.Anything, mock.Anything)
}

func TestOneShotListingFlow(t *testing.T) {
	f := newMachineFixture()
	conv := authorizedConversation("seller-1")
	seller := sellerFixture()
	f.prime(conv, seller)

	f.drafts.On("FindOpenForSeller", mock.Anything, "seller-1").Return(nil, entity.ErrDraftNotFound)
	var draft *entity.Draft
	f.drafts.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		draft = args.Get(1).(*entity.Draft)
	}).Return(nil)
	f.drafts.On("UpdateFields", mock.Anything, mock.Anything).Return(nil)

	out, err := f.machine.Handle(context.Background(), inbound("msg-1", "sell"))
	assert.NoError(t, err)
	assert.Contains(t, out.Reply, "Who's the designer?")
	assert.Equal(t, entity.StateSellCollecting, conv.State)
	assert.Equal(t, draft.ID, conv.Context.DraftID)

	// One message carrying everything fills all five fields at once.
	f.drafts.On("FindByID", mock.Anything, draft.ID).Return(draft, nil)
	oneShot := "Selling a Sana Safinaz kurta, size medium, like new, $85"
	f.extractor.On("Extract", mock.Anything, oneShot, mock.Anything).Return(FieldUpdate{
		Designer:   strPtr("Sana Safinaz"),
		ItemType:   strPtr("kurta"),
		Size:       strPtr("M"),
		Condition:  strPtr("like new"),
		PriceCents: intPtr(8500),
	}, nil)

	out, err = f.machine.Handle(context.Background(), inbound("msg-2", oneShot))
	assert.NoError(t, err)
	assert.Contains(t, out.Reply, "Anything else buyers should know")
	assert.Equal(t, entity.StateSellDetails, conv.State)
	assert.Empty(t, draft.MissingRequired())

	out, err = f.machine.Handle(context.Background(), inbound("msg-3", "skip"))
	assert.NoError(t, err)
	assert.Contains(t, out.Reply, "at least 3 photos")
	assert.Equal(t, entity.StateSellPhotos, conv.State)

	for _, url := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		f.classifier.On("Analyze", mock.Anything, url).Return(PhotoAnalysis{IsClothing: true}, nil)
		f.store.On("Save", mock.Anything, draft.ID, url).Return("cdn/"+url, nil)
	}
	f.drafts.On("AppendPhoto", mock.Anything, draft.ID, mock.Anything).Return(nil)

	out, err = f.machine.Handle(context.Background(), inbound("msg-4", "", "a.jpg", "b.jpg", "c.jpg"))
	assert.NoError(t, err)
	assert.Equal(t, entity.StateSellConfirming, conv.State)
	assert.Contains(t, out.Reply, "Ready to submit!")
	assert.Contains(t, out.Reply, "Sana Safinaz")
	assert.Contains(t, out.Reply, "$85")
}

func TestCancelDiscardsDraftAndReturnsToMenu(t *testing.T) {
	f := newMachineFixture()
	conv := authorizedConversation("seller-1")
	conv.State = entity.StateSellCollecting
	conv.Context.DraftID = "draft-1"
	f.prime(conv, sellerFixture())
	f.drafts.On("Delete", mock.Anything, "draft-1").Return(nil)

	out, err := f.machine.Handle(context.Background(), inbound("msg-1", "cancel"))

	assert.NoError(t, err)
	assert.Contains(t, out.Reply, "discarded that listing")
	assert.Equal(t, entity.StateAuthorized, conv.State)
	f.drafts.AssertCalled(t, "Delete", mock.Anything, "draft-1")
}

func TestRepeatedConfusionFallsBackToNumberedPrompt(t *testing.T) {
	f := newMachineFixture()
	conv := authorizedConversation("seller-1")
	conv.State = entity.StateSellCollecting
	draft := entity.NewDraft("seller-1", conv.ID)
	conv.Context.DraftID = draft.ID
	f.prime(conv, sellerFixture())

	f.drafts.On("FindByID", mock.Anything, draft.ID).Return(draft, nil)
	f.extractor.On("Extract", mock.Anything, mock.Anything, mock.Anything).Return(FieldUpdate{}, nil)

	out, _ := f.machine.Handle(context.Background(), inbound("msg-1", "umm"))
	assert.Contains(t, out.Reply, "Who's the designer?")

	out, _ = f.machine.Handle(context.Background(), inbound("msg-2", "what do you mean"))
	assert.Contains(t, out.Reply, "Who's the designer?")

	// Third non-actionable answer switches to the by-example menu.
	out, _ = f.machine.Handle(context.Background(), inbound("msg-3", "???"))
	assert.Contains(t, out.Reply, "1. Sana Safinaz")
	assert.Equal(t, entity.StateSellCollecting, conv.State)
}

func TestStatusQueryIsAPureRead(t *testing.T) {
	f := newMachineFixture()
	conv := authorizedConversation("seller-1")
	conv.State = entity.StateSellCollecting
	draft := entity.NewDraft("seller-1", conv.ID)
	draft.Designer = "Khaadi"
	draft.Size = "S"
	conv.Context.DraftID = draft.ID
	f.prime(conv, sellerFixture())
	f.drafts.On("FindByID", mock.Anything, draft.ID).Return(draft, nil)

	out, err := f.machine.Handle(context.Background(), inbound("msg-1", "what did I list so far?"))

	assert.NoError(t, err)
	assert.Contains(t, out.Reply, "Here's your listing so far")
	assert.Contains(t, out.Reply, "Khaadi")
	assert.Contains(t, out.Reply, "Still need")
	assert.Equal(t, entity.StateSellCollecting, conv.State)
	f.extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything, mock.Anything)
	f.drafts.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything)
}

func TestSubmissionFailureLeavesStateForRetry(t *testing.T) {
	f := newMachineFixture()
	conv := authorizedConversation("seller-1")
	conv.State = entity.StateSellConfirming
	draft := completeDraft()
	conv.Context.DraftID = draft.ID
	f.prime(conv, sellerFixture())
	f.drafts.On("FindByID", mock.Anything, draft.ID).Return(draft, nil)

	f.catalog.On("Submit", mock.Anything, draft, mock.Anything).Return("", errors.New("catalog 503")).Once()
	f.catalog.On("Submit", mock.Anything, draft, mock.Anything).Return("cat-42", nil)
	f.drafts.On("MarkPendingReview", mock.Anything, draft.ID, "cat-42").Return(nil)

	out, err := f.machine.Handle(context.Background(), inbound("msg-1", "confirm"))
	assert.NoError(t, err)
	assert.Contains(t, out.Reply, "nothing was lost")
	assert.Equal(t, entity.StateSellConfirming, conv.State)
	assert.Equal(t, entity.DraftStatusDraft, draft.Status)

	// The exact same CONFIRM works once the catalog recovers.
	out, err = f.machine.Handle(context.Background(), inbound("msg-2", "confirm"))
	assert.NoError(t, err)
	assert.Contains(t, out.Reply, "in review")
	assert.Equal(t, entity.StateAuthorized, conv.State)
	assert.Equal(t, entity.DraftStatusPendingReview, draft.Status)
}

func TestOpenDraftRequiresExplicitChoice(t *testing.T) {
	f := newMachineFixture()
	conv := authorizedConversation("seller-1")
	prior := entity.NewDraft("seller-1", conv.ID)
	prior.Designer = "Khaadi"
	prior.ItemType = "2-piece"
	f.prime(conv, sellerFixture())
	f.drafts.On("FindOpenForSeller", mock.Anything, "seller-1").Return(prior, nil)

	out, err := f.machine.Handle(context.Background(), inbound("msg-1", "sell"))
	assert.NoError(t, err)
	assert.Contains(t, out.Reply, "CONTINUE")
	assert.Contains(t, out.Reply, "Khaadi 2-piece")
	assert.Equal(t, entity.StateSellDraftChoice, conv.State)

	// An ambiguous answer never picks a side.
	out, err = f.machine.Handle(context.Background(), inbound("msg-2", "maybe"))
	assert.NoError(t, err)
	assert.Contains(t, out.Reply, "CONTINUE")
	assert.Equal(t, entity.StateSellDraftChoice, conv.State)
	f.drafts.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)

	// Starting fresh deletes the old draft before creating the new one.
	f.drafts.On("Delete", mock.Anything, prior.ID).Return(nil)
	f.drafts.On("Create", mock.Anything, mock.Anything).Return(nil)

	out, err = f.machine.Handle(context.Background(), inbound("msg-3", "start fresh"))
	assert.NoError(t, err)
	assert.Contains(t, out.Reply, "Who's the designer?")
	assert.Equal(t, entity.StateSellCollecting, conv.State)
	f.drafts.AssertCalled(t, "Delete", mock.Anything, prior.ID)
}

func TestLogoutWorksFromAnyState(t *testing.T) {
	f := newMachineFixture()
	conv := authorizedConversation("seller-1")
	conv.State = entity.StateSellCollecting
	conv.Context.DraftID = "draft-1"
	f.prime(conv, sellerFixture())

	out, err := f.machine.Handle(context.Background(), inbound("msg-1", "logout"))

	assert.NoError(t, err)
	assert.Contains(t, out.Reply, "signed out")
	assert.Equal(t, entity.StateNew, conv.State)
	assert.False(t, conv.Authorized)
	assert.Nil(t, conv.SellerID)
	assert.Equal(t, entity.ConversationContext{}, conv.Context)
}

func TestStopUnsubscribes(t *testing.T) {
	f := newMachineFixture()
	conv := authorizedConversation("seller-1")
	f.prime(conv, sellerFixture())

	out, err := f.machine.Handle(context.Background(), inbound("msg-1", "STOP"))

	assert.NoError(t, err)
	assert.Contains(t, out.Reply, "unsubscribed")
	assert.Equal(t, entity.StateNew, conv.State)
	assert.False(t, conv.Authorized)
}

func TestRevokedSessionMustReverify(t *testing.T) {
	f := newMachineFixture()
	conv := authorizedConversation("seller-1")
	// Seller row no longer resolves for this phone (session revoked from
	// another device).
	f.prime(conv, nil)

	out, err := f.machine.Handle(context.Background(), inbound("msg-1", "sell"))

	assert.NoError(t, err)
	assert.Contains(t, out.Reply, "confirm the email")
	assert.Equal(t, entity.StateAwaitingEmail, conv.State)
	assert.False(t, conv.Authorized)
}

func TestRevokedSessionDuringConfirmCannotSubmit(t *testing.T) {
	f := newMachineFixture()
	conv := authorizedConversation("seller-1")
	conv.State = entity.StateSellConfirming
	conv.Context.DraftID = "draft-1"
	// Revoked mid-flow: the phone no longer resolves to a seller, so CONFIRM
	// must bounce to re-verification instead of reaching the catalog.
	f.prime(conv, nil)

	out, err := f.machine.Handle(context.Background(), inbound("msg-1", "confirm"))

	assert.NoError(t, err)
	assert.Contains(t, out.Reply, "confirm the email")
	assert.Equal(t, entity.StateAwaitingEmail, conv.State)
	assert.False(t, conv.Authorized)
	assert.Equal(t, "sell", conv.Context.PendingIntent)
	f.catalog.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything)
	f.drafts.AssertNotCalled(t, "MarkPendingReview", mock.Anything, mock.Anything, mock.Anything)
}

func TestStatusWriteFailureStillCountsAsSubmitted(t *testing.T) {
	f := newMachineFixture()
	conv := authorizedConversation("seller-1")
	conv.State = entity.StateSellConfirming
	draft := completeDraft()
	conv.Context.DraftID = draft.ID
	f.prime(conv, sellerFixture())
	f.drafts.On("FindByID", mock.Anything, draft.ID).Return(draft, nil)

	f.catalog.On("Submit", mock.Anything, draft, mock.Anything).Return("cat-42", nil)
	f.drafts.On("MarkPendingReview", mock.Anything, draft.ID, "cat-42").Return(errors.New("db down"))

	out, err := f.machine.Handle(context.Background(), inbound("msg-1", "confirm"))

	// The catalog already has the listing, so the user hears success and a
	// retry path that would duplicate it never opens.
	assert.NoError(t, err)
	assert.Contains(t, out.Reply, "in review")
	assert.Equal(t, entity.StateAuthorized, conv.State)
	assert.Equal(t, entity.DraftStatusPendingReview, draft.Status)
	f.catalog.AssertNumberOfCalls(t, "Submit", 1)
}

func TestFieldAnswerMentioningSoFarIsNotAStatusQuery(t *testing.T) {
	f := newMachineFixture()
	conv := authorizedConversation("seller-1")
	conv.State = entity.StateSellCollecting
	draft := entity.NewDraft("seller-1", conv.ID)
	draft.Designer = "Khaadi"
	conv.Context.DraftID = draft.ID
	f.prime(conv, sellerFixture())
	f.drafts.On("FindByID", mock.Anything, draft.ID).Return(draft, nil)
	f.extractor.On("Extract", mock.Anything, "worn twice so far", mock.Anything).Return(FieldUpdate{
		Condition: strPtr("gently used"),
	}, nil)
	f.drafts.On("UpdateFields", mock.Anything, draft).Return(nil)

	out, err := f.machine.Handle(context.Background(), inbound("msg-1", "worn twice so far"))

	assert.NoError(t, err)
	assert.NotContains(t, out.Reply, "Here's your listing so far")
	assert.Equal(t, "gently used", draft.Condition)
	f.extractor.AssertCalled(t, "Extract", mock.Anything, "worn twice so far", mock.Anything)
}

func TestVersionConflictSurfacesToCaller(t *testing.T) {
	f := newMachineFixture()
	conv := entity.NewConversation(testPhone)
	f.convos.On("FindByPhone", mock.Anything, testPhone).Return(conv, nil)
	f.sellers.On("FindByPhone", mock.Anything, testPhone).Return(nil, entity.ErrSellerNotFound)
	f.convos.On("Update", mock.Anything, conv).Return(entity.ErrConversationConflict)

	_, err := f.machine.Handle(context.Background(), inbound("msg-1", "hi"))

	assert.ErrorIs(t, err, entity.ErrConversationConflict)
}

func TestUnknownPersistedStateResets(t *testing.T) {
	f := newMachineFixture()
	conv := entity.NewConversation(testPhone)
	conv.State = entity.State("legacy_state")
	f.prime(conv, nil)

	out, err := f.machine.Handle(context.Background(), inbound("msg-1", "hi"))

	assert.NoError(t, err)
	assert.Contains(t, out.Reply, "Do you already have a Relist account?")
	assert.Equal(t, entity.StateNew, conv.State)
}
