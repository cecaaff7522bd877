package usecase

import (
	"context"
	"log"

	"github.com/relistco/relist-server/internal/entity"
	"github.com/relistco/relist-server/internal/infra/http/middleware"
)

// SubmitListing hands a completed draft to the catalog system. On success
// the draft goes terminal (pending_review) and a listing.submitted event is
// published for out-of-band notifications; on failure nothing is mutated so
// the user can simply retry.
type SubmitListing struct {
	Drafts  entity.DraftRepositoryInterface
	Catalog CatalogGatewayInterface
	Queue   QueueProducerInterface
	Retry   RetryPolicy
}

func NewSubmitListing(
	drafts entity.DraftRepositoryInterface,
	catalog CatalogGatewayInterface,
	queue QueueProducerInterface,
) *SubmitListing {
	return &SubmitListing{
		Drafts:  drafts,
		Catalog: catalog,
		Queue:   queue,
		Retry:   DefaultRetry,
	}
}

func (uc *SubmitListing) Execute(ctx context.Context, d *entity.Draft, seller *entity.Seller) error {
	if !d.ReadyForReview() {
		return &DomainError{Code: "DRAFT_INCOMPLETE", Message: "draft is missing required fields or photos"}
	}

	var catalogID string
	err := uc.Retry.Do(ctx, func(ctx context.Context) error {
		var err error
		catalogID, err = uc.Catalog.Submit(ctx, d, seller)
		return err
	})
	if err != nil {
		middleware.RecordListingSubmitted("error")
		return &SubmissionError{Cause: err}
	}
	middleware.RecordListingSubmitted("ok")

	// The catalog accepted the listing; from here the submission must read
	// as successful even if bookkeeping below hiccups. Surfacing an error
	// now would route the user back into Submit and create a second
	// catalog entry.
	if err := uc.Retry.Do(ctx, func(ctx context.Context) error {
		return uc.Drafts.MarkPendingReview(ctx, d.ID, catalogID)
	}); err != nil {
		log.Printf("CRITICAL: catalog accepted draft %s as %s but local status update failed: %v", d.ID, catalogID, err)
	}
	d.Status = entity.DraftStatusPendingReview
	d.CatalogID = catalogID

	if uc.Queue != nil {
		event := ListingSubmittedEvent{
			DraftID:     d.ID,
			CatalogID:   catalogID,
			SellerID:    seller.ID,
			SellerName:  seller.DisplayName,
			SellerEmail: seller.Email,
			Designer:    d.Designer,
			ItemType:    d.ItemType,
			Price:       entity.FormatPrice(d.PriceCents),
		}
		if seller.Phone != nil {
			event.SellerPhone = *seller.Phone
		}
		if err := uc.Queue.PublishListingSubmitted(ctx, event); err != nil {
			// Submitted either way; notifications are best effort.
			log.Printf("listing %s submitted but event publish failed: %v", d.ID, err)
		}
	}

	log.Printf("listing %s handed to catalog as %s (seller %s)", d.ID, catalogID, seller.ID)
	return nil
}
