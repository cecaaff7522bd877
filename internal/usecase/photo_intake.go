package usecase

import (
	"context"
	"fmt"
	"log"

	"github.com/relistco/relist-server/internal/entity"
	"github.com/relistco/relist-server/internal/infra/http/middleware"
)

// PhotoIntake bridges the vision classifier and the object store: it vets a
// batch of inbound media, routes a visible brand tag into the dedicated tag
// slot and persists every accepted photo against the draft before returning.
type PhotoIntake struct {
	Classifier PhotoClassifierInterface
	Store      PhotoStoreInterface
	Drafts     entity.DraftRepositoryInterface
	Retry      RetryPolicy
}

func NewPhotoIntake(
	classifier PhotoClassifierInterface,
	store PhotoStoreInterface,
	drafts entity.DraftRepositoryInterface,
) *PhotoIntake {
	return &PhotoIntake{
		Classifier: classifier,
		Store:      store,
		Drafts:     drafts,
		Retry:      DefaultRetry,
	}
}

// IntakeResult reports what one batch did to the draft.
type IntakeResult struct {
	Accepted  int
	TagRouted bool
}

// Ingest runs two passes. First the whole batch is classified: one
// non-clothing photo rejects the batch before anything is stored. Then each
// photo is uploaded and attached one at a time, so an upload failure midway
// keeps everything accepted before it.
func (p *PhotoIntake) Ingest(ctx context.Context, photoURLs []string, d *entity.Draft) (IntakeResult, error) {
	var res IntakeResult
	if len(photoURLs) == 0 {
		return res, nil
	}

	analyses := make([]PhotoAnalysis, len(photoURLs))
	for i, url := range photoURLs {
		var a PhotoAnalysis
		err := p.Retry.Do(ctx, func(ctx context.Context) error {
			var err error
			a, err = p.Classifier.Analyze(ctx, url)
			return err
		})
		if err != nil {
			log.Printf("photo classify failed (item %d): %v", i+1, err)
			middleware.RecordPhotoRejected("analyze_failed")
			return res, &PhotoError{
				Code:        "ANALYZE_FAILED",
				Message:     fmt.Sprintf("I couldn't process photo %d — please send it again.", i+1),
				FailedIndex: i,
			}
		}
		if !a.IsClothing {
			middleware.RecordPhotoRejected("not_clothing")
			reason := a.Description
			if reason == "" {
				reason = "that doesn't look like a clothing item"
			}
			return res, &PhotoError{
				Code:        "NOT_CLOTHING",
				Message:     fmt.Sprintf("Photo %d was skipped — %s. Please send photos of the item itself.", i+1, reason),
				FailedIndex: i,
			}
		}
		analyses[i] = a
	}

	for i, url := range photoURLs {
		var stored string
		err := p.Retry.Do(ctx, func(ctx context.Context) error {
			var err error
			stored, err = p.Store.Save(ctx, d.ID, url)
			return err
		})
		if err != nil {
			log.Printf("photo upload failed (item %d, draft %s): %v", i+1, d.ID, err)
			middleware.RecordPhotoRejected("upload_failed")
			return res, &PhotoError{
				Code:           "UPLOAD_FAILED",
				Message:        fmt.Sprintf("Photo %d didn't go through — please resend just that one.", i+1),
				FailedIndex:    i,
				AcceptedBefore: res.Accepted,
			}
		}

		if analyses[i].HasTag && d.TagPhotoURL == "" {
			if err := p.Drafts.AttachTagPhoto(ctx, d.ID, stored); err != nil {
				return res, &TechnicalError{Code: "DATABASE_ERROR", Message: err.Error()}
			}
			d.TagPhotoURL = stored
			res.TagRouted = true
		} else {
			if err := p.Drafts.AppendPhoto(ctx, d.ID, stored); err != nil {
				return res, &TechnicalError{Code: "DATABASE_ERROR", Message: err.Error()}
			}
			d.PhotoURLs = append(d.PhotoURLs, stored)
		}
		res.Accepted++
		middleware.RecordPhotoAccepted()
	}

	return res, nil
}
