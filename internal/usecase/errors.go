package usecase

import "errors"

type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

type TechnicalError struct {
	Code    string
	Message string
}

func (e *TechnicalError) Error() string {
	return e.Message
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

// AuthError covers bad verification input and throttling. Always recovered
// locally with a user-facing reply, never surfaced raw.
type AuthError struct {
	Code    string // WRONG_EMAIL, TOO_MANY_ATTEMPTS, RATE_LIMITED
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// ExtractionError is a collaborator failure during field extraction. The
// caller degrades it to "extracted nothing" and keeps the conversation going.
type ExtractionError struct {
	Cause error
}

func (e *ExtractionError) Error() string { return "extraction failed: " + e.Cause.Error() }
func (e *ExtractionError) Unwrap() error { return e.Cause }

// PhotoError is surfaced to the user with a corrective instruction.
// AcceptedBefore carries how many photos of the batch were persisted before
// the failure; those stay attached to the draft.
type PhotoError struct {
	Code           string // NOT_CLOTHING, UPLOAD_FAILED
	Message        string
	FailedIndex    int
	AcceptedBefore int
}

func (e *PhotoError) Error() string { return e.Message }

// SubmissionError means the catalog handoff failed; draft and conversation
// state must be left untouched by the caller.
type SubmissionError struct {
	Cause error
}

func (e *SubmissionError) Error() string { return "catalog submission failed: " + e.Cause.Error() }
func (e *SubmissionError) Unwrap() error { return e.Cause }
