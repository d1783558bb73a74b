package model

import (
	"time"

	"github.com/google/uuid"
)

// JobSearchStatus is the processing state of a job search.
type JobSearchStatus string

const (
	JobSearchStatusPending JobSearchStatus = "PENDING"
	JobSearchStatusDone    JobSearchStatus = "DONE"
	JobSearchStatusFailed  JobSearchStatus = "FAILED"
)

// JobSearch is a search delegated to the job searcher hub.
type JobSearch struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	UserID        int64           `json:"userId" db:"user_id"`
	Keywords      string          `json:"keywords" db:"keywords"`
	Location      string          `json:"location" db:"location"`
	Status        JobSearchStatus `json:"status" db:"status"`
	OffersFound   int             `json:"offersFound" db:"offers_found"`
	FailureReason string          `json:"failureReason,omitempty" db:"failure_reason"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time       `json:"updatedAt" db:"updated_at"`
}

// JobSearchRequest is the client payload for starting a search.
type JobSearchRequest struct {
	Keywords string `json:"keywords" validate:"required,max=255"`
	Location string `json:"location" validate:"max=255"`
}

// JobSearchMessage is published to the job searcher hub.
type JobSearchMessage struct {
	SearchID    uuid.UUID `json:"searchId"`
	UserID      int64     `json:"userId"`
	Keywords    string    `json:"keywords"`
	Location    string    `json:"location"`
	RequestedAt time.Time `json:"requestedAt"`
}

// JobSearchResult is consumed from the job searcher hub once a search finishes.
type JobSearchResult struct {
	SearchID      uuid.UUID        `json:"searchId"`
	Status        JobSearchStatus  `json:"status"`
	OffersFound   int              `json:"offersFound"`
	FailureReason string           `json:"failureReason,omitempty"`
	Applications  []JobApplication `json:"applications,omitempty"`
}

// JobApplication is an application sent on behalf of the user.
type JobApplication struct {
	ID        uuid.UUID `json:"id" db:"id"`
	SearchID  uuid.UUID `json:"searchId" db:"search_id"`
	UserID    int64     `json:"userId" db:"user_id"`
	OfferID   string    `json:"offerId" db:"offer_id"`
	AppliedAt time.Time `json:"appliedAt" db:"applied_at"`
}
