package service

import (
	"context"
	"fmt"
	"time"

	"jobshop/internal/model"
	"jobshop/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type jobSearchService struct {
	searchRepo repository.JobSearchRepository
	publisher  JobSearchPublisher
	now        func() time.Time
	logger     zerolog.Logger
}

// NewJobSearchService creates a new job search service.
func NewJobSearchService(searchRepo repository.JobSearchRepository, publisher JobSearchPublisher, logger zerolog.Logger) JobSearchService {
	return &jobSearchService{
		searchRepo: searchRepo,
		publisher:  publisher,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logger.With().Str("service", "job_search").Logger(),
	}
}

// Request stores a pending search and publishes it to the job searcher hub.
func (s *jobSearchService) Request(ctx context.Context, rc model.RequestContext, req *model.JobSearchRequest) (*model.JobSearch, error) {
	if rc.User == nil {
		return nil, model.ErrUnauthorised
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	now := s.now()
	search := &model.JobSearch{
		ID:        uuid.New(),
		UserID:    rc.UserID(),
		Keywords:  req.Keywords,
		Location:  req.Location,
		Status:    model.JobSearchStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	max := rc.User.AccountType.Limits().MaxParallelSearches
	created, err := s.searchRepo.CreatePending(ctx, search, max)
	if err != nil {
		return nil, fmt.Errorf("failed to create job search: %w", err)
	}
	if !created {
		s.logger.Debug().
			Int64("user_id", rc.UserID()).
			Int("max", max).
			Msg("parallel search limit reached")
		return nil, model.ErrTooManySearches
	}

	msg := model.JobSearchMessage{
		SearchID:    search.ID,
		UserID:      search.UserID,
		Keywords:    search.Keywords,
		Location:    search.Location,
		RequestedAt: now,
	}
	if err := s.publisher.PublishJobSearch(ctx, msg); err != nil {
		s.logger.Error().
			Err(err).
			Str("request_id", rc.RequestID).
			Str("search_id", search.ID.String()).
			Msg("failed to publish job search")

		if markErr := s.searchRepo.MarkFailed(ctx, search.ID, "failed to reach job searcher"); markErr != nil {
			s.logger.Error().Err(markErr).Str("search_id", search.ID.String()).Msg("failed to mark job search failed")
		}
		return nil, model.ErrInternal
	}

	s.logger.Info().
		Str("request_id", rc.RequestID).
		Str("search_id", search.ID.String()).
		Int64("user_id", search.UserID).
		Msg("job search requested")

	return search, nil
}

func (s *jobSearchService) GetByID(ctx context.Context, rc model.RequestContext, id uuid.UUID) (*model.JobSearch, error) {
	search, err := s.searchRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get job search: %w", err)
	}
	if search == nil || search.UserID != rc.UserID() {
		return nil, model.ErrJobSearchNotFound
	}
	return search, nil
}

// HandleResult completes a pending search. Results for unknown or already
// completed searches are dropped.
func (s *jobSearchService) HandleResult(ctx context.Context, result model.JobSearchResult) error {
	if result.SearchID == uuid.Nil {
		return model.NewValidationError("searchId", "is required")
	}
	if result.Status != model.JobSearchStatusDone && result.Status != model.JobSearchStatusFailed {
		return model.NewValidationError("status", "must be one of: DONE FAILED")
	}
	if result.OffersFound < 0 {
		return model.NewValidationError("offersFound", "must be at least 0")
	}

	completed, err := s.searchRepo.Complete(ctx, result)
	if err != nil {
		return fmt.Errorf("failed to complete job search %s: %w", result.SearchID, err)
	}
	if !completed {
		s.logger.Warn().Str("search_id", result.SearchID.String()).Msg("result for unknown or finished job search dropped")
		return nil
	}

	s.logger.Info().
		Str("search_id", result.SearchID.String()).
		Str("status", string(result.Status)).
		Int("offers_found", result.OffersFound).
		Int("applications", len(result.Applications)).
		Msg("job search completed")

	return nil
}
