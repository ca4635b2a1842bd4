package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/lab-api/internal/model"
	"github.com/jwalitptl/lab-api/internal/repository"
	apperrors "github.com/jwalitptl/lab-api/pkg/errors"
)

// Actor identifies who made a request.
type Actor struct {
	UserID    int64
	RequestID string
	IPAddress string
}

type actorKey struct{}

// WithActor attaches actor to ctx.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor attached by WithActor, if any.
func ActorFrom(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}

// Recorder is what services use to record mutations.
type Recorder interface {
	Record(ctx context.Context, labID int64, action, entityType string, entityID int64, changes model.JSONMap)
}

type Service struct {
	repo repository.AuditRepository
	now  func() time.Time
}

// NewService returns an audit service. repo may be nil, in which case
// entries are only logged.
func NewService(repo repository.AuditRepository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Record logs the mutation and stores it. Storage failures are logged and
// never fail the caller's operation.
func (s *Service) Record(ctx context.Context, labID int64, action, entityType string, entityID int64, changes model.JSONMap) {
	actor, _ := ActorFrom(ctx)
	entry := &model.AuditEntry{
		LabID:      labID,
		UserID:     actor.UserID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Changes:    changes,
		RequestID:  actor.RequestID,
		IPAddress:  actor.IPAddress,
		CreatedAt:  s.now(),
	}

	log.Info().
		Int64("lab_id", labID).
		Int64("user_id", actor.UserID).
		Str("action", action).
		Str("entity_type", entityType).
		Int64("entity_id", entityID).
		Str("request_id", actor.RequestID).
		Msg("audit")

	if s.repo == nil {
		return
	}
	if err := s.repo.Create(context.WithoutCancel(ctx), entry); err != nil {
		log.Error().Err(err).
			Str("action", action).
			Str("entity_type", entityType).
			Int64("entity_id", entityID).
			Msg("Failed to store audit entry")
	}
}

// Filterable columns of the audit trail.
var filterKeys = map[string]bool{"user_id": true, "action": true, "entity_type": true, "entity_id": true}

// List returns a page of the lab's audit trail, newest first.
func (s *Service) List(ctx context.Context, labID int64, q model.ListQuery) (*model.Page[model.AuditEntry], error) {
	q = q.WithDefaults()
	if q.Limit < 1 || q.Limit > model.MaxPageSize {
		return nil, apperrors.Validation(fmt.Sprintf("limit must be between 1 and %d", model.MaxPageSize), nil)
	}
	if q.Offset < 0 {
		return nil, apperrors.Validation("offset must not be negative", nil)
	}
	if q.Order != model.SortAsc && q.Order != model.SortDesc {
		return nil, apperrors.Validation("order must be asc or desc", nil)
	}
	if q.Sort != "" && q.Sort != "createdAt" && q.Sort != "action" {
		return nil, apperrors.Validation(fmt.Sprintf("cannot sort by %q", q.Sort), nil)
	}
	for k := range q.Filters {
		if !filterKeys[k] {
			return nil, apperrors.Validation(fmt.Sprintf("cannot filter by %q", k), nil)
		}
	}

	page := &model.Page[model.AuditEntry]{Items: []*model.AuditEntry{}, Limit: q.Limit, Offset: q.Offset}
	if s.repo == nil {
		return page, nil
	}
	entries, total, err := s.repo.List(ctx, labID, q)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	page.Items, page.Total = entries, total
	return page, nil
}

// Cleanup removes entries older than before.
func (s *Service) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	if s.repo == nil {
		return 0, nil
	}
	return s.repo.DeleteBefore(ctx, before)
}

// Nop discards every entry.
type Nop struct{}

func (Nop) Record(context.Context, int64, string, string, int64, model.JSONMap) {}
