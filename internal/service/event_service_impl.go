package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/insurer/internal/domain"
	"github.com/alexanderramin/insurer/internal/repository"
	"github.com/google/uuid"
)

type eventService struct {
	events   repository.EventRepo
	policies repository.PolicyRepo
	observer UseCaseObserver
	now      func() time.Time
}

func NewEventService(events repository.EventRepo, policies repository.PolicyRepo, observers ...UseCaseObserver) EventService {
	return &eventService{
		events:   events,
		policies: policies,
		observer: useCaseObserverOrNoop(observers),
		now:      time.Now,
	}
}

func (s *eventService) File(ctx context.Context, actor domain.Actor, policyID string, typ domain.EventType, description string) (e *domain.PolicyEvent, err error) {
	ctx, run := startUseCase(ctx, "file-event")
	defer func() { run.end(ctx, s.observer, err) }()
	run.set("policy_id", policyID)
	run.set("type", string(typ))

	if !domain.ValidEventTypes[typ] {
		return nil, domain.NewError(domain.CodeInvalidInput, fmt.Sprintf("unknown event type %q", typ))
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, domain.NewError(domain.CodeInvalidInput, "description is required")
	}
	if err = s.checkAccess(ctx, actor, policyID); err != nil {
		return nil, err
	}

	e = &domain.PolicyEvent{
		ID:          uuid.New().String(),
		PolicyID:    policyID,
		Type:        typ,
		Description: description,
		Status:      domain.EventStatusPending,
		RequestedAt: s.now().UTC(),
	}
	if err = s.events.Create(ctx, e); err != nil {
		return nil, persistenceErr("creating event", err)
	}
	return e, nil
}

func (s *eventService) checkAccess(ctx context.Context, actor domain.Actor, policyID string) error {
	p, err := s.policies.GetByID(ctx, policyID)
	if err != nil {
		return notFoundOr("policy "+policyID, err)
	}
	if !actor.Role.ActsForClients() && p.OwnerID != actor.ID {
		return domain.NewError(domain.CodeForbidden, "policy belongs to another client")
	}
	return nil
}

func (s *eventService) List(ctx context.Context, status domain.EventStatus) ([]*domain.PolicyEvent, error) {
	events, err := s.events.List(ctx, status)
	if err != nil {
		return nil, domain.WrapError(domain.CodeDataUnavailable, "listing events", err)
	}
	return events, nil
}

func (s *eventService) ListByPolicy(ctx context.Context, actor domain.Actor, policyID string) ([]*domain.PolicyEvent, error) {
	if err := s.checkAccess(ctx, actor, policyID); err != nil {
		return nil, err
	}
	events, err := s.events.ListByPolicy(ctx, policyID)
	if err != nil {
		return nil, domain.WrapError(domain.CodeDataUnavailable, "listing events", err)
	}
	return events, nil
}

func (s *eventService) Advance(ctx context.Context, id string, next domain.EventStatus) (e *domain.PolicyEvent, err error) {
	ctx, run := startUseCase(ctx, "advance-event")
	defer func() { run.end(ctx, s.observer, err) }()
	run.set("event_id", id)
	run.set("status", string(next))

	e, err = s.events.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr("event "+id, err)
	}
	if err = e.Advance(next, s.now().UTC()); err != nil {
		return nil, err
	}
	if err = s.events.Update(ctx, e); err != nil {
		return nil, persistenceErr("updating event", err)
	}
	return e, nil
}
