package service

import (
	"context"
	"testing"

	"github.com/alexanderramin/insurer/internal/domain"
	"github.com/alexanderramin/insurer/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	st := newTestStack(t)
	catalog := st.seedCatalog(t)
	owner := st.seedUser(t, "Lucia")
	stranger := st.seedUser(t, "Marcos")

	p := testutil.NewTestPolicy(owner.ID, catalog[domain.CategoryElite].ID, domain.DomainVehicle)
	require.NoError(t, st.policies.Create(ctx, p))

	svc := NewEventService(st.events, st.policies)
	asOwner := domain.Actor{ID: owner.ID, Role: domain.RoleClient}

	e, err := svc.File(ctx, asOwner, p.ID, domain.EventClaimFiled, "  rear bumper damage  ")
	require.NoError(t, err)
	assert.Equal(t, domain.EventStatusPending, e.Status)
	assert.Equal(t, "rear bumper damage", e.Description)

	_, err = svc.File(ctx, domain.Actor{ID: stranger.ID, Role: domain.RoleClient}, p.ID, domain.EventCancelled, "not mine")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = svc.File(ctx, asOwner, p.ID, "exploded", "x")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.File(ctx, asOwner, p.ID, domain.EventCancelled, " ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.File(ctx, asOwner, "missing", domain.EventCancelled, "x")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	pending, err := svc.List(ctx, domain.EventStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = svc.Advance(ctx, e.ID, domain.EventStatusCompleted)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	e, err = svc.Advance(ctx, e.ID, domain.EventStatusInProgress)
	require.NoError(t, err)
	assert.Nil(t, e.ResolvedAt)
	e, err = svc.Advance(ctx, e.ID, domain.EventStatusCompleted)
	require.NoError(t, err)
	assert.NotNil(t, e.ResolvedAt)

	history, err := svc.ListByPolicy(ctx, asOwner, p.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.EventStatusCompleted, history[0].Status)

	_, err = svc.ListByPolicy(ctx, domain.Actor{ID: stranger.ID, Role: domain.RoleClient}, p.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.Advance(ctx, "missing", domain.EventStatusCancelled)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
