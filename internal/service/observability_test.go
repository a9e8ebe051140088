package service

import (
	"context"
	"sync"
	"testing"

	"github.com/alexanderramin/insurer/internal/domain"
	"github.com/alexanderramin/insurer/internal/pricing"
	"github.com/alexanderramin/insurer/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingObserver struct {
	mu     sync.Mutex
	events []UseCaseEvent
}

func (r *recordingObserver) ObserveUseCase(_ context.Context, e UseCaseEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func TestUseCaseObserver_RecordsRegistration(t *testing.T) {
	ctx := context.Background()
	st := newTestStack(t)
	st.seedCatalog(t)
	client := st.seedUser(t, "Lucia")
	resolver, err := pricing.NewStaticResolver(pricing.DefaultRates())
	require.NoError(t, err)

	rec := &recordingObserver{}
	svc := NewRegistrationService(st.policies, testutil.NewTestUoW(st.db), resolver, nil, nil, rec)

	reg, err := svc.Register(ctx, registrationRequest(client, domain.DomainVehicle, testutil.ValidVehicleData()))
	require.NoError(t, err)
	_, err = svc.Register(ctx, registrationRequest(client, domain.DomainVehicle, nil))
	require.Error(t, err)

	require.Len(t, rec.events, 2)
	ok := rec.events[0]
	assert.Equal(t, "register-policy", ok.Name)
	assert.True(t, ok.Success)
	assert.Equal(t, reg.PolicyNumber, ok.Fields["policy_number"])
	assert.Equal(t, "vehicle", ok.Fields["domain"])

	failed := rec.events[1]
	assert.False(t, failed.Success)
	assert.ErrorIs(t, failed.Err, domain.ErrInvalidUnderwritingData)
}

func TestLogUseCaseObserver(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	obs := NewLogUseCaseObserver(zap.New(core))

	obs.ObserveUseCase(context.Background(), UseCaseEvent{Name: "login", Success: true, Fields: map[string]any{"role": "client"}})
	obs.ObserveUseCase(context.Background(), UseCaseEvent{Name: "login", Err: domain.ErrUnauthenticated})

	entries := logs.FilterMessage("service_use_case").All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "client", entries[0].ContextMap()["role"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)

	assert.IsType(t, NoopUseCaseObserver{}, NewLogUseCaseObserver(nil))
}
