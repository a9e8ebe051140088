// Package quote drives a single quote draft from domain selection to a
// registered policy.
//
// A Session is owned by one actor. Transitions are serialized: a transition
// attempted while another one is still running fails with
// TransitionInFlight and leaves the draft untouched. Every failed transition
// leaves the draft exactly as it was.
package quote

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/alexanderramin/insurer/internal/domain"
	"github.com/alexanderramin/insurer/internal/pricing"
	"github.com/alexanderramin/insurer/internal/service"
	"github.com/google/uuid"
)

// DefaultTimeout bounds each network step when Config.Timeout is zero.
const DefaultTimeout = 15 * time.Second

// Catalog supplies the base price of every active plan category.
type Catalog interface {
	BasePrices(ctx context.Context) (domain.BasePrices, error)
}

// Registrar persists a confirmed draft.
type Registrar interface {
	Register(ctx context.Context, req service.RegistrationRequest) (*service.Registration, error)
}

// ClientDirectory looks up the client an employee is quoting for.
type ClientDirectory interface {
	Get(ctx context.Context, id string) (*domain.User, error)
}

// Draft is the data collected so far.
type Draft struct {
	RequestID    string
	Domain       domain.InsuranceDomain
	Rate         pricing.Rate
	ClientID     string
	ClientName   string
	ClientType   domain.ClientType
	Underwriting domain.Underwriting
	Category     domain.PlanCategory
	Premium      domain.Money
	PolicyID     string
	PolicyNumber int64
}

// Snapshot is a copy of the session state for rendering.
type Snapshot struct {
	Step   Step
	Flow   Flow
	Draft  Draft
	Prices domain.BasePrices
}

type Config struct {
	Catalog   Catalog
	Resolver  pricing.Resolver
	Registrar Registrar
	// Clients is required for employee and admin actors.
	Clients ClientDirectory
	// Actor may be nil; confirming then fails with Unauthenticated.
	Actor   *domain.Actor
	Timeout time.Duration
}

type Session struct {
	// guard is held for the whole of a transition, mu only while state is
	// read or replaced.
	guard sync.Mutex
	mu    sync.RWMutex

	catalog   Catalog
	resolver  pricing.Resolver
	registrar Registrar
	clients   ClientDirectory
	actor     *domain.Actor
	timeout   time.Duration
	flow      Flow

	step   Step
	draft  Draft
	prices domain.BasePrices

	newRequestID func() string
}

// New starts a session at StepSelectDomain after loading the plan catalog.
func New(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.Catalog == nil || cfg.Resolver == nil || cfg.Registrar == nil {
		return nil, errors.New("quote session needs a catalog, a resolver and a registrar")
	}
	flow := FlowClient
	if cfg.Actor != nil && cfg.Actor.Role.ActsForClients() {
		flow = FlowEmployee
		if cfg.Clients == nil {
			return nil, errors.New("employee quote session needs a client directory")
		}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	s := &Session{
		catalog:      cfg.Catalog,
		resolver:     cfg.Resolver,
		registrar:    cfg.Registrar,
		clients:      cfg.Clients,
		actor:        cfg.Actor,
		timeout:      timeout,
		flow:         flow,
		newRequestID: func() string { return uuid.New().String() },
	}
	prices, err := s.fetchCatalog(ctx)
	if err != nil {
		return nil, err
	}
	s.prices = prices
	s.draft = s.freshDraft()
	return s, nil
}

func (s *Session) freshDraft() Draft {
	return Draft{RequestID: s.newRequestID(), ClientType: domain.ClientPerson}
}

// begin claims the transition guard and checks the current step.
func (s *Session) begin(want Step) (func(), error) {
	if !s.guard.TryLock() {
		return nil, domain.ErrTransitionInFlight
	}
	s.mu.RLock()
	current := s.step
	s.mu.RUnlock()
	if err := expectStep(current, want); err != nil {
		s.guard.Unlock()
		return nil, err
	}
	return s.guard.Unlock, nil
}

func expectStep(current, want Step) error {
	if current == want {
		return nil
	}
	if current == StepRegistered {
		return domain.NewError(domain.CodeAlreadyRegistered, "quote is already registered; reset to start a new one")
	}
	return domain.NewError(domain.CodeInvalidTransition, fmt.Sprintf("cannot %s while at %s", want, current))
}

// commit replaces the draft and moves to step.
func (s *Session) commit(step Step, d Draft) {
	s.mu.Lock()
	s.step = step
	s.draft = d
	s.mu.Unlock()
}

func (s *Session) current() (Step, Draft) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.step, s.draft
}

// SelectDomain sets the insurance domain and resolves its multiplier.
// Choosing a different domain than before drops the underwriting data
// already entered.
func (s *Session) SelectDomain(dom domain.InsuranceDomain) error {
	done, err := s.begin(StepSelectDomain)
	if err != nil {
		return err
	}
	defer done()

	if !dom.Valid() {
		return domain.NewError(domain.CodeInvalidInput, fmt.Sprintf("unknown insurance domain %q", dom))
	}
	rate := s.resolver.Resolve(dom, nil)
	if !rate.IsSet() {
		return domain.NewError(domain.CodeInvalidInput, fmt.Sprintf("no multiplier configured for %s", dom))
	}

	_, d := s.current()
	if d.Domain != dom {
		d.Underwriting = nil
		d.Premium = 0
	}
	d.Domain = dom
	d.Rate = rate
	s.commit(s.flow.next(StepSelectDomain), d)
	return nil
}

// SelectClient picks the client an employee is registering for.
func (s *Session) SelectClient(ctx context.Context, clientID string) error {
	done, err := s.begin(StepSelectClient)
	if err != nil {
		return err
	}
	defer done()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	u, err := s.clients.Get(ctx, clientID)
	if err != nil {
		return networkErr("looking up client", err)
	}
	if u.Role != domain.RoleClient {
		return domain.NewError(domain.CodeInvalidInput, fmt.Sprintf("%s is not a client account", u.Email))
	}
	if !u.Active() {
		return domain.NewError(domain.CodeInvalidInput, fmt.Sprintf("client %s is inactive", u.Email))
	}

	_, d := s.current()
	d.ClientID = u.ID
	d.ClientName = u.Name
	s.commit(StepSupplyUnderwritingData, d)
	return nil
}

// SubmitUnderwritingData stores data for the selected domain. The data must
// be tagged with that domain and valid. An empty client type means person.
func (s *Session) SubmitUnderwritingData(data domain.Underwriting, clientType domain.ClientType) error {
	done, err := s.begin(StepSupplyUnderwritingData)
	if err != nil {
		return err
	}
	defer done()

	if clientType == "" {
		clientType = domain.ClientPerson
	}
	if !clientType.Valid() {
		return domain.NewError(domain.CodeInvalidInput, fmt.Sprintf("unknown client type %q", clientType))
	}
	_, d := s.current()
	if err := domain.CheckUnderwriting(d.Domain, data); err != nil {
		return err
	}
	rate := s.resolver.Resolve(d.Domain, data)
	if !rate.IsSet() {
		return domain.NewError(domain.CodeInvalidInput, fmt.Sprintf("no multiplier configured for %s", d.Domain))
	}

	d.Underwriting = data
	d.ClientType = clientType
	d.Rate = rate
	s.commit(StepSelectPlan, d)
	return nil
}

// SelectPlan picks one of the listed categories and prices it.
func (s *Session) SelectPlan(category domain.PlanCategory) error {
	done, err := s.begin(StepSelectPlan)
	if err != nil {
		return err
	}
	defer done()

	s.mu.RLock()
	base, listed := s.prices[category]
	s.mu.RUnlock()
	if !listed {
		return domain.NewError(domain.CodeUnknownPlan, fmt.Sprintf("%q is not an active plan category", category))
	}

	_, d := s.current()
	multiplier, _ := d.Rate.Value()
	d.Category = category
	d.Premium = pricing.Premium(base, multiplier)
	s.commit(StepReviewAndConfirm, d)
	return nil
}

// Confirm registers the draft. On failure the session stays at
// StepReviewAndConfirm and the registrar's error is returned unchanged.
func (s *Session) Confirm(ctx context.Context) (*service.Registration, error) {
	done, err := s.begin(StepReviewAndConfirm)
	if err != nil {
		return nil, err
	}
	defer done()

	_, d := s.current()
	req := service.RegistrationRequest{
		RequestID:    d.RequestID,
		Domain:       d.Domain,
		ClientType:   d.ClientType,
		Category:     d.Category,
		Underwriting: d.Underwriting,
		OwnerID:      d.ClientID,
	}
	if s.actor != nil {
		req.ActorID = s.actor.ID
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	reg, err := s.registrar.Register(ctx, req)
	if err != nil {
		return nil, err
	}

	d.PolicyID = reg.PolicyID
	d.PolicyNumber = reg.PolicyNumber
	d.Premium = reg.Premium
	s.commit(StepRegistered, d)
	return reg, nil
}

// Back returns to the previous step, keeping entered data. It is a no-op at
// StepSelectDomain.
func (s *Session) Back() error {
	if !s.guard.TryLock() {
		return domain.ErrTransitionInFlight
	}
	defer s.guard.Unlock()

	step, d := s.current()
	if step == StepRegistered {
		return expectStep(step, StepReviewAndConfirm)
	}
	s.commit(s.flow.previous(step), d)
	return nil
}

// Reset discards the draft, reloads the catalog and returns to
// StepSelectDomain. When the catalog cannot be loaded nothing changes.
func (s *Session) Reset(ctx context.Context) error {
	if !s.guard.TryLock() {
		return domain.ErrTransitionInFlight
	}
	defer s.guard.Unlock()

	prices, err := s.fetchCatalog(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.prices = prices
	s.step = StepSelectDomain
	s.draft = s.freshDraft()
	s.mu.Unlock()
	return nil
}

func (s *Session) fetchCatalog(ctx context.Context) (domain.BasePrices, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	prices, err := s.catalog.BasePrices(ctx)
	if err != nil {
		return nil, networkErr("loading plan catalog", err)
	}
	if len(prices) == 0 {
		return nil, domain.ErrEmptyCatalog
	}
	return prices, nil
}

// networkErr passes coded errors through and reports anything else,
// including an expired timeout, as retryable DataUnavailable.
func networkErr(msg string, err error) error {
	if _, ok := domain.CodeOf(err); ok {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		msg += ": timed out"
	}
	return domain.WrapError(domain.CodeDataUnavailable, msg, err)
}

// Snapshot returns a copy of the current state. The copy is detached: the
// draft's underwriting data is always one of the value types accepted by
// domain.CheckUnderwriting, and the price table is cloned.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Step: s.step, Flow: s.flow, Draft: s.draft, Prices: maps.Clone(s.prices)}
}

func (s *Session) Step() Step {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.step
}

func (s *Session) Flow() Flow {
	return s.flow
}

// Quotes prices every listed category for the selected domain. It returns
// nil until a domain is chosen.
func (s *Session) Quotes() []pricing.Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	multiplier, ok := s.draft.Rate.Value()
	if !ok {
		return nil
	}
	return pricing.QuoteTable(s.prices, multiplier)
}
