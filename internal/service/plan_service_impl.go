package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/alexanderramin/insurer/internal/cache"
	"github.com/alexanderramin/insurer/internal/db"
	"github.com/alexanderramin/insurer/internal/domain"
	"github.com/alexanderramin/insurer/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const activePlansCacheKey = "plans:active"

type planService struct {
	plans    repository.PlanRepo
	uow      db.UnitOfWork
	cache    cache.Cache
	cacheTTL time.Duration
	logger   *zap.Logger
	observer UseCaseObserver
}

// PlanCacheConfig enables caching of the active catalog. A nil Cache
// disables it.
type PlanCacheConfig struct {
	Cache cache.Cache
	TTL   time.Duration
}

func NewPlanService(
	plans repository.PlanRepo,
	uow db.UnitOfWork,
	cacheCfg PlanCacheConfig,
	logger *zap.Logger,
	observers ...UseCaseObserver,
) PlanService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &planService{
		plans:    plans,
		uow:      uow,
		cache:    cacheCfg.Cache,
		cacheTTL: cacheCfg.TTL,
		logger:   logger,
		observer: useCaseObserverOrNoop(observers),
	}
}

func (s *planService) ListActivePlans(ctx context.Context) ([]*domain.PlanDefinition, error) {
	if cached, ok := s.cachedActive(ctx); ok {
		return cached, nil
	}

	plans, err := s.plans.ListActive(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.CodeDataUnavailable, "loading plan catalog", err)
	}
	s.storeActive(ctx, plans)
	return plans, nil
}

func (s *planService) BasePrices(ctx context.Context) (domain.BasePrices, error) {
	plans, err := s.ListActivePlans(ctx)
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, domain.ErrEmptyCatalog
	}
	prices := make(domain.BasePrices, len(plans))
	for _, p := range plans {
		prices[p.Category] = p.BasePrice
	}
	return prices, nil
}

// Cache errors are logged and read as a miss.
func (s *planService) cachedActive(ctx context.Context) ([]*domain.PlanDefinition, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, ok, err := s.cache.Get(ctx, activePlansCacheKey)
	if err != nil {
		s.logger.Warn("plan cache read failed", zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var plans []*domain.PlanDefinition
	if err := json.Unmarshal([]byte(raw), &plans); err != nil {
		s.logger.Warn("discarding unreadable plan cache entry", zap.Error(err))
		return nil, false
	}
	return plans, true
}

func (s *planService) storeActive(ctx context.Context, plans []*domain.PlanDefinition) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(plans)
	if err != nil {
		s.logger.Warn("encoding plan cache entry", zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, activePlansCacheKey, string(raw), s.cacheTTL); err != nil {
		s.logger.Warn("plan cache write failed", zap.Error(err))
	}
}

func (s *planService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, activePlansCacheKey); err != nil {
		s.logger.Warn("plan cache invalidation failed", zap.Error(err))
	}
}

func (s *planService) ListAll(ctx context.Context) ([]*domain.PlanDefinition, error) {
	plans, err := s.plans.ListAll(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.CodeDataUnavailable, "loading plans", err)
	}
	return plans, nil
}

func (s *planService) Get(ctx context.Context, id string) (*domain.PlanDefinition, error) {
	p, err := s.plans.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr("plan "+id, err)
	}
	return p, nil
}

func (s *planService) Create(ctx context.Context, p *domain.PlanDefinition) (err error) {
	ctx, run := startUseCase(ctx, "create-plan")
	defer func() { run.end(ctx, s.observer, err) }()
	run.set("category", string(p.Category))

	if err = p.Validate(); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	if err = s.plans.Create(ctx, p); err != nil {
		return planWriteErr(p, err)
	}
	s.invalidate(ctx)
	return nil
}

func (s *planService) Update(ctx context.Context, p *domain.PlanDefinition) (err error) {
	ctx, run := startUseCase(ctx, "update-plan")
	defer func() { run.end(ctx, s.observer, err) }()
	run.set("plan_id", p.ID)

	if err = p.Validate(); err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()
	if err = s.plans.Update(ctx, p); err != nil {
		return planWriteErr(p, err)
	}
	s.invalidate(ctx)
	return nil
}

func (s *planService) SetActive(ctx context.Context, id string, active bool) (err error) {
	ctx, run := startUseCase(ctx, "set-plan-active")
	defer func() { run.end(ctx, s.observer, err) }()
	run.set("plan_id", id)
	run.set("active", active)

	p, err := s.plans.GetByID(ctx, id)
	if err != nil {
		return notFoundOr("plan "+id, err)
	}
	if p.IsActive == active {
		return nil
	}
	p.IsActive = active
	p.UpdatedAt = time.Now().UTC()
	if err = s.plans.Update(ctx, p); err != nil {
		return planWriteErr(p, err)
	}
	s.invalidate(ctx)
	return nil
}

func (s *planService) Delete(ctx context.Context, id string) (err error) {
	ctx, run := startUseCase(ctx, "delete-plan")
	defer func() { run.end(ctx, s.observer, err) }()
	run.set("plan_id", id)

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		plans := repository.NewSQLitePlanRepo(tx)
		if _, err := plans.GetByID(ctx, id); err != nil {
			return notFoundOr("plan "+id, err)
		}
		n, err := plans.CountPolicies(ctx, id)
		if err != nil {
			return persistenceErr("counting policies", err)
		}
		if n > 0 {
			return domain.NewError(domain.CodeConflict,
				fmt.Sprintf("plan is referenced by %d contracted policies; deactivate it instead", n))
		}
		return persistenceErr("deleting plan", plans.Delete(ctx, id))
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func planWriteErr(p *domain.PlanDefinition, err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return domain.WrapError(domain.CodeConflict,
			fmt.Sprintf("an active %s plan already exists", p.Category), err)
	case errors.Is(err, repository.ErrNotFound):
		return notFoundOr("plan "+p.ID, err)
	default:
		return persistenceErr("saving plan", err)
	}
}

// planDocument is the YAML layout accepted by Import.
type planDocument struct {
	Plans []planEntry `yaml:"plans"`
}

type planEntry struct {
	Category        string                 `yaml:"category"`
	BasePrice       yamlMoney              `yaml:"base_price"`
	GeneralCoverage yamlMoney              `yaml:"general_coverage"`
	Benefits        []string               `yaml:"benefits"`
	Description     domain.PlanDescription `yaml:"description"`
	Active          *bool                  `yaml:"active"`
}

// yamlMoney reads a decimal amount such as 1500 or "1500.50".
type yamlMoney domain.Money

func (m *yamlMoney) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: amount must be a scalar", node.Line)
	}
	v, err := domain.ParseMoney(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*m = yamlMoney(v)
	return nil
}

func (s *planService) Import(ctx context.Context, r io.Reader) (result *PlanImportResult, err error) {
	ctx, run := startUseCase(ctx, "import-plans")
	defer func() { run.end(ctx, s.observer, err) }()

	var doc planDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err = dec.Decode(&doc); err != nil {
		return nil, domain.WrapError(domain.CodeInvalidInput, "reading plan document", err)
	}
	if len(doc.Plans) == 0 {
		return nil, domain.NewError(domain.CodeInvalidInput, "plan document lists no plans")
	}

	incoming := make([]*domain.PlanDefinition, 0, len(doc.Plans))
	seen := make(map[domain.PlanCategory]bool)
	for i, entry := range doc.Plans {
		cat, perr := domain.ParseCategory(entry.Category)
		if perr != nil {
			return nil, domain.WrapError(domain.CodeInvalidInput, fmt.Sprintf("plan %d", i+1), perr)
		}
		if seen[cat] {
			return nil, domain.NewError(domain.CodeInvalidInput, fmt.Sprintf("plan %d: category %s listed twice", i+1, cat))
		}
		seen[cat] = true

		p := &domain.PlanDefinition{
			Category:        cat,
			BasePrice:       domain.Money(entry.BasePrice),
			GeneralCoverage: domain.Money(entry.GeneralCoverage),
			Benefits:        trimBenefits(entry.Benefits),
			Description:     entry.Description,
			IsActive:        entry.Active == nil || *entry.Active,
		}
		if verr := p.Validate(); verr != nil {
			return nil, verr
		}
		incoming = append(incoming, p)
	}

	result = &PlanImportResult{}
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		plans := repository.NewSQLitePlanRepo(tx)
		now := time.Now().UTC()
		for _, p := range incoming {
			existing, gerr := plans.GetActiveByCategory(ctx, p.Category)
			switch {
			case gerr == nil:
				p.ID = existing.ID
				p.CreatedAt = existing.CreatedAt
				p.UpdatedAt = now
				if uerr := plans.Update(ctx, p); uerr != nil {
					return planWriteErr(p, uerr)
				}
				result.Updated++
			case errors.Is(gerr, repository.ErrNotFound):
				p.ID = uuid.New().String()
				p.CreatedAt = now
				p.UpdatedAt = now
				if cerr := plans.Create(ctx, p); cerr != nil {
					return planWriteErr(p, cerr)
				}
				result.Created++
			default:
				return persistenceErr("reading plans", gerr)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	run.set("created", result.Created)
	run.set("updated", result.Updated)
	s.invalidate(ctx)
	return result, nil
}

func trimBenefits(in []string) []string {
	out := make([]string, 0, len(in))
	for _, b := range in {
		out = append(out, strings.TrimSpace(b))
	}
	return out
}
