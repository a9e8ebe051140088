package cli

import (
	"fmt"

	"github.com/alexanderramin/insurer/internal/domain"
	"github.com/spf13/pflag"
)

// Typed flag values so bad input is rejected while flags are parsed.

type domainValue domain.InsuranceDomain

func (v *domainValue) String() string { return string(*v) }
func (v *domainValue) Type() string   { return "domain" }

func (v *domainValue) Set(s string) error {
	d, err := domain.ParseDomain(s)
	if err != nil {
		return err
	}
	*v = domainValue(d)
	return nil
}

type categoryValue domain.PlanCategory

func (v *categoryValue) String() string { return string(*v) }
func (v *categoryValue) Type() string   { return "category" }

func (v *categoryValue) Set(s string) error {
	c, err := domain.ParseCategory(s)
	if err != nil {
		return err
	}
	*v = categoryValue(c)
	return nil
}

type moneyValue domain.Money

func (v *moneyValue) String() string { return domain.Money(*v).String() }
func (v *moneyValue) Type() string   { return "amount" }

func (v *moneyValue) Set(s string) error {
	m, err := domain.ParseMoney(s)
	if err != nil {
		return err
	}
	if m < 0 {
		return fmt.Errorf("amount must not be negative")
	}
	*v = moneyValue(m)
	return nil
}

// enumValue accepts one of a fixed set of strings.
type enumValue[T ~string] struct {
	target  *T
	allowed []T
	name    string
}

func newEnumValue[T ~string](target *T, name string, allowed ...T) *enumValue[T] {
	return &enumValue[T]{target: target, allowed: allowed, name: name}
}

func (v *enumValue[T]) String() string { return string(*v.target) }
func (v *enumValue[T]) Type() string   { return v.name }

func (v *enumValue[T]) Set(s string) error {
	for _, a := range v.allowed {
		if string(a) == s {
			*v.target = a
			return nil
		}
	}
	return fmt.Errorf("must be one of %v", v.allowed)
}

var (
	_ pflag.Value = (*domainValue)(nil)
	_ pflag.Value = (*categoryValue)(nil)
	_ pflag.Value = (*moneyValue)(nil)
	_ pflag.Value = (*enumValue[domain.Role])(nil)
)

func allEventTypes() []domain.EventType {
	return []domain.EventType{
		domain.EventSubscribed, domain.EventActivated, domain.EventSuspended,
		domain.EventReinstated, domain.EventCancelled, domain.EventExpired,
		domain.EventRenewed, domain.EventClaimFiled,
	}
}

func allEventStatuses() []domain.EventStatus {
	return []domain.EventStatus{
		domain.EventStatusPending, domain.EventStatusInProgress, domain.EventStatusCompleted,
		domain.EventStatusFailed, domain.EventStatusCancelled,
	}
}
