package domain

import (
	"fmt"
	"strings"
	"time"
)

// PlanDescription holds the per-audience marketing text of a plan.
type PlanDescription struct {
	Home    string `json:"home" yaml:"home"`
	Person  string `json:"person" yaml:"person"`
	Vehicle string `json:"vehicle" yaml:"vehicle"`
}

// For returns the description shown for a domain. Life plans are described
// under the person text.
func (d PlanDescription) For(dom InsuranceDomain) string {
	switch dom {
	case DomainHome:
		return d.Home
	case DomainVehicle:
		return d.Vehicle
	default:
		return d.Person
	}
}

type PlanDefinition struct {
	ID              string
	Category        PlanCategory
	BasePrice       Money
	GeneralCoverage Money
	Benefits        []string
	Description     PlanDescription
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Validate checks the fields an administrator must supply.
func (p *PlanDefinition) Validate() error {
	if !p.Category.Valid() {
		return NewError(CodeInvalidInput, fmt.Sprintf("unknown plan category %q", p.Category))
	}
	if p.BasePrice < 0 {
		return NewError(CodeInvalidInput, "base price must not be negative")
	}
	if p.GeneralCoverage < 0 {
		return NewError(CodeInvalidInput, "general coverage must not be negative")
	}
	for i, b := range p.Benefits {
		if strings.TrimSpace(b) == "" {
			return NewError(CodeInvalidInput, fmt.Sprintf("benefit %d is empty", i+1))
		}
	}
	return nil
}

// BasePrices maps each active category to its base price.
type BasePrices map[PlanCategory]Money

// Categories returns the categories present, in tier order.
func (b BasePrices) Categories() []PlanCategory {
	out := make([]PlanCategory, 0, len(b))
	for _, c := range AllCategories() {
		if _, ok := b[c]; ok {
			out = append(out, c)
		}
	}
	return out
}
