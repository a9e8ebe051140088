package pricing

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/alexanderramin/insurer/internal/domain"
)

// Rate is the outcome of resolving a multiplier: either a resolved positive
// value or Unset. Callers must handle Unset explicitly.
type Rate struct {
	value float64
	ok    bool
}

// Resolved returns a Rate holding v.
func Resolved(v float64) Rate { return Rate{value: v, ok: true} }

// Unset is the Rate for a domain with no multiplier.
var Unset = Rate{}

// Value returns the multiplier and whether it was resolved.
func (r Rate) Value() (float64, bool) { return r.value, r.ok }

func (r Rate) IsSet() bool { return r.ok }

func (r Rate) String() string {
	if !r.ok {
		return "unset"
	}
	return strconv.FormatFloat(r.value, 'f', -1, 64)
}

// Resolver maps an insurance domain, and optionally the underwriting data
// collected for it, to a premium multiplier.
type Resolver interface {
	Resolve(dom domain.InsuranceDomain, data domain.Underwriting) Rate
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(dom domain.InsuranceDomain, data domain.Underwriting) Rate

func (f ResolverFunc) Resolve(dom domain.InsuranceDomain, data domain.Underwriting) Rate {
	return f(dom, data)
}

// DefaultRates are the multipliers used when none are configured.
func DefaultRates() map[domain.InsuranceDomain]float64 {
	return map[domain.InsuranceDomain]float64{
		domain.DomainLife:    1.0,
		domain.DomainHome:    1.2,
		domain.DomainVehicle: 1.5,
	}
}

// StaticResolver looks the multiplier up in a fixed table and ignores
// underwriting data.
type StaticResolver struct {
	rates map[domain.InsuranceDomain]float64
}

// NewStaticResolver copies rates. Non-positive entries are rejected.
func NewStaticResolver(rates map[domain.InsuranceDomain]float64) (*StaticResolver, error) {
	table := make(map[domain.InsuranceDomain]float64, len(rates))
	for dom, v := range rates {
		if !dom.Valid() {
			return nil, fmt.Errorf("unknown insurance domain %q", dom)
		}
		if v <= 0 {
			return nil, fmt.Errorf("multiplier for %s must be positive, got %v", dom, v)
		}
		table[dom] = v
	}
	return &StaticResolver{rates: table}, nil
}

func (r *StaticResolver) Resolve(dom domain.InsuranceDomain, _ domain.Underwriting) Rate {
	v, ok := r.rates[dom]
	if !ok {
		return Unset
	}
	return Resolved(v)
}

// Rates returns a copy of the table.
func (r *StaticResolver) Rates() map[domain.InsuranceDomain]float64 {
	out := make(map[domain.InsuranceDomain]float64, len(r.rates))
	for k, v := range r.rates {
		out[k] = v
	}
	return out
}

// ParseRates parses "life:1.0,home:1.2,vehicle:1.5". Whitespace around
// entries is ignored and an empty string yields an empty table.
func ParseRates(s string) (map[domain.InsuranceDomain]float64, error) {
	out := make(map[domain.InsuranceDomain]float64)
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, value, found := strings.Cut(entry, ":")
		if !found {
			return nil, fmt.Errorf("rate entry %q: expected domain:multiplier", entry)
		}
		dom, err := domain.ParseDomain(name)
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("rate entry %q: %w", entry, err)
		}
		if _, dup := out[dom]; dup {
			return nil, fmt.Errorf("rate for %s given twice", dom)
		}
		out[dom] = v
	}
	return out, nil
}

// FormatRates renders a table in ParseRates syntax, domains sorted by name.
func FormatRates(rates map[domain.InsuranceDomain]float64) string {
	doms := make([]string, 0, len(rates))
	for d := range rates {
		doms = append(doms, string(d))
	}
	sort.Strings(doms)
	parts := make([]string, 0, len(doms))
	for _, d := range doms {
		parts = append(parts, d+":"+strconv.FormatFloat(rates[domain.InsuranceDomain(d)], 'f', -1, 64))
	}
	return strings.Join(parts, ",")
}
