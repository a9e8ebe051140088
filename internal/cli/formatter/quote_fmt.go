package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alexanderramin/insurer/internal/domain"
	"github.com/alexanderramin/insurer/internal/pricing"
	"github.com/alexanderramin/insurer/internal/quote"
	"github.com/alexanderramin/insurer/internal/service"
)

// FormatQuoteTable lists the premium of every offered category. The selected
// category, if any, is marked.
func FormatQuoteTable(dom domain.InsuranceDomain, rate pricing.Rate, quotes []pricing.Quote, selected domain.PlanCategory) string {
	var b strings.Builder
	b.WriteString(Header(fmt.Sprintf("%s quotes", dom)))
	b.WriteString("\n")
	b.WriteString(Dim("multiplier " + rate.String()))
	b.WriteString("\n\n")

	rows := make([][]string, 0, len(quotes))
	for _, q := range quotes {
		mark := "  "
		if q.Category == selected {
			mark = StyleGreen.Render("▸ ")
		}
		rows = append(rows, []string{
			mark + CategoryBadge(q.Category),
			FormatMoney(q.Base),
			MoneyStyled(q.Premium),
		})
	}
	b.WriteString(RenderTable([]string{"PLAN", "BASE", "PREMIUM"}, rows, 1, 2))
	return b.String()
}

// FormatUnderwriting returns the label/value pairs of the collected data.
func FormatUnderwriting(u domain.Underwriting) [][2]string {
	switch d := u.(type) {
	case domain.LifeData:
		pairs := [][2]string{{"Certificate", YesNo(d.CertPresented)}}
		if d.CertPresented {
			pairs = append(pairs, [2]string{"Certificate data", d.CertData})
		}
		return pairs
	case domain.HomeData:
		return [][2]string{
			{"Construction", Humanize(string(d.ConstructionType))},
			{"Building age", strconv.Itoa(d.BuildingAge) + " years"},
			{"City", d.City},
			{"Neighborhood", d.Neighborhood},
		}
	case domain.VehicleData:
		return [][2]string{
			{"Year", strconv.Itoa(d.Year)},
			{"Model", d.Model},
			{"Theft risk", Humanize(string(d.TheftRisk))},
			{"Violations", strconv.Itoa(d.Violations)},
		}
	}
	return nil
}

// FormatDraftReview renders the review box shown before confirming.
func FormatDraftReview(snap quote.Snapshot) string {
	d := snap.Draft
	pairs := [][2]string{{"Domain", DomainBadge(d.Domain)}}
	if snap.Flow == quote.FlowEmployee {
		pairs = append(pairs, [2]string{"Client", d.ClientName})
	}
	pairs = append(pairs, [2]string{"Client type", Humanize(string(d.ClientType))})
	pairs = append(pairs, FormatUnderwriting(d.Underwriting)...)
	pairs = append(pairs,
		[2]string{"Plan", CategoryBadge(d.Category)},
		[2]string{"Premium", MoneyStyled(d.Premium)},
	)
	return RenderBox("Review quote", KeyValues(pairs...))
}

// FormatRegistration renders the outcome of a confirmed quote.
func FormatRegistration(reg *service.Registration, d quote.Draft) string {
	var b strings.Builder
	title := "Policy registered"
	if reg.Replayed {
		title = "Policy already registered"
	}
	b.WriteString(Success(Bold(title)))
	b.WriteString("\n\n")
	b.WriteString(KeyValues(
		[2]string{"Policy", PolicyNumber(reg.PolicyNumber)},
		[2]string{"Domain", DomainBadge(d.Domain)},
		[2]string{"Plan", CategoryBadge(d.Category)},
		[2]string{"Premium", MoneyStyled(reg.Premium)},
		[2]string{"ID", TruncID(reg.PolicyID)},
	))
	b.WriteString("\n")
	return b.String()
}
