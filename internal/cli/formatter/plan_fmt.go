package formatter

import (
	"strings"

	"github.com/alexanderramin/insurer/internal/domain"
	"github.com/alexanderramin/insurer/internal/service"
)

// PlanStatus renders an active/inactive pill for a plan.
func PlanStatus(active bool) string {
	if active {
		return StyleGreen.Render("● Active")
	}
	return StyleDim.Render("○ Inactive")
}

// FormatPlanList renders plans as a table.
func FormatPlanList(plans []*domain.PlanDefinition) string {
	if len(plans) == 0 {
		return Dim("No plans found.") + "\n"
	}
	rows := make([][]string, 0, len(plans))
	for _, p := range plans {
		rows = append(rows, []string{
			TruncID(p.ID),
			CategoryBadge(p.Category),
			FormatMoney(p.BasePrice),
			FormatMoney(p.GeneralCoverage),
			PlanStatus(p.IsActive),
		})
	}
	return RenderTable([]string{"ID", "PLAN", "BASE PRICE", "COVERAGE", "STATUS"}, rows, 2, 3)
}

// FormatPlanDetail renders one plan with its benefits and descriptions.
func FormatPlanDetail(p *domain.PlanDefinition) string {
	var b strings.Builder
	b.WriteString(KeyValues(
		[2]string{"ID", p.ID},
		[2]string{"Base price", MoneyStyled(p.BasePrice)},
		[2]string{"Coverage", FormatMoney(p.GeneralCoverage)},
		[2]string{"Status", PlanStatus(p.IsActive)},
		[2]string{"Updated", HumanDate(p.UpdatedAt)},
	))
	if len(p.Benefits) > 0 {
		b.WriteString("\n\n" + Bold("Benefits") + "\n")
		for _, benefit := range p.Benefits {
			b.WriteString("  " + StyleGreen.Render("•") + " " + benefit + "\n")
		}
	}
	desc := KeyValues(
		[2]string{"Person", p.Description.Person},
		[2]string{"Home", p.Description.Home},
		[2]string{"Vehicle", p.Description.Vehicle},
	)
	if desc != "" {
		b.WriteString("\n" + Bold("Descriptions") + "\n" + desc)
	}
	return RenderBox("Plan "+string(p.Category), strings.TrimRight(b.String(), "\n"))
}

// FormatImportResult summarizes a catalog import.
func FormatImportResult(r *service.PlanImportResult) string {
	return Success(moneyPrinter.Sprintf("Imported plans: %d created, %d updated", r.Created, r.Updated)) + "\n"
}
