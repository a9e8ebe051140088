package formatter

import (
	"strings"

	"github.com/alexanderramin/insurer/internal/domain"
)

// PaidPill renders the paid state of a subscription.
func PaidPill(paid bool) string {
	if paid {
		return StyleGreen.Render("✔ Paid")
	}
	return StyleYellow.Render("○ Due")
}

// FormatSubscriptions renders a client's policies with their premium and
// paid state.
func FormatSubscriptions(subs []domain.Subscription) string {
	if len(subs) == 0 {
		return Dim("No policies yet. Run `insurer quote` to get one.") + "\n"
	}
	rows := make([][]string, 0, len(subs))
	var total, due domain.Money
	for _, s := range subs {
		rows = append(rows, []string{
			PolicyNumber(s.PolicyNumber),
			DomainBadge(s.Domain),
			CategoryBadge(s.Category),
			FormatMoney(s.Amount),
			PaidPill(s.Paid),
		})
		total += s.Amount
		if !s.Paid {
			due += s.Amount
		}
	}
	var b strings.Builder
	b.WriteString(RenderTable([]string{"POLICY", "DOMAIN", "PLAN", "PREMIUM", "STATUS"}, rows, 3))
	b.WriteString("\n")
	b.WriteString(KeyValues(
		[2]string{"Total", MoneyStyled(total)},
		[2]string{"Outstanding", FormatMoney(due)},
	))
	b.WriteString("\n")
	return b.String()
}

// FormatPolicyDetails renders a single policy with its underwriting record.
func FormatPolicyDetails(d *domain.PolicyDetails) string {
	p := d.Policy
	pairs := [][2]string{
		{"Number", PolicyNumber(p.PolicyNumber)},
		{"Domain", DomainBadge(p.Domain)},
		{"Plan", CategoryBadge(d.Category)},
		{"Client type", Humanize(string(p.ClientType))},
		{"Premium", MoneyStyled(p.Premium)},
		{"Registered", HumanDate(p.CreatedAt)},
	}
	if p.CreatedByID != "" && p.CreatedByID != p.OwnerID {
		pairs = append(pairs, [2]string{"Registered by", TruncID(p.CreatedByID)})
	}
	pairs = append(pairs, FormatUnderwriting(d.Underwriting)...)
	return RenderBox("Policy", KeyValues(pairs...))
}
