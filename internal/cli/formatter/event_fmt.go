package formatter

import (
	"strings"

	"github.com/alexanderramin/insurer/internal/domain"
)

// EventStatusPill returns a colored indicator for an event status.
func EventStatusPill(s domain.EventStatus) string {
	switch s {
	case domain.EventStatusPending:
		return StyleYellow.Render("○ Pending")
	case domain.EventStatusInProgress:
		return StyleBlue.Render("◐ In progress")
	case domain.EventStatusCompleted:
		return StyleGreen.Render("✔ Completed")
	case domain.EventStatusFailed:
		return StyleRed.Render("✖ Failed")
	case domain.EventStatusCancelled:
		return StyleDim.Render("✖ Cancelled")
	default:
		return StyleDim.Render(string(s))
	}
}

// FormatEventList renders policy events as a table.
func FormatEventList(events []*domain.PolicyEvent) string {
	if len(events) == 0 {
		return Dim("No events found.") + "\n"
	}
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		resolved := Dim("—")
		if e.ResolvedAt != nil {
			resolved = HumanDate(*e.ResolvedAt)
		}
		rows = append(rows, []string{
			TruncID(e.ID),
			TruncID(e.PolicyID),
			Humanize(string(e.Type)),
			EventStatusPill(e.Status),
			HumanDate(e.RequestedAt),
			resolved,
		})
	}
	return RenderTable([]string{"ID", "POLICY", "TYPE", "STATUS", "REQUESTED", "RESOLVED"}, rows)
}

// FormatEvent renders one event with its description.
func FormatEvent(e *domain.PolicyEvent) string {
	pairs := [][2]string{
		{"ID", e.ID},
		{"Policy", TruncID(e.PolicyID)},
		{"Type", Humanize(string(e.Type))},
		{"Status", EventStatusPill(e.Status)},
		{"Requested", e.RequestedAt.Format("2006-01-02 15:04")},
	}
	if e.ResolvedAt != nil {
		pairs = append(pairs, [2]string{"Resolved", e.ResolvedAt.Format("2006-01-02 15:04")})
	}
	if d := strings.TrimSpace(e.Description); d != "" {
		pairs = append(pairs, [2]string{"Description", d})
	}
	return KeyValues(pairs...) + "\n"
}
