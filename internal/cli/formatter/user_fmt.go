package formatter

import (
	"strconv"
	"strings"

	"github.com/alexanderramin/insurer/internal/domain"
)

// RoleBadge renders a user role.
func RoleBadge(r domain.Role) string {
	switch r {
	case domain.RoleAdmin:
		return StyleRed.Render("admin")
	case domain.RoleEmployee:
		return StyleBlue.Render("employee")
	default:
		return StyleFg.Render(string(r))
	}
}

// UserStatusPill renders an active/inactive account.
func UserStatusPill(s domain.UserStatus) string {
	if s == domain.UserActive {
		return StyleGreen.Render("● Active")
	}
	return StyleDim.Render("○ Inactive")
}

// FormatUserList renders accounts as a table.
func FormatUserList(users []*domain.User) string {
	if len(users) == 0 {
		return Dim("No users found.") + "\n"
	}
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		last := Dim("never")
		if u.LastLoginAt != nil {
			last = HumanTimestamp(*u.LastLoginAt)
		}
		rows = append(rows, []string{
			TruncID(u.ID),
			u.Name,
			u.Email,
			RoleBadge(u.Role),
			UserStatusPill(u.Status),
			last,
		})
	}
	return RenderTable([]string{"ID", "NAME", "EMAIL", "ROLE", "STATUS", "LAST LOGIN"}, rows)
}

// FormatUser renders the current account.
func FormatUser(u *domain.User) string {
	return KeyValues(
		[2]string{"Name", Bold(u.Name)},
		[2]string{"Email", u.Email},
		[2]string{"Role", RoleBadge(u.Role)},
		[2]string{"Status", UserStatusPill(u.Status)},
		[2]string{"ID", Dim(u.ID)},
	) + "\n"
}

// FormatUserMetrics renders account counts per status and role.
func FormatUserMetrics(m *domain.UserMetrics) string {
	var b strings.Builder
	b.WriteString(Header("Users"))
	b.WriteString("\n")
	b.WriteString(KeyValues(
		[2]string{"Total", Bold(strconv.Itoa(m.Total))},
		[2]string{"Active", StyleGreen.Render(strconv.Itoa(m.Active))},
		[2]string{"Inactive", Dim(strconv.Itoa(m.Inactive))},
	))
	b.WriteString("\n\n")
	rows := make([][]string, 0, 3)
	for _, r := range []domain.Role{domain.RoleClient, domain.RoleEmployee, domain.RoleAdmin} {
		rows = append(rows, []string{RoleBadge(r), strconv.Itoa(m.ByRole[r])})
	}
	b.WriteString(RenderTable([]string{"ROLE", "COUNT"}, rows, 1))
	return b.String()
}

// FormatAuthEvents renders the audit trail of logins and account changes.
func FormatAuthEvents(events []domain.AuthEvent) string {
	if len(events) == 0 {
		return Dim("No sessions recorded.") + "\n"
	}
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		action := Humanize(string(e.Action))
		if e.Action == domain.AuthLoginFailed {
			action = StyleRed.Render(action)
		}
		rows = append(rows, []string{
			e.CreatedAt.Format("2006-01-02 15:04"),
			e.Email,
			action,
			Dim(e.Reason),
			e.Host,
		})
	}
	return RenderTable([]string{"WHEN", "EMAIL", "ACTION", "REASON", "HOST"}, rows)
}
