package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/insurer/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// RenderBox wraps content in a rounded-border box with an optional title.
func RenderBox(title string, content string) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorDim).
		PaddingLeft(2).
		PaddingRight(2).
		PaddingTop(1).
		PaddingBottom(1)

	if title != "" {
		titleRendered := StyleHeader.Render(strings.ToUpper(title))
		return boxStyle.Render(titleRendered + "\n\n" + content)
	}
	return boxStyle.Render(content)
}

// KeyValues renders label/value pairs with the labels aligned. Pairs with an
// empty value are skipped.
func KeyValues(pairs ...[2]string) string {
	width := 0
	for _, p := range pairs {
		if p[1] != "" {
			width = max(width, lipgloss.Width(p[0]))
		}
	}
	var lines []string
	for _, p := range pairs {
		if p[1] == "" {
			continue
		}
		label := p[0] + strings.Repeat(" ", width-lipgloss.Width(p[0]))
		lines = append(lines, Dim(label)+"  "+p[1])
	}
	return strings.Join(lines, "\n")
}

// HumanDate returns a human-friendly absolute date string.
func HumanDate(t time.Time) string {
	return HumanDateFrom(t, time.Now())
}

// HumanDateFrom is HumanDate relative to now.
func HumanDateFrom(t, now time.Time) string {
	y1, m1, d1 := now.Date()
	y2, m2, d2 := t.Date()
	if y1 == y2 && m1 == m2 && d1 == d2 {
		return "Today"
	}
	y3, m3, d3 := now.AddDate(0, 0, -1).Date()
	if y2 == y3 && m2 == m3 && d2 == d3 {
		return "Yesterday"
	}
	return t.Format("Jan 2, 2006")
}

// HumanTimestamp returns a human-friendly relative timestamp string.
func HumanTimestamp(t time.Time) string {
	return HumanTimestampFrom(t, time.Now())
}

// HumanTimestampFrom is HumanTimestamp relative to now.
func HumanTimestampFrom(t, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < 0:
		return HumanDateFrom(t, now)
	case diff < time.Minute:
		return "Just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return HumanDateFrom(t, now)
	}
}

// DomainBadge returns a capitalized, purple-styled domain label.
func DomainBadge(d domain.InsuranceDomain) string {
	if d == "" {
		return StyleDim.Render("--")
	}
	s := string(d)
	return StylePurple.Render(strings.ToUpper(s[:1]) + s[1:])
}

// CategoryBadge renders a plan tier in its color.
func CategoryBadge(c domain.PlanCategory) string {
	if c == "" {
		return StyleDim.Render("--")
	}
	return CategoryColor(c).Render(string(c))
}

// PolicyNumber renders a policy number as "#100001".
func PolicyNumber(n int64) string {
	return StyleGreen.Render(fmt.Sprintf("#%d", n))
}

// TruncID returns the first 8 characters of an ID, dimmed.
func TruncID(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return StyleDim.Render(id)
}

// YesNo renders a boolean as a colored yes or a dim no.
func YesNo(v bool) string {
	if v {
		return StyleGreen.Render("yes")
	}
	return Dim("no")
}

// Humanize turns snake_case identifiers into "Snake case".
func Humanize(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
