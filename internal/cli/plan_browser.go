package cli

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/insurer/internal/cli/formatter"
	"github.com/alexanderramin/insurer/internal/domain"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// plansLoadedMsg carries the result of the catalog read.
type plansLoadedMsg struct {
	plans []*domain.PlanDefinition
	err   error
}

type planBrowserKeys struct {
	Up, Down, Detail, Filter, Reload, Quit key.Binding
}

func defaultPlanBrowserKeys() planBrowserKeys {
	return planBrowserKeys{
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Detail: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		Filter: key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		Reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Quit:   key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// planBrowser is a navigable list of the active catalog. Enter toggles the
// detail card of the plan under the cursor.
type planBrowser struct {
	load    func() ([]*domain.PlanDefinition, error)
	keys    planBrowserKeys
	plans   []*domain.PlanDefinition
	cursor  int
	loading bool
	err     error
	detail  bool

	filtering bool
	filter    string
}

func newPlanBrowser(load func() ([]*domain.PlanDefinition, error)) *planBrowser {
	return &planBrowser{load: load, keys: defaultPlanBrowserKeys(), loading: true}
}

func (v *planBrowser) ShortHelp() []key.Binding {
	return []key.Binding{v.keys.Detail, v.keys.Filter, v.keys.Reload, v.keys.Quit}
}

func (v *planBrowser) Init() tea.Cmd {
	return v.loadPlans()
}

func (v *planBrowser) loadPlans() tea.Cmd {
	load := v.load
	return func() tea.Msg {
		plans, err := load()
		return plansLoadedMsg{plans: plans, err: err}
	}
}

func (v *planBrowser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case plansLoadedMsg:
		v.loading = false
		v.err = msg.err
		v.plans = msg.plans
		v.cursor = min(v.cursor, max(len(v.visiblePlans())-1, 0))
		return v, nil

	case tea.KeyMsg:
		if v.filtering {
			return v.updateFilter(msg)
		}
		return v.updateNormal(msg)
	}
	return v, nil
}

func (v *planBrowser) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	visible := v.visiblePlans()

	switch {
	case key.Matches(msg, v.keys.Quit):
		if v.detail && msg.String() == "esc" {
			v.detail = false
			return v, nil
		}
		return v, tea.Quit
	case key.Matches(msg, v.keys.Up):
		if v.cursor > 0 {
			v.cursor--
		}
	case key.Matches(msg, v.keys.Down):
		if v.cursor < len(visible)-1 {
			v.cursor++
		}
	case key.Matches(msg, v.keys.Detail):
		if len(visible) > 0 {
			v.detail = !v.detail
		}
	case key.Matches(msg, v.keys.Filter):
		v.filtering = true
		v.filter = ""
		v.detail = false
	case key.Matches(msg, v.keys.Reload):
		v.loading = true
		return v, v.loadPlans()
	}
	return v, nil
}

func (v *planBrowser) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		v.filtering = false
		v.filter = ""
		v.cursor = 0
	case tea.KeyEnter:
		v.filtering = false
	case tea.KeyBackspace:
		if len(v.filter) > 0 {
			v.filter = v.filter[:len(v.filter)-1]
			v.cursor = 0
		}
	default:
		if len(msg.String()) == 1 {
			v.filter += msg.String()
			v.cursor = 0
		}
	}
	return v, nil
}

// visiblePlans matches the filter against category and benefits.
func (v *planBrowser) visiblePlans() []*domain.PlanDefinition {
	if v.filter == "" {
		return v.plans
	}
	lf := strings.ToLower(v.filter)
	var filtered []*domain.PlanDefinition
	for _, p := range v.plans {
		text := strings.ToLower(string(p.Category) + " " + strings.Join(p.Benefits, " "))
		if strings.Contains(text, lf) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

func (v *planBrowser) View() string {
	if v.loading {
		return "\n  " + formatter.Dim("Loading plans...")
	}
	if v.err != nil {
		return "\n  " + formatter.StyleRed.Render("Error: "+v.err.Error()) + "\n\n  " + v.helpLine()
	}

	visible := v.visiblePlans()

	var b strings.Builder
	b.WriteString("\n  " + formatter.Header("Plans") + "\n\n")

	if v.filtering {
		b.WriteString("  " + formatter.StyleYellow.Render("/") + " " + v.filter + "█\n\n")
	}

	if len(visible) == 0 {
		b.WriteString("  " + formatter.Dim("No plans found.") + "\n")
	}

	for i, p := range visible {
		cursor := "  "
		if i == v.cursor {
			cursor = formatter.StyleGreen.Render("▸ ")
		}
		b.WriteString(fmt.Sprintf("%s%s  %s  %s\n",
			cursor,
			padRight(formatter.CategoryBadge(p.Category), string(p.Category), 8),
			formatter.MoneyStyled(p.BasePrice),
			formatter.Dim(fmt.Sprintf("%d benefits", len(p.Benefits))),
		))
	}

	if v.detail && v.cursor < len(visible) {
		b.WriteString("\n" + formatter.FormatPlanDetail(visible[v.cursor]) + "\n")
	}

	b.WriteString("\n  " + v.helpLine())
	return b.String()
}

func (v *planBrowser) helpLine() string {
	hints := make([]string, 0, 4)
	for _, k := range v.ShortHelp() {
		hints = append(hints, formatter.Dim(k.Help().Key+": "+k.Help().Desc))
	}
	return strings.Join(hints, "  ")
}

// padRight pads styled text to width using the length of its plain form.
func padRight(styled, plain string, width int) string {
	if len(plain) >= width {
		return styled
	}
	return styled + strings.Repeat(" ", width-len(plain))
}
