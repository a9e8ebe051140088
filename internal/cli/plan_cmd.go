package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alexanderramin/insurer/internal/cli/formatter"
	"github.com/alexanderramin/insurer/internal/domain"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// resolvePlan accepts a plan id, an id prefix, or a category name, which
// selects the active plan of that category.
func resolvePlan(ctx context.Context, app *App, input string) (*domain.PlanDefinition, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, domain.NewError(domain.CodeInvalidInput, "plan id or category is required")
	}
	plans, err := app.Plans.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	if c, err := domain.ParseCategory(input); err == nil {
		for _, p := range plans {
			if p.Category == c && p.IsActive {
				return p, nil
			}
		}
		return nil, domain.NewError(domain.CodeNotFound, fmt.Sprintf("no active %s plan", c))
	}

	var matches []*domain.PlanDefinition
	for _, p := range plans {
		if p.ID == input {
			return p, nil
		}
		if strings.HasPrefix(p.ID, input) {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return nil, domain.NewError(domain.CodeNotFound, fmt.Sprintf("plan not found: %q", input))
	case 1:
		return matches[0], nil
	default:
		return nil, domain.NewError(domain.CodeInvalidInput, fmt.Sprintf("plan ID prefix %q is ambiguous (%d matches)", input, len(matches)))
	}
}

func newPlanCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Browse and manage the plan catalog",
	}

	cmd.AddCommand(
		newPlanListCmd(app),
		newPlanShowCmd(app),
		newPlanAddCmd(app),
		newPlanUpdateCmd(app),
		newPlanActiveCmd(app, "activate", true),
		newPlanActiveCmd(app, "deactivate", false),
		newPlanRemoveCmd(app),
		newPlanImportCmd(app),
		newPlanBrowseCmd(app),
	)
	return cmd
}

func newPlanListCmd(app *App) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var (
				plans []*domain.PlanDefinition
				err   error
			)
			if all {
				if _, err = app.require(ctx, domain.RoleAdmin); err != nil {
					return err
				}
				plans, err = app.Plans.ListAll(ctx)
			} else {
				plans, err = app.Plans.ListActivePlans(ctx)
			}
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatPlanList(plans))
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include inactive plans (admin)")
	return cmd
}

func newPlanShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|category>",
		Short: "Show a plan with its benefits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := resolvePlan(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatPlanDetail(p))
			return nil
		},
	}
}

// planFields are the editable plan attributes shared by add and update.
type planFields struct {
	base, coverage moneyValue
	benefits       []string
	person, home   string
	vehicle        string
}

func (f *planFields) register(cmd *cobra.Command) {
	cmd.Flags().Var(&f.base, "base-price", "Monthly base price, e.g. 1500 or 1500.50")
	cmd.Flags().Var(&f.coverage, "coverage", "General coverage amount")
	cmd.Flags().StringArrayVar(&f.benefits, "benefit", nil, "Benefit line (repeatable)")
	cmd.Flags().StringVar(&f.person, "desc-person", "", "Description shown for life quotes")
	cmd.Flags().StringVar(&f.home, "desc-home", "", "Description shown for home quotes")
	cmd.Flags().StringVar(&f.vehicle, "desc-vehicle", "", "Description shown for vehicle quotes")
}

// apply copies every flag the user set onto p.
func (f *planFields) apply(cmd *cobra.Command, p *domain.PlanDefinition) {
	changed := cmd.Flags().Changed
	if changed("base-price") {
		p.BasePrice = domain.Money(f.base)
	}
	if changed("coverage") {
		p.GeneralCoverage = domain.Money(f.coverage)
	}
	if changed("benefit") {
		p.Benefits = f.benefits
	}
	if changed("desc-person") {
		p.Description.Person = f.person
	}
	if changed("desc-home") {
		p.Description.Home = f.home
	}
	if changed("desc-vehicle") {
		p.Description.Vehicle = f.vehicle
	}
}

func newPlanAddCmd(app *App) *cobra.Command {
	var (
		category categoryValue
		inactive bool
		fields   planFields
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a plan (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.require(cmd.Context(), domain.RoleAdmin); err != nil {
				return err
			}
			p := &domain.PlanDefinition{
				Category: domain.PlanCategory(category),
				IsActive: !inactive,
			}
			fields.apply(cmd, p)
			if err := app.Plans.Create(cmd.Context(), p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", formatter.Success(fmt.Sprintf("Created %s plan %s", p.Category, p.ID)))
			return nil
		},
	}

	cmd.Flags().Var(&category, "category", "Basic, Elite or Premium")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Create the plan without offering it")
	fields.register(cmd)
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("base-price")

	return cmd
}

func newPlanUpdateCmd(app *App) *cobra.Command {
	var fields planFields

	cmd := &cobra.Command{
		Use:   "update <id|category>",
		Short: "Change a plan's price, coverage or texts (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := app.require(ctx, domain.RoleAdmin); err != nil {
				return err
			}
			p, err := resolvePlan(ctx, app, args[0])
			if err != nil {
				return err
			}
			fields.apply(cmd, p)
			if err := app.Plans.Update(ctx, p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", formatter.Success(fmt.Sprintf("Updated %s plan", p.Category)))
			return nil
		},
	}

	fields.register(cmd)
	return cmd
}

func newPlanActiveCmd(app *App, verb string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <id>",
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " a plan (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := app.require(ctx, domain.RoleAdmin); err != nil {
				return err
			}
			p, err := resolvePlan(ctx, app, args[0])
			if err != nil {
				return err
			}
			if err := app.Plans.SetActive(ctx, p.ID, active); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", formatter.Success(fmt.Sprintf("%s plan %s %sd", p.Category, formatter.TruncID(p.ID), verb)))
			return nil
		},
	}
}

func newPlanRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a plan no policy refers to (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := app.require(ctx, domain.RoleAdmin); err != nil {
				return err
			}
			p, err := resolvePlan(ctx, app, args[0])
			if err != nil {
				return err
			}
			if err := app.Plans.Delete(ctx, p.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", formatter.Success(fmt.Sprintf("Removed %s plan %s", p.Category, formatter.TruncID(p.ID))))
			return nil
		},
	}
}

func newPlanImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Create or update plans from a YAML catalog (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.require(cmd.Context(), domain.RoleAdmin); err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening catalog: %w", err)
			}
			defer f.Close()

			res, err := app.Plans.Import(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatImportResult(res))
			return nil
		},
	}
}

func newPlanBrowseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse active plans interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !app.interactive() {
				return fmt.Errorf("plan browse needs a terminal; use `insurer plan list`")
			}
			ctx := cmd.Context()
			browser := newPlanBrowser(func() ([]*domain.PlanDefinition, error) {
				return app.Plans.ListActivePlans(ctx)
			})
			_, err := tea.NewProgram(browser, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			return err
		},
	}
}
