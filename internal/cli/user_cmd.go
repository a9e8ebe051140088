package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexanderramin/insurer/internal/cli/formatter"
	"github.com/alexanderramin/insurer/internal/domain"
	"github.com/alexanderramin/insurer/internal/service"
	"github.com/spf13/cobra"
)

// resolveUser accepts a user id or an email address.
func resolveUser(ctx context.Context, app *App, input string) (*domain.User, error) {
	input = strings.TrimSpace(input)
	if strings.Contains(input, "@") {
		return app.Users.FindByEmail(ctx, input)
	}
	return app.Users.Get(ctx, input)
}

func newUserCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts (admin)",
	}

	cmd.AddCommand(
		newUserAddCmd(app),
		newUserListCmd(app),
		newUserStatusCmd(app, "activate", domain.UserActive),
		newUserStatusCmd(app, "deactivate", domain.UserInactive),
		newUserMetricsCmd(app),
		newUserSessionsCmd(app),
	)
	return cmd
}

func newUserAddCmd(app *App) *cobra.Command {
	var name, email, password string
	role := domain.RoleEmployee

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an account with any role",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.require(cmd.Context(), domain.RoleAdmin); err != nil {
				return err
			}
			if err := promptPassword(app, "Initial password", &password); err != nil {
				return err
			}
			u, err := app.Users.Register(cmd.Context(), service.NewUser{
				Name:     name,
				Email:    email,
				Password: password,
				Role:     role,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", formatter.Success(fmt.Sprintf("Created %s account for %s", u.Role, u.Email)))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Full name")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Initial password (prompted when omitted)")
	cmd.Flags().Var(newEnumValue(&role, "role", domain.RoleClient, domain.RoleEmployee, domain.RoleAdmin), "role", "client, employee or admin")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newUserListCmd(app *App) *cobra.Command {
	var role domain.Role

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.require(cmd.Context(), domain.RoleAdmin); err != nil {
				return err
			}
			users, err := app.Users.List(cmd.Context(), role)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatUserList(users))
			return nil
		},
	}

	cmd.Flags().Var(newEnumValue(&role, "role", domain.RoleClient, domain.RoleEmployee, domain.RoleAdmin), "role", "Only list this role")
	return cmd
}

func newUserStatusCmd(app *App, verb string, status domain.UserStatus) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <id|email>",
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			actor, err := app.require(ctx, domain.RoleAdmin)
			if err != nil {
				return err
			}
			u, err := resolveUser(ctx, app, args[0])
			if err != nil {
				return err
			}
			if u.ID == actor.ID && status == domain.UserInactive {
				return domain.NewError(domain.CodeInvalidInput, "you cannot deactivate your own account")
			}
			if err := app.Users.SetStatus(ctx, u.ID, status); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", formatter.Success(fmt.Sprintf("%s is now %s", u.Email, status)))
			return nil
		},
	}
}

func newUserMetricsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Count accounts by status and role",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.require(cmd.Context(), domain.RoleAdmin); err != nil {
				return err
			}
			m, err := app.Users.Metrics(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatUserMetrics(m))
			return nil
		},
	}
}

func newUserSessionsCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Show recent logins and account changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.require(cmd.Context(), domain.RoleAdmin); err != nil {
				return err
			}
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			events, err := app.Users.RecentSessions(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatAuthEvents(events))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of entries")
	return cmd
}
