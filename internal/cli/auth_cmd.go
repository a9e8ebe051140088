package cli

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/insurer/internal/cli/formatter"
	"github.com/alexanderramin/insurer/internal/domain"
	"github.com/alexanderramin/insurer/internal/service"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

// promptPassword asks for a password on the terminal when none was passed.
func promptPassword(app *App, title string, password *string) error {
	if *password != "" {
		return nil
	}
	if !app.interactive() {
		return fmt.Errorf("--password is required when not running in a terminal")
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				EchoMode(huh.EchoModePassword).
				Value(password).
				Validate(requiredText("password")),
		),
	).WithTheme(insurerHuhTheme()).WithShowHelp(false).Run()
}

func newRegisterCmd(app *App) *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a client account and log in",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := promptPassword(app, "Choose a password", &password); err != nil {
				return err
			}
			ctx := cmd.Context()
			u, err := app.Users.Register(ctx, service.NewUser{
				Name:     name,
				Email:    email,
				Password: password,
				Role:     domain.RoleClient,
			})
			if err != nil {
				return err
			}
			if u, err = app.Users.Login(ctx, email, password, app.Host); err != nil {
				return err
			}
			if err := app.Auth.StartSession(u); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.Success("Welcome, "+formatter.Bold(u.Name)+". You are logged in."))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Full name")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newLoginCmd(app *App) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Start a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := promptPassword(app, "Password", &password); err != nil {
				return err
			}
			u, err := app.Users.Login(cmd.Context(), email, password, app.Host)
			if err != nil {
				return err
			}
			if err := app.Auth.StartSession(u); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", formatter.Success(fmt.Sprintf("Logged in as %s (%s)", formatter.Bold(u.Name), u.Role)))
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := app.Auth.EndSession()
			if err != nil {
				return err
			}
			if userID == "" {
				fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim("No active session."))
				return nil
			}
			if err := app.Users.RecordLogout(cmd.Context(), userID, app.Host); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.Success("Logged out."))
			return nil
		},
	}
}

func newWhoAmICmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.require(cmd.Context())
			if err != nil {
				return err
			}
			u, err := app.Users.Get(cmd.Context(), actor.ID)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatUser(u))
			return nil
		},
	}
}

func requiredText(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}
