package cli

import (
	"fmt"

	"github.com/alexanderramin/insurer/internal/cli/formatter"
	"github.com/alexanderramin/insurer/internal/domain"
	"github.com/spf13/cobra"
)

func newEventCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "File and triage policy events and claims",
	}
	cmd.AddCommand(
		newEventFileCmd(app),
		newEventListCmd(app),
		newEventAdvanceCmd(app),
		newEventHistoryCmd(app),
	)
	return cmd
}

func newEventFileCmd(app *App) *cobra.Command {
	typ := domain.EventClaimFiled
	var description string

	cmd := &cobra.Command{
		Use:   "file <policy>",
		Short: "File an event against a policy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			actor, err := app.require(ctx)
			if err != nil {
				return err
			}
			owner := ""
			if actor.Role == domain.RoleClient {
				owner = actor.ID
			}
			id, err := resolvePolicyRef(ctx, app, owner, args[0])
			if err != nil {
				return err
			}
			e, err := app.Events.File(ctx, *actor, id, typ, description)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.Success("Filed "+formatter.Humanize(string(e.Type))+" event "+formatter.TruncID(e.ID)))
			return nil
		},
	}

	cmd.Flags().Var(newEnumValue(&typ, "type", allEventTypes()...), "type", "Event type, e.g. claim_filed, cancelled, renewed")
	cmd.Flags().StringVar(&description, "description", "", "What happened")
	_ = cmd.MarkFlagRequired("description")

	return cmd
}

func newEventListCmd(app *App) *cobra.Command {
	var status domain.EventStatus

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events across all policies (employees and admins)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.require(cmd.Context(), domain.RoleEmployee, domain.RoleAdmin); err != nil {
				return err
			}
			events, err := app.Events.List(cmd.Context(), status)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatEventList(events))
			return nil
		},
	}

	cmd.Flags().Var(newEnumValue(&status, "status", allEventStatuses()...), "status", "Only list events in this status")
	return cmd
}

func newEventAdvanceCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "advance <event-id> <status>",
		Short: "Move an event to in_progress, completed, failed or cancelled",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.require(cmd.Context(), domain.RoleEmployee, domain.RoleAdmin); err != nil {
				return err
			}
			var next domain.EventStatus
			if err := newEnumValue(&next, "status", allEventStatuses()...).Set(args[1]); err != nil {
				return domain.NewError(domain.CodeInvalidInput, "status "+err.Error())
			}
			e, err := app.Events.Advance(cmd.Context(), args[0], next)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatEvent(e))
			return nil
		},
	}
}

func newEventHistoryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "history <policy>",
		Short: "List the events of one policy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			actor, err := app.require(ctx)
			if err != nil {
				return err
			}
			owner := ""
			if actor.Role == domain.RoleClient {
				owner = actor.ID
			}
			id, err := resolvePolicyRef(ctx, app, owner, args[0])
			if err != nil {
				return err
			}
			events, err := app.Events.ListByPolicy(ctx, *actor, id)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatEventList(events))
			return nil
		},
	}
}
