package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alexanderramin/insurer/internal/cli/formatter"
	"github.com/alexanderramin/insurer/internal/domain"
	"github.com/spf13/cobra"
)

// policyOwner is the account whose policies a command works on: the actor
// for clients, or the --client account for staff. Staff without --client
// get "".
func policyOwner(ctx context.Context, app *App, actor *domain.Actor, client string) (string, error) {
	if actor.Role == domain.RoleClient {
		if client != "" {
			return "", domain.NewError(domain.CodeForbidden, "clients can only see their own policies")
		}
		return actor.ID, nil
	}
	if client == "" {
		return "", nil
	}
	u, err := resolveUser(ctx, app, client)
	if err != nil {
		return "", err
	}
	return u.ID, nil
}

// resolvePolicyRef accepts a policy id, an id prefix, or a policy number
// ("100001" or "#100001"). Numbers and prefixes are looked up among
// ownerID's policies; with no owner the input is taken as a full id.
func resolvePolicyRef(ctx context.Context, app *App, ownerID, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", domain.NewError(domain.CodeInvalidInput, "policy id or number is required")
	}
	if ownerID == "" {
		return input, nil
	}
	policies, err := app.Policies.ListByOwner(ctx, ownerID)
	if err != nil {
		return "", err
	}

	if n, err := strconv.ParseInt(strings.TrimPrefix(input, "#"), 10, 64); err == nil {
		for _, p := range policies {
			if p.PolicyNumber == n {
				return p.ID, nil
			}
		}
	}

	var matches []string
	for _, p := range policies {
		if p.ID == input {
			return p.ID, nil
		}
		if strings.HasPrefix(p.ID, input) {
			matches = append(matches, p.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", domain.NewError(domain.CodeNotFound, fmt.Sprintf("policy not found: %q", input))
	case 1:
		return matches[0], nil
	default:
		return "", domain.NewError(domain.CodeInvalidInput, fmt.Sprintf("policy ID prefix %q is ambiguous (%d matches)", input, len(matches)))
	}
}

func newPolicyCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "List and inspect registered policies",
	}
	cmd.AddCommand(newPolicyListCmd(app), newPolicyShowCmd(app))
	return cmd
}

func newPolicyListCmd(app *App) *cobra.Command {
	var client string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List policies with their premium and payment state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			actor, err := app.require(ctx)
			if err != nil {
				return err
			}
			owner, err := policyOwner(ctx, app, actor, client)
			if err != nil {
				return err
			}
			if owner == "" {
				owner = actor.ID
			}
			subs, err := app.Policies.Subscriptions(ctx, owner)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatSubscriptions(subs))
			return nil
		},
	}

	cmd.Flags().StringVar(&client, "client", "", "Client email or id (employees and admins)")
	return cmd
}

func newPolicyShowCmd(app *App) *cobra.Command {
	var client string

	cmd := &cobra.Command{
		Use:   "show <id|number>",
		Short: "Show a policy with its underwriting data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			actor, err := app.require(ctx)
			if err != nil {
				return err
			}
			owner, err := policyOwner(ctx, app, actor, client)
			if err != nil {
				return err
			}
			id, err := resolvePolicyRef(ctx, app, owner, args[0])
			if err != nil {
				return err
			}
			details, err := app.Policies.Get(ctx, *actor, id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatPolicyDetails(details))
			return nil
		},
	}

	cmd.Flags().StringVar(&client, "client", "", "Client email or id, to look up by policy number (employees and admins)")
	return cmd
}

func newReconcileCmd(app *App) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Remove policies left without underwriting data by a failed registration (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := app.require(ctx, domain.RoleAdmin); err != nil {
				return err
			}
			if !cmd.Flags().Changed("older-than") {
				olderThan = app.OrphanGrace
			}
			n, err := app.Registration.ReconcileOrphans(ctx, olderThan)
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim("No orphaned policies found."))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.Success(fmt.Sprintf("Removed %d orphaned policies", n)))
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Only remove policies older than this (default INSURER_ORPHAN_GRACE)")
	return cmd
}
