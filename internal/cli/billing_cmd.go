package cli

import (
	"fmt"

	"github.com/alexanderramin/insurer/internal/cli/formatter"
	"github.com/alexanderramin/insurer/internal/domain"
	"github.com/spf13/cobra"
)

func newCouponCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coupon",
		Short: "Generate and list payment coupons",
	}
	cmd.AddCommand(newCouponGenerateCmd(app), newCouponListCmd(app), newCouponShowCmd(app))
	return cmd
}

func newCouponGenerateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "generate [policy...]",
		Short: "Bundle unpaid policies into a coupon (all unpaid when none given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			actor, err := app.require(ctx, domain.RoleClient)
			if err != nil {
				return err
			}

			var ids []string
			if len(args) == 0 {
				subs, err := app.Policies.Subscriptions(ctx, actor.ID)
				if err != nil {
					return err
				}
				for _, s := range subs {
					if !s.Paid {
						ids = append(ids, s.PolicyID)
					}
				}
				if len(ids) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim("Every policy is paid."))
					return nil
				}
			}
			for _, ref := range args {
				id, err := resolvePolicyRef(ctx, app, actor.ID, ref)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}

			c, err := app.Coupons.Generate(ctx, actor.ID, ids)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatCoupon(c))
			fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim("Pay it with `insurer pay checkout "+c.Code+"`."))
			return nil
		},
	}
}

func newCouponListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your coupons",
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.require(cmd.Context(), domain.RoleClient)
			if err != nil {
				return err
			}
			coupons, err := app.Coupons.ListByOwner(cmd.Context(), actor.ID)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatCouponList(coupons))
			return nil
		},
	}
}

func newCouponShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <code>",
		Short: "Show a coupon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.require(cmd.Context())
			if err != nil {
				return err
			}
			c, err := app.Coupons.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if actor.Role == domain.RoleClient && c.OwnerID != actor.ID {
				return domain.NewError(domain.CodeNotFound, "coupon "+args[0]+" not found")
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatCoupon(c))
			return nil
		},
	}
}

func newPayCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Pay coupons through the checkout provider",
	}
	cmd.AddCommand(newPayCheckoutCmd(app), newPayConfirmCmd(app))
	return cmd
}

func newPayCheckoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "checkout <coupon>",
		Short: "Open a checkout for a coupon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.require(cmd.Context(), domain.RoleClient)
			if err != nil {
				return err
			}
			res, err := app.Payments.Checkout(cmd.Context(), actor.ID, args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatCheckout(res))
			return nil
		},
	}
}

func newPayConfirmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <payment-id>",
		Short: "Record a completed provider payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.require(cmd.Context()); err != nil {
				return err
			}
			c, err := app.Payments.Confirm(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatConfirmation(c))
			return nil
		},
	}
}
