package cli

import (
	"context"
	"time"

	"github.com/alexanderramin/insurer/internal/auth"
	"github.com/alexanderramin/insurer/internal/cli/formatter"
	"github.com/alexanderramin/insurer/internal/domain"
	"github.com/alexanderramin/insurer/internal/pricing"
	"github.com/alexanderramin/insurer/internal/service"
	"github.com/spf13/cobra"
)

// App holds the services and settings the commands run against.
type App struct {
	Users        service.UserService
	Plans        service.PlanService
	Registration service.RegistrationService
	Policies     service.PolicyService
	Coupons      service.CouponService
	Payments     service.PaymentService
	Events       service.EventService

	Auth     *auth.Provider
	Resolver pricing.Resolver

	// Timeout bounds each network step of a quote session.
	Timeout     time.Duration
	OrphanGrace time.Duration
	// Host is recorded in the login audit trail.
	Host string

	// IsInteractive reports whether stdin is a terminal. Nil means it is not.
	IsInteractive func() bool
}

func (a *App) interactive() bool {
	return a.IsInteractive != nil && a.IsInteractive()
}

// require returns the logged-in actor when their role is one of roles.
func (a *App) require(ctx context.Context, roles ...domain.Role) (*domain.Actor, error) {
	return a.Auth.Require(ctx, roles...)
}

// NewRootCmd creates the top-level "insurer" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "insurer",
		Short:         "Quote, register and pay for insurance policies",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	// Read by main before the command tree is built; declared here so cobra
	// accepts it.
	root.PersistentFlags().BoolP("verbose", "v", false, "Log every service call at debug level")

	root.AddCommand(
		newRegisterCmd(app),
		newLoginCmd(app),
		newLogoutCmd(app),
		newWhoAmICmd(app),
		newUserCmd(app),
		newPlanCmd(app),
		newQuoteCmd(app),
		newPolicyCmd(app),
		newReconcileCmd(app),
		newCouponCmd(app),
		newPayCmd(app),
		newEventCmd(app),
	)
	return root
}

// FormatError renders a command error for the terminal, adding a hint when
// retrying may help.
func FormatError(err error) string {
	msg := formatter.StyleRed.Render("Error: ") + err.Error()
	if domain.IsRetryable(err) {
		msg += "\n" + formatter.Dim("This is usually temporary; try again.")
	}
	return msg
}
