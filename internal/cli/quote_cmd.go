package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/alexanderramin/insurer/internal/cli/formatter"
	"github.com/alexanderramin/insurer/internal/domain"
	"github.com/alexanderramin/insurer/internal/quote"
	"github.com/spf13/cobra"
)

// underwritingFlags collects the per-domain data for a non-interactive quote.
type underwritingFlags struct {
	clientType domain.ClientType

	certPresented bool
	certData      string

	construction domain.ConstructionType
	buildingAge  int
	city         string
	neighborhood string

	year       int
	model      string
	theftRisk  domain.TheftRisk
	violations int
}

func (f *underwritingFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.Var(newEnumValue(&f.clientType, "client-type", domain.ClientPerson, domain.ClientBusiness), "client-type", "person or business")

	fs.BoolVar(&f.certPresented, "cert", false, "Life: a medical certificate is presented")
	fs.StringVar(&f.certData, "cert-data", "", "Life: certificate contents as JSON")

	fs.Var(newEnumValue(&f.construction, "construction", domain.AllConstructionTypes()...), "construction", "Home: brick, concrete, wood or mixed")
	fs.IntVar(&f.buildingAge, "building-age", 0, "Home: building age in years")
	fs.StringVar(&f.city, "city", "", "Home: city")
	fs.StringVar(&f.neighborhood, "neighborhood", "", "Home: neighborhood")

	fs.IntVar(&f.year, "year", 0, "Vehicle: model year")
	fs.StringVar(&f.model, "model", "", "Vehicle: make and model")
	fs.Var(newEnumValue(&f.theftRisk, "theft-risk", domain.AllTheftRisks()...), "theft-risk", "Vehicle: low, medium or high")
	fs.IntVar(&f.violations, "violations", 0, "Vehicle: traffic violations on record")
}

// underwriting builds the data record for dom. Validation is left to the
// quote session.
func (f *underwritingFlags) underwriting(dom domain.InsuranceDomain) domain.Underwriting {
	switch dom {
	case domain.DomainLife:
		return domain.LifeData{CertPresented: f.certPresented, CertData: f.certData}
	case domain.DomainHome:
		return domain.HomeData{
			ConstructionType: f.construction,
			BuildingAge:      f.buildingAge,
			City:             f.city,
			Neighborhood:     f.neighborhood,
		}
	case domain.DomainVehicle:
		return domain.VehicleData{
			Year:       f.year,
			Model:      f.model,
			TheftRisk:  f.theftRisk,
			Violations: f.violations,
		}
	}
	return nil
}

func newQuoteCmd(app *App) *cobra.Command {
	var (
		dom      domainValue
		category categoryValue
		client   string
		preview  bool
		uw       underwritingFlags
	)

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote and register a policy",
		Long: `Quote and register a policy.

Run without flags in a terminal for the guided wizard. Pass --domain, --plan
and the underwriting flags of that domain to register in one step, or
--domain with --preview to only see the prices.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if preview {
				if dom == "" {
					return fmt.Errorf("--preview needs --domain")
				}
				return previewQuotes(ctx, app, out, domain.InsuranceDomain(dom))
			}

			actor, err := app.require(ctx)
			if err != nil {
				return err
			}
			session, err := newQuoteSession(ctx, app, actor)
			if err != nil {
				return err
			}

			if dom == "" && category == "" {
				if !app.interactive() {
					return fmt.Errorf("--domain and --plan are required when not running in a terminal")
				}
				w := &quoteWizard{app: app, session: session, out: out}
				return w.run(ctx)
			}
			if dom == "" || category == "" {
				return fmt.Errorf("--domain and --plan must be given together")
			}

			if session.Flow() == quote.FlowEmployee {
				if client == "" {
					return fmt.Errorf("--client is required when registering for a client")
				}
				u, err := resolveUser(ctx, app, client)
				if err != nil {
					return err
				}
				if err := session.SelectDomain(domain.InsuranceDomain(dom)); err != nil {
					return err
				}
				if err := session.SelectClient(ctx, u.ID); err != nil {
					return err
				}
			} else {
				if client != "" {
					return domain.NewError(domain.CodeForbidden, "clients can only register policies for themselves")
				}
				if err := session.SelectDomain(domain.InsuranceDomain(dom)); err != nil {
					return err
				}
			}
			if err := session.SubmitUnderwritingData(uw.underwriting(domain.InsuranceDomain(dom)), uw.clientType); err != nil {
				return err
			}
			if err := session.SelectPlan(domain.PlanCategory(category)); err != nil {
				return err
			}

			reg, err := session.Confirm(ctx)
			if err != nil {
				return err
			}
			fmt.Fprint(out, formatter.FormatRegistration(reg, session.Snapshot().Draft))
			return nil
		},
	}

	cmd.Flags().Var(&dom, "domain", "life, home or vehicle")
	cmd.Flags().Var(&category, "plan", "Basic, Elite or Premium")
	cmd.Flags().StringVar(&client, "client", "", "Client email or id (employees and admins)")
	cmd.Flags().BoolVar(&preview, "preview", false, "Only show the premium of every plan")
	uw.register(cmd)

	return cmd
}

func newQuoteSession(ctx context.Context, app *App, actor *domain.Actor) (*quote.Session, error) {
	return quote.New(ctx, quote.Config{
		Catalog:   app.Plans,
		Resolver:  app.Resolver,
		Registrar: app.Registration,
		Clients:   app.Users,
		Actor:     actor,
		Timeout:   app.Timeout,
	})
}

// previewQuotes prints the quote table for dom. It needs no session.
func previewQuotes(ctx context.Context, app *App, out io.Writer, dom domain.InsuranceDomain) error {
	session, err := newQuoteSession(ctx, app, nil)
	if err != nil {
		return err
	}
	if err := session.SelectDomain(dom); err != nil {
		return err
	}
	d := session.Snapshot().Draft
	fmt.Fprint(out, formatter.FormatQuoteTable(d.Domain, d.Rate, session.Quotes(), ""))
	return nil
}
