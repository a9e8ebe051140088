package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/alexanderramin/insurer/internal/cli/formatter"
	"github.com/alexanderramin/insurer/internal/domain"
	"github.com/alexanderramin/insurer/internal/quote"
	"github.com/alexanderramin/insurer/internal/service"
	"github.com/charmbracelet/huh"
)

// Navigation choices offered next to every wizard step.
const (
	navNext    = "next"
	navBack    = "back"
	navRestart = "restart"
	navCancel  = "cancel"
)

var errWizardCancelled = errors.New("quote cancelled")

// quoteWizard walks a quote session with huh forms, one form per step.
type quoteWizard struct {
	app     *App
	session *quote.Session
	out     io.Writer
}

func (w *quoteWizard) run(ctx context.Context) error {
	fmt.Fprintln(w.out, formatter.Header("New quote"))

	for {
		var err error
		switch w.session.Step() {
		case quote.StepSelectDomain:
			err = w.selectDomain(ctx)
		case quote.StepSelectClient:
			err = w.selectClient(ctx)
		case quote.StepSupplyUnderwritingData:
			err = w.supplyData(ctx)
		case quote.StepSelectPlan:
			err = w.selectPlan(ctx)
		case quote.StepReviewAndConfirm:
			err = w.review(ctx)
		case quote.StepRegistered:
			return nil
		}
		if err == nil {
			continue
		}
		if errors.Is(err, errWizardCancelled) || errors.Is(err, huh.ErrUserAborted) {
			fmt.Fprintln(w.out, formatter.Dim("Quote cancelled. Nothing was registered."))
			return nil
		}
		if !recoverable(err) {
			return err
		}
		// The session is unchanged; show the problem and ask again.
		fmt.Fprintln(w.out, FormatError(err))
	}
}

// recoverable reports whether the wizard can re-ask the current step.
func recoverable(err error) bool {
	code, ok := domain.CodeOf(err)
	if !ok {
		return false
	}
	return code != domain.CodeUnauthenticated && code != domain.CodeForbidden
}

func (w *quoteWizard) form(groups ...*huh.Group) error {
	return huh.NewForm(groups...).WithTheme(insurerHuhTheme()).WithShowHelp(false).Run()
}

// navigate handles the non-data choices. It reports whether choice was one.
func (w *quoteWizard) navigate(ctx context.Context, choice string) (bool, error) {
	switch choice {
	case navBack:
		return true, w.session.Back()
	case navRestart:
		return true, w.session.Reset(ctx)
	case navCancel:
		return true, errWizardCancelled
	}
	return false, nil
}

func navOptions(back bool) []huh.Option[string] {
	var opts []huh.Option[string]
	if back {
		opts = append(opts, huh.NewOption("← Back", navBack), huh.NewOption("Start over", navRestart))
	}
	return append(opts, huh.NewOption("Cancel", navCancel))
}

func (w *quoteWizard) selectDomain(ctx context.Context) error {
	choice := string(w.session.Snapshot().Draft.Domain)

	opts := make([]huh.Option[string], 0, 4)
	for _, d := range domain.AllDomains() {
		label := formatter.Humanize(string(d))
		if r := w.app.Resolver.Resolve(d, nil); r.IsSet() {
			label += fmt.Sprintf(" (×%s)", r)
		}
		opts = append(opts, huh.NewOption(label, string(d)))
	}
	opts = append(opts, navOptions(false)...)

	err := w.form(huh.NewGroup(
		huh.NewSelect[string]().
			Title("What do you want to insure?").
			Options(opts...).
			Value(&choice),
	))
	if err != nil {
		return err
	}
	if done, err := w.navigate(ctx, choice); done {
		return err
	}
	return w.session.SelectDomain(domain.InsuranceDomain(choice))
}

func (w *quoteWizard) selectClient(ctx context.Context) error {
	clients, err := w.app.Users.List(ctx, domain.RoleClient)
	if err != nil {
		return err
	}
	opts := make([]huh.Option[string], 0, len(clients)+3)
	for _, u := range clients {
		if u.Active() {
			opts = append(opts, huh.NewOption(fmt.Sprintf("%s <%s>", u.Name, u.Email), u.ID))
		}
	}
	if len(opts) == 0 {
		return fmt.Errorf("there are no active client accounts to register a policy for")
	}
	opts = append(opts, navOptions(true)...)

	choice := w.session.Snapshot().Draft.ClientID
	err = w.form(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Which client is this policy for?").
			Options(opts...).
			Filtering(true).
			Height(12).
			Value(&choice),
	))
	if err != nil {
		return err
	}
	if done, err := w.navigate(ctx, choice); done {
		return err
	}
	return w.session.SelectClient(ctx, choice)
}

// dataForm holds the fields of the underwriting step and how to read them
// back once the form is submitted.
type dataForm struct {
	fields []huh.Field
	build  func() domain.Underwriting
}

func lifeForm(prev domain.LifeData) dataForm {
	presented, certData := prev.CertPresented, prev.CertData
	return dataForm{
		fields: []huh.Field{
			huh.NewConfirm().
				Title("Is a medical certificate presented?").
				Value(&presented),
			huh.NewText().
				Title("Certificate data").
				Description("JSON document; leave empty without a certificate").
				Value(&certData),
		},
		build: func() domain.Underwriting {
			return domain.LifeData{CertPresented: presented, CertData: certData}
		},
	}
}

func homeForm(prev domain.HomeData) dataForm {
	construction := prev.ConstructionType
	if construction == "" {
		construction = domain.ConstructionBrick
	}
	age, city, neighborhood := itoaOrEmpty(prev.BuildingAge), prev.City, prev.Neighborhood

	constructionOpts := make([]huh.Option[domain.ConstructionType], 0, 4)
	for _, c := range domain.AllConstructionTypes() {
		constructionOpts = append(constructionOpts, huh.NewOption(formatter.Humanize(string(c)), c))
	}
	return dataForm{
		fields: []huh.Field{
			huh.NewSelect[domain.ConstructionType]().
				Title("Construction").
				Options(constructionOpts...).
				Value(&construction),
			huh.NewInput().
				Title("Building age (years)").
				Placeholder("0").
				Value(&age).
				Validate(validateNonNegativeInt),
			huh.NewInput().
				Title("City").
				Value(&city).
				Validate(requiredText("city")),
			huh.NewInput().
				Title("Neighborhood").
				Value(&neighborhood).
				Validate(requiredText("neighborhood")),
		},
		build: func() domain.Underwriting {
			return domain.HomeData{
				ConstructionType: construction,
				BuildingAge:      atoiOr(age, 0),
				City:             city,
				Neighborhood:     neighborhood,
			}
		},
	}
}

func vehicleForm(prev domain.VehicleData) dataForm {
	risk := prev.TheftRisk
	if risk == "" {
		risk = domain.TheftRiskLow
	}
	year, model, violations := itoaOrEmpty(prev.Year), prev.Model, itoaOrEmpty(prev.Violations)

	riskOpts := make([]huh.Option[domain.TheftRisk], 0, 3)
	for _, r := range domain.AllTheftRisks() {
		riskOpts = append(riskOpts, huh.NewOption(formatter.Humanize(string(r)), r))
	}
	return dataForm{
		fields: []huh.Field{
			huh.NewInput().
				Title("Model year").
				Value(&year).
				Validate(validateRequiredPositiveInt),
			huh.NewInput().
				Title("Make and model").
				Value(&model).
				Validate(requiredText("model")),
			huh.NewSelect[domain.TheftRisk]().
				Title("Theft risk in the area").
				Options(riskOpts...).
				Value(&risk),
			huh.NewInput().
				Title("Traffic violations on record").
				Placeholder("0").
				Value(&violations).
				Validate(validateNonNegativeInt),
		},
		build: func() domain.Underwriting {
			return domain.VehicleData{
				Year:       atoiOr(year, 0),
				Model:      model,
				TheftRisk:  risk,
				Violations: atoiOr(violations, 0),
			}
		},
	}
}

func (w *quoteWizard) supplyData(ctx context.Context) error {
	d := w.session.Snapshot().Draft

	var df dataForm
	switch d.Domain {
	case domain.DomainLife:
		prev, _ := d.Underwriting.(domain.LifeData)
		df = lifeForm(prev)
	case domain.DomainHome:
		prev, _ := d.Underwriting.(domain.HomeData)
		df = homeForm(prev)
	case domain.DomainVehicle:
		prev, _ := d.Underwriting.(domain.VehicleData)
		df = vehicleForm(prev)
	default:
		return fmt.Errorf("no underwriting form for domain %q", d.Domain)
	}

	clientType := d.ClientType
	if clientType == "" {
		clientType = domain.ClientPerson
	}
	fields := append(df.fields, huh.NewSelect[domain.ClientType]().
		Title("Client type").
		Options(
			huh.NewOption("Person", domain.ClientPerson),
			huh.NewOption("Business", domain.ClientBusiness),
		).
		Value(&clientType))

	nav := navNext
	err := w.form(
		huh.NewGroup(fields...).Title(formatter.Humanize(string(d.Domain))+" details"),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Continue?").
				Options(append([]huh.Option[string]{huh.NewOption("See prices", navNext)}, navOptions(true)...)...).
				Value(&nav),
		),
	)
	if err != nil {
		return err
	}
	if done, err := w.navigate(ctx, nav); done {
		return err
	}
	return w.session.SubmitUnderwritingData(df.build(), clientType)
}

func (w *quoteWizard) selectPlan(ctx context.Context) error {
	d := w.session.Snapshot().Draft
	quotes := w.session.Quotes()
	fmt.Fprintln(w.out, formatter.FormatQuoteTable(d.Domain, d.Rate, quotes, d.Category))

	opts := make([]huh.Option[string], 0, len(quotes)+3)
	for _, q := range quotes {
		opts = append(opts, huh.NewOption(fmt.Sprintf("%-8s %s", q.Category, formatter.FormatMoney(q.Premium)), string(q.Category)))
	}
	opts = append(opts, navOptions(true)...)

	choice := string(d.Category)
	err := w.form(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Choose a plan").
			Options(opts...).
			Value(&choice),
	))
	if err != nil {
		return err
	}
	if done, err := w.navigate(ctx, choice); done {
		return err
	}
	return w.session.SelectPlan(domain.PlanCategory(choice))
}

func (w *quoteWizard) review(ctx context.Context) error {
	fmt.Fprintln(w.out, formatter.FormatDraftReview(w.session.Snapshot()))

	choice := navNext
	err := w.form(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Register this policy?").
			Options(append([]huh.Option[string]{huh.NewOption("Confirm and register", navNext)}, navOptions(true)...)...).
			Value(&choice),
	))
	if err != nil {
		return err
	}
	if done, err := w.navigate(ctx, choice); done {
		return err
	}

	reg, err := formatter.Busy(w.out, "Registering policy...", func() (*service.Registration, error) {
		return w.session.Confirm(ctx)
	})
	if err != nil {
		return err
	}
	fmt.Fprint(w.out, formatter.FormatRegistration(reg, w.session.Snapshot().Draft))
	return nil
}
