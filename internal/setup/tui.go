// Package setup holds the interactive account wizard and the import path
// shared with the accounts file.
package setup

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/dipbuyer/config"
	"github.com/vadiminshakov/dipbuyer/internal/domain"
)

const wizardTitle = "DIPBUYER ACCOUNT WIZARD"

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

type accountSaver interface {
	SaveAccount(ctx context.Context, a domain.Account) error
	SaveAveraging(ctx context.Context, accountID string, spec domain.AveragingSpec) error
	SaveDip(ctx context.Context, accountID string, spec domain.DipSpec) error
}

// Save writes an account and its strategy configs.
func Save(ctx context.Context, store accountSaver, imp config.AccountImport) error {
	if err := store.SaveAccount(ctx, imp.Account); err != nil {
		return errors.Wrapf(err, "save account %s", imp.Account.ID)
	}
	for _, spec := range imp.Averaging {
		if err := store.SaveAveraging(ctx, imp.Account.ID, spec); err != nil {
			return errors.Wrapf(err, "save averaging config %s for %s", spec.Symbol, imp.Account.ID)
		}
	}
	for _, spec := range imp.Dips {
		if err := store.SaveDip(ctx, imp.Account.ID, spec); err != nil {
			return errors.Wrapf(err, "save dip config %s for %s", spec.Symbol, imp.Account.ID)
		}
	}
	return nil
}

// answers collects everything the wizard asks for.
type answers struct {
	id, firstName, lastName, email string
	platform, apiKey, apiSecret    string
	telegramToken, telegramChat    string
	notify                         []string

	symbol string
	dummy  bool

	withAveraging   bool
	averagingCost   string
	averagingEvery  string
	withDip         bool
	dipCost         string
	dipDrop         string
	dipUnit         string
	dipAdditional   string
	dipCostIncrease string
}

func defaultAnswers() answers {
	return answers{
		platform:        string(domain.PlatformBinance),
		symbol:          "BTC/USDT",
		dummy:           true,
		withAveraging:   true,
		averagingCost:   "20",
		averagingEvery:  "7",
		withDip:         true,
		dipCost:         "50",
		dipDrop:         "2",
		dipUnit:         string(domain.DropUnitStdDev),
		dipAdditional:   "3",
		dipCostIncrease: "10",
	}
}

func (a answers) account() config.AccountTmp {
	tmp := config.AccountTmp{
		ID:               a.id,
		FirstName:        a.firstName,
		LastName:         a.lastName,
		Email:            a.email,
		Platform:         a.platform,
		APIKey:           a.apiKey,
		APISecret:        a.apiSecret,
		TelegramBotToken: a.telegramToken,
		TelegramChatID:   a.telegramChat,
	}
	for _, n := range a.notify {
		switch n {
		case "telegram":
			tmp.NotifyToTelegram = true
		case "email":
			tmp.NotifyToEmail = true
		}
	}

	if a.withAveraging {
		days, _ := strconv.Atoi(strings.TrimSpace(a.averagingEvery))
		tmp.Averaging = append(tmp.Averaging, domain.AveragingSpec{
			Symbol:        a.symbol,
			OrderCost:     a.averagingCost,
			FrequencyDays: days,
			Dummy:         a.dummy,
		})
	}
	if a.withDip {
		tmp.Dips = append(tmp.Dips, domain.DipSpec{
			Symbol:                     a.symbol,
			OrderCost:                  a.dipCost,
			MinDropValue:               a.dipDrop,
			MinDropUnit:                a.dipUnit,
			MinAdditionalDropPct:       a.dipAdditional,
			AdditionalDropCostIncrease: a.dipCostIncrease,
			Dummy:                      a.dummy,
		})
	}
	return tmp
}

func step(title string) {
	fmt.Print("\033[H\033[2J") // clear screen
	fmt.Println(headerStyle.Render(wizardTitle))
	fmt.Println(stepStyle.Render(title))
}

// RunTUI walks the operator through one account with an averaging and a dip
// config for a single symbol and stores the result.
func RunTUI(ctx context.Context, store accountSaver) error {
	a := defaultAnswers()

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render(wizardTitle))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Let's add an account.\n"))

	fmt.Println(stepStyle.Render("STEP 1: ACCOUNT"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Account id").Value(&a.id).Validate(notEmpty("account id")),
			huh.NewInput().Title("First name").Value(&a.firstName),
			huh.NewInput().Title("Last name").Value(&a.lastName),
			huh.NewInput().Title("Email").Value(&a.email),
		),
	).Run()
	if err != nil {
		return err
	}

	step("STEP 2: EXCHANGE")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select Exchange Platform").
				Options(
					huh.NewOption("Binance", string(domain.PlatformBinance)),
					huh.NewOption("Bybit", string(domain.PlatformBybit)),
				).
				Value(&a.platform),
			huh.NewInput().
				Title("API key").
				Description("Literal value or ${ENV_VAR}").
				Value(&a.apiKey),
			huh.NewInput().
				Title("API secret").
				Value(&a.apiSecret).
				EchoMode(huh.EchoModePassword),
		),
	).Run()
	if err != nil {
		return err
	}

	step("STEP 3: NOTIFICATIONS")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Notify via").
				Options(
					huh.NewOption("Telegram", "telegram"),
					huh.NewOption("Email", "email"),
				).
				Value(&a.notify),
			huh.NewInput().Title("Telegram bot token").Value(&a.telegramToken).EchoMode(huh.EchoModePassword),
			huh.NewInput().Title("Telegram chat id").Value(&a.telegramChat),
		),
	).Run()
	if err != nil {
		return err
	}

	step("STEP 4: ASSET")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Symbol").
				Description("BASE/QUOTE (e.g. BTC/USDT)").
				Value(&a.symbol).
				Validate(func(s string) error {
					_, err := domain.ParsePair(s)
					return err
				}),
			huh.NewConfirm().
				Title("Simulation only?").
				Description("Dummy configs record orders without touching the balance").
				Value(&a.dummy),
		),
	).Run()
	if err != nil {
		return err
	}

	step("STEP 5: PERIODIC BUYS")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().Title("Buy on a fixed schedule?").Value(&a.withAveraging),
		),
		huh.NewGroup(
			huh.NewInput().Title("Order cost").Description("In quote currency").Value(&a.averagingCost).Validate(positiveDecimal),
			huh.NewInput().Title("Every N days").Value(&a.averagingEvery).Validate(positiveInt),
		).WithHideFunc(func() bool { return !a.withAveraging }),
	).Run()
	if err != nil {
		return err
	}

	step("STEP 6: DIP BUYS")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().Title("Buy when the price drops?").Value(&a.withDip),
		),
		huh.NewGroup(
			huh.NewInput().Title("Order cost").Value(&a.dipCost).Validate(positiveDecimal),
			huh.NewInput().Title("Minimum 24h drop").Value(&a.dipDrop).Validate(positiveDecimal),
			huh.NewSelect[string]().
				Title("Drop unit").
				Options(
					huh.NewOption("Standard deviations of daily returns", string(domain.DropUnitStdDev)),
					huh.NewOption("Percent", string(domain.DropUnitPercent)),
				).
				Value(&a.dipUnit),
			huh.NewInput().
				Title("Additional drop % from the previous buy").
				Value(&a.dipAdditional).
				Validate(anyDecimal),
			huh.NewInput().
				Title("Cost increase per additional buy").
				Value(&a.dipCostIncrease).
				Validate(anyDecimal),
		).WithHideFunc(func() bool { return !a.withDip }),
	).Run()
	if err != nil {
		return err
	}

	imp, err := a.account().Build(time.Now().UTC())
	if err != nil {
		return err
	}

	step("FINAL CONFIRMATION")
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(describe(imp)))

	var confirm bool
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save account?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm {
		return errors.New("setup cancelled by user")
	}

	if err := Save(ctx, store, imp); err != nil {
		return err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Account %s saved", imp.Account.ID)))
	return nil
}

func describe(imp config.AccountImport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Account: %s (%s)\nPlatform: %s\n", imp.Account.ID, imp.Account.DisplayName(), imp.Account.Platform)
	for _, s := range imp.Averaging {
		fmt.Fprintf(&b, "Periodic: %s %s every %d days\n", s.Symbol, s.OrderCost, s.FrequencyDays)
	}
	for _, s := range imp.Dips {
		fmt.Fprintf(&b, "Dip: %s %s on a %s %s drop, +%s per %s%% further drop\n",
			s.Symbol, s.OrderCost, s.MinDropValue, s.MinDropUnit, s.AdditionalDropCostIncrease, s.MinAdditionalDropPct)
	}
	return strings.TrimRight(b.String(), "\n")
}

func notEmpty(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s cannot be empty", field)
		}
		return nil
	}
}

func positiveDecimal(s string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if !d.IsPositive() {
		return fmt.Errorf("must be greater than zero")
	}
	return nil
}

func anyDecimal(s string) error {
	if _, err := decimal.NewFromString(strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("must be a valid number")
	}
	return nil
}

func positiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fmt.Errorf("must be a positive whole number")
	}
	return nil
}
