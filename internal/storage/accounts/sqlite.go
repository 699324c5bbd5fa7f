// Package accounts stores accounts, their strategy configs, check
// bookkeeping and per-symbol volatility statistics in SQLite.
package accounts

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/dipbuyer/internal/domain"
)

// DefaultPath is used when no database path is configured.
const DefaultPath = "./data/dipbuyer.db"

// Store is the SQLite-backed account store.
type Store struct {
	db *sql.DB
}

// NewSQLite opens the database at path and applies the schema.
func NewSQLite(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "failed to ensure database directory %s", dir)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "open account database")
	}
	// one writer; sqlite serializes anyway
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "apply account schema")
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveAccount inserts or updates the account row. Strategy configs are saved separately.
func (s *Store) SaveAccount(ctx context.Context, a domain.Account) error {
	if a.ID == "" {
		return errors.New("account id is required")
	}
	if _, err := domain.ParsePlatform(string(a.Platform)); err != nil {
		return errors.Wrapf(err, "account %s", a.ID)
	}
	if a.CreatedOn.IsZero() {
		a.CreatedOn = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts
		(account_id, first_name, last_name, email, is_active, created_on, exchange_id,
		 api_key, api_secret, telegram_bot_token, telegram_chat_id, notify_to_telegram, notify_to_email)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			email = excluded.email,
			is_active = excluded.is_active,
			exchange_id = excluded.exchange_id,
			api_key = excluded.api_key,
			api_secret = excluded.api_secret,
			telegram_bot_token = excluded.telegram_bot_token,
			telegram_chat_id = excluded.telegram_chat_id,
			notify_to_telegram = excluded.notify_to_telegram,
			notify_to_email = excluded.notify_to_email`,
		a.ID, a.FirstName, a.LastName, a.Email, a.Active, a.CreatedOn, string(a.Platform),
		a.Credentials.APIKey, a.Credentials.APISecret, a.Notify.TelegramBotToken, a.Notify.TelegramChatID,
		a.Notify.ToTelegram, a.Notify.ToEmail,
	)
	return errors.Wrapf(err, "save account %s", a.ID)
}

// SaveAveraging validates and upserts an averaging config.
func (s *Store) SaveAveraging(ctx context.Context, accountID string, spec domain.AveragingSpec) error {
	cfg, err := spec.Build()
	if err != nil {
		return errors.Wrapf(err, "account %s", accountID)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO averaging_config (account_id, symbol, is_dummy, order_cost, frequency_days, is_active)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id, symbol, is_dummy) DO UPDATE SET
			order_cost = excluded.order_cost,
			frequency_days = excluded.frequency_days,
			is_active = excluded.is_active`,
		accountID, cfg.Pair.String(), cfg.Dummy, cfg.OrderCost.String(), cfg.FrequencyDays, cfg.Active,
	)
	return errors.Wrapf(err, "save averaging config %s for %s", cfg.Pair.String(), accountID)
}

// SaveDip validates and upserts a dip config.
func (s *Store) SaveDip(ctx context.Context, accountID string, spec domain.DipSpec) error {
	cfg, err := spec.Build()
	if err != nil {
		return errors.Wrapf(err, "account %s", accountID)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO dip_config (account_id, symbol, is_dummy, order_cost, min_drop_value, min_drop_units,
			min_additional_drop_pct, additional_drop_cost_increase, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id, symbol, is_dummy) DO UPDATE SET
			order_cost = excluded.order_cost,
			min_drop_value = excluded.min_drop_value,
			min_drop_units = excluded.min_drop_units,
			min_additional_drop_pct = excluded.min_additional_drop_pct,
			additional_drop_cost_increase = excluded.additional_drop_cost_increase,
			is_active = excluded.is_active`,
		accountID, cfg.Pair.String(), cfg.Dummy, cfg.OrderCost.String(), cfg.MinDrop.String(), string(cfg.Unit),
		cfg.MinAdditionalDropPct.String(), cfg.AdditionalDropCostIncrease.String(), cfg.Active,
	)
	return errors.Wrapf(err, "save dip config %s for %s", cfg.Pair.String(), accountID)
}

// ActiveAccounts returns active accounts with their active configs in
// account-list order. Configs that fail validation are left out and
// reported in the second return value.
func (s *Store) ActiveAccounts(ctx context.Context) ([]domain.Account, []error, error) {
	return s.load(ctx, true)
}

// Accounts returns every account with every config.
func (s *Store) Accounts(ctx context.Context) ([]domain.Account, []error, error) {
	return s.load(ctx, false)
}

func (s *Store) load(ctx context.Context, activeOnly bool) ([]domain.Account, []error, error) {
	query := `
		SELECT account_id, first_name, last_name, email, is_active, created_on, last_contact, exchange_id,
			api_key, api_secret, telegram_bot_token, telegram_chat_id, notify_to_telegram, notify_to_email
		FROM accounts`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY created_on, account_id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, errors.Wrap(err, "query accounts")
	}
	defer rows.Close()

	var (
		accounts []domain.Account
		rejected []error
		byID     = make(map[string]int)
	)
	for rows.Next() {
		var (
			a           domain.Account
			lastContact sql.NullTime
			platform    string
		)
		if err := rows.Scan(&a.ID, &a.FirstName, &a.LastName, &a.Email, &a.Active, &a.CreatedOn, &lastContact,
			&platform, &a.Credentials.APIKey, &a.Credentials.APISecret, &a.Notify.TelegramBotToken,
			&a.Notify.TelegramChatID, &a.Notify.ToTelegram, &a.Notify.ToEmail); err != nil {
			return nil, nil, errors.Wrap(err, "scan account")
		}
		a.LastContact = lastContact.Time

		p, err := domain.ParsePlatform(platform)
		if err != nil {
			rejected = append(rejected, errors.Wrapf(err, "account %s", a.ID))
			continue
		}
		a.Platform = p

		byID[a.ID] = len(accounts)
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "iterate accounts")
	}

	averagingRejected, err := s.loadAveraging(ctx, accounts, byID, activeOnly)
	if err != nil {
		return nil, nil, err
	}
	dipRejected, err := s.loadDips(ctx, accounts, byID, activeOnly)
	if err != nil {
		return nil, nil, err
	}

	rejected = append(rejected, averagingRejected...)
	rejected = append(rejected, dipRejected...)
	return accounts, rejected, nil
}

func (s *Store) loadAveraging(ctx context.Context, accounts []domain.Account, byID map[string]int, activeOnly bool) ([]error, error) {
	query := `
		SELECT account_id, symbol, is_dummy, order_cost, frequency_days, is_active, last_check_date, last_check_result
		FROM averaging_config`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "query averaging configs")
	}
	defer rows.Close()

	var rejected []error
	for rows.Next() {
		var (
			accountID, symbol string
			dummy, active     bool
			cost              sql.NullString
			frequency         sql.NullInt64
			checkAt           sql.NullTime
			checkResult       sql.NullString
		)
		if err := rows.Scan(&accountID, &symbol, &dummy, &cost, &frequency, &active, &checkAt, &checkResult); err != nil {
			return nil, errors.Wrap(err, "scan averaging config")
		}

		idx, ok := byID[accountID]
		if !ok {
			continue
		}

		cfg, err := domain.AveragingSpec{
			Symbol:        symbol,
			OrderCost:     cost.String,
			FrequencyDays: int(frequency.Int64),
			Dummy:         dummy,
			Active:        &active,
		}.Build()
		if err != nil {
			rejected = append(rejected, errors.Wrapf(err, "account %s averaging %s", accountID, symbol))
			continue
		}
		cfg.LastCheck = domain.LastCheck{At: checkAt.Time, Result: domain.CheckResult(checkResult.String)}

		accounts[idx].Averaging = append(accounts[idx].Averaging, cfg)
	}

	return rejected, errors.Wrap(rows.Err(), "iterate averaging configs")
}

func (s *Store) loadDips(ctx context.Context, accounts []domain.Account, byID map[string]int, activeOnly bool) ([]error, error) {
	query := `
		SELECT account_id, symbol, is_dummy, order_cost, min_drop_value, min_drop_units,
			min_additional_drop_pct, additional_drop_cost_increase, is_active, last_check_date, last_check_result
		FROM dip_config`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "query dip configs")
	}
	defer rows.Close()

	var rejected []error
	for rows.Next() {
		var (
			accountID, symbol                         string
			dummy, active                             bool
			cost, minDrop, unit, additional, increase sql.NullString
			checkAt                                   sql.NullTime
			checkResult                               sql.NullString
		)
		if err := rows.Scan(&accountID, &symbol, &dummy, &cost, &minDrop, &unit, &additional, &increase,
			&active, &checkAt, &checkResult); err != nil {
			return nil, errors.Wrap(err, "scan dip config")
		}

		idx, ok := byID[accountID]
		if !ok {
			continue
		}

		cfg, err := domain.DipSpec{
			Symbol:                     symbol,
			OrderCost:                  cost.String,
			MinDropValue:               minDrop.String,
			MinDropUnit:                unit.String,
			MinAdditionalDropPct:       additional.String,
			AdditionalDropCostIncrease: increase.String,
			Dummy:                      dummy,
			Active:                     &active,
		}.Build()
		if err != nil {
			rejected = append(rejected, errors.Wrapf(err, "account %s dip %s", accountID, symbol))
			continue
		}
		cfg.LastCheck = domain.LastCheck{At: checkAt.Time, Result: domain.CheckResult(checkResult.String)}

		accounts[idx].Dips = append(accounts[idx].Dips, cfg)
	}

	return rejected, errors.Wrap(rows.Err(), "iterate dip configs")
}

// RecordCheck stores the last-check bookkeeping of one config.
func (s *Store) RecordCheck(ctx context.Context, accountID string, pair domain.Pair, strategy domain.Strategy, dummy bool, check domain.LastCheck) error {
	var table string
	switch strategy {
	case domain.StrategyAveraging:
		table = "averaging_config"
	case domain.StrategyDip:
		table = "dip_config"
	default:
		return errors.Errorf("unknown strategy %q", strategy)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE `+table+` SET last_check_date = ?, last_check_result = ?
		WHERE account_id = ? AND symbol = ? AND is_dummy = ?`,
		check.At.UTC(), string(check.Result), accountID, pair.String(), dummy,
	)
	if err != nil {
		return errors.Wrapf(err, "record %s check for %s %s", strategy, accountID, pair.String())
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Errorf("no %s config for %s %s (dummy=%t)", strategy, accountID, pair.String(), dummy)
	}

	return nil
}

// TouchLastContact records that the account was processed at the given time.
func (s *Store) TouchLastContact(ctx context.Context, accountID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE accounts SET last_contact = ? WHERE account_id = ?`, at.UTC(), accountID)
	return errors.Wrapf(err, "update last contact of %s", accountID)
}

// SymbolStatistic returns the stored statistic for the symbol.
func (s *Store) SymbolStatistic(ctx context.Context, symbol string) (domain.SymbolStatistic, bool, error) {
	var (
		stat   domain.SymbolStatistic
		stdDev string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT symbol, std_dev, updated_on, comments FROM symbol_stats WHERE symbol = ?`, symbol,
	).Scan(&stat.Symbol, &stdDev, &stat.UpdatedOn, &stat.Comments)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SymbolStatistic{}, false, nil
	}
	if err != nil {
		return domain.SymbolStatistic{}, false, errors.Wrapf(err, "query statistic for %s", symbol)
	}

	stat.StdDev, err = decimal.NewFromString(stdDev)
	if err != nil {
		return domain.SymbolStatistic{}, false, errors.Wrapf(err, "parse std dev of %s", symbol)
	}

	return stat, true, nil
}

// SaveSymbolStatistic upserts a statistic.
func (s *Store) SaveSymbolStatistic(ctx context.Context, stat domain.SymbolStatistic) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO symbol_stats (symbol, std_dev, updated_on, comments) VALUES (?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			std_dev = excluded.std_dev,
			updated_on = excluded.updated_on,
			comments = excluded.comments`,
		stat.Symbol, stat.StdDev.String(), stat.UpdatedOn.UTC(), stat.Comments,
	)
	return errors.Wrapf(err, "save statistic for %s", stat.Symbol)
}

// SymbolStatistics lists all stored statistics ordered by symbol.
func (s *Store) SymbolStatistics(ctx context.Context) ([]domain.SymbolStatistic, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol, std_dev, updated_on, comments FROM symbol_stats ORDER BY symbol`)
	if err != nil {
		return nil, errors.Wrap(err, "query statistics")
	}
	defer rows.Close()

	var out []domain.SymbolStatistic
	for rows.Next() {
		var (
			stat   domain.SymbolStatistic
			stdDev string
		)
		if err := rows.Scan(&stat.Symbol, &stdDev, &stat.UpdatedOn, &stat.Comments); err != nil {
			return nil, errors.Wrap(err, "scan statistic")
		}
		if stat.StdDev, err = decimal.NewFromString(stdDev); err != nil {
			return nil, errors.Wrapf(err, "parse std dev of %s", stat.Symbol)
		}
		out = append(out, stat)
	}

	return out, errors.Wrap(rows.Err(), "iterate statistics")
}
