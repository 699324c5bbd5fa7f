package accounts

// Schema creates the account store. Strategy config columns are nullable so
// that incomplete rows are caught by the config builders at load time.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	account_id TEXT PRIMARY KEY,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	is_active INTEGER NOT NULL DEFAULT 1,
	created_on DATETIME NOT NULL,
	last_contact DATETIME,
	exchange_id TEXT NOT NULL,
	api_key TEXT NOT NULL DEFAULT '',
	api_secret TEXT NOT NULL DEFAULT '',
	telegram_bot_token TEXT NOT NULL DEFAULT '',
	telegram_chat_id TEXT NOT NULL DEFAULT '',
	notify_to_telegram INTEGER NOT NULL DEFAULT 0,
	notify_to_email INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS averaging_config (
	account_id TEXT NOT NULL REFERENCES accounts(account_id) ON DELETE CASCADE,
	symbol TEXT NOT NULL,
	is_dummy INTEGER NOT NULL DEFAULT 0,
	order_cost TEXT,
	frequency_days INTEGER,
	is_active INTEGER NOT NULL DEFAULT 1,
	last_check_date DATETIME,
	last_check_result TEXT,
	PRIMARY KEY (account_id, symbol, is_dummy)
);

CREATE TABLE IF NOT EXISTS dip_config (
	account_id TEXT NOT NULL REFERENCES accounts(account_id) ON DELETE CASCADE,
	symbol TEXT NOT NULL,
	is_dummy INTEGER NOT NULL DEFAULT 0,
	order_cost TEXT,
	min_drop_value TEXT,
	min_drop_units TEXT,
	min_additional_drop_pct TEXT,
	additional_drop_cost_increase TEXT,
	is_active INTEGER NOT NULL DEFAULT 1,
	last_check_date DATETIME,
	last_check_result TEXT,
	PRIMARY KEY (account_id, symbol, is_dummy)
);

CREATE TABLE IF NOT EXISTS symbol_stats (
	symbol TEXT PRIMARY KEY,
	std_dev TEXT NOT NULL,
	updated_on DATETIME NOT NULL,
	comments TEXT NOT NULL DEFAULT ''
);
`
