package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vadiminshakov/dipbuyer/internal/domain"
	"gopkg.in/yaml.v3"
)

// AccountsFile is the yaml document consumed by `accounts import`.
type AccountsFile struct {
	Accounts []AccountTmp `yaml:"accounts"`
}

// AccountTmp is one account entry. Secrets may reference environment
// variables as ${NAME}.
type AccountTmp struct {
	ID               string                 `yaml:"id"`
	FirstName        string                 `yaml:"first_name"`
	LastName         string                 `yaml:"last_name"`
	Email            string                 `yaml:"email"`
	Active           *bool                  `yaml:"active"`
	Platform         string                 `yaml:"platform"`
	APIKey           string                 `yaml:"api_key"`
	APISecret        string                 `yaml:"api_secret"`
	TelegramBotToken string                 `yaml:"telegram_bot_token"`
	TelegramChatID   string                 `yaml:"telegram_chat_id"`
	NotifyToTelegram bool                   `yaml:"notify_to_telegram"`
	NotifyToEmail    bool                   `yaml:"notify_to_email"`
	Averaging        []domain.AveragingSpec `yaml:"averaging"`
	Dips             []domain.DipSpec       `yaml:"dips"`
}

// AccountImport is a validated account with its raw strategy specs.
type AccountImport struct {
	Account   domain.Account
	Averaging []domain.AveragingSpec
	Dips      []domain.DipSpec
}

// LoadAccounts reads and validates an accounts file. Any invalid entry fails
// the whole file so a partial import never happens.
func LoadAccounts(path string) ([]AccountImport, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file AccountsFile
	if err := yaml.Unmarshal(f, &file); err != nil {
		return nil, fmt.Errorf("parse accounts file %s: %w", path, err)
	}

	seen := make(map[string]struct{}, len(file.Accounts))
	out := make([]AccountImport, 0, len(file.Accounts))
	now := time.Now().UTC()

	for i, a := range file.Accounts {
		imp, err := a.Build(now)
		if err != nil {
			return nil, fmt.Errorf("accounts file entry %d: %w", i, err)
		}
		if _, dup := seen[imp.Account.ID]; dup {
			return nil, fmt.Errorf("incorrect 'id' param in accounts file: duplicate account %s", imp.Account.ID)
		}
		seen[imp.Account.ID] = struct{}{}
		out = append(out, imp)
	}

	return out, nil
}

// Build validates the entry. createdOn is stamped on the account.
func (a AccountTmp) Build(createdOn time.Time) (AccountImport, error) {
	id := strings.TrimSpace(a.ID)
	if id == "" {
		return AccountImport{}, fmt.Errorf("incorrect 'id' param: must not be empty")
	}

	platform, err := domain.ParsePlatform(a.Platform)
	if err != nil {
		return AccountImport{}, fmt.Errorf("incorrect 'platform' param for %s, error: %w", id, err)
	}

	for _, s := range a.Averaging {
		if _, err := s.Build(); err != nil {
			return AccountImport{}, fmt.Errorf("account %s: %w", id, err)
		}
	}
	for _, s := range a.Dips {
		if _, err := s.Build(); err != nil {
			return AccountImport{}, fmt.Errorf("account %s: %w", id, err)
		}
	}

	return AccountImport{
		Account: domain.Account{
			ID:        id,
			FirstName: a.FirstName,
			LastName:  a.LastName,
			Email:     a.Email,
			Active:    a.Active == nil || *a.Active,
			CreatedOn: createdOn,
			Platform:  platform,
			Credentials: domain.Credentials{
				APIKey:    os.ExpandEnv(a.APIKey),
				APISecret: os.ExpandEnv(a.APISecret),
			},
			Notify: domain.NotifySettings{
				TelegramBotToken: os.ExpandEnv(a.TelegramBotToken),
				TelegramChatID:   a.TelegramChatID,
				ToTelegram:       a.NotifyToTelegram,
				ToEmail:          a.NotifyToEmail,
			},
		},
		Averaging: a.Averaging,
		Dips:      a.Dips,
	}, nil
}
