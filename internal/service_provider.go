package internal

import (
	"fmt"
	"sync"

	"github.com/vadiminshakov/dipbuyer/internal/clients"
	"github.com/vadiminshakov/dipbuyer/internal/domain"
	"github.com/vadiminshakov/dipbuyer/internal/services/market"
	"github.com/vadiminshakov/dipbuyer/internal/services/trader"
	"github.com/vadiminshakov/dipbuyer/pkg/retrier"
	"go.uber.org/zap"
)

// AccountServices are the venue services bound to one account.
type AccountServices struct {
	Market market.Provider
	Trader trader.Executor
}

// ServiceFactory builds the venue services of an account.
type ServiceFactory func(account domain.Account) (AccountServices, error)

// ServiceProvider dispatches accounts to platform implementations and
// reuses clients while the account credentials do not change.
type ServiceProvider struct {
	newRetrier func() *retrier.Retrier
	dryRun     bool
	logger     *zap.Logger

	mu    sync.Mutex
	cache map[string]cachedServices
}

type cachedServices struct {
	platform    domain.Platform
	credentials domain.Credentials
	services    AccountServices
}

func NewServiceProvider(newRetrier func() *retrier.Retrier, dryRun bool, logger *zap.Logger) *ServiceProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ServiceProvider{
		newRetrier: newRetrier,
		dryRun:     dryRun,
		logger:     logger,
		cache:      make(map[string]cachedServices),
	}
}

// Services implements ServiceFactory.
func (p *ServiceProvider) Services(account domain.Account) (AccountServices, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.cache[account.ID]; ok && c.platform == account.Platform && c.credentials == account.Credentials {
		return c.services, nil
	}

	venue, provider, err := newVenue(account)
	if err != nil {
		return AccountServices{}, err
	}

	logger := p.logger.With(zap.String("account", account.ID), zap.String("platform", string(account.Platform)))
	services := AccountServices{
		Market: market.NewRetrying(provider, p.newRetrier()),
		Trader: trader.NewRouter(venue, p.newRetrier(), logger, trader.WithDryRun(p.dryRun)),
	}
	p.cache[account.ID] = cachedServices{platform: account.Platform, credentials: account.Credentials, services: services}

	return services, nil
}

func newVenue(account domain.Account) (trader.Venue, market.Provider, error) {
	switch account.Platform {
	case domain.PlatformBinance:
		client := clients.NewBinanceClient(account.Credentials.APIKey, account.Credentials.APISecret)
		return trader.NewBinanceVenue(client), market.NewBinanceProvider(client), nil
	case domain.PlatformBybit:
		client := clients.NewBybitClient(account.Credentials.APIKey, account.Credentials.APISecret)
		return trader.NewBybitVenue(client), market.NewBybitProvider(client), nil
	default:
		return nil, nil, fmt.Errorf("unsupported platform: %s", account.Platform)
	}
}

// NewPublicMarket returns an unauthenticated provider for shared market data
// such as the volatility close series.
func NewPublicMarket(platform domain.Platform, retry *retrier.Retrier) (market.Provider, error) {
	var provider market.Provider
	switch platform {
	case domain.PlatformBinance:
		provider = market.NewBinanceProvider(clients.NewPublicBinanceClient())
	case domain.PlatformBybit:
		provider = market.NewBybitProvider(clients.NewPublicBybitClient())
	default:
		return nil, fmt.Errorf("unsupported platform: %s", platform)
	}
	return market.NewRetrying(provider, retry), nil
}
