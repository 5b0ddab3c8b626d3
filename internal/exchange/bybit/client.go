package bybit

import (
	"fmt"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/ducminhle1904/bybit-volume-bot/internal/config"
)

// All quoting happens on USDT perpetuals.
const category = "linear"

// Client implements the venue capability set on top of the Bybit v5 API.
type Client struct {
	httpClient  *bybit_api.Client
	environment config.Environment
}

// NewClient creates a Bybit client for the selected environment.
func NewClient(apiKey, apiSecret string, environment config.Environment) (*Client, error) {
	var baseURL string
	switch environment {
	case config.EnvironmentDemo:
		baseURL = "https://api-demo.bybit.com"
	case config.EnvironmentTestnet:
		baseURL = bybit_api.TESTNET
	case config.EnvironmentMainnet:
		baseURL = bybit_api.MAINNET
	default:
		return nil, fmt.Errorf("unknown environment %q", environment)
	}

	httpClient := bybit_api.NewBybitHttpClient(
		apiKey,
		apiSecret,
		bybit_api.WithBaseURL(baseURL),
	)

	return &Client{
		httpClient:  httpClient,
		environment: environment,
	}, nil
}

// GetName returns the venue name.
func (c *Client) GetName() string {
	return "bybit"
}

// GetEnvironment returns a string describing the current environment.
func (c *Client) GetEnvironment() string {
	return string(c.environment)
}
