package backend

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Provider names accepted by New.
const (
	ProviderREST     = "rest"
	ProviderPostgres = "postgres"
)

// Options carries everything either provider may need.
type Options struct {
	Provider  string
	URL       string
	AnonKey   string
	Timeout   time.Duration
	DB        *sqlx.DB
	JWTSecret string
	JWTExpiry time.Duration
	Issuer    string
	Observer  Observer
}

// Factory builds one client per workspace so every signed-in session gets its own auth slot.
type Factory func() Client

// New builds a single client. Construction failures are logged and replaced by Unavailable.
func New(opts Options, logger *zap.Logger) Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := build(opts)
	if err != nil {
		logger.Error("backend client unavailable, using fallback", zap.String("provider", opts.Provider), zap.Error(err))
		return &Unavailable{Reason: err}
	}
	return client
}

// NewFactory validates the options once and returns a constructor for per-workspace clients.
func NewFactory(opts Options, logger *zap.Logger) Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := build(opts); err != nil {
		logger.Error("backend client unavailable, using fallback", zap.String("provider", opts.Provider), zap.Error(err))
		fallback := &Unavailable{Reason: err}
		return func() Client { return fallback }
	}
	httpClient := &http.Client{Timeout: timeoutOrDefault(opts.Timeout)}
	return func() Client {
		client, err := buildWith(opts, httpClient)
		if err != nil {
			return &Unavailable{Reason: err}
		}
		return client
	}
}

func build(opts Options) (Client, error) {
	return buildWith(opts, &http.Client{Timeout: timeoutOrDefault(opts.Timeout)})
}

func buildWith(opts Options, httpClient *http.Client) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "", ProviderREST:
		return NewRESTClient(RESTConfig{
			URL:        opts.URL,
			AnonKey:    opts.AnonKey,
			HTTPClient: httpClient,
			Observer:   opts.Observer,
		})
	case ProviderPostgres:
		return NewPostgresClient(PostgresConfig{
			DB:          opts.DB,
			JWTSecret:   opts.JWTSecret,
			JWTIssuer:   opts.Issuer,
			TokenExpiry: opts.JWTExpiry,
			Observer:    opts.Observer,
		})
	default:
		return nil, fmt.Errorf("backend: unknown provider %q", opts.Provider)
	}
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}
